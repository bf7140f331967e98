// Copyright 2026 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package gpumem shadows the GPU memory the traced program allocates and maps.
//
// Two kinds of record are kept. An Allocation is created when the driver
// acknowledges a memory allocation and is keyed by GPU virtual address. A
// Mapping is created for each successful mmap of the device and links a GPU
// range to the CPU range the kernel chose for it. Lookups treat every range
// as half-open.
//
// A Registry is not synchronized; the tracer calls it with its lock held.
package gpumem

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/btree"

	"malitrace.dev/malitrace/pkg/hostarch"
)

// PageSize is the driver's allocation granule.
const PageSize = hostarch.PageSize

// Errors returned by Registry.
var (
	ErrOverlap        = errors.New("range overlaps a live allocation")
	ErrEmpty          = errors.New("zero length range")
	ErrUnknownPointer = errors.New("unknown GPU pointer")
	ErrOutOfRange     = errors.New("access runs past the end of the mapping")
)

// Allocation is a GPU allocation acknowledged by the driver.
type Allocation struct {
	GPUVA  hostarch.Addr
	Flags  uint64
	Length uint64
	Live   bool
}

// Range returns the GPU range of the allocation.
func (a *Allocation) Range() hostarch.AddrRange {
	return hostarch.AddrRange{Start: a.GPUVA, End: a.GPUVA + hostarch.Addr(a.Length)}
}

func (a *Allocation) String() string {
	return fmt.Sprintf("%v+%#x", a.GPUVA, a.Length)
}

// Mapping is a CPU mapping of GPU memory.
type Mapping struct {
	GPUVA   hostarch.Addr
	CPUAddr hostarch.Addr
	Length  uint64
	Prot    int32
	Flags   int32
}

// GPURange returns the GPU range of the mapping.
func (m *Mapping) GPURange() hostarch.AddrRange {
	return hostarch.AddrRange{Start: m.GPUVA, End: m.GPUVA + hostarch.Addr(m.Length)}
}

// CPURange returns the CPU range of the mapping.
func (m *Mapping) CPURange() hostarch.AddrRange {
	return hostarch.AddrRange{Start: m.CPUAddr, End: m.CPUAddr + hostarch.Addr(m.Length)}
}

// CPUFor translates a GPU address inside m to its CPU address.
func (m *Mapping) CPUFor(gpu hostarch.Addr) hostarch.Addr {
	return m.CPUAddr + (gpu - m.GPUVA)
}

// GPUFor translates a CPU address inside m to its GPU address.
func (m *Mapping) GPUFor(cpu hostarch.Addr) hostarch.Addr {
	return m.GPUVA + (cpu - m.CPUAddr)
}

func (m *Mapping) String() string {
	return fmt.Sprintf("GPU %v CPU %v (%#x bytes)", m.GPURange(), m.CPURange(), m.Length)
}

// Registry indexes allocations by GPU address and mappings by both GPU and
// CPU address.
type Registry struct {
	allocs *btree.BTreeG[*Allocation]
	byGPU  *btree.BTreeG[*Mapping]
	byCPU  *btree.BTreeG[*Mapping]

	// maxAllocLen and maxMapLen bound the backwards scans of the GPU
	// indexes, where ranges may nest.
	maxAllocLen uint64
	maxMapLen   uint64
}

const degree = 8

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		allocs: btree.NewG(degree, func(a, b *Allocation) bool {
			return a.GPUVA < b.GPUVA
		}),
		byGPU: btree.NewG(degree, func(a, b *Mapping) bool {
			if a.GPUVA != b.GPUVA {
				return a.GPUVA < b.GPUVA
			}
			return a.CPUAddr < b.CPUAddr
		}),
		byCPU: btree.NewG(degree, func(a, b *Mapping) bool {
			return a.CPUAddr < b.CPUAddr
		}),
	}
}

// TrackAllocation records a live allocation of length bytes at gpuVA.
func (r *Registry) TrackAllocation(gpuVA hostarch.Addr, flags, length uint64) (*Allocation, error) {
	if length == 0 {
		return nil, ErrEmpty
	}
	ar, ok := hostarch.RangeOf(gpuVA, length)
	if !ok {
		return nil, fmt.Errorf("allocation %v+%#x: %w", gpuVA, length, ErrOverlap)
	}
	if prev := r.allocationOverlapping(ar); prev != nil {
		return nil, fmt.Errorf("allocation %v overlaps %v: %w", ar, prev, ErrOverlap)
	}
	a := &Allocation{GPUVA: gpuVA, Flags: flags, Length: length, Live: true}
	r.allocs.ReplaceOrInsert(a)
	r.maxAllocLen = max(r.maxAllocLen, length)
	return a, nil
}

func (r *Registry) allocationOverlapping(ar hostarch.AddrRange) *Allocation {
	var found *Allocation
	r.allocs.DescendLessOrEqual(&Allocation{GPUVA: ar.Start}, func(a *Allocation) bool {
		if a.Range().Overlaps(ar) {
			found = a
			return false
		}
		return uint64(ar.Start-a.GPUVA) < r.maxAllocLen
	})
	if found != nil {
		return found
	}
	r.allocs.AscendGreaterOrEqual(&Allocation{GPUVA: ar.Start}, func(a *Allocation) bool {
		if a.GPUVA >= ar.End {
			return false
		}
		found = a
		return false
	})
	return found
}

// FreeAllocation drops the allocation starting at gpuVA. The returned record
// is no longer live.
func (r *Registry) FreeAllocation(gpuVA hostarch.Addr) (*Allocation, bool) {
	a, ok := r.allocs.Delete(&Allocation{GPUVA: gpuVA})
	if !ok {
		return nil, false
	}
	dead := *a
	dead.Live = false
	return &dead, true
}

// UpdateFlags applies flags under mask to the allocation starting at gpuVA.
// The record is replaced rather than modified.
func (r *Registry) UpdateFlags(gpuVA hostarch.Addr, flags, mask uint64) (*Allocation, bool) {
	a, ok := r.allocs.Get(&Allocation{GPUVA: gpuVA})
	if !ok {
		return nil, false
	}
	updated := *a
	updated.Flags = a.Flags&^mask | flags&mask
	r.allocs.ReplaceOrInsert(&updated)
	return &updated, true
}

// FindAllocation returns the live allocation containing gpu, or nil.
func (r *Registry) FindAllocation(gpu hostarch.Addr) *Allocation {
	var found *Allocation
	r.allocs.DescendLessOrEqual(&Allocation{GPUVA: gpu}, func(a *Allocation) bool {
		if a.Range().Contains(gpu) {
			found = a
			return false
		}
		return uint64(gpu-a.GPUVA) < r.maxAllocLen
	})
	return found
}

// AllocationFor returns the allocation m maps, or nil if the driver never
// reported one there.
func (r *Registry) AllocationFor(m *Mapping) *Allocation {
	return r.FindAllocation(m.GPUVA)
}

// TrackMmap records a mapping of length bytes of GPU memory at gpuVA to cpu.
// Any tracked CPU range the new mapping covers is dropped first, as the
// kernel replaces it.
func (r *Registry) TrackMmap(gpuVA, cpu hostarch.Addr, length uint64, prot, flags int32) (*Mapping, error) {
	if length == 0 {
		return nil, ErrEmpty
	}
	if _, ok := hostarch.RangeOf(cpu, length); !ok {
		return nil, fmt.Errorf("mapping %v+%#x wraps", cpu, length)
	}
	if _, ok := hostarch.RangeOf(gpuVA, length); !ok {
		return nil, fmt.Errorf("mapping of GPU %v+%#x wraps", gpuVA, length)
	}
	r.UnmapRange(cpu, length)
	m := &Mapping{GPUVA: gpuVA, CPUAddr: cpu, Length: length, Prot: prot, Flags: flags}
	r.insertMapping(m)
	return m, nil
}

func (r *Registry) insertMapping(m *Mapping) {
	r.byGPU.ReplaceOrInsert(m)
	r.byCPU.ReplaceOrInsert(m)
	r.maxMapLen = max(r.maxMapLen, m.Length)
}

func (r *Registry) removeMapping(m *Mapping) {
	r.byGPU.Delete(m)
	r.byCPU.Delete(m)
}

// UntrackMmap drops the mapping starting at cpu.
func (r *Registry) UntrackMmap(cpu hostarch.Addr) (*Mapping, bool) {
	m, ok := r.byCPU.Get(&Mapping{CPUAddr: cpu})
	if !ok {
		return nil, false
	}
	r.removeMapping(m)
	return m, true
}

// UnmapRange drops every part of a tracked mapping inside
// [cpu, cpu+length). Mappings only partly covered are split, keeping the
// parts outside the range. It returns the mappings that were affected, as
// they were before the call.
func (r *Registry) UnmapRange(cpu hostarch.Addr, length uint64) []*Mapping {
	end, ok := cpu.AddLength(length)
	if !ok {
		end = math.MaxUint64
	}
	ur := hostarch.AddrRange{Start: cpu, End: end}

	var hit []*Mapping
	// CPU mappings never overlap, so at most one starts before cpu and
	// covers it.
	r.byCPU.DescendLessOrEqual(&Mapping{CPUAddr: cpu}, func(m *Mapping) bool {
		if m.CPURange().Overlaps(ur) {
			hit = append(hit, m)
		}
		return false
	})
	r.byCPU.AscendGreaterOrEqual(&Mapping{CPUAddr: cpu}, func(m *Mapping) bool {
		if m.CPUAddr >= ur.End {
			return false
		}
		if len(hit) == 0 || hit[0] != m {
			hit = append(hit, m)
		}
		return true
	})

	for _, m := range hit {
		r.removeMapping(m)
		mr := m.CPURange()
		if mr.Start < ur.Start {
			r.insertMapping(&Mapping{
				GPUVA:   m.GPUVA,
				CPUAddr: m.CPUAddr,
				Length:  uint64(ur.Start - mr.Start),
				Prot:    m.Prot,
				Flags:   m.Flags,
			})
		}
		if mr.End > ur.End {
			r.insertMapping(&Mapping{
				GPUVA:   m.GPUFor(ur.End),
				CPUAddr: ur.End,
				Length:  uint64(mr.End - ur.End),
				Prot:    m.Prot,
				Flags:   m.Flags,
			})
		}
	}
	return hit
}

// FindByGPU returns a mapping whose GPU range contains gpu, or nil.
func (r *Registry) FindByGPU(gpu hostarch.Addr) *Mapping {
	var found *Mapping
	r.scanGPU(gpu, func(m *Mapping) bool {
		found = m
		return false
	})
	return found
}

// scanGPU calls fn for each mapping whose GPU range contains gpu, highest
// start first, until fn returns false.
func (r *Registry) scanGPU(gpu hostarch.Addr, fn func(m *Mapping) bool) {
	r.byGPU.DescendLessOrEqual(&Mapping{GPUVA: gpu, CPUAddr: math.MaxUint64}, func(m *Mapping) bool {
		if m.GPURange().Contains(gpu) && !fn(m) {
			return false
		}
		return uint64(gpu-m.GPUVA) < r.maxMapLen
	})
}

// FindByCPU returns the mapping whose CPU range contains cpu, or nil.
func (r *Registry) FindByCPU(cpu hostarch.Addr) *Mapping {
	var found *Mapping
	r.byCPU.DescendLessOrEqual(&Mapping{CPUAddr: cpu}, func(m *Mapping) bool {
		if m.CPURange().Contains(cpu) {
			found = m
		}
		return false
	})
	return found
}

// Deref translates [gpu, gpu+n) to the CPU address of its first byte. The
// whole range must lie inside one mapping; when mappings overlap, any one
// covering it will do.
func (r *Registry) Deref(gpu hostarch.Addr, n uint64) (hostarch.Addr, error) {
	end, ok := gpu.AddLength(n)
	var first, found *Mapping
	r.scanGPU(gpu, func(m *Mapping) bool {
		if first == nil {
			first = m
		}
		if ok && end <= m.GPURange().End {
			found = m
			return false
		}
		return true
	})
	switch {
	case found != nil:
		return found.CPUFor(gpu), nil
	case first == nil:
		return 0, fmt.Errorf("%v: %w", gpu, ErrUnknownPointer)
	default:
		return 0, fmt.Errorf("%v+%#x in %v: %w", gpu, n, first, ErrOutOfRange)
	}
}

// Allocations returns the live allocations in GPU address order.
func (r *Registry) Allocations() []*Allocation {
	out := make([]*Allocation, 0, r.allocs.Len())
	r.allocs.Ascend(func(a *Allocation) bool {
		out = append(out, a)
		return true
	})
	return out
}

// MappingCount returns the number of tracked mappings.
func (r *Registry) MappingCount() int {
	return r.byCPU.Len()
}

// Mappings returns the tracked mappings in GPU address order.
func (r *Registry) Mappings() []*Mapping {
	out := make([]*Mapping, 0, r.byGPU.Len())
	r.byGPU.Ascend(func(m *Mapping) bool {
		out = append(out, m)
		return true
	})
	return out
}
