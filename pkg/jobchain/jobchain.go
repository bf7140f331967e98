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

// Package jobchain decodes the job chains the traced program submits.
//
// A chain is an intrusive list of job descriptors in GPU memory. Every
// address in it is translated through the gpumem registry before anything is
// read, and reads go through usermem so that a stale pointer produces a
// placeholder in the trace instead of a fault.
package jobchain

import (
	"fmt"

	"github.com/elastic/go-freelru"

	"malitrace.dev/malitrace/pkg/abi/mali"
	"malitrace.dev/malitrace/pkg/gpumem"
	"malitrace.dev/malitrace/pkg/hostarch"
	"malitrace.dev/malitrace/pkg/marshal"
	"malitrace.dev/malitrace/pkg/trace"
	"malitrace.dev/malitrace/pkg/usermem"
)

// payloadDumpSize is the number of payload bytes dumped for jobs without a
// dedicated decoder.
const payloadDumpSize = 256

// Options configures a Walker.
type Options struct {
	// ShaderBlobSize is the number of bytes of each shader dumped.
	// Defaults to mali.ShaderBlobSize.
	ShaderBlobSize int

	// ShaderCacheSize is the capacity of the shader sighting cache. Zero
	// disables the cache.
	ShaderCacheSize uint32

	// ShaderDedup replaces the dump of a shader already seen with a
	// reference to its first sighting.
	ShaderDedup bool
}

// Walker decodes job chains into a trace stream.
type Walker struct {
	reg  *gpumem.Registry
	mem  usermem.IO
	out  *trace.Stream
	opts Options

	// chains counts Walk calls; shader sightings refer to it.
	chains  uint64
	shaders *freelru.LRU[uint64, sighting]
}

// New returns a Walker reading through reg and mem and writing to out.
func New(reg *gpumem.Registry, mem usermem.IO, out *trace.Stream, opts Options) (*Walker, error) {
	if opts.ShaderBlobSize <= 0 {
		opts.ShaderBlobSize = mali.ShaderBlobSize
	}
	w := &Walker{reg: reg, mem: mem, out: out, opts: opts}
	if opts.ShaderCacheSize > 0 {
		lru, err := freelru.New[uint64, sighting](opts.ShaderCacheSize, hashKey)
		if err != nil {
			return nil, fmt.Errorf("shader cache: %w", err)
		}
		w.shaders = lru
	}
	return w, nil
}

// read copies n bytes of GPU memory at gpu.
func (w *Walker) read(gpu hostarch.Addr, n int) ([]byte, error) {
	cpu, err := w.reg.Deref(gpu, uint64(n))
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := w.mem.CopyIn(cpu, buf); err != nil {
		return nil, fmt.Errorf("%v (CPU %v): %w", gpu, cpu, err)
	}
	return buf, nil
}

// readObject copies the object at gpu into m.
func (w *Walker) readObject(gpu hostarch.Addr, m marshal.Marshallable) error {
	buf, err := w.read(gpu, m.SizeBytes())
	if err != nil {
		return err
	}
	m.UnmarshalBytes(buf)
	return nil
}

// placeholder reports a failed dereference.
func (w *Walker) placeholder(err error) {
	w.out.Printf("<%v>", err)
}

// Walk decodes the chain starting at jc and returns the number of job
// descriptors decoded. The walk stops at a null next pointer, at a
// descriptor already visited, or after as many descriptors as fit in the
// mapping holding jc.
func (w *Walker) Walk(jc hostarch.Addr) int {
	w.chains++
	root := w.reg.FindByGPU(jc)
	if root == nil {
		w.placeholder(fmt.Errorf("%v: %w", jc, gpumem.ErrUnknownPointer))
		return 0
	}
	limit := max(int(root.Length/mali.SizeofJobDescriptorHeader), 1)
	visited := make(map[hostarch.Addr]struct{})

	n := 0
	for addr := jc; addr != 0; {
		if _, ok := visited[addr]; ok {
			w.out.Printf("Cycle detected: job %v already decoded, stopping", addr)
			break
		}
		if n == limit {
			w.out.Printf("Job chain longer than %d descriptors, stopping", limit)
			break
		}
		visited[addr] = struct{}{}

		var h mali.JobDescriptorHeader
		if err := w.readObject(addr, &h); err != nil {
			w.placeholder(err)
			break
		}
		w.decodeJob(addr, &h)
		n++
		addr = h.Next()
	}
	return n
}

func (w *Walker) decodeJob(addr hostarch.Addr, h *mali.JobDescriptorHeader) {
	width := 32
	if h.Is64Bit() {
		width = 64
	}
	barrier := 0
	if h.Barrier() {
		barrier = 1
	}
	name := "Unknown"
	if h.Type().Known() {
		name = h.Type().String()
	}
	w.out.Printf("%s job, %d-bit, status %X, incomplete %X", name, width, h.ExceptionStatus, h.FirstIncompleteTask)
	w.out.Printf("fault %X, barrier %d, index %X", h.FaultPointer, barrier, h.JobIndex)
	w.out.Printf("dependencies (%X, %X)", h.Dependency1, h.Dependency2)

	payload := addr + mali.SizeofJobDescriptorHeader
	w.out.Nested(func() {
		switch t := h.Type(); {
		case !t.Known():
			w.out.Printf("unknown job type %#x, payload not decoded", uint8(t))
		case t == mali.JOB_TYPE_SET_VALUE:
			var s mali.SetValuePayload
			if err := w.readObject(payload, &s); err != nil {
				w.placeholder(err)
				return
			}
			w.out.Printf("set value -> %X (%X)", s.Out, s.Unknown)
		case t == mali.JOB_TYPE_VERTEX || t == mali.JOB_TYPE_TILER:
			w.decodeVertexTiler(t, payload)
		default:
			w.out.Printf("Dumping payload %v:", payload)
			w.out.Nested(func() {
				buf, err := w.read(payload, payloadDumpSize)
				if err != nil {
					w.placeholder(err)
					return
				}
				w.out.Hexdump(buf)
			})
		}
	})
}

func (w *Walker) decodeVertexTiler(t mali.JobType, payload hostarch.Addr) {
	raw, err := w.read(payload, mali.SizeofVertexTilerPayload)
	if err != nil {
		w.placeholder(err)
		return
	}
	var v mali.VertexTilerPayload
	v.UnmarshalBytes(raw)

	meta := v.ShaderMeta()
	if meta&0xFFF00000 == 0x5AB00000 {
		w.out.Printf("Job sabotaged")
	}
	kind := "Fragment"
	if t == mali.JOB_TYPE_VERTEX {
		kind = "Vertex"
	}
	w.out.Printf("%s shader @ %v (flags 0x%x)", kind, meta, v.ShaderFlags())

	w.out.Printf("Block #1:")
	w.out.Nested(func() { w.out.Hexdump(raw[:len(v.Block1)*4]) })

	if meta != 0 {
		w.decodeShader(meta)
	} else {
		w.out.Printf("<no shader>")
	}

	if v.AttributeMeta != 0 {
		w.out.Printf("Attribute list:")
		w.out.Nested(func() {
			w.decodeAttributeList(hostarch.Addr(v.AttributeMeta), hostarch.Addr(v.Attributes))
		})
	} else {
		w.out.Printf("<no attributes>")
	}

	w.out.Printf("Block #2:")
	w.out.Nested(func() { w.out.Hexdump(raw[len(raw)-len(v.Block2)*4:]) })
}
