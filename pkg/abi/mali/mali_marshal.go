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

package mali

import (
	"malitrace.dev/malitrace/pkg/hostarch"
	"malitrace.dev/malitrace/pkg/marshal"
)

func putU8(dst []byte, v uint8) []byte {
	dst[0] = v
	return dst[1:]
}

func getU8(src []byte) (uint8, []byte) {
	return src[0], src[1:]
}

func putU16(dst []byte, v uint16) []byte {
	hostarch.ByteOrder.PutUint16(dst[:2], v)
	return dst[2:]
}

func getU16(src []byte) (uint16, []byte) {
	return hostarch.ByteOrder.Uint16(src[:2]), src[2:]
}

func putU32(dst []byte, v uint32) []byte {
	hostarch.ByteOrder.PutUint32(dst[:4], v)
	return dst[4:]
}

func getU32(src []byte) (uint32, []byte) {
	return hostarch.ByteOrder.Uint32(src[:4]), src[4:]
}

func putU64(dst []byte, v uint64) []byte {
	hostarch.ByteOrder.PutUint64(dst[:8], v)
	return dst[8:]
}

func getU64(src []byte) (uint64, []byte) {
	return hostarch.ByteOrder.Uint64(src[:8]), src[8:]
}

func putBytes(dst, v []byte) []byte {
	return dst[copy(dst, v):]
}

func getBytes(src, v []byte) []byte {
	return src[copy(v, src):]
}

// SizeBytes implements marshal.Marshallable.SizeBytes.
func (h *Header) SizeBytes() int {
	return SizeofHeader
}

// MarshalBytes implements marshal.Marshallable.MarshalBytes.
func (h *Header) MarshalBytes(dst []byte) []byte {
	dst = putU32(dst, h.ID)
	return putU32(dst, h.Pad)
}

// UnmarshalBytes implements marshal.Marshallable.UnmarshalBytes.
func (h *Header) UnmarshalBytes(src []byte) []byte {
	h.ID, src = getU32(src)
	h.Pad, src = getU32(src)
	return src
}

// SizeBytes implements marshal.Marshallable.SizeBytes.
func (p *GetVersion) SizeBytes() int {
	return SizeofGetVersion
}

// MarshalBytes implements marshal.Marshallable.MarshalBytes.
func (p *GetVersion) MarshalBytes(dst []byte) []byte {
	dst = p.Header.MarshalBytes(dst)
	dst = putU16(dst, p.Major)
	dst = putU16(dst, p.Minor)
	return putU32(dst, p.Pad)
}

// UnmarshalBytes implements marshal.Marshallable.UnmarshalBytes.
func (p *GetVersion) UnmarshalBytes(src []byte) []byte {
	src = p.Header.UnmarshalBytes(src)
	p.Major, src = getU16(src)
	p.Minor, src = getU16(src)
	p.Pad, src = getU32(src)
	return src
}

// SizeBytes implements marshal.Marshallable.SizeBytes.
func (p *SetFlags) SizeBytes() int {
	return SizeofSetFlags
}

// MarshalBytes implements marshal.Marshallable.MarshalBytes.
func (p *SetFlags) MarshalBytes(dst []byte) []byte {
	dst = p.Header.MarshalBytes(dst)
	dst = putU32(dst, p.CreateFlags)
	return putU32(dst, p.Pad)
}

// UnmarshalBytes implements marshal.Marshallable.UnmarshalBytes.
func (p *SetFlags) UnmarshalBytes(src []byte) []byte {
	src = p.Header.UnmarshalBytes(src)
	p.CreateFlags, src = getU32(src)
	p.Pad, src = getU32(src)
	return src
}

// SizeBytes implements marshal.Marshallable.SizeBytes.
func (p *Sync) SizeBytes() int {
	return SizeofSync
}

// MarshalBytes implements marshal.Marshallable.MarshalBytes.
func (p *Sync) MarshalBytes(dst []byte) []byte {
	dst = p.Header.MarshalBytes(dst)
	dst = putU64(dst, p.Handle)
	dst = putU64(dst, p.UserAddr)
	dst = putU64(dst, p.Size)
	dst = putU8(dst, p.Type)
	return putBytes(dst, p.Pad[:])
}

// UnmarshalBytes implements marshal.Marshallable.UnmarshalBytes.
func (p *Sync) UnmarshalBytes(src []byte) []byte {
	src = p.Header.UnmarshalBytes(src)
	p.Handle, src = getU64(src)
	p.UserAddr, src = getU64(src)
	p.Size, src = getU64(src)
	p.Type, src = getU8(src)
	return getBytes(src, p.Pad[:])
}

// SizeBytes implements marshal.Marshallable.SizeBytes.
func (p *StreamCreate) SizeBytes() int {
	return SizeofStreamCreate
}

// MarshalBytes implements marshal.Marshallable.MarshalBytes.
func (p *StreamCreate) MarshalBytes(dst []byte) []byte {
	dst = p.Header.MarshalBytes(dst)
	dst = putBytes(dst, p.Name[:])
	dst = putU32(dst, uint32(p.FD))
	return putU32(dst, p.Pad)
}

// UnmarshalBytes implements marshal.Marshallable.UnmarshalBytes.
func (p *StreamCreate) UnmarshalBytes(src []byte) []byte {
	src = p.Header.UnmarshalBytes(src)
	src = getBytes(src, p.Name[:])
	var fd uint32
	fd, src = getU32(src)
	p.FD = int32(fd)
	p.Pad, src = getU32(src)
	return src
}

// SizeBytes implements marshal.Marshallable.SizeBytes.
func (p *GetContextID) SizeBytes() int {
	return SizeofGetContextID
}

// MarshalBytes implements marshal.Marshallable.MarshalBytes.
func (p *GetContextID) MarshalBytes(dst []byte) []byte {
	dst = p.Header.MarshalBytes(dst)
	return putU64(dst, uint64(p.ID))
}

// UnmarshalBytes implements marshal.Marshallable.UnmarshalBytes.
func (p *GetContextID) UnmarshalBytes(src []byte) []byte {
	src = p.Header.UnmarshalBytes(src)
	var id uint64
	id, src = getU64(src)
	p.ID = int64(id)
	return src
}

// SizeBytes implements marshal.Marshallable.SizeBytes.
func (p *MemAlloc) SizeBytes() int {
	return SizeofMemAlloc
}

// MarshalBytes implements marshal.Marshallable.MarshalBytes.
func (p *MemAlloc) MarshalBytes(dst []byte) []byte {
	dst = p.Header.MarshalBytes(dst)
	dst = putU64(dst, p.VAPages)
	dst = putU64(dst, p.CommitPages)
	dst = putU64(dst, p.Extent)
	dst = putU64(dst, p.Flags)
	dst = putU64(dst, p.GPUVA)
	dst = putU16(dst, p.VAAlignment)
	return putBytes(dst, p.Pad[:])
}

// UnmarshalBytes implements marshal.Marshallable.UnmarshalBytes.
func (p *MemAlloc) UnmarshalBytes(src []byte) []byte {
	src = p.Header.UnmarshalBytes(src)
	p.VAPages, src = getU64(src)
	p.CommitPages, src = getU64(src)
	p.Extent, src = getU64(src)
	p.Flags, src = getU64(src)
	p.GPUVA, src = getU64(src)
	p.VAAlignment, src = getU16(src)
	return getBytes(src, p.Pad[:])
}

// SizeBytes implements marshal.Marshallable.SizeBytes.
func (p *MemImport) SizeBytes() int {
	return SizeofMemImport
}

// MarshalBytes implements marshal.Marshallable.MarshalBytes.
func (p *MemImport) MarshalBytes(dst []byte) []byte {
	dst = p.Header.MarshalBytes(dst)
	dst = putU64(dst, p.PHandle)
	dst = putU32(dst, p.Type)
	dst = putU32(dst, p.Pad)
	dst = putU64(dst, p.Flags)
	dst = putU64(dst, p.GPUVA)
	return putU64(dst, p.VAPages)
}

// UnmarshalBytes implements marshal.Marshallable.UnmarshalBytes.
func (p *MemImport) UnmarshalBytes(src []byte) []byte {
	src = p.Header.UnmarshalBytes(src)
	p.PHandle, src = getU64(src)
	p.Type, src = getU32(src)
	p.Pad, src = getU32(src)
	p.Flags, src = getU64(src)
	p.GPUVA, src = getU64(src)
	p.VAPages, src = getU64(src)
	return src
}

// SizeBytes implements marshal.Marshallable.SizeBytes.
func (p *MemCommit) SizeBytes() int {
	return SizeofMemCommit
}

// MarshalBytes implements marshal.Marshallable.MarshalBytes.
func (p *MemCommit) MarshalBytes(dst []byte) []byte {
	dst = p.Header.MarshalBytes(dst)
	dst = putU64(dst, p.GPUAddr)
	dst = putU64(dst, p.Pages)
	dst = putU32(dst, p.ResultSubcode)
	return putU32(dst, p.Pad)
}

// UnmarshalBytes implements marshal.Marshallable.UnmarshalBytes.
func (p *MemCommit) UnmarshalBytes(src []byte) []byte {
	src = p.Header.UnmarshalBytes(src)
	p.GPUAddr, src = getU64(src)
	p.Pages, src = getU64(src)
	p.ResultSubcode, src = getU32(src)
	p.Pad, src = getU32(src)
	return src
}

// SizeBytes implements marshal.Marshallable.SizeBytes.
func (p *MemQuery) SizeBytes() int {
	return SizeofMemQuery
}

// MarshalBytes implements marshal.Marshallable.MarshalBytes.
func (p *MemQuery) MarshalBytes(dst []byte) []byte {
	dst = p.Header.MarshalBytes(dst)
	dst = putU64(dst, p.GPUAddr)
	dst = putU32(dst, p.Query)
	dst = putU32(dst, p.Pad)
	return putU64(dst, p.Value)
}

// UnmarshalBytes implements marshal.Marshallable.UnmarshalBytes.
func (p *MemQuery) UnmarshalBytes(src []byte) []byte {
	src = p.Header.UnmarshalBytes(src)
	p.GPUAddr, src = getU64(src)
	p.Query, src = getU32(src)
	p.Pad, src = getU32(src)
	p.Value, src = getU64(src)
	return src
}

// SizeBytes implements marshal.Marshallable.SizeBytes.
func (p *MemFree) SizeBytes() int {
	return SizeofMemFree
}

// MarshalBytes implements marshal.Marshallable.MarshalBytes.
func (p *MemFree) MarshalBytes(dst []byte) []byte {
	dst = p.Header.MarshalBytes(dst)
	return putU64(dst, p.GPUAddr)
}

// UnmarshalBytes implements marshal.Marshallable.UnmarshalBytes.
func (p *MemFree) UnmarshalBytes(src []byte) []byte {
	src = p.Header.UnmarshalBytes(src)
	p.GPUAddr, src = getU64(src)
	return src
}

// SizeBytes implements marshal.Marshallable.SizeBytes.
func (p *MemFlagsChange) SizeBytes() int {
	return SizeofMemFlagsChange
}

// MarshalBytes implements marshal.Marshallable.MarshalBytes.
func (p *MemFlagsChange) MarshalBytes(dst []byte) []byte {
	dst = p.Header.MarshalBytes(dst)
	dst = putU64(dst, p.GPUVA)
	dst = putU64(dst, p.Flags)
	return putU64(dst, p.Mask)
}

// UnmarshalBytes implements marshal.Marshallable.UnmarshalBytes.
func (p *MemFlagsChange) UnmarshalBytes(src []byte) []byte {
	src = p.Header.UnmarshalBytes(src)
	p.GPUVA, src = getU64(src)
	p.Flags, src = getU64(src)
	p.Mask, src = getU64(src)
	return src
}

// SizeBytes implements marshal.Marshallable.SizeBytes.
func (p *MemAlias) SizeBytes() int {
	return SizeofMemAlias
}

// MarshalBytes implements marshal.Marshallable.MarshalBytes.
func (p *MemAlias) MarshalBytes(dst []byte) []byte {
	dst = p.Header.MarshalBytes(dst)
	dst = putU64(dst, p.Flags)
	dst = putU64(dst, p.Stride)
	dst = putU64(dst, p.NEnts)
	dst = putU64(dst, p.AI)
	dst = putU64(dst, p.GPUVA)
	return putU64(dst, p.VAPages)
}

// UnmarshalBytes implements marshal.Marshallable.UnmarshalBytes.
func (p *MemAlias) UnmarshalBytes(src []byte) []byte {
	src = p.Header.UnmarshalBytes(src)
	p.Flags, src = getU64(src)
	p.Stride, src = getU64(src)
	p.NEnts, src = getU64(src)
	p.AI, src = getU64(src)
	p.GPUVA, src = getU64(src)
	p.VAPages, src = getU64(src)
	return src
}

// SizeBytes implements marshal.Marshallable.SizeBytes.
func (p *MemAliasInfo) SizeBytes() int {
	return SizeofMemAliasInfo
}

// MarshalBytes implements marshal.Marshallable.MarshalBytes.
func (p *MemAliasInfo) MarshalBytes(dst []byte) []byte {
	dst = putU64(dst, p.Handle)
	dst = putU64(dst, p.Offset)
	return putU64(dst, p.Length)
}

// UnmarshalBytes implements marshal.Marshallable.UnmarshalBytes.
func (p *MemAliasInfo) UnmarshalBytes(src []byte) []byte {
	p.Handle, src = getU64(src)
	p.Offset, src = getU64(src)
	p.Length, src = getU64(src)
	return src
}

// SizeBytes implements marshal.Marshallable.SizeBytes.
func (p *JobSubmit) SizeBytes() int {
	return SizeofJobSubmit
}

// MarshalBytes implements marshal.Marshallable.MarshalBytes.
func (p *JobSubmit) MarshalBytes(dst []byte) []byte {
	dst = p.Header.MarshalBytes(dst)
	dst = putU64(dst, p.Addr)
	dst = putU32(dst, p.NrAtoms)
	return putU32(dst, p.Stride)
}

// UnmarshalBytes implements marshal.Marshallable.UnmarshalBytes.
func (p *JobSubmit) UnmarshalBytes(src []byte) []byte {
	src = p.Header.UnmarshalBytes(src)
	p.Addr, src = getU64(src)
	p.NrAtoms, src = getU32(src)
	p.Stride, src = getU32(src)
	return src
}

// SizeBytes implements marshal.Marshallable.SizeBytes.
func (a *JDAtom) SizeBytes() int {
	return SizeofJDAtom
}

// MarshalBytes implements marshal.Marshallable.MarshalBytes.
func (a *JDAtom) MarshalBytes(dst []byte) []byte {
	dst = putU64(dst, a.JC)
	dst = putU64(dst, a.UData[0])
	dst = putU64(dst, a.UData[1])
	dst = putU64(dst, a.ExtResList)
	dst = putU16(dst, a.NrExtRes)
	dst = putU16(dst, a.CompatCoreReq)
	for _, d := range a.PreDep {
		dst = putU8(dst, d.AtomID)
		dst = putU8(dst, d.DependencyType)
	}
	dst = putU8(dst, a.AtomNumber)
	dst = putU8(dst, a.Prio)
	dst = putU8(dst, a.DeviceNr)
	dst = putU8(dst, a.Pad)
	return putU32(dst, a.CoreReq)
}

// UnmarshalBytes implements marshal.Marshallable.UnmarshalBytes.
func (a *JDAtom) UnmarshalBytes(src []byte) []byte {
	a.JC, src = getU64(src)
	a.UData[0], src = getU64(src)
	a.UData[1], src = getU64(src)
	a.ExtResList, src = getU64(src)
	a.NrExtRes, src = getU16(src)
	a.CompatCoreReq, src = getU16(src)
	for i := range a.PreDep {
		a.PreDep[i].AtomID, src = getU8(src)
		a.PreDep[i].DependencyType, src = getU8(src)
	}
	a.AtomNumber, src = getU8(src)
	a.Prio, src = getU8(src)
	a.DeviceNr, src = getU8(src)
	a.Pad, src = getU8(src)
	a.CoreReq, src = getU32(src)
	return src
}

func putU32s(dst []byte, v []uint32) []byte {
	for _, x := range v {
		dst = putU32(dst, x)
	}
	return dst
}

func getU32s(src []byte, v []uint32) []byte {
	for i := range v {
		v[i], src = getU32(src)
	}
	return src
}

// SizeBytes implements marshal.Marshallable.SizeBytes.
func (p *GPUPropsRegDump) SizeBytes() int {
	return SizeofGPUPropsRegDump
}

// MarshalBytes implements marshal.Marshallable.MarshalBytes.
func (p *GPUPropsRegDump) MarshalBytes(dst []byte) []byte {
	dst = p.Header.MarshalBytes(dst)

	c := &p.Core
	dst = putU32(dst, c.ProductID)
	dst = putU16(dst, c.VersionStatus)
	dst = putU16(dst, c.MinorRevision)
	dst = putU16(dst, c.MajorRevision)
	dst = putU16(dst, c.Pad)
	dst = putU32(dst, c.GPUSpeedMHz)
	dst = putU32(dst, c.GPUFreqKHzMax)
	dst = putU32(dst, c.GPUFreqKHzMin)
	dst = putU32(dst, c.Log2ProgramCounterSize)
	dst = putU32s(dst, c.TextureFeatures[:])
	dst = putU64(dst, c.GPUAvailableMemorySize)

	dst = putU8(dst, p.L2.Log2LineSize)
	dst = putU8(dst, p.L2.Log2CacheSize)
	dst = putU8(dst, p.L2.NumL2Slices)
	dst = putBytes(dst, p.L2.Pad[:])

	dst = putU64(dst, p.Unused)

	dst = putU32(dst, p.Tiler.BinSizeBytes)
	dst = putU32(dst, p.Tiler.MaxActiveLevels)

	t := &p.Thread
	dst = putU32(dst, t.MaxThreads)
	dst = putU32(dst, t.MaxWorkgroupSize)
	dst = putU32(dst, t.MaxBarrierSize)
	dst = putU16(dst, t.MaxRegisters)
	dst = putU8(dst, t.MaxTaskQueue)
	dst = putU8(dst, t.MaxThreadGroupSplit)
	dst = putU8(dst, t.ImplTech)
	dst = putBytes(dst, t.Pad[:])

	r := &p.Raw
	dst = putU64(dst, r.ShaderPresent)
	dst = putU64(dst, r.TilerPresent)
	dst = putU64(dst, r.L2Present)
	dst = putU64(dst, r.StackPresent)
	dst = putU32(dst, r.L2Features)
	dst = putU32(dst, r.SuspendSize)
	dst = putU32(dst, r.MemFeatures)
	dst = putU32(dst, r.MMUFeatures)
	dst = putU32(dst, r.ASPresent)
	dst = putU32(dst, r.JSPresent)
	dst = putU32s(dst, r.JSFeatures[:])
	dst = putU32(dst, r.TilerFeatures)
	dst = putU32s(dst, r.TextureFeatures[:])
	dst = putU32(dst, r.GPUID)
	dst = putU32(dst, r.ThreadMaxThreads)
	dst = putU32(dst, r.ThreadMaxWorkgroupSize)
	dst = putU32(dst, r.ThreadMaxBarrierSize)
	dst = putU32(dst, r.ThreadFeatures)
	dst = putU32(dst, r.CoherencyMode)

	ci := &p.CoherencyInfo
	dst = putU32(dst, ci.NumGroups)
	dst = putU32(dst, ci.NumCoreGroups)
	dst = putU32(dst, ci.Coherency)
	dst = putU32(dst, ci.Pad)
	for i := range ci.Group {
		g := &ci.Group[i]
		dst = putU64(dst, g.CoreMask)
		dst = putU16(dst, g.NumCores)
		for _, pad := range g.Pad {
			dst = putU16(dst, pad)
		}
	}
	return dst
}

// UnmarshalBytes implements marshal.Marshallable.UnmarshalBytes.
func (p *GPUPropsRegDump) UnmarshalBytes(src []byte) []byte {
	src = p.Header.UnmarshalBytes(src)

	c := &p.Core
	c.ProductID, src = getU32(src)
	c.VersionStatus, src = getU16(src)
	c.MinorRevision, src = getU16(src)
	c.MajorRevision, src = getU16(src)
	c.Pad, src = getU16(src)
	c.GPUSpeedMHz, src = getU32(src)
	c.GPUFreqKHzMax, src = getU32(src)
	c.GPUFreqKHzMin, src = getU32(src)
	c.Log2ProgramCounterSize, src = getU32(src)
	src = getU32s(src, c.TextureFeatures[:])
	c.GPUAvailableMemorySize, src = getU64(src)

	p.L2.Log2LineSize, src = getU8(src)
	p.L2.Log2CacheSize, src = getU8(src)
	p.L2.NumL2Slices, src = getU8(src)
	src = getBytes(src, p.L2.Pad[:])

	p.Unused, src = getU64(src)

	p.Tiler.BinSizeBytes, src = getU32(src)
	p.Tiler.MaxActiveLevels, src = getU32(src)

	t := &p.Thread
	t.MaxThreads, src = getU32(src)
	t.MaxWorkgroupSize, src = getU32(src)
	t.MaxBarrierSize, src = getU32(src)
	t.MaxRegisters, src = getU16(src)
	t.MaxTaskQueue, src = getU8(src)
	t.MaxThreadGroupSplit, src = getU8(src)
	t.ImplTech, src = getU8(src)
	src = getBytes(src, t.Pad[:])

	r := &p.Raw
	r.ShaderPresent, src = getU64(src)
	r.TilerPresent, src = getU64(src)
	r.L2Present, src = getU64(src)
	r.StackPresent, src = getU64(src)
	r.L2Features, src = getU32(src)
	r.SuspendSize, src = getU32(src)
	r.MemFeatures, src = getU32(src)
	r.MMUFeatures, src = getU32(src)
	r.ASPresent, src = getU32(src)
	r.JSPresent, src = getU32(src)
	src = getU32s(src, r.JSFeatures[:])
	r.TilerFeatures, src = getU32(src)
	src = getU32s(src, r.TextureFeatures[:])
	r.GPUID, src = getU32(src)
	r.ThreadMaxThreads, src = getU32(src)
	r.ThreadMaxWorkgroupSize, src = getU32(src)
	r.ThreadMaxBarrierSize, src = getU32(src)
	r.ThreadFeatures, src = getU32(src)
	r.CoherencyMode, src = getU32(src)

	ci := &p.CoherencyInfo
	ci.NumGroups, src = getU32(src)
	ci.NumCoreGroups, src = getU32(src)
	ci.Coherency, src = getU32(src)
	ci.Pad, src = getU32(src)
	for i := range ci.Group {
		g := &ci.Group[i]
		g.CoreMask, src = getU64(src)
		g.NumCores, src = getU16(src)
		for j := range g.Pad {
			g.Pad[j], src = getU16(src)
		}
	}
	return src
}

// SizeBytes implements marshal.Marshallable.SizeBytes.
func (h *JobDescriptorHeader) SizeBytes() int {
	return SizeofJobDescriptorHeader
}

// MarshalBytes implements marshal.Marshallable.MarshalBytes.
func (h *JobDescriptorHeader) MarshalBytes(dst []byte) []byte {
	dst = putU32(dst, h.ExceptionStatus)
	dst = putU32(dst, h.FirstIncompleteTask)
	dst = putU64(dst, h.FaultPointer)
	dst = putU8(dst, h.SizeAndType)
	dst = putU8(dst, h.Flags)
	dst = putU16(dst, h.JobIndex)
	dst = putU16(dst, h.Dependency1)
	dst = putU16(dst, h.Dependency2)
	return putPaddedPtr(dst, h.NextJob)
}

// UnmarshalBytes implements marshal.Marshallable.UnmarshalBytes.
func (h *JobDescriptorHeader) UnmarshalBytes(src []byte) []byte {
	h.ExceptionStatus, src = getU32(src)
	h.FirstIncompleteTask, src = getU32(src)
	h.FaultPointer, src = getU64(src)
	h.SizeAndType, src = getU8(src)
	h.Flags, src = getU8(src)
	h.JobIndex, src = getU16(src)
	h.Dependency1, src = getU16(src)
	h.Dependency2, src = getU16(src)
	h.NextJob, src = getPaddedPtr(src)
	return src
}

// SizeBytes implements marshal.Marshallable.SizeBytes.
func (s *SetValuePayload) SizeBytes() int {
	return SizeofSetValuePayload
}

// MarshalBytes implements marshal.Marshallable.MarshalBytes.
func (s *SetValuePayload) MarshalBytes(dst []byte) []byte {
	dst = putU64(dst, s.Out)
	return putU64(dst, s.Unknown)
}

// UnmarshalBytes implements marshal.Marshallable.UnmarshalBytes.
func (s *SetValuePayload) UnmarshalBytes(src []byte) []byte {
	s.Out, src = getU64(src)
	s.Unknown, src = getU64(src)
	return src
}

// SizeBytes implements marshal.Marshallable.SizeBytes.
func (v *VertexTilerPayload) SizeBytes() int {
	return SizeofVertexTilerPayload
}

func (v *VertexTilerPayload) pointers() []*Ptr {
	return []*Ptr{
		&v.Null0, &v.Zeroes, &v.Unknown1, &v.Null1, &v.Null2, &v.Unknown2,
		&v.Shader, &v.Attributes, &v.AttributeMeta, &v.Unknown5,
		&v.Unknown6, &v.NullForVertex, &v.Null4, &v.FBD, &v.Unknown7,
	}
}

// MarshalBytes implements marshal.Marshallable.MarshalBytes.
func (v *VertexTilerPayload) MarshalBytes(dst []byte) []byte {
	dst = putU32s(dst, v.Block1[:])
	for _, p := range v.pointers() {
		dst = putPtr(dst, *p)
	}
	return putU32s(dst, v.Block2[:])
}

// UnmarshalBytes implements marshal.Marshallable.UnmarshalBytes.
func (v *VertexTilerPayload) UnmarshalBytes(src []byte) []byte {
	src = getU32s(src, v.Block1[:])
	for _, p := range v.pointers() {
		*p, src = getPtr(src)
	}
	return getU32s(src, v.Block2[:])
}

// SizeBytes implements marshal.Marshallable.SizeBytes.
func (m *ShaderMeta) SizeBytes() int {
	return SizeofShaderMeta
}

// MarshalBytes implements marshal.Marshallable.MarshalBytes.
func (m *ShaderMeta) MarshalBytes(dst []byte) []byte {
	dst = putPaddedPtr(dst, m.Shader)
	dst = putPaddedPtr(dst, m.Unknown1)
	return putPaddedPtr(dst, m.Unknown2)
}

// UnmarshalBytes implements marshal.Marshallable.UnmarshalBytes.
func (m *ShaderMeta) UnmarshalBytes(src []byte) []byte {
	m.Shader, src = getPaddedPtr(src)
	m.Unknown1, src = getPaddedPtr(src)
	m.Unknown2, src = getPaddedPtr(src)
	return src
}

// SizeBytes implements marshal.Marshallable.SizeBytes.
func (a *AttrBuffer) SizeBytes() int {
	return SizeofAttrBuffer
}

// MarshalBytes implements marshal.Marshallable.MarshalBytes.
func (a *AttrBuffer) MarshalBytes(dst []byte) []byte {
	dst = putPtr(dst, a.Elements)
	dst = putWord(dst, a.Stride)
	return putWord(dst, a.Size)
}

// UnmarshalBytes implements marshal.Marshallable.UnmarshalBytes.
func (a *AttrBuffer) UnmarshalBytes(src []byte) []byte {
	a.Elements, src = getPtr(src)
	a.Stride, src = getWord(src)
	a.Size, src = getWord(src)
	return src
}

// Interface assertions.
var (
	_ marshal.Marshallable = (*Header)(nil)
	_ marshal.Marshallable = (*GetVersion)(nil)
	_ marshal.Marshallable = (*SetFlags)(nil)
	_ marshal.Marshallable = (*Sync)(nil)
	_ marshal.Marshallable = (*StreamCreate)(nil)
	_ marshal.Marshallable = (*GetContextID)(nil)
	_ marshal.Marshallable = (*MemAlloc)(nil)
	_ marshal.Marshallable = (*MemImport)(nil)
	_ marshal.Marshallable = (*MemCommit)(nil)
	_ marshal.Marshallable = (*MemQuery)(nil)
	_ marshal.Marshallable = (*MemFree)(nil)
	_ marshal.Marshallable = (*MemFlagsChange)(nil)
	_ marshal.Marshallable = (*MemAlias)(nil)
	_ marshal.Marshallable = (*MemAliasInfo)(nil)
	_ marshal.Marshallable = (*JobSubmit)(nil)
	_ marshal.Marshallable = (*JDAtom)(nil)
	_ marshal.Marshallable = (*GPUPropsRegDump)(nil)
	_ marshal.Marshallable = (*JobDescriptorHeader)(nil)
	_ marshal.Marshallable = (*SetValuePayload)(nil)
	_ marshal.Marshallable = (*VertexTilerPayload)(nil)
	_ marshal.Marshallable = (*ShaderMeta)(nil)
	_ marshal.Marshallable = (*AttrBuffer)(nil)
)
