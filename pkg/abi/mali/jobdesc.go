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
	"malitrace.dev/malitrace/pkg/abi"
	"malitrace.dev/malitrace/pkg/hostarch"
)

// JobType is the hardware job type stored in a job descriptor header.
type JobType uint8

// Job types, enum mali_job_type.
const (
	JOB_NOT_STARTED      JobType = 0
	JOB_TYPE_NULL        JobType = 1
	JOB_TYPE_SET_VALUE   JobType = 2
	JOB_TYPE_CACHE_FLUSH JobType = 3
	JOB_TYPE_COMPUTE     JobType = 4
	JOB_TYPE_VERTEX      JobType = 5
	JOB_TYPE_TILER       JobType = 7
	JOB_TYPE_FUSED       JobType = 8
	JOB_TYPE_FRAGMENT    JobType = 9
)

// JobTypeName names job types.
var JobTypeName = abi.ValueSet{
	uint64(JOB_NOT_STARTED):      "Not started",
	uint64(JOB_TYPE_NULL):        "Null",
	uint64(JOB_TYPE_SET_VALUE):   "Set value",
	uint64(JOB_TYPE_CACHE_FLUSH): "Cache flush",
	uint64(JOB_TYPE_COMPUTE):     "Compute",
	uint64(JOB_TYPE_VERTEX):      "Vertex",
	uint64(JOB_TYPE_TILER):       "Tiler",
	uint64(JOB_TYPE_FUSED):       "Fused",
	uint64(JOB_TYPE_FRAGMENT):    "Fragment",
}

// String implements fmt.Stringer.String.
func (t JobType) String() string {
	return JobTypeName.Parse(uint64(t))
}

// Known returns true if t is a job type the hardware defines.
func (t JobType) Known() bool {
	_, ok := JobTypeName[uint64(t)]
	return ok
}

// GL primitive modes found in tiler jobs.
const (
	MALI_GL_POINTS         = 0x01
	MALI_GL_LINES          = 0x02
	MALI_GL_TRIANGLES      = 0x08
	MALI_GL_TRIANGLE_STRIP = 0x0A
	MALI_GL_TRIANGLE_FAN   = 0x0C
)

// GLMode names GL primitive modes.
var GLMode = abi.ValueSet{
	MALI_GL_POINTS:         "GL_POINTS",
	MALI_GL_LINES:          "GL_LINES",
	MALI_GL_TRIANGLES:      "GL_TRIANGLES",
	MALI_GL_TRIANGLE_STRIP: "GL_TRIANGLE_STRIP",
	MALI_GL_TRIANGLE_FAN:   "GL_TRIANGLE_FAN",
}

// JobDescriptorHeader is struct mali_job_descriptor_header. The payload of
// the job immediately follows it.
type JobDescriptorHeader struct {
	ExceptionStatus     uint32
	FirstIncompleteTask uint32
	FaultPointer        uint64
	// SizeAndType holds the descriptor size bit (bit 0, set for 64-bit
	// descriptors) and the JobType (bits 1-7).
	SizeAndType uint8
	// Flags holds the barrier bit (bit 0); the rest is reserved.
	Flags       uint8
	JobIndex    uint16
	Dependency1 uint16
	Dependency2 uint16
	NextJob     PaddedPtr
}

// Is64Bit returns true if the descriptor uses 64-bit pointers.
func (h *JobDescriptorHeader) Is64Bit() bool {
	return h.SizeAndType&1 != 0
}

// Type returns the job type.
func (h *JobDescriptorHeader) Type() JobType {
	return JobType(h.SizeAndType >> 1)
}

// SetType sets the job type and descriptor size.
func (h *JobDescriptorHeader) SetType(t JobType, is64 bool) {
	h.SizeAndType = uint8(t) << 1
	if is64 {
		h.SizeAndType |= 1
	}
}

// Barrier returns the job barrier bit.
func (h *JobDescriptorHeader) Barrier() bool {
	return h.Flags&1 != 0
}

// Next returns the GPU address of the next job, or 0 at the end of the chain.
func (h *JobDescriptorHeader) Next() hostarch.Addr {
	return hostarch.Addr(h.NextJob.Ptr)
}

// SetValuePayload is struct mali_payload_set_value.
type SetValuePayload struct {
	Out     uint64
	Unknown uint64
}

// VertexTilerPayload is struct mali_payload_vertex_tiler, shared by vertex
// and tiler jobs.
type VertexTilerPayload struct {
	Block1   [10]uint32
	Null0    Ptr
	Zeroes   Ptr
	Unknown1 Ptr
	Null1    Ptr
	Null2    Ptr
	Unknown2 Ptr
	// Shader holds the GPU address of the ShaderMeta in its upper bits and
	// four flag bits at the bottom.
	Shader        Ptr
	Attributes    Ptr // AttrBuffer[]
	AttributeMeta Ptr // AttrMeta[], zero terminated
	Unknown5      Ptr
	Unknown6      Ptr
	NullForVertex Ptr
	Null4         Ptr
	FBD           Ptr
	Unknown7      Ptr
	Block2        [36]uint32
}

// ShaderMeta returns the GPU address of the shader metadata.
func (v *VertexTilerPayload) ShaderMeta() hostarch.Addr {
	return hostarch.Addr(v.Shader) &^ 0xF
}

// ShaderFlags returns the flag bits packed beside the shader pointer.
func (v *VertexTilerPayload) ShaderFlags() uint8 {
	return uint8(v.Shader & 0xF)
}

// ShaderMeta is struct mali_shader_meta.
type ShaderMeta struct {
	Shader   PaddedPtr
	Unknown1 PaddedPtr
	Unknown2 PaddedPtr
}

// ShaderBlobSize is the number of bytes of shader code dumped per shader.
const ShaderBlobSize = 832

// AttrMeta is struct mali_vertex_tiler_attr_meta: an index into the
// attribute buffer array in the low byte and 56 bits of flags above it. A
// zero AttrMeta terminates the list.
type AttrMeta uint64

// Index returns the attribute buffer index.
func (a AttrMeta) Index() uint8 {
	return uint8(a)
}

// Flags returns the attribute flags.
func (a AttrMeta) Flags() uint64 {
	return uint64(a) >> 8
}

// AttrBuffer is struct mali_vertex_tiler_attr.
type AttrBuffer struct {
	// Elements holds the element array address with two flag bits at the
	// bottom.
	Elements Ptr
	Stride   uintptr
	Size     uintptr
}

// ElementsAddr returns the GPU address of the element array.
func (a *AttrBuffer) ElementsAddr() hostarch.Addr {
	return hostarch.Addr(a.Elements) &^ 3
}

// ElementFlags returns the flag bits packed beside the element pointer.
func (a *AttrBuffer) ElementFlags() uint8 {
	return uint8(a.Elements & 3)
}
