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
	"fmt"

	"malitrace.dev/malitrace/pkg/abi"
)

// JobSubmit is struct kbase_uk_job_submit.
type JobSubmit struct {
	Header
	Addr    uint64 // in, CPU pointer to NrAtoms atoms
	NrAtoms uint32 // in
	Stride  uint32 // in, must be SizeofJDAtom
}

// JDDependency is struct base_dependency.
type JDDependency struct {
	AtomID         uint8
	DependencyType uint8
}

// JDAtom is struct base_jd_atom_v2.
type JDAtom struct {
	JC            uint64    // GPU address of the first job in the chain
	UData         [2]uint64 // opaque to the driver
	ExtResList    uint64    // CPU pointer to NrExtRes external resources
	NrExtRes      uint16
	CompatCoreReq uint16
	PreDep        [2]JDDependency
	AtomNumber    uint8
	Prio          uint8
	DeviceNr      uint8
	Pad           uint8
	CoreReq       uint32
}

// Job dispatch requirements, base_jd_core_req.
const (
	MALI_JD_REQ_DEP                     = 0
	MALI_JD_REQ_FS                      = 1 << 0
	MALI_JD_REQ_CS                      = 1 << 1
	MALI_JD_REQ_T                       = 1 << 2
	MALI_JD_REQ_CF                      = 1 << 3
	MALI_JD_REQ_V                       = 1 << 4
	MALI_JD_REQ_EVENT_COALESCE          = 1 << 5
	MALI_JD_REQ_COHERENT_GROUP          = 1 << 6
	MALI_JD_REQ_PERMON                  = 1 << 7
	MALI_JD_REQ_EXTERNAL_RESOURCES      = 1 << 8
	MALI_JD_REQ_SOFT_JOB                = 1 << 9
	MALI_JD_REQ_ONLY_COMPUTE            = 1 << 10
	MALI_JD_REQ_SPECIFIC_COHERENT_GROUP = 1 << 11
	MALI_JD_REQ_EVENT_ONLY_ON_FAILURE   = 1 << 12
	MALI_JD_REQ_FS_AFBC                 = 1 << 13
	MALI_JD_REQ_EVENT_NEVER             = 1 << 14
	MALI_JD_REQ_SKIP_CACHE_START        = 1 << 15
	MALI_JD_REQ_SKIP_CACHE_END          = 1 << 16
)

// Soft jobs live in their own value space under MALI_JD_REQ_SOFT_JOB.
const (
	MALI_JD_REQ_SOFT_DUMP_CPU_GPU_TIME = MALI_JD_REQ_SOFT_JOB | 0x1
	MALI_JD_REQ_SOFT_FENCE_TRIGGER     = MALI_JD_REQ_SOFT_JOB | 0x2
	MALI_JD_REQ_SOFT_FENCE_WAIT        = MALI_JD_REQ_SOFT_JOB | 0x3
	MALI_JD_REQ_SOFT_REPLAY            = MALI_JD_REQ_SOFT_JOB | 0x4
	MALI_JD_REQ_SOFT_EVENT_WAIT        = MALI_JD_REQ_SOFT_JOB | 0x5
	MALI_JD_REQ_SOFT_EVENT_SET         = MALI_JD_REQ_SOFT_JOB | 0x6
	MALI_JD_REQ_SOFT_EVENT_RESET       = MALI_JD_REQ_SOFT_JOB | 0x7
	MALI_JD_REQ_SOFT_DEBUG_COPY        = MALI_JD_REQ_SOFT_JOB | 0x8
	MALI_JD_REQ_SOFT_JIT_ALLOC         = MALI_JD_REQ_SOFT_JOB | 0x9
	MALI_JD_REQ_SOFT_JIT_FREE          = MALI_JD_REQ_SOFT_JOB | 0xa
	MALI_JD_REQ_SOFT_EXT_RES_MAP       = MALI_JD_REQ_SOFT_JOB | 0xb
	MALI_JD_REQ_SOFT_EXT_RES_UNMAP     = MALI_JD_REQ_SOFT_JOB | 0xc
)

// JDCoreReq is the set of hardware job requirements.
var JDCoreReq = abi.FlagSet{
	{Flag: MALI_JD_REQ_FS, Name: "FS"},
	{Flag: MALI_JD_REQ_CS, Name: "CS"},
	{Flag: MALI_JD_REQ_T, Name: "T"},
	{Flag: MALI_JD_REQ_CF, Name: "CF"},
	{Flag: MALI_JD_REQ_V, Name: "V"},
	{Flag: MALI_JD_REQ_FS_AFBC, Name: "FS_AFBC"},
	{Flag: MALI_JD_REQ_EVENT_COALESCE, Name: "EVENT_COALESCE"},
	{Flag: MALI_JD_REQ_COHERENT_GROUP, Name: "COHERENT_GROUP"},
	{Flag: MALI_JD_REQ_PERMON, Name: "PERMON"},
	{Flag: MALI_JD_REQ_EXTERNAL_RESOURCES, Name: "EXTERNAL_RESOURCES"},
	{Flag: MALI_JD_REQ_ONLY_COMPUTE, Name: "ONLY_COMPUTE"},
	{Flag: MALI_JD_REQ_SPECIFIC_COHERENT_GROUP, Name: "SPECIFIC_COHERENT_GROUP"},
	{Flag: MALI_JD_REQ_EVENT_ONLY_ON_FAILURE, Name: "EVENT_ONLY_ON_FAILURE"},
	{Flag: MALI_JD_REQ_EVENT_NEVER, Name: "EVENT_NEVER"},
	{Flag: MALI_JD_REQ_SKIP_CACHE_START, Name: "SKIP_CACHE_START"},
	{Flag: MALI_JD_REQ_SKIP_CACHE_END, Name: "SKIP_CACHE_END"},
}

// SoftJob names soft job requirements.
var SoftJob = abi.ValueSet{
	MALI_JD_REQ_SOFT_DUMP_CPU_GPU_TIME: "SOFT_DUMP_CPU_GPU_TIME",
	MALI_JD_REQ_SOFT_FENCE_TRIGGER:     "SOFT_FENCE_TRIGGER",
	MALI_JD_REQ_SOFT_FENCE_WAIT:        "SOFT_FENCE_WAIT",
	MALI_JD_REQ_SOFT_REPLAY:            "SOFT_REPLAY",
	MALI_JD_REQ_SOFT_EVENT_WAIT:        "SOFT_EVENT_WAIT",
	MALI_JD_REQ_SOFT_EVENT_SET:         "SOFT_EVENT_SET",
	MALI_JD_REQ_SOFT_EVENT_RESET:       "SOFT_EVENT_RESET",
	MALI_JD_REQ_SOFT_DEBUG_COPY:        "SOFT_DEBUG_COPY",
	MALI_JD_REQ_SOFT_JIT_ALLOC:         "SOFT_JIT_ALLOC",
	MALI_JD_REQ_SOFT_JIT_FREE:          "SOFT_JIT_FREE",
	MALI_JD_REQ_SOFT_EXT_RES_MAP:       "SOFT_EXT_RES_MAP",
	MALI_JD_REQ_SOFT_EXT_RES_UNMAP:     "SOFT_EXT_RES_UNMAP",
}

// CoreReqString renders core requirements: soft jobs by value, everything
// else as a flag set.
func CoreReqString(req uint32) string {
	if req&MALI_JD_REQ_SOFT_JOB != 0 {
		return fmt.Sprintf("0x%010x (%s)", req, SoftJob.ParseOr(uint64(req), "???"))
	}
	return JDCoreReq.Parse(uint64(req))
}

// JobKindFromCoreReq describes what the driver will do with an atom, as
// decided in mali_kbase_jd.c.
func JobKindFromCoreReq(req uint32) string {
	if req&MALI_JD_REQ_SOFT_JOB != 0 {
		return "Soft job"
	}
	if req&MALI_JD_REQ_ONLY_COMPUTE != 0 {
		return "Compute Shader Job"
	}
	switch req & (MALI_JD_REQ_FS | MALI_JD_REQ_CS | MALI_JD_REQ_T) {
	case MALI_JD_REQ_DEP:
		return "Dependency only job"
	case MALI_JD_REQ_FS:
		return "Fragment shader job"
	case MALI_JD_REQ_CS:
		return "Vertex/Geometry shader job"
	case MALI_JD_REQ_T:
		return "Tiler job"
	case MALI_JD_REQ_FS | MALI_JD_REQ_CS:
		return "Fragment shader + vertex/geometry shader job"
	case MALI_JD_REQ_FS | MALI_JD_REQ_T:
		return "Fragment shader + tiler job"
	case MALI_JD_REQ_CS | MALI_JD_REQ_T:
		return "Vertex/geometry shader job + tiler job"
	default:
		return "Fragment shader + vertex/geometry shader job + tiler job"
	}
}

// Atom priorities, base_jd_prio.
const (
	MALI_JD_PRIO_MEDIUM = 0
	MALI_JD_PRIO_HIGH   = 1
	MALI_JD_PRIO_LOW    = 2
)

// JDPriority names atom priorities.
var JDPriority = abi.ValueSet{
	MALI_JD_PRIO_LOW:    "Low",
	MALI_JD_PRIO_MEDIUM: "Medium",
	MALI_JD_PRIO_HIGH:   "High",
}

// Atom dependency types, base_jd_dep_type.
const (
	MALI_JD_DEP_TYPE_INVALID = 0
	MALI_JD_DEP_TYPE_DATA    = 1
	MALI_JD_DEP_TYPE_ORDER   = 2
)

// JDDependencyType names dependency types.
var JDDependencyType = abi.ValueSet{
	MALI_JD_DEP_TYPE_INVALID: "INVALID",
	MALI_JD_DEP_TYPE_DATA:    "DATA",
	MALI_JD_DEP_TYPE_ORDER:   "ORDER",
}

// External resource access. Stored in the low bit of each entry of
// JDAtom.ExtResList; the remaining bits are the resource handle.
const (
	MALI_EXT_RES_ACCESS_SHARED    = 0
	MALI_EXT_RES_ACCESS_EXCLUSIVE = 1

	ExtResAccessMask = 1
)

// ExtResAccess names external resource access modes.
var ExtResAccess = abi.ValueSet{
	MALI_EXT_RES_ACCESS_SHARED:    "SHARED",
	MALI_EXT_RES_ACCESS_EXCLUSIVE: "EXCLUSIVE",
}
