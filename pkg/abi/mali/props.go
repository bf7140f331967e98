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

import "malitrace.dev/malitrace/pkg/abi"

// GPU implementation technologies.
const (
	MALI_GPU_IMPLEMENTATION_UNKNOWN = 0
	MALI_GPU_IMPLEMENTATION_SILICON = 1
	MALI_GPU_IMPLEMENTATION_FPGA    = 2
	MALI_GPU_IMPLEMENTATION_SW      = 3
)

// ImplementationTech names GPU implementation technologies.
var ImplementationTech = abi.ValueSet{
	MALI_GPU_IMPLEMENTATION_UNKNOWN: "Unknown",
	MALI_GPU_IMPLEMENTATION_SILICON: "Silicon",
	MALI_GPU_IMPLEMENTATION_FPGA:    "FPGA",
	MALI_GPU_IMPLEMENTATION_SW:      "Software",
}

// Coherency modes.
const (
	COHERENCY_ACE_LITE = 0
	COHERENCY_ACE      = 1
	COHERENCY_NONE     = 31
)

// CoherencyMode names coherency modes.
var CoherencyMode = abi.ValueSet{
	COHERENCY_ACE_LITE: "ACE_LITE",
	COHERENCY_ACE:      "ACE",
	COHERENCY_NONE:     "None",
}

// Array bounds of GPUPropsRegDump.
const (
	GPUMaxJobSlots            = 16
	BaseMaxCoherentGroups     = 16
	BaseGPUNumTextureFeatures = 3
)

// GPUCoreProps is struct mali_base_gpu_core_props.
type GPUCoreProps struct {
	ProductID              uint32
	VersionStatus          uint16
	MinorRevision          uint16
	MajorRevision          uint16
	Pad                    uint16
	GPUSpeedMHz            uint32
	GPUFreqKHzMax          uint32
	GPUFreqKHzMin          uint32
	Log2ProgramCounterSize uint32
	TextureFeatures        [BaseGPUNumTextureFeatures]uint32
	GPUAvailableMemorySize uint64
}

// GPUL2CacheProps is struct mali_base_gpu_l2_cache_props.
type GPUL2CacheProps struct {
	Log2LineSize  uint8
	Log2CacheSize uint8
	NumL2Slices   uint8
	Pad           [5]byte
}

// GPUTilerProps is struct mali_base_gpu_tiler_props.
type GPUTilerProps struct {
	BinSizeBytes    uint32
	MaxActiveLevels uint32
}

// GPUThreadProps is struct mali_base_gpu_thread_props.
type GPUThreadProps struct {
	MaxThreads          uint32
	MaxWorkgroupSize    uint32
	MaxBarrierSize      uint32
	MaxRegisters        uint16
	MaxTaskQueue        uint8
	MaxThreadGroupSplit uint8
	ImplTech            uint8
	Pad                 [7]byte
}

// GPURawProps is struct gpu_raw_gpu_props.
type GPURawProps struct {
	ShaderPresent          uint64
	TilerPresent           uint64
	L2Present              uint64
	StackPresent           uint64
	L2Features             uint32
	SuspendSize            uint32
	MemFeatures            uint32
	MMUFeatures            uint32
	ASPresent              uint32
	JSPresent              uint32
	JSFeatures             [GPUMaxJobSlots]uint32
	TilerFeatures          uint32
	TextureFeatures        [BaseGPUNumTextureFeatures]uint32
	GPUID                  uint32
	ThreadMaxThreads       uint32
	ThreadMaxWorkgroupSize uint32
	ThreadMaxBarrierSize   uint32
	ThreadFeatures         uint32
	CoherencyMode          uint32
}

// GPUCoherentGroup is struct mali_base_gpu_coherent_group.
type GPUCoherentGroup struct {
	CoreMask uint64
	NumCores uint16
	Pad      [3]uint16
}

// GPUCoherentGroupInfo is struct mali_base_gpu_coherent_group_info.
type GPUCoherentGroupInfo struct {
	NumGroups     uint32
	NumCoreGroups uint32
	Coherency     uint32
	Pad           uint32
	Group         [BaseMaxCoherentGroups]GPUCoherentGroup
}

// GPUPropsRegDump is struct kbase_uk_gpuprops. Everything but the header is
// an output.
type GPUPropsRegDump struct {
	Header
	Core          GPUCoreProps
	L2            GPUL2CacheProps
	Unused        uint64
	Tiler         GPUTilerProps
	Thread        GPUThreadProps
	Raw           GPURawProps
	CoherencyInfo GPUCoherentGroupInfo
}
