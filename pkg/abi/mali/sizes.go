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
	"unsafe"

	"malitrace.dev/malitrace/pkg/abi/linux"
)

// Wire sizes of the driver structs.
const (
	SizeofHeader              = 8
	SizeofGetVersion          = 16
	SizeofMemAlloc            = 56
	SizeofMemImport           = 48
	SizeofMemCommit           = 32
	SizeofMemQuery            = 32
	SizeofMemFree             = 16
	SizeofMemFlagsChange      = 32
	SizeofMemAlias            = 56
	SizeofMemAliasInfo        = 24
	SizeofSync                = 40
	SizeofSetFlags            = 16
	SizeofStreamCreate        = 48
	SizeofGetContextID        = 16
	SizeofJobSubmit           = 24
	SizeofJDAtom              = 48
	SizeofGPUPropsRegDump     = 536
	SizeofJobDescriptorHeader = 32
	SizeofSetValuePayload     = 16
	SizeofShaderMeta          = 24
	SizeofAttrMeta            = 8
)

// Each array below has length one and is indexed by the difference between a
// declared size and the Go struct size, so any mismatch fails to compile.
var (
	_ = [1]struct{}{}[SizeofHeader-unsafe.Sizeof(Header{})]
	_ = [1]struct{}{}[SizeofGetVersion-unsafe.Sizeof(GetVersion{})]
	_ = [1]struct{}{}[SizeofMemAlloc-unsafe.Sizeof(MemAlloc{})]
	_ = [1]struct{}{}[SizeofMemImport-unsafe.Sizeof(MemImport{})]
	_ = [1]struct{}{}[SizeofMemCommit-unsafe.Sizeof(MemCommit{})]
	_ = [1]struct{}{}[SizeofMemQuery-unsafe.Sizeof(MemQuery{})]
	_ = [1]struct{}{}[SizeofMemFree-unsafe.Sizeof(MemFree{})]
	_ = [1]struct{}{}[SizeofMemFlagsChange-unsafe.Sizeof(MemFlagsChange{})]
	_ = [1]struct{}{}[SizeofMemAlias-unsafe.Sizeof(MemAlias{})]
	_ = [1]struct{}{}[SizeofMemAliasInfo-unsafe.Sizeof(MemAliasInfo{})]
	_ = [1]struct{}{}[SizeofSync-unsafe.Sizeof(Sync{})]
	_ = [1]struct{}{}[SizeofSetFlags-unsafe.Sizeof(SetFlags{})]
	_ = [1]struct{}{}[SizeofStreamCreate-unsafe.Sizeof(StreamCreate{})]
	_ = [1]struct{}{}[SizeofGetContextID-unsafe.Sizeof(GetContextID{})]
	_ = [1]struct{}{}[SizeofJobSubmit-unsafe.Sizeof(JobSubmit{})]
	_ = [1]struct{}{}[SizeofJDAtom-unsafe.Sizeof(JDAtom{})]
	_ = [1]struct{}{}[SizeofGPUPropsRegDump-unsafe.Sizeof(GPUPropsRegDump{})]
	_ = [1]struct{}{}[SizeofJobDescriptorHeader-unsafe.Sizeof(JobDescriptorHeader{})]
	_ = [1]struct{}{}[SizeofSetValuePayload-unsafe.Sizeof(SetValuePayload{})]
	_ = [1]struct{}{}[SizeofShaderMeta-unsafe.Sizeof(ShaderMeta{})]
	_ = [1]struct{}{}[SizeofAttrMeta-unsafe.Sizeof(AttrMeta(0))]

	// Word-size dependent layouts, see ptr_*bit.go.
	_ = [1]struct{}{}[SizeofVertexTilerPayload-unsafe.Sizeof(VertexTilerPayload{})]
	_ = [1]struct{}{}[SizeofAttrBuffer-unsafe.Sizeof(AttrBuffer{})]
)

// The size embedded in each decoded request code must match its struct.
var (
	_ = [1]struct{}{}[uintptr(MALI_IOCTL_GET_VERSION>>linux.IOC_SIZESHIFT&linux.IOC_SIZEMASK)-unsafe.Sizeof(GetVersion{})]
	_ = [1]struct{}{}[uintptr(MALI_IOCTL_GET_VERSION_NEW>>linux.IOC_SIZESHIFT&linux.IOC_SIZEMASK)-unsafe.Sizeof(GetVersion{})]
	_ = [1]struct{}{}[uintptr(MALI_IOCTL_MEM_ALLOC>>linux.IOC_SIZESHIFT&linux.IOC_SIZEMASK)-unsafe.Sizeof(MemAlloc{})]
	_ = [1]struct{}{}[uintptr(MALI_IOCTL_MEM_IMPORT>>linux.IOC_SIZESHIFT&linux.IOC_SIZEMASK)-unsafe.Sizeof(MemImport{})]
	_ = [1]struct{}{}[uintptr(MALI_IOCTL_MEM_COMMIT>>linux.IOC_SIZESHIFT&linux.IOC_SIZEMASK)-unsafe.Sizeof(MemCommit{})]
	_ = [1]struct{}{}[uintptr(MALI_IOCTL_MEM_QUERY>>linux.IOC_SIZESHIFT&linux.IOC_SIZEMASK)-unsafe.Sizeof(MemQuery{})]
	_ = [1]struct{}{}[uintptr(MALI_IOCTL_MEM_FREE>>linux.IOC_SIZESHIFT&linux.IOC_SIZEMASK)-unsafe.Sizeof(MemFree{})]
	_ = [1]struct{}{}[uintptr(MALI_IOCTL_MEM_FLAGS_CHANGE>>linux.IOC_SIZESHIFT&linux.IOC_SIZEMASK)-unsafe.Sizeof(MemFlagsChange{})]
	_ = [1]struct{}{}[uintptr(MALI_IOCTL_MEM_ALIAS>>linux.IOC_SIZESHIFT&linux.IOC_SIZEMASK)-unsafe.Sizeof(MemAlias{})]
	_ = [1]struct{}{}[uintptr(MALI_IOCTL_SYNC>>linux.IOC_SIZESHIFT&linux.IOC_SIZEMASK)-unsafe.Sizeof(Sync{})]
	_ = [1]struct{}{}[uintptr(MALI_IOCTL_GPU_PROPS_REG_DUMP>>linux.IOC_SIZESHIFT&linux.IOC_SIZEMASK)-unsafe.Sizeof(GPUPropsRegDump{})]
	_ = [1]struct{}{}[uintptr(MALI_IOCTL_SET_FLAGS>>linux.IOC_SIZESHIFT&linux.IOC_SIZEMASK)-unsafe.Sizeof(SetFlags{})]
	_ = [1]struct{}{}[uintptr(MALI_IOCTL_STREAM_CREATE>>linux.IOC_SIZESHIFT&linux.IOC_SIZEMASK)-unsafe.Sizeof(StreamCreate{})]
	_ = [1]struct{}{}[uintptr(MALI_IOCTL_JOB_SUBMIT>>linux.IOC_SIZESHIFT&linux.IOC_SIZEMASK)-unsafe.Sizeof(JobSubmit{})]
	_ = [1]struct{}{}[uintptr(MALI_IOCTL_GET_CONTEXT_ID>>linux.IOC_SIZESHIFT&linux.IOC_SIZEMASK)-unsafe.Sizeof(GetContextID{})]
	_ = [1]struct{}{}[uintptr(MALI_IOCTL_POST_TERM>>linux.IOC_SIZESHIFT&linux.IOC_SIZEMASK)-unsafe.Sizeof(Header{})]
)
