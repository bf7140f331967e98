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

// Memory allocation flags, enum base_mem_alloc_flags.
const (
	MALI_MEM_PROT_CPU_RD              = 1 << 0
	MALI_MEM_PROT_CPU_WR              = 1 << 1
	MALI_MEM_PROT_GPU_RD              = 1 << 2
	MALI_MEM_PROT_GPU_WR              = 1 << 3
	MALI_MEM_PROT_GPU_EX              = 1 << 4
	MALI_MEM_GROW_ON_GPF              = 1 << 9
	MALI_MEM_COHERENT_SYSTEM          = 1 << 10
	MALI_MEM_COHERENT_LOCAL           = 1 << 11
	MALI_MEM_CACHED_CPU               = 1 << 12
	MALI_MEM_SAME_VA                  = 1 << 13
	MALI_MEM_NEED_MMAP                = 1 << 14
	MALI_MEM_COHERENT_SYSTEM_REQUIRED = 1 << 15
	MALI_MEM_SECURE                   = 1 << 16
	MALI_MEM_DONT_NEED                = 1 << 17
	MALI_MEM_IMPORT_SHARED            = 1 << 18
)

// MemFlags is the set of memory allocation flags.
var MemFlags = abi.FlagSet{
	{Flag: MALI_MEM_PROT_CPU_RD, Name: "PROT_CPU_RD"},
	{Flag: MALI_MEM_PROT_CPU_WR, Name: "PROT_CPU_WR"},
	{Flag: MALI_MEM_PROT_GPU_RD, Name: "PROT_GPU_RD"},
	{Flag: MALI_MEM_PROT_GPU_WR, Name: "PROT_GPU_WR"},
	{Flag: MALI_MEM_PROT_GPU_EX, Name: "PROT_GPU_EX"},
	{Flag: MALI_MEM_GROW_ON_GPF, Name: "GROW_ON_GPF"},
	{Flag: MALI_MEM_COHERENT_SYSTEM, Name: "COHERENT_SYSTEM"},
	{Flag: MALI_MEM_COHERENT_LOCAL, Name: "COHERENT_LOCAL"},
	{Flag: MALI_MEM_CACHED_CPU, Name: "CACHED_CPU"},
	{Flag: MALI_MEM_SAME_VA, Name: "SAME_VA"},
	{Flag: MALI_MEM_NEED_MMAP, Name: "NEED_MMAP"},
	{Flag: MALI_MEM_COHERENT_SYSTEM_REQUIRED, Name: "COHERENT_SYSTEM_REQUIRED"},
	{Flag: MALI_MEM_SECURE, Name: "SECURE"},
	{Flag: MALI_MEM_DONT_NEED, Name: "DONT_NEED"},
	{Flag: MALI_MEM_IMPORT_SHARED, Name: "IMPORT_SHARED"},
}

// MemAlloc is struct mali_ioctl_mem_alloc.
type MemAlloc struct {
	Header
	VAPages     uint64 // in
	CommitPages uint64 // in
	Extent      uint64 // in
	Flags       uint64 // in/out
	GPUVA       uint64 // out
	VAAlignment uint16 // out
	Pad         [6]byte
}

// Memory import types.
const (
	MALI_MEM_IMPORT_TYPE_INVALID     = 0
	MALI_MEM_IMPORT_TYPE_UMP         = 1
	MALI_MEM_IMPORT_TYPE_UMM         = 2
	MALI_MEM_IMPORT_TYPE_USER_BUFFER = 3
)

// MemImportType names memory import types.
var MemImportType = abi.ValueSet{
	MALI_MEM_IMPORT_TYPE_UMP:         "UMP",
	MALI_MEM_IMPORT_TYPE_UMM:         "UMM",
	MALI_MEM_IMPORT_TYPE_USER_BUFFER: "User buffer",
}

// MemImport is struct mali_ioctl_mem_import.
type MemImport struct {
	Header
	PHandle uint64 // in
	Type    uint32 // in
	Pad     uint32
	Flags   uint64 // in/out
	GPUVA   uint64 // out
	VAPages uint64 // out
}

// MemCommit is struct mali_ioctl_mem_commit.
type MemCommit struct {
	Header
	GPUAddr       uint64 // in
	Pages         uint64 // in
	ResultSubcode uint32 // out
	Pad           uint32
}

// Memory query kinds.
const (
	MALI_MEM_QUERY_COMMIT_SIZE = 1
	MALI_MEM_QUERY_VA_SIZE     = 2
	MALI_MEM_QUERY_FLAGS       = 3
)

// MemQueryKind names memory query kinds.
var MemQueryKind = abi.ValueSet{
	MALI_MEM_QUERY_COMMIT_SIZE: "Commit size",
	MALI_MEM_QUERY_VA_SIZE:     "VA size",
	MALI_MEM_QUERY_FLAGS:       "Flags",
}

// MemQuery is struct mali_ioctl_mem_query.
type MemQuery struct {
	Header
	GPUAddr uint64 // in
	Query   uint32 // in
	Pad     uint32
	Value   uint64 // out
}

// MemFree is struct mali_ioctl_mem_free.
type MemFree struct {
	Header
	GPUAddr uint64 // in
}

// MemFlagsChange is struct mali_ioctl_mem_flags_change.
type MemFlagsChange struct {
	Header
	GPUVA uint64 // in
	Flags uint64 // in
	Mask  uint64 // in
}

// MemAlias is struct mali_ioctl_mem_alias.
type MemAlias struct {
	Header
	Flags   uint64 // in/out
	Stride  uint64 // in
	NEnts   uint64 // in
	AI      uint64 // in, pointer to NEnts MemAliasInfo
	GPUVA   uint64 // out
	VAPages uint64 // out
}

// MemAliasInfo is struct base_mem_aliasing_info, the element type of
// MemAlias.AI.
type MemAliasInfo struct {
	Handle uint64
	Offset uint64
	Length uint64
}
