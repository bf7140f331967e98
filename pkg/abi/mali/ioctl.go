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

import "malitrace.dev/malitrace/pkg/abi/linux"

const (
	iocRW = (linux.IOC_READ | linux.IOC_WRITE) << linux.IOC_DIRSHIFT

	versionRequest  uint32 = iocRW | TypeVersion<<linux.IOC_TYPESHIFT
	resourceRequest uint32 = iocRW | TypeResource<<linux.IOC_TYPESHIFT
)

// Request codes. Every request is _IOWR; the size field is the size of the
// argument struct. Requests whose payload has not been reverse engineered use
// the bare Header as their argument.
const (
	MALI_IOCTL_GET_VERSION = versionRequest | 0<<linux.IOC_NRSHIFT | SizeofGetVersion<<linux.IOC_SIZESHIFT

	MALI_IOCTL_MEM_ALLOC               = resourceRequest | 0<<linux.IOC_NRSHIFT | SizeofMemAlloc<<linux.IOC_SIZESHIFT
	MALI_IOCTL_MEM_IMPORT              = resourceRequest | 1<<linux.IOC_NRSHIFT | SizeofMemImport<<linux.IOC_SIZESHIFT
	MALI_IOCTL_MEM_COMMIT              = resourceRequest | 2<<linux.IOC_NRSHIFT | SizeofMemCommit<<linux.IOC_SIZESHIFT
	MALI_IOCTL_MEM_QUERY               = resourceRequest | 3<<linux.IOC_NRSHIFT | SizeofMemQuery<<linux.IOC_SIZESHIFT
	MALI_IOCTL_MEM_FREE                = resourceRequest | 4<<linux.IOC_NRSHIFT | SizeofMemFree<<linux.IOC_SIZESHIFT
	MALI_IOCTL_MEM_FLAGS_CHANGE        = resourceRequest | 5<<linux.IOC_NRSHIFT | SizeofMemFlagsChange<<linux.IOC_SIZESHIFT
	MALI_IOCTL_MEM_ALIAS               = resourceRequest | 6<<linux.IOC_NRSHIFT | SizeofMemAlias<<linux.IOC_SIZESHIFT
	MALI_IOCTL_SYNC                    = resourceRequest | 8<<linux.IOC_NRSHIFT | SizeofSync<<linux.IOC_SIZESHIFT
	MALI_IOCTL_POST_TERM               = resourceRequest | 9<<linux.IOC_NRSHIFT | SizeofHeader<<linux.IOC_SIZESHIFT
	MALI_IOCTL_HWCNT_SETUP             = resourceRequest | 10<<linux.IOC_NRSHIFT | SizeofHeader<<linux.IOC_SIZESHIFT
	MALI_IOCTL_HWCNT_DUMP              = resourceRequest | 11<<linux.IOC_NRSHIFT | SizeofHeader<<linux.IOC_SIZESHIFT
	MALI_IOCTL_HWCNT_CLEAR             = resourceRequest | 12<<linux.IOC_NRSHIFT | SizeofHeader<<linux.IOC_SIZESHIFT
	MALI_IOCTL_GPU_PROPS_REG_DUMP      = resourceRequest | 14<<linux.IOC_NRSHIFT | SizeofGPUPropsRegDump<<linux.IOC_SIZESHIFT
	MALI_IOCTL_FIND_CPU_OFFSET         = resourceRequest | 15<<linux.IOC_NRSHIFT | SizeofHeader<<linux.IOC_SIZESHIFT
	MALI_IOCTL_GET_VERSION_NEW         = resourceRequest | 16<<linux.IOC_NRSHIFT | SizeofGetVersion<<linux.IOC_SIZESHIFT
	MALI_IOCTL_SET_FLAGS               = resourceRequest | 18<<linux.IOC_NRSHIFT | SizeofSetFlags<<linux.IOC_SIZESHIFT
	MALI_IOCTL_SET_TEST_DATA           = resourceRequest | 19<<linux.IOC_NRSHIFT | SizeofHeader<<linux.IOC_SIZESHIFT
	MALI_IOCTL_INJECT_ERROR            = resourceRequest | 20<<linux.IOC_NRSHIFT | SizeofHeader<<linux.IOC_SIZESHIFT
	MALI_IOCTL_MODEL_CONTROL           = resourceRequest | 21<<linux.IOC_NRSHIFT | SizeofHeader<<linux.IOC_SIZESHIFT
	MALI_IOCTL_KEEP_GPU_POWERED        = resourceRequest | 22<<linux.IOC_NRSHIFT | SizeofHeader<<linux.IOC_SIZESHIFT
	MALI_IOCTL_FENCE_VALIDATE          = resourceRequest | 23<<linux.IOC_NRSHIFT | SizeofHeader<<linux.IOC_SIZESHIFT
	MALI_IOCTL_STREAM_CREATE           = resourceRequest | 24<<linux.IOC_NRSHIFT | SizeofStreamCreate<<linux.IOC_SIZESHIFT
	MALI_IOCTL_GET_PROFILING_CONTROLS  = resourceRequest | 25<<linux.IOC_NRSHIFT | SizeofHeader<<linux.IOC_SIZESHIFT
	MALI_IOCTL_SET_PROFILING_CONTROLS  = resourceRequest | 26<<linux.IOC_NRSHIFT | SizeofHeader<<linux.IOC_SIZESHIFT
	MALI_IOCTL_DEBUGFS_MEM_PROFILE_ADD = resourceRequest | 27<<linux.IOC_NRSHIFT | SizeofHeader<<linux.IOC_SIZESHIFT
	MALI_IOCTL_JOB_SUBMIT              = resourceRequest | 28<<linux.IOC_NRSHIFT | SizeofJobSubmit<<linux.IOC_SIZESHIFT
	MALI_IOCTL_DISJOINT_QUERY          = resourceRequest | 29<<linux.IOC_NRSHIFT | SizeofHeader<<linux.IOC_SIZESHIFT
	MALI_IOCTL_GET_CONTEXT_ID          = resourceRequest | 31<<linux.IOC_NRSHIFT | SizeofGetContextID<<linux.IOC_SIZESHIFT
	MALI_IOCTL_TLSTREAM_ACQUIRE_V10_4  = resourceRequest | 32<<linux.IOC_NRSHIFT | SizeofHeader<<linux.IOC_SIZESHIFT
	MALI_IOCTL_TLSTREAM_TEST           = resourceRequest | 33<<linux.IOC_NRSHIFT | SizeofHeader<<linux.IOC_SIZESHIFT
	MALI_IOCTL_TLSTREAM_STATS          = resourceRequest | 34<<linux.IOC_NRSHIFT | SizeofHeader<<linux.IOC_SIZESHIFT
	MALI_IOCTL_TLSTREAM_FLUSH          = resourceRequest | 35<<linux.IOC_NRSHIFT | SizeofHeader<<linux.IOC_SIZESHIFT
	MALI_IOCTL_HWCNT_READER_SETUP      = resourceRequest | 36<<linux.IOC_NRSHIFT | SizeofHeader<<linux.IOC_SIZESHIFT
	MALI_IOCTL_SET_PRFCNT_VALUES       = resourceRequest | 37<<linux.IOC_NRSHIFT | SizeofHeader<<linux.IOC_SIZESHIFT
	MALI_IOCTL_SOFT_EVENT_UPDATE       = resourceRequest | 38<<linux.IOC_NRSHIFT | SizeofHeader<<linux.IOC_SIZESHIFT
	MALI_IOCTL_MEM_JIT_INIT            = resourceRequest | 39<<linux.IOC_NRSHIFT | SizeofHeader<<linux.IOC_SIZESHIFT
	MALI_IOCTL_TLSTREAM_ACQUIRE        = resourceRequest | 40<<linux.IOC_NRSHIFT | SizeofHeader<<linux.IOC_SIZESHIFT
)
