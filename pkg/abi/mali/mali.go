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

// Package mali describes the userspace ABI of the Mali "kbase" kernel driver
// (UK interface, major version 10): request codes, argument structs, the
// enumerations found in them and the job descriptors consumed by the GPU.
//
// Struct layouts are bit-exact copies of the driver's packed C structs. Each
// Go struct carries explicit padding so that unsafe.Sizeof matches the wire
// size, which is checked at compile time in sizes.go.
package mali

import (
	"golang.org/x/sys/unix"

	"malitrace.dev/malitrace/pkg/abi"
	"malitrace.dev/malitrace/pkg/abi/linux"
)

// DevicePath is the only device node traced.
const DevicePath = "/dev/mali0"

// Ioctl type bytes. The driver uses 0x80 for version negotiation and 0x82 for
// everything else; the table of recognised requests spans
// [TypeBase, TypeBase+TypeCount).
const (
	TypeVersion  = 0x80
	TypeResource = 0x82

	TypeBase  = TypeVersion
	TypeMax   = TypeResource
	TypeCount = TypeMax - TypeBase + 1
)

// SupportedMajorVersion is the UK interface major version these layouts
// describe.
const SupportedMajorVersion = 10

// MemTrackingHandle is the mmap offset that maps the driver's memory tracking
// page rather than a GPU allocation.
const MemTrackingHandle = 3 << 12

// Header starts every request struct. It is a union in the driver: the caller
// stores the function identifier in the first word and the driver overwrites
// the same word with the return code.
type Header struct {
	// ID is the function identifier on input and the return code on output.
	ID  uint32
	Pad uint32
}

// RC returns the driver return code. Only meaningful after the call.
func (h Header) RC() uint32 {
	return h.ID
}

// Driver return codes, stored in Header after the call.
const (
	MALI_ERROR_NONE              = 0
	MALI_ERROR_OUT_OF_GPU_MEMORY = 1
	MALI_ERROR_OUT_OF_MEMORY     = 2
	MALI_ERROR_FUNCTION_FAILED   = 3
)

// ReturnCode names driver return codes.
var ReturnCode = abi.ValueSet{
	MALI_ERROR_NONE:              "NONE",
	MALI_ERROR_OUT_OF_GPU_MEMORY: "OUT_OF_GPU_MEMORY",
	MALI_ERROR_OUT_OF_MEMORY:     "OUT_OF_MEMORY",
	MALI_ERROR_FUNCTION_FAILED:   "FUNCTION_FAILED",
}

// ReturnCodeErrno maps a driver return code to the errno userspace drivers
// report for it.
func ReturnCodeErrno(rc uint32) unix.Errno {
	switch rc {
	case MALI_ERROR_NONE:
		return 0
	case MALI_ERROR_OUT_OF_GPU_MEMORY:
		return unix.ENOSPC
	case MALI_ERROR_OUT_OF_MEMORY:
		return unix.ENOMEM
	default:
		return unix.EINVAL
	}
}

// HeaderID returns the in-band function identifier the driver expects in
// Header.ID for the given request code.
func HeaderID(code uint32) uint32 {
	return (linux.IOC_TYPE(code)&0xF)<<8 | linux.IOC_NR(code)
}

// IsDriverType returns true if code's type byte belongs to the driver.
func IsDriverType(code uint32) bool {
	t := linux.IOC_TYPE(code)
	return t >= TypeBase && t <= TypeMax
}
