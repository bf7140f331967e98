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

package main

/*
#cgo CFLAGS: -Wall
#cgo LDFLAGS: -ldl
#include "shim.h"
*/
import "C"

import (
	"golang.org/x/sys/unix"

	"malitrace.dev/malitrace/pkg/hostarch"
)

// libc implements shim.Libc with the symbols the preload shadows, and
// shim.Listener by mirroring the tracer's filters into shim.c.
type libc struct{}

// TracedFD implements shim.Listener.TracedFD.
func (libc) TracedFD(fd int) {
	C.malitrace_set_traced_fd(C.int(fd))
}

// Mapped implements shim.Listener.Mapped.
func (libc) Mapped(ranges []hostarch.AddrRange) {
	if len(ranges) == 0 {
		C.malitrace_set_ranges(nil, 0)
		return
	}
	pairs := make([]C.uintptr_t, 0, 2*len(ranges))
	for _, r := range ranges {
		pairs = append(pairs, C.uintptr_t(r.Start), C.uintptr_t(r.End))
	}
	C.malitrace_set_ranges(&pairs[0], C.size_t(len(ranges)))
}

func dlerror() string {
	if s := C.malitrace_dlerror(); s != nil {
		return C.GoString(s)
	}
	return "symbol not found"
}

func errnoOf(e C.int) error {
	return unix.Errno(e)
}

// Close implements shim.Libc.Close.
func (libc) Close(fd int) error {
	var e C.int
	if C.malitrace_real_close(C.int(fd), &e) < 0 {
		return errnoOf(e)
	}
	return nil
}

// Ioctl implements shim.Libc.Ioctl.
func (libc) Ioctl(fd int, code uint32, arg hostarch.Addr) (int, error) {
	var e C.int
	ret := C.malitrace_real_ioctl(C.int(fd), C.ulong(code), C.uintptr_t(arg), &e)
	if ret < 0 {
		return int(ret), errnoOf(e)
	}
	return int(ret), nil
}

// Mmap implements shim.Libc.Mmap.
func (libc) Mmap(addr hostarch.Addr, length uint64, prot, flags int32, fd int, offset int64) (hostarch.Addr, error) {
	var e C.int
	ret := C.malitrace_real_mmap(C.uintptr_t(addr), C.size_t(length), C.int(prot), C.int(flags), C.int(fd), C.int64_t(offset), &e)
	if e != 0 {
		return hostarch.Addr(ret), errnoOf(e)
	}
	return hostarch.Addr(ret), nil
}

// Munmap implements shim.Libc.Munmap.
func (libc) Munmap(addr hostarch.Addr, length uint64) error {
	var e C.int
	if C.malitrace_real_munmap(C.uintptr_t(addr), C.size_t(length), &e) < 0 {
		return errnoOf(e)
	}
	return nil
}
