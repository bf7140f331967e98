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

// Functions called from shim.c. The preamble of a file with //export
// directives is copied into _cgo_export.h, so it may only hold
// declarations.

/*
#include <stddef.h>
#include <stdint.h>
*/
import "C"

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"

	"malitrace.dev/malitrace/pkg/hostarch"
	"malitrace.dev/malitrace/pkg/log"
	"malitrace.dev/malitrace/pkg/shim"
)

func tracer() *shim.Tracer {
	return shim.Global(libc{})
}

// setErrno stores the errno of err in *errp.
func setErrno(err error, errp *C.int) {
	var errno unix.Errno
	if !errors.As(err, &errno) {
		errno = unix.EIO
	}
	*errp = C.int(errno)
}

//export malitrace_opened
func malitrace_opened(path *C.char, fd C.int) {
	tracer().Opened(C.GoString(path), int(fd))
}

//export malitrace_close
func malitrace_close(fd C.int, errp *C.int) C.int {
	if err := tracer().Close(int(fd)); err != nil {
		setErrno(err, errp)
		return -1
	}
	return 0
}

//export malitrace_ioctl
func malitrace_ioctl(fd C.int, request C.ulong, arg C.uintptr_t, errp *C.int) C.int {
	ret, err := tracer().Ioctl(int(fd), uint32(request), hostarch.Addr(arg))
	if err != nil {
		setErrno(err, errp)
	}
	return C.int(ret)
}

//export malitrace_mmap
func malitrace_mmap(addr C.uintptr_t, length C.size_t, prot, flags, fd C.int, offset C.int64_t, errp *C.int) C.uintptr_t {
	ret, err := tracer().Mmap(hostarch.Addr(addr), uint64(length), int32(prot), int32(flags), int(fd), int64(offset))
	if err != nil {
		setErrno(err, errp)
	}
	return C.uintptr_t(ret)
}

//export malitrace_munmap
func malitrace_munmap(addr C.uintptr_t, length C.size_t, errp *C.int) C.int {
	if err := tracer().Munmap(hostarch.Addr(addr), uint64(length)); err != nil {
		setErrno(err, errp)
		return -1
	}
	return 0
}

//export malitrace_fatal
func malitrace_fatal(symbol *C.char) {
	log.Warningf("Cannot resolve %s: %s", C.GoString(symbol), dlerror())
	os.Exit(1)
}
