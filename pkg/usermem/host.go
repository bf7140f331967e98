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

//go:build linux

package usermem

import (
	"fmt"

	"golang.org/x/sys/unix"

	"malitrace.dev/malitrace/pkg/hostarch"
)

// HostIO implements IO against the tracer's own address space. Accesses go
// through process_vm_readv(2) and process_vm_writev(2) so that a bad pointer
// passed by the traced program yields EFAULT instead of a fault in the
// tracer.
type HostIO struct {
	// getpid is called on every access: after a fork the child keeps the
	// tracer and must address its own memory.
	getpid func() int
}

// NewHostIO returns an IO for the calling process.
func NewHostIO() *HostIO {
	return &HostIO{getpid: unix.Getpid}
}

// CopyIn implements IO.CopyIn.
func (h *HostIO) CopyIn(addr hostarch.Addr, dst []byte) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	local := []unix.Iovec{{Base: &dst[0]}}
	local[0].SetLen(len(dst))
	remote := []unix.RemoteIovec{{Base: uintptr(addr), Len: len(dst)}}
	n, err := unix.ProcessVMReadv(h.getpid(), local, remote, 0)
	if err != nil {
		return 0, fmt.Errorf("read %d bytes at %v: %w", len(dst), addr, err)
	}
	if n != len(dst) {
		return n, fmt.Errorf("read %d bytes at %v: got only %d: %w", len(dst), addr, n, unix.EFAULT)
	}
	return n, nil
}

// CopyOut implements IO.CopyOut.
func (h *HostIO) CopyOut(addr hostarch.Addr, src []byte) (int, error) {
	if len(src) == 0 {
		return 0, nil
	}
	local := []unix.Iovec{{Base: &src[0]}}
	local[0].SetLen(len(src))
	remote := []unix.RemoteIovec{{Base: uintptr(addr), Len: len(src)}}
	n, err := unix.ProcessVMWritev(h.getpid(), local, remote, 0)
	if err != nil {
		return 0, fmt.Errorf("write %d bytes at %v: %w", len(src), addr, err)
	}
	if n != len(src) {
		return n, fmt.Errorf("write %d bytes at %v: wrote only %d: %w", len(src), addr, n, unix.EFAULT)
	}
	return n, nil
}
