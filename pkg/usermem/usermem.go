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

// Package usermem copies driver arguments between the tracer and the memory
// of the traced process.
package usermem

import (
	"golang.org/x/sys/unix"

	"malitrace.dev/malitrace/pkg/hostarch"
	"malitrace.dev/malitrace/pkg/marshal"
)

// IO provides access to the traced process's address space.
type IO interface {
	// CopyOut copies len(src) bytes from src to the memory mapped at addr. It
	// returns the number of bytes copied. If the number of bytes copied is <
	// len(src), it returns a non-nil error explaining why.
	CopyOut(addr hostarch.Addr, src []byte) (int, error)

	// CopyIn copies len(dst) bytes from the memory mapped at addr to dst.
	// It returns the number of bytes copied. If the number of bytes copied is
	// < len(dst), it returns a non-nil error explaining why.
	CopyIn(addr hostarch.Addr, dst []byte) (int, error)
}

// CopyObjectIn reads a marshallable object from addr.
func CopyObjectIn(io IO, addr hostarch.Addr, m marshal.Marshallable) error {
	buf := make([]byte, m.SizeBytes())
	if _, err := io.CopyIn(addr, buf); err != nil {
		return err
	}
	m.UnmarshalBytes(buf)
	return nil
}

// CopyObjectOut writes a marshallable object to addr.
func CopyObjectOut(io IO, addr hostarch.Addr, m marshal.Marshallable) error {
	_, err := io.CopyOut(addr, marshal.Marshal(m))
	return err
}

// CopyInUint32 reads a native-endian uint32 from addr.
func CopyInUint32(io IO, addr hostarch.Addr) (uint32, error) {
	var buf [4]byte
	if _, err := io.CopyIn(addr, buf[:]); err != nil {
		return 0, err
	}
	return hostarch.ByteOrder.Uint32(buf[:]), nil
}

// CopyOutUint32 writes a native-endian uint32 to addr.
func CopyOutUint32(io IO, addr hostarch.Addr, v uint32) error {
	var buf [4]byte
	hostarch.ByteOrder.PutUint32(buf[:], v)
	_, err := io.CopyOut(addr, buf[:])
	return err
}

// CopyInUint64 reads a native-endian uint64 from addr.
func CopyInUint64(io IO, addr hostarch.Addr) (uint64, error) {
	var buf [8]byte
	if _, err := io.CopyIn(addr, buf[:]); err != nil {
		return 0, err
	}
	return hostarch.ByteOrder.Uint64(buf[:]), nil
}

// BytesIO implements IO using a byte slice mapped at Base. Addresses outside
// [Base, Base+len(Bytes)) fault.
type BytesIO struct {
	Base  hostarch.Addr
	Bytes []byte
}

// CopyOut implements IO.CopyOut.
func (b *BytesIO) CopyOut(addr hostarch.Addr, src []byte) (int, error) {
	rngN, rngErr := b.rangeCheck(addr, len(src))
	if rngN == 0 {
		return 0, rngErr
	}
	off := int(addr - b.Base)
	return copy(b.Bytes[off:off+rngN], src), rngErr
}

// CopyIn implements IO.CopyIn.
func (b *BytesIO) CopyIn(addr hostarch.Addr, dst []byte) (int, error) {
	rngN, rngErr := b.rangeCheck(addr, len(dst))
	if rngN == 0 {
		return 0, rngErr
	}
	off := int(addr - b.Base)
	return copy(dst[:rngN], b.Bytes[off:off+rngN]), rngErr
}

// rangeCheck returns the length of the prefix of [addr, addr+length) that is
// backed by b, and an error if it is shorter than length.
func (b *BytesIO) rangeCheck(addr hostarch.Addr, length int) (int, error) {
	if length == 0 {
		return 0, nil
	}
	end := b.Base + hostarch.Addr(len(b.Bytes))
	if addr < b.Base || addr >= end {
		return 0, unix.EFAULT
	}
	if avail := int(end - addr); length > avail {
		return avail, unix.EFAULT
	}
	return length, nil
}
