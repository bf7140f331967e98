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

//go:build amd64 || arm64 || riscv64 || ppc64le || loong64 || mips64le

package mali

// Ptr is a GPU pointer inside a job descriptor, as laid out by 64-bit
// clients.
type Ptr uint64

// PtrSize is the size of Ptr and of the client's size_t.
const PtrSize = 8

// PaddedPtr is a Ptr widened to 64 bits on 32-bit clients.
type PaddedPtr struct {
	Ptr Ptr
}

// Job-chain struct sizes for 64-bit clients.
const (
	SizeofVertexTilerPayload = 304
	SizeofAttrBuffer         = 24
)

func putPtr(dst []byte, p Ptr) []byte {
	return putU64(dst, uint64(p))
}

func getPtr(src []byte) (Ptr, []byte) {
	v, src := getU64(src)
	return Ptr(v), src
}

func putPaddedPtr(dst []byte, p PaddedPtr) []byte {
	return putPtr(dst, p.Ptr)
}

func getPaddedPtr(src []byte) (PaddedPtr, []byte) {
	p, src := getPtr(src)
	return PaddedPtr{Ptr: p}, src
}

func putWord(dst []byte, w uintptr) []byte {
	return putU64(dst, uint64(w))
}

func getWord(src []byte) (uintptr, []byte) {
	v, src := getU64(src)
	return uintptr(v), src
}
