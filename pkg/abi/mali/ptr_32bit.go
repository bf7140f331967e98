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

//go:build 386 || arm || mipsle

package mali

// Ptr is a GPU pointer inside a job descriptor, as laid out by 32-bit
// clients.
type Ptr uint32

// PtrSize is the size of Ptr and of the client's size_t.
const PtrSize = 4

// PaddedPtr is a Ptr widened to 64 bits on 32-bit clients.
type PaddedPtr struct {
	Ptr Ptr
	Pad uint32
}

// Job-chain struct sizes for 32-bit clients.
const (
	SizeofVertexTilerPayload = 244
	SizeofAttrBuffer         = 12
)

func putPtr(dst []byte, p Ptr) []byte {
	return putU32(dst, uint32(p))
}

func getPtr(src []byte) (Ptr, []byte) {
	v, src := getU32(src)
	return Ptr(v), src
}

func putPaddedPtr(dst []byte, p PaddedPtr) []byte {
	dst = putPtr(dst, p.Ptr)
	return putU32(dst, p.Pad)
}

func getPaddedPtr(src []byte) (PaddedPtr, []byte) {
	var p PaddedPtr
	p.Ptr, src = getPtr(src)
	p.Pad, src = getU32(src)
	return p, src
}

func putWord(dst []byte, w uintptr) []byte {
	return putU32(dst, uint32(w))
}

func getWord(src []byte) (uintptr, []byte) {
	v, src := getU32(src)
	return uintptr(v), src
}
