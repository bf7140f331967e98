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

package jobchain

import (
	"math"
	"strconv"
	"strings"

	"malitrace.dev/malitrace/pkg/abi/mali"
	"malitrace.dev/malitrace/pkg/hostarch"
)

// decodeAttributeList walks the zero-terminated AttrMeta array at list and
// decodes the attribute buffer each entry selects from the array at
// buffers.
func (w *Walker) decodeAttributeList(list, buffers hostarch.Addr) {
	for p := list; ; p += mali.SizeofAttrMeta {
		raw, err := w.read(p, mali.SizeofAttrMeta)
		if err != nil {
			w.placeholder(err)
			return
		}
		m := mali.AttrMeta(hostarch.ByteOrder.Uint64(raw))
		if m == 0 {
			w.out.Printf("<end of attribute list>")
			return
		}
		w.out.Printf("%x:", m.Index())
		w.out.Nested(func() {
			w.out.Printf("flags = 0x%014x", m.Flags())
			w.decodeAttributes(buffers + hostarch.Addr(m.Index())*mali.SizeofAttrBuffer)
		})
	}
}

// decodeAttributes prints the attribute buffer described at desc as rows of
// stride bytes, each row a vector of floats.
func (w *Walker) decodeAttributes(desc hostarch.Addr) {
	var a mali.AttrBuffer
	if err := w.readObject(desc, &a); err != nil {
		w.placeholder(err)
		return
	}
	elems := a.ElementsAddr()
	w.out.Printf("%v (%x):", elems, a.ElementFlags())
	if a.Stride == 0 {
		w.out.Nested(func() { w.out.Printf("<zero stride>") })
		return
	}
	data, err := w.read(elems, int(a.Size))
	w.out.Nested(func() {
		if err != nil {
			w.placeholder(err)
			return
		}
		stride := int(a.Stride)
		for _, row := range FloatRows(data, stride) {
			w.out.Printf("%s", row)
		}
	})
}

// FloatRows renders len(data)/stride rows of stride/4 little-endian floats
// as "<a, b, c>".
func FloatRows(data []byte, stride int) []string {
	if stride <= 0 {
		return nil
	}
	comps := stride / 4
	rows := make([]string, 0, len(data)/stride)
	var sb strings.Builder
	for off := 0; off+stride <= len(data); off += stride {
		sb.Reset()
		sb.WriteByte('<')
		for i := 0; i < comps; i++ {
			if i > 0 {
				sb.WriteString(", ")
			}
			bits := hostarch.ByteOrder.Uint32(data[off+4*i:])
			sb.WriteString(strconv.FormatFloat(float64(math.Float32frombits(bits)), 'f', 6, 32))
		}
		sb.WriteByte('>')
		rows = append(rows, sb.String())
	}
	return rows
}
