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
	"github.com/zeebo/xxh3"

	"malitrace.dev/malitrace/pkg/abi/mali"
	"malitrace.dev/malitrace/pkg/hostarch"
)

// sighting records where a shader blob was first seen.
type sighting struct {
	chain uint64
	addr  hostarch.Addr
}

// hashKey folds a 64-bit shader hash for the LRU's buckets.
func hashKey(k uint64) uint32 {
	return uint32(k ^ k>>32)
}

// decodeShader dumps the shader referenced by the ShaderMeta at meta.
func (w *Walker) decodeShader(meta hostarch.Addr) {
	var sm mali.ShaderMeta
	if err := w.readObject(meta, &sm); err != nil {
		w.placeholder(err)
		return
	}
	addr := hostarch.Addr(sm.Shader.Ptr)
	blob, err := w.read(addr, w.opts.ShaderBlobSize)
	w.out.Printf("Shader blob:")
	w.out.Nested(func() {
		if err != nil {
			w.placeholder(err)
			return
		}
		sum := xxh3.Hash(blob)
		w.out.Printf("shader hash = %016x", sum)
		if w.shaders != nil {
			if first, ok := w.shaders.Get(sum); ok {
				w.out.Printf("first seen in chain #%d at %v", first.chain, first.addr)
				if w.opts.ShaderDedup {
					w.out.Printf("<shader blob identical to chain #%d, not dumped>", first.chain)
					return
				}
			} else {
				w.shaders.Add(sum, sighting{chain: w.chains, addr: addr})
			}
		}
		w.out.Hexdump(blob)
	})
}
