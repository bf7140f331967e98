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
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"malitrace.dev/malitrace/pkg/abi/mali"
	"malitrace.dev/malitrace/pkg/gpumem"
	"malitrace.dev/malitrace/pkg/hostarch"
	"malitrace.dev/malitrace/pkg/marshal"
	"malitrace.dev/malitrace/pkg/trace"
	"malitrace.dev/malitrace/pkg/usermem"
)

const (
	gpuBase = hostarch.Addr(0x40000000)
	cpuBase = hostarch.Addr(0x10000)
	memSize = 0x4000
)

// fixture is a single GPU mapping backed by a byte slice.
type fixture struct {
	t   *testing.T
	reg *gpumem.Registry
	mem *usermem.BytesIO
	buf bytes.Buffer
	out *trace.Stream
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		t:   t,
		reg: gpumem.NewRegistry(),
		mem: &usermem.BytesIO{Base: cpuBase, Bytes: make([]byte, memSize)},
	}
	if _, err := f.reg.TrackMmap(gpuBase, cpuBase, memSize, 3, 1); err != nil {
		t.Fatalf("TrackMmap: %v", err)
	}
	f.out = trace.New(&f.buf, trace.Options{})
	return f
}

func (f *fixture) walker(opts Options) *Walker {
	w, err := New(f.reg, f.mem, f.out, opts)
	if err != nil {
		f.t.Fatalf("New: %v", err)
	}
	return w
}

func (f *fixture) put(gpu hostarch.Addr, m marshal.Marshallable) {
	f.putBytes(gpu, marshal.Marshal(m))
}

func (f *fixture) putBytes(gpu hostarch.Addr, b []byte) {
	off := int(gpu - gpuBase)
	copy(f.mem.Bytes[off:], b)
}

func (f *fixture) job(gpu hostarch.Addr, t mali.JobType, next hostarch.Addr) {
	h := mali.JobDescriptorHeader{JobIndex: 1, Dependency1: 2}
	h.SetType(t, true)
	h.NextJob.Ptr = mali.Ptr(next)
	f.put(gpu, &h)
}

func (f *fixture) output() string {
	return f.buf.String()
}

func TestWalkSetValue(t *testing.T) {
	f := newFixture(t)
	f.job(gpuBase, mali.JOB_TYPE_SET_VALUE, 0)
	f.put(gpuBase+mali.SizeofJobDescriptorHeader, &mali.SetValuePayload{Out: 0xabc, Unknown: 1})

	if n := f.walker(Options{}).Walk(gpuBase); n != 1 {
		t.Errorf("Walk = %d, want 1", n)
	}
	want := []string{
		"malitrace: Set value job, 64-bit, status 0, incomplete 0",
		"malitrace: fault 0, barrier 0, index 1",
		"malitrace: dependencies (2, 0)",
		"malitrace:   set value -> ABC (1)",
	}
	got := strings.Split(strings.TrimSuffix(f.output(), "\n"), "\n")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("trace mismatch (-want +got):\n%s", diff)
	}
}

func TestWalkCycle(t *testing.T) {
	f := newFixture(t)
	f.job(gpuBase, mali.JOB_TYPE_NULL, gpuBase+0x100)
	f.job(gpuBase+0x100, mali.JOB_TYPE_NULL, gpuBase)

	if n := f.walker(Options{}).Walk(gpuBase); n != 2 {
		t.Errorf("Walk = %d, want 2", n)
	}
	if !strings.Contains(f.output(), "Cycle detected: job 0x0000000040000000 already decoded") {
		t.Errorf("missing cycle report:\n%s", f.output())
	}
	if got := strings.Count(f.output(), "Null job"); got != 2 {
		t.Errorf("decoded %d null jobs, want 2", got)
	}
}

func TestWalkSelfLoop(t *testing.T) {
	f := newFixture(t)
	f.job(gpuBase, mali.JOB_TYPE_NULL, gpuBase)

	if n := f.walker(Options{}).Walk(gpuBase); n != 1 {
		t.Errorf("Walk = %d, want 1", n)
	}
	if !strings.Contains(f.output(), "Cycle detected") {
		t.Errorf("missing cycle report:\n%s", f.output())
	}
}

func TestWalkBoundedByRootMapping(t *testing.T) {
	f := newFixture(t)
	// A two-slot mapping whose chain continues into the large one.
	small := hostarch.Addr(0x50000000)
	smallMem := &usermem.BytesIO{Base: 0x80000, Bytes: make([]byte, 2*mali.SizeofJobDescriptorHeader)}
	if _, err := f.reg.TrackMmap(small, smallMem.Base, uint64(len(smallMem.Bytes)), 3, 1); err != nil {
		t.Fatalf("TrackMmap: %v", err)
	}
	h := mali.JobDescriptorHeader{}
	h.SetType(mali.JOB_TYPE_NULL, true)
	h.NextJob.Ptr = mali.Ptr(gpuBase)
	copy(smallMem.Bytes, marshal.Marshal(&h))

	f.job(gpuBase, mali.JOB_TYPE_NULL, gpuBase+0x100)
	f.job(gpuBase+0x100, mali.JOB_TYPE_NULL, gpuBase+0x200)
	f.job(gpuBase+0x200, mali.JOB_TYPE_NULL, 0)

	w, err := New(f.reg, multiIO{smallMem, f.mem}, f.out, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if n := w.Walk(small); n != 2 {
		t.Errorf("Walk = %d, want 2", n)
	}
	if !strings.Contains(f.output(), "Job chain longer than 2 descriptors, stopping") {
		t.Errorf("missing bound report:\n%s", f.output())
	}
}

// multiIO dispatches to the first BytesIO covering an address.
type multiIO []*usermem.BytesIO

func (m multiIO) pick(addr hostarch.Addr) *usermem.BytesIO {
	for _, b := range m {
		if addr >= b.Base && addr < b.Base+hostarch.Addr(len(b.Bytes)) {
			return b
		}
	}
	return m[0]
}

func (m multiIO) CopyIn(addr hostarch.Addr, dst []byte) (int, error) {
	return m.pick(addr).CopyIn(addr, dst)
}

func (m multiIO) CopyOut(addr hostarch.Addr, src []byte) (int, error) {
	return m.pick(addr).CopyOut(addr, src)
}

func TestWalkUnknownPointer(t *testing.T) {
	f := newFixture(t)
	if n := f.walker(Options{}).Walk(0xdead0000); n != 0 {
		t.Errorf("Walk = %d, want 0", n)
	}
	want := "malitrace: <0x00000000dead0000: unknown GPU pointer>\n"
	if got := f.output(); got != want {
		t.Errorf("trace = %q, want %q", got, want)
	}
}

func TestWalkDanglingNext(t *testing.T) {
	f := newFixture(t)
	f.job(gpuBase, mali.JOB_TYPE_NULL, 0x1000)

	if n := f.walker(Options{}).Walk(gpuBase); n != 1 {
		t.Errorf("Walk = %d, want 1", n)
	}
	if !strings.Contains(f.output(), gpumem.ErrUnknownPointer.Error()) {
		t.Errorf("missing placeholder:\n%s", f.output())
	}
}

func TestWalkUnknownTypeContinues(t *testing.T) {
	f := newFixture(t)
	f.job(gpuBase, mali.JobType(6), gpuBase+0x100)
	f.job(gpuBase+0x100, mali.JOB_TYPE_SET_VALUE, 0)

	if n := f.walker(Options{}).Walk(gpuBase); n != 2 {
		t.Errorf("Walk = %d, want 2", n)
	}
	out := f.output()
	for _, want := range []string{"Unknown job, 64-bit", "unknown job type 0x6", "Set value job"} {
		if !strings.Contains(out, want) {
			t.Errorf("trace missing %q:\n%s", want, out)
		}
	}
}

func TestWalkPayloadDump(t *testing.T) {
	f := newFixture(t)
	f.job(gpuBase, mali.JOB_TYPE_FRAGMENT, 0)
	f.putBytes(gpuBase+mali.SizeofJobDescriptorHeader, []byte{0xde, 0xad, 0xbe, 0xef})

	f.walker(Options{}).Walk(gpuBase)
	out := f.output()
	if !strings.Contains(out, "Dumping payload 0x0000000040000020:") {
		t.Errorf("missing payload header:\n%s", out)
	}
	if !strings.Contains(out, "000000: de ad be ef") {
		t.Errorf("missing payload bytes:\n%s", out)
	}
}

const (
	payloadAt = gpuBase + mali.SizeofJobDescriptorHeader
	metaAt    = gpuBase + 0x200
	shaderAt  = gpuBase + 0x400
	listAt    = gpuBase + 0x800
	buffersAt = gpuBase + 0x900
	elemsAt   = gpuBase + 0xa00
)

// vertexJob lays out a vertex job with one shader and one attribute buffer
// at index 1.
func (f *fixture) vertexJob(at hostarch.Addr, next hostarch.Addr) {
	f.job(at, mali.JOB_TYPE_VERTEX, next)
	v := mali.VertexTilerPayload{
		Shader:        mali.Ptr(metaAt | 3),
		Attributes:    mali.Ptr(buffersAt),
		AttributeMeta: mali.Ptr(listAt),
	}
	v.Block1[0] = 0x11111111
	f.put(at+mali.SizeofJobDescriptorHeader, &v)
}

func (f *fixture) vertexResources() {
	sm := mali.ShaderMeta{}
	sm.Shader.Ptr = mali.Ptr(shaderAt)
	f.put(metaAt, &sm)

	blob := make([]byte, mali.ShaderBlobSize)
	for i := range blob {
		blob[i] = byte(i)
	}
	f.putBytes(shaderAt, blob)

	list := make([]byte, 2*mali.SizeofAttrMeta)
	hostarch.ByteOrder.PutUint64(list, uint64(0x5<<8|1))
	f.putBytes(listAt, list)

	f.put(buffersAt+mali.SizeofAttrBuffer, &mali.AttrBuffer{
		Elements: mali.Ptr(elemsAt | 1),
		Stride:   8,
		Size:     16,
	})

	elems := make([]byte, 16)
	for i, v := range []float32{1, 2, 3, 4} {
		hostarch.ByteOrder.PutUint32(elems[4*i:], math.Float32bits(v))
	}
	f.putBytes(elemsAt, elems)
}

func TestWalkVertex(t *testing.T) {
	f := newFixture(t)
	f.vertexJob(gpuBase, 0)
	f.vertexResources()

	if n := f.walker(Options{}).Walk(gpuBase); n != 1 {
		t.Errorf("Walk = %d, want 1", n)
	}
	out := f.output()
	for _, want := range []string{
		"Vertex job, 64-bit",
		"  Vertex shader @ 0x0000000040000200 (flags 0x3)",
		"  Block #1:",
		"    000000: 11 11 11 11",
		"  Shader blob:",
		"    shader hash = ",
		"    000000: 00 01 02 03",
		"  Attribute list:",
		"    1:",
		"      flags = 0x00000000000005",
		"      0x0000000040000a00 (1):",
		"        <1.000000, 2.000000>",
		"        <3.000000, 4.000000>",
		"    <end of attribute list>",
		"  Block #2:",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("trace missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "sabotaged") {
		t.Errorf("unexpected sabotage marker:\n%s", out)
	}
}

func TestWalkVertexNoShaderNoAttributes(t *testing.T) {
	f := newFixture(t)
	f.job(gpuBase, mali.JOB_TYPE_TILER, 0)
	f.put(payloadAt, &mali.VertexTilerPayload{})

	f.walker(Options{}).Walk(gpuBase)
	out := f.output()
	for _, want := range []string{"Fragment shader @ 0x0000000000000000", "<no shader>", "<no attributes>"} {
		if !strings.Contains(out, want) {
			t.Errorf("trace missing %q:\n%s", want, out)
		}
	}
}

func TestShaderSightings(t *testing.T) {
	f := newFixture(t)
	f.vertexJob(gpuBase, gpuBase+0x1000)
	f.vertexJob(gpuBase+0x1000, 0)
	f.vertexResources()

	w := f.walker(Options{ShaderCacheSize: 16, ShaderDedup: true})
	if n := w.Walk(gpuBase); n != 2 {
		t.Errorf("Walk = %d, want 2", n)
	}
	out := f.output()
	if got := strings.Count(out, "shader hash = "); got != 2 {
		t.Errorf("got %d shader hashes, want 2", got)
	}
	if !strings.Contains(out, "first seen in chain #1 at 0x0000000040000400") {
		t.Errorf("missing sighting:\n%s", out)
	}
	if !strings.Contains(out, "<shader blob identical to chain #1, not dumped>") {
		t.Errorf("missing dedup line:\n%s", out)
	}
	if got := strings.Count(out, "000330: "); got != 1 {
		t.Errorf("shader dumped %d times, want 1", got)
	}
}

func TestFloatRows(t *testing.T) {
	data := make([]byte, 24)
	for i, v := range []float32{0.5, -1, 2, 3, 4, 5} {
		hostarch.ByteOrder.PutUint32(data[4*i:], math.Float32bits(v))
	}
	for _, tc := range []struct {
		stride int
		want   []string
	}{
		{12, []string{"<0.500000, -1.000000, 2.000000>", "<3.000000, 4.000000, 5.000000>"}},
		{8, []string{"<0.500000, -1.000000>", "<2.000000, 3.000000>", "<4.000000, 5.000000>"}},
		{16, []string{"<0.500000, -1.000000, 2.000000, 3.000000>"}},
		{0, nil},
	} {
		if diff := cmp.Diff(tc.want, FloatRows(data, tc.stride)); diff != "" {
			t.Errorf("FloatRows(stride %d) mismatch (-want +got):\n%s", tc.stride, diff)
		}
	}
}
