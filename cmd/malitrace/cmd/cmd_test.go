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

package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"malitrace.dev/malitrace/pkg/abi/mali"
	"malitrace.dev/malitrace/pkg/dump"
	"malitrace.dev/malitrace/pkg/gpumem"
	"malitrace.dev/malitrace/pkg/hostarch"
	"malitrace.dev/malitrace/pkg/marshal"
	"malitrace.dev/malitrace/pkg/usermem"
)

func TestEnviron(t *testing.T) {
	for _, tc := range []struct {
		name  string
		base  []string
		extra []string
		want  []string
	}{
		{
			name: "empty",
			want: []string{"LD_PRELOAD=/lib/libmalitrace.so"},
		},
		{
			name:  "keeps order and overrides",
			base:  []string{"HOME=/root", "MALITRACE_DEBUG=false", "PATH=/bin"},
			extra: []string{"MALITRACE_DEBUG=true", "MALITRACE_OUTPUT=x.trace"},
			want: []string{
				"HOME=/root",
				"MALITRACE_DEBUG=true",
				"PATH=/bin",
				"MALITRACE_OUTPUT=x.trace",
				"LD_PRELOAD=/lib/libmalitrace.so",
			},
		},
		{
			name: "existing preload",
			base: []string{"LD_PRELOAD=/lib/a.so /lib/libmalitrace.so:/lib/b.so"},
			want: []string{"LD_PRELOAD=/lib/libmalitrace.so:/lib/a.so:/lib/b.so"},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := Environ(tc.base, "/lib/libmalitrace.so", tc.extra)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Environ mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTranslate(t *testing.T) {
	for _, tc := range []struct {
		set, value string
		want       string
	}{
		{"mem", "0x3", "PROT_CPU_RD | PROT_CPU_WR"},
		{"mem", "PROT_CPU_RD|PROT_CPU_WR", "0x3"},
		{"mem", "0", "0x0"},
		{"prot", "3", "PROT_READ | PROT_WRITE"},
		{"job-type", "5", "Vertex"},
		{"job-type", "Tiler", "0x7"},
		{"return-code", "2", "OUT_OF_MEMORY"},
	} {
		got, err := Translate(tc.set, tc.value)
		if err != nil {
			t.Errorf("Translate(%q, %q): %v", tc.set, tc.value, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Translate(%q, %q) = %q, want %q", tc.set, tc.value, got, tc.want)
		}
	}

	for _, bad := range [][2]string{
		{"nope", "1"},
		{"mem", "NOT_A_FLAG"},
		{"job-type", "Teapot"},
	} {
		if got, err := Translate(bad[0], bad[1]); err == nil {
			t.Errorf("Translate(%q, %q) = %q, want error", bad[0], bad[1], got)
		}
	}
}

func TestIoctlDocs(t *testing.T) {
	docs := IoctlDocs()
	byName := make(map[string]IoctlDoc)
	for i, d := range docs {
		if i > 0 && docs[i-1].Code >= d.Code {
			t.Errorf("%s not in code order", d.Name)
		}
		byName[d.Name] = d
	}
	want := IoctlDoc{
		Name: "MEM_ALLOC",
		Code: mali.MALI_IOCTL_MEM_ALLOC,
		ID:   0x200,
		Size: mali.SizeofMemAlloc,
	}
	if diff := cmp.Diff(want, byName["MEM_ALLOC"]); diff != "" {
		t.Errorf("MEM_ALLOC mismatch (-want +got):\n%s", diff)
	}

	var buf bytes.Buffer
	if err := ioctlTable(&buf, docs); err != nil {
		t.Fatalf("ioctlTable: %v", err)
	}
	if lines := strings.Count(buf.String(), "\n"); lines != len(docs)+1 {
		t.Errorf("table has %d lines, want %d", lines, len(docs)+1)
	}
}

const (
	cpuBase = hostarch.Addr(0x200000)
	gpuBase = hostarch.Addr(0x40000000)
)

// snapshot records a single set value job and returns the dump root.
func snapshot(t *testing.T) string {
	t.Helper()
	mem := &usermem.BytesIO{Base: cpuBase, Bytes: make([]byte, 0x1000)}
	var h mali.JobDescriptorHeader
	h.SetType(mali.JOB_TYPE_SET_VALUE, true)
	if err := usermem.CopyObjectOut(mem, cpuBase+0x40, &h); err != nil {
		t.Fatalf("CopyObjectOut: %v", err)
	}
	if err := usermem.CopyObjectOut(mem, cpuBase+0x40+mali.SizeofJobDescriptorHeader, &mali.SetValuePayload{Out: 0x1234}); err != nil {
		t.Fatalf("CopyObjectOut: %v", err)
	}

	reg := gpumem.NewRegistry()
	if _, err := reg.TrackMmap(gpuBase, cpuBase, 0x1000, 3, 1); err != nil {
		t.Fatalf("TrackMmap: %v", err)
	}
	atoms := []mali.JDAtom{
		{JC: uint64(gpuBase + 0x40), AtomNumber: 1, CoreReq: mali.MALI_JD_REQ_CS},
		{AtomNumber: 2},
	}
	var raw []byte
	for i := range atoms {
		raw = append(raw, marshal.Marshal(&atoms[i])...)
	}

	root := t.TempDir()
	w, err := dump.NewWriter(root, dump.WriterOptions{Compress: true})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if _, err := w.Snapshot(raw, reg.Mappings(), mem); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	return root
}

func TestInspect(t *testing.T) {
	root := snapshot(t)

	var buf bytes.Buffer
	if err := Inspect(&buf, root, InspectOptions{Jobs: true}); err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Mappings (1):",
		"GPU [0x40000000, 0x40001000) CPU [0x200000, 0x201000) (0x1000 bytes) PROT_READ | PROT_WRITE MAP_SHARED",
		"Atoms (2):",
		"0: atom_number = 1, jc = 0x0000000040000040, Vertex/Geometry shader job",
		"Set value job, 64-bit",
		"set value -> 1234 (0)",
		"<no job chain>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestInspectContains(t *testing.T) {
	root := snapshot(t)

	for _, tc := range []struct {
		addr hostarch.Addr
		want string
	}{
		{gpuBase + 0x10, "GPU 0x0000000040000010: GPU [0x40000000, 0x40001000) CPU [0x200000, 0x201000) (0x1000 bytes) +0x10"},
		{cpuBase + 0x20, "CPU 0x0000000000200020: GPU [0x40000000, 0x40001000) CPU [0x200000, 0x201000) (0x1000 bytes) +0x20"},
		{0x1000, "0x0000000000001000 is not mapped"},
	} {
		var buf bytes.Buffer
		addr := tc.addr
		if err := Inspect(&buf, root, InspectOptions{Contains: &addr}); err != nil {
			t.Fatalf("Inspect: %v", err)
		}
		if !strings.Contains(buf.String(), tc.want) {
			t.Errorf("Inspect(%v) missing %q:\n%s", tc.addr, tc.want, buf.String())
		}
	}
}

func TestInspectEmpty(t *testing.T) {
	if err := Inspect(&bytes.Buffer{}, t.TempDir(), InspectOptions{}); err == nil {
		t.Errorf("Inspect of an empty directory succeeded")
	}
}

func TestParseAddr(t *testing.T) {
	if a, err := parseAddr("0x40000000"); err != nil || a != gpuBase {
		t.Errorf("parseAddr = %v, %v", a, err)
	}
	if _, err := parseAddr("zzz"); err == nil {
		t.Errorf("parseAddr(zzz) succeeded")
	}
}
