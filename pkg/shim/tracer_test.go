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

package shim

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/sys/unix"

	"malitrace.dev/malitrace/pkg/abi/linux"
	"malitrace.dev/malitrace/pkg/abi/mali"
	"malitrace.dev/malitrace/pkg/config"
	"malitrace.dev/malitrace/pkg/decoder"
	"malitrace.dev/malitrace/pkg/hostarch"
	"malitrace.dev/malitrace/pkg/marshal"
	"malitrace.dev/malitrace/pkg/trace"
	"malitrace.dev/malitrace/pkg/usermem"
)

const (
	clientBase = hostarch.Addr(0x100000)
	clientSize = 0x30000
	argAddr    = clientBase + 0x100
	atomsAddr  = clientBase + 0x1000

	// Mappings handed out by the fake mmap.
	mapBase = clientBase + 0x10000

	devFd   = 5
	otherFd = 3
)

type ioctlCall struct {
	fd   int
	code uint32
	in   []byte
}

// fakeLibc stands in for the genuine calls. Its memory is the traced
// process's memory.
type fakeLibc struct {
	t   *testing.T
	mem *usermem.BytesIO

	// driver, if set, handles the ioctl after its input was recorded.
	driver map[uint32]func(arg hostarch.Addr) (int, error)
	ioctls []ioctlCall

	mmapRet   hostarch.Addr
	mmapErr   error
	mmaps     int
	munmapErr error
	munmaps   int
	closed    []int
}

func (f *fakeLibc) Close(fd int) error {
	f.closed = append(f.closed, fd)
	return nil
}

func (f *fakeLibc) Ioctl(fd int, code uint32, arg hostarch.Addr) (int, error) {
	in := make([]byte, linux.IOC_SIZE(code))
	if arg != 0 {
		if _, err := f.mem.CopyIn(arg, in); err != nil {
			return -1, unix.EFAULT
		}
	}
	f.ioctls = append(f.ioctls, ioctlCall{fd: fd, code: code, in: in})
	if h := f.driver[code]; h != nil {
		return h(arg)
	}
	return 0, nil
}

func (f *fakeLibc) Mmap(addr hostarch.Addr, length uint64, prot, flags int32, fd int, offset int64) (hostarch.Addr, error) {
	f.mmaps++
	if f.mmapErr != nil {
		return ^hostarch.Addr(0), f.mmapErr
	}
	return f.mmapRet, nil
}

func (f *fakeLibc) Munmap(addr hostarch.Addr, length uint64) error {
	f.munmaps++
	return f.munmapErr
}

// write stores m at addr in the fake's memory.
func (f *fakeLibc) write(addr hostarch.Addr, m marshal.Marshallable) {
	f.t.Helper()
	if err := usermem.CopyObjectOut(f.mem, addr, m); err != nil {
		f.t.Fatalf("CopyObjectOut(%v): %v", addr, err)
	}
}

func (f *fakeLibc) read(addr hostarch.Addr, m marshal.Marshallable) {
	f.t.Helper()
	if err := usermem.CopyObjectIn(f.mem, addr, m); err != nil {
		f.t.Fatalf("CopyObjectIn(%v): %v", addr, err)
	}
}

type harness struct {
	t    *testing.T
	libc *fakeLibc
	tr   *Tracer
	buf  bytes.Buffer
}

func newHarness(t *testing.T, cfg *config.Config, clock trace.Clock) *harness {
	h := &harness{t: t}
	h.libc = &fakeLibc{
		t:      t,
		mem:    &usermem.BytesIO{Base: clientBase, Bytes: make([]byte, clientSize)},
		driver: make(map[uint32]func(hostarch.Addr) (int, error)),
	}
	tr, err := New(h.libc, h.libc.mem, Options{Config: cfg, Output: &h.buf, Clock: clock})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.tr = tr
	return h
}

// open binds devFd as the device.
func (h *harness) open() {
	h.tr.Opened(mali.DevicePath, devFd)
}

func (h *harness) contains(want ...string) {
	h.t.Helper()
	out := h.buf.String()
	for _, w := range want {
		if !strings.Contains(out, w) {
			h.t.Errorf("trace missing %q:\n%s", w, out)
		}
	}
}

func (h *harness) lacks(unwanted ...string) {
	h.t.Helper()
	out := h.buf.String()
	for _, w := range unwanted {
		if strings.Contains(out, w) {
			h.t.Errorf("trace unexpectedly contains %q:\n%s", w, out)
		}
	}
}

func pattern(n int, seed byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i)*31 + seed
	}
	return b
}

func TestPassThroughFidelity(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.open()

	for _, r := range decoder.Requests() {
		size := int(linux.IOC_SIZE(r.Code))
		in := pattern(size, 7)
		// A well behaved client already stores the identifier the driver
		// expects.
		hostarch.ByteOrder.PutUint32(in, mali.HeaderID(r.Code))
		out := pattern(size, 0xa5)
		copy(h.libc.mem.Bytes[argAddr-clientBase:], in)

		h.libc.driver[r.Code] = func(arg hostarch.Addr) (int, error) {
			got := make([]byte, size)
			if _, err := h.libc.mem.CopyIn(arg, got); err != nil {
				t.Fatalf("%s: CopyIn: %v", r.Name, err)
			}
			if !bytes.Equal(got, in) {
				t.Errorf("%s: driver got %x, want %x", r.Name, got, in)
			}
			if _, err := h.libc.mem.CopyOut(arg, out); err != nil {
				t.Fatalf("%s: CopyOut: %v", r.Name, err)
			}
			return 0, nil
		}

		ret, err := h.tr.Ioctl(devFd, r.Code, argAddr)
		if ret != 0 || err != nil {
			t.Errorf("%s: Ioctl = %d, %v", r.Name, ret, err)
		}
		if got := h.libc.mem.Bytes[argAddr-clientBase:][:size]; !bytes.Equal(got, out) {
			t.Errorf("%s: caller sees %x, want %x", r.Name, got, out)
		}
	}
	if got, want := len(h.libc.ioctls), len(decoder.Requests()); got != want {
		t.Errorf("forwarded %d ioctls, want %d", got, want)
	}
}

func TestUntracedIoctl(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.open()
	in := pattern(16, 1)
	copy(h.libc.mem.Bytes[argAddr-clientBase:], in)
	h.libc.driver[mali.MALI_IOCTL_GET_VERSION] = func(hostarch.Addr) (int, error) {
		return -1, unix.ENOTTY
	}

	ret, err := h.tr.Ioctl(otherFd, mali.MALI_IOCTL_GET_VERSION, argAddr)
	if ret != -1 || err != unix.ENOTTY {
		t.Errorf("Ioctl = %d, %v; want -1, ENOTTY", ret, err)
	}
	if len(h.libc.ioctls) != 1 || !bytes.Equal(h.libc.ioctls[0].in, in) {
		t.Errorf("forwarded %+v, want the untouched payload", h.libc.ioctls)
	}
	h.lacks("GET_VERSION")
}

func TestHeaderIDRewrite(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.open()

	codes := []uint32{linux.IOWR(mali.TypeResource, 7, 8)}
	for _, r := range decoder.Requests() {
		codes = append(codes, r.Code)
	}
	for _, code := range codes {
		hdr := mali.Header{ID: 0xdeadbeef, Pad: 0x1234}
		h.libc.write(argAddr, &hdr)
		if _, err := h.tr.Ioctl(devFd, code, argAddr); err != nil {
			t.Fatalf("Ioctl(%#x): %v", code, err)
		}
		var got mali.Header
		got.UnmarshalBytes(h.libc.ioctls[len(h.libc.ioctls)-1].in)
		want := (linux.IOC_TYPE(code)&0xF)<<8 | linux.IOC_NR(code)
		if got.ID != want || got.Pad != 0x1234 {
			t.Errorf("Ioctl(%#x): driver saw header %+v, want ID %#x", code, got, want)
		}
	}

	// Requests outside the driver's type bytes are left alone.
	hdr := mali.Header{ID: 0xdeadbeef}
	h.libc.write(argAddr, &hdr)
	if _, err := h.tr.Ioctl(devFd, linux.IOWR('T', 1, 8), argAddr); err != nil {
		t.Fatalf("Ioctl: %v", err)
	}
	var got mali.Header
	got.UnmarshalBytes(h.libc.ioctls[len(h.libc.ioctls)-1].in)
	if got.ID != 0xdeadbeef {
		t.Errorf("foreign ioctl header rewritten to %#x", got.ID)
	}
}

func TestNullArgument(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.open()
	if _, err := h.tr.Ioctl(devFd, mali.MALI_IOCTL_POST_TERM, 0); err != nil {
		t.Fatalf("Ioctl: %v", err)
	}
	h.contains("<POST_TERM> (09) (c0088209), has no arguments? Cannot decode")
	if len(h.libc.ioctls) != 1 {
		t.Errorf("ioctl not forwarded")
	}
}

func TestOpened(t *testing.T) {
	h := newHarness(t, nil, nil)
	if h.tr.IsTraced(devFd) || h.tr.State() != Unbound {
		t.Fatalf("fresh tracer traces fd %d in state %v", devFd, h.tr.State())
	}
	h.tr.Opened("/etc/passwd", 4)
	h.tr.Opened("/dev/dri/card0", 6)
	h.tr.Opened(mali.DevicePath, -1)
	if h.tr.State() != Unbound {
		t.Errorf("state = %v after failed open", h.tr.State())
	}
	h.open()

	if !h.tr.IsTraced(devFd) || h.tr.IsTraced(otherFd) || h.tr.IsTraced(-1) {
		t.Errorf("IsTraced wrong after open")
	}
	want := []string{
		"malitrace: Unknown device /dev/dri/card0 opened at fd 6",
		"malitrace: /dev/mali0 fd == 5",
	}
	got := strings.Split(strings.TrimSuffix(h.buf.String(), "\n"), "\n")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("trace mismatch (-want +got):\n%s", diff)
	}
}

func TestStateMachine(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.open()
	if got := h.tr.State(); got != Bound {
		t.Fatalf("state = %v, want Bound", got)
	}

	h.libc.write(argAddr, &mali.MemAlloc{VAPages: 1})
	h.tr.Ioctl(devFd, mali.MALI_IOCTL_MEM_ALLOC, argAddr)
	h.libc.write(argAddr, &mali.MemAlloc{VAPages: 1})
	h.tr.Ioctl(devFd, mali.MALI_IOCTL_MEM_ALLOC, argAddr)
	if n := strings.Count(h.buf.String(), "<note: MEM_ALLOC issued before SET_FLAGS>"); n != 1 {
		t.Errorf("advisory note written %d times, want 1:\n%s", n, h.buf.String())
	}

	// A failing SET_FLAGS keeps the fd Bound.
	h.libc.driver[mali.MALI_IOCTL_SET_FLAGS] = func(arg hostarch.Addr) (int, error) {
		return -1, unix.EINVAL
	}
	h.libc.write(argAddr, &mali.SetFlags{})
	h.tr.Ioctl(devFd, mali.MALI_IOCTL_SET_FLAGS, argAddr)
	if got := h.tr.State(); got != Bound {
		t.Errorf("state = %v after failed SET_FLAGS, want Bound", got)
	}

	h.libc.driver[mali.MALI_IOCTL_SET_FLAGS] = func(arg hostarch.Addr) (int, error) {
		h.libc.write(arg, &mali.SetFlags{})
		return 0, nil
	}
	h.libc.write(argAddr, &mali.SetFlags{})
	h.tr.Ioctl(devFd, mali.MALI_IOCTL_SET_FLAGS, argAddr)
	if got := h.tr.State(); got != Configured {
		t.Errorf("state = %v after SET_FLAGS, want Configured", got)
	}

	if err := h.tr.Close(devFd); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := h.tr.State(); got != Closed {
		t.Errorf("state = %v after close, want Closed", got)
	}
	if h.tr.IsTraced(devFd) {
		t.Errorf("fd still traced after close")
	}
	h.contains("malitrace: /dev/mali0 closed")
	if diff := cmp.Diff([]int{devFd}, h.libc.closed); diff != "" {
		t.Errorf("closed fds mismatch (-want +got):\n%s", diff)
	}

	// Reopening starts over, including the note.
	h.buf.Reset()
	h.open()
	h.libc.write(argAddr, &mali.MemAlloc{VAPages: 1})
	h.tr.Ioctl(devFd, mali.MALI_IOCTL_MEM_ALLOC, argAddr)
	h.contains("<note: MEM_ALLOC issued before SET_FLAGS>")
}

func TestVersionBeforeSetFlags(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.open()
	h.libc.write(argAddr, &mali.GetVersion{Major: 10})
	h.tr.Ioctl(devFd, mali.MALI_IOCTL_GET_VERSION, argAddr)
	h.libc.write(argAddr, &mali.GetVersion{Major: 10})
	h.tr.Ioctl(devFd, mali.MALI_IOCTL_GET_VERSION_NEW, argAddr)
	h.lacks("<note:")
}

func TestCloseUntracedSkipsLock(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.open()

	h.tr.mu.Lock()
	done := make(chan error)
	go func() {
		done <- h.tr.Close(otherFd)
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Close: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("Close of an untraced fd waited for the tracer lock")
	}
	h.tr.mu.Unlock()

	if !h.tr.IsTraced(devFd) {
		t.Errorf("closing another fd untraced the device")
	}
	if diff := cmp.Diff([]int{otherFd}, h.libc.closed); diff != "" {
		t.Errorf("closed fds mismatch (-want +got):\n%s", diff)
	}
	h.lacks("closed")
}

func TestMmap(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.open()
	const gpu = 0x40000000

	// Untraced fds are forwarded without tracking.
	h.libc.mmapRet = mapBase
	if _, err := h.tr.Mmap(0, 0x1000, unix.PROT_READ, unix.MAP_PRIVATE, otherFd, 0); err != nil {
		t.Fatalf("Mmap: %v", err)
	}
	if n := h.tr.Registry().MappingCount(); n != 0 {
		t.Errorf("untraced mmap tracked %d mappings", n)
	}

	got, err := h.tr.Mmap(0, 0x4000, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED, devFd, gpu)
	if err != nil || got != mapBase {
		t.Fatalf("Mmap = %v, %v; want %v", got, err, mapBase)
	}
	m := h.tr.Registry().FindByCPU(mapBase + 0x3fff)
	if m == nil || m.GPUVA != gpu || m.Length != 0x4000 {
		t.Errorf("FindByCPU = %v", m)
	}
	h.contains(
		"Mapped GPU memory 0x0000000040000000@0x0000000000110000 (0x4000 bytes, PROT_READ | PROT_WRITE, MAP_SHARED)",
		"<no tracked allocation at GPU 0x0000000040000000>",
	)

	// The memory tracking handle is not GPU memory.
	h.libc.mmapRet = mapBase + 0x10000
	if _, err := h.tr.Mmap(0, 0x1000, unix.PROT_NONE, unix.MAP_SHARED, devFd, mali.MemTrackingHandle); err != nil {
		t.Fatalf("Mmap: %v", err)
	}
	h.contains("Mapped memory tracking handle @0x0000000000120000 (0x1000 bytes)")
	if n := h.tr.Registry().MappingCount(); n != 1 {
		t.Errorf("%d mappings tracked, want 1", n)
	}

	h.libc.mmapErr = unix.ENOMEM
	if _, err := h.tr.Mmap(0, 0x1000, unix.PROT_READ, unix.MAP_SHARED, devFd, gpu+0x10000); err != unix.ENOMEM {
		t.Errorf("Mmap error = %v, want ENOMEM", err)
	}
	h.contains("failed: cannot allocate memory")
	if n := h.tr.Registry().MappingCount(); n != 1 {
		t.Errorf("%d mappings tracked after a failed mmap, want 1", n)
	}
}

func TestMunmap(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.open()
	h.buf.Reset()

	// Nothing mapped: forwarded without output.
	if err := h.tr.Munmap(clientBase, 0x1000); err != nil {
		t.Fatalf("Munmap: %v", err)
	}
	if h.libc.munmaps != 1 || h.buf.Len() != 0 {
		t.Errorf("munmaps = %d, trace %q", h.libc.munmaps, h.buf.String())
	}

	h.libc.mmapRet = mapBase
	if _, err := h.tr.Mmap(0, 0x4000, unix.PROT_READ, unix.MAP_SHARED, devFd, 0x40000000); err != nil {
		t.Fatalf("Mmap: %v", err)
	}

	// A failed munmap changes nothing.
	h.libc.munmapErr = unix.EINVAL
	if err := h.tr.Munmap(mapBase, 0x4000); err != unix.EINVAL {
		t.Errorf("Munmap = %v, want EINVAL", err)
	}
	if n := h.tr.Registry().MappingCount(); n != 1 {
		t.Errorf("%d mappings after a failed munmap, want 1", n)
	}
	h.libc.munmapErr = nil

	// Punch a hole in the middle.
	if err := h.tr.Munmap(mapBase+0x1000, 0x1000); err != nil {
		t.Fatalf("Munmap: %v", err)
	}
	h.contains("Partially unmapped GPU memory 0x0000000040000000@0x0000000000110000 (0x0000000000111000+0x1000)")
	var ranges []string
	for _, m := range h.tr.Registry().Mappings() {
		ranges = append(ranges, m.String())
	}
	want := []string{
		"GPU [0x40000000, 0x40001000) CPU [0x110000, 0x111000) (0x1000 bytes)",
		"GPU [0x40002000, 0x40004000) CPU [0x112000, 0x114000) (0x2000 bytes)",
	}
	if diff := cmp.Diff(want, ranges); diff != "" {
		t.Errorf("mappings mismatch (-want +got):\n%s", diff)
	}

	if err := h.tr.Munmap(mapBase, 0x4000); err != nil {
		t.Fatalf("Munmap: %v", err)
	}
	h.contains(
		"Unmapped GPU memory 0x0000000040000000@0x0000000000110000",
		"Unmapped GPU memory 0x0000000040002000@0x0000000000112000",
	)
	if n := h.tr.Registry().MappingCount(); n != 0 {
		t.Errorf("%d mappings left, want 0", n)
	}
}

type recordingListener struct {
	fds    []int
	ranges []hostarch.AddrRange
}

func (l *recordingListener) TracedFD(fd int) {
	l.fds = append(l.fds, fd)
}

func (l *recordingListener) Mapped(ranges []hostarch.AddrRange) {
	l.ranges = ranges
}

func TestListener(t *testing.T) {
	mem := &usermem.BytesIO{Base: clientBase, Bytes: make([]byte, clientSize)}
	libc := &fakeLibc{t: t, mem: mem, mmapRet: mapBase}
	var l recordingListener
	var buf bytes.Buffer
	tr, err := New(libc, mem, Options{Output: &buf, Listener: &l})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tr.Opened(mali.DevicePath, devFd)
	if _, err := tr.Mmap(0, 0x4000, unix.PROT_READ, unix.MAP_SHARED, devFd, 0x40000000); err != nil {
		t.Fatalf("Mmap: %v", err)
	}
	if diff := cmp.Diff([]hostarch.AddrRange{{Start: mapBase, End: mapBase + 0x4000}}, l.ranges); diff != "" {
		t.Errorf("ranges after mmap mismatch (-want +got):\n%s", diff)
	}
	if err := tr.Munmap(mapBase, 0x1000); err != nil {
		t.Fatalf("Munmap: %v", err)
	}
	if diff := cmp.Diff([]hostarch.AddrRange{{Start: mapBase + 0x1000, End: mapBase + 0x4000}}, l.ranges); diff != "" {
		t.Errorf("ranges after munmap mismatch (-want +got):\n%s", diff)
	}
	if err := tr.Close(devFd); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if diff := cmp.Diff([]int{devFd, -1}, l.fds); diff != "" {
		t.Errorf("traced fds mismatch (-want +got):\n%s", diff)
	}
}

func TestFrozenTimestamps(t *testing.T) {
	cfg := config.Default()
	cfg.Timestamps = true
	clock := trace.NewManualClock(time.Unix(1000, 0), time.Millisecond)
	h := newHarness(t, cfg, clock)
	h.open()

	h.libc.driver[mali.MALI_IOCTL_GET_VERSION] = func(arg hostarch.Addr) (int, error) {
		h.libc.write(arg, &mali.GetVersion{Major: 10, Minor: 4})
		return 0, nil
	}
	h.buf.Reset()
	h.libc.write(argAddr, &mali.GetVersion{Major: 8, Minor: 4})
	h.tr.Ioctl(devFd, mali.MALI_IOCTL_GET_VERSION, argAddr)

	want := []string{
		"malitrace: [1000.001000] <GET_VERSION> (00) (c0108000) (0016) (000)",
		"malitrace: [1000.001000]   major = 8",
		"malitrace: [1000.001000]   minor = 4",
		"malitrace: [1000.002000]   = 0, 0",
		"malitrace: [1000.002000]   major = 10",
		"malitrace: [1000.002000]   minor = 4",
	}
	got := strings.Split(strings.TrimSuffix(h.buf.String(), "\n"), "\n")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("trace mismatch (-want +got):\n%s", diff)
	}
}

func TestSnapshotsConfigured(t *testing.T) {
	cfg := config.Default()
	cfg.DumpDir = t.TempDir()
	h := newHarness(t, cfg, nil)
	h.open()

	h.libc.mmapRet = mapBase
	if _, err := h.tr.Mmap(0, 0x1000, unix.PROT_READ, unix.MAP_SHARED, devFd, 0x40000000); err != nil {
		t.Fatalf("Mmap: %v", err)
	}
	h.libc.write(argAddr, &mali.JobSubmit{Addr: uint64(atomsAddr), NrAtoms: 1, Stride: mali.SizeofJDAtom})
	h.tr.Ioctl(devFd, mali.MALI_IOCTL_JOB_SUBMIT, argAddr)
	h.contains("<no job chain>", "Snapshot written to "+cfg.DumpDir)
}
