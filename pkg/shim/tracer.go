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

// Package shim implements the intercepted libc entry points on top of the
// decoder. The exported C symbols live in cmd/libmalitrace; they call into a
// Tracer, which forwards to the genuine implementation through Libc.
package shim

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"malitrace.dev/malitrace/pkg/abi/linux"
	"malitrace.dev/malitrace/pkg/abi/mali"
	"malitrace.dev/malitrace/pkg/config"
	"malitrace.dev/malitrace/pkg/decoder"
	"malitrace.dev/malitrace/pkg/dump"
	"malitrace.dev/malitrace/pkg/gpumem"
	"malitrace.dev/malitrace/pkg/hostarch"
	"malitrace.dev/malitrace/pkg/jobchain"
	"malitrace.dev/malitrace/pkg/log"
	"malitrace.dev/malitrace/pkg/trace"
	"malitrace.dev/malitrace/pkg/usermem"
)

// Libc is the genuine implementation of the intercepted calls.
type Libc interface {
	Close(fd int) error
	Ioctl(fd int, code uint32, arg hostarch.Addr) (int, error)
	Mmap(addr hostarch.Addr, length uint64, prot, flags int32, fd int, offset int64) (hostarch.Addr, error)
	Munmap(addr hostarch.Addr, length uint64) error
}

// Listener is told about changes to the traced fd and the tracked CPU
// ranges, so that callers can filter calls without entering the Tracer. It is
// called with the tracer lock held.
type Listener interface {
	TracedFD(fd int)
	Mapped(ranges []hostarch.AddrRange)
}

// Options configures a Tracer.
type Options struct {
	// Config defaults to config.Default().
	Config *config.Config

	// Output receives the trace.
	Output io.Writer

	// Clock defaults to trace.RealClock.
	Clock trace.Clock

	// Listener is optional.
	Listener Listener
}

// Tracer holds the state of one traced process.
type Tracer struct {
	libc Libc
	mem  usermem.IO

	// fd is the traced device fd, or -1. It is written with mu held but read
	// without it.
	fd atomic.Int32

	// mu serializes every traced call.
	mu    sync.Mutex
	state State
	// noted is set once the advisory note about a missing SET_FLAGS has been
	// written for the current fd.
	noted bool

	reg      *gpumem.Registry
	out      *trace.Stream
	dec      *decoder.Decoder
	listener Listener

	// mappings mirrors reg.MappingCount() for the munmap fast path.
	mappings atomic.Int64
}

// New returns a Tracer forwarding to libc. mem must read and write the
// traced process's memory.
func New(libc Libc, mem usermem.IO, opts Options) (*Tracer, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	out := trace.New(opts.Output, trace.Options{
		Clock:        opts.Clock,
		Timestamps:   cfg.Timestamps,
		HexdumpLimit: cfg.HexdumpLimit,
	})
	reg := gpumem.NewRegistry()

	dopts := decoder.Options{
		Jobs: jobchain.Options{
			ShaderBlobSize:  cfg.ShaderBlobSize,
			ShaderCacheSize: uint32(cfg.ShaderCacheSize),
			ShaderDedup:     cfg.ShaderDedup,
		},
	}
	if cfg.DumpDir != "" {
		w, err := dump.NewWriter(cfg.DumpDir, dump.WriterOptions{
			Compress: cfg.DumpCompress,
			Clock:    opts.Clock,
		})
		if err != nil {
			return nil, fmt.Errorf("dump directory: %w", err)
		}
		log.Infof("Writing job submission snapshots to %s", w.Session())
		dopts.Snapshots = w
	}
	dec, err := decoder.New(reg, mem, out, dopts)
	if err != nil {
		return nil, err
	}

	t := &Tracer{
		libc:     libc,
		mem:      mem,
		reg:      reg,
		out:      out,
		dec:      dec,
		listener: opts.Listener,
	}
	t.fd.Store(-1)
	return t, nil
}

// Registry returns the allocation registry. Callers must not use it
// concurrently with traced calls.
func (t *Tracer) Registry() *gpumem.Registry {
	return t.reg
}

// State returns the state of the traced fd.
func (t *Tracer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// IsTraced returns true if fd is the traced device fd. It never blocks.
func (t *Tracer) IsTraced(fd int) bool {
	return fd >= 0 && int32(fd) == t.fd.Load()
}

// Opened is called after the genuine open(2) returned fd for path.
func (t *Tracer) Opened(path string, fd int) {
	if fd < 0 || (path != mali.DevicePath && !strings.Contains(path, "/dev/")) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.out.Freeze()
	defer t.out.Unfreeze()

	if path != mali.DevicePath {
		t.out.Printf("Unknown device %s opened at fd %d", path, fd)
		return
	}
	if old := t.fd.Load(); old >= 0 && int(old) != fd {
		log.Warningf("%s opened again, tracing fd %d instead of fd %d", path, fd, old)
	}
	t.out.Printf("%s fd == %d", path, fd)
	t.setFD(fd)
	t.setState(Bound)
	t.noted = false
}

// Close implements close(2).
func (t *Tracer) Close(fd int) error {
	// Racy on purpose: libraries closing their own fds from destructors
	// must never wait for mu.
	if !t.IsTraced(fd) {
		return t.libc.Close(fd)
	}
	t.mu.Lock()
	if t.IsTraced(fd) {
		t.out.Freeze()
		t.out.Printf("%s closed", mali.DevicePath)
		t.out.Unfreeze()
		t.setFD(-1)
		t.setState(Closed)
	}
	t.mu.Unlock()
	return t.libc.Close(fd)
}

// Ioctl implements ioctl(2).
func (t *Tracer) Ioctl(fd int, code uint32, arg hostarch.Addr) (int, error) {
	if !t.IsTraced(fd) {
		return t.libc.Ioctl(fd, code, arg)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.IsTraced(fd) {
		return t.libc.Ioctl(fd, code, arg)
	}

	t.out.Freeze()
	t.checkState(code)
	t.rewriteID(code, arg)
	c := t.dec.Pre(code, arg)
	t.out.Unfreeze()

	ret, err := t.libc.Ioctl(fd, code, arg)

	t.out.Freeze()
	t.dec.Post(c, ret, err)
	if code == mali.MALI_IOCTL_SET_FLAGS && c.Succeeded() {
		t.setState(Configured)
	}
	t.out.Unfreeze()
	return ret, err
}

// rewriteID stores the function identifier the driver expects for code in
// the header at arg.
func (t *Tracer) rewriteID(code uint32, arg hostarch.Addr) {
	if arg == 0 || !mali.IsDriverType(code) || linux.IOC_SIZE(code) < mali.SizeofHeader {
		return
	}
	// A failure leaves the header alone; Pre reports the unreadable
	// argument.
	_ = usermem.CopyOutUint32(t.mem, arg, mali.HeaderID(code))
}

// checkState notes requests the fd state does not expect. Nothing is
// enforced.
func (t *Tracer) checkState(code uint32) {
	switch t.state {
	case Bound:
		if t.noted || !needsFlags(code) {
			return
		}
		t.noted = true
		name := "???"
		if r := decoder.Lookup(code); r != nil {
			name = r.Name
		}
		t.out.Printf("<note: %s issued before SET_FLAGS>", name)
	case Configured:
	default:
		log.Warningf("Decoding ioctl %#x on an fd in state %v", code, t.state)
	}
}

// needsFlags returns true for requests that normally follow SET_FLAGS.
func needsFlags(code uint32) bool {
	if !mali.IsDriverType(code) || linux.IOC_TYPE(code) == mali.TypeVersion {
		return false
	}
	switch code {
	case mali.MALI_IOCTL_GET_VERSION_NEW, mali.MALI_IOCTL_SET_FLAGS:
		return false
	}
	return true
}

func (t *Tracer) setFD(fd int) {
	t.fd.Store(int32(fd))
	if t.listener != nil {
		t.listener.TracedFD(fd)
	}
}

// mappingsChanged publishes the tracked CPU ranges.
func (t *Tracer) mappingsChanged() {
	t.mappings.Store(int64(t.reg.MappingCount()))
	if t.listener == nil {
		return
	}
	ms := t.reg.Mappings()
	ranges := make([]hostarch.AddrRange, len(ms))
	for i, m := range ms {
		ranges[i] = m.CPURange()
	}
	t.listener.Mapped(ranges)
}

func (t *Tracer) setState(s State) {
	if t.state != s {
		log.Debugf("Device fd state %v -> %v", t.state, s)
	}
	t.state = s
}

// Mmap implements mmap(2) and mmap64(3).
func (t *Tracer) Mmap(addr hostarch.Addr, length uint64, prot, flags int32, fd int, offset int64) (hostarch.Addr, error) {
	if !t.IsTraced(fd) {
		return t.libc.Mmap(addr, length, prot, flags, fd, offset)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	ret, err := t.libc.Mmap(addr, length, prot, flags, fd, offset)

	t.out.Freeze()
	defer t.out.Unfreeze()
	if err != nil {
		t.out.Printf("mmap(%v, %#x, %s, %s, fd %d, %#x) failed: %v", addr, length,
			linux.ProtFlagSet.Parse(uint64(prot)), linux.MapFlagSet.Parse(uint64(uint32(flags))), fd, offset, err)
		return ret, err
	}
	if offset == mali.MemTrackingHandle {
		t.out.Printf("Mapped memory tracking handle @%v (%#x bytes)", ret, length)
		return ret, nil
	}
	// The driver takes the GPU address of the allocation as the offset.
	m, terr := t.reg.TrackMmap(hostarch.Addr(offset), ret, length, prot, flags)
	if terr != nil {
		t.out.Printf("<cannot track mapping of GPU %#x @%v: %v>", offset, ret, terr)
		log.Warningf("Cannot track mapping of GPU %#x: %v", offset, terr)
		return ret, nil
	}
	t.mappingsChanged()
	t.out.Printf("Mapped GPU memory %v@%v (%#x bytes, %s, %s)", m.GPUVA, m.CPUAddr, m.Length,
		linux.ProtFlagSet.Parse(uint64(prot)), linux.MapFlagSet.Parse(uint64(uint32(flags))))
	if t.reg.AllocationFor(m) == nil {
		t.out.Printf("<no tracked allocation at GPU %v>", m.GPUVA)
	}
	return ret, nil
}

// Munmap implements munmap(2).
func (t *Tracer) Munmap(addr hostarch.Addr, length uint64) error {
	if t.mappings.Load() == 0 {
		return t.libc.Munmap(addr, length)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.libc.Munmap(addr, length); err != nil {
		return err
	}
	hit := t.reg.UnmapRange(addr, length)
	if len(hit) == 0 {
		return nil
	}
	t.mappingsChanged()
	t.out.Freeze()
	defer t.out.Unfreeze()
	for _, m := range hit {
		if r := m.CPURange(); r.Start >= addr && uint64(r.End-addr) <= length {
			t.out.Printf("Unmapped GPU memory %v@%v", m.GPUVA, m.CPUAddr)
		} else {
			t.out.Printf("Partially unmapped GPU memory %v@%v (%v+%#x)", m.GPUVA, m.CPUAddr, addr, length)
		}
	}
	return nil
}
