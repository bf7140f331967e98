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

// Package decoder renders the Mali ioctls of a traced process.
//
// Every call is decoded twice: Pre runs before the call is forwarded to the
// driver and renders the inputs, Post runs after it returns and renders the
// outputs. Post is also where the allocation registry learns about memory the
// driver handed out.
package decoder

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"malitrace.dev/malitrace/pkg/abi/linux"
	"malitrace.dev/malitrace/pkg/abi/mali"
	"malitrace.dev/malitrace/pkg/gpumem"
	"malitrace.dev/malitrace/pkg/hostarch"
	"malitrace.dev/malitrace/pkg/jobchain"
	"malitrace.dev/malitrace/pkg/log"
	"malitrace.dev/malitrace/pkg/trace"
	"malitrace.dev/malitrace/pkg/usermem"
)

// Limits on the client memory rendered for a single request.
const (
	maxSyncDump  = 1 << 20
	maxAtoms     = 256
	maxAliasEnts = 256
	maxExtRes    = 64
)

// Snapshotter persists the GPU memory referenced by a job submission.
type Snapshotter interface {
	// Snapshot records atoms, the raw atom array, together with the contents
	// of every mapping. It returns a description of where the snapshot went.
	Snapshot(atoms []byte, mappings []*gpumem.Mapping, mem usermem.IO) (string, error)
}

// Options configures a Decoder.
type Options struct {
	// Jobs configures the job chain walker.
	Jobs jobchain.Options

	// Snapshots, if set, receives every job submission.
	Snapshots Snapshotter

	// WarnEvery limits how often unknown requests are reported to the
	// diagnostic log. Defaults to one second.
	WarnEvery time.Duration
}

// Decoder decodes ioctls on the driver fd. It is not safe for concurrent
// use; callers serialize with the tracer lock.
type Decoder struct {
	reg    *gpumem.Registry
	mem    usermem.IO
	out    *trace.Stream
	walker *jobchain.Walker
	snaps  Snapshotter
	warn   log.Logger
}

// New returns a Decoder.
func New(reg *gpumem.Registry, mem usermem.IO, out *trace.Stream, opts Options) (*Decoder, error) {
	w, err := jobchain.New(reg, mem, out, opts.Jobs)
	if err != nil {
		return nil, err
	}
	if opts.WarnEvery == 0 {
		opts.WarnEvery = time.Second
	}
	return &Decoder{
		reg:    reg,
		mem:    mem,
		out:    out,
		walker: w,
		snaps:  opts.Snapshots,
		warn:   log.BasicRateLimitedLogger(opts.WarnEvery),
	}, nil
}

// Call is one ioctl between Pre and Post.
type Call struct {
	// Request is nil for requests the driver does not define.
	Request *Request

	Code uint32
	Arg  hostarch.Addr

	// ID is the function identifier in the header when the call was made.
	ID uint32

	// RC is the return code the driver wrote into the header. Valid after
	// Post.
	RC uint32

	// Err is the error returned by the forwarded call. Valid after Post.
	Err error

	// unread is set when the payload could not be copied in.
	unread bool

	// mismatch is set when the size in the request code differs from the
	// size of the request's struct.
	mismatch bool
}

// Name returns the request name, or "???".
func (c *Call) Name() string {
	if c.Request == nil {
		return "???"
	}
	return c.Request.Name
}

// Size returns the payload size encoded in the request code.
func (c *Call) Size() int {
	return int(linux.IOC_SIZE(c.Code))
}

// Succeeded returns true if both the system call and the driver reported
// success.
func (c *Call) Succeeded() bool {
	return c.Err == nil && !c.unread && !c.mismatch && c.RC == mali.MALI_ERROR_NONE
}

// Pre renders the header line and inputs of an ioctl about to be forwarded.
// The returned Call must be passed to Post once the call returns.
func (d *Decoder) Pre(code uint32, arg hostarch.Addr) *Call {
	c := &Call{Request: Lookup(code), Code: code, Arg: arg}
	nr := linux.IOC_NR(code)

	if arg == 0 {
		d.out.Printf("<%s> (%02d) (%08x), has no arguments? Cannot decode", c.Name(), nr, code)
		return c
	}
	if c.Request == nil {
		d.out.Printf("<%s> (%02d) (%08x) (%04d) unknown ioctl", c.Name(), nr, code, c.Size())
		d.warn.Warningf("Unknown ioctl %#x (type %#x, nr %d, size %d)", code, linux.IOC_TYPE(code), nr, c.Size())
		return c
	}

	buf, err := d.payload(c)
	if err != nil {
		d.out.Printf("<%s> (%02d) (%08x) (%04d) <%v>", c.Name(), nr, code, c.Size(), err)
		d.out.Indent()
		c.unread = true
		return c
	}
	c.ID = headerOf(buf).ID

	d.out.Printf("<%s> (%02d) (%08x) (%04d) (%03d)", c.Name(), nr, code, c.Size(), c.ID)
	d.out.Indent()
	if c.Size() != c.Request.Size {
		d.out.Printf("<size mismatch: request code says %d bytes, %s is %d>", c.Size(), c.Name(), c.Request.Size)
		d.out.Hexdump(buf)
		c.mismatch = true
		return c
	}
	if c.Request.Pre != nil {
		c.Request.Pre(d, c, buf)
	}
	return c
}

// Post renders the result and outputs of a forwarded ioctl. ret and err are
// what the forwarded call returned.
func (d *Decoder) Post(c *Call, ret int, err error) {
	c.Err = err
	if c.Request == nil || c.Arg == 0 {
		d.out.Nested(func() {
			d.out.Printf("= %d%s", ret, errnoSuffix(err))
		})
		return
	}
	defer d.out.Dedent()

	if c.unread {
		d.out.Printf("= %d%s", ret, errnoSuffix(err))
		return
	}
	buf, rerr := d.payload(c)
	if rerr != nil {
		d.out.Printf("= %d%s <%v>", ret, errnoSuffix(err), rerr)
		c.unread = true
		return
	}
	c.RC = headerOf(buf).RC()

	line := fmt.Sprintf("= %d, %d", ret, c.RC)
	if c.RC != mali.MALI_ERROR_NONE {
		line += fmt.Sprintf(" (%s, errno %s)", mali.ReturnCode.Parse(uint64(c.RC)), unix.ErrnoName(mali.ReturnCodeErrno(c.RC)))
	}
	d.out.Printf("%s%s", line, errnoSuffix(err))

	switch {
	case err != nil:
	case c.mismatch:
		d.out.Hexdump(buf)
	case c.Request.Post != nil:
		c.Request.Post(d, c, buf)
	}
}

// headerOf returns the header at the start of buf, or a zero header if buf
// is too short to hold one.
func headerOf(buf []byte) mali.Header {
	var h mali.Header
	if len(buf) >= mali.SizeofHeader {
		h.UnmarshalBytes(buf)
	}
	return h
}

// payload copies in the argument of c.
func (d *Decoder) payload(c *Call) ([]byte, error) {
	buf := make([]byte, c.Size())
	if _, err := d.mem.CopyIn(c.Arg, buf); err != nil {
		return nil, fmt.Errorf("cannot read %d bytes at %v: %w", len(buf), c.Arg, err)
	}
	return buf, nil
}

// readBytes copies n bytes of client memory at addr.
func (d *Decoder) readBytes(addr hostarch.Addr, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := d.mem.CopyIn(addr, buf); err != nil {
		return nil, fmt.Errorf("cannot read %d bytes at %v: %w", n, addr, err)
	}
	return buf, nil
}

func errnoSuffix(err error) string {
	if err == nil {
		return ""
	}
	var errno unix.Errno
	if errors.As(err, &errno) {
		if name := unix.ErrnoName(errno); name != "" {
			return fmt.Sprintf(" (%s: %v)", name, err)
		}
	}
	return fmt.Sprintf(" (%v)", err)
}
