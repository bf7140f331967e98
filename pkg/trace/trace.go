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

// Package trace renders the line-oriented text trace.
//
// Every line carries a fixed prefix, an optional timestamp and two spaces of
// indentation per nesting level:
//
//	malitrace: [1712345678.000123] <MEM_ALLOC> (00) (c0388200) (0056) (512)
//	malitrace: [1712345678.000123]   va_pages = 16
//
// A Stream is not safe for concurrent use; the tracer serializes all access
// under its own lock.
package trace

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"malitrace.dev/malitrace/pkg/log"
)

// DefaultPrefix starts every trace line.
const DefaultPrefix = "malitrace: "

// Options configures a Stream.
type Options struct {
	// Prefix starts every line. Defaults to DefaultPrefix.
	Prefix string

	// Clock supplies timestamps. Defaults to RealClock.
	Clock Clock

	// Timestamps enables the [seconds.micros] column.
	Timestamps bool

	// HexdumpLimit caps the number of bytes rendered by a single hexdump.
	// Zero means unlimited.
	HexdumpLimit int
}

// Stream is an indented trace writer.
type Stream struct {
	out  *log.Writer
	opts Options

	indent int

	// frozen is set while the tracer holds its lock. While frozen, every
	// line carries frozenAt.
	frozen   bool
	frozenAt time.Time

	line []byte
}

// New returns a Stream writing to w.
func New(w io.Writer, opts Options) *Stream {
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.Clock == nil {
		opts.Clock = RealClock{}
	}
	return &Stream{out: &log.Writer{Next: w}, opts: opts}
}

// Printf writes one or more lines at the current indentation. A trailing
// newline in format is optional.
func (s *Stream) Printf(format string, v ...any) {
	msg := fmt.Sprintf(format, v...)
	msg = strings.TrimSuffix(msg, "\n")
	for _, l := range strings.Split(msg, "\n") {
		s.writeLine(l)
	}
}

// Indent increases the nesting level.
func (s *Stream) Indent() {
	s.indent++
}

// Dedent decreases the nesting level.
func (s *Stream) Dedent() {
	if s.indent > 0 {
		s.indent--
	}
}

// Nested runs fn one level deeper.
func (s *Stream) Nested(fn func()) {
	s.Indent()
	defer s.Dedent()
	fn()
}

// Level returns the nesting level.
func (s *Stream) Level() int {
	return s.indent
}

// Freeze pins the timestamp of subsequent lines to the current time.
func (s *Stream) Freeze() {
	s.frozenAt = s.opts.Clock.Now()
	s.frozen = true
}

// Unfreeze releases a Freeze.
func (s *Stream) Unfreeze() {
	s.frozen = false
}

// Frozen returns true between Freeze and Unfreeze.
func (s *Stream) Frozen() bool {
	return s.frozen
}

// Dropped returns the number of lines lost to write errors since the last
// successful write.
func (s *Stream) Dropped() int32 {
	return s.out.Dropped()
}

func (s *Stream) writeLine(text string) {
	b := append(s.line[:0], s.opts.Prefix...)
	if s.opts.Timestamps {
		now := s.frozenAt
		if !s.frozen {
			now = s.opts.Clock.Now()
		}
		b = append(b, '[')
		b = strconv.AppendInt(b, now.Unix(), 10)
		b = append(b, '.')
		b = appendPadded(b, now.Nanosecond()/1000, 6)
		b = append(b, "] "...)
	}
	for i := 0; i < s.indent; i++ {
		b = append(b, "  "...)
	}
	b = append(b, text...)
	b = append(b, '\n')
	s.line = b
	// Write failures are counted by the writer and reported once it
	// recovers.
	s.out.Write(b)
}

func appendPadded(b []byte, v, width int) []byte {
	d := strconv.Itoa(v)
	for i := len(d); i < width; i++ {
		b = append(b, '0')
	}
	return append(b, d...)
}
