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

package log

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type testWriter struct {
	lines []string
	fail  bool
}

func (w *testWriter) Write(bytes []byte) (int, error) {
	if w.fail {
		return 0, fmt.Errorf("simulated failure")
	}
	w.lines = append(w.lines, string(bytes))
	return len(bytes), nil
}

func TestDropMessages(t *testing.T) {
	tw := &testWriter{}
	w := Writer{Next: tw}
	if _, err := w.Write([]byte("line 1\n")); err != nil {
		t.Fatalf("Write failed, err: %v", err)
	}

	tw.fail = true
	if _, err := w.Write([]byte("error\n")); err == nil {
		t.Fatalf("Write should have failed")
	}
	if _, err := w.Write([]byte("error\n")); err == nil {
		t.Fatalf("Write should have failed")
	}
	if got := w.Dropped(); got != 2 {
		t.Errorf("Dropped() = %d, want 2", got)
	}

	tw.fail = false
	if _, err := w.Write([]byte("line 2\n")); err != nil {
		t.Fatalf("Write failed, err: %v", err)
	}

	expected := []string{
		"line 1\n",
		"line 2\n",
		"\n*** Dropped 2 log messages ***\n",
	}
	if diff := cmp.Diff(expected, tw.lines); diff != "" {
		t.Errorf("unexpected lines (-want +got):\n%s", diff)
	}
	if got := w.Dropped(); got != 0 {
		t.Errorf("Dropped() after report = %d, want 0", got)
	}
}

func TestWriterAppendsNewline(t *testing.T) {
	tw := &testWriter{}
	w := Writer{Next: tw}
	w.Emit(0, Info, time.Time{}, "value %d", 7)
	if diff := cmp.Diff([]string{"value 7", "\n"}, tw.lines); diff != "" {
		t.Errorf("unexpected lines (-want +got):\n%s", diff)
	}
}

func TestBasicLoggerLevels(t *testing.T) {
	tw := &testWriter{}
	l := &BasicLogger{Level: Info, Emitter: &Writer{Next: tw}}
	l.Debugf("hidden")
	l.Infof("shown %s", "info")
	l.Warningf("shown %s", "warning")
	if l.IsLogging(Debug) || !l.IsLogging(Warning) {
		t.Errorf("IsLogging wrong at level %v", l.Level)
	}
	l.SetLevel(Debug)
	l.Debugf("now shown")

	var got []string
	for _, line := range tw.lines {
		if line != "\n" {
			got = append(got, line)
		}
	}
	if diff := cmp.Diff([]string{"shown info", "shown warning", "now shown"}, got); diff != "" {
		t.Errorf("unexpected lines (-want +got):\n%s", diff)
	}
}

func TestGoogleEmitter(t *testing.T) {
	var buf bytes.Buffer
	l := &BasicLogger{Level: Debug, Emitter: GoogleEmitter{&Writer{Next: &buf}}}
	l.Warningf("bad pointer %#x", 0x1000)
	line := buf.String()
	if !strings.HasPrefix(line, "W") {
		t.Errorf("line %q does not start with the level", line)
	}
	if !strings.Contains(line, ".go:") {
		t.Errorf("line %q does not name the caller", line)
	}
	if !strings.HasSuffix(line, "] bad pointer 0x1000\n") {
		t.Errorf("line %q has the wrong message", line)
	}
	if want := fmt.Sprintf(" %7d %s log_test.go:", os.Getpid(), filepath.Base(os.Args[0])); !strings.Contains(line, want) {
		t.Errorf("line %q does not contain %q", line, want)
	}
}

func TestLogrusEmitter(t *testing.T) {
	var buf bytes.Buffer
	l := &BasicLogger{Level: Debug, Emitter: NewLogrusEmitter(&buf)}
	l.Infof("mapped %d pages", 4)
	out := buf.String()
	for _, want := range []string{"level=info", `msg="mapped 4 pages"`, `caller="log_test.go:`, fmt.Sprintf("pid=%d", os.Getpid())} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q does not contain %q", out, want)
		}
	}
}

func TestRateLimitedLogger(t *testing.T) {
	tw := &testWriter{}
	l := RateLimitedLogger(&BasicLogger{Level: Info, Emitter: &Writer{Next: tw}}, time.Hour)
	for i := 0; i < 5; i++ {
		l.Warningf("unknown ioctl %d", i)
	}
	if len(tw.lines) != 2 || tw.lines[0] != "unknown ioctl 0" {
		t.Errorf("rate limited logger wrote %q", tw.lines)
	}
	if !l.IsLogging(Warning) || l.IsLogging(Debug) {
		t.Errorf("IsLogging does not follow the underlying logger")
	}
}

func TestMultiEmitter(t *testing.T) {
	a, b := &testWriter{}, &testWriter{}
	m := MultiEmitter{&Writer{Next: a}, &Writer{Next: b}}
	m.Emit(0, Info, time.Now(), "x\n")
	if len(a.lines) != 1 || len(b.lines) != 1 {
		t.Errorf("MultiEmitter wrote %q and %q", a.lines, b.lines)
	}
}

func TestOpenFile(t *testing.T) {
	dir := t.TempDir()
	opts := ProcessOpts{PID: 42, Time: time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC), Command: "glmark2"}
	f, err := OpenFile(filepath.Join(dir, "sub", "%COMMAND%.%PID%.%TIMESTAMP%.trace"), os.O_CREATE|os.O_WRONLY, opts)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close()
	want := filepath.Join(dir, "sub", "glmark2.42.20240506-070809.000000.trace")
	if f.Name() != want {
		t.Errorf("OpenFile opened %q, want %q", f.Name(), want)
	}

	if f, err := OpenFile("", 0, opts); f != nil || err != nil {
		t.Errorf("OpenFile(\"\") = (%v, %v), want (nil, nil)", f, err)
	}
}
