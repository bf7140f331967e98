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
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

// GoogleEmitter is a wrapper that emits logs in a format compatible with
// package github.com/golang/glog. The library logs from inside whatever
// program loaded it, so the thread id column carries the pid and the
// program name instead:
//
//	Lmmdd hh:mm:ss.uuuuuu    pid comm file:line] msg
type GoogleEmitter struct {
	// Emitter is the underlying emitter.
	Emitter
}

// glogTime lays out the mmdd hh:mm:ss.uuuuuu column.
const glogTime = "0102 15:04:05.000000"

// program is the base name of the running executable.
var program = sync.OnceValue(func() string {
	return filepath.Base(os.Args[0])
})

func levelByte(l Level) byte {
	switch l {
	case Warning:
		return 'W'
	case Info:
		return 'I'
	case Debug:
		return 'D'
	}
	return '?'
}

// caller returns file:line of the frame depth levels above its caller, or ""
// if the stack is not that deep.
func caller(depth int) string {
	_, file, line, ok := runtime.Caller(depth + 1)
	if !ok {
		return ""
	}
	if slash := strings.LastIndexByte(file, '/'); slash >= 0 {
		file = file[slash+1:]
	}
	return file + ":" + strconv.Itoa(line)
}

// Emit emits the message, google-style.
func (g GoogleEmitter) Emit(depth int, level Level, timestamp time.Time, format string, args ...any) {
	at := caller(depth + 1)
	if at == "" {
		at = "???:0"
	}
	b := make([]byte, 0, 64+len(format))
	b = append(b, levelByte(level))
	b = timestamp.AppendFormat(b, glogTime)
	// The header becomes part of the format, so a '%' in the program name
	// must not start a verb.
	b = fmt.Appendf(b, " %7d %s %s] ", os.Getpid(), strings.ReplaceAll(program(), "%", "%%"), at)
	b = append(b, format...)
	b = append(b, '\n')

	g.Emitter.Emit(depth+1, level, timestamp, string(b), args...)
}
