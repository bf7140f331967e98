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

package trace

import (
	"bytes"
	"fmt"
	"strings"
)

const bytesPerRow = 16

// Hexdump writes data as rows of 16 bytes:
//
//	000010: 01 02 03 04 05 06 07 08  09 0a 0b 0c 0d 0e 0f 10  |................|
//
// Output is capped at Options.HexdumpLimit bytes.
func (s *Stream) Hexdump(data []byte) {
	shown := data
	if lim := s.opts.HexdumpLimit; lim > 0 && len(shown) > lim {
		shown = shown[:lim]
	}
	var sb strings.Builder
	for off := 0; off < len(shown); off += bytesPerRow {
		end := min(off+bytesPerRow, len(shown))
		sb.Reset()
		formatRow(&sb, off, shown[off:end])
		s.writeLine(sb.String())
	}
	if len(shown) < len(data) {
		s.Printf("... (%d more bytes)", len(data)-len(shown))
	}
}

// HexdumpTrimmed is Hexdump with trailing zero bytes left out.
func (s *Stream) HexdumpTrimmed(data []byte) {
	trimmed := bytes.TrimRight(data, "\x00")
	if len(trimmed) == 0 {
		s.Printf("<%d zero bytes>", len(data))
		return
	}
	s.Hexdump(trimmed)
	if n := len(data) - len(trimmed); n > 0 {
		s.Printf("<%d trailing zero bytes>", n)
	}
}

// FormatHexdump renders data in the Hexdump layout, for output that does not
// go through a Stream.
func FormatHexdump(data []byte) string {
	var sb strings.Builder
	for off := 0; off < len(data); off += bytesPerRow {
		formatRow(&sb, off, data[off:min(off+bytesPerRow, len(data))])
		sb.WriteByte('\n')
	}
	return sb.String()
}

func formatRow(sb *strings.Builder, off int, row []byte) {
	fmt.Fprintf(sb, "%06x:", off)
	for i := 0; i < bytesPerRow; i++ {
		if i == bytesPerRow/2 {
			sb.WriteByte(' ')
		}
		if i < len(row) {
			fmt.Fprintf(sb, " %02x", row[i])
		} else {
			sb.WriteString("   ")
		}
	}
	sb.WriteString("  |")
	for _, c := range row {
		if c < 0x20 || c > 0x7e {
			c = '.'
		}
		sb.WriteByte(c)
	}
	sb.WriteByte('|')
}
