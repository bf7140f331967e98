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

package gpumem

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"malitrace.dev/malitrace/pkg/hostarch"
)

// WriteTable writes one line per mapping:
//
//	gpu_va cpu_va length prot flags
//
// with every field in hex.
func WriteTable(w io.Writer, maps []*Mapping) error {
	bw := bufio.NewWriter(w)
	for _, m := range maps {
		if _, err := fmt.Fprintf(bw, "%x %x %x %x %x\n", uint64(m.GPUVA), uint64(m.CPUAddr), m.Length, uint32(m.Prot), uint32(m.Flags)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadTable parses the output of WriteTable. Blank lines and lines starting
// with '#' are ignored.
func ReadTable(r io.Reader) ([]*Mapping, error) {
	var maps []*Mapping
	sc := bufio.NewScanner(r)
	for lineno := 1; sc.Scan(); lineno++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var gpu, cpu, length uint64
		var prot, flags uint32
		if n, err := fmt.Sscanf(line, "%x %x %x %x %x", &gpu, &cpu, &length, &prot, &flags); err != nil {
			return nil, fmt.Errorf("line %d: parsed %d of 5 fields: %w", lineno, n, err)
		}
		maps = append(maps, &Mapping{
			GPUVA:   hostarch.Addr(gpu),
			CPUAddr: hostarch.Addr(cpu),
			Length:  length,
			Prot:    int32(prot),
			Flags:   int32(flags),
		})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return maps, nil
}
