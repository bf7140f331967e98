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

package dump

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"malitrace.dev/malitrace/pkg/abi/mali"
	"malitrace.dev/malitrace/pkg/gpumem"
	"malitrace.dev/malitrace/pkg/hostarch"
)

// Snapshot is a job submission read back from disk. It implements
// usermem.IO over the CPU addresses of the recorded mappings, so the job
// chain can be decoded offline.
type Snapshot struct {
	Dir      string
	Atoms    []byte
	Registry *gpumem.Registry

	// contents maps the CPU base address of every mapping to its bytes.
	contents map[hostarch.Addr][]byte
}

// Open reads the snapshot in dir.
func Open(dir string) (*Snapshot, error) {
	text, err := os.ReadFile(filepath.Join(dir, atomsFile))
	if err != nil {
		return nil, err
	}
	atoms, err := ParseHexdump(string(text))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", atomsFile, err)
	}

	f, err := os.Open(filepath.Join(dir, tableFile))
	if err != nil {
		return nil, err
	}
	mappings, err := gpumem.ReadTable(f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", tableFile, err)
	}

	s := &Snapshot{
		Dir:      dir,
		Atoms:    atoms,
		Registry: gpumem.NewRegistry(),
		contents: make(map[hostarch.Addr][]byte, len(mappings)),
	}
	for _, m := range mappings {
		if _, err := s.Registry.TrackMmap(m.GPUVA, m.CPUAddr, m.Length, m.Prot, m.Flags); err != nil {
			return nil, fmt.Errorf("%s: %v: %w", tableFile, m, err)
		}
	}
	if err := s.load(mappings); err != nil {
		return nil, err
	}
	return s, nil
}

// load reads every memory file in parallel.
func (s *Snapshot) load(mappings []*gpumem.Mapping) error {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	defer dec.Close()

	var mu sync.Mutex
	g := errgroup.Group{}
	for _, m := range mappings {
		m := m
		g.Go(func() error {
			data, err := s.readMem(dec, m)
			if err != nil {
				return err
			}
			if uint64(len(data)) != m.Length {
				return fmt.Errorf("%v: memory file holds %d bytes", m, len(data))
			}
			mu.Lock()
			s.contents[m.CPUAddr] = data
			mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

func (s *Snapshot) readMem(dec *zstd.Decoder, m *gpumem.Mapping) ([]byte, error) {
	base := filepath.Join(s.Dir, memDir)
	data, err := os.ReadFile(filepath.Join(base, memFileName(m, true)))
	if err == nil {
		out, err := dec.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress %v: %w", m, err)
		}
		return out, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return os.ReadFile(filepath.Join(base, memFileName(m, false)))
}

// Mappings returns the recorded mappings in GPU address order.
func (s *Snapshot) Mappings() []*gpumem.Mapping {
	return s.Registry.Mappings()
}

// JDAtoms decodes the recorded atom array.
func (s *Snapshot) JDAtoms() []mali.JDAtom {
	atoms := make([]mali.JDAtom, len(s.Atoms)/mali.SizeofJDAtom)
	for i := range atoms {
		atoms[i].UnmarshalBytes(s.Atoms[i*mali.SizeofJDAtom:])
	}
	return atoms
}

// Match is a mapping containing a looked up address.
type Match struct {
	Mapping *gpumem.Mapping
	// GPU is set if the address matched the mapping's GPU range.
	GPU    bool
	Offset uint64
}

// Contains returns the mappings whose GPU or CPU range contains addr.
func (s *Snapshot) Contains(addr hostarch.Addr) []Match {
	var ms []Match
	if m := s.Registry.FindByGPU(addr); m != nil {
		ms = append(ms, Match{Mapping: m, GPU: true, Offset: uint64(addr - m.GPUVA)})
	}
	if m := s.Registry.FindByCPU(addr); m != nil {
		ms = append(ms, Match{Mapping: m, Offset: uint64(addr - m.CPUAddr)})
	}
	return ms
}

// CopyIn implements usermem.IO.CopyIn.
func (s *Snapshot) CopyIn(addr hostarch.Addr, dst []byte) (int, error) {
	m := s.Registry.FindByCPU(addr)
	if m == nil {
		return 0, unix.EFAULT
	}
	n := copy(dst, s.contents[m.CPUAddr][addr-m.CPUAddr:])
	if n < len(dst) {
		return n, unix.EFAULT
	}
	return n, nil
}

// CopyOut implements usermem.IO.CopyOut. Snapshots are read-only.
func (s *Snapshot) CopyOut(hostarch.Addr, []byte) (int, error) {
	return 0, unix.EROFS
}

// List returns the snapshot directories under root, which may be a dump
// root or a single session, in the order they were written.
func List(root string) ([]string, error) {
	var dirs []string
	for _, pattern := range []string{"*" + submitSuffix, filepath.Join("*", "*"+submitSuffix)} {
		ms, err := filepath.Glob(filepath.Join(root, pattern))
		if err != nil {
			return nil, err
		}
		dirs = append(dirs, ms...)
	}
	sort.Slice(dirs, func(i, j int) bool {
		return filepath.Base(dirs[i]) < filepath.Base(dirs[j])
	})
	return dirs, nil
}

// ParseHexdump reverses trace.FormatHexdump.
func ParseHexdump(text string) ([]byte, error) {
	var out []byte
	for i, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		off, rest, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("line %d: no offset", i+1)
		}
		if o, err := strconv.ParseUint(strings.TrimSpace(off), 16, 64); err != nil || o != uint64(len(out)) {
			return nil, fmt.Errorf("line %d: bad offset %q", i+1, off)
		}
		if j := strings.IndexByte(rest, '|'); j >= 0 {
			rest = rest[:j]
		}
		for _, f := range strings.Fields(rest) {
			b, err := strconv.ParseUint(f, 16, 8)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", i+1, err)
			}
			out = append(out, byte(b))
		}
	}
	return out, nil
}
