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

// Package dump persists the GPU memory a job submission references, and
// reads it back.
//
// A session directory is created per traced process:
//
//	<root>/<session uuid>/<sec>.<nsec>-JOB_SUBMIT/
//		atoms         hexdump of the submitted atom array
//		mmap_table    one "gpu_va cpu_va length prot flags" line per mapping
//		mem/<gpu_va>-<cpu_va>.bin[.zst]
//
// Memory files are zstd compressed when the writer is configured to.
package dump

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/errgroup"

	"malitrace.dev/malitrace/pkg/gpumem"
	"malitrace.dev/malitrace/pkg/trace"
	"malitrace.dev/malitrace/pkg/usermem"
)

const (
	atomsFile    = "atoms"
	tableFile    = "mmap_table"
	memDir       = "mem"
	binSuffix    = ".bin"
	zstSuffix    = ".zst"
	submitSuffix = "-JOB_SUBMIT"
)

// WriterOptions configures a Writer.
type WriterOptions struct {
	// Compress enables zstd compression of memory files.
	Compress bool

	// Clock names snapshot directories. Defaults to trace.RealClock.
	Clock trace.Clock

	// Parallelism bounds the number of memory files written at once.
	// Defaults to 4.
	Parallelism int
}

// Writer writes snapshots into a session directory.
type Writer struct {
	session string
	opts    WriterOptions
	enc     *zstd.Encoder
}

// NewWriter creates a new session directory under root.
func NewWriter(root string, opts WriterOptions) (*Writer, error) {
	if opts.Clock == nil {
		opts.Clock = trace.RealClock{}
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = 4
	}
	dir := filepath.Join(root, uuid.New().String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}
	w := &Writer{session: dir, opts: opts}
	if opts.Compress {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create encoder: %w", err)
		}
		w.enc = enc
	}
	return w, nil
}

// Session returns the session directory.
func (w *Writer) Session() string {
	return w.session
}

// Snapshot implements decoder.Snapshotter.Snapshot. It returns the snapshot
// directory.
func (w *Writer) Snapshot(atoms []byte, mappings []*gpumem.Mapping, mem usermem.IO) (string, error) {
	now := w.opts.Clock.Now()
	dir := filepath.Join(w.session, fmt.Sprintf("%d.%09d%s", now.Unix(), now.Nanosecond(), submitSuffix))
	if err := os.MkdirAll(filepath.Join(dir, memDir), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, atomsFile), []byte(trace.FormatHexdump(atoms)), 0o644); err != nil {
		return "", err
	}
	if err := w.writeTable(filepath.Join(dir, tableFile), mappings); err != nil {
		return "", err
	}

	g := errgroup.Group{}
	g.SetLimit(w.opts.Parallelism)
	for _, m := range mappings {
		m := m
		g.Go(func() error {
			return w.writeMapping(dir, m, mem)
		})
	}
	if err := g.Wait(); err != nil {
		return dir, err
	}
	return dir, nil
}

func (w *Writer) writeTable(path string, mappings []*gpumem.Mapping) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := gpumem.WriteTable(f, mappings); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

func (w *Writer) writeMapping(dir string, m *gpumem.Mapping, mem usermem.IO) error {
	buf := make([]byte, m.Length)
	if _, err := mem.CopyIn(m.CPUAddr, buf); err != nil {
		return fmt.Errorf("reading %v: %w", m, err)
	}
	if w.enc != nil {
		buf = w.enc.EncodeAll(buf, nil)
	}
	return os.WriteFile(filepath.Join(dir, memDir, memFileName(m, w.enc != nil)), buf, 0o644)
}

// memFileName names the memory file of m. The same GPU range may be mapped
// at several CPU addresses, so both are part of the name.
func memFileName(m *gpumem.Mapping, compressed bool) string {
	name := fmt.Sprintf("%x-%x%s", uint64(m.GPUVA), uint64(m.CPUAddr), binSuffix)
	if compressed {
		name += zstSuffix
	}
	return name
}
