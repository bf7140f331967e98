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

package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/subcommands"

	"malitrace.dev/malitrace/pkg/abi/linux"
	"malitrace.dev/malitrace/pkg/abi/mali"
	"malitrace.dev/malitrace/pkg/dump"
	"malitrace.dev/malitrace/pkg/hostarch"
	"malitrace.dev/malitrace/pkg/jobchain"
	"malitrace.dev/malitrace/pkg/trace"
)

// Dump implements subcommands.Command for the "dump" command.
type Dump struct {
	contains       string
	jobs           bool
	shaderBlobSize int
	hexdumpLimit   int
}

// Name implements subcommands.Command.Name.
func (*Dump) Name() string {
	return "dump"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Dump) Synopsis() string {
	return "Inspect job submission snapshots."
}

// Usage implements subcommands.Command.Usage.
func (*Dump) Usage() string {
	return `dump [flags] <dir> - Inspect job submission snapshots.

<dir> is a snapshot, a session, or a dump directory holding sessions.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (d *Dump) SetFlags(f *flag.FlagSet) {
	f.StringVar(&d.contains, "contains", "", "print the mappings holding this GPU or CPU address.")
	f.BoolVar(&d.jobs, "jobs", false, "decode the job chains of every atom.")
	f.IntVar(&d.shaderBlobSize, "shader-blob-size", mali.ShaderBlobSize, "bytes of shader code dumped per shader.")
	f.IntVar(&d.hexdumpLimit, "hexdump-limit", 0, "maximum number of bytes shown per hexdump, 0 for no limit.")
}

// Execute implements subcommands.Command.Execute.
func (d *Dump) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	opts := InspectOptions{
		Jobs: d.jobs,
		Walker: jobchain.Options{
			ShaderBlobSize: d.shaderBlobSize,
		},
		HexdumpLimit: d.hexdumpLimit,
	}
	if d.contains != "" {
		addr, err := parseAddr(d.contains)
		if err != nil {
			return failure("%v", err)
		}
		opts.Contains = &addr
	}
	if err := Inspect(os.Stdout, f.Arg(0), opts); err != nil {
		return failure("%v", err)
	}
	return subcommands.ExitSuccess
}

// InspectOptions selects what Inspect prints.
type InspectOptions struct {
	// Contains, if set, limits the output to the mappings holding this
	// address.
	Contains *hostarch.Addr

	// Jobs decodes the job chain of every atom.
	Jobs   bool
	Walker jobchain.Options

	HexdumpLimit int
}

// Inspect prints the snapshots found under dir.
func Inspect(w io.Writer, dir string, opts InspectOptions) error {
	dirs := []string{dir}
	if _, err := os.Stat(filepath.Join(dir, "atoms")); errors.Is(err, os.ErrNotExist) {
		ds, err := dump.List(dir)
		if err != nil {
			return err
		}
		if len(ds) == 0 {
			return fmt.Errorf("no snapshots under %s", dir)
		}
		dirs = ds
	}

	out := trace.New(w, trace.Options{HexdumpLimit: opts.HexdumpLimit})
	for _, d := range dirs {
		snap, err := dump.Open(d)
		if err != nil {
			return fmt.Errorf("%s: %w", d, err)
		}
		out.Printf("Snapshot %s", d)
		var werr error
		out.Nested(func() {
			if opts.Contains != nil {
				printMatches(out, snap, *opts.Contains)
				return
			}
			werr = printSnapshot(out, snap, opts)
		})
		if werr != nil {
			return werr
		}
	}
	return nil
}

func printMatches(out *trace.Stream, snap *dump.Snapshot, addr hostarch.Addr) {
	ms := snap.Contains(addr)
	if len(ms) == 0 {
		out.Printf("%v is not mapped", addr)
		return
	}
	for _, m := range ms {
		space := "CPU"
		if m.GPU {
			space = "GPU"
		}
		out.Printf("%s %v: %v +%#x", space, addr, m.Mapping, m.Offset)
	}
}

func printSnapshot(out *trace.Stream, snap *dump.Snapshot, opts InspectOptions) error {
	mappings := snap.Mappings()
	out.Printf("Mappings (%d):", len(mappings))
	out.Nested(func() {
		for _, m := range mappings {
			out.Printf("%v %s %s", m, linux.ProtFlagSet.Parse(uint64(m.Prot)), linux.MapFlagSet.Parse(uint64(m.Flags)))
		}
	})

	var walker *jobchain.Walker
	if opts.Jobs {
		var err error
		if walker, err = jobchain.New(snap.Registry, snap, out, opts.Walker); err != nil {
			return err
		}
	}

	atoms := snap.JDAtoms()
	out.Printf("Atoms (%d):", len(atoms))
	out.Nested(func() {
		for i := range atoms {
			a := &atoms[i]
			out.Printf("%d: atom_number = %d, jc = %v, %s", i, a.AtomNumber, hostarch.Addr(a.JC), mali.JobKindFromCoreReq(a.CoreReq))
			if walker == nil {
				continue
			}
			out.Nested(func() {
				if a.JC == 0 {
					out.Printf("<no job chain>")
					return
				}
				walker.Walk(hostarch.Addr(a.JC))
			})
		}
	})
	return nil
}
