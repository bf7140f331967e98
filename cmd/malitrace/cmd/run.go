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
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/subcommands"
	"golang.org/x/sys/unix"

	"malitrace.dev/malitrace/pkg/config"
	"malitrace.dev/malitrace/pkg/log"
)

// LibraryName is the file name of the preload library.
const LibraryName = "libmalitrace.so"

// Run implements subcommands.Command for the "run" command.
type Run struct {
	lib string
	cfg config.Config
}

// Name implements subcommands.Command.Name.
func (*Run) Name() string {
	return "run"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Run) Synopsis() string {
	return "Run a program with its Mali driver calls traced."
}

// Usage implements subcommands.Command.Usage.
func (*Run) Usage() string {
	return `run [flags] <program> [args...] - Run a program with the preload library.

The trace settings below are passed to the program's environment as
MALITRACE_* variables. Settings already in the environment are kept unless
overridden by a flag.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (r *Run) SetFlags(f *flag.FlagSet) {
	f.StringVar(&r.lib, "lib", "", "path to "+LibraryName+", default is next to this binary.")
	config.RegisterFlags(f, &r.cfg)
}

// Execute implements subcommands.Command.Execute.
func (r *Run) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() < 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	if err := r.cfg.Validate(); err != nil {
		return failure("%v", err)
	}
	lib, err := r.library()
	if err != nil {
		return failure("%v", err)
	}
	path, err := exec.LookPath(f.Arg(0))
	if err != nil {
		return failure("%v", err)
	}

	env := Environ(os.Environ(), lib, r.cfg.Environ())
	log.Infof("Execve %q with %s", path, lib)
	err = unix.Exec(path, f.Args(), env)
	return failure("error executing %s: %v", path, err)
}

// library returns the absolute path of the preload library.
func (r *Run) library() (string, error) {
	lib := r.lib
	if lib == "" {
		exe, err := os.Executable()
		if err != nil {
			return "", fmt.Errorf("locating %s: %w", LibraryName, err)
		}
		lib = filepath.Join(filepath.Dir(exe), LibraryName)
	}
	lib, err := filepath.Abs(lib)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(lib); err != nil {
		return "", fmt.Errorf("preload library: %w", err)
	}
	return lib, nil
}

// Environ returns base with lib prepended to LD_PRELOAD and the settings in
// extra, each NAME=value, replacing any earlier value of the same variable.
func Environ(base []string, lib string, extra []string) []string {
	const preload = "LD_PRELOAD"
	set := make(map[string]string)
	var order []string
	put := func(kv string) {
		name, val, _ := strings.Cut(kv, "=")
		if _, ok := set[name]; !ok {
			order = append(order, name)
		}
		set[name] = val
	}
	for _, kv := range base {
		put(kv)
	}
	for _, kv := range extra {
		put(kv)
	}

	libs := []string{lib}
	for _, l := range strings.FieldsFunc(set[preload], func(r rune) bool { return r == ':' || r == ' ' }) {
		if l != lib {
			libs = append(libs, l)
		}
	}
	put(preload + "=" + strings.Join(libs, ":"))

	env := make([]string, 0, len(order))
	for _, name := range order {
		env = append(env, name+"="+set[name])
	}
	return env
}
