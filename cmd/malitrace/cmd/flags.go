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
	"sort"
	"strconv"
	"strings"

	"github.com/google/subcommands"

	"malitrace.dev/malitrace/pkg/abi"
	"malitrace.dev/malitrace/pkg/abi/linux"
	"malitrace.dev/malitrace/pkg/abi/mali"
)

// flagSets are the bit sets the flags command knows, by name.
var flagSets = map[string]abi.FlagSet{
	"context":  mali.ContextCreateFlags,
	"core-req": mali.JDCoreReq,
	"map":      linux.MapFlagSet,
	"mem":      mali.MemFlags,
	"prot":     linux.ProtFlagSet,
}

// valueSets are the enumerations the flags command knows, by name.
var valueSets = map[string]abi.ValueSet{
	"coherency":   mali.CoherencyMode,
	"dep-type":    mali.JDDependencyType,
	"gl-mode":     mali.GLMode,
	"import-type": mali.MemImportType,
	"job-type":    mali.JobTypeName,
	"priority":    mali.JDPriority,
	"return-code": mali.ReturnCode,
	"soft-job":    mali.SoftJob,
}

// Flags implements subcommands.Command for the "flags" command.
type Flags struct{}

// Name implements subcommands.Command.Name.
func (*Flags) Name() string {
	return "flags"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Flags) Synopsis() string {
	return "Translate driver flag values to names and back."
}

// Usage implements subcommands.Command.Usage.
func (*Flags) Usage() string {
	return fmt.Sprintf(`flags <set> <value>... - Translate driver flag values to names and back.

A numeric value is printed by name; a name, or names joined by '|', is
printed as a number. Sets: %s.
`, strings.Join(setNames(), ", "))
}

// SetFlags implements subcommands.Command.SetFlags.
func (*Flags) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (*Flags) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() < 2 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	for _, v := range f.Args()[1:] {
		s, err := Translate(f.Arg(0), v)
		if err != nil {
			return failure("%v", err)
		}
		fmt.Println(s)
	}
	return subcommands.ExitSuccess
}

func setNames() []string {
	var names []string
	for n := range flagSets {
		names = append(names, n)
	}
	for n := range valueSets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Translate renders value, a number or names, using the named set.
func Translate(set, value string) (string, error) {
	num, numErr := strconv.ParseUint(value, 0, 64)
	if fs, ok := flagSets[set]; ok {
		if numErr == nil {
			return fs.Parse(num), nil
		}
		v, err := fs.ParseNames(value)
		if err != nil {
			return "", fmt.Errorf("%s: %w", set, err)
		}
		return fmt.Sprintf("%#x", v), nil
	}
	if vs, ok := valueSets[set]; ok {
		if numErr == nil {
			return vs.Parse(num), nil
		}
		v, ok := vs.ParseName(value)
		if !ok {
			return "", fmt.Errorf("%s: unknown value %q", set, value)
		}
		return fmt.Sprintf("%#x", v), nil
	}
	return "", fmt.Errorf("unknown set %q, must be one of %s", set, strings.Join(setNames(), ", "))
}
