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
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/google/subcommands"

	"malitrace.dev/malitrace/pkg/abi/mali"
	"malitrace.dev/malitrace/pkg/decoder"
)

// Ioctls implements subcommands.Command for the "ioctls" command.
type Ioctls struct {
	output string
}

// IoctlDoc describes one decoded request.
type IoctlDoc struct {
	Name        string `json:"name"`
	Code        uint32 `json:"code"`
	ID          uint32 `json:"id"`
	Size        int    `json:"size"`
	Placeholder bool   `json:"placeholder,omitempty"`
}

var ioctlOutputs = map[string]func(io.Writer, []IoctlDoc) error{
	"table": ioctlTable,
	"json":  ioctlJSON,
}

// Name implements subcommands.Command.Name.
func (*Ioctls) Name() string {
	return "ioctls"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Ioctls) Synopsis() string {
	return "Print the driver requests the tracer decodes."
}

// Usage implements subcommands.Command.Usage.
func (*Ioctls) Usage() string {
	return `ioctls [options] - Print the driver requests the tracer decodes.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (i *Ioctls) SetFlags(f *flag.FlagSet) {
	f.StringVar(&i.output, "o", "table", "Output format (table, json).")
}

// Execute implements subcommands.Command.Execute.
func (i *Ioctls) Execute(context.Context, *flag.FlagSet, ...any) subcommands.ExitStatus {
	out, ok := ioctlOutputs[i.output]
	if !ok {
		return failure("Unsupported output format %q", i.output)
	}
	if err := out(os.Stdout, IoctlDocs()); err != nil {
		return failure("Error writing output: %v", err)
	}
	return subcommands.ExitSuccess
}

// IoctlDocs returns every known request in code order.
func IoctlDocs() []IoctlDoc {
	var docs []IoctlDoc
	for _, r := range decoder.Requests() {
		docs = append(docs, IoctlDoc{
			Name:        r.Name,
			Code:        r.Code,
			ID:          mali.HeaderID(r.Code),
			Size:        r.Size,
			Placeholder: r.Placeholder,
		})
	}
	return docs
}

func ioctlTable(w io.Writer, docs []IoctlDoc) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tID\tNAME\tSIZE\tPAYLOAD")
	for _, d := range docs {
		payload := "decoded"
		if d.Placeholder {
			payload = "hexdump"
		}
		fmt.Fprintf(tw, "%08x\t%04x\t%s\t%d\t%s\n", d.Code, d.ID, d.Name, d.Size, payload)
	}
	return tw.Flush()
}

func ioctlJSON(w io.Writer, docs []IoctlDoc) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(docs)
}
