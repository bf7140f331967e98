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

// Binary malitrace launches programs under the Mali trace preload library
// and inspects what it recorded.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"

	"malitrace.dev/malitrace/cmd/malitrace/cmd"
	"malitrace.dev/malitrace/pkg/config"
	"malitrace.dev/malitrace/pkg/log"
)

var (
	debug     = flag.Bool("debug", false, "enable debug logging.")
	logFormat = flag.String("log-format", config.LogFormatText, "log format: text (default), json, or logrus.")
)

func main() {
	forEachCmd(subcommands.Register)
	flag.Parse()

	c := config.Default()
	c.LogFormat = *logFormat
	c.Debug = *debug
	if err := c.Validate(); err != nil {
		log.Warningf("%v", err)
		os.Exit(2)
	}
	c.ApplyLogging()

	os.Exit(int(subcommands.Execute(context.Background())))
}

// forEachCmd invokes the passed callback for each malitrace command.
func forEachCmd(cb func(cmd subcommands.Command, group string)) {
	cb(subcommands.HelpCommand(), "")
	cb(subcommands.FlagsCommand(), "")
	cb(new(cmd.Run), "")

	const inspectGroup = "inspection"
	cb(new(cmd.Dump), inspectGroup)
	cb(new(cmd.Flags), inspectGroup)
	cb(new(cmd.Ioctls), inspectGroup)
}
