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

package shim

import (
	"os"
	"sync"

	"malitrace.dev/malitrace/pkg/config"
	"malitrace.dev/malitrace/pkg/log"
	"malitrace.dev/malitrace/pkg/usermem"
)

var (
	globalOnce sync.Once
	global     *Tracer
)

// Global returns the process-wide Tracer, creating it from the environment
// on first use. If libc also implements Listener it is installed as the
// Tracer's listener. Configuration problems degrade the trace, they never
// fail the traced program.
func Global(libc Libc) *Tracer {
	globalOnce.Do(func() {
		global = newGlobal(libc)
	})
	return global
}

func newGlobal(libc Libc) *Tracer {
	cfg, err := config.FromEnvironment()
	if err != nil {
		log.Warningf("Invalid configuration, using defaults: %v", err)
		cfg = config.Default()
	}
	cfg.ApplyLogging()

	out, _, err := cfg.OpenOutput(log.CurrentProcess())
	if err != nil {
		log.Warningf("Cannot open trace output, using stdout: %v", err)
		out = os.Stdout
	}
	opts := Options{Config: cfg, Output: out}
	if l, ok := libc.(Listener); ok {
		opts.Listener = l
	}
	mem := usermem.NewHostIO()
	t, err := New(libc, mem, opts)
	if err != nil && cfg.DumpDir != "" {
		log.Warningf("Snapshots disabled: %v", err)
		cfg.DumpDir = ""
		t, err = New(libc, mem, opts)
	}
	if err != nil {
		log.Warningf("Cannot create tracer: %v", err)
		os.Exit(1)
	}
	return t
}
