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

package config

import (
	"flag"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"malitrace.dev/malitrace/pkg/log"
)

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func TestDefault(t *testing.T) {
	c, err := Parse(newFlagSet(), nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if diff := cmp.Diff(Default(), c); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
	if c.ShaderBlobSize != 832 || c.LogFormat != LogFormatText || !c.DumpCompress {
		t.Errorf("unexpected defaults: %+v", c)
	}
	if env := c.Environ(); len(env) != 0 {
		t.Errorf("default Environ() = %v, want none", env)
	}
}

func TestFlags(t *testing.T) {
	c, err := Parse(newFlagSet(), []string{"-debug", "-hexdump-limit=64", "-shader-dedup", "-output=/tmp/%PID%.trace"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !c.Debug || c.HexdumpLimit != 64 || !c.ShaderDedup || c.Output != "/tmp/%PID%.trace" {
		t.Errorf("Parse() = %+v", c)
	}
}

func TestEnvironment(t *testing.T) {
	t.Setenv("MALITRACE_TIMESTAMPS", "true")
	t.Setenv("MALITRACE_SHADER_CACHE_SIZE", "7")
	t.Setenv("MALITRACE_DUMP_DIR", "/tmp/dumps")
	c, err := FromEnvironment()
	if err != nil {
		t.Fatalf("FromEnvironment: %v", err)
	}
	if !c.Timestamps || c.ShaderCacheSize != 7 || c.DumpDir != "/tmp/dumps" {
		t.Errorf("FromEnvironment() = %+v", c)
	}
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "malitrace.toml")
	const file = `
log-format = "json"
hexdump-limit = 128

[shader]
cache-size = 32
dedup = true

[dump]
dir = "/var/tmp/mali"
compress = false
`
	if err := os.WriteFile(path, []byte(file), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MALITRACE_CONFIG", path)
	// The environment wins over the file.
	t.Setenv("MALITRACE_HEXDUMP_LIMIT", "16")

	c, err := FromEnvironment()
	if err != nil {
		t.Fatalf("FromEnvironment: %v", err)
	}
	want := Default()
	want.ConfigFile = path
	want.LogFormat = LogFormatJSON
	want.HexdumpLimit = 16
	want.ShaderCacheSize = 32
	want.ShaderDedup = true
	want.DumpDir = "/var/tmp/mali"
	want.DumpCompress = false
	if diff := cmp.Diff(want, c); diff != "" {
		t.Errorf("FromEnvironment() mismatch (-want +got):\n%s", diff)
	}
}

func TestConfigFileUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("no-such-flag = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Parse(newFlagSet(), []string{"-config", path}); err == nil {
		t.Errorf("Parse succeeded with an unknown key")
	}
}

func TestValidate(t *testing.T) {
	for _, tc := range []struct {
		name string
		mod  func(c *Config)
		want string
	}{
		{"log format", func(c *Config) { c.LogFormat = "xml" }, "log format"},
		{"hexdump limit", func(c *Config) { c.HexdumpLimit = -1 }, "hexdump-limit"},
		{"zero blob", func(c *Config) { c.ShaderBlobSize = 0 }, "shader-blob-size"},
		{"huge blob", func(c *Config) { c.ShaderBlobSize = 1<<20 + 1 }, "shader-blob-size"},
		{"dedup without cache", func(c *Config) { c.ShaderDedup = true; c.ShaderCacheSize = 0 }, "shader-dedup"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := Default()
			if err := c.Validate(); err != nil {
				t.Fatalf("default Validate: %v", err)
			}
			tc.mod(c)
			err := c.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("Validate() = %v, want error mentioning %q", err, tc.want)
			}
		})
	}
}

func TestValidateShaderCacheSize(t *testing.T) {
	if math.MaxUint == math.MaxUint32 {
		t.Skip("uint cannot exceed the cache size limit")
	}
	c := Default()
	c.ShaderDedup = true
	c.ShaderCacheSize = uint(math.MaxUint32)
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() at the limit = %v", err)
	}
	c.ShaderCacheSize++
	if err := c.Validate(); err == nil || !strings.Contains(err.Error(), "shader-cache-size") {
		t.Errorf("Validate() = %v, want error mentioning shader-cache-size", err)
	}
}

func TestEnviron(t *testing.T) {
	c := Default()
	c.Debug = true
	c.DumpDir = "/d"
	c.DumpCompress = false
	want := []string{
		"MALITRACE_DEBUG=true",
		"MALITRACE_DUMP_COMPRESS=false",
		"MALITRACE_DUMP_DIR=/d",
	}
	if diff := cmp.Diff(want, c.Environ()); diff != "" {
		t.Errorf("Environ() mismatch (-want +got):\n%s", diff)
	}
	if c.DumpDir != "/d" || !c.Debug {
		t.Errorf("Environ modified the config: %+v", c)
	}
}

func TestOpenOutput(t *testing.T) {
	c := Default()
	w, closeFn, err := c.OpenOutput(log.CurrentProcess())
	if err != nil || w != os.Stdout {
		t.Fatalf("OpenOutput() = %v, %v; want stdout", w, err)
	}
	if err := closeFn(); err != nil {
		t.Errorf("close: %v", err)
	}

	dir := t.TempDir()
	c.Output = filepath.Join(dir, "%COMMAND%-%PID%.trace")
	opts := log.ProcessOpts{PID: 42, Time: time.Unix(0, 0), Command: "glmark2"}
	w, closeFn, err = c.OpenOutput(opts)
	if err != nil {
		t.Fatalf("OpenOutput: %v", err)
	}
	if _, err := w.Write([]byte("hello\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dir, "glmark2-42.trace"))
	if err != nil || string(got) != "hello\n" {
		t.Errorf("output file = %q, %v", got, err)
	}
}

func TestEnvVar(t *testing.T) {
	if got := EnvVar("shader-cache-size"); got != "MALITRACE_SHADER_CACHE_SIZE" {
		t.Errorf("EnvVar = %q", got)
	}
}
