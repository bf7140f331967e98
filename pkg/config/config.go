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

// Package config holds the tracer configuration. Every setting is a flag,
// and can also be given through a MALITRACE_ environment variable or a TOML
// file named by MALITRACE_CONFIG, so that a preloaded tracer can be
// configured without touching the traced program's command line.
package config

import (
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/peterbourgon/ff/v3"

	"malitrace.dev/malitrace/pkg/abi/mali"
	"malitrace.dev/malitrace/pkg/log"
)

// EnvPrefix prefixes the environment variable of every flag.
const EnvPrefix = "MALITRACE"

// ConfigFlag names the flag (and, with EnvPrefix, the environment variable)
// holding the path of the TOML config file.
const ConfigFlag = "config"

// Log formats.
const (
	LogFormatText   = "text"
	LogFormatJSON   = "json"
	LogFormatLogrus = "logrus"
)

const maxShaderBlobSize = 1 << 20

// Config is the tracer configuration.
type Config struct {
	// Output is the trace output path. Empty or "-" means stdout. %PID%,
	// %TIMESTAMP% and %COMMAND% are expanded.
	Output string

	// LogFormat is the format of diagnostics written to stderr.
	LogFormat string

	// Debug enables debug diagnostics.
	Debug bool

	// Timestamps prefixes each trace line with the trace clock.
	Timestamps bool

	// HexdumpLimit caps the bytes shown per hexdump. Zero is unlimited.
	HexdumpLimit int

	ShaderBlobSize  int
	ShaderCacheSize uint
	ShaderDedup     bool

	// DumpDir enables memory snapshots on every job submission.
	DumpDir      string
	DumpCompress bool

	// ConfigFile is the TOML file the configuration was read from, if any.
	ConfigFile string
}

// RegisterFlags registers flags used to populate a Config.
func RegisterFlags(fs *flag.FlagSet, c *Config) {
	fs.StringVar(&c.ConfigFile, ConfigFlag, "", "TOML file with further settings.")

	fs.StringVar(&c.Output, "output", "", "trace output file, default is stdout. The following variables are available: %PID%, %TIMESTAMP%, %COMMAND%.")
	fs.StringVar(&c.LogFormat, "log-format", LogFormatText, "diagnostics format: text (default), json, or logrus.")
	fs.BoolVar(&c.Debug, "debug", false, "enable debug diagnostics.")
	fs.BoolVar(&c.Timestamps, "timestamps", false, "prefix trace lines with [seconds.micros] timestamps.")
	fs.IntVar(&c.HexdumpLimit, "hexdump-limit", 0, "maximum number of bytes shown per hexdump, 0 for no limit.")

	// Job chain decoding.
	fs.IntVar(&c.ShaderBlobSize, "shader-blob-size", mali.ShaderBlobSize, "bytes of shader code dumped per shader.")
	fs.UintVar(&c.ShaderCacheSize, "shader-cache-size", 128, "number of shader blobs remembered across job chains, 0 disables the cache.")
	fs.BoolVar(&c.ShaderDedup, "shader-dedup", false, "don't dump shader blobs already seen in an earlier job chain.")

	// Memory snapshots.
	fs.StringVar(&c.DumpDir, "dump-dir", "", "directory where memory snapshots are written on job submission, empty disables them.")
	fs.BoolVar(&c.DumpCompress, "dump-compress", true, "zstd compress snapshot memory files.")
}

// Parse parses args, then the environment, then the config file into a new
// Config. Earlier sources take precedence.
func Parse(fs *flag.FlagSet, args []string) (*Config, error) {
	c := &Config{}
	RegisterFlags(fs, c)
	if err := ff.Parse(fs, args,
		ff.WithEnvVarPrefix(EnvPrefix),
		ff.WithConfigFileFlag(ConfigFlag),
		ff.WithConfigFileParser(TOMLParser),
	); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// FromEnvironment returns the Config given by the environment of the calling
// process.
func FromEnvironment() (*Config, error) {
	return Parse(flag.NewFlagSet("malitrace", flag.ContinueOnError), nil)
}

// Default returns a Config with every flag at its default.
func Default() *Config {
	c := &Config{}
	fs := flag.NewFlagSet("default", flag.ContinueOnError)
	RegisterFlags(fs, c)
	return c
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.LogFormat {
	case LogFormatText, LogFormatJSON, LogFormatLogrus:
	default:
		return fmt.Errorf("invalid log format %q, must be %q, %q or %q", c.LogFormat, LogFormatText, LogFormatJSON, LogFormatLogrus)
	}
	if c.HexdumpLimit < 0 {
		return fmt.Errorf("hexdump-limit must not be negative, got %d", c.HexdumpLimit)
	}
	if c.ShaderBlobSize <= 0 || c.ShaderBlobSize > maxShaderBlobSize {
		return fmt.Errorf("shader-blob-size must be in (0, %d], got %d", maxShaderBlobSize, c.ShaderBlobSize)
	}
	if c.ShaderCacheSize > math.MaxUint32 {
		return fmt.Errorf("shader-cache-size must be at most %d, got %d", uint32(math.MaxUint32), c.ShaderCacheSize)
	}
	if c.ShaderDedup && c.ShaderCacheSize == 0 {
		return fmt.Errorf("shader-dedup needs a shader cache, set shader-cache-size")
	}
	return nil
}

// Emitter returns the log emitter selected by LogFormat, writing to w.
func (c *Config) Emitter(w io.Writer) log.Emitter {
	switch c.LogFormat {
	case LogFormatJSON:
		return log.JSONEmitter{Writer: &log.Writer{Next: w}}
	case LogFormatLogrus:
		return log.NewLogrusEmitter(w)
	default:
		return log.GoogleEmitter{Emitter: &log.Writer{Next: w}}
	}
}

// ApplyLogging points the global logger at stderr in the configured format.
func (c *Config) ApplyLogging() {
	log.SetTarget(c.Emitter(os.Stderr))
	if c.Debug {
		log.SetLevel(log.Debug)
	}
}

// OpenOutput opens the trace output. The returned close function is a no-op
// for stdout.
func (c *Config) OpenOutput(opts log.FileOpts) (io.Writer, func() error, error) {
	if c.Output == "" || c.Output == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := log.OpenFile(c.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, opts)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

// Environ returns the environment variables that reproduce c in a child
// process. Settings at their default are left out.
func (c *Config) Environ() []string {
	fs := flag.NewFlagSet("environ", flag.ContinueOnError)
	RegisterFlags(fs, &Config{})
	set := flag.NewFlagSet("current", flag.ContinueOnError)
	var cur Config
	RegisterFlags(set, &cur)
	cur = *c

	var env []string
	fs.VisitAll(func(def *flag.Flag) {
		got := set.Lookup(def.Name).Value.String()
		if got == def.DefValue {
			return
		}
		env = append(env, EnvVar(def.Name)+"="+got)
	})
	sort.Strings(env)
	return env
}

// EnvVar returns the environment variable for a flag.
func EnvVar(flagName string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(flagName))
}
