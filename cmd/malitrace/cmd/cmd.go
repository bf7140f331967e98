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

// Package cmd holds implementations of the malitrace commands.
package cmd

import (
	"fmt"
	"strconv"

	"github.com/google/subcommands"

	"malitrace.dev/malitrace/pkg/hostarch"
	"malitrace.dev/malitrace/pkg/log"
)

// failure reports an error and returns subcommands.ExitFailure.
func failure(format string, args ...any) subcommands.ExitStatus {
	log.Warningf(format, args...)
	return subcommands.ExitFailure
}

// parseAddr parses an address in any base strconv accepts, hex being the
// usual one.
func parseAddr(s string) (hostarch.Addr, error) {
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return hostarch.Addr(v), nil
}
