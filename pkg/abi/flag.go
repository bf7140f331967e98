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

package abi

import (
	"fmt"
	"strconv"
	"strings"
)

// FlagSeparator joins the names produced by FlagSet.Parse.
const FlagSeparator = " | "

// A FlagSet is a slice of bit-flags and their name.
//
// Names are emitted in slice order, so declare them in the order the
// driver headers do.
type FlagSet []struct {
	Flag uint64
	Name string
}

// Parse returns a pretty version of val, using the flag names for known flags.
// Unknown flags remain numeric.
func (s FlagSet) Parse(val uint64) string {
	var flags []string
	for _, f := range s {
		if f.Flag != 0 && val&f.Flag == f.Flag {
			flags = append(flags, f.Name)
			val &^= f.Flag
		}
	}
	if val != 0 {
		flags = append(flags, "0x"+strconv.FormatUint(val, 16))
	}
	if len(flags) == 0 {
		// Prefer 0 to an empty string.
		return "0x0"
	}
	return strings.Join(flags, FlagSeparator)
}

// Mask returns the union of every named flag.
func (s FlagSet) Mask() uint64 {
	var m uint64
	for _, f := range s {
		m |= f.Flag
	}
	return m
}

// ParseNames is the inverse of Parse. It accepts names and hex residue
// separated by '|', with or without surrounding spaces.
func (s FlagSet) ParseNames(str string) (uint64, error) {
	var val uint64
	for _, tok := range strings.Split(str, "|") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if strings.HasPrefix(tok, "0x") {
			v, err := strconv.ParseUint(tok[2:], 16, 64)
			if err != nil {
				return 0, fmt.Errorf("bad residual %q: %w", tok, err)
			}
			val |= v
			continue
		}
		found := false
		for _, f := range s {
			if f.Name == tok {
				val |= f.Flag
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown flag %q", tok)
		}
	}
	return val, nil
}

// ValueSet is a map of driver values to their name. Parse will use the name
// or the value if unknown.
type ValueSet map[uint64]string

// Parse returns the name of the value associated with `val`. Unknown values
// are converted to hex.
func (s ValueSet) Parse(val uint64) string {
	if v, ok := s[val]; ok {
		return v
	}
	return fmt.Sprintf("%#x", val)
}

// ParseOr returns the name of `val`, or def if it is unknown.
func (s ValueSet) ParseOr(val uint64, def string) string {
	if v, ok := s[val]; ok {
		return v
	}
	return def
}

// ParseName returns the value associated with 'name'. Returns false if no
// value is found.
func (s ValueSet) ParseName(name string) (uint64, bool) {
	for k, v := range s {
		if v == name {
			return k, true
		}
	}
	return 0, false
}
