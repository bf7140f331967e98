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
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// TOMLParser is an ff.ConfigFileParser for TOML files. Keys name flags;
// keys of a table are joined to the table name with '-', so
//
//	[shader]
//	cache-size = 64
//
// sets -shader-cache-size.
func TOMLParser(r io.Reader, set func(name, value string) error) error {
	var m map[string]any
	if _, err := toml.NewDecoder(r).Decode(&m); err != nil {
		return fmt.Errorf("decoding TOML: %w", err)
	}
	return setTable("", m, set)
}

func setTable(prefix string, m map[string]any, set func(name, value string) error) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		name := k
		if prefix != "" {
			name = prefix + "-" + k
		}
		switch v := m[k].(type) {
		case map[string]any:
			if err := setTable(name, v, set); err != nil {
				return err
			}
		case []any:
			strs := make([]string, len(v))
			for i, e := range v {
				strs[i] = fmt.Sprint(e)
			}
			if err := set(name, strings.Join(strs, ",")); err != nil {
				return err
			}
		default:
			if err := set(name, fmt.Sprint(v)); err != nil {
				return err
			}
		}
	}
	return nil
}
