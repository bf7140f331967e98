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

import "testing"

var testFlags = FlagSet{
	{Flag: 1 << 0, Name: "A"},
	{Flag: 1 << 1, Name: "B"},
	{Flag: 1 << 4, Name: "C"},
}

func TestFlagSetParse(t *testing.T) {
	for _, tc := range []struct {
		val  uint64
		want string
	}{
		{0, "0x0"},
		{1, "A"},
		{3, "A | B"},
		{0x13, "A | B | C"},
		{0x112, "B | C | 0x100"},
		{0x8000, "0x8000"},
	} {
		if got := testFlags.Parse(tc.val); got != tc.want {
			t.Errorf("Parse(%#x) = %q, want %q", tc.val, got, tc.want)
		}
	}
}

func TestFlagSetRoundTrip(t *testing.T) {
	for _, val := range []uint64{0, 1, 2, 0x11, 0x13, 0xffff, 0xdead0000beef, ^uint64(0)} {
		got, err := testFlags.ParseNames(testFlags.Parse(val))
		if err != nil {
			t.Fatalf("ParseNames(Parse(%#x)) failed: %v", val, err)
		}
		if got != val {
			t.Errorf("ParseNames(Parse(%#x)) = %#x", val, got)
		}
	}
}

func TestFlagSetParseNamesUnknown(t *testing.T) {
	if _, err := testFlags.ParseNames("A | Z"); err == nil {
		t.Errorf("ParseNames accepted unknown flag")
	}
}

func TestValueSet(t *testing.T) {
	s := ValueSet{1: "ONE", 2: "TWO"}
	if got := s.Parse(2); got != "TWO" {
		t.Errorf("Parse(2) = %q", got)
	}
	if got := s.Parse(7); got != "0x7" {
		t.Errorf("Parse(7) = %q", got)
	}
	if got := s.ParseOr(7, "???"); got != "???" {
		t.Errorf("ParseOr(7) = %q", got)
	}
	if v, ok := s.ParseName("ONE"); !ok || v != 1 {
		t.Errorf("ParseName(ONE) = %d, %t", v, ok)
	}
}
