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

package hostarch

import "fmt"

// AddrRange is a half-open range [Start, End).
type AddrRange struct {
	Start Addr
	End   Addr
}

// RangeOf returns [start, start+length). ok is false if the end would wrap.
func RangeOf(start Addr, length uint64) (ar AddrRange, ok bool) {
	end, ok := start.AddLength(length)
	if !ok {
		return AddrRange{}, false
	}
	return AddrRange{start, end}, true
}

// WellFormed returns true if ar.Start <= ar.End.
func (ar AddrRange) WellFormed() bool {
	return ar.Start <= ar.End
}

// Length returns the length of the range.
func (ar AddrRange) Length() uint64 {
	return uint64(ar.End - ar.Start)
}

// Contains returns true if ar contains x.
func (ar AddrRange) Contains(x Addr) bool {
	return ar.Start <= x && x < ar.End
}

// Overlaps returns true if ar and ar2 overlap.
func (ar AddrRange) Overlaps(ar2 AddrRange) bool {
	return ar.Start < ar2.End && ar2.Start < ar.End
}

// IsSupersetOf returns true if ar is a superset of ar2; that is, if
// ar.Start <= ar2.Start and ar.End >= ar2.End.
func (ar AddrRange) IsSupersetOf(ar2 AddrRange) bool {
	return ar.Start <= ar2.Start && ar.End >= ar2.End
}

// Intersect returns a range consisting of the intersection between ar and ar2.
// If ar and ar2 do not overlap, Intersect returns a range with unspecified
// bounds, but for which Length() == 0.
func (ar AddrRange) Intersect(ar2 AddrRange) AddrRange {
	if ar.Start < ar2.Start {
		ar.Start = ar2.Start
	}
	if ar.End > ar2.End {
		ar.End = ar2.End
	}
	if ar.End < ar.Start {
		ar.End = ar.Start
	}
	return ar
}

// String implements fmt.Stringer.String.
func (ar AddrRange) String() string {
	return fmt.Sprintf("[%#x, %#x)", uint64(ar.Start), uint64(ar.End))
}
