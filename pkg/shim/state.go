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

// State is the lifecycle of the traced device fd. It is observational: no
// transition is enforced on the traced program.
type State int

const (
	// Unbound means the device was never opened.
	Unbound State = iota
	// Bound means the device is open and traced.
	Bound
	// Configured means SET_FLAGS succeeded on the traced fd.
	Configured
	// Closed means the traced fd was closed.
	Closed
)

func (s State) String() string {
	switch s {
	case Unbound:
		return "Unbound"
	case Bound:
		return "Bound"
	case Configured:
		return "Configured"
	case Closed:
		return "Closed"
	default:
		return "State(?)"
	}
}
