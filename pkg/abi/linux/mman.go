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

package linux

import (
	"golang.org/x/sys/unix"

	"malitrace.dev/malitrace/pkg/abi"
)

// ProtFlagSet is the set of mmap(2) protection flags.
var ProtFlagSet = abi.FlagSet{
	{
		Flag: unix.PROT_READ,
		Name: "PROT_READ",
	},
	{
		Flag: unix.PROT_WRITE,
		Name: "PROT_WRITE",
	},
	{
		Flag: unix.PROT_EXEC,
		Name: "PROT_EXEC",
	},
}

// MapFlagSet is the set of mmap(2) flags.
var MapFlagSet = abi.FlagSet{
	{
		Flag: unix.MAP_SHARED,
		Name: "MAP_SHARED",
	},
	{
		Flag: unix.MAP_PRIVATE,
		Name: "MAP_PRIVATE",
	},
	{
		Flag: unix.MAP_FIXED,
		Name: "MAP_FIXED",
	},
	{
		Flag: unix.MAP_ANONYMOUS,
		Name: "MAP_ANONYMOUS",
	},
	{
		Flag: unix.MAP_POPULATE,
		Name: "MAP_POPULATE",
	},
	{
		Flag: unix.MAP_NORESERVE,
		Name: "MAP_NORESERVE",
	},
}
