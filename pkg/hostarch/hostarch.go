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

// Package hostarch describes the address space the tracer runs in.
package hostarch

import (
	"encoding/binary"
)

const (
	// PageShift is the binary log of the driver's page size.
	PageShift = 12

	// PageSize is the driver's page size, the unit of every *_pages field.
	PageSize = 1 << PageShift
)

// ByteOrder is the byte order of the driver ABI. Mali GPUs only ship on
// little-endian hosts.
var ByteOrder = binary.LittleEndian
