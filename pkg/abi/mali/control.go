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

package mali

import (
	"bytes"

	"malitrace.dev/malitrace/pkg/abi"
)

// GetVersion is struct mali_ioctl_get_version. The caller passes the version
// it was built against; the driver replies with its own.
type GetVersion struct {
	Header
	Major uint16 // in/out
	Minor uint16 // in/out
	Pad   uint32
}

// SetFlags is struct mali_ioctl_set_flags.
type SetFlags struct {
	Header
	CreateFlags uint32 // in
	Pad         uint32
}

// Context creation flags.
const (
	BASE_CONTEXT_CCTX_EMBEDDED                  = 1 << 0
	BASE_CONTEXT_SYSTEM_MONITOR_SUBMIT_DISABLED = 1 << 1
	BASE_CONTEXT_HINT_ONLY_COMPUTE              = 1 << 2
)

// ContextCreateFlags is the set of SetFlags.CreateFlags.
var ContextCreateFlags = abi.FlagSet{
	{Flag: BASE_CONTEXT_CCTX_EMBEDDED, Name: "CCTX_EMBEDDED"},
	{Flag: BASE_CONTEXT_SYSTEM_MONITOR_SUBMIT_DISABLED, Name: "SYSTEM_MONITOR_SUBMIT_DISABLED"},
	{Flag: BASE_CONTEXT_HINT_ONLY_COMPUTE, Name: "HINT_ONLY_COMPUTE"},
}

// Sync directions, enum base_syncset_op.
const (
	MALI_SYNC_TO_DEVICE = 1
	MALI_SYNC_TO_CPU    = 2
)

// SyncDirection names sync directions.
var SyncDirection = abi.ValueSet{
	MALI_SYNC_TO_DEVICE: "device <- CPU",
	MALI_SYNC_TO_CPU:    "device -> CPU",
}

// Sync is struct kbase_uk_sync_now.
type Sync struct {
	Header
	Handle   uint64 // in, GPU address of the allocation
	UserAddr uint64 // in, CPU address of the range to sync
	Size     uint64 // in
	Type     uint8  // in
	Pad      [7]byte
}

// StreamCreate is struct kbase_uk_stream_create.
type StreamCreate struct {
	Header
	Name [32]byte // in
	FD   int32    // out
	Pad  uint32
}

// NameString returns Name up to the first NUL.
func (s *StreamCreate) NameString() string {
	if i := bytes.IndexByte(s.Name[:], 0); i >= 0 {
		return string(s.Name[:i])
	}
	return string(s.Name[:])
}

// GetContextID is struct kbase_uk_context_id.
type GetContextID struct {
	Header
	ID int64 // out
}
