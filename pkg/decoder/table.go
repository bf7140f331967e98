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

package decoder

import (
	"sort"

	"malitrace.dev/malitrace/pkg/abi/linux"
	"malitrace.dev/malitrace/pkg/abi/mali"
	"malitrace.dev/malitrace/pkg/marshal"
)

// Request describes one ioctl the driver defines.
type Request struct {
	Code uint32
	Name string

	// Size is the size of the request's argument struct.
	Size int

	// Pre and Post render the payload before and after the call. buf holds
	// exactly Size bytes. Either may be nil.
	Pre  func(d *Decoder, c *Call, buf []byte)
	Post func(d *Decoder, c *Call, buf []byte)

	// Placeholder is set for requests whose payload layout is unknown.
	Placeholder bool
}

// marshalPtr is satisfied by *T when *T is Marshallable.
type marshalPtr[T any] interface {
	*T
	marshal.Marshallable
}

// typed adapts a decoder taking a typed argument struct to Request.Pre/Post.
func typed[T any, PT marshalPtr[T]](fn func(d *Decoder, c *Call, args PT)) func(*Decoder, *Call, []byte) {
	return func(d *Decoder, c *Call, buf []byte) {
		var args T
		PT(&args).UnmarshalBytes(buf)
		fn(d, c, &args)
	}
}

// placeholder describes a request whose payload layout is unknown; its
// contents are dumped verbatim in both phases.
func placeholder(code uint32, name string) *Request {
	return &Request{
		Code:        code,
		Name:        name,
		Size:        mali.SizeofHeader,
		Pre:         dumpPayload,
		Post:        dumpPayload,
		Placeholder: true,
	}
}

func dumpPayload(d *Decoder, _ *Call, buf []byte) {
	d.out.Hexdump(buf)
}

var requests = []*Request{
	{Code: mali.MALI_IOCTL_GET_VERSION, Name: "GET_VERSION", Size: mali.SizeofGetVersion, Pre: typed(preGetVersion), Post: typed(postGetVersion)},
	{Code: mali.MALI_IOCTL_MEM_ALLOC, Name: "MEM_ALLOC", Size: mali.SizeofMemAlloc, Pre: typed(preMemAlloc), Post: typed(postMemAlloc)},
	{Code: mali.MALI_IOCTL_MEM_IMPORT, Name: "MEM_IMPORT", Size: mali.SizeofMemImport, Pre: typed(preMemImport), Post: typed(postMemImport)},
	{Code: mali.MALI_IOCTL_MEM_COMMIT, Name: "MEM_COMMIT", Size: mali.SizeofMemCommit, Pre: typed(preMemCommit), Post: typed(postMemCommit)},
	{Code: mali.MALI_IOCTL_MEM_QUERY, Name: "MEM_QUERY", Size: mali.SizeofMemQuery, Pre: typed(preMemQuery), Post: typed(postMemQuery)},
	{Code: mali.MALI_IOCTL_MEM_FREE, Name: "MEM_FREE", Size: mali.SizeofMemFree, Pre: typed(preMemFree), Post: typed(postMemFree)},
	{Code: mali.MALI_IOCTL_MEM_FLAGS_CHANGE, Name: "MEM_FLAGS_CHANGE", Size: mali.SizeofMemFlagsChange, Pre: typed(preMemFlagsChange), Post: typed(postMemFlagsChange)},
	{Code: mali.MALI_IOCTL_MEM_ALIAS, Name: "MEM_ALIAS", Size: mali.SizeofMemAlias, Pre: typed(preMemAlias), Post: typed(postMemAlias)},
	{Code: mali.MALI_IOCTL_SYNC, Name: "SYNC", Size: mali.SizeofSync, Pre: typed(preSync), Post: typed(postSync)},
	placeholder(mali.MALI_IOCTL_POST_TERM, "POST_TERM"),
	placeholder(mali.MALI_IOCTL_HWCNT_SETUP, "HWCNT_SETUP"),
	placeholder(mali.MALI_IOCTL_HWCNT_DUMP, "HWCNT_DUMP"),
	placeholder(mali.MALI_IOCTL_HWCNT_CLEAR, "HWCNT_CLEAR"),
	{Code: mali.MALI_IOCTL_GPU_PROPS_REG_DUMP, Name: "GPU_PROPS_REG_DUMP", Size: mali.SizeofGPUPropsRegDump, Post: typed(postGPUProps)},
	placeholder(mali.MALI_IOCTL_FIND_CPU_OFFSET, "FIND_CPU_OFFSET"),
	{Code: mali.MALI_IOCTL_GET_VERSION_NEW, Name: "GET_VERSION_NEW", Size: mali.SizeofGetVersion, Pre: typed(preGetVersion), Post: typed(postGetVersion)},
	{Code: mali.MALI_IOCTL_SET_FLAGS, Name: "SET_FLAGS", Size: mali.SizeofSetFlags, Pre: typed(preSetFlags)},
	placeholder(mali.MALI_IOCTL_SET_TEST_DATA, "SET_TEST_DATA"),
	placeholder(mali.MALI_IOCTL_INJECT_ERROR, "INJECT_ERROR"),
	placeholder(mali.MALI_IOCTL_MODEL_CONTROL, "MODEL_CONTROL"),
	placeholder(mali.MALI_IOCTL_KEEP_GPU_POWERED, "KEEP_GPU_POWERED"),
	placeholder(mali.MALI_IOCTL_FENCE_VALIDATE, "FENCE_VALIDATE"),
	{Code: mali.MALI_IOCTL_STREAM_CREATE, Name: "STREAM_CREATE", Size: mali.SizeofStreamCreate, Pre: typed(preStreamCreate), Post: typed(postStreamCreate)},
	placeholder(mali.MALI_IOCTL_GET_PROFILING_CONTROLS, "GET_PROFILING_CONTROLS"),
	placeholder(mali.MALI_IOCTL_SET_PROFILING_CONTROLS, "SET_PROFILING_CONTROLS"),
	placeholder(mali.MALI_IOCTL_DEBUGFS_MEM_PROFILE_ADD, "DEBUGFS_MEM_PROFILE_ADD"),
	{Code: mali.MALI_IOCTL_JOB_SUBMIT, Name: "JOB_SUBMIT", Size: mali.SizeofJobSubmit, Pre: typed(preJobSubmit)},
	placeholder(mali.MALI_IOCTL_DISJOINT_QUERY, "DISJOINT_QUERY"),
	{Code: mali.MALI_IOCTL_GET_CONTEXT_ID, Name: "GET_CONTEXT_ID", Size: mali.SizeofGetContextID, Post: typed(postGetContextID)},
	placeholder(mali.MALI_IOCTL_TLSTREAM_ACQUIRE_V10_4, "TLSTREAM_ACQUIRE_V10_4"),
	placeholder(mali.MALI_IOCTL_TLSTREAM_TEST, "TLSTREAM_TEST"),
	placeholder(mali.MALI_IOCTL_TLSTREAM_STATS, "TLSTREAM_STATS"),
	placeholder(mali.MALI_IOCTL_TLSTREAM_FLUSH, "TLSTREAM_FLUSH"),
	placeholder(mali.MALI_IOCTL_HWCNT_READER_SETUP, "HWCNT_READER_SETUP"),
	placeholder(mali.MALI_IOCTL_SET_PRFCNT_VALUES, "SET_PRFCNT_VALUES"),
	placeholder(mali.MALI_IOCTL_SOFT_EVENT_UPDATE, "SOFT_EVENT_UPDATE"),
	placeholder(mali.MALI_IOCTL_MEM_JIT_INIT, "MEM_JIT_INIT"),
	placeholder(mali.MALI_IOCTL_TLSTREAM_ACQUIRE, "TLSTREAM_ACQUIRE"),
}

// table indexes requests by type byte and sequence number.
var table [mali.TypeCount][linux.IOC_NRMASK + 1]*Request

func init() {
	for _, r := range requests {
		t, nr := linux.IOC_TYPE(r.Code)-mali.TypeBase, linux.IOC_NR(r.Code)
		if table[t][nr] != nil {
			panic("duplicate request " + r.Name)
		}
		table[t][nr] = r
	}
}

// Lookup returns the request with code's type and sequence number, or nil if
// the driver does not define one. The size and direction in code are not
// checked.
func Lookup(code uint32) *Request {
	if !mali.IsDriverType(code) {
		return nil
	}
	return table[linux.IOC_TYPE(code)-mali.TypeBase][linux.IOC_NR(code)]
}

// LookupName returns the request called name.
func LookupName(name string) (*Request, bool) {
	for _, r := range requests {
		if r.Name == name {
			return r, true
		}
	}
	return nil, false
}

// Requests returns every known request ordered by code.
func Requests() []*Request {
	rs := append([]*Request(nil), requests...)
	sort.Slice(rs, func(i, j int) bool { return rs[i].Code < rs[j].Code })
	return rs
}
