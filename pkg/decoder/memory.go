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
	"malitrace.dev/malitrace/pkg/abi/mali"
	"malitrace.dev/malitrace/pkg/gpumem"
	"malitrace.dev/malitrace/pkg/hostarch"
	"malitrace.dev/malitrace/pkg/log"
)

func memFlags(flags uint64) string {
	return mali.MemFlags.Parse(flags)
}

func preMemAlloc(d *Decoder, _ *Call, args *mali.MemAlloc) {
	d.out.Printf("va_pages = %d", args.VAPages)
	d.out.Printf("commit_pages = %d", args.CommitPages)
	d.out.Printf("extent = 0x%x", args.Extent)
	d.out.Printf("flags = %s", memFlags(args.Flags))
}

func postMemAlloc(d *Decoder, c *Call, args *mali.MemAlloc) {
	d.out.Printf("flags = %s", memFlags(args.Flags))
	d.out.Printf("gpu_va = %v", hostarch.Addr(args.GPUVA))
	d.out.Printf("va_alignment = %d", args.VAAlignment)
	if !c.Succeeded() {
		return
	}
	a, err := d.reg.TrackAllocation(hostarch.Addr(args.GPUVA), args.Flags, args.VAPages*gpumem.PageSize)
	if err != nil {
		d.out.Printf("<cannot track allocation: %v>", err)
		log.Warningf("Cannot track allocation at %#x: %v", args.GPUVA, err)
		return
	}
	log.Debugf("Tracking %v", a)
}

func preMemImport(d *Decoder, _ *Call, args *mali.MemImport) {
	d.out.Printf("phandle = 0x%x", args.PHandle)
	d.out.Printf("type = %d (%s)", args.Type, mali.MemImportType.ParseOr(uint64(args.Type), "Invalid"))
	d.out.Printf("flags = %s", memFlags(args.Flags))
}

func postMemImport(d *Decoder, _ *Call, args *mali.MemImport) {
	d.out.Printf("gpu_va = %v", hostarch.Addr(args.GPUVA))
	d.out.Printf("va_pages = %d", args.VAPages)
	d.out.Printf("flags = %s", memFlags(args.Flags))
}

func preMemCommit(d *Decoder, _ *Call, args *mali.MemCommit) {
	d.out.Printf("gpu_addr = %v", hostarch.Addr(args.GPUAddr))
	d.out.Printf("pages = %d", args.Pages)
}

func postMemCommit(d *Decoder, _ *Call, args *mali.MemCommit) {
	d.out.Printf("result_subcode = %d", args.ResultSubcode)
}

func preMemQuery(d *Decoder, _ *Call, args *mali.MemQuery) {
	d.out.Printf("gpu_addr = %v", hostarch.Addr(args.GPUAddr))
	d.out.Printf("query = %d (%s)", args.Query, mali.MemQueryKind.ParseOr(uint64(args.Query), "???"))
}

func postMemQuery(d *Decoder, _ *Call, args *mali.MemQuery) {
	if args.Query == mali.MALI_MEM_QUERY_FLAGS {
		d.out.Printf("value = %s", memFlags(args.Value))
		return
	}
	d.out.Printf("value = 0x%x", args.Value)
}

func preMemFree(d *Decoder, _ *Call, args *mali.MemFree) {
	gpu := hostarch.Addr(args.GPUAddr)
	if a := d.reg.FindAllocation(gpu); a != nil && a.GPUVA == gpu {
		d.out.Printf("gpu_addr = %v (%d pages, %s)", gpu, a.Length/gpumem.PageSize, memFlags(a.Flags))
		return
	}
	d.out.Printf("gpu_addr = %v", gpu)
}

func postMemFree(d *Decoder, c *Call, args *mali.MemFree) {
	if !c.Succeeded() {
		return
	}
	if _, ok := d.reg.FreeAllocation(hostarch.Addr(args.GPUAddr)); !ok {
		d.out.Printf("<freed an allocation that was never tracked>")
	}
}

func preMemFlagsChange(d *Decoder, _ *Call, args *mali.MemFlagsChange) {
	d.out.Printf("gpu_va = %v", hostarch.Addr(args.GPUVA))
	d.out.Printf("flags = %s", memFlags(args.Flags))
	d.out.Printf("mask = 0x%x", args.Mask)
}

func postMemFlagsChange(d *Decoder, c *Call, args *mali.MemFlagsChange) {
	if !c.Succeeded() {
		return
	}
	a, ok := d.reg.UpdateFlags(hostarch.Addr(args.GPUVA), args.Flags, args.Mask)
	if !ok {
		d.out.Printf("<flags changed on an allocation that was never tracked>")
		return
	}
	d.out.Printf("flags now %s", memFlags(a.Flags))
}

func preMemAlias(d *Decoder, _ *Call, args *mali.MemAlias) {
	d.out.Printf("flags = %s", memFlags(args.Flags))
	d.out.Printf("stride = %d", args.Stride)
	d.out.Printf("nents = %d", args.NEnts)
	d.out.Printf("ai = 0x%x", args.AI)
	if args.AI == 0 || args.NEnts == 0 {
		return
	}

	n := int(min(args.NEnts, maxAliasEnts))
	raw, err := d.readBytes(hostarch.Addr(args.AI), n*mali.SizeofMemAliasInfo)
	d.out.Nested(func() {
		if err != nil {
			d.out.Printf("<%v>", err)
			return
		}
		for i := 0; i < n; i++ {
			var ai mali.MemAliasInfo
			ai.UnmarshalBytes(raw[i*mali.SizeofMemAliasInfo:])
			d.out.Printf("[%d] handle = %v, offset = %d, length = %d", i, hostarch.Addr(ai.Handle), ai.Offset, ai.Length)
		}
		if uint64(n) < args.NEnts {
			d.out.Printf("... (%d more entries)", args.NEnts-uint64(n))
		}
	})
}

func postMemAlias(d *Decoder, _ *Call, args *mali.MemAlias) {
	d.out.Printf("flags = %s", memFlags(args.Flags))
	d.out.Printf("gpu_va = %v", hostarch.Addr(args.GPUVA))
	d.out.Printf("va_pages = %d", args.VAPages)
}

func preSync(d *Decoder, _ *Call, args *mali.Sync) {
	handle := hostarch.Addr(args.Handle)
	user := hostarch.Addr(args.UserAddr)
	end := user + hostarch.Addr(args.Size)
	if m := d.reg.FindByGPU(handle); m != nil {
		d.out.Printf("handle = %v (end=%v, len=%d)", handle, m.GPURange().End, m.Length)
		d.out.Printf("user_addr = %v - %v (offset=%d)", user, end, int64(user-m.CPUAddr))
	} else {
		d.out.Printf("<unknown handle>")
		d.out.Printf("handle = %v", handle)
		d.out.Printf("user_addr = %v - %v", user, end)
	}
	d.out.Printf("size = %d", args.Size)
	d.out.Printf("type = %d (%s)", args.Type, mali.SyncDirection.ParseOr(uint64(args.Type), "???"))

	if args.Type == mali.MALI_SYNC_TO_DEVICE {
		d.out.Printf("Dumping memory being synced to device:")
		d.out.Nested(func() { d.dumpClient(user, args.Size, false) })
	}
}

func postSync(d *Decoder, _ *Call, args *mali.Sync) {
	if args.Type != mali.MALI_SYNC_TO_CPU {
		return
	}
	d.out.Printf("Dumping memory from device:")
	d.out.Nested(func() { d.dumpClient(hostarch.Addr(args.UserAddr), args.Size, true) })
}

// dumpClient hexdumps size bytes of client memory at addr.
func (d *Decoder) dumpClient(addr hostarch.Addr, size uint64, trimmed bool) {
	n := min(size, maxSyncDump)
	buf, err := d.readBytes(addr, int(n))
	if err != nil {
		d.out.Printf("<%v>", err)
		return
	}
	if trimmed {
		d.out.HexdumpTrimmed(buf)
	} else {
		d.out.Hexdump(buf)
	}
	if n < size {
		d.out.Printf("... (%d bytes not read)", size-n)
	}
}
