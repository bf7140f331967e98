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
	"math"

	"malitrace.dev/malitrace/pkg/abi/mali"
)

func preGetVersion(d *Decoder, _ *Call, args *mali.GetVersion) {
	d.out.Printf("major = %d", args.Major)
	d.out.Printf("minor = %d", args.Minor)
}

func postGetVersion(d *Decoder, _ *Call, args *mali.GetVersion) {
	d.out.Printf("major = %d", args.Major)
	d.out.Printf("minor = %d", args.Minor)
	if args.Major != mali.SupportedMajorVersion {
		d.out.Printf("<driver speaks UK %d.%d, layouts describe UK %d>", args.Major, args.Minor, mali.SupportedMajorVersion)
	}
}

func preSetFlags(d *Decoder, _ *Call, args *mali.SetFlags) {
	d.out.Printf("create_flags = %08x (%s)", args.CreateFlags, mali.ContextCreateFlags.Parse(uint64(args.CreateFlags)))
}

func preStreamCreate(d *Decoder, _ *Call, args *mali.StreamCreate) {
	d.out.Printf("name = %s", args.NameString())
}

func postStreamCreate(d *Decoder, _ *Call, args *mali.StreamCreate) {
	d.out.Printf("fd = %d", args.FD)
}

func postGetContextID(d *Decoder, _ *Call, args *mali.GetContextID) {
	d.out.Printf("id = 0x%x", args.ID)
}

func yesNo(v uint64) string {
	if v != 0 {
		return "yes"
	}
	return "no"
}

func postGPUProps(d *Decoder, _ *Call, args *mali.GPUPropsRegDump) {
	out := d.out
	core := &args.Core
	out.Printf("core:")
	out.Nested(func() {
		out.Printf("Product ID: %d", core.ProductID)
		out.Printf("Version status: %d", core.VersionStatus)
		out.Printf("Minor revision: %d", core.MinorRevision)
		out.Printf("Major revision: %d", core.MajorRevision)
		out.Printf("GPU speed (?): %dMHz", core.GPUSpeedMHz)
		out.Printf("GPU frequencies (?): %dKHz-%dKHz", core.GPUFreqKHzMin, core.GPUFreqKHzMax)
		out.Printf("Shader program counter size: %.0f MB", math.Exp2(float64(core.Log2ProgramCounterSize))/1024/1024)
		out.Printf("Texture features:")
		out.Nested(func() {
			for _, f := range core.TextureFeatures {
				out.Printf("%010x", f)
			}
		})
		out.Printf("Available memory: %d bytes", core.GPUAvailableMemorySize)
	})

	out.Printf("L2 cache:")
	out.Nested(func() {
		out.Printf("Line size: %.0f (bytes, words?)", math.Exp2(float64(args.L2.Log2LineSize)))
		out.Printf("Cache size: %.0f KB", math.Exp2(float64(args.L2.Log2CacheSize))/1024)
		out.Printf("L2 slice count: %d", args.L2.NumL2Slices)
	})

	out.Printf("Tiler:")
	out.Nested(func() {
		out.Printf("Binary size: %d bytes", args.Tiler.BinSizeBytes)
		out.Printf("Max active levels: %d", args.Tiler.MaxActiveLevels)
	})

	th := &args.Thread
	out.Printf("Threads:")
	out.Nested(func() {
		out.Printf("Max threads: %d", th.MaxThreads)
		out.Printf("Max threads per workgroup: %d", th.MaxWorkgroupSize)
		out.Printf("Max threads allowed for synchronizing on simple barrier: %d", th.MaxBarrierSize)
		out.Printf("Max registers available per-core: %d", th.MaxRegisters)
		out.Printf("Max tasks that can be sent to a core before blocking: %d", th.MaxTaskQueue)
		out.Printf("Max allowed thread group split value: %d", th.MaxThreadGroupSplit)
		out.Printf("Implementation type: %d (%s)", th.ImplTech, mali.ImplementationTech.ParseOr(uint64(th.ImplTech), "???"))
	})

	raw := &args.Raw
	out.Printf("Raw props:")
	out.Nested(func() {
		out.Printf("Shader present? %s", yesNo(raw.ShaderPresent))
		out.Printf("Tiler present? %s", yesNo(raw.TilerPresent))
		out.Printf("L2 present? %s", yesNo(raw.L2Present))
		out.Printf("Stack present? %s", yesNo(raw.StackPresent))
		out.Printf("L2 features: 0x%010x", raw.L2Features)
		out.Printf("Suspend size: %d", raw.SuspendSize)
		out.Printf("Memory features: 0x%010x", raw.MemFeatures)
		out.Printf("MMU features: 0x%010x", raw.MMUFeatures)
		out.Printf("AS present? %s", yesNo(uint64(raw.ASPresent)))
		out.Printf("JS present? %s", yesNo(uint64(raw.JSPresent)))
		out.Printf("JS features:")
		out.Nested(func() {
			for _, f := range raw.JSFeatures {
				out.Printf("%010x", f)
			}
		})
		out.Printf("Tiler features: %010x", raw.TilerFeatures)
		out.Printf("GPU ID: 0x%x", raw.GPUID)
		out.Printf("Thread features: 0x%x", raw.ThreadFeatures)
		out.Printf("Coherency mode: 0x%x (%s)", raw.CoherencyMode, mali.CoherencyMode.ParseOr(uint64(raw.CoherencyMode), "???"))
	})

	ci := &args.CoherencyInfo
	out.Printf("Coherency info:")
	out.Nested(func() {
		out.Printf("Number of groups: %d", ci.NumGroups)
		out.Printf("Number of core groups (coherent or not): %d", ci.NumCoreGroups)
		out.Printf("Features: 0x%x", ci.Coherency)
		out.Printf("Groups:")
		out.Nested(func() {
			for _, g := range ci.Group[:min(int(ci.NumGroups), len(ci.Group))] {
				out.Printf("- Core mask: %010x", g.CoreMask)
				out.Printf("  Number of cores: %d", g.NumCores)
			}
		})
	})
}
