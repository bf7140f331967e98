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
	"malitrace.dev/malitrace/pkg/hostarch"
	"malitrace.dev/malitrace/pkg/log"
)

func preJobSubmit(d *Decoder, _ *Call, args *mali.JobSubmit) {
	d.out.Printf("addr = %v", hostarch.Addr(args.Addr))
	d.out.Printf("nr_atoms = %d", args.NrAtoms)
	d.out.Printf("stride = %d", args.Stride)

	// A different stride means an older atom layout.
	if args.Stride != mali.SizeofJDAtom {
		d.out.Printf("SIZE MISMATCH (stride should be %d, was %d)", mali.SizeofJDAtom, args.Stride)
		d.out.Printf("Cannot dump atoms, maybe it's a legacy job format?")
		return
	}
	if args.NrAtoms == 0 {
		return
	}

	n := int(min(args.NrAtoms, maxAtoms))
	raw, err := d.readBytes(hostarch.Addr(args.Addr), n*mali.SizeofJDAtom)
	if err != nil {
		d.out.Printf("<%v>", err)
		return
	}

	d.out.Printf("Atoms:")
	d.out.Nested(func() {
		for i := 0; i < n; i++ {
			var a mali.JDAtom
			a.UnmarshalBytes(raw[i*mali.SizeofJDAtom:])
			d.decodeAtom(&a)
		}
		if n < int(args.NrAtoms) {
			d.out.Printf("... (%d more atoms)", int(args.NrAtoms)-n)
		}
	})

	if d.snaps != nil {
		where, err := d.snaps.Snapshot(raw, d.reg.Mappings(), d.mem)
		if err != nil {
			d.out.Printf("<snapshot failed: %v>", err)
			log.Warningf("Job submission snapshot failed: %v", err)
			return
		}
		d.out.Printf("Snapshot written to %s", where)
	}
}

func (d *Decoder) decodeAtom(a *mali.JDAtom) {
	d.out.Printf("jc = %v", hostarch.Addr(a.JC))
	d.out.Nested(func() {
		d.out.Printf("Decoding job chain:")
		d.out.Nested(func() {
			if a.JC != 0 {
				d.walker.Walk(hostarch.Addr(a.JC))
			} else {
				d.out.Printf("<no job chain>")
			}
		})

		d.out.Printf("udata = [0x%x, 0x%x]", a.UData[0], a.UData[1])
		d.out.Printf("nr_ext_res = %d", a.NrExtRes)
		d.decodeExtRes(hostarch.Addr(a.ExtResList), int(a.NrExtRes))
		d.out.Printf("compat_core_req = 0x%x", a.CompatCoreReq)

		d.out.Printf("Pre-dependencies:")
		d.out.Nested(func() {
			for _, dep := range a.PreDep {
				d.out.Printf("atom_id = %d, type = %s", dep.AtomID, mali.JDDependencyType.ParseOr(uint64(dep.DependencyType), "???"))
			}
		})

		d.out.Printf("atom_number = %d", a.AtomNumber)
		d.out.Printf("prio = %d (%s)", a.Prio, mali.JDPriority.ParseOr(uint64(a.Prio), "???"))
		d.out.Printf("device_nr = %d", a.DeviceNr)
		d.out.Printf("Job type = %s", mali.JobKindFromCoreReq(a.CoreReq))
		d.out.Printf("core_req = %s", mali.CoreReqString(a.CoreReq))
	})
}

// decodeExtRes renders the n external resources at list. Each is a handle
// with the access mode in its low bit.
func (d *Decoder) decodeExtRes(list hostarch.Addr, n int) {
	if list == 0 || n == 0 {
		d.out.Printf("<no external resources>")
		return
	}
	shown := min(n, maxExtRes)
	raw, err := d.readBytes(list, shown*8)
	d.out.Printf("External resources:")
	d.out.Nested(func() {
		if err != nil {
			d.out.Printf("<%v>", err)
			return
		}
		for i := 0; i < shown; i++ {
			res := hostarch.ByteOrder.Uint64(raw[i*8:])
			d.out.Printf("%v (%s)", hostarch.Addr(res&^mali.ExtResAccessMask), mali.ExtResAccess.Parse(res&mali.ExtResAccessMask))
		}
		if shown < n {
			d.out.Printf("... (%d more resources)", n-shown)
		}
	})
}
