// (c) Copyright cfiverify's authors
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

package analysis

import (
	"github.com/securego/cfiverify/ir"
	"github.com/securego/cfiverify/lattice"
)

// callerSaved are the registers a callee may clobber under the SysV ABI
var callerSaved = []uint8{ir.RAX, ir.RCX, ir.RDX, ir.RSI, ir.RDI, ir.R8, ir.R9, ir.R10, ir.R11}

// fnPtrDisplacement is where the function pointer sits inside a call table
// entry, right after the type tag.
const fnPtrDisplacement = 8

// entryShift scales a table index into a byte offset, one entry being a
// type tag and a function pointer.
const (
	entryShift = 4
	entrySize  = 1 << entryShift
)

// CallAnalyzer tracks where call targets and call table offsets come from.
//
// The sandboxing compiler emits an indirect call as: compare the index with
// the table size and trap unless it is below, scale it into a byte offset,
// load the entry's type tag and trap unless it matches, then load the
// function pointer at [table + offset + 8] and call it.
type CallAnalyzer struct {
	meta *ir.Metadata
}

// NewCallAnalyzer builds a CallAnalyzer for a module
func NewCallAnalyzer(meta *ir.Metadata) *CallAnalyzer {
	return &CallAnalyzer{meta: meta}
}

// InitState implements Analyzer
func (a *CallAnalyzer) InitState(_ *ir.Function) lattice.CallCheckState {
	return lattice.NewCallCheckState()
}

// Join implements Analyzer
func (a *CallAnalyzer) Join(x, y lattice.CallCheckState) lattice.CallCheckState {
	return x.Join(y)
}

// Equal implements Analyzer
func (a *CallAnalyzer) Equal(x, y lattice.CallCheckState) bool {
	return x.Equal(y)
}

// Transfer implements Analyzer
func (a *CallAnalyzer) Transfer(state lattice.CallCheckState, stmt ir.Stmt, _ ir.Location) lattice.CallCheckState {
	next := state
	switch s := stmt.(type) {
	case ir.Clear:
		next.Flag = lattice.Flag{}
		a.write(&next, s.Dst, lattice.Unknown{})
	case ir.Unop:
		switch s.Op {
		case ir.Mov, ir.Movzx, ir.Movsx, ir.Lea:
		default:
			next.Flag = lattice.Flag{}
		}
		a.write(&next, s.Dst, a.evalUnop(&state, s))
	case ir.Binop:
		if !s.Op.WritesDst() {
			next.Flag = a.evalFlag(&state, s)
			break
		}
		next.Flag = lattice.Flag{}
		if delta, ok := stackAdjustment(s); ok {
			next.Stack = next.Stack.Adjust(delta)
			next.Regs.Set(ir.RSP, ir.Size64, lattice.Unknown{})
			break
		}
		a.write(&next, s.Dst, a.evalBinop(&state, s))
	case ir.Call:
		next.Flag = lattice.Flag{}
		for _, r := range callerSaved {
			a.writeReg(&next, r, ir.Size64, lattice.Unknown{})
		}
	case ir.Undefined:
		next = lattice.CallCheckState{}
	case ir.Branch, ir.Ret, ir.ProbeStack:
	}
	return next
}

// ProcessBranch implements Analyzer. A bounds or type comparison only
// becomes a fact on the edge where it is known to have succeeded.
func (a *CallAnalyzer) ProcessBranch(state lattice.CallCheckState, stmt ir.Stmt, _ ir.Location, _ uint64, taken bool) lattice.CallCheckState {
	br, ok := stmt.(ir.Branch)
	if !ok {
		return state
	}
	next := state
	flag := state.Flag
	switch flag.Kind {
	case lattice.BoundsCheck:
		if (br.Cond == ir.JB && taken) || (br.Cond == ir.JAE && !taken) {
			next.Regs.Set(flag.Reg, ir.Size64, lattice.CheckedVal{})
		}
	case lattice.TypeCheck:
		if (br.Cond == ir.JE && taken) || (br.Cond == ir.JNE && !taken) {
			if state.Regs.Get(flag.Reg, ir.Size64) == (lattice.PtrOffset{Check: lattice.Checked}) {
				next.Regs.Set(flag.Reg, ir.Size64, lattice.TypedPtrOffset{Type: flag.Type})
			}
		}
	}
	return next
}

// ClassifyConst returns the fact for a statically known address
func (a *CallAnalyzer) ClassifyConst(target uint64) lattice.CallCheckValue {
	switch {
	case target != 0 && target == a.meta.GuestTable:
		return lattice.GuestTableBase{}
	case a.meta.IsCallTarget(target):
		return lattice.FnPtr{}
	}
	return lattice.Unknown{}
}

func (a *CallAnalyzer) eval(state *lattice.CallCheckState, v ir.Value) lattice.CallCheckValue {
	switch v := v.(type) {
	case ir.Reg:
		return state.Regs.Get(v.Num, v.Size)
	case ir.Mem:
		if off, ok := stackSlot(v); ok && v.Size == ir.Size64 {
			return state.Stack.Get(off)
		}
	case ir.RIPConst:
		return a.ClassifyConst(v.Target)
	case ir.Imm:
	}
	return lattice.Unknown{}
}

func (a *CallAnalyzer) evalUnop(state *lattice.CallCheckState, s ir.Unop) lattice.CallCheckValue {
	switch s.Op {
	case ir.Mov, ir.Movzx, ir.Movsx:
		if m, ok := s.Src.(ir.Mem); ok {
			if v, ok := a.evalTableLoad(state, m); ok {
				return v
			}
		}
		return a.eval(state, s.Src)
	case ir.Lea:
		if c, ok := s.Src.(ir.RIPConst); ok {
			return a.ClassifyConst(c.Target)
		}
	}
	return lattice.Unknown{}
}

// evalTableLoad recognises the two loads out of the call table: the type
// tag at [base + offset] and the function pointer at [base + offset + 8].
func (a *CallAnalyzer) evalTableLoad(state *lattice.CallCheckState, m ir.Mem) (lattice.CallCheckValue, bool) {
	switch args := m.Args.(type) {
	case ir.Mem2Args:
		base, off, offReg, ok := tableOperands(state, args.X, args.Y)
		if !ok {
			return nil, false
		}
		if _, isBase := base.(lattice.GuestTableBase); isBase && off == (lattice.PtrOffset{Check: lattice.Checked}) {
			return lattice.TypeOf{Reg: offReg}, true
		}
	case ir.Mem3Args:
		if disp, ok := args.Z.(ir.MemImm); !ok || disp.Val != fnPtrDisplacement {
			return nil, false
		}
		base, off, _, ok := tableOperands(state, args.X, args.Y)
		if !ok {
			return nil, false
		}
		if _, isBase := base.(lattice.GuestTableBase); !isBase {
			return nil, false
		}
		switch off := off.(type) {
		case lattice.TypedPtrOffset:
			return lattice.FnPtr{Type: off.Type}, true
		case lattice.PtrOffset:
			if off.Check == lattice.Checked {
				return lattice.FnPtr{}, true
			}
		}
	}
	return nil, false
}

// tableOperands orders two address registers as (base, offset) when one of
// them holds the table base.
func tableOperands(state *lattice.CallCheckState, x, y ir.MemArg) (lattice.CallCheckValue, lattice.CallCheckValue, uint8, bool) {
	rx, ok := x.(ir.MemReg)
	if !ok || rx.Size != ir.Size64 {
		return nil, nil, 0, false
	}
	ry, ok := y.(ir.MemReg)
	if !ok || ry.Size != ir.Size64 {
		return nil, nil, 0, false
	}
	vx := state.Regs.Get(rx.Num, ir.Size64)
	vy := state.Regs.Get(ry.Num, ir.Size64)
	if _, ok := vy.(lattice.GuestTableBase); ok {
		return vy, vx, rx.Num, true
	}
	return vx, vy, ry.Num, true
}

func (a *CallAnalyzer) evalBinop(state *lattice.CallCheckState, s ir.Binop) lattice.CallCheckValue {
	switch s.Op {
	case ir.Shl, ir.Mul:
		imm, ok := s.Src2.(ir.Imm)
		if !ok {
			return lattice.Unknown{}
		}
		scalesToEntry := (s.Op == ir.Shl && imm.Val == entryShift) || (s.Op == ir.Mul && imm.Val == entrySize)
		if _, ok := a.eval(state, s.Src1).(lattice.CheckedVal); ok && scalesToEntry {
			return lattice.PtrOffset{Check: lattice.Checked}
		}
		return lattice.PtrOffset{Check: lattice.NotChecked}
	}
	return lattice.Unknown{}
}

func (a *CallAnalyzer) evalFlag(state *lattice.CallCheckState, s ir.Binop) lattice.Flag {
	if s.Op != ir.Cmp {
		return lattice.Flag{}
	}
	reg, ok := s.Src1.(ir.Reg)
	if !ok || reg.Size != ir.Size64 {
		return lattice.Flag{}
	}
	imm, ok := s.Src2.(ir.Imm)
	if !ok {
		return lattice.Flag{}
	}
	if typeOf, ok := state.Regs.Get(reg.Num, reg.Size).(lattice.TypeOf); ok {
		return lattice.Flag{Kind: lattice.TypeCheck, Reg: typeOf.Reg, Type: uint32(imm.Val)}
	}
	if a.meta.TableSize > 0 && imm.Val == a.meta.TableSize {
		return lattice.Flag{Kind: lattice.BoundsCheck, Reg: reg.Num}
	}
	return lattice.Flag{}
}

func (a *CallAnalyzer) write(state *lattice.CallCheckState, dst ir.Value, v lattice.CallCheckValue) {
	switch dst := dst.(type) {
	case ir.Reg:
		if dst.Num == ir.RSP {
			state.Stack = state.Stack.Invalidate()
		}
		a.writeReg(state, dst.Num, dst.Size, v)
	case ir.Mem:
		if off, ok := stackSlot(dst); ok {
			if dst.Size != ir.Size64 {
				v = lattice.Unknown{}
			}
			state.Stack = state.Stack.Set(off, v)
			break
		}
		if addressesRegister(dst) {
			state.Stack = state.Stack.Clobber()
		}
	}
}

// addressesRegister reports whether a memory reference depends on a
// register, in which case it may point into the stack.
func addressesRegister(m ir.Mem) bool {
	if m.Args == nil {
		return true
	}
	for _, arg := range m.Args.Args() {
		if _, ok := arg.(ir.MemReg); ok {
			return true
		}
	}
	return false
}

// writeReg updates a register and drops every fact that was derived from
// its old contents.
func (a *CallAnalyzer) writeReg(state *lattice.CallCheckState, num uint8, size ir.ValSize, v lattice.CallCheckValue) {
	if state.Flag.Kind != lattice.NoFlag && state.Flag.Reg == num {
		state.Flag = lattice.Flag{}
	}
	for i := range state.Regs {
		if t, ok := state.Regs[i].(lattice.TypeOf); ok && t.Reg == num {
			state.Regs[i] = lattice.Unknown{}
		}
	}
	state.Regs.Set(num, size, v)
}

// stackSlot returns the offset of an [rsp] or [rsp + imm] reference
func stackSlot(m ir.Mem) (int64, bool) {
	isRSP := func(arg ir.MemArg) bool {
		r, ok := arg.(ir.MemReg)
		return ok && r.Num == ir.RSP && r.Size == ir.Size64
	}
	switch args := m.Args.(type) {
	case ir.Mem1Arg:
		if isRSP(args.X) {
			return 0, true
		}
	case ir.Mem2Args:
		if imm, ok := args.Y.(ir.MemImm); ok && isRSP(args.X) {
			return imm.Val, true
		}
	}
	return 0, false
}

// stackAdjustment recognises add/sub rsp, imm
func stackAdjustment(s ir.Binop) (int64, bool) {
	dst, ok := s.Dst.(ir.Reg)
	if !ok || dst.Num != ir.RSP || dst.Size != ir.Size64 {
		return 0, false
	}
	src, ok := s.Src1.(ir.Reg)
	if !ok || src.Num != ir.RSP || src.Size != ir.Size64 {
		return 0, false
	}
	imm, ok := s.Src2.(ir.Imm)
	if !ok {
		return 0, false
	}
	switch s.Op {
	case ir.Add:
		return imm.Val, true
	case ir.Sub:
		return -imm.Val, true
	}
	return 0, false
}
