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

// Package ir holds the intermediate representation of disassembled sandboxed
// machine code consumed by the verifier.
package ir

import (
	"fmt"
	"strings"
)

// ValSize is the width class of a register or memory operand
type ValSize int

// Operand widths
const (
	Size8   ValSize = 8
	Size16  ValSize = 16
	Size32  ValSize = 32
	Size64  ValSize = 64
	Size128 ValSize = 128
	Size256 ValSize = 256
)

// Valid reports whether s is one of the supported width classes
func (s ValSize) Valid() bool {
	switch s {
	case Size8, Size16, Size32, Size64, Size128, Size256:
		return true
	}
	return false
}

// General purpose registers in x86-64 encoding order.
const (
	RAX uint8 = iota
	RCX
	RDX
	RBX
	RSP
	RBP
	RSI
	RDI
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15
	// NumGPRs is the number of general purpose registers. Register numbers
	// at or above it name vector registers.
	NumGPRs
)

// Location identifies a statement: the address of the instruction and the
// index of the statement among the instruction's effects.
type Location struct {
	Addr uint64 `json:"addr" yaml:"addr"`
	Idx  int    `json:"idx" yaml:"idx"`
}

// Less orders locations in program order
func (l Location) Less(other Location) bool {
	if l.Addr != other.Addr {
		return l.Addr < other.Addr
	}
	return l.Idx < other.Idx
}

func (l Location) String() string {
	if l.Idx == 0 {
		return fmt.Sprintf("0x%x", l.Addr)
	}
	return fmt.Sprintf("0x%x.%d", l.Addr, l.Idx)
}

// Value is an instruction operand. It is one of Reg, Mem, Imm or RIPConst.
type Value interface {
	isValue()
	String() string
}

// Reg is a register operand
type Reg struct {
	Num  uint8
	Size ValSize
}

// Mem is a memory dereference
type Mem struct {
	Size ValSize
	Args MemArgs
}

// Imm is an immediate integer
type Imm struct {
	Signed bool
	Size   ValSize
	Val    int64
}

// RIPConst is a position independent reference to a statically fixed
// address. Target is the resolved address when the loader knows it.
type RIPConst struct {
	Target uint64
}

func (Reg) isValue()      {}
func (Mem) isValue()      {}
func (Imm) isValue()      {}
func (RIPConst) isValue() {}

func (r Reg) String() string {
	if r.Size == Size64 {
		return fmt.Sprintf("r%d", r.Num)
	}
	return fmt.Sprintf("r%d:%d", r.Num, r.Size)
}

func (m Mem) String() string {
	if m.Args == nil {
		return "mem[?]"
	}
	return "mem[" + m.Args.String() + "]"
}

func (i Imm) String() string {
	return fmt.Sprintf("%d", i.Val)
}

func (c RIPConst) String() string {
	if c.Target == 0 {
		return "rip_const"
	}
	return fmt.Sprintf("rip_const(0x%x)", c.Target)
}

// MemArg is one component of a memory address. It is MemReg or MemImm.
type MemArg interface {
	isMemArg()
	String() string
}

// MemReg is a base or index register inside an address
type MemReg struct {
	Num  uint8
	Size ValSize
}

// MemImm is a scale or displacement inside an address
type MemImm struct {
	Signed bool
	Size   ValSize
	Val    int64
}

func (MemReg) isMemArg() {}
func (MemImm) isMemArg() {}

func (r MemReg) String() string { return Reg(r).String() }
func (i MemImm) String() string { return fmt.Sprintf("%d", i.Val) }

// MemArgs is the shape of a memory address: Mem1Arg, Mem2Args, Mem3Args or
// MemScale.
type MemArgs interface {
	isMemArgs()
	// Args returns the components in operand order
	Args() []MemArg
	String() string
}

// Mem1Arg is [x]
type Mem1Arg struct{ X MemArg }

// Mem2Args is [x + y]
type Mem2Args struct{ X, Y MemArg }

// Mem3Args is [x + y + z]
type Mem3Args struct{ X, Y, Z MemArg }

// MemScale is [x + y * z]
type MemScale struct{ X, Y, Z MemArg }

func (Mem1Arg) isMemArgs()  {}
func (Mem2Args) isMemArgs() {}
func (Mem3Args) isMemArgs() {}
func (MemScale) isMemArgs() {}

// Args implements MemArgs
func (m Mem1Arg) Args() []MemArg { return []MemArg{m.X} }

// Args implements MemArgs
func (m Mem2Args) Args() []MemArg { return []MemArg{m.X, m.Y} }

// Args implements MemArgs
func (m Mem3Args) Args() []MemArg { return []MemArg{m.X, m.Y, m.Z} }

// Args implements MemArgs
func (m MemScale) Args() []MemArg { return []MemArg{m.X, m.Y, m.Z} }

func (m Mem1Arg) String() string  { return m.X.String() }
func (m Mem2Args) String() string { return joinArgs(" + ", m.X, m.Y) }
func (m Mem3Args) String() string { return joinArgs(" + ", m.X, m.Y, m.Z) }
func (m MemScale) String() string { return m.X.String() + " + " + joinArgs(" * ", m.Y, m.Z) }

func joinArgs(sep string, args ...MemArg) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		parts = append(parts, a.String())
	}
	return strings.Join(parts, sep)
}

// Unopcode is the operator of a unary statement
type Unopcode string

// Unary operators
const (
	Mov   Unopcode = "mov"
	Movsx Unopcode = "movsx"
	Movzx Unopcode = "movzx"
	Lea   Unopcode = "lea"
	Neg   Unopcode = "neg"
	Not   Unopcode = "not"
)

// Binopcode is the operator of a binary statement
type Binopcode string

// Binary operators
const (
	Add  Binopcode = "add"
	Sub  Binopcode = "sub"
	Mul  Binopcode = "mul"
	Shl  Binopcode = "shl"
	Shr  Binopcode = "shr"
	And  Binopcode = "and"
	Or   Binopcode = "or"
	Xor  Binopcode = "xor"
	Cmp  Binopcode = "cmp"
	Test Binopcode = "test"
)

// WritesDst reports whether the operator stores a result in its destination.
// Cmp and Test only write the flags.
func (op Binopcode) WritesDst() bool {
	return op != Cmp && op != Test
}

// Cond is the condition of a conditional branch
type Cond string

// Branch conditions, named after the x86 jcc mnemonics
const (
	JB  Cond = "jb"
	JAE Cond = "jae"
	JBE Cond = "jbe"
	JA  Cond = "ja"
	JE  Cond = "je"
	JNE Cond = "jne"
	JL  Cond = "jl"
	JGE Cond = "jge"
	JLE Cond = "jle"
	JG  Cond = "jg"
)

// Stmt is one effect of an instruction. It is one of Clear, Unop, Binop,
// Call, Branch, Ret, Undefined or ProbeStack.
type Stmt interface {
	isStmt()
	String() string
}

// Clear writes a value unrelated to its sources into Dst
type Clear struct {
	Dst  Value
	Srcs []Value
}

// Unop is Dst = Op(Src)
type Unop struct {
	Op  Unopcode
	Dst Value
	Src Value
}

// Binop is Dst = Src1 Op Src2
type Binop struct {
	Op   Binopcode
	Dst  Value
	Src1 Value
	Src2 Value
}

// Call transfers control to Target
type Call struct {
	Target Value
}

// Branch is a conditional jump to Target. It terminates its block.
type Branch struct {
	Cond   Cond
	Target uint64
}

// Ret returns from the function
type Ret struct{}

// Undefined marks an instruction the lifter could not model
type Undefined struct{}

// ProbeStack probes Size bytes of stack below rsp
type ProbeStack struct {
	Size uint64
}

func (Clear) isStmt()      {}
func (Unop) isStmt()       {}
func (Binop) isStmt()      {}
func (Call) isStmt()       {}
func (Branch) isStmt()     {}
func (Ret) isStmt()        {}
func (Undefined) isStmt()  {}
func (ProbeStack) isStmt() {}

func (s Clear) String() string {
	srcs := make([]string, 0, len(s.Srcs))
	for _, v := range s.Srcs {
		srcs = append(srcs, v.String())
	}
	return fmt.Sprintf("clear %s <- [%s]", s.Dst, strings.Join(srcs, ", "))
}

func (s Unop) String() string  { return fmt.Sprintf("%s %s, %s", s.Op, s.Dst, s.Src) }
func (s Binop) String() string { return fmt.Sprintf("%s %s, %s, %s", s.Op, s.Dst, s.Src1, s.Src2) }
func (s Call) String() string  { return fmt.Sprintf("call %s", s.Target) }
func (s Branch) String() string {
	return fmt.Sprintf("%s 0x%x", s.Cond, s.Target)
}
func (Ret) String() string          { return "ret" }
func (Undefined) String() string    { return "undefined" }
func (s ProbeStack) String() string { return fmt.Sprintf("probestack %d", s.Size) }
