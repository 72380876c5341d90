package testutils

import (
	"github.com/securego/cfiverify/ir"
)

// Addresses used by the sample programs
const (
	PLTStart   uint64 = 0x500
	PLTEnd     uint64 = 0x600
	GuestTable uint64 = 0x9000
	TableSize  int64  = 4
)

// SampleFunctions are the function entries known to SampleMetadata
var SampleFunctions = []uint64{0x1000, 0x2000, 0x3000}

// SampleMetadata returns the module metadata every sample is checked against
func SampleMetadata() *ir.Metadata {
	return ir.NewMetadata(SampleFunctions, ir.Range{Start: PLTStart, End: PLTEnd}, GuestTable, TableSize)
}

// Reg64 is a full width register operand
func Reg64(num uint8) ir.Reg {
	return ir.Reg{Num: num, Size: ir.Size64}
}

// Imm64 is a signed 64 bit immediate
func Imm64(v int64) ir.Imm {
	return ir.Imm{Signed: true, Size: ir.Size64, Val: v}
}

// MemReg64 is a full width address register
func MemReg64(num uint8) ir.MemReg {
	return ir.MemReg{Num: num, Size: ir.Size64}
}

// MemImm is an address displacement
func MemImm(v int64) ir.MemImm {
	return ir.MemImm{Signed: true, Size: ir.Size64, Val: v}
}

// Mem64 is a 64 bit memory operand
func Mem64(args ir.MemArgs) ir.Mem {
	return ir.Mem{Size: ir.Size64, Args: args}
}

// Lookup is the call table entry load [x + y + 8]
func Lookup(x, y uint8) ir.Mem {
	return Mem64(ir.Mem3Args{X: MemReg64(x), Y: MemReg64(y), Z: MemImm(8)})
}

// StackSlot is [rsp + off]
func StackSlot(off int64) ir.Mem {
	return Mem64(ir.Mem2Args{X: MemReg64(ir.RSP), Y: MemImm(off)})
}

// Mov is dst = src
func Mov(dst, src ir.Value) ir.Stmt {
	return ir.Unop{Op: ir.Mov, Dst: dst, Src: src}
}

// Lea loads a rip relative address into a register
func Lea(dst uint8, target uint64) ir.Stmt {
	return ir.Unop{Op: ir.Lea, Dst: Reg64(dst), Src: ir.RIPConst{Target: target}}
}

// Cmp compares a register with an immediate
func Cmp(reg uint8, v int64) ir.Stmt {
	return ir.Binop{Op: ir.Cmp, Dst: Reg64(reg), Src1: Reg64(reg), Src2: Imm64(v)}
}

// Shl shifts a register left in place
func Shl(reg uint8, v int64) ir.Stmt {
	return ir.Binop{Op: ir.Shl, Dst: Reg64(reg), Src1: Reg64(reg), Src2: Imm64(v)}
}

// Instr builds one instruction
func Instr(addr uint64, stmts ...ir.Stmt) ir.Instruction {
	return ir.Instruction{Addr: addr, Stmts: stmts}
}

// NewBlock builds a block starting at its first instruction
func NewBlock(succs []uint64, instrs ...ir.Instruction) *ir.Block {
	b := &ir.Block{Instrs: instrs, Succs: succs}
	if len(instrs) > 0 {
		b.Addr = instrs[0].Addr
	}
	return b
}

// Succs lists successor addresses
func Succs(addrs ...uint64) []uint64 {
	return addrs
}
