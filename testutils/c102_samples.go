package testutils

import (
	"github.com/securego/cfiverify/ir"
)

const trapBlock uint64 = 0x1080

func trap() *ir.Block {
	return NewBlock(nil, Instr(trapBlock, ir.Undefined{}))
}

// CheckedLookup is the sandbox's indirect call sequence: bounds check the
// index, scale it and load the function pointer out of the call table. With
// baseFirst the table base is the first address register.
func CheckedLookup(baseFirst bool) *ir.Function {
	lookup := Lookup(ir.RAX, ir.RDI)
	if !baseFirst {
		lookup = Lookup(ir.RDI, ir.RAX)
	}
	return ir.NewFunction("checked_lookup", 0x1000,
		NewBlock(Succs(0x1006, trapBlock),
			Instr(0x1000, Cmp(ir.RDI, TableSize)),
			Instr(0x1004, ir.Branch{Cond: ir.JAE, Target: trapBlock}),
		),
		NewBlock(nil,
			Instr(0x1006, Shl(ir.RDI, 4)),
			Instr(0x100a, Lea(ir.RAX, GuestTable)),
			Instr(0x1011, Mov(Reg64(ir.RCX), lookup)),
			Instr(0x1016, ir.Call{Target: Reg64(ir.RCX)}),
			Instr(0x1018, ir.Ret{}),
		),
		trap(),
	)
}

// UncheckedLookup scales the index without a bounds check. The lookup is
// rejected and so is the call through the value it loads.
func UncheckedLookup() *ir.Function {
	return ir.NewFunction("unchecked_lookup", 0x1000,
		NewBlock(nil,
			Instr(0x1000, Shl(ir.RDI, 4)),
			Instr(0x1004, Lea(ir.RAX, GuestTable)),
			Instr(0x100b, Mov(Reg64(ir.RCX), Lookup(ir.RAX, ir.RDI))),
			Instr(0x1010, ir.Call{Target: Reg64(ir.RCX)}),
			Instr(0x1012, ir.Ret{}),
		),
	)
}

// TypedLookup also compares the entry's type tag before loading the pointer
func TypedLookup() *ir.Function {
	return ir.NewFunction("typed_lookup", 0x1000,
		NewBlock(Succs(0x1006, trapBlock),
			Instr(0x1000, Cmp(ir.RDI, TableSize)),
			Instr(0x1004, ir.Branch{Cond: ir.JAE, Target: trapBlock}),
		),
		NewBlock(Succs(0x101b, trapBlock),
			Instr(0x1006, Shl(ir.RDI, 4)),
			Instr(0x100a, Lea(ir.RAX, GuestTable)),
			Instr(0x1011, Mov(Reg64(ir.RDX), Mem64(ir.Mem2Args{X: MemReg64(ir.RAX), Y: MemReg64(ir.RDI)}))),
			Instr(0x1015, Cmp(ir.RDX, 7)),
			Instr(0x1019, ir.Branch{Cond: ir.JNE, Target: trapBlock}),
		),
		NewBlock(nil,
			Instr(0x101b, Mov(Reg64(ir.RCX), Lookup(ir.RAX, ir.RDI))),
			Instr(0x1020, ir.Call{Target: Reg64(ir.RCX)}),
			Instr(0x1022, ir.Ret{}),
		),
		trap(),
	)
}

// WrongEdgeLookup uses the index on the edge where the bounds check failed
func WrongEdgeLookup() *ir.Function {
	return ir.NewFunction("wrong_edge", 0x1000,
		NewBlock(Succs(trapBlock, 0x1006),
			Instr(0x1000, Cmp(ir.RDI, TableSize)),
			Instr(0x1004, ir.Branch{Cond: ir.JAE, Target: 0x1006}),
		),
		NewBlock(nil,
			Instr(0x1006, Shl(ir.RDI, 4)),
			Instr(0x100a, Lea(ir.RAX, GuestTable)),
			Instr(0x1011, Mov(Reg64(ir.RCX), Lookup(ir.RAX, ir.RDI))),
		),
		trap(),
	)
}

// ThreeWayLookup reaches the lookup on three paths, two of which bounds
// check the index. The check does not hold on every path.
func ThreeWayLookup() *ir.Function {
	return ir.NewFunction("three_way", 0x1000,
		NewBlock(Succs(0x1006, 0x1030),
			Instr(0x1000, Cmp(ir.RSI, 0)),
			Instr(0x1004, ir.Branch{Cond: ir.JE, Target: 0x1030}),
		),
		NewBlock(Succs(0x100c, 0x1020),
			Instr(0x1006, Cmp(ir.RSI, 1)),
			Instr(0x100a, ir.Branch{Cond: ir.JE, Target: 0x1020}),
		),
		NewBlock(Succs(0x1012, trapBlock),
			Instr(0x100c, Cmp(ir.RDI, TableSize)),
			Instr(0x1010, ir.Branch{Cond: ir.JAE, Target: trapBlock}),
		),
		NewBlock(Succs(0x1040),
			Instr(0x1012, Shl(ir.RDI, 4)),
		),
		NewBlock(Succs(0x1026, trapBlock),
			Instr(0x1020, Cmp(ir.RDI, TableSize)),
			Instr(0x1024, ir.Branch{Cond: ir.JAE, Target: trapBlock}),
		),
		NewBlock(Succs(0x1040),
			Instr(0x1026, Shl(ir.RDI, 4)),
		),
		NewBlock(Succs(0x1040),
			Instr(0x1030, Shl(ir.RDI, 4)),
		),
		NewBlock(nil,
			Instr(0x1040, Lea(ir.RAX, GuestTable)),
			Instr(0x1047, Mov(Reg64(ir.RCX), Lookup(ir.RAX, ir.RDI))),
			Instr(0x104c, ir.Call{Target: Reg64(ir.RCX)}),
			Instr(0x104e, ir.Ret{}),
		),
		trap(),
	)
}

// BranchToNextLookup bounds checks with a jump whose target is also the
// fall through, so the index is not checked when the lookup is reached.
// With repeated the successor is listed once per edge.
func BranchToNextLookup(repeated bool) *ir.Function {
	succs := Succs(0x1006)
	if repeated {
		succs = Succs(0x1006, 0x1006)
	}
	return ir.NewFunction("branch_to_next", 0x1000,
		NewBlock(succs,
			Instr(0x1000, Cmp(ir.RDI, TableSize)),
			Instr(0x1004, ir.Branch{Cond: ir.JB, Target: 0x1006}),
		),
		NewBlock(nil,
			Instr(0x1006, Shl(ir.RDI, 4)),
			Instr(0x100a, Lea(ir.RAX, GuestTable)),
			Instr(0x1011, Mov(Reg64(ir.RCX), Lookup(ir.RAX, ir.RDI))),
			Instr(0x1016, ir.Call{Target: Reg64(ir.RCX)}),
			Instr(0x1018, ir.Ret{}),
		),
	)
}

// ScaledLookup bounds checks the index and scales it by a shift or a
// multiply. Only a scale of one table entry keeps the offset in bounds.
func ScaledLookup(op ir.Binopcode, amount int64) *ir.Function {
	return ir.NewFunction("scaled_lookup", 0x1000,
		NewBlock(Succs(0x1006, trapBlock),
			Instr(0x1000, Cmp(ir.RDI, TableSize)),
			Instr(0x1004, ir.Branch{Cond: ir.JAE, Target: trapBlock}),
		),
		NewBlock(nil,
			Instr(0x1006, ir.Binop{Op: op, Dst: Reg64(ir.RDI), Src1: Reg64(ir.RDI), Src2: Imm64(amount)}),
			Instr(0x100a, Lea(ir.RAX, GuestTable)),
			Instr(0x1011, Mov(Reg64(ir.RCX), Lookup(ir.RAX, ir.RDI))),
			Instr(0x1016, ir.Call{Target: Reg64(ir.RCX)}),
			Instr(0x1018, ir.Ret{}),
		),
		trap(),
	)
}

func singleLoad(name string, src ir.Mem) *ir.Function {
	return ir.NewFunction(name, 0x1000,
		NewBlock(nil,
			Instr(0x1000, Shl(ir.RDI, 4)),
			Instr(0x1004, Lea(ir.RAX, GuestTable)),
			Instr(0x100b, Mov(Reg64(ir.RCX), src)),
			Instr(0x1010, ir.Ret{}),
		),
	)
}

var (
	// SampleCodeC102 exercises call table lookups
	SampleCodeC102 = []CodeSample{
		{CheckedLookup(true), 0},
		{CheckedLookup(false), 0},
		{UncheckedLookup(), 2},
		{TypedLookup(), 0},
		{WrongEdgeLookup(), 1},
		{ThreeWayLookup(), 2},
		{BranchToNextLookup(false), 2},
		{BranchToNextLookup(true), 2},
		{ScaledLookup(ir.Shl, 4), 0},
		{ScaledLookup(ir.Mul, 16), 0},
		{ScaledLookup(ir.Shl, 40), 2},
		{ScaledLookup(ir.Mul, 17), 2},
		// not a table lookup shape
		{singleLoad("two_args", Mem64(ir.Mem2Args{X: MemReg64(ir.RAX), Y: MemReg64(ir.RDI)})), 0},
		{singleLoad("other_disp", Mem64(ir.Mem3Args{X: MemReg64(ir.RAX), Y: MemReg64(ir.RDI), Z: MemImm(16)})), 0},
		{singleLoad("scaled", Mem64(ir.MemScale{X: MemReg64(ir.RAX), Y: MemReg64(ir.RDI), Z: MemImm(8)})), 0},
		{singleLoad("no_base", Lookup(ir.RSI, ir.RDI)), 0},
		{singleLoad("base_base", Lookup(ir.RAX, ir.RAX)), 1},
	}
)
