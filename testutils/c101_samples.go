package testutils

import (
	"github.com/securego/cfiverify/ir"
)

// callImm is a rel32 call at addr landing on dest
func callImm(addr, dest uint64) ir.Stmt {
	return ir.Call{Target: Imm64(int64(dest) - int64(addr+5))}
}

// DirectFnPtrCall calls through a register loaded with a function address
func DirectFnPtrCall() *ir.Function {
	return ir.NewFunction("direct_fnptr", 0x1000,
		NewBlock(nil,
			Instr(0x1000, Lea(ir.RAX, 0x2000)),
			Instr(0x1007, ir.Call{Target: Reg64(ir.RAX)}),
			Instr(0x1009, ir.Ret{}),
		),
	)
}

// MemoryCall calls through memory
func MemoryCall() *ir.Function {
	return ir.NewFunction("memory_call", 0x1000,
		NewBlock(nil,
			Instr(0x1000, ir.Call{Target: Mem64(ir.Mem1Arg{X: MemReg64(ir.RAX)})}),
			Instr(0x1002, ir.Ret{}),
		),
	)
}

// ImmediateCall is a direct call at 0x1000 landing on dest
func ImmediateCall(dest uint64) *ir.Function {
	return ir.NewFunction("immediate_call", 0x1000,
		NewBlock(nil,
			Instr(0x1000, callImm(0x1000, dest)),
			Instr(0x1005, ir.Ret{}),
		),
	)
}

// LoopCall calls rbx on every iteration of a loop. With clobber the loop
// body overwrites rbx after the call so only the first iteration is safe.
func LoopCall(clobber bool) *ir.Function {
	if !clobber {
		return ir.NewFunction("loop_call", 0x1000,
			NewBlock(Succs(0x1010),
				Instr(0x1000, Lea(ir.RBX, 0x2000)),
			),
			NewBlock(Succs(0x101c, 0x1010),
				Instr(0x1010, ir.Call{Target: Reg64(ir.RBX)}),
				Instr(0x1012, ir.Binop{Op: ir.Sub, Dst: Reg64(ir.RSI), Src1: Reg64(ir.RSI), Src2: Imm64(1)}),
				Instr(0x1016, Cmp(ir.RSI, 0)),
				Instr(0x101a, ir.Branch{Cond: ir.JNE, Target: 0x1010}),
			),
			NewBlock(nil,
				Instr(0x101c, ir.Ret{}),
			),
		)
	}
	return ir.NewFunction("loop_clobber", 0x1000,
		NewBlock(Succs(0x1010),
			Instr(0x1000, Lea(ir.RBX, 0x2000)),
		),
		NewBlock(Succs(0x101f, 0x1010),
			Instr(0x1010, ir.Call{Target: Reg64(ir.RBX)}),
			Instr(0x1012, Mov(Reg64(ir.RBX), Reg64(ir.RDI))),
			Instr(0x1015, ir.Binop{Op: ir.Sub, Dst: Reg64(ir.RSI), Src1: Reg64(ir.RSI), Src2: Imm64(1)}),
			Instr(0x1019, Cmp(ir.RSI, 0)),
			Instr(0x101d, ir.Branch{Cond: ir.JNE, Target: 0x1010}),
		),
		NewBlock(nil,
			Instr(0x101f, ir.Ret{}),
		),
	)
}

// SpillFill keeps a function pointer in a stack slot across a call. With
// lose the stack pointer is overwritten before the reload.
func SpillFill(lose bool) *ir.Function {
	middle := callImm(0x1010, 0x3000)
	if lose {
		middle = Mov(Reg64(ir.RSP), Reg64(ir.RBP))
	}
	return ir.NewFunction("spill_fill", 0x1000,
		NewBlock(nil,
			Instr(0x1000, Lea(ir.RAX, 0x2000)),
			Instr(0x1007, ir.Binop{Op: ir.Sub, Dst: Reg64(ir.RSP), Src1: Reg64(ir.RSP), Src2: Imm64(16)}),
			Instr(0x100b, Mov(StackSlot(8), Reg64(ir.RAX))),
			Instr(0x1010, middle),
			Instr(0x1015, Mov(Reg64(ir.RAX), StackSlot(8))),
			Instr(0x101a, ir.Call{Target: Reg64(ir.RAX)}),
			Instr(0x101c, ir.Binop{Op: ir.Add, Dst: Reg64(ir.RSP), Src1: Reg64(ir.RSP), Src2: Imm64(16)}),
			Instr(0x1020, ir.Ret{}),
		),
	)
}

var (
	// SampleCodeC101 exercises indirect call targets
	SampleCodeC101 = []CodeSample{
		{DirectFnPtrCall(), 0},
		{MemoryCall(), 1},
		{ir.NewFunction("unknown_reg", 0x1000,
			NewBlock(nil,
				Instr(0x1000, Mov(Reg64(ir.RAX), Reg64(ir.RDI))),
				Instr(0x1003, ir.Call{Target: Reg64(ir.RAX)}),
			),
		), 1},
		{ir.NewFunction("table_base_call", 0x1000,
			NewBlock(nil,
				Instr(0x1000, Lea(ir.RAX, GuestTable)),
				Instr(0x1007, ir.Call{Target: Reg64(ir.RAX)}),
			),
		), 1},
		{ir.NewFunction("narrow_reg", 0x1000,
			NewBlock(nil,
				Instr(0x1000, Lea(ir.RAX, 0x2000)),
				Instr(0x1007, ir.Call{Target: ir.Reg{Num: ir.RAX, Size: ir.Size32}}),
			),
		), 1},
		{ImmediateCall(PLTStart), 0},
		{ImmediateCall(PLTEnd - 1), 0},
		{ImmediateCall(PLTEnd), 1},
		{ImmediateCall(PLTEnd + 1), 1},
		{ImmediateCall(0x2000), 0},
		{ImmediateCall(0x2001), 1},
		{ir.NewFunction("rip_call", 0x1000,
			NewBlock(nil,
				Instr(0x1000, ir.Call{Target: ir.RIPConst{}}),
			),
		), 0},
		{ir.NewFunction("caller_saved", 0x1000,
			NewBlock(nil,
				Instr(0x1000, Lea(ir.RAX, 0x2000)),
				Instr(0x1007, callImm(0x1007, 0x3000)),
				Instr(0x100c, ir.Call{Target: Reg64(ir.RAX)}),
			),
		), 1},
		{ir.NewFunction("one_sided", 0x1000,
			NewBlock(Succs(0x1006, 0x1010),
				Instr(0x1000, Cmp(ir.RDI, 0)),
				Instr(0x1004, ir.Branch{Cond: ir.JE, Target: 0x1010}),
			),
			NewBlock(Succs(0x1010),
				Instr(0x1006, Lea(ir.RAX, 0x2000)),
			),
			NewBlock(nil,
				Instr(0x1010, ir.Call{Target: Reg64(ir.RAX)}),
			),
		), 1},
		{LoopCall(false), 0},
		{LoopCall(true), 1},
		{SpillFill(false), 0},
		{SpillFill(true), 1},
	}
)
