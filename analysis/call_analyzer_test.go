package analysis_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/securego/cfiverify/analysis"
	"github.com/securego/cfiverify/ir"
	"github.com/securego/cfiverify/lattice"
	"github.com/securego/cfiverify/testutils"
)

var _ = Describe("Call analyzer", func() {
	var (
		analyzer *analysis.CallAnalyzer
		state    lattice.CallCheckState
		loc      ir.Location
		apply    func(stmts ...ir.Stmt)
	)

	BeforeEach(func() {
		analyzer = analysis.NewCallAnalyzer(testutils.SampleMetadata())
		state = analyzer.InitState(nil)
		loc = ir.Location{Addr: 0x1000}
		apply = func(stmts ...ir.Stmt) {
			for _, s := range stmts {
				state = analyzer.Transfer(state, s, loc)
			}
		}
	})

	Context("when classifying constants", func() {
		It("should recognise the table base, functions and PLT stubs", func() {
			Expect(analyzer.ClassifyConst(testutils.GuestTable)).Should(Equal(lattice.GuestTableBase{}))
			Expect(analyzer.ClassifyConst(0x2000)).Should(Equal(lattice.FnPtr{}))
			Expect(analyzer.ClassifyConst(testutils.PLTStart + 8)).Should(Equal(lattice.FnPtr{}))
			Expect(analyzer.ClassifyConst(0x4242)).Should(Equal(lattice.Unknown{}))
		})
	})

	Context("when tracking the indirect call sequence", func() {
		It("should mark the index checked on the in-bounds edge only", func() {
			apply(testutils.Cmp(ir.RDI, testutils.TableSize))
			Expect(state.Flag.Kind).Should(Equal(lattice.BoundsCheck))

			jae := ir.Branch{Cond: ir.JAE, Target: 0x1080}
			inBounds := analyzer.ProcessBranch(state, jae, loc, 0x1006, false)
			trapEdge := analyzer.ProcessBranch(state, jae, loc, 0x1080, true)
			Expect(inBounds.Regs.Get(ir.RDI, ir.Size64)).Should(Equal(lattice.CheckedVal{}))
			Expect(trapEdge.Regs.Get(ir.RDI, ir.Size64)).Should(Equal(lattice.Unknown{}))

			jb := ir.Branch{Cond: ir.JB, Target: 0x1006}
			taken := analyzer.ProcessBranch(state, jb, loc, 0x1006, true)
			Expect(taken.Regs.Get(ir.RDI, ir.Size64)).Should(Equal(lattice.CheckedVal{}))
		})

		It("should ignore comparisons against other bounds", func() {
			apply(testutils.Cmp(ir.RDI, testutils.TableSize+1))
			Expect(state.Flag).Should(Equal(lattice.Flag{}))
		})

		It("should scale checked and unchecked indices into offsets", func() {
			state.Regs.Set(ir.RDI, ir.Size64, lattice.CheckedVal{})
			apply(testutils.Shl(ir.RDI, 4), testutils.Shl(ir.RSI, 4))
			Expect(state.Regs.Get(ir.RDI, ir.Size64)).Should(Equal(lattice.PtrOffset{Check: lattice.Checked}))
			Expect(state.Regs.Get(ir.RSI, ir.Size64)).Should(Equal(lattice.PtrOffset{Check: lattice.NotChecked}))
		})

		It("should only keep the check for a scale of one table entry", func() {
			for _, scale := range []ir.Stmt{
				testutils.Shl(ir.RDI, 40),
				testutils.Shl(ir.RDI, 3),
				ir.Binop{Op: ir.Mul, Dst: testutils.Reg64(ir.RDI), Src1: testutils.Reg64(ir.RDI), Src2: testutils.Imm64(17)},
			} {
				state.Regs.Set(ir.RDI, ir.Size64, lattice.CheckedVal{})
				apply(scale)
				Expect(state.Regs.Get(ir.RDI, ir.Size64)).Should(Equal(lattice.PtrOffset{Check: lattice.NotChecked}), scale.String())
			}

			state.Regs.Set(ir.RDI, ir.Size64, lattice.CheckedVal{})
			apply(ir.Binop{Op: ir.Mul, Dst: testutils.Reg64(ir.RDI), Src1: testutils.Reg64(ir.RDI), Src2: testutils.Imm64(16)})
			Expect(state.Regs.Get(ir.RDI, ir.Size64)).Should(Equal(lattice.PtrOffset{Check: lattice.Checked}))
		})

		It("should drop a pending comparison when an arithmetic unop sets the flags", func() {
			apply(testutils.Cmp(ir.RDI, testutils.TableSize))
			Expect(state.Flag.Kind).Should(Equal(lattice.BoundsCheck))

			apply(ir.Unop{Op: ir.Neg, Dst: testutils.Reg64(ir.RBX), Src: testutils.Reg64(ir.RBX)})
			Expect(state.Flag).Should(Equal(lattice.Flag{}))

			jae := ir.Branch{Cond: ir.JAE, Target: 0x1080}
			fallThrough := analyzer.ProcessBranch(state, jae, loc, 0x1006, false)
			Expect(fallThrough.Regs.Get(ir.RDI, ir.Size64)).
				Should(Equal(lattice.Unknown{}))
		})

		It("should keep a pending comparison across moves", func() {
			apply(
				testutils.Cmp(ir.RDI, testutils.TableSize),
				testutils.Mov(testutils.Reg64(ir.RBX), testutils.Reg64(ir.RCX)),
				testutils.Lea(ir.RAX, testutils.GuestTable),
			)
			Expect(state.Flag).Should(Equal(lattice.Flag{Kind: lattice.BoundsCheck, Reg: ir.RDI}))
		})

		It("should type a checked offset after a matching tag comparison", func() {
			state.Regs.Set(ir.RDI, ir.Size64, lattice.PtrOffset{Check: lattice.Checked})
			apply(
				testutils.Lea(ir.RAX, testutils.GuestTable),
				testutils.Mov(testutils.Reg64(ir.RDX), testutils.Mem64(ir.Mem2Args{X: testutils.MemReg64(ir.RAX), Y: testutils.MemReg64(ir.RDI)})),
			)
			Expect(state.Regs.Get(ir.RDX, ir.Size64)).Should(Equal(lattice.TypeOf{Reg: ir.RDI}))

			apply(testutils.Cmp(ir.RDX, 7))
			Expect(state.Flag).Should(Equal(lattice.Flag{Kind: lattice.TypeCheck, Reg: ir.RDI, Type: 7}))

			jne := ir.Branch{Cond: ir.JNE, Target: 0x1080}
			next := analyzer.ProcessBranch(state, jne, loc, 0x101b, false)
			Expect(next.Regs.Get(ir.RDI, ir.Size64)).Should(Equal(lattice.TypedPtrOffset{Type: 7}))
			taken := analyzer.ProcessBranch(state, jne, loc, 0x1080, true)
			Expect(taken.Regs.Get(ir.RDI, ir.Size64)).
				Should(Equal(lattice.PtrOffset{Check: lattice.Checked}))

			state = next
			apply(testutils.Mov(testutils.Reg64(ir.RCX), testutils.Lookup(ir.RAX, ir.RDI)))
			Expect(state.Regs.Get(ir.RCX, ir.Size64)).Should(Equal(lattice.FnPtr{Type: 7}))
		})

		It("should drop a type tag once its offset register changes", func() {
			state.Regs.Set(ir.RDX, ir.Size64, lattice.TypeOf{Reg: ir.RDI})
			apply(testutils.Mov(testutils.Reg64(ir.RDI), testutils.Reg64(ir.RSI)))
			Expect(state.Regs.Get(ir.RDX, ir.Size64)).Should(Equal(lattice.Unknown{}))
		})

		It("should load an untyped function pointer through a checked offset", func() {
			state.Regs.Set(ir.RAX, ir.Size64, lattice.GuestTableBase{})
			state.Regs.Set(ir.RDI, ir.Size64, lattice.PtrOffset{Check: lattice.Checked})
			apply(testutils.Mov(testutils.Reg64(ir.RCX), testutils.Lookup(ir.RDI, ir.RAX)))
			Expect(state.Regs.Get(ir.RCX, ir.Size64)).Should(Equal(lattice.FnPtr{}))
		})
	})

	Context("when modelling calls and unknown code", func() {
		It("should clobber caller saved registers on calls", func() {
			state.Regs.Set(ir.RAX, ir.Size64, lattice.FnPtr{})
			state.Regs.Set(ir.RBX, ir.Size64, lattice.FnPtr{})
			apply(ir.Call{Target: testutils.Reg64(ir.RAX)})
			Expect(state.Regs.Get(ir.RAX, ir.Size64)).Should(Equal(lattice.Unknown{}))
			Expect(state.Regs.Get(ir.RBX, ir.Size64)).Should(Equal(lattice.FnPtr{}))
		})

		It("should forget everything on undefined instructions", func() {
			state.Regs.Set(ir.RBX, ir.Size64, lattice.FnPtr{})
			apply(ir.Undefined{})
			Expect(state.Regs.Get(ir.RBX, ir.Size64)).Should(Equal(lattice.Unknown{}))
			Expect(state.Stack.Valid).Should(BeFalse())
		})

		It("should clear destinations", func() {
			state.Regs.Set(ir.RAX, ir.Size64, lattice.FnPtr{})
			apply(ir.Clear{Dst: testutils.Reg64(ir.RAX), Srcs: []ir.Value{testutils.Reg64(ir.RAX)}})
			Expect(state.Regs.Get(ir.RAX, ir.Size64)).Should(Equal(lattice.Unknown{}))
		})
	})

	Context("when tracking the stack", func() {
		It("should spill and fill across stack adjustments", func() {
			apply(
				testutils.Lea(ir.RAX, 0x2000),
				ir.Binop{Op: ir.Sub, Dst: testutils.Reg64(ir.RSP), Src1: testutils.Reg64(ir.RSP), Src2: testutils.Imm64(16)},
				testutils.Mov(testutils.StackSlot(8), testutils.Reg64(ir.RAX)),
				ir.Binop{Op: ir.Sub, Dst: testutils.Reg64(ir.RSP), Src1: testutils.Reg64(ir.RSP), Src2: testutils.Imm64(8)},
				testutils.Mov(testutils.Reg64(ir.RCX), testutils.StackSlot(16)),
			)
			Expect(state.Stack.Delta).Should(Equal(int64(-24)))
			Expect(state.Regs.Get(ir.RCX, ir.Size64)).Should(Equal(lattice.FnPtr{}))
		})

		It("should not keep facts stored with narrow writes", func() {
			apply(
				testutils.Lea(ir.RAX, 0x2000),
				testutils.Mov(ir.Mem{Size: ir.Size32, Args: ir.Mem1Arg{X: testutils.MemReg64(ir.RSP)}}, testutils.Reg64(ir.RAX)),
				testutils.Mov(testutils.Reg64(ir.RCX), testutils.StackSlot(0)),
			)
			Expect(state.Regs.Get(ir.RCX, ir.Size64)).Should(Equal(lattice.Unknown{}))
		})

		It("should forget spilled values after a store through another register", func() {
			apply(
				testutils.Lea(ir.RAX, 0x2000),
				testutils.Mov(testutils.StackSlot(8), testutils.Reg64(ir.RAX)),
				testutils.Mov(ir.Mem{Size: ir.Size64, Args: ir.Mem1Arg{X: testutils.MemReg64(ir.RBX)}}, testutils.Reg64(ir.RSI)),
				testutils.Mov(testutils.Reg64(ir.RCX), testutils.StackSlot(8)),
			)
			Expect(state.Regs.Get(ir.RCX, ir.Size64)).Should(Equal(lattice.Unknown{}))
			Expect(state.Stack.Valid).Should(BeTrue())
		})

		It("should keep spilled values across stores to absolute addresses", func() {
			apply(
				testutils.Lea(ir.RAX, 0x2000),
				testutils.Mov(testutils.StackSlot(8), testutils.Reg64(ir.RAX)),
				testutils.Mov(ir.Mem{Size: ir.Size64, Args: ir.Mem1Arg{X: testutils.MemImm(0x8000)}}, testutils.Reg64(ir.RSI)),
				testutils.Mov(testutils.Reg64(ir.RCX), testutils.StackSlot(8)),
			)
			Expect(state.Regs.Get(ir.RCX, ir.Size64)).Should(Equal(lattice.FnPtr{}))
		})

		It("should lose the stack when rsp is overwritten", func() {
			apply(ir.Unop{Op: ir.Mov, Dst: testutils.Reg64(ir.RSP), Src: testutils.Reg64(ir.RBP)})
			Expect(state.Stack.Valid).Should(BeFalse())
		})
	})
})
