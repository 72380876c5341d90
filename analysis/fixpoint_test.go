package analysis_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/securego/cfiverify/analysis"
	"github.com/securego/cfiverify/ir"
	"github.com/securego/cfiverify/lattice"
	"github.com/securego/cfiverify/testutils"
)

// counter grows its state on every statement and never stabilises on a loop
type counter struct{}

func (counter) InitState(*ir.Function) int                  { return 0 }
func (counter) Transfer(s int, _ ir.Stmt, _ ir.Location) int { return s + 1 }
func (counter) Join(a, b int) int                            { return max(a, b) }
func (counter) Equal(a, b int) bool                          { return a == b }

func (counter) ProcessBranch(s int, _ ir.Stmt, _ ir.Location, _ uint64, _ bool) int {
	return s
}

// climber grows its state up to limit, so it converges but needs about
// limit visits of a loop head
type climber struct{ limit int }

func (climber) InitState(*ir.Function) int { return 0 }
func (c climber) Transfer(s int, _ ir.Stmt, _ ir.Location) int {
	return min(s+1, c.limit)
}
func (climber) Join(a, b int) int   { return max(a, b) }
func (climber) Equal(a, b int) bool { return a == b }

func (climber) ProcessBranch(s int, _ ir.Stmt, _ ir.Location, _ uint64, _ bool) int {
	return s
}

// selfLoop is a one block loop followed by a long straight line of blocks
func selfLoop(tail int) *ir.Function {
	blocks := []*ir.Block{
		testutils.NewBlock(testutils.Succs(0x20), testutils.Instr(0x10, ir.Ret{})),
		testutils.NewBlock(testutils.Succs(0x20, 0x100), testutils.Instr(0x20, ir.Branch{Cond: ir.JNE, Target: 0x20})),
	}
	for i := 0; i < tail; i++ {
		addr := uint64(0x100 + i*0x10)
		var succs []uint64
		if i+1 < tail {
			succs = testutils.Succs(addr + 0x10)
		}
		blocks = append(blocks, testutils.NewBlock(succs, testutils.Instr(addr, ir.Ret{})))
	}
	return ir.NewFunction("self_loop", 0x10, blocks...)
}

var _ = Describe("Fixed point", func() {
	var analyzer *analysis.CallAnalyzer

	BeforeEach(func() {
		analyzer = analysis.NewCallAnalyzer(testutils.SampleMetadata())
	})

	It("should record a state for every reachable instruction", func() {
		res, err := analysis.Run[lattice.CallCheckState](analyzer, testutils.CheckedLookup(true))
		Expect(err).ShouldNot(HaveOccurred())
		Expect(res.Len()).Should(Equal(8))

		var addrs []uint64
		res.Ascend(func(loc ir.Location, _ lattice.CallCheckState) bool {
			addrs = append(addrs, loc.Addr)
			return true
		})
		Expect(addrs).Should(Equal([]uint64{0x1000, 0x1004, 0x1006, 0x100a, 0x1011, 0x1016, 0x1018, 0x1080}))
	})

	It("should converge across a loop", func() {
		res, err := analysis.Run[lattice.CallCheckState](analyzer, testutils.LoopCall(true))
		Expect(err).ShouldNot(HaveOccurred())
		head, ok := res.Get(ir.Location{Addr: 0x1010})
		Expect(ok).Should(BeTrue())
		Expect(head.Regs.Get(ir.RBX, ir.Size64)).Should(Equal(lattice.Unknown{}))
		Expect(res.Iterations()).Should(BeNumerically(">", 2))
	})

	It("should keep loop invariant facts", func() {
		res, err := analysis.Run[lattice.CallCheckState](analyzer, testutils.LoopCall(false))
		Expect(err).ShouldNot(HaveOccurred())
		head, _ := res.Get(ir.Location{Addr: 0x1010})
		Expect(head.Regs.Get(ir.RBX, ir.Size64)).Should(Equal(lattice.FnPtr{}))
	})

	It("should join both outcomes of a branch whose target is also the fall through", func() {
		for _, repeated := range []bool{false, true} {
			res, err := analysis.Run[lattice.CallCheckState](analyzer, testutils.BranchToNextLookup(repeated))
			Expect(err).ShouldNot(HaveOccurred())
			next, ok := res.Get(ir.Location{Addr: 0x1006})
			Expect(ok).Should(BeTrue())
			Expect(next.Regs.Get(ir.RDI, ir.Size64)).Should(Equal(lattice.Unknown{}))
			lookup, _ := res.Get(ir.Location{Addr: 0x1011})
			Expect(lookup.Regs.Get(ir.RDI, ir.Size64)).Should(Equal(lattice.PtrOffset{Check: lattice.NotChecked}))
		}
	})

	It("should meet the offsets of every path into a join point", func() {
		res, err := analysis.Run[lattice.CallCheckState](analyzer, testutils.ThreeWayLookup())
		Expect(err).ShouldNot(HaveOccurred())

		for _, checked := range []uint64{0x1012, 0x1026} {
			before, ok := res.Get(ir.Location{Addr: checked})
			Expect(ok).Should(BeTrue())
			Expect(before.Regs.Get(ir.RDI, ir.Size64)).Should(Equal(lattice.CheckedVal{}))
		}
		unchecked, _ := res.Get(ir.Location{Addr: 0x1030})
		Expect(unchecked.Regs.Get(ir.RDI, ir.Size64)).Should(Equal(lattice.Unknown{}))

		merged, ok := res.Get(ir.Location{Addr: 0x1040})
		Expect(ok).Should(BeTrue())
		Expect(merged.Regs.Get(ir.RDI, ir.Size64)).Should(Equal(lattice.PtrOffset{Check: lattice.NotChecked}))
		call, _ := res.Get(ir.Location{Addr: 0x104c})
		Expect(call.Regs.Get(ir.RCX, ir.Size64)).Should(Equal(lattice.Unknown{}))
	})

	It("should fail on an empty function", func() {
		_, err := analysis.Run[lattice.CallCheckState](analyzer, ir.NewFunction("empty", 0x1000))
		Expect(errors.Is(err, analysis.ErrEmptyFunction)).Should(BeTrue())
	})

	It("should fail when the entry block is missing", func() {
		fn := ir.NewFunction("no_entry", 0x1000, testutils.NewBlock(nil, testutils.Instr(0x1010, ir.Ret{})))
		_, err := analysis.Run[lattice.CallCheckState](analyzer, fn)
		Expect(errors.Is(err, analysis.ErrMissingBlock)).Should(BeTrue())
	})

	It("should give up on a non monotone analyzer", func() {
		_, err := analysis.Run[int](counter{}, testutils.LoopCall(false))
		Expect(errors.Is(err, analysis.ErrNoConvergence)).Should(BeTrue())
	})

	It("should bound the visits of each block rather than the function", func() {
		fn := selfLoop(32)

		res, err := analysis.Run[int](climber{limit: 40}, fn)
		Expect(err).ShouldNot(HaveOccurred())
		head, _ := res.Get(ir.Location{Addr: 0x20})
		Expect(head).Should(Equal(40))

		_, err = analysis.Run[int](climber{limit: 80}, fn)
		Expect(errors.Is(err, analysis.ErrNoConvergence)).Should(BeTrue())
		Expect(err.Error()).Should(ContainSubstring("block 0x20"))
	})

	It("should hand out snapshots built elsewhere", func() {
		res := analysis.NewResult(map[ir.Location]int{
			{Addr: 0x20}: 2,
			{Addr: 0x10}: 1,
		})
		v, ok := res.Get(ir.Location{Addr: 0x10})
		Expect(ok).Should(BeTrue())
		Expect(v).Should(Equal(1))
		_, ok = res.Get(ir.Location{Addr: 0x30})
		Expect(ok).Should(BeFalse())
		Expect(res.Iterations()).Should(BeZero())
	})
})
