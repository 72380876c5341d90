package issue_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/securego/cfiverify/ir"
	"github.com/securego/cfiverify/issue"
)

var _ = Describe("Issue", func() {
	Context("when creating a new issue", func() {
		It("should carry the location of the rejected statement", func() {
			loc := ir.Location{Addr: 0x4010, Idx: 1}
			i := issue.New("guest_func_3", loc, "C101", issue.IndirectCall, "call through memory", "call mem[r0]", issue.High, issue.High)
			Expect(i).ShouldNot(BeNil())
			Expect(i.Address).Should(Equal(uint64(0x4010)))
			Expect(i.StmtIdx).Should(Equal(1))
			Expect(i.Location()).Should(Equal(loc))
			Expect(i.AddressString()).Should(Equal("0x4010"))
			Expect(i.FileLocation()).Should(Equal("guest_func_3:0x4010"))
		})

		It("should map rule IDs to CWEs", func() {
			i := issue.New("f", ir.Location{}, "C102", issue.TableLookup, "", "", issue.High, issue.High)
			Expect(i.Cwe).ShouldNot(BeNil())
			Expect(i.Cwe.ID).Should(Equal("129"))
			Expect(issue.GetCweByRule("C101").ID).Should(Equal("691"))
			Expect(issue.GetCweByRule("G999")).Should(BeNil())
		})

		It("should append operand renderings", func() {
			i := issue.New("f", ir.Location{}, "C102", issue.TableLookup, "", "", issue.High, issue.High)
			i.WithOperands("r3: GuestTableBase", "r1: PtrOffset(NotChecked)")
			Expect(i.Operands).Should(ConsistOf("r3: GuestTableBase", "r1: PtrOffset(NotChecked)"))
		})
	})

	Context("when serializing", func() {
		It("should render scores and kinds by name", func() {
			i := issue.New("f", ir.Location{Addr: 16}, "C101", issue.IndirectCall, "bad call", "call r0", issue.High, issue.Medium)
			raw, err := json.Marshal(i)
			Expect(err).ShouldNot(HaveOccurred())
			var decoded map[string]interface{}
			Expect(json.Unmarshal(raw, &decoded)).Should(Succeed())
			Expect(decoded["severity"]).Should(Equal("HIGH"))
			Expect(decoded["confidence"]).Should(Equal("MEDIUM"))
			Expect(decoded["kind"]).Should(Equal("IndirectCall"))
			Expect(decoded["address"]).Should(BeNumerically("==", 16))
			Expect(decoded["details"]).Should(Equal("bad call"))
		})

		It("should print undefined scores", func() {
			Expect(issue.Score(7).String()).Should(Equal("UNDEFINED"))
			Expect(issue.Kind(7).String()).Should(Equal("Unknown"))
		})
	})
})
