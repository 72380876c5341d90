package checkers_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/securego/cfiverify/checkers"
)

var _ = Describe("Rule list", func() {
	It("should enable every rule without filters", func() {
		rules := checkers.Generate()
		Expect(rules.IDs()).Should(Equal([]string{checkers.IndirectCallRule, checkers.TableLookupRule}))
		Expect(rules[checkers.IndirectCallRule].Description).ShouldNot(BeEmpty())
	})

	It("should keep only included rules", func() {
		rules := checkers.Generate(checkers.NewRuleFilter(false, checkers.TableLookupRule))
		Expect(rules.IDs()).Should(Equal([]string{checkers.TableLookupRule}))
		Expect(rules.Has(checkers.IndirectCallRule)).Should(BeFalse())
	})

	It("should drop excluded rules", func() {
		rules := checkers.Generate(checkers.NewRuleFilter(true, checkers.TableLookupRule))
		Expect(rules.IDs()).Should(Equal([]string{checkers.IndirectCallRule}))
	})

	It("should apply every filter", func() {
		rules := checkers.Generate(
			checkers.NewRuleFilter(false, checkers.IndirectCallRule),
			checkers.NewRuleFilter(true, checkers.IndirectCallRule),
		)
		Expect(rules).Should(BeEmpty())
	})
})
