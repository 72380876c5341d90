package cwe_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/securego/cfiverify/cwe"
)

var _ = Describe("CWE data", func() {
	Context("when consulting cwe data", func() {
		It("it should retrieves the weakness", func() {
			weakness := cwe.Get("691")
			Expect(weakness).ShouldNot(BeNil())
			Expect(weakness.ID).Should(Equal("691"))
			Expect(weakness.Name).Should(Equal("Insufficient Control Flow Management"))
			Expect(weakness.Description).ShouldNot(BeEmpty())
		})

		It("should return nil for an unknown weakness", func() {
			Expect(cwe.Get("99999")).Should(BeNil())
		})
	})
})
