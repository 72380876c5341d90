package main

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/securego/cfiverify/issue"
)

var defaultIssue = issue.Issue{
	Function:   "guest_func_1",
	Address:    0x1000,
	RuleID:     "C102",
	What:       "test",
	Confidence: issue.High,
	Severity:   issue.High,
	Code:       "mov r1, mem[r0 + r7 + 8]",
	Cwe:        issue.GetCweByRule("C102"),
}

func createIssue() issue.Issue {
	return defaultIssue
}

func firstIsGreater(less, greater *issue.Issue) {
	slice := []*issue.Issue{less, greater}

	sortIssues(slice)

	ExpectWithOffset(1, slice[0]).To(Equal(greater))
}

var _ = Describe("Sorting by Severity", func() {
	It("sorts by severity", func() {
		less := createIssue()
		less.Severity = issue.Low
		greater := createIssue()
		greater.Severity = issue.High
		firstIsGreater(&less, &greater)
	})

	Context("Severity is same", func() {
		It("sorts by What", func() {
			less := createIssue()
			less.What = "test1"
			greater := createIssue()
			greater.What = "test2"
			firstIsGreater(&less, &greater)
		})
	})

	Context("Severity and What is same", func() {
		It("sorts by function name", func() {
			first := createIssue()
			first.Function = "guest_func_1"
			second := createIssue()
			second.Function = "guest_func_2"
			firstIsGreater(&second, &first)
		})
	})

	Context("Severity, What and function is same", func() {
		It("keeps program order", func() {
			first := createIssue()
			first.Address = 0x1000
			second := createIssue()
			second.Address = 0x1010
			firstIsGreater(&second, &first)
		})
	})
})
