package cfiverify_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/securego/cfiverify"
	"github.com/securego/cfiverify/issue"
)

var _ = Describe("ReportInfo", func() {
	Describe("NewReportInfo", func() {
		It("should create a report with issues, metrics, and errors", func() {
			issues := []*issue.Issue{
				{RuleID: "C101", What: "test issue 1"},
				{RuleID: "C102", What: "test issue 2"},
			}
			metrics := &cfiverify.Metrics{
				NumFunctions:    10,
				NumInstructions: 1000,
				NumStatements:   1200,
				NumFound:        2,
			}
			errors := map[string][]cfiverify.Error{
				"module.json": {{Function: "f", Address: 0x10, Err: "test error"}},
			}

			report := cfiverify.NewReportInfo(issues, metrics, errors)
			Expect(report).ShouldNot(BeNil())
			Expect(report.Issues).Should(HaveLen(2))
			Expect(report.Stats).Should(Equal(metrics))
			Expect(report.Errors).Should(HaveLen(1))
		})

		It("should handle nil metrics and errors", func() {
			issues := []*issue.Issue{{RuleID: "C101"}}

			report := cfiverify.NewReportInfo(issues, nil, nil)
			Expect(report).ShouldNot(BeNil())
			Expect(report.Issues).Should(HaveLen(1))
			Expect(report.Stats).Should(BeNil())
			Expect(report.Errors).Should(BeNil())
		})
	})

	Describe("WithVersion", func() {
		It("should set the version", func() {
			report := cfiverify.NewReportInfo([]*issue.Issue{}, &cfiverify.Metrics{}, nil)
			result := report.WithVersion("0.3.0")

			Expect(result).Should(BeIdenticalTo(report))
			Expect(report.Version).Should(Equal("0.3.0"))
		})

		It("should overwrite existing version", func() {
			report := cfiverify.NewReportInfo([]*issue.Issue{}, &cfiverify.Metrics{}, nil)
			report.WithVersion("1.0.0")
			report.WithVersion("2.0.0")

			Expect(report.Version).Should(Equal("2.0.0"))
		})
	})
})
