package junit

import (
	"html"
	"strings"

	"github.com/securego/cfiverify"
	"github.com/securego/cfiverify/issue"
)

func generatePlaintext(iss *issue.Issue) string {
	text := "Results:\n" +
		"[" + iss.FileLocation() + "] - " +
		iss.What + " (Kind: " + iss.Kind.String() +
		", Confidence: " + iss.Confidence.String() +
		", Severity: " + iss.Severity.String() +
		", CWE: " + iss.Cwe.SprintID() + ")\n" + "> " + html.EscapeString(iss.Code)
	if len(iss.Operands) > 0 {
		text += "\n  " + html.EscapeString(strings.Join(iss.Operands, "\n  "))
	}
	return text
}

// GenerateReport groups issues into one test suite per rule description
func GenerateReport(data *cfiverify.ReportInfo) Report {
	var xmlReport Report
	testsuites := map[string]int{}

	for _, iss := range data.Issues {
		index, ok := testsuites[iss.What]
		if !ok {
			xmlReport.Testsuites = append(xmlReport.Testsuites, NewTestsuite(iss.What))
			index = len(xmlReport.Testsuites) - 1
			testsuites[iss.What] = index
		}
		xmlReport.Testsuites[index].Add(&Testcase{
			Name:      iss.FileLocation(),
			Classname: iss.Function,
			Failure: &Failure{
				Message: iss.RuleID + " rejected " + iss.AddressString(),
				Text:    generatePlaintext(iss),
			},
		})
		xmlReport.Tests++
		xmlReport.Failures++
	}

	return xmlReport
}
