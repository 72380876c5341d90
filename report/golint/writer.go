package golint

import (
	"fmt"
	"io"

	"github.com/securego/cfiverify"
)

// WriteReport write a report in golint format to the output writer
func WriteReport(w io.Writer, data *cfiverify.ReportInfo) error {
	// Output Sample:
	// guest_func_3:0x4010: [CWE-129] Call table lookup with an unverified offset (Rule:C102, Severity:HIGH, Confidence:HIGH)

	for _, issue := range data.Issues {
		what := issue.What
		if issue.Cwe != nil && issue.Cwe.ID != "" {
			what = fmt.Sprintf("[%s] %s", issue.Cwe.SprintID(), issue.What)
		}

		_, err := fmt.Fprintf(w, "%s: %s (Rule:%s, Severity:%s, Confidence:%s)\n",
			issue.FileLocation(),
			what,
			issue.RuleID,
			issue.Severity.String(),
			issue.Confidence.String(),
		)
		if err != nil {
			return err
		}
	}
	return nil
}
