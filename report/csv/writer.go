package csv

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/securego/cfiverify"
)

// WriteReport write a report in csv format to the output writer
func WriteReport(w io.Writer, data *cfiverify.ReportInfo) error {
	out := csv.NewWriter(w)
	defer out.Flush()
	for _, issue := range data.Issues {
		err := out.Write([]string{
			issue.Function,
			issue.AddressString(),
			issue.Kind.String(),
			issue.What,
			issue.Severity.String(),
			issue.Confidence.String(),
			issue.Code,
			strings.Join(issue.Operands, "; "),
			issue.Cwe.SprintID(),
		})
		if err != nil {
			return err
		}
	}
	return nil
}
