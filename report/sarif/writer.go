package sarif

import (
	"encoding/json"
	"io"

	"github.com/securego/cfiverify"
)

// WriteReport write a report in SARIF format to the output writer
func WriteReport(w io.Writer, data *cfiverify.ReportInfo, artifact string) error {
	raw, err := json.MarshalIndent(GenerateReport(artifact, data), "", "\t")
	if err != nil {
		return err
	}

	_, err = w.Write(raw)
	return err
}
