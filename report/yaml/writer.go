package yaml

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/securego/cfiverify"
)

// WriteReport write a report in yaml format to the output writer
func WriteReport(w io.Writer, data *cfiverify.ReportInfo) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return err
	}
	return enc.Close()
}
