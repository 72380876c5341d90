// (c) Copyright cfiverify's authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package report

import (
	"fmt"
	"io"

	"github.com/securego/cfiverify"
	"github.com/securego/cfiverify/report/csv"
	"github.com/securego/cfiverify/report/golint"
	"github.com/securego/cfiverify/report/json"
	"github.com/securego/cfiverify/report/junit"
	"github.com/securego/cfiverify/report/sarif"
	"github.com/securego/cfiverify/report/text"
	"github.com/securego/cfiverify/report/yaml"
)

// Formats lists the accepted report formats
var Formats = []string{"text", "json", "yaml", "csv", "junit-xml", "golint", "sarif"}

// CreateReport generates a report based for the supplied issues and metrics given
// the specified format. The formats currently accepted are: json, yaml, csv, junit-xml, golint, sarif and text.
// artifacts lists the analyzed module files; SARIF names the artifact only
// when there is exactly one.
func CreateReport(w io.Writer, format string, enableColor bool, artifacts []string, data *cfiverify.ReportInfo) error {
	var err error
	switch format {
	case "json":
		err = json.WriteReport(w, data)
	case "yaml":
		err = yaml.WriteReport(w, data)
	case "csv":
		err = csv.WriteReport(w, data)
	case "junit-xml":
		err = junit.WriteReport(w, data)
	case "golint":
		err = golint.WriteReport(w, data)
	case "sarif":
		var artifact string
		if len(artifacts) == 1 {
			artifact = artifacts[0]
		}
		err = sarif.WriteReport(w, data, artifact)
	case "text":
		err = text.WriteReport(w, data, enableColor)
	default:
		err = fmt.Errorf("unsupported report format %q", format)
	}
	return err
}
