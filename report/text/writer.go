package text

import (
	"bytes"
	_ "embed" // use go embed to import template
	"fmt"
	"io"
	"text/template"

	"github.com/gookit/color"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/securego/cfiverify"
	"github.com/securego/cfiverify/issue"
)

var (
	errorTheme   = color.New(color.FgLightWhite, color.BgRed)
	warningTheme = color.New(color.FgBlack, color.BgYellow)
	defaultTheme = color.New(color.FgWhite, color.BgBlack)

	//go:embed template.txt
	templateContent string
)

// WriteReport write a (colorized) report in text format
func WriteReport(w io.Writer, data *cfiverify.ReportInfo, enableColor bool) error {
	t, e := template.
		New("cfiverify").
		Funcs(plainTextFuncMap(enableColor)).
		Parse(templateContent)
	if e != nil {
		return e
	}
	if data.Stats == nil {
		data.Stats = &cfiverify.Metrics{}
	}

	return t.Execute(w, data)
}

func plainTextFuncMap(enableColor bool) template.FuncMap {
	caser := cases.Title(language.English)
	common := template.FuncMap{
		"printCode": printCodeSnippet,
		"title":     caser.String,
		"hex":       func(addr uint64) string { return fmt.Sprintf("0x%x", addr) },
	}
	if enableColor {
		common["highlight"] = highlight
		common["danger"] = color.Danger.Render
		common["notice"] = color.Notice.Render
		common["success"] = color.Success.Render
		return common
	}

	// by default those functions return the given content untouched
	common["highlight"] = func(t string, _ issue.Score) string {
		return t
	}
	common["danger"] = fmt.Sprint
	common["notice"] = fmt.Sprint
	common["success"] = fmt.Sprint
	return common
}

// highlight returns content t colored based on Score
func highlight(t string, s issue.Score) string {
	switch s {
	case issue.High:
		return errorTheme.Sprint(t)
	case issue.Medium:
		return warningTheme.Sprint(t)
	default:
		return defaultTheme.Sprint(t)
	}
}

// printCodeSnippet prints the rejected statement followed by the abstract
// values of its operands
func printCodeSnippet(iss *issue.Issue) string {
	var buf bytes.Buffer
	buf.WriteString("  > " + iss.Code + "\n")
	for _, op := range iss.Operands {
		buf.WriteString("    " + op + "\n")
	}
	return buf.String()
}
