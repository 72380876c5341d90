package cfiverify

import (
	"github.com/securego/cfiverify/issue"
)

// ReportInfo this is report information
type ReportInfo struct {
	Errors  map[string][]Error `json:"Integration errors" yaml:"errors"`
	Issues  []*issue.Issue     `yaml:"issues"`
	Stats   *Metrics           `yaml:"stats"`
	Version string             `json:"CfiverifyVersion" yaml:"version"`
}

// NewReportInfo instantiate a ReportInfo
func NewReportInfo(issues []*issue.Issue, metrics *Metrics, errors map[string][]Error) *ReportInfo {
	return &ReportInfo{
		Errors: errors,
		Issues: issues,
		Stats:  metrics,
	}
}

// WithVersion defines the version of cfiverify used to generate the report
func (r *ReportInfo) WithVersion(version string) *ReportInfo {
	r.Version = version
	return r
}
