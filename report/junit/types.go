package junit

import (
	"encoding/xml"
)

// Report is the root of a JUnit XML document
type Report struct {
	XMLName    xml.Name     `xml:"testsuites"`
	Tests      int          `xml:"tests,attr"`
	Failures   int          `xml:"failures,attr"`
	Testsuites []*Testsuite `xml:"testsuite"`
}

// Testsuite gathers the violations of one rule
type Testsuite struct {
	XMLName   xml.Name    `xml:"testsuite"`
	Name      string      `xml:"name,attr"`
	Tests     int         `xml:"tests,attr"`
	Failures  int         `xml:"failures,attr"`
	Testcases []*Testcase `xml:"testcase"`
}

// Testcase is one rejected statement. Classname holds the function.
type Testcase struct {
	XMLName   xml.Name `xml:"testcase"`
	Name      string   `xml:"name,attr"`
	Classname string   `xml:"classname,attr"`
	Failure   *Failure `xml:"failure"`
}

// Failure carries the plain text rendering of the issue
type Failure struct {
	XMLName xml.Name `xml:"failure"`
	Message string   `xml:"message,attr"`
	Text    string   `xml:",innerxml"`
}

// NewTestsuite instantiate a Testsuite
func NewTestsuite(name string) *Testsuite {
	return &Testsuite{Name: name}
}

// Add appends a failed testcase to the suite
func (s *Testsuite) Add(tc *Testcase) {
	s.Testcases = append(s.Testcases, tc)
	s.Tests++
	if tc.Failure != nil {
		s.Failures++
	}
}
