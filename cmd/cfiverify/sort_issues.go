package main

import (
	"sort"

	"github.com/securego/cfiverify/issue"
)

type sortBySeverity []*issue.Issue

func (s sortBySeverity) Len() int { return len(s) }

func (s sortBySeverity) Less(i, j int) bool {
	if s[i].Severity == s[j].Severity {
		if s[i].What == s[j].What {
			if s[i].Function == s[j].Function {
				return s[i].Address < s[j].Address
			}
			return s[i].Function < s[j].Function
		}
		return s[i].What > s[j].What
	}
	return s[i].Severity > s[j].Severity
}

func (s sortBySeverity) Swap(i, j int) { s[i], s[j] = s[j], s[i] }

// sortIssues sorts the issues by severity in descending order. Issues of
// the same severity and rule keep program order.
func sortIssues(issues []*issue.Issue) {
	sort.Stable(sortBySeverity(issues))
}
