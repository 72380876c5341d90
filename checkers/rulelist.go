// (c) Copyright 2016 Hewlett Packard Enterprise Development LP
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

package checkers

import "sort"

// Rule IDs of the call property
const (
	IndirectCallRule = "C101"
	TableLookupRule  = "C102"
)

// RuleDefinition contains the description of a rule
type RuleDefinition struct {
	ID          string
	Description string
}

// RuleList contains the enabled rules keyed by ID
type RuleList map[string]RuleDefinition

// RuleFilter can be used to include or exclude a rule depending on the return
// value of the function
type RuleFilter func(string) bool

// NewRuleFilter is a closure that will include/exclude the rule ID
// depending on the value of the action argument
func NewRuleFilter(action bool, ruleIDs ...string) RuleFilter {
	rulelist := make(map[string]bool)
	for _, rule := range ruleIDs {
		rulelist[rule] = true
	}
	return func(rule string) bool {
		if _, found := rulelist[rule]; found {
			return action
		}
		return !action
	}
}

// Generate the list of rules to use
func Generate(filters ...RuleFilter) RuleList {
	rules := []RuleDefinition{
		{IndirectCallRule, "Indirect call target is not a verified function pointer"},
		{TableLookupRule, "Call table lookup with an unverified offset"},
	}

	ruleMap := make(RuleList)
RULES:
	for _, rule := range rules {
		for _, filter := range filters {
			if filter(rule.ID) {
				continue RULES
			}
		}
		ruleMap[rule.ID] = rule
	}
	return ruleMap
}

// Has reports whether the rule is enabled
func (rl RuleList) Has(id string) bool {
	_, ok := rl[id]
	return ok
}

// IDs returns the enabled rule IDs in ascending order
func (rl RuleList) IDs() []string {
	ids := make([]string, 0, len(rl))
	for id := range rl {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
