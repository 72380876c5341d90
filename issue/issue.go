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

package issue

import (
	"encoding/json"
	"fmt"

	"github.com/securego/cfiverify/cwe"
	"github.com/securego/cfiverify/ir"
)

// Score type used by severity and confidence values
type Score int

const (
	// Low severity or confidence
	Low Score = iota
	// Medium severity or confidence
	Medium
	// High severity or confidence
	High
)

// Kind is the sub-check that rejected an instruction
type Kind int

const (
	// IndirectCall is a call whose target is not a verified function pointer
	IndirectCall Kind = iota
	// TableLookup is a call table read with an unverified offset
	TableLookup
)

// ruleToCWE maps checker rule IDs to CWEs
var ruleToCWE = map[string]string{
	"C101": "691",
	"C102": "129",
}

// GetCweByRule retrieves a cwe weakness for a given RuleID
func GetCweByRule(id string) *cwe.Weakness {
	cweID, ok := ruleToCWE[id]
	if ok && cweID != "" {
		return cwe.Get(cweID)
	}
	return nil
}

// Issue is returned by a checker when an instruction violates the control
// flow integrity property it verifies.
type Issue struct {
	Severity   Score         `json:"severity"`           // issue severity (how problematic it is)
	Confidence Score         `json:"confidence"`         // issue confidence (how sure we are we found it)
	Cwe        *cwe.Weakness `json:"cwe"`                // Cwe associated with RuleID
	RuleID     string        `json:"rule_id"`            // checker rule identifier
	Kind       Kind          `json:"kind"`               // sub-check that failed
	What       string        `json:"details"`            // Human readable explanation
	Function   string        `json:"function"`           // Function the instruction belongs to
	Address    uint64        `json:"address"`            // Address of the instruction
	StmtIdx    int           `json:"stmt"`               // Statement index within the instruction
	Code       string        `json:"code"`               // Impacted statement
	Operands   []string      `json:"operands,omitempty"` // Abstract values of the operands involved
}

// New creates a new Issue
func New(function string, loc ir.Location, ruleID string, kind Kind, desc string, code string, severity, confidence Score) *Issue {
	return &Issue{
		Function:   function,
		Address:    loc.Addr,
		StmtIdx:    loc.Idx,
		RuleID:     ruleID,
		Kind:       kind,
		What:       desc,
		Code:       code,
		Confidence: confidence,
		Severity:   severity,
		Cwe:        GetCweByRule(ruleID),
	}
}

// WithOperands attaches renderings of the operands that led to the issue
func (i *Issue) WithOperands(operands ...string) *Issue {
	i.Operands = append(i.Operands, operands...)
	return i
}

// Location returns the statement location of the issue
func (i *Issue) Location() ir.Location {
	return ir.Location{Addr: i.Address, Idx: i.StmtIdx}
}

// AddressString formats the address the way disassemblers print it
func (i *Issue) AddressString() string {
	return fmt.Sprintf("0x%x", i.Address)
}

// FileLocation points out the function and address of the issue
func (i *Issue) FileLocation() string {
	return fmt.Sprintf("%s:%s", i.Function, i.AddressString())
}

// MetaData is embedded in all checkers. The Severity, Confidence and What
// message will be passed through to reported issues.
type MetaData struct {
	ID         string
	Severity   Score
	Confidence Score
	What       string
}

// MarshalJSON is used convert a Score object into a JSON representation
func (c Score) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// String converts a Score into a string
func (c Score) String() string {
	switch c {
	case High:
		return "HIGH"
	case Medium:
		return "MEDIUM"
	case Low:
		return "LOW"
	}
	return "UNDEFINED"
}

// MarshalJSON renders the kind by name
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// MarshalYAML renders the kind by name
func (k Kind) MarshalYAML() (interface{}, error) {
	return k.String(), nil
}

// MarshalYAML renders the score by name
func (c Score) MarshalYAML() (interface{}, error) {
	return c.String(), nil
}

func (k Kind) String() string {
	switch k {
	case IndirectCall:
		return "IndirectCall"
	case TableLookup:
		return "TableLookup"
	}
	return "Unknown"
}
