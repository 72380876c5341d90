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

package checkers

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/securego/cfiverify/analysis"
	"github.com/securego/cfiverify/ir"
	"github.com/securego/cfiverify/issue"
	"github.com/securego/cfiverify/lattice"
)

// nearCallLen is the encoded length of a rel32 call; immediate call
// displacements are relative to the end of the instruction.
const nearCallLen = 5

// CallChecker verifies that every indirect call goes through a resolved
// function pointer and that every call table lookup pairs the table base
// with a checked or typed offset.
type CallChecker struct {
	analyzer     *analysis.CallAnalyzer
	meta         *ir.Metadata
	logger       *logrus.Logger
	indirectCall *issue.MetaData
	tableLookup  *issue.MetaData
}

// NewCallChecker builds the call property for a module. Sub-checks whose
// rule is missing from rules are skipped.
func NewCallChecker(analyzer *analysis.CallAnalyzer, meta *ir.Metadata, rules RuleList, logger *logrus.Logger) *CallChecker {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	c := &CallChecker{
		analyzer: analyzer,
		meta:     meta,
		logger:   logger,
	}
	if rules.Has(IndirectCallRule) {
		c.indirectCall = &issue.MetaData{
			ID:         IndirectCallRule,
			What:       rules[IndirectCallRule].Description,
			Severity:   issue.High,
			Confidence: issue.High,
		}
	}
	if rules.Has(TableLookupRule) {
		c.tableLookup = &issue.MetaData{
			ID:         TableLookupRule,
			What:       rules[TableLookupRule].Description,
			Severity:   issue.High,
			Confidence: issue.High,
		}
	}
	return c
}

// CheckCalls runs the call analysis over fn and checks its result
func CheckCalls(fn *ir.Function, meta *ir.Metadata, rules RuleList, opts Options, logger *logrus.Logger) (*Verdict, error) {
	analyzer := analysis.NewCallAnalyzer(meta)
	result, err := analysis.Run[lattice.CallCheckState](analyzer, fn)
	if err != nil {
		return nil, fmt.Errorf("analyzing %s: %w", fn.DisplayName(), err)
	}
	return CheckStateAtStatements[lattice.CallCheckState](NewCallChecker(analyzer, meta, rules, logger), fn, result, opts)
}

// Transfer implements Checker
func (c *CallChecker) Transfer(state lattice.CallCheckState, stmt ir.Stmt, loc ir.Location) lattice.CallCheckState {
	return c.analyzer.Transfer(state, stmt, loc)
}

// CheckStatement implements Checker
func (c *CallChecker) CheckStatement(state lattice.CallCheckState, stmt ir.Stmt, loc ir.Location) []*issue.Issue {
	var issues []*issue.Issue
	switch s := stmt.(type) {
	case ir.Call:
		if c.indirectCall == nil {
			break
		}
		if ok, operand := c.checkIndirectCall(&state, s.Target, loc); !ok {
			c.logger.Debugf("0x%x Failure Case: Indirect Call %s", loc.Addr, s.Target)
			iss := c.newIssue(c.indirectCall, issue.IndirectCall, loc, stmt)
			if operand != "" {
				iss.WithOperands(operand)
			}
			issues = append(issues, iss)
		}
	case ir.Unop:
		mem, ok := s.Src.(ir.Mem)
		if !ok || c.tableLookup == nil {
			break
		}
		if !c.checkCalltableLookup(&state, mem.Args) {
			c.logger.Debugf("0x%x Failure Case: Lookup Call: %s", loc.Addr, mem.Args)
			operands := memargsRepr(&state, mem.Args)
			c.logger.Debugf("mem[%s]", strings.Join(operands, " + "))
			issues = append(issues, c.newIssue(c.tableLookup, issue.TableLookup, loc, stmt).WithOperands(operands...))
		}
	}
	return issues
}

func (c *CallChecker) newIssue(meta *issue.MetaData, kind issue.Kind, loc ir.Location, stmt ir.Stmt) *issue.Issue {
	return issue.New("", loc, meta.ID, kind, meta.What, stmt.String(), meta.Severity, meta.Confidence)
}

// checkIndirectCall accepts register targets holding a function pointer,
// immediate targets landing on a function entry or inside the PLT, and RIP
// relative constants. Memory targets are always rejected. The second result
// renders the classification of a rejected operand.
func (c *CallChecker) checkIndirectCall(state *lattice.CallCheckState, target ir.Value, loc ir.Location) (bool, string) {
	switch t := target.(type) {
	case ir.Reg:
		v := state.Regs.Get(t.Num, t.Size)
		if _, ok := v.(lattice.FnPtr); ok {
			return true, ""
		}
		c.logger.Debugf("%s", v)
		return false, fmt.Sprintf("%s: %s", t, v)
	case ir.Mem:
		return false, t.String()
	case ir.Imm:
		dest := uint64(t.Val + int64(loc.Addr) + nearCallLen)
		if c.meta.IsCallTarget(dest) {
			return true, ""
		}
		return false, fmt.Sprintf("0x%x", dest)
	case ir.RIPConst:
		return true, ""
	}
	return false, ""
}

// checkCalltableLookup rejects [r1 + r2 + 8] when exactly one register
// holds the table base and the other is neither a checked nor a typed
// offset. Every other address shape is not a call table lookup.
func (c *CallChecker) checkCalltableLookup(state *lattice.CallCheckState, memargs ir.MemArgs) bool {
	c.logger.Debugf("Call Table Lookup: %s", memargs)
	args, ok := memargs.(ir.Mem3Args)
	if !ok {
		return true
	}
	r1, ok1 := args.X.(ir.MemReg)
	r2, ok2 := args.Y.(ir.MemReg)
	disp, ok3 := args.Z.(ir.MemImm)
	if !ok1 || !ok2 || !ok3 || r1.Size != ir.Size64 || r2.Size != ir.Size64 || disp.Val != 8 {
		return true
	}
	v1 := state.Regs.Get(r1.Num, ir.Size64)
	v2 := state.Regs.Get(r2.Num, ir.Size64)
	_, base1 := v1.(lattice.GuestTableBase)
	_, base2 := v2.(lattice.GuestTableBase)
	switch {
	case base1 && verifiedOffset(v2), base2 && verifiedOffset(v1):
		return true
	case base1 || base2:
		return false
	}
	return true
}

func verifiedOffset(v lattice.CallCheckValue) bool {
	switch v := v.(type) {
	case lattice.PtrOffset:
		return v.Check == lattice.Checked
	case lattice.TypedPtrOffset:
		return true
	}
	return false
}

func memargRepr(state *lattice.CallCheckState, arg ir.MemArg) string {
	switch a := arg.(type) {
	case ir.MemReg:
		return fmt.Sprintf("r%d: %s", a.Num, state.Regs.Get(a.Num, a.Size))
	case ir.MemImm:
		return fmt.Sprintf("%d", a.Val)
	}
	return "?"
}

func memargsRepr(state *lattice.CallCheckState, memargs ir.MemArgs) []string {
	args := memargs.Args()
	out := make([]string, 0, len(args))
	for _, a := range args {
		out = append(out, memargRepr(state, a))
	}
	return out
}
