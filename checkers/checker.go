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

// Package checkers replays converged analysis states statement by statement
// and evaluates control flow integrity properties against them.
package checkers

import (
	"errors"
	"fmt"

	"github.com/securego/cfiverify/analysis"
	"github.com/securego/cfiverify/ir"
	"github.com/securego/cfiverify/issue"
)

// ErrMissingState is returned when a reachable instruction has no state in
// the analysis result. Checking it against a default state could hide an
// unsound analyzer, so the check fails instead.
var ErrMissingState = errors.New("no analysis state for instruction")

// Checker is a property evaluated over states of type S
type Checker[S any] interface {
	// Transfer advances the state over one statement
	Transfer(state S, stmt ir.Stmt, loc ir.Location) S
	// CheckStatement returns the violations of the statement at loc given
	// the state right before it. Statements the property does not care
	// about yield nothing.
	CheckStatement(state S, stmt ir.Stmt, loc ir.Location) []*issue.Issue
}

// Options tunes a traversal
type Options struct {
	// FailFast stops at the first violation instead of scanning the whole
	// function
	FailFast bool
}

// Verdict is the outcome of checking one function
type Verdict struct {
	Pass       bool
	Issues     []*issue.Issue
	Statements int
}

// CheckStateAtStatements walks the reachable blocks of fn in address order
// and evaluates c against the state before every statement. The state of an
// instruction's first statement comes from res; the following statements of
// the same instruction see the state re-derived with c.Transfer.
func CheckStateAtStatements[S any](c Checker[S], fn *ir.Function, res *analysis.Result[S], opts Options) (*Verdict, error) {
	verdict := &Verdict{Pass: true}
	reachable := fn.Reachable()
	name := fn.DisplayName()
	for _, block := range fn.Blocks {
		if !reachable[block.Addr] {
			continue
		}
		for _, instr := range block.Instrs {
			state, ok := res.Get(ir.Location{Addr: instr.Addr})
			if !ok {
				return nil, fmt.Errorf("%w: 0x%x in %s", ErrMissingState, instr.Addr, name)
			}
			for i, stmt := range instr.Stmts {
				loc := ir.Location{Addr: instr.Addr, Idx: i}
				verdict.Statements++
				if found := c.CheckStatement(state, stmt, loc); len(found) > 0 {
					for _, iss := range found {
						iss.Function = name
					}
					verdict.Pass = false
					verdict.Issues = append(verdict.Issues, found...)
					if opts.FailFast {
						return verdict, nil
					}
				}
				state = c.Transfer(state, stmt, loc)
			}
		}
	}
	return verdict, nil
}
