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

// Package analysis computes, for every instruction of a function, the
// converged abstract state that holds before it executes.
package analysis

import "github.com/securego/cfiverify/ir"

// Analyzer is an abstract interpretation over states of type S.
//
// Transfer must be pure and total: statements it does not understand leave
// the state unchanged apart from forgetting whatever they overwrite.
type Analyzer[S any] interface {
	// InitState returns the state at the entry of fn
	InitState(fn *ir.Function) S
	// Transfer applies one statement
	Transfer(state S, stmt ir.Stmt, loc ir.Location) S
	// ProcessBranch refines the state flowing along the edge to succ. stmt
	// is the last statement of the block and taken tells whether succ is
	// the target of a conditional branch.
	ProcessBranch(state S, stmt ir.Stmt, loc ir.Location, succ uint64, taken bool) S
	// Join merges the states of two incoming edges
	Join(a, b S) S
	// Equal reports whether two states carry the same facts
	Equal(a, b S) bool
}
