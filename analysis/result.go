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

package analysis

import (
	"github.com/google/btree"

	"github.com/securego/cfiverify/ir"
)

const btreeDegree = 32

type entry[S any] struct {
	loc   ir.Location
	state S
}

func lessEntry[S any](a, b entry[S]) bool {
	return a.loc.Less(b.loc)
}

// Result is the converged pre-state of every reachable instruction, keyed by
// the instruction's location with a zero statement index. It is never
// modified once built; recomputing an analysis produces a new Result.
type Result[S any] struct {
	tree       *btree.BTreeG[entry[S]]
	iterations int
}

// NewResult snapshots a location to state mapping. It lets engines other
// than Run hand their fixed point to the checkers.
func NewResult[S any](states map[ir.Location]S) *Result[S] {
	tree := btree.NewG[entry[S]](btreeDegree, lessEntry[S])
	for loc, state := range states {
		tree.ReplaceOrInsert(entry[S]{loc: loc, state: state})
	}
	return &Result[S]{tree: tree}
}

// Get returns the state before the statement at loc
func (r *Result[S]) Get(loc ir.Location) (S, bool) {
	e, ok := r.tree.Get(entry[S]{loc: loc})
	return e.state, ok
}

// Len returns the number of locations with a state
func (r *Result[S]) Len() int {
	return r.tree.Len()
}

// Ascend visits the states in program order until fn returns false
func (r *Result[S]) Ascend(fn func(loc ir.Location, state S) bool) {
	r.tree.Ascend(func(e entry[S]) bool {
		return fn(e.loc, e.state)
	})
}

// Iterations returns how many block visits the fixed point took
func (r *Result[S]) Iterations() int {
	return r.iterations
}
