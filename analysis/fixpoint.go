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
	"errors"
	"fmt"
	"slices"

	"github.com/google/btree"

	"github.com/securego/cfiverify/ir"
)

var (
	// ErrEmptyFunction is returned for a function without blocks
	ErrEmptyFunction = errors.New("function has no blocks")
	// ErrMissingBlock is returned when the entry or a successor block does
	// not exist
	ErrMissingBlock = errors.New("block not found")
	// ErrNoConvergence is returned when a block exceeds its visit budget,
	// which only happens for a non monotone or very tall analyzer
	ErrNoConvergence = errors.New("fixed point did not converge")
)

// maxVisitsPerBlock bounds how often any single block is revisited. Every
// tracked slot has a lattice of small finite height, so a monotone analyzer
// stays far below it.
const maxVisitsPerBlock = 64

// Run computes the fixed point of a over fn. Blocks are visited lowest
// address first and the states of incoming edges are joined.
func Run[S any](a Analyzer[S], fn *ir.Function) (*Result[S], error) {
	if len(fn.Blocks) == 0 {
		return nil, ErrEmptyFunction
	}
	if _, ok := fn.Block(fn.Addr); !ok {
		return nil, fmt.Errorf("%w: entry 0x%x", ErrMissingBlock, fn.Addr)
	}

	in := map[uint64]S{fn.Addr: a.InitState(fn)}
	pre := make(map[ir.Location]S, fn.NumInstructions())
	worklist := btree.NewOrderedG[uint64](btreeDegree)
	worklist.ReplaceOrInsert(fn.Addr)

	visits := make(map[uint64]int, len(fn.Blocks))
	iterations := 0
	for worklist.Len() > 0 {
		addr, _ := worklist.DeleteMin()
		if visits[addr] >= maxVisitsPerBlock {
			return nil, fmt.Errorf("%w: block 0x%x visited %d times", ErrNoConvergence, addr, visits[addr])
		}
		visits[addr]++
		iterations++

		block, _ := fn.Block(addr)
		state := in[addr]
		for _, instr := range block.Instrs {
			pre[ir.Location{Addr: instr.Addr}] = state
			for i, stmt := range instr.Stmts {
				state = a.Transfer(state, stmt, ir.Location{Addr: instr.Addr, Idx: i})
			}
		}

		for _, succ := range distinct(block.Succs) {
			if _, ok := fn.Block(succ); !ok {
				return nil, fmt.Errorf("%w: successor 0x%x of block 0x%x", ErrMissingBlock, succ, addr)
			}
			out := edgeState(a, block, state, succ)
			old, seen := in[succ]
			if !seen {
				in[succ] = out
				worklist.ReplaceOrInsert(succ)
				continue
			}
			if joined := a.Join(old, out); !a.Equal(joined, old) {
				in[succ] = joined
				worklist.ReplaceOrInsert(succ)
			}
		}
	}

	result := NewResult(pre)
	result.iterations = iterations
	return result, nil
}

// edgeState refines the out state of block for the edge to succ. When a
// conditional branch has no successor other than its target, the fall
// through lands on the target as well and both outcomes are joined.
func edgeState[S any](a Analyzer[S], block *ir.Block, state S, succ uint64) S {
	last := block.Last()
	if last == nil {
		return state
	}
	loc := block.LastLocation()
	br, isBranch := last.(ir.Branch)
	if !isBranch {
		return a.ProcessBranch(state, last, loc, succ, false)
	}
	if succ != br.Target {
		return a.ProcessBranch(state, last, loc, succ, false)
	}
	for _, other := range block.Succs {
		if other != br.Target {
			return a.ProcessBranch(state, last, loc, succ, true)
		}
	}
	return a.Join(a.ProcessBranch(state, last, loc, succ, true), a.ProcessBranch(state, last, loc, succ, false))
}

// distinct drops repeated successors, keeping the first occurrence
func distinct(succs []uint64) []uint64 {
	out := make([]uint64, 0, len(succs))
	for _, s := range succs {
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}
