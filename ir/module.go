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

package ir

import (
	"fmt"
	"sort"

	"github.com/ianlancetaylor/demangle"
)

// Instruction is one machine instruction lifted into one or more statements
type Instruction struct {
	Addr  uint64
	Stmts []Stmt
}

// Block is a basic block. Succs lists the addresses of the successor blocks.
type Block struct {
	Addr   uint64
	Instrs []Instruction
	Succs  []uint64
}

// Last returns the final statement of the block, or nil for an empty block
func (b *Block) Last() Stmt {
	if len(b.Instrs) == 0 {
		return nil
	}
	stmts := b.Instrs[len(b.Instrs)-1].Stmts
	if len(stmts) == 0 {
		return nil
	}
	return stmts[len(stmts)-1]
}

// LastLocation returns the location of the final statement of the block
func (b *Block) LastLocation() Location {
	if len(b.Instrs) == 0 {
		return Location{Addr: b.Addr}
	}
	instr := b.Instrs[len(b.Instrs)-1]
	idx := len(instr.Stmts) - 1
	if idx < 0 {
		idx = 0
	}
	return Location{Addr: instr.Addr, Idx: idx}
}

// Function is a lifted function. Blocks are kept sorted by address and the
// entry block is the one starting at Addr.
type Function struct {
	Name   string
	Addr   uint64
	Blocks []*Block
}

// NewFunction builds a function with its blocks sorted in program order
func NewFunction(name string, addr uint64, blocks ...*Block) *Function {
	fn := &Function{Name: name, Addr: addr, Blocks: blocks}
	sort.Slice(fn.Blocks, func(i, j int) bool {
		return fn.Blocks[i].Addr < fn.Blocks[j].Addr
	})
	return fn
}

// Block returns the block starting at addr
func (f *Function) Block(addr uint64) (*Block, bool) {
	i := sort.Search(len(f.Blocks), func(i int) bool {
		return f.Blocks[i].Addr >= addr
	})
	if i < len(f.Blocks) && f.Blocks[i].Addr == addr {
		return f.Blocks[i], true
	}
	return nil, false
}

// Reachable returns the addresses of the blocks reachable from the entry.
// Successors that name no block are ignored.
func (f *Function) Reachable() map[uint64]bool {
	seen := make(map[uint64]bool, len(f.Blocks))
	if _, ok := f.Block(f.Addr); !ok {
		return seen
	}
	stack := []uint64{f.Addr}
	seen[f.Addr] = true
	for len(stack) > 0 {
		addr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		block, _ := f.Block(addr)
		for _, succ := range block.Succs {
			if _, ok := f.Block(succ); ok && !seen[succ] {
				seen[succ] = true
				stack = append(stack, succ)
			}
		}
	}
	return seen
}

// NumInstructions returns the number of instructions in the function
func (f *Function) NumInstructions() int {
	n := 0
	for _, b := range f.Blocks {
		n += len(b.Instrs)
	}
	return n
}

// DisplayName returns the demangled function name, or its address when the
// function has no symbol.
func (f *Function) DisplayName() string {
	if f.Name == "" {
		return fmt.Sprintf("sub_%x", f.Addr)
	}
	if d, err := demangle.ToString(f.Name); err == nil {
		return d
	}
	return f.Name
}

// Range is a half open address range [Start, End)
type Range struct {
	Start uint64 `json:"start" yaml:"start"`
	End   uint64 `json:"end" yaml:"end"`
}

// Contains reports whether addr falls inside the range
func (r Range) Contains(addr uint64) bool {
	return addr >= r.Start && addr < r.End
}

// Metadata is the module level information supplied alongside the IR
type Metadata struct {
	// Funcs is the set of function entry addresses
	Funcs map[uint64]struct{}
	// PLT is the address range of the procedure linkage table
	PLT Range
	// GuestTable is the address of the sandbox's indirect call table
	GuestTable uint64
	// TableSize is the number of entries in the indirect call table
	TableSize int64
}

// NewMetadata builds module metadata from a list of function addresses
func NewMetadata(funcs []uint64, plt Range, guestTable uint64, tableSize int64) *Metadata {
	set := make(map[uint64]struct{}, len(funcs))
	for _, f := range funcs {
		set[f] = struct{}{}
	}
	return &Metadata{
		Funcs:      set,
		PLT:        plt,
		GuestTable: guestTable,
		TableSize:  tableSize,
	}
}

// IsFunction reports whether addr is a known function entry
func (m *Metadata) IsFunction(addr uint64) bool {
	_, ok := m.Funcs[addr]
	return ok
}

// IsCallTarget reports whether addr is a function entry or a PLT stub
func (m *Metadata) IsCallTarget(addr uint64) bool {
	return m.IsFunction(addr) || m.PLT.Contains(addr)
}

// Module is a lifted binary
type Module struct {
	Name      string
	Metadata  *Metadata
	Functions []*Function
}
