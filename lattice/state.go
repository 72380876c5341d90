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

package lattice

import (
	"fmt"
	"sort"
	"strings"

	"github.com/securego/cfiverify/ir"
)

// RegState holds one fact per general purpose register. It is an array so
// assignment takes a snapshot.
type RegState [ir.NumGPRs]CallCheckValue

// Get reads a register. Only full width reads of general purpose registers
// observe the tracked fact.
func (r *RegState) Get(num uint8, size ir.ValSize) CallCheckValue {
	if num >= ir.NumGPRs || size != ir.Size64 {
		return Unknown{}
	}
	return Normalize(r[num])
}

// Set writes a register. 8 and 16 bit writes merge into the old contents and
// therefore clobber the fact. Vector registers are not tracked.
func (r *RegState) Set(num uint8, size ir.ValSize, v CallCheckValue) {
	if num >= ir.NumGPRs {
		return
	}
	if size == ir.Size8 || size == ir.Size16 {
		v = Unknown{}
	}
	r[num] = Normalize(v)
}

// StackState tracks spilled facts keyed by their offset from the stack
// pointer at function entry. Slots are shared between snapshots and copied
// on write.
type StackState struct {
	// Valid is false once the stack pointer is lost
	Valid bool
	// Delta is rsp minus rsp at function entry
	Delta int64
	slots map[int64]CallCheckValue
}

// NewStackState returns the stack at function entry
func NewStackState() StackState {
	return StackState{Valid: true}
}

// Get reads the slot at rsp+off
func (s StackState) Get(off int64) CallCheckValue {
	if !s.Valid {
		return Unknown{}
	}
	return Normalize(s.slots[s.Delta+off])
}

// Set returns the stack with the slot at rsp+off updated
func (s StackState) Set(off int64, v CallCheckValue) StackState {
	if !s.Valid {
		return s
	}
	slots := make(map[int64]CallCheckValue, len(s.slots)+1)
	for k, old := range s.slots {
		slots[k] = old
	}
	if IsUnknown(v) {
		delete(slots, s.Delta+off)
	} else {
		slots[s.Delta+off] = v
	}
	s.slots = slots
	return s
}

// Adjust moves the stack pointer by delta bytes
func (s StackState) Adjust(delta int64) StackState {
	if s.Valid {
		s.Delta += delta
	}
	return s
}

// Invalidate forgets the stack pointer and every slot
func (s StackState) Invalidate() StackState {
	return StackState{}
}

// Clobber forgets every slot but keeps tracking the stack pointer
func (s StackState) Clobber() StackState {
	return StackState{Valid: s.Valid, Delta: s.Delta}
}

// Join keeps the slots both stacks agree on
func (s StackState) Join(other StackState) StackState {
	if !s.Valid || !other.Valid || s.Delta != other.Delta {
		return StackState{}
	}
	out := StackState{Valid: true, Delta: s.Delta}
	for k, v := range s.slots {
		w, ok := other.slots[k]
		if !ok {
			continue
		}
		if j := Join(v, w); !IsUnknown(j) {
			if out.slots == nil {
				out.slots = make(map[int64]CallCheckValue)
			}
			out.slots[k] = j
		}
	}
	return out
}

// Equal reports whether both stacks hold the same facts
func (s StackState) Equal(other StackState) bool {
	if s.Valid != other.Valid || s.Delta != other.Delta || len(s.slots) != len(other.slots) {
		return false
	}
	for k, v := range s.slots {
		if w, ok := other.slots[k]; !ok || w != v {
			return false
		}
	}
	return true
}

// FlagKind is the comparison that last set the flags
type FlagKind int

const (
	// NoFlag means the flags carry no tracked comparison
	NoFlag FlagKind = iota
	// BoundsCheck is a comparison of an index against the table size
	BoundsCheck
	// TypeCheck is a comparison of an entry's type tag against a type
	TypeCheck
)

// Flag is the pending comparison consumed by the next conditional branch
type Flag struct {
	Kind FlagKind
	Reg  uint8
	Type uint32
}

// CallCheckState is the abstract machine state at one program point
type CallCheckState struct {
	Regs  RegState
	Stack StackState
	Flag  Flag
}

// NewCallCheckState returns the state at function entry: nothing known
func NewCallCheckState() CallCheckState {
	return CallCheckState{Stack: NewStackState()}
}

// Join merges two states at a control flow join
func (s CallCheckState) Join(other CallCheckState) CallCheckState {
	var out CallCheckState
	for i := range s.Regs {
		out.Regs[i] = Join(s.Regs[i], other.Regs[i])
	}
	out.Stack = s.Stack.Join(other.Stack)
	if s.Flag == other.Flag {
		out.Flag = s.Flag
	}
	return out
}

// Equal reports whether both states hold the same facts
func (s CallCheckState) Equal(other CallCheckState) bool {
	for i := range s.Regs {
		if Normalize(s.Regs[i]) != Normalize(other.Regs[i]) {
			return false
		}
	}
	return s.Flag == other.Flag && s.Stack.Equal(other.Stack)
}

func (s CallCheckState) String() string {
	var parts []string
	for i, v := range s.Regs {
		if !IsUnknown(v) {
			parts = append(parts, fmt.Sprintf("r%d: %s", i, v))
		}
	}
	if s.Stack.Valid {
		offs := make([]int64, 0, len(s.Stack.slots))
		for off := range s.Stack.slots {
			offs = append(offs, off)
		}
		sort.Slice(offs, func(i, j int) bool { return offs[i] < offs[j] })
		for _, off := range offs {
			parts = append(parts, fmt.Sprintf("stack[%d]: %s", off, s.Stack.slots[off]))
		}
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
