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

// Package lattice holds the abstract domain tracked by the call analysis:
// pointer provenance of registers and stack slots and the definite-check
// facts attached to call table offsets.
package lattice

import "fmt"

// CallCheckValue is an abstract fact about one register or stack slot.
//
// The set of facts is closed: Unknown, FnPtr, GuestTableBase, PtrOffset,
// TypedPtrOffset, CheckedVal and TypeOf. A nil CallCheckValue reads as
// Unknown.
type CallCheckValue interface {
	isCallCheckValue()
	String() string
}

// Unknown is the top of the lattice: nothing is known about the value
type Unknown struct{}

// FnPtr is a function entry or PLT stub address. Type is the declared
// function type when known.
type FnPtr struct {
	Type uint32
}

// GuestTableBase is the base address of the sandbox's indirect call table
type GuestTableBase struct{}

// PtrOffset is a byte offset into the call table
type PtrOffset struct {
	Check DAV
}

// TypedPtrOffset is an offset whose table entry was compared against Type
type TypedPtrOffset struct {
	Type uint32
}

// CheckedVal is an index proven to be below the table size
type CheckedVal struct{}

// TypeOf is the type tag of the table entry addressed by the offset in Reg
type TypeOf struct {
	Reg uint8
}

func (Unknown) isCallCheckValue()        {}
func (FnPtr) isCallCheckValue()          {}
func (GuestTableBase) isCallCheckValue() {}
func (PtrOffset) isCallCheckValue()      {}
func (TypedPtrOffset) isCallCheckValue() {}
func (CheckedVal) isCallCheckValue()     {}
func (TypeOf) isCallCheckValue()         {}

func (Unknown) String() string          { return "Unknown" }
func (v FnPtr) String() string          { return fmt.Sprintf("FnPtr(%d)", v.Type) }
func (GuestTableBase) String() string   { return "GuestTableBase" }
func (v PtrOffset) String() string      { return fmt.Sprintf("PtrOffset(%s)", v.Check) }
func (v TypedPtrOffset) String() string { return fmt.Sprintf("TypedPtrOffset(%d)", v.Type) }
func (CheckedVal) String() string       { return "CheckedVal" }
func (v TypeOf) String() string         { return fmt.Sprintf("TypeOf(r%d)", v.Reg) }

// Normalize maps nil to Unknown
func Normalize(v CallCheckValue) CallCheckValue {
	if v == nil {
		return Unknown{}
	}
	return v
}

// IsUnknown reports whether v carries no fact
func IsUnknown(v CallCheckValue) bool {
	_, ok := Normalize(v).(Unknown)
	return ok
}

// Join merges two facts at a control flow join. Equal facts are kept,
// offsets merge their check status with DAV.Meet and every other
// disagreement collapses to Unknown.
func Join(a, b CallCheckValue) CallCheckValue {
	a, b = Normalize(a), Normalize(b)
	if a == b {
		return a
	}
	if x, ok := a.(PtrOffset); ok {
		if y, ok := b.(PtrOffset); ok {
			return PtrOffset{Check: x.Check.Meet(y.Check)}
		}
	}
	return Unknown{}
}

// Leq reports whether a is at least as precise as b
func Leq(a, b CallCheckValue) bool {
	return Join(a, b) == Normalize(b)
}
