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

// DAV is a definite-check fact: whether a bounds check dominates a use on
// every path reaching it. The zero value carries no guarantee.
type DAV int

const (
	// DAVUnknown is the fact of an unanalyzed or merged-away path
	DAVUnknown DAV = iota
	// NotChecked means at least one path reaches the use without a check
	NotChecked
	// Checked means every path reaches the use through a bounds check
	Checked
)

// Meet merges the facts of two incoming paths. Checked survives only when
// both sides are Checked and Unknown absorbs everything.
func (d DAV) Meet(other DAV) DAV {
	switch {
	case d == DAVUnknown || other == DAVUnknown:
		return DAVUnknown
	case d == Checked && other == Checked:
		return Checked
	}
	return NotChecked
}

func (d DAV) String() string {
	switch d {
	case Checked:
		return "Checked"
	case NotChecked:
		return "NotChecked"
	}
	return "Unknown"
}
