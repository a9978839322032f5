// Copyright 2021 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package markagg is the correlated MARK join's side aggregate: a
// running COUNT(*) and COUNT(col) per correlated group, consulted when
// a MARK probe row has no equality match but its correlated group has
// any NULL-valued join key on the build side — in that case the mark
// result is NULL rather than false, mirroring SQL's "IN" semantics over
// a set containing NULL.
package markagg

// Aggregate holds one (countStar, countCol) pair per correlated group,
// keyed by the group's combined hash. Cardinality of distinct
// correlated groups is expected small relative to row count, so a plain
// map is the right structure rather than a chained bucket array.
type Aggregate struct {
	groups map[uint64]*counts
}

type counts struct {
	countStar int64
	countCol  int64
}

func New() *Aggregate {
	return &Aggregate{groups: make(map[uint64]*counts)}
}

// Add records one build row in groupHash's group. colNonNull is
// whether the join-key column is non-null for this row.
func (a *Aggregate) Add(groupHash uint64, colNonNull bool) {
	c, ok := a.groups[groupHash]
	if !ok {
		c = &counts{}
		a.groups[groupHash] = c
	}
	c.countStar++
	if colNonNull {
		c.countCol++
	}
}

// HasNullInGroup reports whether groupHash's group has any row where
// the join key was null: countStar > countCol.
func (a *Aggregate) HasNullInGroup(groupHash uint64) bool {
	c, ok := a.groups[groupHash]
	if !ok {
		return false
	}
	return c.countStar > c.countCol
}

// Merge folds other's per-group counts into a, used when combining a
// parallel build worker's local aggregate into the global one.
func (a *Aggregate) Merge(other *Aggregate) {
	for h, c := range other.groups {
		if existing, ok := a.groups[h]; ok {
			existing.countStar += c.countStar
			existing.countCol += c.countCol
		} else {
			a.groups[h] = &counts{countStar: c.countStar, countCol: c.countCol}
		}
	}
}

// GroupExists reports whether any build row belongs to groupHash's
// group at all — an empty correlated group has no NULLs to blame a
// missed match on, so MARK degrades to plain false there.
func (a *Aggregate) GroupExists(groupHash uint64) bool {
	_, ok := a.groups[groupHash]
	return ok
}
