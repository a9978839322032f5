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

// Package batch groups named vectors into one chunk, the unit build and
// probe exchange with the surrounding pipeline.
package batch

import "github.com/vecjoin/joinhash/pkg/container/vector"

type Batch struct {
	Attrs    []string
	Vecs     []*vector.Vector
	rowCount int
}

func New(attrs []string, vecs []*vector.Vector) *Batch {
	b := &Batch{Attrs: attrs, Vecs: vecs}
	if len(vecs) > 0 {
		b.rowCount = vecs[0].Length()
	}
	return b
}

func (b *Batch) RowCount() int { return b.rowCount }

func (b *Batch) SetRowCount(n int) {
	b.rowCount = n
	for _, v := range b.Vecs {
		v.SetLength(n)
	}
}

func (b *Batch) Vec(attr string) *vector.Vector {
	for i, a := range b.Attrs {
		if a == attr {
			return b.Vecs[i]
		}
	}
	return nil
}

// Window carves rows [start, end) out of every vector, mirroring
// vector.Vector.Window at the batch level.
func (b *Batch) Window(start, end int) *Batch {
	vecs := make([]*vector.Vector, len(b.Vecs))
	for i, v := range b.Vecs {
		vecs[i] = v.Window(start, end)
	}
	return New(b.Attrs, vecs)
}
