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

// Package vector is a single-column chunk: a typed fixed-width buffer
// (or an []string for varchar), a null mask, and a row count. It plays
// the same role matrixone's vector.Vector plays for its executor
// operators, trimmed to the four types this module's colops library
// knows how to hash, scatter, and gather.
package vector

import (
	"github.com/vecjoin/joinhash/pkg/container/nulls"
	"github.com/vecjoin/joinhash/pkg/container/types"
)

type Vector struct {
	Typ types.Type
	Nsp *nulls.Nulls

	i64 []int64
	f64 []float64
	b   []bool
	s   []string

	length int
}

func NewInt64(data []int64) *Vector {
	return &Vector{Typ: types.Int64, i64: data, length: len(data), Nsp: nulls.New(len(data))}
}

func NewFloat64(data []float64) *Vector {
	return &Vector{Typ: types.Float64, f64: data, length: len(data), Nsp: nulls.New(len(data))}
}

func NewBool(data []bool) *Vector {
	return &Vector{Typ: types.Bool, b: data, length: len(data), Nsp: nulls.New(len(data))}
}

func NewVarchar(data []string) *Vector {
	return &Vector{Typ: types.Varchar, s: data, length: len(data), Nsp: nulls.New(len(data))}
}

func (v *Vector) Length() int { return v.length }

func (v *Vector) SetLength(n int) { v.length = n }

func (v *Vector) IsNull(row int) bool { return v.Nsp.Contains(uint64(row)) }

func (v *Vector) Int64() []int64 { return v.i64 }

func (v *Vector) Float64() []float64 { return v.f64 }

func (v *Vector) Bool() []bool { return v.b }

func (v *Vector) Varchar() []string { return v.s }

// Take builds a new Vector by copying the rows named in sel, in order,
// used to materialize a join operator's probe-side output columns from
// a Result's ProbeSel. A negative index in sel produces a null row,
// used for the unmatched build-row half of a LEFT/OUTER/SINGLE result.
func (v *Vector) Take(sel []int32) *Vector {
	w := &Vector{Typ: v.Typ, length: len(sel), Nsp: nulls.New(len(sel))}
	switch v.Typ.Oid {
	case types.T_int64:
		w.i64 = make([]int64, len(sel))
	case types.T_float64:
		w.f64 = make([]float64, len(sel))
	case types.T_bool:
		w.b = make([]bool, len(sel))
	case types.T_varchar:
		w.s = make([]string, len(sel))
	}
	for i, row := range sel {
		if row < 0 || v.IsNull(int(row)) {
			w.Nsp.Add(uint64(i))
			continue
		}
		switch v.Typ.Oid {
		case types.T_int64:
			w.i64[i] = v.i64[row]
		case types.T_float64:
			w.f64[i] = v.f64[row]
		case types.T_bool:
			w.b[i] = v.b[row]
		case types.T_varchar:
			w.s[i] = v.s[row]
		}
	}
	return w
}

// Window returns a new Vector sharing the same backing arrays but
// restricted to rows [start, end). Used to carve a standard-vector-size
// chunk out of a larger column batch without copying.
func (v *Vector) Window(start, end int) *Vector {
	w := &Vector{Typ: v.Typ, length: end - start}
	switch v.Typ.Oid {
	case types.T_int64:
		w.i64 = v.i64[start:end]
	case types.T_float64:
		w.f64 = v.f64[start:end]
	case types.T_bool:
		w.b = v.b[start:end]
	case types.T_varchar:
		w.s = v.s[start:end]
	}
	w.Nsp = &nulls.Nulls{}
	for i := start; i < end; i++ {
		if v.IsNull(i) {
			w.Nsp.Add(uint64(i - start))
		}
	}
	return w
}
