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

// Package nulls wraps common/bitmap for column null masks. Nulls is a
// thin value type: a nil Np means "no nulls seen yet," matching the
// column store's convention of not allocating a mask for all-valid
// columns.
package nulls

import "github.com/vecjoin/joinhash/pkg/common/bitmap"

type Nulls struct {
	Np *bitmap.Bitmap
}

func New(size int) *Nulls {
	return &Nulls{Np: bitmap.New(size)}
}

func (nsp *Nulls) Any() bool {
	return nsp != nil && nsp.Np != nil && !nsp.Np.IsEmpty()
}

func (nsp *Nulls) Contains(row uint64) bool {
	return nsp != nil && nsp.Np != nil && nsp.Np.Contains(row)
}

func (nsp *Nulls) Add(rows ...uint64) {
	if len(rows) == 0 {
		return
	}
	if nsp.Np == nil {
		nsp.Np = bitmap.New(0)
	}
	max := rows[0]
	for _, r := range rows {
		if r > max {
			max = r
		}
	}
	nsp.Np.TryExpandWithSize(int(max) + 1)
	nsp.Np.AddMany(rows)
}

func (nsp *Nulls) Count() int {
	if nsp == nil || nsp.Np == nil {
		return 0
	}
	return nsp.Np.Count()
}

// Or unions m's set bits into nsp, growing nsp as needed. Used when
// merging local build-side null masks into the global row store.
func (nsp *Nulls) Or(m *Nulls) {
	if m == nil || m.Np == nil {
		return
	}
	if nsp.Np == nil {
		nsp.Np = bitmap.New(0)
	}
	nsp.Np.Or(m.Np)
}

func (nsp *Nulls) Clone() *Nulls {
	if nsp == nil {
		return nil
	}
	return &Nulls{Np: nsp.Np.Clone()}
}
