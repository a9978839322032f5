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

package jointable

import (
	"github.com/vecjoin/joinhash/pkg/colops"
	"github.com/vecjoin/joinhash/pkg/container/types"
	"github.com/vecjoin/joinhash/pkg/rowstore"
)

// The pipeline operator (pkg/colexec/hashjoin) needs to gather build-side
// columns for whatever RowPointers a ScanStructure or FullOuterScanner
// hands back; these accessors are its only window into the row store.

func (jht *JoinHashTable) Layout() *rowstore.Layout { return jht.layout }

func (jht *JoinHashTable) BuildColumnType(i int) types.Type { return jht.opts.BuildColumns[i] }

func (jht *JoinHashTable) RowBytes(ptr rowstore.RowPointer) []byte {
	if ptr.IsNil() {
		return nil
	}
	return jht.rows.RowBytes(ptr)
}

func (jht *JoinHashTable) HeapReader() colops.HeapReader { return jht.rows }

func (jht *JoinHashTable) ColumnValid(row []byte, col int) bool {
	return jht.layout.ColumnValid(row, col)
}
