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

package rowstore

// RowPointer addresses a row by (block, row-within-block) rather than a
// raw memory address. This is the Go-idiomatic rendering of the
// original's raw row pointer: it stays valid whether the owning block
// is resident or has been unswizzled to a buffer-manager handle, and it
// never needs an unsafe.Pointer cast to walk a bucket chain.
type RowPointer struct {
	Block int32
	Row   int32
}

// Nil is the sentinel "no next row" pointer, used both for an empty
// hash bucket and for the end of a chain.
var Nil = RowPointer{Block: -1, Row: -1}

func (p RowPointer) IsNil() bool { return p.Block < 0 }
