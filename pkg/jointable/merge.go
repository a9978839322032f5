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
	"github.com/vecjoin/joinhash/pkg/common/moerr"
	"github.com/vecjoin/joinhash/pkg/radix"
)

// Merge absorbs a local (per-worker) table's rows into jht wholesale —
// no Finalize has happened on either side yet, so this is just a block
// splice, not a row-by-row copy. Every worker builds into its own local
// table so Build itself never needs a lock; Merge is the single
// synchronization point, called once per worker when it's done, under
// a caller-held lock (see pkg/parallel.PartitionEvent).
func (jht *JoinHashTable) Merge(local *JoinHashTable) error {
	if jht.finalized || local.finalized {
		return moerr.NewInvariantViolation("jointable: Merge called after Finalize")
	}
	if jht.opts.InitialRadixBits != local.opts.InitialRadixBits {
		return moerr.NewInvariantViolation(
			"jointable: radix bit mismatch merging local table: global=%d local=%d",
			jht.opts.InitialRadixBits, local.opts.InitialRadixBits)
	}
	jht.rows.Merge(local.rows)
	if err := jht.MergeHistogram(local); err != nil {
		return err
	}
	if jht.markAgg != nil && local.markAgg != nil {
		jht.markAgg.Merge(local.markAgg)
	}
	jht.hasNull = jht.hasNull || local.hasNull
	return nil
}

// MergeHistogram folds local's build-side histogram into jht's under a
// dedicated lock, separate from the row-store splice Merge otherwise
// does. Both tables must currently agree on radix bit count — the
// spec's resolution for disagreement is to fix the bit count build-wide
// before any local ever starts partitioning, not to reconcile it here.
func (jht *JoinHashTable) MergeHistogram(local *JoinHashTable) error {
	if jht.histogram == nil || local.histogram == nil {
		return nil
	}
	if jht.histogram.Bits != local.histogram.Bits {
		return moerr.NewInvariantViolation(
			"jointable: radix bit mismatch merging histogram: global=%d local=%d",
			jht.histogram.Bits, local.histogram.Bits)
	}
	jht.histMu.Lock()
	defer jht.histMu.Unlock()
	return radix.Merge(jht.histogram, local.histogram)
}
