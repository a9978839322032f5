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

// Command joinbench drives pkg/jointable against synthetic int64-keyed
// columns, the same shape of workload the hash join algorithm's design
// doc benchmarks itself against, to give a quick before/after read on a
// change to the row store, bucket array, or radix partitioner.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/vecjoin/joinhash/pkg/colops"
	"github.com/vecjoin/joinhash/pkg/common/buffer"
	"github.com/vecjoin/joinhash/pkg/container/types"
	"github.com/vecjoin/joinhash/pkg/container/vector"
	"github.com/vecjoin/joinhash/pkg/jointable"
)

var (
	buildRows  = flag.Int("build-rows", 1_000_000, "number of build-side rows")
	probeRows  = flag.Int("probe-rows", 1_000_000, "number of probe-side rows")
	joinKind   = flag.String("join", "inner", "inner|left|right|outer|semi|anti|mark|single")
	chunkSize  = flag.Int("chunk", 2048, "rows per vectorized chunk")
	radixBits  = flag.Int("radix-bits", 0, "initial radix bits for a partitioned build (0 = single in-memory table)")
	poolMB     = flag.Int("pool-mb", 512, "buffer pool capacity in MiB")
	hashOnPK   = flag.Bool("hash-on-pk", false, "assume the build key is a primary key")
	seed       = flag.Int64("seed", 1, "PRNG seed")
)

func joinTypeFromFlag(s string) (jointable.JoinType, error) {
	switch s {
	case "inner":
		return jointable.Inner, nil
	case "left":
		return jointable.Left, nil
	case "right":
		return jointable.Right, nil
	case "outer":
		return jointable.Outer, nil
	case "semi":
		return jointable.Semi, nil
	case "anti":
		return jointable.Anti, nil
	case "mark":
		return jointable.Mark, nil
	case "single":
		return jointable.Single, nil
	default:
		return 0, fmt.Errorf("unknown -join value %q", s)
	}
}

// int64Chunks splits n rows of random int64 keys in [0, keyRange) into
// chunk-sized vectors, the unit pkg/jointable.Build/Probe consume.
func int64Chunks(rng *rand.Rand, n, keyRange, chunk int) []*vector.Vector {
	var out []*vector.Vector
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		data := make([]int64, end-start)
		for i := range data {
			data[i] = rng.Int63n(int64(keyRange))
		}
		out = append(out, vector.NewInt64(data))
	}
	return out
}

func main() {
	flag.Parse()

	jt, err := joinTypeFromFlag(*joinKind)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, _ := zap.NewDevelopment()
	defer log.Sync()

	pool := buffer.NewPool(256*1024, int64(*poolMB)*1024*1024, log)

	opts := &jointable.Options{
		JoinType: jt,
		Conditions: []jointable.Condition{
			{ProbeColumn: 0, BuildColumn: 0, Op: colops.Equal},
		},
		BuildColumns:       []types.Type{types.Int64},
		InitialRadixBits:   *radixBits,
		StandardVectorSize: *chunkSize,
		HashOnPK:           *hashOnPK,
		Logger:             log,
	}
	jht := jointable.New(opts, pool)

	rng := rand.New(rand.NewSource(*seed))
	buildChunks := int64Chunks(rng, *buildRows, *buildRows, *chunkSize)

	t0 := time.Now()
	for _, c := range buildChunks {
		if err := jht.Build([]*vector.Vector{c}, nil); err != nil {
			fmt.Fprintln(os.Stderr, "build:", err)
			os.Exit(1)
		}
	}
	buildElapsed := time.Since(t0)

	t0 = time.Now()
	if err := jht.Finalize(); err != nil {
		fmt.Fprintln(os.Stderr, "finalize:", err)
		os.Exit(1)
	}
	finalizeElapsed := time.Since(t0)

	probeChunks := int64Chunks(rng, *probeRows, *buildRows, *chunkSize)

	var matched int64
	t0 = time.Now()
	for _, c := range probeChunks {
		scan, err := jht.Probe([]*vector.Vector{c}, nil)
		if err != nil {
			fmt.Fprintln(os.Stderr, "probe:", err)
			os.Exit(1)
		}
		for {
			res, more := scan.Next(*chunkSize)
			matched += int64(len(res.ProbeSel))
			if !more {
				break
			}
		}
	}
	probeElapsed := time.Since(t0)

	fmt.Printf("join=%s build_rows=%d probe_rows=%d resident_bytes=%d\n",
		jt, jht.RowCount(), *probeRows, jht.ResidentBytes())
	fmt.Printf("build=%s finalize=%s probe=%s matched=%d\n",
		buildElapsed, finalizeElapsed, probeElapsed, matched)
	fmt.Printf("build_rows_per_sec=%.0f probe_rows_per_sec=%.0f\n",
		float64(*buildRows)/buildElapsed.Seconds(),
		float64(*probeRows)/probeElapsed.Seconds())
}
