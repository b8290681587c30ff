// Copyright © 2023-2024 Wei Shen <shenwei356@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package pairs

import (
	"github.com/shenwei356/SeqCompare/seqcompare/corpus"
	"github.com/shenwei356/SeqCompare/seqcompare/util"
	"github.com/zeebo/wyhash"
)

var hashSeed uint64 = 1

// KmerHashes returns hashes of distinct k-mers of a sequence, sorted.
// Sequences are expected in upper case.
func KmerHashes(s []byte, k int) []uint64 {
	if k < 1 || len(s) < k {
		return nil
	}
	hashes := make([]uint64, 0, len(s)-k+1)
	for i := 0; i+k <= len(s); i++ {
		hashes = append(hashes, wyhash.Hash(s[i:i+k], hashSeed))
	}
	util.UniqUint64s(&hashes)
	return hashes
}

// selectBySharedKmers keeps pairs sharing at least opt.MinSharedKmers distinct k-mers.
// Time is linear to the number of residues plus the number of k-mer hits.
func selectBySharedKmers(q, s *corpus.Corpus, qs, ss []int, opt *SelectOptions) []Pair {
	k := opt.Kmer

	// inverted index of subject k-mers, subject indexes are appended in ascending order.
	index := make(map[uint64][]int32, len(ss)*64)
	for _, j := range ss {
		for _, h := range KmerHashes(s.At(j).Seq, k) {
			index[h] = append(index[h], int32(j))
		}
	}

	counts := make([]int, s.Len())
	touched := make([]int32, 0, 1024)
	cands := make([]candidate, 0, 1024)
	pairs := make([]Pair, 0, len(qs))

	bounded := opt.MaxTargets.Bounded()
	n := opt.MaxTargets.N()

	for _, i := range qs {
		touched = touched[:0]
		for _, h := range KmerHashes(q.At(i).Seq, k) {
			for _, j := range index[h] {
				if counts[j] == 0 {
					touched = append(touched, j)
				}
				counts[j]++
			}
		}

		cands = cands[:0]
		for _, j := range touched {
			if counts[j] >= opt.MinSharedKmers {
				cands = append(cands, candidate{idx: int(j), dist: -counts[j]})
			}
			counts[j] = 0
		}

		if !bounded {
			n = len(cands)
		}
		pairs = appendTopN(pairs, i, cands, n)
	}

	return pairs
}
