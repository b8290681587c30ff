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
	"fmt"
	"slices"
	"sort"

	"github.com/pkg/errors"
	"github.com/shenwei356/SeqCompare/seqcompare/corpus"
)

// Pair is a candidate pair for alignment, i.e.,
// indexes of a query record and a subject record.
type Pair struct {
	Query   int
	Subject int
}

func (p Pair) String() string {
	return fmt.Sprintf("(%d, %d)", p.Query, p.Subject)
}

// Limit is an optional upper bound of subjects kept for a query.
type Limit struct {
	bounded bool
	n       int
}

// Unbounded returns a Limit without a bound.
func Unbounded() Limit { return Limit{} }

// AtMost returns a Limit of n. n should be positive.
func AtMost(n int) Limit { return Limit{bounded: true, n: n} }

// Bounded tells whether the limit has a bound.
func (l Limit) Bounded() bool { return l.bounded }

// N returns the bound, 0 for unbounded limits.
func (l Limit) N() int { return l.n }

func (l Limit) String() string {
	if !l.bounded {
		return "unbounded"
	}
	return fmt.Sprintf("%d", l.n)
}

// SelectOptions contains options for selecting candidate pairs.
type SelectOptions struct {
	// Minimum number of identical residues two sequences should be able to share.
	// Pairs with min(len(query), len(subject)) < MinIdentity are discarded.
	MinIdentity int

	// Maximum number of subjects kept for each query.
	MaxTargets Limit

	// K-mer prefilter. 0 for disabling it.
	Kmer int
	// Minimum number of distinct shared k-mers, only used when Kmer > 0.
	MinSharedKmers int
}

// DefaultSelectOptions is the default SelectOptions.
var DefaultSelectOptions = SelectOptions{
	MinIdentity:    20,
	MaxTargets:     Unbounded(),
	Kmer:           0,
	MinSharedKmers: 1,
}

// MaxKmer is the maximum k-mer size of the prefilter.
const MaxKmer = 12

// CheckSelectOptions checks the options.
func CheckSelectOptions(opt *SelectOptions) error {
	if opt.MinIdentity < 1 {
		return fmt.Errorf("invalid minimum identity: %d, should be >= 1", opt.MinIdentity)
	}
	if opt.MaxTargets.Bounded() && opt.MaxTargets.N() < 1 {
		return fmt.Errorf("invalid maximum targets per query: %d, should be >= 1", opt.MaxTargets.N())
	}
	if opt.Kmer < 0 || opt.Kmer > MaxKmer {
		return fmt.Errorf("invalid k-mer size: %d, valid range: [0, %d], 0 for no k-mer prefiltering", opt.Kmer, MaxKmer)
	}
	if opt.Kmer > 0 && opt.MinSharedKmers < 1 {
		return fmt.Errorf("invalid minimum shared k-mers: %d, should be >= 1", opt.MinSharedKmers)
	}
	return nil
}

// Select returns candidate pairs worth aligning, ordered by query index
// and then subject index. The result is deterministic for the same input.
//
// A pair is discarded if any of the two sequences is shorter than opt.MinIdentity.
// When opt.MaxTargets is bounded, subjects of a query are ranked by the number of
// shared k-mers (k-mer prefilter on) or by the length difference (off),
// ties broken by the subject index.
func Select(q, s *corpus.Corpus, opt *SelectOptions) ([]Pair, error) {
	if opt == nil {
		opt = &DefaultSelectOptions
	}
	if err := CheckSelectOptions(opt); err != nil {
		return nil, errors.Wrap(err, "selecting pairs")
	}

	qs := longEnough(q, opt.MinIdentity)
	ss := longEnough(s, opt.MinIdentity)

	if len(qs) == 0 || len(ss) == 0 {
		return make([]Pair, 0), nil
	}

	if opt.Kmer > 0 {
		return selectBySharedKmers(q, s, qs, ss, opt), nil
	}

	if !opt.MaxTargets.Bounded() {
		pairs := make([]Pair, 0, len(qs)*len(ss))
		for _, i := range qs {
			for _, j := range ss {
				pairs = append(pairs, Pair{Query: i, Subject: j})
			}
		}
		return pairs, nil
	}

	return selectByLength(q, s, qs, ss, opt.MaxTargets.N()), nil
}

// longEnough returns indexes of records not shorter than minLen.
func longEnough(c *corpus.Corpus, minLen int) []int {
	idxs := make([]int, 0, c.Len())
	for i, r := range c.Records {
		if r.Len() >= minLen {
			idxs = append(idxs, i)
		}
	}
	return idxs
}

type candidate struct {
	idx  int // subject index
	dist int // length difference, or negative shared k-mers
}

func compareCandidates(a, b candidate) int {
	if a.dist == b.dist {
		return a.idx - b.idx
	}
	return a.dist - b.dist
}

// selectByLength keeps at most n subjects with the closest lengths for each query.
func selectByLength(q, s *corpus.Corpus, qs, ss []int, n int) []Pair {
	// subjects sorted by length, and then index
	sorted := make([]int, len(ss))
	copy(sorted, ss)
	slices.SortFunc(sorted, func(a, b int) int {
		la, lb := s.At(a).Len(), s.At(b).Len()
		if la == lb {
			return a - b
		}
		return la - lb
	})
	lens := make([]int, len(sorted))
	for i, j := range sorted {
		lens[i] = s.At(j).Len()
	}

	pairs := make([]Pair, 0, len(qs)*min(n, len(ss)))
	cands := make([]candidate, 0, min(n, len(ss)))
	var lq, lo, hi, dLo, dHi, last int
	for _, i := range qs {
		lq = q.At(i).Len()

		// expand from the insertion position to both sides,
		// and take all candidates having the same distance with the n-th one.
		hi = sort.SearchInts(lens, lq)
		lo = hi - 1
		cands = cands[:0]
		last = -1
		for lo >= 0 || hi < len(lens) {
			dLo, dHi = -1, -1
			if lo >= 0 {
				dLo = lq - lens[lo]
			}
			if hi < len(lens) {
				dHi = lens[hi] - lq
			}

			if dHi < 0 || (dLo >= 0 && dLo <= dHi) {
				if len(cands) >= n && dLo > last {
					break
				}
				cands = append(cands, candidate{idx: sorted[lo], dist: dLo})
				last = dLo
				lo--
			} else {
				if len(cands) >= n && dHi > last {
					break
				}
				cands = append(cands, candidate{idx: sorted[hi], dist: dHi})
				last = dHi
				hi++
			}
		}

		pairs = appendTopN(pairs, i, cands, n)
	}
	return pairs
}

// appendTopN sorts candidates, keeps the top n, and appends them in the order of subject indexes.
func appendTopN(pairs []Pair, query int, cands []candidate, n int) []Pair {
	slices.SortFunc(cands, compareCandidates)
	if len(cands) > n {
		cands = cands[:n]
	}
	slices.SortFunc(cands, func(a, b candidate) int { return a.idx - b.idx })
	for _, c := range cands {
		pairs = append(pairs, Pair{Query: query, Subject: c.idx})
	}
	return pairs
}
