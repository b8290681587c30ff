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
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/shenwei356/SeqCompare/seqcompare/corpus"
)

func makeCorpus(name string, seqs ...string) *corpus.Corpus {
	records := make([]*corpus.Record, len(seqs))
	for i, s := range seqs {
		records[i] = &corpus.Record{ID: name + string(rune('a'+i)), Seq: []byte(s)}
	}
	return corpus.New(name, records)
}

func randCorpus(r *rand.Rand, name string, n, maxLen int) *corpus.Corpus {
	letters := []byte("ACDEFGHIKLMNPQRSTVWY")
	seqs := make([]string, n)
	for i := range seqs {
		s := make([]byte, r.Intn(maxLen))
		for j := range s {
			s[j] = letters[r.Intn(len(letters))]
		}
		seqs[i] = string(s)
	}
	return makeCorpus(name, seqs...)
}

func checkOrdered(t *testing.T, pairs []Pair) {
	for i := 1; i < len(pairs); i++ {
		a, b := pairs[i-1], pairs[i]
		if a.Query > b.Query || (a.Query == b.Query && a.Subject >= b.Subject) {
			t.Errorf("pairs not ordered or duplicated: %s, %s", a, b)
		}
	}
}

func TestLengthFilter(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	q := randCorpus(r, "q", 50, 60)
	s := randCorpus(r, "s", 80, 60)

	opt := DefaultSelectOptions
	opt.MinIdentity = 30

	pairs, err := Select(q, s, &opt)
	if err != nil {
		t.Fatal(err)
	}
	checkOrdered(t, pairs)

	var expected int
	for _, a := range q.Records {
		for _, b := range s.Records {
			if min(a.Len(), b.Len()) >= opt.MinIdentity {
				expected++
			}
		}
	}
	if len(pairs) != expected {
		t.Errorf("expected %d pairs, returned %d", expected, len(pairs))
	}
	for _, p := range pairs {
		if min(q.At(p.Query).Len(), s.At(p.Subject).Len()) < opt.MinIdentity {
			t.Errorf("pair %s should be excluded", p)
		}
	}
}

func TestEmptyIntersection(t *testing.T) {
	q := makeCorpus("q", strings.Repeat("M", 50))
	s := makeCorpus("s", "MK", "MKV", "")

	pairs, err := Select(q, s, &DefaultSelectOptions)
	if err != nil {
		t.Fatal(err)
	}
	if pairs == nil || len(pairs) != 0 {
		t.Errorf("expected an empty pair list, returned %v", pairs)
	}
}

func TestMaxTargetsByLength(t *testing.T) {
	q := makeCorpus("q", strings.Repeat("A", 10))
	s := makeCorpus("s",
		strings.Repeat("A", 4),  // 0, dist 6
		strings.Repeat("A", 12), // 1, dist 2
		strings.Repeat("A", 8),  // 2, dist 2
		strings.Repeat("A", 10), // 3, dist 0
		strings.Repeat("A", 12), // 4, dist 2
		strings.Repeat("A", 30), // 5, dist 20
	)

	tests := []struct {
		n        int
		subjects []int
	}{
		{1, []int{3}},
		{2, []int{1, 3}},
		{3, []int{1, 2, 3}},
		{4, []int{1, 2, 3, 4}},
		{5, []int{0, 1, 2, 3, 4}},
		{10, []int{0, 1, 2, 3, 4, 5}},
	}
	for _, test := range tests {
		opt := SelectOptions{MinIdentity: 1, MaxTargets: AtMost(test.n)}
		pairs, err := Select(q, s, &opt)
		if err != nil {
			t.Fatal(err)
		}
		if len(pairs) != len(test.subjects) {
			t.Errorf("n=%d: expected %v, returned %v", test.n, test.subjects, pairs)
			continue
		}
		for i, p := range pairs {
			if p.Query != 0 || p.Subject != test.subjects[i] {
				t.Errorf("n=%d: expected %v, returned %v", test.n, test.subjects, pairs)
				break
			}
		}
	}
}

func TestBoundedIsSubsetOfUnbounded(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	q := randCorpus(r, "q", 30, 100)
	s := randCorpus(r, "s", 200, 100)

	all, err := Select(q, s, &SelectOptions{MinIdentity: 20, MaxTargets: Unbounded()})
	if err != nil {
		t.Fatal(err)
	}
	m := make(map[Pair]struct{}, len(all))
	for _, p := range all {
		m[p] = struct{}{}
	}

	some, err := Select(q, s, &SelectOptions{MinIdentity: 20, MaxTargets: AtMost(5)})
	if err != nil {
		t.Fatal(err)
	}
	checkOrdered(t, some)
	perQuery := make(map[int]int)
	for _, p := range some {
		if _, ok := m[p]; !ok {
			t.Errorf("unexpected pair: %s", p)
		}
		perQuery[p.Query]++
	}
	for i, n := range perQuery {
		if n > 5 {
			t.Errorf("query %d: %d subjects kept", i, n)
		}
	}
}

func TestHugeMaxTargets(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	q := randCorpus(r, "q", 10, 80)
	s := randCorpus(r, "s", 40, 80)

	for _, k := range []int{0, 2} {
		all, err := Select(q, s, &SelectOptions{MinIdentity: 10, MaxTargets: Unbounded(), Kmer: k, MinSharedKmers: 1})
		if err != nil {
			t.Fatal(err)
		}
		huge, err := Select(q, s, &SelectOptions{MinIdentity: 10, MaxTargets: AtMost(math.MaxInt), Kmer: k, MinSharedKmers: 1})
		if err != nil {
			t.Fatal(err)
		}
		if len(huge) != len(all) {
			t.Fatalf("k=%d: expected %d pairs, returned %d", k, len(all), len(huge))
		}
		for i := range all {
			if huge[i] != all[i] {
				t.Errorf("k=%d #%d: expected %s, returned %s", k, i, all[i], huge[i])
			}
		}
	}
}

func TestKmerPrefilter(t *testing.T) {
	q := makeCorpus("q", "MKVLAAGIVGLLLAQ", "WWWWWWWWWW")
	s := makeCorpus("s",
		"PPPPPMKVLAAGPPPP", // shares MKV KVL VLA LAA AAG
		"CCCCCCCCCCCC",     // nothing
		"MKVLAAGIVGLLLAQ",  // identical
		"MKV",              // too short for min identity
	)

	opt := SelectOptions{MinIdentity: 5, MaxTargets: Unbounded(), Kmer: 3, MinSharedKmers: 1}
	pairs, err := Select(q, s, &opt)
	if err != nil {
		t.Fatal(err)
	}
	expected := []Pair{{0, 0}, {0, 2}}
	if len(pairs) != len(expected) {
		t.Fatalf("expected %v, returned %v", expected, pairs)
	}
	for i := range pairs {
		if pairs[i] != expected[i] {
			t.Errorf("expected %v, returned %v", expected, pairs)
		}
	}

	// the identical one shares more k-mers
	opt.MaxTargets = AtMost(1)
	pairs, err = Select(q, s, &opt)
	if err != nil {
		t.Fatal(err)
	}
	if len(pairs) != 1 || pairs[0] != (Pair{0, 2}) {
		t.Errorf("expected [(0, 2)], returned %v", pairs)
	}

	opt.MaxTargets = Unbounded()
	opt.MinSharedKmers = 6
	pairs, err = Select(q, s, &opt)
	if err != nil {
		t.Fatal(err)
	}
	if len(pairs) != 1 || pairs[0] != (Pair{0, 2}) {
		t.Errorf("expected [(0, 2)], returned %v", pairs)
	}
}

func TestSelfPairsKept(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	c := randCorpus(r, "c", 40, 50)

	for _, k := range []int{0, 2} {
		opt := SelectOptions{MinIdentity: 1, MaxTargets: Unbounded(), Kmer: k, MinSharedKmers: 1}
		pairs, err := Select(c, c, &opt)
		if err != nil {
			t.Fatal(err)
		}
		m := make(map[Pair]struct{}, len(pairs))
		for _, p := range pairs {
			m[p] = struct{}{}
		}
		for i, rec := range c.Records {
			if rec.Len() < max(1, k) {
				continue
			}
			if _, ok := m[Pair{i, i}]; !ok {
				t.Errorf("k=%d: self pair of %d missing", k, i)
			}
		}
	}
}

func TestDeterministic(t *testing.T) {
	r := rand.New(rand.NewSource(5))
	q := randCorpus(r, "q", 40, 80)
	s := randCorpus(r, "s", 60, 80)

	for _, opt := range []SelectOptions{
		{MinIdentity: 10, MaxTargets: AtMost(3)},
		{MinIdentity: 10, MaxTargets: AtMost(3), Kmer: 2, MinSharedKmers: 2},
	} {
		a, err := Select(q, s, &opt)
		if err != nil {
			t.Fatal(err)
		}
		b, err := Select(q, s, &opt)
		if err != nil {
			t.Fatal(err)
		}
		if len(a) != len(b) {
			t.Fatalf("different numbers of pairs: %d vs %d", len(a), len(b))
		}
		for i := range a {
			if a[i] != b[i] {
				t.Errorf("#%d: %s vs %s", i, a[i], b[i])
			}
		}
	}
}

func TestCheckSelectOptions(t *testing.T) {
	bad := []SelectOptions{
		{MinIdentity: 0},
		{MinIdentity: 1, MaxTargets: AtMost(0)},
		{MinIdentity: 1, Kmer: -1},
		{MinIdentity: 1, Kmer: MaxKmer + 1},
		{MinIdentity: 1, Kmer: 3, MinSharedKmers: 0},
	}
	for i, opt := range bad {
		if CheckSelectOptions(&opt) == nil {
			t.Errorf("#%d: options should be invalid: %+v", i, opt)
		}
	}
	if err := CheckSelectOptions(&DefaultSelectOptions); err != nil {
		t.Errorf("default options should be valid: %s", err)
	}
}
