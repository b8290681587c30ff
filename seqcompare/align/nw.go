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

package align

import (
	"context"
	"sync"
)

// Pointer is for saving where the maximum score of current position comes from.
type Pointer uint8

const (
	None Pointer = iota // No data, the topleft corner.
	Top
	Left
	Mismatch
	Match
)

func (p Pointer) String() string {
	switch p {
	case Match:
		return "↘︎"
	case Mismatch:
		return "⇘"
	case Top:
		return "↓"
	case Left:
		return "→"
	case None:
		return "×"
	}
	return "■"
}

// Gap is the gap symbol in aligned rows.
const Gap = '-'

// Aligner implements the Needleman-Wunsch algorithm with linear gap scores.
// An Aligner is not safe for concurrent use, matrices are reused between calls.
type Aligner struct {
	Options *AlignOptions

	scores   []int
	pointers []Pointer
}

// AlignOptions contains all alignment options.
type AlignOptions struct {
	MatchScore    int // score for a match
	MisMatchScore int // score for a mismatch
	GapScore      int // score for a gap
}

// DefaultAlignOptions is the default AlignOptions.
var DefaultAlignOptions = AlignOptions{
	MatchScore:    1,
	MisMatchScore: -1,
	GapScore:      -1,
}

// AlignResult holds the details of the alignment.
type AlignResult struct {
	Score   int // simply the score
	Len     int // length of alignment
	Matches int // number of matches
	Gaps    int // number of gaps

	AlignA []byte // aligned row of seq A
	AlignB []byte // aligned row of seq B
}

// Reset resets all the values.
func (r *AlignResult) Reset() {
	r.Score = 0
	r.Len = 0
	r.Matches = 0
	r.Gaps = 0
	r.AlignA = r.AlignA[:0]
	r.AlignB = r.AlignB[:0]
}

var poolAlignResult = &sync.Pool{New: func() interface{} {
	return &AlignResult{
		AlignA: make([]byte, 0, 1024),
		AlignB: make([]byte, 0, 1024),
	}
}}

// RecycleAlignResult recycles an alignment result.
func RecycleAlignResult(r *AlignResult) {
	poolAlignResult.Put(r)
}

// NewAligner returns an aligner. Matrices grow on demand.
func NewAligner(options *AlignOptions) *Aligner {
	if options == nil {
		options = &DefaultAlignOptions
	}
	return &Aligner{Options: options}
}

func (alg *Aligner) matrices(n int) ([]int, []Pointer) {
	if n > cap(alg.scores) {
		alg.scores = make([]int, n)
		alg.pointers = make([]Pointer, n)
	}
	return alg.scores[:n], alg.pointers[:n]
}

// Global aligns two sequences with global alignment.
// Residues are compared as they are, so callers should unify the letter case.
// Please remember to recycle the result after using
// by calling RecycleAlignResult.
func (alg *Aligner) Global(a, b []byte) *AlignResult {
	r, _ := alg.GlobalContext(context.Background(), a, b)
	return r
}

// GlobalContext is Global with a context, which is checked once per row of the matrix.
// It returns ctx.Err() if ctx is done before the matrix is filled.
func (alg *Aligner) GlobalContext(ctx context.Context, a, b []byte) (*AlignResult, error) {
	h := len(a) + 1 // height of the matrix
	w := len(b) + 1 // width of the matrix

	scores, pointers := alg.matrices(h * w)

	match := alg.Options.MatchScore
	mismatch := alg.Options.MisMatchScore
	gap := alg.Options.GapScore

	var i, j, k int

	pointers[0] = None
	scores[0] = 0
	for i = 1; i < h; i++ {
		k = i * w
		scores[k] = gap * i
		pointers[k] = Top
	}
	for j = 1; j < w; j++ {
		scores[j] = gap * j
		pointers[j] = Left
	}

	// ---------------------------------------------------
	// fill

	var best, sTop, sLeft int
	var p Pointer
	for i = 1; i < h; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for j = 1; j < w; j++ {
			k = i*w + j

			if a[i-1] == b[j-1] {
				best = scores[k-w-1] + match
				p = Match
			} else {
				best = scores[k-w-1] + mismatch
				p = Mismatch
			}

			sTop = scores[k-w] + gap
			sLeft = scores[k-1] + gap

			if sTop > best {
				best = sTop
				p = Top
			}
			if sLeft > best {
				best = sLeft
				p = Left
			}

			pointers[k] = p
			scores[k] = best
		}
	}

	// ---------------------------------------------------
	// traceback

	r := poolAlignResult.Get().(*AlignResult)
	r.Reset()

	i = h - 1
	j = w - 1
	r.Score = scores[i*w+j]

	for p = pointers[i*w+j]; p != None; p = pointers[i*w+j] {
		r.Len++

		switch p {
		case Match, Mismatch:
			if p == Match {
				r.Matches++
			}
			r.AlignA = append(r.AlignA, a[i-1])
			r.AlignB = append(r.AlignB, b[j-1])
			i--
			j--
		case Top:
			r.AlignA = append(r.AlignA, a[i-1])
			r.AlignB = append(r.AlignB, Gap)
			r.Gaps++
			i--
		case Left:
			r.AlignA = append(r.AlignA, Gap)
			r.AlignB = append(r.AlignB, b[j-1])
			r.Gaps++
			j--
		}
	}

	reverse(r.AlignA)
	reverse(r.AlignB)

	return r, nil
}

func reverse(s []byte) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
