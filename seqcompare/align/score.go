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
	"fmt"
	"math"

	"github.com/pkg/errors"
	"github.com/shenwei356/SeqCompare/seqcompare/corpus"
)

// ErrorBudget returns the number of non-identical columns tolerated,
// i.e., floor(errorRate * minLen). A tiny epsilon absorbs floating point
// representation errors like 0.29*100 = 28.999999999999996.
func ErrorBudget(errorRate float64, minLen int) int {
	if errorRate <= 0 || minLen <= 0 {
		return 0
	}
	return int(math.Floor(errorRate*float64(minLen) + 1e-9))
}

// ColumnStats contains counts of aligned columns.
type ColumnStats struct {
	Columns    int // columns outside of leading and trailing gaps of both rows
	Matches    int // identical residues
	Mismatches int // other columns: substitutions and internal gaps
}

// CountColumns counts columns of two aligned rows. Leading and trailing gaps
// of either row are end padding and are not counted.
// Letter case is ignored, a gap never matches.
func CountColumns(rowA, rowB []byte) (ColumnStats, error) {
	var st ColumnStats
	if len(rowA) != len(rowB) {
		return st, errors.Wrapf(ErrUnequalRows, "%d vs %d", len(rowA), len(rowB))
	}

	start := max(leadingGaps(rowA), leadingGaps(rowB))
	end := len(rowA) - max(trailingGaps(rowA), trailingGaps(rowB))

	var a, b byte
	for i := start; i < end; i++ {
		a, b = upper(rowA[i]), upper(rowB[i])
		st.Columns++
		if a == b && a != Gap {
			st.Matches++
		} else {
			st.Mismatches++
		}
	}
	return st, nil
}

// MatchedLength computes the tolerant matched length of two aligned rows
// of sequences with lengths of lenA and lenB:
//
//	budget  = floor(errorRate * min(lenA, lenB))
//	matched = min(matches + min(mismatches, budget), min(lenA, lenB))
func MatchedLength(rowA, rowB []byte, lenA, lenB int, errorRate float64) (int, error) {
	st, err := CountColumns(rowA, rowB)
	if err != nil {
		return 0, err
	}
	minLen := min(lenA, lenB)
	if minLen <= 0 {
		return 0, nil
	}
	matched := st.Matches + min(st.Mismatches, ErrorBudget(errorRate, minLen))
	return min(matched, minLen), nil
}

func leadingGaps(row []byte) int {
	for i, c := range row {
		if c != Gap {
			return i
		}
	}
	return len(row)
}

func trailingGaps(row []byte) int {
	for i := len(row) - 1; i >= 0; i-- {
		if row[i] != Gap {
			return len(row) - 1 - i
		}
	}
	return len(row)
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 32
	}
	return c
}

// Scorer computes the tolerant matched length of two records with an Engine.
// It keeps no state between calls.
type Scorer struct {
	Engine    Engine
	ErrorRate float64
}

// NewScorer returns a Scorer.
func NewScorer(engine Engine, errorRate float64) (*Scorer, error) {
	if engine == nil {
		return nil, fmt.Errorf("no alignment engine given")
	}
	if errorRate < 0 || errorRate >= 1 {
		return nil, fmt.Errorf("invalid error rate: %f, valid range: [0, 1)", errorRate)
	}
	return &Scorer{Engine: engine, ErrorRate: errorRate}, nil
}

// Score aligns the two records and returns the matched length.
func (s *Scorer) Score(ctx context.Context, q, t *corpus.Record) (int, error) {
	if q.Len() == 0 || t.Len() == 0 {
		return 0, nil
	}
	rowA, rowB, err := s.Engine.Align(ctx, q.Seq, t.Seq)
	if err != nil {
		return 0, err
	}
	return MatchedLength(rowA, rowB, q.Len(), t.Len(), s.ErrorRate)
}
