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

package table

import (
	"strconv"

	"github.com/pkg/errors"
	"github.com/shenwei356/SeqCompare/seqcompare/corpus"
	"github.com/shenwei356/SeqCompare/seqcompare/dispatch"
	"github.com/shenwei356/SeqCompare/seqcompare/pairs"
)

// ErrCountMismatch means the numbers of results and candidate pairs differ.
var ErrCountMismatch = errors.New("table: numbers of results and pairs differ")

// ErrInvalidPair means a pair index is out of range, or a result does not belong to its pair.
var ErrInvalidPair = errors.New("table: invalid pair")

// Header is the header of the result table.
var Header = []string{"seq1_id", "seq2_id", "seq1_len", "seq2_len", "match_len"}

// StatusColumn is the optional extra column.
const StatusColumn = "status"

// NA is the value of match_len for failed comparisons.
const NA = "NA"

// StatusOK is the status of successful comparisons.
const StatusOK = "ok"

// Row is a row of the result table.
type Row struct {
	Seq1ID   string
	Seq2ID   string
	Seq1Len  int
	Seq2Len  int
	MatchLen int // 0 for failed comparisons

	Failed bool
	Error  string // error message of a failed comparison
}

// MatchLenString returns match_len in text, NA for a failed comparison.
func (r *Row) MatchLenString() string {
	if r.Failed {
		return NA
	}
	return strconv.Itoa(r.MatchLen)
}

// Status returns "ok" or the error message.
func (r *Row) Status() string {
	if r.Failed {
		return r.Error
	}
	return StatusOK
}

// Build joins candidate pairs and their results into rows, in the order of pairs.
// A count mismatch or an invalid pair is a bug of the caller, and returned as an error.
func Build(q, s *corpus.Corpus, ps []pairs.Pair, rs []dispatch.Result) ([]*Row, error) {
	if len(rs) != len(ps) {
		return nil, errors.Wrapf(ErrCountMismatch, "%d results for %d pairs", len(rs), len(ps))
	}

	rows := make([]*Row, len(ps))
	var a, b *corpus.Record
	for i, p := range ps {
		if !q.Valid(p.Query) || !s.Valid(p.Subject) {
			return nil, errors.Wrapf(ErrInvalidPair, "#%d %s out of range (%d x %d)", i, p, q.Len(), s.Len())
		}
		if rs[i].Pair != p {
			return nil, errors.Wrapf(ErrInvalidPair, "#%d: result of %s for pair %s", i, rs[i].Pair, p)
		}

		a, b = q.At(p.Query), s.At(p.Subject)
		row := &Row{
			Seq1ID:  a.ID,
			Seq2ID:  b.ID,
			Seq1Len: a.Len(),
			Seq2Len: b.Len(),
		}
		if rs[i].Err != nil {
			row.Failed = true
			row.Error = rs[i].Err.Error()
		} else {
			row.MatchLen = rs[i].MatchLen
		}
		rows[i] = row
	}
	return rows, nil
}

// Failures returns the number of failed rows.
func Failures(rows []*Row) int {
	var n int
	for _, r := range rows {
		if r.Failed {
			n++
		}
	}
	return n
}

// Coverages returns match_len / min(seq1_len, seq2_len) of successful rows.
func Coverages(rows []*Row) []float64 {
	covs := make([]float64, 0, len(rows))
	var m int
	for _, r := range rows {
		if r.Failed {
			continue
		}
		m = min(r.Seq1Len, r.Seq2Len)
		if m == 0 {
			continue
		}
		covs = append(covs, float64(r.MatchLen)/float64(m))
	}
	return covs
}
