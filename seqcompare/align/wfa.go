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
	"bytes"
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/shenwei356/wfa"
)

// CIGAR operations in wfa.AlignmentResult.Ops,
// each op is a uint64 with the operation in the high 32 bits and the count in the low 32 bits.
const (
	opM = uint64('M')
	opX = uint64('X')
	opI = uint64('I')
	opD = uint64('D')
)

// WFA is an in-process Engine using the wavefront alignment algorithm in global mode.
type WFA struct {
	pool *sync.Pool
}

// NewWFA returns a WFA engine with the given penalties, nil for wfa.DefaultPenalties.
func NewWFA(penalties *wfa.Penalties) *WFA {
	if penalties == nil {
		penalties = wfa.DefaultPenalties
	}
	return &WFA{
		pool: &sync.Pool{New: func() interface{} {
			return wfa.New(penalties, &wfa.Options{GlobalAlignment: true})
		}},
	}
}

// Align aligns two sequences, the letter case is ignored.
// The aligned rows are rebuilt from the CIGAR.
func (e *WFA) Align(ctx context.Context, a, b []byte) ([]byte, []byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	a, b = bytes.ToUpper(a), bytes.ToUpper(b)
	if len(a) == 0 || len(b) == 0 {
		return endGapRows(a, b), endGapRows(b, a), nil
	}

	algn := e.pool.Get().(*wfa.Aligner)
	cigar, err := algn.Align(a, b)
	e.pool.Put(algn)
	if err != nil {
		return nil, nil, errors.Wrap(err, "wfa")
	}

	rowA, rowB, ok := rowsFromOps(cigar.Ops, a, b, false)
	if !ok {
		rowA, rowB, ok = rowsFromOps(cigar.Ops, a, b, true)
	}
	wfa.RecycleAlignmentResult(cigar)
	if !ok {
		return nil, nil, errors.Wrapf(ErrUnparseable, "wfa: CIGAR not covering sequences of %d and %d residues", len(a), len(b))
	}

	if err = ctx.Err(); err != nil {
		return nil, nil, err
	}
	return rowA, rowB, nil
}

// rowsFromOps rebuilds the two aligned rows from CIGAR operations.
// An insertion consumes a, and a deletion consumes b, or the opposite when swapped is true.
// It returns false if the operations do not consume both sequences exactly.
func rowsFromOps(ops []uint64, a, b []byte, swapped bool) ([]byte, []byte, bool) {
	rowA := make([]byte, 0, len(a)+len(b))
	rowB := make([]byte, 0, len(a)+len(b))

	gapInB, gapInA := opI, opD
	if swapped {
		gapInB, gapInA = opD, opI
	}

	var i, j, n int
	for _, op := range ops {
		n = int(op & 4294967295)
		switch op >> 32 {
		case opM, opX:
			if i+n > len(a) || j+n > len(b) {
				return nil, nil, false
			}
			rowA = append(rowA, a[i:i+n]...)
			rowB = append(rowB, b[j:j+n]...)
			i += n
			j += n
		case gapInB:
			if i+n > len(a) {
				return nil, nil, false
			}
			rowA = append(rowA, a[i:i+n]...)
			rowB = appendGaps(rowB, n)
			i += n
		case gapInA:
			if j+n > len(b) {
				return nil, nil, false
			}
			rowA = appendGaps(rowA, n)
			rowB = append(rowB, b[j:j+n]...)
			j += n
		default:
			return nil, nil, false
		}
	}
	if i != len(a) || j != len(b) {
		return nil, nil, false
	}
	return rowA, rowB, true
}

func appendGaps(row []byte, n int) []byte {
	for ; n > 0; n-- {
		row = append(row, Gap)
	}
	return row
}

// endGapRows returns s followed by gaps for the residues of other.
func endGapRows(s, other []byte) []byte {
	row := make([]byte, 0, len(s)+len(other))
	row = append(row, s...)
	return appendGaps(row, len(other))
}
