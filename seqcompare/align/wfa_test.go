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
	"math/rand"
	"testing"
)

func cigarOp(op byte, n int) uint64 {
	return uint64(op)<<32 | uint64(n)
}

func TestRowsFromOps(t *testing.T) {
	a := []byte("MKVLAG")
	b := []byte("MKLAGW")
	ops := []uint64{cigarOp('M', 2), cigarOp('I', 1), cigarOp('M', 3), cigarOp('D', 1)}

	rowA, rowB, ok := rowsFromOps(ops, a, b, false)
	if !ok {
		t.Fatalf("ops should be parsed")
	}
	if string(rowA) != "MKVLAG-" || string(rowB) != "MK-LAGW" {
		t.Errorf("unexpected rows: %s/%s", rowA, rowB)
	}

	rowA, rowB, ok = rowsFromOps(ops, a, b, true)
	if !ok || string(rowA) != "MK-VLAG" || string(rowB) != "MKLAGW-" {
		t.Errorf("unexpected rows with swapped gaps: %s/%s", rowA, rowB)
	}

	// only one convention fits
	ops = []uint64{cigarOp('M', 2), cigarOp('I', 1), cigarOp('M', 3)}
	if _, _, ok = rowsFromOps(ops, a, b[:5], false); !ok {
		t.Errorf("ops should be parsed")
	}
	if _, _, ok = rowsFromOps(ops, a, b[:5], true); ok {
		t.Errorf("swapped ops should not fit the sequences")
	}

	bad := [][]uint64{
		{cigarOp('M', 7)},
		{cigarOp('M', 5)},
		{cigarOp('M', 6), cigarOp('H', 1)},
	}
	for i, ops := range bad {
		if _, _, ok = rowsFromOps(ops, a, b, false); ok {
			t.Errorf("#%d: ops should not be parsed", i)
		}
	}
}

func TestWFA(t *testing.T) {
	e := NewWFA(nil)
	ctx := context.Background()

	r := rand.New(rand.NewSource(5))
	a := randSeq(r, 120)

	// one substitution
	b := append([]byte(nil), a...)
	if b[60] == 'W' {
		b[60] = 'Y'
	} else {
		b[60] = 'W'
	}
	// one deletion
	c := append(append([]byte(nil), a[:40]...), a[41:]...)

	tests := []struct {
		a, b    []byte
		matches int
	}{
		{a, a, 120},
		{a, bytes.ToLower(a), 120},
		{a, b, 119},
		{a, c, 119},
		{a, []byte{}, 0},
	}
	for i, test := range tests {
		rowA, rowB, err := e.Align(ctx, test.a, test.b)
		if err != nil {
			t.Errorf("#%d: %s", i, err)
			continue
		}
		if len(rowA) != len(rowB) {
			t.Errorf("#%d: rows of different lengths: %d, %d", i, len(rowA), len(rowB))
			continue
		}
		if !bytes.Equal(bytes.ReplaceAll(rowA, []byte{Gap}, nil), bytes.ToUpper(test.a)) ||
			!bytes.Equal(bytes.ReplaceAll(rowB, []byte{Gap}, nil), bytes.ToUpper(test.b)) {
			t.Errorf("#%d: residues changed in rows: %s/%s", i, rowA, rowB)
		}
		var m int
		for k := range rowA {
			if rowA[k] != Gap && rowA[k] == rowB[k] {
				m++
			}
		}
		if m != test.matches {
			t.Errorf("#%d: expected %d matches, returned %d", i, test.matches, m)
		}
	}

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	if _, _, err := e.Align(cctx, a, b); err == nil {
		t.Errorf("canceled context should fail")
	}
}
