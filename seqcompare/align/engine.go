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
)

// ErrUnparseable means the output of an alignment engine can not be parsed into two aligned rows.
var ErrUnparseable = errors.New("align: unparseable alignment")

// ErrUnequalRows means the two aligned rows have different lengths.
var ErrUnequalRows = errors.New("align: aligned rows of different lengths")

// Engine aligns two sequences and returns the two aligned rows, which have the same length
// and contain gap symbols ('-').
// Implementations must be safe for concurrent use.
type Engine interface {
	Align(ctx context.Context, a, b []byte) (rowA, rowB []byte, err error)
}

// Builtin is an in-process Engine using the global Needleman-Wunsch alignment.
type Builtin struct {
	pool *sync.Pool
}

// NewBuiltin returns a Builtin engine with the given scores.
func NewBuiltin(options *AlignOptions) *Builtin {
	if options == nil {
		options = &DefaultAlignOptions
	}
	return &Builtin{
		pool: &sync.Pool{New: func() interface{} {
			return NewAligner(options)
		}},
	}
}

// Align aligns two sequences, the letter case is ignored.
func (e *Builtin) Align(ctx context.Context, a, b []byte) ([]byte, []byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	alg := e.pool.Get().(*Aligner)
	r, err := alg.GlobalContext(ctx, bytes.ToUpper(a), bytes.ToUpper(b))
	e.pool.Put(alg)
	if err != nil {
		return nil, nil, err
	}

	rowA := append([]byte(nil), r.AlignA...)
	rowB := append([]byte(nil), r.AlignB...)
	RecycleAlignResult(r)

	return rowA, rowB, nil
}
