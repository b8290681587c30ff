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

package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shenwei356/SeqCompare/seqcompare/pairs"
)

// ErrTimeout means a unit of work exceeded the timeout.
var ErrTimeout = errors.New("dispatch: timeout")

// WorkFunc computes the matched length of a candidate pair.
// It should return when ctx is done.
type WorkFunc func(ctx context.Context, p pairs.Pair) (int, error)

// Options contains options of Run.
type Options struct {
	Workers int           // number of concurrent workers, >= 1
	Timeout time.Duration // timeout of each pair, 0 for no timeout

	// Progress is called after each pair is finished, with the time it took.
	// It is called concurrently from workers.
	Progress func(time.Duration)
}

// Result is the result of a candidate pair.
type Result struct {
	Pair     pairs.Pair
	MatchLen int
	Err      error // per-pair failure
}

// Failed tells whether the comparison failed.
func (r Result) Failed() bool { return r.Err != nil }

// Run computes all candidate pairs with a pool of opt.Workers goroutines,
// the pool is created and released in the call.
// Results are in the same order as ps, each written once by one worker.
// Failures of a pair, including timeouts and panics, are recorded in Result.Err,
// and do not affect other pairs.
// If ctx is canceled, pairs not started yet are marked as failed with ctx.Err().
func Run(ctx context.Context, ps []pairs.Pair, fn WorkFunc, opt *Options) []Result {
	results := make([]Result, len(ps))
	if len(ps) == 0 {
		return results
	}

	if opt == nil {
		opt = &Options{Workers: 1}
	}

	workers := opt.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(ps) {
		workers = len(ps)
	}

	jobs := make(chan int, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				t := time.Now()
				results[i] = runOne(ctx, ps[i], fn, opt.Timeout)
				if opt.Progress != nil {
					opt.Progress(time.Since(t))
				}
			}
		}()
	}

	for i := range ps {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

func runOne(ctx context.Context, p pairs.Pair, fn WorkFunc, timeout time.Duration) (r Result) {
	r.Pair = p

	if err := ctx.Err(); err != nil {
		r.Err = err
		return r
	}

	uctx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		uctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	defer func() {
		if v := recover(); v != nil {
			r.MatchLen = 0
			r.Err = fmt.Errorf("pair %s: panic: %v", p, v)
		}
	}()

	n, err := fn(uctx, p)

	// a work function ignoring ctx may return late with a value
	if timeout > 0 && ctx.Err() == nil && errors.Is(uctx.Err(), context.DeadlineExceeded) {
		if err != nil {
			r.Err = errors.Wrapf(ErrTimeout, "pair %s: exceeded %s: %s", p, timeout, err)
		} else {
			r.Err = errors.Wrapf(ErrTimeout, "pair %s: exceeded %s", p, timeout)
		}
		return r
	}
	if err != nil {
		r.Err = err
		return r
	}
	r.MatchLen = n
	return r
}
