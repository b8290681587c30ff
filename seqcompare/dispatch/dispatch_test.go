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
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shenwei356/SeqCompare/seqcompare/pairs"
)

func makePairs(n int) []pairs.Pair {
	ps := make([]pairs.Pair, n)
	for i := range ps {
		ps[i] = pairs.Pair{Query: i / 10, Subject: i % 10}
	}
	return ps
}

func TestOrderWithRandomDelays(t *testing.T) {
	ps := makePairs(200)

	var mu sync.Mutex
	r := rand.New(rand.NewSource(1))
	delay := func() time.Duration {
		mu.Lock()
		defer mu.Unlock()
		return time.Duration(r.Intn(2000)) * time.Microsecond
	}

	var running, peak int32
	fn := func(ctx context.Context, p pairs.Pair) (int, error) {
		n := atomic.AddInt32(&running, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
				break
			}
		}
		time.Sleep(delay())
		atomic.AddInt32(&running, -1)
		return p.Query*100 + p.Subject, nil
	}

	var done int32
	results := Run(context.Background(), ps, fn, &Options{
		Workers:  8,
		Progress: func(time.Duration) { atomic.AddInt32(&done, 1) },
	})

	if len(results) != len(ps) {
		t.Fatalf("expected %d results, returned %d", len(ps), len(results))
	}
	for i, res := range results {
		if res.Pair != ps[i] {
			t.Errorf("#%d: expected pair %s, returned %s", i, ps[i], res.Pair)
		}
		if res.Failed() || res.MatchLen != ps[i].Query*100+ps[i].Subject {
			t.Errorf("#%d: unexpected result: %+v", i, res)
		}
	}
	if peak > 8 {
		t.Errorf("more than 8 concurrent units: %d", peak)
	}
	if int(done) != len(ps) {
		t.Errorf("progress called %d times, expected %d", done, len(ps))
	}
}

func TestFailureIsolation(t *testing.T) {
	ps := makePairs(50)
	fn := func(ctx context.Context, p pairs.Pair) (int, error) {
		switch p.Subject {
		case 3:
			return 0, fmt.Errorf("engine crashed")
		case 7:
			panic("unexpected")
		}
		return 1, nil
	}

	results := Run(context.Background(), ps, fn, &Options{Workers: 4})
	for i, res := range results {
		switch ps[i].Subject {
		case 3, 7:
			if !res.Failed() {
				t.Errorf("#%d: failure expected", i)
			}
			if res.MatchLen != 0 {
				t.Errorf("#%d: failed pairs should have no matched length", i)
			}
		default:
			if res.Failed() || res.MatchLen != 1 {
				t.Errorf("#%d: unexpected result: %+v", i, res)
			}
		}
	}
}

func TestTimeout(t *testing.T) {
	ps := makePairs(6)
	fn := func(ctx context.Context, p pairs.Pair) (int, error) {
		if p.Subject%2 == 0 {
			<-ctx.Done()
			return 0, ctx.Err()
		}
		return 5, nil
	}

	start := time.Now()
	results := Run(context.Background(), ps, fn, &Options{Workers: 2, Timeout: 50 * time.Millisecond})
	if time.Since(start) > 5*time.Second {
		t.Errorf("timeouts did not fire")
	}

	for i, res := range results {
		if ps[i].Subject%2 == 0 {
			if !errors.Is(res.Err, ErrTimeout) {
				t.Errorf("#%d: expected ErrTimeout, returned %v", i, res.Err)
			}
		} else if res.Failed() || res.MatchLen != 5 {
			t.Errorf("#%d: unexpected result: %+v", i, res)
		}
	}
}

func TestTimeoutIgnoredContext(t *testing.T) {
	ps := makePairs(2)
	fn := func(ctx context.Context, p pairs.Pair) (int, error) {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if p.Subject == 0 {
			time.Sleep(200 * time.Millisecond)
		}
		return 42, nil
	}

	results := Run(context.Background(), ps, fn, &Options{Workers: 2, Timeout: 20 * time.Millisecond})
	if !errors.Is(results[0].Err, ErrTimeout) || results[0].MatchLen != 0 {
		t.Errorf("late result should be a timeout: %+v", results[0])
	}
	if results[1].Failed() || results[1].MatchLen != 42 {
		t.Errorf("unexpected result: %+v", results[1])
	}
}

func TestNilOptions(t *testing.T) {
	ps := makePairs(5)
	fn := func(ctx context.Context, p pairs.Pair) (int, error) {
		return p.Subject, nil
	}

	results := Run(context.Background(), ps, fn, nil)
	for i, res := range results {
		if res.Failed() || res.Pair != ps[i] || res.MatchLen != ps[i].Subject {
			t.Errorf("#%d: unexpected result: %+v", i, res)
		}
	}
}

func TestCanceled(t *testing.T) {
	ps := makePairs(20)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int32
	results := Run(ctx, ps, func(ctx context.Context, p pairs.Pair) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 1, nil
	}, &Options{Workers: 3})

	if calls != 0 {
		t.Errorf("no unit should run after cancellation, %d ran", calls)
	}
	for i, res := range results {
		if !errors.Is(res.Err, context.Canceled) || res.Pair != ps[i] {
			t.Errorf("#%d: unexpected result: %+v", i, res)
		}
	}
}

func TestEmpty(t *testing.T) {
	results := Run(context.Background(), nil, func(ctx context.Context, p pairs.Pair) (int, error) {
		return 0, nil
	}, &Options{Workers: 4})
	if results == nil || len(results) != 0 {
		t.Errorf("expected an empty result list, returned %v", results)
	}
}
