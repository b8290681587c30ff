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

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/shenwei356/SeqCompare/seqcompare/align"
	"github.com/shenwei356/SeqCompare/seqcompare/corpus"
	"github.com/shenwei356/SeqCompare/seqcompare/dispatch"
	"github.com/shenwei356/SeqCompare/seqcompare/pairs"
	"github.com/shenwei356/SeqCompare/seqcompare/table"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// CompareOptions contains the options of a comparison run.
type CompareOptions struct {
	// basic
	NumCPUs  int
	Verbose  bool // show log and the progress bar
	Log2File bool // log, but no progress bar

	// candidate pairs
	Select pairs.SelectOptions

	// scoring
	Engine    align.Engine
	ErrorRate float64
	Timeout   time.Duration // timeout of each pair, 0 for no limit

	// input
	Load corpus.LoadOptions
}

// CheckCompareOptions checks the options. Errors are configuration errors,
// returned before any comparison is dispatched.
func CheckCompareOptions(opt *CompareOptions) error {
	if opt.NumCPUs < 1 {
		return fmt.Errorf("invalid number of threads: %d, should be >= 1", opt.NumCPUs)
	}
	if opt.Engine == nil {
		return fmt.Errorf("no alignment engine given")
	}
	if opt.ErrorRate < 0 || opt.ErrorRate >= 1 {
		return fmt.Errorf("invalid error rate: %f, valid range: [0, 1)", opt.ErrorRate)
	}
	if opt.Timeout < 0 {
		return fmt.Errorf("invalid timeout: %s", opt.Timeout)
	}
	return pairs.CheckSelectOptions(&opt.Select)
}

// CompareResult is the result of a comparison run.
type CompareResult struct {
	Query   *corpus.Corpus
	Subject *corpus.Corpus

	Pairs   []pairs.Pair
	Results []dispatch.Result
	Rows    []*table.Row

	Failed int // number of failed pairs
}

// Compare loads both sources, selects candidate pairs, computes the matched length
// of every pair in parallel, and joins them into table rows in the order of pairs.
//
// Per-pair failures do not stop the run, they are reported as failed rows.
// An error is returned for configuration errors and broken invariants.
func Compare(ctx context.Context, query, subject corpus.Source, opt *CompareOptions) (*CompareResult, error) {
	if err := CheckCompareOptions(opt); err != nil {
		return nil, err
	}
	outputLog := opt.Verbose || opt.Log2File

	// ---------------------------------------------------------------
	// corpora

	q, err := query.Resolve(&opt.Load)
	if err != nil {
		return nil, errors.Wrapf(err, "loading query sequences: %s", query)
	}
	s, err := subject.Resolve(&opt.Load)
	if err != nil {
		return nil, errors.Wrapf(err, "loading subject sequences: %s", subject)
	}
	if outputLog {
		log.Infof("  %d query sequences (%d residues) loaded from %s", q.Len(), q.Residues(), query)
		log.Infof("  %d subject sequences (%d residues) loaded from %s", s.Len(), s.Residues(), subject)
	}

	// ---------------------------------------------------------------
	// candidate pairs

	timeStart := time.Now()
	ps, err := pairs.Select(q, s, &opt.Select)
	if err != nil {
		return nil, err
	}
	if outputLog {
		log.Infof("  %d candidate pairs selected (min identity: %d, max targets: %s) in %s",
			len(ps), opt.Select.MinIdentity, opt.Select.MaxTargets, time.Since(timeStart))
	}

	scorer, err := align.NewScorer(opt.Engine, opt.ErrorRate)
	if err != nil {
		return nil, err
	}

	// ---------------------------------------------------------------
	// comparing

	var pbs *mpb.Progress
	var bar *mpb.Bar
	var chDuration chan time.Duration
	var doneDuration chan int
	showProgressBar := opt.Verbose && len(ps) > 0
	if showProgressBar {
		pbs = mpb.New(mpb.WithWidth(40), mpb.WithOutput(os.Stderr))
		bar = pbs.AddBar(int64(len(ps)),
			mpb.PrependDecorators(
				decor.Name("compared pairs: ", decor.WC{W: len("compared pairs: "), C: decor.DindentRight}),
				decor.Name("", decor.WCSyncSpaceR),
				decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
			),
			mpb.AppendDecorators(
				decor.Name("ETA: ", decor.WC{W: len("ETA: ")}),
				decor.EwmaETA(decor.ET_STYLE_GO, 10),
				decor.OnComplete(decor.Name(""), ". done"),
			),
		)

		chDuration = make(chan time.Duration, opt.NumCPUs)
		doneDuration = make(chan int)
		go func() {
			for t := range chDuration {
				bar.EwmaIncrBy(1, t)
			}
			doneDuration <- 1
		}()
	}

	dopt := &dispatch.Options{
		Workers: opt.NumCPUs,
		Timeout: opt.Timeout,
	}
	if showProgressBar {
		dopt.Progress = func(t time.Duration) { chDuration <- t }
	}

	timeStart = time.Now()
	rs := dispatch.Run(ctx, ps, func(ctx context.Context, p pairs.Pair) (int, error) {
		return scorer.Score(ctx, q.At(p.Query), s.At(p.Subject))
	}, dopt)

	if showProgressBar {
		close(chDuration)
		<-doneDuration
		pbs.Wait()
	}
	if err = ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "comparison interrupted")
	}
	if outputLog {
		log.Infof("  %d pairs compared with %d threads in %s", len(ps), opt.NumCPUs, time.Since(timeStart))
	}

	// ---------------------------------------------------------------
	// table

	rows, err := table.Build(q, s, ps, rs)
	if err != nil {
		return nil, err
	}

	return &CompareResult{
		Query:   q,
		Subject: s,
		Pairs:   ps,
		Results: rs,
		Rows:    rows,
		Failed:  table.Failures(rows),
	}, nil
}
