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
	"math"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/shenwei356/SeqCompare/seqcompare/table"
	"gonum.org/v1/gonum/stat"
)

// RunInfo is the summary of a comparison run, saved in TOML format.
type RunInfo struct {
	Version string `toml:"version" comment:"SeqCompare version"`

	Query   string `toml:"query" comment:"Query sequences"`
	Subject string `toml:"subject" comment:"Subject sequences"`
	Output  string `toml:"output" comment:"Result table"`

	QuerySeqs   int `toml:"query-seqs"`
	SubjectSeqs int `toml:"subject-seqs"`

	Engine         string  `toml:"engine" comment:"Alignment engine"`
	MinIdentity    int     `toml:"min-identity"`
	ErrorRate      float64 `toml:"error-rate"`
	MaxTargets     int     `toml:"max-targets" comment:"0 for unbounded"`
	Kmer           int     `toml:"kmer" comment:"0 for no k-mer prefiltering"`
	MinSharedKmers int     `toml:"min-shared-kmers"`
	Timeout        string  `toml:"timeout"`
	Threads        int     `toml:"threads"`

	Pairs  int `toml:"pairs" comment:"Candidate pairs"`
	Failed int `toml:"failed" comment:"Failed pairs, with NA as match_len"`

	CoverageMean  float64 `toml:"coverage-mean" comment:"match_len / min(seq1_len, seq2_len) of successful pairs"`
	CoverageStdev float64 `toml:"coverage-stdev"`

	StartTime   time.Time `toml:"start-time"`
	ElapsedTime string    `toml:"elapsed-time"`
}

// coverageSummary returns the mean and standard deviation of coverages.
func coverageSummary(rows []*table.Row) (float64, float64) {
	covs := table.Coverages(rows)
	switch len(covs) {
	case 0:
		return 0, 0
	case 1:
		return covs[0], 0
	}
	mean, std := stat.MeanStdDev(covs, nil)
	if math.IsNaN(std) {
		std = 0
	}
	return mean, std
}

func writeRunInfo(file string, info *RunInfo) error {
	data, err := toml.Marshal(info)
	if err != nil {
		return errors.Wrap(err, "encoding run info")
	}
	if err = os.WriteFile(file, data, 0644); err != nil {
		return errors.Wrapf(err, "writing run info: %s", file)
	}
	return nil
}

func readRunInfo(file string) (*RunInfo, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrapf(err, "reading run info: %s", file)
	}
	var info RunInfo
	if err = toml.Unmarshal(data, &info); err != nil {
		return nil, errors.Wrapf(err, "decoding run info: %s", file)
	}
	return &info, nil
}
