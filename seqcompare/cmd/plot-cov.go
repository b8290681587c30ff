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
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shenwei356/SeqCompare/seqcompare/table"
	"github.com/spf13/cobra"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var plotCovCmd = &cobra.Command{
	Use:   "plot-cov",
	Short: "Plot the histogram of coverages in a result table",
	Long: `Plot the histogram of coverages in a result table

Coverage is match_len / min(seq1_len, seq2_len). Failed comparisons (NA) are skipped.

Supported image formats: .png, .jpg, .svg, .pdf, .eps, .tif.

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)
		closeLog := setupLog(opt)
		defer closeLog()

		outputLog := opt.Verbose || opt.Log2File

		if len(args) != 1 {
			checkError(fmt.Errorf("one result table needed"))
		}
		file := args[0]

		outFile := getFlagString(cmd, "out-file")
		bins := getFlagPositiveInt(cmd, "bins")
		width := getFlagPositiveFloat64(cmd, "width")
		height := getFlagPositiveFloat64(cmd, "height")
		title := getFlagString(cmd, "title")

		timeStart := time.Now()

		rows, err := table.ReadTSV(file)
		checkError(err)

		covs := table.Coverages(rows)
		if outputLog {
			log.Infof("%d rows read from %s, %d failed", len(rows), file, table.Failures(rows))
		}
		if len(covs) == 0 {
			checkError(fmt.Errorf("no successful comparisons in %s", file))
		}

		checkError(plotCoverages(covs, bins, title, vg.Length(width)*vg.Inch, vg.Length(height)*vg.Inch, outFile))

		if outputLog {
			mean, std := coverageSummary(rows)
			log.Infof("coverage: mean %.4f, stdev %.4f", mean, std)
			log.Infof("histogram saved to %s in %s", outFile, time.Since(timeStart))
		}
	},
}

func plotCoverages(covs []float64, bins int, title string, width, height vg.Length, file string) error {
	if file == "" {
		return fmt.Errorf("empty out file, please set -o/--out-file")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "match_len / min(seq1_len, seq2_len)"
	p.Y.Label.Text = "pairs"

	h, err := plotter.NewHist(plotter.Values(covs), bins)
	if err != nil {
		return errors.Wrap(err, "creating histogram")
	}
	p.Add(h)

	switch strings.ToLower(filepath.Ext(file)) {
	case ".png", ".jpg", ".jpeg", ".svg", ".pdf", ".eps", ".tif", ".tiff":
	default:
		return fmt.Errorf("unsupported image format: %s", file)
	}

	if err = p.Save(width, height, file); err != nil {
		return errors.Wrapf(err, "saving plot: %s", file)
	}
	return nil
}

func init() {
	utilsCmd.AddCommand(plotCovCmd)

	plotCovCmd.Flags().StringP("out-file", "o", "coverage.png",
		formatFlagUsage(`Out image file, the format is decided by the suffix.`))

	plotCovCmd.Flags().IntP("bins", "b", 50,
		formatFlagUsage(`Number of bins.`))

	plotCovCmd.Flags().Float64P("width", "W", 6,
		formatFlagUsage(`Figure width (inch).`))

	plotCovCmd.Flags().Float64P("height", "H", 4,
		formatFlagUsage(`Figure height (inch).`))

	plotCovCmd.Flags().StringP("title", "t", "Coverage of compared pairs",
		formatFlagUsage(`Figure title.`))

	plotCovCmd.SetUsageTemplate(usageTemplate("<result table>"))
}
