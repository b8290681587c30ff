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
	"os/signal"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/shenwei356/SeqCompare/seqcompare/align"
	"github.com/shenwei356/SeqCompare/seqcompare/corpus"
	"github.com/shenwei356/SeqCompare/seqcompare/pairs"
	"github.com/shenwei356/SeqCompare/seqcompare/table"
	"github.com/shenwei356/bio/seq"
	"github.com/spf13/cobra"
)

// maximum number of per-pair errors shown in full
var maxErrorsShown = 5

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare protein sequences of two sets",
	Long: `Compare protein sequences of two sets

Steps:
  1. Sequences shorter than -m/--min-identity are discarded.
  2. Candidate pairs are selected between the query and subject sets:
     a) all pairs by default,
     b) or top -n/--max-targets subjects of each query, ranked by length difference,
     c) or with -k/--kmer, pairs sharing at least --min-shared-kmers distinct k-mers,
        ranked by shared k-mers when -n/--max-targets is given.
  3. Each pair is aligned with MUSCLE (v3 or v5), the wavefront aligner (WFA),
     or the builtin global aligner, using -j/--threads concurrent workers.
  4. The matched length is computed from the alignment, tolerating some mismatches:
       budget    = floor(error_rate * min(len1, len2))
       match_len = min(matches + min(mismatches, budget), min(len1, len2))
     Leading and trailing gaps are ignored, internal gaps are counted as mismatches.

Input:
  A (gzipped) FASTA/Q file, or a directory containing sequence files matching -r/--file-regexp.
  Files in a directory are read in lexicographic order.

Output format:
  Tab-delimited format with 5 columns, in the order of query and then subject.

    1. seq1_id,   Query sequence ID.
    2. seq2_id,   Subject sequence ID.
    3. seq1_len,  Query sequence length.
    4. seq2_len,  Subject sequence length.
    5. match_len, Matched length. "NA" for failed comparisons.
    6. status,    "ok" or the error message of a failed comparison. (optional with --with-status)

  Supported outputs: "-" for stdout, or a file with a suffix of ".gz", ".zst", or ".parquet",
  or an object storage URL like s3://bucket/key.tsv.gz, gs://bucket/key.parquet, file:///path/out.tsv.

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)
		seq.ValidateSeq = false

		outFile := getFlagString(cmd, "out-file")
		checkOutAndLog(outFile, opt)
		closeLog := setupLog(opt)

		verbose := opt.Verbose
		outputLog := opt.Verbose || opt.Log2File

		timeStart := time.Now()
		defer func() {
			if outputLog {
				log.Info()
				log.Infof("elapsed time: %s", time.Since(timeStart))
				log.Info()
			}
			closeLog()
		}()

		// ---------------------------------------------------------------
		// flags

		queryPath := getFlagString(cmd, "query")
		if queryPath == "" {
			checkError(fmt.Errorf("flag -q/--query needed"))
		}
		subjectPath := getFlagString(cmd, "subject")
		if subjectPath == "" {
			checkError(fmt.Errorf("flag -s/--subject needed"))
		}
		if isStdin(queryPath) && isStdin(subjectPath) {
			checkError(fmt.Errorf("query and subject can not be both stdin"))
		}
		if outFile != "" && !isStdin(outFile) && !table.IsURL(outFile) {
			outFileClean := filepath.Clean(outFile)
			for _, file := range []string{queryPath, subjectPath} {
				if filepath.Clean(file) == outFileClean {
					checkError(fmt.Errorf("out file should not be one of the input files"))
				}
			}
		}

		reFileStr := getFlagString(cmd, "file-regexp")
		reFile, err := regexp.Compile(reFileStr)
		if err != nil {
			checkError(fmt.Errorf("failed to parse regular expression for matching file: %s", reFileStr))
		}

		minIdentity := getFlagPositiveInt(cmd, "min-identity")
		errorRate := getFlagNonNegativeFloat64(cmd, "error-rate")
		if errorRate >= 1 {
			checkError(fmt.Errorf("the value of flag -e/--error-rate (%f) should be in the range of [0, 1)", errorRate))
		}
		maxTargets := getFlagNonNegativeInt(cmd, "max-targets")
		k := getFlagNonNegativeInt(cmd, "kmer")
		if k > pairs.MaxKmer {
			checkError(fmt.Errorf("the value of flag -k/--kmer (%d) should be in the range of [0, %d]", k, pairs.MaxKmer))
		}
		minSharedKmers := getFlagPositiveInt(cmd, "min-shared-kmers")
		timeout, err := time.ParseDuration(getFlagString(cmd, "timeout"))
		if err != nil || timeout < 0 {
			checkError(fmt.Errorf("invalid value of flag --timeout: %s", getFlagString(cmd, "timeout")))
		}
		withStatus := getFlagBool(cmd, "with-status")
		infoFile := getFlagString(cmd, "info-file")

		limit := pairs.Unbounded()
		if maxTargets > 0 {
			limit = pairs.AtMost(maxTargets)
		}

		// ---------------------------------------------------------------

		if outputLog {
			log.Infof("SeqCompare v%s", VERSION)
			log.Info()
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		// ---------------------------------------------------------------
		// alignment engine, checked before any comparison

		engineName := strings.ToLower(getFlagString(cmd, "engine"))
		var engine align.Engine
		switch engineName {
		case "muscle":
			musclePath := getFlagString(cmd, "muscle")
			m, err := align.NewMuscle(ctx, musclePath)
			if err != nil {
				checkError(fmt.Errorf("alignment engine unavailable, please install MUSCLE or set -p/--muscle: %s", err))
			}
			m.TmpDir = getFlagString(cmd, "tmp-dir")
			if outputLog {
				log.Infof("alignment engine: MUSCLE v%d (%s)", m.Version(), m.Path())
			}
			engineName = fmt.Sprintf("muscle v%d", m.Version())
			engine = m
		case "wfa":
			engine = align.NewWFA(nil)
			if outputLog {
				log.Info("alignment engine: wavefront aligner (WFA), global mode")
			}
		case "builtin":
			engine = align.NewBuiltin(&align.DefaultAlignOptions)
			if outputLog {
				log.Info("alignment engine: builtin global aligner")
			}
		default:
			checkError(fmt.Errorf("unsupported alignment engine: %s, available: muscle, wfa, builtin", engineName))
		}

		// ---------------------------------------------------------------
		// comparing

		if outputLog {
			log.Info()
			log.Info("comparing ...")
		}

		copt := &CompareOptions{
			NumCPUs:  opt.NumCPUs,
			Verbose:  verbose,
			Log2File: opt.Log2File,

			Select: pairs.SelectOptions{
				MinIdentity:    minIdentity,
				MaxTargets:     limit,
				Kmer:           k,
				MinSharedKmers: minSharedKmers,
			},

			Engine:    engine,
			ErrorRate: errorRate,
			Timeout:   timeout,

			Load: corpus.LoadOptions{
				FileRegexp: reFile,
				Threads:    opt.NumCPUs,
			},
		}

		res, err := Compare(ctx, corpus.FromPath(queryPath), corpus.FromPath(subjectPath), copt)
		checkError(err)

		if res.Failed > 0 {
			var n int
			for _, row := range res.Rows {
				if !row.Failed {
					continue
				}
				if n < maxErrorsShown {
					log.Warningf("  failed to compare %s and %s: %s", row.Seq1ID, row.Seq2ID, row.Error)
				}
				n++
			}
			if n > maxErrorsShown {
				log.Warningf("  ... and %d more failed pairs", n-maxErrorsShown)
			}
			log.Warningf("%d of %d pairs failed, written with %s as match_len", res.Failed, len(res.Rows), table.NA)
		}

		// ---------------------------------------------------------------
		// output

		if outFile != "" {
			err = table.Persist(ctx, res.Rows, outFile, &table.PersistOptions{
				WithStatus:       withStatus,
				CompressionLevel: opt.CompressionLevel,
			})
			checkError(err)
			if outputLog && !isStdin(outFile) {
				log.Infof("%d rows saved to %s", len(res.Rows), outFile)
			}
		} else if outputLog {
			log.Info("no output file given, the result table is not saved")
		}

		mean, std := coverageSummary(res.Rows)
		if outputLog && len(res.Rows) > res.Failed {
			log.Infof("coverage (match_len / min length): mean %.4f, stdev %.4f", mean, std)
		}

		if infoFile != "" {
			info := &RunInfo{
				Version:        VERSION,
				Query:          queryPath,
				Subject:        subjectPath,
				Output:         outFile,
				QuerySeqs:      res.Query.Len(),
				SubjectSeqs:    res.Subject.Len(),
				Engine:         engineName,
				MinIdentity:    minIdentity,
				ErrorRate:      errorRate,
				MaxTargets:     maxTargets,
				Kmer:           k,
				MinSharedKmers: minSharedKmers,
				Timeout:        timeout.String(),
				Threads:        opt.NumCPUs,
				Pairs:          len(res.Rows),
				Failed:         res.Failed,
				CoverageMean:   mean,
				CoverageStdev:  std,
				StartTime:      timeStart,
				ElapsedTime:    time.Since(timeStart).String(),
			}
			checkError(writeRunInfo(infoFile, info))
			if outputLog {
				log.Infof("run info saved to %s", infoFile)
			}
		}
	},
}

func init() {
	RootCmd.AddCommand(compareCmd)

	// input

	compareCmd.Flags().StringP("query", "q", "",
		formatFlagUsage(`Query sequences, a (gzipped) FASTA/Q file or a directory of sequence files ("-" for stdin).`))

	compareCmd.Flags().StringP("subject", "s", "",
		formatFlagUsage(`Subject sequences, a (gzipped) FASTA/Q file or a directory of sequence files ("-" for stdin).`))

	compareCmd.Flags().StringP("file-regexp", "r", corpus.DefaultFileRegexp.String(),
		formatFlagUsage(`Regular expression for matching sequence files in directories, case ignored.`))

	// candidate pairs

	compareCmd.Flags().IntP("min-identity", "m", 20,
		formatFlagUsage(`Minimum number of identical residues. Sequences shorter than this are discarded.`))

	compareCmd.Flags().IntP("max-targets", "n", 0,
		formatFlagUsage(`Maximum number of subjects compared with each query (0 for all).`))

	compareCmd.Flags().IntP("kmer", "k", 0,
		formatFlagUsage(fmt.Sprintf(`K-mer size for prefiltering candidate pairs by shared k-mers (0 for disabling, max: %d).`, pairs.MaxKmer)))

	compareCmd.Flags().IntP("min-shared-kmers", "", 1,
		formatFlagUsage(`Minimum number of distinct shared k-mers of a candidate pair, only used with -k/--kmer.`))

	// scoring

	compareCmd.Flags().Float64P("error-rate", "e", 0.02,
		formatFlagUsage(`Fraction of mismatches tolerated, relative to the shorter sequence, in the range of [0, 1).`))

	compareCmd.Flags().StringP("engine", "E", "muscle",
		formatFlagUsage(`Alignment engine: muscle, wfa, builtin.`))

	compareCmd.Flags().StringP("muscle", "p", "muscle",
		formatFlagUsage(`Path of MUSCLE executable (v3 or v5).`))

	compareCmd.Flags().StringP("tmp-dir", "", os.TempDir(),
		formatFlagUsage(`Directory for temporary files of MUSCLE.`))

	compareCmd.Flags().StringP("timeout", "", "0s",
		formatFlagUsage(`Timeout of each comparison, e.g., 30s, 2m ("0s" for no limit). Timed out pairs are marked as failed.`))

	// output

	compareCmd.Flags().StringP("out-file", "o", "",
		formatFlagUsage(`Out file, supports ".gz", ".zst" and ".parquet" suffixes and object storage URLs ("-" for stdout). No file is written by default.`))

	compareCmd.Flags().BoolP("with-status", "", false,
		formatFlagUsage(`Append a status column with error messages of failed comparisons.`))

	compareCmd.Flags().StringP("info-file", "", "",
		formatFlagUsage(`Save a summary of the run in TOML format.`))

	compareCmd.SetUsageTemplate(usageTemplate(""))
}
