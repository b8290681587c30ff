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
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
)

// IDs of the two sequences in the temporary input file.
const (
	idQuery   = "query"
	idSubject = "subject"
)

// ErrEngineNotFound means the MUSCLE executable is not available.
var ErrEngineNotFound = errors.New("align: alignment engine not found")

var reMuscleVersion = regexp.MustCompile(`(?i)muscle\s+v?(\d+)`)

// Muscle is an Engine running the MUSCLE executable, one process per alignment.
// Both MUSCLE v3 and v5 command line syntaxes are supported.
type Muscle struct {
	path    string
	version int

	// TmpDir is the parent directory of temporary files, os.TempDir() is used if empty.
	TmpDir string
}

// NewMuscle checks the MUSCLE executable and detects its major version.
// A leading "~" in the path is expanded.
func NewMuscle(ctx context.Context, path string) (*Muscle, error) {
	if path == "" {
		return nil, errors.Wrap(ErrEngineNotFound, "empty path")
	}
	file, err := homedir.Expand(path)
	if err != nil {
		return nil, errors.Wrapf(err, "expanding path: %s", path)
	}
	file, err = exec.LookPath(file)
	if err != nil {
		return nil, errors.Wrapf(ErrEngineNotFound, "%s: %s", path, err)
	}

	out, err := exec.CommandContext(ctx, file, "-version").CombinedOutput()
	if err != nil {
		return nil, errors.Wrapf(ErrEngineNotFound, "failed to run %s -version: %s", file, err)
	}
	version, err := parseMuscleVersion(out)
	if err != nil {
		return nil, errors.Wrap(err, file)
	}

	return &Muscle{path: file, version: version}, nil
}

func parseMuscleVersion(out []byte) (int, error) {
	m := reMuscleVersion.FindSubmatch(out)
	if m == nil {
		return 0, fmt.Errorf("unrecognized MUSCLE version information: %s", bytes.TrimSpace(out))
	}
	return strconv.Atoi(string(m[1]))
}

// Path returns the path of the executable.
func (m *Muscle) Path() string { return m.path }

// Version returns the major version of MUSCLE.
func (m *Muscle) Version() int { return m.version }

func (m *Muscle) args(in, out string) []string {
	if m.version >= 5 {
		return []string{"-align", in, "-output", out}
	}
	return []string{"-in", in, "-out", out, "-quiet"}
}

// Align writes the two sequences into a temporary directory, runs MUSCLE,
// and reads the aligned rows. The temporary directory is always removed.
// The process is killed when ctx is done.
func (m *Muscle) Align(ctx context.Context, a, b []byte) ([]byte, []byte, error) {
	dir, err := os.MkdirTemp(m.TmpDir, "seqcompare-muscle-")
	if err != nil {
		return nil, nil, errors.Wrap(err, "creating temporary directory")
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "in.fasta")
	out := filepath.Join(dir, "out.afa")

	var buf bytes.Buffer
	fmt.Fprintf(&buf, ">%s\n%s\n>%s\n%s\n", idQuery, a, idSubject, b)
	if err = os.WriteFile(in, buf.Bytes(), 0644); err != nil {
		return nil, nil, errors.Wrap(err, "writing temporary sequence file")
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, m.path, m.args(in, out)...)
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	if err = cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, nil, errors.Wrapf(ctx.Err(), "running %s", filepath.Base(m.path))
		}
		return nil, nil, errors.Errorf("running %s: %s: %s",
			filepath.Base(m.path), err, lastLine(stderr.Bytes()))
	}

	return ReadAlignedPair(out, idQuery, idSubject)
}

func lastLine(s []byte) []byte {
	s = bytes.TrimSpace(s)
	if i := bytes.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// ReadAlignedPair reads two aligned rows with the given IDs from an aligned FASTA file.
// Output orders of engines may differ from the input, so rows are picked by IDs.
func ReadAlignedPair(file, idA, idB string) ([]byte, []byte, error) {
	reader, err := fastx.NewReader(seq.Protein, file, "")
	if err != nil {
		return nil, nil, errors.Wrapf(ErrUnparseable, "%s: %s", file, err)
	}
	defer reader.Close()

	var rowA, rowB []byte
	var record *fastx.Record
	for {
		record, err = reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, nil, errors.Wrapf(ErrUnparseable, "%s: %s", file, err)
		}

		switch string(record.ID) {
		case idA:
			rowA = bytes.ToUpper(record.Seq.Seq)
		case idB:
			rowB = bytes.ToUpper(record.Seq.Seq)
		}
	}

	if rowA == nil || rowB == nil {
		return nil, nil, errors.Wrapf(ErrUnparseable, "%s: sequences %q and %q needed", file, idA, idB)
	}
	if len(rowA) != len(rowB) {
		return nil, nil, errors.Wrapf(ErrUnequalRows, "%s: %d vs %d", file, len(rowA), len(rowB))
	}
	return rowA, rowB, nil
}
