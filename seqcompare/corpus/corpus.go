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

package corpus

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/iafan/cwalk"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
	"github.com/shenwei356/util/pathutil"
)

// ErrEmptyPath means no input path is given.
var ErrEmptyPath = errors.New("corpus: empty input path")

// ErrNoFiles means no sequence file is found in a directory.
var ErrNoFiles = errors.New("corpus: no sequence files found")

// Record is a sequence record. It should not be modified after loading.
type Record struct {
	ID  string
	Seq []byte
}

// Len returns the number of residues.
func (r *Record) Len() int { return len(r.Seq) }

func (r *Record) String() string {
	return fmt.Sprintf("%s (%d)", r.ID, len(r.Seq))
}

// Corpus is an ordered collection of sequence records.
// Records are referred by their 0-based indexes,
// IDs are not required to be unique.
type Corpus struct {
	Name    string
	Records []*Record
}

// New creates a Corpus from records. The slice is used directly.
func New(name string, records []*Record) *Corpus {
	if records == nil {
		records = make([]*Record, 0)
	}
	return &Corpus{Name: name, Records: records}
}

// Len returns the number of records.
func (c *Corpus) Len() int { return len(c.Records) }

// At returns the i-th record.
func (c *Corpus) At(i int) *Record { return c.Records[i] }

// Valid tells whether i is a valid record index.
func (c *Corpus) Valid(i int) bool { return i >= 0 && i < len(c.Records) }

// Residues returns the total number of residues.
func (c *Corpus) Residues() int {
	var n int
	for _, r := range c.Records {
		n += len(r.Seq)
	}
	return n
}

// DefaultFileRegexp matches common FASTA/Q files, with optional compression suffixes.
var DefaultFileRegexp = regexp.MustCompile(`(?i)\.(f[aq](st[aq])?|fna|faa|fas)(\.gz|\.xz|\.zst|\.bz2)?$`)

// LoadOptions contains options for loading sequences.
type LoadOptions struct {
	// FileRegexp matches files when the source is a directory.
	FileRegexp *regexp.Regexp
	// Threads for walking directories.
	Threads int
}

// DefaultLoadOptions is the default LoadOptions.
var DefaultLoadOptions = LoadOptions{
	FileRegexp: DefaultFileRegexp,
	Threads:    4,
}

// Load reads all records from a FASTA/Q file, or all sequence files in a directory.
// Files in a directory are read in lexicographic order of their paths.
func Load(path string, opt *LoadOptions) (*Corpus, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	if opt == nil {
		opt = &DefaultLoadOptions
	}

	if path == "-" {
		records, err := ReadFile(path)
		if err != nil {
			return nil, err
		}
		return New("stdin", records), nil
	}

	file, err := homedir.Expand(path)
	if err != nil {
		return nil, errors.Wrapf(err, "expanding path: %s", path)
	}

	ok, err := pathutil.Exists(file)
	if err != nil {
		return nil, errors.Wrapf(err, "checking input: %s", file)
	}
	if !ok {
		return nil, errors.Errorf("corpus: input not found: %s", file)
	}

	isDir, err := pathutil.IsDir(file)
	if err != nil {
		return nil, errors.Wrapf(err, "checking input: %s", file)
	}
	if !isDir {
		records, err := ReadFile(file)
		if err != nil {
			return nil, err
		}
		return New(file, records), nil
	}

	pattern := opt.FileRegexp
	if pattern == nil {
		pattern = DefaultFileRegexp
	}
	files, err := ListFiles(file, pattern, opt.Threads)
	if err != nil {
		return nil, errors.Wrapf(err, "walking dir: %s", file)
	}
	if len(files) == 0 {
		return nil, errors.Wrapf(ErrNoFiles, "%s (file regexp: %s)", file, pattern)
	}

	records := make([]*Record, 0, 1024)
	for _, f := range files {
		rs, err := ReadFile(f)
		if err != nil {
			return nil, err
		}
		records = append(records, rs...)
	}
	return New(file, records), nil
}

// ReadFile reads all records of a (gzipped/xz/zstd) FASTA/Q file, in file order.
// The residues are stored in upper case.
func ReadFile(file string) ([]*Record, error) {
	reader, err := fastx.NewReader(seq.Protein, file, "")
	if err != nil {
		return nil, errors.Wrapf(err, "reading sequence file: %s", file)
	}
	defer reader.Close()

	records := make([]*Record, 0, 128)
	var record *fastx.Record
	for {
		record, err = reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.Wrapf(err, "reading sequence file: %s", file)
		}

		// the record object is reused by the reader
		records = append(records, &Record{
			ID:  string(record.ID),
			Seq: bytes.ToUpper(record.Seq.Seq),
		})
	}

	return records, nil
}

// ListFiles returns sorted paths of files matching the pattern under a directory.
// Directory symlinks are followed.
func ListFiles(path string, pattern *regexp.Regexp, threads int) ([]string, error) {
	if threads < 1 {
		threads = 1
	}
	files := make([]string, 0, 512)
	ch := make(chan string, threads)
	done := make(chan int)
	go func() {
		for file := range ch {
			files = append(files, file)
		}
		done <- 1
	}()

	cwalk.NumWorkers = threads
	err := cwalk.WalkWithSymlinks(path, func(_path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && pattern.MatchString(info.Name()) {
			ch <- filepath.Join(path, _path)
		}
		return nil
	})
	close(ch)
	<-done
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}
