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

package table

import (
	"bufio"
	"context"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/mitchellh/go-homedir"
	"github.com/parquet-go/parquet-go"
	"github.com/pkg/errors"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // file:// URLs
	_ "gocloud.dev/blob/gcsblob"  // gs:// URLs
	_ "gocloud.dev/blob/s3blob"   // s3:// URLs
)

// PersistOptions contains options for saving the table.
type PersistOptions struct {
	WithStatus       bool // append the status column
	CompressionLevel int  // gzip compression level
}

// DefaultPersistOptions is the default PersistOptions.
var DefaultPersistOptions = PersistOptions{
	WithStatus:       false,
	CompressionLevel: -1,
}

var reURL = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]*://`)

// IsURL tells whether the destination is an object store URL, e.g., s3://bucket/key.
func IsURL(dest string) bool {
	return reURL.MatchString(dest)
}

// Persist saves the rows to a destination:
//
//	"-"                             stdout, tab-delimited
//	a local file                    tab-delimited, ".gz" and ".zst" for compression, ".parquet" for parquet
//	s3://, gs:// or file:// URLs    same formats, chosen by the key suffix
func Persist(ctx context.Context, rows []*Row, dest string, opt *PersistOptions) error {
	if opt == nil {
		opt = &DefaultPersistOptions
	}

	if dest == "-" {
		return WriteTSV(os.Stdout, rows, opt.WithStatus)
	}

	if IsURL(dest) {
		return persistBlob(ctx, rows, dest, opt)
	}

	file, err := homedir.Expand(dest)
	if err != nil {
		return errors.Wrapf(err, "expanding path: %s", dest)
	}
	dir := filepath.Dir(file)
	fi, err := os.Stat(dir)
	if err == nil && !fi.IsDir() {
		return errors.Errorf("can not write file into a non-directory path: %s", dir)
	}
	if os.IsNotExist(err) {
		if err = os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(err, "creating directory: %s", dir)
		}
	}

	fh, err := os.Create(file)
	if err != nil {
		return errors.Wrapf(err, "creating file: %s", file)
	}
	if err = Encode(fh, file, rows, opt); err != nil {
		fh.Close()
		return errors.Wrapf(err, "writing file: %s", file)
	}
	return fh.Close()
}

// Encode writes the rows to w, in the format decided by the suffix of name.
func Encode(w io.Writer, name string, rows []*Row, opt *PersistOptions) error {
	if opt == nil {
		opt = &DefaultPersistOptions
	}

	switch lower := strings.ToLower(name); {
	case strings.HasSuffix(lower, ".parquet"):
		return WriteParquet(w, rows, opt.WithStatus)
	case strings.HasSuffix(lower, ".gz"):
		gw, err := pgzip.NewWriterLevel(w, opt.CompressionLevel)
		if err != nil {
			return err
		}
		if err = WriteTSV(gw, rows, opt.WithStatus); err != nil {
			gw.Close()
			return err
		}
		return gw.Close()
	case strings.HasSuffix(lower, ".zst"):
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return err
		}
		if err = WriteTSV(zw, rows, opt.WithStatus); err != nil {
			zw.Close()
			return err
		}
		return zw.Close()
	}
	return WriteTSV(w, rows, opt.WithStatus)
}

// WriteTSV writes the rows in tab-delimited format, with a header line.
func WriteTSV(w io.Writer, rows []*Row, withStatus bool) error {
	bw := bufio.NewWriterSize(w, os.Getpagesize())

	bw.WriteString(strings.Join(Header, "\t"))
	if withStatus {
		bw.WriteByte('\t')
		bw.WriteString(StatusColumn)
	}
	bw.WriteByte('\n')

	for _, r := range rows {
		bw.WriteString(r.Seq1ID)
		bw.WriteByte('\t')
		bw.WriteString(r.Seq2ID)
		bw.WriteByte('\t')
		bw.WriteString(strconv.Itoa(r.Seq1Len))
		bw.WriteByte('\t')
		bw.WriteString(strconv.Itoa(r.Seq2Len))
		bw.WriteByte('\t')
		bw.WriteString(r.MatchLenString())
		if withStatus {
			bw.WriteByte('\t')
			bw.WriteString(cleanField(r.Status()))
		}
		bw.WriteByte('\n')
	}

	return bw.Flush()
}

var fieldCleaner = strings.NewReplacer("\t", " ", "\r", " ", "\n", " ")

func cleanField(s string) string {
	return fieldCleaner.Replace(s)
}

// ParquetRow is the parquet schema of a row. MatchLen is null for failed comparisons.
type ParquetRow struct {
	Seq1ID   string  `parquet:"seq1_id"`
	Seq2ID   string  `parquet:"seq2_id"`
	Seq1Len  int64   `parquet:"seq1_len"`
	Seq2Len  int64   `parquet:"seq2_len"`
	MatchLen *int64  `parquet:"match_len,optional"`
	Status   *string `parquet:"status,optional"`
}

// WriteParquet writes the rows in parquet format.
func WriteParquet(w io.Writer, rows []*Row, withStatus bool) error {
	prows := make([]ParquetRow, len(rows))
	for i, r := range rows {
		p := ParquetRow{
			Seq1ID:  r.Seq1ID,
			Seq2ID:  r.Seq2ID,
			Seq1Len: int64(r.Seq1Len),
			Seq2Len: int64(r.Seq2Len),
		}
		if !r.Failed {
			v := int64(r.MatchLen)
			p.MatchLen = &v
		}
		if withStatus {
			s := r.Status()
			p.Status = &s
		}
		prows[i] = p
	}
	return parquet.Write(w, prows)
}

// SplitURL splits an object URL into the bucket URL and the key.
// For file:// URLs, the bucket is the parent directory.
func SplitURL(dest string) (string, string, error) {
	u, err := url.Parse(dest)
	if err != nil {
		return "", "", errors.Wrapf(err, "parsing URL: %s", dest)
	}

	var bucket, key string
	if u.Scheme == "file" {
		key = path.Base(u.Path)
		bucket = (&url.URL{Scheme: u.Scheme, Path: path.Dir(u.Path), RawQuery: u.RawQuery}).String()
	} else {
		key = strings.TrimPrefix(u.Path, "/")
		bucket = (&url.URL{Scheme: u.Scheme, Host: u.Host, RawQuery: u.RawQuery}).String()
	}
	if key == "" || key == "." || key == "/" || strings.HasSuffix(key, "/") {
		return "", "", errors.Errorf("no object key in URL: %s", dest)
	}
	return bucket, key, nil
}

func persistBlob(ctx context.Context, rows []*Row, dest string, opt *PersistOptions) error {
	bucketURL, key, err := SplitURL(dest)
	if err != nil {
		return err
	}

	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return errors.Wrapf(err, "opening bucket: %s", bucketURL)
	}
	defer bucket.Close()

	// canceling the context before Close discards a partial object.
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w, err := bucket.NewWriter(wctx, key, nil)
	if err != nil {
		return errors.Wrapf(err, "creating writer for %s", dest)
	}
	if err = Encode(w, key, rows, opt); err != nil {
		cancel()
		w.Close()
		return errors.Wrapf(err, "writing %s", dest)
	}
	if err = w.Close(); err != nil {
		return errors.Wrapf(err, "closing writer for %s", dest)
	}
	return nil
}
