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
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/shenwei356/xopen"
)

// ReadTSV reads a result table in tab-delimited format, plain or compressed.
// The status column is optional.
func ReadTSV(file string) ([]*Row, error) {
	fh, err := xopen.Ropen(file)
	if err != nil {
		return nil, errors.Wrapf(err, "reading table: %s", file)
	}
	defer fh.Close()

	rows := make([]*Row, 0, 1024)

	scanner := bufio.NewScanner(fh)
	scanner.Buffer(make([]byte, 0, 64<<10), 16<<20)

	items := make([]string, len(Header)+1)
	var line string
	var header bool
	var withStatus bool
	var nLine int
	for scanner.Scan() {
		nLine++
		line = strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" {
			continue
		}

		items = items[:cap(items)]
		stringSplitNByByte(line, '\t', len(Header)+1, &items)

		if !header {
			for i, h := range Header {
				if i >= len(items) || items[i] != h {
					return nil, errors.Errorf("invalid table header in %s: %s", file, line)
				}
			}
			withStatus = len(items) > len(Header) && items[len(Header)] == StatusColumn
			header = true
			continue
		}

		if len(items) < len(Header) {
			return nil, errors.Errorf("line %d of %s: %d columns expected, %d given", nLine, file, len(Header), len(items))
		}

		r := &Row{Seq1ID: items[0], Seq2ID: items[1]}
		if r.Seq1Len, err = strconv.Atoi(items[2]); err != nil {
			return nil, errors.Errorf("line %d of %s: invalid seq1_len: %s", nLine, file, items[2])
		}
		if r.Seq2Len, err = strconv.Atoi(items[3]); err != nil {
			return nil, errors.Errorf("line %d of %s: invalid seq2_len: %s", nLine, file, items[3])
		}
		if items[4] == NA {
			r.Failed = true
		} else if r.MatchLen, err = strconv.Atoi(items[4]); err != nil {
			return nil, errors.Errorf("line %d of %s: invalid match_len: %s", nLine, file, items[4])
		}
		if withStatus && r.Failed && len(items) > len(Header) {
			r.Error = items[len(Header)]
		}

		rows = append(rows, r)
	}
	if err = scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading table: %s", file)
	}
	if !header {
		return nil, errors.Errorf("empty table: %s", file)
	}

	return rows, nil
}

func stringSplitNByByte(s string, sep byte, n int, a *[]string) {
	n--
	i := 0
	for i < n {
		m := strings.IndexByte(s, sep)
		if m < 0 {
			break
		}
		(*a)[i] = s[:m]
		s = s[m+1:]
		i++
	}
	(*a)[i] = s

	(*a) = (*a)[:i+1]
}
