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

import "fmt"

type sourceKind uint8

const (
	kindNone sourceKind = iota
	kindRecords
	kindPath
)

// Source is where a Corpus comes from: either records already in memory,
// or a path to a sequence file or directory.
// It is resolved once into a Corpus with Resolve.
type Source struct {
	kind    sourceKind
	name    string
	path    string
	records []*Record
}

// FromRecords returns a Source of already loaded records.
func FromRecords(name string, records []*Record) Source {
	return Source{kind: kindRecords, name: name, records: records}
}

// FromPath returns a Source of a sequence file or a directory of sequence files.
func FromPath(path string) Source {
	return Source{kind: kindPath, name: path, path: path}
}

// Loaded tells whether the records are already in memory.
func (s Source) Loaded() bool { return s.kind == kindRecords }

func (s Source) String() string {
	switch s.kind {
	case kindRecords:
		return fmt.Sprintf("%s (%d records in memory)", s.name, len(s.records))
	case kindPath:
		return s.path
	}
	return "<empty source>"
}

// Resolve returns the Corpus of the source.
func (s Source) Resolve(opt *LoadOptions) (*Corpus, error) {
	switch s.kind {
	case kindRecords:
		return New(s.name, s.records), nil
	case kindPath:
		return Load(s.path, opt)
	}
	return nil, ErrEmptyPath
}
