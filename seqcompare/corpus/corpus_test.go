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
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/pkg/errors"
	"github.com/shenwei356/bio/seq"
)

func init() {
	seq.ValidateSeq = false
}

func writeFile(t *testing.T, file, content string) {
	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(file, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestReadFileKeepsOrder(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.fasta")
	writeFile(t, file, ">p2 second\nmkvl\nAAG\n>p1\nMSTN\n>p2\nQQ\n")

	records, err := ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}

	expected := []Record{{"p2", []byte("MKVLAAG")}, {"p1", []byte("MSTN")}, {"p2", []byte("QQ")}}
	if len(records) != len(expected) {
		t.Fatalf("expected %d records, returned %d", len(expected), len(records))
	}
	for i, r := range records {
		if r.ID != expected[i].ID || string(r.Seq) != string(expected[i].Seq) {
			t.Errorf("#%d: expected %s, returned %s", i, &expected[i], r)
		}
	}
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.fa"), ">b1\nMMMM\n")
	writeFile(t, filepath.Join(dir, "a.fa"), ">a1\nKKKK\n>a2\nLL\n")
	writeFile(t, filepath.Join(dir, "sub", "c.faa"), ">c1\nWW\n")
	writeFile(t, filepath.Join(dir, "notes.txt"), "not a sequence file\n")

	c, err := Load(dir, &LoadOptions{FileRegexp: DefaultFileRegexp, Threads: 2})
	if err != nil {
		t.Fatal(err)
	}

	ids := []string{"a1", "a2", "b1", "c1"}
	if c.Len() != len(ids) {
		t.Fatalf("expected %d records, returned %d", len(ids), c.Len())
	}
	for i, id := range ids {
		if c.At(i).ID != id {
			t.Errorf("#%d: expected %s, returned %s", i, id, c.At(i).ID)
		}
	}
	if c.Residues() != 12 {
		t.Errorf("expected 12 residues, returned %d", c.Residues())
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load("", nil); err != ErrEmptyPath {
		t.Errorf("expected ErrEmptyPath, returned %v", err)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.fa"), nil); err == nil {
		t.Errorf("missing file should fail")
	}

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "x.txt"), "x")
	_, err := Load(dir, &LoadOptions{FileRegexp: regexp.MustCompile(`\.fa$`)})
	if !errors.Is(err, ErrNoFiles) {
		t.Errorf("expected ErrNoFiles, returned %v", err)
	}
}

func TestSource(t *testing.T) {
	records := []*Record{{ID: "x", Seq: []byte("ACD")}}
	c, err := FromRecords("mem", records).Resolve(nil)
	if err != nil {
		t.Fatal(err)
	}
	if c.Len() != 1 || c.At(0) != records[0] {
		t.Errorf("records should be used as they are")
	}
	if !c.Valid(0) || c.Valid(1) || c.Valid(-1) {
		t.Errorf("wrong index checking")
	}

	file := filepath.Join(t.TempDir(), "q.fa")
	writeFile(t, file, ">q\nMK\n")
	src := FromPath(file)
	if src.Loaded() {
		t.Errorf("a path source is not loaded")
	}
	c, err = src.Resolve(nil)
	if err != nil {
		t.Fatal(err)
	}
	if c.Len() != 1 || c.At(0).ID != "q" {
		t.Errorf("unexpected corpus: %v", c.Records)
	}

	var empty Source
	if _, err = empty.Resolve(nil); err == nil {
		t.Errorf("empty source should fail")
	}
}

func TestRecordString(t *testing.T) {
	r := &Record{ID: "p1", Seq: []byte("MSTN")}
	if r.Len() != 4 || r.String() != "p1 (4)" || fmt.Sprint(r) != "p1 (4)" {
		t.Errorf("unexpected record: %d %s", r.Len(), r)
	}
}
