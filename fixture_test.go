package main

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/loremipsum.v1"
)

var fixtureTime = time.Date(2024, time.March, 1, 12, 30, 0, 0, time.UTC)

func lorem(size int) []byte {
	gen := loremipsum.New()
	var res string
	for len(res) < size {
		res += gen.Paragraph() + "\n"
	}
	return []byte(res)[0:size]
}

// makezip builds an archive whose entries are written in the given order.
func makezip(t *testing.T, names ...string) []byte {
	t.Helper()
	headers := make([]zip.FileHeader, 0, len(names))
	for _, name := range names {
		headers = append(headers, zip.FileHeader{Name: name, Method: zip.Deflate, Modified: fixtureTime})
	}
	return makezipHeaders(t, headers)
}

func makezipHeaders(t *testing.T, headers []zip.FileHeader) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	wr := zip.NewWriter(buf)
	for i := range headers {
		fh := headers[i]
		f, err := wr.CreateHeader(&fh)
		if err != nil {
			t.Fatal("create", fh.Name, err)
		}
		if fh.FileInfo().IsDir() {
			continue
		}
		if _, err = f.Write(lorem(512 + i)); err != nil {
			t.Fatal("write", fh.Name, err)
		}
	}
	if err := wr.Close(); err != nil {
		t.Fatal("close", err)
	}
	return buf.Bytes()
}

// prepare writes data to a file in a fresh temp dir and returns its path.
func prepare(t *testing.T, name string, data []byte) string {
	t.Helper()
	fname := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(fname, data, 0o644); err != nil {
		t.Fatal("WriteTmp", err)
	}
	return fname
}

func entryNames(entries []ArchiveEntry) []string {
	res := make([]string, 0, len(entries))
	for _, e := range entries {
		res = append(res, e.Name)
	}
	return res
}
