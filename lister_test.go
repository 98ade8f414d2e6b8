package main

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestListArchiveOrder(t *testing.T) {
	t.Parallel()
	data := makezip(t, "b.txt", "A.txt", "a.txt")
	entries, err := ListArchive(context.Background(), data)
	if err != nil {
		t.Fatal("list", err)
	}
	names := entryNames(entries)
	// stable: A.txt was written before a.txt
	if !reflect.DeepEqual(names, []string{"A.txt", "a.txt", "b.txt"}) {
		t.Error("order", names)
	}
}

func TestListArchiveStableTies(t *testing.T) {
	t.Parallel()
	data := makezip(t, "b.txt", "a.txt", "A.txt")
	entries, err := ListArchive(context.Background(), data)
	if err != nil {
		t.Fatal("list", err)
	}
	names := entryNames(entries)
	if !reflect.DeepEqual(names, []string{"a.txt", "A.txt", "b.txt"}) {
		t.Error("order", names)
	}
}

func TestListArchiveDuplicates(t *testing.T) {
	t.Parallel()
	data := makezip(t, "z.txt", "dup.txt", "dup.txt")
	entries, err := ListArchive(context.Background(), data)
	if err != nil {
		t.Fatal("list", err)
	}
	names := entryNames(entries)
	if !reflect.DeepEqual(names, []string{"dup.txt", "dup.txt", "z.txt"}) {
		t.Error("duplicates", names)
	}
}

func TestListArchiveIdempotent(t *testing.T) {
	t.Parallel()
	data := makezip(t, "docs/", "docs/Readme.md", "img/logo.png", "IMG/banner.jpg", "a.pdf")
	first, err := ListArchive(context.Background(), data)
	if err != nil {
		t.Fatal("list1", err)
	}
	second, err := ListArchive(context.Background(), data)
	if err != nil {
		t.Fatal("list2", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("not idempotent", first, second)
	}
	if len(first) != 5 {
		t.Error("count", len(first))
	}
}

func TestListArchiveMetadata(t *testing.T) {
	t.Parallel()
	data := makezipHeaders(t, []zip.FileHeader{
		{Name: "dir/", Modified: fixtureTime},
		{Name: "dir/stamped.txt", Method: zip.Deflate, Modified: fixtureTime},
		{Name: "dir/nostamp.txt", Method: zip.Store},
	})
	entries, err := ListArchive(context.Background(), data)
	if err != nil {
		t.Fatal("list", err)
	}
	byname := map[string]ArchiveEntry{}
	for _, e := range entries {
		byname[e.Name] = e
	}
	if !byname["dir/"].IsDir {
		t.Error("dir", byname["dir/"])
	}
	stamped := byname["dir/stamped.txt"]
	if !stamped.HasModified() || !stamped.Modified.Equal(fixtureTime) {
		t.Error("modified", stamped.Modified)
	}
	if stamped.Method != zip.Deflate || stamped.Size != 513 {
		t.Error("stamped", stamped)
	}
	nostamp := byname["dir/nostamp.txt"]
	if nostamp.HasModified() {
		t.Error("no timestamp expected", nostamp.Modified)
	}
	if nostamp.Method != zip.Store || nostamp.CompressedSize != nostamp.Size {
		t.Error("stored", nostamp)
	}
}

func TestListArchiveEmpty(t *testing.T) {
	t.Parallel()
	entries, err := ListArchive(context.Background(), makezip(t))
	if err != nil {
		t.Fatal("list", err)
	}
	if entries == nil || len(entries) != 0 {
		t.Error("empty", entries)
	}
}

func TestListArchiveParseError(t *testing.T) {
	t.Parallel()
	for _, input := range [][]byte{nil, []byte("hello world, not an archive")} {
		_, err := ListArchive(context.Background(), input)
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Error("parse error expected", err)
			continue
		}
		if pe.Format != "" {
			t.Error("format", pe.Format)
		}
		if !errors.Is(err, zip.ErrFormat) {
			t.Error("unwrap", pe.Err)
		}
		if !strings.HasPrefix(err.Error(), "not a zip archive") {
			t.Error("message", err)
		}
	}
}

func TestListArchiveGzip(t *testing.T) {
	t.Parallel()
	buf := &bytes.Buffer{}
	wr := gzip.NewWriter(buf)
	if _, err := wr.Write(lorem(2048)); err != nil {
		t.Fatal("gzip", err)
	}
	if err := wr.Close(); err != nil {
		t.Fatal("gzip close", err)
	}
	_, err := ListArchive(context.Background(), buf.Bytes())
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatal("parse error expected", err)
	}
	if !strings.Contains(pe.Format, "gz") {
		t.Error("format", pe.Format)
	}
	if !strings.Contains(err.Error(), "not supported") {
		t.Error("message", err)
	}
}

func TestListArchiveCanceled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ListArchive(ctx, makezip(t, "a.txt"))
	if !errors.Is(err, context.Canceled) {
		t.Error("canceled", err)
	}
}

func TestSortEntries(t *testing.T) {
	t.Parallel()
	entries := []ArchiveEntry{{Name: "b"}, {Name: "B"}, {Name: "a"}, {Name: "_x"}, {Name: "C"}}
	SortEntries(entries)
	names := entryNames(entries)
	// '_' (0x5f) sorts after upper-case letters
	if !reflect.DeepEqual(names, []string{"a", "b", "B", "C", "_x"}) {
		t.Error("sort", names)
	}
}
