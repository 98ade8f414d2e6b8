package main

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/mholt/archives"
)

type ArchiveEntry struct {
	Name           string    `json:"name"`
	Modified       time.Time `json:"modified,omitzero"`
	IsDir          bool      `json:"is_dir,omitempty"`
	Size           uint64    `json:"size"`
	CompressedSize uint64    `json:"compressed_size"`
	Method         uint16    `json:"method"`
}

// HasModified reports whether the archive recorded a timestamp for the entry.
func (e ArchiveEntry) HasModified() bool {
	return !e.Modified.IsZero()
}

// archive/zip reports 1979-11-30 for an all-zero MS-DOS date
var dosEpoch = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

func entryFromZip(f *zip.File) ArchiveEntry {
	entry := ArchiveEntry{
		Name:           f.Name,
		IsDir:          f.FileInfo().IsDir(),
		Size:           f.UncompressedSize64,
		CompressedSize: f.CompressedSize64,
		Method:         f.Method,
	}
	if f.ModifiedDate != 0 || f.ModifiedTime != 0 || !f.Modified.Before(dosEpoch) {
		entry.Modified = f.Modified
	}
	return entry
}

type ParseError struct {
	// Format is the container extension detected from the magic bytes
	// (".rar", ".7z", ".gz", ...), empty when nothing matched.
	Format string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Format != "" && e.Format != ".zip" {
		return fmt.Sprintf("%s archives are not supported: %v", strings.TrimPrefix(e.Format, "."), e.Err)
	}
	return fmt.Sprintf("not a zip archive: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func identifyFormat(ctx context.Context, data []byte) string {
	format, _, err := archives.Identify(ctx, "", bytes.NewReader(data))
	if err != nil {
		slog.Debug("identify", "error", err)
		return ""
	}
	return format.Extension()
}

// ListArchive reads the zip central directory in data and returns its entries
// ordered by SortEntries. Nothing is decompressed.
func ListArchive(ctx context.Context, data []byte) ([]ArchiveEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	z, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		if !errors.Is(err, zip.ErrInsecurePath) || z == nil {
			format := identifyFormat(ctx, data)
			slog.Info("parse failed", "size", len(data), "format", format, "error", err)
			return nil, &ParseError{Format: format, Err: err}
		}
		slog.Warn("insecure path", "error", err)
	}
	entries := make([]ArchiveEntry, 0, len(z.File))
	for _, f := range z.File {
		entries = append(entries, entryFromZip(f))
	}
	SortEntries(entries)
	slog.Debug("listed", "size", len(data), "entries", len(entries))
	return entries, nil
}

// SortEntries orders entries by upper-cased name. The sort is stable, so names
// differing only in case keep their directory order.
func SortEntries(entries []ArchiveEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return strings.ToUpper(entries[i].Name) < strings.ToUpper(entries[j].Name)
	})
}
