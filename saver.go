package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
)

// FileSaver writes the artifact into Dir under its base name. The file is
// written to a temporary name first and renamed into place.
type FileSaver struct {
	Dir      string
	Progress bool
	Force    bool
}

func (f FileSaver) Path(name string) string {
	return filepath.Join(f.Dir, filepath.Base(name))
}

func (f FileSaver) Save(ctx context.Context, name string, data []byte) (err error) {
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) {
		return fmt.Errorf("invalid file name %q", name)
	}
	dest := f.Path(name)
	if !f.Force {
		if _, err := os.Stat(dest); err == nil {
			return fmt.Errorf("%s: %w", dest, os.ErrExist)
		}
	}
	if err = os.MkdirAll(f.Dir, 0o777); err != nil {
		slog.Error("mkdir", "dir", f.Dir, "error", err)
		return err
	}
	ofp, err := os.CreateTemp(f.Dir, "."+base+".*")
	if err != nil {
		slog.Error("create temp", "dir", f.Dir, "error", err)
		return err
	}
	defer func() {
		if err != nil {
			ofp.Close()
			os.Remove(ofp.Name())
		}
	}()
	var wr io.Writer = ofp
	if f.Progress {
		bar := progressbar.DefaultBytes(int64(len(data)), base)
		defer bar.Close()
		wr = io.MultiWriter(ofp, bar)
	}
	written, err := io.Copy(wr, contextReader{ctx: ctx, r: bytes.NewReader(data)})
	if err != nil {
		slog.Error("copy", "dest", dest, "written", written, "error", err)
		return err
	}
	if err = ofp.Sync(); err != nil {
		slog.Error("sync", "dest", dest, "error", err)
		return err
	}
	if err = ofp.Close(); err != nil {
		slog.Error("close", "dest", dest, "error", err)
		return err
	}
	if err = os.Chmod(ofp.Name(), 0o644); err != nil {
		slog.Warn("chmod", "name", ofp.Name(), "error", err)
	}
	if err = os.Rename(ofp.Name(), dest); err != nil {
		slog.Error("rename", "from", ofp.Name(), "dest", dest, "error", err)
		return err
	}
	slog.Debug("written", "dest", dest, "written", written)
	return nil
}

// contextReader stops a copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
