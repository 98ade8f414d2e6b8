package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fsnotify/fsnotify"
)

type ZipList struct {
	Json  bool `long:"json" description:"print entries as json"`
	Watch bool `short:"w" long:"watch" description:"list again when the archive changes"`

	out io.Writer
}

func (cmd *ZipList) output() io.Writer {
	if cmd.out == nil {
		return os.Stdout
	}
	return cmd.out
}

func (cmd *ZipList) Execute(args []string) (err error) {
	init_log()
	fname, err := archiveFilename(args)
	if err != nil {
		return err
	}
	if err = cmd.show(context.Background(), fname); err != nil {
		return err
	}
	if !cmd.Watch {
		return nil
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	wt, err := newArchiveWatcher(fname)
	if err != nil {
		return err
	}
	defer wt.Close()
	return watchArchive(ctx, wt, fname, func() {
		if err := cmd.show(ctx, fname); err != nil {
			slog.Error("relist", "name", fname, "error", err)
		}
	})
}

func (cmd *ZipList) show(ctx context.Context, fname string) error {
	data, err := os.ReadFile(fname)
	if err != nil {
		slog.Error("open error", "error", err)
		return err
	}
	entries, err := ListArchive(ctx, data)
	if err != nil {
		slog.Error("list error", "name", fname, "error", err)
		return err
	}
	return printEntries(cmd.output(), entries, cmd.Json)
}

func printEntries(out io.Writer, entries []ArchiveEntry, asJson bool) error {
	display := make([]DisplayEntry, 0, len(entries))
	for _, e := range entries {
		display = append(display, NewDisplayEntry(e))
	}
	if asJson {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(display)
	}
	for _, e := range display {
		kind := string(e.Category)
		if e.IsDir {
			kind = "/"
		}
		modified := e.ModifiedLabel()
		if modified == "" {
			modified = "-"
		}
		if _, err := fmt.Fprintf(out, "%-8s %10d %19s %s\n", kind, e.Size, modified, e.Name); err != nil {
			return err
		}
	}
	return nil
}

func newArchiveWatcher(fname string) (*fsnotify.Watcher, error) {
	wt, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Error("watcher", "error", err)
		return nil, err
	}
	if err = wt.Add(fname); err != nil {
		slog.Error("watcher add", "name", fname, "error", err)
		wt.Close()
		return nil, err
	}
	return wt, nil
}

func watchArchive(ctx context.Context, wt *fsnotify.Watcher, fname string, changed func()) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-wt.Events:
			if !ok {
				return nil
			}
			slog.Debug("got watcher event", "event", event, "op", event.Op.String())
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				slog.Info("modified", "name", event.Name)
				changed()
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				// the inode is gone, follow the new file under the same name
				if err := wt.Add(fname); err != nil {
					slog.Warn("re-watch", "name", fname, "error", err)
				} else {
					changed()
				}
			}
		case err, ok := <-wt.Errors:
			if !ok {
				return nil
			}
			slog.Info("got watcher error", "error", err)
		}
	}
}
