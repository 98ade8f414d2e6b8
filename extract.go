package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
)

var acceptPatterns = []string{"*.zip", "*.rar", "*.7z", "*.gz"}

type ExtractCmd struct {
	Output   string `short:"o" long:"output" description:"output directory" default:"."`
	Yes      bool   `short:"y" long:"yes" description:"do not ask for confirmation"`
	Force    bool   `long:"force" description:"overwrite an existing file"`
	Progress bool   `long:"progress" description:"show progress bar"`

	in  io.Reader
	out io.Writer
}

func (cmd *ExtractCmd) Execute(args []string) (err error) {
	init_log()
	if cmd.in == nil {
		cmd.in = os.Stdin
	}
	if cmd.out == nil {
		cmd.out = os.Stdout
	}
	fname, err := archiveFilename(args)
	if err != nil {
		return err
	}
	if !ismatch(filepath.Base(fname), acceptPatterns) {
		slog.Warn("unexpected file type", "name", fname, "accept", acceptPatterns)
	}
	data, err := os.ReadFile(fname)
	if err != nil {
		slog.Error("open error", "error", err)
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	sess := NewSession(slog.Default())
	if err = sess.SelectFile(ctx, filepath.Base(fname), data); err != nil {
		return err
	}
	view := sess.Snapshot()
	if !view.ShowList() {
		fmt.Fprintf(cmd.out, "%s: %d entries, nothing to review\n", view.Name, len(view.Entries))
		return sess.Cancel()
	}
	for _, e := range view.Entries {
		fmt.Fprintf(cmd.out, "%s %s\n", e.Category.Icon(), e.Name)
	}
	saver := FileSaver{Dir: cmd.Output, Progress: cmd.Progress, Force: cmd.Force}
	if !cmd.Yes && !cmd.confirm(fmt.Sprintf("save %s to %s?", view.Name, saver.Path(view.Name))) {
		fmt.Fprintln(cmd.out, "canceled")
		return sess.Cancel()
	}
	if err = sess.ConfirmExtract(ctx, saver); err != nil {
		return err
	}
	fmt.Fprintln(cmd.out, "Download completed!", saver.Path(view.Name))
	return nil
}

func (cmd *ExtractCmd) confirm(prompt string) bool {
	fmt.Fprint(cmd.out, prompt, " [y/N] ")
	line, err := bufio.NewReader(cmd.in).ReadString('\n')
	if err != nil && line == "" {
		slog.Debug("confirm", "error", err)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
