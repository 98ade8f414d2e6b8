package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// step applies msg and runs the returned command once, feeding its result back.
func step(t *testing.T, m browseModel, msg tea.Msg) browseModel {
	t.Helper()
	next, cmd := m.Update(msg)
	res, ok := next.(browseModel)
	if !ok {
		t.Fatalf("model type %T", next)
	}
	if cmd != nil {
		switch out := cmd().(type) {
		case selectedMsg, extractedMsg:
			next, _ = res.Update(out)
			res = next.(browseModel)
		}
	}
	return res
}

func newTestBrowser(t *testing.T) (browseModel, string) {
	t.Helper()
	out := t.TempDir()
	m := newBrowseModel(context.Background(), NewSession(quietLogger()), FileSaver{Dir: out}, t.TempDir())
	return m, out
}

func runSelect(t *testing.T, m browseModel, path string) browseModel {
	t.Helper()
	msg := m.selectFile(path)()
	next, _ := m.Update(msg)
	return next.(browseModel)
}

func TestBrowseSelectAndExtract(t *testing.T) {
	m, out := newTestBrowser(t)
	if !strings.Contains(m.View(), ".zip .rar .7z .gz") {
		t.Error("picker view", m.View())
	}
	data := makezip(t, "b.txt", "A.png", "c.pdf")
	m = runSelect(t, m, prepare(t, "pick.zip", data))
	if m.err != nil || !m.view.ShowList() {
		t.Fatal("select", m.err, m.view.Stage)
	}
	view := m.View()
	if strings.Index(view, "A.png") > strings.Index(view, "b.txt") || strings.Index(view, "b.txt") > strings.Index(view, "c.pdf") {
		t.Error("order", view)
	}
	m = step(t, m, keyMsg("down"))
	m = step(t, m, keyMsg("down"))
	m = step(t, m, keyMsg("down"))
	if m.cursor != 2 {
		t.Error("cursor", m.cursor)
	}
	m = step(t, m, keyMsg("up"))
	if m.cursor != 1 {
		t.Error("cursor", m.cursor)
	}
	m = step(t, m, keyMsg("enter"))
	if m.err != nil || !m.view.Completed {
		t.Fatal("extract", m.err, m.view.Stage)
	}
	if !strings.Contains(m.View(), "Download completed!") {
		t.Error("completed view", m.View())
	}
	written, err := os.ReadFile(filepath.Join(out, "pick.zip"))
	if err != nil || !bytes.Equal(written, data) {
		t.Error("written", err)
	}
}

func TestBrowseCancel(t *testing.T) {
	m, _ := newTestBrowser(t)
	m = runSelect(t, m, prepare(t, "pick.zip", makezip(t, "a", "b")))
	if !m.view.ShowList() {
		t.Fatal("not listed")
	}
	m = step(t, m, keyMsg("esc"))
	if m.view.Stage != StageIdle || m.err != nil {
		t.Error("cancel", m.view.Stage, m.err)
	}
	if strings.Contains(m.View(), "extract |") {
		t.Error("list still shown")
	}
}

func TestBrowseParseError(t *testing.T) {
	m, _ := newTestBrowser(t)
	m = runSelect(t, m, prepare(t, "bad.zip", []byte("not an archive")))
	var pe *ParseError
	if !errors.As(m.err, &pe) {
		t.Error("parse error", m.err)
	}
	if m.view.Stage != StageIdle || !strings.Contains(m.View(), "Error:") {
		t.Error("view", m.view.Stage)
	}
}

func TestBrowseSingleEntry(t *testing.T) {
	m, _ := newTestBrowser(t)
	m = runSelect(t, m, prepare(t, "one.zip", makezip(t, "only.txt")))
	if m.view.ShowList() || !strings.Contains(m.message, "nothing to review") {
		t.Error("single entry", m.message)
	}
	// extract keys are ignored while the picker is shown
	m = step(t, m, keyMsg("x"))
	if m.view.Stage != StageListed || m.view.Completed {
		t.Error("stage", m.view.Stage)
	}
	m = runSelect(t, m, prepare(t, "two.zip", makezip(t, "a", "b")))
	if m.err != nil || !m.view.ShowList() {
		t.Error("select after single entry", m.err)
	}
}

func TestBrowseQuit(t *testing.T) {
	m, _ := newTestBrowser(t)
	_, cmd := m.Update(keyMsg("q"))
	if cmd == nil {
		t.Fatal("no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("not quit")
	}
}

func TestBrowseStart(t *testing.T) {
	dir := t.TempDir()
	d, f, err := browseStart([]string{dir})
	if err != nil || d != dir || f != "" {
		t.Error("dir", d, f, err)
	}
	path := prepare(t, "x.zip", makezip(t, "a"))
	d, f, err = browseStart([]string{path})
	if err != nil || d != filepath.Dir(path) || f != path {
		t.Error("file", d, f, err)
	}
	if _, _, err = browseStart([]string{filepath.Join(dir, "missing")}); err == nil {
		t.Error("missing accepted")
	}
}
