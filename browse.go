package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("25")).
			Foreground(lipgloss.Color("255"))

	doneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242"))
)

const browseListHeight = 15

type selectedMsg struct {
	name string
	err  error
}

type extractedMsg struct {
	dest string
	err  error
}

type browseModel struct {
	ctx     context.Context
	session *Session
	saver   FileSaver
	picker  filepicker.Model
	view    SessionView
	cursor  int
	offset  int
	height  int
	busy    bool
	message string
	err     error
	initial tea.Cmd
}

func newBrowseModel(ctx context.Context, sess *Session, saver FileSaver, dir string) browseModel {
	picker := filepicker.New()
	picker.CurrentDirectory = dir
	picker.AllowedTypes = acceptExtensions(acceptPatterns)
	picker.Height = browseListHeight
	return browseModel{
		ctx:     ctx,
		session: sess,
		saver:   saver,
		picker:  picker,
		view:    sess.Snapshot(),
		height:  browseListHeight,
	}
}

func (m browseModel) Init() tea.Cmd {
	if m.initial != nil {
		return tea.Batch(m.picker.Init(), m.initial)
	}
	return m.picker.Init()
}

// selectFile reads path and lists it outside the update loop.
func (m browseModel) selectFile(path string) tea.Cmd {
	sess, ctx := m.session, m.ctx
	return func() tea.Msg {
		name := filepath.Base(path)
		if !ismatch(name, acceptPatterns) {
			slog.Warn("unexpected file type", "name", name, "accept", acceptPatterns)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return selectedMsg{name: name, err: err}
		}
		// archives with one entry or less never left the picker
		if view := sess.Snapshot(); view.Stage == StageListed && !view.ShowList() {
			if err = sess.Cancel(); err != nil {
				return selectedMsg{name: name, err: err}
			}
		}
		return selectedMsg{name: name, err: sess.SelectFile(ctx, name, data)}
	}
}

func (m browseModel) extract() tea.Cmd {
	sess, ctx, saver := m.session, m.ctx, m.saver
	dest := saver.Path(m.view.Name)
	return func() tea.Msg {
		return extractedMsg{dest: dest, err: sess.ConfirmExtract(ctx, saver)}
	}
}

func (m browseModel) cancel() browseModel {
	if err := m.session.Cancel(); err != nil {
		m.err = err
	} else {
		m.message = ""
	}
	return m.refresh()
}

func (m browseModel) refresh() browseModel {
	m.view = m.session.Snapshot()
	if m.cursor >= len(m.view.Entries) {
		m.cursor = 0
		m.offset = 0
	}
	return m
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = max(msg.Height-6, 3)
		m.picker.Height = m.height
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
		if m.view.ShowList() {
			return m.updateList(msg)
		}
	case selectedMsg:
		m.busy = false
		m.err = msg.err
		m.message = ""
		m.cursor, m.offset = 0, 0
		m = m.refresh()
		if msg.err == nil && !m.view.ShowList() {
			m.message = fmt.Sprintf("%s: %d entries, nothing to review", msg.name, len(m.view.Entries))
		}
		return m, nil
	case extractedMsg:
		m.busy = false
		m.err = msg.err
		if msg.err == nil {
			m.message = "Download completed! " + msg.dest
		}
		return m.refresh(), nil
	}
	if m.view.ShowList() {
		return m, nil
	}
	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)
	if ok, path := m.picker.DidSelectFile(msg); ok && !m.busy {
		m.busy = true
		m.err = nil
		return m, tea.Batch(cmd, m.selectFile(path))
	}
	if ok, path := m.picker.DidSelectDisabledFile(msg); ok {
		m.err = fmt.Errorf("%s: not one of %s", filepath.Base(path), strings.Join(m.picker.AllowedTypes, " "))
	}
	return m, cmd
}

func (m browseModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.view.Entries)-1 {
			m.cursor++
		}
	case "esc", "c":
		return m.cancel(), nil
	case "enter", "x":
		m.busy = true
		m.err = nil
		return m, m.extract()
	}
	if m.cursor < m.offset {
		m.offset = m.cursor
	} else if m.cursor >= m.offset+m.height {
		m.offset = m.cursor - m.height + 1
	}
	return m, nil
}

func (m browseModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Extract file"))
	b.WriteString("\n\n")
	if m.view.ShowList() {
		b.WriteString(dimStyle.Render(fmt.Sprintf("%s (%d bytes, %d entries)", m.view.Name, m.view.Size, len(m.view.Entries))))
		b.WriteString("\n")
		end := min(m.offset+m.height, len(m.view.Entries))
		for i := m.offset; i < end; i++ {
			e := m.view.Entries[i]
			line := fmt.Sprintf("%s %-40s %s", e.Category.Icon(), e.Name, e.ModifiedLabel())
			if i == m.cursor {
				line = selectedStyle.Render(line)
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("enter/x extract | esc/c cancel | q quit"))
	} else {
		b.WriteString("Browse file (" + strings.Join(m.picker.AllowedTypes, " ") + ")\n")
		b.WriteString(m.picker.View())
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("enter select | q quit"))
	}
	b.WriteString("\n")
	if m.message != "" {
		style := dimStyle
		if m.view.Completed {
			style = doneStyle
		}
		b.WriteString(style.Render(m.message))
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render("Error: " + m.err.Error()))
		b.WriteString("\n")
	}
	return b.String()
}

type BrowseCmd struct {
	Output string `short:"o" long:"output" description:"output directory" default:"."`
	Force  bool   `long:"force" description:"overwrite an existing file"`
	Log    string `long:"log" description:"write logs to this file while the screen is in use"`
}

// Execute starts the picker in the directory given as argument. A file
// argument is listed right away.
func (cmd *BrowseCmd) Execute(args []string) error {
	init_log()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if cmd.Log != "" {
		f, err := tea.LogToFile(cmd.Log, "browse")
		if err != nil {
			slog.Error("log file", "error", err)
			return err
		}
		defer f.Close()
		logger = slog.New(slog.NewTextHandler(f, nil))
	}
	slog.SetDefault(logger)
	dir, file, err := browseStart(args)
	if err != nil {
		return err
	}
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	m := newBrowseModel(ctx, NewSession(logger), FileSaver{Dir: cmd.Output, Force: cmd.Force}, dir)
	if file != "" {
		m.busy = true
		m.initial = m.selectFile(file)
	}
	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return err
	}
	if res, ok := final.(browseModel); ok && res.view.Completed {
		fmt.Println(res.message)
	}
	return nil
}

// browseStart resolves the start directory and an optional preselected file.
func browseStart(args []string) (dir string, file string, err error) {
	target := string(globalOption.Archive)
	if len(args) != 0 {
		target = args[0]
	}
	if target == "" {
		dir, err = os.Getwd()
		return dir, "", err
	}
	st, err := os.Stat(target)
	if err != nil {
		return "", "", err
	}
	if st.IsDir() {
		return target, "", nil
	}
	if !st.Mode().IsRegular() {
		return "", "", errors.New(target + ": not a regular file")
	}
	return filepath.Dir(target), target, nil
}
