package main

import "time"

// DisplayEntry is an ArchiveEntry with what the shells render next to it.
type DisplayEntry struct {
	ArchiveEntry
	Category  Category      `json:"category"`
	Decoupled DecoupledName `json:"decoupled"`
}

func NewDisplayEntry(e ArchiveEntry) DisplayEntry {
	return DisplayEntry{
		ArchiveEntry: e,
		Category:     Classify(e.Name),
		Decoupled:    Decouple(e.Name),
	}
}

// ModifiedLabel formats the timestamp for tables, empty when absent.
func (e DisplayEntry) ModifiedLabel() string {
	if !e.HasModified() {
		return ""
	}
	return e.Modified.Local().Format(time.DateTime)
}

type SessionView struct {
	Stage     Stage          `json:"stage"`
	Name      string         `json:"name,omitempty"`
	Size      int            `json:"size,omitempty"`
	Entries   []DisplayEntry `json:"entries"`
	Completed bool           `json:"completed"`
	Pending   string         `json:"pending,omitempty"`
}

func newSessionView(st sessionState, pending string) SessionView {
	view := SessionView{
		Stage:     st.stage,
		Name:      st.name,
		Size:      len(st.source),
		Completed: st.stage == StageCompleted,
		Pending:   pending,
		Entries:   make([]DisplayEntry, 0, len(st.entries)),
	}
	for _, e := range st.entries {
		view.Entries = append(view.Entries, NewDisplayEntry(e))
	}
	return view
}

// ShowList reports whether the entry table is rendered. Archives with zero
// or one entries skip the review step and show the upload prompt again.
func (v SessionView) ShowList() bool {
	return v.Stage == StageListed && len(v.Entries) > 1
}
