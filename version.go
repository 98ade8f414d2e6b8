package main

import (
	"fmt"
	"io"
	"os"
)

type VersionCmd struct {
	FullVersion bool `long:"full-version"`

	out io.Writer
}

var (
	version = "dev"
	commit  = "dummy_hash"
	date    = "dummy_date"
)

func (cmd VersionCmd) Execute(args []string) error {
	out := cmd.out
	if out == nil {
		out = os.Stdout
	}
	if cmd.FullVersion {
		fmt.Fprintln(out, "zipview", version, "hash", commit, "build", date)
		return nil
	}
	fmt.Fprintln(out, "zipview", version)
	return nil
}
