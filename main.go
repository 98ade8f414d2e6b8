package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/jessevdk/go-flags"
)

var globalOption struct {
	Verbose bool           `short:"v" long:"verbose" description:"show verbose logs"`
	Quiet   bool           `short:"q" long:"quiet" description:"suppress logs"`
	JsonLog bool           `long:"json-log" description:"use json format for logging"`
	Archive flags.Filename `short:"f" long:"archive" description:"archive file" env:"ZIPVIEW_ARCHIVE"`
}

var errNoArchive = errors.New("no archive given (use -f or an argument)")

// archiveFilename picks the first positional argument, falling back to -f.
func archiveFilename(args []string) (string, error) {
	if len(args) != 0 {
		return args[0], nil
	}
	if globalOption.Archive != "" {
		return string(globalOption.Archive), nil
	}
	return "", errNoArchive
}

func init_log() {
	var level slog.Level = slog.LevelInfo
	if globalOption.Verbose {
		level = slog.LevelDebug
	} else if globalOption.Quiet {
		level = slog.LevelWarn
	}
	slog.SetLogLoggerLevel(level)
	if globalOption.JsonLog {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	}
}

func newParser() (*flags.Parser, error) {
	parser := flags.NewParser(&globalOption, flags.Default)
	commands := []struct {
		name, short, long string
		data              any
	}{
		{"webserver", "boot webserver", "serve the upload, list and extract pages", &WebServer{}},
		{"ziplist", "list archive entries", "list archive entries in display order", &ZipList{}},
		{"extract", "list and save archive", "list entries, confirm and save the archive", &ExtractCmd{}},
		{"browse", "terminal browser", "pick an archive, review entries and save it", &BrowseCmd{}},
		{"version", "show version", "show version", &VersionCmd{}},
	}
	for _, c := range commands {
		if _, err := parser.AddCommand(c.name, c.short, c.long, c.data); err != nil {
			slog.Error("addcommand "+c.name, "error", err)
			return nil, err
		}
	}
	return parser, nil
}

func main() {
	parser, err := newParser()
	if err != nil {
		panic(err)
	}
	if _, err := parser.Parse(); err != nil {
		if fe, ok := err.(*flags.Error); ok && fe.Type == flags.ErrHelp {
			os.Exit(0)
		}
		slog.Error("error exit", "error", err)
		os.Exit(1)
	}
}
