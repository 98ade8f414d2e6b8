package main

import (
	"log/slog"
	"path/filepath"
	"strings"
)

func ismatch(name string, patterns []string) bool {
	for _, pat := range patterns {
		if matched, _ := filepath.Match(pat, name); matched {
			slog.Debug("match", "name", name, "pattern", pat)
			return true
		}
	}
	return false
}

// acceptExtensions turns glob patterns like "*.zip" into ".zip".
func acceptExtensions(patterns []string) []string {
	res := make([]string, 0, len(patterns))
	for _, pat := range patterns {
		res = append(res, strings.TrimPrefix(pat, "*"))
	}
	return res
}
