package main

import "strings"

type DecoupledName struct {
	BaseName  string `json:"base_name"`
	Extension string `json:"extension"`
}

// Decouple splits name into a base name and the segment after the last dot.
// Every dot-separated segment equal to the extension is dropped from the base
// name, not only the last one.
func Decouple(name string) DecoupledName {
	if name == "" {
		return DecoupledName{}
	}
	if !strings.Contains(name, ".") {
		return DecoupledName{BaseName: name}
	}
	segments := strings.Split(name, ".")
	ext := segments[len(segments)-1]
	base := make([]string, 0, len(segments))
	for _, seg := range segments {
		if seg != ext {
			base = append(base, seg)
		}
	}
	return DecoupledName{BaseName: strings.Join(base, "."), Extension: ext}
}
