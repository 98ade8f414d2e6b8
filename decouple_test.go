package main

import "testing"

func TestDecouple(t *testing.T) {
	t.Parallel()
	cases := []struct {
		input string
		base  string
		ext   string
	}{
		{"a.b.txt", "a.b", "txt"},
		{"README", "README", ""},
		{"", "", ""},
		{"photo.png", "photo", "png"},
		{"dir/archive.tar.gz", "dir/archive.tar", "gz"},
		{"v.1.1.tar", "v.1.1", "tar"},
		// segments equal to the extension are all removed
		{"v.1.1", "v", "1"},
		{"a.txt.txt", "a", "txt"},
		{"trailing.", "trailing", ""},
	}
	for _, c := range cases {
		res := Decouple(c.input)
		if res.BaseName != c.base || res.Extension != c.ext {
			t.Error("decouple", c.input, res, c.base, c.ext)
		}
	}
}

func TestDecoupleRoundTrip(t *testing.T) {
	t.Parallel()
	for _, name := range []string{"a.b.txt", "report.pdf", "x.y.z.json"} {
		res := Decouple(name)
		if res.BaseName+"."+res.Extension != name {
			t.Error("round trip", name, res)
		}
	}
	if res := Decouple("Makefile"); res.BaseName != "Makefile" {
		t.Error("no extension", res)
	}
}
