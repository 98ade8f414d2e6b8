package main

import (
	"io"

	"github.com/andybalholm/brotli"
)

const brotliLevel = 5

func newBrotliWriter(out io.Writer) io.WriteCloser {
	return brotli.NewWriterLevel(out, brotliLevel)
}
