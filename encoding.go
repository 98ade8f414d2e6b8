package main

import (
	"compress/gzip"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

type Encoding int

const (
	EncodingGzip Encoding = 1 << iota
	EncodingCompress
	EncodingDeflate
	EncodingBrotli
	EncodingIdentity
	EncodingZstd
	EncodingAny
)

// set by zstd.go when built with cgo
var zstdWriter func(io.Writer) io.WriteCloser

func accept_encoding(r *http.Request) Encoding {
	var res Encoding = 0
	if r.Header.Get("Accept-Encoding") == "" {
		return res
	}
	encodings := strings.Split(r.Header.Get("Accept-Encoding"), ",")
	for _, enc := range encodings {
		encs := strings.Split(enc, ";")
		if len(encs) > 1 && strings.ReplaceAll(strings.TrimSpace(encs[1]), " ", "") == "q=0" {
			continue
		}
		switch strings.TrimSpace(encs[0]) {
		case "gzip", "x-gzip":
			res |= EncodingGzip
		case "compress", "x-compress":
			res |= EncodingCompress
		case "deflate":
			res |= EncodingDeflate
		case "br":
			res |= EncodingBrotli
		case "identity":
			res |= EncodingIdentity
		case "zstd":
			res |= EncodingZstd
		case "*":
			res |= EncodingAny
		default:
			slog.Info("unknown encoding", "encoding", enc, "header", encodings)
		}
	}
	return res
}

// chooseEncoder returns the content-coding name and writer factory preferred
// for enc, or "" when the response should be sent as is.
func chooseEncoder(enc Encoding) (string, func(io.Writer) io.WriteCloser) {
	switch {
	case enc&(EncodingBrotli|EncodingAny) != 0:
		return "br", newBrotliWriter
	case enc&EncodingZstd != 0 && zstdWriter != nil:
		return "zstd", zstdWriter
	case enc&EncodingGzip != 0:
		return "gzip", func(w io.Writer) io.WriteCloser { return gzip.NewWriter(w) }
	}
	return "", nil
}

// compressHandler encodes response bodies with the best coding the client
// accepts. Attachments and bodiless responses are passed through.
func compressHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name, factory := chooseEncoder(accept_encoding(r))
		if factory == nil {
			next.ServeHTTP(w, r)
			return
		}
		cw := &compressWriter{ResponseWriter: w, name: name, factory: factory}
		defer func() {
			if err := cw.Close(); err != nil {
				slog.Error("encoder close", "encoding", name, "error", err)
			}
		}()
		next.ServeHTTP(cw, r)
	})
}

type compressWriter struct {
	http.ResponseWriter
	name        string
	factory     func(io.Writer) io.WriteCloser
	wr          io.WriteCloser
	wroteHeader bool
}

func (c *compressWriter) WriteHeader(code int) {
	if c.wroteHeader {
		return
	}
	c.wroteHeader = true
	h := c.Header()
	h.Add("Vary", "Accept-Encoding")
	if code >= http.StatusOK && code != http.StatusNoContent && code != http.StatusNotModified &&
		h.Get("Content-Encoding") == "" && h.Get("Content-Disposition") == "" {
		h.Set("Content-Encoding", c.name)
		h.Del("Content-Length")
		c.wr = c.factory(c.ResponseWriter)
		slog.Debug("compressed response", "encoding", c.name)
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *compressWriter) Write(p []byte) (int, error) {
	if !c.wroteHeader {
		c.WriteHeader(http.StatusOK)
	}
	if c.wr == nil {
		return c.ResponseWriter.Write(p)
	}
	return c.wr.Write(p)
}

func (c *compressWriter) Close() error {
	if c.wr != nil {
		return c.wr.Close()
	}
	return nil
}
