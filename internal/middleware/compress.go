package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
)

// CacheStatusHeader reports whether a response came from the response cache.
const CacheStatusHeader = "X-Cache"

// minCompressSize is the smallest body worth compressing.
const minCompressSize = 512

var (
	gzipPool = sync.Pool{New: func() any {
		gz, _ := gzip.NewWriterLevel(io.Discard, gzip.DefaultCompression)
		return gz
	}}
	brotliPool = sync.Pool{New: func() any {
		return brotli.NewWriterLevel(io.Discard, brotli.DefaultCompression)
	}}
)

type encoder interface {
	io.WriteCloser
	Flush() error
}

// compressResponseWriter defers the encoding decision until the first write
// so that empty and error-free bodyless responses are never marked encoded.
type compressResponseWriter struct {
	http.ResponseWriter
	encoding string
	enc      encoder
	status   int
	decided  bool
}

func (w *compressResponseWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
}

func (w *compressResponseWriter) decide(first []byte) {
	w.decided = true
	if w.status == 0 {
		w.status = http.StatusOK
	}
	h := w.Header()
	if w.status == http.StatusNoContent || w.status == http.StatusNotModified ||
		h.Get("Content-Encoding") != "" || len(first) < minCompressSize {
		w.ResponseWriter.WriteHeader(w.status)
		return
	}

	switch w.encoding {
	case "br":
		bw := brotliPool.Get().(*brotli.Writer)
		bw.Reset(w.ResponseWriter)
		w.enc = bw
	case "gzip":
		gz := gzipPool.Get().(*gzip.Writer)
		gz.Reset(w.ResponseWriter)
		w.enc = gz
	}
	h.Set("Content-Encoding", w.encoding)
	h.Del("Content-Length")
	w.ResponseWriter.WriteHeader(w.status)
}

func (w *compressResponseWriter) Write(b []byte) (int, error) {
	if !w.decided {
		w.decide(b)
	}
	if w.enc == nil {
		return w.ResponseWriter.Write(b)
	}
	return w.enc.Write(b)
}

// Flush pushes buffered compressed bytes to the client.
func (w *compressResponseWriter) Flush() {
	if w.enc != nil {
		_ = w.enc.Flush()
	}
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *compressResponseWriter) close() {
	if !w.decided {
		if w.status != 0 {
			w.ResponseWriter.WriteHeader(w.status)
		}
		return
	}
	if w.enc == nil {
		return
	}
	_ = w.enc.Close()
	switch enc := w.enc.(type) {
	case *brotli.Writer:
		enc.Reset(io.Discard)
		brotliPool.Put(enc)
	case *gzip.Writer:
		enc.Reset(io.Discard)
		gzipPool.Put(enc)
	}
	w.enc = nil
}

// Compress negotiates brotli or gzip from Accept-Encoding, preferring brotli.
// Websocket upgrades and HEAD requests pass through untouched.
func Compress(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Upgrade") != "" || r.Method == http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Add("Vary", "Accept-Encoding")

		encoding := negotiateEncoding(r.Header.Get("Accept-Encoding"))
		if encoding == "" {
			next.ServeHTTP(w, r)
			return
		}

		cw := &compressResponseWriter{ResponseWriter: w, encoding: encoding}
		defer cw.close()
		next.ServeHTTP(cw, r)
	})
}

// negotiateEncoding returns "br", "gzip" or "" for the given Accept-Encoding.
// Codings listed with q=0 are treated as refused.
func negotiateEncoding(header string) string {
	var br, gz bool
	for _, part := range strings.Split(header, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		name = strings.ToLower(strings.TrimSpace(name))
		if q := strings.ReplaceAll(strings.TrimSpace(params), " ", ""); q == "q=0" || q == "q=0.0" || q == "q=0.000" {
			continue
		}
		switch name {
		case "br":
			br = true
		case "gzip", "*":
			gz = true
		}
	}
	switch {
	case br:
		return "br"
	case gz:
		return "gzip"
	}
	return ""
}
