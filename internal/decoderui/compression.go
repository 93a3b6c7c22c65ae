package decoderui

import (
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
)

// Pool of brotli writers; Reset points a pooled writer at the next response.
var brotliWriterPool = sync.Pool{
	New: func() interface{} {
		return brotli.NewWriterLevel(io.Discard, brotli.DefaultCompression)
	},
}

// acceptsBrotli reports whether the Accept-Encoding header lists br with a non-zero q.
func acceptsBrotli(header string) bool {
	for _, part := range strings.Split(header, ",") {
		fields := strings.Split(strings.TrimSpace(part), ";")
		if !strings.EqualFold(strings.TrimSpace(fields[0]), "br") {
			continue
		}
		for _, param := range fields[1:] {
			if p := strings.ReplaceAll(strings.TrimSpace(param), " ", ""); p == "q=0" || p == "q=0.0" {
				return false
			}
		}
		return true
	}
	return false
}

type brotliResponseWriter struct {
	http.ResponseWriter
	bw          *brotli.Writer
	wroteHeader bool
}

func (w *brotliResponseWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.wroteHeader = true
		h := w.Header()
		h.Del("Content-Length")
		h.Set("Content-Encoding", "br")
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *brotliResponseWriter) Write(p []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.bw.Write(p)
}

// compressionMiddleware brotli-encodes responses for clients that accept it.
func compressionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Accept-Encoding")
		if r.Method == http.MethodHead || !acceptsBrotli(r.Header.Get("Accept-Encoding")) {
			next.ServeHTTP(w, r)
			return
		}

		bw := brotliWriterPool.Get().(*brotli.Writer)
		bw.Reset(w)
		brw := &brotliResponseWriter{ResponseWriter: w, bw: bw}
		defer func() {
			// Nothing was written, so there is no stream to terminate.
			if brw.wroteHeader {
				_ = bw.Close()
			}
			bw.Reset(io.Discard)
			brotliWriterPool.Put(bw)
		}()

		next.ServeHTTP(brw, r)
	})
}
