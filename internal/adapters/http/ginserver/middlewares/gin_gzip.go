package middlewares

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// compressible lists response content types worth compressing.
var compressible = []string{"application/json", "application/x-ndjson", "text/plain"}

type gzipBody struct {
	*gzip.Reader
	raw io.Closer
}

func (b *gzipBody) Close() error {
	if err := b.Reader.Close(); err != nil {
		_ = b.raw.Close()
		return err
	}
	return b.raw.Close()
}

// GzipRequest transparently inflates request bodies sent with
// Content-Encoding: gzip, which the Elasticsearch client uses for bulk
// requests when compression is enabled.
func GzipRequest() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !hasToken(c.GetHeader("Content-Encoding"), "gzip") {
			c.Next()
			return
		}
		gr, err := gzip.NewReader(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": gin.H{
					"type":   "parse_exception",
					"reason": "request body is not valid gzip: " + err.Error(),
				},
				"status": http.StatusBadRequest,
			})
			return
		}
		c.Request.Body = &gzipBody{Reader: gr, raw: c.Request.Body}
		c.Request.Header.Del("Content-Encoding")
		c.Request.Header.Del("Content-Length")
		c.Request.ContentLength = -1
		c.Next()
	}
}

type gzipResponseWriter struct {
	gin.ResponseWriter
	gzw     *gzip.Writer
	decided bool
}

// decide runs on the first body write, once the handler has set
// Content-Type and status.
func (w *gzipResponseWriter) decide() {
	w.decided = true
	h := w.Header()
	if h.Get("Content-Encoding") != "" {
		return
	}
	if st := w.Status(); st < http.StatusOK || st == http.StatusNoContent || st == http.StatusNotModified {
		return
	}
	ct := h.Get("Content-Type")
	for _, prefix := range compressible {
		if strings.HasPrefix(ct, prefix) {
			h.Del("Content-Length")
			h.Set("Content-Encoding", "gzip")
			w.gzw = gzip.NewWriter(w.ResponseWriter)
			return
		}
	}
}

func (w *gzipResponseWriter) Write(p []byte) (int, error) {
	if !w.decided {
		w.decide()
	}
	if w.gzw != nil {
		return w.gzw.Write(p)
	}
	return w.ResponseWriter.Write(p)
}

func (w *gzipResponseWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

func (w *gzipResponseWriter) close() error {
	if w.gzw == nil {
		return nil
	}
	return w.gzw.Close()
}

// GzipResponse compresses JSON and text responses for clients that send
// Accept-Encoding: gzip. HEAD requests are left alone.
func GzipResponse() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Vary", "Accept-Encoding")
		if c.Request.Method == http.MethodHead || !hasToken(c.GetHeader("Accept-Encoding"), "gzip") {
			c.Next()
			return
		}
		grw := &gzipResponseWriter{ResponseWriter: c.Writer}
		c.Writer = grw
		c.Next()
		if err := grw.close(); err != nil {
			_ = c.Error(err)
		}
	}
}

// hasToken reports whether a comma-separated header value lists token,
// ignoring case and parameters such as q-values.
func hasToken(header, token string) bool {
	for _, part := range strings.Split(header, ",") {
		name, _, _ := strings.Cut(part, ";")
		if strings.EqualFold(strings.TrimSpace(name), token) {
			return true
		}
	}
	return false
}
