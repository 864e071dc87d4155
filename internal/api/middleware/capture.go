package middleware

import (
	"bytes"
	"io"
	"net/http"

	"github.com/phrazzld/usergate/internal/audit"
)

// captureWriter buffers a response so it can be logged before it is sent.
// Nothing reaches the underlying writer until flush, which runs once.
type captureWriter struct {
	w           http.ResponseWriter
	header      http.Header
	buf         bytes.Buffer
	status      int
	wroteHeader bool
	flushed     bool
}

func newCaptureWriter(w http.ResponseWriter) *captureWriter {
	return &captureWriter{w: w, header: w.Header().Clone(), status: http.StatusOK}
}

func (c *captureWriter) Header() http.Header {
	return c.header
}

func (c *captureWriter) WriteHeader(code int) {
	if c.wroteHeader {
		return
	}
	c.status = code
	c.wroteHeader = true
}

func (c *captureWriter) Write(p []byte) (int, error) {
	if !c.wroteHeader {
		c.WriteHeader(http.StatusOK)
	}
	return c.buf.Write(p)
}

func (c *captureWriter) Unwrap() http.ResponseWriter {
	return c.w
}

// discard drops whatever was buffered so a failure response can replace it.
func (c *captureWriter) discard() {
	c.buf.Reset()
	c.status = http.StatusOK
	c.wroteHeader = false
	c.header.Del("Content-Length")
	c.header.Del("Content-Encoding")
}

// flush copies headers, status and body to the underlying writer. Calls after
// the first are no-ops.
func (c *captureWriter) flush() error {
	if c.flushed {
		return nil
	}
	c.flushed = true

	dst := c.w.Header()
	for k := range dst {
		if _, ok := c.header[k]; !ok {
			dst.Del(k)
		}
	}
	for k, v := range c.header {
		dst[k] = v
	}

	c.w.WriteHeader(c.status)
	if c.buf.Len() == 0 {
		return nil
	}
	_, err := c.buf.WriteTo(c.w)
	return err
}

// bodySnippet renders a captured body for the audit log.
func bodySnippet(body []byte, max int64) string {
	switch {
	case len(body) == 0:
		return audit.BodyEmpty
	case int64(len(body)) > max:
		return audit.BodyOmitted
	default:
		return string(body)
	}
}

// readRequestBody returns the audit rendering of the request body and
// restores r.Body so the handler sees every byte. The body is only read
// when the declared length is known and within max.
func readRequestBody(r *http.Request, max int64) string {
	if r.Body == nil || r.Body == http.NoBody || r.ContentLength == 0 {
		return audit.BodyEmpty
	}
	if r.ContentLength < 0 || r.ContentLength > max {
		return audit.BodyOmitted
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, max+1))
	r.Body = &replayBody{Reader: io.MultiReader(bytes.NewReader(data), r.Body), closer: r.Body}
	if err != nil {
		return audit.BodyOmitted
	}
	return bodySnippet(data, max)
}

type replayBody struct {
	io.Reader
	closer io.Closer
}

func (b *replayBody) Close() error {
	return b.closer.Close()
}
