package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/barekit/cinerag/internal/api/response"
)

// MaxBody limits request bodies to maxBytes. When a handler reads past the
// limit its response is discarded and 413 is written instead.
// Zero or negative disables the limit.
func MaxBody(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body := &maxBodyReader{ReadCloser: http.MaxBytesReader(w, r.Body, maxBytes)}
			r.Body = body

			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			buf := &responseBuffer{ResponseWriter: w}
			next.ServeHTTP(buf, r)

			if body.exceeded {
				response.RespondRequestEntityTooLarge(w)
				return
			}
			buf.flush()
		})
	}
}

type maxBodyReader struct {
	io.ReadCloser

	exceeded bool
}

func (r *maxBodyReader) Read(p []byte) (int, error) {
	n, err := r.ReadCloser.Read(p)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		r.exceeded = true
	}
	return n, err
}

// responseBuffer holds the handler's response until the body limit is known.
type responseBuffer struct {
	http.ResponseWriter

	status int
	buf    bytes.Buffer
}

func (b *responseBuffer) WriteHeader(code int) {
	b.status = code
}

func (b *responseBuffer) Write(p []byte) (int, error) {
	return b.buf.Write(p)
}

func (b *responseBuffer) flush() {
	if b.status != 0 {
		b.ResponseWriter.WriteHeader(b.status)
	}
	_, _ = b.buf.WriteTo(b.ResponseWriter)
}
