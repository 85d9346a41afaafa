package httputil

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/displayname-picker/pkg/observability"
)

func newTestResponses() *Responses {
	return NewResponses(observability.NewLogger(observability.ErrorLevel, io.Discard), "support@example.com")
}

// newLoggingResponses captures log output so tests can assert on it
func newLoggingResponses() (*Responses, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewResponses(observability.NewLogger(observability.InfoLevel, &buf), "support@example.com"), &buf
}

// brokenConnWriter simulates a client that disconnected before the response
// body could be written.
type brokenConnWriter struct {
	http.ResponseWriter
}

func (w *brokenConnWriter) Write(b []byte) (int, error) {
	return 0, errors.New("write tcp 127.0.0.1:8080: broken pipe")
}

// headerPanicWriter fails the first WriteHeader call, so the HTML error page
// cannot be rendered and the plain-text fallback has to take over.
type headerPanicWriter struct {
	http.ResponseWriter
	failed bool
}

func (w *headerPanicWriter) WriteHeader(status int) {
	if !w.failed {
		w.failed = true
		panic("response writer gone")
	}
	w.ResponseWriter.WriteHeader(status)
}

func TestHTMLError_Basic(t *testing.T) {
	rs := newTestResponses()
	w := httptest.NewRecorder()

	rs.HTMLError(w, http.StatusForbidden, "Unknown session")

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))

	body := w.Body.String()
	assert.Contains(t, body, "<title>Error 403</title>")
	assert.Contains(t, body, "Unknown session Please email support@example.com for help.")
	assert.Equal(t, strconv.Itoa(len(body)), w.Header().Get("Content-Length"))
}

func TestHTMLError_EscapesMessage(t *testing.T) {
	rs := newTestResponses()
	w := httptest.NewRecorder()

	rs.HTMLError(w, http.StatusInternalServerError, "<script>alert(1)</script>")

	body := w.Body.String()
	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "&lt;script&gt;alert(1)&lt;/script&gt;")
}

func TestPlainTextError(t *testing.T) {
	rs := newTestResponses()
	w := httptest.NewRecorder()

	rs.PlainTextError(w)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "Internal server error", w.Body.String())
	assert.Equal(t, strconv.Itoa(len("Internal server error")), w.Header().Get("Content-Length"))
}

func TestJSON_Headers(t *testing.T) {
	rs := newTestResponses()
	w := httptest.NewRecorder()

	rs.JSON(w, http.StatusOK, map[string]bool{"available": true})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache, no-store, must-revalidate", w.Header().Get("Cache-Control"))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, PUT, DELETE, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
	assert.JSONEq(t, `{"available": true}`, w.Body.String())
}

func TestJSON_ContentLength(t *testing.T) {
	rs := newTestResponses()
	w := httptest.NewRecorder()

	rs.JSON(w, http.StatusBadRequest, map[string]string{"error": "missing username"})

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, strconv.Itoa(w.Body.Len()), w.Header().Get("Content-Length"))
}

func TestHTMLError_ClientDisconnectIsSwallowed(t *testing.T) {
	rs, buf := newLoggingResponses()
	w := &brokenConnWriter{ResponseWriter: httptest.NewRecorder()}

	assert.NotPanics(t, func() {
		rs.HTMLError(w, http.StatusForbidden, "Unknown session")
	})
	assert.Contains(t, buf.String(), "connection closed before response was written")
	assert.Contains(t, buf.String(), `"level":"INFO"`)
}

func TestJSON_ClientDisconnectIsSwallowed(t *testing.T) {
	rs, buf := newLoggingResponses()
	w := &brokenConnWriter{ResponseWriter: httptest.NewRecorder()}

	assert.NotPanics(t, func() {
		rs.JSON(w, http.StatusOK, map[string]bool{"available": true})
	})
	assert.Contains(t, buf.String(), "connection closed before response was written")
}

func TestPlainTextError_ClientDisconnectIsSwallowed(t *testing.T) {
	rs, buf := newLoggingResponses()
	w := &brokenConnWriter{ResponseWriter: httptest.NewRecorder()}

	assert.NotPanics(t, func() {
		rs.PlainTextError(w)
	})
	assert.Contains(t, buf.String(), "connection closed before response was written")
}

func TestHTMLError_FallsBackToPlainText(t *testing.T) {
	rs, buf := newLoggingResponses()
	rec := httptest.NewRecorder()
	w := &headerPanicWriter{ResponseWriter: rec}

	assert.NotPanics(t, func() {
		rs.HTMLError(w, http.StatusForbidden, "Unknown session")
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "Internal server error", rec.Body.String())
	assert.Contains(t, buf.String(), "error page rendering failed")
}

func TestHTML_ExactLength(t *testing.T) {
	rs := newTestResponses()
	w := httptest.NewRecorder()

	body := "<html><body>héllo</body></html>"
	rs.HTML(w, http.StatusOK, body)

	assert.Equal(t, http.StatusOK, w.Code)
	// length is bytes of the UTF-8 encoding, not runes
	assert.Equal(t, strconv.Itoa(len([]byte(body))), w.Header().Get("Content-Length"))
	assert.Equal(t, body, w.Body.String())
}
