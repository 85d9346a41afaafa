package httputil

import (
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strconv"

	"github.com/platinummonkey/displayname-picker/pkg/observability"
)

const htmlErrorTemplate = `<!DOCTYPE html>
<html lang=en>
  <head>
    <meta charset="utf-8">
    <title>Error %d</title>
  </head>
  <body>
     <p>%s</p>
  </body>
</html>
`

// Responses formats the uniform response shapes used by the flow.
type Responses struct {
	log            *observability.Logger
	supportContact string
}

// NewResponses creates a response formatter. supportContact is the address
// appended to every error page.
func NewResponses(log *observability.Logger, supportContact string) *Responses {
	return &Responses{
		log:            log,
		supportContact: supportContact,
	}
}

// HTML writes an HTML response with exact content length
func (rs *Responses) HTML(w http.ResponseWriter, status int, body string) {
	b := []byte(body)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	w.WriteHeader(status)
	rs.write(w, b)
}

// HTMLError writes an HTML error page. The message is HTML-escaped and the
// support contact instruction is appended, so raw error content is never
// rendered as markup.
func (rs *Responses) HTMLError(w http.ResponseWriter, code int, msg string) {
	defer func() {
		if rec := recover(); rec != nil {
			rs.log.WithField("panic", rec).Error("error page rendering failed")
			rs.PlainTextError(w)
		}
	}()

	msg += fmt.Sprintf(" Please email %s for help.", rs.supportContact)
	body := fmt.Sprintf(htmlErrorTemplate, code, html.EscapeString(msg))
	rs.HTML(w, code, body)
}

// PlainTextError writes the emergency plain-text 500 response, used only when
// HTML rendering itself fails.
func (rs *Responses) PlainTextError(w http.ResponseWriter) {
	body := []byte("Internal server error")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusInternalServerError)
	rs.write(w, body)
}

// JSON writes a JSON response with caching disabled and permissive
// cross-origin headers for all common methods.
func (rs *Responses) JSON(w http.ResponseWriter, status int, data interface{}) {
	b, err := json.Marshal(data)
	if err != nil {
		rs.log.WithError(err).Error("failed to marshal JSON response")
		rs.PlainTextError(w)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Content-Length", strconv.Itoa(len(b)))
	h.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Origin, X-Requested-With, Content-Type, Accept, Authorization")
	w.WriteHeader(status)
	rs.write(w, b)
}

// write sends the body, treating a closed client connection as benign
func (rs *Responses) write(w http.ResponseWriter, body []byte) {
	if _, err := w.Write(body); err != nil {
		rs.log.WithError(err).Info("connection closed before response was written")
	}
}
