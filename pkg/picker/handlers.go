package picker

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/platinummonkey/displayname-picker/pkg/host"
	"github.com/platinummonkey/displayname-picker/pkg/httputil"
	"github.com/platinummonkey/displayname-picker/pkg/observability"
	"github.com/platinummonkey/displayname-picker/pkg/sessions"
)

// maxRetries is the maximum number of times registration is retried when a
// username is not available, adding a number sequentially to disambiguate.
const maxRetries = 9

// templateFile is the form template inside the static directory
const templateFile = "index.html"

// Handlers handles the display name picker HTTP requests
type Handlers struct {
	store      sessions.Store
	api        host.ModuleAPI
	resp       *httputil.Responses
	log        *observability.Logger
	metrics    *observability.Metrics
	cookieName string
	staticDir  string
	template   string
}

// Options configures the picker handlers
type Options struct {
	CookieName string
	StaticDir  string

	// Metrics is optional; nil disables instrumentation.
	Metrics *observability.Metrics
}

// NewHandlers creates the picker handlers, loading the form template from
// the static directory.
func NewHandlers(store sessions.Store, api host.ModuleAPI, resp *httputil.Responses, log *observability.Logger, opts Options) (*Handlers, error) {
	if opts.CookieName == "" {
		return nil, fmt.Errorf("picker: cookie name is required")
	}

	tmpl, err := os.ReadFile(filepath.Join(opts.StaticDir, templateFile))
	if err != nil {
		return nil, fmt.Errorf("picker: failed to read form template: %w", err)
	}

	return &Handlers{
		store:      store,
		api:        api,
		resp:       resp,
		log:        log,
		metrics:    opts.Metrics,
		cookieName: opts.CookieName,
		staticDir:  opts.StaticDir,
		template:   string(tmpl),
	}, nil
}

// RegisterRoutes registers the picker routes on the router. Paths not
// matched by the flow are served from the static directory.
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/", h.instrument("form", h.serveForm)).Methods("GET", "HEAD")
	router.HandleFunc("/submit", h.instrument("submit", h.handleSubmit)).Methods("POST")
	router.HandleFunc("/check", h.instrument("check", h.checkUsername)).Methods("GET")
	router.PathPrefix("/").Handler(http.FileServer(http.Dir(h.staticDir)))
}

// instrument wraps a handler with panic recovery and request metrics
func (h *Handlers) instrument(name string, next http.HandlerFunc) http.HandlerFunc {
	wrapped := h.recoverToErrorPage(next)
	if h.metrics != nil {
		wrapped = h.metrics.InstrumentHandler(name, wrapped)
	}
	return wrapped
}

// recoverToErrorPage converts a handler panic into a 500 error page, logging
// the detail server-side only.
func (h *Handlers) recoverToErrorPage(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				h.log.WithFields(map[string]interface{}{
					"panic": rec,
					"path":  r.URL.Path,
				}).Error("error handling request")
				h.resp.HTMLError(w, http.StatusInternalServerError, "Internal server error")
			}
		}()
		next(w, r)
	}
}

// getSession resolves the request's session cookie to a pending session,
// writing the error response itself when resolution fails.
func (h *Handlers) getSession(w http.ResponseWriter, r *http.Request) (string, *sessions.PendingSession, bool) {
	sessionID, ok := sessions.ReadCookie(r, h.cookieName)
	if !ok {
		h.resp.HTMLError(w, http.StatusBadRequest, "missing session_id")
		return "", nil, false
	}

	session, err := h.store.Get(r.Context(), sessionID)
	if err != nil {
		h.log.WithError(err).Error("session lookup failed")
		h.resp.HTMLError(w, http.StatusInternalServerError, "Internal server error")
		return "", nil, false
	}
	if session == nil {
		h.log.WithField("session_id", sessionID).Info("session not found")
		h.resp.HTMLError(w, http.StatusForbidden, "Unknown session")
		return "", nil, false
	}

	return sessionID, session, true
}

// localpart derives the candidate username from the email address
func localpart(email string) string {
	if i := strings.Index(email, "@"); i >= 0 {
		return email[:i]
	}
	return email
}

// serveForm handles GET / by rendering the display name form with the
// candidate username and the session's stored display name substituted.
func (h *Handlers) serveForm(w http.ResponseWriter, r *http.Request) {
	_, session, ok := h.getSession(w, r)
	if !ok {
		return
	}

	body := strings.NewReplacer(
		"{kerb}", localpart(session.Email),
		"{displayname}", session.DisplayName,
	).Replace(h.template)

	h.resp.HTML(w, http.StatusOK, body)
}

// handleSubmit handles POST /submit: registers the account with bounded
// collision retry, records the external-identity associations, clears the
// session, and delegates login completion to the host.
func (h *Handlers) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sessionID, session, ok := h.getSession(w, r)
	if !ok {
		return
	}

	// The session is not cleared until registration succeeds, so the user
	// can go round and have another go if need be. Two concurrent submits
	// on one session can therefore both register; that race is accepted.

	if err := r.ParseForm(); err != nil {
		h.resp.HTMLError(w, http.StatusBadRequest, "malformed form body")
		return
	}
	displayname, ok := formValue(r, "displayname")
	if !ok {
		h.resp.HTMLError(w, http.StatusBadRequest, "missing display name")
		return
	}

	// Username choice is disabled; the email local part is the username,
	// with a sequential suffix when taken.
	base := localpart(session.Email)

	var userID string
	for attempt := 0; ; attempt++ {
		username := base
		if attempt > 0 {
			username = fmt.Sprintf("%s%d", base, attempt)
		}

		h.log.WithField("username", username).Info("registering user")
		if h.metrics != nil {
			h.metrics.RegistrationAttemptsTotal.Inc()
		}

		id, err := h.api.RegisterUser(r.Context(), username, displayname, []string{session.Email})
		if err == nil {
			userID = id
			break
		}

		if host.IsNameUnavailable(err) && attempt < maxRetries {
			if h.metrics != nil {
				h.metrics.RegistrationRetriesTotal.Inc()
			}
			continue
		}

		if h.metrics != nil {
			h.metrics.RegistrationFailuresTotal.Inc()
		}
		var hostErr *host.Error
		if errors.As(err, &hostErr) {
			h.log.WithError(err).Warn("error during registration")
			h.resp.HTMLError(w, hostErr.Code, hostErr.Msg)
			return
		}
		h.log.WithError(err).Error("error during registration")
		h.resp.HTMLError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if err := h.api.RecordUserExternalID(r.Context(), "saml", session.RemoteUserID, userID); err != nil {
		h.log.WithError(err).Error("failed to record external id")
		h.resp.HTMLError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	// The host's external-identity mapping doubles as an annotation store
	// for the affiliation, so the admin surface can show it without a
	// dedicated table. The UUID keeps the value unique across accounts
	// sharing an affiliation.
	affiliation := fmt.Sprintf("%s|%s", session.Affiliation, uuid.New())
	if err := h.api.RecordUserExternalID(r.Context(), "affiliation", affiliation, userID); err != nil {
		h.log.WithError(err).Error("failed to record affiliation")
		h.resp.HTMLError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	// The account exists at this point; a stale session is preferable to
	// failing the login, so a delete error is logged and not surfaced.
	if err := h.store.Delete(r.Context(), sessionID); err != nil {
		h.log.WithError(err).Warn("failed to delete session")
	}

	sessions.ClearCookie(w, h.cookieName)

	if err := h.api.CompleteSSOLogin(w, r, userID, session.ClientRedirectURL); err != nil {
		h.log.WithError(err).Error("failed to complete sso login")
		h.resp.HTMLError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if h.metrics != nil {
		h.metrics.LoginsCompletedTotal.Inc()
	}
	h.log.WithField("user_id", userID).Info("registration complete")
}

// checkUsername handles GET /check, answering whether a username is free
func (h *Handlers) checkUsername(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if username == "" {
		h.resp.JSON(w, http.StatusBadRequest, map[string]string{
			"error": "missing username",
		})
		return
	}

	available, err := h.api.UsernameAvailable(r.Context(), username)
	if err != nil {
		h.log.WithError(err).Error("username availability check failed")
		h.resp.JSON(w, http.StatusInternalServerError, map[string]string{
			"error": "Internal server error",
		})
		return
	}

	h.resp.JSON(w, http.StatusOK, map[string]bool{
		"available": available,
	})
}

// formValue reports the first value of a form field, distinguishing an
// absent field from a present-but-empty one.
func formValue(r *http.Request, name string) (string, bool) {
	vals, ok := r.PostForm[name]
	if !ok || len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}
