package sessions

import (
	"net/http"
	"time"
)

// ReadCookie extracts the session identifier from the named cookie. The
// second return is false when the cookie is absent or empty.
func ReadCookie(r *http.Request, name string) (string, bool) {
	c, err := r.Cookie(name)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// ClearCookie instructs the client to delete the session cookie: empty
// value, epoch expiry, root path.
func ClearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:    name,
		Value:   "",
		Path:    "/",
		Expires: time.Unix(0, 0),
	})
}
