package host

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrcodeUserInUse is the host error code signalling a username collision.
const ErrcodeUserInUse = "M_USER_IN_USE"

// ModuleAPI is the host application's surface used by the picker flow.
type ModuleAPI interface {
	// RegisterUser creates a local account and returns its user ID.
	// Collisions fail with an *Error carrying ErrcodeUserInUse.
	RegisterUser(ctx context.Context, localpart, displayname string, emails []string) (string, error)

	// RecordUserExternalID associates an external identifier with a local
	// account under the given auth-provider namespace.
	RecordUserExternalID(ctx context.Context, authProvider, externalID, userID string) error

	// UsernameAvailable reports whether a localpart is free to register.
	UsernameAvailable(ctx context.Context, localpart string) (bool, error)

	// CompleteSSOLogin resumes the client's original login flow. It writes
	// the response and therefore terminates the request.
	CompleteSSOLogin(w http.ResponseWriter, r *http.Request, userID, clientRedirectURL string) error
}

// Error is a failure reported by the host, carrying the HTTP status code and
// message to surface to the user.
type Error struct {
	Code    int
	Errcode string
	Msg     string
}

func (e *Error) Error() string {
	return fmt.Sprintf("host error %d (%s): %s", e.Code, e.Errcode, e.Msg)
}

// IsNameUnavailable reports whether err is a registration collision
func IsNameUnavailable(err error) bool {
	var he *Error
	return errors.As(err, &he) && he.Errcode == ErrcodeUserInUse
}
