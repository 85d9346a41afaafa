// Package picker implements the interstitial display name picker shown
// during federated single-sign-on login.
//
// A user arrives here after authenticating with the external identity
// provider but before the local account exists, carrying a
// pending-registration session cookie. The flow renders a form to choose a
// display name, registers the account through the host module API (retrying
// a bounded number of times on username collisions), records the
// external-identity associations, clears the session, and hands the request
// back to the host to resume the original login.
package picker
