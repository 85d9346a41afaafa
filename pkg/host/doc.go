// Package host defines the boundary to the homeserver this flow runs
// against: account registration, external-identity records, and SSO login
// completion. The picker treats these as opaque collaborators; the only
// implementation here is a thin HTTP client.
package host
