// Package sessions holds the pending-registration session record and its
// stores.
//
// A session is created by the identity-provider callback once federated
// authentication completes, and lives until the display name picker finishes
// registering the local account. The session identifier is an unguessable
// capability token carried in a client-side cookie; this package never
// generates identifiers, it only resolves and deletes them.
//
// Two store implementations are provided: an in-process store for embedded
// deployments and tests, and a Redis-backed store for sharing sessions with a
// separate callback process.
package sessions
