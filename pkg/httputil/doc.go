// Package httputil provides the uniform response shapes used by the display
// name picker flow: HTML error pages, a plain-text emergency fallback, and
// JSON responses with permissive cross-origin headers.
//
// All writers tolerate the client having disconnected before the response is
// finished; that condition is logged at low severity and never propagated.
package httputil
