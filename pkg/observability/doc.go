// Package observability provides structured logging and Prometheus metrics
// for the display name picker service.
package observability
