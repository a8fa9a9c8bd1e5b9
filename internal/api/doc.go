// Package api handles incoming HTTP requests, request validation and
// response formatting. It acts as an adapter between HTTP clients and the
// problem service: handlers decode requests, call the service and translate
// its results and errors into JSON responses.
//
// Subpackage middleware provides tracing and per-client rate limiting;
// subpackage shared holds the response and request helpers.
package api
