// Package server assembles the HTTP API: the middleware pipeline, the
// feature routes, and the health and metrics endpoints.
//
// The pipeline order is fixed: CORS, CSRF issuance and validation, request
// tracing, session authentication, error-context enrichment, performance
// logging, per-route rate limiting, then the handler. Handlers return typed
// failures from the apierr package; respondError enriches them with request
// correlation fields and writes RFC 7807 payloads.
package server
