// Package apierr defines the failure taxonomy for the Kollab backend and its
// mapping onto RFC 7807 problem documents.
//
// Feature code raises typed *Error values; the request pipeline enriches them
// with request context and encodes them on the wire. Errors can be matched
// programmatically with errors.Is against the per-kind sentinels:
//
//	if errors.Is(err, apierr.ErrNotFound) {
//	    // handle missing resource
//	}
package apierr
