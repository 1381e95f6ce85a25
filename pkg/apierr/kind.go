package apierr

import "net/http"

// Kind classifies an Error independently of its transport status.
type Kind string

const (
	// KindInternal is the fallback for failures that carry no better
	// classification, including values of unrecognized shape.
	KindInternal Kind = "internal"

	// KindValidation covers method and body-shape checks on the request.
	KindValidation Kind = "validation"

	// KindNegotiation means no acceptable response media type exists.
	KindNegotiation Kind = "negotiation"

	// KindNotFound covers unknown resource types and missing resources.
	KindNotFound Kind = "not_found"

	// KindUnsupportedMedia is raised for request bodies whose media type
	// or media type parameters are not supported.
	KindUnsupportedMedia Kind = "unsupported_media_type"

	// KindMalformed means the request document violates the top-level
	// document structure.
	KindMalformed Kind = "malformed_document"

	// KindResourceInvalid is raised when a parsed resource does not match
	// the schema registered for its type.
	KindResourceInvalid Kind = "invalid_resource"

	// KindConflict covers id clashes and type mismatches.
	KindConflict Kind = "conflict"

	// KindForbidden is raised when a request is understood but refused,
	// e.g. writes to read-only fields.
	KindForbidden Kind = "forbidden"

	// KindHook wraps any failure raised inside a user-supplied transform
	// or label-resolution hook.
	KindHook Kind = "hook_failed"
)

// defaultStatus holds the HTTP status an Error of a given Kind gets unless
// the constructor overrides it.
var defaultStatus = map[Kind]int{
	KindInternal:         http.StatusInternalServerError,
	KindValidation:       http.StatusBadRequest,
	KindNegotiation:      http.StatusNotAcceptable,
	KindNotFound:         http.StatusNotFound,
	KindUnsupportedMedia: http.StatusUnsupportedMediaType,
	KindMalformed:        http.StatusBadRequest,
	KindResourceInvalid:  http.StatusBadRequest,
	KindConflict:         http.StatusConflict,
	KindForbidden:        http.StatusForbidden,
	KindHook:             http.StatusInternalServerError,
}

// Status returns the default HTTP status for k. Unknown kinds map to 500.
func (k Kind) Status() int {
	if st, ok := defaultStatus[k]; ok {
		return st
	}
	return http.StatusInternalServerError
}

// KindForStatus picks the closest Kind for a bare HTTP status. It is used
// when converting foreign errors that only know their status code.
func KindForStatus(status int) Kind {
	switch status {
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusNotAcceptable:
		return KindNegotiation
	case http.StatusUnsupportedMediaType:
		return KindUnsupportedMedia
	case http.StatusConflict:
		return KindConflict
	case http.StatusForbidden:
		return KindForbidden
	}
	if status >= 400 && status < 500 {
		return KindValidation
	}
	return KindInternal
}
