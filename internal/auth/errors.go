package auth

import "net/http"

// Error is an authorization failure that maps straight onto a response.
// The Body strings are part of the wire protocol.
type Error struct {
	Status int
	Body   string
}

func (e *Error) Error() string { return e.Body }

var (
	ErrVersionMismatch = &Error{http.StatusNotFound, "unsupported_server_version"}
	ErrRequired        = &Error{http.StatusUnauthorized, "authorization_required"}
	ErrUnsupported     = &Error{http.StatusUnauthorized, "authorization_unsupported"}
	ErrInvalid         = &Error{http.StatusUnauthorized, "authorization_invalid"}
	ErrBearerMalformed = &Error{http.StatusUnauthorized, "bearer_malformed"}
	ErrNonBasic        = &Error{http.StatusForbidden, "non_basic_authorization"}
	ErrNonBearer       = &Error{http.StatusForbidden, "non_bearer_authorization"}
)
