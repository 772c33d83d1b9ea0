package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")

	// Admission failures, terminal for the connection only.
	ErrAuthentication  = fmt.Errorf("authentication failed")
	ErrDirectoryLookup = fmt.Errorf("display name lookup failed")
	ErrMissingToken    = fmt.Errorf("credential is missing")

	ErrDuplicateConnection = fmt.Errorf("connection already registered")
	ErrNotFound            = fmt.Errorf("connection not found")
	ErrSessionClosed       = fmt.Errorf("session is closed")
	ErrInvalidTransition   = fmt.Errorf("invalid session transition")
	ErrSinkFull            = fmt.Errorf("outbound buffer full")

	ErrInvalidCredentials  = fmt.Errorf("invalid credentials")
	ErrInvalidPassword     = fmt.Errorf("invalid password")
	ErrInvalidRegistration = fmt.Errorf("invalid registration")
	ErrUserAlreadyExists   = fmt.Errorf("user already exists")
	ErrUserNotFound        = fmt.Errorf("user not found")
	ErrTokenGeneration     = fmt.Errorf("token generation failed")
)

// HTTPStatus maps a domain error to the status code returned by the HTTP edge.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case stderrors.Is(err, ErrInvalidPassword), stderrors.Is(err, ErrInvalidRegistration):
		return http.StatusBadRequest
	case stderrors.Is(err, ErrInvalidCredentials),
		stderrors.Is(err, ErrAuthentication),
		stderrors.Is(err, ErrMissingToken):
		return http.StatusUnauthorized
	case stderrors.Is(err, ErrUserAlreadyExists):
		return http.StatusConflict
	case stderrors.Is(err, ErrUserNotFound), stderrors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
