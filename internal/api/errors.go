// Package api is the client for the drive backend's folder and image endpoints.
package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrAuthenticationRejected is returned when the backend answers 401.
// By the time a caller sees it, the session has already been cleared.
var ErrAuthenticationRejected = errors.New("authentication rejected, please log in again")

// ErrRootHasNoImages is returned by ListImages and UploadImage for the root folder.
var ErrRootHasNoImages = errors.New("the root folder cannot hold images")

// Transport failure messages.
const (
	msgConnectFailed   = "Failed to connect to the server"
	msgNonJSON         = "Server returned non-JSON response"
	msgInvalidJSON     = "Invalid JSON response from server"
	msgInvalidResponse = "Invalid response format from server"
)

// ApplicationError is a non-2xx, non-401 answer from the backend.
type ApplicationError struct {
	StatusCode int
	Message    string
}

func (e *ApplicationError) Error() string {
	return e.Message
}

// TransportError covers everything where no usable answer came back:
// connection failures and bodies that are not the expected JSON.
type TransportError struct {
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Outcome is the single classification of a completed call.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeAuthRejected
	OutcomeApplicationError
	OutcomeTransportFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeAuthRejected:
		return "auth-rejected"
	case OutcomeApplicationError:
		return "application-error"
	case OutcomeTransportFailure:
		return "transport-failure"
	default:
		return "unknown"
	}
}

// Classify maps an error returned by Client to its Outcome.
// Errors not produced by the client (e.g. context cancellation) count as transport failures.
func Classify(err error) Outcome {
	if err == nil {
		return OutcomeSuccess
	}
	if errors.Is(err, ErrAuthenticationRejected) {
		return OutcomeAuthRejected
	}
	var appErr *ApplicationError
	if errors.As(err, &appErr) {
		return OutcomeApplicationError
	}
	return OutcomeTransportFailure
}

// IsAuthRejected reports whether err is an authentication rejection.
func IsAuthRejected(err error) bool {
	return errors.Is(err, ErrAuthenticationRejected)
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var appErr *ApplicationError
	return errors.As(err, &appErr) && appErr.StatusCode == http.StatusNotFound
}

// IsServerError reports whether err is a 5xx from the backend.
func IsServerError(err error) bool {
	var appErr *ApplicationError
	return errors.As(err, &appErr) && appErr.StatusCode >= 500
}
