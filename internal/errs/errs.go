// Package errs holds the error kinds shared by the parsing, matching and chat pipelines.
package errs

import (
	"errors"
	"strings"
)

var (
	// ErrTransport marks a failed call to an external collaborator: unreachable service,
	// non-success status or an expired deadline.
	ErrTransport = errors.New("external service failure")
	// ErrShape marks an external response that could not be coerced into the expected structure.
	ErrShape = errors.New("unexpected response shape")
	// ErrInput marks a violated input contract, detected before any computation.
	ErrInput = errors.New("invalid input")
)

// Kind returns the name of the error kind carried by err, or "internal" when none matches.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInput):
		return "input"
	case errors.Is(err, ErrShape):
		return "shape"
	case errors.Is(err, ErrTransport):
		return "transport"
	default:
		return "internal"
	}
}

// Message renders err as a readable, single-line message for end users.
func Message(err error) string {
	if err == nil {
		return ""
	}

	var prefix string
	switch Kind(err) {
	case "input":
		prefix = "The request could not be processed"
	case "shape":
		prefix = "The assistant returned an answer that could not be understood"
	case "transport":
		prefix = "An external service is unavailable right now"
	default:
		prefix = "Something went wrong"
	}

	detail := strings.Join(strings.Fields(err.Error()), " ")
	if detail == "" {
		return prefix + "."
	}
	return prefix + ": " + detail
}
