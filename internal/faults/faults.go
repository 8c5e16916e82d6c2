// Package faults maps heterogeneous low-level failures into a small
// closed taxonomy the presentation layer can branch on.
package faults

import (
	"context"
	"errors"
	"net"
	"net/url"
	"os"

	"github.com/smallbiznis/ledgerline/internal/remote"
)

// Class is a user-facing failure category.
type Class string

const (
	// Network covers transient connectivity failures; retried automatically.
	Network Class = "network"
	// Auth covers invalid sessions; surfaced immediately, never retried.
	Auth Class = "auth"
	// Conflict covers backend uniqueness and foreign-key violations.
	Conflict Class = "conflict"
	// Validation covers caller input rejected before any network call.
	Validation Class = "validation"
	// ServerFault covers backend internal errors; safe to retry manually.
	ServerFault Class = "server_fault"
	// Unknown is the fallback for anything unclassified.
	Unknown Class = "unknown"
)

// Fault carries a classification and a sanitized, user-facing message
// alongside the underlying cause.
type Fault struct {
	Class   Class
	Message string
	Err     error
}

func (f *Fault) Error() string {
	if f.Err != nil {
		return string(f.Class) + ": " + f.Err.Error()
	}
	return string(f.Class) + ": " + f.Message
}

func (f *Fault) Unwrap() error { return f.Err }

// New creates a fault with a user-facing message.
func New(class Class, message string) *Fault {
	return &Fault{Class: class, Message: Sanitize(message)}
}

// Wrap classifies err under class, keeping it as the cause.
func Wrap(class Class, message string, err error) *Fault {
	return &Fault{Class: class, Message: Sanitize(message), Err: err}
}

// Classify maps an error onto the taxonomy. Rules apply in priority
// order: connection-level failures, auth statuses, constraint-violation
// codes, backend 5xx, then Unknown.
func Classify(err error) Class {
	if err == nil {
		return Unknown
	}

	var fault *Fault
	if errors.As(err, &fault) {
		return fault.Class
	}

	if isNetworkErr(err) {
		return Network
	}

	var apiErr *remote.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Status == 401 || apiErr.Status == 403:
			return Auth
		case apiErr.Code == remote.CodeUniqueViolation,
			apiErr.Code == remote.CodeForeignKeyViolation:
			return Conflict
		case apiErr.Status >= 500:
			return ServerFault
		}
	}

	return Unknown
}

// Normalize wraps err into a Fault with a classified, sanitized message.
// Existing faults pass through unchanged.
func Normalize(err error) *Fault {
	if err == nil {
		return nil
	}

	var fault *Fault
	if errors.As(err, &fault) {
		return fault
	}

	class := Classify(err)
	return &Fault{Class: class, Message: defaultMessage(class, err), Err: err}
}

// UserMessage returns a sanitized, bounded message safe to surface.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var fault *Fault
	if errors.As(err, &fault) && fault.Message != "" {
		return fault.Message
	}
	return defaultMessage(Classify(err), err)
}

func defaultMessage(class Class, err error) string {
	switch class {
	case Network:
		return "Could not reach the server. Check your connection and try again."
	case Auth:
		return "Your session has expired. Please sign in again."
	case Conflict:
		var apiErr *remote.APIError
		if errors.As(err, &apiErr) && apiErr.Code == remote.CodeForeignKeyViolation {
			return "A related record is missing."
		}
		return "A record with these details already exists."
	case Validation:
		return Sanitize(err.Error())
	case ServerFault:
		return "The server had a problem. Please try again in a moment."
	default:
		return Sanitize(err.Error())
	}
}

func isNetworkErr(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		// Anything that failed before an HTTP status was produced.
		return true
	}

	var sysErr *os.SyscallError
	return errors.As(err, &sysErr)
}
