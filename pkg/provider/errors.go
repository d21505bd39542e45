package provider

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for provider operations.
var (
	// ErrNotFound indicates the requested object does not exist.
	ErrNotFound = errors.New("object not found")

	// ErrAccessDenied indicates insufficient permissions.
	ErrAccessDenied = errors.New("access denied")

	// ErrBucketNotFound indicates the bucket does not exist.
	ErrBucketNotFound = errors.New("bucket not found")

	// ErrInvalidCredentials indicates authentication failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrProviderUnavailable indicates the provider service is unavailable.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrThrottled indicates the request was rate limited by the provider.
	ErrThrottled = errors.New("request throttled")
)

// ProviderError wraps provider-specific errors with context.
type ProviderError struct {
	// Op is the operation that failed (e.g., "List", "Head").
	Op string

	// Provider is the provider type (e.g., "s3").
	Provider ProviderType

	// Bucket is the bucket name, if applicable.
	Bucket string

	// Key is the object key, if applicable.
	Key string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s %s: %s/%s: %v", e.Provider, e.Op, e.Bucket, e.Key, e.Err)
	}
	if e.Bucket != "" {
		return fmt.Sprintf("%s %s: %s: %v", e.Provider, e.Op, e.Bucket, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// httpStatuser is implemented by transport errors that carry a response
// status, such as smithy-go's transport/http.ResponseError.
type httpStatuser interface {
	HTTPStatusCode() int
}

// IsNotFound reports whether err means the object or bucket is absent.
//
// Composite errors (errors.Join, multierr) are searched recursively and
// classify as not-found when any member does. A member is not-found when it
// is ErrNotFound or ErrBucketNotFound, or when it carries a 404 transport
// status.
func IsNotFound(err error) bool {
	return walk(err, func(e error) bool {
		if e == ErrNotFound || e == ErrBucketNotFound {
			return true
		}
		if hs, ok := e.(httpStatuser); ok && hs.HTTPStatusCode() == http.StatusNotFound {
			return true
		}
		return false
	})
}

// walk visits err and everything it wraps, depth first, until fn returns true.
func walk(err error, fn func(error) bool) bool {
	if err == nil {
		return false
	}
	if fn(err) {
		return true
	}
	switch x := err.(type) {
	case interface{ Unwrap() []error }:
		for _, inner := range x.Unwrap() {
			if walk(inner, fn) {
				return true
			}
		}
	case interface{ Unwrap() error }:
		return walk(x.Unwrap(), fn)
	}
	return false
}

// Status is the outcome of an adapter call once its error is classified.
type Status int

const (
	// StatusOK means the call succeeded.
	StatusOK Status = iota

	// StatusAbsent means the object or bucket does not exist.
	StatusAbsent

	// StatusFailed means any other failure.
	StatusFailed
)

// String returns a lowercase label for logging.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusAbsent:
		return "absent"
	default:
		return "failed"
	}
}

// Classify maps an adapter error to a Status.
func Classify(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case IsNotFound(err):
		return StatusAbsent
	default:
		return StatusFailed
	}
}

// IsAccessDenied returns true if the error indicates insufficient permissions.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}

// IsBucketNotFound returns true if the error indicates the bucket does not exist.
func IsBucketNotFound(err error) bool {
	return errors.Is(err, ErrBucketNotFound)
}

// IsInvalidCredentials returns true if the error indicates authentication failed.
func IsInvalidCredentials(err error) bool {
	return errors.Is(err, ErrInvalidCredentials)
}

// IsProviderUnavailable returns true if the error indicates the provider service is unavailable.
func IsProviderUnavailable(err error) bool {
	return errors.Is(err, ErrProviderUnavailable)
}

// IsThrottled returns true if the error indicates the request was rate limited.
func IsThrottled(err error) bool {
	return errors.Is(err, ErrThrottled)
}
