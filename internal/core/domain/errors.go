package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRunInProgress indicates a linking run is already active.
	// Exactly one run may mutate the cache at a time.
	ErrRunInProgress = errors.New("run in progress")

	// ErrRunCancelled indicates a run was cancelled between batches.
	// Batches persisted before cancellation remain valid.
	ErrRunCancelled = errors.New("run cancelled")

	// ErrGatewayUnavailable indicates the model gateway is not configured.
	ErrGatewayUnavailable = errors.New("model gateway unavailable")

	// ErrEmbeddingUnsupported indicates the configured provider has no
	// embeddings endpoint.
	ErrEmbeddingUnsupported = errors.New("embeddings not supported by provider")

	// ErrDimensionMismatch indicates two vectors of different lengths.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrEmptyVector indicates an empty vector where one is required.
	ErrEmptyVector = errors.New("empty vector")

	// ErrNoMarker indicates a note has no link marker, so the engine
	// has no designated region to write into.
	ErrNoMarker = errors.New("link marker not found")
)

// ErrorKind is the three-tier remote failure taxonomy. It decides
// transport-layer retry and orchestration-layer skip/abort behaviour.
type ErrorKind int

const (
	// KindTransient failures are retryable at the transport layer.
	// If retries exhaust they degrade to a recorded batch failure.
	KindTransient ErrorKind = iota

	// KindConfiguration failures cannot succeed on retry; the user
	// must fix settings. They abort the whole run.
	KindConfiguration

	// KindContent failures mean one item is unprocessable (for
	// example oversized). The item is skipped, the run continues.
	KindContent
)

// String returns the taxonomy tier name.
func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindContent:
		return "content"
	default:
		return "transient"
	}
}

// RemoteError is a classified failure from the model gateway.
type RemoteError struct {
	// Kind is the taxonomy tier.
	Kind ErrorKind

	// Status is the HTTP status, or 0 for unreachable network.
	Status int

	// Message is the provider's error detail.
	Message string

	// Guidance is user-actionable advice, set for configuration errors.
	Guidance string
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	msg := fmt.Sprintf("%s error (status %d): %s", e.Kind, e.Status, e.Message)
	if e.Guidance != "" {
		msg += ". " + e.Guidance
	}
	return msg
}

// Retryable reports whether the transport layer should retry.
func (e *RemoteError) Retryable() bool {
	return e.Kind == KindTransient
}

// ClassifyStatus maps an HTTP status code into the taxonomy.
// Unrecognised statuses default to transient so unknown provider
// hiccups are retried rather than aborting the run.
func ClassifyStatus(status int) ErrorKind {
	switch status {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound:
		return KindConfiguration
	case http.StatusRequestEntityTooLarge:
		return KindContent
	default:
		return KindTransient
	}
}

// NewRemoteError builds a classified error from an HTTP status and
// provider message, attaching guidance for configuration failures.
func NewRemoteError(status int, message string) *RemoteError {
	e := &RemoteError{
		Kind:    ClassifyStatus(status),
		Status:  status,
		Message: message,
	}
	if e.Kind == KindConfiguration {
		switch status {
		case http.StatusUnauthorized:
			e.Guidance = "Check the API key in ~/.relink/config.toml"
		case http.StatusNotFound:
			e.Guidance = "Check the model name and base URL in ~/.relink/config.toml"
		default:
			e.Guidance = "Check the provider settings in ~/.relink/config.toml"
		}
	}
	return e
}

// KindOf extracts the taxonomy tier from an error chain.
// Unclassified errors are treated as transient.
func KindOf(err error) ErrorKind {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindTransient
}

// IsConfiguration reports whether err is an abort-worthy
// configuration failure anywhere in its chain.
func IsConfiguration(err error) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.Kind == KindConfiguration
}
