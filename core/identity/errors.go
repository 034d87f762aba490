package identity

import "errors"

var (
	// ErrUnauthenticated: no/invalid/expired credential; both verification paths failed.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrProfileNotFound: valid identity with no matching domain profile.
	// Remediation is administrative provisioning, not retry.
	ErrProfileNotFound = errors.New("no profile matches this identity")
	// ErrForbidden: resolved caller failed the role or scope check.
	ErrForbidden = errors.New("permission denied")
	// ErrServiceUnavailable: identity provider unreachable or timed out.
	ErrServiceUnavailable = errors.New("identity provider unavailable")

	// ErrRecordNotFound is returned by Directory lookups when a collection
	// has no record for the id; the resolver then tries the next collection.
	ErrRecordNotFound = errors.New("record not found")
)
