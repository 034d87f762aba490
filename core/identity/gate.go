package identity

import "github.com/pkg/errors"

// Authorize is the single access gate every route goes through before a
// data-bearing query runs. Two checks, both must pass: the caller's role
// must be in the route's allowed set (an empty set allows any resolved
// role), and a requested record id must be inside the computed scope.
// Scope misses are ErrForbidden, never a not-found: existence must not
// be disclosed to an unauthorized caller. No side effects.
func Authorize(role Role, allowedRoles []Role, scope Scope, requestedID string) error {
	if len(allowedRoles) > 0 && !role.In(allowedRoles) {
		return errors.Wrap(ErrForbidden, "role not allowed")
	}
	if requestedID != "" && !scope.Contains(requestedID) {
		return errors.Wrap(ErrForbidden, "record outside caller scope")
	}
	return nil
}
