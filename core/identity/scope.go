package identity

import (
	"context"

	"github.com/pkg/errors"
)

// ComputeScope computes the set of student ids the caller may access,
// from current relationships only (never cached, never persisted):
//
//   student           -> {profile.ID}; a requested id is ignored, self-scope
//                        is not overridable by query parameters
//   parent            -> own children
//   teacher           -> students of supervised classes ∪ students of
//                        classes with at least one lesson assignment
//   admin, accountant -> {requestedID} if one was requested (existence is
//                        checked downstream, not here), else all students
//
// The result is an allow-list: routes reject ids outside it rather than
// silently filtering, except scope-aggregate routes where the scope set
// is the result itself.
func (svc *Service) ComputeScope(ctx context.Context, role Role, profile Profile, requestedID string) (Scope, error) {
	switch role {
	case RoleStudent:
		return NewScope(profile.ID), nil

	case RoleParent:
		ids, err := svc.dir.StudentIDsByParent(ctx, profile.ID)
		if err != nil {
			return nil, errors.Wrap(err, "listing children")
		}
		return NewScope(ids...), nil

	case RoleTeacher:
		ids, err := svc.dir.StudentIDsByTeacher(ctx, profile.ID)
		if err != nil {
			return nil, errors.Wrap(err, "listing taught students")
		}
		return NewScope(ids...), nil

	case RoleAdmin, RoleAccountant:
		if requestedID != "" {
			return NewScope(requestedID), nil
		}
		ids, err := svc.dir.AllStudentIDs(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "listing all students")
		}
		return NewScope(ids...), nil
	}
	return nil, errors.Wrapf(ErrForbidden, "unknown role %q", role)
}
