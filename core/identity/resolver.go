package identity

import (
	"context"

	"github.com/pkg/errors"
)

type roleLookup struct {
	role Role
	get  func(context.Context, string) (Profile, error)
}

// lookupTable returns the profile collections in resolution priority
// order. The order is an invariant (see ResolutionOrder): an id matching
// more than one collection resolves to the first hit.
func (svc *Service) lookupTable() []roleLookup {
	return []roleLookup{
		{RoleStudent, svc.dir.GetStudentProfile},
		{RoleTeacher, svc.dir.GetTeacherProfile},
		{RoleParent, svc.dir.GetParentProfile},
		{RoleAdmin, svc.dir.GetAdminProfile},
		{RoleAccountant, svc.dir.GetAccountantProfile},
	}
}

// Resolve correlates a verified external identity to exactly one
// (role, profile) pair. When no collection matches, the provider's
// profile metadata is consulted for a role hint; a usable hint yields a
// synthesized, non-persisted profile whose data-scoped operations will
// be empty. No match and no hint is ErrProfileNotFound: an
// administrative gap, not an authentication failure.
func (svc *Service) Resolve(ctx context.Context, externalID string) (Role, Profile, error) {
	for _, lookup := range svc.lookupTable() {
		profile, err := lookup.get(ctx, externalID)
		if err == nil {
			return lookup.role, profile, nil
		}
		if errors.Cause(err) != ErrRecordNotFound {
			return "", Profile{}, errors.Wrapf(err, "looking up %s profile", lookup.role)
		}
	}

	mdCtx, cancel := context.WithTimeout(ctx, svc.conf.Provider.Timeout)
	defer cancel()
	md, err := svc.provider.GetUserMetadata(mdCtx, externalID)
	if err == nil && md.RoleHint.Valid() {
		svc.logger.Warn("synthesized " + string(md.RoleHint) + " profile for unprovisioned identity " + externalID +
			"; data-scoped operations will be empty")
		return md.RoleHint, Profile{
			ID:          externalID,
			Name:        md.Name,
			Email:       md.Email,
			Synthesized: true,
		}, nil
	}
	if err != nil {
		// an unreachable provider cannot produce a hint; treat as no hint
		svc.logger.Warn("getting provider metadata for " + externalID + ": " + err.Error())
	}
	return "", Profile{}, errors.Wrap(ErrProfileNotFound, externalID)
}
