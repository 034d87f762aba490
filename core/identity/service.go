package identity

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

type (
	// Introspection is what the external provider asserts about a token.
	// Provider tokens carry no role; the resolver supplies it.
	Introspection struct {
		ExternalID string
		Email      string
	}

	// Metadata is provider-side profile metadata for an external identity.
	Metadata struct {
		Name     string
		Email    string
		RoleHint Role
	}

	// Provider is the external identity provider capability.
	// Implementations return ErrServiceUnavailable (wrapped) when the
	// provider cannot be reached, and any other error for a bad token.
	Provider interface {
		IntrospectToken(ctx context.Context, token string) (Introspection, error)
		GetUserMetadata(ctx context.Context, externalID string) (Metadata, error)
	}

	// Directory is the read path into the five profile collections and the
	// relationships scope computation needs. Lookups return
	// ErrRecordNotFound when the collection has no record for the id.
	Directory interface {
		GetStudentProfile(ctx context.Context, externalID string) (Profile, error)
		GetTeacherProfile(ctx context.Context, externalID string) (Profile, error)
		GetParentProfile(ctx context.Context, externalID string) (Profile, error)
		GetAdminProfile(ctx context.Context, externalID string) (Profile, error)
		GetAccountantProfile(ctx context.Context, externalID string) (Profile, error)

		StudentIDsByParent(ctx context.Context, parentID string) ([]string, error)
		// StudentIDsByTeacher unions the rosters of classes the teacher
		// supervises and classes where they hold at least one lesson assignment.
		StudentIDsByTeacher(ctx context.Context, teacherID string) ([]string, error)
		AllStudentIDs(ctx context.Context) ([]string, error)
	}

	Service struct {
		conf     *core.Config
		provider Provider
		dir      Directory
		logger   core.Logger
	}
)

func NewService(conf *core.Config, provider Provider, dir Directory, logger core.Logger) *Service {
	return &Service{
		conf:     conf,
		provider: provider,
		dir:      dir,
		logger:   logger,
	}
}

// Authenticate runs the first two pipeline stages: credential
// verification and profile resolution. The returned Caller carries no
// scope yet; Authorize computes it against a route's requirements.
func (svc *Service) Authenticate(ctx context.Context, bearer string) (Caller, error) {
	vi, err := svc.Verify(ctx, bearer)
	if err != nil {
		return Caller{}, err
	}

	role, profile, err := svc.Resolve(ctx, vi.ExternalID)
	if err != nil {
		return Caller{}, err
	}
	if vi.RoleHint != "" && vi.RoleHint != role {
		// the resolver is authoritative; a stale local token embeds the old role
		svc.logger.Warn("role claim mismatch: token says "+string(vi.RoleHint)+", resolved "+string(role), profile)
	}

	return Caller{Identity: vi, Role: role, Profile: profile}, nil
}

// Authorize runs the last two pipeline stages for a route: scope
// computation and the access gate. On success the caller's Scope is set;
// any failure is terminal for the request.
func (svc *Service) Authorize(ctx context.Context, caller *Caller, allowedRoles []Role, requestedID string) error {
	if len(allowedRoles) > 0 && !caller.Role.In(allowedRoles) {
		svc.logger.Warn("forbidden: role "+string(caller.Role)+" not allowed on route", caller.Profile)
		return errors.Wrap(ErrForbidden, "role not allowed")
	}

	scope, err := svc.ComputeScope(ctx, caller.Role, caller.Profile, requestedID)
	if err != nil {
		return err
	}
	caller.Scope = scope

	if err := Authorize(caller.Role, allowedRoles, scope, requestedID); err != nil {
		svc.logger.Warn("forbidden: requested id outside caller scope", caller.Profile)
		return err
	}
	return nil
}
