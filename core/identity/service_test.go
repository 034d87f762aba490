package identity_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/identity"
	"github.com/trezcool/shule/core/school"
	ssodummy "github.com/trezcool/shule/services/sso/dummy"
	dummydb "github.com/trezcool/shule/storage/database/dummy"
)

type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...interface{}) {}
func (nopLogger) Info(msg string, args ...interface{})  {}
func (nopLogger) Warn(msg string, args ...interface{})  {}
func (nopLogger) Error(msg string, args ...interface{}) {}
func (nopLogger) Fatal(msg string, args ...interface{}) {}

type fixture struct {
	conf      *core.Config
	provider  *ssodummy.Provider
	schoolSvc *school.Service
	repo      interface {
		school.Repository
		SeedClass(cls school.Class) school.Class
		SeedLesson(la school.LessonAssignment) school.LessonAssignment
	}
	svc *identity.Service
}

func setup(t *testing.T) *fixture {
	t.Helper()
	conf := &core.Config{
		AppName:            "Shule",
		SecretKey:          "test-secret",
		JWTExpirationDelta: time.Hour,
		Provider:           core.ProviderConfig{Timeout: time.Second},
	}
	repo := dummydb.NewSchoolRepository(dummydb.Open())
	schoolSvc := school.NewService(repo)
	provider := ssodummy.NewProvider()
	return &fixture{
		conf:      conf,
		provider:  provider,
		schoolSvc: schoolSvc,
		repo:      repo,
		svc:       identity.NewService(conf, provider, schoolSvc, nopLogger{}),
	}
}

// seed provisions the canonical cast: teacher T1 over classes 9A
// (supervised) and 10A (math lessons) with students S1..S3 enrolled,
// S4 in an unrelated class, parent P1 of S1 and S2, admin A1 and
// accountant ACC1.
func (f *fixture) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, f.schoolSvc.ProvisionStaff(ctx, identity.RoleTeacher, school.NewStaff{ID: "T1", Name: "Mr Ilunga", Email: "ilunga@test.cd"}))
	require.NoError(t, f.schoolSvc.ProvisionStaff(ctx, identity.RoleTeacher, school.NewStaff{ID: "T2", Name: "Mrs Mbuyi"}))
	require.NoError(t, f.schoolSvc.ProvisionStaff(ctx, identity.RoleParent, school.NewStaff{ID: "P1", Name: "Maman Kalala", Email: "kalala@test.cd"}))
	require.NoError(t, f.schoolSvc.ProvisionStaff(ctx, identity.RoleAdmin, school.NewStaff{ID: "A1", Name: "Head Admin"}))
	require.NoError(t, f.schoolSvc.ProvisionStaff(ctx, identity.RoleAccountant, school.NewStaff{ID: "ACC1", Name: "Bursar"}))

	for _, ns := range []school.NewStudent{
		{ID: "S1", StudentNo: "std001", Name: "Junior Kalala", Email: "junior@test.cd", ParentID: "P1"},
		{ID: "S2", StudentNo: "std002", Name: "Grace Kalala", ParentID: "P1"},
		{ID: "S3", StudentNo: "std003", Name: "Patient Mwamba"},
		{ID: "S4", StudentNo: "std004", Name: "Divine Tshala"},
	} {
		_, err := f.schoolSvc.ProvisionStudent(ctx, ns)
		require.NoError(t, err)
	}

	f.repo.SeedClass(school.Class{ID: "C9A", Name: "9A", YearID: "Y1", SupervisorID: "T1"})
	f.repo.SeedClass(school.Class{ID: "C10A", Name: "10A", YearID: "Y1", SupervisorID: "T2"})
	f.repo.SeedClass(school.Class{ID: "C11B", Name: "11B", YearID: "Y1", SupervisorID: "T2"})
	f.repo.SeedLesson(school.LessonAssignment{ClassID: "C10A", TeacherID: "T1", Subject: "Math"})

	for _, enr := range []school.NewEnrollment{
		{StudentID: "S1", ClassID: "C9A", YearID: "Y1"},
		{StudentID: "S2", ClassID: "C9A", YearID: "Y1"},
		{StudentID: "S3", ClassID: "C10A", YearID: "Y1"},
		{StudentID: "S4", ClassID: "C11B", YearID: "Y1"},
	} {
		_, err := f.schoolSvc.Enroll(ctx, enr)
		require.NoError(t, err)
	}
}

func (f *fixture) localToken(t *testing.T, profile identity.Profile, role identity.Role) string {
	t.Helper()
	token, err := identity.GenerateToken(f.conf, identity.NewClaims(f.conf, profile, role))
	require.NoError(t, err)
	return token
}

func TestVerify(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	local := f.localToken(t, identity.Profile{ID: "S1", Email: "junior@test.cd"}, identity.RoleStudent)
	f.provider.Register("provider-token", "T1", "ilunga@test.cd")

	t.Run("local token", func(t *testing.T) {
		vi, err := f.svc.Verify(ctx, local)
		require.NoError(t, err)
		assert.Equal(t, "S1", vi.ExternalID)
		assert.Equal(t, identity.RoleStudent, vi.RoleHint)
		assert.Equal(t, identity.SourceLocal, vi.Source)
	})

	t.Run("provider token", func(t *testing.T) {
		vi, err := f.svc.Verify(ctx, "provider-token")
		require.NoError(t, err)
		assert.Equal(t, "T1", vi.ExternalID)
		assert.Empty(t, vi.RoleHint) // provider tokens carry no role
		assert.Equal(t, identity.SourceProvider, vi.Source)
	})

	t.Run("both paths fail", func(t *testing.T) {
		_, err := f.svc.Verify(ctx, "garbage")
		assert.Equal(t, identity.ErrUnauthenticated, errors.Cause(err))
	})

	t.Run("empty bearer", func(t *testing.T) {
		_, err := f.svc.Verify(ctx, "  ")
		assert.Equal(t, identity.ErrUnauthenticated, errors.Cause(err))
	})

	t.Run("provider down", func(t *testing.T) {
		f.provider.SetDown(true)
		defer f.provider.SetDown(false)

		// non-local tokens cannot be verified while the provider is down
		_, err := f.svc.Verify(ctx, "provider-token")
		assert.Equal(t, identity.ErrServiceUnavailable, errors.Cause(err))

		// the local path needs no network
		_, err = f.svc.Verify(ctx, local)
		assert.NoError(t, err)
	})

	t.Run("expired local token", func(t *testing.T) {
		expConf := *f.conf
		expConf.JWTExpirationDelta = -time.Hour
		expired, err := identity.GenerateToken(&expConf, identity.NewClaims(&expConf, identity.Profile{ID: "S1"}, identity.RoleStudent))
		require.NoError(t, err)

		_, err = f.svc.Verify(ctx, expired)
		assert.Equal(t, identity.ErrUnauthenticated, errors.Cause(err))
	})
}

func TestResolve(t *testing.T) {
	f := setup(t)
	f.seed(t)
	ctx := context.Background()

	t.Run("each role resolves", func(t *testing.T) {
		for id, want := range map[string]identity.Role{
			"S1":   identity.RoleStudent,
			"T1":   identity.RoleTeacher,
			"P1":   identity.RoleParent,
			"A1":   identity.RoleAdmin,
			"ACC1": identity.RoleAccountant,
		} {
			role, profile, err := f.svc.Resolve(ctx, id)
			require.NoError(t, err, id)
			assert.Equal(t, want, role, id)
			assert.Equal(t, id, profile.ID)
			assert.False(t, profile.Synthesized)
		}
	})

	t.Run("first match wins on collision", func(t *testing.T) {
		// the same external id provisioned as both student and teacher
		_, err := f.schoolSvc.ProvisionStudent(ctx, school.NewStudent{ID: "X1", StudentNo: "std099", Name: "Dual"})
		require.NoError(t, err)
		require.NoError(t, f.schoolSvc.ProvisionStaff(ctx, identity.RoleTeacher, school.NewStaff{ID: "X1", Name: "Dual"}))

		role, _, err := f.svc.Resolve(ctx, "X1")
		require.NoError(t, err)
		assert.Equal(t, identity.RoleStudent, role)
	})

	t.Run("synthesized from role hint", func(t *testing.T) {
		f.provider.SetMetadata("NEW1", identity.Metadata{Name: "New Teacher", Email: "new@test.cd", RoleHint: identity.RoleTeacher})

		role, profile, err := f.svc.Resolve(ctx, "NEW1")
		require.NoError(t, err)
		assert.Equal(t, identity.RoleTeacher, role)
		assert.True(t, profile.Synthesized)
		assert.Equal(t, "NEW1", profile.ID)
		assert.Equal(t, "New Teacher", profile.Name)
	})

	t.Run("invalid role hint", func(t *testing.T) {
		f.provider.SetMetadata("NEW2", identity.Metadata{Name: "Mystery", RoleHint: "janitor"})

		_, _, err := f.svc.Resolve(ctx, "NEW2")
		assert.Equal(t, identity.ErrProfileNotFound, errors.Cause(err))
	})

	t.Run("no profile, no hint", func(t *testing.T) {
		_, _, err := f.svc.Resolve(ctx, "GHOST")
		assert.Equal(t, identity.ErrProfileNotFound, errors.Cause(err))
	})

	t.Run("provider down during metadata lookup", func(t *testing.T) {
		f.provider.SetDown(true)
		defer f.provider.SetDown(false)

		// an unreachable provider cannot produce a hint
		_, _, err := f.svc.Resolve(ctx, "GHOST")
		assert.Equal(t, identity.ErrProfileNotFound, errors.Cause(err))
	})
}

func TestComputeScope(t *testing.T) {
	f := setup(t)
	f.seed(t)
	ctx := context.Background()

	tests := []struct {
		name        string
		role        identity.Role
		profile     identity.Profile
		requestedID string
		want        []string
	}{
		{name: "student is self-scoped", role: identity.RoleStudent, profile: identity.Profile{ID: "S1"}, want: []string{"S1"}},
		{name: "student cannot widen via requested id", role: identity.RoleStudent, profile: identity.Profile{ID: "S1"}, requestedID: "S2", want: []string{"S1"}},
		{name: "parent sees children", role: identity.RoleParent, profile: identity.Profile{ID: "P1"}, want: []string{"S1", "S2"}},
		{name: "teacher sees supervised and taught rosters", role: identity.RoleTeacher, profile: identity.Profile{ID: "T1"}, want: []string{"S1", "S2", "S3"}},
		{name: "teacher with no classes", role: identity.RoleTeacher, profile: identity.Profile{ID: "T3"}, want: []string{}},
		{name: "admin narrows to requested id", role: identity.RoleAdmin, profile: identity.Profile{ID: "A1"}, requestedID: "S4", want: []string{"S4"}},
		{name: "admin defaults to all", role: identity.RoleAdmin, profile: identity.Profile{ID: "A1"}, want: []string{"S1", "S2", "S3", "S4"}},
		{name: "accountant defaults to all", role: identity.RoleAccountant, profile: identity.Profile{ID: "ACC1"}, want: []string{"S1", "S2", "S3", "S4"}},
		{name: "synthesized profile yields empty scope", role: identity.RoleParent, profile: identity.Profile{ID: "NEW1", Synthesized: true}, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scope, err := f.svc.ComputeScope(ctx, tt.role, tt.profile, tt.requestedID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, scope.IDs())
		})
	}
}

func TestGate(t *testing.T) {
	scope := identity.NewScope("S1", "S2")

	tests := []struct {
		name         string
		role         identity.Role
		allowedRoles []identity.Role
		requestedID  string
		wantErr      error
	}{
		{name: "role and scope pass", role: identity.RoleTeacher, allowedRoles: []identity.Role{identity.RoleTeacher}, requestedID: "S1"},
		{name: "empty allowed set admits any role", role: identity.RoleParent, requestedID: "S2"},
		{name: "no requested id skips the scope check", role: identity.RoleTeacher, allowedRoles: []identity.Role{identity.RoleTeacher}},
		{name: "role not allowed", role: identity.RoleStudent, allowedRoles: []identity.Role{identity.RoleAdmin}, requestedID: "S1", wantErr: identity.ErrForbidden},
		{name: "scope miss is forbidden, not not-found", role: identity.RoleTeacher, allowedRoles: []identity.Role{identity.RoleTeacher}, requestedID: "S9", wantErr: identity.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := identity.Authorize(tt.role, tt.allowedRoles, scope, tt.requestedID)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestAuthenticate(t *testing.T) {
	f := setup(t)
	f.seed(t)
	ctx := context.Background()

	t.Run("local token resolves caller", func(t *testing.T) {
		token := f.localToken(t, identity.Profile{ID: "S1", Email: "junior@test.cd"}, identity.RoleStudent)

		caller, err := f.svc.Authenticate(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, identity.RoleStudent, caller.Role)
		assert.Equal(t, "S1", caller.Profile.ID)
		assert.Nil(t, caller.Scope) // scope is computed by Authorize, per route
	})

	t.Run("resolver overrides a stale role claim", func(t *testing.T) {
		// S1 was a student when this token was issued; say the record moved
		token := f.localToken(t, identity.Profile{ID: "T1"}, identity.RoleStudent)

		caller, err := f.svc.Authenticate(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, identity.RoleTeacher, caller.Role)
	})

	t.Run("valid token, no profile", func(t *testing.T) {
		f.provider.Register("ghost-token", "GHOST", "ghost@test.cd")

		_, err := f.svc.Authenticate(ctx, "ghost-token")
		assert.Equal(t, identity.ErrProfileNotFound, errors.Cause(err))
	})
}

func TestServiceAuthorize(t *testing.T) {
	f := setup(t)
	f.seed(t)
	ctx := context.Background()

	t.Run("sets scope on success", func(t *testing.T) {
		caller := identity.Caller{Role: identity.RoleTeacher, Profile: identity.Profile{ID: "T1"}}
		err := f.svc.Authorize(ctx, &caller, []identity.Role{identity.RoleTeacher, identity.RoleAdmin}, "S3")
		require.NoError(t, err)
		assert.Equal(t, []string{"S1", "S2", "S3"}, caller.Scope.IDs())
	})

	t.Run("scope miss", func(t *testing.T) {
		caller := identity.Caller{Role: identity.RoleTeacher, Profile: identity.Profile{ID: "T1"}}
		err := f.svc.Authorize(ctx, &caller, nil, "S4")
		assert.Equal(t, identity.ErrForbidden, errors.Cause(err))
	})

	t.Run("role rejected before scope is computed", func(t *testing.T) {
		caller := identity.Caller{Role: identity.RoleStudent, Profile: identity.Profile{ID: "S1"}}
		err := f.svc.Authorize(ctx, &caller, []identity.Role{identity.RoleAdmin}, "")
		assert.Equal(t, identity.ErrForbidden, errors.Cause(err))
		assert.Nil(t, caller.Scope)
	})
}
