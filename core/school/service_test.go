package school_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/identity"
	"github.com/trezcool/shule/core/school"
	dummydb "github.com/trezcool/shule/storage/database/dummy"
)

type fixture struct {
	repo interface {
		school.Repository
		SeedClass(cls school.Class) school.Class
		SeedLesson(la school.LessonAssignment) school.LessonAssignment
	}
	svc *school.Service
}

func setup(t *testing.T) *fixture {
	t.Helper()
	repo := dummydb.NewSchoolRepository(dummydb.Open())
	return &fixture{repo: repo, svc: school.NewService(repo)}
}

// seedStudents provisions a parent P1 and their children S1, S2 plus an
// unrelated S3.
func (f *fixture) seedStudents(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.svc.ProvisionStaff(ctx, identity.RoleParent, school.NewStaff{ID: "P1", Name: "Maman Kalala", Email: "kalala@test.cd"}))
	for _, ns := range []school.NewStudent{
		{ID: "S1", StudentNo: "std001", Name: "Junior Kalala", Email: "junior@test.cd", ParentID: "P1"},
		{ID: "S2", StudentNo: "std002", Name: "Grace Kalala", ParentID: "P1"},
		{ID: "S3", StudentNo: "std003", Name: "Patient Mwamba"},
	} {
		_, err := f.svc.ProvisionStudent(ctx, ns)
		require.NoError(t, err)
	}
}

func TestDirectoryResolution(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.seedStudents(t)
	require.NoError(t, f.svc.ProvisionStaff(ctx, identity.RoleTeacher, school.NewStaff{ID: "T1", Name: "Mr Ilunga", Email: "ilunga@test.cd"}))

	prof, err := f.svc.GetStudentProfile(ctx, "S1")
	require.NoError(t, err)
	assert.Equal(t, "Junior Kalala", prof.Name)
	assert.Equal(t, "std001", prof.StudentNo)
	assert.Equal(t, "P1", prof.ParentID)

	// a teacher id is not in the student collection
	_, err = f.svc.GetStudentProfile(ctx, "T1")
	assert.Equal(t, identity.ErrRecordNotFound, err)

	prof, err = f.svc.GetTeacherProfile(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, "Mr Ilunga", prof.Name)

	_, err = f.svc.GetAdminProfile(ctx, "nope")
	assert.Equal(t, identity.ErrRecordNotFound, err)
}

func TestStudentIDsByTeacher(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.seedStudents(t)

	// T1 supervises 9A and holds a lesson in 10A; S3's class is neither
	f.repo.SeedClass(school.Class{ID: "C9A", Name: "9A", YearID: "Y1", SupervisorID: "T1"})
	f.repo.SeedClass(school.Class{ID: "C10A", Name: "10A", YearID: "Y1", SupervisorID: "T2"})
	f.repo.SeedClass(school.Class{ID: "C11B", Name: "11B", YearID: "Y1", SupervisorID: "T2"})
	f.repo.SeedLesson(school.LessonAssignment{ClassID: "C10A", TeacherID: "T1", Subject: "Math"})

	for _, enr := range []school.NewEnrollment{
		{StudentID: "S1", ClassID: "C9A", YearID: "Y1"},
		{StudentID: "S2", ClassID: "C10A", YearID: "Y1"},
		{StudentID: "S3", ClassID: "C11B", YearID: "Y1"},
	} {
		_, err := f.svc.Enroll(ctx, enr)
		require.NoError(t, err)
	}

	ids, err := f.svc.StudentIDsByTeacher(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, []string{"S1", "S2"}, ids)

	// no classes at all
	ids, err = f.svc.StudentIDsByTeacher(ctx, "T3")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestEnroll(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.seedStudents(t)
	f.repo.SeedClass(school.Class{ID: "C9A", Name: "9A", YearID: "Y1", SupervisorID: "T1"})
	f.repo.SeedClass(school.Class{ID: "C9B", Name: "9B", YearID: "Y1", SupervisorID: "T2"})

	enr, err := f.svc.Enroll(ctx, school.NewEnrollment{StudentID: "S1", ClassID: "C9A", YearID: "Y1"})
	require.NoError(t, err)
	assert.True(t, enr.Current())

	// one current enrollment per year
	_, err = f.svc.Enroll(ctx, school.NewEnrollment{StudentID: "S1", ClassID: "C9B", YearID: "Y1"})
	require.Error(t, err)
	var vErr *core.ValidationError
	assert.ErrorAs(t, err, &vErr)

	// withdrawing frees the student for a new enrollment
	require.NoError(t, f.svc.Withdraw(ctx, enr.ID))
	_, err = f.svc.Enroll(ctx, school.NewEnrollment{StudentID: "S1", ClassID: "C9B", YearID: "Y1"})
	require.NoError(t, err)

	enrs, err := f.svc.Enrollments(ctx, "S1")
	require.NoError(t, err)
	assert.Len(t, enrs, 2)

	// closing twice fails
	assert.Equal(t, school.ErrNotFound, f.svc.Withdraw(ctx, enr.ID))
}

func TestProvisionStudent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	// parent link must pre-exist
	_, err := f.svc.ProvisionStudent(ctx, school.NewStudent{ID: "S1", StudentNo: "std001", Name: "Junior", ParentID: "nope"})
	require.Error(t, err)
	var vErr *core.ValidationError
	assert.ErrorAs(t, err, &vErr)

	f.seedStudents(t)
	children, err := f.svc.ChildrenOf(ctx, "P1")
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "std001", children[0].StudentNo)
}

func TestEmailFor(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.seedStudents(t)

	addr, err := f.svc.EmailFor(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, "kalala@test.cd", addr.Address)
	assert.Equal(t, "Maman Kalala", addr.Name)

	_, err = f.svc.EmailFor(ctx, "nope")
	assert.Equal(t, school.ErrNotFound, err)
}

func TestAuthenticateLocal(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.seedStudents(t)

	require.NoError(t, f.svc.SetCredential(ctx, "S1", "Junior@Test.CD", "G00d#pass"))

	// email is matched case-insensitively
	profileID, err := f.svc.AuthenticateLocal(ctx, "JUNIOR@test.cd", "G00d#pass")
	require.NoError(t, err)
	assert.Equal(t, "S1", profileID)

	cred, err := f.repo.GetCredential(ctx, "S1")
	require.NoError(t, err)
	assert.False(t, cred.LastLogin.IsZero())

	// wrong password and unknown email both come back as not found
	_, err = f.svc.AuthenticateLocal(ctx, "junior@test.cd", "wrong")
	assert.Equal(t, school.ErrNotFound, err)
	_, err = f.svc.AuthenticateLocal(ctx, "nope@test.cd", "G00d#pass")
	assert.Equal(t, school.ErrNotFound, err)

	// policy rejects weak passwords
	err = f.svc.SetCredential(ctx, "S2", "grace@test.cd", "password")
	require.Error(t, err)
	var vErr *core.ValidationError
	assert.ErrorAs(t, err, &vErr)
}
