package school

import (
	"context"
	"errors"
	"net/mail"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/identity"
)

var (
	// errors
	ErrNotFound         = errors.New("record not found")
	ErrAlreadyEnrolled  = errors.New("student already has a current enrollment for this year")
	ErrProfileIDExists  = errors.New("a profile with this id already exists")
	ErrInvalidChildLink = errors.New("parent reference does not match an existing parent")
)

type (
	Repository interface {
		// profile collections, keyed by external identity id
		GetStudent(ctx context.Context, id string) (Student, error)
		GetTeacher(ctx context.Context, id string) (Teacher, error)
		GetParent(ctx context.Context, id string) (Parent, error)
		GetAdmin(ctx context.Context, id string) (Admin, error)
		GetAccountant(ctx context.Context, id string) (Accountant, error)
		CreateStudent(ctx context.Context, std Student) (Student, error)
		CreateTeacher(ctx context.Context, tch Teacher) (Teacher, error)
		CreateParent(ctx context.Context, par Parent) (Parent, error)
		CreateAdmin(ctx context.Context, adm Admin) (Admin, error)
		CreateAccountant(ctx context.Context, acc Accountant) (Accountant, error)

		// relationships
		QueryStudentsByID(ctx context.Context, ids []string) ([]Student, error)
		StudentsByParent(ctx context.Context, parentID string) ([]Student, error)
		AllStudentIDs(ctx context.Context) ([]string, error)

		GetClass(ctx context.Context, id string) (Class, error)
		QueryClasses(ctx context.Context, yearID string) ([]Class, error)
		// ClassesByTeacher returns classes the teacher supervises or holds
		// at least one lesson assignment in.
		ClassesByTeacher(ctx context.Context, teacherID string) ([]Class, error)
		// RosterStudentIDs returns ids of currently enrolled students of the classes.
		RosterStudentIDs(ctx context.Context, classIDs ...string) ([]string, error)

		EnrollmentsByStudent(ctx context.Context, studentID string) ([]Enrollment, error)
		CurrentEnrollment(ctx context.Context, studentID, yearID string) (Enrollment, error)
		CreateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		CloseEnrollment(ctx context.Context, enrollmentID string, leftAt time.Time) error

		// local credentials
		GetCredentialByEmail(ctx context.Context, email string) (Credential, error)
		GetCredential(ctx context.Context, profileID string) (Credential, error)
		UpsertCredential(ctx context.Context, cred Credential) error
		SetLastLogin(ctx context.Context, profileID string, at time.Time) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

var _ identity.Directory = (*Service)(nil) // interface compliance check

// identity.Directory implementation: the resolver's view over the five
// profile collections. Missing rows map to identity.ErrRecordNotFound so
// the resolver can move on to the next collection.

func (svc *Service) GetStudentProfile(ctx context.Context, externalID string) (identity.Profile, error) {
	std, err := svc.repo.GetStudent(ctx, externalID)
	if err != nil {
		return identity.Profile{}, trapNotFound(err, "finding student profile")
	}
	return identity.Profile{ID: std.ID, Name: std.Name, Email: std.Email, StudentNo: std.StudentNo, ParentID: std.ParentID}, nil
}

func (svc *Service) GetTeacherProfile(ctx context.Context, externalID string) (identity.Profile, error) {
	tch, err := svc.repo.GetTeacher(ctx, externalID)
	if err != nil {
		return identity.Profile{}, trapNotFound(err, "finding teacher profile")
	}
	return identity.Profile{ID: tch.ID, Name: tch.Name, Email: tch.Email}, nil
}

func (svc *Service) GetParentProfile(ctx context.Context, externalID string) (identity.Profile, error) {
	par, err := svc.repo.GetParent(ctx, externalID)
	if err != nil {
		return identity.Profile{}, trapNotFound(err, "finding parent profile")
	}
	return identity.Profile{ID: par.ID, Name: par.Name, Email: par.Email}, nil
}

func (svc *Service) GetAdminProfile(ctx context.Context, externalID string) (identity.Profile, error) {
	adm, err := svc.repo.GetAdmin(ctx, externalID)
	if err != nil {
		return identity.Profile{}, trapNotFound(err, "finding admin profile")
	}
	return identity.Profile{ID: adm.ID, Name: adm.Name, Email: adm.Email}, nil
}

func (svc *Service) GetAccountantProfile(ctx context.Context, externalID string) (identity.Profile, error) {
	acc, err := svc.repo.GetAccountant(ctx, externalID)
	if err != nil {
		return identity.Profile{}, trapNotFound(err, "finding accountant profile")
	}
	return identity.Profile{ID: acc.ID, Name: acc.Name, Email: acc.Email}, nil
}

func (svc *Service) StudentIDsByParent(ctx context.Context, parentID string) ([]string, error) {
	children, err := svc.repo.StudentsByParent(ctx, parentID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "listing students by parent")
	}
	ids := make([]string, 0, len(children))
	for _, child := range children {
		ids = append(ids, child.ID)
	}
	return ids, nil
}

func (svc *Service) StudentIDsByTeacher(ctx context.Context, teacherID string) ([]string, error) {
	classes, err := svc.repo.ClassesByTeacher(ctx, teacherID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "listing classes by teacher")
	}
	if len(classes) == 0 {
		return nil, nil
	}
	classIDs := make([]string, 0, len(classes))
	for _, cls := range classes {
		classIDs = append(classIDs, cls.ID)
	}
	return svc.repo.RosterStudentIDs(ctx, classIDs...)
}

func (svc *Service) AllStudentIDs(ctx context.Context) ([]string, error) {
	return svc.repo.AllStudentIDs(ctx)
}

// EmailFor resolves any profile id to its email address, walking the
// collections in resolution order. Notification fan-out uses it as its
// address book.
func (svc *Service) EmailFor(ctx context.Context, profileID string) (mail.Address, error) {
	for _, get := range []func(context.Context, string) (identity.Profile, error){
		svc.GetStudentProfile,
		svc.GetTeacherProfile,
		svc.GetParentProfile,
		svc.GetAdminProfile,
		svc.GetAccountantProfile,
	} {
		prof, err := get(ctx, profileID)
		if err == nil {
			return mail.Address{Name: prof.Name, Address: prof.Email}, nil
		}
		if err != identity.ErrRecordNotFound {
			return mail.Address{}, err
		}
	}
	return mail.Address{}, ErrNotFound
}

func trapNotFound(err error, msg string) error {
	if pkgerrors.Cause(err) == ErrNotFound {
		return identity.ErrRecordNotFound
	}
	return pkgerrors.Wrap(err, msg)
}

// Domain operations

func (svc *Service) GetStudent(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudent(ctx, id)
}

// QueryStudents returns the students inside the given scope.
func (svc *Service) QueryStudents(ctx context.Context, scope identity.Scope) ([]Student, error) {
	return svc.repo.QueryStudentsByID(ctx, scope.IDs())
}

func (svc *Service) ChildrenOf(ctx context.Context, parentID string) ([]Student, error) {
	return svc.repo.StudentsByParent(ctx, parentID)
}

func (svc *Service) GetClass(ctx context.Context, id string) (Class, error) {
	return svc.repo.GetClass(ctx, id)
}

func (svc *Service) QueryClasses(ctx context.Context, yearID string) ([]Class, error) {
	return svc.repo.QueryClasses(ctx, yearID)
}

func (svc *Service) ClassesOf(ctx context.Context, teacherID string) ([]Class, error) {
	return svc.repo.ClassesByTeacher(ctx, teacherID)
}

// Roster returns the currently enrolled students of a class.
func (svc *Service) Roster(ctx context.Context, classID string) ([]Student, error) {
	ids, err := svc.repo.RosterStudentIDs(ctx, classID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "listing roster ids")
	}
	return svc.repo.QueryStudentsByID(ctx, ids)
}

func (svc *Service) Enrollments(ctx context.Context, studentID string) ([]Enrollment, error) {
	return svc.repo.EnrollmentsByStudent(ctx, studentID)
}

// Enroll creates a current enrollment; a student may hold at most one
// per school year.
func (svc *Service) Enroll(ctx context.Context, ne NewEnrollment) (Enrollment, error) {
	if _, err := svc.repo.CurrentEnrollment(ctx, ne.StudentID, ne.YearID); err == nil {
		return Enrollment{}, core.NewValidationError(ErrAlreadyEnrolled,
			core.FieldError{Field: "student_id", Error: ErrAlreadyEnrolled.Error()})
	} else if pkgerrors.Cause(err) != ErrNotFound {
		return Enrollment{}, pkgerrors.Wrap(err, "checking current enrollment")
	}
	return svc.repo.CreateEnrollment(ctx, Enrollment{
		StudentID: ne.StudentID,
		ClassID:   ne.ClassID,
		YearID:    ne.YearID,
		JoinedAt:  time.Now().UTC(),
	})
}

func (svc *Service) Withdraw(ctx context.Context, enrollmentID string) error {
	return svc.repo.CloseEnrollment(ctx, enrollmentID, time.Now().UTC())
}

// Provisioning

func (svc *Service) ProvisionStudent(ctx context.Context, ns NewStudent) (Student, error) {
	if ns.ParentID != "" {
		if _, err := svc.repo.GetParent(ctx, ns.ParentID); err != nil {
			if pkgerrors.Cause(err) == ErrNotFound {
				return Student{}, core.NewValidationError(ErrInvalidChildLink,
					core.FieldError{Field: "parent_id", Error: ErrInvalidChildLink.Error()})
			}
			return Student{}, pkgerrors.Wrap(err, "checking parent reference")
		}
	}
	now := time.Now().UTC()
	return svc.repo.CreateStudent(ctx, Student{
		ID:        ns.ID,
		StudentNo: ns.StudentNo,
		Name:      ns.Name,
		Email:     ns.Email,
		ParentID:  ns.ParentID,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *Service) ProvisionStaff(ctx context.Context, role identity.Role, ns NewStaff) error {
	now := time.Now().UTC()
	var err error
	switch role {
	case identity.RoleTeacher:
		_, err = svc.repo.CreateTeacher(ctx, Teacher{ID: ns.ID, Name: ns.Name, Email: ns.Email, CreatedAt: now, UpdatedAt: now})
	case identity.RoleParent:
		_, err = svc.repo.CreateParent(ctx, Parent{ID: ns.ID, Name: ns.Name, Email: ns.Email, CreatedAt: now, UpdatedAt: now})
	case identity.RoleAdmin:
		_, err = svc.repo.CreateAdmin(ctx, Admin{ID: ns.ID, Name: ns.Name, Email: ns.Email, CreatedAt: now, UpdatedAt: now})
	case identity.RoleAccountant:
		_, err = svc.repo.CreateAccountant(ctx, Accountant{ID: ns.ID, Name: ns.Name, Email: ns.Email, CreatedAt: now, UpdatedAt: now})
	default:
		return pkgerrors.Errorf("cannot provision role %q", role)
	}
	return err
}

// Local credentials (mobile clients)

func (svc *Service) SetCredential(ctx context.Context, profileID, email, password string) error {
	cred := Credential{ProfileID: profileID, Email: core.CleanString(email, true /* lower */)}
	if err := ValidatePassword(password, cred.Email); err != nil {
		return err
	}
	if err := cred.SetPassword(password); err != nil {
		return err
	}
	return svc.repo.UpsertCredential(ctx, cred)
}

// AuthenticateLocal checks a local email/password credential and returns
// the owning profile id. Callers resolve the role themselves.
func (svc *Service) AuthenticateLocal(ctx context.Context, email, password string) (string, error) {
	cred, err := svc.repo.GetCredentialByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		return "", err
	}
	if err = cred.CheckPassword(password); err != nil {
		return "", ErrNotFound
	}
	if err = svc.repo.SetLastLogin(ctx, cred.ProfileID, time.Now().UTC()); err != nil {
		return "", pkgerrors.Wrap(err, "setting lastLogin")
	}
	return cred.ProfileID, nil
}
