package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/shule/core/school"
)

type schoolTables struct {
	students    map[string]*school.Student
	teachers    map[string]*school.Teacher
	parents     map[string]*school.Parent
	admins      map[string]*school.Admin
	accountants map[string]*school.Accountant
	classes     map[string]*school.Class
	lessons     map[string]*school.LessonAssignment
	enrollments map[string]*school.Enrollment
	credentials map[string]*school.Credential // keyed by profile id
}

func newSchoolTables() *schoolTables {
	return &schoolTables{
		students:    make(map[string]*school.Student),
		teachers:    make(map[string]*school.Teacher),
		parents:     make(map[string]*school.Parent),
		admins:      make(map[string]*school.Admin),
		accountants: make(map[string]*school.Accountant),
		classes:     make(map[string]*school.Class),
		lessons:     make(map[string]*school.LessonAssignment),
		enrollments: make(map[string]*school.Enrollment),
		credentials: make(map[string]*school.Credential),
	}
}

type schoolRepository struct {
	db *DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *DB) *schoolRepository {
	return &schoolRepository{db: db}
}

// Seed helpers let tests set up classes and lesson assignments directly.

func (repo *schoolRepository) SeedClass(cls school.Class) school.Class {
	repo.db.Lock()
	defer repo.db.Unlock()
	if cls.ID == "" {
		cls.ID = repo.db.nextPK("class")
	}
	repo.db.school.classes[cls.ID] = &cls
	return cls
}

func (repo *schoolRepository) SeedLesson(la school.LessonAssignment) school.LessonAssignment {
	repo.db.Lock()
	defer repo.db.Unlock()
	if la.ID == "" {
		la.ID = repo.db.nextPK("lesson")
	}
	repo.db.school.lessons[la.ID] = &la
	return la
}

func (repo *schoolRepository) GetStudent(ctx context.Context, id string) (school.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if std, ok := repo.db.school.students[id]; ok {
		return *std, nil
	}
	return school.Student{}, school.ErrNotFound
}

func (repo *schoolRepository) GetTeacher(ctx context.Context, id string) (school.Teacher, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if tch, ok := repo.db.school.teachers[id]; ok {
		return *tch, nil
	}
	return school.Teacher{}, school.ErrNotFound
}

func (repo *schoolRepository) GetParent(ctx context.Context, id string) (school.Parent, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if par, ok := repo.db.school.parents[id]; ok {
		return *par, nil
	}
	return school.Parent{}, school.ErrNotFound
}

func (repo *schoolRepository) GetAdmin(ctx context.Context, id string) (school.Admin, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if adm, ok := repo.db.school.admins[id]; ok {
		return *adm, nil
	}
	return school.Admin{}, school.ErrNotFound
}

func (repo *schoolRepository) GetAccountant(ctx context.Context, id string) (school.Accountant, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if acc, ok := repo.db.school.accountants[id]; ok {
		return *acc, nil
	}
	return school.Accountant{}, school.ErrNotFound
}

func (repo *schoolRepository) CreateStudent(ctx context.Context, std school.Student) (school.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.school.students[std.ID]; ok {
		return school.Student{}, school.ErrProfileIDExists
	}
	repo.db.school.students[std.ID] = &std
	return std, nil
}

func (repo *schoolRepository) CreateTeacher(ctx context.Context, tch school.Teacher) (school.Teacher, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.school.teachers[tch.ID]; ok {
		return school.Teacher{}, school.ErrProfileIDExists
	}
	repo.db.school.teachers[tch.ID] = &tch
	return tch, nil
}

func (repo *schoolRepository) CreateParent(ctx context.Context, par school.Parent) (school.Parent, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.school.parents[par.ID]; ok {
		return school.Parent{}, school.ErrProfileIDExists
	}
	repo.db.school.parents[par.ID] = &par
	return par, nil
}

func (repo *schoolRepository) CreateAdmin(ctx context.Context, adm school.Admin) (school.Admin, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.school.admins[adm.ID]; ok {
		return school.Admin{}, school.ErrProfileIDExists
	}
	repo.db.school.admins[adm.ID] = &adm
	return adm, nil
}

func (repo *schoolRepository) CreateAccountant(ctx context.Context, acc school.Accountant) (school.Accountant, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.school.accountants[acc.ID]; ok {
		return school.Accountant{}, school.ErrProfileIDExists
	}
	repo.db.school.accountants[acc.ID] = &acc
	return acc, nil
}

func (repo *schoolRepository) QueryStudentsByID(ctx context.Context, ids []string) ([]school.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	students := make([]school.Student, 0, len(ids))
	for _, id := range ids {
		if std, ok := repo.db.school.students[id]; ok {
			students = append(students, *std)
		}
	}
	sort.Slice(students, func(i, j int) bool { return students[i].StudentNo < students[j].StudentNo })
	return students, nil
}

func (repo *schoolRepository) StudentsByParent(ctx context.Context, parentID string) ([]school.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	students := make([]school.Student, 0)
	for _, std := range repo.db.school.students {
		if std.ParentID == parentID {
			students = append(students, *std)
		}
	}
	sort.Slice(students, func(i, j int) bool { return students[i].StudentNo < students[j].StudentNo })
	return students, nil
}

func (repo *schoolRepository) AllStudentIDs(ctx context.Context) ([]string, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	ids := make([]string, 0, len(repo.db.school.students))
	for id := range repo.db.school.students {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (repo *schoolRepository) GetClass(ctx context.Context, id string) (school.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if cls, ok := repo.db.school.classes[id]; ok {
		return *cls, nil
	}
	return school.Class{}, school.ErrNotFound
}

func (repo *schoolRepository) QueryClasses(ctx context.Context, yearID string) ([]school.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	classes := make([]school.Class, 0)
	for _, cls := range repo.db.school.classes {
		if yearID == "" || cls.YearID == yearID {
			classes = append(classes, *cls)
		}
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].Name < classes[j].Name })
	return classes, nil
}

func (repo *schoolRepository) ClassesByTeacher(ctx context.Context, teacherID string) ([]school.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	seen := make(map[string]bool)
	classes := make([]school.Class, 0)
	for _, cls := range repo.db.school.classes {
		if cls.SupervisorID == teacherID {
			classes = append(classes, *cls)
			seen[cls.ID] = true
		}
	}
	for _, la := range repo.db.school.lessons {
		if la.TeacherID != teacherID || seen[la.ClassID] {
			continue
		}
		if cls, ok := repo.db.school.classes[la.ClassID]; ok {
			classes = append(classes, *cls)
			seen[cls.ID] = true
		}
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].Name < classes[j].Name })
	return classes, nil
}

func (repo *schoolRepository) RosterStudentIDs(ctx context.Context, classIDs ...string) ([]string, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	wanted := make(map[string]bool, len(classIDs))
	for _, id := range classIDs {
		wanted[id] = true
	}
	seen := make(map[string]bool)
	ids := make([]string, 0)
	for _, enr := range repo.db.school.enrollments {
		if wanted[enr.ClassID] && enr.Current() && !seen[enr.StudentID] {
			ids = append(ids, enr.StudentID)
			seen[enr.StudentID] = true
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (repo *schoolRepository) EnrollmentsByStudent(ctx context.Context, studentID string) ([]school.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	enrs := make([]school.Enrollment, 0)
	for _, enr := range repo.db.school.enrollments {
		if enr.StudentID == studentID {
			enrs = append(enrs, *enr)
		}
	}
	sort.Slice(enrs, func(i, j int) bool { return enrs[i].JoinedAt.After(enrs[j].JoinedAt) })
	return enrs, nil
}

func (repo *schoolRepository) CurrentEnrollment(ctx context.Context, studentID, yearID string) (school.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	for _, enr := range repo.db.school.enrollments {
		if enr.StudentID == studentID && enr.YearID == yearID && enr.Current() {
			return *enr, nil
		}
	}
	return school.Enrollment{}, school.ErrNotFound
}

func (repo *schoolRepository) CreateEnrollment(ctx context.Context, enr school.Enrollment) (school.Enrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	enr.ID = repo.db.nextPK("enr")
	repo.db.school.enrollments[enr.ID] = &enr
	return enr, nil
}

func (repo *schoolRepository) CloseEnrollment(ctx context.Context, enrollmentID string, leftAt time.Time) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	enr, ok := repo.db.school.enrollments[enrollmentID]
	if !ok || !enr.Current() {
		return school.ErrNotFound
	}
	enr.LeftAt.SetValid(leftAt)
	return nil
}

func (repo *schoolRepository) GetCredentialByEmail(ctx context.Context, email string) (school.Credential, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	for _, cred := range repo.db.school.credentials {
		if cred.Email == email {
			return *cred, nil
		}
	}
	return school.Credential{}, school.ErrNotFound
}

func (repo *schoolRepository) GetCredential(ctx context.Context, profileID string) (school.Credential, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if cred, ok := repo.db.school.credentials[profileID]; ok {
		return *cred, nil
	}
	return school.Credential{}, school.ErrNotFound
}

func (repo *schoolRepository) UpsertCredential(ctx context.Context, cred school.Credential) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.school.credentials[cred.ProfileID] = &cred
	return nil
}

func (repo *schoolRepository) SetLastLogin(ctx context.Context, profileID string, at time.Time) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	if cred, ok := repo.db.school.credentials[profileID]; ok {
		cred.LastLogin = at
	}
	return nil
}
