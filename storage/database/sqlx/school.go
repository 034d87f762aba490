package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/school"
)

type schoolRepository struct {
	db *sqlx.DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *sqlx.DB) *schoolRepository {
	return &schoolRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to school.ErrNotFound
func trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return school.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo schoolRepository) GetStudent(ctx context.Context, id string) (school.Student, error) {
	var std school.Student
	if err := repo.db.GetContext(ctx, &std, `SELECT * FROM student WHERE id = $1`, id); err != nil {
		return school.Student{}, trapNoRowsErr(err, "getting student")
	}
	return std, nil
}

func (repo schoolRepository) GetTeacher(ctx context.Context, id string) (school.Teacher, error) {
	var tch school.Teacher
	if err := repo.db.GetContext(ctx, &tch, `SELECT * FROM teacher WHERE id = $1`, id); err != nil {
		return school.Teacher{}, trapNoRowsErr(err, "getting teacher")
	}
	return tch, nil
}

func (repo schoolRepository) GetParent(ctx context.Context, id string) (school.Parent, error) {
	var par school.Parent
	if err := repo.db.GetContext(ctx, &par, `SELECT * FROM parent WHERE id = $1`, id); err != nil {
		return school.Parent{}, trapNoRowsErr(err, "getting parent")
	}
	return par, nil
}

func (repo schoolRepository) GetAdmin(ctx context.Context, id string) (school.Admin, error) {
	var adm school.Admin
	if err := repo.db.GetContext(ctx, &adm, `SELECT * FROM admin WHERE id = $1`, id); err != nil {
		return school.Admin{}, trapNoRowsErr(err, "getting admin")
	}
	return adm, nil
}

func (repo schoolRepository) GetAccountant(ctx context.Context, id string) (school.Accountant, error) {
	var acc school.Accountant
	if err := repo.db.GetContext(ctx, &acc, `SELECT * FROM accountant WHERE id = $1`, id); err != nil {
		return school.Accountant{}, trapNoRowsErr(err, "getting accountant")
	}
	return acc, nil
}

func (repo schoolRepository) CreateStudent(ctx context.Context, std school.Student) (school.Student, error) {
	_, err := repo.db.NamedExecContext(ctx,
		`INSERT INTO student (id, student_no, name, email, parent_id, created_at, updated_at)
		 VALUES (:id, :student_no, :name, :email, :parent_id, :created_at, :updated_at)`, std)
	if err != nil {
		return school.Student{}, errors.Wrap(err, "inserting student")
	}
	return std, nil
}

func (repo schoolRepository) CreateTeacher(ctx context.Context, tch school.Teacher) (school.Teacher, error) {
	_, err := repo.db.NamedExecContext(ctx,
		`INSERT INTO teacher (id, name, email, created_at, updated_at)
		 VALUES (:id, :name, :email, :created_at, :updated_at)`, tch)
	if err != nil {
		return school.Teacher{}, errors.Wrap(err, "inserting teacher")
	}
	return tch, nil
}

func (repo schoolRepository) CreateParent(ctx context.Context, par school.Parent) (school.Parent, error) {
	_, err := repo.db.NamedExecContext(ctx,
		`INSERT INTO parent (id, name, email, phone, created_at, updated_at)
		 VALUES (:id, :name, :email, :phone, :created_at, :updated_at)`, par)
	if err != nil {
		return school.Parent{}, errors.Wrap(err, "inserting parent")
	}
	return par, nil
}

func (repo schoolRepository) CreateAdmin(ctx context.Context, adm school.Admin) (school.Admin, error) {
	_, err := repo.db.NamedExecContext(ctx,
		`INSERT INTO admin (id, name, email, created_at, updated_at)
		 VALUES (:id, :name, :email, :created_at, :updated_at)`, adm)
	if err != nil {
		return school.Admin{}, errors.Wrap(err, "inserting admin")
	}
	return adm, nil
}

func (repo schoolRepository) CreateAccountant(ctx context.Context, acc school.Accountant) (school.Accountant, error) {
	_, err := repo.db.NamedExecContext(ctx,
		`INSERT INTO accountant (id, name, email, created_at, updated_at)
		 VALUES (:id, :name, :email, :created_at, :updated_at)`, acc)
	if err != nil {
		return school.Accountant{}, errors.Wrap(err, "inserting accountant")
	}
	return acc, nil
}

func (repo schoolRepository) QueryStudentsByID(ctx context.Context, ids []string) ([]school.Student, error) {
	students := make([]school.Student, 0, len(ids))
	if len(ids) == 0 {
		return students, nil
	}
	query, args, err := sqlx.In(`SELECT * FROM student WHERE id IN (?) ORDER BY student_no`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "building student query")
	}
	if err = repo.db.SelectContext(ctx, &students, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	return students, nil
}

func (repo schoolRepository) StudentsByParent(ctx context.Context, parentID string) ([]school.Student, error) {
	students := make([]school.Student, 0)
	err := repo.db.SelectContext(ctx, &students,
		`SELECT * FROM student WHERE parent_id = $1 ORDER BY student_no`, parentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying students by parent")
	}
	return students, nil
}

func (repo schoolRepository) AllStudentIDs(ctx context.Context) ([]string, error) {
	ids := make([]string, 0)
	if err := repo.db.SelectContext(ctx, &ids, `SELECT id FROM student ORDER BY id`); err != nil {
		return nil, errors.Wrap(err, "querying student ids")
	}
	return ids, nil
}

func (repo schoolRepository) GetClass(ctx context.Context, id string) (school.Class, error) {
	var cls school.Class
	if err := repo.db.GetContext(ctx, &cls, `SELECT * FROM class WHERE id = $1`, id); err != nil {
		return school.Class{}, trapNoRowsErr(err, "getting class")
	}
	return cls, nil
}

func (repo schoolRepository) QueryClasses(ctx context.Context, yearID string) ([]school.Class, error) {
	classes := make([]school.Class, 0)
	query, args := `SELECT * FROM class ORDER BY name`, []interface{}{}
	if yearID != "" {
		query, args = `SELECT * FROM class WHERE year_id = $1 ORDER BY name`, []interface{}{yearID}
	}
	if err := repo.db.SelectContext(ctx, &classes, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	return classes, nil
}

func (repo schoolRepository) ClassesByTeacher(ctx context.Context, teacherID string) ([]school.Class, error) {
	classes := make([]school.Class, 0)
	err := repo.db.SelectContext(ctx, &classes,
		`SELECT DISTINCT c.* FROM class c
		 LEFT JOIN lesson_assignment la ON la.class_id = c.id
		 WHERE c.supervisor_id = $1 OR la.teacher_id = $1
		 ORDER BY c.name`, teacherID)
	if err != nil {
		return nil, errors.Wrap(err, "querying classes by teacher")
	}
	return classes, nil
}

func (repo schoolRepository) RosterStudentIDs(ctx context.Context, classIDs ...string) ([]string, error) {
	ids := make([]string, 0)
	if len(classIDs) == 0 {
		return ids, nil
	}
	query, args, err := sqlx.In(
		`SELECT DISTINCT student_id FROM enrollment WHERE class_id IN (?) AND left_at IS NULL`, classIDs)
	if err != nil {
		return nil, errors.Wrap(err, "building roster query")
	}
	if err = repo.db.SelectContext(ctx, &ids, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying roster ids")
	}
	return ids, nil
}

func (repo schoolRepository) EnrollmentsByStudent(ctx context.Context, studentID string) ([]school.Enrollment, error) {
	enrs := make([]school.Enrollment, 0)
	err := repo.db.SelectContext(ctx, &enrs,
		`SELECT * FROM enrollment WHERE student_id = $1 ORDER BY joined_at DESC`, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	return enrs, nil
}

func (repo schoolRepository) CurrentEnrollment(ctx context.Context, studentID, yearID string) (school.Enrollment, error) {
	var enr school.Enrollment
	err := repo.db.GetContext(ctx, &enr,
		`SELECT * FROM enrollment WHERE student_id = $1 AND year_id = $2 AND left_at IS NULL`, studentID, yearID)
	if err != nil {
		return school.Enrollment{}, trapNoRowsErr(err, "getting current enrollment")
	}
	return enr, nil
}

func (repo schoolRepository) CreateEnrollment(ctx context.Context, enr school.Enrollment) (school.Enrollment, error) {
	enr.ID = uuid.New().String()
	_, err := repo.db.NamedExecContext(ctx,
		`INSERT INTO enrollment (id, student_id, class_id, year_id, joined_at, left_at)
		 VALUES (:id, :student_id, :class_id, :year_id, :joined_at, :left_at)`, enr)
	if err != nil {
		return school.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return enr, nil
}

func (repo schoolRepository) CloseEnrollment(ctx context.Context, enrollmentID string, leftAt time.Time) error {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE enrollment SET left_at = $1 WHERE id = $2 AND left_at IS NULL`, leftAt, enrollmentID)
	if err != nil {
		return errors.Wrap(err, "closing enrollment")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return school.ErrNotFound
	}
	return nil
}

func (repo schoolRepository) GetCredentialByEmail(ctx context.Context, email string) (school.Credential, error) {
	var cred school.Credential
	if err := repo.db.GetContext(ctx, &cred, `SELECT * FROM credential WHERE email = $1`, email); err != nil {
		return school.Credential{}, trapNoRowsErr(err, "getting credential by email")
	}
	return cred, nil
}

func (repo schoolRepository) GetCredential(ctx context.Context, profileID string) (school.Credential, error) {
	var cred school.Credential
	if err := repo.db.GetContext(ctx, &cred, `SELECT * FROM credential WHERE profile_id = $1`, profileID); err != nil {
		return school.Credential{}, trapNoRowsErr(err, "getting credential")
	}
	return cred, nil
}

func (repo schoolRepository) UpsertCredential(ctx context.Context, cred school.Credential) error {
	_, err := repo.db.NamedExecContext(ctx,
		`INSERT INTO credential (profile_id, email, password_hash)
		 VALUES (:profile_id, :email, :password_hash)
		 ON CONFLICT (profile_id) DO UPDATE SET email = EXCLUDED.email, password_hash = EXCLUDED.password_hash`, cred)
	return errors.Wrap(err, "upserting credential")
}

func (repo schoolRepository) SetLastLogin(ctx context.Context, profileID string, at time.Time) error {
	_, err := repo.db.ExecContext(ctx,
		`UPDATE credential SET last_login = $1 WHERE profile_id = $2`, at, profileID)
	return errors.Wrap(err, "setting last login")
}
