package school

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/shule/core"
)

// Profile records. Each internal ID equals the external identity id
// issued by the provider; records are created by administrative
// provisioning and must pre-exist before a caller can resolve.

type Student struct {
	ID        string    `json:"id" db:"id"`
	StudentNo string    `json:"student_no" db:"student_no"` // human-readable registration number
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	ParentID  string    `json:"parent_id" db:"parent_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"` // UTC
}

type Teacher struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Parent struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Phone     string    `json:"phone" db:"phone"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Admin struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Accountant struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type SchoolYear struct {
	ID       string    `json:"id" db:"id"`
	Name     string    `json:"name" db:"name"` // e.g. "2024-2025"
	StartsAt time.Time `json:"starts_at" db:"starts_at"`
	EndsAt   time.Time `json:"ends_at" db:"ends_at"`
}

// Class has exactly one supervising teacher; additional teachers hold
// lesson assignments against it.
type Class struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"` // e.g. "9A"
	YearID       string    `json:"year_id" db:"year_id"`
	SupervisorID string    `json:"supervisor_id" db:"supervisor_id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

type LessonAssignment struct {
	ID        string `json:"id" db:"id"`
	ClassID   string `json:"class_id" db:"class_id"`
	TeacherID string `json:"teacher_id" db:"teacher_id"`
	Subject   string `json:"subject" db:"subject"`
}

// Enrollment relates a student to a class for a school year. The current
// enrollment is the one with LeftAt unset; a student has at most one
// current enrollment per year.
type Enrollment struct {
	ID        string    `json:"id" db:"id"`
	StudentID string    `json:"student_id" db:"student_id"`
	ClassID   string    `json:"class_id" db:"class_id"`
	YearID    string    `json:"year_id" db:"year_id"`
	JoinedAt  time.Time `json:"joined_at" db:"joined_at"`
	LeftAt    null.Time `json:"left_at,omitempty" db:"left_at"`
}

func (e Enrollment) Current() bool { return !e.LeftAt.Valid }

// Credential is a local login credential for mobile clients, keyed by
// profile id. Web clients authenticate at the provider instead.
type Credential struct {
	ProfileID    string    `json:"profile_id" db:"profile_id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash []byte    `json:"-" db:"password_hash"`
	LastLogin    time.Time `json:"last_login" db:"last_login"` // UTC
}

func (c *Credential) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	c.PasswordHash = hash
	return nil
}

func (c *Credential) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(c.PasswordHash, []byte(pwd))
}

// NewStudent contains information needed to provision a Student.
type NewStudent struct {
	ID        string `json:"id" validate:"required"`
	StudentNo string `json:"student_no" validate:"required,alphanum_"`
	Name      string `json:"name" validate:"required"`
	Email     string `json:"email" validate:"omitempty,email"`
	ParentID  string `json:"parent_id" validate:"omitempty"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.ID = core.CleanString(ns.ID)
	ns.StudentNo = core.CleanString(ns.StudentNo, true /* lower */)
	ns.Name = core.CleanString(ns.Name)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	return validate.Struct(ns)
}

// NewStaff provisions a Teacher, Admin or Accountant record.
type NewStaff struct {
	ID    string `json:"id" validate:"required"`
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
}

func (ns *NewStaff) Validate(validate *validator.Validate) error {
	ns.ID = core.CleanString(ns.ID)
	ns.Name = core.CleanString(ns.Name)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	return validate.Struct(ns)
}

type NewEnrollment struct {
	StudentID string `json:"student_id" validate:"required"`
	ClassID   string `json:"class_id" validate:"required"`
	YearID    string `json:"year_id" validate:"required"`
}

func (ne *NewEnrollment) Validate(validate *validator.Validate) error {
	ne.StudentID = core.CleanString(ne.StudentID)
	ne.ClassID = core.CleanString(ne.ClassID)
	ne.YearID = core.CleanString(ne.YearID)
	return validate.Struct(ne)
}

