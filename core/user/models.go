package user

import (
	"fmt"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/jbkiprop/studentos/core"
)

// Role is the closed set of account roles. It is fixed at account creation.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"

	// RoleGroup marks the sentinel broadcast-channel account (GroupUserID).
	RoleGroup Role = "group"
)

// GroupUserID is the sentinel recipient representing the shared broadcast
// channel. The row is seeded by migration and must exist before any broadcast
// message is inserted.
const GroupUserID = 0

// Roles are the roles a real account may claim at login.
var Roles = []Role{RoleStudent, RoleTeacher, RoleAdmin}

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin, RoleGroup:
		return true
	}
	return false
}

// Title returns the role capitalized for user-facing messages.
func (r Role) Title() string {
	if r == "" {
		return ""
	}
	return strings.ToUpper(string(r[0])) + string(r[1:])
}

type User struct {
	ID           int       `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash []byte    `json:"-" db:"password_hash"`
	Role         Role      `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
	LastLogin    null.Time `json:"last_login" db:"last_login"`
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsStudent() bool { return u.Role == RoleStudent }
func (u *User) IsTeacher() bool { return u.Role == RoleTeacher }
func (u *User) IsAdmin() bool   { return u.Role == RoleAdmin }

// AdmissionNumber derives a student's admission number from their user ID.
// It is assigned once at enrollment and never recomputed.
func AdmissionNumber(userID int) string {
	return fmt.Sprintf("ADM%04d", userID)
}

// StudentDetails is the 1:1 extension of a student account.
type StudentDetails struct {
	UserID          int         `json:"user_id" db:"user_id"`
	FullName        string      `json:"full_name" db:"full_name"`
	Email           string      `json:"email" db:"email"`
	Mobile          null.String `json:"mobile" db:"mobile"`
	DOB             null.String `json:"dob" db:"dob"`
	Gender          null.String `json:"gender" db:"gender"`
	Address         null.String `json:"address" db:"address"`
	GuardianName    null.String `json:"guardian_name" db:"guardian_name"`
	GuardianMobile  null.String `json:"guardian_mobile" db:"guardian_mobile"`
	GuardianEmail   null.String `json:"guardian_email" db:"guardian_email"`
	AdmissionNumber string      `json:"admission_number" db:"admission_number"`
}

// StudentRecord is the admissions listing row: account, details and the
// comma-separated names of the courses the student is enrolled in.
type StudentRecord struct {
	User    User           `json:"user"`
	Details StudentDetails `json:"details"`
	Courses string         `json:"courses"`
}

// Credentials are generated at enrollment and emailed to the student.
type Credentials struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	AdmissionNumber string `json:"admission_number"`
}

// NewStudent contains the admissions form data needed to enroll a student.
type NewStudent struct {
	FullName       string `json:"full_name" validate:"required"`
	Email          string `json:"email" validate:"required,email"`
	Mobile         string `json:"mobile"`
	DOB            string `json:"dob"`
	Gender         string `json:"gender"`
	Address        string `json:"address"`
	GuardianName   string `json:"guardian_name"`
	GuardianMobile string `json:"guardian_mobile"`
	GuardianEmail  string `json:"guardian_email" validate:"omitempty,email"`
}

func (ns *NewStudent) Validate() error {
	ns.FullName = core.CleanString(ns.FullName)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.GuardianEmail = core.CleanString(ns.GuardianEmail, true /* lower */)
	return core.Validate.Struct(ns)
}

// UpdateStudentDetails defines what admissions staff may change after
// enrollment. Username, role and admission number are immutable.
type UpdateStudentDetails struct {
	FullName       string `json:"full_name" validate:"required"`
	Email          string `json:"email" validate:"required,email"`
	Mobile         string `json:"mobile"`
	DOB            string `json:"dob"`
	Gender         string `json:"gender"`
	Address        string `json:"address"`
	GuardianName   string `json:"guardian_name"`
	GuardianMobile string `json:"guardian_mobile"`
	GuardianEmail  string `json:"guardian_email" validate:"omitempty,email"`
}

func (ud *UpdateStudentDetails) Validate() error {
	ud.FullName = core.CleanString(ud.FullName)
	ud.Email = core.CleanString(ud.Email, true /* lower */)
	ud.GuardianEmail = core.CleanString(ud.GuardianEmail, true /* lower */)
	return core.Validate.Struct(ud)
}
