package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/jbkiprop/studentos/core"
	"github.com/jbkiprop/studentos/core/academic"
	"github.com/jbkiprop/studentos/core/course"
	"github.com/jbkiprop/studentos/core/user"
)

// NewLogger returns a logger that swallows everything. Tests that care about
// log output should use their own spy instead.
func NewLogger() core.Logger { return nopLogger{} }

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	uname, pwd string,
	role user.Role,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Username:  uname,
		Role:      role,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser(): %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	return usr
}

// CreateStudent creates a student account along with its details row, the way
// admissions does.
func CreateStudent(
	t *testing.T,
	repo user.Repository,
	uname, pwd, fullName, email string,
) (user.User, user.StudentDetails) {
	t.Helper()

	usr := CreateUser(t, repo, uname, pwd, user.RoleStudent)
	det := user.StudentDetails{
		UserID:          usr.ID,
		FullName:        fullName,
		Email:           email,
		AdmissionNumber: user.AdmissionNumber(usr.ID),
	}
	det, err := repo.CreateStudentDetails(context.Background(), det)
	if err != nil {
		t.Fatalf("CreateStudent(): %v", err)
	}
	return usr, det
}

func CreateCourse(t *testing.T, repo course.Repository, name string, teacherID int) course.Course {
	t.Helper()

	crs, err := repo.CreateCourse(context.Background(), course.Course{Name: name, TeacherID: teacherID})
	if err != nil {
		t.Fatalf("CreateCourse(): %v", err)
	}
	return crs
}

func EnrollStudent(t *testing.T, repo course.Repository, studentID, courseID int) {
	t.Helper()

	if err := repo.EnrollStudent(context.Background(), studentID, courseID); err != nil {
		t.Fatalf("EnrollStudent(): %v", err)
	}
}

func CreateGrade(
	t *testing.T,
	repo academic.Repository,
	studentID, courseID int,
	gradeType string,
	score float64,
) academic.Grade {
	t.Helper()

	g, err := repo.InsertGrade(context.Background(), academic.Grade{
		StudentID: studentID,
		CourseID:  courseID,
		GradeType: gradeType,
		Score:     score,
	})
	if err != nil {
		t.Fatalf("CreateGrade(): %v", err)
	}
	return g
}

func CreateAttendance(
	t *testing.T,
	repo academic.Repository,
	studentID, courseID int,
	date string,
	status academic.AttendanceStatus,
) academic.Attendance {
	t.Helper()

	a, err := repo.InsertAttendance(context.Background(), academic.Attendance{
		StudentID: studentID,
		CourseID:  courseID,
		Date:      date,
		Status:    status,
	})
	if err != nil {
		t.Fatalf("CreateAttendance(): %v", err)
	}
	return a
}
