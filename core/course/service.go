package course

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/jbkiprop/studentos/core"
	"github.com/jbkiprop/studentos/core/user"
)

var (
	ErrNotFound           = errors.New("course not found")
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrAccessDenied       = errors.New("access denied")
	ErrNotATeacher        = errors.New("course owner must be a teacher")
	ErrNotAStudent        = errors.New("student not found")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, c Course, exec ...core.DBExecutor) (Course, error)
		GetCourse(ctx context.Context, id int) (Course, error)
		UpdateCourse(ctx context.Context, c Course) error
		DeleteCourse(ctx context.Context, id int) error
		QueryCoursesByTeacher(ctx context.Context, teacherID int, search string) ([]Course, error)
		QueryCoursesByStudent(ctx context.Context, studentID int, search string) ([]Course, error)
		QueryAllCourses(ctx context.Context, search string) ([]Course, error)
		CountCourses(ctx context.Context) (int, error)

		// EnrollStudent is insert-or-ignore on (student, course)
		EnrollStudent(ctx context.Context, studentID, courseID int) error
		QueryRoster(ctx context.Context, courseID int) ([]Roster, error)
		QueryAvailableStudents(ctx context.Context, courseID int) ([]Roster, error)

		CreateAssignment(ctx context.Context, a Assignment) (Assignment, error)
		GetAssignment(ctx context.Context, id int) (Assignment, error)
		QueryAssignmentsByCourse(ctx context.Context, courseID int) ([]Assignment, error)

		CreateSubmission(ctx context.Context, s Submission) (Submission, error)
		GetSubmission(ctx context.Context, id int) (Submission, error)
		QuerySubmissionsByAssignment(ctx context.Context, assignmentID int) ([]Submission, error)
		SetSubmissionGrade(ctx context.Context, submissionID int, grade float64, feedback string) error
	}

	// UserStore is the slice of the user repository enrollment needs.
	UserStore interface {
		GetUserByID(ctx context.Context, id int) (user.User, error)
		GetUserByUsername(ctx context.Context, username string) (user.User, error)
	}

	// Notifier appends to the user-scoped notification log.
	Notifier interface {
		Add(ctx context.Context, userID int, message, typ string) error
	}

	Service struct {
		repo     Repository
		users    UserStore
		notifier Notifier
		log      core.Logger
	}

	// Detail is the full course page payload.
	Detail struct {
		Course            Course       `json:"course"`
		Assignments       []Assignment `json:"assignments"`
		Roster            []Roster     `json:"roster"`
		AvailableStudents []Roster     `json:"available_students"`
	}
)

func NewService(repo Repository, users UserStore, notifier Notifier, log core.Logger) *Service {
	return &Service{repo: repo, users: users, notifier: notifier, log: log}
}

// CoursesFor lists courses scoped by role: teachers see the courses they own,
// students the courses they are enrolled in, admins everything.
func (svc *Service) CoursesFor(ctx context.Context, usr user.User, search string) ([]Course, error) {
	search = core.CleanString(search)
	switch usr.Role {
	case user.RoleTeacher:
		return svc.repo.QueryCoursesByTeacher(ctx, usr.ID, search)
	case user.RoleStudent:
		return svc.repo.QueryCoursesByStudent(ctx, usr.ID, search)
	case user.RoleAdmin:
		return svc.repo.QueryAllCourses(ctx, search)
	case user.RoleGroup:
		return nil, nil
	}
	return nil, nil
}

func (svc *Service) Count(ctx context.Context) (int, error) {
	return svc.repo.CountCourses(ctx)
}

// Get returns the course detail; a teacher may only open their own courses.
func (svc *Service) Get(ctx context.Context, actor user.User, courseID int) (Detail, error) {
	crs, err := svc.repo.GetCourse(ctx, courseID)
	if err != nil {
		return Detail{}, err
	}
	if actor.IsTeacher() && crs.TeacherID != actor.ID {
		return Detail{}, ErrAccessDenied
	}

	assignments, err := svc.repo.QueryAssignmentsByCourse(ctx, courseID)
	if err != nil {
		return Detail{}, errors.Wrap(err, "querying assignments")
	}
	roster, err := svc.repo.QueryRoster(ctx, courseID)
	if err != nil {
		return Detail{}, errors.Wrap(err, "querying roster")
	}
	available, err := svc.repo.QueryAvailableStudents(ctx, courseID)
	if err != nil {
		return Detail{}, errors.Wrap(err, "querying available students")
	}

	return Detail{Course: crs, Assignments: assignments, Roster: roster, AvailableStudents: available}, nil
}

// Create makes a course owned by a teacher. A teacher owns what they create;
// an admin must name the owning teacher, and the owner's role is enforced.
func (svc *Service) Create(ctx context.Context, actor user.User, nc NewCourse) (Course, error) {
	teacherID := actor.ID
	if actor.IsAdmin() {
		if nc.TeacherID != 0 {
			teacherID = nc.TeacherID
		}
		owner, err := svc.users.GetUserByID(ctx, teacherID)
		if err != nil {
			return Course{}, errors.Wrap(err, "finding course owner")
		}
		if !owner.IsTeacher() {
			return Course{}, ErrNotATeacher
		}
	} else if !actor.IsTeacher() {
		return Course{}, ErrAccessDenied
	}

	c := Course{
		Name:      nc.Name,
		Schedule:  null.NewString(nc.Schedule, nc.Schedule != ""),
		TeacherID: teacherID,
	}
	return svc.repo.CreateCourse(ctx, c)
}

func (svc *Service) canManage(actor user.User, crs Course) bool {
	return actor.IsAdmin() || crs.TeacherID == actor.ID
}

func (svc *Service) Update(ctx context.Context, actor user.User, courseID int, uc UpdateCourse) (Course, error) {
	crs, err := svc.repo.GetCourse(ctx, courseID)
	if err != nil {
		return Course{}, err
	}
	if !svc.canManage(actor, crs) {
		return Course{}, ErrAccessDenied
	}

	crs.Name = uc.Name
	crs.Schedule = null.NewString(uc.Schedule, uc.Schedule != "")
	if err := svc.repo.UpdateCourse(ctx, crs); err != nil {
		return Course{}, errors.Wrap(err, "updating course")
	}
	return crs, nil
}

func (svc *Service) Delete(ctx context.Context, actor user.User, courseID int) error {
	crs, err := svc.repo.GetCourse(ctx, courseID)
	if err != nil {
		return err
	}
	if !svc.canManage(actor, crs) {
		return ErrAccessDenied
	}
	return svc.repo.DeleteCourse(ctx, courseID)
}

// EnrollByUsername adds a student to the course roster. Enrolling twice is a
// no-op; exactly one enrollment row exists per (student, course).
func (svc *Service) EnrollByUsername(ctx context.Context, courseID int, username string) (user.User, error) {
	student, err := svc.users.GetUserByUsername(ctx, core.CleanString(username, true /* lower */))
	if err != nil || !student.IsStudent() {
		return user.User{}, ErrNotAStudent
	}
	if err := svc.repo.EnrollStudent(ctx, student.ID, courseID); err != nil {
		return user.User{}, errors.Wrap(err, "enrolling student")
	}
	return student, nil
}

func (svc *Service) AddAssignment(ctx context.Context, actor user.User, courseID int, na NewAssignment) (Assignment, error) {
	crs, err := svc.repo.GetCourse(ctx, courseID)
	if err != nil {
		return Assignment{}, err
	}
	if !svc.canManage(actor, crs) {
		return Assignment{}, ErrAccessDenied
	}

	a := Assignment{
		CourseID:       courseID,
		Title:          na.Title,
		Description:    null.NewString(na.Description, na.Description != ""),
		DueDate:        null.NewString(na.DueDate, na.DueDate != ""),
		AttachmentPath: null.NewString(na.AttachmentPath, na.AttachmentPath != ""),
		CreatedAt:      time.Now().UTC(),
	}
	return svc.repo.CreateAssignment(ctx, a)
}

func (svc *Service) GetAssignment(ctx context.Context, id int) (Assignment, error) {
	return svc.repo.GetAssignment(ctx, id)
}

// SubmitWork records a student's submission and notifies the course teacher.
func (svc *Service) SubmitWork(ctx context.Context, student user.User, courseID, assignmentID int, ns NewSubmission) (Submission, error) {
	s := Submission{
		AssignmentID:   assignmentID,
		StudentID:      student.ID,
		Content:        null.NewString(ns.Content, ns.Content != ""),
		AttachmentPath: null.NewString(ns.AttachmentPath, ns.AttachmentPath != ""),
		SubmittedAt:    time.Now().UTC(),
	}
	s, err := svc.repo.CreateSubmission(ctx, s)
	if err != nil {
		return Submission{}, errors.Wrap(err, "creating submission")
	}

	crs, err := svc.repo.GetCourse(ctx, courseID)
	if err != nil {
		return s, nil // submission stands even if the course row vanished
	}
	assign, err := svc.repo.GetAssignment(ctx, assignmentID)
	if err != nil {
		return s, nil
	}
	msg := fmt.Sprintf("New submission from %s for %s", student.Username, assign.Title)
	if err := svc.notifier.Add(ctx, crs.TeacherID, msg, "info"); err != nil {
		svc.log.Warn("notifying teacher of submission failed", err)
	}
	return s, nil
}

func (svc *Service) Submissions(ctx context.Context, assignmentID int) ([]Submission, error) {
	return svc.repo.QuerySubmissionsByAssignment(ctx, assignmentID)
}
