package academic

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/jbkiprop/studentos/core"
	"github.com/jbkiprop/studentos/core/course"
	"github.com/jbkiprop/studentos/core/user"
)

var (
	ErrGradeNotFound  = errors.New("grade not found")
	ErrRemarkNotFound = errors.New("remark not found")
)

type (
	Repository interface {
		InsertGrade(ctx context.Context, g Grade, exec ...core.DBExecutor) (Grade, error)
		GetGradeByKey(ctx context.Context, studentID, courseID int, gradeType string) (Grade, error)
		UpdateGradeScore(ctx context.Context, gradeID int, score float64, exec ...core.DBExecutor) error
		QueryGradesByStudent(ctx context.Context, studentID int) ([]Grade, error)
		QueryGradesByTeacher(ctx context.Context, teacherID int) ([]Grade, error)

		InsertAttendance(ctx context.Context, a Attendance) (Attendance, error)
		QueryAttendanceByStudent(ctx context.Context, studentID int) ([]Attendance, error)
		QueryAttendanceByTeacher(ctx context.Context, teacherID int) ([]Attendance, error)

		GetRemark(ctx context.Context, studentID int, term string) (Remark, error)
		InsertRemark(ctx context.Context, r Remark) (Remark, error)
		UpdateRemark(ctx context.Context, remarkID int, remarks, improvementAreas string) error
		LatestRemark(ctx context.Context, studentID int) (Remark, error)

		CourseAveragesByStudent(ctx context.Context, studentID int) ([]CourseAverage, error)
		CourseAveragesByTeacher(ctx context.Context, teacherID int) ([]CourseAverage, error)
		AttendanceCountsByStudent(ctx context.Context, studentID int) ([]StatusCount, error)
		AttendanceCountsByTeacher(ctx context.Context, teacherID int) ([]StatusCount, error)
		DistinctStudentCount(ctx context.Context, teacherID int) (int, error)
	}

	// SubmissionStore is the slice of the course repository the grading flow
	// needs.
	SubmissionStore interface {
		GetAssignment(ctx context.Context, id int) (course.Assignment, error)
		GetSubmission(ctx context.Context, id int) (course.Submission, error)
		SetSubmissionGrade(ctx context.Context, submissionID int, grade float64, feedback string) error
	}

	// Notifier appends to the user-scoped notification log.
	Notifier interface {
		Add(ctx context.Context, userID int, message, typ string) error
	}

	Service struct {
		repo     Repository
		subs     SubmissionStore
		notifier Notifier
		log      core.Logger
	}

	// StudentSummary backs the student dashboard cards.
	StudentSummary struct {
		GPA            float64         `json:"gpa"`
		CourseCount    int             `json:"course_count"`
		AttendanceRate string          `json:"attendance_rate"`
		Honors         bool            `json:"honors"`
		CourseAverages []CourseAverage `json:"course_averages"`
		StatusCounts   []StatusCount   `json:"status_counts"`
	}

	// TeacherSummary backs the teacher dashboard cards.
	TeacherSummary struct {
		ClassAverage   float64         `json:"class_average"`
		CourseCount    int             `json:"course_count"`
		StudentCount   int             `json:"student_count"`
		CourseAverages []CourseAverage `json:"course_averages"`
		StatusCounts   []StatusCount   `json:"status_counts"`
	}

	// ReportData is everything the report renderer needs for one student.
	ReportData struct {
		CourseAverages []CourseAverage
		StatusCounts   []StatusCount
		Remark         Remark
	}
)

func NewService(repo Repository, subs SubmissionStore, notifier Notifier, log core.Logger) *Service {
	return &Service{repo: repo, subs: subs, notifier: notifier, log: log}
}

func (svc *Service) AddGrade(ctx context.Context, ng NewGrade) (Grade, error) {
	g := Grade{
		StudentID: ng.StudentID,
		CourseID:  ng.CourseID,
		GradeType: ng.GradeType,
		Score:     ng.Score,
		CreatedAt: time.Now().UTC(),
	}
	return svc.repo.InsertGrade(ctx, g)
}

// GradesFor lists grades scoped by role: students see their own, teachers and
// admins see the grades of the courses they own.
func (svc *Service) GradesFor(ctx context.Context, usr user.User) ([]Grade, error) {
	switch usr.Role {
	case user.RoleStudent:
		return svc.repo.QueryGradesByStudent(ctx, usr.ID)
	case user.RoleTeacher, user.RoleAdmin:
		return svc.repo.QueryGradesByTeacher(ctx, usr.ID)
	case user.RoleGroup:
		return nil, nil
	}
	return nil, nil
}

func (svc *Service) LogAttendance(ctx context.Context, na NewAttendance) (Attendance, error) {
	a := Attendance{
		StudentID: na.StudentID,
		CourseID:  na.CourseID,
		Date:      na.Date,
		Status:    na.Status,
	}
	return svc.repo.InsertAttendance(ctx, a)
}

func (svc *Service) AttendanceFor(ctx context.Context, usr user.User) ([]Attendance, error) {
	switch usr.Role {
	case user.RoleStudent:
		return svc.repo.QueryAttendanceByStudent(ctx, usr.ID)
	case user.RoleTeacher, user.RoleAdmin:
		return svc.repo.QueryAttendanceByTeacher(ctx, usr.ID)
	case user.RoleGroup:
		return nil, nil
	}
	return nil, nil
}

// SaveRemark upserts the teacher's evaluation for (student, term). Concurrent
// saves are last-write-wins; there is no optimistic concurrency token.
func (svc *Service) SaveRemark(ctx context.Context, teacherID int, ur UpsertRemark) error {
	existing, err := svc.repo.GetRemark(ctx, ur.StudentID, ur.Term)
	if err != nil {
		if errors.Cause(err) != ErrRemarkNotFound {
			return errors.Wrap(err, "finding remark")
		}
		r := Remark{
			StudentID:        ur.StudentID,
			TeacherID:        teacherID,
			Term:             ur.Term,
			Remarks:          null.NewString(ur.Remarks, ur.Remarks != ""),
			ImprovementAreas: null.NewString(ur.ImprovementAreas, ur.ImprovementAreas != ""),
			CreatedAt:        time.Now().UTC(),
		}
		_, err = svc.repo.InsertRemark(ctx, r)
		return errors.Wrap(err, "inserting remark")
	}
	return errors.Wrap(
		svc.repo.UpdateRemark(ctx, existing.ID, ur.Remarks, ur.ImprovementAreas),
		"updating remark")
}

// GradeSubmission stores the grade on the submission and synchronizes it into
// the grade table under the "Assignment: <title>" label; grading the same
// work twice updates the one synchronized row instead of duplicating it. The
// student is notified.
func (svc *Service) GradeSubmission(ctx context.Context, assignmentID, submissionID int, gw GradeWork) error {
	sub, err := svc.subs.GetSubmission(ctx, submissionID)
	if err != nil {
		return errors.Wrap(err, "finding submission")
	}
	assign, err := svc.subs.GetAssignment(ctx, assignmentID)
	if err != nil {
		return errors.Wrap(err, "finding assignment")
	}

	if err := svc.subs.SetSubmissionGrade(ctx, submissionID, gw.Grade, gw.Feedback); err != nil {
		return errors.Wrap(err, "updating submission")
	}

	label := "Assignment: " + assign.Title
	existing, err := svc.repo.GetGradeByKey(ctx, sub.StudentID, assign.CourseID, label)
	if err != nil {
		if errors.Cause(err) != ErrGradeNotFound {
			return errors.Wrap(err, "finding synchronized grade")
		}
		g := Grade{
			StudentID: sub.StudentID,
			CourseID:  assign.CourseID,
			GradeType: label,
			Score:     gw.Grade,
			CreatedAt: time.Now().UTC(),
		}
		if _, err := svc.repo.InsertGrade(ctx, g); err != nil {
			return errors.Wrap(err, "inserting synchronized grade")
		}
	} else if err := svc.repo.UpdateGradeScore(ctx, existing.ID, gw.Grade); err != nil {
		return errors.Wrap(err, "updating synchronized grade")
	}

	msg := fmt.Sprintf("Your work for '%s' has been graded: %v%%", assign.Title, gw.Grade)
	if err := svc.notifier.Add(ctx, sub.StudentID, msg, "success"); err != nil {
		// the grade stands; a lost notification is not worth failing over
		svc.log.Warn("notifying student of grade failed", err)
	}
	return nil
}

func (svc *Service) StudentSummary(ctx context.Context, studentID int) (StudentSummary, error) {
	averages, err := svc.repo.CourseAveragesByStudent(ctx, studentID)
	if err != nil {
		return StudentSummary{}, errors.Wrap(err, "querying course averages")
	}
	counts, err := svc.repo.AttendanceCountsByStudent(ctx, studentID)
	if err != nil {
		return StudentSummary{}, errors.Wrap(err, "querying attendance counts")
	}

	gpa := CumulativeGPA(averages)
	return StudentSummary{
		GPA:            gpa,
		CourseCount:    len(averages),
		AttendanceRate: AttendanceRate(PresentCount(counts), TotalCount(counts)),
		Honors:         gpa >= 3.5,
		CourseAverages: averages,
		StatusCounts:   counts,
	}, nil
}

func (svc *Service) TeacherSummary(ctx context.Context, teacherID int) (TeacherSummary, error) {
	averages, err := svc.repo.CourseAveragesByTeacher(ctx, teacherID)
	if err != nil {
		return TeacherSummary{}, errors.Wrap(err, "querying course averages")
	}
	counts, err := svc.repo.AttendanceCountsByTeacher(ctx, teacherID)
	if err != nil {
		return TeacherSummary{}, errors.Wrap(err, "querying attendance counts")
	}
	students, err := svc.repo.DistinctStudentCount(ctx, teacherID)
	if err != nil {
		return TeacherSummary{}, errors.Wrap(err, "counting students")
	}

	return TeacherSummary{
		ClassAverage:   ClassAverage(averages),
		CourseCount:    len(averages),
		StudentCount:   students,
		CourseAverages: averages,
		StatusCounts:   counts,
	}, nil
}

// StudentReportData assembles the aggregation inputs for one report card.
// Missing grades, attendance or remarks yield empty sections, never an error.
func (svc *Service) StudentReportData(ctx context.Context, studentID int) (ReportData, error) {
	averages, err := svc.repo.CourseAveragesByStudent(ctx, studentID)
	if err != nil {
		return ReportData{}, errors.Wrap(err, "querying course averages")
	}
	counts, err := svc.repo.AttendanceCountsByStudent(ctx, studentID)
	if err != nil {
		return ReportData{}, errors.Wrap(err, "querying attendance counts")
	}
	remark, err := svc.repo.LatestRemark(ctx, studentID)
	if err != nil && errors.Cause(err) != ErrRemarkNotFound {
		return ReportData{}, errors.Wrap(err, "querying latest remark")
	}

	return ReportData{CourseAverages: averages, StatusCounts: counts, Remark: remark}, nil
}
