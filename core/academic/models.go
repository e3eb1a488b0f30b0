package academic

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/jbkiprop/studentos/core"
)

// AttendanceStatus is the closed set of attendance log states.
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "Present"
	StatusAbsent  AttendanceStatus = "Absent"
	StatusLate    AttendanceStatus = "Late"
)

var Statuses = []AttendanceStatus{StatusPresent, StatusAbsent, StatusLate}

func (s AttendanceStatus) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate:
		return true
	}
	return false
}

type Grade struct {
	ID        int       `json:"id" db:"id"`
	StudentID int       `json:"student_id" db:"student_id"`
	CourseID  int       `json:"course_id" db:"course_id"`
	GradeType string    `json:"grade_type" db:"grade_type"`
	Score     float64   `json:"score" db:"score"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// joined display fields, filled by listing queries
	CourseName  string `json:"course_name,omitempty" db:"course_name"`
	StudentName string `json:"student_name,omitempty" db:"student_name"`
}

type Attendance struct {
	ID        int              `json:"id" db:"id"`
	StudentID int              `json:"student_id" db:"student_id"`
	CourseID  int              `json:"course_id" db:"course_id"`
	Date      string           `json:"date" db:"date"`
	Status    AttendanceStatus `json:"status" db:"status"`

	CourseName  string `json:"course_name,omitempty" db:"course_name"`
	StudentName string `json:"student_name,omitempty" db:"student_name"`
}

type Remark struct {
	ID               int         `json:"id" db:"id"`
	StudentID        int         `json:"student_id" db:"student_id"`
	TeacherID        int         `json:"teacher_id" db:"teacher_id"`
	Term             string      `json:"term" db:"term"`
	Remarks          null.String `json:"remarks" db:"remarks"`
	ImprovementAreas null.String `json:"improvement_areas" db:"improvement_areas"`
	CreatedAt        time.Time   `json:"created_at" db:"created_at"`
}

// CourseAverage is one row of the per-course AVG(score) aggregation.
type CourseAverage struct {
	CourseID int     `json:"course_id" db:"course_id"`
	Course   string  `json:"course" db:"course"`
	Average  float64 `json:"average" db:"average"`
}

// StatusCount is one row of the attendance GROUP BY status aggregation.
type StatusCount struct {
	Status AttendanceStatus `json:"status" db:"status"`
	Count  int              `json:"count" db:"count"`
}

type NewGrade struct {
	StudentID int     `json:"student_id" validate:"required"`
	CourseID  int     `json:"course_id" validate:"required"`
	GradeType string  `json:"grade_type" validate:"required"`
	Score     float64 `json:"score" validate:"scorerange"`
}

func (ng *NewGrade) Validate() error {
	ng.GradeType = core.CleanString(ng.GradeType)
	return core.Validate.Struct(ng)
}

type NewAttendance struct {
	StudentID int              `json:"student_id" validate:"required"`
	CourseID  int              `json:"course_id" validate:"required"`
	Date      string           `json:"date" validate:"required"`
	Status    AttendanceStatus `json:"status" validate:"required,oneof=Present Absent Late"`
}

func (na *NewAttendance) Validate() error { return core.Validate.Struct(na) }

// UpsertRemark carries a teacher's per-term evaluation; at most one remark
// exists per (student, term).
type UpsertRemark struct {
	StudentID        int    `json:"student_id" validate:"required"`
	Term             string `json:"term"`
	Remarks          string `json:"remarks"`
	ImprovementAreas string `json:"improvement_areas"`
}

func (ur *UpsertRemark) Validate() error {
	ur.Term = core.CleanString(ur.Term)
	if ur.Term == "" {
		ur.Term = "Term 1"
	}
	return core.Validate.Struct(ur)
}

// GradeWork grades a submission; the score is synchronized into the grade
// table under a label derived from the assignment title.
type GradeWork struct {
	Grade    float64 `json:"grade" validate:"scorerange"`
	Feedback string  `json:"feedback"`
}

func (gw *GradeWork) Validate() error { return core.Validate.Struct(gw) }
