package course

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/jbkiprop/studentos/core"
)

type Course struct {
	ID        int         `json:"id" db:"id"`
	Name      string      `json:"name" db:"name"`
	Schedule  null.String `json:"schedule" db:"schedule"`
	TeacherID int         `json:"teacher_id" db:"teacher_id"`

	// joined display field, filled by listing queries
	TeacherName string `json:"teacher_name,omitempty" db:"teacher_name"`
}

type Assignment struct {
	ID             int         `json:"id" db:"id"`
	CourseID       int         `json:"course_id" db:"course_id"`
	Title          string      `json:"title" db:"title"`
	Description    null.String `json:"description" db:"description"`
	DueDate        null.String `json:"due_date" db:"due_date"`
	AttachmentPath null.String `json:"attachment_path" db:"attachment_path"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
}

type Submission struct {
	ID             int          `json:"id" db:"id"`
	AssignmentID   int          `json:"assignment_id" db:"assignment_id"`
	StudentID      int          `json:"student_id" db:"student_id"`
	Content        null.String  `json:"content" db:"content"`
	AttachmentPath null.String  `json:"attachment_path" db:"attachment_path"`
	Grade          null.Float64 `json:"grade" db:"grade"`
	Feedback       null.String  `json:"feedback" db:"feedback"`
	SubmittedAt    time.Time    `json:"submitted_at" db:"submitted_at"`

	StudentName string `json:"student_name,omitempty" db:"student_name"`
}

// Roster is a student row on the course detail page.
type Roster struct {
	UserID   int         `json:"user_id" db:"user_id"`
	Username string      `json:"username" db:"username"`
	FullName null.String `json:"full_name" db:"full_name"`
}

type NewCourse struct {
	Name     string `json:"name" validate:"required"`
	Schedule string `json:"schedule"`
	// TeacherID is only honored when an admin creates the course; a teacher
	// always owns the courses they create.
	TeacherID int `json:"teacher_id"`
}

func (nc *NewCourse) Validate() error {
	nc.Name = core.CleanString(nc.Name)
	nc.Schedule = core.CleanString(nc.Schedule)
	return core.Validate.Struct(nc)
}

type UpdateCourse struct {
	Name     string `json:"name" validate:"required"`
	Schedule string `json:"schedule"`
}

func (uc *UpdateCourse) Validate() error {
	uc.Name = core.CleanString(uc.Name)
	uc.Schedule = core.CleanString(uc.Schedule)
	return core.Validate.Struct(uc)
}

type NewAssignment struct {
	Title          string `json:"title" validate:"required"`
	Description    string `json:"description"`
	DueDate        string `json:"due_date"`
	AttachmentPath string `json:"-"`
}

func (na *NewAssignment) Validate() error {
	na.Title = core.CleanString(na.Title)
	return core.Validate.Struct(na)
}

type NewSubmission struct {
	Content        string `json:"content"`
	AttachmentPath string `json:"-"`
}
