package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/jbkiprop/studentos/core"
	"github.com/jbkiprop/studentos/core/course"
)

type courseRepository struct {
	exec core.DBExecutor
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(exec core.DBExecutor) *courseRepository {
	return &courseRepository{exec: exec}
}

func (repo courseRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

const courseCols = `
c.id, c.name, c.schedule, c.teacher_id,
COALESCE(d.full_name, t.username) AS teacher_name`

const courseJoins = `
FROM course c
JOIN user_account t ON t.id = c.teacher_id
LEFT JOIN student_details d ON d.user_id = t.id`

func (repo courseRepository) CreateCourse(ctx context.Context, c course.Course, exec ...core.DBExecutor) (course.Course, error) {
	query := `INSERT INTO course (name, schedule, teacher_id) VALUES ($1, $2, $3) RETURNING id`
	err := repo.getExec(exec).GetContext(ctx, &c.ID, query, c.Name, c.Schedule, c.TeacherID)
	return c, errors.Wrap(err, "inserting course")
}

func (repo courseRepository) GetCourse(ctx context.Context, id int) (course.Course, error) {
	var c course.Course
	err := repo.exec.GetContext(ctx, &c, `SELECT `+courseCols+courseJoins+` WHERE c.id = $1`, id)
	if err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "finding course")
	}
	return c, nil
}

func (repo courseRepository) UpdateCourse(ctx context.Context, c course.Course) error {
	res, err := repo.exec.ExecContext(ctx,
		`UPDATE course SET name = $2, schedule = $3 WHERE id = $1`, c.ID, c.Name, c.Schedule)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.ErrNotFound
	}
	return nil
}

func (repo courseRepository) DeleteCourse(ctx context.Context, id int) error {
	_, err := repo.exec.ExecContext(ctx, `DELETE FROM course WHERE id = $1`, id)
	return errors.Wrap(err, "deleting course")
}

func (repo courseRepository) QueryCoursesByTeacher(ctx context.Context, teacherID int, search string) ([]course.Course, error) {
	query := `SELECT ` + courseCols + courseJoins + `
WHERE c.teacher_id = $1 AND ($2 = '' OR c.name ILIKE '%' || $2 || '%')
ORDER BY c.name`
	var courses []course.Course
	err := repo.exec.SelectContext(ctx, &courses, query, teacherID, search)
	return courses, errors.Wrap(err, "querying courses by teacher")
}

func (repo courseRepository) QueryCoursesByStudent(ctx context.Context, studentID int, search string) ([]course.Course, error) {
	query := `SELECT ` + courseCols + courseJoins + `
JOIN enrollment e ON e.course_id = c.id
WHERE e.student_id = $1 AND ($2 = '' OR c.name ILIKE '%' || $2 || '%')
ORDER BY c.name`
	var courses []course.Course
	err := repo.exec.SelectContext(ctx, &courses, query, studentID, search)
	return courses, errors.Wrap(err, "querying courses by student")
}

func (repo courseRepository) QueryAllCourses(ctx context.Context, search string) ([]course.Course, error) {
	query := `SELECT ` + courseCols + courseJoins + `
WHERE $1 = '' OR c.name ILIKE '%' || $1 || '%'
ORDER BY c.name`
	var courses []course.Course
	err := repo.exec.SelectContext(ctx, &courses, query, search)
	return courses, errors.Wrap(err, "querying courses")
}

func (repo courseRepository) CountCourses(ctx context.Context) (int, error) {
	var n int
	err := repo.exec.GetContext(ctx, &n, `SELECT count(*) FROM course`)
	return n, errors.Wrap(err, "counting courses")
}

func (repo courseRepository) EnrollStudent(ctx context.Context, studentID, courseID int) error {
	_, err := repo.exec.ExecContext(ctx,
		`INSERT INTO enrollment (student_id, course_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		studentID, courseID)
	return errors.Wrap(err, "enrolling student")
}

func (repo courseRepository) QueryRoster(ctx context.Context, courseID int) ([]course.Roster, error) {
	query := `
SELECT u.id AS user_id, u.username, d.full_name
FROM enrollment e
JOIN user_account u ON u.id = e.student_id
LEFT JOIN student_details d ON d.user_id = u.id
WHERE e.course_id = $1
ORDER BY u.username`
	var roster []course.Roster
	err := repo.exec.SelectContext(ctx, &roster, query, courseID)
	return roster, errors.Wrap(err, "querying roster")
}

func (repo courseRepository) QueryAvailableStudents(ctx context.Context, courseID int) ([]course.Roster, error) {
	query := `
SELECT u.id AS user_id, u.username, d.full_name
FROM user_account u
LEFT JOIN student_details d ON d.user_id = u.id
WHERE u.role = 'student'
  AND u.id NOT IN (SELECT student_id FROM enrollment WHERE course_id = $1)
ORDER BY u.username`
	var available []course.Roster
	err := repo.exec.SelectContext(ctx, &available, query, courseID)
	return available, errors.Wrap(err, "querying available students")
}

func (repo courseRepository) CreateAssignment(ctx context.Context, a course.Assignment) (course.Assignment, error) {
	query := `
INSERT INTO assignment (course_id, title, description, due_date, attachment_path)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, created_at`
	rows, err := repo.exec.QueryxContext(ctx, query, a.CourseID, a.Title, a.Description, a.DueDate, a.AttachmentPath)
	if err != nil {
		return course.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	defer func() { _ = rows.Close() }()
	if rows.Next() {
		if err = rows.Scan(&a.ID, &a.CreatedAt); err != nil {
			return course.Assignment{}, errors.Wrap(err, "inserting assignment")
		}
	}
	return a, errors.Wrap(rows.Err(), "inserting assignment")
}

func (repo courseRepository) GetAssignment(ctx context.Context, id int) (course.Assignment, error) {
	var a course.Assignment
	err := repo.exec.GetContext(ctx, &a, `SELECT * FROM assignment WHERE id = $1`, id)
	if err != nil {
		return course.Assignment{}, trapNoRowsErr(err, course.ErrAssignmentNotFound, "finding assignment")
	}
	return a, nil
}

func (repo courseRepository) QueryAssignmentsByCourse(ctx context.Context, courseID int) ([]course.Assignment, error) {
	var assignments []course.Assignment
	err := repo.exec.SelectContext(ctx, &assignments,
		`SELECT * FROM assignment WHERE course_id = $1 ORDER BY created_at DESC`, courseID)
	return assignments, errors.Wrap(err, "querying assignments")
}

func (repo courseRepository) CreateSubmission(ctx context.Context, s course.Submission) (course.Submission, error) {
	query := `
INSERT INTO submission (assignment_id, student_id, content, attachment_path)
VALUES ($1, $2, $3, $4)
RETURNING id, submitted_at`
	rows, err := repo.exec.QueryxContext(ctx, query, s.AssignmentID, s.StudentID, s.Content, s.AttachmentPath)
	if err != nil {
		return course.Submission{}, errors.Wrap(err, "inserting submission")
	}
	defer func() { _ = rows.Close() }()
	if rows.Next() {
		if err = rows.Scan(&s.ID, &s.SubmittedAt); err != nil {
			return course.Submission{}, errors.Wrap(err, "inserting submission")
		}
	}
	return s, errors.Wrap(rows.Err(), "inserting submission")
}

func (repo courseRepository) GetSubmission(ctx context.Context, id int) (course.Submission, error) {
	query := `
SELECT s.*, COALESCE(d.full_name, u.username) AS student_name
FROM submission s
JOIN user_account u ON u.id = s.student_id
LEFT JOIN student_details d ON d.user_id = u.id
WHERE s.id = $1`
	var s course.Submission
	err := repo.exec.GetContext(ctx, &s, query, id)
	if err != nil {
		return course.Submission{}, trapNoRowsErr(err, course.ErrSubmissionNotFound, "finding submission")
	}
	return s, nil
}

func (repo courseRepository) QuerySubmissionsByAssignment(ctx context.Context, assignmentID int) ([]course.Submission, error) {
	query := `
SELECT s.*, COALESCE(d.full_name, u.username) AS student_name
FROM submission s
JOIN user_account u ON u.id = s.student_id
LEFT JOIN student_details d ON d.user_id = u.id
WHERE s.assignment_id = $1
ORDER BY s.submitted_at`
	var subs []course.Submission
	err := repo.exec.SelectContext(ctx, &subs, query, assignmentID)
	return subs, errors.Wrap(err, "querying submissions")
}

func (repo courseRepository) SetSubmissionGrade(ctx context.Context, submissionID int, grade float64, feedback string) error {
	res, err := repo.exec.ExecContext(ctx,
		`UPDATE submission SET grade = $2, feedback = $3 WHERE id = $1`, submissionID, grade, feedback)
	if err != nil {
		return errors.Wrap(err, "grading submission")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.ErrSubmissionNotFound
	}
	return nil
}
