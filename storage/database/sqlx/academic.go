package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/jbkiprop/studentos/core"
	"github.com/jbkiprop/studentos/core/academic"
)

type academicRepository struct {
	exec core.DBExecutor
}

var _ academic.Repository = (*academicRepository)(nil) // interface compliance check

func NewAcademicRepository(exec core.DBExecutor) *academicRepository {
	return &academicRepository{exec: exec}
}

func (repo academicRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func (repo academicRepository) InsertGrade(ctx context.Context, g academic.Grade, exec ...core.DBExecutor) (academic.Grade, error) {
	query := `
INSERT INTO grade (student_id, course_id, grade_type, score)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at`
	rows, err := repo.getExec(exec).QueryxContext(ctx, query, g.StudentID, g.CourseID, g.GradeType, g.Score)
	if err != nil {
		return academic.Grade{}, errors.Wrap(err, "inserting grade")
	}
	defer func() { _ = rows.Close() }()
	if rows.Next() {
		if err = rows.Scan(&g.ID, &g.CreatedAt); err != nil {
			return academic.Grade{}, errors.Wrap(err, "inserting grade")
		}
	}
	return g, errors.Wrap(rows.Err(), "inserting grade")
}

func (repo academicRepository) GetGradeByKey(ctx context.Context, studentID, courseID int, gradeType string) (academic.Grade, error) {
	var g academic.Grade
	err := repo.exec.GetContext(ctx, &g,
		`SELECT * FROM grade WHERE student_id = $1 AND course_id = $2 AND grade_type = $3`,
		studentID, courseID, gradeType)
	if err != nil {
		return academic.Grade{}, trapNoRowsErr(err, academic.ErrGradeNotFound, "finding grade")
	}
	return g, nil
}

func (repo academicRepository) UpdateGradeScore(ctx context.Context, gradeID int, score float64, exec ...core.DBExecutor) error {
	res, err := repo.getExec(exec).ExecContext(ctx, `UPDATE grade SET score = $2 WHERE id = $1`, gradeID, score)
	if err != nil {
		return errors.Wrap(err, "updating grade score")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return academic.ErrGradeNotFound
	}
	return nil
}

const gradeJoins = `
FROM grade g
JOIN course c ON c.id = g.course_id
JOIN user_account u ON u.id = g.student_id
LEFT JOIN student_details d ON d.user_id = u.id`

const gradeCols = `
g.id, g.student_id, g.course_id, g.grade_type, g.score, g.created_at,
c.name AS course_name, COALESCE(d.full_name, u.username) AS student_name`

func (repo academicRepository) QueryGradesByStudent(ctx context.Context, studentID int) ([]academic.Grade, error) {
	var grades []academic.Grade
	err := repo.exec.SelectContext(ctx, &grades,
		`SELECT `+gradeCols+gradeJoins+` WHERE g.student_id = $1 ORDER BY g.created_at DESC`, studentID)
	return grades, errors.Wrap(err, "querying grades by student")
}

func (repo academicRepository) QueryGradesByTeacher(ctx context.Context, teacherID int) ([]academic.Grade, error) {
	var grades []academic.Grade
	err := repo.exec.SelectContext(ctx, &grades,
		`SELECT `+gradeCols+gradeJoins+` WHERE c.teacher_id = $1 ORDER BY g.created_at DESC`, teacherID)
	return grades, errors.Wrap(err, "querying grades by teacher")
}

func (repo academicRepository) InsertAttendance(ctx context.Context, a academic.Attendance) (academic.Attendance, error) {
	query := `
INSERT INTO attendance (student_id, course_id, date, status)
VALUES ($1, $2, $3, $4)
RETURNING id`
	err := repo.exec.GetContext(ctx, &a.ID, query, a.StudentID, a.CourseID, a.Date, a.Status)
	return a, errors.Wrap(err, "inserting attendance")
}

const attendanceJoins = `
FROM attendance a
JOIN course c ON c.id = a.course_id
JOIN user_account u ON u.id = a.student_id
LEFT JOIN student_details d ON d.user_id = u.id`

const attendanceCols = `
a.id, a.student_id, a.course_id, a.date, a.status,
c.name AS course_name, COALESCE(d.full_name, u.username) AS student_name`

func (repo academicRepository) QueryAttendanceByStudent(ctx context.Context, studentID int) ([]academic.Attendance, error) {
	var entries []academic.Attendance
	err := repo.exec.SelectContext(ctx, &entries,
		`SELECT `+attendanceCols+attendanceJoins+` WHERE a.student_id = $1 ORDER BY a.date DESC, a.id DESC`, studentID)
	return entries, errors.Wrap(err, "querying attendance by student")
}

func (repo academicRepository) QueryAttendanceByTeacher(ctx context.Context, teacherID int) ([]academic.Attendance, error) {
	var entries []academic.Attendance
	err := repo.exec.SelectContext(ctx, &entries,
		`SELECT `+attendanceCols+attendanceJoins+` WHERE c.teacher_id = $1 ORDER BY a.date DESC, a.id DESC`, teacherID)
	return entries, errors.Wrap(err, "querying attendance by teacher")
}

func (repo academicRepository) GetRemark(ctx context.Context, studentID int, term string) (academic.Remark, error) {
	var r academic.Remark
	err := repo.exec.GetContext(ctx, &r,
		`SELECT * FROM remark WHERE student_id = $1 AND term = $2`, studentID, term)
	if err != nil {
		return academic.Remark{}, trapNoRowsErr(err, academic.ErrRemarkNotFound, "finding remark")
	}
	return r, nil
}

func (repo academicRepository) InsertRemark(ctx context.Context, r academic.Remark) (academic.Remark, error) {
	query := `
INSERT INTO remark (student_id, teacher_id, term, remarks, improvement_areas)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, created_at`
	rows, err := repo.exec.QueryxContext(ctx, query, r.StudentID, r.TeacherID, r.Term, r.Remarks, r.ImprovementAreas)
	if err != nil {
		return academic.Remark{}, errors.Wrap(err, "inserting remark")
	}
	defer func() { _ = rows.Close() }()
	if rows.Next() {
		if err = rows.Scan(&r.ID, &r.CreatedAt); err != nil {
			return academic.Remark{}, errors.Wrap(err, "inserting remark")
		}
	}
	return r, errors.Wrap(rows.Err(), "inserting remark")
}

func (repo academicRepository) UpdateRemark(ctx context.Context, remarkID int, remarks, improvementAreas string) error {
	res, err := repo.exec.ExecContext(ctx,
		`UPDATE remark SET remarks = $2, improvement_areas = $3 WHERE id = $1`,
		remarkID, remarks, improvementAreas)
	if err != nil {
		return errors.Wrap(err, "updating remark")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return academic.ErrRemarkNotFound
	}
	return nil
}

func (repo academicRepository) LatestRemark(ctx context.Context, studentID int) (academic.Remark, error) {
	var r academic.Remark
	err := repo.exec.GetContext(ctx, &r,
		`SELECT * FROM remark WHERE student_id = $1 ORDER BY created_at DESC LIMIT 1`, studentID)
	if err != nil {
		return academic.Remark{}, trapNoRowsErr(err, academic.ErrRemarkNotFound, "finding latest remark")
	}
	return r, nil
}

func (repo academicRepository) CourseAveragesByStudent(ctx context.Context, studentID int) ([]academic.CourseAverage, error) {
	query := `
SELECT c.id AS course_id, c.name AS course, AVG(g.score) AS average
FROM grade g
JOIN course c ON c.id = g.course_id
WHERE g.student_id = $1
GROUP BY c.id
ORDER BY c.name`
	var averages []academic.CourseAverage
	err := repo.exec.SelectContext(ctx, &averages, query, studentID)
	return averages, errors.Wrap(err, "querying course averages")
}

func (repo academicRepository) CourseAveragesByTeacher(ctx context.Context, teacherID int) ([]academic.CourseAverage, error) {
	query := `
SELECT c.id AS course_id, c.name AS course, AVG(g.score) AS average
FROM grade g
JOIN course c ON c.id = g.course_id
WHERE c.teacher_id = $1
GROUP BY c.id
ORDER BY c.name`
	var averages []academic.CourseAverage
	err := repo.exec.SelectContext(ctx, &averages, query, teacherID)
	return averages, errors.Wrap(err, "querying course averages")
}

func (repo academicRepository) AttendanceCountsByStudent(ctx context.Context, studentID int) ([]academic.StatusCount, error) {
	query := `SELECT status, COUNT(*) AS count FROM attendance WHERE student_id = $1 GROUP BY status`
	var counts []academic.StatusCount
	err := repo.exec.SelectContext(ctx, &counts, query, studentID)
	return counts, errors.Wrap(err, "querying attendance counts")
}

func (repo academicRepository) AttendanceCountsByTeacher(ctx context.Context, teacherID int) ([]academic.StatusCount, error) {
	query := `
SELECT a.status, COUNT(*) AS count
FROM attendance a
JOIN course c ON c.id = a.course_id
WHERE c.teacher_id = $1
GROUP BY a.status`
	var counts []academic.StatusCount
	err := repo.exec.SelectContext(ctx, &counts, query, teacherID)
	return counts, errors.Wrap(err, "querying attendance counts")
}

func (repo academicRepository) DistinctStudentCount(ctx context.Context, teacherID int) (int, error) {
	query := `
SELECT COUNT(DISTINCT e.student_id)
FROM enrollment e
JOIN course c ON c.id = e.course_id
WHERE c.teacher_id = $1`
	var count int
	err := repo.exec.GetContext(ctx, &count, query, teacherID)
	return count, errors.Wrap(err, "counting students")
}
