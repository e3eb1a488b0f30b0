package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/jbkiprop/studentos/core"
	"github.com/jbkiprop/studentos/core/academic"
)

type academicRepository struct {
	db *DB
}

var _ academic.Repository = (*academicRepository)(nil) // interface compliance check

func NewAcademicRepository(db *DB) *academicRepository {
	return &academicRepository{db: db}
}

// courseName must be called with at least the read lock held.
func (db *DB) courseName(courseID int) string {
	if crs, ok := db.courses[courseID]; ok {
		return crs.Name
	}
	return ""
}

// teacherOwns must be called with at least the read lock held.
func (db *DB) teacherOwns(teacherID, courseID int) bool {
	crs, ok := db.courses[courseID]
	return ok && crs.TeacherID == teacherID
}

func (repo *academicRepository) InsertGrade(ctx context.Context, g academic.Grade, exec ...core.DBExecutor) (academic.Grade, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	g.ID = repo.db.nextPK()
	g.CreatedAt = time.Now().UTC()
	repo.db.grades[g.ID] = &g
	return g, nil
}

func (repo *academicRepository) GetGradeByKey(ctx context.Context, studentID, courseID int, gradeType string) (academic.Grade, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, g := range repo.db.grades {
		if g.StudentID == studentID && g.CourseID == courseID && g.GradeType == gradeType {
			return *g, nil
		}
	}
	return academic.Grade{}, academic.ErrGradeNotFound
}

func (repo *academicRepository) UpdateGradeScore(ctx context.Context, gradeID int, score float64, exec ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	g, ok := repo.db.grades[gradeID]
	if !ok {
		return academic.ErrGradeNotFound
	}
	g.Score = score
	return nil
}

func (repo *academicRepository) queryGrades(match func(g academic.Grade) bool) []academic.Grade {
	var grades []academic.Grade
	for _, g := range repo.db.grades {
		if !match(*g) {
			continue
		}
		grade := *g
		grade.CourseName = repo.db.courseName(grade.CourseID)
		grade.StudentName = repo.db.displayName(grade.StudentID)
		grades = append(grades, grade)
	}
	sort.Slice(grades, func(i, j int) bool { return grades[i].CreatedAt.After(grades[j].CreatedAt) })
	return grades
}

func (repo *academicRepository) QueryGradesByStudent(ctx context.Context, studentID int) ([]academic.Grade, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	return repo.queryGrades(func(g academic.Grade) bool { return g.StudentID == studentID }), nil
}

func (repo *academicRepository) QueryGradesByTeacher(ctx context.Context, teacherID int) ([]academic.Grade, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	return repo.queryGrades(func(g academic.Grade) bool { return repo.db.teacherOwns(teacherID, g.CourseID) }), nil
}

func (repo *academicRepository) InsertAttendance(ctx context.Context, a academic.Attendance) (academic.Attendance, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	a.ID = repo.db.nextPK()
	repo.db.attendance[a.ID] = &a
	return a, nil
}

func (repo *academicRepository) queryAttendance(match func(a academic.Attendance) bool) []academic.Attendance {
	var entries []academic.Attendance
	for _, a := range repo.db.attendance {
		if !match(*a) {
			continue
		}
		entry := *a
		entry.CourseName = repo.db.courseName(entry.CourseID)
		entry.StudentName = repo.db.displayName(entry.StudentID)
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Date != entries[j].Date {
			return entries[i].Date > entries[j].Date
		}
		return entries[i].ID > entries[j].ID
	})
	return entries
}

func (repo *academicRepository) QueryAttendanceByStudent(ctx context.Context, studentID int) ([]academic.Attendance, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	return repo.queryAttendance(func(a academic.Attendance) bool { return a.StudentID == studentID }), nil
}

func (repo *academicRepository) QueryAttendanceByTeacher(ctx context.Context, teacherID int) ([]academic.Attendance, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	return repo.queryAttendance(func(a academic.Attendance) bool { return repo.db.teacherOwns(teacherID, a.CourseID) }), nil
}

func (repo *academicRepository) GetRemark(ctx context.Context, studentID int, term string) (academic.Remark, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, r := range repo.db.remarks {
		if r.StudentID == studentID && r.Term == term {
			return *r, nil
		}
	}
	return academic.Remark{}, academic.ErrRemarkNotFound
}

func (repo *academicRepository) InsertRemark(ctx context.Context, r academic.Remark) (academic.Remark, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	r.ID = repo.db.nextPK()
	r.CreatedAt = time.Now().UTC()
	repo.db.remarks[r.ID] = &r
	return r, nil
}

func (repo *academicRepository) UpdateRemark(ctx context.Context, remarkID int, remarks, improvementAreas string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	r, ok := repo.db.remarks[remarkID]
	if !ok {
		return academic.ErrRemarkNotFound
	}
	r.Remarks.SetValid(remarks)
	r.ImprovementAreas.SetValid(improvementAreas)
	return nil
}

func (repo *academicRepository) LatestRemark(ctx context.Context, studentID int) (academic.Remark, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var latest *academic.Remark
	for _, r := range repo.db.remarks {
		if r.StudentID != studentID {
			continue
		}
		if latest == nil || r.CreatedAt.After(latest.CreatedAt) {
			latest = r
		}
	}
	if latest == nil {
		return academic.Remark{}, academic.ErrRemarkNotFound
	}
	return *latest, nil
}

func (repo *academicRepository) courseAverages(match func(g academic.Grade) bool) []academic.CourseAverage {
	sums := make(map[int]float64)
	counts := make(map[int]int)
	for _, g := range repo.db.grades {
		if !match(*g) {
			continue
		}
		sums[g.CourseID] += g.Score
		counts[g.CourseID]++
	}

	var averages []academic.CourseAverage
	for courseID, sum := range sums {
		averages = append(averages, academic.CourseAverage{
			CourseID: courseID,
			Course:   repo.db.courseName(courseID),
			Average:  sum / float64(counts[courseID]),
		})
	}
	sort.Slice(averages, func(i, j int) bool { return averages[i].Course < averages[j].Course })
	return averages
}

func (repo *academicRepository) CourseAveragesByStudent(ctx context.Context, studentID int) ([]academic.CourseAverage, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	return repo.courseAverages(func(g academic.Grade) bool { return g.StudentID == studentID }), nil
}

func (repo *academicRepository) CourseAveragesByTeacher(ctx context.Context, teacherID int) ([]academic.CourseAverage, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	return repo.courseAverages(func(g academic.Grade) bool { return repo.db.teacherOwns(teacherID, g.CourseID) }), nil
}

func (repo *academicRepository) AttendanceCountsByStudent(ctx context.Context, studentID int) ([]academic.StatusCount, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	return repo.statusCounts(func(a academic.Attendance) bool { return a.StudentID == studentID }), nil
}

func (repo *academicRepository) AttendanceCountsByTeacher(ctx context.Context, teacherID int) ([]academic.StatusCount, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	return repo.statusCounts(func(a academic.Attendance) bool { return repo.db.teacherOwns(teacherID, a.CourseID) }), nil
}

func (repo *academicRepository) statusCounts(match func(a academic.Attendance) bool) []academic.StatusCount {
	byStatus := make(map[academic.AttendanceStatus]int)
	for _, a := range repo.db.attendance {
		if match(*a) {
			byStatus[a.Status]++
		}
	}
	var counts []academic.StatusCount
	for _, status := range academic.Statuses {
		if n, ok := byStatus[status]; ok {
			counts = append(counts, academic.StatusCount{Status: status, Count: n})
		}
	}
	return counts
}

func (repo *academicRepository) DistinctStudentCount(ctx context.Context, teacherID int) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	students := make(map[int]bool)
	for key := range repo.db.enrollments {
		if repo.db.teacherOwns(teacherID, key.courseID) {
			students[key.studentID] = true
		}
	}
	return len(students), nil
}
