package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/jbkiprop/studentos/core"
	"github.com/jbkiprop/studentos/core/course"
	"github.com/jbkiprop/studentos/core/user"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

// displayName must be called with at least the read lock held.
func (db *DB) displayName(userID int) string {
	if det, ok := db.details[userID]; ok && det.FullName != "" {
		return det.FullName
	}
	if usr, ok := db.users[userID]; ok {
		return usr.Username
	}
	return ""
}

func (repo *courseRepository) withTeacherName(c course.Course) course.Course {
	c.TeacherName = repo.db.displayName(c.TeacherID)
	return c
}

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course, exec ...core.DBExecutor) (course.Course, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	c.ID = repo.db.nextPK()
	repo.db.courses[c.ID] = &c
	return repo.withTeacherName(c), nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, id int) (course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if crs, ok := repo.db.courses[id]; ok {
		return repo.withTeacherName(*crs), nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, c course.Course) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	crs, ok := repo.db.courses[c.ID]
	if !ok {
		return course.ErrNotFound
	}
	crs.Name = c.Name
	crs.Schedule = c.Schedule
	return nil
}

func (repo *courseRepository) DeleteCourse(ctx context.Context, id int) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	delete(repo.db.courses, id)
	for key := range repo.db.enrollments {
		if key.courseID == id {
			delete(repo.db.enrollments, key)
		}
	}
	return nil
}

func (repo *courseRepository) queryCourses(match func(c course.Course) bool, search string) []course.Course {
	var courses []course.Course
	for _, crs := range repo.db.courses {
		if !match(*crs) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(crs.Name), strings.ToLower(search)) {
			continue
		}
		courses = append(courses, repo.withTeacherName(*crs))
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].Name < courses[j].Name })
	return courses
}

func (repo *courseRepository) QueryCoursesByTeacher(ctx context.Context, teacherID int, search string) ([]course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	return repo.queryCourses(func(c course.Course) bool { return c.TeacherID == teacherID }, search), nil
}

func (repo *courseRepository) QueryCoursesByStudent(ctx context.Context, studentID int, search string) ([]course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	return repo.queryCourses(func(c course.Course) bool {
		return repo.db.enrollments[enrollKey{studentID: studentID, courseID: c.ID}]
	}, search), nil
}

func (repo *courseRepository) QueryAllCourses(ctx context.Context, search string) ([]course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	return repo.queryCourses(func(course.Course) bool { return true }, search), nil
}

func (repo *courseRepository) CountCourses(ctx context.Context) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	return len(repo.db.courses), nil
}

func (repo *courseRepository) EnrollStudent(ctx context.Context, studentID, courseID int) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.enrollments[enrollKey{studentID: studentID, courseID: courseID}] = true
	return nil
}

func (repo *courseRepository) rosterRow(userID int) course.Roster {
	row := course.Roster{UserID: userID}
	if usr, ok := repo.db.users[userID]; ok {
		row.Username = usr.Username
	}
	if det, ok := repo.db.details[userID]; ok {
		row.FullName.SetValid(det.FullName)
	}
	return row
}

func (repo *courseRepository) QueryRoster(ctx context.Context, courseID int) ([]course.Roster, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var roster []course.Roster
	for key := range repo.db.enrollments {
		if key.courseID == courseID {
			roster = append(roster, repo.rosterRow(key.studentID))
		}
	}
	sort.Slice(roster, func(i, j int) bool { return roster[i].Username < roster[j].Username })
	return roster, nil
}

func (repo *courseRepository) QueryAvailableStudents(ctx context.Context, courseID int) ([]course.Roster, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var available []course.Roster
	for _, usr := range repo.db.users {
		if usr.Role != user.RoleStudent {
			continue
		}
		if repo.db.enrollments[enrollKey{studentID: usr.ID, courseID: courseID}] {
			continue
		}
		available = append(available, repo.rosterRow(usr.ID))
	}
	sort.Slice(available, func(i, j int) bool { return available[i].Username < available[j].Username })
	return available, nil
}

func (repo *courseRepository) CreateAssignment(ctx context.Context, a course.Assignment) (course.Assignment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	a.ID = repo.db.nextPK()
	a.CreatedAt = time.Now().UTC()
	repo.db.assignments[a.ID] = &a
	return a, nil
}

func (repo *courseRepository) GetAssignment(ctx context.Context, id int) (course.Assignment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if a, ok := repo.db.assignments[id]; ok {
		return *a, nil
	}
	return course.Assignment{}, course.ErrAssignmentNotFound
}

func (repo *courseRepository) QueryAssignmentsByCourse(ctx context.Context, courseID int) ([]course.Assignment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var assignments []course.Assignment
	for _, a := range repo.db.assignments {
		if a.CourseID == courseID {
			assignments = append(assignments, *a)
		}
	}
	sort.Slice(assignments, func(i, j int) bool { return assignments[i].CreatedAt.After(assignments[j].CreatedAt) })
	return assignments, nil
}

func (repo *courseRepository) CreateSubmission(ctx context.Context, s course.Submission) (course.Submission, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	s.ID = repo.db.nextPK()
	s.SubmittedAt = time.Now().UTC()
	repo.db.submissions[s.ID] = &s
	return s, nil
}

func (repo *courseRepository) GetSubmission(ctx context.Context, id int) (course.Submission, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if s, ok := repo.db.submissions[id]; ok {
		sub := *s
		sub.StudentName = repo.db.displayName(sub.StudentID)
		return sub, nil
	}
	return course.Submission{}, course.ErrSubmissionNotFound
}

func (repo *courseRepository) QuerySubmissionsByAssignment(ctx context.Context, assignmentID int) ([]course.Submission, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var subs []course.Submission
	for _, s := range repo.db.submissions {
		if s.AssignmentID == assignmentID {
			sub := *s
			sub.StudentName = repo.db.displayName(sub.StudentID)
			subs = append(subs, sub)
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].SubmittedAt.Before(subs[j].SubmittedAt) })
	return subs, nil
}

func (repo *courseRepository) SetSubmissionGrade(ctx context.Context, submissionID int, grade float64, feedback string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	s, ok := repo.db.submissions[submissionID]
	if !ok {
		return course.ErrSubmissionNotFound
	}
	s.Grade.SetValid(grade)
	s.Feedback.SetValid(feedback)
	return nil
}
