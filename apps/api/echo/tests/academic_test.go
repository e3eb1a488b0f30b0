package tests

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jbkiprop/studentos/core/academic"
	"github.com/jbkiprop/studentos/core/course"
	"github.com/jbkiprop/studentos/core/messaging"
	"github.com/jbkiprop/studentos/core/report"
	"github.com/jbkiprop/studentos/core/user"
	"github.com/jbkiprop/studentos/tests"
)

func Test_academicApi_grades(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "mrsmith", "s3cr3tPwd!", user.RoleTeacher)
	student, _ := testutil.CreateStudent(t, usrRepo, "janedoe1234", "", "Jane Doe", "jane@test.cd")
	crs := testutil.CreateCourse(t, courseRepo, "Biology", teacher.ID)
	testutil.EnrollStudent(t, courseRepo, student.ID, crs.ID)

	grade := func(score float64) []byte {
		return marchallObj(t, academic.NewGrade{StudentID: student.ID, CourseID: crs.ID, GradeType: "Exam 1", Score: score})
	}

	tests := []httpTest{
		{name: "Auth required", method: http.MethodPost, body: grade(88), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Teacher required", method: http.MethodPost, body: grade(88), token: getToken(t, student), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{
			name: "score is bounded", method: http.MethodPost, body: grade(110), token: getToken(t, teacher),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"score":"must be between 0 and 100"}`),
		},
		{name: "Graded", method: http.MethodPost, body: grade(88), token: getToken(t, teacher), wantCode: http.StatusCreated},
		{name: "Student sees own grades", method: http.MethodGet, token: getToken(t, student), extra: 1},
		{name: "Teacher sees course grades", method: http.MethodGet, token: getToken(t, teacher), extra: 1},
	}
	for _, tt := range tests {
		tt.path = "/v1/grades"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if wantLen, ok := tt.extra.(int); ok {
				if rec.Code != http.StatusOK {
					t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
				}
				var grades []academic.Grade
				if err := json.Unmarshal(rec.Body.Bytes(), &grades); err != nil {
					t.Fatalf("json.Unmarshal(): %v", err)
				}
				if len(grades) != wantLen {
					t.Fatalf("failed! %d grades; want %d", len(grades), wantLen)
				}
				if grades[0].Score != 88 || grades[0].CourseName != "Biology" {
					t.Errorf("failed! grade = %+v", grades[0])
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_academicApi_attendance(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "mrsmith", "s3cr3tPwd!", user.RoleTeacher)
	student, _ := testutil.CreateStudent(t, usrRepo, "janedoe1234", "", "Jane Doe", "jane@test.cd")
	crs := testutil.CreateCourse(t, courseRepo, "Biology", teacher.ID)
	testutil.EnrollStudent(t, courseRepo, student.ID, crs.ID)

	entry := func(status academic.AttendanceStatus) []byte {
		return marchallObj(t, academic.NewAttendance{StudentID: student.ID, CourseID: crs.ID, Date: "2026-09-01", Status: status})
	}

	tests := []httpTest{
		{name: "Teacher required", method: http.MethodPost, body: entry(academic.StatusPresent), token: getToken(t, student), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "Status is a closed set", method: http.MethodPost, body: entry("Sleeping"), token: getToken(t, teacher), wantCode: http.StatusBadRequest},
		{name: "Logged", method: http.MethodPost, body: entry(academic.StatusLate), token: getToken(t, teacher), wantCode: http.StatusCreated},
		{name: "Student sees own log", method: http.MethodGet, token: getToken(t, student), extra: 1},
	}
	for _, tt := range tests {
		tt.path = "/v1/attendance"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if wantLen, ok := tt.extra.(int); ok {
				if rec.Code != http.StatusOK {
					t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
				}
				var entries []academic.Attendance
				if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
					t.Fatalf("json.Unmarshal(): %v", err)
				}
				if len(entries) != wantLen || entries[0].Status != academic.StatusLate {
					t.Errorf("failed! entries = %+v", entries)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_academicApi_saveRemark(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "mrsmith", "s3cr3tPwd!", user.RoleTeacher)
	student, _ := testutil.CreateStudent(t, usrRepo, "janedoe1234", "", "Jane Doe", "jane@test.cd")
	teacherToken := getToken(t, teacher)

	body := func(remarks string) []byte {
		return marchallObj(t, academic.UpsertRemark{StudentID: student.ID, Term: "Term 2", Remarks: remarks, ImprovementAreas: "Algebra"})
	}

	tests := []httpTest{
		{name: "Teacher required", body: body("x"), token: getToken(t, student), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "Created", body: body("Solid term"), token: teacherToken, wantCode: http.StatusNoContent},
		{name: "Saving again for the same term overwrites", body: body("Stellar term"), token: teacherToken, wantCode: http.StatusNoContent},
	}
	for _, tt := range tests {
		tt.method = http.MethodPut
		tt.path = "/v1/remarks"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	// one remark per (student, term), holding the last write
	remark, err := acadRepo.GetRemark(context.Background(), student.ID, "Term 2")
	if err != nil {
		t.Fatalf("GetRemark(): %v", err)
	}
	if remark.Remarks.String != "Stellar term" || remark.TeacherID != teacher.ID {
		t.Errorf("failed! remark = %+v", remark)
	}
}

func Test_academicApi_gradeSubmission(t *testing.T) {
	app := setup(t)
	ctx := context.Background()

	teacher := testutil.CreateUser(t, usrRepo, "mrsmith", "s3cr3tPwd!", user.RoleTeacher)
	student, _ := testutil.CreateStudent(t, usrRepo, "janedoe1234", "", "Jane Doe", "jane@test.cd")
	crs := testutil.CreateCourse(t, courseRepo, "Biology", teacher.ID)
	testutil.EnrollStudent(t, courseRepo, student.ID, crs.ID)

	assign, err := courseRepo.CreateAssignment(ctx, course.Assignment{CourseID: crs.ID, Title: "Cell Essay", CreatedAt: time.Now().UTC()})
	if err != nil {
		t.Fatalf("CreateAssignment(): %v", err)
	}
	sub, err := courseRepo.CreateSubmission(ctx, course.Submission{AssignmentID: assign.ID, StudentID: student.ID, SubmittedAt: time.Now().UTC()})
	if err != nil {
		t.Fatalf("CreateSubmission(): %v", err)
	}

	teacherToken := getToken(t, teacher)
	path := fmt.Sprintf("/v1/submissions/%d/grade", sub.ID)
	body := func(grade float64) []byte {
		return marchallObj(t, map[string]interface{}{"assignment_id": assign.ID, "grade": grade, "feedback": "ok"})
	}

	tests := []httpTest{
		{name: "Teacher required", body: body(80), token: getToken(t, student), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "Unknown submission", path: "/v1/submissions/999/grade", body: body(80), token: teacherToken, wantCode: http.StatusNotFound},
		{name: "Graded", body: body(80), token: teacherToken, wantCode: http.StatusNoContent},
		{name: "Regrading updates in place", body: body(91), token: teacherToken, wantCode: http.StatusNoContent},
	}
	for _, tt := range tests {
		tt.method = http.MethodPut
		if tt.path == "" {
			tt.path = path
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	// the grade lands on the submission
	graded, err := courseRepo.GetSubmission(ctx, sub.ID)
	if err != nil {
		t.Fatalf("GetSubmission(): %v", err)
	}
	if !graded.Grade.Valid || graded.Grade.Float64 != 91 {
		t.Errorf("failed! submission grade = %+v", graded.Grade)
	}

	// and is synchronized into exactly one grade row under the assignment label
	synced, err := acadRepo.GetGradeByKey(ctx, student.ID, crs.ID, "Assignment: Cell Essay")
	if err != nil {
		t.Fatalf("GetGradeByKey(): %v", err)
	}
	if synced.Score != 91 {
		t.Errorf("failed! synced score = %v; want 91", synced.Score)
	}
	grades, err := acadRepo.QueryGradesByStudent(ctx, student.ID)
	if err != nil {
		t.Fatalf("QueryGradesByStudent(): %v", err)
	}
	if len(grades) != 1 {
		t.Errorf("failed! %d grade rows; want 1", len(grades))
	}

	// the student was notified of both gradings
	notifs, err := notifSvc.Latest(ctx, student.ID, 0)
	if err != nil {
		t.Fatalf("Latest(): %v", err)
	}
	if len(notifs) != 2 || !strings.Contains(notifs[0].Message, "Cell Essay") {
		t.Errorf("failed! notifications = %+v", notifs)
	}
}

func Test_academicApi_dashboard(t *testing.T) {
	app := setup(t)
	ctx := context.Background()

	teacher := testutil.CreateUser(t, usrRepo, "mrsmith", "s3cr3tPwd!", user.RoleTeacher)
	student, _ := testutil.CreateStudent(t, usrRepo, "janedoe1234", "", "Jane Doe", "jane@test.cd")
	bio := testutil.CreateCourse(t, courseRepo, "Biology", teacher.ID)
	chem := testutil.CreateCourse(t, courseRepo, "Chemistry", teacher.ID)
	testutil.EnrollStudent(t, courseRepo, student.ID, bio.ID)
	testutil.EnrollStudent(t, courseRepo, student.ID, chem.ID)

	testutil.CreateGrade(t, acadRepo, student.ID, bio.ID, "Exam 1", 95)
	testutil.CreateGrade(t, acadRepo, student.ID, chem.ID, "Exam 1", 72)
	testutil.CreateAttendance(t, acadRepo, student.ID, bio.ID, "2026-09-01", academic.StatusPresent)
	testutil.CreateAttendance(t, acadRepo, student.ID, bio.ID, "2026-09-02", academic.StatusPresent)
	testutil.CreateAttendance(t, acadRepo, student.ID, bio.ID, "2026-09-03", academic.StatusAbsent)

	// one unread direct message for the student
	if err := msgRepo.InsertMessage(ctx, &messaging.Message{SenderID: teacher.ID, RecipientID: student.ID, Content: "See me after class"}); err != nil {
		t.Fatalf("InsertMessage(): %v", err)
	}

	get := func(t *testing.T, token string) map[string]json.RawMessage {
		t.Helper()
		req, rec := newAuthRequest(http.MethodGet, "/v1/dashboard", token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var resp map[string]json.RawMessage
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		return resp
	}

	t.Run("student dashboard", func(t *testing.T) {
		resp := get(t, getToken(t, student))

		var summary academic.StudentSummary
		if err := json.Unmarshal(resp["student"], &summary); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		// 95 -> 4.0, 72 -> 2.0; mean 3.0
		if summary.GPA != 3.0 {
			t.Errorf("failed! gpa = %v; want 3.0", summary.GPA)
		}
		if summary.CourseCount != 2 {
			t.Errorf("failed! course_count = %d; want 2", summary.CourseCount)
		}
		if summary.AttendanceRate != "66%" {
			t.Errorf("failed! attendance_rate = %q; want 66%%", summary.AttendanceRate)
		}
		if summary.Honors {
			t.Error("failed! honors at 3.0")
		}

		var unread int
		if err := json.Unmarshal(resp["unread_count"], &unread); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if unread != 1 {
			t.Errorf("failed! unread_count = %d; want 1", unread)
		}
	})

	t.Run("teacher dashboard", func(t *testing.T) {
		resp := get(t, getToken(t, teacher))

		var summary academic.TeacherSummary
		if err := json.Unmarshal(resp["teacher"], &summary); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if summary.ClassAverage != 83.5 {
			t.Errorf("failed! class_average = %v; want 83.5", summary.ClassAverage)
		}
		if summary.CourseCount != 2 || summary.StudentCount != 1 {
			t.Errorf("failed! summary = %+v", summary)
		}
	})

	t.Run("admin dashboard", func(t *testing.T) {
		admin := testutil.CreateUser(t, usrRepo, "admin", "s3cr3tPwd!", user.RoleAdmin)
		resp := get(t, getToken(t, admin))

		if _, ok := resp["teacher"]; ok {
			t.Error("failed! admin payload carries a teacher summary")
		}
		var summary struct {
			UserCount   int `json:"user_count"`
			CourseCount int `json:"course_count"`
		}
		if err := json.Unmarshal(resp["admin"], &summary); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		// sentinel + teacher + student + admin
		if summary.UserCount != 4 {
			t.Errorf("failed! user_count = %d; want 4", summary.UserCount)
		}
		if summary.CourseCount != 2 {
			t.Errorf("failed! course_count = %d; want 2", summary.CourseCount)
		}
	})

	t.Run("attendance rate is N/A without logs", func(t *testing.T) {
		fresh, _ := testutil.CreateStudent(t, usrRepo, "newkid1234", "", "New Kid", "new@test.cd")
		resp := get(t, getToken(t, fresh))

		var summary academic.StudentSummary
		if err := json.Unmarshal(resp["student"], &summary); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if summary.AttendanceRate != "N/A" {
			t.Errorf("failed! attendance_rate = %q; want N/A", summary.AttendanceRate)
		}
		if summary.GPA != 0 {
			t.Errorf("failed! gpa = %v; want 0", summary.GPA)
		}
	})
}

func Test_academicApi_reports(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "admin", "s3cr3tPwd!", user.RoleAdmin)
	teacher := testutil.CreateUser(t, usrRepo, "mrsmith", "s3cr3tPwd!", user.RoleTeacher)
	student1, _ := testutil.CreateStudent(t, usrRepo, "janedoe1234", "", "Jane Doe", "jane@test.cd")
	student2, _ := testutil.CreateStudent(t, usrRepo, "bobmarley5678", "", "Bob Marley", "bob@test.cd")
	crs := testutil.CreateCourse(t, courseRepo, "Biology", teacher.ID)
	testutil.EnrollStudent(t, courseRepo, student1.ID, crs.ID)
	testutil.CreateGrade(t, acadRepo, student1.ID, crs.ID, "Exam 1", 95)

	t.Run("student fetches own card", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/reports/students/%d", student1.ID), getToken(t, student1))
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
			t.Errorf("failed! content-type = %q", ct)
		}
		if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
			t.Error("failed! response is not a PDF")
		}
		if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "Report_Card_"+student1.Username+".pdf") {
			t.Errorf("failed! content-disposition = %q", cd)
		}
	})

	t.Run("student may not fetch another student's card", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/reports/students/%d", student2.ID), getToken(t, student1))
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Errorf("failed! code = %v; want 403", rec.Code)
		}
	})

	t.Run("teacher fetches any card", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/reports/students/%d", student2.ID), getToken(t, teacher))
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("batch is staff only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/reports/batch", getToken(t, student1))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("failed! code = %v; want 403", rec.Code)
		}

		// teachers may pull the batch too
		req, rec = newAuthRequest(http.MethodGet, "/v1/reports/batch", getToken(t, teacher))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("failed! code = %v; want 200 for a teacher", rec.Code)
		}
	})

	t.Run("batch bundles every student", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/reports/batch", getToken(t, admin))
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, report.BatchZipName) {
			t.Errorf("failed! content-disposition = %q", cd)
		}
		zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
		if err != nil {
			t.Fatalf("zip.NewReader(): %v", err)
		}
		if len(zr.File) != 2 {
			t.Fatalf("failed! %d zip entries; want 2", len(zr.File))
		}
		names := []string{zr.File[0].Name, zr.File[1].Name}
		for _, want := range []string{"Report_Card_" + student1.Username + ".pdf", "Report_Card_" + student2.Username + ".pdf"} {
			if names[0] != want && names[1] != want {
				t.Errorf("failed! zip entries = %v; missing %s", names, want)
			}
		}
	})
}
