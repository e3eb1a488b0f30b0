package tests

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/jbkiprop/studentos/core/course"
	"github.com/jbkiprop/studentos/core/user"
	"github.com/jbkiprop/studentos/tests"
)

func newFormRequest(method, path, token string, fields url.Values) (*http.Request, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, strings.NewReader(fields.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func Test_courseApi_query(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "admin", "s3cr3tPwd!", user.RoleAdmin)
	teacher1 := testutil.CreateUser(t, usrRepo, "mrsmith", "s3cr3tPwd!", user.RoleTeacher)
	teacher2 := testutil.CreateUser(t, usrRepo, "mrsjones", "s3cr3tPwd!", user.RoleTeacher)
	student, _ := testutil.CreateStudent(t, usrRepo, "janedoe1234", "", "Jane Doe", "jane@test.cd")

	bio := testutil.CreateCourse(t, courseRepo, "Biology", teacher1.ID)
	chem := testutil.CreateCourse(t, courseRepo, "Chemistry", teacher2.ID)
	testutil.EnrollStudent(t, courseRepo, student.ID, chem.ID)

	// listings join the owner's display name
	bio.TeacherName = teacher1.Username
	chem.TeacherName = teacher2.Username

	tests := []httpTest{
		{name: "Auth required", path: "/v1/courses", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Teacher sees own courses", path: "/v1/courses", token: getToken(t, teacher1), wantData: marchallList(t, bio)},
		{name: "Student sees enrolled courses", path: "/v1/courses", token: getToken(t, student), wantData: marchallList(t, chem)},
		{name: "Admin sees everything", path: "/v1/courses", token: getToken(t, admin), wantData: marchallList(t, bio, chem)},
		{name: "search", path: "/v1/courses?search=chem", token: getToken(t, admin), wantData: marchallList(t, chem)},
		{name: "search (unknown)", path: "/v1/courses?search=lol", token: getToken(t, admin), wantData: []byte("null")},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_courseApi_create(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "admin", "s3cr3tPwd!", user.RoleAdmin)
	teacher := testutil.CreateUser(t, usrRepo, "mrsmith", "s3cr3tPwd!", user.RoleTeacher)
	student, _ := testutil.CreateStudent(t, usrRepo, "janedoe1234", "", "Jane Doe", "jane@test.cd")

	tests := []httpTest{
		{
			name: "Teacher or admin required", body: marchallObj(t, course.NewCourse{Name: "Biology"}),
			token: getToken(t, student), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "name is required", body: marchallObj(t, course.NewCourse{}), token: getToken(t, teacher),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"name":"this field is required"}`),
		},
		{
			name: "Admin must name a teacher owner", body: marchallObj(t, course.NewCourse{Name: "Biology", TeacherID: student.ID}),
			token: getToken(t, admin), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: course.ErrNotATeacher.Error()}),
		},
		{name: "Teacher owns what they create", body: marchallObj(t, course.NewCourse{Name: "Biology", Schedule: "Mon 10:00"}), token: getToken(t, teacher), extra: teacher.ID},
		{name: "Admin creates on behalf of a teacher", body: marchallObj(t, course.NewCourse{Name: "Chemistry", TeacherID: teacher.ID}), token: getToken(t, admin), extra: teacher.ID},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/courses"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if wantOwner, ok := tt.extra.(int); ok {
				if rec.Code != http.StatusCreated {
					t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
				}
				var respData course.Course
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Fatalf("json.Unmarshal(): %v", err)
				}
				if respData.TeacherID != wantOwner {
					t.Errorf("failed! teacher_id = %d; want %d", respData.TeacherID, wantOwner)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_courseApi_detailAndOwnership(t *testing.T) {
	app := setup(t)

	teacher1 := testutil.CreateUser(t, usrRepo, "mrsmith", "s3cr3tPwd!", user.RoleTeacher)
	teacher2 := testutil.CreateUser(t, usrRepo, "mrsjones", "s3cr3tPwd!", user.RoleTeacher)
	crs := testutil.CreateCourse(t, courseRepo, "Biology", teacher1.ID)

	tests := []httpTest{
		{name: "Not found", path: "/v1/courses/999", token: getToken(t, teacher1), wantCode: http.StatusNotFound},
		{
			name: "Another teacher may not open it", path: fmt.Sprintf("/v1/courses/%d", crs.ID), token: getToken(t, teacher2),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: course.ErrAccessDenied.Error()}),
		},
		{name: "Owner opens the detail", path: fmt.Sprintf("/v1/courses/%d", crs.ID), token: getToken(t, teacher1), extra: "detail"},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			app.ServeHTTP(rec, req)

			if tt.extra == "detail" {
				if rec.Code != http.StatusOK {
					t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
				}
				var respData course.Detail
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Fatalf("json.Unmarshal(): %v", err)
				}
				if respData.Course.ID != crs.ID {
					t.Errorf("failed! course.id = %d; want %d", respData.Course.ID, crs.ID)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_courseApi_enrollStudent(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "mrsmith", "s3cr3tPwd!", user.RoleTeacher)
	student, _ := testutil.CreateStudent(t, usrRepo, "janedoe1234", "", "Jane Doe", "jane@test.cd")
	crs := testutil.CreateCourse(t, courseRepo, "Biology", teacher.ID)

	teacherToken := getToken(t, teacher)
	path := fmt.Sprintf("/v1/courses/%d/students", crs.ID)
	body := marchallObj(t, map[string]string{"username": student.Username})

	tests := []httpTest{
		{
			name: "Unknown student", body: marchallObj(t, map[string]string{"username": "ghost"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: course.ErrNotAStudent.Error()}),
		},
		{
			name: "A teacher is not a student", body: marchallObj(t, map[string]string{"username": teacher.Username}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: course.ErrNotAStudent.Error()}),
		},
		{name: "Enrolled", body: body},
		{name: "Enrolling twice is a no-op", body: body},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = path
		tt.token = teacherToken

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	// exactly one roster row despite the double enrollment
	req, rec := newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/courses/%d", crs.ID), teacherToken)
	app.ServeHTTP(rec, req)
	var detail course.Detail
	if err := json.Unmarshal(rec.Body.Bytes(), &detail); err != nil {
		t.Fatalf("json.Unmarshal(): %v", err)
	}
	if len(detail.Roster) != 1 {
		t.Errorf("failed! roster size = %d; want 1", len(detail.Roster))
	}
	if len(detail.AvailableStudents) != 0 {
		t.Errorf("failed! available students = %d; want 0", len(detail.AvailableStudents))
	}
}

func Test_courseApi_assignmentsAndSubmissions(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "mrsmith", "s3cr3tPwd!", user.RoleTeacher)
	student, _ := testutil.CreateStudent(t, usrRepo, "janedoe1234", "", "Jane Doe", "jane@test.cd")
	crs := testutil.CreateCourse(t, courseRepo, "Biology", teacher.ID)
	testutil.EnrollStudent(t, courseRepo, student.ID, crs.ID)

	teacherToken := getToken(t, teacher)
	studentToken := getToken(t, student)

	// teacher posts an assignment
	req, rec := newFormRequest(http.MethodPost, fmt.Sprintf("/v1/courses/%d/assignments", crs.ID), teacherToken,
		url.Values{"title": {"Cell Structure Essay"}, "description": {"500 words"}, "due_date": {"2026-09-15"}})
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("addAssignment failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	var assign course.Assignment
	if err := json.Unmarshal(rec.Body.Bytes(), &assign); err != nil {
		t.Fatalf("json.Unmarshal(): %v", err)
	}
	if assign.Title != "Cell Structure Essay" {
		t.Errorf("failed! title = %q", assign.Title)
	}

	// students may not post assignments
	req, rec = newFormRequest(http.MethodPost, fmt.Sprintf("/v1/courses/%d/assignments", crs.ID), studentToken,
		url.Values{"title": {"lol"}})
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("failed! code = %v; want 403", rec.Code)
	}

	// the student submits work, which notifies the teacher
	req, rec = newFormRequest(http.MethodPost,
		fmt.Sprintf("/v1/courses/%d/assignments/%d/submissions", crs.ID, assign.ID), studentToken,
		url.Values{"content": {"My essay text"}})
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("submitWork failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	var sub course.Submission
	if err := json.Unmarshal(rec.Body.Bytes(), &sub); err != nil {
		t.Fatalf("json.Unmarshal(): %v", err)
	}
	if sub.StudentID != student.ID || sub.AssignmentID != assign.ID {
		t.Errorf("failed! submission = %+v", sub)
	}

	notifs, err := notifSvc.Latest(req.Context(), teacher.ID, 0)
	if err != nil {
		t.Fatalf("Latest(): %v", err)
	}
	if len(notifs) != 1 || !strings.Contains(notifs[0].Message, student.Username) {
		t.Errorf("failed! teacher notifications = %+v", notifs)
	}

	// the teacher lists submissions
	req, rec = newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/assignments/%d/submissions", assign.ID), teacherToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("querySubmissions failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	var subs []course.Submission
	if err := json.Unmarshal(rec.Body.Bytes(), &subs); err != nil {
		t.Fatalf("json.Unmarshal(): %v", err)
	}
	if len(subs) != 1 || subs[0].ID != sub.ID {
		t.Errorf("failed! submissions = %+v", subs)
	}
}
