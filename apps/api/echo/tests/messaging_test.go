package tests

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/jbkiprop/studentos/core/messaging"
	"github.com/jbkiprop/studentos/core/user"
	"github.com/jbkiprop/studentos/tests"
)

func sendMessage(t *testing.T, app http.Handler, token string, recipientID int, content string) messaging.Message {
	t.Helper()

	body := marchallObj(t, messaging.NewMessage{RecipientID: recipientID, Content: content})
	req, rec := newAuthRequest(http.MethodPost, "/v1/messages", token, body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("sendMessage failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	var msg messaging.Message
	if err := json.Unmarshal(rec.Body.Bytes(), &msg); err != nil {
		t.Fatalf("json.Unmarshal(): %v", err)
	}
	return msg
}

func Test_messagingApi_sendAndThread(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "mrsmith", "s3cr3tPwd!", user.RoleTeacher)
	student, _ := testutil.CreateStudent(t, usrRepo, "janedoe1234", "", "Jane Doe", "jane@test.cd")
	teacherToken := getToken(t, teacher)
	studentToken := getToken(t, student)

	tests := []httpTest{
		{name: "Auth required", method: http.MethodPost, path: "/v1/messages", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "content is required", method: http.MethodPost, path: "/v1/messages",
			body: marchallObj(t, messaging.NewMessage{RecipientID: student.ID}), token: teacherToken,
			wantCode: http.StatusBadRequest, wantData: []byte(`{"content":"this field is required"}`),
		},
		{
			name: "Unknown recipient", method: http.MethodPost, path: "/v1/messages",
			body: marchallObj(t, messaging.NewMessage{RecipientID: 999, Content: "hello?"}), token: teacherToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: messaging.ErrRecipientNotFound.Error()}),
		},
		{name: "Unknown thread counterpart", method: http.MethodGet, path: "/v1/messages/999", token: teacherToken, wantCode: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	sendMessage(t, app, teacherToken, student.ID, "See me after class")
	sendMessage(t, app, studentToken, teacher.ID, "Sure, 4pm?")

	t.Run("thread is ordered oldest first", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/messages/%d", teacher.ID), studentToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var msgs []messaging.Message
		if err := json.Unmarshal(rec.Body.Bytes(), &msgs); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if len(msgs) != 2 {
			t.Fatalf("failed! %d messages; want 2", len(msgs))
		}
		if msgs[0].Content != "See me after class" || msgs[1].Content != "Sure, 4pm?" {
			t.Errorf("failed! thread = %+v", msgs)
		}
	})

	t.Run("opening the thread marks it read", func(t *testing.T) {
		n, err := msgRepo.CountUnread(context.Background(), student.ID)
		if err != nil {
			t.Fatalf("CountUnread(): %v", err)
		}
		if n != 0 {
			t.Errorf("failed! unread = %d; want 0", n)
		}
	})

	t.Run("unread count endpoint", func(t *testing.T) {
		// the teacher catches up first, then one new message arrives
		req, rec := newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/messages/%d", student.ID), teacherToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		sendMessage(t, app, studentToken, teacher.ID, "Or 5pm")

		req, rec = newAuthRequest(http.MethodGet, "/v1/messages/unread-count", teacherToken)
		app.ServeHTTP(rec, req)
		tt := httpTest{wantData: []byte(`{"unread_count":1}`)}
		checkCodeAndData(t, tt, rec)
	})
}

func Test_messagingApi_broadcast(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "mrsmith", "s3cr3tPwd!", user.RoleTeacher)
	student, _ := testutil.CreateStudent(t, usrRepo, "janedoe1234", "", "Jane Doe", "jane@test.cd")
	teacherToken := getToken(t, teacher)
	studentToken := getToken(t, student)

	msg := sendMessage(t, app, teacherToken, user.GroupUserID, "Exams start Monday")
	if msg.RecipientID != user.GroupUserID {
		t.Fatalf("failed! recipient = %d; want the broadcast sentinel", msg.RecipientID)
	}

	t.Run("everyone sees the broadcast thread", func(t *testing.T) {
		for _, token := range []string{teacherToken, studentToken} {
			req, rec := newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/messages/%d", user.GroupUserID), token)
			app.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
			}
			var msgs []messaging.Message
			if err := json.Unmarshal(rec.Body.Bytes(), &msgs); err != nil {
				t.Fatalf("json.Unmarshal(): %v", err)
			}
			if len(msgs) != 1 || msgs[0].Content != "Exams start Monday" {
				t.Errorf("failed! broadcast = %+v", msgs)
			}
		}
	})

	t.Run("broadcast shows in the inbox under the sentinel", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/messages", studentToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var convs []messaging.Conversation
		if err := json.Unmarshal(rec.Body.Bytes(), &convs); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if len(convs) != 1 || convs[0].OtherUserID != user.GroupUserID {
			t.Fatalf("failed! inbox = %+v", convs)
		}
		if convs[0].LastMessage != "Exams start Monday" {
			t.Errorf("failed! last_message = %q", convs[0].LastMessage)
		}
	})

	t.Run("broadcast never counts as unread", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/messages/unread-count", studentToken)
		app.ServeHTTP(rec, req)
		tt := httpTest{wantData: []byte(`{"unread_count":0}`)}
		checkCodeAndData(t, tt, rec)
	})
}

func Test_messagingApi_inbox(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "mrsmith", "s3cr3tPwd!", user.RoleTeacher)
	student1, _ := testutil.CreateStudent(t, usrRepo, "janedoe1234", "", "Jane Doe", "jane@test.cd")
	student2, _ := testutil.CreateStudent(t, usrRepo, "bobmarley5678", "", "Bob Marley", "bob@test.cd")
	teacherToken := getToken(t, teacher)

	sendMessage(t, app, teacherToken, student1.ID, "First")
	sendMessage(t, app, teacherToken, student1.ID, "Second")
	sendMessage(t, app, getToken(t, student2), teacher.ID, "Question about homework")

	req, rec := newAuthRequest(http.MethodGet, "/v1/messages", teacherToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	var convs []messaging.Conversation
	if err := json.Unmarshal(rec.Body.Bytes(), &convs); err != nil {
		t.Fatalf("json.Unmarshal(): %v", err)
	}

	// one row per counterpart carrying the latest message, most recent first
	if len(convs) != 2 {
		t.Fatalf("failed! %d conversations; want 2", len(convs))
	}
	if convs[0].OtherUserID != student2.ID || convs[0].LastMessage != "Question about homework" {
		t.Errorf("failed! convs[0] = %+v", convs[0])
	}
	if convs[1].OtherUserID != student1.ID || convs[1].LastMessage != "Second" {
		t.Errorf("failed! convs[1] = %+v", convs[1])
	}
}

func Test_messagingApi_contacts(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "mrsmith", "s3cr3tPwd!", user.RoleTeacher)
	testutil.CreateStudent(t, usrRepo, "janedoe1234", "", "Jane Doe", "jane@test.cd")

	req, rec := newAuthRequest(http.MethodGet, "/v1/messages/contacts", getToken(t, teacher))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	var contacts []messaging.Contact
	if err := json.Unmarshal(rec.Body.Bytes(), &contacts); err != nil {
		t.Fatalf("json.Unmarshal(): %v", err)
	}

	// neither the caller nor the broadcast sentinel are contacts
	if len(contacts) != 1 || contacts[0].Username != "janedoe1234" {
		t.Errorf("failed! contacts = %+v", contacts)
	}
}

func Test_messagingApi_notifications(t *testing.T) {
	app := setup(t)
	ctx := context.Background()

	student, _ := testutil.CreateStudent(t, usrRepo, "janedoe1234", "", "Jane Doe", "jane@test.cd")
	studentToken := getToken(t, student)

	for i := 0; i < 7; i++ {
		if err := notifSvc.Add(ctx, student.ID, fmt.Sprintf("notice %d", i), "info"); err != nil {
			t.Fatalf("Add(): %v", err)
		}
	}

	t.Run("latest five only, newest first", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/notifications", studentToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var ns []map[string]interface{}
		if err := json.Unmarshal(rec.Body.Bytes(), &ns); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if len(ns) != 5 {
			t.Errorf("failed! %d notifications; want 5", len(ns))
		}
	})

	t.Run("mark all read", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/notifications/read", studentToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}

		ns, err := notifSvc.Latest(ctx, student.ID, 10)
		if err != nil {
			t.Fatalf("Latest(): %v", err)
		}
		for _, n := range ns {
			if !n.IsRead {
				t.Errorf("failed! notification %d still unread", n.ID)
			}
		}
	})
}
