package tests

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/jbkiprop/studentos/core"
	"github.com/jbkiprop/studentos/tests"
)

func Test_uploadsApi_serve(t *testing.T) {
	app := setup(t)

	origDir := core.Conf.UploadDir
	core.Conf.UploadDir = t.TempDir()
	defer func() { core.Conf.UploadDir = origDir }()

	stored := "1756380000_deadbeef_homework.pdf"
	contents := []byte("%PDF-1.4 fake")
	if err := os.WriteFile(filepath.Join(core.Conf.UploadDir, stored), contents, 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	student, _ := testutil.CreateStudent(t, usrRepo, "johndoe1234", "s3cr3tPwd!", "John Doe", "john@test.cd")
	token := getToken(t, student)

	t.Run("requires auth", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/uploads/"+stored)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)
	})

	t.Run("serves the stored file", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/uploads/"+stored, token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		if got := rec.Body.String(); got != string(contents) {
			t.Errorf("failed! body = %q; want the stored contents", got)
		}
	})

	t.Run("unknown file", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/uploads/nope.pdf", token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("failed! code = %v; want 404", rec.Code)
		}
	})

	t.Run("traversal attempt", func(t *testing.T) {
		// decodes to ../../<stored>; sanitization must reject it
		req, rec := newAuthRequest(http.MethodGet, "/v1/uploads/..%2F..%2F"+stored, token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("failed! code = %v; want 404", rec.Code)
		}
	})
}
