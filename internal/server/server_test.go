package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ShiShiBits1/GrowthQuest/internal/config"
	"github.com/ShiShiBits1/GrowthQuest/internal/database"
	"github.com/ShiShiBits1/GrowthQuest/internal/middleware"
)

type testClient struct {
	t      *testing.T
	router http.Handler
}

func newTestServer(t *testing.T) *testClient {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := config.Default()
	cfg.Timezone = "UTC"
	srv, err := New(db, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return &testClient{t: t, router: srv.Router()}
}

// do sends a request with the session cookie, if any, and decodes a JSON
// response into out when out is non-nil.
func (c *testClient) do(method, path, cookie, body string, out any) *httptest.ResponseRecorder {
	c.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: cookie})
	}
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)
	if out != nil && rec.Code < 300 {
		if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
			c.t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == middleware.SessionCookieName {
			return ck.Value
		}
	}
	t.Fatalf("no session cookie (status %d, body %s)", rec.Code, rec.Body.String())
	return ""
}

func (c *testClient) register(username string) string {
	c.t.Helper()
	rec := c.do("POST", "/register", "", fmt.Sprintf(`{"username":%q,"password":"secret123"}`, username), nil)
	if rec.Code != http.StatusCreated {
		c.t.Fatalf("register: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	return sessionCookie(c.t, rec)
}

func TestHealth(t *testing.T) {
	c := newTestServer(t)
	rec := c.do("GET", "/health", "", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("missing request id header")
	}
}

func TestProtectedRoutesNeedSession(t *testing.T) {
	c := newTestServer(t)
	for _, path := range []string{"/api/children", "/api/tasks", "/api/me", "/ws"} {
		if rec := c.do("GET", path, "", "", nil); rec.Code != http.StatusUnauthorized {
			t.Errorf("GET %s: status = %d, want 401", path, rec.Code)
		}
	}
}

func TestRegisterDuplicate(t *testing.T) {
	c := newTestServer(t)
	c.register("mom")
	rec := c.do("POST", "/register", "", `{"username":"mom","password":"secret123"}`, nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
	rec = c.do("POST", "/register", "", `{"username":"dad","password":"123"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("short password: status = %d, want 400", rec.Code)
	}
}

func TestLoginRequiresRole(t *testing.T) {
	c := newTestServer(t)
	c.register("mom")

	if rec := c.do("POST", "/login", "", `{"username":"mom","password":"secret123"}`, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("no role: status = %d, want 400", rec.Code)
	}
	// A parent username does not sign in as a child.
	if rec := c.do("POST", "/login", "", `{"role":"child","username":"mom","password":"secret123"}`, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong role: status = %d, want 401", rec.Code)
	}
	if rec := c.do("POST", "/login", "", `{"role":"parent","username":"mom","password":"wrong-pass"}`, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password: status = %d, want 401", rec.Code)
	}
	rec := c.do("POST", "/login", "", `{"role":"parent","username":"mom","password":"secret123"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: status = %d", rec.Code)
	}
	sessionCookie(t, rec)
}

func TestFamilyFlow(t *testing.T) {
	c := newTestServer(t)
	mom := c.register("mom")

	var child struct {
		ID     int64 `json:"id"`
		Points int   `json:"points"`
	}
	rec := c.do("POST", "/api/children", mom, `{"name":"Ann","age":8,"username":"ann","password":"ann-pass"}`, &child)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create child: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var task struct {
		ID int64 `json:"id"`
	}
	rec = c.do("POST", "/api/tasks", mom, `{"name":"Practice piano","points":4,"category_id":1}`, &task)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create task: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = c.do("POST", "/login", "", `{"role":"child","username":"ann","password":"ann-pass"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("child login: status = %d", rec.Code)
	}
	ann := sessionCookie(t, rec)

	// Children cannot change the catalog.
	if rec := c.do("POST", "/api/tasks", ann, `{"name":"Skip chores","points":100,"category_id":1}`, nil); rec.Code != http.StatusForbidden {
		t.Errorf("child create task: status = %d, want 403", rec.Code)
	}

	var record struct {
		ID int64 `json:"id"`
	}
	rec = c.do("POST", fmt.Sprintf("/api/children/%d/records", child.ID), ann, fmt.Sprintf(`{"task_id":%d}`, task.ID), &record)
	if rec.Code != http.StatusCreated {
		t.Fatalf("log: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	confirmPath := fmt.Sprintf("/api/records/%d/confirm", record.ID)
	if rec := c.do("POST", confirmPath, ann, "", nil); rec.Code != http.StatusForbidden {
		t.Errorf("child confirm: status = %d, want 403", rec.Code)
	}
	var res struct {
		NewPoints int `json:"new_points"`
	}
	if rec := c.do("POST", confirmPath, mom, "", &res); rec.Code != http.StatusOK {
		t.Fatalf("confirm: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if res.NewPoints != 4 {
		t.Errorf("new points = %d, want 4", res.NewPoints)
	}

	var me struct {
		Role   string `json:"role"`
		Points *int   `json:"points"`
	}
	c.do("GET", "/api/me", ann, "", &me)
	if me.Role != "child" || me.Points == nil || *me.Points != 4 {
		t.Errorf("me = %+v", me)
	}

	var dash struct {
		Days int `json:"days"`
	}
	if rec := c.do("GET", fmt.Sprintf("/api/children/%d/analytics?days=14", child.ID), ann, "", &dash); rec.Code != http.StatusOK {
		t.Fatalf("analytics: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if dash.Days != 14 {
		t.Errorf("dashboard days = %d, want 14", dash.Days)
	}

	// Another family sees nothing of Ann.
	dad := c.register("dad")
	if rec := c.do("GET", fmt.Sprintf("/api/children/%d", child.ID), dad, "", nil); rec.Code != http.StatusForbidden {
		t.Errorf("other parent get child: status = %d, want 403", rec.Code)
	}
	var list []any
	c.do("GET", "/api/children", dad, "", &list)
	if len(list) != 0 {
		t.Errorf("other parent children = %v, want none", list)
	}
}

func TestLogout(t *testing.T) {
	c := newTestServer(t)
	mom := c.register("mom")

	if rec := c.do("POST", "/logout", mom, "", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("logout: status = %d", rec.Code)
	}
	if rec := c.do("GET", "/api/me", mom, "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("after logout: status = %d, want 401", rec.Code)
	}
}

func TestBackupsDisabled(t *testing.T) {
	c := newTestServer(t)
	mom := c.register("mom")

	var status struct {
		State string `json:"state"`
	}
	c.do("GET", "/api/backups/status", mom, "", &status)
	if status.State != "disabled" {
		t.Errorf("state = %q, want disabled", status.State)
	}
	if rec := c.do("POST", "/api/backups", mom, "", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("run now: status = %d, want 400", rec.Code)
	}
}
