package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"planline/internal/config"
	"planline/internal/db"
	"planline/internal/engine"
	"planline/internal/migrate"
)

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, config.Default("demo"))
	e.Now = func() time.Time {
		return time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	}
	handler, err := New(Config{
		Engine:   e,
		BasePath: "/v0",
		Auth: AuthConfig{
			JWTSecret:        "test-secret",
			AllowActorHeader: true,
			DevTokens:        true,
			// Tokens are minted from the engine clock, so expiry must be
			// checked against the same clock.
			Now: e.Now,
		},
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func actorHeaders() map[string]string {
	return map[string]string{"X-Actor-ID": "tester"}
}

func TestHealthIsPublic(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/healthz", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status %d: %s", res.StatusCode, string(data))
	}
}

func TestUnauthorizedWithoutCredentials(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/issues", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", res.StatusCode, string(data))
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal error envelope: %v", err)
	}
	if envelope.Error.Code != "unauthorized" {
		t.Fatalf("error code = %q, want unauthorized", envelope.Error.Code)
	}
}

func TestDevTokenGrantsAccess(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/auth/dev-token", map[string]any{
		"actor_id": "alice",
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("dev token status %d: %s", res.StatusCode, string(data))
	}
	var tok DevTokenResponse
	if err := json.Unmarshal(data, &tok); err != nil {
		t.Fatalf("unmarshal token: %v", err)
	}
	if tok.Token == "" {
		t.Fatal("empty token")
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/issues", nil, map[string]string{
		"Authorization": "Bearer " + tok.Token,
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list issues with token status %d: %s", res.StatusCode, string(data))
	}
}

func TestIssueLifecycle(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/issues", map[string]any{
		"title":          "Ship reports",
		"estimate_hours": 16,
	}, actorHeaders())
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create issue status %d: %s", res.StatusCode, string(data))
	}
	var created IssueResponse
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal issue: %v", err)
	}
	if created.Status != "open" {
		t.Fatalf("new issue status = %q, want open", created.Status)
	}

	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/v0/issues/"+created.ID, map[string]any{
		"status": "in_progress",
	}, actorHeaders())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("update issue status %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/v0/issues/"+created.ID, map[string]any{
		"status": "open",
	}, actorHeaders())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("revert issue status %d: %s", res.StatusCode, string(data))
	}

	// done is not reachable from open without force
	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/v0/issues/"+created.ID, map[string]any{
		"status": "done",
	}, actorHeaders())
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for bad transition, got %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/v0/issues/"+created.ID+"?force=true", map[string]any{
		"status": "done",
	}, actorHeaders())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("forced transition status %d: %s", res.StatusCode, string(data))
	}

	res, _ = doJSON(t, client, http.MethodDelete, srv.URL+"/v0/issues/"+created.ID, nil, actorHeaders())
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("delete issue status %d", res.StatusCode)
	}

	res, _ = doJSON(t, client, http.MethodGet, srv.URL+"/v0/issues/"+created.ID, nil, actorHeaders())
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("get deleted issue status %d, want 404", res.StatusCode)
	}
}

func TestCreateScheduleOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/issues", map[string]any{
		"id":             "a",
		"title":          "Design",
		"estimate_hours": 8,
	}, actorHeaders())
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create issue a status %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/issues", map[string]any{
		"id":             "b",
		"title":          "Build",
		"estimate_hours": 16,
		"depends_on":     []map[string]string{{"item_type": "issue", "item_id": "a"}},
	}, actorHeaders())
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create issue b status %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/schedules", map[string]any{
		"start_date": "2025-01-06",
	}, actorHeaders())
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create schedule status %d: %s", res.StatusCode, string(data))
	}
	var sched ScheduleResponse
	if err := json.Unmarshal(data, &sched); err != nil {
		t.Fatalf("unmarshal schedule: %v", err)
	}
	if len(sched.Tasks) != 2 {
		t.Fatalf("schedule has %d tasks, want 2", len(sched.Tasks))
	}
	if sched.Summary.StartDate != "2025-01-06" {
		t.Fatalf("summary start = %s", sched.Summary.StartDate)
	}
	// a then b on consecutive working days
	if sched.Tasks[0].ScheduledStart != "2025-01-06" || sched.Tasks[1].ScheduledStart != "2025-01-07" {
		t.Fatalf("task starts = %s, %s", sched.Tasks[0].ScheduledStart, sched.Tasks[1].ScheduledStart)
	}
	if !sched.Tasks[0].IsCriticalPath || !sched.Tasks[1].IsCriticalPath {
		t.Fatal("linear chain should be fully critical")
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/schedules/"+sched.ID, nil, actorHeaders())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get schedule status %d: %s", res.StatusCode, string(data))
	}
	var fetched ScheduleResponse
	if err := json.Unmarshal(data, &fetched); err != nil {
		t.Fatalf("unmarshal fetched schedule: %v", err)
	}
	if len(fetched.Tasks) != 2 {
		t.Fatalf("fetched schedule has %d tasks, want 2", len(fetched.Tasks))
	}
}

func TestCreateScheduleWithoutItems(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/schedules", map[string]any{}, actorHeaders())
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", res.StatusCode, string(data))
	}
}

func TestCommentsAndTags(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/issues", map[string]any{
		"id":    "x",
		"title": "Investigate flaky import",
	}, actorHeaders())
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create issue status %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/items/issue/x/comments", map[string]any{
		"body": "reproduced locally",
	}, actorHeaders())
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("add comment status %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/items/issue/x/comments", nil, actorHeaders())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list comments status %d: %s", res.StatusCode, string(data))
	}
	var comments []CommentResponse
	if err := json.Unmarshal(data, &comments); err != nil {
		t.Fatalf("unmarshal comments: %v", err)
	}
	if len(comments) != 1 || comments[0].Author != "tester" {
		t.Fatalf("comments = %+v", comments)
	}

	res, data = doJSON(t, client, http.MethodDelete, srv.URL+"/v0/items/issue/x/comments/"+comments[0].ID, nil, actorHeaders())
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("delete comment status %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/items/issue/x/comments", nil, actorHeaders())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list comments status %d: %s", res.StatusCode, string(data))
	}
	comments = nil
	if err := json.Unmarshal(data, &comments); err != nil {
		t.Fatalf("unmarshal comments: %v", err)
	}
	if len(comments) != 0 {
		t.Fatalf("comments after delete = %+v", comments)
	}
	res, _ = doJSON(t, client, http.MethodDelete, srv.URL+"/v0/items/issue/x/comments/ghost", nil, actorHeaders())
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("delete unknown comment status %d", res.StatusCode)
	}

	res, _ = doJSON(t, client, http.MethodPut, srv.URL+"/v0/items/issue/x/tags/backend", nil, actorHeaders())
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("add tag status %d", res.StatusCode)
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/issues/x", nil, actorHeaders())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get issue status %d: %s", res.StatusCode, string(data))
	}
	var issue IssueResponse
	if err := json.Unmarshal(data, &issue); err != nil {
		t.Fatalf("unmarshal issue: %v", err)
	}
	if len(issue.Tags) != 1 || issue.Tags[0] != "backend" {
		t.Fatalf("tags = %v", issue.Tags)
	}
}
