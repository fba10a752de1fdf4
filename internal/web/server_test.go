package web

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/evcraddock/filecomments/internal/config"
	"github.com/evcraddock/filecomments/internal/dav"
	"github.com/evcraddock/filecomments/internal/db"
	"github.com/evcraddock/filecomments/internal/node"
)

func testServerWithDB(t *testing.T, cfg config.Config) (*Server, *sql.DB) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	d, err := db.Open(path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if cerr := d.Close(); cerr != nil {
			t.Errorf("close db: %v", cerr)
		}
	})
	if cfg.BasePath == "" {
		cfg.BasePath = "/remote.php/dav"
	}
	return NewServer(d, cfg), d
}

func addFile(t *testing.T, s *Server, owner, path string) string {
	t.Helper()
	n, err := s.nodes.Add(owner, path, node.File)
	if err != nil {
		t.Fatalf("add node: %v", err)
	}
	return n.TargetID()
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := testServerWithDB(t, config.Config{})

	r := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type = %q, want application/json", ct)
	}
	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Errorf("body = %q, want status ok", w.Body.String())
	}
}

func TestHealthEndpointDatabaseDown(t *testing.T) {
	srv, d := testServerWithDB(t, config.Config{})
	if err := d.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	r := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := testServerWithDB(t, config.Config{AuthDisabled: true})
	file := addFile(t, srv, "user0", "/a.txt")

	r := httptest.NewRequest("POST", "/remote.php/dav/comments/files/"+file+"/",
		strings.NewReader(`{"actorId":"user0","message":"hi"}`))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d: %s", w.Code, w.Body.String())
	}

	r = httptest.NewRequest("GET", "/metrics", nil)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, `filecomments_dav_requests_total{kind="create",status="201"} 1`) {
		t.Errorf("metrics missing create request:\n%s", body)
	}
	if !strings.Contains(body, "filecomments_comments_created_total 1") {
		t.Errorf("metrics missing created counter:\n%s", body)
	}
}

func TestCommentsRequireAuth(t *testing.T) {
	srv, _ := testServerWithDB(t, config.Config{})
	file := addFile(t, srv, "alice", "/notes.txt")

	if _, err := srv.users.Add("alice", "Alice"); err != nil {
		t.Fatalf("add user: %v", err)
	}
	rawKey, _, err := srv.apiKeys.Create("laptop", "alice")
	if err != nil {
		t.Fatalf("create key: %v", err)
	}

	body := `{"actorId":"mallory","actorDisplayName":"Mallory","message":"hello"}`
	r := httptest.NewRequest("POST", "/remote.php/dav/comments/files/"+file+"/", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d, want 401", w.Code)
	}
	if !strings.Contains(w.Header().Get("WWW-Authenticate"), "Basic") {
		t.Error("expected Basic challenge")
	}

	r = httptest.NewRequest("POST", "/remote.php/dav/comments/files/"+file+"/", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	r.SetBasicAuth("alice", rawKey)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, r)
	if w.Code != http.StatusCreated {
		t.Fatalf("authenticated status = %d, want 201: %s", w.Code, w.Body.String())
	}

	c, err := srv.comments.Get(1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if c.ActorID != "alice" || c.ActorDisplayName != "Alice" {
		t.Errorf("actor = %q (%q), want the authenticated user", c.ActorID, c.ActorDisplayName)
	}
}

func TestUnknownMethodUsesDAVError(t *testing.T) {
	srv, _ := testServerWithDB(t, config.Config{AuthDisabled: true})
	file := addFile(t, srv, "user0", "/a.txt")

	r := httptest.NewRequest("MKCOL", "/remote.php/dav/comments/files/"+file+"/", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)

	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", w.Code)
	}
	if got := w.Header().Get("Allow"); got != "POST, REPORT" {
		t.Errorf("Allow = %q", got)
	}
}

func TestReportThroughServer(t *testing.T) {
	srv, _ := testServerWithDB(t, config.Config{AuthDisabled: true})
	file := addFile(t, srv, "user0", "/a.txt")

	for _, msg := range []string{"one", "two"} {
		r := httptest.NewRequest("POST", "/remote.php/dav/comments/files/"+file,
			strings.NewReader(`{"actorId":"user0","message":"`+msg+`"}`))
		r.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, r)
		if w.Code != http.StatusCreated {
			t.Fatalf("create = %d", w.Code)
		}
	}

	r := httptest.NewRequest(dav.MethodReport, "/remote.php/dav/comments/files/"+file+"/", strings.NewReader(
		`<oc:filter-comments xmlns:oc="http://owncloud.org/ns"><oc:limit>1</oc:limit><oc:offset>1</oc:offset></oc:filter-comments>`))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)

	ms, err := dav.ParseMultistatus(w.Body)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(ms.Responses) != 1 {
		t.Fatalf("responses = %d, want 1", len(ms.Responses))
	}
	if want := "/remote.php/dav/comments/files/" + file + "/2"; ms.Responses[0].Href != want {
		t.Errorf("href = %q, want %q", ms.Responses[0].Href, want)
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	srv, _ := testServerWithDB(t, config.Config{ShutdownTimeout: time.Second})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("get health: %v", err)
	}
	if cerr := resp.Body.Close(); cerr != nil {
		t.Errorf("close body: %v", cerr)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serve returned %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
