package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"folderMon/internal/monitor"
)

func newTestAPI(t *testing.T) (*MonitorAPI, *monitor.Monitor, string) {
	t.Helper()
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("one two\nthree\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := monitor.DefaultConfig()
	cfg.RootPath = root
	cfg.LogFile = filepath.Join(t.TempDir(), "status_log.txt")
	m, err := monitor.NewMonitor(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Registry().Scan(); err != nil {
		t.Fatal(err)
	}
	return NewMonitorAPI(m), m, root
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestListFiles(t *testing.T) {
	api, _, _ := newTestAPI(t)

	rec := do(t, api.Handler(), http.MethodGet, "/api/v1/files", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Total int `json:"total"`
		Files []struct {
			Path string `json:"path"`
			Kind string `json:"kind"`
		} `json:"files"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || resp.Files[0].Path != "notes.txt" || resp.Files[0].Kind != "text" {
		t.Errorf("resp = %+v", resp)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("CORS header missing")
	}
}

func TestFileInfo(t *testing.T) {
	api, _, _ := newTestAPI(t)

	rec := do(t, api.Handler(), http.MethodGet, "/api/v1/file/notes.txt", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var resp struct {
		Info string `json:"info"`
	}
	json.NewDecoder(rec.Body).Decode(&resp)
	if !strings.HasSuffix(resp.Info, "Line count: 2, Word count: 3, Character count: 14") {
		t.Errorf("info = %q", resp.Info)
	}

	rec = do(t, api.Handler(), http.MethodGet, "/api/v1/file/missing.txt", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing file status = %d", rec.Code)
	}
}

func TestCommit(t *testing.T) {
	api, m, _ := newTestAPI(t)

	rec := do(t, api.Handler(), http.MethodPost, "/api/v1/commit", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"committed":1`) {
		t.Fatalf("commit all: %d %s", rec.Code, rec.Body)
	}
	if r, _ := m.Registry().Lookup("notes.txt"); r.SnapshotTime.IsZero() {
		t.Error("snapshot time not set")
	}

	rec = do(t, api.Handler(), http.MethodPost, "/api/v1/commit", `{"path":"notes.txt"}`)
	if rec.Code != http.StatusOK {
		t.Errorf("commit one: %d", rec.Code)
	}
	rec = do(t, api.Handler(), http.MethodPost, "/api/v1/commit", `{"path":"nope.txt"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("commit missing: %d", rec.Code)
	}
	rec = do(t, api.Handler(), http.MethodGet, "/api/v1/commit", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET commit: %d", rec.Code)
	}
}

func TestRescanAndStats(t *testing.T) {
	api, _, root := newTestAPI(t)
	os.WriteFile(filepath.Join(root, "b.png"), []byte("x"), 0644)

	rec := do(t, api.Handler(), http.MethodPost, "/api/v1/rescan", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("rescan: %d", rec.Code)
	}
	var resp struct {
		Events []monitor.ChangeEvent `json:"events"`
	}
	json.NewDecoder(rec.Body).Decode(&resp)
	if len(resp.Events) != 1 || resp.Events[0].Path != "b.png" || resp.Events[0].Type != monitor.EventAdded {
		t.Fatalf("events = %+v", resp.Events)
	}

	rec = do(t, api.Handler(), http.MethodGet, "/api/v1/stats", "")
	var stats struct {
		Passes         int64 `json:"passes"`
		FilesMonitored int   `json:"files_monitored"`
	}
	json.NewDecoder(rec.Body).Decode(&stats)
	if stats.Passes != 1 || stats.FilesMonitored != 2 {
		t.Errorf("stats = %+v", stats)
	}

	rec = do(t, api.Handler(), http.MethodGet, "/api/v1/status", "")
	if !strings.Contains(rec.Body.String(), `"running":false`) {
		t.Errorf("status = %s", rec.Body)
	}
}

func TestWebSocketStreamsEvents(t *testing.T) {
	api, m, root := newTestAPI(t)
	srv := httptest.NewServer(api.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var welcome map[string]interface{}
	if err := conn.ReadJSON(&welcome); err != nil {
		t.Fatal(err)
	}
	if welcome["type"] != "connected" {
		t.Fatalf("welcome = %v", welcome)
	}

	os.WriteFile(filepath.Join(root, "new.py"), []byte("pass\n"), 0644)
	if _, err := m.RunPass(); err != nil {
		t.Fatal(err)
	}

	var ev monitor.ChangeEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatal(err)
	}
	if ev.Type != monitor.EventAdded || ev.Path != "new.py" {
		t.Errorf("event = %+v", ev)
	}
}

func TestCommitRejectsMalformedBody(t *testing.T) {
	api, m, _ := newTestAPI(t)

	for _, body := range []string{`{"path": 42}`, `{"path":`, `not json`} {
		rec := do(t, api.Handler(), http.MethodPost, "/api/v1/commit", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
		}
	}
	if r, _ := m.Registry().Lookup("notes.txt"); !r.SnapshotTime.IsZero() {
		t.Fatal("a rejected request committed the registry")
	}
}
