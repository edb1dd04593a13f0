package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"

	"backend-petsancheck/internal/auth"
	"backend-petsancheck/internal/config"
	"backend-petsancheck/internal/db"
	"backend-petsancheck/internal/history"
	"backend-petsancheck/internal/tracking"
	"backend-petsancheck/internal/walk"
)

func newSQLiteServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Config{
		JWTSecret:     "secret",
		ServerPort:    ":0",
		HistoryDriver: config.HistorySQLite,
		SQLitePath:    filepath.Join(t.TempDir(), "walks.db"),
		StatsInterval: time.Hour,
	}
	conn, err := db.OpenSQLite(cfg)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	store, err := history.NewSQLiteStore(context.Background(), conn)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	s := NewServer(cfg, Deps{History: store})
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestHealthRoute(t *testing.T) {
	s := newSQLiteServer(t)

	req := httptest.NewRequest("GET", "/health", nil)
	resp, err := s.App.Test(req)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200 status")
	}
}

func TestAuthRoutesNeedPostgres(t *testing.T) {
	s := newSQLiteServer(t)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader([]byte(`{}`)))
	resp, err := s.App.Test(req)
	if err != nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected auth routes to be absent without postgres")
	}

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()
	withDB := NewServer(config.Config{JWTSecret: "secret"}, Deps{DB: mock, History: history.NewPostgresStore(mock)})
	defer withDB.Close()

	req = httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, err = withDB.App.Test(req)
	if err != nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected auth routes mounted with postgres")
	}
}

// A walk started over HTTP ends up in the history store once stopped.
func TestWalkReachesHistory(t *testing.T) {
	s := newSQLiteServer(t)
	token, _ := auth.IssueToken("secret", "walker-1", time.Minute)

	call := func(method, path, body string) *http.Response {
		t.Helper()
		req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := s.App.Test(req)
		if err != nil {
			t.Fatalf("%s %s: %v", method, path, err)
		}
		return resp
	}

	resp := call(http.MethodPost, "/tracking/walks", `{"location_authorization":"when_in_use"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("start status %d", resp.StatusCode)
	}
	var started struct {
		ID string `json:"id"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&started)

	if resp := call(http.MethodPost, "/tracking/walks/"+started.ID+"/stop", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("stop status %d", resp.StatusCode)
	}

	resp = call(http.MethodGet, "/history/walks", "")
	var records []history.Record
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(records) != 1 || records[0].ID != started.ID {
		t.Fatalf("unexpected history %+v", records)
	}
}

func TestStreamRequiresWalkOwner(t *testing.T) {
	s := newSQLiteServer(t)
	session, err := s.Tracking.Start(context.Background(), "walker-1", tracking.StartRequest{LocationAuthorization: walk.AuthAlways})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	dial := func(query string) int {
		t.Helper()
		req := httptest.NewRequest(http.MethodGet, "/stream/ws/"+session.ID+query, nil)
		req.Header.Set("Connection", "Upgrade")
		req.Header.Set("Upgrade", "websocket")
		req.Header.Set("Sec-WebSocket-Version", "13")
		req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
		resp, err := s.App.Test(req)
		if err != nil {
			t.Fatalf("dial request: %v", err)
		}
		return resp.StatusCode
	}

	if code := dial(""); code != http.StatusUnauthorized {
		t.Fatalf("anonymous subscriber got %d", code)
	}
	other, _ := auth.IssueToken("secret", "walker-2", time.Minute)
	if code := dial("?token=" + other); code != http.StatusNotFound {
		t.Fatalf("foreign subscriber got %d", code)
	}
}
