package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"aegis-log/api"
	"aegis-log/config"
	"aegis-log/core/auth"
	"aegis-log/core/incidents"
	"aegis-log/core/rbac"
	"aegis-log/core/store"
	"aegis-log/core/utils"
)

type testEnv struct {
	t         *testing.T
	cfg       *config.AppConfig
	users     store.UsersStore
	sessions  store.SessionStore
	incidents store.IncidentsStore
	srv       *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.AppConfig{
		DBDriver:   store.DialectSQLite,
		DBURL:      filepath.Join(dir, "aegis.db"),
		Pepper:     "pepper",
		CSRFKey:    "csrf-test-key",
		SessionTTL: time.Hour,
	}
	logger := utils.NewLogger()
	db, err := store.NewDB(cfg, logger)
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := store.ApplyMigrations(context.Background(), db, logger); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	users := store.NewUsersStore(db)
	sessions := store.NewSessionsStore(db)
	incidentsStore := store.NewIncidentsStore(db)
	policy, err := rbac.NewPolicy()
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	sm := auth.NewSessionManager(sessions, cfg, logger)
	svc := incidents.NewService(incidentsStore, policy, logger)
	server := api.NewServer(cfg, api.ServerDeps{
		Users:          users,
		Sessions:       sessions,
		IncidentsSvc:   svc,
		SessionManager: sm,
	}, logger)
	srv := httptest.NewServer(server.Routes())
	t.Cleanup(srv.Close)
	return &testEnv{t: t, cfg: cfg, users: users, sessions: sessions, incidents: incidentsStore, srv: srv}
}

// register creates an account over the API and returns the user id.
func (e *testEnv) register(username, email, password string) int64 {
	e.t.Helper()
	status, body := e.do(http.MethodPost, "/auth/register", "", map[string]any{
		"username": username,
		"email":    email,
		"password": password,
	})
	if status != http.StatusCreated {
		e.t.Fatalf("register %s: status %d body %s", username, status, body)
	}
	var resp struct {
		User struct {
			ID int64 `json:"id"`
		} `json:"user"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		e.t.Fatalf("register %s: decode: %v", username, err)
	}
	return resp.User.ID
}

// login returns the session token used as a bearer credential.
func (e *testEnv) login(username, password string) string {
	e.t.Helper()
	status, body := e.do(http.MethodPost, "/auth/login", "", map[string]any{
		"username": username,
		"password": password,
	})
	if status != http.StatusOK {
		e.t.Fatalf("login %s: status %d body %s", username, status, body)
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		e.t.Fatalf("login %s: decode: %v", username, err)
	}
	return resp.Token
}

func (e *testEnv) registerAndLogin(username string) (int64, string) {
	e.t.Helper()
	id := e.register(username, username+"@example.com", "password123")
	return id, e.login(username, "password123")
}

func (e *testEnv) promoteAdmin(id int64) {
	e.t.Helper()
	if err := e.users.SetAdmin(context.Background(), id, true); err != nil {
		e.t.Fatalf("promote admin %d: %v", id, err)
	}
}

// do performs a JSON request against the test server. An empty token sends
// no credentials; otherwise it is passed as a bearer token.
func (e *testEnv) do(method, path, token string, body any) (int, []byte) {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			e.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	if err != nil {
		e.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		e.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		e.t.Fatalf("%s %s: read body: %v", method, path, err)
	}
	return resp.StatusCode, raw
}

func (e *testEnv) createIncident(token string, fields map[string]any) map[string]any {
	e.t.Helper()
	payload := map[string]any{
		"title":       "Model output drift",
		"description": "Safety classifier drifted after retraining.",
		"severity":    "medium",
		"category":    "model_behavior",
	}
	for k, v := range fields {
		payload[k] = v
	}
	status, body := e.do(http.MethodPost, "/incidents", token, payload)
	if status != http.StatusCreated {
		e.t.Fatalf("create incident: status %d body %s", status, body)
	}
	return decodeMap(e.t, body)
}

func decodeMap(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
	return out
}

func errorMessage(t *testing.T, body []byte) string {
	t.Helper()
	m := decodeMap(t, body)
	msg, _ := m["error"].(string)
	return msg
}

func incidentIDOf(t *testing.T, incident map[string]any) int64 {
	t.Helper()
	id, ok := incident["id"].(float64)
	if !ok {
		t.Fatalf("incident has no numeric id: %v", incident)
	}
	return int64(id)
}

func incidentPath(id int64) string {
	return fmt.Sprintf("/incidents/%d", id)
}
