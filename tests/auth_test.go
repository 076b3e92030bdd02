package tests

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
)

func TestRegisterAndLoginFlow(t *testing.T) {
	env := newTestEnv(t)

	env.register("alice", "alice@example.com", "password123")

	status, body := env.do(http.MethodPost, "/auth/register", "", map[string]any{
		"username": "alice",
		"email":    "other@example.com",
		"password": "password123",
	})
	if status != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate username, got %d body %s", status, body)
	}

	status, body = env.do(http.MethodPost, "/auth/login", "", map[string]any{
		"username": "alice",
		"password": "wrong-password",
	})
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad password, got %d body %s", status, body)
	}

	status, body = env.do(http.MethodPost, "/auth/login", "", map[string]any{
		"username": "alice",
		"password": "password123",
	})
	if status != http.StatusOK {
		t.Fatalf("login: status %d body %s", status, body)
	}
	var login struct {
		Token     string `json:"token"`
		CSRFToken string `json:"csrf_token"`
		User      struct {
			Username string `json:"username"`
			IsAdmin  bool   `json:"is_admin"`
		} `json:"user"`
	}
	if err := json.Unmarshal(body, &login); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if login.Token == "" || login.CSRFToken == "" {
		t.Fatalf("login response missing tokens: %s", body)
	}
	if login.User.Username != "alice" || login.User.IsAdmin {
		t.Fatalf("unexpected login user: %+v", login.User)
	}

	status, body = env.do(http.MethodGet, "/auth/me", login.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("me: status %d body %s", status, body)
	}
	me := decodeMap(t, body)
	user, _ := me["user"].(map[string]any)
	if user == nil || user["username"] != "alice" {
		t.Fatalf("unexpected me payload: %s", body)
	}

	status, _ = env.do(http.MethodPost, "/auth/logout", login.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("logout: status %d", status)
	}
	status, _ = env.do(http.MethodGet, "/auth/me", login.Token, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", status)
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name    string
		payload map[string]any
	}{
		{"bad username", map[string]any{"username": "A!", "email": "a@example.com", "password": "password123"}},
		{"bad email", map[string]any{"username": "bob", "email": "not-an-email", "password": "password123"}},
		{"short password", map[string]any{"username": "bob", "email": "bob@example.com", "password": "short"}},
	}
	for _, tc := range cases {
		status, body := env.do(http.MethodPost, "/auth/register", "", tc.payload)
		if status != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d body %s", tc.name, status, body)
		}
	}
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/incidents", "/incidents/1", "/incidents/search?q=x", "/incidents/stats"} {
		status, _ := env.do(http.MethodGet, path, "", nil)
		if status != http.StatusUnauthorized {
			t.Fatalf("GET %s without credentials: expected 401, got %d", path, status)
		}
	}
	status, _ := env.do(http.MethodPost, "/incidents", "", map[string]any{"title": "t"})
	if status != http.StatusUnauthorized {
		t.Fatalf("POST /incidents without credentials: expected 401, got %d", status)
	}
	status, _ = env.do(http.MethodGet, "/incidents", "bogus-token", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown token, got %d", status)
	}
}

func TestHomeIsPublic(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(http.MethodGet, "/", "", nil)
	if status != http.StatusOK {
		t.Fatalf("home: status %d", status)
	}
	home := decodeMap(t, body)
	if !strings.Contains(home["message"].(string), "AI Safety Incident Log") {
		t.Fatalf("unexpected home payload: %s", body)
	}
}

// Cookie-authenticated mutations require the CSRF header; bearer tokens
// bypass it since the browser never attaches them automatically.
func TestCookieMutationsRequireCSRF(t *testing.T) {
	env := newTestEnv(t)
	env.register("alice", "alice@example.com", "password123")

	status, body := env.do(http.MethodPost, "/auth/login", "", map[string]any{
		"username": "alice",
		"password": "password123",
	})
	if status != http.StatusOK {
		t.Fatalf("login: status %d body %s", status, body)
	}
	var login struct {
		Token     string `json:"token"`
		CSRFToken string `json:"csrf_token"`
	}
	if err := json.Unmarshal(body, &login); err != nil {
		t.Fatalf("decode login: %v", err)
	}

	payload := `{"title":"t","description":"d","severity":"low","category":"c"}`

	req, _ := http.NewRequest(http.MethodPost, env.srv.URL+"/incidents", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: "aegis_session", Value: login.Token})
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("cookie request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 without CSRF header, got %d", resp.StatusCode)
	}

	req, _ = http.NewRequest(http.MethodPost, env.srv.URL+"/incidents", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-CSRF-Token", login.CSRFToken)
	req.AddCookie(&http.Cookie{Name: "aegis_session", Value: login.Token})
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("cookie request with csrf: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 with CSRF header, got %d", resp.StatusCode)
	}
}
