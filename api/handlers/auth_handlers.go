package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"aegis-log/config"
	"aegis-log/core/auth"
	"aegis-log/core/store"
	"aegis-log/core/utils"
)

const (
	sessionCookie = "aegis_session"
	csrfCookie    = "aegis_csrf"
)

type AuthHandler struct {
	cfg            *config.AppConfig
	users          store.UsersStore
	sessionManager *auth.SessionManager
	logger         *utils.Logger
}

func NewAuthHandler(cfg *config.AppConfig, users store.UsersStore, sm *auth.SessionManager, logger *utils.Logger) *AuthHandler {
	return &AuthHandler{cfg: cfg, users: users, sessionManager: sm, logger: logger}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := utils.ValidateUsername(req.Username); err != nil {
		writeError(w, http.StatusBadRequest, "invalid username")
		return
	}
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusBadRequest, "invalid email")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}
	ph, err := auth.HashPassword(req.Password, h.cfg.Pepper)
	if err != nil {
		h.logger.Errorf("register: hash password: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	user := &store.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: ph.Hash,
		Salt:         ph.Salt,
	}
	if _, err := h.users.Create(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusConflict, "username or email already exists")
			return
		}
		h.logger.Errorf("register: create user: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	h.logger.Printf("AUTH registered user=%s id=%d", user.Username, user.ID)
	writeJSON(w, http.StatusCreated, map[string]any{"user": userDTO(user)})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var cred auth.Credentials
	if err := json.NewDecoder(r.Body).Decode(&cred); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	cred.Username = strings.ToLower(strings.TrimSpace(cred.Username))
	if err := utils.ValidateUsername(cred.Username); err != nil {
		writeError(w, http.StatusBadRequest, "invalid username")
		return
	}
	user, err := h.users.FindByUsername(r.Context(), cred.Username)
	if err != nil || user == nil {
		h.logger.Printf("AUTH login failed user=%s: unknown user", cred.Username)
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	ph, err := auth.ParsePasswordHash(user.PasswordHash, user.Salt)
	if err != nil {
		h.logger.Errorf("login: parse password hash user=%s: %v", cred.Username, err)
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	ok, err := auth.VerifyPassword(cred.Password, h.cfg.Pepper, ph)
	if err != nil || !ok {
		h.logger.Printf("AUTH login failed user=%s: bad password", cred.Username)
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	sess, err := h.sessionManager.Create(r.Context(), user, ClientIP(r), r.UserAgent())
	if err != nil {
		h.logger.Errorf("login: create session user=%s: %v", cred.Username, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  sess.ExpiresAt,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookie,
		Value:    sess.CSRFToken,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
		Expires:  sess.ExpiresAt,
	})
	h.logger.Printf("AUTH login user=%s session=%s", user.Username, sess.ID)
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      sess.ID,
		"csrf_token": sess.CSRFToken,
		"user":       userDTO(user),
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if sr, ok := r.Context().Value(auth.SessionContextKey).(*store.SessionRecord); ok && sr != nil {
		if err := h.sessionManager.Delete(r.Context(), sr.ID); err != nil {
			h.logger.Errorf("logout: delete session %s: %v", sr.ID, err)
		}
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	http.SetCookie(w, &http.Cookie{Name: csrfCookie, Value: "", Path: "/", MaxAge: -1})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r)
	user, err := h.users.Get(r.Context(), p.ID)
	if err != nil || user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": userDTO(user)})
}
