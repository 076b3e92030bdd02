package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"

	"github.com/gofrs/uuid/v5"

	"aegis-log/config"
	"aegis-log/core/store"
	"aegis-log/core/utils"
)

type contextKey string

// SessionContextKey carries the *store.SessionRecord of the authenticated
// request through the context.
const SessionContextKey contextKey = "aegis.session"

// PrincipalContextKey carries the rbac.Principal derived from the session.
const PrincipalContextKey contextKey = "aegis.principal"

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type SessionManager struct {
	store  store.SessionStore
	cfg    *config.AppConfig
	logger *utils.Logger
}

func NewSessionManager(store store.SessionStore, cfg *config.AppConfig, logger *utils.Logger) *SessionManager {
	return &SessionManager{store: store, cfg: cfg, logger: logger}
}

func (m *SessionManager) Create(ctx context.Context, user *store.User, ip, userAgent string) (*store.SessionRecord, error) {
	id := uuid.Must(uuid.NewV4()).String()
	var csrf string
	var err error
	if m.cfg.CSRFKey != "" {
		csrf = GenerateCSRF(m.cfg.CSRFKey, id)
	} else {
		csrf, err = utils.RandString(32)
		if err != nil {
			return nil, err
		}
	}
	now := utils.NowUTC()
	rec := &store.SessionRecord{
		ID:         id,
		UserID:     user.ID,
		Username:   user.Username,
		CSRFToken:  csrf,
		IP:         ip,
		UserAgent:  userAgent,
		CreatedAt:  now,
		LastSeenAt: now,
		ExpiresAt:  now.Add(m.cfg.EffectiveSessionTTL()),
	}
	if err := m.store.SaveSession(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (m *SessionManager) Refresh(ctx context.Context, sessID string) error {
	return m.store.UpdateActivity(ctx, sessID, utils.NowUTC(), m.cfg.EffectiveSessionTTL())
}

func (m *SessionManager) Delete(ctx context.Context, sessID string) error {
	return m.store.DeleteSession(ctx, sessID)
}

func GenerateCSRF(key, sessionID string) string {
	mac := hmac.New(sha256.New, []byte(key))
	_, _ = mac.Write([]byte(sessionID))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
