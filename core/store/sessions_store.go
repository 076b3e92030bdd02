package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type SessionRecord struct {
	ID         string
	UserID     int64
	Username   string
	CSRFToken  string
	IP         string
	UserAgent  string
	CreatedAt  time.Time
	LastSeenAt time.Time
	ExpiresAt  time.Time
}

type SessionStore interface {
	SaveSession(ctx context.Context, rec *SessionRecord) error
	GetSession(ctx context.Context, id string) (*SessionRecord, error)
	UpdateActivity(ctx context.Context, id string, now time.Time, ttl time.Duration) error
	DeleteSession(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type sessionsStore struct {
	db      *sql.DB
	dialect string
}

func NewSessionsStore(h *Handle) SessionStore {
	return &sessionsStore{db: h.DB, dialect: h.Dialect()}
}

func (s *sessionsStore) SaveSession(ctx context.Context, rec *SessionRecord) error {
	_, err := s.db.ExecContext(ctx, rebind(s.dialect, `
		INSERT INTO sessions(id, user_id, username, csrf_token, ip, user_agent, created_at, last_seen_at, expires_at)
		VALUES(?,?,?,?,?,?,?,?,?)`),
		rec.ID, rec.UserID, rec.Username, rec.CSRFToken, rec.IP, rec.UserAgent,
		rec.CreatedAt, rec.LastSeenAt, rec.ExpiresAt)
	return err
}

// GetSession returns nil for both unknown and expired sessions.
func (s *sessionsStore) GetSession(ctx context.Context, id string) (*SessionRecord, error) {
	row := s.db.QueryRowContext(ctx, rebind(s.dialect, `
		SELECT id, user_id, username, csrf_token, ip, user_agent, created_at, last_seen_at, expires_at
		FROM sessions WHERE id=?`), id)
	var rec SessionRecord
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.Username, &rec.CSRFToken, &rec.IP, &rec.UserAgent,
		&rec.CreatedAt, &rec.LastSeenAt, &rec.ExpiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if time.Now().UTC().After(rec.ExpiresAt) {
		return nil, nil
	}
	return &rec, nil
}

func (s *sessionsStore) UpdateActivity(ctx context.Context, id string, now time.Time, ttl time.Duration) error {
	_, err := s.db.ExecContext(ctx, rebind(s.dialect, `
		UPDATE sessions SET last_seen_at=?, expires_at=? WHERE id=?`),
		now, now.Add(ttl), id)
	return err
}

func (s *sessionsStore) DeleteSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, rebind(s.dialect, `DELETE FROM sessions WHERE id=?`), id)
	return err
}

func (s *sessionsStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, rebind(s.dialect, `DELETE FROM sessions WHERE expires_at < ?`), now)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}
