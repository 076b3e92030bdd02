package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Salt         string    `json:"-"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

type UsersStore interface {
	Create(ctx context.Context, user *User) (int64, error)
	Get(ctx context.Context, id int64) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash, salt string) error
	SetAdmin(ctx context.Context, id int64, isAdmin bool) error
	Count(ctx context.Context) (int64, error)
}

type usersStore struct {
	db      *sql.DB
	dialect string
}

func NewUsersStore(h *Handle) UsersStore {
	return &usersStore{db: h.DB, dialect: h.Dialect()}
}

func (s *usersStore) Create(ctx context.Context, user *User) (int64, error) {
	now := time.Now().UTC()
	var id int64
	err := s.db.QueryRowContext(ctx, rebind(s.dialect, `
		INSERT INTO users(username, email, password_hash, salt, is_admin, created_at)
		VALUES(?,?,?,?,?,?) RETURNING id`),
		strings.ToLower(strings.TrimSpace(user.Username)), strings.ToLower(strings.TrimSpace(user.Email)),
		user.PasswordHash, user.Salt, user.IsAdmin, now).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrConflict
		}
		return 0, err
	}
	user.ID = id
	user.CreatedAt = now
	return id, nil
}

func (s *usersStore) Get(ctx context.Context, id int64) (*User, error) {
	row := s.db.QueryRowContext(ctx, rebind(s.dialect, `
		SELECT id, username, email, password_hash, salt, is_admin, created_at
		FROM users WHERE id=?`), id)
	return scanUser(row)
}

func (s *usersStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	row := s.db.QueryRowContext(ctx, rebind(s.dialect, `
		SELECT id, username, email, password_hash, salt, is_admin, created_at
		FROM users WHERE username=?`), strings.ToLower(strings.TrimSpace(username)))
	return scanUser(row)
}

func (s *usersStore) UpdatePassword(ctx context.Context, id int64, passwordHash, salt string) error {
	res, err := s.db.ExecContext(ctx, rebind(s.dialect, `
		UPDATE users SET password_hash=?, salt=? WHERE id=?`), passwordHash, salt, id)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *usersStore) SetAdmin(ctx context.Context, id int64, isAdmin bool) error {
	res, err := s.db.ExecContext(ctx, rebind(s.dialect, `
		UPDATE users SET is_admin=? WHERE id=?`), isAdmin, id)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *usersStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Salt, &u.IsAdmin, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}
