package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"aegis-log/config"
	"aegis-log/core/utils"
)

const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"

	pingTimeout    = 5 * time.Second
	pgMaxOpenConns = 25
	pgMaxIdleConns = 5
	pgConnMaxIdle  = 2 * time.Minute
	pgConnMaxLife  = 30 * time.Minute
)

// Handle couples the sql.DB with the dialect the stores need for
// placeholder rebinding.
type Handle struct {
	*sql.DB
	dialect string
}

func (h *Handle) Dialect() string { return h.dialect }

func NewDB(cfg *config.AppConfig, logger *utils.Logger) (*Handle, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	switch driver {
	case DialectPostgres:
		db, err := sql.Open("pgx", cfg.DBURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		db.SetMaxOpenConns(pgMaxOpenConns)
		db.SetMaxIdleConns(pgMaxIdleConns)
		db.SetConnMaxIdleTime(pgConnMaxIdle)
		db.SetConnMaxLifetime(pgConnMaxLife)
		if err := ping(db); err != nil {
			_ = db.Close()
			return nil, err
		}
		logger.Printf("DB connected driver=postgres")
		return &Handle{DB: db, dialect: DialectPostgres}, nil
	case DialectSQLite, "":
		path := strings.TrimSpace(cfg.DBURL)
		if path == "" {
			path = "data/aegis.db"
		}
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
		dsn := "file:" + path + "?" + sqlitePragmas()
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// modernc sqlite serializes writes; a single writer connection
		// avoids SQLITE_BUSY under concurrent requests.
		db.SetMaxOpenConns(1)
		if err := ping(db); err != nil {
			_ = db.Close()
			return nil, err
		}
		logger.Printf("DB connected driver=sqlite path=%s", path)
		return &Handle{DB: db, dialect: DialectSQLite}, nil
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.DBDriver)
	}
}

func sqlitePragmas() string {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout("+strconv.Itoa(int(5*time.Second/time.Millisecond))+")")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "foreign_keys(1)")
	return q.Encode()
}

func ping(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping db: %w", err)
	}
	return nil
}

// rebind rewrites '?' placeholders to '$n' for the postgres dialect.
// Store queries are written with '?' and rebound once per call.
func rebind(dialect, query string) string {
	if dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
