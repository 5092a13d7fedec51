package repository

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/domain"
)

const memoryPath = ":memory:"

var sqlitePragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"busy_timeout(5000)",
	"foreign_keys(ON)",
}

// dataSource resolves the database/sql driver name and DSN for a config.
func dataSource(cfg domain.RepositoryConfig) (driver, dsn string, err error) {
	switch cfg.Driver {
	case "sqlite":
		return "sqlite", sqliteDSN(cfg.SQLitePath), nil
	case "postgres":
		return "postgres", postgresDSN(cfg), nil
	default:
		return "", "", fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}
}

func sqliteDSN(path string) string {
	if path == "" {
		path = "./motordiag.db"
	}

	q := url.Values{}
	for _, p := range sqlitePragmas {
		// WAL is meaningless for a private in-memory database
		if path == memoryPath && p == "journal_mode(WAL)" {
			continue
		}
		q.Add("_pragma", p)
	}
	return "file:" + path + "?" + q.Encode()
}

// postgresDSN builds a URL-form DSN so credentials with spaces or quotes
// survive intact.
func postgresDSN(cfg domain.RepositoryConfig) string {
	host := cfg.PostgresHost
	if host == "" {
		host = "localhost"
	}
	port := cfg.PostgresPort
	if port == 0 {
		port = 5432
	}
	dbname := cfg.PostgresDB
	if dbname == "" {
		dbname = "motordiag"
	}
	sslmode := cfg.PostgresSSLMode
	if sslmode == "" {
		sslmode = "disable"
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   host + ":" + strconv.Itoa(port),
		Path:   "/" + dbname,
	}
	if cfg.PostgresUser != "" {
		u.User = url.UserPassword(cfg.PostgresUser, cfg.PostgresPassword)
	}
	q := url.Values{}
	q.Set("sslmode", sslmode)
	q.Set("application_name", "motordiag")
	q.Set("connect_timeout", "10")
	u.RawQuery = q.Encode()
	return u.String()
}

// open connects and pings the configured database. SQLite files get their
// directory created; an in-memory SQLite database is pinned to a single
// connection so every query sees the same data.
func open(cfg domain.RepositoryConfig) (*sql.DB, error) {
	driver, dsn, err := dataSource(cfg)
	if err != nil {
		return nil, err
	}

	if driver == "sqlite" && cfg.SQLitePath != memoryPath {
		path := cfg.SQLitePath
		if path == "" {
			path = "./motordiag.db"
		}
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	if driver == "sqlite" && cfg.SQLitePath == memoryPath {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", driver, err)
	}
	return db, nil
}
