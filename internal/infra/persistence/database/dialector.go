package database

import (
	"os"
	"path/filepath"
	"strings"

	"tasktracker/config"
	"tasktracker/internal/errors"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	driverPostgres = "postgres"
	driverSQLite   = "sqlite"
)

// dialectorFor picks the driver from the URL scheme. An empty URL selects the SQLite file at SQLitePath.
//
//	postgres://... | postgresql://...  PostgreSQL
//	sqlite:///relative.db              SQLite, path relative to the working directory
//	sqlite:////abs/path.db             SQLite, absolute path
//	file:name?mode=memory              SQLite DSN passed through
func dialectorFor(cfg *config.DatabaseConfig) (gorm.Dialector, string, error) {
	url := strings.TrimSpace(cfg.URL)

	switch {
	case url == "":
		return openSQLiteFile(cfg.SQLitePath)
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return postgres.Open(url), driverPostgres, nil
	case strings.HasPrefix(url, "sqlite:///"):
		return openSQLiteFile(strings.TrimPrefix(url, "sqlite:///"))
	case strings.HasPrefix(url, "sqlite://"):
		return openSQLiteFile(strings.TrimPrefix(url, "sqlite://"))
	case strings.HasPrefix(url, "file:"):
		return sqlite.Open(withSQLiteParams(url)), driverSQLite, nil
	default:
		return nil, "", errors.Errorf("unsupported database url scheme in %q", redactURL(url))
	}
}

func openSQLiteFile(path string) (gorm.Dialector, string, error) {
	if path == "" {
		return nil, "", errors.New("sqlite path must not be empty")
	}
	if err := ensureDirForSQLite(path); err != nil {
		return nil, "", err
	}

	return sqlite.Open(withSQLiteParams(path)), driverSQLite, nil
}

// withSQLiteParams turns on foreign keys and a busy timeout unless the DSN already sets them.
func withSQLiteParams(dsn string) string {
	params := []string{}
	if !strings.Contains(dsn, "_foreign_keys=") && !strings.Contains(dsn, "_fk=") {
		params = append(params, "_foreign_keys=1")
	}
	if !strings.Contains(dsn, "_busy_timeout=") && !strings.Contains(dsn, "_timeout=") {
		params = append(params, "_busy_timeout=5000")
	}
	if len(params) == 0 {
		return dsn
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}

	return dsn + sep + strings.Join(params, "&")
}

func ensureDirForSQLite(path string) error {
	if strings.Contains(path, ":memory:") || strings.HasPrefix(path, "file:") {
		return nil
	}

	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create sqlite directory %s", dir)
	}

	return nil
}

func replicaDialectors(urls []string) []gorm.Dialector {
	dialectors := make([]gorm.Dialector, 0, len(urls))
	for _, url := range urls {
		dialectors = append(dialectors, postgres.Open(url))
	}

	return dialectors
}

// redactURL hides the userinfo part so credentials never reach logs or errors.
func redactURL(url string) string {
	schemeEnd := strings.Index(url, "://")
	at := strings.LastIndex(url, "@")
	if schemeEnd < 0 || at < schemeEnd {
		return url
	}

	return url[:schemeEnd+3] + "***" + url[at:]
}
