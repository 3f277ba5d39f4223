package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS nodes (
	path TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// SQL stores one row per written path in a sqlite compatible database.
type SQL struct {
	db *sql.DB
}

func wrapOpenDB(err error) error {
	return fmt.Errorf("open db: %w", err)
}

// OpenSQLite opens (creating if needed) the sqlite database at path, path
// may be ":memory:".
func OpenSQLite(path string) (*SQL, error) {
	if path != ":memory:" {
		err := os.MkdirAll(filepath.Dir(path), 0777)
		if err != nil {
			return nil, wrapOpenDB(err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, wrapOpenDB(err)
	}
	// sqlite allows a single writer, more connections only contend on the lock
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		db.Close()
		return nil, wrapOpenDB(err)
	}
	return NewSQL(db)
}

// OpenLibsql connects to a remote libsql server, authToken is appended to
// the url when non empty.
func OpenLibsql(url, authToken string) (*SQL, error) {
	if authToken != "" {
		separator := "?"
		if strings.Contains(url, "?") {
			separator = "&"
		}
		url += separator + "authToken=" + authToken
	}
	db, err := sql.Open("libsql", url)
	if err != nil {
		return nil, wrapOpenDB(err)
	}
	return NewSQL(db)
}

// NewSQL creates the nodes table on db if it does not exist yet.
func NewSQL(db *sql.DB) (*SQL, error) {
	_, err := db.Exec(schema)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQL{db: db}, nil
}

func (s *SQL) Update(ctx context.Context, updates map[string]any) error {
	writes, err := prepareWrites(updates)
	if err != nil {
		return err
	}
	if len(writes) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, w := range writes {
		prefix := w.path + "/"
		_, err = tx.ExecContext(
			ctx,
			"DELETE FROM nodes WHERE path = ? OR substr(path, 1, length(?)) = ?",
			w.path, prefix, prefix,
		)
		if err != nil {
			return fmt.Errorf("clear %s: %w", w.path, err)
		}
		_, err = tx.ExecContext(
			ctx,
			"INSERT INTO nodes (path, value) VALUES (?, ?)",
			w.path, string(w.value),
		)
		if err != nil {
			return fmt.Errorf("write %s: %w", w.path, err)
		}
	}

	return tx.Commit()
}

func (s *SQL) Get(ctx context.Context, path string) (json.RawMessage, bool, error) {
	target, err := CleanPath(path)
	if err != nil {
		return nil, false, err
	}

	exact := append(ancestors(target), target)
	args := make([]any, 0, len(exact)+2)
	for _, p := range exact {
		args = append(args, p)
	}
	prefix := target + "/"
	args = append(args, prefix, prefix)

	query := fmt.Sprintf(
		"SELECT path, value FROM nodes WHERE path IN (%s) OR substr(path, 1, length(?)) = ?",
		strings.TrimSuffix(strings.Repeat("?, ", len(exact)), ", "),
	)
	result, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, false, err
	}
	defer result.Close()

	var rows []row
	for result.Next() {
		var r row
		var value string
		err = result.Scan(&r.path, &value)
		if err != nil {
			return nil, false, err
		}
		r.value = []byte(value)
		rows = append(rows, r)
	}
	if err := result.Err(); err != nil {
		return nil, false, err
	}

	return assemble(target, rows)
}

func (s *SQL) Close() error {
	return s.db.Close()
}
