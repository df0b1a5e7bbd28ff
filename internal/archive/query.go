// Copyright (c) 2024 Neomantra Corp
//
// Read-side of the archive: an in-memory DuckDB with a view over the
// archived parquet files, so operators can run SQL against the captured
// stream without loading anything else.

package archive

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
)

// Store wraps a DuckDB session with a "trades" view over an archive
// directory's parquet files.
type Store struct {
	db *sql.DB
}

// OpenStore opens an in-memory DuckDB and points the trades view at
// dir/*.parquet. Extensions and remote filesystems are disabled; local
// file access stays on because read_parquet needs it.
func OpenStore(dir string) (*Store, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	for _, stmt := range []string{
		"SET autoinstall_known_extensions = false",
		"SET autoload_known_extensions = false",
		"SET allow_community_extensions = false",
		"SET disabled_filesystems = 'HTTPFileSystem'",
		"SET lock_configuration = true",
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("configure duckdb (%s): %w", stmt, err)
		}
	}

	glob := filepath.Join(dir, "*.parquet")
	stmt := fmt.Sprintf(`CREATE OR REPLACE VIEW trades AS SELECT * FROM read_parquet(%s)`, sqlLiteral(glob))
	if _, err := db.Exec(stmt); err != nil {
		db.Close()
		return nil, fmt.Errorf("create trades view: %w", err)
	}
	return &Store{db: db}, nil
}

// Query runs one SQL statement and renders the result as rows of strings.
func (s *Store) Query(query string) (columns []string, rows [][]string, err error) {
	dbRows, err := s.db.Query(query)
	if err != nil {
		return nil, nil, err
	}
	defer dbRows.Close()

	columns, err = dbRows.Columns()
	if err != nil {
		return nil, nil, err
	}

	for dbRows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := dbRows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		row := make([]string, len(columns))
		for i, v := range values {
			if v == nil {
				row[i] = "NULL"
			} else {
				row[i] = fmt.Sprintf("%v", v)
			}
		}
		rows = append(rows, row)
	}
	return columns, rows, dbRows.Err()
}

// Close closes the DuckDB session.
func (s *Store) Close() error { return s.db.Close() }

func sqlLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
