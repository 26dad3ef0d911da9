package replay

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect selects the SQL flavour of an SQLStore.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

func (d Dialect) driver() string {
	if d == Postgres {
		return "pgx"
	}
	return "sqlite"
}

func (d Dialect) schema() string {
	id := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	if d == Postgres {
		id = "id BIGSERIAL PRIMARY KEY"
	}
	return `CREATE TABLE IF NOT EXISTS replay_frames (
        ` + id + `,
        run_id TEXT NOT NULL,
        seq INTEGER NOT NULL,
        minute INTEGER NOT NULL,
        frame TEXT NOT NULL
    );`
}

// rebind rewrites ? placeholders for dialects using numbered parameters.
func (d Dialect) rebind(q string) string {
	if d != Postgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SQLStore persists frames to SQLite or PostgreSQL.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string) (*SQLStore, error) {
	return NewSQLStore(SQLite, path)
}

// NewSQLStore opens dsn with the driver of d and ensures schema.
func NewSQLStore(d Dialect, dsn string) (*SQLStore, error) {
	db, err := sql.Open(d.driver(), dsn)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(d.schema()); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLStore{db: db, dialect: d}, nil
}

// Append writes the frame to the database.
func (s *SQLStore) Append(ctx context.Context, f Frame) error {
	b, err := json.Marshal(f)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.dialect.rebind(
		`INSERT INTO replay_frames (run_id, seq, minute, frame) VALUES (?, ?, ?, ?)`),
		f.RunID, f.Seq, f.Minute, string(b))
	return err
}

// Query returns frames matching q in insertion order.
func (s *SQLStore) Query(ctx context.Context, q Query) ([]Frame, error) {
	var args []any
	query := `SELECT frame FROM replay_frames WHERE minute >= ?`
	args = append(args, q.From)
	if q.RunID != "" {
		query += ` AND run_id = ?`
		args = append(args, q.RunID)
	}
	if q.To > 0 {
		query += ` AND minute <= ?`
		args = append(args, q.To)
	}
	query += ` ORDER BY id`
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []Frame
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var f Frame
		if err := json.Unmarshal([]byte(data), &f); err != nil {
			return nil, fmt.Errorf("unmarshal frame: %w", err)
		}
		res = append(res, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Close closes the underlying database.
func (s *SQLStore) Close() error { return s.db.Close() }
