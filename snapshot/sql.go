package snapshot

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `CREATE TABLE IF NOT EXISTS meta (
	key VARCHAR(16) PRIMARY KEY NOT NULL,
	value INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS canvases (
	id INTEGER PRIMARY KEY NOT NULL,
	layer_count INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS layers (
	canvas INTEGER NOT NULL,
	idx INTEGER NOT NULL,
	data TEXT NOT NULL,
	PRIMARY KEY (canvas, idx)
);`

// DBStore keeps the document in three SQL tables. Every save replaces the
// previous document inside one transaction.
type DBStore struct {
	db       *sql.DB
	numbered bool // $1 placeholders instead of ?
}

// OpenSQLite opens or creates a SQLite3 database at path.
func OpenSQLite(path string) (*DBStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		os.MkdirAll(dir, 0777)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	// One writer at a time is all SQLite can do.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &DBStore{db: db}, nil
}

// OpenPostgres connects to a PostgreSQL database.
func OpenPostgres(dsn string) (*DBStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	// lib/pq runs one statement per Exec.
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, err
		}
	}

	return &DBStore{db: db, numbered: true}, nil
}

func (s *DBStore) q(query string) string {
	if !s.numbered {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}

	return b.String()
}

func (s *DBStore) Save(ctx context.Context, d *Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"layers", "canvases", "meta"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}

	meta := []struct {
		key   string
		value int
	}{
		{"version", d.Version},
		{"width", d.Width},
		{"height", d.Height},
	}
	for _, m := range meta {
		if _, err := tx.ExecContext(ctx, s.q("INSERT INTO meta (key, value) VALUES (?, ?)"), m.key, m.value); err != nil {
			return err
		}
	}

	for _, c := range d.Canvases {
		if _, err := tx.ExecContext(ctx, s.q("INSERT INTO canvases (id, layer_count) VALUES (?, ?)"), c.ID, c.LayerCount); err != nil {
			return err
		}

		for _, l := range c.Layers {
			if _, err := tx.ExecContext(ctx, s.q("INSERT INTO layers (canvas, idx, data) VALUES (?, ?, ?)"), c.ID, l.Index, l.Data); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

func (s *DBStore) Load(ctx context.Context) (*Document, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM meta")
	if err != nil {
		return nil, err
	}

	d := &Document{}
	n := 0
	for rows.Next() {
		var key string
		var value int
		if err := rows.Scan(&key, &value); err != nil {
			rows.Close()
			return nil, err
		}
		n++

		switch key {
		case "version":
			d.Version = value
		case "width":
			d.Width = value
		case "height":
			d.Height = value
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if n == 0 {
		return nil, ErrNoSnapshot
	}

	rows, err = s.db.QueryContext(ctx, "SELECT id, layer_count FROM canvases ORDER BY id")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var c Canvas
		if err := rows.Scan(&c.ID, &c.LayerCount); err != nil {
			rows.Close()
			return nil, err
		}
		d.Canvases = append(d.Canvases, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, "SELECT canvas, idx, data FROM layers ORDER BY canvas, idx")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id int
		var l LayerData
		if err := rows.Scan(&id, &l.Index, &l.Data); err != nil {
			return nil, err
		}

		if c := d.Canvas(id); c != nil && l.Index > 0 {
			c.Layers = append(c.Layers, l)
		}
	}

	return d, rows.Err()
}

func (s *DBStore) Close() error {
	return s.db.Close()
}
