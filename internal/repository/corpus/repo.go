// Package corpus reads the film catalogue from SQLite.
package corpus

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/kailas-cloud/filmrag/internal/domain/film"
)

// Only published, non-deleted films are visible to the retrieval pipeline.
const selectFilms = `
SELECT f.id, f.title, COALESCE(f.description, ''), COALESCE(c.name, ''),
       COALESCE(f.year, 0), COALESCE(f.region, ''), COALESCE(f.director, ''),
       COALESCE(f.actors, ''), COALESCE(f.rating, 0), COALESCE(f.cover_url, '')
FROM t_film f
LEFT JOIN t_category c ON f.category_id = c.id
WHERE f.deleted = 0 AND f.status = 0`

var schema = []string{
	`CREATE TABLE IF NOT EXISTS t_category (
		id   INTEGER PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS t_film (
		id          INTEGER PRIMARY KEY,
		title       TEXT NOT NULL,
		description TEXT,
		category_id INTEGER REFERENCES t_category(id),
		year        INTEGER,
		region      TEXT,
		director    TEXT,
		actors      TEXT,
		rating      REAL,
		cover_url   TEXT,
		status      INTEGER NOT NULL DEFAULT 0,
		deleted     INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_film_visible ON t_film(deleted, status)`,
}

// Repo is safe for concurrent use.
type Repo struct {
	db *sql.DB
}

// Open opens the SQLite database at dsn.
func Open(dsn string) (*Repo, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("corpus wal mode: %w", err)
	}
	return &Repo{db: db}, nil
}

// Close releases the database handle.
func (r *Repo) Close() error {
	return r.db.Close()
}

// EnsureSchema creates the catalogue tables when missing.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// FetchAll returns every visible film ordered by id.
func (r *Repo) FetchAll(ctx context.Context) ([]film.Film, error) {
	rows, err := r.db.QueryContext(ctx, selectFilms+` ORDER BY f.id`)
	if err != nil {
		return nil, fmt.Errorf("fetch films: %w", err)
	}
	return scanFilms(rows)
}

// FetchByIDs returns the visible films among ids, ordered by id. Unknown ids are skipped.
func (r *Repo) FetchByIDs(ctx context.Context, ids []int64) ([]film.Film, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx,
		selectFilms+` AND f.id IN (`+placeholders+`) ORDER BY f.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch films by id: %w", err)
	}
	return scanFilms(rows)
}

// Count returns the number of visible films.
func (r *Repo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM t_film WHERE deleted = 0 AND status = 0`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count films: %w", err)
	}
	return n, nil
}

// Save upserts films, creating categories by name as needed.
func (r *Repo) Save(ctx context.Context, films []film.Film) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := range films {
		f := &films[i]
		if f.ID <= 0 {
			return fmt.Errorf("film %q: id must be positive", f.Title)
		}
		catID, err := categoryID(ctx, tx, f.Category)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO t_film (id, title, description, category_id, year, region, director, actors, rating, cover_url)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				title = excluded.title, description = excluded.description,
				category_id = excluded.category_id, year = excluded.year,
				region = excluded.region, director = excluded.director,
				actors = excluded.actors, rating = excluded.rating,
				cover_url = excluded.cover_url, status = 0, deleted = 0`,
			f.ID, f.Title, f.Description, catID, f.Year, f.Region,
			f.Director, f.Actors, f.Rating, f.CoverURL,
		); err != nil {
			return fmt.Errorf("save film %d: %w", f.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Delete soft-deletes a film.
func (r *Repo) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE t_film SET deleted = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete film %d: %w", id, err)
	}
	return nil
}

// HealthCheck pings the database.
func (r *Repo) HealthCheck(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func categoryID(ctx context.Context, tx *sql.Tx, name string) (sql.NullInt64, error) {
	if name == "" {
		return sql.NullInt64{}, nil
	}
	var id int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM t_category WHERE name = ?`, name).Scan(&id)
	switch {
	case err == nil:
		return sql.NullInt64{Int64: id, Valid: true}, nil
	case !errors.Is(err, sql.ErrNoRows):
		return sql.NullInt64{}, fmt.Errorf("lookup category %q: %w", name, err)
	}

	res, err := tx.ExecContext(ctx, `INSERT INTO t_category (name) VALUES (?)`, name)
	if err != nil {
		return sql.NullInt64{}, fmt.Errorf("create category %q: %w", name, err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return sql.NullInt64{}, fmt.Errorf("category id: %w", err)
	}
	return sql.NullInt64{Int64: id, Valid: true}, nil
}

func scanFilms(rows *sql.Rows) ([]film.Film, error) {
	defer func() { _ = rows.Close() }()

	var out []film.Film
	for rows.Next() {
		var f film.Film
		if err := rows.Scan(
			&f.ID, &f.Title, &f.Description, &f.Category, &f.Year,
			&f.Region, &f.Director, &f.Actors, &f.Rating, &f.CoverURL,
		); err != nil {
			return nil, fmt.Errorf("scan film: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate films: %w", err)
	}
	return out, nil
}
