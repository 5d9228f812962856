// Package store persists prediction records in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/iris-ai/irisd/pkg/models"
)

// ErrInvalidPage is returned by List for a negative limit or offset.
var ErrInvalidPage = errors.New("limit and offset must be non-negative")

// Store appends and lists prediction records.
type Store interface {
	// Append persists p, assigning its ID and CreatedAt.
	Append(ctx context.Context, p models.Prediction) (models.Prediction, error)
	// List returns up to limit records, most recent first, skipping offset.
	List(ctx context.Context, limit, offset int) ([]models.Prediction, error)
	// Ping reports whether the store can serve requests.
	Ping(ctx context.Context) error
	// Close releases resources.
	Close() error
}

// SQLiteStore implements Store with a SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithClock overrides the time source for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *SQLiteStore) { s.now = now }
}

const createTable = `
CREATE TABLE IF NOT EXISTS predictions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	sepal_length REAL NOT NULL,
	sepal_width REAL NOT NULL,
	petal_length REAL NOT NULL,
	petal_width REAL NOT NULL,
	predicted_class INTEGER NOT NULL,
	created_at DATETIME
);
`

// New opens the database at dsn and creates the predictions table if it
// does not exist.
func New(dsn string, opts ...Option) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store db: %w", err)
	}

	// One writer at a time avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate store db: %w", err)
	}

	s := &SQLiteStore{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Append inserts p and returns it with the assigned ID and UTC timestamp.
// Each call takes its own connection from the pool and returns it before
// returning.
func (s *SQLiteStore) Append(ctx context.Context, p models.Prediction) (models.Prediction, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return models.Prediction{}, fmt.Errorf("append prediction: %w", err)
	}
	defer conn.Close()

	p.CreatedAt = s.now().UTC()
	res, err := conn.ExecContext(ctx,
		`INSERT INTO predictions (sepal_length, sepal_width, petal_length, petal_width, predicted_class, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.Features.SepalLength, p.Features.SepalWidth, p.Features.PetalLength, p.Features.PetalWidth,
		p.PredictedClass, p.CreatedAt,
	)
	if err != nil {
		return models.Prediction{}, fmt.Errorf("append prediction: %w", err)
	}
	p.ID, err = res.LastInsertId()
	if err != nil {
		return models.Prediction{}, fmt.Errorf("append prediction id: %w", err)
	}
	return p, nil
}

// List returns records ordered by ID descending. The result is empty, not
// nil, when no rows match.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]models.Prediction, error) {
	if limit < 0 || offset < 0 {
		return nil, ErrInvalidPage
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("list predictions: %w", err)
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx,
		`SELECT id, sepal_length, sepal_width, petal_length, petal_width, predicted_class, created_at
		 FROM predictions ORDER BY id DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list predictions: %w", err)
	}
	defer rows.Close()

	out := []models.Prediction{}
	for rows.Next() {
		var p models.Prediction
		var created sql.NullTime
		if err := rows.Scan(&p.ID,
			&p.Features.SepalLength, &p.Features.SepalWidth, &p.Features.PetalLength, &p.Features.PetalWidth,
			&p.PredictedClass, &created,
		); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		if created.Valid {
			p.CreatedAt = created.Time.UTC()
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping store: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
