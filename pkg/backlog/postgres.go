package backlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/guido-cesarano/taskprio/pkg/tasks"
	"github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS backlog_tasks (
	id              UUID PRIMARY KEY,
	title           TEXT NOT NULL,
	due_date        DATE NOT NULL,
	estimated_hours DOUBLE PRECISION NOT NULL CHECK (estimated_hours > 0),
	importance      INTEGER NOT NULL CHECK (importance BETWEEN 1 AND 10),
	dependencies    INTEGER[] NOT NULL DEFAULT '{}',
	added_at        TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Connect opens a PostgreSQL connection and verifies it with a ping.
func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// PostgresStore keeps the backlog in the backlog_tasks table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the backlog table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating backlog schema: %w", err)
	}

	return nil
}

func (s *PostgresStore) Add(ctx context.Context, task tasks.Task) (*Entry, error) {
	entry := Entry{
		ID:   uuid.New().String(),
		Task: normalized(task),
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO backlog_tasks (id, title, due_date, estimated_hours, importance, dependencies)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING added_at
	`,
		entry.ID,
		entry.Title,
		entry.DueDate.String(),
		entry.EstimatedHours,
		entry.Importance,
		pq.Array(toInt64(entry.Dependencies)),
	).Scan(&entry.AddedAt)
	if err != nil {
		return nil, fmt.Errorf("adding backlog entry: %w", err)
	}

	return &entry, nil
}

func (s *PostgresStore) Remove(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM backlog_tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("removing backlog entry %s: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, due_date, estimated_hours, importance, dependencies, added_at
		FROM backlog_tasks
		ORDER BY added_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("listing backlog: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}

	for rows.Next() {
		var (
			entry Entry
			due   time.Time
			deps  pq.Int64Array
		)

		if err := rows.Scan(
			&entry.ID,
			&entry.Title,
			&due,
			&entry.EstimatedHours,
			&entry.Importance,
			&deps,
			&entry.AddedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning backlog entry: %w", err)
		}

		entry.DueDate = tasks.DateOf(due)
		entry.Dependencies = fromInt64(deps)

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing backlog rows: %w", err)
	}

	return entries, nil
}

func (s *PostgresStore) Snapshot(ctx context.Context) ([]tasks.Task, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	return tasksOf(entries), nil
}

func (s *PostgresStore) Len(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM backlog_tasks`).Scan(&count)

	return count, err
}

func toInt64(values []int) []int64 {
	result := make([]int64, len(values))
	for i, v := range values {
		result[i] = int64(v)
	}

	return result
}

func fromInt64(values []int64) []int {
	result := make([]int, len(values))
	for i, v := range values {
		result[i] = int(v)
	}

	return result
}
