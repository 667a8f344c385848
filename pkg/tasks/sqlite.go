package tasks

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"mercator-hq/stylecheck/pkg/config"
	"mercator-hq/stylecheck/pkg/diag"
)

// Store keeps tasks in a SQLite database.
type Store struct {
	db     *sql.DB
	config config.SQLiteConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewSQLiteStore opens the database at cfg.Path and creates the schema.
func NewSQLiteStore(cfg config.SQLiteConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "tasks.sqlite")

	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, newStorageError("open", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	s := &Store{
		db:     db,
		config: cfg,
		logger: logger,
		now:    time.Now,
	}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("Task store initialized",
		"path", cfg.Path,
		"wal_mode", cfg.WALMode,
	)
	return s, nil
}

func (s *Store) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return newStorageError("enable_wal", err)
		}
	}

	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())); err != nil {
		return newStorageError("set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return newStorageError("create_schema", err)
	}
	if _, err := s.db.Exec(insertSchemaVersion, SchemaVersion); err != nil {
		return newStorageError("insert_schema_version", err)
	}

	var version int
	if err := s.db.QueryRow(getSchemaVersion).Scan(&version); err != nil {
		return newStorageError("get_schema_version", err)
	}
	if version != SchemaVersion {
		return newStorageError("schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}
	return nil
}

// Record replaces the tasks of path with events from scan scanID.
func (s *Store) Record(ctx context.Context, scanID, path string, events []diag.Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return newStorageError("begin", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM tasks WHERE file = ?", path); err != nil {
		return newStorageError("record", err)
	}

	if len(events) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO tasks (id, scan_id, file, line, col, level, source, message, recorded_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return newStorageError("record", err)
		}
		defer stmt.Close()

		recordedAt := s.now().UnixMilli()
		for _, e := range events {
			_, err := stmt.ExecContext(ctx,
				uuid.NewString(), scanID, path,
				e.Line, e.Column, int(e.Level), e.Source, e.Message,
				recordedAt,
			)
			if err != nil {
				return newStorageError("record", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return newStorageError("commit", err)
	}
	return nil
}

// Query returns the tasks matching q ordered by file, line and column.
func (s *Store) Query(ctx context.Context, q *Query) ([]*Task, error) {
	if q == nil {
		q = &Query{}
	}
	where, args := buildWhereClause(q)

	sqlQuery := "SELECT id, scan_id, file, line, col, level, source, message, recorded_at FROM tasks"
	if where != "" {
		sqlQuery += " WHERE " + where
	}
	sqlQuery += " ORDER BY file, line, col"

	limit := DefaultLimit
	if q.Limit > 0 {
		limit = q.Limit
	}
	sqlQuery += fmt.Sprintf(" LIMIT %d", limit)
	if q.Offset > 0 {
		sqlQuery += fmt.Sprintf(" OFFSET %d", q.Offset)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, newStorageError("query", err)
	}
	defer rows.Close()

	var out []*Task
	for rows.Next() {
		var (
			t          Task
			level      int
			source     sql.NullString
			recordedAt int64
		)
		if err := rows.Scan(&t.ID, &t.ScanID, &t.File, &t.Line, &t.Column, &level, &source, &t.Message, &recordedAt); err != nil {
			return nil, newStorageError("scan", err)
		}
		t.Level = diag.Level(level)
		t.Source = source.String
		t.RecordedAt = time.UnixMilli(recordedAt)
		out = append(out, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, newStorageError("query", err)
	}
	return out, nil
}

// Count returns the number of tasks matching q.
func (s *Store) Count(ctx context.Context, q *Query) (int64, error) {
	if q == nil {
		q = &Query{}
	}
	where, args := buildWhereClause(q)

	sqlQuery := "SELECT COUNT(*) FROM tasks"
	if where != "" {
		sqlQuery += " WHERE " + where
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, sqlQuery, args...).Scan(&count); err != nil {
		return 0, newStorageError("count", err)
	}
	return count, nil
}

// Delete removes the tasks matching q and returns how many were removed.
// Limit and Offset are ignored.
func (s *Store) Delete(ctx context.Context, q *Query) (int64, error) {
	if q == nil {
		q = &Query{}
	}
	where, args := buildWhereClause(q)

	sqlQuery := "DELETE FROM tasks"
	if where != "" {
		sqlQuery += " WHERE " + where
	}

	result, err := s.db.ExecContext(ctx, sqlQuery, args...)
	if err != nil {
		return 0, newStorageError("delete", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, newStorageError("delete", err)
	}
	return n, nil
}

// DeleteOldest removes the n least recently recorded tasks.
func (s *Store) DeleteOldest(ctx context.Context, n int64) (int64, error) {
	if n <= 0 {
		return 0, nil
	}
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM tasks WHERE id IN (
			SELECT id FROM tasks ORDER BY recorded_at ASC, id ASC LIMIT ?
		)`, n)
	if err != nil {
		return 0, newStorageError("delete_oldest", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, newStorageError("delete_oldest", err)
	}
	return deleted, nil
}

// PingContext checks the database connection.
func (s *Store) PingContext(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return newStorageError("close", err)
	}
	s.logger.Debug("Task store closed")
	return nil
}

func buildWhereClause(q *Query) (string, []any) {
	var (
		conditions []string
		args       []any
	)
	if q.File != "" {
		conditions = append(conditions, "file = ?")
		args = append(args, q.File)
	}
	if q.ScanID != "" {
		conditions = append(conditions, "scan_id = ?")
		args = append(args, q.ScanID)
	}
	if q.MinLevel > diag.LevelIgnore {
		conditions = append(conditions, "level >= ?")
		args = append(args, int(q.MinLevel))
	}
	if q.Before != nil {
		conditions = append(conditions, "recorded_at < ?")
		args = append(args, q.Before.UnixMilli())
	}
	return strings.Join(conditions, " AND "), args
}
