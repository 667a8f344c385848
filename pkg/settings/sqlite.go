package settings

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver

	"mercator-hq/stylecheck/pkg/diag"
)

// legacyEnabledKey is the row written by the older preferences layout.
const legacyEnabledKey = "custom.enabled"

const preferencesSchema = `
CREATE TABLE IF NOT EXISTS preferences (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// SQLStore keeps preferences as key/value rows in an SQLite database.
// The classpath is stored as a path list and custom properties as
// key=value lines.
type SQLStore struct {
	notifier

	db     *sql.DB
	logger *slog.Logger

	mu     sync.RWMutex
	values Values
}

// OpenSQLStore opens (creating if needed) the preferences database at path.
func OpenSQLStore(ctx context.Context, path string, logger *slog.Logger) (*SQLStore, error) {
	if path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, preferencesSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	s := &SQLStore{db: db, logger: logger.With("component", "settings.sqlite")}
	values, err := s.load(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.values = values
	return s, nil
}

// Values implements Store.
func (s *SQLStore) Values() Values {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values.Clone()
}

// SetValues implements Store.
func (s *SQLStore) SetValues(v Values) error {
	return s.SetValuesContext(context.Background(), v)
}

// SetValuesContext writes v in one transaction and notifies subscribers.
func (s *SQLStore) SetValuesContext(ctx context.Context, v Values) error {
	v = v.Normalize()

	s.mu.Lock()
	if err := s.save(ctx, v); err != nil {
		s.mu.Unlock()
		return err
	}
	old := s.values
	s.values = v
	s.mu.Unlock()

	s.notify(old, v.Clone())
	return nil
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) load(ctx context.Context) (Values, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM preferences`)
	if err != nil {
		return Values{}, fmt.Errorf("failed to query preferences: %w", err)
	}
	defer rows.Close()

	raw := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return Values{}, fmt.Errorf("failed to scan preference: %w", err)
		}
		raw[k] = v
	}
	if err := rows.Err(); err != nil {
		return Values{}, fmt.Errorf("failed to read preferences: %w", err)
	}

	var values Values
	if sev, ok := raw[PropSeverity]; ok {
		policy, err := diag.ParsePolicy(sev)
		if err != nil {
			s.logger.Warn("Ignoring invalid stored severity", "value", sev, "error", err)
		}
		values.Severity = policy
	}
	values.CustomConfigFile = raw[PropCustomConfigFile]
	values.CustomPropertyFile = raw[PropCustomPropertyFile]
	values.CustomClasspath = SplitClasspath(raw[PropCustomClasspath])
	if props := raw[PropCustomProperties]; props != "" {
		values.CustomProperties = ParseProperties(props)
	}
	values.IgnoredPathsPattern = raw[PropIgnoredPathsPattern]
	values.CheckedPathsPattern = raw[PropCheckedPathsPattern]

	if enabled, ok := raw[legacyEnabledKey]; ok {
		values = migrateLegacy(values, enabled == "true")
		if err := s.save(ctx, values.Normalize()); err != nil {
			return Values{}, err
		}
		s.logger.Info("Migrated legacy preferences", "custom_enabled", enabled)
	}

	return values.Normalize(), nil
}

func (s *SQLStore) save(ctx context.Context, v Values) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows := map[string]string{
		PropSeverity:            v.Severity.String(),
		PropCustomConfigFile:    v.CustomConfigFile,
		PropCustomPropertyFile:  v.CustomPropertyFile,
		PropCustomClasspath:     JoinClasspath(v.CustomClasspath),
		PropCustomProperties:    FormatProperties(v.CustomProperties),
		PropIgnoredPathsPattern: v.IgnoredPathsPattern,
		PropCheckedPathsPattern: v.CheckedPathsPattern,
	}

	for key, value := range rows {
		if value == "" {
			_, err = tx.ExecContext(ctx, `DELETE FROM preferences WHERE key = ?`, key)
		} else {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO preferences (key, value) VALUES (?, ?)
				ON CONFLICT (key) DO UPDATE SET value = excluded.value
			`, key, value)
		}
		if err != nil {
			return fmt.Errorf("failed to save preference %s: %w", key, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM preferences WHERE key = ?`, legacyEnabledKey); err != nil {
		return fmt.Errorf("failed to remove legacy preference: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit preferences: %w", err)
	}
	return nil
}
