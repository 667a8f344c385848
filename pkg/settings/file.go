package settings

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"mercator-hq/stylecheck/pkg/watch"
)

// FileStore keeps preferences in a YAML or TOML file, chosen by the
// file extension (.toml for TOML, anything else YAML).
type FileStore struct {
	notifier

	path   string
	toml   bool
	logger *slog.Logger

	mu     sync.RWMutex
	values Values
}

// legacyDocument holds fields of the older preferences layout, where a
// single flag switched all custom settings on or off.
type legacyDocument struct {
	CustomEnabled *bool `yaml:"custom_enabled" toml:"custom_enabled"`
}

// OpenFileStore loads preferences from path. A missing file yields
// default preferences; it is created on the first SetValues.
func OpenFileStore(path string, logger *slog.Logger) (*FileStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s := &FileStore{
		path:   path,
		toml:   strings.EqualFold(filepath.Ext(path), ".toml"),
		logger: logger.With("component", "settings.file"),
	}

	values, err := s.read()
	if err != nil {
		return nil, err
	}
	s.values = values
	return s, nil
}

// Path returns the preferences file path.
func (s *FileStore) Path() string {
	return s.path
}

// Values implements Store.
func (s *FileStore) Values() Values {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values.Clone()
}

// SetValues implements Store. The file is replaced atomically before
// subscribers are notified.
func (s *FileStore) SetValues(v Values) error {
	v = v.Normalize()

	data, err := s.encode(v)
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}

	s.mu.Lock()
	if err := writeFileAtomic(s.path, data); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to write preferences %q: %w", s.path, err)
	}
	old := s.values
	s.values = v
	s.mu.Unlock()

	s.notify(old, v.Clone())
	return nil
}

// Reload re-reads the file and notifies subscribers of any difference.
func (s *FileStore) Reload() error {
	values, err := s.read()
	if err != nil {
		return err
	}

	s.mu.Lock()
	old := s.values
	s.values = values
	s.mu.Unlock()

	if changed := Diff(old, values); len(changed) > 0 {
		s.logger.Info("Preferences reloaded", "changed", changed)
	}
	s.notify(old, values.Clone())
	return nil
}

// Watch reloads the file whenever it changes on disk until ctx is done.
func (s *FileStore) Watch(ctx context.Context, debounce time.Duration) error {
	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		// The watcher needs the file to exist.
		if err := s.SetValues(s.Values()); err != nil {
			return err
		}
	}

	config := watch.DefaultConfig()
	config.Paths = []string{s.path}
	config.DebounceInterval = debounce

	fw, err := watch.NewFileWatcher(config, s.logger)
	if err != nil {
		return err
	}
	defer fw.Stop()

	return fw.Watch(ctx, func([]string) error {
		return s.Reload()
	})
}

func (s *FileStore) read() (Values, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Values{}, nil
	}
	if err != nil {
		return Values{}, fmt.Errorf("failed to read preferences %q: %w", s.path, err)
	}

	var (
		values Values
		legacy legacyDocument
	)
	if s.toml {
		if _, err := toml.Decode(string(data), &values); err != nil {
			return Values{}, fmt.Errorf("failed to parse preferences %q: %w", s.path, err)
		}
		_, err = toml.Decode(string(data), &legacy)
	} else {
		if err := yaml.Unmarshal(data, &values); err != nil {
			return Values{}, fmt.Errorf("failed to parse preferences %q: %w", s.path, err)
		}
		err = yaml.Unmarshal(data, &legacy)
	}
	if err != nil {
		return Values{}, fmt.Errorf("failed to parse preferences %q: %w", s.path, err)
	}

	if legacy.CustomEnabled != nil {
		values = migrateLegacy(values, *legacy.CustomEnabled)
		s.logger.Info("Migrated legacy preferences", "path", s.path, "custom_enabled", *legacy.CustomEnabled)
	}

	return values.Normalize(), nil
}

// migrateLegacy drops custom settings that the old layout had switched off.
func migrateLegacy(v Values, customEnabled bool) Values {
	if customEnabled {
		return v
	}
	v.CustomConfigFile = ""
	v.CustomPropertyFile = ""
	v.CustomClasspath = nil
	v.CustomProperties = nil
	return v
}

func (s *FileStore) encode(v Values) ([]byte, error) {
	if s.toml {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(v); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return yaml.Marshal(v)
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
