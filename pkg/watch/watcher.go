package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Config configures a FileWatcher.
type Config struct {
	// Paths are the files and directories to watch. A file is watched
	// through its parent directory so atomic saves (write then rename)
	// are seen.
	Paths []string

	// DebounceInterval is the quiet period before changes are delivered.
	// Default: 100ms
	DebounceInterval time.Duration

	// Extensions restricts directory events to these extensions. Empty
	// means any extension.
	Extensions []string

	// Recursive also watches subdirectories of directory paths.
	Recursive bool

	// SkipHidden ignores files and directories starting with a dot.
	SkipHidden bool
}

// DefaultConfig returns the default watcher configuration.
func DefaultConfig() *Config {
	return &Config{
		DebounceInterval: 100 * time.Millisecond,
		Recursive:        true,
		SkipHidden:       true,
	}
}

// FileWatcher delivers debounced batches of changed paths.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	config   *Config
	debounce *Debouncer

	// files maps watched file paths to true; directories watched on
	// their behalf only report events for these names.
	files map[string]bool
	dirs  map[string]bool

	mu      sync.Mutex
	running bool
	changed map[string]struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
	stop    sync.Once
}

// NewFileWatcher creates a watcher. Call Watch to start it.
func NewFileWatcher(config *Config, logger *slog.Logger) (*FileWatcher, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.DebounceInterval <= 0 {
		config.DebounceInterval = 100 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &FileWatcher{
		watcher:  watcher,
		logger:   logger.With("component", "watch"),
		config:   config,
		debounce: NewDebouncer(config.DebounceInterval),
		files:    make(map[string]bool),
		dirs:     make(map[string]bool),
		changed:  make(map[string]struct{}),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Watch blocks delivering changes to onChange until ctx is done or Stop is
// called. onChange receives the sorted set of paths changed during one
// quiet period; its errors are logged.
func (fw *FileWatcher) Watch(ctx context.Context, onChange func(paths []string) error) error {
	fw.mu.Lock()
	if fw.running {
		fw.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	fw.running = true
	fw.mu.Unlock()

	defer close(fw.doneCh)

	for _, p := range fw.config.Paths {
		if err := fw.addPath(p); err != nil {
			return fmt.Errorf("failed to watch path: %w", err)
		}
	}

	fw.logger.Info("File watcher started",
		"paths", fw.config.Paths,
		"debounce_ms", fw.config.DebounceInterval.Milliseconds(),
	)

	for {
		select {
		case <-ctx.Done():
			fw.logger.Info("File watcher stopped (context cancelled)")
			return nil

		case <-fw.stopCh:
			fw.logger.Info("File watcher stopped")
			return nil

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}

			if event.Op&fsnotify.Create == fsnotify.Create && fw.config.Recursive {
				fw.maybeAddDirectory(event.Name)
			}

			if !fw.shouldProcessEvent(event) {
				continue
			}

			fw.logger.Debug("File event detected",
				"path", event.Name,
				"op", event.Op.String(),
			)

			fw.mu.Lock()
			fw.changed[event.Name] = struct{}{}
			fw.mu.Unlock()

			fw.debounce.Trigger(func() {
				paths := fw.drain()
				if len(paths) == 0 {
					return
				}
				if err := onChange(paths); err != nil {
					fw.logger.Error("Change handler failed",
						"paths", paths,
						"error", err,
					)
				}
			})

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			fw.logger.Error("File watcher error", "error", err)
		}
	}
}

func (fw *FileWatcher) drain() []string {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	paths := make([]string, 0, len(fw.changed))
	for p := range fw.changed {
		paths = append(paths, p)
	}
	clear(fw.changed)
	sort.Strings(paths)
	return paths
}

// Stop stops the watcher and releases its resources. It is safe to call
// more than once and before Watch.
func (fw *FileWatcher) Stop() error {
	var err error
	fw.stop.Do(func() {
		close(fw.stopCh)

		fw.mu.Lock()
		running := fw.running
		fw.mu.Unlock()
		if running {
			<-fw.doneCh
		}

		fw.debounce.Stop()
		if cerr := fw.watcher.Close(); cerr != nil {
			err = fmt.Errorf("failed to close watcher: %w", cerr)
		}
	})
	return err
}

func (fw *FileWatcher) addPath(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		fw.files[abs] = true
		dir := filepath.Dir(abs)
		if fw.dirs[dir] {
			return nil
		}
		if err := fw.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch directory %q: %w", dir, err)
		}
		return nil
	}

	if !fw.config.Recursive {
		fw.dirs[abs] = true
		return fw.watcher.Add(abs)
	}
	return fw.addDirectory(abs)
}

func (fw *FileWatcher) addDirectory(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if fw.config.SkipHidden && strings.HasPrefix(filepath.Base(path), ".") && path != dir {
			return filepath.SkipDir
		}
		if err := fw.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch directory %q: %w", path, err)
		}
		fw.dirs[path] = true
		fw.logger.Debug("Watching directory", "path", path)
		return nil
	})
}

// maybeAddDirectory starts watching a directory created under a
// recursively watched tree.
func (fw *FileWatcher) maybeAddDirectory(path string) {
	if !fw.dirs[filepath.Dir(path)] {
		return
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	if err := fw.addDirectory(path); err != nil {
		fw.logger.Warn("Failed to watch new directory", "path", path, "error", err)
	}
}

// shouldProcessEvent determines if an event should be delivered.
func (fw *FileWatcher) shouldProcessEvent(event fsnotify.Event) bool {
	if event.Op&fsnotify.Chmod == fsnotify.Chmod {
		return false
	}

	if fw.files[event.Name] {
		return true
	}

	// Events for siblings of a watched file are not ours.
	if !fw.dirs[filepath.Dir(event.Name)] {
		return false
	}

	if fw.config.SkipHidden && strings.HasPrefix(filepath.Base(event.Name), ".") {
		return false
	}

	if len(fw.config.Extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(event.Name))
	return slices.ContainsFunc(fw.config.Extensions, func(valid string) bool {
		return ext == strings.ToLower(valid)
	})
}
