package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 200 * time.Millisecond

// File stores credentials in a single JSON document with the keys
// "token" and "user". Writes go through a temp file and a rename, so a
// reader never sees one key without the other.
type File struct {
	path     string
	sealer   *sealer
	logger   *slog.Logger
	debounce time.Duration

	mu sync.Mutex
}

type FileOption func(*File) error

// WithSecret encrypts the file at rest with a key derived from secret.
func WithSecret(secret string) FileOption {
	return func(f *File) error {
		if secret == "" {
			return nil
		}
		s, err := newSealer(secret)
		if err != nil {
			return err
		}
		f.sealer = s
		return nil
	}
}

func WithFileLogger(logger *slog.Logger) FileOption {
	return func(f *File) error {
		f.logger = logger
		return nil
	}
}

// WithDebounce sets how long Watch waits for a burst of file events to
// settle before signalling.
func WithDebounce(d time.Duration) FileOption {
	return func(f *File) error {
		if d > 0 {
			f.debounce = d
		}
		return nil
	}
}

func NewFile(path string, opts ...FileOption) (*File, error) {
	if path == "" {
		return nil, errors.New("credential file path is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve credential path: %w", err)
	}
	f := &File{path: abs, debounce: defaultDebounce}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, err
		}
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	return f, nil
}

func (f *File) Path() string { return f.path }

func (f *File) Put(c Credentials) error {
	if err := c.validate(); err != nil {
		return err
	}
	entries, err := encodeEntries(c)
	if err != nil {
		return err
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	if f.sealer != nil {
		if data, err = f.sealer.seal(data); err != nil {
			return err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return writeAtomic(f.path, data)
}

func (f *File) Get() (*Credentials, error) {
	f.mu.Lock()
	data, err := os.ReadFile(f.path)
	f.mu.Unlock()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	if f.sealer != nil {
		if data, err = f.sealer.open(data); err != nil {
			f.logger.Warn("ignoring unreadable credential file", "path", f.path, "error", err)
			return nil, nil
		}
	}
	var entries map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		f.logger.Warn("ignoring malformed credential file", "path", f.path, "error", err)
		return nil, nil
	}
	creds, err := decodeEntries(entries)
	if err != nil {
		f.logger.Warn("ignoring malformed credential file", "path", f.path, "error", err)
		return nil, nil
	}
	return creds, nil
}

func (f *File) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}
	return nil
}

func (f *File) Token() string {
	c, err := f.Get()
	if err != nil || c == nil {
		return ""
	}
	return c.Token
}

// Watch signals after the credential file is created, rewritten or
// removed by any process. Events are debounced.
func (f *File) Watch(ctx context.Context) (<-chan struct{}, error) {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create credential directory: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	out := make(chan struct{}, 1)
	go f.watchLoop(ctx, fsw, out)
	return out, nil
}

func (f *File) watchLoop(ctx context.Context, fsw *fsnotify.Watcher, out chan struct{}) {
	defer close(out)
	defer fsw.Close()

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != f.path {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(f.debounce)
			} else {
				timer.Reset(f.debounce)
			}
			fire = timer.C
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			f.logger.Warn("credential watcher error", "path", f.path, "error", err)
		case <-fire:
			fire = nil
			select {
			case out <- struct{}{}:
			default:
			}
		}
	}
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create credential directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { os.Remove(tmpName) }

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to sync credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close credentials: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("failed to replace credentials: %w", err)
	}
	return nil
}
