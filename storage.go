package eduauth

import (
	"encoding/json"
	"os"
	"sync"

	goerrors "github.com/goliatone/go-errors"
)

// Storage is the persistent key-value scope shared by the token store and
// the session registry. Implementations must tolerate concurrent readers;
// there is no cross-process locking, a write in one consumer silently
// changes what every other consumer reads next.
type Storage interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Remove(key string)
}

// MemoryStorage keeps values in process memory. Used in tests and for
// sessions that should not survive a restart.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

var _ Storage = (*MemoryStorage)(nil)

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: map[string]string{}}
}

func (s *MemoryStorage) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *MemoryStorage) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

func (s *MemoryStorage) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// FileStorage persists values as a JSON file so tokens and session
// bookkeeping survive restarts. Every write flushes the whole map; the
// payload is a handful of short strings.
type FileStorage struct {
	mu     sync.Mutex
	path   string
	logger Logger
}

var _ Storage = (*FileStorage)(nil)

func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path, logger: defLogger{}}
}

func (s *FileStorage) WithLogger(logger Logger) *FileStorage {
	if logger != nil {
		s.logger = logger
	}
	return s
}

func (s *FileStorage) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	values := s.load()
	v, ok := values[key]
	return v, ok
}

func (s *FileStorage) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	values := s.load()
	values[key] = value
	s.flush(values)
}

func (s *FileStorage) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	values := s.load()
	if _, ok := values[key]; !ok {
		return
	}
	delete(values, key)
	s.flush(values)
}

// load treats a missing or corrupt file as empty storage, never as an
// error: losing cached credentials only forces a fresh login.
func (s *FileStorage) load() map[string]string {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return map[string]string{}
	}

	values := map[string]string{}
	if err := json.Unmarshal(raw, &values); err != nil {
		s.logger.Warn("storage file unreadable, starting empty", "path", s.path, "error", err)
		return map[string]string{}
	}
	return values
}

func (s *FileStorage) flush(values map[string]string) {
	raw, err := json.Marshal(values)
	if err != nil {
		s.logger.Error("storage flush marshal failed", "error", err)
		return
	}

	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		s.logger.Error("storage flush write failed", "error",
			goerrors.Wrap(err, goerrors.CategoryOperation, "failed to persist storage file"))
	}
}
