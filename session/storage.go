package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/log"
)

var (
	ErrNoSession   = errors.New("no session")
	ErrNotFound    = errors.New("key not found")
	ErrCorruptFile = errors.New("session file is corrupt")
)

// Storage is a string key-value store that outlives the process, the way browser local
// storage does for a web client.
type Storage interface {
	Get(c context.Context, key string) (string, error)
	Set(c context.Context, key string, value string) error
	Delete(c context.Context, key string) error
}

type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: map[string]string{}}
}

func (s *MemoryStorage) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (s *MemoryStorage) Set(_ context.Context, key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemoryStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// FileStorage keeps every key in one JSON object on disk. Writes go to a temporary file
// that is renamed over the old one.
type FileStorage struct {
	mu   sync.Mutex
	path string
}

func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

func (s *FileStorage) read() (map[string]string, error) {
	values := map[string]string{}
	content, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed reading session file with error=%w", err)
	}
	if len(content) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(content, &values); err != nil {
		return nil, fmt.Errorf("%w: failed decoding session file with error=%w", ErrCorruptFile, err)
	}
	// a file holding null decodes to a nil map
	if values == nil {
		values = map[string]string{}
	}
	return values, nil
}

func (s *FileStorage) write(values map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed creating session directory with error=%w", err)
	}
	content, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed encoding session file with error=%w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, content, 0o600); err != nil {
		return fmt.Errorf("failed writing session file with error=%w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed replacing session file with error=%w", err)
	}
	return nil
}

// readForWrite returns the stored values, starting over from an empty set when the file
// cannot be decoded so that a write can replace it.
func (s *FileStorage) readForWrite(c context.Context) (values map[string]string, corrupt bool, err error) {
	values, err = s.read()
	if errors.Is(err, ErrCorruptFile) {
		zerolog.Ctx(c).Warn().
			Err(err).
			Str(log.KeyTag, "FileStorage readForWrite").
			Str(log.KeyFilename, s.path).
			Msg("overwriting corrupt session file")
		return map[string]string{}, true, nil
	}
	return values, false, err
}

func (s *FileStorage) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.read()
	if err != nil {
		return "", err
	}
	value, ok := values[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (s *FileStorage) Set(c context.Context, key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, _, err := s.readForWrite(c)
	if err != nil {
		return err
	}
	values[key] = value
	return s.write(values)
}

func (s *FileStorage) Delete(c context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, corrupt, err := s.readForWrite(c)
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok && !corrupt {
		return nil
	}
	delete(values, key)
	return s.write(values)
}
