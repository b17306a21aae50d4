package credential

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

const (
	appDirName      = "trxsrt"
	credentialsFile = "credentials.json"
)

// Store persists the CAPTCHA bypass cookie between runs.
type Store interface {
	Get() (string, bool, error)
	Set(value string) error
}

type record struct {
	Cookie    string    `json:"cookie"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FileStore keeps the cookie in a JSON file. Writes go through a temp file
// and a rename, and an flock on "<path>.lock" serialises concurrent runs.
type FileStore struct {
	path string
	lock *flock.Flock
	now  func() time.Time
}

// DefaultPath is credentials.json under the user's config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(dir, appDirName, credentialsFile), nil
}

func NewFileStore(path string) (*FileStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("credential file path is required")
	}
	return &FileStore{
		path: path,
		lock: flock.New(path + ".lock"),
		now:  time.Now,
	}, nil
}

func (s *FileStore) Path() string {
	return s.path
}

// Get returns the stored cookie. A missing file is not an error.
func (s *FileStore) Get() (string, bool, error) {
	if err := s.ensureDir(); err != nil {
		return "", false, err
	}
	if err := s.lock.RLock(); err != nil {
		return "", false, fmt.Errorf("lock credential file: %w", err)
	}
	defer s.lock.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read credential file: %w", err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return "", false, fmt.Errorf("invalid credential file %s: %w", s.path, err)
	}
	cookie := strings.TrimSpace(rec.Cookie)
	return cookie, cookie != "", nil
}

func (s *FileStore) Set(value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Errorf("refusing to store an empty credential")
	}
	if err := s.ensureDir(); err != nil {
		return err
	}
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock credential file: %w", err)
	}
	defer s.lock.Unlock()

	content, err := json.MarshalIndent(record{Cookie: value, UpdatedAt: s.now().UTC()}, "", "  ")
	if err != nil {
		return err
	}
	content = append(content, '\n')

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, content, 0o600); err != nil {
		return fmt.Errorf("write credential file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replace credential file: %w", err)
	}
	return nil
}

func (s *FileStore) ensureDir() error {
	dir := filepath.Dir(s.path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create credential dir: %w", err)
	}
	return nil
}
