package client

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/vitalstack/auth-service/internal/model"
)

// Cache persists the signed-in user between runs, the way the storefront
// keeps it in localStorage. Implementations are advisory only; the server
// remains the authority on session validity.
type Cache interface {
	Load() (*model.Public, error)
	Save(u *model.Public) error
	Clear() error
}

// FileCache stores the user as JSON in a single file.
type FileCache struct{ Path string }

// NewFileCache places the cache file under the user config dir, falling
// back to the working directory when none is available.
func NewFileCache(app string) *FileCache {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return &FileCache{Path: filepath.Join(dir, app, "session.json")}
}

func (c *FileCache) Load() (*model.Public, error) {
	blob, err := os.ReadFile(c.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var u model.Public
	if err := json.Unmarshal(blob, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *FileCache) Save(u *model.Public) error {
	if err := os.MkdirAll(filepath.Dir(c.Path), 0o755); err != nil {
		return err
	}
	blob, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return os.WriteFile(c.Path, blob, 0o600)
}

func (c *FileCache) Clear() error {
	err := os.Remove(c.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
