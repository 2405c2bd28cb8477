package spool

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

type localConfig struct {
	Dir string `json:"dir"`
}

// localStore keeps spooled documents in a directory on disk. Keys are
// uuid-based filenames; Fetch hands back the file in place, no staging copy.
type localStore struct {
	dir string
}

func init() {
	Register("local", createLocalStore)
}

func createLocalStore(args interface{}) (Store, error) {
	cfg := &localConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if cfg.Dir == "" {
		cfg.Dir = filepath.Join(os.TempDir(), "docproc-spool")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create spool dir: %w", err)
	}
	return &localStore{dir: cfg.Dir}, nil
}

func (s *localStore) Save(ctx context.Context, filename string, r io.Reader, size int64) (string, error) {
	_ = ctx
	_ = size
	key := uuid.NewString() + strings.ToLower(filepath.Ext(filename))
	out, err := os.Create(filepath.Join(s.dir, key))
	if err != nil {
		return "", err
	}
	defer out.Close()
	if _, err := io.Copy(out, r); err != nil {
		return "", err
	}
	return key, nil
}

func (s *localStore) Fetch(ctx context.Context, key string) (string, func(), error) {
	_ = ctx
	if err := validKey(key); err != nil {
		return "", nil, err
	}
	path := filepath.Join(s.dir, key)
	if _, err := os.Stat(path); err != nil {
		return "", nil, err
	}
	return path, func() {}, nil
}

func (s *localStore) Remove(ctx context.Context, key string) error {
	_ = ctx
	if err := validKey(key); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.dir, key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func validKey(key string) error {
	if key == "" || strings.Contains(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("invalid spool key")
	}
	return nil
}
