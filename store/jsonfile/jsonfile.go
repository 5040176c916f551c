// Package jsonfile stores the fund collection as one JSON document on disk.
// The same array format is used for backup downloads and restore uploads.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/warp/chitfund/chit"
)

type Store struct {
	path string
	mu   sync.Mutex
}

func New(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

// LoadAll reads the file. A missing file is an empty collection.
func (s *Store) LoadAll(_ context.Context) ([]chit.Fund, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []chit.Fund{}, nil
		}
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()
	return ReadBackup(f)
}

// SaveAll writes to a temp file in the same directory and renames it over
// the target.
func (s *Store) SaveAll(_ context.Context, funds []chit.Fund) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteBackup(tmp, funds); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

// ReadBackup decodes a JSON array of funds.
func ReadBackup(r io.Reader) ([]chit.Fund, error) {
	var funds []chit.Fund
	if err := json.NewDecoder(r).Decode(&funds); err != nil {
		if errors.Is(err, io.EOF) {
			return []chit.Fund{}, nil
		}
		return nil, fmt.Errorf("%w: invalid backup data: %v", chit.ErrValidation, err)
	}
	if funds == nil {
		funds = []chit.Fund{}
	}
	return funds, nil
}

// WriteBackup encodes funds as an indented JSON array.
func WriteBackup(w io.Writer, funds []chit.Fund) error {
	if funds == nil {
		funds = []chit.Fund{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(funds); err != nil {
		return fmt.Errorf("encode funds: %w", err)
	}
	return nil
}

// BackupFilename names a backup taken at t.
func BackupFilename(t time.Time) string {
	return "chitfund_backup_" + t.Format("2006-01-02") + ".json"
}

var _ chit.Storage = (*Store)(nil)
