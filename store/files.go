package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// FileStore keeps uploaded binaries on disk, addressed by document id.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (f *FileStore) Dir() string {
	return f.dir
}

func (f *FileStore) Init() error {
	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}
	return nil
}

// TempPath returns a fresh path for an incoming upload that has no document id yet.
func (f *FileStore) TempPath(filename string) string {
	return filepath.Join(f.dir, "tmp-"+uuid.NewString()+strings.ToLower(filepath.Ext(filename)))
}

func (f *FileStore) Path(id string) string {
	return filepath.Join(f.dir, filepath.Base(id))
}

// Adopt moves an upload to the path owned by document id.
func (f *FileStore) Adopt(tmpPath, id string) error {
	if err := os.Rename(tmpPath, f.Path(id)); err != nil {
		return fmt.Errorf("store upload: %w", err)
	}
	return nil
}

// Release removes the binary of document id. A missing file is not an error.
func (f *FileStore) Release(id string) error {
	err := os.Remove(f.Path(id))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (f *FileStore) Discard(tmpPath string) {
	_ = os.Remove(tmpPath)
}
