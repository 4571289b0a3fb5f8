package snapshot

import (
	"context"
	"os"
	"path/filepath"
)

// FileStore keeps the document in a single JSON file.
type FileStore struct {
	Path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Save writes to a temporary file next to Path and renames it into place
// so readers never see a partial document.
func (fs *FileStore) Save(ctx context.Context, d *Document) error {
	b, err := Marshal(d)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(fs.Path); dir != "." {
		if err := os.MkdirAll(dir, 0777); err != nil {
			return err
		}
	}

	tmp := fs.Path + ".tmp"
	if err := os.WriteFile(tmp, b, 0666); err != nil {
		return err
	}

	return os.Rename(tmp, fs.Path)
}

func (fs *FileStore) Load(ctx context.Context) (*Document, error) {
	b, err := os.ReadFile(fs.Path)
	if os.IsNotExist(err) {
		return nil, ErrNoSnapshot
	} else if err != nil {
		return nil, err
	}

	return Unmarshal(b)
}

func (fs *FileStore) Close() error { return nil }
