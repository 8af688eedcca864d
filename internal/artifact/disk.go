package artifact

import (
	"context"
	"io"
	"os"
	"path/filepath"
)

// DiskStore serves artifacts already present on the local filesystem,
// rooted at a directory.
type DiskStore struct {
	root string
}

func NewDiskStore(root string) *DiskStore {
	return &DiskStore{root: root}
}

func (d *DiskStore) Fetch(_ context.Context, key string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(d.root, key))
}
