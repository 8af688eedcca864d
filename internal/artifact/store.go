package artifact

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Store retrieves model artifacts by key. Implementations back onto the
// local filesystem or an S3-compatible bucket; the service only ever
// reads, never writes, an artifact source.
type Store interface {
	Fetch(ctx context.Context, key string) (io.ReadCloser, error)
}

// Materialize copies the artifact behind key into destDir and returns
// the local path, so the ONNX runtime can open it from disk.
func Materialize(ctx context.Context, store Store, key, destDir string) (string, error) {
	reader, err := store.Fetch(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to fetch artifact %q: %w", key, err)
	}
	defer reader.Close()

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create artifact dir: %w", err)
	}

	dest := filepath.Join(destDir, filepath.Base(key))
	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("failed to create %q: %w", dest, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, reader); err != nil {
		return "", fmt.Errorf("failed to write artifact to %q: %w", dest, err)
	}
	return dest, nil
}
