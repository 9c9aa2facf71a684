package uploader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// LocalUploader copies files into a destination directory, writing a JSON
// metadata sidecar next to each object. Useful for air-gapped deployments
// and as the sink in tests.
type LocalUploader struct {
	root string
}

// NewLocalUploader creates the destination directory if needed.
func NewLocalUploader(root string) (*LocalUploader, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create destination: %w", err)
	}
	return &LocalUploader{root: root}, nil
}

// Upload copies the file via a temp file and atomic rename, then writes
// <name>.meta.json alongside it.
func (u *LocalUploader) Upload(ctx context.Context, path string, metadata map[string]string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	name := metadata["filename"]
	if name == "" {
		name = filepath.Base(path)
	}
	dst := filepath.Join(u.root, name)

	if err := u.copyFile(path, dst); err != nil {
		return err
	}

	sidecar, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := os.WriteFile(dst+".meta.json", sidecar, 0o644); err != nil {
		return fmt.Errorf("write metadata sidecar: %w", err)
	}

	return nil
}

func (u *LocalUploader) copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	tmp := filepath.Join(u.root, fmt.Sprintf(".%s.%s.tmp", filepath.Base(dst), uuid.New().String()[:8]))
	out, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create tmp %s: %w", tmp, err)
	}
	defer os.Remove(tmp) // no-op if rename succeeded

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close tmp %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, dst); err != nil {
		return fmt.Errorf("rename %s -> %s: %w", tmp, dst, err)
	}
	return nil
}

// Close implements Uploader. The local sink holds no resources.
func (u *LocalUploader) Close() error { return nil }
