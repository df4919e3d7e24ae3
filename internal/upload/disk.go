package upload

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
)

// Disk writes objects below Dir and serves them from BaseURL, which must
// point at wherever Dir is exposed over HTTP.
type Disk struct {
	Dir     string
	BaseURL string
}

func (d Disk) Put(ctx context.Context, name, _ string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dst := filepath.Join(d.Dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("upload.Disk.Put: %w", err)
	}

	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("upload.Disk.Put: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return "", fmt.Errorf("upload.Disk.Put: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("upload.Disk.Put: %w", err)
	}

	u, err := url.JoinPath(d.BaseURL, name)
	if err != nil {
		return "", fmt.Errorf("upload.Disk.Put: %w", err)
	}
	return u, nil
}
