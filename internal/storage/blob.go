package storage

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// BlobStore keeps audio files under Dir and hands out URLs below BaseURL.
type BlobStore struct {
	dir     string
	baseURL string
}

func NewBlobStore(dir, baseURL string) (*BlobStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("blob dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return &BlobStore{dir: abs, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (b *BlobStore) Dir() string { return b.dir }

// Put moves srcPath into the store as name and returns its public URL.
// A file already inside the store is left where it is.
func (b *BlobStore) Put(name, srcPath string) (string, error) {
	name = filepath.Base(name)
	if name == "." || name == "/" || name == "" {
		return "", fmt.Errorf("invalid blob name %q", name)
	}
	dst := filepath.Join(b.dir, name)
	src, err := filepath.Abs(srcPath)
	if err != nil {
		return "", err
	}
	if src != dst {
		if err := moveFile(src, dst); err != nil {
			return "", fmt.Errorf("store %s: %w", name, err)
		}
	} else if _, err := os.Stat(dst); err != nil {
		return "", fmt.Errorf("store %s: %w", name, err)
	}
	return b.URL(name), nil
}

func (b *BlobStore) URL(name string) string {
	return b.baseURL + "/audio/" + url.PathEscape(name)
}

func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	// rename fails across filesystems
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
