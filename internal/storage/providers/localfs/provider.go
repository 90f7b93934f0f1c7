// Package localfs implements storage.Provider on a local directory whose
// contents are served back under a public base URL.
package localfs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chatline/chatline/internal/storage"
)

const metaSuffix = ".meta.json"

// Provider writes objects to <root>/<key> and a JSON sidecar with the
// content type and metadata next to each object.
type Provider struct {
	root    string
	baseURL string
}

// New creates a filesystem provider. baseURL is the public prefix objects are
// served under (e.g. "https://chat.example.com/media").
func New(root, baseURL string) (*Provider, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Provider{root: abs, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (p *Provider) Put(_ context.Context, key string, reader io.Reader, opts storage.PutOptions) (storage.ObjectInfo, error) {
	dest, err := p.hostPath(key)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("create parent dir: %w", err)
	}
	f, err := os.Create(dest)
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("create file: %w", err)
	}
	n, copyErr := io.Copy(f, reader)
	closeErr := f.Close()
	if copyErr != nil {
		_ = os.Remove(dest)
		return storage.ObjectInfo{}, fmt.Errorf("write file: %w", copyErr)
	}
	if closeErr != nil {
		return storage.ObjectInfo{}, fmt.Errorf("close file: %w", closeErr)
	}
	info := storage.ObjectInfo{
		Key:         filepath.ToSlash(filepath.Clean(key)),
		ContentType: opts.ContentType,
		Size:        n,
		Metadata:    opts.Metadata,
	}
	raw, err := json.Marshal(info)
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("encode metadata: %w", err)
	}
	if err := os.WriteFile(dest+metaSuffix, raw, 0o644); err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("write metadata: %w", err)
	}
	return info, nil
}

func (p *Provider) Open(_ context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error) {
	dest, err := p.hostPath(key)
	if err != nil {
		return nil, storage.ObjectInfo{}, err
	}
	f, err := os.Open(dest)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, storage.ObjectInfo{}, storage.ErrObjectNotFound
		}
		return nil, storage.ObjectInfo{}, fmt.Errorf("open file: %w", err)
	}
	info := storage.ObjectInfo{Key: filepath.ToSlash(filepath.Clean(key))}
	if raw, err := os.ReadFile(dest + metaSuffix); err == nil {
		_ = json.Unmarshal(raw, &info)
	}
	if info.Size == 0 {
		if st, err := f.Stat(); err == nil {
			info.Size = st.Size()
		}
	}
	return f, info, nil
}

func (p *Provider) Delete(_ context.Context, key string) error {
	dest, err := p.hostPath(key)
	if err != nil {
		return err
	}
	for _, path := range []string{dest, dest + metaSuffix} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("delete file: %w", err)
		}
	}
	return nil
}

// AccessPath returns "<baseURL>/<key>".
func (p *Provider) AccessPath(key string) string {
	return p.baseURL + "/" + strings.TrimLeft(filepath.ToSlash(filepath.Clean(key)), "/")
}

func (p *Provider) KeyFromURL(rawURL string) (string, bool) {
	prefix := p.baseURL + "/"
	if !strings.HasPrefix(rawURL, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(rawURL, prefix)
	if i := strings.IndexAny(key, "?#"); i >= 0 {
		key = key[:i]
	}
	if _, err := p.hostPath(key); err != nil {
		return "", false
	}
	return key, true
}

// hostPath converts a storage key into a path under root.
// Key format: "<prefix>/<name>" → "<root>/<prefix>/<name>".
func (p *Provider) hostPath(key string) (string, error) {
	clean := filepath.Clean(key)
	if filepath.IsAbs(clean) {
		return "", fmt.Errorf("%w: absolute key %s", storage.ErrPathTraversal, key)
	}
	if strings.HasPrefix(clean, ".."+string(filepath.Separator)) || clean == ".." {
		return "", fmt.Errorf("%w: %s", storage.ErrPathTraversal, key)
	}
	idx := strings.IndexByte(clean, filepath.Separator)
	if idx <= 0 || strings.TrimSpace(clean[idx+1:]) == "" {
		return "", fmt.Errorf("storage key must contain a prefix: %s", key)
	}
	if strings.HasSuffix(clean, metaSuffix) {
		return "", fmt.Errorf("reserved storage key: %s", key)
	}
	joined := filepath.Join(p.root, clean)
	if !strings.HasPrefix(joined, p.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: path escapes root: %s", storage.ErrPathTraversal, key)
	}
	return joined, nil
}
