// Package storage defines the object storage contract used for inbound
// attachments, synthesized speech and operator uploads.
package storage

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrObjectNotFound indicates the requested key does not exist.
	ErrObjectNotFound = errors.New("storage object not found")
	// ErrPathTraversal indicates a storage key attempted directory traversal.
	ErrPathTraversal = errors.New("path traversal is forbidden")
)

// PutOptions describes the stored object.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo is what the provider knows about a stored object.
type ObjectInfo struct {
	Key         string            `json:"key"`
	ContentType string            `json:"content_type"`
	Size        int64             `json:"size"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Provider abstracts object storage operations.
type Provider interface {
	// Put writes data to storage under the given key.
	Put(ctx context.Context, key string, reader io.Reader, opts PutOptions) (ObjectInfo, error)
	// Open returns a reader for the given key and its stored description.
	Open(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Delete removes the object at key.
	Delete(ctx context.Context, key string) error
	// AccessPath returns the public URL for a key.
	AccessPath(key string) string
	// KeyFromURL reverses AccessPath. ok is false for foreign URLs.
	KeyFromURL(rawURL string) (key string, ok bool)
}
