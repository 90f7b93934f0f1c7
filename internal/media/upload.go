package media

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chatline/chatline/internal/storage"
)

// Storage prefixes, one per kind of object.
const (
	PrefixClientAudio = "client-audios"
	PrefixImage       = "images"
	PrefixContact     = "contacts"
	PrefixDocument    = "documents"
	PrefixAgentAudio  = "audios"
	PrefixVoiceNote   = "ogg"
)

// Object is an uploaded object.
type Object struct {
	Key string
	URL string
}

// UploadInput describes one upload.
type UploadInput struct {
	Prefix      string
	Stem        string
	Ext         string
	ContentType string
	Data        []byte
	Metadata    map[string]string
}

// Uploader names objects and writes them to the storage provider.
type Uploader struct {
	provider storage.Provider
	now      func() time.Time
}

func NewUploader(provider storage.Provider) *Uploader {
	return &Uploader{provider: provider, now: time.Now}
}

// ObjectName builds "<prefix>/<stem>_<unixmillis>_<32 hex>.<ext>". Stored
// objects are served without auth, so the random suffix is the whole UUID.
func ObjectName(prefix, stem, ext string, now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")
	name := stem + "_" + strconv.FormatInt(now.UnixMilli(), 10) + "_" + suffix
	if ext != "" {
		name += "." + strings.TrimPrefix(ext, ".")
	}
	return strings.Trim(prefix, "/") + "/" + name
}

// Upload stores in.Data and returns its public URL. Errors wrap ErrUploadFailed.
func (u *Uploader) Upload(ctx context.Context, in UploadInput) (Object, error) {
	if len(in.Data) == 0 {
		return Object{}, fmt.Errorf("%w: %w", ErrUploadFailed, ErrEmptyMedia)
	}
	now := u.now()
	meta := make(map[string]string, len(in.Metadata)+2)
	for k, v := range in.Metadata {
		meta[k] = v
	}
	meta["fileSize"] = strconv.Itoa(len(in.Data))
	meta["uploadedAt"] = now.UTC().Format(time.RFC3339)

	key := ObjectName(in.Prefix, in.Stem, in.Ext, now)
	if _, err := u.provider.Put(ctx, key, bytes.NewReader(in.Data), storage.PutOptions{
		ContentType: in.ContentType,
		Metadata:    meta,
	}); err != nil {
		return Object{}, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	return Object{Key: key, URL: u.provider.AccessPath(key)}, nil
}
