package media

import (
	"fmt"
	"io"
)

// ReadCapped reads body to EOF. It fails with ErrAssetTooLarge once more than
// limit bytes arrive and with ErrEmptyMedia when nothing does.
func ReadCapped(body io.Reader, limit int64) ([]byte, error) {
	if body == nil {
		return nil, ErrEmptyMedia
	}
	if limit <= 0 {
		return nil, fmt.Errorf("read media: limit must be positive, got %d", limit)
	}
	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read media: %w", err)
	}
	switch {
	case int64(len(data)) > limit:
		return nil, fmt.Errorf("%w: over %d bytes", ErrAssetTooLarge, limit)
	case len(data) == 0:
		return nil, ErrEmptyMedia
	}
	return data, nil
}
