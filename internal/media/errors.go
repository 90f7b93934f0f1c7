package media

import "errors"

var (
	// ErrMediaUnavailable indicates the gateway never served the attachment.
	ErrMediaUnavailable = errors.New("media unavailable")
	// ErrEmptyMedia indicates the gateway returned an empty body.
	ErrEmptyMedia = errors.New("empty media payload")
	// ErrInvalidMediaURL indicates the attachment URL is not on the gateway media host.
	ErrInvalidMediaURL = errors.New("invalid media url")
	// ErrTranscriptionFailed indicates speech-to-text failed. It is never fatal.
	ErrTranscriptionFailed = errors.New("transcription failed")
	// ErrUploadFailed indicates the object storage write failed.
	ErrUploadFailed = errors.New("media upload failed")
	// ErrCorruptSpreadsheet indicates a spreadsheet download is truncated or not a ZIP container.
	ErrCorruptSpreadsheet = errors.New("corrupt spreadsheet")
	// ErrAssetTooLarge indicates the payload exceeds the configured max asset size.
	ErrAssetTooLarge = errors.New("media asset too large")
)
