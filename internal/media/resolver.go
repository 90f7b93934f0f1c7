package media

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Fallback texts stored when a branch cannot process its attachment.
const (
	TextPlainDefault       = "Mensaje recibido"
	TextAudioDefault       = "Audio recibido"
	TextAudioUntranscribed = "Audio recibido (no se pudo transcribir)"
	TextAudioFailed        = "Audio recibido (error en procesamiento)"
	TextImageDefault       = "Imagen recibida"
	TextImageFailed        = "Imagen recibida (error en procesamiento)"
	TextContactFailed      = "Contacto recibido (error en procesamiento)"
	TextDocumentFailed     = "Archivo recibido (error en procesamiento)"
	defaultDocumentName    = "documento"
)

// Transcriber turns recorded speech into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename, mime string) (string, error)
}

// Attachment is the inbound media reference and its message context.
type Attachment struct {
	URL         string
	ContentType string
	FileName    string
	Body        string
	// Sender is recorded in object metadata.
	Sender string
}

// Result is what ingestion keeps from an inbound message.
type Result struct {
	Kind     Kind
	Text     string
	MediaURL string
	FileName string
	// ImageDataURL is "data:<mime>;base64,..." for vision-capable agents.
	ImageDataURL string
	Contact      *Contact
	// Err is the degraded branch error, already reflected in Text.
	Err error
}

// Resolver turns an inbound attachment into stored media plus a text
// description. It never fails: branch errors degrade to placeholder text.
type Resolver struct {
	fetcher     *Fetcher
	uploader    *Uploader
	transcriber Transcriber
	headers     func() http.Header
	logger      *slog.Logger
}

func NewResolver(log *slog.Logger, fetcher *Fetcher, uploader *Uploader, transcriber Transcriber, headers func() http.Header) *Resolver {
	if headers == nil {
		headers = func() http.Header { return nil }
	}
	return &Resolver{
		fetcher:     fetcher,
		uploader:    uploader,
		transcriber: transcriber,
		headers:     headers,
		logger:      log.With(slog.String("service", "media_resolver")),
	}
}

func (r *Resolver) Resolve(ctx context.Context, att Attachment) Result {
	kind := Classify(att.ContentType)
	if kind == KindNone {
		return Result{Kind: KindNone, Text: orDefault(att.Body, TextPlainDefault)}
	}
	var (
		res Result
		err error
	)
	switch kind {
	case KindAudio:
		res, err = r.resolveAudio(ctx, att)
	case KindImage:
		res, err = r.resolveImage(ctx, att)
	case KindContact:
		res, err = r.resolveContact(ctx, att)
	default:
		res, err = r.resolveDocument(ctx, att)
	}
	res.Kind = kind
	if err != nil {
		r.logger.Error("attachment processing failed",
			slog.String("kind", kind.String()),
			slog.String("content_type", att.ContentType),
			slog.Any("error", err))
		return Result{Kind: kind, Text: failureText(kind), Err: err}
	}
	return res
}

func (r *Resolver) resolveAudio(ctx context.Context, att Attachment) (Result, error) {
	dl, err := r.fetcher.Fetch(ctx, att.URL, r.headers())
	if err != nil {
		return Result{}, err
	}
	ext := ExtensionFor(KindAudio, att.ContentType)
	text, transcriptionStatus := TextAudioDefault, "success"
	if r.transcriber == nil {
		text, transcriptionStatus = TextAudioUntranscribed, "failed"
	} else if got, err := r.transcriber.Transcribe(ctx, dl.Data, "audio."+ext, att.ContentType); err != nil {
		r.logger.Warn("transcription failed", slog.Any("error", fmt.Errorf("%w: %w", ErrTranscriptionFailed, err)))
		text, transcriptionStatus = TextAudioUntranscribed, "failed"
	} else if strings.TrimSpace(got) != "" {
		text = strings.TrimSpace(got)
	}
	obj, err := r.uploader.Upload(ctx, UploadInput{
		Prefix:      PrefixClientAudio,
		Stem:        "audio",
		Ext:         ext,
		ContentType: att.ContentType,
		Data:        dl.Data,
		Metadata: map[string]string{
			"originalMimeType":    att.ContentType,
			"phoneNumber":         att.Sender,
			"transcriptionStatus": transcriptionStatus,
		},
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Text: text, MediaURL: obj.URL}, nil
}

func (r *Resolver) resolveImage(ctx context.Context, att Attachment) (Result, error) {
	dl, err := r.fetcher.Fetch(ctx, att.URL, r.headers())
	if err != nil {
		return Result{}, err
	}
	obj, err := r.uploader.Upload(ctx, UploadInput{
		Prefix:      PrefixImage,
		Stem:        "image",
		Ext:         ExtensionFor(KindImage, att.ContentType),
		ContentType: att.ContentType,
		Data:        dl.Data,
		Metadata: map[string]string{
			"originalMimeType": att.ContentType,
			"phoneNumber":      att.Sender,
		},
	})
	if err != nil {
		return Result{}, err
	}
	return Result{
		Text:         orDefault(att.Body, TextImageDefault),
		MediaURL:     obj.URL,
		ImageDataURL: "data:" + att.ContentType + ";base64," + base64.StdEncoding.EncodeToString(dl.Data),
	}, nil
}

func (r *Resolver) resolveContact(ctx context.Context, att Attachment) (Result, error) {
	dl, err := r.fetcher.Fetch(ctx, att.URL, r.headers())
	if err != nil {
		return Result{}, err
	}
	if strings.TrimSpace(string(dl.Data)) == "" {
		return Result{}, ErrEmptyMedia
	}
	contact := ParseVCard(string(dl.Data))
	obj, err := r.uploader.Upload(ctx, UploadInput{
		Prefix:      PrefixContact,
		Stem:        "vcard",
		Ext:         "vcf",
		ContentType: att.ContentType,
		Data:        dl.Data,
		Metadata: map[string]string{
			"originalMimeType": att.ContentType,
			"contactName":      contact.Name,
			"phoneNumber":      att.Sender,
		},
	})
	if err != nil {
		return Result{}, err
	}
	return Result{
		Text:     orDefault(att.Body, contact.Summary()),
		MediaURL: obj.URL,
		Contact:  &contact,
	}, nil
}

func (r *Resolver) resolveDocument(ctx context.Context, att Attachment) (Result, error) {
	dl, err := r.fetcher.Fetch(ctx, att.URL, r.headers())
	if err != nil {
		return Result{}, err
	}
	if IsSpreadsheet(att.ContentType) {
		if err := ValidateSpreadsheet(dl.Data, dl.ContentLength); err != nil {
			return Result{}, err
		}
	}
	ext := ExtensionFor(KindDocument, att.ContentType)
	if ext == "" {
		ext = strings.TrimPrefix(mimetype.Detect(dl.Data).Extension(), ".")
	}
	if ext == "" {
		ext = "bin"
	}
	label := DocumentLabel(att.ContentType)
	name := orDefault(att.FileName, defaultDocumentName)
	obj, err := r.uploader.Upload(ctx, UploadInput{
		Prefix:      PrefixDocument,
		Stem:        "document",
		Ext:         ext,
		ContentType: att.ContentType,
		Data:        dl.Data,
		Metadata: map[string]string{
			"originalMimeType": att.ContentType,
			"detectedFileType": label,
			"originalFilename": name,
			"phoneNumber":      att.Sender,
		},
	})
	if err != nil {
		return Result{}, err
	}
	return Result{
		Text:     orDefault(att.Body, "Archivo "+label+" recibido: "+name),
		MediaURL: obj.URL,
		FileName: name,
	}, nil
}

func failureText(kind Kind) string {
	switch kind {
	case KindAudio:
		return TextAudioFailed
	case KindImage:
		return TextImageFailed
	case KindContact:
		return TextContactFailed
	default:
		return TextDocumentFailed
	}
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
