package media

import (
	"strings"
)

// Kind is the closed set of attachment branches.
type Kind int

const (
	KindNone Kind = iota
	KindAudio
	KindImage
	KindContact
	KindDocument
)

func (k Kind) String() string {
	switch k {
	case KindAudio:
		return "audio"
	case KindImage:
		return "image"
	case KindContact:
		return "contact"
	case KindDocument:
		return "document"
	default:
		return "none"
	}
}

// Classify maps a gateway content type to the branch that handles it.
// Audio wins over image, image over contact cards; anything else non-empty is
// a document.
func Classify(mime string) Kind {
	m := strings.ToLower(strings.TrimSpace(mime))
	switch {
	case m == "":
		return KindNone
	case strings.Contains(m, "audio"):
		return KindAudio
	case strings.Contains(m, "image"):
		return KindImage
	case strings.Contains(m, "text/x-vcard"), strings.Contains(m, "text/vcard"):
		return KindContact
	default:
		return KindDocument
	}
}

// IsSpreadsheet reports whether mime is an Excel workbook.
func IsSpreadsheet(mime string) bool {
	m := strings.ToLower(mime)
	return strings.Contains(m, "spreadsheetml.sheet") || strings.Contains(m, "vnd.ms-excel")
}

type extRule struct {
	needles []string
	ext     string
}

var audioExt = []extRule{
	{[]string{"mpeg", "mp3"}, "mp3"},
	{[]string{"wav"}, "wav"},
	{[]string{"m4a", "mp4"}, "m4a"},
	{[]string{"aac"}, "aac"},
	{[]string{"webm"}, "webm"},
	{[]string{"ogg", "opus"}, "ogg"},
}

var imageExt = []extRule{
	{[]string{"png"}, "png"},
	{[]string{"gif"}, "gif"},
	{[]string{"webp"}, "webp"},
	{[]string{"jpeg", "jpg"}, "jpg"},
	{[]string{"bmp"}, "bmp"},
	{[]string{"tiff"}, "tiff"},
}

var documentExt = []extRule{
	{[]string{"pdf"}, "pdf"},
	{[]string{"spreadsheetml.sheet", "vnd.ms-excel"}, "xlsx"},
	{[]string{"word", "wordprocessingml.document"}, "docx"},
	{[]string{"presentationml.presentation", "vnd.ms-powerpoint"}, "pptx"},
	{[]string{"video"}, "mp4"},
	{[]string{"text/plain"}, "txt"},
	{[]string{"text/csv", "comma-separated-values"}, "csv"},
	{[]string{"application/zip"}, "zip"},
	{[]string{"application/x-rar", "application/vnd.rar"}, "rar"},
}

// ExtensionFor returns the file extension (no dot) for an object of the given
// kind. An empty result means the MIME type did not say; callers sniff the
// payload in that case.
func ExtensionFor(kind Kind, mime string) string {
	m := strings.ToLower(strings.TrimSpace(mime))
	switch kind {
	case KindAudio:
		return match(audioExt, m, "ogg")
	case KindImage:
		return match(imageExt, m, "jpg")
	case KindContact:
		return "vcf"
	case KindDocument:
		if ext := match(documentExt, m, ""); ext != "" {
			return ext
		}
		return subtype(m)
	default:
		return ""
	}
}

// DocumentLabel is the human label used in the document fallback text.
func DocumentLabel(mime string) string {
	m := strings.ToLower(mime)
	switch {
	case strings.Contains(m, "pdf"):
		return "PDF"
	case IsSpreadsheet(m), strings.Contains(m, "excel"), strings.Contains(m, "sheet"):
		return "Excel"
	case strings.Contains(m, "word"):
		return "Word"
	case strings.Contains(m, "presentationml.presentation"), strings.Contains(m, "vnd.ms-powerpoint"):
		return "PowerPoint"
	case strings.Contains(m, "video"):
		return "Video"
	case strings.Contains(m, "image"):
		return "Image"
	case strings.Contains(m, "text/plain"):
		return "Text"
	case strings.Contains(m, "text/csv"), strings.Contains(m, "comma-separated-values"):
		return "CSV"
	case strings.Contains(m, "application/zip"):
		return "ZIP"
	case strings.Contains(m, "application/x-rar"), strings.Contains(m, "application/vnd.rar"):
		return "RAR"
	case strings.Contains(m, "audio"):
		return "Audio"
	default:
		return "Generic"
	}
}

func match(rules []extRule, mime, fallback string) string {
	for _, r := range rules {
		for _, n := range r.needles {
			if strings.Contains(mime, n) {
				return r.ext
			}
		}
	}
	return fallback
}

func subtype(mime string) string {
	_, sub, ok := strings.Cut(mime, "/")
	if !ok {
		return ""
	}
	if i := strings.IndexAny(sub, ";+ "); i >= 0 {
		sub = sub[:i]
	}
	sub = strings.TrimSpace(sub)
	if sub == "octet-stream" {
		return ""
	}
	return sub
}
