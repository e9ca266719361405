package upload

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/bantaydalan/bantaydalan-api/app/models"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/apperror"
)

// MaxAttachmentBytes is the decoded size limit of one inline photo.
const MaxAttachmentBytes = 10 << 20

var allowedExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".avif": true,
	".bmp":  true,
	// SVG stays out until there is a sanitizer
}

var allowedMime = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
	"image/avif": true,
	"image/bmp":  true,
}

var extByMime = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/avif": ".avif",
	"image/bmp":  ".bmp",
}

// ValidateImageBySniff checks the provided filename (extension) and the first bytes (head)
// against a whitelist of image types. Returns detected mime or an error.
func ValidateImageBySniff(filename string, head []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExt[ext] {
		return "", errors.New("only JPG, JPEG, PNG, GIF, WEBP, AVIF and BMP images are supported")
	}

	detected := http.DetectContentType(head)

	// Block scriptable types regardless of extension
	if strings.HasPrefix(detected, "text/html") || strings.HasPrefix(detected, "application/xhtml") {
		return "", errors.New("invalid file type: HTML content is not allowed")
	}
	if strings.HasPrefix(detected, "text/xml") || strings.HasPrefix(detected, "application/xml") || detected == "image/svg+xml" {
		return "", errors.New("SVG and XML files are not supported")
	}

	// AVIF sniffs as octet-stream; trust the extension there
	if detected == "application/octet-stream" {
		return detected, nil
	}

	if allowedMime[detected] {
		return detected, nil
	}
	return "", errors.New("unsupported file type")
}

// Inline is a decoded data attachment.
type Inline struct {
	Index    int
	Filename string
	MimeType string
	Data     []byte
}

// ValidateAttachments checks every attachment of a submission and normalizes their
// descriptors. Inline photos are returned decoded so callers can read EXIF or upload them.
func ValidateAttachments(list []models.Attachment, maxCount int) ([]models.Attachment, []Inline, error) {
	if maxCount >= 0 && len(list) > maxCount {
		return nil, nil, apperror.Validation("at most %d images are allowed per report", maxCount)
	}

	out := make([]models.Attachment, 0, len(list))
	var inline []Inline
	for i, a := range list {
		hasURL := strings.TrimSpace(a.URL) != ""
		hasData := strings.TrimSpace(a.Data) != ""
		if hasURL == hasData {
			return nil, nil, apperror.Validation("images[%d]: exactly one of url or data is required", i)
		}

		if hasURL {
			u, err := url.Parse(strings.TrimSpace(a.URL))
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return nil, nil, apperror.Validation("images[%d]: url must be an http(s) address", i)
			}
			a.URL = u.String()
			out = append(out, a)
			continue
		}

		declared, raw, err := DecodeDataURL(a.Data)
		if err != nil {
			return nil, nil, apperror.Validation("images[%d]: %v", i, err)
		}
		if len(raw) == 0 {
			return nil, nil, apperror.Validation("images[%d]: data is empty", i)
		}
		if len(raw) > MaxAttachmentBytes {
			return nil, nil, apperror.Validation("images[%d]: image exceeds %d MiB", i, MaxAttachmentBytes>>20)
		}

		name := a.Filename
		if name == "" {
			name = fmt.Sprintf("image-%d%s", i+1, extByMime[firstNonEmpty(declared, a.MimeType, "image/jpeg")])
		}
		head := raw
		if len(head) > 512 {
			head = head[:512]
		}
		mime, err := ValidateImageBySniff(name, head)
		if err != nil {
			return nil, nil, apperror.Validation("images[%d]: %v", i, err)
		}
		if mime == "application/octet-stream" {
			mime = firstNonEmpty(declared, a.MimeType, mime)
		}

		a.Filename = name
		a.MimeType = mime
		a.Size = int64(len(raw))
		out = append(out, a)
		inline = append(inline, Inline{Index: i, Filename: name, MimeType: mime, Data: raw})
	}
	return out, inline, nil
}

// DecodeDataURL accepts plain base64 or a data:<mime>;base64, URL.
func DecodeDataURL(s string) (mime string, data []byte, err error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		header, payload, ok := strings.Cut(s, ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return "", nil, errors.New("data URL must be base64 encoded")
		}
		mime = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
		s = payload
	}
	data, err = base64.StdEncoding.DecodeString(s)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(s)
	}
	if err != nil {
		return "", nil, errors.New("data is not valid base64")
	}
	return mime, data, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
