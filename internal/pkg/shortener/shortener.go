package shortener

import (
	"crypto/rand"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Base62 alphabet (0-9, a-z, A-Z)
const alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

const (
	TrackingPrefix     = "BD-"
	TrackingCodeLength = 8
)

// GenerateSecureSlug creates a cryptographically secure random Base62 slug.
func GenerateSecureSlug(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid slug length: %d", length)
	}

	// Rejection sampling to avoid modulo bias.
	// 248 is the largest multiple of 62 below 256.
	const maxRandomByte = 248

	slug := make([]byte, length)
	buf := make([]byte, length*2)
	written := 0

	for written < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read secure random bytes: %w", err)
		}

		for _, b := range buf {
			if b >= maxRandomByte {
				continue
			}
			slug[written] = alphabet[int(b)%len(alphabet)]
			written++
			if written == length {
				break
			}
		}
	}

	return string(slug), nil
}

// TrackingCode returns a fresh public report code such as BD-x8Kq2ZpA.
func TrackingCode() (string, error) {
	slug, err := GenerateSecureSlug(TrackingCodeLength)
	if err != nil {
		return "", err
	}
	return TrackingPrefix + slug, nil
}

// IsTrackingCode checks the shape of a code without touching storage.
func IsTrackingCode(code string) bool {
	if !strings.HasPrefix(code, TrackingPrefix) || len(code) != len(TrackingPrefix)+TrackingCodeLength {
		return false
	}
	for i := len(TrackingPrefix); i < len(code); i++ {
		if strings.IndexByte(alphabet, code[i]) == -1 {
			return false
		}
	}
	return true
}

// Slugify turns a title into a lowercase URL slug, folding accents (España -> espana).
func Slugify(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range norm.NFD.String(strings.ToLower(title)) {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		default:
			if b.Len() > 0 && !dash {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
