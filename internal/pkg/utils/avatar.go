package utils

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// AvatarURL returns the Gravatar image for an email, or "" without one.
// Size defaults to 200px.
func AvatarURL(email string, size int) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return ""
	}
	if size <= 0 {
		size = 200
	}
	hash := sha256.Sum256([]byte(email))
	return fmt.Sprintf("https://www.gravatar.com/avatar/%x?s=%d&d=mp", hash, size)
}
