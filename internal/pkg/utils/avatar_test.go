package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAvatarURL(t *testing.T) {
	assert.Empty(t, AvatarURL("  ", 80))

	a := AvatarURL("Admin@Example.PH ", 0)
	b := AvatarURL("admin@example.ph", 200)
	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, "https://www.gravatar.com/avatar/"))
	assert.True(t, strings.HasSuffix(a, "?s=200&d=mp"))
	// sha256 hex digest
	hash := strings.TrimPrefix(strings.SplitN(a, "?", 2)[0], "https://www.gravatar.com/avatar/")
	assert.Len(t, hash, 64)
}
