package upload

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bantaydalan/bantaydalan-api/app/models"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/apperror"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

func TestValidateImageBySniff(t *testing.T) {
	raw := pngBytes(t)

	mime, err := ValidateImageBySniff("photo.png", raw)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)

	_, err = ValidateImageBySniff("photo.exe", raw)
	assert.Error(t, err)

	_, err = ValidateImageBySniff("photo.png", []byte("<html><body>x</body></html>"))
	assert.Error(t, err)
}

func TestDecodeDataURL(t *testing.T) {
	raw := pngBytes(t)
	enc := base64.StdEncoding.EncodeToString(raw)

	mime, data, err := DecodeDataURL("data:image/png;base64," + enc)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, raw, data)

	mime, data, err = DecodeDataURL(enc)
	require.NoError(t, err)
	assert.Empty(t, mime)
	assert.Equal(t, raw, data)

	_, _, err = DecodeDataURL("data:image/png,notbase64")
	assert.Error(t, err)
	_, _, err = DecodeDataURL("%%%")
	assert.Error(t, err)
}

func TestValidateAttachments(t *testing.T) {
	enc := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t))

	out, inline, err := ValidateAttachments([]models.Attachment{
		{URL: "https://cdn.example.com/a.jpg"},
		{Data: enc},
	}, 5)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Len(t, inline, 1)
	assert.Equal(t, 1, inline[0].Index)
	assert.Equal(t, "image/png", out[1].MimeType)
	assert.Equal(t, "image-2.png", out[1].Filename)
	assert.Equal(t, int64(len(inline[0].Data)), out[1].Size)
	assert.Equal(t, enc, out[1].Data)
}

func TestValidateAttachmentsRejects(t *testing.T) {
	enc := base64.StdEncoding.EncodeToString(pngBytes(t))
	html := base64.StdEncoding.EncodeToString([]byte("<html><script>alert(1)</script></html>"))

	tests := []struct {
		name string
		list []models.Attachment
		max  int
	}{
		{"neither", []models.Attachment{{Filename: "a.png"}}, 5},
		{"both", []models.Attachment{{URL: "https://x.test/a.png", Data: enc}}, 5},
		{"bad scheme", []models.Attachment{{URL: "ftp://x.test/a.png"}}, 5},
		{"html payload", []models.Attachment{{Filename: "a.png", Data: html}}, 5},
		{"too many", []models.Attachment{{URL: "https://x.test/1.png"}, {URL: "https://x.test/2.png"}}, 1},
		{"too large", []models.Attachment{{Data: base64.StdEncoding.EncodeToString([]byte(strings.Repeat("a", MaxAttachmentBytes+1)))}}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ValidateAttachments(tt.list, tt.max)
			assert.ErrorIs(t, err, apperror.ErrValidation)
		})
	}
}
