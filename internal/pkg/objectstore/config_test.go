package objectstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bantaydalan/bantaydalan-api/internal/pkg/env"
)

func TestLoadConfigRequiresCredentialsWhenEnabled(t *testing.T) {
	env.Env = map[string]string{"S3_ENABLED": "true", "S3_BUCKET_NAME": "photos"}
	t.Cleanup(func() { env.Env = map[string]string{} })

	_, err := LoadConfig()
	assert.Error(t, err)

	env.Env["S3_ACCESS_KEY_ID"] = "key"
	env.Env["S3_SECRET_ACCESS_KEY"] = "secret"
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsEnabled())
	assert.Equal(t, "photos", cfg.BucketName)
}

func TestKeysAndURLs(t *testing.T) {
	cfg := &Config{BucketName: "photos", Region: "ap-southeast-1"}
	at := time.Date(2024, 7, 3, 0, 0, 0, 0, time.UTC)

	key := cfg.ObjectKey("abc", 0, ".jpg", at)
	assert.Equal(t, "reports/2024/07/abc/1.jpg", key)
	assert.Equal(t, "reports/2024/07/abc/1_thumb.webp", cfg.ThumbnailKey(key))
	assert.Equal(t, "https://photos.s3.ap-southeast-1.amazonaws.com/"+key, cfg.PublicURL(key))

	cfg.EndpointURL = "http://minio:9000/"
	assert.Equal(t, "http://minio:9000/photos/"+key, cfg.PublicURL(key))

	cfg.PublicBaseURL = "https://cdn.example.com"
	assert.Equal(t, "https://cdn.example.com/"+key, cfg.PublicURL(key))

	assert.Equal(t, ".png", ExtensionFor("image/png"))
	assert.Equal(t, ".bin", ExtensionFor("text/plain"))
}
