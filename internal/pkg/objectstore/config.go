package objectstore

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/bantaydalan/bantaydalan-api/internal/pkg/env"
)

// Config holds S3 configuration for report attachments
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // Optional for S3-compatible services
	PublicBaseURL   string // Optional CDN or bucket URL used in attachment links
	Enabled         bool
}

// LoadConfig loads S3 configuration from environment variables
func LoadConfig() (*Config, error) {
	config := &Config{
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("S3_REGION", "ap-southeast-1"),
		BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
		EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
		PublicBaseURL:   strings.TrimRight(env.GetEnv("S3_PUBLIC_URL", ""), "/"),
		Enabled:         env.GetBool("S3_ENABLED", false),
	}

	// Validate required fields if S3 is enabled
	if config.Enabled {
		if config.AccessKeyID == "" {
			return nil, errors.New("S3_ACCESS_KEY_ID is required when S3 is enabled")
		}
		if config.SecretAccessKey == "" {
			return nil, errors.New("S3_SECRET_ACCESS_KEY is required when S3 is enabled")
		}
		if config.BucketName == "" {
			return nil, errors.New("S3_BUCKET_NAME is required when S3 is enabled")
		}
	}

	return config, nil
}

// IsEnabled returns true if attachments are moved to S3
func (c *Config) IsEnabled() bool {
	return c.Enabled
}

// ObjectKey builds the key of one attachment: reports/YYYY/MM/<report id>/<n><ext>
func (c *Config) ObjectKey(reportID string, index int, ext string, at time.Time) string {
	return fmt.Sprintf("reports/%04d/%02d/%s/%d%s", at.Year(), int(at.Month()), reportID, index+1, ext)
}

// ThumbnailKey places the WebP thumbnail next to its original
func (c *Config) ThumbnailKey(objectKey string) string {
	return strings.TrimSuffix(objectKey, path.Ext(objectKey)) + "_thumb.webp"
}

// PublicURL returns the address clients use to fetch objectKey
func (c *Config) PublicURL(objectKey string) string {
	if c.PublicBaseURL != "" {
		return c.PublicBaseURL + "/" + objectKey
	}
	if c.EndpointURL != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(c.EndpointURL, "/"), c.BucketName, objectKey)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", c.BucketName, c.Region, objectKey)
}
