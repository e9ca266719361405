package imageprocessor

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
	_ "golang.org/x/image/webp"
)

const (
	ThumbnailWidth = 480
	webpQuality    = 85
)

// Decode reads any of the accepted attachment formats.
func Decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("error decoding image: %w", err)
	}
	return img, format, nil
}

// ResizeForThumbnail scales img down to width, keeping the aspect ratio. Smaller images are
// returned unchanged.
func ResizeForThumbnail(img image.Image, width int) image.Image {
	if width <= 0 || img.Bounds().Dx() <= width {
		return img
	}
	return imaging.Resize(img, width, 0, imaging.Lanczos)
}

// Thumbnail decodes data, scales it to ThumbnailWidth and encodes it as lossy WebP.
func Thumbnail(data []byte) ([]byte, error) {
	img, _, err := Decode(data)
	if err != nil {
		return nil, err
	}

	options, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, webpQuality)
	if err != nil {
		return nil, fmt.Errorf("error creating encoder options: %w", err)
	}

	var out bytes.Buffer
	if err := webp.Encode(&out, ResizeForThumbnail(img, ThumbnailWidth), options); err != nil {
		return nil, fmt.Errorf("error encoding WebP image: %w", err)
	}
	return out.Bytes(), nil
}
