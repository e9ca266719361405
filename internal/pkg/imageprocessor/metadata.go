package imageprocessor

import (
	"bytes"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/mknote"
)

func init() {
	// Register Nikon and Canon maker notes
	exif.RegisterParsers(mknote.All...)
}

// PhotoMetadata is the EXIF subset useful for a hazard report.
type PhotoMetadata struct {
	Latitude    *float64
	Longitude   *float64
	TakenAt     *time.Time
	CameraModel string
}

// HasGPS reports whether both coordinates were found.
func (m PhotoMetadata) HasGPS() bool {
	return m.Latitude != nil && m.Longitude != nil
}

// ExtractMetadata reads EXIF from an in-memory photo. Photos without EXIF yield an empty
// result and no error.
func ExtractMetadata(data []byte) PhotoMetadata {
	var meta PhotoMetadata

	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return meta
	}

	if m, err := x.Get(exif.Model); err == nil {
		meta.CameraModel = strings.TrimSpace(strings.Trim(m.String(), `"`))
	}
	if dt, err := x.DateTime(); err == nil {
		meta.TakenAt = &dt
	}
	if lat, long, err := x.LatLong(); err == nil && validCoordinates(lat, long) {
		meta.Latitude = &lat
		meta.Longitude = &long
	}
	return meta
}

// ExtractGPS returns the photo's coordinates when EXIF carries them.
func ExtractGPS(data []byte) (lat, lng float64, ok bool) {
	meta := ExtractMetadata(data)
	if !meta.HasGPS() {
		return 0, 0, false
	}
	return *meta.Latitude, *meta.Longitude, true
}

func validCoordinates(lat, lng float64) bool {
	if lat == 0 && lng == 0 {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
