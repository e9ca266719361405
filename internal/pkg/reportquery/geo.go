package reportquery

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const earthRadiusKm = 6371.0

// BBox is an axis-aligned lng/lat rectangle.
type BBox struct {
	MinLng float64 `json:"min_lng"`
	MinLat float64 `json:"min_lat"`
	MaxLng float64 `json:"max_lng"`
	MaxLat float64 `json:"max_lat"`
}

// Contains reports whether the point lies inside the box, edges included.
func (b BBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

func (b BBox) String() string {
	return fmt.Sprintf("%g,%g,%g,%g", b.MinLng, b.MinLat, b.MaxLng, b.MaxLat)
}

// ParseBBox parses "minLng,minLat,maxLng,maxLat".
func ParseBBox(s string) (BBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BBox{}, fmt.Errorf("bbox needs 4 numbers (minLng,minLat,maxLng,maxLat)")
	}
	var vals [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return BBox{}, fmt.Errorf("bbox value %q is not a number", p)
		}
		vals[i] = v
	}
	b := BBox{MinLng: vals[0], MinLat: vals[1], MaxLng: vals[2], MaxLat: vals[3]}
	if b.MaxLng < b.MinLng || b.MaxLat < b.MinLat {
		return BBox{}, fmt.Errorf("bbox max must be >= min")
	}
	if b.MinLat < -90 || b.MaxLat > 90 || b.MinLng < -180 || b.MaxLng > 180 {
		return BBox{}, fmt.Errorf("bbox is outside valid coordinates")
	}
	return b, nil
}

// Radius is a circle around a point.
type Radius struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
	Km  float64 `json:"km"`
}

// Contains uses the exact great-circle distance.
func (r Radius) Contains(lat, lng float64) bool {
	return HaversineKm(r.Lat, r.Lng, lat, lng) <= r.Km
}

// BoundingBox returns a box enclosing the circle, used to prefilter in storage.
// A circle that reaches a pole or crosses the antimeridian gets the full longitude range.
func (r Radius) BoundingBox() BBox {
	angular := r.Km / earthRadiusKm
	dLat := angular * 180 / math.Pi
	box := BBox{
		MinLng: -180,
		MinLat: math.Max(-90, r.Lat-dLat),
		MaxLng: 180,
		MaxLat: math.Min(90, r.Lat+dLat),
	}
	if r.Lat+dLat >= 90 || r.Lat-dLat <= -90 {
		return box
	}
	dLng := math.Asin(math.Min(1, math.Sin(angular)/math.Cos(r.Lat*math.Pi/180))) * 180 / math.Pi
	if r.Lng-dLng < -180 || r.Lng+dLng > 180 {
		return box
	}
	box.MinLng = r.Lng - dLng
	box.MaxLng = r.Lng + dLng
	return box
}

// ParseNear parses "lat,lng" plus a radius in kilometres.
func ParseNear(near, radiusKm string) (Radius, error) {
	parts := strings.Split(near, ",")
	if len(parts) != 2 {
		return Radius{}, fmt.Errorf("near needs lat,lng")
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil || lat < -90 || lat > 90 {
		return Radius{}, fmt.Errorf("near latitude must be between -90 and 90")
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || lng < -180 || lng > 180 {
		return Radius{}, fmt.Errorf("near longitude must be between -180 and 180")
	}
	km := 5.0
	if radiusKm != "" {
		km, err = strconv.ParseFloat(radiusKm, 64)
		if err != nil || km <= 0 || km > 500 {
			return Radius{}, fmt.Errorf("radius_km must be between 0 and 500")
		}
	}
	return Radius{Lat: lat, Lng: lng, Km: km}, nil
}

// HaversineKm returns the great-circle distance between two points.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(a)))
}
