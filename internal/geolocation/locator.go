// Package geolocation supplies the device position used to centre the map.
package geolocation

import (
	"context"
	"fmt"
	"math"

	"github.com/barbizo19/mapty/internal/domain"
)

// Static reports a fixed, configured position.
type Static struct {
	coords domain.Coordinates
	set    bool
}

// NewStatic returns a Static locator at (lat, lng).
func NewStatic(lat, lng float64) *Static {
	return &Static{coords: domain.Coordinates{Lat: lat, Lng: lng}, set: true}
}

// Unavailable returns a locator that always fails, as when the user denies
// location access.
func Unavailable() *Static {
	return &Static{}
}

// CurrentPosition returns the configured position.
func (s *Static) CurrentPosition(ctx context.Context) (domain.Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return domain.Coordinates{}, fmt.Errorf("%w: %w", domain.ErrPositionUnavailable, err)
	}
	if !s.set {
		return domain.Coordinates{}, fmt.Errorf("%w: no position configured", domain.ErrPositionUnavailable)
	}
	if !valid(s.coords) {
		return domain.Coordinates{}, fmt.Errorf("%w: position (%v, %v) out of range", domain.ErrPositionUnavailable, s.coords.Lat, s.coords.Lng)
	}
	return s.coords, nil
}

func valid(c domain.Coordinates) bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}
