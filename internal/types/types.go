// Package types provides the entity model shared by every dashboard component.
// Stores and malls arrive from the data-loading collaborator once per load and
// are never mutated afterwards; components pass them by value or read-only slice.
package types

import (
	"math"
	"time"
)

// Brand identifies one of the two brands whose footprints are compared.
type Brand string

const (
	BrandDJI   Brand = "dji"   // brand A
	BrandInsta Brand = "insta" // brand B
)

// AllBrands lists the closed brand set in display order.
var AllBrands = []Brand{BrandDJI, BrandInsta}

// Valid reports whether b is a member of the closed brand set.
func (b Brand) Valid() bool {
	return b == BrandDJI || b == BrandInsta
}

// MallStatus is the coarse competitive label the data source attaches to a mall.
type MallStatus string

const (
	StatusCaptured    MallStatus = "captured"
	StatusGap         MallStatus = "gap"
	StatusBlocked     MallStatus = "blocked"
	StatusOpportunity MallStatus = "opportunity"
	StatusBlueOcean   MallStatus = "blue_ocean"
	StatusNeutral     MallStatus = "neutral"
)

// ServiceTag is a free-form qualifier on a store ("体验店", "维修" ...).
type ServiceTag = string

// Store is a single retail location of either brand.
type Store struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Brand       Brand        `json:"brand"`
	Province    string       `json:"province"`
	City        string       `json:"city"`
	Address     string       `json:"address,omitempty"`
	StoreType   string       `json:"store_type"`
	MallID      string       `json:"mall_id,omitempty"` // weak reference, lookup only
	Latitude    *float64     `json:"latitude,omitempty"`
	Longitude   *float64     `json:"longitude,omitempty"`
	OpenedAt    *time.Time   `json:"opened_at,omitempty"`
	ServiceTags []ServiceTag `json:"service_tags,omitempty"`
}

// Location returns the store coordinates if both are present and usable.
func (s Store) Location() (LatLng, bool) {
	return locate(s.Latitude, s.Longitude)
}

// HasServiceTag reports whether the store carries tag.
func (s Store) HasServiceTag(tag ServiceTag) bool {
	for _, t := range s.ServiceTags {
		if t == tag {
			return true
		}
	}
	return false
}

// Mall is a shopping mall that either brand may occupy.
type Mall struct {
	MallID       string     `json:"mall_id"`
	MallName     string     `json:"mall_name"`
	City         string     `json:"city"`
	Province     string     `json:"province,omitempty"` // often absent, see classify.InferProvince
	Status       MallStatus `json:"status"`
	DJIOpened    bool       `json:"dji_opened"`
	InstaOpened  bool       `json:"insta_opened"`
	DJITarget    bool       `json:"dji_target"`
	DJIExclusive bool       `json:"dji_exclusive"` // "PT" arrangement precluding brand B
	Latitude     *float64   `json:"latitude,omitempty"`
	Longitude    *float64   `json:"longitude,omitempty"`
}

// Location returns the mall coordinates if both are present and usable.
func (m Mall) Location() (LatLng, bool) {
	return locate(m.Latitude, m.Longitude)
}

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the pair is finite and inside the WGS84 range.
func (p LatLng) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

func locate(lat, lng *float64) (LatLng, bool) {
	if lat == nil || lng == nil {
		return LatLng{}, false
	}
	p := LatLng{Lat: *lat, Lng: *lng}
	// 0,0 is what the upstream geocoder emits for "not found".
	if !p.Valid() || (p.Lat == 0 && p.Lng == 0) {
		return LatLng{}, false
	}
	return p, true
}

// Bounds is an axis-aligned box used by map consumers to fit the viewport.
type Bounds struct {
	SouthWest LatLng `json:"south_west"`
	NorthEast LatLng `json:"north_east"`
}

// Locatable is anything that may carry coordinates.
type Locatable interface {
	Location() (LatLng, bool)
}

// FitBounds returns the bounding box of every item with usable coordinates.
// Items without coordinates are skipped; ok is false when none remain.
func FitBounds[T Locatable](items []T) (b Bounds, ok bool) {
	for _, it := range items {
		p, has := it.Location()
		if !has {
			continue
		}
		if !ok {
			b = Bounds{SouthWest: p, NorthEast: p}
			ok = true
			continue
		}
		b.SouthWest.Lat = math.Min(b.SouthWest.Lat, p.Lat)
		b.SouthWest.Lng = math.Min(b.SouthWest.Lng, p.Lng)
		b.NorthEast.Lat = math.Max(b.NorthEast.Lat, p.Lat)
		b.NorthEast.Lng = math.Max(b.NorthEast.Lng, p.Lng)
	}
	return b, ok
}
