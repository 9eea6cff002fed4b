// Package urlstate mirrors a slice of the filter store to and from the page
// query string, and debounces free-text search input.
//
// The query string is reached only through an injected Sink. Malformed values
// are dropped on read and never reported to the user.
package urlstate

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/filter"
	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/types"
)

// Query parameter names.
const (
	ParamView    = "view"
	ParamBrand   = "brand"
	ParamStoreID = "storeId"
	ParamMallID  = "mallId"
	ParamCenter  = "center"
	ParamZoom    = "zoom"
)

var ownedParams = []string{ParamView, ParamBrand, ParamStoreID, ParamMallID, ParamCenter, ParamZoom}

const (
	minZoom = 0
	maxZoom = 22
)

// Params is the persisted slice of dashboard state. Zero values mean unset.
type Params struct {
	View    filter.View
	Brands  []types.Brand
	StoreID string
	MallID  string
	Center  *types.LatLng
	Zoom    *int
}

// Parse reads Params from a raw query string (with or without the leading
// "?"). dropped names the parameters that were present but unusable.
func Parse(raw string) (p Params, dropped []string) {
	// ParseQuery keeps every pair it could decode even when it returns an error.
	values, _ := url.ParseQuery(strings.TrimPrefix(raw, "?"))
	return ParseValues(values)
}

// ParseValues is Parse over already-decoded values.
func ParseValues(values url.Values) (p Params, dropped []string) {
	if v := strings.TrimSpace(values.Get(ParamView)); v != "" {
		if view := filter.View(v); view.Valid() {
			p.View = view
		} else {
			dropped = append(dropped, ParamView)
		}
	}

	if raw, ok := values[ParamBrand]; ok && len(raw) > 0 {
		p.Brands = parseBrands(raw[0])
		if len(p.Brands) == 0 {
			dropped = append(dropped, ParamBrand)
		}
	}

	p.StoreID = strings.TrimSpace(values.Get(ParamStoreID))
	p.MallID = strings.TrimSpace(values.Get(ParamMallID))

	if v := values.Get(ParamCenter); v != "" {
		if c, ok := parseCenter(v); ok {
			p.Center = &c
		} else {
			dropped = append(dropped, ParamCenter)
		}
	}

	if v := values.Get(ParamZoom); v != "" {
		if z, ok := parseZoom(v); ok {
			p.Zoom = &z
		} else {
			dropped = append(dropped, ParamZoom)
		}
	}
	return p, dropped
}

// parseBrands splits a comma list, keeping known brands once each in order.
func parseBrands(raw string) []types.Brand {
	var out []types.Brand
	seen := make(map[types.Brand]bool)
	for _, part := range strings.Split(raw, ",") {
		b := types.Brand(strings.ToLower(strings.TrimSpace(part)))
		if !b.Valid() || seen[b] {
			continue
		}
		seen[b] = true
		out = append(out, b)
	}
	return out
}

func parseCenter(raw string) (types.LatLng, bool) {
	lat, lng, ok := strings.Cut(raw, ",")
	if !ok {
		return types.LatLng{}, false
	}
	la, ok1 := parseFinite(lat)
	ln, ok2 := parseFinite(lng)
	if !ok1 || !ok2 {
		return types.LatLng{}, false
	}
	c := types.LatLng{Lat: la, Lng: ln}
	return c, c.Valid()
}

// parseZoom accepts any finite number in range and rounds it.
func parseZoom(raw string) (int, bool) {
	f, ok := parseFinite(raw)
	if !ok {
		return 0, false
	}
	z := int(math.Round(f))
	if z < minZoom || z > maxZoom {
		return 0, false
	}
	return z, true
}

func parseFinite(raw string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// FromSnapshot extracts the persisted slice of a store snapshot.
func FromSnapshot(snap filter.Snapshot) Params {
	p := Params{
		View:    snap.View,
		StoreID: snap.SelectedStoreID,
		MallID:  snap.SelectedMallID,
		Center:  snap.Viewport.Center,
		Zoom:    snap.Viewport.Zoom,
	}
	if !snap.Applied.BothBrands() {
		for _, b := range types.AllBrands {
			if snap.Applied.Brands.Has(b) {
				p.Brands = append(p.Brands, b)
			}
		}
	}
	return p
}

// Encode writes p over base and returns the encoded query. Parameters this
// package does not own are preserved; base is not modified.
func Encode(p Params, base url.Values) string {
	values := url.Values{}
	for k, v := range base {
		values[k] = append([]string(nil), v...)
	}
	for _, k := range ownedParams {
		values.Del(k)
	}

	if p.View != "" && p.View != filter.ViewStores {
		values.Set(ParamView, string(p.View))
	}
	if len(p.Brands) > 0 {
		parts := make([]string, len(p.Brands))
		for i, b := range p.Brands {
			parts[i] = string(b)
		}
		values.Set(ParamBrand, strings.Join(parts, ","))
	}
	if p.StoreID != "" {
		values.Set(ParamStoreID, p.StoreID)
	}
	if p.MallID != "" {
		values.Set(ParamMallID, p.MallID)
	}
	if p.Center != nil {
		values.Set(ParamCenter, formatCoord(p.Center.Lat)+","+formatCoord(p.Center.Lng))
	}
	if p.Zoom != nil {
		values.Set(ParamZoom, strconv.Itoa(*p.Zoom))
	}
	return values.Encode()
}

func formatCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
