// Package filter owns the dashboard filter state: the pending and applied
// snapshots, the advanced-panel draft, quick filters, competition chips,
// selection and the reset token. It is the only mutation authority; every
// other component reads Snapshot values.
package filter

import (
	"time"

	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/ranking"
	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/types"
)

// NewAddedRange selects stores by opening date.
type NewAddedRange string

const (
	RangeNone            NewAddedRange = "none"
	RangeThisMonth       NewAddedRange = "this_month"
	RangeLastMonth       NewAddedRange = "last_month"
	RangeLastThreeMonths NewAddedRange = "last_three_months"
)

// Valid reports whether r is a known range.
func (r NewAddedRange) Valid() bool {
	switch r {
	case RangeNone, RangeThisMonth, RangeLastMonth, RangeLastThreeMonths:
		return true
	}
	return false
}

// Window returns the half-open interval [from, to) the range covers relative
// to now, in now's location. Calendar months, not rolling 30-day windows.
func (r NewAddedRange) Window(now time.Time) (from, to time.Time, ok bool) {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	switch r {
	case RangeThisMonth:
		return first, first.AddDate(0, 1, 0), true
	case RangeLastMonth:
		return first.AddDate(0, -1, 0), first, true
	case RangeLastThreeMonths:
		return first.AddDate(0, -2, 0), first.AddDate(0, 1, 0), true
	}
	return time.Time{}, time.Time{}, false
}

// Contains reports whether t falls inside the range. RangeNone contains everything.
func (r NewAddedRange) Contains(t *time.Time, now time.Time) bool {
	from, to, ok := r.Window(now)
	if !ok {
		return true
	}
	if t == nil {
		return false
	}
	return !t.Before(from) && t.Before(to)
}

// State is one filter snapshot. The store keeps two live copies, pending and
// applied. Sets are never shared between copies.
type State struct {
	Keyword         string                      `json:"keyword"`
	Province        types.Set[string]           `json:"province"`
	City            types.Set[string]           `json:"city"`
	Brands          types.Set[types.Brand]      `json:"brands"`
	DJIStoreTypes   types.Set[string]           `json:"dji_store_types"`
	InstaStoreTypes types.Set[string]           `json:"insta_store_types"`
	ServiceTags     types.Set[string]           `json:"service_tags"`
	SortBy          ranking.SortBy              `json:"sort_by"`
	FavoritesOnly   bool                        `json:"favorites_only"`
	NewAddedRange   NewAddedRange               `json:"new_added_range"`
	MallStatuses    types.Set[types.MallStatus] `json:"mall_statuses"`
}

// DefaultState is the initial and post-reset filter.
func DefaultState() State {
	return State{
		Province:        types.NewSet[string](),
		City:            types.NewSet[string](),
		Brands:          types.NewSet(types.AllBrands...),
		DJIStoreTypes:   types.NewSet[string](),
		InstaStoreTypes: types.NewSet[string](),
		ServiceTags:     types.NewSet[string](),
		SortBy:          ranking.SortDefault,
		NewAddedRange:   RangeNone,
		MallStatuses:    types.NewSet[types.MallStatus](),
	}
}

// Clone deep-copies every set.
func (s State) Clone() State {
	out := s
	out.Province = s.Province.Clone()
	out.City = s.City.Clone()
	out.Brands = s.Brands.Clone()
	out.DJIStoreTypes = s.DJIStoreTypes.Clone()
	out.InstaStoreTypes = s.InstaStoreTypes.Clone()
	out.ServiceTags = s.ServiceTags.Clone()
	out.MallStatuses = s.MallStatuses.Clone()
	return out
}

// BothBrands reports whether every brand is selected.
func (s State) BothBrands() bool {
	return s.Brands.Equal(types.NewSet(types.AllBrands...))
}

// singleBrand returns the only selected brand, if exactly one is.
func (s State) singleBrand() (types.Brand, bool) {
	if s.Brands.Len() != 1 {
		return "", false
	}
	for b := range s.Brands {
		return b, true
	}
	return "", false
}

// Patch is a partial State. Nil fields are left untouched; unknown JSON keys
// are dropped by the decoder.
type Patch struct {
	Keyword         *string                      `json:"keyword,omitempty"`
	Province        *types.Set[string]           `json:"province,omitempty"`
	City            *types.Set[string]           `json:"city,omitempty"`
	Brands          *types.Set[types.Brand]      `json:"brands,omitempty"`
	DJIStoreTypes   *types.Set[string]           `json:"dji_store_types,omitempty"`
	InstaStoreTypes *types.Set[string]           `json:"insta_store_types,omitempty"`
	ServiceTags     *types.Set[string]           `json:"service_tags,omitempty"`
	SortBy          *ranking.SortBy              `json:"sort_by,omitempty"`
	FavoritesOnly   *bool                        `json:"favorites_only,omitempty"`
	NewAddedRange   *NewAddedRange               `json:"new_added_range,omitempty"`
	MallStatuses    *types.Set[types.MallStatus] `json:"mall_statuses,omitempty"`
}

// touchesRegion reports whether the patch changes province or city.
func (p Patch) touchesRegion() bool {
	return p.Province != nil || p.City != nil
}

// merge shallow-merges p into s. Invalid enum values are ignored. A brand
// patch that selects nothing valid means both brands, the same as an absent
// brand param.
func (s State) merge(p Patch) State {
	out := s.Clone()
	if p.Keyword != nil {
		out.Keyword = *p.Keyword
	}
	if p.Province != nil {
		out.Province = p.Province.Clone()
	}
	if p.City != nil {
		out.City = p.City.Clone()
	}
	if p.Brands != nil {
		brands := types.NewSet[types.Brand]()
		for b := range *p.Brands {
			if b.Valid() {
				brands[b] = struct{}{}
			}
		}
		if brands.Len() == 0 {
			brands = types.NewSet(types.AllBrands...)
		}
		out.Brands = brands
	}
	if p.DJIStoreTypes != nil {
		out.DJIStoreTypes = p.DJIStoreTypes.Clone()
	}
	if p.InstaStoreTypes != nil {
		out.InstaStoreTypes = p.InstaStoreTypes.Clone()
	}
	if p.ServiceTags != nil {
		out.ServiceTags = p.ServiceTags.Clone()
	}
	if p.SortBy != nil && p.SortBy.Valid() {
		out.SortBy = *p.SortBy
	}
	if p.FavoritesOnly != nil {
		out.FavoritesOnly = *p.FavoritesOnly
	}
	if p.NewAddedRange != nil && p.NewAddedRange.Valid() {
		out.NewAddedRange = *p.NewAddedRange
	}
	if p.MallStatuses != nil {
		out.MallStatuses = p.MallStatuses.Clone()
	}
	return out
}

// Draft is the advanced panel's scratch copy of the region and store-type
// selections. It exists only between OpenAdvancedPanel and commit/cancel.
type Draft struct {
	Province        types.Set[string] `json:"province"`
	City            types.Set[string] `json:"city"`
	DJIStoreTypes   types.Set[string] `json:"dji_store_types"`
	InstaStoreTypes types.Set[string] `json:"insta_store_types"`
}

// DraftPatch edits a Draft. Nil fields are left untouched.
type DraftPatch struct {
	Province        *types.Set[string] `json:"province,omitempty"`
	City            *types.Set[string] `json:"city,omitempty"`
	DJIStoreTypes   *types.Set[string] `json:"dji_store_types,omitempty"`
	InstaStoreTypes *types.Set[string] `json:"insta_store_types,omitempty"`
}

func draftOf(s State) Draft {
	return Draft{
		Province:        s.Province.Clone(),
		City:            s.City.Clone(),
		DJIStoreTypes:   s.DJIStoreTypes.Clone(),
		InstaStoreTypes: s.InstaStoreTypes.Clone(),
	}
}

func (d Draft) clone() Draft {
	return Draft{
		Province:        d.Province.Clone(),
		City:            d.City.Clone(),
		DJIStoreTypes:   d.DJIStoreTypes.Clone(),
		InstaStoreTypes: d.InstaStoreTypes.Clone(),
	}
}

func (d Draft) merge(p DraftPatch) Draft {
	out := d.clone()
	if p.Province != nil {
		out.Province = p.Province.Clone()
	}
	if p.City != nil {
		out.City = p.City.Clone()
	}
	if p.DJIStoreTypes != nil {
		out.DJIStoreTypes = p.DJIStoreTypes.Clone()
	}
	if p.InstaStoreTypes != nil {
		out.InstaStoreTypes = p.InstaStoreTypes.Clone()
	}
	return out
}

// asPatch turns a whole draft into a filter patch.
func (d Draft) asPatch() Patch {
	return Patch{
		Province:        &d.Province,
		City:            &d.City,
		DJIStoreTypes:   &d.DJIStoreTypes,
		InstaStoreTypes: &d.InstaStoreTypes,
	}
}
