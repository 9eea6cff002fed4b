package filter

import (
	"strings"
	"time"

	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/classify"
	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/ranking"
	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/region"
	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/types"
)

// TaggedMall is a mall with its classification and inferred province.
type TaggedMall struct {
	Mall             types.Mall              `json:"mall"`
	InferredProvince string                  `json:"inferred_province"`
	Classification   classify.Classification `json:"classification"`
	Priority         int                     `json:"priority"`
}

// Result is everything a view renders for one snapshot.
type Result struct {
	Stores          []types.Store            `json:"stores"`
	Malls           []TaggedMall             `json:"malls"`
	MallGroups      []classify.ProvinceGroup `json:"mall_groups"`
	Provinces       []region.Option          `json:"provinces"`
	Cities          []region.Option          `json:"cities"`
	DJIStoreTypes   []string                 `json:"dji_store_types"`
	InstaStoreTypes []string                 `json:"insta_store_types"`
	ServiceTags     []string                 `json:"service_tags"`
	ChipCounts      map[classify.Label]int   `json:"chip_counts"`
	StoreBounds     *types.Bounds            `json:"store_bounds,omitempty"`
	ResetToken      uint64                   `json:"reset_token"`
}

// View derives the current result from the applied state.
func (s *Store) View(now time.Time) Result {
	s.mu.Lock()
	snap := s.snapshotLocked()
	stores, malls, idx := s.stores, s.malls, s.provinces
	s.mu.Unlock()
	return Derive(snap, stores, malls, idx, now)
}

// Derive is the pure form of Store.View.
func Derive(snap Snapshot, stores []types.Store, malls []types.Mall, idx *classify.ProvinceIndex, now time.Time) Result {
	st := snap.Applied

	var visibleStores []types.Store
	for _, s := range stores {
		if storeMatches(s, st, snap.Favorites, now) {
			visibleStores = append(visibleStores, s)
		}
	}
	visibleStores = ranking.SortStores(visibleStores, st.SortBy)

	// Chip counts ignore the chip itself so every chip shows what it would select.
	var beforeChip []types.Mall
	for _, m := range malls {
		if mallMatches(m, st, snap, idx) {
			beforeChip = append(beforeChip, m)
		}
	}
	var visibleMalls []types.Mall
	for _, m := range beforeChip {
		if classify.MatchesChip(m, snap.Chip) {
			visibleMalls = append(visibleMalls, m)
		}
	}
	ranked := ranking.Rank(visibleMalls)

	tagged := make([]TaggedMall, len(ranked))
	for i, m := range ranked {
		tagged[i] = TaggedMall{
			Mall:             m,
			InferredProvince: idx.Infer(m),
			Classification:   classify.Classify(m),
			Priority:         ranking.Priority(m),
		}
	}

	res := Result{
		Stores:          visibleStores,
		Malls:           tagged,
		MallGroups:      classify.GroupByProvince(ranked, idx),
		Provinces:       region.ProvinceOptions(stores),
		Cities:          region.CityOptions(stores, st.Province),
		DJIStoreTypes:   region.StoreTypes(stores, types.BrandDJI),
		InstaStoreTypes: region.StoreTypes(stores, types.BrandInsta),
		ServiceTags:     region.ServiceTags(stores),
		ChipCounts:      classify.ChipCounts(beforeChip),
		ResetToken:      snap.ResetToken,
	}
	if b, ok := types.FitBounds(visibleStores); ok {
		res.StoreBounds = &b
	}
	return res
}

func storeMatches(s types.Store, st State, favorites types.Set[string], now time.Time) bool {
	if st.Brands.Len() > 0 && !st.Brands.Has(s.Brand) {
		return false
	}
	if st.Province.Len() > 0 && !st.Province.Has(strings.TrimSpace(s.Province)) {
		return false
	}
	if st.City.Len() > 0 && !st.City.Has(strings.TrimSpace(s.City)) {
		return false
	}
	storeTypes := st.DJIStoreTypes
	if s.Brand == types.BrandInsta {
		storeTypes = st.InstaStoreTypes
	}
	if storeTypes.Len() > 0 && !storeTypes.Has(strings.TrimSpace(s.StoreType)) {
		return false
	}
	for tag := range st.ServiceTags {
		if !s.HasServiceTag(tag) {
			return false
		}
	}
	if st.FavoritesOnly && !favorites.Has(s.ID) {
		return false
	}
	if !st.NewAddedRange.Contains(s.OpenedAt, now) {
		return false
	}
	return containsFold(st.Keyword, s.Name, s.Address, s.City, s.Province, s.StoreType)
}

func mallMatches(m types.Mall, st State, snap Snapshot, idx *classify.ProvinceIndex) bool {
	if st.Province.Len() > 0 && !st.Province.Has(idx.Infer(m)) {
		return false
	}
	if st.City.Len() > 0 && !cityMatches(st.City, m.City) {
		return false
	}
	if st.MallStatuses.Len() > 0 && !st.MallStatuses.Has(m.Status) {
		return false
	}
	if !classify.MatchesAnyTag(classify.Classify(m), snap.MallTags) {
		return false
	}
	return containsFold(snap.MallKeyword, m.MallName, m.City)
}

// cityMatches compares on normalized names so "深圳市" selects a mall in "深圳".
func cityMatches(selected types.Set[string], city string) bool {
	want := classify.NormalizeCity(city)
	for c := range selected {
		if classify.NormalizeCity(c) == want {
			return true
		}
	}
	return false
}

// containsFold reports whether any field contains kw, ignoring case. A blank kw matches.
func containsFold(kw string, fields ...string) bool {
	kw = strings.ToLower(strings.TrimSpace(kw))
	if kw == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), kw) {
			return true
		}
	}
	return false
}
