// Package region resolves which provinces and cities can be selected given
// the loaded stores and the current province selection.
//
// Provinces and cities are ranked by store count with first-appearance
// tie-breaks; store types and service tags are listed in collation order.
package region

import (
	"slices"
	"strings"

	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/ranking"
	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/types"
)

// Option is a selectable value with the number of stores behind it.
type Option struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ProvincesRanked returns province names by descending store count.
func ProvincesRanked(stores []types.Store) []string {
	return names(ProvinceOptions(stores))
}

// ProvinceOptions is ProvincesRanked with counts.
func ProvinceOptions(stores []types.Store) []Option {
	return rankByCount(stores, nil, func(s types.Store) string { return s.Province })
}

// AllowedCities returns the cities reachable from the selected provinces,
// ranked by descending store count. No selection means every province.
func AllowedCities(stores []types.Store, provinces types.Set[string]) []string {
	return names(CityOptions(stores, provinces))
}

// CityOptions is AllowedCities with counts.
func CityOptions(stores []types.Store, provinces types.Set[string]) []Option {
	scope := func(s types.Store) bool {
		return provinces.Len() == 0 || provinces.Has(strings.TrimSpace(s.Province))
	}
	return rankByCount(stores, scope, func(s types.Store) string { return s.City })
}

// PruneCities drops every selected city that AllowedCities would not offer.
// The input set is never modified.
func PruneCities(stores []types.Store, provinces, cities types.Set[string]) types.Set[string] {
	if cities.Len() == 0 {
		return types.NewSet[string]()
	}
	allowed := types.NewSet(AllowedCities(stores, provinces)...)
	out := make(types.Set[string], cities.Len())
	for c := range cities {
		if allowed.Has(c) {
			out[c] = struct{}{}
		}
	}
	return out
}

// StoreTypes lists the distinct store types of a brand in collation order.
func StoreTypes(stores []types.Store, brand types.Brand) []string {
	seen := make(types.Set[string])
	for _, s := range stores {
		if s.Brand != brand {
			continue
		}
		if t := strings.TrimSpace(s.StoreType); t != "" {
			seen[t] = struct{}{}
		}
	}
	return collated(seen)
}

// ServiceTags lists the distinct service tags in collation order.
func ServiceTags(stores []types.Store) []string {
	seen := make(types.Set[string])
	for _, s := range stores {
		for _, t := range s.ServiceTags {
			if t = strings.TrimSpace(t); t != "" {
				seen[t] = struct{}{}
			}
		}
	}
	return collated(seen)
}

func rankByCount(stores []types.Store, scope func(types.Store) bool, key func(types.Store) string) []Option {
	var opts []Option
	pos := make(map[string]int)
	for _, s := range stores {
		if scope != nil && !scope(s) {
			continue
		}
		k := strings.TrimSpace(key(s))
		if k == "" {
			continue
		}
		i, ok := pos[k]
		if !ok {
			i = len(opts)
			pos[k] = i
			opts = append(opts, Option{Name: k})
		}
		opts[i].Count++
	}
	slices.SortStableFunc(opts, func(a, b Option) int { return b.Count - a.Count })
	return opts
}

func names(opts []Option) []string {
	out := make([]string, len(opts))
	for i, o := range opts {
		out[i] = o.Name
	}
	return out
}

func collated(s types.Set[string]) []string {
	out := make([]string, 0, s.Len())
	for v := range s {
		out = append(out, v)
	}
	slices.SortFunc(out, ranking.Compare)
	return out
}
