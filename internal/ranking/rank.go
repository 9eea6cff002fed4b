// Package ranking orders malls and stores for list and map display.
package ranking

import (
	"cmp"
	"slices"
	"time"

	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/classify"
	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/types"
)

// Priority returns the display priority of a mall; 0 is shown first.
func Priority(m types.Mall) int {
	return int(classify.BucketOf(m))
}

// CompareMalls orders by priority, then city, then mall name.
func CompareMalls(a, b types.Mall) int {
	if c := cmp.Compare(Priority(a), Priority(b)); c != 0 {
		return c
	}
	if c := Compare(a.City, b.City); c != 0 {
		return c
	}
	return Compare(a.MallName, b.MallName)
}

// Rank returns a new slice of malls in competition order. The sort is stable:
// malls with equal keys keep their input order.
func Rank(malls []types.Mall) []types.Mall {
	out := slices.Clone(malls)
	slices.SortStableFunc(out, CompareMalls)
	return out
}

// SortBy selects the store list order.
type SortBy string

const (
	SortDefault SortBy = "default" // load order
	SortNewest  SortBy = "newest"  // opened_at descending, undated last
	SortCity    SortBy = "city"    // province, city, name in collation order
)

// Valid reports whether s is a known sort order.
func (s SortBy) Valid() bool {
	return s == SortDefault || s == SortNewest || s == SortCity
}

// SortStores returns a stably sorted copy of stores.
func SortStores(stores []types.Store, by SortBy) []types.Store {
	out := slices.Clone(stores)
	switch by {
	case SortNewest:
		slices.SortStableFunc(out, func(a, b types.Store) int {
			return compareOpened(a.OpenedAt, b.OpenedAt)
		})
	case SortCity:
		slices.SortStableFunc(out, func(a, b types.Store) int {
			if c := Compare(a.Province, b.Province); c != 0 {
				return c
			}
			if c := Compare(a.City, b.City); c != 0 {
				return c
			}
			return Compare(a.Name, b.Name)
		})
	}
	return out
}

func compareOpened(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return b.Compare(*a)
}
