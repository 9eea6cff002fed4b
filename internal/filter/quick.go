package filter

import "github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/types"

// QuickFilter is a one-click shortcut over several State fields.
type QuickFilter string

const (
	QuickAll       QuickFilter = "all"
	QuickFavorites QuickFilter = "favorites"
	QuickNew       QuickFilter = "new"
	QuickBrandA    QuickFilter = "brandA"
	QuickBrandB    QuickFilter = "brandB"
)

// Valid reports whether q is a known quick filter.
func (q QuickFilter) Valid() bool {
	switch q {
	case QuickAll, QuickFavorites, QuickNew, QuickBrandA, QuickBrandB:
		return true
	}
	return false
}

var quickBrand = map[QuickFilter]types.Brand{
	QuickBrandA: types.BrandDJI,
	QuickBrandB: types.BrandInsta,
}

// quickResult is the outcome of one quick-filter transition.
type quickResult struct {
	state        State
	togglePicker bool
}

// quickTransition applies key to st. Unknown keys leave the state unchanged.
func quickTransition(st State, key QuickFilter) quickResult {
	next := st.Clone()
	switch key {
	case QuickFavorites:
		next.FavoritesOnly = !next.FavoritesOnly
	case QuickNew:
		if next.NewAddedRange == RangeNone {
			next.NewAddedRange = RangeThisMonth
		} else {
			return quickResult{state: next, togglePicker: true}
		}
	case QuickBrandA, QuickBrandB:
		next.Brands = types.NewSet(quickBrand[key])
	case QuickAll:
		next.Brands = types.NewSet(types.AllBrands...)
		next.FavoritesOnly = false
		next.NewAddedRange = RangeNone
	}
	return quickResult{state: next}
}

// holds reports whether the state still reflects quick filter q.
func (q QuickFilter) holds(st State) bool {
	switch q {
	case QuickAll:
		return quickIsDefault(st)
	case QuickFavorites:
		return st.FavoritesOnly
	case QuickNew:
		return st.NewAddedRange != RangeNone
	case QuickBrandA, QuickBrandB:
		b, ok := st.singleBrand()
		return ok && b == quickBrand[q]
	}
	return false
}

func quickIsDefault(st State) bool {
	return !st.FavoritesOnly && st.NewAddedRange == RangeNone && st.BothBrands()
}

// deriveQuick computes the visible quick-filter mode. The defaults always
// converge to QuickAll; otherwise the last clicked key wins while it still
// holds, then favorites, new and single-brand in that order.
func deriveQuick(last QuickFilter, st State) QuickFilter {
	if quickIsDefault(st) {
		return QuickAll
	}
	if last != QuickAll && last.holds(st) {
		return last
	}
	for _, q := range []QuickFilter{QuickFavorites, QuickNew, QuickBrandA, QuickBrandB} {
		if q.holds(st) {
			return q
		}
	}
	return QuickAll
}
