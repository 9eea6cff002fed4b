package classify

import (
	"slices"
	"strings"

	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/types"
)

// UnknownProvince labels malls whose province cannot be inferred.
const UnknownProvince = "未知省份"

// ProvinceLookup is one step of the inference chain. ok=false passes to the next step.
type ProvinceLookup func(m types.Mall) (province string, ok bool)

// ProvinceIndex holds the store-derived tables used by inference. Build it
// once per entity load with NewProvinceIndex.
type ProvinceIndex struct {
	byMall map[string]string // mall_id → first-seen store province
	byCity map[string]string // normalized city → majority province
	chain  []ProvinceLookup
}

// NewProvinceIndex scans stores once and builds the lookup tables.
func NewProvinceIndex(stores []types.Store) *ProvinceIndex {
	idx := &ProvinceIndex{
		byMall: make(map[string]string),
		byCity: make(map[string]string),
	}

	votes := make(map[string]map[string]int)
	order := make(map[string][]string) // city → provinces in first-seen order
	for _, s := range stores {
		prov := strings.TrimSpace(s.Province)
		if prov == "" {
			continue
		}
		if s.MallID != "" {
			if _, seen := idx.byMall[s.MallID]; !seen {
				idx.byMall[s.MallID] = prov
			}
		}
		city := NormalizeCity(s.City)
		if city == "" {
			continue
		}
		if votes[city] == nil {
			votes[city] = make(map[string]int)
		}
		if votes[city][prov] == 0 {
			order[city] = append(order[city], prov)
		}
		votes[city][prov]++
	}
	for city, provs := range order {
		best, bestN := "", 0
		for _, p := range provs {
			if n := votes[city][p]; n > bestN {
				best, bestN = p, n
			}
		}
		idx.byCity[city] = best
	}

	idx.chain = []ProvinceLookup{OwnProvince, idx.FromStores, idx.FromCity}
	return idx
}

// Infer walks the chain and falls back to UnknownProvince. It never returns "".
func (idx *ProvinceIndex) Infer(m types.Mall) string {
	if idx == nil {
		if p, ok := OwnProvince(m); ok {
			return p
		}
		return UnknownProvince
	}
	for _, lookup := range idx.chain {
		if p, ok := lookup(m); ok {
			return p
		}
	}
	return UnknownProvince
}

// OwnProvince uses the mall's own province field.
func OwnProvince(m types.Mall) (string, bool) {
	p := strings.TrimSpace(m.Province)
	return p, p != ""
}

// FromStores uses the province of the first store located in the mall.
func (idx *ProvinceIndex) FromStores(m types.Mall) (string, bool) {
	p, ok := idx.byMall[m.MallID]
	return p, ok
}

// FromCity uses the majority province of stores in the same normalized city.
func (idx *ProvinceIndex) FromCity(m types.Mall) (string, bool) {
	city := NormalizeCity(m.City)
	if city == "" {
		return "", false
	}
	p, ok := idx.byCity[city]
	return p, ok
}

// NormalizeCity trims whitespace and a single trailing 市 or 区.
func NormalizeCity(city string) string {
	c := strings.TrimSpace(city)
	for _, suffix := range []string{"市", "区"} {
		if trimmed, ok := strings.CutSuffix(c, suffix); ok && trimmed != "" {
			return trimmed
		}
	}
	return c
}

// ProvinceGroup is one section of the left-hand mall navigation.
type ProvinceGroup struct {
	Province string       `json:"province"`
	Malls    []types.Mall `json:"malls"`
}

// GroupByProvince groups malls under their inferred province. Groups are ordered
// by descending size, ties by first appearance; malls keep their input order.
func GroupByProvince(malls []types.Mall, idx *ProvinceIndex) []ProvinceGroup {
	var groups []ProvinceGroup
	pos := make(map[string]int)
	for _, m := range malls {
		p := idx.Infer(m)
		i, ok := pos[p]
		if !ok {
			i = len(groups)
			pos[p] = i
			groups = append(groups, ProvinceGroup{Province: p})
		}
		groups[i].Malls = append(groups[i].Malls, m)
	}
	slices.SortStableFunc(groups, func(a, b ProvinceGroup) int {
		return len(b.Malls) - len(a.Malls)
	})
	return groups
}
