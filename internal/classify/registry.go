// Package classify buckets malls into competitive categories.
//
// Two views of the same mall attributes exist and are intentionally kept
// apart: the tag view (multi-label, used by the mall-tag multi-select) and the
// chip view (exactly one category, shared with the ranking buckets). They
// disagree on TARGET: the tag excludes exclusive malls, the chip excludes
// malls brand A already opened in.
package classify

import "github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/types"

// Label names a competitive category. The same vocabulary serves as tag and as chip.
type Label string

const (
	LabelAll        Label = "ALL"
	LabelPT         Label = "PT"
	LabelTarget     Label = "TARGET"
	LabelGap        Label = "GAP"
	LabelBothOpened Label = "BOTH_OPENED"
	LabelBothNone   Label = "BOTH_NONE"
	LabelInstaOnly  Label = "INSTA_ONLY"
	LabelDJIOnly    Label = "DJI_ONLY"
)

// Chips lists the chip enumeration in chip-bar order.
var Chips = []Label{
	LabelAll, LabelPT, LabelTarget, LabelGap,
	LabelBothOpened, LabelBothNone, LabelInstaOnly, LabelDJIOnly,
}

// ParseLabel validates a wire or query value.
func ParseLabel(s string) (Label, bool) {
	for _, l := range Chips {
		if string(l) == s {
			return l, true
		}
	}
	return "", false
}

// TagRule is one entry of the tag registry.
type TagRule struct {
	Label       Label
	Description string
	Match       func(types.Mall) bool
}

// TagRegistry holds the tag predicates in display order. A mall may match several.
var TagRegistry = []TagRule{
	{
		Label:       LabelPT,
		Description: "PT 排他商场",
		Match:       func(m types.Mall) bool { return m.DJIExclusive },
	},
	{
		Label:       LabelTarget,
		Description: "目标商场",
		Match:       func(m types.Mall) bool { return m.DJITarget && !m.DJIExclusive },
	},
	{
		Label:       LabelGap,
		Description: "缺口商场",
		Match:       func(m types.Mall) bool { return m.Status == types.StatusGap },
	},
	{
		Label:       LabelBothOpened,
		Description: "双方均已进驻",
		Match:       func(m types.Mall) bool { return m.DJIOpened && m.InstaOpened },
	},
	{
		// Malls carrying the TARGET tag are not also tagged here.
		Label:       LabelBothNone,
		Description: "双方均未进驻",
		Match: func(m types.Mall) bool {
			return !m.DJIOpened && !m.InstaOpened && !(m.DJITarget && !m.DJIExclusive)
		},
	},
	{
		Label:       LabelInstaOnly,
		Description: "仅 Insta 进驻",
		Match:       func(m types.Mall) bool { return m.InstaOpened && !m.DJIOpened },
	},
	{
		Label:       LabelDJIOnly,
		Description: "仅 DJI 进驻",
		Match:       func(m types.Mall) bool { return m.DJIOpened && !m.InstaOpened },
	},
}

// LookupTag returns the registry entry for label.
func LookupTag(label Label) (TagRule, bool) {
	for _, r := range TagRegistry {
		if r.Label == label {
			return r, true
		}
	}
	return TagRule{}, false
}

func targetNotOpened(m types.Mall) bool {
	return m.DJITarget && !m.DJIOpened
}
