package classify

import "github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/types"

// Bucket is the competition priority of a mall; lower sorts first.
type Bucket int

const (
	BucketPT Bucket = iota
	BucketGap
	BucketBothNone
	BucketTargetNotOpened
	BucketInstaOnly
	BucketDJIOnly
	BucketBothOpened
	BucketOther
)

var bucketChip = [...]Label{
	BucketPT:              LabelPT,
	BucketGap:             LabelGap,
	BucketBothNone:        LabelBothNone,
	BucketTargetNotOpened: LabelTarget,
	BucketInstaOnly:       LabelInstaOnly,
	BucketDJIOnly:         LabelDJIOnly,
	BucketBothOpened:      LabelBothOpened,
	BucketOther:           LabelAll,
}

// Chip returns the single chip category that corresponds to the bucket.
func (b Bucket) Chip() Label {
	if b < 0 || int(b) >= len(bucketChip) {
		return LabelAll
	}
	return bucketChip[b]
}

// Classification is the result of classifying one mall.
type Classification struct {
	Tags types.Set[Label] `json:"tags"`
	Chip Label            `json:"chip"`
}

// BucketOf places the mall into exactly one priority bucket. The first
// matching rule wins, so exclusivity dominates every other attribute.
func BucketOf(m types.Mall) Bucket {
	switch {
	case m.DJIExclusive:
		return BucketPT
	case m.Status == types.StatusGap:
		return BucketGap
	case !m.DJIOpened && !m.InstaOpened && !targetNotOpened(m):
		return BucketBothNone
	case targetNotOpened(m):
		return BucketTargetNotOpened
	case m.InstaOpened && !m.DJIOpened:
		return BucketInstaOnly
	case m.DJIOpened && !m.InstaOpened:
		return BucketDJIOnly
	case m.DJIOpened && m.InstaOpened:
		return BucketBothOpened
	default:
		return BucketOther
	}
}

// ChipCategory returns the single-select chip the mall falls under.
func ChipCategory(m types.Mall) Label {
	return BucketOf(m).Chip()
}

// Tags evaluates every tag rule against the mall.
func Tags(m types.Mall) types.Set[Label] {
	tags := make(types.Set[Label], 2)
	for _, r := range TagRegistry {
		if r.Match(m) {
			tags[r.Label] = struct{}{}
		}
	}
	return tags
}

// Classify returns both the tag set and the chip category.
func Classify(m types.Mall) Classification {
	return Classification{Tags: Tags(m), Chip: ChipCategory(m)}
}

// MatchesChip reports whether the mall is visible under chip. ALL matches everything.
func MatchesChip(m types.Mall, chip Label) bool {
	if chip == LabelAll || chip == "" {
		return true
	}
	return ChipCategory(m) == chip
}

// MatchesAnyTag reports whether the mall carries at least one of labels.
// An empty selection matches every mall.
func MatchesAnyTag(c Classification, labels types.Set[Label]) bool {
	if labels.Len() == 0 {
		return true
	}
	for l := range labels {
		if c.Tags.Has(l) {
			return true
		}
	}
	return false
}

// ChipCounts tallies malls per chip category, with ALL holding the total.
func ChipCounts(malls []types.Mall) map[Label]int {
	counts := make(map[Label]int, len(Chips))
	for _, l := range Chips {
		counts[l] = 0
	}
	for _, m := range malls {
		counts[ChipCategory(m)]++
	}
	counts[LabelAll] = len(malls)
	return counts
}
