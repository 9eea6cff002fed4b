package filter

import "github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/classify"

// Card is a tri-state chip card: ALL → Primary → Alternate → ALL.
type Card struct {
	Name      string
	Primary   classify.Label
	Alternate classify.Label
}

var (
	CardPresence = Card{Name: "presence", Primary: classify.LabelBothNone, Alternate: classify.LabelBothOpened}
	CardSolo     = Card{Name: "solo", Primary: classify.LabelInstaOnly, Alternate: classify.LabelDJIOnly}
)

// Cards lists the tri-state cards.
var Cards = []Card{CardPresence, CardSolo}

// LookupCard finds a card by name.
func LookupCard(name string) (Card, bool) {
	for _, c := range Cards {
		if c.Name == name {
			return c, true
		}
	}
	return Card{}, false
}

// transitions is the card's table; chips not listed go to Primary.
func (c Card) transitions() map[classify.Label]classify.Label {
	return map[classify.Label]classify.Label{
		c.Primary:   c.Alternate,
		c.Alternate: classify.LabelAll,
	}
}

// Next returns the chip after clicking the card while current is active.
func (c Card) Next(current classify.Label) classify.Label {
	if next, ok := c.transitions()[current]; ok {
		return next
	}
	return c.Primary
}

// ToggleChips are the two-state chips: click sets, click again clears.
var ToggleChips = []classify.Label{classify.LabelPT, classify.LabelGap, classify.LabelTarget}

// nextToggle is the two-state transition for a plain chip.
func nextToggle(current, clicked classify.Label) classify.Label {
	if current == clicked {
		return classify.LabelAll
	}
	return clicked
}
