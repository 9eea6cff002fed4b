package filter

import (
	"sync"

	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/classify"
	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/region"
	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/types"
)

// View is the active dashboard view.
type View string

const (
	ViewStores      View = "stores"
	ViewCompetition View = "competition"
	ViewRegion      View = "region"
)

// Valid reports whether v is a known view.
func (v View) Valid() bool {
	return v == ViewStores || v == ViewCompetition || v == ViewRegion
}

// Viewport is the map center and zoom. Nil fields mean "let the map fit".
type Viewport struct {
	Center *types.LatLng `json:"center,omitempty"`
	Zoom   *int          `json:"zoom,omitempty"`
}

func (v Viewport) clone() Viewport {
	out := Viewport{}
	if v.Center != nil {
		c := *v.Center
		out.Center = &c
	}
	if v.Zoom != nil {
		z := *v.Zoom
		out.Zoom = &z
	}
	return out
}

// Snapshot is a by-value copy of everything the store owns.
type Snapshot struct {
	Pending         State                     `json:"pending"`
	Applied         State                     `json:"applied"`
	Draft           *Draft                    `json:"draft,omitempty"`
	Quick           QuickFilter               `json:"quick"`
	RangePickerOpen bool                      `json:"range_picker_open"`
	Chip            classify.Label            `json:"chip"`
	MallTags        types.Set[classify.Label] `json:"mall_tags"`
	MallKeyword     string                    `json:"mall_keyword"`
	Favorites       types.Set[string]         `json:"favorites"`
	SelectedStoreID string                    `json:"selected_store_id,omitempty"`
	SelectedMallID  string                    `json:"selected_mall_id,omitempty"`
	View            View                      `json:"view"`
	Viewport        Viewport                  `json:"viewport"`
	ResetToken      uint64                    `json:"reset_token"`
}

// Observer is notified after every mutation with the resulting snapshot.
type Observer interface {
	Observe(Snapshot)
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(Snapshot)

func (f ObserverFunc) Observe(s Snapshot) { f(s) }

// Store is the filter state store. All methods are safe for concurrent use;
// each completes its mutation, including cascade repair, before observers run.
// Observers are called in mutation order and must not mutate the store.
type Store struct {
	mu       sync.Mutex
	notifyMu sync.Mutex

	stores    []types.Store
	malls     []types.Mall
	provinces *classify.ProvinceIndex

	pending         State
	applied         State
	draft           *Draft
	lastQuick       QuickFilter
	quick           QuickFilter
	rangePickerOpen bool
	chip            classify.Label
	mallTags        types.Set[classify.Label]
	mallKeyword     string
	favorites       types.Set[string]
	selectedStoreID string
	selectedMallID  string
	view            View
	viewport        Viewport
	resetToken      uint64

	observers []namedObserver
	nextObsID int
}

type namedObserver struct {
	id  int
	obs Observer
}

// New creates a store over the given entities with default state.
func New(stores []types.Store, malls []types.Mall) *Store {
	s := &Store{
		favorites: types.NewSet[string](),
		view:      ViewStores,
	}
	s.setEntities(stores, malls)
	s.resetLocked()
	return s
}

// Subscribe registers an observer and returns a function that removes it.
func (s *Store) Subscribe(o Observer) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextObsID
	s.nextObsID++
	s.observers = append(s.observers, namedObserver{id: id, obs: o})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, n := range s.observers {
			if n.id == id {
				s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Load replaces the entity snapshot and repairs city selections against it.
func (s *Store) Load(stores []types.Store, malls []types.Mall) {
	s.mutate(func() {
		s.setEntities(stores, malls)
		s.pending.City = region.PruneCities(s.stores, s.pending.Province, s.pending.City)
		s.applied = s.pending.Clone()
		if s.draft != nil {
			s.draft.City = region.PruneCities(s.stores, s.draft.Province, s.draft.City)
		}
	})
}

// UpdateFilters merges p into pending and mirrors the result into applied.
func (s *Store) UpdateFilters(p Patch) {
	s.mutate(func() {
		next := s.pending.merge(p)
		if p.touchesRegion() {
			next.City = region.PruneCities(s.stores, next.Province, next.City)
		}
		s.commitLocked(next)
	})
}

// OpenAdvancedPanel starts a draft from the pending state. Opening while a
// draft exists restarts it.
func (s *Store) OpenAdvancedPanel() Draft {
	var d Draft
	s.mutate(func() {
		nd := draftOf(s.pending)
		s.draft = &nd
		d = nd.clone()
	})
	return d
}

// EditAdvancedPanel applies p to the open draft, repairing draft cities. It
// reports false when no draft is open.
func (s *Store) EditAdvancedPanel(p DraftPatch) (Draft, bool) {
	var (
		d  Draft
		ok bool
	)
	s.mutate(func() {
		if s.draft == nil {
			return
		}
		nd := s.draft.merge(p)
		nd.City = region.PruneCities(s.stores, nd.Province, nd.City)
		s.draft = &nd
		d, ok = nd.clone(), true
	})
	return d, ok
}

// CommitAdvancedPanel merges p into the draft and the draft into both pending
// and applied in one step. Without an open draft, p is applied to a draft
// taken from pending.
func (s *Store) CommitAdvancedPanel(p DraftPatch) {
	s.mutate(func() {
		base := draftOf(s.pending)
		if s.draft != nil {
			base = *s.draft
		}
		d := base.merge(p)
		next := s.pending.merge(d.asPatch())
		next.City = region.PruneCities(s.stores, next.Province, next.City)
		s.draft = nil
		s.commitLocked(next)
	})
}

// CancelAdvancedPanel discards the draft.
func (s *Store) CancelAdvancedPanel() {
	s.mutate(func() {
		s.draft = nil
	})
}

// ApplyQuickFilter runs the quick-filter transition for key.
func (s *Store) ApplyQuickFilter(key QuickFilter) {
	if !key.Valid() {
		return
	}
	s.mutate(func() {
		res := quickTransition(s.pending, key)
		if res.togglePicker {
			s.rangePickerOpen = !s.rangePickerOpen
		}
		s.lastQuick = key
		s.commitLocked(res.state)
	})
}

// SetNewAddedRange is the range picker's choice; it closes the picker.
func (s *Store) SetNewAddedRange(r NewAddedRange) {
	if !r.Valid() {
		return
	}
	s.mutate(func() {
		next := s.pending.Clone()
		next.NewAddedRange = r
		s.rangePickerOpen = false
		s.lastQuick = QuickNew
		s.commitLocked(next)
	})
}

// ApplyCompetitionTriState advances the chip through card's 3-cycle.
func (s *Store) ApplyCompetitionTriState(card Card) classify.Label {
	var chip classify.Label
	s.mutate(func() {
		s.chip = card.Next(s.chip)
		chip = s.chip
	})
	return chip
}

// ToggleChip is the two-state transition for a plain chip. Clicking ALL clears.
func (s *Store) ToggleChip(label classify.Label) classify.Label {
	var chip classify.Label
	s.mutate(func() {
		if label == classify.LabelAll {
			s.chip = classify.LabelAll
		} else {
			s.chip = nextToggle(s.chip, label)
		}
		chip = s.chip
	})
	return chip
}

// ToggleMallTag flips label in the mall-tag multi-select.
func (s *Store) ToggleMallTag(label classify.Label) {
	if _, ok := classify.LookupTag(label); !ok {
		return
	}
	s.mutate(func() {
		s.mallTags = s.mallTags.Toggle(label)
	})
}

// SetMallKeyword sets the competition view's mall search text.
func (s *Store) SetMallKeyword(kw string) {
	s.mutate(func() {
		s.mallKeyword = kw
	})
}

// SetKeyword sets the store search text in both pending and applied.
func (s *Store) SetKeyword(kw string) {
	s.UpdateFilters(Patch{Keyword: &kw})
}

// ToggleFavorite flips a store in the favorites set.
func (s *Store) ToggleFavorite(storeID string) {
	if storeID == "" {
		return
	}
	s.mutate(func() {
		s.favorites = s.favorites.Toggle(storeID)
	})
}

// SelectStore selects a store; "" clears the selection.
func (s *Store) SelectStore(id string) {
	s.mutate(func() {
		s.selectedStoreID = id
	})
}

// SelectMall selects a mall; "" clears the selection.
func (s *Store) SelectMall(id string) {
	s.mutate(func() {
		s.selectedMallID = id
	})
}

// SetView switches the active view. Unknown views are ignored.
func (s *Store) SetView(v View) {
	if !v.Valid() {
		return
	}
	s.mutate(func() {
		s.view = v
	})
}

// SetViewport records the map center and zoom.
func (s *Store) SetViewport(vp Viewport) {
	s.mutate(func() {
		s.viewport = vp.clone()
	})
}

// ResetAll restores every filter, chip, selection and the viewport to
// defaults and bumps the reset token. Favorites and the active view survive.
func (s *Store) ResetAll() uint64 {
	var token uint64
	s.mutate(func() {
		s.resetLocked()
		s.resetToken++
		token = s.resetToken
	})
	return token
}

func (s *Store) resetLocked() {
	s.pending = DefaultState()
	s.applied = DefaultState()
	s.draft = nil
	s.lastQuick = QuickAll
	s.quick = QuickAll
	s.rangePickerOpen = false
	s.chip = classify.LabelAll
	s.mallTags = types.NewSet[classify.Label]()
	s.mallKeyword = ""
	s.selectedStoreID = ""
	s.selectedMallID = ""
	s.viewport = Viewport{}
}

func (s *Store) setEntities(stores []types.Store, malls []types.Mall) {
	s.stores = stores
	s.malls = malls
	s.provinces = classify.NewProvinceIndex(stores)
}

// commitLocked installs next as pending and applied and re-derives the quick mode.
func (s *Store) commitLocked(next State) {
	s.pending = next
	s.applied = next.Clone()
	s.quick = deriveQuick(s.lastQuick, s.applied)
	if s.quick == QuickAll {
		s.lastQuick = QuickAll
	}
	if s.applied.NewAddedRange == RangeNone {
		s.rangePickerOpen = false
	}
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		Pending:         s.pending.Clone(),
		Applied:         s.applied.Clone(),
		Quick:           s.quick,
		RangePickerOpen: s.rangePickerOpen,
		Chip:            s.chip,
		MallTags:        s.mallTags.Clone(),
		MallKeyword:     s.mallKeyword,
		Favorites:       s.favorites.Clone(),
		SelectedStoreID: s.selectedStoreID,
		SelectedMallID:  s.selectedMallID,
		View:            s.view,
		Viewport:        s.viewport.clone(),
		ResetToken:      s.resetToken,
	}
	if s.draft != nil {
		d := s.draft.clone()
		snap.Draft = &d
	}
	return snap
}

// mutate runs fn under the lock, then notifies observers outside it. notifyMu
// is taken before mu is released so notifications keep mutation order.
func (s *Store) mutate(fn func()) {
	s.mu.Lock()
	fn()
	snap := s.snapshotLocked()
	obs := make([]Observer, len(s.observers))
	for i, n := range s.observers {
		obs[i] = n.obs
	}
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	for _, o := range obs {
		o.Observe(snap)
	}
}
