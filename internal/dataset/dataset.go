// Package dataset loads the store and mall collections the dashboard filters.
//
// The filter engine never fetches data itself. A Provider hands it a Dataset
// once, and the dashboard treats the collections as read-only afterwards.
package dataset

import (
	"context"
	"errors"
	"fmt"

	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/types"
)

// ErrNotFound is returned by lookups for ids that are not in the dataset.
var ErrNotFound = errors.New("not found")

// Provider produces a Dataset.
type Provider interface {
	Load(ctx context.Context) (*Dataset, error)
}

// ProviderFunc adapts a plain function to the Provider interface.
type ProviderFunc func(ctx context.Context) (*Dataset, error)

func (f ProviderFunc) Load(ctx context.Context) (*Dataset, error) { return f(ctx) }

// Dataset is an immutable pair of store and mall collections with id lookup.
type Dataset struct {
	stores  []types.Store
	malls   []types.Mall
	storeAt map[string]int
	mallAt  map[string]int
}

// New indexes stores and malls. On duplicate ids the first record wins.
func New(stores []types.Store, malls []types.Mall) *Dataset {
	d := &Dataset{
		stores:  stores,
		malls:   malls,
		storeAt: make(map[string]int, len(stores)),
		mallAt:  make(map[string]int, len(malls)),
	}
	for i, s := range stores {
		if _, dup := d.storeAt[s.ID]; !dup {
			d.storeAt[s.ID] = i
		}
	}
	for i, m := range malls {
		if _, dup := d.mallAt[m.MallID]; !dup {
			d.mallAt[m.MallID] = i
		}
	}
	return d
}

// Stores returns every store in load order. Callers must not modify it.
func (d *Dataset) Stores() []types.Store { return d.stores }

// Malls returns every mall in load order. Callers must not modify it.
func (d *Dataset) Malls() []types.Mall { return d.malls }

// StoreByID returns the store with the given id.
func (d *Dataset) StoreByID(id string) (types.Store, error) {
	i, ok := d.storeAt[id]
	if !ok {
		return types.Store{}, fmt.Errorf("store %q: %w", id, ErrNotFound)
	}
	return d.stores[i], nil
}

// MallByID returns the mall with the given id.
func (d *Dataset) MallByID(id string) (types.Mall, error) {
	i, ok := d.mallAt[id]
	if !ok {
		return types.Mall{}, fmt.Errorf("mall %q: %w", id, ErrNotFound)
	}
	return d.malls[i], nil
}

// StoresInMall returns the stores whose mall reference is mallID.
func (d *Dataset) StoresInMall(mallID string) []types.Store {
	var out []types.Store
	for _, s := range d.stores {
		if mallID != "" && s.MallID == mallID {
			out = append(out, s)
		}
	}
	return out
}

// Static returns a Provider that always yields d.
func Static(d *Dataset) Provider {
	return ProviderFunc(func(context.Context) (*Dataset, error) { return d, nil })
}
