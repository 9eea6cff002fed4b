package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/types"
)

// document is the on-disk JSON layout.
type document struct {
	Stores []types.Store `json:"stores"`
	Malls  []types.Mall  `json:"malls"`
}

// Decode reads a {"stores": [...], "malls": [...]} document. Stores with an
// unknown brand are skipped.
func Decode(r io.Reader) (*Dataset, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding dataset: %w", err)
	}
	stores := doc.Stores[:0]
	for _, s := range doc.Stores {
		if s.Brand.Valid() {
			stores = append(stores, s)
		}
	}
	return New(stores, doc.Malls), nil
}

// Encode writes d as a JSON document.
func Encode(w io.Writer, d *Dataset) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(document{Stores: d.Stores(), Malls: d.Malls()}); err != nil {
		return fmt.Errorf("encoding dataset: %w", err)
	}
	return nil
}

// FileProvider loads a JSON document from disk on every Load.
type FileProvider struct {
	Path string
}

func (p FileProvider) Load(ctx context.Context) (*Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(p.Path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}
