package ranking

import (
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Collator compares Chinese display strings (city and mall names) in pinyin
// order. A collate.Collator keeps scratch buffers, so calls are serialized.
type Collator struct {
	mu sync.Mutex
	c  *collate.Collator
}

// NewCollator returns a collator for simplified Chinese.
func NewCollator() *Collator {
	return &Collator{c: collate.New(language.SimplifiedChinese)}
}

var defaultCollator = NewCollator()

// Compare returns -1, 0 or 1.
func (c *Collator) Compare(a, b string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.c.CompareString(a, b)
}

// Compare uses the package collator.
func Compare(a, b string) int {
	return defaultCollator.Compare(a, b)
}
