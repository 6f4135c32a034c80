package calendar

import (
	"regexp"
	"strings"
	"sync"
)

// DefaultNormalizerSize bounds the cache of a normalizer created by New.
const DefaultNormalizerSize = 4096

var contractPattern = regexp.MustCompile(`^([a-zA-Z]{1,2})(\d{3,4})`)

// NormalizeSymbol maps a contract code to its product id: "ag2401" and
// "AG2401.SHFE" give "AG", "IF" stays "IF". Anything without a contract month
// is upper-cased as is.
func NormalizeSymbol(symbol string) string {
	if m := contractPattern.FindStringSubmatch(symbol); m != nil {
		return strings.ToUpper(m[1])
	}
	return strings.ToUpper(symbol)
}

// SymbolNormalizer memoizes NormalizeSymbol for a bounded number of symbols.
// It is safe for concurrent use.
type SymbolNormalizer struct {
	mu    sync.Mutex
	max   int
	cache map[string]string
}

// NewSymbolNormalizer creates a normalizer holding at most max entries.
// A max of zero or less disables caching.
func NewSymbolNormalizer(max int) *SymbolNormalizer {
	return &SymbolNormalizer{max: max, cache: make(map[string]string)}
}

// Normalize returns the product id of symbol.
func (n *SymbolNormalizer) Normalize(symbol string) string {
	n.mu.Lock()
	defer n.mu.Unlock()

	if v, ok := n.cache[symbol]; ok {
		return v
	}
	v := NormalizeSymbol(symbol)
	if n.max <= 0 {
		return v
	}
	if len(n.cache) >= n.max {
		// Evict an arbitrary entry.
		for k := range n.cache {
			delete(n.cache, k)
			break
		}
	}
	n.cache[symbol] = v
	return v
}

// Len returns the number of cached symbols.
func (n *SymbolNormalizer) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.cache)
}

// Purge empties the cache.
func (n *SymbolNormalizer) Purge() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cache = make(map[string]string)
}

// ProductCategory groups futures products for display.
type ProductCategory string

const (
	CategoryCommodity  ProductCategory = "commodity"
	CategoryStockIndex ProductCategory = "stock_index"
	CategoryBonds      ProductCategory = "bonds"
)

// ProductCategoryOf classifies a CN futures product id.
func ProductCategoryOf(productID string) ProductCategory {
	switch strings.ToUpper(productID) {
	case "T", "TS", "TF", "TL":
		return CategoryBonds
	case "IC", "IH", "IF", "IM":
		return CategoryStockIndex
	}
	return CategoryCommodity
}
