package calendar

import (
	"fmt"
	"sync"
	"testing"
)

func TestNormalizeSymbol(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"ag2401", "AG"},
		{"AG2401.SHFE", "AG"},
		{"rb888", "RB"},
		{"IF", "IF"},
		{"T2412", "T"},
		{"btc-usdt", "BTC-USDT"},
	}
	for _, tt := range tests {
		if got := NormalizeSymbol(tt.in); got != tt.want {
			t.Errorf("NormalizeSymbol(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSymbolNormalizerBounded(t *testing.T) {
	n := NewSymbolNormalizer(8)
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				sym := fmt.Sprintf("ag%d", 2400+i)
				if got := n.Normalize(sym); got != "AG" {
					t.Errorf("Normalize(%q) = %q, want AG", sym, got)
				}
			}
		}(g)
	}
	wg.Wait()
	if n.Len() > 8 {
		t.Errorf("Len() = %d, want at most 8", n.Len())
	}
	n.Purge()
	if n.Len() != 0 {
		t.Errorf("Len() after Purge = %d, want 0", n.Len())
	}

	off := NewSymbolNormalizer(0)
	if got := off.Normalize("IF2409"); got != "IF" || off.Len() != 0 {
		t.Errorf("uncached Normalize = %q (len %d), want IF (len 0)", got, off.Len())
	}
}

func TestProductCategoryOf(t *testing.T) {
	tests := []struct {
		id   string
		want ProductCategory
	}{
		{"if", CategoryStockIndex},
		{"IM", CategoryStockIndex},
		{"TL", CategoryBonds},
		{"AG", CategoryCommodity},
		{"RB", CategoryCommodity},
	}
	for _, tt := range tests {
		if got := ProductCategoryOf(tt.id); got != tt.want {
			t.Errorf("ProductCategoryOf(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}
