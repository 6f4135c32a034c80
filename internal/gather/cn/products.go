package cn

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"quantcal/internal/calendar"
	"quantcal/internal/domain"
)

// ProductFile lists futures contracts with their trading hours as the
// quote feed publishes them: night sessions past midnight run to hours above
// 23 ("21:00:00"-"26:30:00").
type ProductFile struct {
	Contracts []Contract `yaml:"contracts"`
}

// Contract is one listed futures contract.
type Contract struct {
	Symbol    string      `yaml:"symbol"`
	ProductID string      `yaml:"product_id"`
	Night     [][2]string `yaml:"night"`
	Day       [][2]string `yaml:"day"`
}

// LoadProductFile reads a product file from path.
func LoadProductFile(path string) (*ProductFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pf := &ProductFile{}
	if err := yaml.Unmarshal(data, pf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return pf, nil
}

// BuildProductSessions turns contracts into one template per product, night
// sessions first. Contracts of the same product must agree on their hours.
func BuildProductSessions(pf *ProductFile) ([]domain.ProductSessions, error) {
	byProduct := make(map[string][]domain.Session)
	first := make(map[string]string)
	for _, c := range pf.Contracts {
		id := strings.ToUpper(strings.TrimSpace(c.ProductID))
		if id == "" {
			id = calendar.NormalizeSymbol(contractCode(c.Symbol))
		}
		if id == "" {
			return nil, fmt.Errorf("contract %q has no product", c.Symbol)
		}
		sessions, err := feedSessions(append(append([][2]string(nil), c.Night...), c.Day...))
		if err != nil {
			return nil, fmt.Errorf("contract %s: %w", c.Symbol, err)
		}
		if len(sessions) == 0 {
			return nil, fmt.Errorf("contract %s has no trading hours", c.Symbol)
		}
		if prev, ok := byProduct[id]; ok {
			if !sameSessions(prev, sessions) {
				return nil, fmt.Errorf("product %s: %s trades %v but %s trades %v", id, first[id], prev, c.Symbol, sessions)
			}
			continue
		}
		byProduct[id] = sessions
		first[id] = c.Symbol
	}

	out := make([]domain.ProductSessions, 0, len(byProduct))
	for id, sessions := range byProduct {
		out = append(out, domain.ProductSessions{ProductID: id, Sessions: sessions})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

// contractCode strips an exchange prefix such as "SHFE.".
func contractCode(symbol string) string {
	if i := strings.LastIndexByte(symbol, '.'); i >= 0 {
		return symbol[i+1:]
	}
	return symbol
}

func feedSessions(periods [][2]string) ([]domain.Session, error) {
	out := make([]domain.Session, 0, len(periods))
	for _, p := range periods {
		s, err := calendar.ParseSession(p[0] + "-" + p[1])
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func sameSessions(a, b []domain.Session) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
