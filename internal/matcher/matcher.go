package matcher

import (
	"strings"
	"unicode"

	"github.com/panelsync/panelsync/internal/catalog"
	"github.com/panelsync/panelsync/internal/shared"
)

// Matcher resolves services to platforms and platforms to products.
type Matcher struct {
	table Table
}

// New builds a Matcher over table. A nil or empty table falls back to DefaultTable.
func New(table Table) *Matcher {
	if len(table) == 0 {
		table = DefaultTable()
	}
	return &Matcher{table: table.normalised()}
}

// Table returns a copy of the active platform table.
func (m *Matcher) Table() Table {
	out := make(Table, len(m.table))
	copy(out, m.table)
	return out
}

// MatchPlatform returns the first platform whose keywords occur in serviceName.
func (m *Matcher) MatchPlatform(serviceName string) (string, bool) {
	name := lower(serviceName)
	if name == "" {
		return "", false
	}
	for _, p := range m.table {
		for _, kw := range p.Keywords {
			if strings.Contains(name, kw) {
				return p.Name, true
			}
		}
	}
	return "", false
}

// MatchProduct returns the first product whose title, description or tags
// mention platform. It returns nil when platform is empty or nothing matches.
func MatchProduct(platform string, products []catalog.Product) *catalog.Product {
	needle := lower(platform)
	if needle == "" {
		return nil
	}
	for i := range products {
		if mentions(products[i], needle) {
			return &products[i]
		}
	}
	return nil
}

// MatchProduct applies the platform name rule first and, only when no product
// names the platform, retries with the platform's keywords in table order.
// Keywords must match whole words, so "insta" finds "Insta Growth Pack" but
// not "Instant Coffee".
func (m *Matcher) MatchProduct(platform string, products []catalog.Product) *catalog.Product {
	if p := MatchProduct(platform, products); p != nil {
		return p
	}
	keywords := m.keywords(platform)
	if len(keywords) == 0 {
		return nil
	}
	for i := range products {
		for _, kw := range keywords {
			if mentionsWords(products[i], kw) {
				return &products[i]
			}
		}
	}
	return nil
}

func (m *Matcher) keywords(platform string) [][]string {
	name := lower(platform)
	for _, p := range m.table {
		if lower(p.Name) != name {
			continue
		}
		out := make([][]string, 0, len(p.Keywords))
		for _, kw := range p.Keywords {
			if phrase := words(kw); len(phrase) > 0 {
				out = append(out, phrase)
			}
		}
		return out
	}
	return nil
}

func mentions(p catalog.Product, needle string) bool {
	if strings.Contains(lower(p.Title), needle) || strings.Contains(lower(p.Description), needle) {
		return true
	}
	for _, tag := range p.Tags {
		if strings.Contains(lower(tag), needle) {
			return true
		}
	}
	return false
}

func mentionsWords(p catalog.Product, phrase []string) bool {
	if hasPhrase(words(p.Title), phrase) || hasPhrase(words(p.Description), phrase) {
		return true
	}
	for _, tag := range p.Tags {
		if hasPhrase(words(tag), phrase) {
			return true
		}
	}
	return false
}

// words splits lower-cased s on anything that is not a letter or digit.
func words(s string) []string {
	return strings.FieldsFunc(lower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// hasPhrase reports whether phrase occurs as a contiguous run of words.
func hasPhrase(tokens, phrase []string) bool {
	for i := 0; i+len(phrase) <= len(tokens); i++ {
		match := true
		for j, w := range phrase {
			if tokens[i+j] != w {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// MatchedServiceRow joins a provider service with its best-guess store product.
type MatchedServiceRow struct {
	Product        *catalog.Product `json:"product"`
	Platform       string           `json:"platform,omitempty"`
	Price          *shared.Money    `json:"price"`
	ServiceID      string           `json:"serviceId"`
	ServiceName    string           `json:"serviceName"`
	MinMax         [2]int           `json:"minMax"`
	Rate           shared.Money     `json:"rate"`
	Duration       string           `json:"duration,omitempty"`
	Status         string           `json:"status,omitempty"`
	MarginEstimate *shared.Money    `json:"marginEstimate"`
}

// MatchRows matches every service against products. The same product may be
// matched to several services.
func (m *Matcher) MatchRows(services []catalog.Service, products []catalog.Product) []MatchedServiceRow {
	rows := make([]MatchedServiceRow, 0, len(services))
	for _, svc := range services {
		row := MatchedServiceRow{
			ServiceID:   svc.ID,
			ServiceName: svc.Name,
			MinMax:      [2]int{svc.Min, svc.Max},
			Rate:        shared.NewMoney(svc.Rate),
			Duration:    svc.Duration,
			Status:      svc.Status,
		}
		if platform, ok := m.MatchPlatform(svc.Name); ok {
			row.Platform = platform
			row.Product = m.MatchProduct(platform, products)
		}
		if row.Product != nil {
			if price, ok := row.Product.FirstPrice(); ok {
				p := shared.NewMoney(price)
				margin := shared.NewMoney(price.Sub(svc.Rate))
				row.Price = &p
				row.MarginEstimate = &margin
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func lower(s string) string {
	return shared.Lower(strings.TrimSpace(s))
}
