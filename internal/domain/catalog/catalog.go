// Package catalog holds the in-memory product table. A Catalog is built once
// per session from a validated source and is read-only afterwards, so it can
// be shared between concurrent sessions without locking.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/corey/botica/internal/domain/normalize"
	"github.com/corey/botica/internal/ports"
	"github.com/shopspring/decimal"
)

// Catalog is an immutable product table with pre-normalized name and category.
type Catalog struct {
	source   string
	products []ports.Product
	normName []string
	normCat  []string
}

// LoadReport summarizes row-level problems that did not stop the load.
type LoadReport struct {
	Rows       int // data rows read
	Loaded     int // products kept
	Skipped    int // rows with neither code nor name
	ShortRows  int // rows narrower than the schema (missing cells read as empty)
	BadPrices  int // prices that could not be parsed (loaded as zero)
	ByPosition []Field
}

// New builds a catalog from products. The slice is copied.
func New(source string, products []ports.Product) *Catalog {
	c := &Catalog{
		source:   source,
		products: make([]ports.Product, len(products)),
		normName: make([]string, len(products)),
		normCat:  make([]string, len(products)),
	}
	copy(c.products, products)
	for i, p := range c.products {
		c.normName[i] = normalize.Text(p.Name)
		c.normCat[i] = normalize.Text(p.Category)
	}
	return c
}

// Load reads a source, resolves its schema and builds the catalog.
// Any failure is returned as a *ConfigError.
func Load(src ports.CatalogSource, opts SchemaOptions) (*Catalog, LoadReport, error) {
	header, rows, err := src.ReadTable()
	if err != nil {
		return nil, LoadReport{}, &ConfigError{Source: src.Name(), Err: err}
	}
	return FromRows(src.Name(), header, rows, opts)
}

// FromRows builds a catalog from a header row and data rows.
func FromRows(source string, header []string, rows [][]string, opts SchemaOptions) (*Catalog, LoadReport, error) {
	var report LoadReport
	if len(header) == 0 {
		return nil, report, &ConfigError{Source: source, Err: errors.New("no header row")}
	}

	schema, err := ResolveSchema(header, opts)
	if err != nil {
		var ce *ConfigError
		if errors.As(err, &ce) {
			ce.Source = source
		}
		return nil, report, err
	}
	report.ByPosition = schema.ByPosition

	products := make([]ports.Product, 0, len(rows))
	for _, row := range rows {
		report.Rows++
		if len(row) < schema.Width() {
			report.ShortRows++
		}
		p := ports.Product{
			Code:     strings.TrimSpace(cell(row, schema.Code)),
			Name:     strings.TrimSpace(cell(row, schema.Name)),
			Category: strings.TrimSpace(cell(row, schema.Category)),
		}
		if p.Code == "" && p.Name == "" {
			report.Skipped++
			continue
		}
		price, ok := ParsePrice(cell(row, schema.Price))
		if !ok {
			report.BadPrices++
		}
		p.Price = price
		products = append(products, p)
	}

	if len(products) == 0 {
		return nil, report, &ConfigError{Source: source, Err: ErrEmptyCatalog}
	}
	report.Loaded = len(products)
	return New(source, products), report, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// ParsePrice reads prices as spreadsheets export them: "120", "$1,234.50",
// "1.234,50", "120,50", "1.2E+2", "MXN 99". When both separators appear the
// last one is the decimal point. Grouping that is neither a decimal part nor
// groups of three digits is rejected rather than guessed. An empty or
// unparsable cell yields zero and false.
func ParsePrice(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	if d, err := decimal.NewFromString(s); err == nil {
		return d, true
	}
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',', r == '-':
			return r
		}
		return -1
	}, s)

	dot, comma := strings.LastIndex(s, "."), strings.LastIndex(s, ",")
	switch {
	case dot >= 0 && comma >= 0:
		point, group := ".", ","
		if comma > dot {
			point, group = ",", "."
		}
		whole, frac, _ := strings.Cut(s, point)
		if strings.Contains(frac, point) || strings.Contains(frac, group) || !grouped(whole, group) {
			return decimal.Zero, false
		}
		s = strings.ReplaceAll(whole, group, "") + "." + frac
	case comma >= 0:
		if decimalComma(s) {
			s = strings.Replace(s, ",", ".", 1)
		} else if grouped(s, ",") {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			return decimal.Zero, false
		}
	case strings.Count(s, ".") > 1:
		if !grouped(s, ".") {
			return decimal.Zero, false
		}
		s = strings.ReplaceAll(s, ".", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// decimalComma reports whether the only comma separates 1-2 decimal digits.
func decimalComma(s string) bool {
	if strings.Count(s, ",") != 1 {
		return false
	}
	frac := s[strings.Index(s, ",")+1:]
	return len(frac) >= 1 && len(frac) <= 2
}

// grouped reports whether sep splits s into thousands groups: a leading
// group of 1-3 digits followed by groups of exactly three.
func grouped(s, sep string) bool {
	parts := strings.Split(strings.TrimPrefix(s, "-"), sep)
	if len(parts[0]) < 1 || len(parts[0]) > 3 {
		return false
	}
	for _, p := range parts[1:] {
		if len(p) != 3 {
			return false
		}
	}
	return true
}

// Source returns the name of the source the catalog was loaded from.
func (c *Catalog) Source() string { return c.source }

// Len returns the number of products.
func (c *Catalog) Len() int { return len(c.products) }

// At returns the i-th product.
func (c *Catalog) At(i int) ports.Product { return c.products[i] }

// NormName returns the normalized name of the i-th product.
func (c *Catalog) NormName(i int) string { return c.normName[i] }

// NormCategory returns the normalized category of the i-th product.
func (c *Catalog) NormCategory(i int) string { return c.normCat[i] }

// Products returns a copy of all products in load order.
func (c *Catalog) Products() []ports.Product {
	out := make([]ports.Product, len(c.products))
	copy(out, c.products)
	return out
}

// ByName returns products whose normalized name contains the normalized text,
// sorted by name. Empty text returns nothing.
func (c *Catalog) ByName(text string) []ports.Product {
	q := normalize.Text(text)
	if q == "" {
		return nil
	}
	return c.collect(func(i int) bool { return strings.Contains(c.normName[i], q) })
}

// ByCategory returns products in a category, sorted by name. With contains
// set, the normalized category only needs to contain the text.
func (c *Catalog) ByCategory(text string, contains bool) []ports.Product {
	q := normalize.Text(text)
	if q == "" {
		return nil
	}
	return c.collect(func(i int) bool {
		if contains {
			return strings.Contains(c.normCat[i], q)
		}
		return c.normCat[i] == q
	})
}

// ByCode returns the first product with exactly this code (surrounding
// whitespace ignored).
func (c *Catalog) ByCode(code string) (ports.Product, bool) {
	code = strings.TrimSpace(code)
	for _, p := range c.products {
		if p.Code == code {
			return p, true
		}
	}
	return ports.Product{}, false
}

// CategoryCount is a category with the number of products in it.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Categories returns distinct categories (as first spelled in the source,
// grouped by normalized form) sorted by normalized name.
func (c *Catalog) Categories() []CategoryCount {
	idx := make(map[string]int)
	var out []CategoryCount
	var keys []string
	for i, p := range c.products {
		k := c.normCat[i]
		if j, ok := idx[k]; ok {
			out[j].Count++
			continue
		}
		idx[k] = len(out)
		out = append(out, CategoryCount{Category: p.Category, Count: 1})
		keys = append(keys, k)
	}
	order := make([]int, len(out))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return keys[order[a]] < keys[order[b]] })
	sorted := make([]CategoryCount, len(out))
	for i, j := range order {
		sorted[i] = out[j]
	}
	return sorted
}

func (c *Catalog) collect(keep func(i int) bool) []ports.Product {
	var out []ports.Product
	for i := range c.products {
		if keep(i) {
			out = append(out, c.products[i])
		}
	}
	SortByName(out)
	return out
}

// SortByName orders products by name ascending, ignoring case and accents.
// Ties fall back to the raw name, then the code, so the order is total.
func SortByName(ps []ports.Product) {
	keys := make(map[string]string, len(ps))
	key := func(p ports.Product) string {
		k, ok := keys[p.Name]
		if !ok {
			k = normalize.Text(p.Name)
			keys[p.Name] = k
		}
		return k
	}
	sort.SliceStable(ps, func(i, j int) bool {
		ki, kj := key(ps[i]), key(ps[j])
		if ki != kj {
			return ki < kj
		}
		if ps[i].Name != ps[j].Name {
			return ps[i].Name < ps[j].Name
		}
		return ps[i].Code < ps[j].Code
	})
}

// String describes the catalog for logs.
func (c *Catalog) String() string {
	return fmt.Sprintf("catalog %s (%d products)", c.source, len(c.products))
}
