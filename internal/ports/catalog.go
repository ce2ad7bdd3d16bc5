// Package ports defines the interfaces (contracts) that adapters must implement.
// These are the boundaries of the hexagonal architecture. Domain logic depends
// only on these interfaces, never on concrete implementations.
package ports

import (
	"github.com/shopspring/decimal"
)

// Product is one catalog row. Price is tax-included.
type Product struct {
	Code     string          `json:"code"`
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
}

// Key identifies a row by its full content. Two rows with the same key are
// exact duplicates.
func (p Product) Key() string {
	return p.Code + "\x1f" + p.Name + "\x1f" + p.Category + "\x1f" + p.Price.String()
}

// CatalogSource reads a tabular catalog file into a header row and data rows.
// The adapter does not interpret columns; schema resolution happens in the
// domain so every source is validated the same way.
type CatalogSource interface {
	// ReadTable returns the header row and all following rows of the sheet.
	// Returns an error if the file is missing or unreadable.
	ReadTable() (header []string, rows [][]string, err error)

	// Name identifies the source in error messages (usually the file path).
	Name() string
}
