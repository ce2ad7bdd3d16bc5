package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/corey/botica/internal/domain/normalize"
)

// ErrEmptyCatalog is wrapped in a ConfigError when a source has a header but no rows.
var ErrEmptyCatalog = errors.New("catalog has no products")

// Field identifies a required catalog column.
type Field int

const (
	FieldCode Field = iota
	FieldName
	FieldCategory
	FieldPrice
)

// Fields lists the required fields in column order of the canonical sheet.
var Fields = []Field{FieldCode, FieldName, FieldCategory, FieldPrice}

func (f Field) String() string {
	switch f {
	case FieldCode:
		return "code"
	case FieldName:
		return "name"
	case FieldCategory:
		return "category"
	case FieldPrice:
		return "price"
	}
	return fmt.Sprintf("field(%d)", int(f))
}

// ParseField maps "code", "name", "category" or "price" to a Field.
func ParseField(s string) (Field, bool) {
	for _, f := range Fields {
		if f.String() == strings.ToLower(strings.TrimSpace(s)) {
			return f, true
		}
	}
	return 0, false
}

// DefaultAliases are the header names accepted for each field, in priority order.
// Headers are compared normalized, so "Código", "CODIGO" and "codigo" are equal.
var DefaultAliases = map[Field][]string{
	FieldCode:     {"codigo", "code", "clave", "sku", "cod"},
	FieldName:     {"nombre", "name", "producto", "articulo", "descripcion"},
	FieldCategory: {"serie", "categoria", "category", "linea", "familia"},
	FieldPrice:    {"precio", "precio con iva", "precio iva", "pvp", "price", "importe"},
}

// SchemaOptions controls how a header row is mapped to fields.
type SchemaOptions struct {
	// Aliases per field, tried in order. Nil uses DefaultAliases.
	Aliases map[Field][]string

	// Positions are zero-based fallback column indexes used only when no
	// alias matches. A field absent from the map has no fallback.
	Positions map[Field]int
}

// Schema holds the resolved zero-based column index of each field.
type Schema struct {
	Code     int
	Name     int
	Category int
	Price    int

	// ByPosition lists the fields resolved through positional fallback.
	ByPosition []Field
}

func (s *Schema) set(f Field, idx int) {
	switch f {
	case FieldCode:
		s.Code = idx
	case FieldName:
		s.Name = idx
	case FieldCategory:
		s.Category = idx
	case FieldPrice:
		s.Price = idx
	}
}

// Width is the minimum row length that contains every resolved column.
func (s Schema) Width() int {
	w := s.Code
	for _, c := range []int{s.Name, s.Category, s.Price} {
		if c > w {
			w = c
		}
	}
	return w + 1
}

// ConfigError reports catalog data that cannot be used. It is fatal for the
// session: the caller reports it to the operator and stops.
type ConfigError struct {
	Source    string
	Missing   []string // fields with no matching column
	Ambiguous []string // headers that appear more than once
	Err       error
}

func (e *ConfigError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing columns: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Ambiguous) > 0 {
		parts = append(parts, "ambiguous columns: "+strings.Join(e.Ambiguous, ", "))
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	msg := "catalog " + e.Source
	if len(parts) > 0 {
		msg += ": " + strings.Join(parts, "; ")
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// IsConfigError reports whether err (or anything it wraps) is a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// ResolveSchema maps header cells to fields by name, falling back to the
// configured positions. Every field must resolve.
func ResolveSchema(header []string, opts SchemaOptions) (Schema, error) {
	aliases := opts.Aliases
	if aliases == nil {
		aliases = DefaultAliases
	}

	// normalized header -> column indexes
	cols := make(map[string][]int, len(header))
	for i, h := range header {
		n := normalize.Text(h)
		if n == "" {
			continue
		}
		cols[n] = append(cols[n], i)
	}

	var schema Schema
	var missing, ambiguous []string
	used := make(map[int]Field, len(Fields))
	claim := func(f Field, idx int, how string) bool {
		if other, taken := used[idx]; taken {
			ambiguous = append(ambiguous, fmt.Sprintf("%s (%s column %d already holds %s)", f, how, idx, other))
			return false
		}
		used[idx] = f
		schema.set(f, idx)
		return true
	}

	// Names first, so a positional fallback can never take a column that
	// another field owns by header.
	var unresolved []Field
	for _, f := range Fields {
		found := false
		for _, alias := range aliases[f] {
			hits := cols[normalize.Text(alias)]
			if len(hits) == 0 {
				continue
			}
			if len(hits) > 1 {
				ambiguous = append(ambiguous, fmt.Sprintf("%s (%q at columns %v)", f, alias, hits))
			}
			claim(f, hits[0], "named")
			found = true
			break
		}
		if !found {
			unresolved = append(unresolved, f)
		}
	}

	for _, f := range unresolved {
		pos, ok := opts.Positions[f]
		if !ok || pos < 0 || pos >= len(header) {
			missing = append(missing, f.String())
			continue
		}
		if claim(f, pos, "positional") {
			schema.ByPosition = append(schema.ByPosition, f)
		}
	}

	if len(missing) > 0 || len(ambiguous) > 0 {
		return Schema{}, &ConfigError{Missing: missing, Ambiguous: ambiguous}
	}
	return schema, nil
}
