package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/corey/botica/internal/adapters/socket"
	"github.com/corey/botica/internal/domain/catalog"
	"github.com/corey/botica/internal/ports"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

var (
	okMark   = func() string { return color.GreenString("✓") }
	warnMark = func() string { return color.YellowString("!") }
	dim      = color.New(color.FgHiBlack).SprintFunc()
	cyan     = color.New(color.FgCyan).SprintFunc()
	bold     = color.New(color.Bold).SprintFunc()
)

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printFindResult renders a lookup:
//
//	✓ 2 products │ keywords: circulacion │ trigger │ 1.2ms
//	+--------+---------------------+-------------+--------+
func printFindResult(w io.Writer, r *socket.FindResult) {
	mark := okMark()
	if r.Count == 0 {
		mark = warnMark()
	}
	keywords := "none"
	if len(r.Keywords) > 0 {
		keywords = strings.Join(r.Keywords, ", ")
	}
	fmt.Fprintf(w, "%s %s │ keywords: %s │ %s", mark, bold(plural(r.Count, "product", "products")), cyan(keywords), r.Source)
	if r.Elapsed != "" {
		fmt.Fprintf(w, " │ %s", r.Elapsed)
	}
	fmt.Fprintln(w)
	if r.Degraded {
		fmt.Fprintln(w, color.YellowString("  classifier unavailable, matched on the query's own words"))
	}
	if r.Count == 0 {
		fmt.Fprintln(w, dim("  no relevant product in the catalog"))
		return
	}
	printProducts(w, r.Products)
}

func printProducts(w io.Writer, products []ports.Product) {
	if len(products) == 0 {
		fmt.Fprintln(w, dim("no products"))
		return
	}
	t := newTable(w, "Código", "Nombre", "Serie", "Precio")
	t.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	for _, p := range products {
		t.Append([]string{p.Code, p.Name, p.Category, "$" + p.Price.StringFixed(2)})
	}
	t.Render()
}

func printCategories(w io.Writer, cats []catalog.CategoryCount) {
	t := newTable(w, "Serie", "Productos")
	for _, c := range cats {
		t.Append([]string{c.Category, fmt.Sprint(c.Count)})
	}
	t.Render()
}

func printHistory(w io.Writer, recs []ports.HistoryRecord) {
	if len(recs) == 0 {
		fmt.Fprintln(w, dim("history is empty"))
		return
	}
	t := newTable(w, "Fecha", "Consulta", "Palabras clave", "Origen", "Resultados")
	for _, r := range recs {
		t.Append([]string{
			r.Timestamp.Local().Format("2006-01-02 15:04"),
			r.Query,
			strings.Join(r.Keywords, ", "),
			r.Source,
			fmt.Sprint(r.Matches),
		})
	}
	t.Render()
}

func printHealth(w io.Writer, h *socket.HealthResult) {
	fmt.Fprintf(w, "%s botica daemon %s\n", okMark(), h.Status)
	fmt.Fprintf(w, "  Catalog:     %s (%d products)\n", h.Catalog, h.Products)
	fmt.Fprintf(w, "  Vocabulary:  %d terms\n", h.Vocabulary)
	fmt.Fprintf(w, "  Classifier:  %s\n", h.Classifier)
	fmt.Fprintf(w, "  Policy:      %s\n", h.Policy)
	if h.Uptime != "" {
		fmt.Fprintf(w, "  Uptime:      %s\n", h.Uptime)
	}
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetAutoFormatHeaders(false)
	t.SetAutoWrapText(false)
	t.SetBorder(false)
	t.SetCenterSeparator("│")
	t.SetColumnSeparator("│")
	t.SetRowSeparator("─")
	return t
}

func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return fmt.Sprintf("%d %s", n, many)
}
