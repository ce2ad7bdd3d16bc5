package cmd

import (
	"os"

	"github.com/corey/botica/internal/adapters/socket"
	"github.com/spf13/cobra"
)

var catalogFlags struct {
	name       string
	category   string
	code       string
	categories bool
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List catalog rows by name, category or code",
	Long:  "Without filters lists every row. --categories lists categories with product counts.",
	Args:  cobra.NoArgs,
	RunE:  runCatalog,
}

func init() {
	f := catalogCmd.Flags()
	f.StringVar(&catalogFlags.name, "name", "", "name contains (case and accent insensitive)")
	f.StringVar(&catalogFlags.category, "category", "", "category contains")
	f.StringVar(&catalogFlags.code, "code", "", "exact product code")
	f.BoolVar(&catalogFlags.categories, "categories", false, "list categories instead of products")
}

func runCatalog(cmd *cobra.Command, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}

	params := socket.CatalogParams{Name: catalogFlags.name, Category: catalogFlags.category, Code: catalogFlags.code}
	if client, ok := daemonClient(s); ok && !catalogFlags.categories {
		result, err := client.Catalog(params)
		if err != nil {
			return err
		}
		return printCatalog(result)
	}

	a, err := openLocal(s, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if catalogFlags.categories {
		cats := a.Categories()
		if flags.jsonOut {
			return printJSON(os.Stdout, cats)
		}
		printCategories(os.Stdout, cats)
		return nil
	}
	products := a.Lookup(params.Name, params.Category, params.Code)
	return printCatalog(&socket.CatalogResult{Products: products, Count: len(products)})
}

func printCatalog(result *socket.CatalogResult) error {
	if flags.jsonOut {
		return printJSON(os.Stdout, result)
	}
	printProducts(os.Stdout, result.Products)
	return nil
}
