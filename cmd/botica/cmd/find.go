package cmd

import (
	"context"
	"os"
	"strings"

	"github.com/corey/botica/internal/adapters/socket"
	"github.com/corey/botica/internal/app"
	"github.com/spf13/cobra"
)

var findFlags struct {
	keywords []string
	local    bool
}

var findCmd = &cobra.Command{
	Use:   "find <need...>",
	Short: "Find products for a free-text need",
	Long: "Derives keywords from the text (trigger table, classifier response or the\n" +
		"text's own words) and lists matching catalog rows sorted by name.\n" +
		"Uses the daemon when it is running, otherwise runs in-process.",
	Args: cobra.MinimumNArgs(1),
	RunE: runFind,
}

func init() {
	findCmd.Flags().StringSliceVarP(&findFlags.keywords, "keyword", "k", nil, "extra keyword to match (repeatable)")
	findCmd.Flags().BoolVar(&findFlags.local, "local", false, "run in-process even if the daemon is up")
}

func runFind(cmd *cobra.Command, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	query := strings.Join(args, " ")

	var result *socket.FindResult
	if client, ok := daemonClient(s); ok && !findFlags.local {
		result, err = client.Find(query, findFlags.keywords...)
		if err != nil {
			return err
		}
	} else {
		a, err := openLocal(s, false)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Find(context.Background(), query, findFlags.keywords...)
		if err != nil {
			return err
		}
		r := app.FindResult(res)
		result = &r
	}

	if flags.jsonOut {
		return printJSON(os.Stdout, result)
	}
	printFindResult(os.Stdout, result)
	return nil
}
