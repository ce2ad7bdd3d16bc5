package cmd

import (
	"fmt"
	"os"

	"github.com/corey/botica/internal/adapters/socket"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the query log",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var truncateKeep int

var historyTruncateCmd = &cobra.Command{
	Use:   "truncate",
	Short: "Keep only the newest history records",
	Args:  cobra.NoArgs,
	RunE:  runHistoryTruncate,
}

func init() {
	historyTruncateCmd.Flags().IntVar(&truncateKeep, "keep", -1, "records to keep (default from config, 5)")
	historyCmd.AddCommand(historyTruncateCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}

	var result *socket.HistoryResult
	if client, ok := daemonClient(s); ok {
		if result, err = client.History(); err != nil {
			return err
		}
	} else {
		a, err := openLocal(s, false)
		if err != nil {
			return err
		}
		defer a.Close()
		recs, err := a.HistoryRecords()
		if err != nil {
			return err
		}
		result = &socket.HistoryResult{Records: recs, Count: len(recs)}
	}

	if flags.jsonOut {
		return printJSON(os.Stdout, result)
	}
	printHistory(os.Stdout, result.Records)
	return nil
}

func runHistoryTruncate(cmd *cobra.Command, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	keep := truncateKeep
	if keep < 0 {
		keep = s.History.Keep
	}

	var result *socket.TruncateResult
	if client, ok := daemonClient(s); ok {
		if result, err = client.Truncate(keep); err != nil {
			return err
		}
	} else {
		a, err := openLocal(s, false)
		if err != nil {
			return err
		}
		defer a.Close()
		removed, kept, err := a.TruncateHistory(keep)
		if err != nil {
			return err
		}
		result = &socket.TruncateResult{Removed: removed, Kept: kept}
	}

	if flags.jsonOut {
		return printJSON(os.Stdout, result)
	}
	fmt.Printf("%s removed %d, kept %d\n", okMark(), result.Removed, result.Kept)
	return nil
}
