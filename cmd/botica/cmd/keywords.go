package cmd

import (
	"fmt"
	"os"

	"github.com/corey/botica/internal/domain/normalize"
	"github.com/spf13/cobra"
)

var keywordsCmd = &cobra.Command{
	Use:   "keywords",
	Short: "List learned keywords",
	Long:  "Keywords learned from classifier responses extend the vocabulary used to read later responses.",
	Args:  cobra.NoArgs,
	RunE:  runKeywords,
}

var keywordsAddCmd = &cobra.Command{
	Use:   "add <phrase...>",
	Short: "Add keywords by hand",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runKeywordsAdd,
}

func init() {
	keywordsCmd.AddCommand(keywordsAddCmd)
}

func runKeywords(cmd *cobra.Command, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	a, err := openLocal(s, false)
	if err != nil {
		return err
	}
	defer a.Close()

	phrases, err := a.Keywords.Load()
	if err != nil {
		return err
	}
	if flags.jsonOut {
		return printJSON(os.Stdout, phrases)
	}
	if len(phrases) == 0 {
		fmt.Println(dim("no learned keywords"))
		return nil
	}
	for _, p := range phrases {
		fmt.Println(p)
	}
	return nil
}

func runKeywordsAdd(cmd *cobra.Command, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	a, err := openLocal(s, false)
	if err != nil {
		return err
	}
	defer a.Close()

	phrases := normalize.All(args)
	added, err := a.Keywords.Append(phrases...)
	if err != nil {
		return err
	}
	fmt.Printf("%s added %d of %d\n", okMark(), added, len(phrases))
	return nil
}
