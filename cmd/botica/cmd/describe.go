package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var describeCmd = &cobra.Command{
	Use:   "describe <code>",
	Short: "Write a short description of a product",
	Long:  "Asks the classifier for a sales blurb; without one, prints a template built from the catalog row.",
	Args:  cobra.ExactArgs(1),
	RunE:  runDescribe,
}

func runDescribe(cmd *cobra.Command, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	a, err := openLocal(s, true)
	if err != nil {
		return err
	}
	defer a.Close()

	text, err := a.Describe(context.Background(), args[0])
	if err != nil {
		return err
	}
	fmt.Println(text)
	return nil
}
