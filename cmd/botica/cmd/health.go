package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check daemon status",
	RunE:  runHealth,
}

func runHealth(cmd *cobra.Command, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	client, ok := daemonClient(s)
	if !ok {
		fmt.Println(warnMark(), "botica daemon is not running")
		return nil
	}

	health, err := client.Health()
	if err != nil {
		return err
	}
	if flags.jsonOut {
		return printJSON(os.Stdout, health)
	}
	printHealth(os.Stdout, health)
	return nil
}
