package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/corey/botica/internal/adapters/socket"
	"github.com/corey/botica/internal/app"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration",
	Long:  "Shows the effective settings (API keys masked), store paths, socket path and daemon status. No daemon required.",
	RunE:  runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	paths := app.NewPaths(s.DataDir)
	sockPath := socket.SocketPath(s.DataDir)

	_, running := daemonClient(s)
	daemonStatus := color.YellowString("✗ not running")
	if running {
		daemonStatus = color.GreenString("✓ running")
	}

	fmt.Println(bold("botica config"))
	fmt.Printf("  Data dir:   %s\n", s.DataDir)
	fmt.Printf("  History:    %s (%s)\n", s.HistoryPath(), s.History.Backend)
	fmt.Printf("  Keywords:   %s (%s)\n", s.KeywordsPath(), s.Keywords.Backend)
	fmt.Printf("  Socket:     %s\n", sockPath)
	fmt.Printf("  Daemon:     %s\n", daemonStatus)
	if running {
		if portData, err := os.ReadFile(paths.PortFile); err == nil {
			fmt.Printf("  HTTP API:   http://localhost:%s\n", strings.TrimSpace(string(portData)))
		}
	}
	fmt.Println()
	fmt.Print(s.String())
	return nil
}
