package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the botica daemon",
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the daemon in the foreground",
	RunE:  runDaemonStart,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the daemon",
	RunE:  runDaemonStop,
}

func init() {
	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStopCmd)
}

func runDaemonStart(cmd *cobra.Command, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	if _, ok := daemonClient(s); ok {
		fmt.Println(okMark(), "daemon already running")
		return nil
	}

	a, err := openLocal(s, false)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	if err := a.Start(); err != nil {
		a.Close()
		return err
	}

	fmt.Printf("%s botica daemon started at %s\n", okMark(), a.Server.Addr())
	if a.WebServer != nil && a.WebServer.Port() > 0 {
		fmt.Printf("  HTTP API:  %s\n", a.WebServer.URL())
	}

	// Wait for a signal or a shutdown request from a client.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-a.ShutdownCh():
	}

	fmt.Println(dim("shutting down..."))
	return a.Stop()
}

func runDaemonStop(cmd *cobra.Command, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	client, ok := daemonClient(s)
	if !ok {
		fmt.Println(warnMark(), "daemon is not running")
		return nil
	}
	if err := client.Shutdown(); err != nil {
		return err
	}
	fmt.Println(okMark(), "daemon stopped")
	return nil
}
