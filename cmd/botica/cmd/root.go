package cmd

import (
	"fmt"
	"os"

	"github.com/corey/botica/internal/adapters/memory"
	"github.com/corey/botica/internal/adapters/socket"
	"github.com/corey/botica/internal/app"
	"github.com/corey/botica/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "botica",
	Short:         "botica: product lookup for natural-health needs",
	Long:          "Maps a customer's need (\"tengo várices\", \"no puedo dormir\") to matching rows of the store catalog.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var flags struct {
	config   string
	envFile  string
	dataDir  string
	catalog  string
	policy   string
	logLevel string
	jsonOut  bool
}

// Execute runs the root command and prints the error, if any, to stderr.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		printError(err)
	}
	return err
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.config, "config", "c", "", "YAML config file (default "+config.DefaultFile+")")
	pf.StringVar(&flags.envFile, "env-file", "", "dotenv file (default .env)")
	pf.StringVar(&flags.dataDir, "data-dir", "", "data directory (default .botica)")
	pf.StringVar(&flags.catalog, "catalog", "", "catalog spreadsheet (.xlsx or .csv)")
	pf.StringVar(&flags.policy, "policy", "", "match policy: substring or word")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.BoolVar(&flags.jsonOut, "json", false, "print JSON instead of tables")

	rootCmd.AddCommand(findCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(describeCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(keywordsCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(configCmd)
}

// loadSettings layers command-line flags over the loaded configuration and
// validates the result.
func loadSettings() (*config.Config, error) {
	s, err := config.Load(flags.config, flags.envFile)
	if err != nil {
		return nil, &settingsError{err: err}
	}
	if flags.dataDir != "" {
		s.DataDir = flags.dataDir
	}
	if flags.catalog != "" {
		s.Catalog.Path = flags.catalog
	}
	if flags.policy != "" {
		s.Match.Policy = flags.policy
	}
	if flags.logLevel != "" {
		s.Log.Level = flags.logLevel
	}
	if err := s.Validate(); err != nil {
		return nil, &settingsError{err: err}
	}
	return s, nil
}

// daemonClient returns a client when a daemon is serving this data directory.
func daemonClient(s *config.Config) (*socket.Client, bool) {
	c := socket.NewClient(socket.SocketPath(s.DataDir))
	return c, c.Ping()
}

// openLocal builds an in-process App. Read-only commands use memory stores
// so they never contend with a running daemon for the database lock.
func openLocal(s *config.Config, readOnly bool) (*app.App, error) {
	cfg := app.Config{Settings: s}
	if readOnly {
		cfg.History = memory.NewHistory()
		cfg.Keywords = memory.NewKeywords()
	}
	log, err := app.NewLogger(s.Log, os.Stderr)
	if err != nil {
		return nil, &settingsError{err: err}
	}
	cfg.Log = log

	a, err := app.New(cfg)
	if err != nil {
		if isDBLockError(err) {
			return nil, fmt.Errorf("%w\n%s", err, diagnoseDBLock(s.DataDir))
		}
		return nil, err
	}
	return a, nil
}
