package app

import (
	"os"
	"path/filepath"
)

// Paths holds the resolved filesystem layout of the botica data directory.
// Store files are resolved by config (their backends decide the names);
// Paths covers the daemon's own files.
type Paths struct {
	Root string // .botica/

	LogDir    string // .botica/log/
	DaemonLog string // .botica/log/daemon.log

	RunDir   string // .botica/run/
	PIDFile  string // .botica/run/daemon.pid
	PortFile string // .botica/run/http.port
}

// NewPaths constructs all paths from the data directory.
func NewPaths(dataDir string) *Paths {
	return &Paths{
		Root: dataDir,

		LogDir:    filepath.Join(dataDir, "log"),
		DaemonLog: filepath.Join(dataDir, "log", "daemon.log"),

		RunDir:   filepath.Join(dataDir, "run"),
		PIDFile:  filepath.Join(dataDir, "run", "daemon.pid"),
		PortFile: filepath.Join(dataDir, "run", "http.port"),
	}
}

// EnsureDirs creates the data directory and its subdirectories. Idempotent.
func (p *Paths) EnsureDirs() error {
	for _, d := range []string{p.Root, p.LogDir, p.RunDir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return err
		}
	}
	return nil
}

// CleanEphemeral removes run-time files left by a daemon that did not exit
// cleanly. Missing files are not an error.
func (p *Paths) CleanEphemeral() {
	os.Remove(p.PIDFile)
	os.Remove(p.PortFile)
}
