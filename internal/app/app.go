// Package app wires together all adapters and domain logic.
// It provides lifecycle management for the botica daemon (create, start,
// stop) and the session operations the CLI and the daemon serve: Find,
// Describe, catalog lookups and history administration.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/corey/botica/internal/adapters/ahocorasick"
	"github.com/corey/botica/internal/adapters/bbolt"
	fsw "github.com/corey/botica/internal/adapters/fsnotify"
	"github.com/corey/botica/internal/adapters/keyfile"
	"github.com/corey/botica/internal/adapters/llm"
	"github.com/corey/botica/internal/adapters/memory"
	"github.com/corey/botica/internal/adapters/socket"
	"github.com/corey/botica/internal/adapters/spreadsheet"
	"github.com/corey/botica/internal/adapters/sqlite"
	"github.com/corey/botica/internal/adapters/web"
	"github.com/corey/botica/internal/config"
	"github.com/corey/botica/internal/domain/catalog"
	"github.com/corey/botica/internal/domain/lexicon"
	"github.com/corey/botica/internal/domain/matcher"
	"github.com/corey/botica/internal/ports"
	embedded "github.com/corey/botica/lexicon"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// LexiconVersion is the embedded keyword table directory.
const LexiconVersion = "v1"

// Describer writes a short product description. The llm classifier
// implements it.
type Describer interface {
	Describe(ctx context.Context, p ports.Product) (string, error)
}

// Config holds the settings and optional overrides for New. Nil overrides
// are built from Settings.
type Config struct {
	Settings *config.Config
	Log      logrus.FieldLogger

	Catalog    *catalog.Catalog
	Classifier ports.Classifier
	Describer  Describer
	History    ports.HistoryStore
	Keywords   ports.KeywordStore
}

// App is the top-level container wiring all components together.
type App struct {
	Settings *config.Config
	Paths    *Paths
	Log      logrus.FieldLogger

	Catalog   *catalog.Catalog
	Lexicon   *lexicon.Lexicon
	Finder    *matcher.Finder
	History   ports.HistoryStore
	Keywords  ports.KeywordStore
	Watcher   *fsw.Watcher // nil unless the keyword file is watched
	Server    *socket.Server
	WebServer *web.Server // nil when the HTTP API is disabled

	describer    Describer
	classifierID string
	metrics      *metrics
	closers      []func() error
	stopOnce     sync.Once
	started      time.Time
}

// New loads the catalog, opens the stores and builds the finder. It does not
// start any server; the CLI uses an App without Start for in-process lookups.
// Catalog problems are returned as *catalog.ConfigError.
func New(cfg Config) (*App, error) {
	if cfg.Settings == nil {
		cfg.Settings = config.Default()
	}
	s := cfg.Settings
	log := cfg.Log
	if log == nil {
		l, err := NewLogger(s.Log, os.Stderr)
		if err != nil {
			return nil, fmt.Errorf("logger: %w", err)
		}
		log = l
	}

	a := &App{
		Settings: s,
		Paths:    NewPaths(s.DataDir),
		Log:      log,
		metrics:  newMetrics(),
	}
	if err := a.Paths.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	lex, err := lexicon.Load(embedded.FS, LexiconVersion)
	if err != nil {
		return nil, fmt.Errorf("load lexicon: %w", err)
	}
	a.Lexicon = lex

	a.Catalog = cfg.Catalog
	if a.Catalog == nil {
		if a.Catalog, err = a.loadCatalog(); err != nil {
			return nil, err
		}
	}

	if err := a.openStores(cfg); err != nil {
		a.close()
		return nil, err
	}

	ex := matcher.NewExtractor(lex, func() ports.PatternMatcher { return ahocorasick.New(nil) }, s.Match.AllTriggers)
	var opts []matcher.FinderOption
	classifier, describer, err := a.openClassifier(cfg)
	if err != nil {
		a.close()
		return nil, err
	}
	if classifier != nil {
		opts = append(opts, matcher.WithClassifier(classifier, s.Classifier.Timeout))
	}
	a.describer = describer
	a.Finder = matcher.NewCatalogFinder(a.Catalog, ex, s.MatchOptions(lex.Exclusions), opts...)
	a.reloadKeywords()

	a.Server = socket.NewServer(&queries{app: a}, socket.SocketPath(s.DataDir))
	if s.HTTP.Enabled {
		a.WebServer = web.NewServer(&queries{app: a}, a.metrics.registry, a.Paths.PortFile)
	}

	log.WithFields(logrus.Fields{
		"catalog":    a.Catalog.Source(),
		"products":   a.Catalog.Len(),
		"classifier": a.classifierID,
		"policy":     a.Finder.Matcher().Policy(),
	}).Info("botica ready")
	return a, nil
}

func (a *App) loadCatalog() (*catalog.Catalog, error) {
	s := a.Settings
	if s.Catalog.Path == "" {
		return nil, &catalog.ConfigError{Source: "(unset)", Err: errors.New("no catalog path configured (set catalog.path or BOTICA_CATALOG)")}
	}
	schema, err := s.SchemaOptions()
	if err != nil {
		return nil, &catalog.ConfigError{Source: s.Catalog.Path, Err: err}
	}
	src, err := spreadsheet.Open(s.Catalog.Path, s.Catalog.Sheet)
	if err != nil {
		return nil, &catalog.ConfigError{Source: s.Catalog.Path, Err: err}
	}
	cat, report, err := catalog.Load(src, schema)
	if err != nil {
		return nil, err
	}

	fields := logrus.Fields{"catalog": cat.Source(), "rows": report.Rows, "loaded": report.Loaded}
	if len(report.ByPosition) > 0 {
		a.Log.WithFields(fields).WithField("fields", report.ByPosition).Warn("columns resolved by position")
	}
	if report.Skipped > 0 || report.ShortRows > 0 || report.BadPrices > 0 {
		a.Log.WithFields(fields).WithFields(logrus.Fields{
			"skipped":    report.Skipped,
			"short_rows": report.ShortRows,
			"bad_prices": report.BadPrices,
		}).Warn("catalog rows with problems")
	}
	return cat, nil
}

// openStores opens the history and keyword backends. Database backends
// pointing at the same file share one handle.
func (a *App) openStores(cfg Config) error {
	s := a.Settings
	bolts := make(map[string]*bbolt.Store)
	sqls := make(map[string]*sqlite.Store)

	openBolt := func(path string) (*bbolt.Store, error) {
		if st, ok := bolts[path]; ok {
			return st, nil
		}
		st, err := bbolt.NewStore(path)
		if err != nil {
			return nil, err
		}
		bolts[path] = st
		a.closers = append(a.closers, st.Close)
		return st, nil
	}
	openSQL := func(path string) (*sqlite.Store, error) {
		if st, ok := sqls[path]; ok {
			return st, nil
		}
		st, err := sqlite.NewStore(path)
		if err != nil {
			return nil, err
		}
		sqls[path] = st
		a.closers = append(a.closers, st.Close)
		return st, nil
	}

	a.History = cfg.History
	if a.History == nil {
		switch s.History.Backend {
		case config.BackendSQLite:
			st, err := openSQL(s.HistoryPath())
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			a.History = st
		case config.BackendMemory:
			a.History = memory.NewHistory()
		default:
			st, err := openBolt(s.HistoryPath())
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			a.History = st
		}
	}

	a.Keywords = cfg.Keywords
	if a.Keywords == nil {
		switch s.Keywords.Backend {
		case config.BackendBBolt:
			st, err := openBolt(s.KeywordsPath())
			if err != nil {
				return fmt.Errorf("open keywords: %w", err)
			}
			a.Keywords = st.Keywords()
		case config.BackendSQLite:
			st, err := openSQL(s.KeywordsPath())
			if err != nil {
				return fmt.Errorf("open keywords: %w", err)
			}
			a.Keywords = st.Keywords()
		case config.BackendMemory:
			a.Keywords = memory.NewKeywords()
		default:
			a.Keywords = keyfile.New(s.KeywordsPath())
		}
	}
	return nil
}

// openClassifier builds the classification service from settings unless an
// override is given. A provider without API keys is logged and treated as
// "none": lookups still work on triggers and query tokens.
func (a *App) openClassifier(cfg Config) (ports.Classifier, Describer, error) {
	if cfg.Classifier != nil {
		a.classifierID = "custom"
		d := cfg.Describer
		if d == nil {
			d, _ = cfg.Classifier.(Describer)
		}
		return cfg.Classifier, d, nil
	}
	a.classifierID = llm.ProviderNone

	completer, closeFn, err := llm.NewCompleter(context.Background(), a.Settings.LLMOptions(), a.Log)
	if errors.Is(err, ports.ErrClassifierUnavailable) {
		if a.Settings.Classifier.Provider != llm.ProviderNone {
			a.Log.WithField("provider", a.Settings.Classifier.Provider).Warn("classifier has no API key, running without it")
		}
		return nil, cfg.Describer, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("classifier: %w", err)
	}
	if closeFn != nil {
		a.closers = append(a.closers, closeFn)
	}
	a.classifierID = a.Settings.Classifier.Provider
	cls := llm.NewClassifier(completer)
	return cls, cls, nil
}

// Start launches the socket server, the HTTP API and the keyword file
// watcher. Only the socket server is required; the others log a warning.
func (a *App) Start() error {
	a.started = time.Now()
	if err := a.Server.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	if a.WebServer != nil {
		port := a.Settings.HTTP.Port
		if port == 0 {
			port = web.DefaultPort(a.Settings.DataDir)
		}
		if err := a.WebServer.Start(port); err != nil {
			a.Log.WithError(err).Warn("HTTP API unavailable")
		} else {
			a.Log.WithField("url", a.WebServer.URL()).Info("HTTP API listening")
		}
	}

	if err := a.watchKeywords(); err != nil {
		a.Log.WithError(err).Warn("keyword file watcher unavailable")
	}

	if err := os.WriteFile(a.Paths.PIDFile, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644); err != nil {
		a.Log.WithError(err).Warn("write pid file")
	}
	a.Log.WithField("socket", a.Server.Addr()).Info("daemon started")
	return nil
}

// Stop shuts down servers and the watcher and closes the stores.
// Safe to call more than once and on an App that was never started.
func (a *App) Stop() error {
	var err error
	a.stopOnce.Do(func() {
		if a.Watcher != nil {
			a.Watcher.Stop()
		}
		if !a.started.IsZero() {
			if a.WebServer != nil {
				a.WebServer.Stop()
			}
			a.Server.Stop()
			a.Paths.CleanEphemeral()
		}
		err = a.close()
	})
	return err
}

// Close releases the stores of an App used without Start.
func (a *App) Close() error { return a.Stop() }

func (a *App) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// ShutdownCh is closed when a client asks the daemon to stop.
func (a *App) ShutdownCh() <-chan struct{} { return a.Server.ShutdownCh() }

// Gatherer exposes the metrics registry.
func (a *App) Gatherer() prometheus.Gatherer { return a.metrics.registry }
