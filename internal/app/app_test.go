package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/corey/botica/internal/adapters/memory"
	"github.com/corey/botica/internal/adapters/socket"
	"github.com/corey/botica/internal/adapters/web"
	"github.com/corey/botica/internal/config"
	"github.com/corey/botica/internal/domain/catalog"
	"github.com/corey/botica/internal/domain/matcher"
	"github.com/corey/botica/internal/ports"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog() *catalog.Catalog {
	return catalog.New("test", []ports.Product{
		{Code: "1", Name: "Ginkgo Biloba 60 cap", Category: "Circulación", Price: decimal.NewFromInt(120)},
		{Code: "2", Name: "Valeriana Gotas", Category: "Sueño", Price: decimal.NewFromInt(95)},
		{Code: "3", Name: "Té de Manzanilla", Category: "Digestión", Price: decimal.NewFromInt(35)},
		{Code: "4", Name: "Shampoo de Manzanilla", Category: "Belleza", Price: decimal.NewFromInt(80)},
		{Code: "5", Name: "Té de Tila", Category: "Sueño", Price: decimal.RequireFromString("42.5")},
	})
}

type stubDescriber struct {
	text string
	err  error
}

func (d stubDescriber) Describe(context.Context, ports.Product) (string, error) { return d.text, d.err }

type harness struct {
	app      *App
	hook     *test.Hook
	history  *memory.History
	keywords *memory.Keywords
}

func newHarness(t *testing.T, classifier ports.Classifier, describer Describer) *harness {
	t.Helper()
	s := config.Default()
	s.DataDir = filepath.Join(t.TempDir(), ".botica")
	s.HTTP.Enabled = false
	s.Classifier.Timeout = 200 * time.Millisecond

	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	h := &harness{hook: hook, history: memory.NewHistory(), keywords: memory.NewKeywords()}

	a, err := New(Config{
		Settings:   s,
		Log:        log,
		Catalog:    testCatalog(),
		Classifier: classifier,
		Describer:  describer,
		History:    h.history,
		Keywords:   h.keywords,
	})
	require.NoError(t, err)
	t.Cleanup(func() { a.Stop() })
	h.app = a
	return h
}

func codes(ps []ports.Product) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Code
	}
	return out
}

// =============================================================================
// Find: keyword source, exclusion, history and metrics
// =============================================================================

func TestFind_TriggerWithoutClassifier(t *testing.T) {
	h := newHarness(t, nil, nil)

	res, err := h.app.Find(context.Background(), "  tengo várices  ")
	require.NoError(t, err)
	assert.Equal(t, "tengo várices", res.Query)
	assert.Equal(t, []string{"circulacion"}, res.Keywords.Terms)
	assert.Equal(t, []string{"1"}, codes(res.Products))
	assert.False(t, res.Degraded)

	recs, err := h.app.HistoryRecords()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "tengo várices", recs[0].Query)
	assert.Equal(t, "trigger", recs[0].Source)
	assert.Equal(t, 1, recs[0].Matches)
	assert.NotEmpty(t, recs[0].ID)

	assert.Equal(t, 1.0, testutil.ToFloat64(h.app.metrics.finds.WithLabelValues("trigger", outcomeMatch)))
}

func TestFind_FallbackTokens(t *testing.T) {
	h := newHarness(t, nil, nil)

	res, err := h.app.Find(context.Background(), "quiero valeriana")
	require.NoError(t, err)
	assert.Equal(t, "fallback", res.Keywords.Source())
	assert.Equal(t, []string{"2"}, codes(res.Products))
}

func TestFind_NoMatchIsNotAnError(t *testing.T) {
	h := newHarness(t, nil, nil)

	res, err := h.app.Find(context.Background(), "quiero zapatos")
	require.NoError(t, err)
	assert.Empty(t, res.Products)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.app.metrics.finds.WithLabelValues("fallback", outcomeEmpty)))
}

func TestFind_EmptyQuery(t *testing.T) {
	h := newHarness(t, nil, nil)

	_, err := h.app.Find(context.Background(), "   ")
	assert.ErrorIs(t, err, matcher.ErrEmptyQuery)

	recs, _ := h.app.HistoryRecords()
	assert.Empty(t, recs, "blank queries are not logged")
}

func TestFind_ClassifierResponseLearnsKeywords(t *testing.T) {
	cls := ports.ClassifyFunc(func(ctx context.Context, text string) (string, error) {
		return "manzanilla, melisa", nil
	})
	h := newHarness(t, cls, nil)

	res, err := h.app.Find(context.Background(), "algo natural para relajarme")
	require.NoError(t, err)
	// Shampoo de Manzanilla is in an excluded category.
	assert.Equal(t, []string{"3"}, codes(res.Products))
	assert.Equal(t, []string{"manzanilla", "melisa"}, res.Keywords.Terms)

	stored, err := h.keywords.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"melisa"}, stored)
	assert.Contains(t, h.app.Finder.Extractor().Vocabulary(), "melisa")
	assert.Equal(t, 1.0, testutil.ToFloat64(h.app.metrics.learned))
}

func TestFind_LearningDisabled(t *testing.T) {
	cls := ports.ClassifyFunc(func(ctx context.Context, text string) (string, error) {
		return "melisa", nil
	})
	h := newHarness(t, cls, nil)
	h.app.Settings.Keywords.Learn = false

	_, err := h.app.Find(context.Background(), "algo natural")
	require.NoError(t, err)
	stored, _ := h.keywords.Load()
	assert.Empty(t, stored)
}

func TestFind_ConcurrentLearningKeepsEveryTerm(t *testing.T) {
	var n atomic.Int32
	cls := ports.ClassifyFunc(func(ctx context.Context, text string) (string, error) {
		i := n.Add(1)
		return fmt.Sprintf("hierba %d, raiz %d", i, i), nil
	})
	h := newHarness(t, cls, nil)

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := h.app.Find(context.Background(), fmt.Sprintf("consulta natural %d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	stored, err := h.keywords.Load()
	require.NoError(t, err)
	assert.Len(t, stored, 128)
	vocab := h.app.Finder.Extractor().Vocabulary()
	for _, kw := range stored {
		assert.Contains(t, vocab, kw)
	}
}

func TestFind_ClassifierFailureDegrades(t *testing.T) {
	cls := ports.ClassifyFunc(func(ctx context.Context, text string) (string, error) {
		return "", errors.New("503 from provider")
	})
	h := newHarness(t, cls, nil)

	res, err := h.app.Find(context.Background(), "no puedo dormir")
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.Equal(t, []string{"5", "2"}, codes(res.Products))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.app.metrics.classifierFailures))

	var warned bool
	for _, e := range h.hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Message == "classifier failed, using query tokens" {
			warned = true
			assert.Equal(t, "no puedo dormir", e.Data["query"])
		}
	}
	assert.True(t, warned)
}

func TestFind_ClassifierTimeout(t *testing.T) {
	cls := ports.ClassifyFunc(func(ctx context.Context, text string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	h := newHarness(t, cls, nil)

	start := time.Now()
	res, err := h.app.Find(context.Background(), "quiero valeriana")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.True(t, res.Degraded)
	assert.ErrorIs(t, res.ClassifyErr, context.DeadlineExceeded)
	assert.Equal(t, []string{"2"}, codes(res.Products))
}

type failingHistory struct{ memory.History }

func (*failingHistory) Append(ports.HistoryRecord) error { return errors.New("disk full") }

func TestFind_HistoryFailureIsLogged(t *testing.T) {
	s := config.Default()
	s.DataDir = t.TempDir()
	s.HTTP.Enabled = false
	log, hook := test.NewNullLogger()

	a, err := New(Config{Settings: s, Log: log, Catalog: testCatalog(),
		History: &failingHistory{}, Keywords: memory.NewKeywords()})
	require.NoError(t, err)
	defer a.Stop()

	res, err := a.Find(context.Background(), "tengo varices")
	require.NoError(t, err)
	assert.Len(t, res.Products, 1)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

// =============================================================================
// Describe
// =============================================================================

func TestDescribe(t *testing.T) {
	h := newHarness(t, nil, stubDescriber{text: "Gotas para dormir mejor."})
	text, err := h.app.Describe(context.Background(), "2")
	require.NoError(t, err)
	assert.Equal(t, "Gotas para dormir mejor.", text)

	_, err = h.app.Describe(context.Background(), "99")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestDescribe_FallsBackToTemplate(t *testing.T) {
	h := newHarness(t, nil, stubDescriber{err: errors.New("quota")})
	text, err := h.app.Describe(context.Background(), "5")
	require.NoError(t, err)
	assert.Equal(t, "Té de Tila, de la línea Sueño. Precio: $42.50.", text)

	h = newHarness(t, nil, nil)
	text, err = h.app.Describe(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, TemplateDescription(testCatalog().At(0)), text)
}

// =============================================================================
// Catalog lookups and history administration
// =============================================================================

func TestLookup(t *testing.T) {
	h := newHarness(t, nil, nil)
	assert.Equal(t, []string{"4", "3"}, codes(h.app.Lookup("manzanilla", "", "")))
	assert.Equal(t, []string{"3"}, codes(h.app.Lookup("manzanilla", "digest", "")))
	assert.Equal(t, []string{"5", "2"}, codes(h.app.Lookup("", "sueño", "")))
	assert.Equal(t, []string{"2"}, codes(h.app.Lookup("", "", "2")))
	assert.Nil(t, h.app.Lookup("", "", "404"))
	assert.Len(t, h.app.Lookup("", "", ""), 5)
	assert.Len(t, h.app.Categories(), 4)
}

func TestTruncateHistory(t *testing.T) {
	h := newHarness(t, nil, nil)
	for _, q := range []string{"tos", "gripe", "insomnio", "varices"} {
		_, err := h.app.Find(context.Background(), q)
		require.NoError(t, err)
	}

	removed, kept, err := h.app.TruncateHistory(1)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)
	assert.Equal(t, 1, kept)

	recs, _ := h.app.HistoryRecords()
	require.Len(t, recs, 1)
	assert.Equal(t, "varices", recs[0].Query)

	// Negative keep uses the configured default (5): nothing to remove.
	removed, _, err = h.app.TruncateHistory(-1)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

// =============================================================================
// Socket/HTTP adapter surface
// =============================================================================

func TestQueries(t *testing.T) {
	h := newHarness(t, nil, nil)
	q := &queries{app: h.app}

	_, err := q.Find(context.Background(), socketFind(""))
	assert.ErrorIs(t, err, web.ErrBadRequest)

	res, err := q.Find(context.Background(), socketFind("tengo varices", "valeriana"))
	require.NoError(t, err)
	assert.Equal(t, "trigger+supplied", res.Source)
	assert.Equal(t, 2, res.Count)

	hist, err := q.History()
	require.NoError(t, err)
	assert.Equal(t, 1, hist.Count)

	health := q.Health()
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 5, health.Products)
	assert.Equal(t, "none", health.Classifier)
	assert.Equal(t, "substring", health.Policy)
	assert.Positive(t, health.Vocabulary)

	cat := q.Catalog(socketCatalog("", "circ"))
	assert.Equal(t, 1, cat.Count)
}

// =============================================================================
// Keyword file reload
// =============================================================================

func TestKeywordFile_ReloadOnChange(t *testing.T) {
	s := config.Default()
	s.DataDir = t.TempDir()
	s.HTTP.Enabled = false
	log, _ := test.NewNullLogger()

	path := s.KeywordsPath()
	require.NoError(t, os.WriteFile(path, []byte("melisa\n"), 0644))

	a, err := New(Config{Settings: s, Log: log, Catalog: testCatalog(), History: memory.NewHistory()})
	require.NoError(t, err)
	defer a.Stop()
	assert.Contains(t, a.Finder.Extractor().Vocabulary(), "melisa", "loaded at startup")

	require.NoError(t, a.watchKeywords())
	require.NotNil(t, a.Watcher)
	require.NoError(t, os.WriteFile(path, []byte("melisa\ntoronjil\n"), 0644))

	assert.Eventually(t, func() bool {
		for _, v := range a.Finder.Extractor().Vocabulary() {
			if v == "toronjil" {
				return true
			}
		}
		return false
	}, 3*time.Second, 20*time.Millisecond)
}

func TestNew_MissingCatalogIsConfigError(t *testing.T) {
	s := config.Default()
	s.DataDir = t.TempDir()
	log, _ := test.NewNullLogger()

	_, err := New(Config{Settings: s, Log: log})
	assert.True(t, catalog.IsConfigError(err))

	s.Catalog.Path = filepath.Join(t.TempDir(), "nope.xlsx")
	_, err = New(Config{Settings: s, Log: log})
	assert.True(t, catalog.IsConfigError(err))
}

func TestNew_LoadsCSVAndBBolt(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "productos.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(
		"Código,Nombre,Serie,Precio\n"+
			"1,Ginkgo Biloba,Circulación,120\n"+
			"2,Valeriana,Sueño,95\n"), 0644))

	s := config.Default()
	s.DataDir = filepath.Join(dir, ".botica")
	s.Catalog.Path = csvPath
	s.HTTP.Enabled = false
	s.Keywords.Backend = config.BackendBBolt
	log, _ := test.NewNullLogger()

	a, err := New(Config{Settings: s, Log: log})
	require.NoError(t, err)
	assert.Equal(t, 2, a.Catalog.Len())

	_, err = a.Find(context.Background(), "insomnio")
	require.NoError(t, err)
	require.NoError(t, a.Stop())

	// History survives a restart; keywords share the same bbolt file.
	a, err = New(Config{Settings: s, Log: log})
	require.NoError(t, err)
	defer a.Stop()
	recs, err := a.HistoryRecords()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "insomnio", recs[0].Query)
}

func socketFind(q string, kw ...string) socket.FindParams {
	return socket.FindParams{Query: q, Keywords: kw}
}

func socketCatalog(name, category string) socket.CatalogParams {
	return socket.CatalogParams{Name: name, Category: category}
}
