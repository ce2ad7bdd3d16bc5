package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/corey/botica/internal/domain/catalog"
	"github.com/corey/botica/internal/domain/matcher"
	"github.com/corey/botica/internal/ports"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrProductNotFound is returned by Describe for an unknown product code.
var ErrProductNotFound = errors.New("product not found")

// Find runs one lookup: classify (when configured), derive keywords, match
// rows. The query and its outcome are appended to the history; new terms
// from the classifier response go to the keyword store. Store failures are
// logged and never fail the lookup. The only error is matcher.ErrEmptyQuery.
func (a *App) Find(ctx context.Context, query string, supplied ...string) (matcher.Result, error) {
	start := time.Now()
	res, err := a.Finder.FindProducts(ctx, query, supplied...)
	a.metrics.findDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		a.metrics.finds.WithLabelValues(string(matcher.SourceNone), outcomeError).Inc()
		return res, err
	}

	source := res.Keywords.Source()
	log := a.Log.WithFields(logrus.Fields{
		"query":    res.Query,
		"keywords": res.Keywords.Terms,
		"source":   source,
	})
	if res.Degraded {
		a.metrics.classifierFailures.Inc()
		log.WithError(res.ClassifyErr).Warn("classifier failed, using query tokens")
	}

	outcome := outcomeMatch
	if len(res.Products) == 0 {
		outcome = outcomeEmpty
	}
	a.metrics.finds.WithLabelValues(source, outcome).Inc()
	log.WithField("matches", len(res.Products)).Debug("find")

	a.learn(res.Keywords.Learned)

	rec := ports.HistoryRecord{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Query:     res.Query,
		Keywords:  res.Keywords.Terms,
		Source:    source,
		Matches:   len(res.Products),
	}
	if err := a.History.Append(rec); err != nil {
		log.WithError(err).Error("history append")
	}
	return res, nil
}

// learn stores terms read from a classifier response and extends the live
// vocabulary with the ones that were new.
func (a *App) learn(terms []string) {
	if !a.Settings.Keywords.Learn || len(terms) == 0 {
		return
	}
	added, err := a.Keywords.Append(terms...)
	if err != nil {
		a.Log.WithError(err).WithField("keywords", terms).Error("keyword store append")
		return
	}
	if added == 0 {
		return
	}
	a.metrics.learned.Add(float64(added))
	a.Finder.Extractor().AddVocabulary(terms...)
	a.Log.WithField("keywords", terms).Debug("learned keywords")
}

// Describe returns a short description of the product with this code. It asks
// the classifier when one is configured and falls back to a template built
// from the catalog row.
func (a *App) Describe(ctx context.Context, code string) (string, error) {
	p, ok := a.Catalog.ByCode(code)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrProductNotFound, code)
	}
	if a.describer != nil {
		if a.Settings.Classifier.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, a.Settings.Classifier.Timeout)
			defer cancel()
		}
		text, err := a.describer.Describe(ctx, p)
		if err == nil && text != "" {
			return text, nil
		}
		a.Log.WithError(err).WithField("code", p.Code).Warn("describe failed, using template")
	}
	return TemplateDescription(p), nil
}

// TemplateDescription is the offline product description.
func TemplateDescription(p ports.Product) string {
	if p.Category == "" {
		return fmt.Sprintf("%s. Precio: $%s.", p.Name, p.Price.StringFixed(2))
	}
	return fmt.Sprintf("%s, de la línea %s. Precio: $%s.", p.Name, p.Category, p.Price.StringFixed(2))
}

// Lookup lists catalog rows by exact code, or by name and category
// substrings (both must match when both are set). No filter lists every row.
func (a *App) Lookup(name, category, code string) []ports.Product {
	if code != "" {
		if p, ok := a.Catalog.ByCode(code); ok {
			return []ports.Product{p}
		}
		return nil
	}
	switch {
	case name != "" && category != "":
		inCat := make(map[string]bool)
		for _, p := range a.Catalog.ByCategory(category, true) {
			inCat[p.Key()] = true
		}
		var out []ports.Product
		for _, p := range a.Catalog.ByName(name) {
			if inCat[p.Key()] {
				out = append(out, p)
			}
		}
		return out
	case name != "":
		return a.Catalog.ByName(name)
	case category != "":
		return a.Catalog.ByCategory(category, true)
	}
	all := a.Catalog.Products()
	catalog.SortByName(all)
	return all
}

// Categories lists the catalog's categories with product counts.
func (a *App) Categories() []catalog.CategoryCount { return a.Catalog.Categories() }

// HistoryRecords returns the query log, oldest first.
func (a *App) HistoryRecords() ([]ports.HistoryRecord, error) {
	recs, err := a.History.All()
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	return recs, nil
}

// TruncateHistory keeps the newest keep records. A negative keep uses the
// configured default.
func (a *App) TruncateHistory(keep int) (removed, kept int, err error) {
	if keep < 0 {
		keep = a.Settings.History.Keep
	}
	removed, err = a.History.TruncateKeepLast(keep)
	if err != nil {
		return 0, 0, fmt.Errorf("truncate history: %w", err)
	}
	recs, err := a.History.All()
	if err != nil {
		return removed, 0, fmt.Errorf("read history: %w", err)
	}
	a.Log.WithFields(logrus.Fields{"removed": removed, "kept": len(recs)}).Info("history truncated")
	return removed, len(recs), nil
}
