// Package matcher maps a free-text need to catalog rows. It derives candidate
// keywords from the query (static trigger table), from an optional classifier
// response (vocabulary scan and list items) or, failing both, from the query's
// own tokens, then selects matching rows with de-duplication, category
// exclusion and a stable name order.
//
// Classification failures never escape: the finder records them on the
// result and continues on the fallback path.
package matcher

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/corey/botica/internal/domain/catalog"
	"github.com/corey/botica/internal/ports"
)

// ErrEmptyQuery is returned for blank queries. It is an input error, not a
// match outcome.
var ErrEmptyQuery = errors.New("empty query")

// Result is the outcome of one FindProducts call. An empty Products slice
// with no error means "no relevant product".
type Result struct {
	Query    string
	Keywords Keywords
	Products []ports.Product

	// Degraded is set when a classifier was configured but failed or timed
	// out; ClassifyErr holds the cause. Response is the raw classifier text.
	Degraded    bool
	ClassifyErr error
	Response    string
}

// Finder runs the whole lookup: classify (optional), extract, match.
type Finder struct {
	extractor  *Extractor
	matcher    *Matcher
	classifier ports.Classifier
	timeout    time.Duration
}

// FinderOption configures a Finder.
type FinderOption func(*Finder)

// WithClassifier sets the classification service and the per-call timeout.
// A zero timeout leaves the caller's context as the only bound.
func WithClassifier(c ports.Classifier, timeout time.Duration) FinderOption {
	return func(f *Finder) {
		f.classifier = c
		f.timeout = timeout
	}
}

// NewFinder wires an extractor and a matcher.
func NewFinder(ex *Extractor, m *Matcher, opts ...FinderOption) *Finder {
	f := &Finder{extractor: ex, matcher: m}
	for _, o := range opts {
		o(f)
	}
	return f
}

// NewCatalogFinder is a convenience constructor over a catalog and lexicon
// extractor with the given options.
func NewCatalogFinder(cat *catalog.Catalog, ex *Extractor, mo ports.MatchOptions, opts ...FinderOption) *Finder {
	return NewFinder(ex, NewMatcher(cat, mo), opts...)
}

// Extractor returns the keyword extractor.
func (f *Finder) Extractor() *Extractor { return f.extractor }

// Matcher returns the row matcher.
func (f *Finder) Matcher() *Matcher { return f.matcher }

// HasClassifier reports whether a classification service is configured.
func (f *Finder) HasClassifier() bool { return f.classifier != nil }

// FindProducts maps query to an ordered list of products. supplied keywords
// (e.g. from an upstream regex scan) are merged with the derived ones.
func (f *Finder) FindProducts(ctx context.Context, query string, supplied ...string) (Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Result{}, ErrEmptyQuery
	}

	res := Result{Query: query}
	if f.classifier != nil {
		res.Response, res.ClassifyErr = f.classify(ctx, query)
		if res.ClassifyErr != nil {
			res.Degraded = true
			res.Response = ""
		}
	}

	res.Keywords = f.extractor.Extract(query, res.Response, supplied)
	res.Products = f.matcher.Match(res.Keywords.Terms)
	return res, nil
}

// Match selects rows for an already derived keyword set.
func (f *Finder) Match(keywords []string) []ports.Product {
	return f.matcher.Match(keywords)
}

func (f *Finder) classify(ctx context.Context, query string) (string, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	type reply struct {
		text string
		err  error
	}
	ch := make(chan reply, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- reply{err: errors.New("classifier panicked")}
			}
		}()
		text, err := f.classifier.Classify(ctx, query)
		ch <- reply{text: text, err: err}
	}()

	select {
	case r := <-ch:
		if r.err == nil && strings.TrimSpace(r.text) == "" {
			r.err = errors.New("classifier returned an empty response")
		}
		return r.text, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
