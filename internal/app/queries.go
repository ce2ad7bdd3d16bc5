package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/corey/botica/internal/adapters/socket"
	"github.com/corey/botica/internal/adapters/web"
	"github.com/corey/botica/internal/domain/matcher"
)

// queries adapts App to the socket and HTTP servers.
type queries struct {
	app *App
}

var _ socket.AppQueries = (*queries)(nil)

func (q *queries) Find(ctx context.Context, params socket.FindParams) (socket.FindResult, error) {
	res, err := q.app.Find(ctx, params.Query, params.Keywords...)
	if err != nil {
		if errors.Is(err, matcher.ErrEmptyQuery) {
			return socket.FindResult{}, fmt.Errorf("%w: %v", web.ErrBadRequest, err)
		}
		return socket.FindResult{}, err
	}
	return FindResult(res), nil
}

func (q *queries) Catalog(params socket.CatalogParams) socket.CatalogResult {
	products := q.app.Lookup(params.Name, params.Category, params.Code)
	return socket.CatalogResult{Products: products, Count: len(products)}
}

func (q *queries) History() (socket.HistoryResult, error) {
	recs, err := q.app.HistoryRecords()
	if err != nil {
		return socket.HistoryResult{}, err
	}
	return socket.HistoryResult{Records: recs, Count: len(recs)}, nil
}

func (q *queries) Truncate(keep int) (socket.TruncateResult, error) {
	removed, kept, err := q.app.TruncateHistory(keep)
	if err != nil {
		return socket.TruncateResult{}, err
	}
	return socket.TruncateResult{Removed: removed, Kept: kept}, nil
}

func (q *queries) Health() socket.HealthResult {
	return q.app.Health()
}

// Health reports what the app is serving.
func (a *App) Health() socket.HealthResult {
	return socket.HealthResult{
		Status:     "ok",
		Catalog:    a.Catalog.Source(),
		Products:   a.Catalog.Len(),
		Vocabulary: len(a.Finder.Extractor().Vocabulary()),
		Classifier: a.classifierID,
		Policy:     string(a.Finder.Matcher().Policy()),
	}
}

// FindResult converts a lookup result to its wire form.
func FindResult(res matcher.Result) socket.FindResult {
	return socket.FindResult{
		Query:    res.Query,
		Keywords: res.Keywords.Terms,
		Source:   res.Keywords.Source(),
		Degraded: res.Degraded,
		Products: res.Products,
		Count:    len(res.Products),
	}
}
