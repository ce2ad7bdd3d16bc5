package ports

import (
	"context"
	"errors"
)

// ErrClassifierUnavailable is returned when no classification service is configured.
var ErrClassifierUnavailable = errors.New("classifier unavailable")

// Classifier turns free text into free text: a recommendation paragraph or a
// comma-separated keyword list. Implementations must honor ctx cancellation
// and report every failure as an error value.
type Classifier interface {
	Classify(ctx context.Context, text string) (string, error)
}

// ClassifyFunc adapts a plain function to the Classifier interface.
type ClassifyFunc func(ctx context.Context, text string) (string, error)

// Classify calls f.
func (f ClassifyFunc) Classify(ctx context.Context, text string) (string, error) {
	return f(ctx, text)
}
