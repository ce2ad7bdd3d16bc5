package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/corey/botica/internal/ports"
)

const classifyPrompt = `Eres el asistente de una tienda naturista. El cliente describe una necesidad de salud o bienestar.
Responde SOLO con una lista separada por comas de 3 a 8 ingredientes, plantas o categorías de producto
que podrían ayudarle (por ejemplo: "valeriana, pasiflora, melatonina"). Sin explicaciones ni numeración.`

const describePrompt = `Eres el asistente de ventas de una tienda naturista. Escribe una descripción breve
(2 o 3 frases, en español, sin promesas médicas) del producto indicado, útil para recomendarlo a un cliente.`

// Classifier implements ports.Classifier over a Completer.
type Classifier struct {
	completer Completer
}

var _ ports.Classifier = (*Classifier)(nil)

// NewClassifier wraps a completer.
func NewClassifier(c Completer) *Classifier {
	return &Classifier{completer: c}
}

// Classify asks the model for candidate ingredients and categories for a
// free-text need. The reply is a comma-separated list or short prose.
func (c *Classifier) Classify(ctx context.Context, text string) (string, error) {
	return c.completer.Complete(ctx, classifyPrompt, strings.TrimSpace(text))
}

// Describe asks the model for a short sales description of a product.
func (c *Classifier) Describe(ctx context.Context, p ports.Product) (string, error) {
	user := fmt.Sprintf("Producto: %s\nCategoría: %s\nPrecio: $%s", p.Name, p.Category, p.Price.StringFixed(2))
	return c.completer.Complete(ctx, describePrompt, user)
}
