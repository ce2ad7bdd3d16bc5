package matcher

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/corey/botica/internal/domain/catalog"
	"github.com/corey/botica/internal/domain/lexicon"
	"github.com/corey/botica/internal/domain/normalize"
	"github.com/corey/botica/internal/ports"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// naiveMatcher is a strings.Contains PatternMatcher so the domain tests do
// not depend on the automaton adapter.
type naiveMatcher struct{ patterns []string }

func (m *naiveMatcher) Build(p []string) { m.patterns = p }

func (m *naiveMatcher) MatchIndexes(content string) []int {
	var out []int
	for i, p := range m.patterns {
		if p != "" && strings.Contains(content, p) {
			out = append(out, i)
		}
	}
	return out
}

func newNaive() ports.PatternMatcher { return &naiveMatcher{} }

func product(code, name, cat string, price int64) ports.Product {
	return ports.Product{Code: code, Name: name, Category: cat, Price: decimal.NewFromInt(price)}
}

func scenarioCatalog() *catalog.Catalog {
	return catalog.New("test", []ports.Product{
		product("1", "Ginkgo Biloba 60 cap", "circulacion", 120),
		product("2", "Shampoo Manzanilla", "belleza", 80),
	})
}

func wideCatalog() *catalog.Catalog {
	return catalog.New("test", []ports.Product{
		product("10", "Té de Manzanilla", "digestión", 45),
		product("11", "cúrcuma con pimienta", "Articulaciones", 150),
		product("12", "Valeriana Forte", "sueño", 99),
		product("13", "Omega 3", "colesterol", 210),
		product("14", "Homegate Gel", "accesorios", 30),
		product("15", "Ginkgo Biloba 60 cap", "circulación", 120),
		product("15", "Ginkgo Biloba 60 cap", "circulación", 120),
		product("16", "Castaño de Indias", "Circulación", 135),
		product("17", "Jabón de Manzanilla", "Higiene Personal", 25),
	})
}

func testLexicon(t *testing.T) *lexicon.Lexicon {
	t.Helper()
	lex, err := lexicon.New(
		[]lexicon.Trigger{
			{Word: "várices", Category: "circulación"},
			{Word: "insomnio", Category: "sueño"},
			{Word: "dormir", Category: "sueño"},
			{Word: "tos", Category: "respiratorio"},
			{Word: "colesterol", Category: "colesterol"},
		},
		[]string{"cúrcuma", "ginkgo", "manzanilla", "valeriana", "omega"},
		[]string{"quiero", "para", "algo", "necesito", "con", "las", "los"},
		[]string{"belleza"},
	)
	require.NoError(t, err)
	return lex
}

func names(ps []ports.Product) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name
	}
	return out
}

// =============================================================================
// Scenarios: fixed catalogs with known expected output
// =============================================================================

func TestMatch_ExcludedCategoryYieldsEmpty(t *testing.T) {
	m := NewMatcher(scenarioCatalog(), ports.MatchOptions{Exclusions: []string{"belleza"}})
	got := m.Match([]string{"manzanilla"})
	assert.Empty(t, got)
}

func TestMatch_SingleKeyword(t *testing.T) {
	m := NewMatcher(scenarioCatalog(), ports.MatchOptions{})
	got := m.Match([]string{"ginkgo"})
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].Code)
}

func TestFind_ClassifierUnavailableFallsBack(t *testing.T) {
	cat := catalog.New("test", []ports.Product{
		product("1", "Cúrcuma 500 mg", "articulaciones", 150),
		product("2", "Ginkgo Biloba", "circulacion", 120),
	})
	failing := ports.ClassifyFunc(func(context.Context, string) (string, error) {
		return "", ports.ErrClassifierUnavailable
	})
	f := NewCatalogFinder(cat, NewExtractor(testLexicon(t), newNaive, false), ports.MatchOptions{},
		WithClassifier(failing, time.Second))

	res, err := f.FindProducts(context.Background(), "quiero curcuma")
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.ErrorIs(t, res.ClassifyErr, ports.ErrClassifierUnavailable)
	assert.Equal(t, []string{"curcuma"}, res.Keywords.Terms)
	assert.Equal(t, "fallback", res.Keywords.Source())
	assert.Equal(t, []string{"Cúrcuma 500 mg"}, names(res.Products))
}

// =============================================================================
// Properties: hold for any catalog and keyword set
// =============================================================================

func TestMatch_EveryContainingRowAppears(t *testing.T) {
	cat := wideCatalog()
	m := NewMatcher(cat, ports.MatchOptions{Exclusions: []string{"accesorios"}})
	for _, kw := range []string{"manzanilla", "circulacion", "biloba", "a", "ome"} {
		got := m.Match([]string{kw})
		codes := make(map[string]bool)
		for _, p := range got {
			codes[p.Code] = true
		}
		for i := 0; i < cat.Len(); i++ {
			contains := strings.Contains(cat.NormName(i), kw) || strings.Contains(cat.NormCategory(i), kw)
			if contains && cat.NormCategory(i) != "accesorios" {
				assert.True(t, codes[cat.At(i).Code], "keyword %q should select %q", kw, cat.At(i).Name)
			}
		}
	}
}

func TestMatch_Idempotent(t *testing.T) {
	m := NewMatcher(wideCatalog(), ports.MatchOptions{})
	kw := []string{"manzanilla", "circulacion", "omega"}
	assert.Equal(t, m.Match(kw), m.Match(kw))
}

func TestMatch_AccentInsensitive(t *testing.T) {
	m := NewMatcher(wideCatalog(), ports.MatchOptions{})
	assert.Equal(t, m.Match([]string{"curcuma"}), m.Match([]string{"cúrcuma"}))
	assert.Equal(t, m.Match([]string{"sueno"}), m.Match([]string{"SUEÑO"}))
	assert.NotEmpty(t, m.Match([]string{"curcuma"}))
}

func TestMatch_ExclusionNormalized(t *testing.T) {
	m := NewMatcher(wideCatalog(), ports.MatchOptions{Exclusions: []string{"HIGIENE personal"}})
	for _, p := range m.Match([]string{"manzanilla"}) {
		assert.NotEqual(t, "higiene personal", normalize.Text(p.Category))
	}
	assert.Equal(t, []string{"Té de Manzanilla"}, names(m.Match([]string{"manzanilla"})))
}

func TestMatch_EmptyKeywordsNeverMatchAll(t *testing.T) {
	m := NewMatcher(wideCatalog(), ports.MatchOptions{})
	assert.Empty(t, m.Match(nil))
	assert.Empty(t, m.Match([]string{}))
	assert.Empty(t, m.Match([]string{"", "   "}))
}

func TestMatch_SortedCaseInsensitive(t *testing.T) {
	m := NewMatcher(wideCatalog(), ports.MatchOptions{})
	got := m.Match([]string{"a", "e", "o"})
	require.NotEmpty(t, got)
	keys := make([]string, len(got))
	for i, p := range got {
		keys[i] = normalize.Text(p.Name)
	}
	assert.True(t, sort.StringsAreSorted(keys), "%v", keys)
}

func TestMatch_DeduplicatesExactRows(t *testing.T) {
	m := NewMatcher(wideCatalog(), ports.MatchOptions{})
	got := m.Match([]string{"ginkgo", "biloba", "circulacion"})
	assert.Equal(t, []string{"Castaño de Indias", "Ginkgo Biloba 60 cap"}, names(got))
}

func TestMatch_CategoryMatch(t *testing.T) {
	m := NewMatcher(wideCatalog(), ports.MatchOptions{})
	got := m.Match([]string{"circulacion"})
	assert.Equal(t, []string{"Castaño de Indias", "Ginkgo Biloba 60 cap"}, names(got))
}

// =============================================================================
// Match policy: substring (default) versus whole word
// =============================================================================

func TestMatch_SubstringAllowsInnerHits(t *testing.T) {
	m := NewMatcher(wideCatalog(), ports.MatchOptions{Policy: ports.PolicySubstring})
	assert.Equal(t, []string{"Homegate Gel", "Omega 3"}, names(m.Match([]string{"omega"})))
}

func TestMatch_WordPolicyRequiresBoundaries(t *testing.T) {
	m := NewMatcher(wideCatalog(), ports.MatchOptions{Policy: ports.PolicyWord})
	assert.Equal(t, []string{"Omega 3"}, names(m.Match([]string{"omega"})))
	assert.Equal(t, []string{"Ginkgo Biloba 60 cap"}, names(m.Match([]string{"biloba 60"})))
	assert.Empty(t, m.Match([]string{"bilob"}))
}

func TestMatch_WordPolicyTreatsUnicodeLettersAsWord(t *testing.T) {
	cat := catalog.New("test", []ports.Product{
		product("20", "Grøn Te", "infusiones", 40),
		product("21", "Straße Tonico", "energia", 55),
	})
	m := NewMatcher(cat, ports.MatchOptions{Policy: ports.PolicyWord})
	assert.Empty(t, m.Match([]string{"gr"}))
	assert.Empty(t, m.Match([]string{"stra"}))
	assert.Equal(t, []string{"Grøn Te"}, names(m.Match([]string{"grøn"})))
	assert.Equal(t, []string{"Straße Tonico"}, names(m.Match([]string{"tonico"})))

	// same boundaries as trigger confirmation
	assert.False(t, containsWord("grøn te", "gr"))
	assert.True(t, containsWord("grøn te", "te"))
}

func TestMatch_UnknownPolicyDefaultsToSubstring(t *testing.T) {
	m := NewMatcher(wideCatalog(), ports.MatchOptions{Policy: "fuzzy"})
	assert.Equal(t, ports.PolicySubstring, m.Policy())
}

// =============================================================================
// Keyword derivation: triggers, vocabulary, response items, fallback
// =============================================================================

func TestExtract_TriggerFirstMatchWins(t *testing.T) {
	ex := NewExtractor(testLexicon(t), newNaive, false)
	kw := ex.Extract("no puedo dormir por el colesterol y las varices", "", nil)
	assert.Equal(t, []string{"circulacion"}, kw.Terms)
	assert.Equal(t, "trigger", kw.Source())
}

func TestExtract_AllTriggers(t *testing.T) {
	ex := NewExtractor(testLexicon(t), newNaive, true)
	kw := ex.Extract("no puedo dormir por el colesterol y las várices", "", nil)
	assert.Equal(t, []string{"circulacion", "sueno", "colesterol"}, kw.Terms)
}

func TestExtract_TriggerNeedsWholeWord(t *testing.T) {
	ex := NewExtractor(testLexicon(t), newNaive, false)
	kw := ex.Extract("productos naturales", "", nil)
	assert.NotContains(t, kw.Terms, "respiratorio")
	assert.Equal(t, "fallback", kw.Source())

	kw = ex.Extract("tengo tos seca", "", nil)
	assert.Equal(t, []string{"respiratorio"}, kw.Terms)
}

func TestExtract_VocabularyFromResponse(t *testing.T) {
	ex := NewExtractor(testLexicon(t), newNaive, false)
	resp := "Te recomiendo un té de Manzanilla y cápsulas de Cúrcuma para la inflamación."
	kw := ex.Extract("me duele el estomago", resp, nil)
	assert.Contains(t, kw.Terms, "manzanilla")
	assert.Contains(t, kw.Terms, "curcuma")
	assert.Equal(t, SourceVocabulary, kw.Sources[0])
}

func TestExtract_ResponseItemsAreLearned(t *testing.T) {
	ex := NewExtractor(testLexicon(t), newNaive, false)
	kw := ex.Extract("algo para el estomago", "manzanilla, diente de leon, boldo", nil)
	assert.Equal(t, []string{"manzanilla", "diente de leon", "boldo"}, kw.Terms)
	assert.Equal(t, []string{"diente de leon", "boldo"}, kw.Learned)
	assert.Equal(t, "vocabulary+response", kw.Source())
}

func TestExtract_LongResponseItemsIgnored(t *testing.T) {
	ex := NewExtractor(testLexicon(t), newNaive, false)
	kw := ex.Extract("x", "Esta es una frase demasiado larga para ser keyword", nil)
	assert.Empty(t, kw.Learned)
}

func TestExtract_FallbackTokens(t *testing.T) {
	ex := NewExtractor(testLexicon(t), newNaive, false)
	kw := ex.Extract("Quiero CÚRCUMA con pimienta", "", nil)
	assert.Equal(t, []string{"curcuma", "pimienta"}, kw.Terms)
	assert.Equal(t, []Source{SourceFallback}, kw.Sources)
}

func TestExtract_NoKeywords(t *testing.T) {
	ex := NewExtractor(testLexicon(t), newNaive, false)
	kw := ex.Extract("quiero algo para", "", nil)
	assert.True(t, kw.Empty())
	assert.Equal(t, "none", kw.Source())
}

func TestExtract_SuppliedKeywords(t *testing.T) {
	ex := NewExtractor(testLexicon(t), newNaive, false)
	kw := ex.Extract("quiero algo", "", []string{"Omega"})
	assert.Equal(t, []string{"omega"}, kw.Terms)
	assert.Equal(t, "supplied", kw.Source())
}

func TestExtract_SetVocabulary(t *testing.T) {
	ex := NewExtractor(testLexicon(t), newNaive, false)
	assert.NotContains(t, ex.Extract("x", "toma boldo diario", nil).Terms, "boldo")

	ex.SetVocabulary(append(ex.Vocabulary(), "Boldo"))
	assert.Contains(t, ex.Vocabulary(), "boldo")
	assert.Contains(t, ex.Extract("x", "toma boldo diario", nil).Terms, "boldo")
}

func TestExtract_AddVocabularyConcurrent(t *testing.T) {
	ex := NewExtractor(testLexicon(t), newNaive, false)
	base := len(ex.Vocabulary())

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ex.AddVocabulary(fmt.Sprintf("hierba %d", i), fmt.Sprintf("raiz %d", i), "Boldo")
		}(i)
	}
	wg.Wait()

	vocab := ex.Vocabulary()
	assert.Len(t, vocab, base+65)
	for i := 0; i < 32; i++ {
		assert.Contains(t, vocab, fmt.Sprintf("hierba %d", i))
		assert.Contains(t, vocab, fmt.Sprintf("raiz %d", i))
	}
	assert.Contains(t, ex.Extract("x", "toma raiz 7 diario", nil).Terms, "raiz 7")
}

// =============================================================================
// Finder: classification orchestration and degradation
// =============================================================================

func TestFind_EmptyQuery(t *testing.T) {
	f := NewCatalogFinder(wideCatalog(), NewExtractor(testLexicon(t), newNaive, false), ports.MatchOptions{})
	_, err := f.FindProducts(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestFind_NoClassifier(t *testing.T) {
	f := NewCatalogFinder(wideCatalog(), NewExtractor(testLexicon(t), newNaive, false), ports.MatchOptions{})
	res, err := f.FindProducts(context.Background(), "no puedo dormir")
	require.NoError(t, err)
	assert.False(t, res.Degraded)
	assert.False(t, f.HasClassifier())
	assert.Equal(t, []string{"Valeriana Forte"}, names(res.Products))
}

func TestFind_UsesClassifierResponse(t *testing.T) {
	var calls atomic.Int32
	c := ports.ClassifyFunc(func(_ context.Context, text string) (string, error) {
		calls.Add(1)
		assert.Equal(t, "me duele la panza", text)
		return "manzanilla, omega", nil
	})
	f := NewCatalogFinder(wideCatalog(), NewExtractor(testLexicon(t), newNaive, false),
		ports.MatchOptions{Exclusions: []string{"higiene personal", "accesorios"}},
		WithClassifier(c, time.Second))

	res, err := f.FindProducts(context.Background(), "me duele la panza")
	require.NoError(t, err)
	assert.EqualValues(t, 1, calls.Load())
	assert.False(t, res.Degraded)
	assert.Equal(t, "manzanilla, omega", res.Response)
	assert.Equal(t, []string{"Omega 3", "Té de Manzanilla"}, names(res.Products))
}

func TestFind_ClassifierTimeout(t *testing.T) {
	slow := ports.ClassifyFunc(func(ctx context.Context, _ string) (string, error) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(5 * time.Second):
			return "omega", nil
		}
	})
	f := NewCatalogFinder(wideCatalog(), NewExtractor(testLexicon(t), newNaive, false), ports.MatchOptions{},
		WithClassifier(slow, 20*time.Millisecond))

	res, err := f.FindProducts(context.Background(), "quiero valeriana")
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.ErrorIs(t, res.ClassifyErr, context.DeadlineExceeded)
	assert.Equal(t, []string{"valeriana"}, res.Keywords.Terms)
	assert.Equal(t, []string{"Valeriana Forte"}, names(res.Products))
}

func TestFind_ClassifierEmptyResponseDegrades(t *testing.T) {
	empty := ports.ClassifyFunc(func(context.Context, string) (string, error) { return "  ", nil })
	f := NewCatalogFinder(wideCatalog(), NewExtractor(testLexicon(t), newNaive, false), ports.MatchOptions{},
		WithClassifier(empty, time.Second))

	res, err := f.FindProducts(context.Background(), "omega")
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.Equal(t, []string{"omega"}, res.Keywords.Terms)
}

func TestFind_ClassifierPanicDegrades(t *testing.T) {
	boom := ports.ClassifyFunc(func(context.Context, string) (string, error) { panic("boom") })
	f := NewCatalogFinder(wideCatalog(), NewExtractor(testLexicon(t), newNaive, false), ports.MatchOptions{},
		WithClassifier(boom, time.Second))

	res, err := f.FindProducts(context.Background(), "omega")
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.Error(t, res.ClassifyErr)
}

func TestFind_TriggerAndClassifierCombine(t *testing.T) {
	c := ports.ClassifyFunc(func(context.Context, string) (string, error) {
		return "Una infusión de valeriana antes de dormir.", nil
	})
	f := NewCatalogFinder(wideCatalog(), NewExtractor(testLexicon(t), newNaive, false), ports.MatchOptions{},
		WithClassifier(c, time.Second))

	res, err := f.FindProducts(context.Background(), "tengo insomnio")
	require.NoError(t, err)
	assert.Equal(t, []string{"sueno", "valeriana"}, res.Keywords.Terms)
	assert.Equal(t, "trigger+vocabulary", res.Keywords.Source())
	assert.Equal(t, []string{"Valeriana Forte"}, names(res.Products))
}

func TestFind_CallerCancellation(t *testing.T) {
	block := ports.ClassifyFunc(func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	f := NewCatalogFinder(wideCatalog(), NewExtractor(testLexicon(t), newNaive, false), ports.MatchOptions{},
		WithClassifier(block, 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := f.FindProducts(ctx, "omega")
	require.NoError(t, err)
	assert.True(t, errors.Is(res.ClassifyErr, context.Canceled))
	assert.Equal(t, []string{"Homegate Gel", "Omega 3"}, names(res.Products))
}
