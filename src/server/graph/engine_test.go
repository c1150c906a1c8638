package graph

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graph-context/src/internal/types"
	"graph-context/src/server/cache"
	"graph-context/src/server/documents"
	"graph-context/src/server/extractor"
)

// fakeResolver is a call-counting LocationResolver keyed by position.
type fakeResolver struct {
	mu               sync.Mutex
	definitions      map[string][]types.Location
	typeDefinitions  map[string][]types.Location
	implementations  map[string][]types.Location
	hovers           map[string][]string
	methodCalls      map[string]int
	keyCalls         map[string]int
	blockUntilCancel bool
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		definitions:     make(map[string][]types.Location),
		typeDefinitions: make(map[string][]types.Location),
		implementations: make(map[string][]types.Location),
		hovers:          make(map[string][]string),
		methodCalls:     make(map[string]int),
		keyCalls:        make(map[string]int),
	}
}

func posKey(uri string, pos types.Position) string {
	return fmt.Sprintf("%s:%d:%d", uri, pos.Line, pos.Character)
}

func (f *fakeResolver) resolve(ctx context.Context, method, uri string, pos types.Position, table map[string][]types.Location) []types.Location {
	f.mu.Lock()
	f.methodCalls[method]++
	f.keyCalls[method+" "+posKey(uri, pos)]++
	block := f.blockUntilCancel
	locs := table[posKey(uri, pos)]
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil
	}
	return locs
}

func (f *fakeResolver) ResolveDefinitions(ctx context.Context, uri string, pos types.Position) []types.Location {
	return f.resolve(ctx, "definition", uri, pos, f.definitions)
}

func (f *fakeResolver) ResolveTypeDefinitions(ctx context.Context, uri string, pos types.Position) []types.Location {
	return f.resolve(ctx, "typeDefinition", uri, pos, f.typeDefinitions)
}

func (f *fakeResolver) ResolveImplementations(ctx context.Context, uri string, pos types.Position) []types.Location {
	return f.resolve(ctx, "implementation", uri, pos, f.implementations)
}

func (f *fakeResolver) ResolveHover(ctx context.Context, uri string, pos types.Position) []string {
	f.mu.Lock()
	f.methodCalls["hover"]++
	blocks := f.hovers[posKey(uri, pos)]
	block := f.blockUntilCancel
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil
	}
	return blocks
}

func (f *fakeResolver) calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.methodCalls[method]
}

func (f *fakeResolver) callsAt(method, uri string, pos types.Position) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.keyCalls[method+" "+posKey(uri, pos)]
}

type fixture struct {
	resolver *fakeResolver
	docs     *documents.Manager
	caches   *cache.Set
	engine   *Engine
}

func newFixture() *fixture {
	resolver := newFakeResolver()
	docs := documents.NewManager()
	caches := cache.NewSet(10, 10)
	return &fixture{
		resolver: resolver,
		docs:     docs,
		caches:   caches,
		engine:   NewEngine(resolver, extractor.New(), docs, caches, 5),
	}
}

const (
	uriA = "file:///a.go"
	uriB = "file:///b.go"
	uriC = "file:///c.go"
)

// widgetScenario wires: "Widget" referenced in a.go, defined in b.go whose
// struct body references "Gear", defined in c.go.
func (fx *fixture) widgetScenario() (widgetReq types.SymbolRequest, widgetLoc, gearLoc types.Location) {
	fx.docs.SetContent(uriB, "type Widget struct {\n\tgears Gear\n}\n")
	fx.docs.SetContent(uriC, "type Gear struct{ teeth int }\n")

	widgetLoc = types.Location{URI: uriB, Range: types.Range{
		Start: types.Position{Line: 0, Character: 0},
		End:   types.Position{Line: 2, Character: 1},
	}}
	gearLoc = types.Location{URI: uriC, Range: types.Range{
		Start: types.Position{Line: 0, Character: 0},
		End:   types.Position{Line: 0, Character: 29},
	}}

	widgetReq = types.SymbolRequest{
		SymbolName: "Widget",
		URI:        uriA,
		Position:   types.Position{Line: 0, Character: 5},
		NodeType:   types.KindTypeIdentifier,
		LanguageID: "go",
	}
	fx.resolver.definitions[posKey(uriA, widgetReq.Position)] = []types.Location{widgetLoc}
	// "Gear" sits at line 1, character 7 of the Widget snippet.
	fx.resolver.definitions[posKey(uriB, types.Position{Line: 1, Character: 7})] = []types.Location{gearLoc}
	return widgetReq, widgetLoc, gearLoc
}

func TestResolveTypeIdentifierExtractsSource(t *testing.T) {
	fx := newFixture()
	req, loc, _ := fx.widgetScenario()

	snippets := fx.engine.ResolveSymbols(context.Background(), []types.SymbolRequest{req}, 0)

	require.Len(t, snippets, 1)
	assert.Equal(t, types.DefinitionKey(loc), snippets[0].Key)
	assert.Equal(t, "type Widget struct {\n\tgears Gear\n}", snippets[0].Content)
	assert.Equal(t, "Widget", snippets[0].Symbol)
	assert.Equal(t, int32(0), snippets[0].StartLine)
	assert.Equal(t, int32(2), snippets[0].EndLine)
}

func TestSecondResolutionHitsCaches(t *testing.T) {
	fx := newFixture()
	req, _, _ := fx.widgetScenario()

	fx.engine.ResolveSymbols(context.Background(), []types.SymbolRequest{req}, 0)
	fx.engine.ResolveSymbols(context.Background(), []types.SymbolRequest{req}, 0)

	assert.Equal(t, 1, fx.resolver.callsAt("definition", uriA, req.Position),
		"an unchanged request must not issue a second provider call")
}

func TestCrossDocumentInvalidationForcesFreshCall(t *testing.T) {
	fx := newFixture()
	req, _, _ := fx.widgetScenario()

	// Independent request in another document pair, to verify it survives.
	otherReq := types.SymbolRequest{
		SymbolName: "Keeper",
		URI:        "file:///d.go",
		Position:   types.Position{Line: 2, Character: 0},
		NodeType:   types.KindTypeIdentifier,
		LanguageID: "go",
	}
	keeperLoc := types.Location{URI: "file:///e.go", Range: types.Range{
		Start: types.Position{Line: 0, Character: 0},
		End:   types.Position{Line: 0, Character: 24},
	}}
	fx.docs.SetContent("file:///e.go", "type Keeper struct{ x int }\n")
	fx.resolver.definitions[posKey(otherReq.URI, otherReq.Position)] = []types.Location{keeperLoc}

	fx.engine.ResolveSymbols(context.Background(), []types.SymbolRequest{req, otherReq}, 0)

	// The symbol is requested in a.go but its definition lives in b.go:
	// invalidating b.go must evict it even from a.go's bucket.
	fx.caches.InvalidateDocument(uriB)

	fx.engine.ResolveSymbols(context.Background(), []types.SymbolRequest{req, otherReq}, 0)

	assert.Equal(t, 2, fx.resolver.callsAt("definition", uriA, req.Position),
		"stale cached definition must not be served after its target changed")
	assert.Equal(t, 1, fx.resolver.callsAt("definition", otherReq.URI, otherReq.Position),
		"entries for untouched documents must remain cached")
}

func TestRecursiveExpansionLinksRelatedDefinitions(t *testing.T) {
	fx := newFixture()
	req, widgetLoc, gearLoc := fx.widgetScenario()

	snippets := fx.engine.ResolveSymbols(context.Background(), []types.SymbolRequest{req}, 2)

	keys := make(map[string]bool)
	for _, s := range snippets {
		keys[s.Key] = true
	}
	assert.True(t, keys[types.DefinitionKey(widgetLoc)])
	assert.True(t, keys[types.DefinitionKey(gearLoc)], "expansion must follow Gear out of Widget's snippet")

	_, ok := fx.caches.Definitions.Get(types.DefinitionKey(widgetLoc))
	require.True(t, ok)
	assert.Contains(t, fx.caches.Definitions.Related(types.DefinitionKey(widgetLoc)), types.DefinitionKey(gearLoc))
}

func TestRecursionBudgetIsRespected(t *testing.T) {
	fx := newFixture()
	req, _, _ := fx.widgetScenario()

	// "teeth" sits at line 0, character 18 of the Gear snippet. Nothing is
	// registered there, but with depth 1 it must not even be asked for.
	teethPos := types.Position{Line: 0, Character: 18}

	fx.engine.ResolveSymbols(context.Background(), []types.SymbolRequest{req}, 1)

	assert.Equal(t, 0, fx.resolver.callsAt("definition", uriC, teethPos))
	assert.Equal(t, 0, fx.resolver.callsAt("typeDefinition", uriC, teethPos))
	assert.Equal(t, 0, fx.resolver.callsAt("implementation", uriC, teethPos))
}

func TestDepthZeroNeverExpands(t *testing.T) {
	fx := newFixture()
	req, _, _ := fx.widgetScenario()

	fx.engine.ResolveSymbols(context.Background(), []types.SymbolRequest{req}, 0)

	gearPos := types.Position{Line: 1, Character: 7}
	assert.Equal(t, 0, fx.resolver.callsAt("definition", uriB, gearPos))
}

func TestGetterFallbackOrderForPropertyIdentifier(t *testing.T) {
	fx := newFixture()

	req := types.SymbolRequest{
		SymbolName: "render",
		URI:        uriA,
		Position:   types.Position{Line: 3, Character: 10},
		NodeType:   types.KindPropertyIdentifier,
		LanguageID: "go",
	}
	renderLoc := types.Location{URI: "file:///t.go", Range: types.Range{
		Start: types.Position{Line: 0, Character: 0},
		End:   types.Position{Line: 0, Character: 33},
	}}
	fx.docs.SetContent("file:///t.go", "func (w Widget) render() error {}\n")
	// getDefinitions is empty for this position; only typeDefinition knows.
	fx.resolver.typeDefinitions[posKey(uriA, req.Position)] = []types.Location{renderLoc}

	snippets := fx.engine.ResolveSymbols(context.Background(), []types.SymbolRequest{req}, 0)

	require.Len(t, snippets, 1)
	assert.Equal(t, types.DefinitionKey(renderLoc), snippets[0].Key)
	assert.Equal(t, 1, fx.resolver.calls("definition"), "definition tried first for property identifiers")
	assert.Equal(t, 1, fx.resolver.calls("typeDefinition"))
	assert.Equal(t, 0, fx.resolver.calls("implementation"), "search stops once content is found")
}

func TestHoverFallsBackToSourceOnBareDeclaration(t *testing.T) {
	fx := newFixture()

	req := types.SymbolRequest{
		SymbolName: "Foo",
		URI:        uriA,
		Position:   types.Position{Line: 5, Character: 2},
		NodeType:   types.KindIdentifier,
		LanguageID: "typescript",
	}
	fooLoc := types.Location{URI: "file:///f.ts", Range: types.Range{
		Start: types.Position{Line: 0, Character: 0},
		End:   types.Position{Line: 0, Character: 28},
	}}
	fx.docs.SetContent("file:///f.ts", "class Foo { render(): void }\n")
	fx.resolver.typeDefinitions[posKey(uriA, req.Position)] = []types.Location{fooLoc}
	// Hover yields only a bare declaration, which the filter rejects.
	fx.resolver.hovers[posKey("file:///f.ts", fooLoc.Range.Start)] = []string{"```ts\nclass Foo {}\n```"}

	snippets := fx.engine.ResolveSymbols(context.Background(), []types.SymbolRequest{req}, 0)

	require.Len(t, snippets, 1)
	assert.Equal(t, "class Foo { render(): void }", snippets[0].Content)
	assert.GreaterOrEqual(t, fx.resolver.calls("hover"), 1)
}

func TestUnhelpfulEverywhereKeepsBareLocation(t *testing.T) {
	fx := newFixture()

	req := types.SymbolRequest{
		SymbolName: "Foo",
		URI:        uriA,
		Position:   types.Position{Line: 1, Character: 0},
		NodeType:   types.KindIdentifier,
		LanguageID: "go",
	}
	fooLoc := types.Location{URI: "file:///g.go", Range: types.Range{
		Start: types.Position{Line: 0, Character: 0},
		End:   types.Position{Line: 0, Character: 3},
	}}
	// Source text is just the bare symbol name; hover has nothing.
	fx.docs.SetContent("file:///g.go", "Foo\n")
	fx.resolver.typeDefinitions[posKey(uriA, req.Position)] = []types.Location{fooLoc}

	snippets := fx.engine.ResolveSymbols(context.Background(), []types.SymbolRequest{req}, 0)

	require.Len(t, snippets, 1)
	assert.Equal(t, "", snippets[0].Content, "bare location kept, not discarded")
	assert.Equal(t, "Foo", snippets[0].Symbol)
	assert.Equal(t, types.DefinitionKey(fooLoc), snippets[0].Key)
	assert.Equal(t, 0, fx.caches.Definitions.Len(), "pending records are never cached")
}

func TestTwoOccurrencesCollapseToOneSnippet(t *testing.T) {
	fx := newFixture()
	req, widgetLoc, _ := fx.widgetScenario()

	second := req
	second.Position = types.Position{Line: 7, Character: 12}
	fx.resolver.definitions[posKey(uriA, second.Position)] = []types.Location{widgetLoc}

	snippets := fx.engine.ResolveSymbols(context.Background(), []types.SymbolRequest{req, second}, 0)
	assembled := NewAssembler(fx.caches.Definitions).Assemble(snippets)

	require.Len(t, assembled, 1, "same definition reached twice must collapse to one snippet")
}

func TestStalledProviderDegradesToEmpty(t *testing.T) {
	fx := newFixture()
	req, _, _ := fx.widgetScenario()
	fx.resolver.blockUntilCancel = true

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	snippets := fx.engine.ResolveSymbols(ctx, []types.SymbolRequest{req}, 2)

	assert.Empty(t, snippets)
	assert.Less(t, time.Since(start), 2*time.Second, "retrieval must not hang on a stalled provider")
}

func TestMalformedRequestIsSkipped(t *testing.T) {
	fx := newFixture()

	snippets := fx.engine.ResolveSymbols(context.Background(), []types.SymbolRequest{
		{SymbolName: "", URI: uriA},
		{SymbolName: "Foo", URI: ""},
	}, 2)

	assert.Empty(t, snippets)
	assert.Equal(t, 0, fx.resolver.calls("definition"))
}
