package plan

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/archplan/internal/classifier"
	"github.com/vk/archplan/internal/graph"
)

// serverlessGraph builds the canonical four-module graph by hand:
// api depends on secrets and kv, web depends on api.
func serverlessGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New(classifier.ServerlessApi, []string{"compute", "frontend"})

	require.NoError(t, g.AddNode(&graph.ModuleSpec{
		ID: "api", Type: "api", Role: "compute",
		Params: map[string]graph.ParamRef{
			"runtime":         graph.LiteralRef(cty.StringVal("node20")),
			"timeout_seconds": graph.LiteralRef(cty.NumberIntVal(30)),
			"kv_connection":   graph.OutputRefTo("kv", "endpoint"),
		},
		ParamOrder: []string{"runtime", "timeout_seconds", "kv_connection"},
		Produces:   []string{"endpoint"},
	}))
	require.NoError(t, g.AddNode(&graph.ModuleSpec{
		ID: "web", Type: "web", Role: "frontend",
		Params:     map[string]graph.ParamRef{"backend_url": graph.OutputRefTo("api", "endpoint")},
		ParamOrder: []string{"backend_url"},
		Produces:   []string{"url"},
	}))
	require.NoError(t, g.AddNode(&graph.ModuleSpec{
		ID: "secrets", Type: "secrets", Role: "secrets", Produces: []string{"uri"},
	}))
	require.NoError(t, g.AddNode(&graph.ModuleSpec{
		ID: "kv", Type: "kv", Role: "persistence", Produces: []string{"endpoint"},
	}))

	require.NoError(t, g.AddEdge("api", "secrets"))
	require.NoError(t, g.AddEdge("api", "kv"))
	require.NoError(t, g.AddEdge("web", "api"))
	return g
}

func TestSchedule_Tiers(t *testing.T) {
	t.Parallel()
	p, err := Schedule(context.Background(), serverlessGraph(t))
	require.NoError(t, err)

	assert.Equal(t, "serverless-api", p.Pattern)
	require.Len(t, p.Tiers, 3)

	tierIDs := func(tier Tier) []string {
		out := make([]string, 0, len(tier))
		for _, m := range tier {
			out = append(out, m.ID)
		}
		return out
	}

	// Leaves first, ordered by instantiation within the tier.
	assert.Equal(t, []string{"secrets", "kv"}, tierIDs(p.Tiers[0]))
	assert.Equal(t, []string{"api"}, tierIDs(p.Tiers[1]))
	assert.Equal(t, []string{"web"}, tierIDs(p.Tiers[2]))
}

func TestSchedule_RendersParams(t *testing.T) {
	t.Parallel()
	p, err := Schedule(context.Background(), serverlessGraph(t))
	require.NoError(t, err)

	var api Module
	for _, m := range p.Modules() {
		if m.ID == "api" {
			api = m
		}
	}
	require.NotEmpty(t, api.ID)
	assert.Equal(t, "node20", api.Params["runtime"])
	assert.Equal(t, 30, api.Params["timeout_seconds"])
	assert.Equal(t, "${kv.endpoint}", api.Params["kv_connection"])
	assert.Equal(t, []string{"endpoint"}, api.Outputs)
}

func TestSchedule_SkipsDroppedOptionalParams(t *testing.T) {
	t.Parallel()
	g := graph.New(classifier.StaticSite, nil)
	require.NoError(t, g.AddNode(&graph.ModuleSpec{
		ID: "web", Type: "web", Role: "frontend",
		// backend_url was declared but dropped during binding; ParamOrder
		// still names it.
		Params:     map[string]graph.ParamRef{"index_document": graph.LiteralRef(cty.StringVal("index.html"))},
		ParamOrder: []string{"backend_url", "index_document"},
	}))

	p, err := Schedule(context.Background(), g)
	require.NoError(t, err)

	web := p.Modules()[0]
	assert.NotContains(t, web.Params, "backend_url")
	assert.Equal(t, "index.html", web.Params["index_document"])
}

func TestSchedule_Deterministic(t *testing.T) {
	t.Parallel()

	render := func() []byte {
		p, err := Schedule(context.Background(), serverlessGraph(t))
		require.NoError(t, err)
		var buf bytes.Buffer
		require.NoError(t, p.Encode(&buf))
		return buf.Bytes()
	}

	first := render()
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, render(), "identical graphs must produce byte-identical plan documents")
	}
}

func TestSchedule_ResidualGraph(t *testing.T) {
	t.Parallel()
	g := graph.New(classifier.ServerlessApi, nil)
	require.NoError(t, g.AddNode(&graph.ModuleSpec{ID: "a", Type: "a"}))
	require.NoError(t, g.AddNode(&graph.ModuleSpec{ID: "b", Type: "b"}))
	require.NoError(t, g.AddNode(&graph.ModuleSpec{ID: "c", Type: "c"}))
	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.AddEdge("b", "a"))

	_, err := Schedule(context.Background(), g)
	var residual *ResidualGraphError
	require.ErrorAs(t, err, &residual)
	assert.Equal(t, []string{"a", "b"}, residual.Remaining,
		"the independent module schedules; only the cycle members remain")
	assert.Contains(t, residual.Error(), "unschedulable")
}

func TestPlan_EncodeLoadRoundTrip(t *testing.T) {
	t.Parallel()
	p, err := Schedule(context.Background(), serverlessGraph(t))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, p.Encode(&buf))

	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	loaded, err := Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, p.Pattern, loaded.Pattern)
	require.Len(t, loaded.Tiers, len(p.Tiers))
	assert.Equal(t, p.TierIndex("web"), loaded.TierIndex("web"))

	api := moduleByID(t, loaded, "api")
	assert.Equal(t, "${kv.endpoint}", api.Params["kv_connection"])
	assert.Equal(t, 30, api.Params["timeout_seconds"],
		"numeric params must decode to the same type the scheduler renders")

	// A reloaded plan must be indistinguishable from the fresh one, numeric
	// params included.
	assert.True(t, Compare(p, loaded).NoChanges())
}

func TestPlan_TierIndex(t *testing.T) {
	t.Parallel()
	p := &Plan{Tiers: []Tier{
		{{ID: "a"}},
		{{ID: "b"}, {ID: "c"}},
	}}
	assert.Equal(t, 0, p.TierIndex("a"))
	assert.Equal(t, 1, p.TierIndex("c"))
	assert.Equal(t, -1, p.TierIndex("ghost"))
}

func moduleByID(t *testing.T, p *Plan, id string) Module {
	t.Helper()
	for _, m := range p.Modules() {
		if m.ID == id {
			return m
		}
	}
	t.Fatalf("module %q not in plan", id)
	return Module{}
}

