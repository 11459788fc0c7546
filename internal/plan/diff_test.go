package plan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func basePlan() *Plan {
	return &Plan{
		Pattern: "serverless-api",
		Tiers: []Tier{
			{
				{ID: "secrets", Type: "secrets", Outputs: []string{"uri"}},
				{ID: "kv", Type: "kv", Params: map[string]any{"throughput": 400}, Outputs: []string{"endpoint"}},
			},
			{
				{ID: "api", Type: "api", Params: map[string]any{"runtime": "node20"}, Outputs: []string{"endpoint"}},
			},
		},
	}
}

func TestCompare_Identical(t *testing.T) {
	t.Parallel()
	d := Compare(basePlan(), basePlan())

	assert.True(t, d.NoChanges())
	assert.Equal(t, 3, d.Count(Unchanged))
}

func TestCompare_ModifiedParams(t *testing.T) {
	t.Parallel()
	current := basePlan()
	current.Tiers[1][0].Params["runtime"] = "node22"

	d := Compare(basePlan(), current)

	assert.False(t, d.NoChanges())
	assert.Equal(t, 1, d.Count(Modified))
	assert.Equal(t, 2, d.Count(Unchanged))

	change := changeFor(t, d, "api")
	assert.Equal(t, Modified, change.Kind)
	assert.Contains(t, change.Detail, "runtime")
}

func TestCompare_AddedAndRemoved(t *testing.T) {
	t.Parallel()
	current := basePlan()
	// kv drops out, llm joins.
	current.Tiers[0] = Tier{
		current.Tiers[0][0],
		{ID: "llm", Type: "llm", Outputs: []string{"endpoint"}},
	}

	d := Compare(basePlan(), current)

	assert.Equal(t, 1, d.Count(Added))
	assert.Equal(t, 1, d.Count(Removed))
	assert.Equal(t, Added, changeFor(t, d, "llm").Kind)
	assert.Equal(t, Removed, changeFor(t, d, "kv").Kind)
}

func TestCompare_TierMoveIsModified(t *testing.T) {
	t.Parallel()
	current := basePlan()
	// Same module content, different tier placement.
	api := current.Tiers[1][0]
	current.Tiers = []Tier{current.Tiers[0], {}, {api}}

	d := Compare(basePlan(), current)

	change := changeFor(t, d, "api")
	assert.Equal(t, Modified, change.Kind)
	assert.Equal(t, "tier placement changed", change.Detail)
}

func TestCompare_AfterReschedule(t *testing.T) {
	t.Parallel()
	// Re-running the scheduler over the same graph must diff clean.
	first, err := Schedule(context.Background(), serverlessGraph(t))
	require.NoError(t, err)
	second, err := Schedule(context.Background(), serverlessGraph(t))
	require.NoError(t, err)

	assert.True(t, Compare(first, second).NoChanges())
}

func changeFor(t *testing.T, d *Diff, id string) ModuleChange {
	t.Helper()
	for _, c := range d.Changes {
		if c.ModuleID == id {
			return c
		}
	}
	t.Fatalf("no diff entry for module %q", id)
	return ModuleChange{}
}
