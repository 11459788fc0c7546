package graph

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/archplan/internal/catalog"
	"github.com/vk/archplan/internal/classifier"
	"github.com/vk/archplan/internal/signal"
)

// serverlessCatalogHCL is a reduced catalog exercising every builder
// behavior: static dependency closure, signal-gated optionals, output
// binds, and pruning.
const serverlessCatalogHCL = `
module "secrets" {
  role = "secrets"

  auth {
    mode = "managed-identity"
  }

  output "uri" {
    type = string
  }
}

module "api" {
  role       = "compute"
  depends_on = ["secrets"]

  auth {
    mode = "managed-identity"
  }

  endpoint {
    public = true
    tls    = true
  }

  param "runtime" {
    type    = string
    default = "node20"
  }

  param "kv_connection" {
    type     = string
    optional = true
  }

  output "endpoint" {
    type = string
  }
}

module "web" {
  role = "frontend"

  endpoint {
    public = true
    tls    = true
  }

  param "backend_url" {
    type     = string
    optional = true
  }

  output "url" {
    type = string
  }
}

module "kv" {
  role = "persistence"

  auth {
    mode = "managed-identity"
  }

  param "throughput" {
    type    = number
    default = 400
  }

  output "endpoint" {
    type = string
  }
}

module "llm" {
  role = "ai"

  auth {
    mode = "managed-identity"
  }

  output "endpoint" {
    type = string
  }
}

pattern "serverless-api" {
  modules        = ["api", "web"]
  required_roles = ["compute", "frontend"]

  optional "kv" {
    when                  = "uses-kv-storage"
    prune_if_unreferenced = true
  }

  optional "llm" {
    when                  = "uses-llm-calls"
    prune_if_unreferenced = true
  }

  bind "web.backend_url" {
    from = "api.endpoint"
  }

  bind "api.kv_connection" {
    from     = "kv.endpoint"
    optional = true
  }
}
`

func loadCatalog(t *testing.T, hclSource string) *catalog.Catalog {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog.hcl"), []byte(hclSource), 0o644))
	cat, err := catalog.Load(context.Background(), dir)
	require.NoError(t, err)
	return cat
}

func TestBuild_ServerlessWithKVStorage(t *testing.T) {
	t.Parallel()
	cat := loadCatalog(t, serverlessCatalogHCL)
	signals := signal.NewSet(
		signal.Signal{ID: signal.UsesKVStorage, Present: true},
	)

	g, err := Build(context.Background(), cat, classifier.ServerlessApi, signals)
	require.NoError(t, err)

	var ids []string
	for _, n := range g.Nodes() {
		ids = append(ids, n.ID)
	}
	assert.ElementsMatch(t, []string{"api", "web", "kv", "secrets"}, ids,
		"static dependency secrets must be pulled in even though the pattern omits it")

	api, ok := g.Node("api")
	require.True(t, ok)
	assert.Equal(t, OutputRefTo("kv", "endpoint"), api.Params["kv_connection"])
	assert.Equal(t, LiteralRef(cty.StringVal("node20")), api.Params["runtime"])
	assert.Equal(t, catalog.AuthManagedIdentity, api.Auth)

	web, _ := g.Node("web")
	assert.Equal(t, OutputRefTo("api", "endpoint"), web.Params["backend_url"])

	assert.Equal(t, []Edge{
		{From: "api", To: "kv"},
		{From: "api", To: "secrets"},
		{From: "web", To: "api"},
	}, g.Edges())
}

func TestBuild_OptionalSkippedWithoutSignal(t *testing.T) {
	t.Parallel()
	cat := loadCatalog(t, serverlessCatalogHCL)

	g, err := Build(context.Background(), cat, classifier.ServerlessApi, signal.NewSet())
	require.NoError(t, err)

	_, exists := g.Node("kv")
	assert.False(t, exists)

	api, _ := g.Node("api")
	_, bound := api.Params["kv_connection"]
	assert.False(t, bound, "unbound optional parameter must be dropped, not carried as a placeholder")
	assert.Contains(t, api.ParamOrder, "kv_connection")
}

func TestBuild_PrunesUnreferencedOptional(t *testing.T) {
	t.Parallel()
	cat := loadCatalog(t, serverlessCatalogHCL)

	// llm is gated in by its signal but no bind consumes its output.
	signals := signal.NewSet(
		signal.Signal{ID: signal.UsesLLMCalls, Present: true},
		signal.Signal{ID: signal.UsesKVStorage, Present: true},
	)
	g, err := Build(context.Background(), cat, classifier.ServerlessApi, signals)
	require.NoError(t, err)

	_, exists := g.Node("llm")
	assert.False(t, exists, "optional with no dependents and prune_if_unreferenced must be removed")
	_, exists = g.Node("kv")
	assert.True(t, exists, "kv is referenced by api and must survive")
}

func TestBuild_RequiredBindToAbsentSource(t *testing.T) {
	t.Parallel()
	cat := loadCatalog(t, `
module "app" {
  role       = "compute"

  auth {
    mode = "managed-identity"
  }

  param "db_connection" {
    type = string
  }

  output "endpoint" {
    type = string
  }
}

module "db" {
  role = "persistence"

  auth {
    mode = "managed-identity"
  }

  output "fqdn" {
    type = string
  }
}

pattern "container-stack" {
  modules        = ["app"]
  required_roles = ["compute"]

  optional "db" {
    when = "uses-relational-db"
  }

  bind "app.db_connection" {
    from = "db.fqdn"
  }
}
`)

	_, err := Build(context.Background(), cat, classifier.ContainerStack, signal.NewSet())
	var unresolved *UnresolvedParameterError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, "app", unresolved.ModuleID)
	assert.Equal(t, "db_connection", unresolved.Param)
	assert.Contains(t, unresolved.Reason, "not part of the graph")
}

func TestBuild_RequiredParamWithoutDefault(t *testing.T) {
	t.Parallel()
	cat := loadCatalog(t, `
module "site" {
  role = "frontend"

  param "domain" {
    type = string
  }

  output "url" {
    type = string
  }
}

pattern "static-site" {
  modules        = ["site"]
  required_roles = ["frontend"]
}
`)

	_, err := Build(context.Background(), cat, classifier.StaticSite, signal.NewSet())
	var unresolved *UnresolvedParameterError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, "site", unresolved.ModuleID)
	assert.Equal(t, "domain", unresolved.Param)
	assert.Contains(t, unresolved.Reason, "no default value and no binding")
}

func TestBuild_StaticDependencyCycle(t *testing.T) {
	t.Parallel()
	cat := loadCatalog(t, `
module "alpha" {
  role       = "frontend"
  depends_on = ["beta"]

  output "url" {
    type = string
  }
}

module "beta" {
  role       = "frontend"
  depends_on = ["alpha"]

  output "url" {
    type = string
  }
}

pattern "static-site" {
  modules        = ["alpha"]
  required_roles = ["frontend"]
}
`)

	_, err := Build(context.Background(), cat, classifier.StaticSite, signal.NewSet())
	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.ErrorContains(t, err, "error validating dependency graph")
	assert.Equal(t, []string{"alpha", "beta", "alpha"}, cycleErr.Chain)
}

func TestBuild_UndeclaredPattern(t *testing.T) {
	t.Parallel()
	cat := loadCatalog(t, serverlessCatalogHCL)

	_, err := Build(context.Background(), cat, classifier.WorkflowAutomation, signal.NewSet())
	assert.ErrorContains(t, err, "no definition for pattern")
}
