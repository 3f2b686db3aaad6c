package harness_test

import (
	"go/build"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hanpama/typeddoc/internal/harness"
	"github.com/hanpama/typeddoc/patch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const graphqlGo = "github.com/graph-gophers/graphql-go"

// the module's own sources plus what its root and execute packages import
var libraryDeps = []string{
	graphqlGo,
	"github.com/vektah/gqlparser/v2",
	"github.com/agnivade/levenshtein",
	"github.com/json-iterator/go",
	"github.com/modern-go/reflect2",
	"github.com/modern-go/concurrent",
	"go.uber.org/zap",
	"go.uber.org/atomic",
	"go.uber.org/multierr",
}

func libraryProject(t *testing.T, opts ...harness.ProjectOption) *harness.Project {
	t.Helper()
	if testing.Short() {
		t.Skip("type-checks real dependencies from source")
	}
	// the standard library is loaded from source too; keep cgo out of it
	cgo := build.Default.CgoEnabled
	build.Default.CgoEnabled = false
	t.Cleanup(func() { build.Default.CgoEnabled = cgo })

	gomod := filepath.Join("..", "..", "go.mod")
	deps := []harness.Module{{Path: "github.com/hanpama/typeddoc", Version: "v0.0.0", Dir: filepath.Join("..", "..")}}
	for _, path := range libraryDeps {
		deps = append(deps, harness.CachedModule(t, gomod, path))
	}
	opts = append([]harness.ProjectOption{harness.WithPatchFS(patch.Builtin())}, opts...)
	return harness.NewModuleProject(t, "example.com/app", "1.24", deps, opts...)
}

const ratesDecls = `
type RatesQuery struct{ Rates []struct{ Currency string } }

type RatesQueryVariables struct{ Currency string }

var RatesQueryDocument = typeddoc.Must[RatesQuery, RatesQueryVariables]("query rates($currency: String!) { rates(currency: $currency) { currency } }")
`

func execTyped(variables string) string {
	return `package check

import (
	"context"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/hanpama/typeddoc"
)
` + ratesDecls + `
func run(ctx context.Context, s *graphql.Schema) {
	res := graphql.ExecTyped(ctx, s, RatesQueryDocument, ` + variables + `)
	rates := res.Data.Rates
	_ = rates
}
`
}

func TestGraphQLGoBuiltinPatch(t *testing.T) {
	p := libraryProject(t)

	res := p.Check("example.com/app/check", execTyped(`RatesQueryVariables{Currency: "USD"}`))
	require.NotEmpty(t, res.Diagnostics)
	assert.Equal(t, "undefined: graphql.ExecTyped", res.Diagnostics[0].Msg)

	out := p.Patch()
	require.Len(t, out, 1)
	require.Equal(t, patch.Applied, out[0].Status)
	assert.Equal(t, "v1.5.0", out[0].Installed)

	res = p.Check("example.com/app/check", execTyped(`RatesQueryVariables{Currency: "USD"}`))
	assert.Empty(t, res.Diagnostics)
	assert.Equal(t, "*graphql.TypedResponse[check.RatesQuery]", res.TypeOf("res"))
	assert.Equal(t, "[]struct{Currency string}", res.TypeOf("rates"))

	res = p.Check("example.com/app/check", execTyped(`map[string]any{"currency": "USD"}`))
	require.Len(t, res.Diagnostics, 1)
	assert.Contains(t, res.Diagnostics[0].Msg, "does not match")

	// the untyped entry point is untouched
	res = p.Check("example.com/app/check", `package check

import (
	"context"

	graphql "github.com/graph-gophers/graphql-go"
)

func run(ctx context.Context, s *graphql.Schema) {
	resp := s.Exec(ctx, "{ rates }", "", nil)
	_ = resp
}
`)
	assert.Empty(t, res.Diagnostics)
	assert.Equal(t, "*graphql.Response", res.TypeOf("resp"))

	p.Unpatch()
	res = p.Check("example.com/app/check", execTyped(`RatesQueryVariables{Currency: "USD"}`))
	require.NotEmpty(t, res.Diagnostics)
	assert.Equal(t, "undefined: graphql.ExecTyped", res.Diagnostics[0].Msg)
}

// graphql-go declares go 1.13, so a patch adding generic code must raise the
// language version of its own file.
func TestGraphQLGoPatchNeedsVersionConstraint(t *testing.T) {
	const name = "github.com+graph-gophers+graphql-go+^1.3.0.patch"
	data, err := fs.ReadFile(patch.Builtin(), name)
	require.NoError(t, err)
	text := string(data)
	require.Contains(t, text, "+//go:build go1.18\n+\n+package graphql\n")

	text = strings.Replace(text, "+//go:build go1.18\n+\n", "", 1)
	text = strings.Replace(text, "@@ -0,0 +1,52 @@", "@@ -0,0 +1,50 @@", 1)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(text), 0o644))

	p := libraryProject(t, harness.WithPatchFS(os.DirFS(dir)))
	out := p.Patch()
	require.Equal(t, patch.Applied, out[0].Status)

	_, err = harness.Check(p.Root, "example.com/app/check", execTyped(`RatesQueryVariables{Currency: "USD"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires go1.18 or later")
}

func TestExecuteAdapterInference(t *testing.T) {
	p := libraryProject(t)

	src := func(variables string) string {
		return `package check

import (
	"context"

	"github.com/hanpama/typeddoc"
	"github.com/hanpama/typeddoc/execute"
)
` + ratesDecls + `
func run(ctx context.Context, s *execute.Schema) {
	res := execute.Execute(ctx, s, RatesQueryDocument, nil, ` + variables + `, "")
	_ = res
}
`
	}

	res := p.Check("example.com/app/check", src(`RatesQueryVariables{Currency: "USD"}`))
	assert.Empty(t, res.Diagnostics)
	assert.Equal(t, "*execute.ExecutionResult[check.RatesQuery, check.RatesQueryVariables]", res.TypeOf("res"))
	assert.Equal(t, "*typeddoc.Document[check.RatesQuery, check.RatesQueryVariables]", res.TypeOf("RatesQueryDocument"))

	res = p.Check("example.com/app/check", src(`RatesQueryVariables{CurrencyInvalid: "USD"}`))
	require.Len(t, res.Diagnostics, 1)
	assert.Contains(t, res.Diagnostics[0].Msg, "unknown field CurrencyInvalid in struct literal")
}
