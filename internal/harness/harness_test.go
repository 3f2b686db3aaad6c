package harness_test

import (
	"testing"

	"github.com/hanpama/typeddoc/internal/harness"
	"github.com/hanpama/typeddoc/patch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = "testdata/project"

const typedCall = `package check

import (
	"example.com/app/types"
	"example.com/gqlexec"
)

var res = gqlexec.Execute(types.RatesQueryDocument, types.RatesQueryVariables{Currency: "USD"})
`

const untypedCall = `package check

import (
	"example.com/app/types"
	"example.com/gqlexec"
)

var res = gqlexec.Execute(types.RatesUntypedDocument, map[string]any{"currency": "USD"})
`

const invalidCall = `package check

import (
	"example.com/app/types"
	"example.com/gqlexec"
)

var res = gqlexec.Execute(types.RatesQueryDocument, types.RatesQueryVariables{CurrencyInvalid: "USD"})
`

func TestUnpatched(t *testing.T) {
	p := harness.NewProject(t, fixture)

	res := p.Check("example.com/app/check", untypedCall)
	assert.Empty(t, res.Diagnostics)
	assert.Equal(t, "*gqlexec.Result", res.TypeOf("res"))

	// the typed document still satisfies the untyped entry point
	res = p.Check("example.com/app/check", `package check

import (
	"example.com/app/types"
	"example.com/gqlexec"
)

var res = gqlexec.Execute(types.RatesQueryDocument, map[string]any{"currency": "USD"})
`)
	assert.Empty(t, res.Diagnostics)
	assert.Equal(t, "*gqlexec.Result", res.TypeOf("res"))
}

func TestPatchedTypes(t *testing.T) {
	p := harness.NewProject(t, fixture)
	out := p.Patch()
	require.Len(t, out, 1)
	require.Equal(t, patch.Applied, out[0].Status)

	res := p.Check("example.com/app/check", typedCall)
	assert.Empty(t, res.Diagnostics)
	assert.Equal(t, "*gqlexec.TypedResult[types.RatesQuery]", res.TypeOf("res"))

	res = p.Check("example.com/app/check", untypedCall)
	assert.Empty(t, res.Diagnostics)
	assert.Equal(t, "*gqlexec.TypedResult[map[string]any]", res.TypeOf("res"))
}

func TestExactVariables(t *testing.T) {
	p := harness.NewProject(t, fixture)
	p.Patch()

	res := p.Check("example.com/app/check", invalidCall)
	require.Len(t, res.Diagnostics, 1)
	assert.Contains(t, res.Diagnostics[0].Msg, "unknown field CurrencyInvalid in struct literal")

	res = p.Check("example.com/app/check", `package check

import (
	"example.com/app/types"
	"example.com/gqlexec"
)

var res = gqlexec.Execute(types.RatesQueryDocument, map[string]any{"currency": "USD"})
`)
	require.Len(t, res.Diagnostics, 1)
	assert.Contains(t, res.Diagnostics[0].Msg, "does not match")
}

func TestPatchIdempotent(t *testing.T) {
	p := harness.NewProject(t, fixture)
	p.Patch()
	once := p.ReadFile("vendor/example.com/gqlexec/exec.go")

	out := p.Patch()
	assert.True(t, out[0].Unchanged)
	assert.Equal(t, once, p.ReadFile("vendor/example.com/gqlexec/exec.go"))

	out = p.Unpatch()
	require.Equal(t, patch.Reversed, out[0].Status)
	res := p.Check("example.com/app/check", untypedCall)
	assert.Equal(t, "*gqlexec.Result", res.TypeOf("res"))

	p.Patch()
	assert.Equal(t, once, p.ReadFile("vendor/example.com/gqlexec/exec.go"))
	res = p.Check("example.com/app/check", typedCall)
	assert.Empty(t, res.Diagnostics)
	assert.Equal(t, "*gqlexec.TypedResult[types.RatesQuery]", res.TypeOf("res"))
}

func TestVersionOutOfRange(t *testing.T) {
	p := harness.NewProject(t, fixture, harness.WithDependency("example.com/gqlexec", "v2.0.0"))
	out := p.Patch()
	require.Len(t, out, 1)
	assert.Equal(t, patch.Skipped, out[0].Status)
	assert.Equal(t, patch.VersionMismatch, out[0].Reason)
	assert.Equal(t, "v2.0.0", out[0].Installed)

	res := p.Check("example.com/app/check", untypedCall)
	assert.Empty(t, res.Diagnostics)
	assert.Equal(t, "*gqlexec.Result", res.TypeOf("res"))
}

func TestTypeOfLocal(t *testing.T) {
	p := harness.NewProject(t, fixture)
	p.Patch()
	res := p.Check("example.com/app/check", `package check

import (
	"example.com/app/types"
	"example.com/gqlexec"
)

func run() {
	out := gqlexec.Execute(types.RatesQueryDocument, types.RatesQueryVariables{Currency: "USD"})
	data := out.Data.Rates
	_ = data
}
`)
	assert.Empty(t, res.Diagnostics)
	assert.Equal(t, "*gqlexec.TypedResult[types.RatesQuery]", res.TypeOf("out"))
	assert.Equal(t, "[]types.RatesQueryRatesExchangeRate", res.TypeOf("data"))
	assert.Equal(t, "", res.TypeOf("missing"))
}
