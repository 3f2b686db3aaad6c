package typeddoc_test

import (
	"reflect"
	"testing"

	"github.com/hanpama/typeddoc"
	"github.com/hanpama/typeddoc/internal/ratesapi"
	"github.com/stretchr/testify/require"
)

func TestExtractionFromTypedDocuments(t *testing.T) {
	d := ratesapi.RatesQueryDocument
	require.Equal(t, reflect.TypeFor[ratesapi.RatesQuery](), typeddoc.ResultOf(d))
	require.Equal(t, reflect.TypeFor[ratesapi.RatesQueryVariables](), typeddoc.VariablesOf(d))
	require.Equal(t, typeddoc.Single, typeddoc.OperationTypeOf(d))
	require.Equal(t, typeddoc.Stream, typeddoc.OperationTypeOf(ratesapi.RateChangedSubscriptionDocument))

	var r *ratesapi.RatesQuery = typeddoc.NewResult(d)
	var v *ratesapi.RatesQueryVariables = typeddoc.NewVariables(d)
	require.NotNil(t, r)
	require.NotNil(t, v)
}

func TestExtractionFallsBackForPlainNodes(t *testing.T) {
	plain, err := typeddoc.Plain(ratesapi.RateChangedSubscriptionDocument.Source())
	require.NoError(t, err)
	erased := ratesapi.RatesQueryDocument.Erase()

	for _, n := range []typeddoc.Node{plain, erased} {
		require.Equal(t, typeddoc.FallbackType(), typeddoc.ResultOf(n))
		require.Equal(t, typeddoc.FallbackType(), typeddoc.VariablesOf(n))
		require.Equal(t, typeddoc.Single, typeddoc.OperationTypeOf(n))
	}
	require.Equal(t, reflect.TypeFor[map[string]any](), typeddoc.FallbackType())
	require.Equal(t, "rates", erased.OperationName())
}

func TestUntypedDocumentCarriesFallbackTypes(t *testing.T) {
	d, err := typeddoc.Parse(ratesapi.RatesQueryDocument.Source())
	require.NoError(t, err)
	require.Equal(t, typeddoc.FallbackType(), typeddoc.ResultOf(d))
	require.Equal(t, typeddoc.FallbackType(), typeddoc.VariablesOf(d))
}
