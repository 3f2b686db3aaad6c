package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hanpama/typeddoc"
	"github.com/hanpama/typeddoc/client"
	"github.com/hanpama/typeddoc/execute"
	eventbus "github.com/hanpama/typeddoc/internal/eventbus"
	events "github.com/hanpama/typeddoc/internal/events"
	"github.com/hanpama/typeddoc/internal/ratesapi"
	gqlserver "github.com/hanpama/typeddoc/internal/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

type server struct {
	*httptest.Server
	hits atomic.Int32
}

func newServer(t *testing.T) *server {
	t.Helper()
	schema := ratesapi.MustSchema(ratesapi.New())
	s := &server{}
	gql := gqlserver.New(execute.Wrap(schema))
	mux := http.NewServeMux()
	mux.Handle("/graphql", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		gql.ServeHTTP(w, r)
	}))
	mux.Handle("/subscriptions", ratesapi.NewSubscriptionHandler(schema))
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func (s *server) client(opts ...client.Option) *client.Client {
	wsURL := "ws" + strings.TrimPrefix(s.URL, "http") + "/subscriptions"
	opts = append([]client.Option{client.WithSubscriptionEndpoint(wsURL, nil)}, opts...)
	return client.New(s.URL+"/graphql", s.Server.Client(), opts...)
}

func TestQueryInfersResultType(t *testing.T) {
	c := newServer(t).client()
	res, err := client.Query(context.Background(), c, ratesapi.RatesQueryDocument,
		ratesapi.RatesQueryVariables{Currency: "USD"})
	require.NoError(t, err)

	var _ *client.QueryResult[ratesapi.RatesQuery, ratesapi.RatesQueryVariables] = res
	require.Len(t, res.Data.Rates, 3)
	assert.Equal(t, "EUR", res.Data.Rates[0].Currency)
	assert.Equal(t, "USD", res.Variables.Currency)
	assert.False(t, res.FromCache)
}

func TestQueryRejectsInexactVariableValuesBeforeSending(t *testing.T) {
	srv := newServer(t)
	c := srv.client()
	_, err := client.Query(context.Background(), c, ratesapi.RatesQueryDocument, ratesapi.RatesQueryVariables{},
		client.WithVariableValues(map[string]any{"currency_invalid": "USD"}))
	require.EqualError(t, err,
		"Type '{ currency_invalid: string; }' is not assignable to type 'Exact<{ currency: string; }>'.")
	require.Zero(t, srv.hits.Load())
}

func TestQueryWithVariableValues(t *testing.T) {
	c := newServer(t).client()
	res, err := client.Query(context.Background(), c, ratesapi.RatesQueryDocument, ratesapi.RatesQueryVariables{},
		client.WithVariableValues(map[string]any{"currency": "GBP"}))
	require.NoError(t, err)
	require.Equal(t, "GBP", res.Variables.Currency)
	require.Equal(t, "EUR", res.Data.Rates[0].Currency)
}

func TestQueryReturnsGraphQLErrors(t *testing.T) {
	c := newServer(t).client()
	doc := typeddoc.Must[ratesapi.RatesQuery, ratesapi.RatesQueryVariables](`query rates($currency: String!) { rates(currency: $currency) { nope } }`)
	res, err := client.Query(context.Background(), c, doc, ratesapi.RatesQueryVariables{Currency: "USD"})
	require.Error(t, err)
	var list gqlerror.List
	require.ErrorAs(t, err, &list)
	require.NotNil(t, res)
	require.NotEmpty(t, res.Errors)
	require.Nil(t, res.Data)
}

func TestUntypedDocumentFallsBackToMaps(t *testing.T) {
	c := newServer(t).client()
	doc, err := typeddoc.Parse(ratesapi.RatesQueryDocument.Source())
	require.NoError(t, err)
	res, err := client.Query(context.Background(), c, doc, map[string]any{"currency": "USD"})
	require.NoError(t, err)
	var data *map[string]any = res.Data
	require.Len(t, (*data)["rates"], 3)
}

func TestMutate(t *testing.T) {
	c := newServer(t).client()
	res, err := client.Mutate(context.Background(), c, ratesapi.SetRateMutationDocument,
		ratesapi.SetRateMutationVariables{Input: ratesapi.RateInput{Currency: "GBP", Rate: 0.7}})
	require.NoError(t, err)
	var _ *client.FetchResult[ratesapi.SetRateMutation] = res
	require.Equal(t, ratesapi.TrendDown, res.Data.SetRate.Trend)
}

func TestCacheFirstAnswersFromStore(t *testing.T) {
	srv := newServer(t)
	store := client.NewMemoryStore()
	c := srv.client(client.WithStore(store), client.WithFetchPolicy(client.CacheFirst))
	vars := ratesapi.RatesQueryVariables{Currency: "USD"}

	first, err := client.Query(context.Background(), c, ratesapi.RatesQueryDocument, vars)
	require.NoError(t, err)
	require.False(t, first.FromCache)

	second, err := client.Query(context.Background(), c, ratesapi.RatesQueryDocument, vars)
	require.NoError(t, err)
	require.True(t, second.FromCache)
	require.Equal(t, first.Data, second.Data)
	require.EqualValues(t, 1, srv.hits.Load())

	_, err = client.Query(context.Background(), c, ratesapi.RatesQueryDocument, vars, client.WithPolicy(client.NetworkOnly))
	require.NoError(t, err)
	require.EqualValues(t, 2, srv.hits.Load())
}

func TestReadAndWriteQuery(t *testing.T) {
	c := newServer(t).client(client.WithStore(client.NewMemoryStore()))
	ctx := context.Background()
	vars := ratesapi.RatesQueryVariables{Currency: "CHF"}

	got, err := client.ReadQuery(ctx, c, ratesapi.RatesQueryDocument, vars)
	require.NoError(t, err)
	require.Nil(t, got)

	data := ratesapi.RatesQuery{Rates: []ratesapi.RatesQueryRatesExchangeRate{{Currency: "USD", Rate: 1.1}}}
	require.NoError(t, client.WriteQuery(ctx, c, ratesapi.RatesQueryDocument, vars, data))

	got, err = client.ReadQuery(ctx, c, ratesapi.RatesQueryDocument, vars)
	require.NoError(t, err)
	var _ *ratesapi.RatesQuery = got
	require.Equal(t, &data, got)

	other, err := client.ReadQuery(ctx, c, ratesapi.RatesQueryDocument, ratesapi.RatesQueryVariables{Currency: "USD"})
	require.NoError(t, err)
	require.Nil(t, other)
}

type rateFields struct {
	Currency string  `json:"currency"`
	Rate     float64 `json:"rate"`
}

var rateFieldsFragment = typeddoc.MustFragment[rateFields](`fragment rateFields on ExchangeRate { currency rate }`)

func TestReadAndWriteFragment(t *testing.T) {
	c := newServer(t).client(client.WithStore(client.NewMemoryStore()))
	ctx := context.Background()

	got, err := client.ReadFragment(ctx, c, rateFieldsFragment, "EUR")
	require.NoError(t, err)
	require.Nil(t, got)

	require.NoError(t, client.WriteFragment(ctx, c, rateFieldsFragment, "EUR", rateFields{Currency: "EUR", Rate: 0.9}))
	got, err = client.ReadFragment(ctx, c, rateFieldsFragment, "EUR")
	require.NoError(t, err)
	require.Equal(t, &rateFields{Currency: "EUR", Rate: 0.9}, got)
}

func TestCacheAccessorsNeedStore(t *testing.T) {
	c := newServer(t).client()
	_, err := client.ReadQuery(context.Background(), c, ratesapi.RatesQueryDocument, ratesapi.RatesQueryVariables{})
	require.ErrorIs(t, err, client.ErrNoStore)
	err = client.WriteFragment(context.Background(), c, rateFieldsFragment, "EUR", rateFields{})
	require.ErrorIs(t, err, client.ErrNoStore)
}

func TestLazyQuery(t *testing.T) {
	c := newServer(t).client()
	run, state := client.LazyQuery(c, ratesapi.RatesQueryDocument)
	require.False(t, state.Called())
	require.Nil(t, state.Data())

	res, err := run(context.Background(), ratesapi.RatesQueryVariables{Currency: "EUR"})
	require.NoError(t, err)
	require.True(t, state.Called())
	require.False(t, state.Loading())
	require.Same(t, res.Data, state.Data())
	latest, err := state.Result()
	require.NoError(t, err)
	require.Equal(t, "EUR", latest.Variables.Currency)
}

func TestWatchQueryCacheAndNetwork(t *testing.T) {
	c := newServer(t).client(client.WithStore(client.NewMemoryStore()))
	ctx := context.Background()
	vars := ratesapi.RatesQueryVariables{Currency: "USD"}
	cachedData := ratesapi.RatesQuery{Rates: []ratesapi.RatesQueryRatesExchangeRate{{Currency: "XXX"}}}
	require.NoError(t, client.WriteQuery(ctx, c, ratesapi.RatesQueryDocument, vars, cachedData))

	obs := client.WatchQuery(ctx, c, ratesapi.RatesQueryDocument, vars, client.WithPolicy(client.CacheAndNetwork))
	defer obs.Stop()

	first := <-obs.Results()
	require.NoError(t, first.Err)
	require.True(t, first.Result.FromCache)
	require.Equal(t, "XXX", first.Result.Data.Rates[0].Currency)

	second := <-obs.Results()
	require.NoError(t, second.Err)
	require.False(t, second.Result.FromCache)
	require.Len(t, second.Result.Data.Rates, 3)

	obs.Refetch(ratesapi.RatesQueryVariables{Currency: "EUR"})
	third := <-obs.Results()
	require.NoError(t, third.Err)
	require.Equal(t, "EUR", third.Result.Variables.Currency)

	obs.Stop()
	_, open := <-obs.Results()
	require.False(t, open)
}

func TestWatchQueryPolls(t *testing.T) {
	srv := newServer(t)
	c := srv.client()
	obs := client.WatchQuery(context.Background(), c, ratesapi.RatesQueryDocument,
		ratesapi.RatesQueryVariables{Currency: "USD"}, client.WithPollInterval(10*time.Millisecond))
	for i := 0; i < 3; i++ {
		u := <-obs.Results()
		require.NoError(t, u.Err)
	}
	obs.Stop()
	require.GreaterOrEqual(t, srv.hits.Load(), int32(3))
}

func TestSubscribe(t *testing.T) {
	c := newServer(t).client()
	ch, err := client.Subscribe(context.Background(), c, ratesapi.RateChangedSubscriptionDocument,
		ratesapi.RateChangedSubscriptionVariables{Currency: "GBP"})
	require.NoError(t, err)

	var rates []float64
	for res := range ch {
		require.Empty(t, res.Errors)
		rates = append(rates, res.Data.RateChanged.Rate)
	}
	require.Len(t, rates, 3)
	require.InDelta(t, 0.81, rates[0], 1e-9)
}

func TestSubscribeRejectsQueries(t *testing.T) {
	c := newServer(t).client()
	_, err := client.Subscribe(context.Background(), c, ratesapi.RatesQueryDocument, ratesapi.RatesQueryVariables{})
	require.ErrorIs(t, err, client.ErrNotStream)
}

func TestClientPublishesEvents(t *testing.T) {
	eventbus.Use(eventbus.New())
	t.Cleanup(func() { eventbus.Use(nil) })
	var kinds []string
	// the test server publishes its own operation events from its goroutine
	eventbus.Subscribe(func(_ context.Context, e events.OperationStart) {
		if e.Transport == "client" {
			kinds = append(kinds, "start")
		}
	})
	eventbus.Subscribe(func(context.Context, events.HTTPStart) { kinds = append(kinds, "http") })
	eventbus.Subscribe(func(_ context.Context, e events.HTTPFinish) { kinds = append(kinds, "http-done") })
	eventbus.Subscribe(func(_ context.Context, e events.OperationFinish) {
		if e.Transport == "client" {
			kinds = append(kinds, "finish")
		}
	})

	c := newServer(t).client()
	_, err := client.Query(context.Background(), c, ratesapi.RatesQueryDocument, ratesapi.RatesQueryVariables{Currency: "USD"})
	require.NoError(t, err)
	require.Equal(t, []string{"start", "http", "http-done", "finish"}, kinds)
}
