package redisstore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hanpama/typeddoc/client"
	"github.com/hanpama/typeddoc/execute"
	"github.com/hanpama/typeddoc/internal/ratesapi"
	"github.com/hanpama/typeddoc/internal/server"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*Store, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := New(rdb, DefaultConfig())
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func TestStore_SetGetDelete(t *testing.T) {
	s, mr := setupTestRedis(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "k")
	require.ErrorIs(t, err, client.ErrMiss)

	require.NoError(t, s.Set(ctx, "k", []byte(`{"a":1}`)))
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"a":1}`), got)
	assert.True(t, mr.Exists("typeddoc:k"))

	require.NoError(t, s.Delete(ctx, "k"))
	_, err = s.Get(ctx, "k")
	require.ErrorIs(t, err, client.ErrMiss)
}

func TestStore_TTL(t *testing.T) {
	s, mr := setupTestRedis(t)
	require.NoError(t, s.Set(context.Background(), "k", []byte("v")))
	assert.Equal(t, 10*time.Minute, mr.TTL("typeddoc:k"))
	mr.FastForward(11 * time.Minute)
	_, err := s.Get(context.Background(), "k")
	require.ErrorIs(t, err, client.ErrMiss)
}

func TestStore_Clear(t *testing.T) {
	s, mr := setupTestRedis(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "a", []byte("1")))
	require.NoError(t, s.Set(ctx, "b", []byte("2")))
	require.NoError(t, mr.Set("other", "x"))

	require.NoError(t, s.Clear(ctx))
	assert.False(t, mr.Exists("typeddoc:a"))
	assert.False(t, mr.Exists("typeddoc:b"))
	assert.True(t, mr.Exists("other"))
}

func TestDial(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := Dial(context.Background(), mr.Addr(), DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestStoreBacksClientCache(t *testing.T) {
	s, _ := setupTestRedis(t)
	var hits int
	gql := server.New(execute.Wrap(ratesapi.MustSchema(ratesapi.New())))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		gql.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	c := client.New(srv.URL, srv.Client(), client.WithStore(s), client.WithFetchPolicy(client.CacheFirst))
	vars := ratesapi.RatesQueryVariables{Currency: "USD"}
	for i := 0; i < 2; i++ {
		res, err := client.Query(context.Background(), c, ratesapi.RatesQueryDocument, vars)
		require.NoError(t, err)
		require.Len(t, res.Data.Rates, 3)
	}
	require.Equal(t, 1, hits)
}
