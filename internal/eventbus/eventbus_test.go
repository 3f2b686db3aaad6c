package eventbus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type ping struct{ n int }
type pong struct{}

func TestPublishDispatchesByType(t *testing.T) {
	b := New()
	var got []int
	SubscribeTo(b, func(_ context.Context, p ping) { got = append(got, p.n) })
	SubscribeTo(b, func(_ context.Context, p ping) { got = append(got, p.n*10) })
	pongs := 0
	SubscribeTo(b, func(context.Context, pong) { pongs++ })

	b.emit(context.Background(), ping{n: 1})
	require.Equal(t, []int{1, 10}, got)
	require.Zero(t, pongs)
}

func TestUnsubscribeRemovesOnlyItsHandler(t *testing.T) {
	b := New()
	var a, c int
	unA := SubscribeTo(b, func(context.Context, ping) { a++ })
	SubscribeTo(b, func(context.Context, ping) { c++ })

	unA()
	unA()
	b.emit(context.Background(), ping{})
	require.Equal(t, 0, a)
	require.Equal(t, 1, c)
}

func TestGlobalBus(t *testing.T) {
	Use(nil)
	require.False(t, Enabled())
	Publish(context.Background(), ping{})
	Subscribe(func(context.Context, ping) { t.Fatal("no bus installed") })()

	b := New()
	Use(b)
	t.Cleanup(func() { Use(nil) })
	n := 0
	un := Subscribe(func(_ context.Context, p ping) { n += p.n })
	Publish(context.Background(), ping{n: 2})
	un()
	Publish(context.Background(), ping{n: 3})
	require.Equal(t, 2, n)
}
