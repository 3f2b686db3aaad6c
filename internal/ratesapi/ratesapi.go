// Package ratesapi is a small exchange-rate GraphQL service used to exercise
// the execution and client adapters end to end.
package ratesapi

import (
	"context"
	_ "embed"
	"sort"
	"sync"

	graphql "github.com/graph-gophers/graphql-go"
)

//go:generate go run github.com/hanpama/typeddoc/cmd/typeddoc generate --config typeddoc.yml

//go:embed schema.graphqls
var SDL string

//go:embed operations.graphql
var Operations string

// Base is the currency every stored rate is quoted against.
const Base = "USD"

type rate struct {
	value float64
	name  *string
	trend string
}

// Resolver is the root resolver. The zero value is not usable; use New.
type Resolver struct {
	mu    sync.RWMutex
	rates map[string]rate
	// Ticks is the number of events a rateChanged subscription emits.
	Ticks int
}

func strp(s string) *string { return &s }

// New returns a resolver seeded with a fixed rate table.
func New() *Resolver {
	return &Resolver{
		Ticks: 3,
		rates: map[string]rate{
			"EUR": {value: 0.9, name: strp("Euro"), trend: "FLAT"},
			"GBP": {value: 0.8, name: strp("Pound Sterling"), trend: "FLAT"},
			"JPY": {value: 150, trend: "FLAT"},
		},
	}
}

// MustSchema parses SDL with r as the root resolver.
func MustSchema(r *Resolver) *graphql.Schema {
	return graphql.MustParseSchema(SDL, r)
}

type RateResolver struct {
	currency string
	r        rate
}

func (r *RateResolver) Currency() string { return r.currency }
func (r *RateResolver) Rate() float64    { return r.r.value }
func (r *RateResolver) Name() *string    { return r.r.name }
func (r *RateResolver) Trend() string    { return r.r.trend }

// Rates lists every known currency quoted against args.Currency, sorted by
// code. An unknown base yields an empty list.
func (q *Resolver) Rates(args struct{ Currency string }) []*RateResolver {
	q.mu.RLock()
	defer q.mu.RUnlock()
	var div float64
	switch {
	case args.Currency == Base:
		div = 1
	default:
		b, ok := q.rates[args.Currency]
		if !ok {
			return []*RateResolver{}
		}
		div = b.value
	}
	out := make([]*RateResolver, 0, len(q.rates)+1)
	if args.Currency != Base {
		out = append(out, &RateResolver{currency: Base, r: rate{value: 1 / div, trend: "FLAT"}})
	}
	for c, r := range q.rates {
		if c == args.Currency {
			continue
		}
		r.value /= div
		out = append(out, &RateResolver{currency: c, r: r})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].currency < out[j].currency })
	return out
}

type rateArgs struct {
	Currency string
	Rate     float64
	Name     *string
}

// SetRate stores a rate against Base and records its trend.
func (q *Resolver) SetRate(args struct{ Input rateArgs }) *RateResolver {
	q.mu.Lock()
	defer q.mu.Unlock()
	in := args.Input
	prev, ok := q.rates[in.Currency]
	next := rate{value: in.Rate, name: in.Name, trend: "FLAT"}
	if next.name == nil {
		next.name = prev.name
	}
	if ok && in.Rate > prev.value {
		next.trend = "UP"
	} else if ok && in.Rate < prev.value {
		next.trend = "DOWN"
	}
	q.rates[in.Currency] = next
	return &RateResolver{currency: in.Currency, r: next}
}

// RateChanged emits Ticks events for args.Currency, each one hundredth
// above the last, then ends the stream.
func (q *Resolver) RateChanged(ctx context.Context, args struct{ Currency string }) <-chan *RateResolver {
	q.mu.RLock()
	start := q.rates[args.Currency]
	ticks := q.Ticks
	q.mu.RUnlock()
	ch := make(chan *RateResolver)
	go func() {
		defer close(ch)
		r := start
		for i := 0; i < ticks; i++ {
			r.value += 0.01
			r.trend = "UP"
			select {
			case ch <- &RateResolver{currency: args.Currency, r: r}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}
