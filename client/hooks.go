package client

import (
	"context"
	"sync"
	"time"

	"github.com/hanpama/typeddoc"
)

// QueryFunc runs a lazy query with the given variables.
type QueryFunc[R, V any] func(ctx context.Context, variables V) (*QueryResult[R, V], error)

// QueryState tracks the latest run of a lazy query.
type QueryState[R, V any] struct {
	mu      sync.RWMutex
	called  bool
	loading bool
	result  *QueryResult[R, V]
	err     error
}

// Called reports whether the query function has been invoked.
func (s *QueryState[R, V]) Called() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.called
}

// Loading reports whether a run is in flight.
func (s *QueryState[R, V]) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Result returns the outcome of the latest completed run.
func (s *QueryState[R, V]) Result() (*QueryResult[R, V], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result, s.err
}

// Data is a shortcut for the latest result's data.
func (s *QueryState[R, V]) Data() *R {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.result == nil {
		return nil
	}
	return s.result.Data
}

// LazyQuery returns a function that runs doc on demand and the state it
// updates.
func LazyQuery[R, V any](c *Client, doc *typeddoc.Document[R, V], opts ...CallOption) (QueryFunc[R, V], *QueryState[R, V]) {
	state := &QueryState[R, V]{}
	run := func(ctx context.Context, variables V) (*QueryResult[R, V], error) {
		state.mu.Lock()
		state.called = true
		state.loading = true
		state.mu.Unlock()

		res, err := Query(ctx, c, doc, variables, opts...)

		state.mu.Lock()
		state.loading = false
		state.result, state.err = res, err
		state.mu.Unlock()
		return res, err
	}
	return run, state
}

// Update is one emission of an ObservableQuery.
type Update[R, V any] struct {
	Result *QueryResult[R, V]
	Err    error
}

// ObservableQuery emits a result for the initial fetch and for every refetch
// until stopped.
type ObservableQuery[R, V any] struct {
	c       *Client
	doc     *typeddoc.Document[R, V]
	vars    V
	cfg     callConfig
	out     chan Update[R, V]
	refetch chan V
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

// WatchQuery starts watching doc. The observable runs until Stop is called
// or ctx is done, then closes its Results channel.
func WatchQuery[R, V any](ctx context.Context, c *Client, doc *typeddoc.Document[R, V], variables V, opts ...CallOption) *ObservableQuery[R, V] {
	o := &ObservableQuery[R, V]{
		c:       c,
		doc:     doc,
		vars:    variables,
		cfg:     newCallConfig(opts),
		out:     make(chan Update[R, V]),
		refetch: make(chan V),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go o.run(ctx)
	return o
}

// Results delivers updates in fetch order.
func (o *ObservableQuery[R, V]) Results() <-chan Update[R, V] { return o.out }

// Refetch fetches again from the network with variables, which also become
// the variables of later polls.
func (o *ObservableQuery[R, V]) Refetch(variables V) {
	select {
	case o.refetch <- variables:
	case <-o.done:
	}
}

// Stop ends the observable and waits for it to shut down.
func (o *ObservableQuery[R, V]) Stop() {
	o.once.Do(func() { close(o.stop) })
	<-o.done
}

func (o *ObservableQuery[R, V]) run(ctx context.Context) {
	defer close(o.done)
	defer close(o.out)

	if o.cfg.raw != nil {
		v, err := typeddoc.Bind[V](o.cfg.raw)
		if err != nil {
			o.emit(ctx, Update[R, V]{Err: err})
			return
		}
		o.vars, o.cfg.raw = v, nil
	}
	vars := o.vars
	if !o.initial(ctx, vars) {
		return
	}

	var tick <-chan time.Time
	if o.cfg.poll > 0 {
		t := time.NewTicker(o.cfg.poll)
		defer t.Stop()
		tick = t.C
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-o.stop:
			return
		case v := <-o.refetch:
			vars = v
			if !o.fetch(ctx, vars) {
				return
			}
		case <-tick:
			if !o.fetch(ctx, vars) {
				return
			}
		}
	}
}

// initial emits the cached result when the policy allows it, then fetches
// from the network unless the policy is CacheFirst and the cache answered.
func (o *ObservableQuery[R, V]) initial(ctx context.Context, vars V) bool {
	policy := o.c.policyFor(o.cfg.policy)
	if policy != NetworkOnly {
		q, err := prepare(o.doc, vars, o.cfg)
		if err != nil {
			o.emit(ctx, Update[R, V]{Err: err})
			return false
		}
		if res, ok := cached(ctx, o.c, q); ok {
			if !o.emit(ctx, Update[R, V]{Result: res}) {
				return false
			}
			if policy == CacheFirst {
				return true
			}
		}
	}
	return o.fetch(ctx, vars)
}

func (o *ObservableQuery[R, V]) fetch(ctx context.Context, vars V) bool {
	cfg := o.cfg
	cfg.policy = NetworkOnly
	q, err := prepare(o.doc, vars, cfg)
	if err != nil {
		return o.emit(ctx, Update[R, V]{Err: err})
	}
	res, err := q.fetch(ctx, o.c)
	return o.emit(ctx, Update[R, V]{Result: res, Err: err})
}

func (o *ObservableQuery[R, V]) emit(ctx context.Context, u Update[R, V]) bool {
	select {
	case o.out <- u:
		return true
	case <-o.stop:
		return false
	case <-ctx.Done():
		return false
	}
}
