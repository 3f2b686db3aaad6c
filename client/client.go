// Package client sends typed documents through a genqlient graphql.Client.
// Every entry point takes its result and variables types from the document
// argument, so a call site never names them.
//
// The wrapped client stays reachable through GraphQL for untyped use.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Khan/genqlient/graphql"
	"github.com/gorilla/websocket"
	"github.com/hanpama/typeddoc"
	eventbus "github.com/hanpama/typeddoc/internal/eventbus"
	events "github.com/hanpama/typeddoc/internal/events"
	reqid "github.com/hanpama/typeddoc/internal/reqid"
	"github.com/hanpama/typeddoc/internal/wsproto"
	"go.uber.org/zap"
)

var (
	ErrNoStore    = errors.New("client: no store configured")
	ErrNotStream  = errors.New("client: document is not a subscription")
	ErrNoEndpoint = errors.New("client: no subscription endpoint configured")
)

// FetchPolicy decides whether a query consults the store before the network.
type FetchPolicy string

const (
	// NetworkOnly always sends the request. Results are still written to the
	// store when one is configured.
	NetworkOnly FetchPolicy = "network-only"
	// CacheFirst answers from the store when it holds a result for the same
	// document and variables.
	CacheFirst FetchPolicy = "cache-first"
	// CacheAndNetwork answers from the store first and then from the network.
	// Query returns the network result; WatchQuery emits both.
	CacheAndNetwork FetchPolicy = "cache-and-network"
)

// Client sends typed operations.
type Client struct {
	gql    graphql.Client
	store  Store
	policy FetchPolicy
	logger *zap.Logger

	wsEndpoint string
	dialer     *websocket.Dialer
	wsHeader   http.Header
}

// Option configures a Client.
type Option func(*Client)

// WithStore enables the cache accessors and the cache fetch policies.
func WithStore(s Store) Option { return func(c *Client) { c.store = s } }

// WithFetchPolicy sets the policy used when an operation does not name one.
func WithFetchPolicy(p FetchPolicy) Option { return func(c *Client) { c.policy = p } }

// WithLogger sets the client logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithSubscriptionEndpoint sets the graphql-transport-ws endpoint used by
// Subscribe.
func WithSubscriptionEndpoint(url string, header http.Header) Option {
	return func(c *Client) {
		c.wsEndpoint = url
		c.wsHeader = header
	}
}

// WithDialer overrides the websocket dialer. The subprotocol is always set.
func WithDialer(d *websocket.Dialer) Option { return func(c *Client) { c.dialer = d } }

// New returns a client posting to endpoint through doer. A nil doer uses
// http.DefaultClient.
func New(endpoint string, doer graphql.Doer, opts ...Option) *Client {
	if doer == nil {
		doer = http.DefaultClient
	}
	return Wrap(graphql.NewClient(endpoint, observedDoer{next: doer}), opts...)
}

// Wrap adapts an existing genqlient client.
func Wrap(gql graphql.Client, opts ...Option) *Client {
	c := &Client{gql: gql, policy: NetworkOnly, logger: zap.NewNop()}
	for _, o := range opts {
		o(c)
	}
	dialer := websocket.DefaultDialer
	if c.dialer != nil {
		dialer = c.dialer
	}
	d := *dialer
	d.Subprotocols = []string{wsproto.Subprotocol}
	c.dialer = &d
	return c
}

// GraphQL returns the wrapped client. Calls made through it keep genqlient's
// untyped request and response.
func (c *Client) GraphQL() graphql.Client { return c.gql }

// Store returns the configured store, or nil.
func (c *Client) Store() Store { return c.store }

func (c *Client) policyFor(p FetchPolicy) FetchPolicy {
	if p == "" {
		return c.policy
	}
	return p
}

// send performs one request and returns the raw data payload alongside the
// response. GraphQL errors are returned as a gqlerror.List together with any
// partial data.
func (c *Client) send(ctx context.Context, doc typeddoc.Node, opName string, vars map[string]any) (json.RawMessage, *graphql.Response, error) {
	ctx, _ = reqid.Ensure(ctx)
	start := time.Now()
	eventbus.Publish(ctx, events.OperationStart{
		Transport:     "client",
		OperationName: opName,
		OperationType: string(doc.Operation()),
		Query:         doc.Source(),
	})

	var data json.RawMessage
	resp := &graphql.Response{Data: &data}
	req := &graphql.Request{Query: doc.Source(), OpName: opName}
	if len(vars) > 0 {
		req.Variables = vars
	}
	err := c.gql.MakeRequest(ctx, req, resp)

	var errs []error
	if err != nil {
		errs = []error{err}
	}
	eventbus.Publish(ctx, events.OperationFinish{
		Transport:     "client",
		OperationName: opName,
		OperationType: string(doc.Operation()),
		Errors:        errs,
		Duration:      time.Since(start),
	})
	c.logger.Debug("graphql request",
		zap.String("operation", opName),
		zap.Duration("duration", time.Since(start)),
		zap.Error(err))
	return data, resp, err
}

// observedDoer publishes HTTP start and finish events around each request.
type observedDoer struct{ next graphql.Doer }

func (d observedDoer) Do(req *http.Request) (*http.Response, error) {
	if !eventbus.Enabled() {
		return d.next.Do(req)
	}
	ctx := req.Context()
	start := time.Now()
	eventbus.Publish(ctx, events.HTTPStart{Request: req})
	resp, err := d.next.Do(req)
	fin := events.HTTPFinish{Request: req, Err: err, Duration: time.Since(start)}
	if resp != nil {
		fin.Status = resp.StatusCode
	}
	eventbus.Publish(ctx, fin)
	return resp, err
}
