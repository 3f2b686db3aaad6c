// Package server serves an execute.Schema over HTTP using the GraphQL
// request format: POST with a JSON body, a JSON array for batches, or GET
// with URL parameters.
package server

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	graphql "github.com/graph-gophers/graphql-go"
	qerrors "github.com/graph-gophers/graphql-go/errors"
	"github.com/hanpama/typeddoc/execute"
	eventbus "github.com/hanpama/typeddoc/internal/eventbus"
	events "github.com/hanpama/typeddoc/internal/events"
	"github.com/hanpama/typeddoc/internal/language"
	reqid "github.com/hanpama/typeddoc/internal/reqid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RequestIDHeader carries the ID the handler assigned to a request.
const RequestIDHeader = "X-Request-Id"

// Handler is an http.Handler that serves a GraphQL endpoint.
type Handler struct {
	schema *execute.Schema
	opt    Options
}

type Options struct {
	// Timeout sets a default timeout if the incoming request context has none.
	// 0 means no default timeout.
	Timeout time.Duration

	// Pretty enables indented JSON responses.
	Pretty bool

	// MaxBodyBytes limits the size of the request body. 0 means unlimited.
	MaxBodyBytes int64

	// CORS configuration. If AllowedOrigins is empty, CORS is disabled.
	CORS CORSOptions

	Logger *zap.Logger
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                 { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option    { return func(o *Options) { o.MaxBodyBytes = n } }
func WithCORS(origins ...string) Option {
	return func(o *Options) { o.CORS.AllowedOrigins = origins }
}
func WithLogger(l *zap.Logger) Option { return func(o *Options) { o.Logger = l } }

// CORSOptions holds simple CORS settings.
type CORSOptions struct {
	AllowedOrigins []string
}

// New creates a handler executing requests against schema's default root.
func New(schema *execute.Schema, opts ...Option) *Handler {
	op := Options{Timeout: 10 * time.Second, Logger: zap.NewNop()}
	for _, f := range opts {
		f(&op)
	}
	return &Handler{schema: schema, opt: op}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}
	ctx, rid := reqid.Ensure(ctx)
	w.Header().Set(RequestIDHeader, strconv.FormatInt(rid, 10))

	if r.Method == http.MethodOptions {
		if len(h.opt.CORS.AllowedOrigins) > 0 {
			setCORSHeaders(w, r, h.opt.CORS)
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse("method not allowed"), h.opt.Pretty)
		return
	}

	req, batch, msg := parseRequest(r, h.opt.MaxBodyBytes)
	if msg != "" {
		status := http.StatusBadRequest
		if msg == errBodyTooLargeMessage {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, errorResponse(msg), h.opt.Pretty)
		return
	}
	if len(h.opt.CORS.AllowedOrigins) > 0 {
		setCORSHeaders(w, r, h.opt.CORS)
	}

	if batch != nil {
		out := make([]*graphql.Response, len(batch))
		for i := range batch {
			out[i] = h.executeOne(ctx, batch[i])
		}
		writeJSON(w, http.StatusOK, out, h.opt.Pretty)
		return
	}
	writeJSON(w, http.StatusOK, h.executeOne(ctx, req), h.opt.Pretty)
}

func (h *Handler) executeOne(ctx context.Context, req Request) *graphql.Response {
	// the operation type is only needed for events; graphql-go reports
	// syntax errors itself
	opType := ""
	if doc, err := language.ParseQuery(req.Query); err == nil {
		if op, err := language.SelectOperation(doc, req.OperationName); err == nil {
			opType = string(op.Operation)
		}
	}

	start := time.Now()
	eventbus.Publish(ctx, events.OperationStart{
		Transport:     "server",
		OperationName: req.OperationName,
		OperationType: opType,
		Query:         req.Query,
	})
	resp := h.schema.Raw().Exec(ctx, req.Query, req.OperationName, req.Variables)
	errs := make([]error, len(resp.Errors))
	for i, e := range resp.Errors {
		errs[i] = e
	}
	eventbus.Publish(ctx, events.OperationFinish{
		Transport:     "server",
		OperationName: req.OperationName,
		OperationType: opType,
		Errors:        errs,
		Duration:      time.Since(start),
	})
	h.opt.Logger.Debug("served operation",
		zap.String("operation", req.OperationName),
		zap.Int("errors", len(errs)),
		zap.Duration("duration", time.Since(start)))
	return resp
}

// Request is one GraphQL request as sent by clients.
type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
	Extensions    map[string]any `json:"extensions,omitempty"`
}

const errBodyTooLargeMessage = "body too large"

// parseRequest returns either a single request or a batch. A non-empty
// message reports a malformed request.
func parseRequest(r *http.Request, maxBody int64) (Request, []Request, string) {
	if r.Method == http.MethodGet {
		q := r.URL.Query().Get("query")
		if q == "" {
			return Request{}, nil, "missing 'query'"
		}
		vars := map[string]any{}
		if v := r.URL.Query().Get("variables"); v != "" {
			if err := json.Unmarshal([]byte(v), &vars); err != nil {
				return Request{}, nil, "invalid 'variables' JSON"
			}
		}
		return Request{Query: q, Variables: vars, OperationName: r.URL.Query().Get("operationName")}, nil, ""
	}

	ct := r.Header.Get("Content-Type")
	if ct != "" && ct != "application/json" && !strings.HasPrefix(ct, "application/json;") {
		return Request{}, nil, "unsupported Content-Type"
	}
	defer r.Body.Close()
	reader := io.Reader(r.Body)
	if maxBody > 0 {
		reader = io.LimitReader(r.Body, maxBody+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return Request{}, nil, "failed to read body"
	}
	if maxBody > 0 && int64(len(body)) > maxBody {
		return Request{}, nil, errBodyTooLargeMessage
	}

	if len(body) > 0 && body[0] == '[' {
		var batch []Request
		if err := json.Unmarshal(body, &batch); err != nil {
			return Request{}, nil, "invalid JSON"
		}
		if len(batch) == 0 {
			return Request{}, nil, "empty batch"
		}
		return Request{}, batch, ""
	}
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return Request{}, nil, "invalid JSON"
	}
	if req.Query == "" {
		return Request{}, nil, "missing 'query'"
	}
	return req, nil, ""
}

func errorResponse(msg string) *graphql.Response {
	return &graphql.Response{Errors: []*qerrors.QueryError{{Message: msg}}}
}

func writeJSON(w http.ResponseWriter, status int, v any, pretty bool) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}

func setCORSHeaders(w http.ResponseWriter, r *http.Request, opts CORSOptions) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	wildcard := false
	allowed := false
	for _, o := range opts.AllowedOrigins {
		if o == "*" {
			wildcard = true
		}
		if o == "*" || o == origin {
			allowed = true
		}
	}
	if !allowed {
		return
	}
	if wildcard {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	} else {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Vary", "Origin")
	}
	if r.Method == http.MethodOptions {
		if hdr := r.Header.Get("Access-Control-Request-Headers"); hdr != "" {
			w.Header().Set("Access-Control-Allow-Headers", hdr)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	}
}
