package otel

import (
	"context"
	"sync"

	eventbus "github.com/hanpama/typeddoc/internal/eventbus"
	events "github.com/hanpama/typeddoc/internal/events"
	reqid "github.com/hanpama/typeddoc/internal/reqid"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Setup configures OpenTelemetry and attaches eventbus subscribers.
// If endpoint is empty, no telemetry is configured.
func Setup(endpoint, service string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(context.Background(),
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetTracerProvider(tp)

	unsubscribe := Attach(otel.Tracer("typeddoc"))
	return func(ctx context.Context) error {
		unsubscribe()
		return tp.Shutdown(ctx)
	}, nil
}

// Attach subscribes span-producing handlers on the global bus using tracer.
// Start and finish events are paired by the request ID carried in the context.
func Attach(tracer trace.Tracer) (unsubscribe func()) {
	s := &subscriber{tracer: tracer}
	return s.register()
}

type subscriber struct {
	tracer    trace.Tracer
	opSpans   sync.Map // rid -> trace.Span
	httpSpans sync.Map // rid -> trace.Span
}

func (s *subscriber) register() func() {
	var offs []func()
	offs = append(offs, eventbus.Subscribe(func(ctx context.Context, e events.OperationStart) {
		rid, _ := reqid.FromContext(ctx)
		_, span := s.tracer.Start(ctx, "graphql."+e.Transport, trace.WithSpanKind(kindOf(e.Transport)))
		span.SetAttributes(
			attribute.String("graphql.operation.name", e.OperationName),
			attribute.String("graphql.operation.type", e.OperationType),
		)
		s.opSpans.Store(rid, span)
	}))

	offs = append(offs, eventbus.Subscribe(func(ctx context.Context, e events.OperationFinish) {
		rid, _ := reqid.FromContext(ctx)
		v, ok := s.opSpans.LoadAndDelete(rid)
		if !ok {
			return
		}
		span := v.(trace.Span)
		span.SetAttributes(attribute.Int("graphql.error_count", len(e.Errors)))
		if len(e.Errors) > 0 {
			span.SetStatus(codes.Error, e.Errors[0].Error())
		}
		span.End()
	}))

	offs = append(offs, eventbus.Subscribe(func(ctx context.Context, e events.HTTPStart) {
		rid, _ := reqid.FromContext(ctx)
		parent := ctx
		if v, ok := s.opSpans.Load(rid); ok {
			parent = trace.ContextWithSpan(ctx, v.(trace.Span))
		}
		_, span := s.tracer.Start(parent, "http.request", trace.WithSpanKind(trace.SpanKindClient))
		span.SetAttributes(
			semconv.HTTPMethodKey.String(e.Request.Method),
			attribute.String("http.url", e.Request.URL.String()),
		)
		s.httpSpans.Store(rid, span)
	}))

	offs = append(offs, eventbus.Subscribe(func(ctx context.Context, e events.HTTPFinish) {
		rid, _ := reqid.FromContext(ctx)
		v, ok := s.httpSpans.LoadAndDelete(rid)
		if !ok {
			return
		}
		span := v.(trace.Span)
		if e.Err != nil {
			span.RecordError(e.Err)
			span.SetStatus(codes.Error, e.Err.Error())
		} else {
			span.SetAttributes(semconv.HTTPStatusCodeKey.Int(e.Status))
		}
		span.End()
	}))

	offs = append(offs, eventbus.Subscribe(func(ctx context.Context, e events.PatchOutcome) {
		_, span := s.tracer.Start(ctx, "typeddoc.patch")
		span.SetAttributes(
			attribute.String("patch.file", e.File),
			attribute.String("patch.package", e.Package),
			attribute.String("patch.range", e.Range),
			attribute.String("patch.installed", e.Installed),
			attribute.String("patch.status", e.Status),
			attribute.String("patch.reason", e.Reason),
			attribute.Bool("patch.reverse", e.Reverse),
		)
		if e.Err != nil {
			span.RecordError(e.Err)
		}
		span.End()
	}))

	offs = append(offs, eventbus.Subscribe(func(ctx context.Context, e events.GenerateFinish) {
		_, span := s.tracer.Start(ctx, "typeddoc.generate")
		span.SetAttributes(
			attribute.Int("generate.operations", e.Operations),
			attribute.String("generate.output", e.Output),
			attribute.Bool("generate.cached", e.Cached),
		)
		if e.Err != nil {
			span.RecordError(e.Err)
			span.SetStatus(codes.Error, e.Err.Error())
		}
		span.End()
	}))

	return func() {
		for _, off := range offs {
			off()
		}
	}
}

func kindOf(transport string) trace.SpanKind {
	switch transport {
	case "client":
		return trace.SpanKindClient
	case "server":
		return trace.SpanKindServer
	}
	return trace.SpanKindInternal
}
