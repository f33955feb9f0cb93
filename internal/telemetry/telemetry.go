// Package telemetry provides OpenTelemetry tracing for spielbash runs.
//
// Tracing is off unless Init is given a trace file; until then the global
// no-op tracer provider is in place and every helper here is a cheap no-op.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/steveyegge/spielbash"

// maxAttrLen caps string attributes (typed commands, captured output).
const maxAttrLen = 256

var (
	initMu         sync.Mutex
	initDone       bool
	globalProvider *Provider
)

// Provider owns the installed tracer provider and the trace file.
type Provider struct {
	mu        sync.Mutex
	shutdowns []func(context.Context) error
	done      bool
}

// Init installs a stdout-format span exporter writing to traceFile.
// It returns (nil, nil) when traceFile is empty. Init is idempotent: later
// calls return the first provider.
func Init(ctx context.Context, serviceName, serviceVersion, traceFile string) (*Provider, error) {
	initMu.Lock()
	defer initMu.Unlock()
	if initDone {
		return globalProvider, nil
	}
	if traceFile == "" {
		initDone = true
		return nil, nil
	}

	f, err := os.Create(traceFile)
	if err != nil {
		return nil, fmt.Errorf("creating trace file: %w", err)
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(f))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("creating span exporter: %w", err)
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", serviceVersion),
		),
	)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("building trace resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	p := &Provider{}
	p.shutdowns = []func(context.Context) error{
		tp.Shutdown,
		func(context.Context) error { return f.Close() },
	}
	globalProvider = p
	initDone = true
	return p, nil
}

// Shutdown flushes pending spans and closes the trace file.
// Safe to call more than once and from several goroutines.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return nil
	}
	p.done = true

	var errs []error
	for _, fn := range p.shutdowns {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// StartSpan starts a span on the spielbash tracer.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan records err (if any) on span and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// RecordKeySend adds a key.send event to the span in ctx.
func RecordKeySend(ctx context.Context, session, key string, err error) {
	trace.SpanFromContext(ctx).AddEvent("key.send", trace.WithAttributes(
		attribute.String("session", session),
		attribute.String("key", key),
		attribute.String("status", statusStr(err)),
		errKV(err),
	))
}

// RecordPaneRead adds a pane.read event to the span in ctx.
func RecordPaneRead(ctx context.Context, session string, size int, err error) {
	trace.SpanFromContext(ctx).AddEvent("pane.read", trace.WithAttributes(
		attribute.String("session", session),
		attribute.Int("bytes", size),
		attribute.String("status", statusStr(err)),
		errKV(err),
	))
}

// RecordCapture adds a variable.capture event to the span in ctx.
func RecordCapture(ctx context.Context, variable, value string, matched bool) {
	trace.SpanFromContext(ctx).AddEvent("variable.capture", trace.WithAttributes(
		attribute.String("variable", variable),
		attribute.String("value", truncateOutput(value, maxAttrLen)),
		attribute.Bool("matched", matched),
	))
}

// Text returns a string attribute truncated to a loggable length.
func Text(key, value string) attribute.KeyValue {
	return attribute.String(key, truncateOutput(value, maxAttrLen))
}

func statusStr(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func errKV(err error) attribute.KeyValue {
	if err == nil {
		return attribute.String("error", "")
	}
	return attribute.String("error", err.Error())
}

// truncateOutput trims s to max bytes, appending an ellipsis when cut.
func truncateOutput(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
