package logger

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"SignalSentinel/internal/trace"
)

// Operation measures one unit of work. The caller that starts it owns it and
// must close it with End or EndWithError.
type Operation struct {
	ctx   context.Context
	span  oteltrace.Span
	name  string
	start time.Time
	log   zerolog.Logger
	done  bool
}

// StartOperation opens a span and starts the clock. Fields are key/value pairs.
func StartOperation(ctx context.Context, name string, fields ...any) *Operation {
	ctx, span := trace.StartSpan(ctx, name)
	span.SetAttributes(attributes(fields)...)

	lc := log.With().Str("operation", name)
	if len(fields) > 0 {
		lc = lc.Fields(fields)
	}
	if traceID, spanID, ok := trace.TraceFields(ctx); ok {
		lc = lc.Str("trace_id", traceID).Str("span_id", spanID)
	}
	return &Operation{ctx: ctx, span: span, name: name, start: time.Now(), log: lc.Logger()}
}

// Context carries the operation span for nested calls.
func (o *Operation) Context() context.Context { return o.ctx }

// End closes the operation and returns its duration. Closing twice is a no-op.
func (o *Operation) End(fields ...any) time.Duration {
	d := time.Since(o.start)
	if o.done {
		return d
	}
	o.done = true

	o.span.SetAttributes(attribute.Int64("duration_ms", d.Milliseconds()))
	o.span.SetAttributes(attributes(fields)...)
	o.span.End()

	ev := o.log.Debug().Int64("duration_ms", d.Milliseconds())
	if len(fields) > 0 {
		ev = ev.Fields(fields)
	}
	ev.Msg("operation completed")
	return d
}

// EndWithError closes the operation as failed.
func (o *Operation) EndWithError(err error, fields ...any) time.Duration {
	d := time.Since(o.start)
	if o.done {
		return d
	}
	o.done = true

	o.span.SetAttributes(attribute.Int64("duration_ms", d.Milliseconds()))
	o.span.SetAttributes(attributes(fields)...)
	o.span.RecordError(err)
	o.span.SetStatus(codes.Error, err.Error())
	o.span.End()

	ev := o.log.Error().Err(err).Int64("duration_ms", d.Milliseconds())
	if len(fields) > 0 {
		ev = ev.Fields(fields)
	}
	ev.Msg("operation failed")
	return d
}

func attributes(fields []any) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		switch v := fields[i+1].(type) {
		case string:
			attrs = append(attrs, attribute.String(key, v))
		case int:
			attrs = append(attrs, attribute.Int(key, v))
		case int64:
			attrs = append(attrs, attribute.Int64(key, v))
		case float64:
			attrs = append(attrs, attribute.Float64(key, v))
		case bool:
			attrs = append(attrs, attribute.Bool(key, v))
		default:
			attrs = append(attrs, attribute.String(key, fmt.Sprint(v)))
		}
	}
	return attrs
}
