package tracing

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys for command runs.
const (
	AttrCommandName  = "command.name"
	AttrRunID        = "run.id"
	AttrRunOutcome   = "run.outcome"
	AttrErrorMessage = "error.message"
)

// SpanPrefixRun prefixes every run span name.
const SpanPrefixRun = "command.run."

// Outcome values that map to span status.
const (
	OutcomeCompleted = "Completed"
	OutcomeFaulted   = "Faulted"
	OutcomeCanceled  = "Canceled"
)

// EventCancelRequested marks the point a cancel was requested on a run span.
const EventCancelRequested = "cancel.requested"

// StartRun opens the span for one run of command. A nil tracer records nothing.
func StartRun(ctx context.Context, tracer trace.Tracer, command string, runID uuid.UUID) (context.Context, trace.Span) {
	if tracer == nil {
		tracer = Noop()
	}
	return tracer.Start(ctx, SpanPrefixRun+command,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String(AttrCommandName, command),
			attribute.String(AttrRunID, runID.String()),
		),
	)
}

// EndRun records the outcome on span and ends it. Faulted runs get an error
// status, completed runs Ok, canceled runs stay Unset.
func EndRun(span trace.Span, outcome string, err error) {
	span.SetAttributes(attribute.String(AttrRunOutcome, outcome))

	switch outcome {
	case OutcomeFaulted:
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String(AttrErrorMessage, err.Error()))
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Error, outcome)
		}
	case OutcomeCompleted:
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// MarkCanceled adds a cancel event to the span carried by ctx.
func MarkCanceled(ctx context.Context) {
	trace.SpanFromContext(ctx).AddEvent(EventCancelRequested)
}

// AbortRun ends a span for a run that never got scheduled.
func AbortRun(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
