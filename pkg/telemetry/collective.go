package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is used for every span StartCollective opens: the comm
// collectives (broadcast, gather, scatter, send_across_network, fetch,
// gather_float64) and the rendezvous, distributed-query and transfer
// build/apply steps. Group.Barrier calls open no span.
const tracerName = "github.com/transfermesh/dtk/comm"

// StartCollective opens a span around a collective entry point. spec.md
// §5 treats every collective as an explicit synchronization barrier that
// must not be reordered or hoisted; the span's start/end timestamps make
// that program order visible in a trace. When Enabled() is false the span
// comes from otel's default no-op provider and records nothing.
func StartCollective(ctx context.Context, name string, rank, size int, elements int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(
		attribute.Int("dtk.rank", rank),
		attribute.Int("dtk.size", size),
		attribute.Int("dtk.elements", elements),
	))
}
