package kafkax

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestSplitBrokers(t *testing.T) {
	got := SplitBrokers(" kafka-1:9092, ,kafka-2:9092 ")
	if len(got) != 2 || got[0] != "kafka-1:9092" || got[1] != "kafka-2:9092" {
		t.Fatalf("unexpected brokers: %#v", got)
	}
	if SplitBrokers("") != nil {
		t.Fatal("expected nil for empty input")
	}
}

func TestNewEventMessageMeta(t *testing.T) {
	msg := NewEventMessage(context.Background(), "biometrics.appointment.booked.v1", "evt-1", "user-1", []byte(`{}`))
	if msg.Topic != "biometrics.appointment.booked.v1" {
		t.Fatalf("unexpected topic %q", msg.Topic)
	}
	meta := ExtractEventMeta(msg)
	if meta.EventID != "evt-1" || meta.EventType != "biometrics.appointment.booked.v1" {
		t.Fatalf("unexpected meta: %+v", meta)
	}
}

func TestExtractEventMetaFallsBackToKeyAndTopic(t *testing.T) {
	meta := ExtractEventMeta(kafka.Message{Topic: "t", Key: []byte("k")})
	if meta.EventID != "k" || meta.EventType != "t" {
		t.Fatalf("unexpected meta: %+v", meta)
	}
}

func TestInjectTraceHeadersAppendsTraceparent(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
		SpanID:     trace.SpanID{1, 2, 3, 4, 5, 6, 7, 8},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	headers := InjectTraceHeaders(ctx, []kafka.Header{{Key: "event_id", Value: []byte("evt-1")}})
	if HeaderValue(headers, "event_id") != "evt-1" {
		t.Fatalf("existing headers must be kept: %#v", headers)
	}
	if HeaderValue(headers, "traceparent") == "" {
		t.Fatalf("expected traceparent header, got %#v", headers)
	}
}
