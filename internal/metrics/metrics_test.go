package metrics

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/HerbHall/wificomp/internal/event"
)

func TestCollector_CountsBusEvents(t *testing.T) {
	bus := event.NewBus(zap.NewNop())
	c := New(zap.NewNop())
	c.Attach(bus)
	ctx := context.Background()

	bus.Publish(ctx, event.Event{Topic: event.TopicSessionStarted})
	bus.Publish(ctx, event.Event{Topic: event.TopicScanCompleted, Payload: event.ScanCompleted{
		APCount: 7, Excluded: 2, Duration: 2 * time.Second,
	}})
	bus.Publish(ctx, event.Event{Topic: event.TopicScanCompleted, Payload: event.ScanCompleted{
		APCount: 5, Manual: true, Duration: time.Second,
	}})
	bus.Publish(ctx, event.Event{Topic: event.TopicScanFailed, Payload: event.ScanFailed{
		Reason: "busy", Duration: time.Second,
	}})
	bus.Publish(ctx, event.Event{Topic: event.TopicScanDiscarded})
	bus.Publish(ctx, event.Event{Topic: event.TopicSessionSaved})

	if got := testutil.ToFloat64(c.scans.WithLabelValues("timer")); got != 1 {
		t.Errorf("timer scans = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.scans.WithLabelValues("manual")); got != 1 {
		t.Errorf("manual scans = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.failures.WithLabelValues("busy")); got != 1 {
		t.Errorf("busy failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.visible); got != 5 {
		t.Errorf("visible = %v, want 5 (latest scan)", got)
	}
	if got := testutil.ToFloat64(c.excluded); got != 0 {
		t.Errorf("excluded = %v, want 0", got)
	}
	if got := testutil.ToFloat64(c.discarded); got != 1 {
		t.Errorf("discarded = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.sessions); got != 1 {
		t.Errorf("sessions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.saves); got != 1 {
		t.Errorf("saves = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(c.duration); n != 1 {
		t.Errorf("duration histogram series = %d, want 1", n)
	}
}

func TestCollector_IgnoresBadPayload(t *testing.T) {
	bus := event.NewBus(zap.NewNop())
	c := New(zap.NewNop())
	c.Attach(bus)

	bus.Publish(context.Background(), event.Event{Topic: event.TopicScanCompleted, Payload: "nope"})

	if got := testutil.ToFloat64(c.scans.WithLabelValues("timer")); got != 0 {
		t.Errorf("timer scans = %v, want 0", got)
	}
}

func TestCollector_Detach(t *testing.T) {
	bus := event.NewBus(zap.NewNop())
	c := New(zap.NewNop())
	c.Attach(bus)
	c.Detach()

	bus.Publish(context.Background(), event.Event{Topic: event.TopicSessionStarted})
	if got := testutil.ToFloat64(c.sessions); got != 0 {
		t.Errorf("sessions = %v, want 0 after Detach", got)
	}
}

func TestCollector_Handler(t *testing.T) {
	c := New(zap.NewNop())
	c.sessions.Inc()

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "wificomp_sessions_started_total 1") {
		t.Errorf("body missing sessions counter:\n%s", rec.Body.String())
	}
}
