package telemetry

import (
	"context"
	"testing"
	"time"
)

func TestInitIdempotent(t *testing.T) {
	Init()
	Init()
	if LinesProcessed == nil || Classified == nil {
		t.Fatal("metrics not registered")
	}
	// Touch the vec to make sure the labels are wired.
	Classified.WithLabelValues("drop").Inc()
	RecordsPersisted.WithLabelValues("player_kill").Inc()
	PollCycles.WithLabelValues("twitch").Inc()
}

func TestSetLiveStreamers(t *testing.T) {
	Init()
	SetLiveStreamers(3)
	SetLiveStreamers(0)
}

func TestTimeFunc(t *testing.T) {
	Init()
	d := TimeFunc(PriceLookupDuration, func() { time.Sleep(5 * time.Millisecond) })
	if d < 5*time.Millisecond {
		t.Errorf("TimeFunc returned %v, want >= 5ms", d)
	}
	// nil observer must not panic
	TimeFunc(nil, func() {})
}

func TestCorrelation(t *testing.T) {
	ctx := context.Background()
	if got := GetCorrelation(ctx); got != "" {
		t.Errorf("GetCorrelation on empty ctx = %q", got)
	}
	ctx = WithCorrelation(ctx, "abc-123")
	if got := GetCorrelation(ctx); got != "abc-123" {
		t.Errorf("GetCorrelation = %q, want abc-123", got)
	}
	if l := LoggerWithCorr(ctx); l == nil {
		t.Fatal("LoggerWithCorr returned nil")
	}
}
