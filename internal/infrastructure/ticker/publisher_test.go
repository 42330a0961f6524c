package ticker

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	sonic "github.com/bytedance/sonic"

	"github.com/flagday/scorecard/internal/domain/scorecard"
	"github.com/flagday/scorecard/internal/platform/logging"
	"github.com/flagday/scorecard/internal/platform/resilience"
)

func testView() scorecard.GameScoreView {
	game := scorecard.NewGameLedger("game-1", "Rapids", "Comets")
	return game.Snapshot()
}

func TestPublishSnapshotSendsTokenAndBody(t *testing.T) {
	var gotToken atomic.Value
	var gotBody atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken.Store(r.Header.Get("X-Ticker-Token"))
		raw, _ := io.ReadAll(r.Body)
		gotBody.Store(raw)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	publisher := NewPublisher(PublisherConfig{
		BaseURL: srv.URL,
		Token:   "board-token",
		Logger:  logging.NewNop(),
	})

	if err := publisher.PublishSnapshot(context.Background(), testView()); err != nil {
		t.Fatalf("publish snapshot: %v", err)
	}

	if token, _ := gotToken.Load().(string); token != "board-token" {
		t.Fatalf("unexpected token header: %q", token)
	}

	raw, _ := gotBody.Load().([]byte)
	var doc snapshotDocument
	if err := sonic.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("decode published body: %v", err)
	}
	if doc.GameID != "game-1" {
		t.Fatalf("unexpected game id: %q", doc.GameID)
	}
	if doc.Home.FirstHalf == nil || *doc.Home.FirstHalf != 0 {
		t.Fatalf("expected played first half with zero points, got %+v", doc.Home.FirstHalf)
	}
	if doc.Home.SecondHalf != nil {
		t.Fatalf("expected nil second half before it starts, got %d", *doc.Home.SecondHalf)
	}
}

func TestPublishSnapshotRetriesTransientStatus(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	publisher := NewPublisher(PublisherConfig{
		BaseURL:    srv.URL,
		MaxRetries: 2,
		Logger:     logging.NewNop(),
	})

	if err := publisher.PublishSnapshot(context.Background(), testView()); err != nil {
		t.Fatalf("publish snapshot: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("unexpected call count: got=%d want=2", got)
	}
}

func TestPublishSnapshotDoesNotRetryClientError(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	publisher := NewPublisher(PublisherConfig{
		BaseURL:    srv.URL,
		MaxRetries: 3,
		Logger:     logging.NewNop(),
	})

	if err := publisher.PublishSnapshot(context.Background(), testView()); err == nil {
		t.Fatal("expected error on unauthorized response, got nil")
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("unexpected call count: got=%d want=1", got)
	}
}

func TestPublishSnapshotCircuitOpensAfterFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	publisher := NewPublisher(PublisherConfig{
		BaseURL: srv.URL,
		Logger:  logging.NewNop(),
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 1,
			OpenTimeout:      resilience.DefaultCircuitBreakerConfig().OpenTimeout,
			HalfOpenMaxReq:   1,
		},
	})

	if err := publisher.PublishSnapshot(context.Background(), testView()); err == nil {
		t.Fatal("expected first publish to fail")
	}
	if err := publisher.PublishSnapshot(context.Background(), testView()); err == nil {
		t.Fatal("expected circuit breaker to reject second publish")
	}
	if got := publisher.breaker.State(); got != resilience.CircuitStateOpen {
		t.Fatalf("unexpected circuit state: %v", got)
	}
}
