// Package ticker pushes live score snapshots to the venue ticker board.
package ticker

import (
	"context"
	"fmt"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"
	"github.com/valyala/fasthttp"

	"github.com/flagday/scorecard/internal/domain/scorecard"
	"github.com/flagday/scorecard/internal/platform/logging"
	"github.com/flagday/scorecard/internal/platform/resilience"
	"github.com/flagday/scorecard/internal/usecase"
)

const (
	defaultTimeout = 5 * time.Second
	snapshotPath   = "/v1/board/snapshot"
)

var errTickerTransient = crerr.New("ticker transient failure")

type PublisherConfig struct {
	BaseURL        string
	Token          string
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Publisher implements usecase.SnapshotPublisher against the ticker board's
// HTTP ingest endpoint.
type Publisher struct {
	client         *fasthttp.Client
	baseURL        string
	token          string
	timeout        time.Duration
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
}

func NewPublisher(cfg PublisherConfig) *Publisher {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Publisher{
		client: &fasthttp.Client{
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		},
		baseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		token:          strings.TrimSpace(cfg.Token),
		timeout:        timeout,
		maxRetries:     maxRetries,
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

func (p *Publisher) PublishSnapshot(ctx context.Context, view scorecard.GameScoreView) error {
	if p.circuitEnabled {
		if err := p.breaker.Allow(); err != nil {
			p.logger.WarnContext(ctx, "ticker circuit breaker rejected snapshot", "game_id", view.GameID, "state", p.breaker.State())
			return fmt.Errorf("%w: ticker board is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	payload, err := sonic.Marshal(snapshotFromView(view))
	if err != nil {
		return fmt.Errorf("encode ticker snapshot: %w", err)
	}
	if _, err := buf.Write(payload); err != nil {
		return fmt.Errorf("buffer ticker snapshot: %w", err)
	}

	err = p.post(ctx, buf.B)
	if p.circuitEnabled {
		if err != nil && crerr.Is(err, errTickerTransient) {
			p.breaker.RecordFailure()
		} else {
			p.breaker.RecordSuccess()
		}
	}
	if err != nil {
		return fmt.Errorf("publish snapshot game_id=%s: %w", view.GameID, err)
	}
	return nil
}

func (p *Publisher) post(ctx context.Context, body []byte) error {
	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		req := fasthttp.AcquireRequest()
		resp := fasthttp.AcquireResponse()

		req.SetRequestURI(p.baseURL + snapshotPath)
		req.Header.SetMethod(fasthttp.MethodPost)
		req.Header.SetContentType("application/json")
		if p.token != "" {
			req.Header.Set("X-Ticker-Token", p.token)
		}
		req.SetBody(body)

		err := p.client.DoTimeout(req, resp, p.timeout)
		status := resp.StatusCode()

		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)

		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %v", errTickerTransient, err)
		} else if status >= 200 && status < 300 {
			return nil
		} else if isRetryableStatus(status) {
			lastErr = fmt.Errorf("%w: ticker status=%d", errTickerTransient, status)
		} else {
			return fmt.Errorf("ticker status=%d", status)
		}

		if attempt == p.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * 500 * time.Millisecond
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}

func isRetryableStatus(status int) bool {
	switch status {
	case fasthttp.StatusRequestTimeout, fasthttp.StatusTooManyRequests:
		return true
	}
	return status >= 500
}

type snapshotDocument struct {
	GameID string           `json:"gameId"`
	Phase  string           `json:"phase"`
	Home   teamLineDocument `json:"home"`
	Away   teamLineDocument `json:"away"`
}

type teamLineDocument struct {
	Name       string `json:"name"`
	Score      int    `json:"score"`
	FirstHalf  *int   `json:"firstHalf"`
	SecondHalf *int   `json:"secondHalf"`
}

func snapshotFromView(view scorecard.GameScoreView) snapshotDocument {
	return snapshotDocument{
		GameID: view.GameID,
		Phase:  string(view.Phase),
		Home:   teamLineFromView(view.Home),
		Away:   teamLineFromView(view.Away),
	}
}

func teamLineFromView(team scorecard.TeamScoreView) teamLineDocument {
	return teamLineDocument{
		Name:       team.Name,
		Score:      team.Score,
		FirstHalf:  halfPoints(team.FirstHalf),
		SecondHalf: halfPoints(team.SecondHalf),
	}
}

// halfPoints keeps the not-played sentinel on the wire: nil means the half
// has no subtotal yet, distinct from a played zero.
func halfPoints(half scorecard.HalfScore) *int {
	if !half.Played {
		return nil
	}
	v := half.Points
	return &v
}
