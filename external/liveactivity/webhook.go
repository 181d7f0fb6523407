package liveactivity

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/riskibarqy/rugby-live/internal/fanout"
	"github.com/riskibarqy/rugby-live/internal/platform/logging"
	"github.com/riskibarqy/rugby-live/internal/platform/resilience"
)

var errWebhookTransient = crerr.New("live activity webhook transient failure")

type WebhookConfig struct {
	HTTPClient     *http.Client
	URL            string
	Token          string
	Retries        int
	Timeout        time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// WebhookUpdater posts live activity state as JSON to a relay that owns the
// platform-specific live activity push (APNs live activities and friends).
type WebhookUpdater struct {
	client         *http.Client
	endpoint       string
	token          string
	retries        int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
}

func NewWebhookUpdater(cfg WebhookConfig) (*WebhookUpdater, error) {
	endpoint, err := validateHTTPURL(cfg.URL)
	if err != nil {
		return nil, crerr.Wrap(err, "invalid LIVE_ACTIVITY_WEBHOOK_URL")
	}

	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &WebhookUpdater{
		client:         client,
		endpoint:       endpoint,
		token:          strings.TrimSpace(cfg.Token),
		retries:        max(cfg.Retries, 0),
		logger:         logger.Named("live_activity"),
		breaker:        resilience.NewCircuitBreaker("live_activity_webhook", breakerCfg),
		circuitEnabled: breakerCfg.Enabled,
	}, nil
}

func (w *WebhookUpdater) UpdateLiveActivity(ctx context.Context, state fanout.ActivityState) error {
	if w.circuitEnabled {
		if err := w.breaker.Allow(); err != nil {
			w.logger.WarnContext(ctx, "live activity circuit breaker rejected request", "state", w.breaker.State())
			return crerr.Wrap(err, "live activity webhook is temporarily unavailable")
		}
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	if err := sonic.ConfigDefault.NewEncoder(buf).Encode(state); err != nil {
		w.recordCircuitResult(nil)
		return crerr.Wrap(err, "encode live activity state")
	}

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.SetAttributes(
			attribute.Int64("live_activity.match_id", state.MatchID),
			attribute.String("live_activity.status", state.Status),
		)
	}

	var lastErr error
	for attempt := 0; attempt <= w.retries; attempt++ {
		lastErr = w.post(ctx, buf.B)
		if lastErr == nil || !isCircuitFailure(lastErr) {
			break
		}
		if attempt == w.retries {
			break
		}
		timer := time.NewTimer(time.Duration(attempt+1) * 200 * time.Millisecond)
		select {
		case <-ctx.Done():
			timer.Stop()
			w.recordCircuitResult(lastErr)
			return ctx.Err()
		case <-timer.C:
		}
	}

	w.recordCircuitResult(lastErr)
	if lastErr != nil {
		return lastErr
	}
	w.logger.DebugContext(ctx, "live activity updated", "match_id", state.MatchID, "status", state.Status)
	return nil
}

func (w *WebhookUpdater) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, strings.NewReader(string(body)))
	if err != nil {
		return crerr.Wrap(err, "create live activity request")
	}
	req.Header.Set("Content-Type", "application/json")
	if w.token != "" {
		req.Header.Set("Authorization", "Bearer "+w.token)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: post live activity: %v", errWebhookTransient, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode/100 == 2 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if isRetryableStatus(resp.StatusCode) {
		return fmt.Errorf("%w: live activity status=%d body=%s", errWebhookTransient, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return crerr.Newf("live activity status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(raw)))
}

func (w *WebhookUpdater) recordCircuitResult(err error) {
	if !w.circuitEnabled || w.breaker == nil {
		return
	}
	w.breaker.Record(isCircuitFailure(err))
}

func isCircuitFailure(err error) bool {
	if err == nil {
		return false
	}
	return stderrors.Is(err, errWebhookTransient)
}

func isRetryableStatus(statusCode int) bool {
	return statusCode == http.StatusRequestTimeout ||
		statusCode == http.StatusTooManyRequests ||
		statusCode >= http.StatusInternalServerError
}

func validateHTTPURL(raw string) (string, error) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return "", crerr.New("value is empty")
	}

	parsed, err := url.Parse(candidate)
	if err != nil {
		return "", crerr.Wrapf(err, "parse %q", candidate)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", crerr.Newf("%q uses unsupported scheme=%q; expected http or https", candidate, parsed.Scheme)
	}
	if strings.TrimSpace(parsed.Host) == "" {
		return "", crerr.Newf("%q has empty host", candidate)
	}

	return candidate, nil
}
