package rugbyapi

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"golang.org/x/sync/singleflight"

	"github.com/riskibarqy/rugby-live/internal/platform/logging"
	"github.com/riskibarqy/rugby-live/internal/platform/resilience"
	"github.com/riskibarqy/rugby-live/internal/usecase"
)

const (
	defaultBaseURL = "https://v1.rugby.api-sports.io"
	apiKeyHeader   = "x-apisports-key"
	maxBodyBytes   = 6 << 20
)

var errRugbyAPITransient = crerr.New("rugby api transient failure")

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	MaxRetries     int
	RetryBackoff   time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client reads games, standings and teams from the api-sports rugby API and
// returns the raw response documents.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	maxRetries     int
	retryBackoff   time.Duration
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         singleflight.Group
}

type envelope struct {
	Errors   any `json:"errors"`
	Results  int `json:"results"`
	Response any `json:"response"`
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 20 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	retryBackoff := cfg.RetryBackoff
	if retryBackoff <= 0 {
		retryBackoff = time.Second
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         strings.TrimSpace(cfg.APIKey),
		maxRetries:     max(cfg.MaxRetries, 0),
		retryBackoff:   retryBackoff,
		logger:         logger.Named("rugbyapi"),
		breaker:        resilience.NewCircuitBreaker("rugbyapi", breakerCfg),
		circuitEnabled: breakerCfg.Enabled,
	}
}

func (c *Client) Games(ctx context.Context, query usecase.GamesQuery) ([]map[string]any, error) {
	params := map[string]string{}
	if query.Date != "" {
		params["date"] = query.Date
	}
	if query.LeagueID > 0 {
		params["league"] = strconv.FormatInt(query.LeagueID, 10)
	}
	if query.Season > 0 {
		params["season"] = strconv.Itoa(query.Season)
	}

	response, err := c.get(ctx, "/games", params)
	if err != nil {
		return nil, fmt.Errorf("fetch games: %w", err)
	}
	return toMaps(response), nil
}

func (c *Client) Game(ctx context.Context, gameID int64) (map[string]any, bool, error) {
	if gameID <= 0 {
		return nil, false, fmt.Errorf("%w: game id must be greater than zero", usecase.ErrInvalidInput)
	}

	response, err := c.get(ctx, "/games", map[string]string{"id": strconv.FormatInt(gameID, 10)})
	if err != nil {
		return nil, false, fmt.Errorf("fetch game id=%d: %w", gameID, err)
	}
	items := toMaps(response)
	if len(items) == 0 {
		return nil, false, nil
	}
	return items[0], true, nil
}

func (c *Client) Standings(ctx context.Context, leagueID int64, season int) ([]any, error) {
	response, err := c.get(ctx, "/standings", map[string]string{
		"league": strconv.FormatInt(leagueID, 10),
		"season": strconv.Itoa(season),
	})
	if err != nil {
		return nil, fmt.Errorf("fetch standings league=%d season=%d: %w", leagueID, season, err)
	}
	if items, ok := response.([]any); ok {
		return items, nil
	}
	if response == nil {
		return nil, nil
	}
	return []any{response}, nil
}

func (c *Client) Teams(ctx context.Context, leagueID int64, season int) ([]map[string]any, error) {
	response, err := c.get(ctx, "/teams", map[string]string{
		"league": strconv.FormatInt(leagueID, 10),
		"season": strconv.Itoa(season),
	})
	if err != nil {
		return nil, fmt.Errorf("fetch teams league=%d season=%d: %w", leagueID, season, err)
	}
	return toMaps(response), nil
}

// get returns the envelope's response value. Identical concurrent requests
// share one upstream call.
func (c *Client) get(ctx context.Context, path string, query map[string]string) (any, error) {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "rugby api circuit breaker rejected request", "state", c.breaker.State())
			return nil, fmt.Errorf("%w: rugby data provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	fullURL := c.buildURL(path, query)
	out, err, _ := c.flight.Do(fullURL, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			c.breaker.Record(isCircuitFailure(reqErr))
		}
		return raw, reqErr
	})
	if err != nil {
		if isCircuitFailure(err) {
			return nil, fmt.Errorf("%w: %v", usecase.ErrDependencyUnavailable, err)
		}
		return nil, err
	}

	raw, ok := out.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected response payload type %T", out)
	}

	var body envelope
	if err := sonic.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("decode provider payload: %w", err)
	}
	if msg := apiErrorMessage(body.Errors); msg != "" {
		return nil, crerr.Newf("provider error: %s", sanitizeSensitiveText(msg, c.apiKey))
	}
	return unwrapResponse(body.Response), nil
}

func (c *Client) buildURL(path string, query map[string]string) string {
	values := url.Values{}
	for key, value := range query {
		values.Set(key, value)
	}
	fullURL := c.baseURL + path
	if encoded := values.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}
	return fullURL
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("accept", "application/json")
		req.Header.Set(apiKeyHeader, c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %s", errRugbyAPITransient, sanitizeSensitiveText(err.Error(), c.apiKey))
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("%w: read response body: %v", errRugbyAPITransient, readErr)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			case isRetryableStatus(resp.StatusCode):
				lastErr = fmt.Errorf("%w: provider status=%d body=%s", errRugbyAPITransient, resp.StatusCode, abbreviateBody(raw))
			default:
				return nil, fmt.Errorf("provider status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
			}
		}

		if attempt == c.maxRetries {
			break
		}
		timer := time.NewTimer(time.Duration(attempt+1) * c.retryBackoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("provider request failed")
	}
	c.logger.WarnContext(ctx, "rugby api request failed", "url", fullURL, "error", lastErr)
	return nil, lastErr
}

// apiErrorMessage flattens the envelope's errors field, which the provider
// sends as an empty array on success and as an object keyed by field on failure.
func apiErrorMessage(raw any) string {
	switch typed := raw.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(typed)
	case []any:
		parts := make([]string, 0, len(typed))
		for _, item := range typed {
			if msg := apiErrorMessage(item); msg != "" {
				parts = append(parts, msg)
			}
		}
		return strings.Join(parts, "; ")
	case map[string]any:
		keys := make([]string, 0, len(typed))
		for key := range typed {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, key := range keys {
			if msg := apiErrorMessage(typed[key]); msg != "" {
				parts = append(parts, key+": "+msg)
			}
		}
		return strings.Join(parts, "; ")
	default:
		return strings.TrimSpace(fmt.Sprint(typed))
	}
}

// unwrapResponse tolerates proxies that wrap the provider envelope once more.
func unwrapResponse(response any) any {
	for range 3 {
		nested, ok := response.(map[string]any)
		if !ok {
			return response
		}
		inner, ok := nested["response"]
		if !ok {
			return response
		}
		response = inner
	}
	return response
}

func toMaps(response any) []map[string]any {
	switch typed := response.(type) {
	case []any:
		out := make([]map[string]any, 0, len(typed))
		for _, item := range typed {
			if doc, ok := item.(map[string]any); ok {
				out = append(out, doc)
			}
		}
		return out
	case map[string]any:
		return []map[string]any{typed}
	default:
		return nil
	}
}

func sanitizeSensitiveText(value, apiKey string) string {
	value = strings.TrimSpace(value)
	if value == "" || apiKey == "" {
		return value
	}
	return strings.ReplaceAll(value, apiKey, "REDACTED")
}

func isCircuitFailure(err error) bool {
	if err == nil {
		return false
	}
	return stderrors.Is(err, errRugbyAPITransient)
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}
