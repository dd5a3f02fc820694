package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"tft-ladder/internal/config"
	"tft-ladder/internal/constants"
	"tft-ladder/internal/domain"
	"tft-ladder/internal/metrics"
	"time"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"
)

const (
	EndpointLeague   = "league"
	EndpointMatchIDs = "match_ids"
	EndpointMatch    = "match"
)

// leaguePaths maps tracked tiers to their league-v1 endpoints.
var leaguePaths = map[string]string{
	domain.TierChallenger:  "challenger",
	domain.TierGrandmaster: "grandmaster",
	domain.TierMaster:      "master",
}

type RiotClient struct {
	apiKey      string
	regionalURL string
	platformURL string
	client      *fasthttp.Client
	limiters    []*rate.Limiter
	metrics     *metrics.Metrics
	logger      zerolog.Logger

	rateLimitMu sync.RWMutex
	rateLimit   RateLimitInfo
}

// RateLimitInfo is the last set of rate headers seen from upstream.
type RateLimitInfo struct {
	AppLimit    []RateWindow `json:"app_limit"`
	AppCount    []RateWindow `json:"app_count"`
	MethodLimit []RateWindow `json:"method_limit"`
	MethodCount []RateWindow `json:"method_count"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// RateWindow is one "count:seconds" pair of a Riot rate header.
type RateWindow struct {
	Count  int           `json:"count"`
	Window time.Duration `json:"window"`
}

// NewRiotClient fails without an API key, so only binaries that call Riot
// need one configured.
func NewRiotClient(cfg *config.Config, m *metrics.Metrics, logger zerolog.Logger) (*RiotClient, error) {
	if strings.TrimSpace(cfg.RiotAPIKey) == "" {
		return nil, &domain.ValidationError{Field: "riot_api_key", Reason: "RIOT_API_KEY is required"}
	}
	return &RiotClient{
		apiKey:      cfg.RiotAPIKey,
		regionalURL: cfg.RegionalBaseURL,
		platformURL: cfg.PlatformBaseURL,
		client: &fasthttp.Client{
			MaxConnsPerHost:     constants.DefaultConcurrency * 4,
			ReadTimeout:         constants.ExternalAPITimeout,
			WriteTimeout:        constants.ExternalAPITimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		limiters: []*rate.Limiter{
			rate.NewLimiter(rate.Every(constants.RiotShortWindow/constants.RiotShortLimit), constants.RiotShortLimit),
			rate.NewLimiter(rate.Every(constants.RiotLongWindow/constants.RiotLongLimit), constants.RiotLongLimit),
		},
		metrics: m,
		logger:  logger,
	}, nil
}

func (c *RiotClient) GetRateLimitInfo() RateLimitInfo {
	c.rateLimitMu.RLock()
	defer c.rateLimitMu.RUnlock()
	return c.rateLimit
}

func (c *RiotClient) updateRateLimit(resp *fasthttp.Response) {
	c.rateLimitMu.Lock()
	defer c.rateLimitMu.Unlock()

	if v := string(resp.Header.Peek("X-App-Rate-Limit")); v != "" {
		c.rateLimit.AppLimit = ParseRateWindows(v)
	}
	if v := string(resp.Header.Peek("X-App-Rate-Limit-Count")); v != "" {
		c.rateLimit.AppCount = ParseRateWindows(v)
	}
	if v := string(resp.Header.Peek("X-Method-Rate-Limit")); v != "" {
		c.rateLimit.MethodLimit = ParseRateWindows(v)
	}
	if v := string(resp.Header.Peek("X-Method-Rate-Limit-Count")); v != "" {
		c.rateLimit.MethodCount = ParseRateWindows(v)
	}
	c.rateLimit.UpdatedAt = time.Now()
}

// ParseRateWindows reads headers like "20:1,100:120". Malformed pairs are skipped.
func ParseRateWindows(header string) []RateWindow {
	var windows []RateWindow
	for _, pair := range strings.Split(header, ",") {
		count, seconds, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(count)
		if err != nil {
			continue
		}
		s, err := strconv.Atoi(seconds)
		if err != nil {
			continue
		}
		windows = append(windows, RateWindow{Count: n, Window: time.Duration(s) * time.Second})
	}
	return windows
}

// GetLeague fetches the full league for one of the tracked apex tiers.
func (c *RiotClient) GetLeague(ctx context.Context, tier string) (*LeagueList, error) {
	path, ok := leaguePaths[domain.NormalizeTier(tier)]
	if !ok {
		return nil, &domain.ValidationError{Field: "tier", Reason: fmt.Sprintf("no league endpoint for %q", tier)}
	}
	u := fmt.Sprintf("%s/tft/league/v1/%s", c.regionalURL, path)
	return doRequest[LeagueList](ctx, c, EndpointLeague, u)
}

// GetMatchIDs returns the player's most recent match ids, newest first.
func (c *RiotClient) GetMatchIDs(ctx context.Context, puuid string, count int) ([]string, error) {
	if count <= 0 || count > constants.MaxMatchesPerPlayer {
		count = constants.MaxMatchesPerPlayer
	}
	u := fmt.Sprintf("%s/tft/match/v1/matches/by-puuid/%s/ids?start=0&count=%d", c.platformURL, url.PathEscape(puuid), count)
	ids, err := doRequest[[]string](ctx, c, EndpointMatchIDs, u)
	if err != nil {
		return nil, err
	}
	return *ids, nil
}

// GetMatch returns the match document exactly as served.
func (c *RiotClient) GetMatch(ctx context.Context, matchID string) (json.RawMessage, error) {
	u := fmt.Sprintf("%s/tft/match/v1/matches/%s", c.platformURL, url.PathEscape(matchID))
	raw, err := doRequest[json.RawMessage](ctx, c, EndpointMatch, u)
	if err != nil {
		return nil, err
	}
	return *raw, nil
}

func (c *RiotClient) wait(ctx context.Context) error {
	for _, l := range c.limiters {
		if err := l.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}
	return nil
}

func doRequest[T any](ctx context.Context, client *RiotClient, endpoint, url string) (*T, error) {
	if err := client.wait(ctx); err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("X-Riot-Token", client.apiKey)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	var err error
	if deadline, ok := ctx.Deadline(); ok {
		err = client.client.DoDeadline(req, resp, deadline)
	} else {
		err = client.client.DoTimeout(req, resp, constants.ExternalAPITimeout)
	}
	if err != nil {
		client.metrics.APICall(endpoint, 0, time.Since(start).Seconds())
		return nil, fmt.Errorf("%s request failed: %w: %w", endpoint, domain.ErrTransient, err)
	}

	status := resp.StatusCode()
	client.metrics.APICall(endpoint, status, time.Since(start).Seconds())
	client.updateRateLimit(resp)

	if status != fasthttp.StatusOK {
		err := statusError(endpoint, resp)
		client.logger.Debug().Err(err).Str("endpoint", endpoint).Int("status", status).Msg("upstream request rejected")
		return nil, err
	}

	var result T
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	return &result, nil
}

func statusError(endpoint string, resp *fasthttp.Response) error {
	status := resp.StatusCode()
	switch {
	case status == fasthttp.StatusNotFound:
		return fmt.Errorf("%s: %w", endpoint, domain.ErrNotFound)
	case status == fasthttp.StatusTooManyRequests:
		return &RateLimitError{
			RetryAfter: retryAfter(string(resp.Header.Peek("Retry-After"))),
			LimitType:  string(resp.Header.Peek("X-Rate-Limit-Type")),
		}
	default:
		return &StatusError{Endpoint: endpoint, StatusCode: status}
	}
}

func retryAfter(header string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// RateLimitError is a 429. RetryAfter is zero when upstream sent no hint.
type RateLimitError struct {
	RetryAfter time.Duration
	LimitType  string
}

func (e *RateLimitError) Error() string {
	if e.LimitType != "" {
		return fmt.Sprintf("rate limited (%s), retry after %s", e.LimitType, e.RetryAfter)
	}
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

func (e *RateLimitError) Is(target error) bool {
	return target == domain.ErrTransient
}

type StatusError struct {
	Endpoint   string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: API error: %d", e.Endpoint, e.StatusCode)
}

// Is reports gateway and server overload codes as transient and auth
// rejections as unauthorized.
func (e *StatusError) Is(target error) bool {
	switch target {
	case domain.ErrTransient:
		switch e.StatusCode {
		case fasthttp.StatusInternalServerError, fasthttp.StatusBadGateway,
			fasthttp.StatusServiceUnavailable, fasthttp.StatusGatewayTimeout:
			return true
		}
	case domain.ErrUnauthorized:
		return e.StatusCode == fasthttp.StatusUnauthorized || e.StatusCode == fasthttp.StatusForbidden
	}
	return false
}

// RetryDelay returns the wait upstream asked for, if any.
func RetryDelay(err error) (time.Duration, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter, true
	}
	return 0, false
}
