package oura

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/huangang/ouranotify/internal/config"
	"github.com/huangang/ouranotify/internal/models"
	"github.com/huangang/ouranotify/internal/services/retry"
	"github.com/huangang/ouranotify/pkg/logger"
)

const (
	DefaultBaseURL = "https://api.ouraring.com/v2/usercollection"
	// maxPages bounds next_token pagination of a single range query.
	maxPages = 20
)

var ErrMissingToken = errors.New("oura access token is required")

// APIError is a non-2xx answer from the Oura API.
type APIError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Sprintf("oura %s: authentication failed (check OURA_ACCESS_TOKEN)", e.Endpoint)
	case http.StatusTooManyRequests:
		return fmt.Sprintf("oura %s: rate limit exceeded", e.Endpoint)
	default:
		return fmt.Sprintf("oura %s: status %d: %s", e.Endpoint, e.StatusCode, body)
	}
}

// Client reads the Oura API v2 usercollection endpoints.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	token      string
	baseURL    string
	policy     retry.Policy
	loc        *time.Location
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithRetryPolicy(p retry.Policy) Option {
	return func(c *Client) { c.policy = p }
}

func WithLocation(loc *time.Location) Option {
	return func(c *Client) { c.loc = loc }
}

func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// NewClient builds a client from the oura config section.
func NewClient(cfg config.OuraConfig, opts ...Option) (*Client, error) {
	if cfg.AccessToken == "" {
		return nil, ErrMissingToken
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	limit := rate.Inf
	if cfg.RatePerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RatePerMinute))
	}

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, 10),
		token:      cfg.AccessToken,
		baseURL:    strings.TrimRight(baseURL, "/"),
		policy:     retry.NewPolicy("oura", cfg.MaxRetries, cfg.RetryBackoff),
		loc:        time.Local,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Location is the zone used for datetime query parameters.
func (c *Client) Location() *time.Location {
	return c.loc
}

// get issues one GET with retries and decodes the JSON body into out.
// 429/5xx and connection failures are retried; other statuses and
// malformed JSON fail immediately.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	reqURL := c.baseURL + "/" + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	return c.policy.Do(ctx, func(attempt int) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("oura %s: rate limiter: %w", endpoint, err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return fmt.Errorf("oura %s: build request: %w", endpoint, err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return retry.Transient(fmt.Errorf("oura %s: %w", endpoint, err))
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.Transient(fmt.Errorf("oura %s: read body: %w", endpoint, err))
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			apiErr := &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: string(body)}
			if retry.IsRetryableStatus(resp.StatusCode) {
				return retry.Transient(apiErr)
			}
			return apiErr
		}

		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("oura %s: decode response: %w", endpoint, err)
		}
		logger.Debug().Str("endpoint", endpoint).Int("attempt", attempt).Msg("[Oura] request ok")
		return nil
	})
}

// list fetches every page of a collection endpoint.
func list[T any](ctx context.Context, c *Client, endpoint string, params url.Values) ([]T, error) {
	var items []T
	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}

	for page := 0; page < maxPages; page++ {
		var coll models.Collection[T]
		if err := c.get(ctx, endpoint, query, &coll); err != nil {
			return nil, err
		}
		items = append(items, coll.Data...)
		if coll.NextToken == nil || *coll.NextToken == "" {
			return items, nil
		}
		query.Set("next_token", *coll.NextToken)
	}
	logger.Warnf("[Oura] %s: stopped after %d pages", endpoint, maxPages)
	return items, nil
}

func dayString(t time.Time) string {
	return t.Format(models.DateLayout)
}

func dateParams(start, end time.Time) url.Values {
	return url.Values{
		"start_date": {dayString(start)},
		"end_date":   {dayString(end)},
	}
}

func first[T any](ctx context.Context, c *Client, endpoint string, day time.Time) (*T, error) {
	items, err := list[T](ctx, c, endpoint, dateParams(day, day))
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

// GetSleep returns the daily sleep summary for day, or nil when absent.
func (c *Client) GetSleep(ctx context.Context, day time.Time) (*models.DailySleep, error) {
	return first[models.DailySleep](ctx, c, "daily_sleep", day)
}

// GetReadiness returns the daily readiness for day, or nil when absent.
func (c *Client) GetReadiness(ctx context.Context, day time.Time) (*models.DailyReadiness, error) {
	return first[models.DailyReadiness](ctx, c, "daily_readiness", day)
}

// GetActivity returns the daily activity for day, or nil when absent.
func (c *Client) GetActivity(ctx context.Context, day time.Time) (*models.DailyActivity, error) {
	return first[models.DailyActivity](ctx, c, "daily_activity", day)
}

// GetSleepDetail returns the main sleep session that ended on day. Sessions
// start the previous evening, so the query window opens one day earlier.
func (c *Client) GetSleepDetail(ctx context.Context, day time.Time) (*models.SleepDetail, error) {
	items, err := list[models.SleepDetail](ctx, c, "sleep", dateParams(day.AddDate(0, 0, -1), day))
	if err != nil {
		return nil, err
	}
	return SelectSleepDetail(items, day), nil
}

// SelectSleepDetail picks the session for target: a long sleep dated
// target, else the first long sleep, else the first session dated target,
// else the first session.
func SelectSleepDetail(entries []models.SleepDetail, target time.Time) *models.SleepDetail {
	if len(entries) == 0 {
		return nil
	}
	want := dayString(target)
	matches := func(e *models.SleepDetail) bool {
		d, ok := e.SleepDate()
		return ok && d.Format(models.DateLayout) == want
	}

	var firstLong *models.SleepDetail
	for i := range entries {
		e := &entries[i]
		if !e.IsLongSleep() {
			continue
		}
		if matches(e) {
			return e
		}
		if firstLong == nil {
			firstLong = e
		}
	}
	if firstLong != nil {
		return firstLong
	}
	for i := range entries {
		if matches(&entries[i]) {
			return &entries[i]
		}
	}
	return &entries[0]
}

// GetDailyStress returns the stress summary for day. Failures are logged
// and reported as absent data.
func (c *Client) GetDailyStress(ctx context.Context, day time.Time) *models.DailyStress {
	stress, err := first[models.DailyStress](ctx, c, "daily_stress", day)
	if err != nil {
		logger.Warnf("[Oura] Failed to fetch daily stress for %s: %v", dayString(day), err)
		return nil
	}
	return stress
}

// GetWorkouts returns the workouts recorded on day.
func (c *Client) GetWorkouts(ctx context.Context, day time.Time) ([]models.Workout, error) {
	return c.GetWorkoutsRange(ctx, day, day)
}

func (c *Client) GetWorkoutsRange(ctx context.Context, start, end time.Time) ([]models.Workout, error) {
	return list[models.Workout](ctx, c, "workout", dateParams(start, end))
}

