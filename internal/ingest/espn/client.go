package espn

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/fortuna/halftime/internal/metrics"
)

const (
	BaseURL       = "https://site.api.espn.com"
	BasketballNBA = "basketball/nba"

	DefaultUserAgent = "halftime/1.0 (+https://github.com/fortuna/halftime)"
	DefaultTimeout   = 15 * time.Second

	maxBodyBytes = 16 << 20
)

var (
	// ErrFeedUnavailable is returned when the feed cannot be reached or
	// answers with a non-JSON error response.
	ErrFeedUnavailable = errors.New("live feed unavailable")
	// ErrMalformedFeed is returned when a payload is missing expected keys
	// or carries values that cannot be parsed.
	ErrMalformedFeed = errors.New("malformed live feed payload")
)

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	BaseURL    string
	UserAgent  string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.SugaredLogger
}

// Client issues scoreboard and summary requests against the ESPN site API.
// It never retries; every failure is returned to the caller.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	logger    *zap.SugaredLogger
}

// New creates a new ESPN API client.
func New(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = BaseURL
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &Client{
		baseURL:   baseURL,
		userAgent: userAgent,
		http:      httpClient,
		logger:    logger,
	}
}

func (c *Client) sportURL(endpoint string) string {
	return fmt.Sprintf("%s/apis/site/v2/sports/%s/%s", c.baseURL, BasketballNBA, endpoint)
}

// FetchScoreboard fetches the games for a date. A zero date asks for the
// feed's own notion of today.
func (c *Client) FetchScoreboard(ctx context.Context, date time.Time) (*Scoreboard, error) {
	url := c.sportURL("scoreboard")
	if !date.IsZero() {
		url += "?dates=" + date.Format("20060102")
	}

	var board Scoreboard
	if err := c.fetch(ctx, "scoreboard", url, &board); err != nil {
		return nil, err
	}
	return &board, nil
}

// FetchSummary fetches the game summary carrying the box score.
func (c *Client) FetchSummary(ctx context.Context, gameID string) (*Summary, error) {
	url := c.sportURL("summary") + "?event=" + gameID

	var summary Summary
	if err := c.fetch(ctx, "summary", url, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (c *Client) fetch(ctx context.Context, endpoint, url string, out interface{}) error {
	start := time.Now()
	defer func() {
		metrics.FeedRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	err := c.do(ctx, url, out)
	if err != nil {
		metrics.FeedErrors.WithLabelValues(endpoint).Inc()
		c.logger.Debugw("feed request failed", "endpoint", endpoint, "url", url, "error", err)
	}
	return err
}

func (c *Client) do(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: building request for %s: %v", ErrFeedUnavailable, url, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: GET %s: %v", ErrFeedUnavailable, url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: reading %s: %v", ErrFeedUnavailable, url, err)
	}

	// ESPN answers blocked or unknown requests with an HTML page.
	if looksLikeHTML(body) {
		return fmt.Errorf("%w: %s returned HTML page (status %d): %s",
			ErrFeedUnavailable, url, resp.StatusCode, summarizeHTML(body))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s returned status %d: %s",
			ErrFeedUnavailable, url, resp.StatusCode, truncate(string(body), 200))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decoding %s: %v (body: %s)",
			ErrMalformedFeed, url, err, truncate(string(body), 200))
	}
	return nil
}

func looksLikeHTML(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) > 0 && trimmed[0] == '<'
}

// summarizeHTML returns the page title, or the start of the visible text.
func summarizeHTML(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return truncate(string(body), 200)
	}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	return truncate(strings.Join(strings.Fields(doc.Text()), " "), 200)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
