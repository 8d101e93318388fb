package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrSeasonNotPublished is returned when the remote repository has no file
// for the requested season (HTTP 404).
var ErrSeasonNotPublished = errors.New("season file not published at source")

// availableSeasons maps each supported season to its file name in the
// upstream repository. New seasons are added here when the source publishes
// them.
var availableSeasons = map[string]string{
	"2020-21": "Thai League 1 20-21.csv",
	"2021-22": "Thai League 1 21-22.csv",
	"2022-23": "Thai League 1 22-23.csv",
	"2023-24": "Thai League 1 23-24.csv",
	"2024-25": "Thai League 1 24-25.csv",
}

// KnownSeasons returns the supported seasons in chronological order.
func KnownSeasons() []string {
	seasons := make([]string, 0, len(availableSeasons))
	for s := range availableSeasons {
		seasons = append(seasons, s)
	}
	sort.Strings(seasons)
	return seasons
}

// IsKnownSeason reports whether the season exists in the source registry.
func IsKnownSeason(season string) bool {
	_, ok := availableSeasons[season]
	return ok
}

// Client fetches season statistics files from the commit-pinned GitHub
// raw-content endpoint.
type Client struct {
	baseURL     string
	commit      string
	httpClient  *http.Client
	rateLimiter chan struct{} // Rate limiting semaphore
	maxRetries  int
	retryDelay  time.Duration
}

// NewClient creates a new source client. rateLimit bounds concurrent
// downloads; the upstream is a public file host so the limit stays small.
func NewClient(baseURL, commit string, timeout time.Duration, rateLimit int) *Client {
	if rateLimit <= 0 {
		rateLimit = 5
	}

	rateLimiter := make(chan struct{}, rateLimit)
	for i := 0; i < rateLimit; i++ {
		rateLimiter <- struct{}{}
	}

	return &Client{
		baseURL:     baseURL,
		commit:      commit,
		rateLimiter: rateLimiter,
		maxRetries:  3,
		retryDelay:  1 * time.Second,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// SeasonURL returns the pinned raw-content URL for a season's file.
func (c *Client) SeasonURL(season string) (string, error) {
	filename, ok := availableSeasons[season]
	if !ok {
		return "", fmt.Errorf("unknown season %q", season)
	}
	return fmt.Sprintf("%s/%s/Main App/%s", c.baseURL, c.commit, url.PathEscape(filename)), nil
}

// FetchSeasonCSV downloads the raw CSV content for a season.
func (c *Client) FetchSeasonCSV(ctx context.Context, season string) ([]byte, error) {
	seasonURL, err := c.SeasonURL(season)
	if err != nil {
		return nil, err
	}

	body, err := c.get(ctx, seasonURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch season %s: %w", season, err)
	}
	return body, nil
}

// get performs a GET request with retry logic and rate limiting
func (c *Client) get(ctx context.Context, requestURL string) ([]byte, error) {
	// Rate limiting: acquire semaphore for the whole call including retries
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.rateLimiter:
	}
	defer func() { c.rateLimiter <- struct{}{} }()

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: 1s, 2s, 4s
			backoff := c.retryDelay * time.Duration(1<<uint(attempt-1))
			log.Info().
				Str("url", requestURL).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("Retrying source request after backoff")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("Accept", "text/csv, text/plain")
		req.Header.Set("User-Agent", "thaileague-pipeline/1.0")

		log.Debug().
			Str("url", requestURL).
			Int("attempt", attempt+1).
			Msg("Downloading source file")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("source request failed: %w", err)
			// Retry on network errors
			if attempt < c.maxRetries {
				continue
			}
			return nil, lastErr
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response body: %w", err)
			if attempt < c.maxRetries {
				continue
			}
			return nil, lastErr
		}

		// Handle different status codes
		switch resp.StatusCode {
		case http.StatusOK:
			log.Debug().
				Str("url", requestURL).
				Int("status", resp.StatusCode).
				Int("size", len(body)).
				Msg("Source download successful")
			return body, nil

		case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			// Retryable errors
			lastErr = fmt.Errorf("source returned retryable status %d", resp.StatusCode)
			if attempt < c.maxRetries {
				log.Warn().
					Str("url", requestURL).
					Int("status", resp.StatusCode).
					Int("attempt", attempt+1).
					Msg("Received retryable error, will retry")
				continue
			}
			return nil, lastErr

		case http.StatusNotFound:
			// The file does not exist at the pinned commit; don't retry
			return nil, ErrSeasonNotPublished

		default:
			// Other errors - don't retry
			return nil, fmt.Errorf("source returned status %d", resp.StatusCode)
		}
	}

	return nil, lastErr
}
