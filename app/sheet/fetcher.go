package sheet

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"
)

type Fetcher struct {
	httpClient *http.Client
	userAgent  string
}

func NewFetcher(httpClient *http.Client, userAgent string) *Fetcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Fetcher{
		httpClient: httpClient,
		userAgent:  userAgent,
	}
}

// Run retrieves both feeds concurrently. Either failure fails the whole call.
func (f *Fetcher) Run(ctx context.Context, milestonesURL, configURL string) (*Payloads, error) {
	var payloads Payloads

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		data, err := f.fetch(gctx, milestonesURL)
		if err != nil {
			return fmt.Errorf("milestones feed: %w", err)
		}
		payloads.Milestones = data
		return nil
	})

	g.Go(func() error {
		data, err := f.fetch(gctx, configURL)
		if err != nil {
			return fmt.Errorf("config feed: %w", err)
		}
		payloads.Config = data
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	slog.Debug("Feeds fetched", "milestones_bytes", len(payloads.Milestones), "config_bytes", len(payloads.Config))
	return &payloads, nil
}

func (f *Fetcher) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP error: %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
