// Package hh fetches job postings from the HH.ru listing API.
package hh

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/arodionov/vacpipe/internal/model"
	"github.com/arodionov/vacpipe/internal/ratelimit"
)

const (
	// DefaultBaseURL is the production listing endpoint.
	DefaultBaseURL = "https://api.hh.ru/vacancies"

	// pacerKey identifies the listing API in the shared Pacer.
	pacerKey = "hh"
)

// Query describes one vacancy search.
type Query struct {
	Text           string
	Area           int // HH area ID, e.g. 113 for Russia
	Specialization int // HH specialization ID, e.g. 1 for IT
	PerPage        int
	MaxPages       int
}

// Fetcher paginates through the listing API until a page comes back empty,
// the page cap is reached, or a request fails. The empty page itself is
// requested: the stopping condition is observing zero items, so a search
// exhausted at page N issues N+1 requests.
type Fetcher struct {
	baseURL   string
	userAgent string
	query     Query
	client    *http.Client
	pacer     *ratelimit.Pacer
	logger    *slog.Logger
}

// NewFetcher creates a Fetcher for the given query. The pacer enforces the
// mandatory inter-page delay; all fetchers talking to the listing API should
// share one instance.
func NewFetcher(baseURL, userAgent string, query Query, client *http.Client, pacer *ratelimit.Pacer, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		baseURL:   baseURL,
		userAgent: userAgent,
		query:     query,
		client:    client,
		pacer:     pacer,
		logger:    logger,
	}
}

// Fetch collects vacancies page by page. On a transport or decode error it
// returns everything collected so far alongside the error; the caller never
// gets a silent empty result masking a failure. There is no retry here: a
// failed page aborts the run.
func (f *Fetcher) Fetch(ctx context.Context) (model.FetchResult, error) {
	var result model.FetchResult

	for page := 0; page < f.query.MaxPages; page++ {
		if err := f.pacer.Wait(ctx, pacerKey); err != nil {
			return result, err
		}

		items, err := f.fetchPage(ctx, page)
		if err != nil {
			return result, fmt.Errorf("fetching page %d: %w", page, err)
		}
		result.Pages++

		if len(items) == 0 {
			f.logger.Debug("page empty, pagination exhausted", "page", page)
			break
		}

		for _, item := range items {
			result.Items = append(result.Items, mapItem(item))
		}
		f.logger.Debug("page fetched", "page", page, "items", len(items))
	}

	f.logger.Info("fetch complete", "pages", result.Pages, "items", len(result.Items))
	return result, nil
}

func (f *Fetcher) fetchPage(ctx context.Context, page int) ([]listingItem, error) {
	params := url.Values{}
	params.Set("text", f.query.Text)
	if f.query.Area != 0 {
		params.Set("area", strconv.Itoa(f.query.Area))
	}
	if f.query.Specialization != 0 {
		params.Set("specialization", strconv.Itoa(f.query.Specialization))
	}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(f.query.PerPage))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        fmt.Errorf("listing API returned unexpected status"),
		}
	}

	var listing listingResponse
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("decoding listing response: %w", err)
	}

	return listing.Items, nil
}
