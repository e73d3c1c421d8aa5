// Package rates resolves historical currency exchange rates from the Central
// Bank daily-rate XML feed and converts vacancy salaries to a single target
// currency.
package rates

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/arodionov/vacpipe/internal/model"
	"github.com/arodionov/vacpipe/internal/ratelimit"
	"github.com/arodionov/vacpipe/internal/retry"
	"golang.org/x/text/encoding/charmap"
)

const (
	// DefaultBaseURL is the CBR daily rates endpoint.
	DefaultBaseURL = "https://www.cbr.ru/scripts/XML_daily.asp"

	// dateLayout is the dd/mm/yyyy format the date_req parameter expects.
	dateLayout = "02/01/2006"

	// pacerKey identifies the rate service in the shared Pacer.
	pacerKey = "cbr"
)

// Source resolves the exchange rate from a currency to the target currency
// for a given date. A (date, code) pair with no published rate resolves to
// the identity rate 1.0; only transport and parse failures are errors.
type Source interface {
	Resolve(ctx context.Context, date time.Time, code string) (float64, error)
}

// valCurs mirrors the daily-rate XML document.
type valCurs struct {
	XMLName xml.Name `xml:"ValCurs"`
	Valutes []valute `xml:"Valute"`
}

type valute struct {
	CharCode string `xml:"CharCode"`
	Nominal  int    `xml:"Nominal"`
	Value    string `xml:"Value"` // comma-decimal, e.g. "7536,50"
}

// Client fetches daily rates over HTTP. Transient failures are retried a
// bounded number of times; a persistently failing lookup surfaces as an error
// so the caller can skip the record.
type Client struct {
	baseURL    string
	httpClient *http.Client
	pacer      *ratelimit.Pacer
	maxRetries int
	retryDelay time.Duration
	logger     *slog.Logger
}

// NewClient creates a rate client against the given base URL. The pacer
// enforces a minimum delay between rate-sheet requests; sharing one instance
// with the listing fetcher keeps each service paced independently by key.
func NewClient(baseURL string, httpClient *http.Client, pacer *ratelimit.Pacer, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		pacer:      pacer,
		maxRetries: 2,
		retryDelay: 2 * time.Second,
		logger:     logger,
	}
}

// Resolve fetches the rate document for date and extracts the entry matching
// code. A currency quoted per N units is divided by N. A missing entry is the
// documented identity fallback, logged at debug level, not an error.
func (c *Client) Resolve(ctx context.Context, date time.Time, code string) (float64, error) {
	doc, err := retry.Do(ctx, c.logger, c.maxRetries, c.retryDelay, "rate lookup",
		func(ctx context.Context) (*valCurs, error) {
			return c.fetchDay(ctx, date)
		})
	if err != nil {
		return 0, fmt.Errorf("rate lookup for %s on %s: %w", code, date.Format(dateLayout), err)
	}

	for _, v := range doc.Valutes {
		if v.CharCode != code {
			continue
		}
		value, err := strconv.ParseFloat(strings.ReplaceAll(v.Value, ",", "."), 64)
		if err != nil {
			return 0, fmt.Errorf("rate lookup for %s: parsing value %q: %w", code, v.Value, err)
		}
		if v.Nominal <= 0 {
			return 0, fmt.Errorf("rate lookup for %s: bad nominal %d", code, v.Nominal)
		}
		return value / float64(v.Nominal), nil
	}

	// No matching entry. The feed quotes no rate for this code on this date
	// (or the code is unknown); the documented fallback is the identity rate.
	c.logger.Debug("no rate entry, falling back to identity",
		"code", code, "date", date.Format(dateLayout))
	return 1.0, nil
}

func (c *Client) fetchDay(ctx context.Context, date time.Time) (*valCurs, error) {
	if err := c.pacer.Wait(ctx, pacerKey); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s?date_req=%s", c.baseURL, date.Format(dateLayout))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &model.HTTPError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("rate service returned unexpected status"),
		}
	}

	dec := xml.NewDecoder(resp.Body)
	dec.CharsetReader = charsetReader

	var doc valCurs
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding rate document: %w", err)
	}
	return &doc, nil
}

// charsetReader handles the windows-1251 encoding the feed declares.
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(charset) {
	case "windows-1251":
		return charmap.Windows1251.NewDecoder().Reader(input), nil
	case "utf-8", "":
		return input, nil
	default:
		return nil, fmt.Errorf("unsupported charset %q", charset)
	}
}
