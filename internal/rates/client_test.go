package rates

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/arodionov/vacpipe/internal/ratelimit"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const dailyXML = `<?xml version="1.0" encoding="windows-1251"?>
<ValCurs Date="03.11.2024" name="Foreign Currency Market">
	<Valute ID="R01235">
		<NumCode>840</NumCode>
		<CharCode>USD</CharCode>
		<Nominal>1</Nominal>
		<Name>US Dollar</Name>
		<Value>96,1079</Value>
	</Valute>
	<Valute ID="R01335">
		<NumCode>398</NumCode>
		<CharCode>KZT</CharCode>
		<Nominal>100</Nominal>
		<Name>Tenge</Name>
		<Value>19,6500</Value>
	</Valute>
</ValCurs>`

func testDate(t *testing.T) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", "2024-11-03")
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func newTestClient(srv *httptest.Server) *Client {
	c := NewClient(srv.URL, srv.Client(), ratelimit.NewPacer(0), discardLogger())
	c.maxRetries = 0
	return c
}

func TestResolve_RateAndDateParam(t *testing.T) {
	var gotDateReq string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotDateReq = r.URL.Query().Get("date_req")
		fmt.Fprint(w, dailyXML)
	}))
	defer srv.Close()

	rate, err := newTestClient(srv).Resolve(context.Background(), testDate(t), "USD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rate != 96.1079 {
		t.Errorf("USD rate = %v, want 96.1079", rate)
	}
	if gotDateReq != "03/11/2024" {
		t.Errorf("date_req = %q, want 03/11/2024", gotDateReq)
	}
}

func TestResolve_DividesByNominal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, dailyXML)
	}))
	defer srv.Close()

	rate, err := newTestClient(srv).Resolve(context.Background(), testDate(t), "KZT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 19,6500 per 100 units; the division is inexact in float64.
	if math.Abs(rate-0.1965) > 1e-9 {
		t.Errorf("KZT rate = %v, want 0.1965", rate)
	}
}

func TestResolve_RequestsArePaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, dailyXML)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), ratelimit.NewPacer(60*time.Millisecond), discardLogger())
	c.maxRetries = 0
	date := testDate(t)

	start := time.Now()
	if _, err := c.Resolve(context.Background(), date, "USD"); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	if _, err := c.Resolve(context.Background(), date.AddDate(0, 0, 1), "USD"); err != nil {
		t.Fatalf("second resolve: %v", err)
	}

	if elapsed := time.Since(start); elapsed < 60*time.Millisecond {
		t.Errorf("two requests completed in %v, want at least the 60ms pacing delay", elapsed)
	}
}

func TestResolve_MissingCodeFallsBackToIdentity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, dailyXML)
	}))
	defer srv.Close()

	rate, err := newTestClient(srv).Resolve(context.Background(), testDate(t), "XYZ")
	if err != nil {
		t.Fatalf("fallback must not be an error, got: %v", err)
	}
	if rate != 1.0 {
		t.Errorf("missing code rate = %v, want identity 1.0", rate)
	}
}

func TestResolve_TransportErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if _, err := newTestClient(srv).Resolve(context.Background(), testDate(t), "USD"); err == nil {
		t.Fatal("expected transport error")
	}
}

func TestResolve_MalformedXMLIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<ValCurs><Valute>`)
	}))
	defer srv.Close()

	if _, err := newTestClient(srv).Resolve(context.Background(), testDate(t), "USD"); err == nil {
		t.Fatal("expected decode error")
	}
}

// countingSource counts Resolve calls and returns a fixed rate, optionally
// after a delay or with an error.
type countingSource struct {
	calls atomic.Int32
	rate  float64
	delay time.Duration
	err   error
}

func (s *countingSource) Resolve(_ context.Context, _ time.Time, _ string) (float64, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return 0, s.err
	}
	return s.rate, nil
}

func TestCachingSource_SecondLookupHitsCache(t *testing.T) {
	inner := &countingSource{rate: 90}
	cache := NewCachingSource(inner)
	date := testDate(t)

	for i := 0; i < 3; i++ {
		rate, err := cache.Resolve(context.Background(), date, "EUR")
		if err != nil {
			t.Fatalf("resolve %d: %v", i, err)
		}
		if rate != 90 {
			t.Errorf("rate = %v, want 90", rate)
		}
	}

	if got := inner.calls.Load(); got != 1 {
		t.Errorf("inner source called %d times, want 1", got)
	}
}

func TestCachingSource_DistinctKeysMiss(t *testing.T) {
	inner := &countingSource{rate: 90}
	cache := NewCachingSource(inner)
	date := testDate(t)

	cache.Resolve(context.Background(), date, "EUR")
	cache.Resolve(context.Background(), date, "USD")
	cache.Resolve(context.Background(), date.AddDate(0, 0, 1), "EUR")

	if got := inner.calls.Load(); got != 3 {
		t.Errorf("inner source called %d times, want 3", got)
	}
}

func TestCachingSource_ConcurrentLookupsShareOneCall(t *testing.T) {
	inner := &countingSource{rate: 90, delay: 30 * time.Millisecond}
	cache := NewCachingSource(inner)
	date := testDate(t)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rate, err := cache.Resolve(context.Background(), date, "EUR")
			if err != nil {
				t.Errorf("concurrent resolve: %v", err)
				return
			}
			if rate != 90 {
				t.Errorf("rate = %v, want 90", rate)
			}
		}()
	}
	wg.Wait()

	if got := inner.calls.Load(); got != 1 {
		t.Errorf("inner source called %d times for one key, want 1", got)
	}
}

func TestCachingSource_FailureIsNotCached(t *testing.T) {
	inner := &countingSource{rate: 90, err: errors.New("gateway timeout")}
	cache := NewCachingSource(inner)
	date := testDate(t)

	if _, err := cache.Resolve(context.Background(), date, "EUR"); err == nil {
		t.Fatal("expected first resolve to fail")
	}

	inner.err = nil
	rate, err := cache.Resolve(context.Background(), date, "EUR")
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if rate != 90 {
		t.Errorf("rate = %v, want 90", rate)
	}
	if got := inner.calls.Load(); got != 2 {
		t.Errorf("inner source called %d times, want 2 (failure must not be cached)", got)
	}
}
