package hh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/arodionov/vacpipe/internal/model"
	"github.com/arodionov/vacpipe/internal/ratelimit"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testFetcher(srv *httptest.Server, maxPages int) *Fetcher {
	return NewFetcher(
		srv.URL,
		"vacpipe-test/1.0",
		Query{Text: "golang", Area: 113, Specialization: 1, PerPage: 2, MaxPages: maxPages},
		srv.Client(),
		ratelimit.NewPacer(time.Millisecond),
		discardLogger(),
	)
}

func itemsPayload(ids ...string) string {
	out := `{"items": [`
	for i, id := range ids {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf(`{"id": %q, "name": "Go Developer %s", "area": {"name": "Москва"},
			"salary": {"from": 100000, "to": 200000, "currency": "RUR"},
			"published_at": "2024-11-03T14:02:17+0300",
			"employer": {"name": "Acme"},
			"alternate_url": "https://hh.ru/vacancy/%s",
			"snippet": {"requirement": "Go, SQL", "responsibility": "Build services"},
			"professional_roles": [{"name": "Программист"}],
			"schedule": {"name": "Полный день"},
			"employment": {"name": "Полная занятость"},
			"experience": {"name": "1–3 года"}}`, id, id, id)
	}
	return out + `]}`
}

func TestFetch_PaginationStopsOnEmptyPage(t *testing.T) {
	var mu sync.Mutex
	requested := make(map[string]bool)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		mu.Lock()
		requested[page] = true
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch page {
		case "0":
			fmt.Fprint(w, itemsPayload("1", "2"))
		case "1":
			fmt.Fprint(w, itemsPayload("3", "4"))
		case "2":
			fmt.Fprint(w, itemsPayload("5"))
		default:
			fmt.Fprint(w, `{"items": []}`)
		}
	}))
	defer srv.Close()

	result, err := testFetcher(srv, 20).Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Items) != 5 {
		t.Errorf("expected 5 items from pages 0-2, got %d", len(result.Items))
	}
	// Page 3 (the empty terminator) is requested; page 4 must never be.
	if !requested["3"] {
		t.Error("expected the empty page 3 to be requested")
	}
	if requested["4"] {
		t.Error("page 4 must not be requested after the empty page")
	}
	if result.Pages != 4 {
		t.Errorf("expected 4 pages requested, got %d", result.Pages)
	}
}

func TestFetch_PageCapStopsPagination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Every page is non-empty; only the cap can stop us.
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, itemsPayload("x"))
	}))
	defer srv.Close()

	result, err := testFetcher(srv, 3).Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Pages != 3 {
		t.Errorf("expected exactly 3 pages, got %d", result.Pages)
	}
	if len(result.Items) != 3 {
		t.Errorf("expected 3 items, got %d", len(result.Items))
	}
}

func TestFetch_ErrorReturnsPartialCollection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "1" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, itemsPayload("1", "2"))
	}))
	defer srv.Close()

	result, err := testFetcher(srv, 20).Fetch(context.Background())
	if err == nil {
		t.Fatal("expected an error from the failing page")
	}

	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected HTTPError 500, got %v", err)
	}

	// Page 0's items survive the failure.
	if len(result.Items) != 2 {
		t.Errorf("expected 2 items collected before the failure, got %d", len(result.Items))
	}
}

func TestFetch_MalformedResponseIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items": [{`)
	}))
	defer srv.Close()

	if _, err := testFetcher(srv, 20).Fetch(context.Background()); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestFetch_SendsQueryParamsAndUserAgent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("text") != "golang" {
			t.Errorf("text = %q", q.Get("text"))
		}
		if q.Get("area") != "113" {
			t.Errorf("area = %q", q.Get("area"))
		}
		if q.Get("specialization") != "1" {
			t.Errorf("specialization = %q", q.Get("specialization"))
		}
		if q.Get("per_page") != "2" {
			t.Errorf("per_page = %q", q.Get("per_page"))
		}
		if r.Header.Get("User-Agent") != "vacpipe-test/1.0" {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		fmt.Fprint(w, `{"items": []}`)
	}))
	defer srv.Close()

	if _, err := testFetcher(srv, 1).Fetch(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMapItem_Defaults(t *testing.T) {
	// Bare item: every optional nested object absent.
	v := mapItem(listingItem{ID: "10", Name: "QA Engineer"})

	if v.ID != "10" || v.Name != "QA Engineer" {
		t.Errorf("unexpected identity fields: %+v", v)
	}
	if v.SalaryFrom != nil || v.SalaryTo != nil || v.SalaryCurrency != "" {
		t.Error("expected absent salary to map to nil bounds and empty currency")
	}
	if v.SnippetRequirement != nil || v.SnippetResponsibility != nil {
		t.Error("expected absent snippet to map to nil fields")
	}
	if v.AreaName != "" || v.EmployerName != "" || v.ProfessionalRoles != "" {
		t.Error("expected absent nested names to map to empty strings")
	}
	if !v.PublishedAt.IsZero() {
		t.Error("expected zero PublishedAt for absent timestamp")
	}
}

func TestMapItem_FullRecord(t *testing.T) {
	from, to := 100.0, 200.0
	req := "Go"
	item := listingItem{
		ID:           "42",
		Name:         "Backend Developer",
		Area:         &nameObject{Name: "Санкт-Петербург"},
		Salary:       &salaryInfo{From: &from, To: &to, Currency: "EUR"},
		PublishedAt:  "2024-11-03T14:02:17+0300",
		Employer:     &nameObject{Name: "Acme"},
		AlternateURL: "https://hh.ru/vacancy/42",
		Snippet:      &snippetInfo{Requirement: &req},
		ProfessionalRoles: []nameObject{
			{Name: "Программист"}, {Name: "Разработчик"},
		},
	}

	v := mapItem(item)
	if v.ProfessionalRoles != "Программист, Разработчик" {
		t.Errorf("roles = %q", v.ProfessionalRoles)
	}
	if v.SalaryCurrency != "EUR" || *v.SalaryFrom != 100 || *v.SalaryTo != 200 {
		t.Errorf("salary mapping wrong: %+v", v)
	}
	if v.PublishedAt.Year() != 2024 || v.PublishedAt.Month() != time.November {
		t.Errorf("published_at = %v", v.PublishedAt)
	}
	if v.SnippetResponsibility != nil {
		t.Error("expected nil responsibility when only requirement present")
	}
}
