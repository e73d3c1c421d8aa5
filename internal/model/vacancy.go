package model

import (
	"context"
	"time"
)

// Vacancy is the persisted representation of a single HH.ru job posting.
// Salary bounds and free-text snippets are pointers because the listing API
// omits them freely; nil survives every stage untouched.
type Vacancy struct {
	ID                     string    `db:"id"`
	Name                   string    `db:"name"`
	AreaName               string    `db:"area_name"`
	SalaryFrom             *float64  `db:"salary_from"`
	SalaryTo               *float64  `db:"salary_to"`
	SalaryCurrency         string    `db:"salary_currency"`
	PublishedAt            time.Time `db:"published_at"`
	EmployerName           string    `db:"employer_name"`
	AlternateURL           string    `db:"alternate_url"`
	SnippetRequirement     *string   `db:"snippet_requirement"`
	SnippetResponsibility  *string   `db:"snippet_responsibility"`
	ProfessionalRoles      string    `db:"professional_roles"` // comma-joined role names
	Schedule               string    `db:"schedule"`
	Employment             string    `db:"employment"`
	Experience             string    `db:"experience"`
	KeywordsRequirement    *string   `db:"keywords_requirement"`
	KeywordsResponsibility *string   `db:"keywords_responsibility"`
}

// NormalizedFields is the per-record result of the normalize stage: converted
// salary bounds, the uniform target currency, and sanitized snippets.
// A named struct rather than a value triple so callers can't swap fields silently.
type NormalizedFields struct {
	SalaryFrom            *float64
	SalaryTo              *float64
	SalaryCurrency        string
	SnippetRequirement    *string
	SnippetResponsibility *string
}

// FetchResult carries everything a fetch run produced. Items is populated even
// when the run aborted mid-pagination; the caller decides what to do with the
// partial collection.
type FetchResult struct {
	Items []Vacancy
	Pages int
}

// ListingFetcher retrieves vacancies from the listing API.
// A non-nil error may still come with a partially filled FetchResult.
type ListingFetcher interface {
	Fetch(ctx context.Context) (FetchResult, error)
}

// VacancyStore is the idempotent vacancy repository.
type VacancyStore interface {
	EnsureSchema(ctx context.Context) error
	// InsertIgnore persists a batch atomically. Duplicate IDs are skipped,
	// not overwritten; returns how many rows were inserted vs. skipped.
	InsertIgnore(ctx context.Context, batch []Vacancy) (inserted, skipped int, err error)
	SelectForNormalize(ctx context.Context) ([]Vacancy, error)
	SelectForEnrich(ctx context.Context) ([]Vacancy, error)
	// UpdateNormalized writes normalize-stage output for one record.
	// Returns ErrVacancyNotFound if the ID does not exist.
	UpdateNormalized(ctx context.Context, id string, f NormalizedFields) error
	// UpdateKeyphrases writes enrich-stage output for one record.
	// Returns ErrVacancyNotFound if the ID does not exist.
	UpdateKeyphrases(ctx context.Context, id string, requirement, responsibility string) error
}

// NormalizedSalary is the named result of one salary conversion.
type NormalizedSalary struct {
	From     *float64
	To       *float64
	Currency string
}

// SalaryConverter converts a vacancy's salary bounds to the target currency.
type SalaryConverter interface {
	Convert(ctx context.Context, v Vacancy) (NormalizedSalary, error)
}

// KeyphraseExtractor turns sanitized free text into a ranked, comma-joined
// keyphrase list. Empty input yields an empty string, not an error.
type KeyphraseExtractor interface {
	Extract(ctx context.Context, text string) (string, error)
}
