// Package store persists vacancies in SQLite. Writes are idempotent: batches
// insert-or-ignore atomically, enrichment updates commit per record, and
// nothing here ever deletes a row.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/arodionov/vacpipe/internal/model"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Ensure SQLiteStore implements model.VacancyStore.
var _ model.VacancyStore = (*SQLiteStore)(nil)

// SQLiteStore implements the vacancy repository on SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// New opens (or creates) a SQLite database at path.
func New(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}

	return &SQLiteStore{db: db}, nil
}

// EnsureSchema creates the vacancies table and indexes if absent. Idempotent.
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

const insertQuery = `
	INSERT OR IGNORE INTO vacancies (
		id, name, area_name, salary_from, salary_to, salary_currency,
		published_at, employer_name, alternate_url,
		snippet_requirement, snippet_responsibility,
		professional_roles, schedule, employment, experience
	) VALUES (
		:id, :name, :area_name, :salary_from, :salary_to, :salary_currency,
		:published_at, :employer_name, :alternate_url,
		:snippet_requirement, :snippet_responsibility,
		:professional_roles, :schedule, :employment, :experience
	)`

// InsertIgnore persists a batch in one transaction. A duplicate ID is skipped
// silently and counted, never overwritten. If any statement fails the whole
// batch rolls back; the batch is the unit of durability.
func (s *SQLiteStore) InsertIgnore(ctx context.Context, batch []model.Vacancy) (inserted, skipped int, err error) {
	if len(batch) == 0 {
		return 0, 0, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("begin insert batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, insertQuery)
	if err != nil {
		return 0, 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := range batch {
		res, err := stmt.ExecContext(ctx, batch[i])
		if err != nil {
			return 0, 0, fmt.Errorf("insert vacancy %s: %w", batch[i].ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, 0, fmt.Errorf("insert vacancy %s: rows affected: %w", batch[i].ID, err)
		}
		if n == 0 {
			skipped++
		} else {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit insert batch: %w", err)
	}
	return inserted, skipped, nil
}

// SelectForNormalize returns the normalization corpus: every record with a
// lower salary bound. Records without one carry no usable salary signal and
// stay out of the corpus (they are kept in the table, never deleted).
func (s *SQLiteStore) SelectForNormalize(ctx context.Context) ([]model.Vacancy, error) {
	var out []model.Vacancy
	err := s.db.SelectContext(ctx, &out,
		`SELECT * FROM vacancies WHERE salary_from IS NOT NULL ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select for normalize: %w", err)
	}
	return out, nil
}

// SelectForEnrich returns records still missing a keyphrase field. Already
// enriched records are excluded, which is what makes re-running the enrich
// stage a no-op.
func (s *SQLiteStore) SelectForEnrich(ctx context.Context) ([]model.Vacancy, error) {
	var out []model.Vacancy
	err := s.db.SelectContext(ctx, &out,
		`SELECT * FROM vacancies
		 WHERE keywords_requirement IS NULL OR keywords_responsibility IS NULL
		 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select for enrich: %w", err)
	}
	return out, nil
}

// UpdateNormalized writes converted salary bounds, the target currency and
// sanitized snippets for one record. Commits immediately.
func (s *SQLiteStore) UpdateNormalized(ctx context.Context, id string, f model.NormalizedFields) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE vacancies
		 SET salary_from = ?, salary_to = ?, salary_currency = ?,
		     snippet_requirement = ?, snippet_responsibility = ?
		 WHERE id = ?`,
		f.SalaryFrom, f.SalaryTo, f.SalaryCurrency,
		f.SnippetRequirement, f.SnippetResponsibility, id)
	if err != nil {
		return fmt.Errorf("update normalized %s: %w", id, err)
	}
	return checkUpdated(res, id)
}

// UpdateKeyphrases writes both keyphrase fields for one record. Commits
// immediately.
func (s *SQLiteStore) UpdateKeyphrases(ctx context.Context, id string, requirement, responsibility string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE vacancies
		 SET keywords_requirement = ?, keywords_responsibility = ?
		 WHERE id = ?`,
		requirement, responsibility, id)
	if err != nil {
		return fmt.Errorf("update keyphrases %s: %w", id, err)
	}
	return checkUpdated(res, id)
}

// checkUpdated maps a zero-row update to ErrVacancyNotFound so the caller can
// report it instead of silently ignoring a bad ID.
func checkUpdated(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s: rows affected: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("update %s: %w", id, model.ErrVacancyNotFound)
	}
	return nil
}

// Get returns a single vacancy by ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*model.Vacancy, error) {
	var v model.Vacancy
	err := s.db.GetContext(ctx, &v, `SELECT * FROM vacancies WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrVacancyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get vacancy %s: %w", id, err)
	}
	return &v, nil
}

// Count returns the total number of persisted vacancies.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM vacancies`); err != nil {
		return 0, fmt.Errorf("count vacancies: %w", err)
	}
	return n, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
