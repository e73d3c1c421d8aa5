package store

const schema = `
CREATE TABLE IF NOT EXISTS vacancies (
    id                      TEXT PRIMARY KEY,
    name                    TEXT NOT NULL DEFAULT '',
    area_name               TEXT NOT NULL DEFAULT '',
    salary_from             REAL,
    salary_to               REAL,
    salary_currency         TEXT NOT NULL DEFAULT '',
    published_at            DATETIME NOT NULL,
    employer_name           TEXT NOT NULL DEFAULT '',
    alternate_url           TEXT NOT NULL DEFAULT '',
    snippet_requirement     TEXT,
    snippet_responsibility  TEXT,
    professional_roles      TEXT NOT NULL DEFAULT '',
    schedule                TEXT NOT NULL DEFAULT '',
    employment              TEXT NOT NULL DEFAULT '',
    experience              TEXT NOT NULL DEFAULT '',
    keywords_requirement    TEXT,
    keywords_responsibility TEXT
);

CREATE INDEX IF NOT EXISTS idx_vacancies_currency ON vacancies(salary_currency);
CREATE INDEX IF NOT EXISTS idx_vacancies_published_at ON vacancies(published_at);
`
