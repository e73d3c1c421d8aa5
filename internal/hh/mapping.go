package hh

import (
	"strconv"
	"strings"
	"time"

	"github.com/arodionov/vacpipe/internal/model"
)

// publishedAtLayout is the timestamp format the listing API uses,
// e.g. "2024-11-03T14:02:17+0300".
const publishedAtLayout = "2006-01-02T15:04:05-0700"

// listingResponse is the top-level shape of GET /vacancies.
// An absent or empty items array signals the end of pagination.
type listingResponse struct {
	Items []listingItem `json:"items"`
	Found int           `json:"found"`
	Pages int           `json:"pages"`
}

type listingItem struct {
	ID                string       `json:"id"`
	Name              string       `json:"name"`
	Area              *nameObject  `json:"area"`
	Salary            *salaryInfo  `json:"salary"`
	PublishedAt       string       `json:"published_at"`
	Employer          *nameObject  `json:"employer"`
	AlternateURL      string       `json:"alternate_url"`
	Snippet           *snippetInfo `json:"snippet"`
	ProfessionalRoles []nameObject `json:"professional_roles"`
	Schedule          *nameObject  `json:"schedule"`
	Employment        *nameObject  `json:"employment"`
	Experience        *nameObject  `json:"experience"`
}

type nameObject struct {
	Name string `json:"name"`
}

type salaryInfo struct {
	From     *float64 `json:"from"`
	To       *float64 `json:"to"`
	Currency string   `json:"currency"`
}

type snippetInfo struct {
	Requirement    *string `json:"requirement"`
	Responsibility *string `json:"responsibility"`
}

// mapItem converts one raw listing item into the persisted Vacancy shape.
// Every nested object the API may omit gets an explicit default here, so a
// missing field is a visible branch instead of a nil-map surprise downstream.
func mapItem(item listingItem) model.Vacancy {
	v := model.Vacancy{
		ID:           item.ID,
		Name:         item.Name,
		AlternateURL: item.AlternateURL,
	}

	if item.Area != nil {
		v.AreaName = item.Area.Name
	}
	if item.Employer != nil {
		v.EmployerName = item.Employer.Name
	}
	if item.Salary != nil {
		v.SalaryFrom = item.Salary.From
		v.SalaryTo = item.Salary.To
		v.SalaryCurrency = item.Salary.Currency
	}
	if item.Snippet != nil {
		v.SnippetRequirement = item.Snippet.Requirement
		v.SnippetResponsibility = item.Snippet.Responsibility
	}
	if item.Schedule != nil {
		v.Schedule = item.Schedule.Name
	}
	if item.Employment != nil {
		v.Employment = item.Employment.Name
	}
	if item.Experience != nil {
		v.Experience = item.Experience.Name
	}

	if len(item.ProfessionalRoles) > 0 {
		names := make([]string, 0, len(item.ProfessionalRoles))
		for _, role := range item.ProfessionalRoles {
			names = append(names, role.Name)
		}
		v.ProfessionalRoles = strings.Join(names, ", ")
	}

	if item.PublishedAt != "" {
		if t, err := time.Parse(publishedAtLayout, item.PublishedAt); err == nil {
			v.PublishedAt = t
		} else if t, err := time.Parse(time.RFC3339, item.PublishedAt); err == nil {
			v.PublishedAt = t
		}
	}

	return v
}

// parseRetryAfter parses the Retry-After header value into a duration.
// Supports seconds format (e.g. "120"). Returns zero if absent or unparseable.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
