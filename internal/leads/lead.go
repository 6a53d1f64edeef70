package leads

import (
	"strings"
	"time"
)

// Lead is a sales prospect tracked through the funnel.
type Lead struct {
	ID               int64     `json:"id" db:"id"`
	Name             string    `json:"name" db:"name"`
	Email            string    `json:"email" db:"email"`
	Company          string    `json:"company,omitempty" db:"company"`
	Title            string    `json:"title,omitempty" db:"title"`
	Phone            string    `json:"phone,omitempty" db:"phone"`
	LinkedInURL      string    `json:"linkedin_url,omitempty" db:"linkedin_url"`
	Notes            string    `json:"notes,omitempty" db:"notes"`
	Stage            Stage     `json:"stage" db:"stage"`
	Score            *float64  `json:"score" db:"score"`
	CompanyProfileID *int64    `json:"company_profile_id,omitempty" db:"company_profile_id"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// TrackedFields returns the seven profile fields used to judge data completeness,
// in a fixed order.
func (l Lead) TrackedFields() []string {
	return []string{l.Name, l.Email, l.Company, l.Title, l.Phone, l.LinkedInURL, l.Notes}
}

// FilledFields counts tracked fields that are non-empty after trimming.
func (l Lead) FilledFields() int {
	filled := 0
	for _, v := range l.TrackedFields() {
		if strings.TrimSpace(v) != "" {
			filled++
		}
	}
	return filled
}

// EmailDomain returns the lower-cased part of the email after the first '@'.
func (l Lead) EmailDomain() string {
	_, domain, ok := strings.Cut(l.Email, "@")
	if !ok {
		return ""
	}
	if idx := strings.IndexByte(domain, '@'); idx != -1 {
		domain = domain[:idx]
	}
	return strings.ToLower(strings.TrimSpace(domain))
}

// CompanyProfile holds enrichment data for a company.
type CompanyProfile struct {
	ID          int64          `json:"id" db:"id"`
	Name        string         `json:"name" db:"name"`
	Domain      string         `json:"domain" db:"domain"`
	Size        string         `json:"size,omitempty" db:"size"`
	Industry    string         `json:"industry,omitempty" db:"industry"`
	Description string         `json:"description,omitempty" db:"description"`
	Data        map[string]any `json:"data,omitempty" db:"-"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`
}

// ScoringConfig is a named weight configuration for the scoring engine.
type ScoringConfig struct {
	ID          int64              `json:"id" db:"id"`
	Name        string             `json:"name" db:"name"`
	Description string             `json:"description,omitempty" db:"description"`
	Weights     map[string]float64 `json:"weights" db:"-"`
	IsActive    bool               `json:"is_active" db:"is_active"`
	CreatedAt   time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" db:"updated_at"`
}
