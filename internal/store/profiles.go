package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/spigell/lead-responder/internal/leads"
)

type profileRow struct {
	ID          int64          `db:"id"`
	Name        string         `db:"name"`
	Domain      string         `db:"domain"`
	Size        sql.NullString `db:"size"`
	Industry    sql.NullString `db:"industry"`
	Description sql.NullString `db:"description"`
	Data        sql.NullString `db:"data"`
	CreatedAt   string         `db:"created_at"`
	UpdatedAt   string         `db:"updated_at"`
}

const profileColumns = `id, name, domain, size, industry, description, data, created_at, updated_at`

func (r profileRow) profile() (leads.CompanyProfile, error) {
	p := leads.CompanyProfile{
		ID:          r.ID,
		Name:        r.Name,
		Domain:      r.Domain,
		Size:        r.Size.String,
		Industry:    r.Industry.String,
		Description: r.Description.String,
		CreatedAt:   parseTime(r.CreatedAt),
		UpdatedAt:   parseTime(r.UpdatedAt),
	}
	if r.Data.Valid && r.Data.String != "" {
		if err := json.Unmarshal([]byte(r.Data.String), &p.Data); err != nil {
			return p, fmt.Errorf("decode company profile %d data: %w", r.ID, err)
		}
	}
	return p, nil
}

func (r repo) CreateCompanyProfile(ctx context.Context, p *leads.CompanyProfile) error {
	data, err := encodeJSON(p.Data)
	if err != nil {
		return err
	}

	now := r.now()
	domain := strings.ToLower(strings.TrimSpace(p.Domain))
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO company_profiles (name, domain, size, industry, description, data, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name, domain, nullable(p.Size), nullable(p.Industry), nullable(p.Description), data, formatTime(now), formatTime(now),
	)
	if err != nil {
		if isUnique(err) {
			return fmt.Errorf("company profile %s: %w", domain, ErrDuplicate)
		}
		return fmt.Errorf("insert company profile: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert company profile: %w", err)
	}

	p.ID = id
	p.Domain = domain
	p.CreatedAt, p.UpdatedAt = now, now
	return nil
}

func (r repo) GetCompanyProfileByDomain(ctx context.Context, domain string) (leads.CompanyProfile, error) {
	var row profileRow
	err := sqlx.GetContext(ctx, r.q, &row, `SELECT `+profileColumns+` FROM company_profiles WHERE domain = ?`, strings.ToLower(strings.TrimSpace(domain)))
	if err != nil {
		return leads.CompanyProfile{}, notFound(err)
	}
	return row.profile()
}

func (r repo) ListCompanyProfiles(ctx context.Context) ([]leads.CompanyProfile, error) {
	var rows []profileRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, `SELECT `+profileColumns+` FROM company_profiles ORDER BY name`); err != nil {
		return nil, fmt.Errorf("list company profiles: %w", err)
	}

	out := make([]leads.CompanyProfile, 0, len(rows))
	for _, row := range rows {
		p, err := row.profile()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
