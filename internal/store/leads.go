package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/spigell/lead-responder/internal/leads"
)

type leadRow struct {
	ID               int64           `db:"id"`
	Name             string          `db:"name"`
	Email            string          `db:"email"`
	Company          sql.NullString  `db:"company"`
	Title            sql.NullString  `db:"title"`
	Phone            sql.NullString  `db:"phone"`
	LinkedInURL      sql.NullString  `db:"linkedin_url"`
	Notes            sql.NullString  `db:"notes"`
	Stage            string          `db:"stage"`
	Score            sql.NullFloat64 `db:"score"`
	CompanyProfileID sql.NullInt64   `db:"company_profile_id"`
	CreatedAt        string          `db:"created_at"`
	UpdatedAt        string          `db:"updated_at"`
}

const leadColumns = `id, name, email, company, title, phone, linkedin_url, notes, stage, score, company_profile_id, created_at, updated_at`

func (r leadRow) lead() leads.Lead {
	l := leads.Lead{
		ID:          r.ID,
		Name:        r.Name,
		Email:       r.Email,
		Company:     r.Company.String,
		Title:       r.Title.String,
		Phone:       r.Phone.String,
		LinkedInURL: r.LinkedInURL.String,
		Notes:       r.Notes.String,
		Stage:       leads.Stage(r.Stage),
		CreatedAt:   parseTime(r.CreatedAt),
		UpdatedAt:   parseTime(r.UpdatedAt),
	}
	if r.Score.Valid {
		score := r.Score.Float64
		l.Score = &score
	}
	if r.CompanyProfileID.Valid {
		id := r.CompanyProfileID.Int64
		l.CompanyProfileID = &id
	}
	return l
}

// CreateLead inserts the lead and fills in its ID and timestamps.
func (r repo) CreateLead(ctx context.Context, l *leads.Lead) error {
	now := r.now()
	if l.Stage == "" {
		l.Stage = leads.StageNew
	}

	var score any
	if l.Score != nil {
		score = *l.Score
	}
	var profileID any
	if l.CompanyProfileID != nil {
		profileID = *l.CompanyProfileID
	}

	res, err := r.q.ExecContext(ctx,
		`INSERT INTO leads (name, email, company, title, phone, linkedin_url, notes, stage, score, company_profile_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.Name, strings.ToLower(strings.TrimSpace(l.Email)), nullable(l.Company), nullable(l.Title), nullable(l.Phone),
		nullable(l.LinkedInURL), nullable(l.Notes), string(l.Stage), score, profileID, formatTime(now), formatTime(now),
	)
	if err != nil {
		if isUnique(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateEmail, l.Email)
		}
		return fmt.Errorf("insert lead: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}

	l.ID = id
	l.Email = strings.ToLower(strings.TrimSpace(l.Email))
	l.CreatedAt, l.UpdatedAt = now, now
	return nil
}

func (r repo) GetLead(ctx context.Context, id int64) (leads.Lead, error) {
	var row leadRow
	if err := sqlx.GetContext(ctx, r.q, &row, `SELECT `+leadColumns+` FROM leads WHERE id = ?`, id); err != nil {
		return leads.Lead{}, notFound(err)
	}
	return row.lead(), nil
}

func (r repo) GetLeadByEmail(ctx context.Context, email string) (leads.Lead, error) {
	var row leadRow
	err := sqlx.GetContext(ctx, r.q, &row, `SELECT `+leadColumns+` FROM leads WHERE email = ?`, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return leads.Lead{}, notFound(err)
	}
	return row.lead(), nil
}

type LeadFilter struct {
	Stage  leads.Stage
	Limit  int
	Offset int
}

// ListLeads returns leads newest first.
func (r repo) ListLeads(ctx context.Context, f LeadFilter) ([]leads.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads`
	var args []any
	if f.Stage != "" {
		query += ` WHERE stage = ?`
		args = append(args, string(f.Stage))
	}
	query += ` ORDER BY created_at DESC, id DESC`
	query, args = paginate(query, args, f.Limit, f.Offset)

	var rows []leadRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}

	out := make([]leads.Lead, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.lead())
	}
	return out, nil
}

func (r repo) UpdateLeadScore(ctx context.Context, id int64, score float64) error {
	res, err := r.q.ExecContext(ctx, `UPDATE leads SET score = ?, updated_at = ? WHERE id = ?`, score, formatTime(r.now()), id)
	if err != nil {
		return fmt.Errorf("update lead score: %w", err)
	}
	return checkAffected(res)
}

func (r repo) UpdateLeadStage(ctx context.Context, id int64, stage leads.Stage) error {
	res, err := r.q.ExecContext(ctx, `UPDATE leads SET stage = ?, updated_at = ? WHERE id = ?`, string(stage), formatTime(r.now()), id)
	if err != nil {
		return fmt.Errorf("update lead stage: %w", err)
	}
	return checkAffected(res)
}

func (r repo) SetLeadCompanyProfile(ctx context.Context, id, profileID int64) error {
	res, err := r.q.ExecContext(ctx, `UPDATE leads SET company_profile_id = ?, updated_at = ? WHERE id = ?`, profileID, formatTime(r.now()), id)
	if err != nil {
		return fmt.Errorf("link company profile: %w", err)
	}
	return checkAffected(res)
}

// DeleteLead removes the lead; its activities go with it.
func (r repo) DeleteLead(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM leads WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}
	return checkAffected(res)
}

func paginate(query string, args []any, limit, offset int) (string, []any) {
	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}
	return query + ` LIMIT ? OFFSET ?`, append(args, limit, offset)
}

func (r repo) CountLeads(ctx context.Context) (int, error) {
	var n int
	if err := sqlx.GetContext(ctx, r.q, &n, `SELECT COUNT(*) FROM leads`); err != nil {
		return 0, fmt.Errorf("count leads: %w", err)
	}
	return n, nil
}
