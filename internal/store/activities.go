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

type activityRow struct {
	ID          int64          `db:"id"`
	LeadID      sql.NullInt64  `db:"lead_id"`
	Type        string         `db:"activity_type"`
	Description string         `db:"description"`
	Data        sql.NullString `db:"data"`
	CreatedAt   string         `db:"created_at"`
}

func (r activityRow) activity() (leads.Activity, error) {
	a := leads.Activity{
		ID:          r.ID,
		Type:        leads.ActivityType(r.Type),
		Description: r.Description,
		CreatedAt:   parseTime(r.CreatedAt),
	}
	if r.LeadID.Valid {
		id := r.LeadID.Int64
		a.LeadID = &id
	}
	if r.Data.Valid && r.Data.String != "" {
		if err := json.Unmarshal([]byte(r.Data.String), &a.Data); err != nil {
			return a, fmt.Errorf("decode activity %d data: %w", r.ID, err)
		}
	}
	return a, nil
}

// AppendActivity writes a new audit entry. Entries are never updated.
func (r repo) AppendActivity(ctx context.Context, a *leads.Activity) error {
	data, err := encodeJSON(a.Data)
	if err != nil {
		return err
	}

	var leadID any
	if a.LeadID != nil {
		leadID = *a.LeadID
	}

	now := r.now()
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO activities (lead_id, activity_type, description, data, created_at) VALUES (?, ?, ?, ?, ?)`,
		leadID, string(a.Type), a.Description, data, formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}

	a.ID = id
	a.CreatedAt = now
	return nil
}

type ActivityFilter struct {
	LeadID int64
	Types  []leads.ActivityType
	Limit  int
	Offset int
}

// ListActivities returns a page of a lead's activities newest first and the
// total number matching the filter.
func (r repo) ListActivities(ctx context.Context, f ActivityFilter) ([]leads.Activity, int, error) {
	where := []string{"lead_id = ?"}
	args := []any{f.LeadID}

	if len(f.Types) > 0 {
		marks := make([]string, 0, len(f.Types))
		for _, t := range f.Types {
			marks = append(marks, "?")
			args = append(args, string(t))
		}
		where = append(where, "activity_type IN ("+strings.Join(marks, ", ")+")")
	}

	cond := " WHERE " + strings.Join(where, " AND ")

	var total int
	if err := sqlx.GetContext(ctx, r.q, &total, `SELECT COUNT(*) FROM activities`+cond, args...); err != nil {
		return nil, 0, fmt.Errorf("count activities: %w", err)
	}

	query, pageArgs := paginate(`SELECT id, lead_id, activity_type, description, data, created_at FROM activities`+cond+` ORDER BY created_at DESC, id DESC`, args, f.Limit, f.Offset)

	var rows []activityRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, pageArgs...); err != nil {
		return nil, 0, fmt.Errorf("list activities: %w", err)
	}

	out := make([]leads.Activity, 0, len(rows))
	for _, row := range rows {
		a, err := row.activity()
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, nil
}
