package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/spigell/lead-responder/internal/evaluation"
	"github.com/spigell/lead-responder/internal/leads"
)

// ErrRunFinished is returned when a run that is no longer running is finished again.
var ErrRunFinished = errors.New("evaluation run already finished")

// EvaluationRun is a persisted harness execution.
type EvaluationRun struct {
	ID                    int64                `json:"id"`
	Timestamp             time.Time            `json:"timestamp"`
	Status                leads.RunStatus      `json:"status"`
	TotalTests            int                  `json:"total_tests"`
	PassedTests           int                  `json:"passed_tests"`
	FailedTests           int                  `json:"failed_tests"`
	ErrorTests            int                  `json:"error_tests"`
	PassRate              float64              `json:"pass_rate"`
	VerdictAccuracy       float64              `json:"verdict_accuracy"`
	ConfidenceAccuracy    float64              `json:"confidence_accuracy"`
	SchemaComplianceRate  float64              `json:"schema_compliance_rate"`
	TotalSchemaErrors     int                  `json:"total_schema_errors"`
	AvgPromptCompleteness float64              `json:"avg_prompt_completeness"`
	Results               []evaluation.Outcome `json:"results,omitempty"`
	ErrorMessage          string               `json:"error_message,omitempty"`
	CreatedAt             time.Time            `json:"created_at"`
	UpdatedAt             time.Time            `json:"updated_at"`
}

type evaluationRunRow struct {
	ID                    int64          `db:"id"`
	Timestamp             string         `db:"timestamp"`
	Status                string         `db:"status"`
	TotalTests            int            `db:"total_tests"`
	PassedTests           int            `db:"passed_tests"`
	FailedTests           int            `db:"failed_tests"`
	ErrorTests            int            `db:"error_tests"`
	PassRate              float64        `db:"pass_rate"`
	VerdictAccuracy       float64        `db:"verdict_accuracy"`
	ConfidenceAccuracy    float64        `db:"confidence_accuracy"`
	SchemaComplianceRate  float64        `db:"schema_compliance_rate"`
	TotalSchemaErrors     int            `db:"total_schema_errors"`
	AvgPromptCompleteness float64        `db:"avg_prompt_completeness"`
	Results               sql.NullString `db:"results"`
	ErrorMessage          sql.NullString `db:"error_message"`
	CreatedAt             string         `db:"created_at"`
	UpdatedAt             string         `db:"updated_at"`
}

const evaluationRunColumns = `id, timestamp, status, total_tests, passed_tests, failed_tests, error_tests,
	pass_rate, verdict_accuracy, confidence_accuracy, schema_compliance_rate, total_schema_errors,
	avg_prompt_completeness, results, error_message, created_at, updated_at`

func (r evaluationRunRow) run(withResults bool) (EvaluationRun, error) {
	run := EvaluationRun{
		ID:                    r.ID,
		Timestamp:             parseTime(r.Timestamp),
		Status:                leads.RunStatus(r.Status),
		TotalTests:            r.TotalTests,
		PassedTests:           r.PassedTests,
		FailedTests:           r.FailedTests,
		ErrorTests:            r.ErrorTests,
		PassRate:              r.PassRate,
		VerdictAccuracy:       r.VerdictAccuracy,
		ConfidenceAccuracy:    r.ConfidenceAccuracy,
		SchemaComplianceRate:  r.SchemaComplianceRate,
		TotalSchemaErrors:     r.TotalSchemaErrors,
		AvgPromptCompleteness: r.AvgPromptCompleteness,
		ErrorMessage:          r.ErrorMessage.String,
		CreatedAt:             parseTime(r.CreatedAt),
		UpdatedAt:             parseTime(r.UpdatedAt),
	}
	if withResults && r.Results.Valid && r.Results.String != "" {
		if err := json.Unmarshal([]byte(r.Results.String), &run.Results); err != nil {
			return run, fmt.Errorf("decode evaluation run %d results: %w", r.ID, err)
		}
	}
	return run, nil
}

// CreateEvaluationRun records a new run in the running state.
func (r repo) CreateEvaluationRun(ctx context.Context) (EvaluationRun, error) {
	now := r.now()
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO evaluation_runs (timestamp, status, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		formatTime(now), string(leads.RunRunning), formatTime(now), formatTime(now),
	)
	if err != nil {
		return EvaluationRun{}, fmt.Errorf("insert evaluation run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return EvaluationRun{}, fmt.Errorf("insert evaluation run: %w", err)
	}

	return EvaluationRun{
		ID:        id,
		Timestamp: now,
		Status:    leads.RunRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// CompleteEvaluationRun stores the report on a running run.
func (r repo) CompleteEvaluationRun(ctx context.Context, id int64, report *evaluation.Report) error {
	results, err := encodeJSON(report.Results)
	if err != nil {
		return err
	}

	res, err := r.q.ExecContext(ctx,
		`UPDATE evaluation_runs SET status = ?, total_tests = ?, passed_tests = ?, failed_tests = ?, error_tests = ?,
			pass_rate = ?, verdict_accuracy = ?, confidence_accuracy = ?, schema_compliance_rate = ?,
			total_schema_errors = ?, avg_prompt_completeness = ?, results = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(leads.RunCompleted), report.TotalTests, report.PassedTests, report.FailedTests, report.ErrorTests,
		report.PassRate, report.VerdictAccuracy, report.ConfidenceAccuracy, report.SchemaComplianceRate,
		report.TotalSchemaErrors, report.AvgPromptCompleteness, results, formatTime(r.now()),
		id, string(leads.RunRunning),
	)
	if err != nil {
		return fmt.Errorf("complete evaluation run: %w", err)
	}
	return r.finished(ctx, id, res)
}

// FailEvaluationRun marks a running run as failed with the given message.
func (r repo) FailEvaluationRun(ctx context.Context, id int64, message string) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE evaluation_runs SET status = ?, error_message = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(leads.RunFailed), message, formatTime(r.now()), id, string(leads.RunRunning),
	)
	if err != nil {
		return fmt.Errorf("fail evaluation run: %w", err)
	}
	return r.finished(ctx, id, res)
}

// finished tells a missing run apart from one that already left the running state.
func (r repo) finished(ctx context.Context, id int64, res sql.Result) error {
	if err := checkAffected(res); !errors.Is(err, ErrNotFound) {
		return err
	}
	var exists int
	if err := sqlx.GetContext(ctx, r.q, &exists, `SELECT COUNT(*) FROM evaluation_runs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("check evaluation run: %w", err)
	}
	if exists == 0 {
		return ErrNotFound
	}
	return ErrRunFinished
}

func (r repo) GetEvaluationRun(ctx context.Context, id int64) (EvaluationRun, error) {
	var row evaluationRunRow
	if err := sqlx.GetContext(ctx, r.q, &row, `SELECT `+evaluationRunColumns+` FROM evaluation_runs WHERE id = ?`, id); err != nil {
		return EvaluationRun{}, notFound(err)
	}
	return row.run(true)
}

// ListEvaluationRuns returns run summaries newest first, without per-fixture results.
func (r repo) ListEvaluationRuns(ctx context.Context, limit, offset int) ([]EvaluationRun, error) {
	query, args := paginate(`SELECT `+evaluationRunColumns+` FROM evaluation_runs ORDER BY timestamp DESC, id DESC`, nil, limit, offset)

	var rows []evaluationRunRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list evaluation runs: %w", err)
	}

	out := make([]EvaluationRun, 0, len(rows))
	for _, row := range rows {
		run, err := row.run(false)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, nil
}
