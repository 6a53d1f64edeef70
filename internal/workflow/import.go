package workflow

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/lead-responder/internal/ai"
	"github.com/spigell/lead-responder/internal/leads"
	"github.com/spigell/lead-responder/internal/store"
)

var requiredHeaders = []string{"name", "email"}

type ImportResult struct {
	BatchID  string   `json:"batch_id"`
	Imported int      `json:"imported"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors"`
	Message  string   `json:"message"`
}

// ImportCSV creates one lead per data row. A bad row is reported and skipped;
// only a malformed file as a whole is an error. Row numbers count the header as row 1.
func (s *Service) ImportCSV(ctx context.Context, filename string, r io.Reader) (*ImportResult, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if !utf8.Valid(content) {
		return nil, &ai.ValidationError{Field: "file", Reason: "file encoding not supported, use UTF-8"}
	}
	content = bytes.TrimPrefix(content, []byte("\ufeff"))
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, &ai.ValidationError{Field: "file", Reason: "file is empty"}
	}

	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, &ai.ValidationError{Field: "file", Reason: fmt.Sprintf("read header: %v", err)}
	}

	columns := make(map[string]int, len(header))
	for i, h := range header {
		columns[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, h := range requiredHeaders {
		if _, ok := columns[h]; !ok {
			return nil, &ai.ValidationError{
				Field:  "file",
				Reason: "CSV must contain required headers: " + strings.Join(requiredHeaders, ", "),
			}
		}
	}

	result := &ImportResult{BatchID: uuid.NewString(), Errors: []string{}}
	fail := func(row int, format string, args ...any) {
		result.Failed++
		result.Errors = append(result.Errors, fmt.Sprintf("Row %d: ", row)+fmt.Sprintf(format, args...))
	}

	for row := 2; ; row++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			fail(row, "Malformed row - %v", err)
			continue
		}

		in := rowInput(columns, record)
		if in.Name == "" && in.Email == "" {
			continue
		}
		if in.Name == "" {
			fail(row, "Missing required field 'name'")
			continue
		}
		if in.Email == "" {
			fail(row, "Missing required field 'email'")
			continue
		}
		if err := in.Validate(); err != nil {
			fail(row, "Validation error - %v", err)
			continue
		}

		lead := in.lead()
		err = s.store.InTx(ctx, func(tx *store.Tx) error {
			if err := tx.CreateLead(ctx, &lead); err != nil {
				return err
			}
			if err := linkCompany(ctx, tx, &lead); err != nil {
				return err
			}
			activity := leads.NewActivity(lead.ID, leads.ActivityImported, "Lead imported from CSV", map[string]any{
				"source":   "csv_import",
				"file":     filename,
				"row":      row,
				"batch_id": result.BatchID,
			})
			return tx.AppendActivity(ctx, &activity)
		})
		switch {
		case err == nil:
			result.Imported++
		case errors.Is(err, store.ErrDuplicateEmail):
			fail(row, "Email %s already exists", in.Email)
		default:
			fail(row, "Unexpected error - %v", err)
		}
	}

	result.Message = fmt.Sprintf("Import completed: %d leads imported, %d failed", result.Imported, result.Failed)

	s.logger.Info("csv import finished",
		zap.String("file", filename),
		zap.String("batch_id", result.BatchID),
		zap.Int("imported", result.Imported),
		zap.Int("failed", result.Failed),
	)

	return result, nil
}

func rowInput(columns map[string]int, record []string) LeadInput {
	get := func(name string) string {
		i, ok := columns[name]
		if !ok || i >= len(record) {
			return ""
		}
		return record[i]
	}

	return LeadInput{
		Name:        get("name"),
		Email:       get("email"),
		Company:     get("company"),
		Title:       get("title"),
		Phone:       get("phone"),
		LinkedInURL: get("linkedin_url"),
		Notes:       get("notes"),
	}.trimmed()
}
