package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/spigell/lead-responder/internal/ai"
	"github.com/spigell/lead-responder/internal/leads"
	"github.com/spigell/lead-responder/internal/store"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// LeadInput is the caller-supplied part of a lead.
type LeadInput struct {
	Name        string `json:"name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Company     string `json:"company"`
	Title       string `json:"title"`
	Phone       string `json:"phone"`
	LinkedInURL string `json:"linkedin_url" validate:"omitempty,url"`
	Notes       string `json:"notes"`
}

func (in LeadInput) trimmed() LeadInput {
	return LeadInput{
		Name:        strings.TrimSpace(in.Name),
		Email:       strings.TrimSpace(in.Email),
		Company:     strings.TrimSpace(in.Company),
		Title:       strings.TrimSpace(in.Title),
		Phone:       strings.TrimSpace(in.Phone),
		LinkedInURL: strings.TrimSpace(in.LinkedInURL),
		Notes:       strings.TrimSpace(in.Notes),
	}
}

// Validate reports the first invalid field as an *ai.ValidationError.
func (in LeadInput) Validate() error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		field := strings.ToLower(fe.Field())
		if fe.Field() == "LinkedInURL" {
			field = "linkedin_url"
		}
		reason := "invalid value"
		switch fe.Tag() {
		case "required":
			reason = "field is required"
		case "email":
			reason = "value is not a valid email address"
		case "url":
			reason = "value is not a valid URL"
		}
		return &ai.ValidationError{Field: field, Reason: reason}
	}
	return &ai.ValidationError{Reason: err.Error()}
}

func (in LeadInput) lead() leads.Lead {
	return leads.Lead{
		Name:        in.Name,
		Email:       in.Email,
		Company:     in.Company,
		Title:       in.Title,
		Phone:       in.Phone,
		LinkedInURL: in.LinkedInURL,
		Notes:       in.Notes,
		Stage:       leads.StageNew,
	}
}

// CreateLead validates and stores a new lead in stage New.
func (s *Service) CreateLead(ctx context.Context, in LeadInput) (leads.Lead, error) {
	in = in.trimmed()
	if err := in.Validate(); err != nil {
		return leads.Lead{}, err
	}

	lead := in.lead()
	err := s.store.InTx(ctx, func(tx *store.Tx) error {
		if err := tx.CreateLead(ctx, &lead); err != nil {
			return err
		}
		if err := linkCompany(ctx, tx, &lead); err != nil {
			return err
		}
		activity := leads.NewActivity(lead.ID, leads.ActivityCreated,
			fmt.Sprintf("Lead %s created", lead.Name),
			map[string]any{"source": "api", "initial_stage": lead.Stage},
		)
		return tx.AppendActivity(ctx, &activity)
	})
	if err != nil {
		return leads.Lead{}, err
	}

	s.logger.Info("lead created", zap.Int64("lead_id", lead.ID), zap.String("email", lead.Email))
	return lead, nil
}

// linkCompany attaches the company profile whose domain matches the lead's
// email domain, if one exists.
func linkCompany(ctx context.Context, tx *store.Tx, lead *leads.Lead) error {
	domain := lead.EmailDomain()
	if domain == "" || lead.CompanyProfileID != nil {
		return nil
	}

	profile, err := tx.GetCompanyProfileByDomain(ctx, domain)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := tx.SetLeadCompanyProfile(ctx, lead.ID, profile.ID); err != nil {
		return err
	}
	lead.CompanyProfileID = &profile.ID
	return nil
}

// Companies lists the known company profiles by name.
func (s *Service) Companies(ctx context.Context) ([]leads.CompanyProfile, error) {
	return s.store.ListCompanyProfiles(ctx)
}

func (s *Service) GetLead(ctx context.Context, id int64) (leads.Lead, error) {
	return s.store.GetLead(ctx, id)
}

func (s *Service) ListLeads(ctx context.Context, f store.LeadFilter) ([]leads.Lead, error) {
	return s.store.ListLeads(ctx, f)
}

// DeleteLead removes the lead together with its activity log.
func (s *Service) DeleteLead(ctx context.Context, id int64) error {
	if err := s.store.DeleteLead(ctx, id); err != nil {
		return err
	}
	s.logger.Info("lead deleted", zap.Int64("lead_id", id))
	return nil
}

type ActivityPage struct {
	Activities []leads.Activity `json:"activities"`
	Total      int              `json:"total"`
	LeadID     int64            `json:"lead_id"`
	Limit      int              `json:"limit,omitempty"`
	Offset     int              `json:"offset"`
}

// Activities lists a lead's log newest first, optionally filtered by type.
func (s *Service) Activities(ctx context.Context, leadID int64, types []leads.ActivityType, limit, offset int) (*ActivityPage, error) {
	if _, err := s.store.GetLead(ctx, leadID); err != nil {
		return nil, err
	}

	items, total, err := s.store.ListActivities(ctx, store.ActivityFilter{
		LeadID: leadID,
		Types:  types,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, err
	}

	return &ActivityPage{
		Activities: items,
		Total:      total,
		LeadID:     leadID,
		Limit:      limit,
		Offset:     offset,
	}, nil
}
