package workflow

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spigell/lead-responder/internal/leads"
	"github.com/spigell/lead-responder/internal/scoring"
	"github.com/spigell/lead-responder/internal/store"
)

//go:embed seed.yaml
var seedYAML []byte

type seedCompany struct {
	Name        string `yaml:"name"`
	Domain      string `yaml:"domain"`
	Size        string `yaml:"size"`
	Industry    string `yaml:"industry"`
	Description string `yaml:"description"`
}

type seedLead struct {
	Name        string      `yaml:"name"`
	Email       string      `yaml:"email"`
	Company     string      `yaml:"company"`
	Title       string      `yaml:"title"`
	Stage       leads.Stage `yaml:"stage"`
	Phone       string      `yaml:"phone"`
	LinkedInURL string      `yaml:"linkedin_url"`
	Notes       string      `yaml:"notes"`
}

type seedData struct {
	Companies []seedCompany `yaml:"companies"`
	Leads     []seedLead    `yaml:"leads"`
}

type SeedResult struct {
	Message          string `json:"message"`
	TotalLeads       int    `json:"total_leads"`
	CreatedLeads     int    `json:"created_leads"`
	CreatedCompanies int    `json:"created_companies"`
}

// SeedSampleLeads loads the demo data set. Existing companies and leads are
// matched by domain and email and left untouched, so seeding twice is a no-op.
func (s *Service) SeedSampleLeads(ctx context.Context) (*SeedResult, error) {
	var data seedData
	if err := yaml.Unmarshal(seedYAML, &data); err != nil {
		return nil, fmt.Errorf("decode seed data: %w", err)
	}

	w, err := s.weights(ctx)
	if err != nil {
		return nil, fmt.Errorf("load scoring weights: %w", err)
	}
	engine := scoring.NewEngine(w)

	result := &SeedResult{}
	err = s.store.InTx(ctx, func(tx *store.Tx) error {
		profiles := make(map[string]int64, len(data.Companies))
		for _, c := range data.Companies {
			id, created, err := ensureCompany(ctx, tx, c)
			if err != nil {
				return err
			}
			profiles[c.Name] = id
			if created {
				result.CreatedCompanies++
			}
		}

		for _, sl := range data.Leads {
			_, err := tx.GetLeadByEmail(ctx, sl.Email)
			if err == nil {
				continue
			}
			if !errors.Is(err, store.ErrNotFound) {
				return err
			}

			if err := seedOne(ctx, tx, engine, sl, profiles); err != nil {
				return fmt.Errorf("seed %s: %w", sl.Email, err)
			}
			result.CreatedLeads++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.TotalLeads, err = s.store.CountLeads(ctx); err != nil {
		return nil, err
	}
	result.Message = "Sample leads seeded successfully"

	s.logger.Info("sample data seeded",
		zap.Int("created_leads", result.CreatedLeads),
		zap.Int("created_companies", result.CreatedCompanies),
		zap.Int("total_leads", result.TotalLeads),
	)

	return result, nil
}

func ensureCompany(ctx context.Context, tx *store.Tx, c seedCompany) (int64, bool, error) {
	existing, err := tx.GetCompanyProfileByDomain(ctx, c.Domain)
	if err == nil {
		return existing.ID, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return 0, false, err
	}

	p := leads.CompanyProfile{
		Name:        c.Name,
		Domain:      c.Domain,
		Size:        c.Size,
		Industry:    c.Industry,
		Description: c.Description,
	}
	if err := tx.CreateCompanyProfile(ctx, &p); err != nil {
		return 0, false, err
	}
	return p.ID, true, nil
}

func seedOne(ctx context.Context, tx *store.Tx, engine *scoring.Engine, sl seedLead, profiles map[string]int64) error {
	lead := leads.Lead{
		Name:        sl.Name,
		Email:       sl.Email,
		Company:     sl.Company,
		Title:       sl.Title,
		Phone:       sl.Phone,
		LinkedInURL: sl.LinkedInURL,
		Notes:       sl.Notes,
		Stage:       sl.Stage,
	}
	if id, ok := profiles[sl.Company]; ok {
		lead.CompanyProfileID = &id
	}
	// leads past New come with a score, as if they had already been worked
	if lead.Stage != leads.StageNew {
		score := engine.Calculate(lead).TotalScore
		lead.Score = &score
	}

	if err := tx.CreateLead(ctx, &lead); err != nil {
		return err
	}

	entries := []leads.Activity{
		leads.NewActivity(lead.ID, leads.ActivityCreated,
			fmt.Sprintf("Lead created with stage: %s", lead.Stage),
			map[string]any{"initial_stage": lead.Stage, "source": "seed_data", "notes": lead.Notes},
		),
	}
	if lead.Stage != leads.StageNew {
		entries = append(entries, leads.NewActivity(lead.ID, leads.ActivityQualified,
			"Lead qualified through initial screening",
			map[string]any{"qualification_score": lead.Score, "qualification_method": "manual"},
		))
	}
	if lead.Stage.Index() >= leads.StageContacted.Index() {
		entries = append(entries, leads.NewActivity(lead.ID, leads.ActivityContacted,
			"Initial outreach completed",
			map[string]any{"contact_method": "email", "response_received": lead.Stage != leads.StageContacted},
		))
	}

	for i := range entries {
		if err := tx.AppendActivity(ctx, &entries[i]); err != nil {
			return err
		}
	}
	return nil
}
