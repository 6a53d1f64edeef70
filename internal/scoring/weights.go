package scoring

import (
	"fmt"
	"math"

	"github.com/mitchellh/mapstructure"

	"github.com/spigell/lead-responder/internal/ai"
)

// Factor keys as stored in scoring configurations and activity payloads.
const (
	FactorDataCompleteness = "data_completeness"
	FactorTitleSeniority   = "title_seniority"
	FactorCompanySize      = "company_size"
	FactorContactQuality   = "contact_quality"
)

// FactorKeys lists the factors in breakdown order.
var FactorKeys = []string{
	FactorDataCompleteness,
	FactorTitleSeniority,
	FactorCompanySize,
	FactorContactQuality,
}

// Weights holds per-factor percentages.
type Weights struct {
	DataCompleteness float64 `mapstructure:"data_completeness" json:"data_completeness"`
	TitleSeniority   float64 `mapstructure:"title_seniority" json:"title_seniority"`
	CompanySize      float64 `mapstructure:"company_size" json:"company_size"`
	ContactQuality   float64 `mapstructure:"contact_quality" json:"contact_quality"`
}

func DefaultWeights() Weights {
	return Weights{
		DataCompleteness: 30,
		TitleSeniority:   35,
		CompanySize:      20,
		ContactQuality:   15,
	}
}

func (w Weights) Sum() float64 {
	return w.DataCompleteness + w.TitleSeniority + w.CompanySize + w.ContactQuality
}

// Normalize rescales the weights so they sum to 100. A zero sum yields the defaults.
func (w Weights) Normalize() Weights {
	total := w.Sum()
	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return DefaultWeights()
	}
	if total == 100 {
		return w
	}
	return Weights{
		DataCompleteness: w.DataCompleteness / total * 100,
		TitleSeniority:   w.TitleSeniority / total * 100,
		CompanySize:      w.CompanySize / total * 100,
		ContactQuality:   w.ContactQuality / total * 100,
	}
}

// Get returns the weight for a factor key.
func (w Weights) Get(key string) float64 {
	switch key {
	case FactorDataCompleteness:
		return w.DataCompleteness
	case FactorTitleSeniority:
		return w.TitleSeniority
	case FactorCompanySize:
		return w.CompanySize
	case FactorContactQuality:
		return w.ContactQuality
	default:
		return 0
	}
}

// Map converts the weights back to the stored representation.
func (w Weights) Map() map[string]float64 {
	out := make(map[string]float64, len(FactorKeys))
	for _, key := range FactorKeys {
		out[key] = w.Get(key)
	}
	return out
}

// WeightsFromMap decodes a user or stored weight mapping and returns it normalized.
// All four factors are required, values must be finite non-negative numbers and
// at least one must be positive.
func WeightsFromMap(raw map[string]any) (Weights, error) {
	if len(raw) == 0 {
		return Weights{}, &ai.ValidationError{Field: "weights", Reason: "no weights supplied"}
	}

	for _, key := range FactorKeys {
		v, ok := raw[key]
		if !ok {
			return Weights{}, &ai.ValidationError{Field: key, Reason: "weight is missing"}
		}
		if v == nil {
			return Weights{}, &ai.ValidationError{Field: key, Reason: "weight must be a number"}
		}
	}

	var w Weights
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      &w,
	})
	if err != nil {
		return Weights{}, fmt.Errorf("build weights decoder: %w", err)
	}

	if err := decoder.Decode(raw); err != nil {
		return Weights{}, &ai.ValidationError{Field: "weights", Reason: err.Error()}
	}

	for _, key := range FactorKeys {
		v := w.Get(key)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Weights{}, &ai.ValidationError{Field: key, Reason: "weight must be a finite number"}
		}
		if v < 0 {
			return Weights{}, &ai.ValidationError{Field: key, Reason: "weight must not be negative"}
		}
	}

	if w.Sum() <= 0 {
		return Weights{}, &ai.ValidationError{Field: "weights", Reason: "weights must not all be zero"}
	}

	return w.Normalize(), nil
}

// WeightsFromFloats is a convenience wrapper for configs persisted as numbers.
func WeightsFromFloats(raw map[string]float64) (Weights, error) {
	generic := make(map[string]any, len(raw))
	for k, v := range raw {
		generic[k] = v
	}
	return WeightsFromMap(generic)
}
