// Package scoring computes a deterministic weighted lead score with a per-factor breakdown.
package scoring

import (
	"math"

	"github.com/spigell/lead-responder/internal/leads"
)

// Item is the explained result of one factor.
type Item struct {
	Factor        string  `json:"factor"`
	Key           string  `json:"key"`
	Score         float64 `json:"score"`
	Weight        float64 `json:"weight"`
	WeightedScore float64 `json:"weighted_score"`
	Reasoning     string  `json:"reasoning"`
}

// Breakdown is the full scoring output.
type Breakdown struct {
	TotalScore float64            `json:"total_score"`
	Breakdown  []Item             `json:"breakdown"`
	Factors    map[string]float64 `json:"factors"`
}

type factor struct {
	key   string
	name  string
	score func(leads.Lead) (float64, string)
}

var factors = []factor{
	{FactorDataCompleteness, "Data Completeness", scoreCompleteness},
	{FactorTitleSeniority, "Title Seniority", scoreTitle},
	{FactorCompanySize, "Company Size", scoreCompany},
	{FactorContactQuality, "Contact Quality", scoreContact},
}

// Engine is immutable after construction and safe for concurrent use.
type Engine struct {
	weights Weights
}

// NewEngine normalizes the given weights once.
func NewEngine(w Weights) *Engine {
	return &Engine{weights: w.Normalize()}
}

func (e *Engine) Weights() Weights { return e.weights }

func (e *Engine) Calculate(lead leads.Lead) Breakdown {
	return Calculate(lead, e.weights)
}

// Calculate scores the lead with the given weights, normalizing them first.
func Calculate(lead leads.Lead, w Weights) Breakdown {
	w = w.Normalize()

	out := Breakdown{
		Breakdown: make([]Item, 0, len(factors)),
		Factors:   make(map[string]float64, len(factors)),
	}

	var total float64
	for _, f := range factors {
		score, reasoning := f.score(lead)
		weight := w.Get(f.key)
		weighted := score * weight / 100

		total += weighted
		out.Factors[f.key] = weighted
		out.Breakdown = append(out.Breakdown, Item{
			Factor:        f.name,
			Key:           f.key,
			Score:         score,
			Weight:        weight,
			WeightedScore: weighted,
			Reasoning:     reasoning,
		})
	}

	out.TotalScore = math.Round(total*10) / 10
	return out
}
