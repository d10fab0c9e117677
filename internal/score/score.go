// Package score derives completion percentages from a completion
// analysis and the local edit state. Everything here is pure: no I/O,
// no mutation of inputs.
package score

import (
	"math"

	"github.com/tbecker/braincli/internal/models"
)

// Category names used in Completion.PerCategory.
const (
	CategoryQuickWins   = "quickWins"
	CategoryRefinements = "refinements"
)

// Completion is the derived score.
type Completion struct {
	PerCategory map[string]int
	Overall     int
}

// QuickWins returns the de-duplicated missing-field descriptors across
// all cards, first occurrence wins, original order preserved.
func QuickWins(analysis *models.CompletionAnalysis) []models.MissingFieldDescriptor {
	if analysis == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var out []models.MissingFieldDescriptor
	for _, card := range analysis.Cards {
		for _, field := range card.MissingFields {
			if _, ok := seen[field.FieldID]; ok {
				continue
			}
			seen[field.FieldID] = struct{}{}
			out = append(out, field)
		}
	}
	return out
}

// Questions returns all refinement questions across cards. Question ids
// are unique per analysis, but de-duplicate defensively the same way.
func Questions(analysis *models.CompletionAnalysis) []models.RefinementQuestion {
	if analysis == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var out []models.RefinementQuestion
	for _, card := range analysis.Cards {
		for _, q := range card.Questions {
			if _, ok := seen[q.ID]; ok {
				continue
			}
			seen[q.ID] = struct{}{}
			out = append(out, q)
		}
	}
	return out
}

// RecommendationTargets returns the set of strategic-recommendation
// target fields. These are excluded from answer pre-fill, not from
// scoring.
func RecommendationTargets(analysis *models.CompletionAnalysis) map[string]struct{} {
	targets := make(map[string]struct{})
	if analysis == nil {
		return targets
	}
	for _, card := range analysis.Cards {
		for _, rec := range card.Recommendations {
			if rec.TargetField != "" {
				targets[rec.TargetField] = struct{}{}
			}
		}
	}
	return targets
}

// Score computes per-category and overall completion. An empty category
// is vacuously complete (100).
func Score(analysis *models.CompletionAnalysis, edits *models.EditState) Completion {
	if edits == nil {
		edits = models.NewEditState()
	}

	fields := QuickWins(analysis)
	filledFields := 0
	for _, f := range fields {
		if edits.Filled(f.FieldID, f.Kind) {
			filledFields++
		}
	}

	questions := Questions(analysis)
	filledQuestions := 0
	for _, q := range questions {
		if edits.Filled(q.ID, q.Kind) {
			filledQuestions++
		}
	}

	perCategory := map[string]int{
		CategoryQuickWins:   percentage(filledFields, len(fields)),
		CategoryRefinements: percentage(filledQuestions, len(questions)),
	}

	sum := 0
	for _, pct := range perCategory {
		sum += pct
	}

	return Completion{
		PerCategory: perCategory,
		Overall:     int(math.Round(float64(sum) / float64(len(perCategory)))),
	}
}

func percentage(filled, total int) int {
	if total == 0 {
		return 100
	}
	return int(math.Round(100 * float64(filled) / float64(total)))
}
