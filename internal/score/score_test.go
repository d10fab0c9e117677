package score

import (
	"testing"

	"github.com/tbecker/braincli/internal/models"
)

func analysisWith(cards ...models.AnalysisCard) *models.CompletionAnalysis {
	return &models.CompletionAnalysis{Cards: cards}
}

func field(id string, kind models.FieldKind) models.MissingFieldDescriptor {
	return models.MissingFieldDescriptor{FieldID: id, Label: id, Kind: kind}
}

func question(id string) models.RefinementQuestion {
	return models.RefinementQuestion{ID: id, Question: id + "?", Kind: models.FieldText, Priority: models.PriorityMedium}
}

func TestScore_NothingOutstandingIsComplete(t *testing.T) {
	got := Score(analysisWith(models.AnalysisCard{Title: "Empty"}), models.NewEditState())
	if got.Overall != 100 {
		t.Errorf("Overall = %d, want 100", got.Overall)
	}
	for name, pct := range got.PerCategory {
		if pct != 100 {
			t.Errorf("PerCategory[%s] = %d, want 100", name, pct)
		}
	}
}

func TestScore_NilAnalysis(t *testing.T) {
	got := Score(nil, nil)
	if got.Overall != 100 {
		t.Errorf("Overall = %d, want 100", got.Overall)
	}
}

func TestScore_PerCategory(t *testing.T) {
	analysis := analysisWith(
		models.AnalysisCard{
			Title:         "Services",
			MissingFields: []models.MissingFieldDescriptor{field("hours", models.FieldText), field("pricing", models.FieldTextarea)},
			Questions:     []models.RefinementQuestion{question("q1")},
		},
		models.AnalysisCard{
			Title:         "Team",
			MissingFields: []models.MissingFieldDescriptor{field("team-photo", models.FieldFile)},
			Questions:     []models.RefinementQuestion{question("q2")},
		},
	)

	edits := models.NewEditState()
	if err := edits.SetText("hours", "Mon-Fri 9-17"); err != nil {
		t.Fatal(err)
	}
	if err := edits.QueueFile("team-photo", models.PendingFile{Name: "team.jpg", MimeType: "image/jpeg"}); err != nil {
		t.Fatal(err)
	}
	if err := edits.SetText("q1", "yes"); err != nil {
		t.Fatal(err)
	}

	got := Score(analysis, edits)
	if got.PerCategory[CategoryQuickWins] != 67 {
		t.Errorf("quick-wins = %d, want 67", got.PerCategory[CategoryQuickWins])
	}
	if got.PerCategory[CategoryRefinements] != 50 {
		t.Errorf("refinements = %d, want 50", got.PerCategory[CategoryRefinements])
	}
	if got.Overall != 59 {
		t.Errorf("Overall = %d, want 59", got.Overall)
	}
}

func TestScore_WhitespaceTextNotFilled(t *testing.T) {
	analysis := analysisWith(models.AnalysisCard{
		MissingFields: []models.MissingFieldDescriptor{field("hours", models.FieldText)},
	})
	edits := models.NewEditState()
	if err := edits.SetText("hours", "   \t"); err != nil {
		t.Fatal(err)
	}

	got := Score(analysis, edits)
	if got.PerCategory[CategoryQuickWins] != 0 {
		t.Errorf("quick-wins = %d, want 0", got.PerCategory[CategoryQuickWins])
	}
}

func TestScore_Monotonic(t *testing.T) {
	analysis := analysisWith(models.AnalysisCard{
		MissingFields: []models.MissingFieldDescriptor{
			field("a", models.FieldText), field("b", models.FieldText), field("c", models.FieldText),
		},
		Questions: []models.RefinementQuestion{question("q1"), question("q2")},
	})

	edits := models.NewEditState()
	prev := Score(analysis, edits).Overall
	for _, id := range []string{"a", "q1", "b", "q2", "c"} {
		if err := edits.SetText(id, "answered"); err != nil {
			t.Fatal(err)
		}
		cur := Score(analysis, edits).Overall
		if cur < prev {
			t.Fatalf("filling %q decreased overall: %d -> %d", id, prev, cur)
		}
		prev = cur
	}
	if prev != 100 {
		t.Errorf("all filled, Overall = %d, want 100", prev)
	}
}

func TestQuickWins_DeduplicatesAcrossCards(t *testing.T) {
	analysis := analysisWith(
		models.AnalysisCard{MissingFields: []models.MissingFieldDescriptor{field("X", models.FieldText), field("Y", models.FieldText)}},
		models.AnalysisCard{MissingFields: []models.MissingFieldDescriptor{field("X", models.FieldText)}},
	)

	got := QuickWins(analysis)
	if len(got) != 2 {
		t.Fatalf("got %d fields, want 2", len(got))
	}
	if got[0].FieldID != "X" || got[1].FieldID != "Y" {
		t.Errorf("order = [%s %s], want first-seen [X Y]", got[0].FieldID, got[1].FieldID)
	}
}

func TestRecommendationTargets_DoNotAffectScoring(t *testing.T) {
	// A quick-win that is also a recommendation target still counts.
	analysis := analysisWith(models.AnalysisCard{
		MissingFields:   []models.MissingFieldDescriptor{field("pricing", models.FieldText)},
		Recommendations: []models.StrategicRecommendation{{Title: "Publish pricing", TargetField: "pricing"}},
	})

	edits := models.NewEditState()
	if err := edits.SetText("pricing", "from 99 EUR"); err != nil {
		t.Fatal(err)
	}

	got := Score(analysis, edits)
	if got.PerCategory[CategoryQuickWins] != 100 {
		t.Errorf("quick-wins = %d, want 100", got.PerCategory[CategoryQuickWins])
	}

	targets := RecommendationTargets(analysis)
	if _, ok := targets["pricing"]; !ok {
		t.Error("pricing missing from recommendation targets")
	}
}
