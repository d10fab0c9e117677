package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tbecker/braincli/internal/models"
	"github.com/tbecker/braincli/internal/score"
)

var scoreRefresh bool

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Show the tenant's completion score",
	Long: `Score fetches the completion analysis for a tenant and prints the
per-category and overall completion percentages against the persisted
answers.`,
	RunE: runScore,
}

func init() {
	scoreCmd.Flags().BoolVar(&scoreRefresh, "refresh", false, "force a fresh analysis")
}

func runScore(cmd *cobra.Command, args []string) error {
	id, err := tenantID()
	if err != nil {
		return err
	}

	analysis, err := apiClient.AnalyzeCompletion(cmd.Context(), id, scoreRefresh)
	if err != nil {
		return err
	}

	tenant, err := apiClient.GetTenant(cmd.Context(), id)
	if err != nil {
		return err
	}

	// Score the persisted answers as if they were local edits.
	edits := models.NewEditState()
	for fieldID, value := range tenant.Answers {
		edits.Texts[fieldID] = value
	}
	for fieldID, refs := range tenant.Attachments {
		for _, ref := range refs {
			edits.Files[fieldID] = append(edits.Files[fieldID], models.PendingFile{
				Name:     ref.Name,
				MimeType: ref.MimeType,
			})
		}
	}

	result := score.Score(analysis, edits)
	fmt.Printf("Tenant %s (%s)\n", tenant.ID, tenant.CompanyName)
	fmt.Printf("Analyzed at: %s\n\n", analysis.LastAnalyzedAt.Format("2006-01-02 15:04"))
	fmt.Printf("  Quick wins: %3d%%\n", result.PerCategory[score.CategoryQuickWins])
	fmt.Printf("  Questions:  %3d%%\n", result.PerCategory[score.CategoryRefinements])
	fmt.Printf("  Overall:    %3d%%\n", result.Overall)

	if remaining := len(score.QuickWins(analysis)); remaining > 0 && result.Overall < 100 {
		fmt.Printf("\nRun 'braincli enhance -t %s' to see the outstanding gaps.\n", id)
	}
	return nil
}
