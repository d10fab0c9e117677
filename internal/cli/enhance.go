package cli

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tbecker/braincli/internal/models"
	"github.com/tbecker/braincli/internal/score"
)

var (
	enhanceAnswersFile string
	enhanceAttach      []string
	enhanceRefresh     bool
	enhanceDryRun      bool
)

var enhanceCmd = &cobra.Command{
	Use:   "enhance",
	Short: "Work through the completion-enhancement flow",
	Long: `Enhance opens the enhancement flow for a tenant: it fetches the
completion analysis, shows the gaps the backend identified, applies
answers from a YAML file and file attachments, and saves — which
uploads every attachment, persists the answers, regenerates the
artifacts, refreshes the business brain, and recomputes the score.

The answers file maps field or question ids to text:

  hours: "Mon-Fri 9-17"
  q-weekend: "yes, Saturdays"

Attachments are fieldId=path pairs:

  braincli enhance -t t1 --answers answers.yaml --attach team-photo=./team.jpg

Without --answers and --attach the command only prints the outstanding
gaps and the current score.`,
	RunE: runEnhance,
}

func init() {
	enhanceCmd.Flags().StringVar(&enhanceAnswersFile, "answers", "", "YAML file of id: answer pairs")
	enhanceCmd.Flags().StringArrayVar(&enhanceAttach, "attach", nil, "file attachment as fieldId=path (repeatable)")
	enhanceCmd.Flags().BoolVar(&enhanceRefresh, "refresh", false, "force a fresh analysis instead of the cached one")
	enhanceCmd.Flags().BoolVar(&enhanceDryRun, "dry-run", false, "apply answers and show the score without saving")
}

func runEnhance(cmd *cobra.Command, args []string) error {
	id, err := tenantID()
	if err != nil {
		return err
	}

	session := sessions.Session(id)
	analysis, err := session.Open(cmd.Context(), enhanceRefresh)
	if err != nil {
		return err
	}

	hasInput := enhanceAnswersFile != "" || len(enhanceAttach) > 0
	if !hasInput {
		printGaps(analysis)
		snap := session.Snapshot()
		fmt.Printf("\nCompletion: %d%% (quick wins %d%%, questions %d%%)\n",
			snap.Completion.Overall,
			snap.Completion.PerCategory[score.CategoryQuickWins],
			snap.Completion.PerCategory[score.CategoryRefinements])
		return nil
	}

	if enhanceAnswersFile != "" {
		if err := applyAnswersFile(session, enhanceAnswersFile); err != nil {
			return err
		}
	}
	for _, spec := range enhanceAttach {
		if err := applyAttachment(session, spec); err != nil {
			return err
		}
	}

	if enhanceDryRun {
		snap := session.Snapshot()
		fmt.Printf("Completion after answers (not saved): %d%%\n", snap.Completion.Overall)
		return session.Cancel()
	}

	if err := runSaveProgress(session); err != nil {
		// The session stays in its error stage until acknowledged, so
		// the user can adjust and save again.
		session.Acknowledge()
		return err
	}

	snap := session.Snapshot()
	fmt.Printf("Saved. Completion now %d%%\n", snap.Completion.Overall)
	return nil
}

type enhanceSession interface {
	SetAnswer(id, value string) error
	QueueFile(id string, file models.PendingFile) error
}

func applyAnswersFile(session enhanceSession, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read answers file: %w", err)
	}

	answers := map[string]string{}
	if err := yaml.Unmarshal(data, &answers); err != nil {
		return fmt.Errorf("parse answers file: %w", err)
	}

	for id, value := range answers {
		if err := session.SetAnswer(id, value); err != nil {
			return fmt.Errorf("answer %q: %w", id, err)
		}
	}
	return nil
}

func applyAttachment(session enhanceSession, spec string) error {
	fieldID, path, ok := strings.Cut(spec, "=")
	if !ok {
		return fmt.Errorf("invalid --attach %q, want fieldId=path", spec)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read attachment: %w", err)
	}

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	return session.QueueFile(fieldID, models.PendingFile{
		Name:     filepath.Base(path),
		MimeType: mimeType,
		Size:     int64(len(content)),
		Content:  content,
	})
}

func printGaps(analysis *models.CompletionAnalysis) {
	fields := score.QuickWins(analysis)
	if len(fields) > 0 {
		fmt.Println("Quick wins:")
		for _, f := range fields {
			kind := string(f.Kind)
			fmt.Printf("  %-20s %s (%s)\n", f.FieldID, f.Label, kind)
			if f.HelpText != "" {
				fmt.Printf("  %-20s %s\n", "", f.HelpText)
			}
		}
	}

	questions := score.Questions(analysis)
	if len(questions) > 0 {
		fmt.Println("\nOpen questions:")
		for _, q := range questions {
			fmt.Printf("  %-20s [%s] %s\n", q.ID, q.Priority, q.Question)
		}
	}

	for _, card := range analysis.Cards {
		for _, rec := range card.Recommendations {
			fmt.Printf("\nRecommended: %s", rec.Title)
			if rec.TargetField != "" {
				fmt.Printf(" (fill %q yourself)", rec.TargetField)
			}
			fmt.Println()
		}
	}
}
