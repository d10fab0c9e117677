package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tbecker/braincli/internal/models"
)

var (
	generateCompany  string
	generateIndustry string
	generateTasks    []string
	generateService  string
	generateNotes    string
	generateOutput   string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate artifacts from an intake",
	Long: `Generate submits an intake payload to the backend and waits for the
generated artifact. Long-running jobs stream their progress stages,
which are printed as they arrive.

Examples:
  braincli generate -t t1 --company "Acme GmbH" --service recruiting --task "office management"
  braincli generate -t t1 --company "Acme GmbH" --service profile -o profile.json`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&generateCompany, "company", "", "company name (required)")
	generateCmd.Flags().StringVar(&generateIndustry, "industry", "", "industry")
	generateCmd.Flags().StringSliceVar(&generateTasks, "task", nil, "tasks to cover (repeatable)")
	generateCmd.Flags().StringVar(&generateService, "service", string(models.ServiceProfile), "service type: recruiting, profile, or branding")
	generateCmd.Flags().StringVar(&generateNotes, "notes", "", "free-form notes for the generator")
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "", "write the artifact JSON to a file")
	generateCmd.MarkFlagRequired("company")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	id, err := tenantID()
	if err != nil {
		return err
	}

	service := models.ServiceType(strings.ToLower(generateService))
	switch service {
	case models.ServiceRecruiting, models.ServiceProfile, models.ServiceBranding:
	default:
		return fmt.Errorf("unknown service type %q", generateService)
	}

	session := sessions.Session(id)
	theme := defaultTheme

	result, err := session.Generate(cmd.Context(), models.IntakeRequest{
		CompanyName: generateCompany,
		Industry:    generateIndustry,
		Tasks:       generateTasks,
		ServiceType: service,
		Notes:       generateNotes,
	}, func(stage string) {
		if stdoutIsTerminal() {
			fmt.Println(theme.statusStyle().Render("… " + stage))
		} else {
			fmt.Println("… " + stage)
		}
	})
	if err != nil {
		return err
	}

	if generateOutput != "" {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("encode artifact: %w", err)
		}
		if err := os.WriteFile(generateOutput, data, 0644); err != nil {
			return fmt.Errorf("write %s: %w", generateOutput, err)
		}
		fmt.Printf("Artifact written to %s\n", generateOutput)
		return nil
	}

	printArtifact(result)
	return nil
}

func printArtifact(result *models.AnalysisResult) {
	switch result.ServiceType {
	case models.ServiceRecruiting:
		jp := result.Recruiting
		fmt.Printf("\n%s\n\n%s\n\n", jp.Title, jp.Summary)
		if len(jp.Responsibilities) > 0 {
			fmt.Println("Responsibilities:")
			for _, r := range jp.Responsibilities {
				fmt.Printf("  • %s\n", r)
			}
		}
		if len(jp.Requirements) > 0 {
			fmt.Println("Requirements:")
			for _, r := range jp.Requirements {
				fmt.Printf("  • %s\n", r)
			}
		}
	case models.ServiceProfile:
		for _, card := range result.Profile {
			fmt.Printf("\n## %s\n%s\n", card.Title, card.Content)
		}
	case models.ServiceBranding:
		bk := result.Branding
		fmt.Printf("\nTone: %s\n", bk.Tone)
		if bk.Tagline != "" {
			fmt.Printf("Tagline: %s\n", bk.Tagline)
		}
		if len(bk.Keywords) > 0 {
			fmt.Printf("Keywords: %s\n", strings.Join(bk.Keywords, ", "))
		}
	}
}
