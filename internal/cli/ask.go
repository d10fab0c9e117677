package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask the tenant's business brain a question",
	Long: `Ask streams an answer from the tenant's conversational business
brain, token by token.

Examples:
  braincli ask -t t1 "What services do we offer?"
  braincli ask "How should I describe our pricing?"`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	id, err := tenantID()
	if err != nil {
		return err
	}

	err = apiClient.ChatStream(cmd.Context(), id, args[0], func(token string) error {
		fmt.Print(token)
		return nil
	})
	fmt.Println()
	return err
}
