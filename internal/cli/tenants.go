package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var inviteRole string

var tenantsCmd = &cobra.Command{
	Use:   "tenants",
	Short: "Manage tenants",
}

var tenantsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all visible tenants",
	RunE: func(cmd *cobra.Command, args []string) error {
		tenants, err := apiClient.ListTenants(cmd.Context())
		if err != nil {
			return err
		}
		if len(tenants) == 0 {
			fmt.Println("No tenants found.")
			return nil
		}
		for _, t := range tenants {
			fmt.Printf("%-12s %-30s %s\n", t.ID, t.CompanyName, t.Industry)
		}
		return nil
	},
}

var tenantsShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show one tenant",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := ""
		if len(args) == 1 {
			id = args[0]
		} else {
			var err error
			if id, err = tenantID(); err != nil {
				return err
			}
		}

		t, err := apiClient.GetTenant(cmd.Context(), id)
		if err != nil {
			return err
		}

		fmt.Printf("ID:       %s\n", t.ID)
		fmt.Printf("Company:  %s\n", t.CompanyName)
		if t.Industry != "" {
			fmt.Printf("Industry: %s\n", t.Industry)
		}
		fmt.Printf("Updated:  %s\n", t.UpdatedAt.Format("2006-01-02 15:04"))
		if len(t.Answers) > 0 {
			fmt.Printf("Answers:  %d persisted\n", len(t.Answers))
		}
		total := 0
		for _, refs := range t.Attachments {
			total += len(refs)
		}
		if total > 0 {
			fmt.Printf("Files:    %d uploaded\n", total)
		}
		return nil
	},
}

var tenantsInviteCmd = &cobra.Command{
	Use:   "invite <email>",
	Short: "Invite a user into the tenant workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := tenantID()
		if err != nil {
			return err
		}

		invite, err := apiClient.CreateInvite(cmd.Context(), id, args[0], inviteRole)
		if err != nil {
			return err
		}

		fmt.Printf("Invited %s as %s (expires %s)\n",
			invite.Email, invite.Role, invite.ExpiresAt.Format("2006-01-02"))
		return nil
	},
}

func init() {
	tenantsInviteCmd.Flags().StringVar(&inviteRole, "role", "member", "role for the invited user")

	tenantsCmd.AddCommand(tenantsListCmd)
	tenantsCmd.AddCommand(tenantsShowCmd)
	tenantsCmd.AddCommand(tenantsInviteCmd)
}
