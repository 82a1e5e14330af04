package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smartticket/ticket-api/internal/domain"
	"github.com/smartticket/ticket-api/internal/service"
)

var promoteRole string

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage accounts",
}

var userPromoteCmd = &cobra.Command{
	Use:   "promote <email>",
	Short: "Change the role of an account",
	Long: `Set the role of the account registered under <email>. Registration always
creates User accounts, so this is how the first Admin is made.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.close()

		authService := service.NewAuthService(*rt.cfg, service.AuthDependencies{UserRepo: rt.stores.Users})
		user, err := authService.SetRole(cmd.Context(), args[0], domain.Role(promoteRole))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) is now %s\n", user.Email, user.ID, user.Role)
		return nil
	},
}

func init() {
	userPromoteCmd.Flags().StringVar(&promoteRole, "role", string(domain.RoleAdmin), "role to assign (User or Admin)")
	userCmd.AddCommand(userPromoteCmd)
}
