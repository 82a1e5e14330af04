package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/smartticket/ticket-api/internal/service"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Work with access tokens",
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue <email>",
	Short: "Sign an access token for an existing account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.close()

		authService := service.NewAuthService(*rt.cfg, service.AuthDependencies{UserRepo: rt.stores.Users})
		token, err := authService.IssueToken(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token.Token)
		fmt.Fprintf(cmd.ErrOrStderr(), "user %s role %s expires %s\n", token.UserID, token.Role, token.ExpiresAt.Format(time.RFC3339))
		return nil
	},
}

func init() {
	tokenCmd.AddCommand(tokenIssueCmd)
}
