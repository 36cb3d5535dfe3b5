package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/filedrop/internal/server/auth"
	"github.com/dmitrijs2005/filedrop/internal/server/config"
)

func newTokenCmd() *cobra.Command {
	var (
		user   string
		secret string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for the gRPC API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("secret") {
				cfg, err := config.LoadFromEnv(environ())
				if err != nil {
					return fmt.Errorf("config: %w", err)
				}
				secret = cfg.SecretKey
			}

			token, err := auth.GenerateToken(user, []byte(secret), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "user id the token is issued to")
	cmd.Flags().StringVarP(&secret, "secret", "s", "", "signing key (default FILEDROP_SECRET_KEY)")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
