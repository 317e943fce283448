package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/tourcraft/tourcraft/internal/models"
	"github.com/tourcraft/tourcraft/internal/tokens"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue and revoke service access tokens",
	}
	cmd.AddCommand(newTokenIssueCmd())
	cmd.AddCommand(newTokenRevokeCmd())
	return cmd
}

func newTokenIssueCmd() *cobra.Command {
	var (
		id  models.Identity
		ttl time.Duration
	)
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue an HS256 access token signed with JWT_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if id.Sub == "" {
				return errors.New("--sub is required")
			}
			if ttl <= 0 {
				ttl = cfg.JWT.AccessTokenTTL
			}
			raw, err := tokens.Issue(cfg.JWT.Secret, cfg.JWT.Issuer, id, ttl)
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{
					"access_token": raw,
					"expires_in":   int(ttl.Seconds()),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), raw)
			return nil
		},
	}
	cmd.Flags().StringVar(&id.Sub, "sub", "", "token subject")
	cmd.Flags().StringVar(&id.Name, "name", "", "display name")
	cmd.Flags().StringVar(&id.Email, "email", "", "email address")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "lifetime (default JWT_ACCESS_TOKEN_TTL)")
	return cmd
}

func newTokenRevokeCmd() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "revoke <token>",
		Short: "Reject a token until it would have expired",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr := cfg.Redis.Addr()
			if addr == "" {
				return errors.New("REDIS_HOST is required")
			}
			if ttl <= 0 {
				ttl = cfg.JWT.AccessTokenTTL
			}
			client := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
			defer client.Close()
			if err := tokens.NewRedisRevocations(client).Revoke(cmd.Context(), args[0], ttl); err != nil {
				return fmt.Errorf("revoke: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "token revoked for %s\n", ttl)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "how long to keep the revocation (default JWT_ACCESS_TOKEN_TTL)")
	return cmd
}
