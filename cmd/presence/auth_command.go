package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"presence/internal/auth"
)

func newAuthCommand(ctx *commandContext) *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the backend session",
	}

	authCmd.AddCommand(newAuthLoginCommand(ctx))
	authCmd.AddCommand(newAuthLogoutCommand(ctx))
	authCmd.AddCommand(newAuthStatusCommand(ctx))

	return authCmd
}

func newAuthLoginCommand(ctx *commandContext) *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a session token for backend calls",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			value := strings.TrimSpace(token)
			if value == "" {
				fmt.Fprint(cmd.OutOrStdout(), "Session token: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("no token provided")
				}
				value = strings.TrimSpace(line)
			}

			store := auth.NewFileStore(cfg.Paths.TokenPath)
			if err := store.Save(value); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Session token saved to %s\n", cfg.Paths.TokenPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&token, "token", "t", "", "Session token (prompted when omitted)")
	return cmd
}

func newAuthLogoutCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := auth.NewFileStore(cfg.Paths.TokenPath).Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Session token removed")
			return nil
		},
	}
}

func newAuthStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a session token is stored",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			_, err = auth.NewFileStore(cfg.Paths.TokenPath).SessionToken(cmd.Context())
			switch {
			case err == nil:
				fmt.Fprintln(cmd.OutOrStdout(), "Logged in")
				return nil
			case errors.Is(err, auth.ErrNoSession):
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
				return nil
			default:
				return err
			}
		},
	}
}
