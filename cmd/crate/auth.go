package main

import (
	"context"
	"fmt"
	"time"

	"github.com/mmcdole/crate/internal/adapter"
	"github.com/mmcdole/crate/internal/adapter/source"
	"github.com/spf13/cobra"
)

var loginToken string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store a bearer token for the catalog server",
	Long: `Store a bearer token for the catalog server.

The token is checked against the server before it is saved to the config
file. A running crate picks up the new token without restarting.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := adapter.ClearToken(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
		return nil
	},
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Inspect the stored credential",
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show who the stored token belongs to and when it expires",
	Args:  cobra.NoArgs,
	RunE:  runAuthStatus,
}

func init() {
	loginCmd.Flags().StringVar(&loginToken, "token", "", "token to store (prompted for when omitted)")

	authCmd.AddCommand(authStatusCmd)
	rootCmd.AddCommand(loginCmd, logoutCmd, authCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()

	flow := source.NewAuthFlow(loginToken, app.logger)
	result, err := flow.Run(ctx, app.cfg.Server.URL)
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	if err := adapter.SaveToken(result.Token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout())
	if result.Subject != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Logged in as %s\n", result.Subject)
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Token saved")
	}
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	token := app.cfg.Server.Token
	if token == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "Not logged in. Run `crate login`.")
		return nil
	}

	now := time.Now()
	info := adapter.InspectToken(token)
	fmt.Fprintf(cmd.OutOrStdout(), "Server: %s\nToken:  %s\n", app.cfg.Server.URL, info.Summary(now))
	if info.Expired(now) {
		fmt.Fprintln(cmd.OutOrStdout(), "The token has expired. Run `crate login`.")
	}
	return nil
}
