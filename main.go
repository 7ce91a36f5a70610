package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	contractx "github.com/tanpawarit/vizta/agent/contract"
	configx "github.com/tanpawarit/vizta/pkg/config"
	_ "github.com/tanpawarit/vizta/pkg/logger/autoload"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "vizta",
		Short:         "Multi-agent query orchestration for public social data and personal projects",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if envFile != "" {
				configx.SetEnvFile(envFile)
			}
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env", "", "path to a .env file (default ./.env)")

	root.AddCommand(newAskCmd(), newHealthCmd(), newMigrateCmd())
	return root
}

func newAskCmd() *cobra.Command {
	var (
		userID    string
		sessionID string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "ask <query>",
		Short: "Run one query through the orchestrator",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := log.Logger.WithContext(cmd.Context())

			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if sessionID == "" {
				sessionID = uuid.NewString()
			}
			resp := a.orchestrator.Handle(ctx, contractx.Query{
				Text:      strings.Join(args, " "),
				UserID:    userID,
				SessionID: sessionID,
			})

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				enc.SetEscapeHTML(false)
				return enc.Encode(resp)
			}
			fmt.Fprintln(out, resp.Message)
			if !resp.Success && resp.Diagnostic != "" {
				log.Ctx(ctx).Debug().Str("diagnostic", resp.Diagnostic).Msg("query failed")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "cli", "requesting user id")
	cmd.Flags().StringVar(&sessionID, "session", "", "conversation session id (new session when empty)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full response as JSON")
	return cmd
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the configured collaborators",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := log.Logger.WithContext(cmd.Context())

			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			checks, err := a.health(ctx)
			for _, c := range checks {
				status := "ok"
				if !c.OK {
					status = "FAIL"
					if c.Info == "disabled" {
						status = "off"
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s %-4s %s\n", c.Name, status, c.Info)
			}
			return err
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the relational tables when they are missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := log.Logger.WithContext(cmd.Context())

			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.migrate(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema ready")
			return nil
		},
	}
}
