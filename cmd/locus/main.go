package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"os/user"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vrwarp/locus/internal/app"
	"github.com/vrwarp/locus/internal/platform/config"
	"github.com/vrwarp/locus/internal/platform/logger"
	"github.com/vrwarp/locus/pkg/requestcontext"
)

var (
	analyzerNames []string
	actorID       string
)

var rootCmd = &cobra.Command{
	Use:   "locus",
	Short: "Audit a people directory for data health problems",
	Long: `Locus reads the people directory, runs data health analyzers over the
roster and helps reviewers correct what it finds.

Configuration comes from LOCUS_* environment variables, the analyzer defaults
file (LOCUS_AUDIT_CONFIG) and the teams file (LOCUS_TEAMS_FILE).`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringSliceVarP(&analyzerNames, "analyzers", "a", nil,
		"analyzers to run (default all): family_order,ghost,bus_factor,velocity,volunteer_web,recruitment,contact")
	rootCmd.PersistentFlags().StringVar(&actorID, "actor", defaultActor(), "reviewer recorded on corrections")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", red("Error:"), err)
		stop()
		os.Exit(1)
	}
}

// setup wires services for one command. Logs go to stderr so stdout carries
// only command output.
func setup(cmd *cobra.Command) (*app.App, context.Context, error) {
	cfg := config.FromEnv()
	log := logger.NewWithWriter(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	a, err := app.New(cmd.Context(), cfg, log)
	if err != nil {
		return nil, nil, err
	}
	ctx := requestcontext.WithActorID(cmd.Context(), actorID)
	ctx = requestcontext.WithClientMetadata(ctx, "cli", "locus-cli")
	return a, ctx, nil
}

func defaultActor() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "cli"
}
