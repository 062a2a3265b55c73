// Package cli is the adsmutate command line: an HTTP server exposing the
// workflows, plus direct commands for cloning and inspecting runs.
package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/evanofslack/adsmutate/internal/config"
	"github.com/evanofslack/adsmutate/internal/logger"
	"github.com/evanofslack/adsmutate/internal/metrics"
	"github.com/evanofslack/adsmutate/internal/remote"
	"github.com/evanofslack/adsmutate/internal/state"
	"github.com/evanofslack/adsmutate/internal/workflow"
)

type app struct {
	cfgPath string
	cfg     *config.Config
	metrics *metrics.Metrics
	journal state.Journal
}

func Execute() error {
	return NewRootCmd().Execute()
}

func NewRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:           "adsmutate",
		Short:         "Compound mutation workflows for the Google Ads API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&a.cfgPath, "config", "config.yaml", "path to the config file")

	cmd.AddCommand(
		newServeCmd(a),
		newCloneCmd(a),
		newExecCmd(a),
		newRunsCmd(a),
		newWorkflowsCmd(),
	)
	return cmd
}

// load reads the config, configures logging and opens the journal.
func (a *app) load() error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Configure(cfg.Log.Level, cfg.Log.Env)
	a.cfg = cfg
	a.metrics = metrics.New(true)

	j, err := state.New(cfg.Journal.Path, a.metrics)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	a.journal = j
	return nil
}

// service builds the workflow service. The connector authenticates on the
// first request, not here.
func (a *app) service() *workflow.Service {
	if missing := a.cfg.Validate(); len(missing) > 0 {
		slog.Warn("Credentials incomplete, requests will fail until set", "missing", missing)
	}
	conn := remote.NewConnector(
		remote.RESTFactory(a.cfg.API, a.metrics),
		a.metrics,
		remote.WithMaxAttempts(a.cfg.Connector.MaxAttempts),
		remote.WithBaseDelay(a.cfg.Connector.BaseDelay),
	)
	return workflow.New(a.cfg, conn, a.journal, a.metrics)
}

func (a *app) close() {
	if a.journal == nil {
		return
	}
	if err := a.journal.Close(); err != nil {
		slog.Error("Failed to close journal", "error", err)
	}
}

func newWorkflowsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "workflows",
		Short: "List the workflows served under /v1/workflows/{name}",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printLines(cmd.OutOrStdout(), workflow.Names())
		},
	}
}

func printLines(w io.Writer, lines []string) error {
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}
