package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/ttcp/internal/config"
	"github.com/verte-zerg/ttcp/internal/history"
	"github.com/verte-zerg/ttcp/internal/model"
	"github.com/verte-zerg/ttcp/internal/store"
	"github.com/verte-zerg/ttcp/internal/units"
)

type historyFlags struct {
	role   string
	proto  string
	since  string
	last   int
	output string
	format string
	dbPath string
	width  int
}

func newHistoryCmd() *cobra.Command {
	f := &historyFlags{}
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistoryCmd(cmd, f)
		},
	}
	cmd.Flags().StringVar(&f.role, "role", "", "role filter: t or r")
	cmd.Flags().StringVar(&f.proto, "proto", "", "protocol filter: tcp or udp")
	cmd.Flags().StringVar(&f.since, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&f.last, "last", 0, "limit to last N runs")
	cmd.Flags().StringVarP(&f.output, "output", "o", "table", "output format: table or yaml")
	cmd.Flags().StringVarP(&f.format, "format", "f", units.Default.String(), "format for rate: "+units.Valid)
	cmd.Flags().StringVar(&f.dbPath, "db", "", "history database path (default: $XDG_DATA_HOME/ttcp/ttcp.db)")
	cmd.Flags().IntVar(&f.width, "width", 0, "plot width in columns (default: terminal width)")
	return cmd
}

func (f *historyFlags) filter() (model.HistoryFilter, error) {
	filter := model.HistoryFilter{Last: f.last}
	switch f.role {
	case "", "t", "r":
		filter.Role = f.role
	default:
		return filter, fmt.Errorf("--role must be t or r")
	}
	switch f.proto {
	case "", "tcp", "udp":
		filter.Proto = f.proto
	default:
		return filter, fmt.Errorf("--proto must be tcp or udp")
	}
	if f.last < 0 {
		return filter, fmt.Errorf("--last must be >= 0")
	}
	if f.since != "" {
		parsed, err := time.ParseInLocation("2006-01-02", f.since, time.Local)
		if err != nil {
			return filter, fmt.Errorf("invalid --since value: %w", err)
		}
		filter.Since = &parsed
	}
	return filter, nil
}

func runHistoryCmd(cmd *cobra.Command, f *historyFlags) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	envCfg, err := config.LoadEnv(envFile)
	if err != nil {
		return fmt.Errorf("failed to load environment: %w", err)
	}
	applyStringConfig(cmd, "format", &f.format, envCfg.Format, fileCfg.Output.Format)
	applyStringConfig(cmd, "db", &f.dbPath, envCfg.DB, fileCfg.History.DB)

	format, err := units.ParseFormat(f.format)
	if err != nil {
		return fmt.Errorf("invalid --format: %w", err)
	}
	filter, err := f.filter()
	if err != nil {
		return err
	}
	if f.output != "table" && f.output != "yaml" {
		return fmt.Errorf("--output must be table or yaml")
	}

	st, err := store.Open(resolveDBPath(f.dbPath))
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	ctx := cmd.Context()
	runs, err := st.ListRuns(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	sum := history.Summarize(runs)
	if filter.Last == 0 {
		if sum, err = st.Summarize(ctx, filter); err != nil {
			return fmt.Errorf("failed to summarize runs: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	if f.output == "yaml" {
		if err := history.RenderYAML(out, sum, runs, format); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
	opts := history.Options{Format: format, Color: history.UseColor(out), PlotWidth: f.width}
	if err := history.Render(out, sum, runs, opts); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
