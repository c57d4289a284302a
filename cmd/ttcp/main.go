// Package main provides the CLI entrypoint for ttcp.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/ttcp/internal/bench"
	"github.com/verte-zerg/ttcp/internal/config"
	"github.com/verte-zerg/ttcp/internal/ticks"
	"github.com/verte-zerg/ttcp/internal/units"
)

var envFile string

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ttcp",
		Short:         "Measure TCP and UDP throughput between two hosts",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "read TTCP_* settings from this file (default: .env if present)")

	rootCmd.AddCommand(newTransmitCmd())
	rootCmd.AddCommand(newReceiveCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

// applyStringConfig fills target from the first non-nil value unless the
// flag was given on the command line. Values are ordered by precedence.
func applyStringConfig(cmd *cobra.Command, name string, target *string, values ...*string) {
	if cmd.Flags().Changed(name) {
		return
	}
	for _, v := range values {
		if v != nil {
			*target = *v
			return
		}
	}
}

func applyIntConfig(cmd *cobra.Command, name string, target *int, values ...*int) {
	if cmd.Flags().Changed(name) {
		return
	}
	for _, v := range values {
		if v != nil {
			*target = *v
			return
		}
	}
}

func applyBoolConfig(cmd *cobra.Command, name string, target *bool, values ...*bool) {
	if cmd.Flags().Changed(name) {
		return
	}
	for _, v := range values {
		if v != nil {
			*target = *v
			return
		}
	}
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# ttcp configuration
# Uncomment a value to enable it. CLI flags and TTCP_* environment
# variables override config values.

[net]
# port = %d             # Port number to send to or listen at
# udp = false            # Use UDP instead of TCP
# buflen = %d           # Length of buffers read from or written to the network
# nbuf = %d             # Number of source buffers written to the network
# sockbuf = 0            # Socket buffer size (0 keeps the system default)
# nodelay = false        # Set TCP_NODELAY on the transmit socket

[output]
# format = %q            # Rate unit: B K M G (bytes) or b k m g (bits)
# progress = false       # Draw a progress bar while transmitting
# speed = false          # Draw a live throughput spinner
# verbose = false        # Print socket milestones and extra statistics
# line-width = %d        # Progress bar width in columns

[history]
# record = false         # Store every finished run
# db = %q
`,
		bench.DefaultPort,
		bench.DefaultBufLen,
		bench.DefaultNumBufs,
		units.Default.String(),
		ticks.DefaultLineLength,
		config.DefaultDBPath(),
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
