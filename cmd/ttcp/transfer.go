package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/oklog/run"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/ttcp/internal/bench"
	"github.com/verte-zerg/ttcp/internal/config"
	"github.com/verte-zerg/ttcp/internal/report"
	"github.com/verte-zerg/ttcp/internal/sampler"
	"github.com/verte-zerg/ttcp/internal/ticks"
	"github.com/verte-zerg/ttcp/internal/timeval"
	"github.com/verte-zerg/ttcp/internal/units"
)

// transferFlags holds the flags shared by transmit and receive.
type transferFlags struct {
	port       int
	udp        bool
	bufLen     int
	numBufs    int
	sink       bool
	sockBuf    int
	noDelay    bool
	fullBlocks bool
	touch      bool
	verbose    bool
	format     string
	progress   bool
	speed      bool
	lineWidth  int
	record     bool
	dbPath     string
}

func (f *transferFlags) register(cmd *cobra.Command, role bench.Role) {
	flags := cmd.Flags()
	flags.IntVarP(&f.port, "port", "p", bench.DefaultPort, "port number to send to or listen at")
	flags.BoolVarP(&f.udp, "udp", "u", false, "use UDP instead of TCP")
	flags.IntVarP(&f.bufLen, "length", "l", bench.DefaultBufLen, "length of bufs read from or written to network")
	flags.IntVarP(&f.numBufs, "nbuf", "n", bench.DefaultNumBufs, "number of source bufs written to network")
	flags.BoolVarP(&f.sink, "sink", "s", false, "source a pattern to network (-t) or discard data from network (-r); default is stdin/stdout")
	flags.IntVarP(&f.sockBuf, "sockbuf", "b", 0, "set socket buffer size (if supported)")
	flags.BoolVarP(&f.verbose, "verbose", "v", false, "verbose: print more statistics")
	flags.StringVarP(&f.format, "format", "f", units.Default.String(), "format for rate: "+units.Valid)
	flags.BoolVarP(&f.speed, "speed", "S", false, "print live throughput while running")
	flags.IntVar(&f.lineWidth, "line-width", ticks.DefaultLineLength, "progress bar width in columns")
	flags.BoolVar(&f.record, "record", false, "store the run in the history database")
	flags.StringVar(&f.dbPath, "db", "", "history database path (default: $XDG_DATA_HOME/ttcp/ttcp.db)")
	if role == bench.Transmit {
		flags.BoolVarP(&f.noDelay, "nodelay", "D", false, "don't buffer TCP writes (sets TCP_NODELAY socket option)")
		flags.BoolVarP(&f.progress, "progress", "P", false, "print a progress bar while transmitting")
	} else {
		flags.BoolVarP(&f.fullBlocks, "full-blocks", "B", false, "only output full blocks, as specified by -l (for TAR)")
		flags.BoolVarP(&f.touch, "touch", "T", false, `"touch": access each byte as it's read`)
	}
}

// apply overlays environment and config file values onto flags that were
// not set on the command line.
func (f *transferFlags) apply(cmd *cobra.Command, env config.EnvConfig, file config.FileConfig) {
	applyIntConfig(cmd, "port", &f.port, env.Port, file.Net.Port)
	applyBoolConfig(cmd, "udp", &f.udp, env.UDP, file.Net.UDP)
	applyIntConfig(cmd, "length", &f.bufLen, env.BufLen, file.Net.BufLen)
	applyIntConfig(cmd, "nbuf", &f.numBufs, env.NumBufs, file.Net.NumBufs)
	applyIntConfig(cmd, "sockbuf", &f.sockBuf, file.Net.SockBuf)
	applyBoolConfig(cmd, "nodelay", &f.noDelay, file.Net.NoDelay)
	applyStringConfig(cmd, "format", &f.format, env.Format, file.Output.Format)
	applyBoolConfig(cmd, "progress", &f.progress, file.Output.Progress)
	applyBoolConfig(cmd, "speed", &f.speed, file.Output.Speed)
	applyBoolConfig(cmd, "verbose", &f.verbose, file.Output.Verbose)
	applyIntConfig(cmd, "line-width", &f.lineWidth, file.Output.LineWidth)
	applyBoolConfig(cmd, "record", &f.record, env.Record, file.History.Record)
	applyStringConfig(cmd, "db", &f.dbPath, env.DB, file.History.DB)
}

func (f *transferFlags) options(host string) bench.Options {
	return bench.Options{
		Host:       host,
		Port:       f.port,
		UDP:        f.udp,
		BufLen:     f.bufLen,
		NumBufs:    f.numBufs,
		Sink:       f.sink,
		SockBuf:    f.sockBuf,
		NoDelay:    f.noDelay,
		FullBlocks: f.fullBlocks,
		Touch:      f.touch,
		Verbose:    f.verbose,
		Stdin:      os.Stdin,
		Stdout:     os.Stdout,
		Log:        os.Stderr,
	}
}

func validateTransferFlags(f *transferFlags) error {
	if f.bufLen <= 0 {
		return fmt.Errorf("--length must be > 0")
	}
	if f.numBufs <= 0 {
		return fmt.Errorf("--nbuf must be > 0")
	}
	if f.sockBuf < 0 {
		return fmt.Errorf("--sockbuf must be >= 0")
	}
	if f.lineWidth <= 0 {
		return fmt.Errorf("--line-width must be > 0")
	}
	return nil
}

func newTransmitCmd() *cobra.Command {
	f := &transferFlags{}
	cmd := &cobra.Command{
		Use:     "transmit [flags] host",
		Aliases: []string{"t"},
		Short:   "Send data to a receiver",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransfer(cmd, bench.Transmit, f, args[0])
		},
	}
	f.register(cmd, bench.Transmit)
	return cmd
}

func newReceiveCmd() *cobra.Command {
	f := &transferFlags{}
	cmd := &cobra.Command{
		Use:     "receive [flags]",
		Aliases: []string{"r"},
		Short:   "Wait for a transmitter and consume its data",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTransfer(cmd, bench.Receive, f, "")
		},
	}
	f.register(cmd, bench.Receive)
	return cmd
}

func runTransfer(cmd *cobra.Command, role bench.Role, f *transferFlags, host string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	envCfg, err := config.LoadEnv(envFile)
	if err != nil {
		return fmt.Errorf("failed to load environment: %w", err)
	}
	f.apply(cmd, envCfg, fileCfg)
	if err := validateTransferFlags(f); err != nil {
		return err
	}
	format, err := units.ParseFormat(f.format)
	if err != nil {
		return fmt.Errorf("invalid --format: %w", err)
	}

	opts := f.options(host)
	if err := opts.Validate(role); err != nil {
		return err
	}

	// Received data owns stdout unless it is discarded.
	out := cmd.OutOrStdout()
	if role == bench.Receive && !f.sink {
		out = cmd.ErrOrStderr()
	}
	if err := report.WriteHeader(out, report.HeaderFor(role, opts)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	obs := newObserver(os.Stderr, role, f, format)
	res, err := runGroup(cmd.Context(), func(ctx context.Context) (bench.Result, error) {
		if role == bench.Transmit {
			return bench.RunTransmit(ctx, opts, obs)
		}
		return bench.RunReceive(ctx, opts, obs)
	})
	if err != nil {
		return err
	}

	if err := report.Write(out, res, format, f.verbose); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if f.record {
		if err := recordRun(cmd.Context(), f.dbPath, res); err != nil {
			return err
		}
	}
	return nil
}

// runGroup runs transfer next to a signal handler. An interrupt cancels the
// transfer, which still returns its partial result.
func runGroup(parent context.Context, transfer func(context.Context) (bench.Result, error)) (bench.Result, error) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	var res bench.Result
	var transferErr error
	var g run.Group
	g.Add(func() error {
		res, transferErr = transfer(ctx)
		return transferErr
	}, func(error) {
		cancel()
	})
	g.Add(run.SignalHandler(ctx, os.Interrupt, syscall.SIGTERM))

	err := g.Run()
	var sigErr run.SignalError
	if errors.As(err, &sigErr) && transferErr == nil {
		logErrf("%s: interrupted by %s\n", res.Role.Tag(), sigErr.Signal)
	}
	return res, transferErr
}

// newObserver picks the live renderer: a bar for a counted transmit, a
// spinner otherwise, or nothing.
func newObserver(w io.Writer, role bench.Role, f *transferFlags, format units.Format) bench.Observer {
	if !f.progress && !f.speed {
		return nil
	}
	if file, ok := w.(*os.File); ok && !term.IsTerminal(int(file.Fd())) {
		logErrln("warning: status output is not a terminal")
	}
	clock := timeval.SystemClock{}
	if f.progress && role == bench.Transmit && f.sink {
		opts := ticks.BarOptions{LineLength: f.lineWidth, FormatRate: format.Formatter()}
		if f.speed {
			opts.Sampler = sampler.New(clock)
		}
		return bench.NewProgressObserver(ticks.NewBar(w, opts), f.numBufs)
	}
	return bench.NewSpeedObserver(ticks.NewSpinner(w, clock, sampler.New(clock), format.Formatter()))
}
