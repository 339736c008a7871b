package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/plcsim/internal/config"
	"github.com/roach88/plcsim/internal/engine"
	"github.com/roach88/plcsim/internal/plc"
	"github.com/roach88/plcsim/internal/program"
	"github.com/roach88/plcsim/internal/store"
)

// pulseScans is how many scan periods a --pulse holds its input true.
const pulseScans = 3

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Config   string
	Program  string
	Period   time.Duration
	Duration time.Duration
	Database string
	Pulses   []string

	// RunIDs allows overriding the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs engine.RunIDGenerator
}

// RunSummary is what run prints when the engine stops.
type RunSummary struct {
	RunID   string          `json:"run_id"`
	Program string          `json:"program"`
	Period  string          `json:"period"`
	Ticks   uint64          `json:"ticks"`
	Faults  uint64          `json:"faults"`
	State   string          `json:"state"`
	Outputs map[string]bool `json:"outputs"`
	Dropped uint64          `json:"dropped,omitempty"`
	TraceDB string          `json:"trace_db,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommandWith(&RunOptions{RootOptions: rootOpts})
}

func newRunCommandWith(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a program on the wall clock",
		Long: `Run a catalogue program on a fixed-period scan loop.

The program and its input script come from a CUE config file, from flags, or
both; flags override the file. The run lasts --duration, or until Ctrl-C when
no duration is set. With --db every scan that changed a signal is recorded
to a SQLite trace.

Examples:
  plcsim run --program chase-light --pulse START --duration 10s
  plcsim run --config ./conveyor.cue --db ./trace.db
  plcsim run --config ./conveyor.cue --period 50ms --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProgram(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "path to CUE config file")
	cmd.Flags().StringVarP(&opts.Program, "program", "p", "", "program kind (see plcsim list)")
	cmd.Flags().DurationVar(&opts.Period, "period", engine.DefaultPeriod, "scan period")
	cmd.Flags().DurationVar(&opts.Duration, "duration", 0, "run length (0 runs until interrupted)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite trace database")
	cmd.Flags().StringArrayVar(&opts.Pulses, "pulse", nil, "pulse an input at start (repeatable)")

	return cmd
}

// resolveConfig merges the config file with the flags that were set.
func resolveConfig(opts *RunOptions, flags interface{ Changed(string) bool }) (config.Config, error) {
	var kind program.Kind
	if opts.Program != "" {
		k, err := program.Parse(opts.Program)
		if err != nil {
			return config.Config{}, plc.NewConfigurationError("%v", err)
		}
		kind = k
	}

	var cfg config.Config
	switch {
	case opts.Config != "":
		loaded, err := config.Load(opts.Config)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
		if kind.Valid() && kind != cfg.Program {
			if len(cfg.Script) > 0 {
				return config.Config{}, plc.NewConfigurationError(
					"--program %s conflicts with the %s script in %s", kind, cfg.Program, opts.Config)
			}
			cfg.Program = kind
		}
	case kind.Valid():
		cfg = config.Default(kind)
	default:
		return config.Config{}, plc.NewConfigurationError("either --config or --program is required")
	}

	if flags.Changed("period") || opts.Config == "" {
		if opts.Period <= 0 {
			return config.Config{}, plc.NewConfigurationError("period must be positive, got %s", opts.Period)
		}
		cfg.Period = opts.Period
	}
	if flags.Changed("duration") {
		if opts.Duration < 0 {
			return config.Config{}, plc.NewConfigurationError("duration must not be negative, got %s", opts.Duration)
		}
		cfg.Duration = opts.Duration
	}
	if opts.Database != "" {
		cfg.TraceDB = opts.Database
	}

	pulses, err := pulseSteps(cfg.Program, cfg.Period, opts.Pulses)
	if err != nil {
		return config.Config{}, err
	}
	cfg.Script = append(cfg.Script, pulses...)
	sort.SliceStable(cfg.Script, func(i, j int) bool { return cfg.Script[i].At < cfg.Script[j].At })
	return cfg, nil
}

// pulseSteps turns --pulse names into a set at zero and a release
// pulseScans periods later.
func pulseSteps(kind program.Kind, period time.Duration, names []string) ([]config.Step, error) {
	if len(names) == 0 {
		return nil, nil
	}
	inputs := kind.Inputs()
	on := make(map[string]bool, len(names))
	off := make(map[string]bool, len(names))
	for _, raw := range names {
		name := plc.NormalizeName(raw)
		if !slices.Contains(inputs, name) {
			return nil, fmt.Errorf("--pulse: %w", plc.NewUnknownSignal(plc.DirectionInput, name))
		}
		on[name] = true
		off[name] = false
	}
	return []config.Step{
		{At: 0, Set: on},
		{At: pulseScans * period, Set: off},
	}, nil
}

func runProgram(opts *RunOptions, cmd *cobra.Command) error {
	cfg, err := resolveConfig(opts, cmd.Flags())
	if err != nil {
		if opts.Format == "json" {
			f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if outErr := f.Error(ErrorCode(err), err.Error(), nil); outErr != nil {
				return outErr
			}
		}
		if plc.IsConfigurationError(err) || plc.IsUnknownSignal(err) {
			return WrapExitError(ExitCommandError, "invalid configuration", err)
		}
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.LogLevel, opts.Verbose)
	slog.SetDefault(logger)

	prog, err := program.New(cfg.Program, plc.SystemClock{})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build program", err)
	}

	engineOpts := []engine.EngineOption{
		engine.WithPeriod(cfg.Period),
		engine.WithLogger(logger),
	}
	if opts.RunIDs != nil {
		engineOpts = append(engineOpts, engine.WithRunIDGenerator(opts.RunIDs))
	}

	var rec *store.Recorder
	if cfg.TraceDB != "" {
		logger.Info("opening trace database", "path", cfg.TraceDB)
		st, err := store.Open(cfg.TraceDB)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		rec = store.NewRecorder(st, store.WithRecorderLogger(logger))
		engineOpts = append(engineOpts, engine.WithRecorder(rec))
	}

	eng, err := engine.New(prog, engineOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create engine", err)
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Duration)
		defer cancel()
	}

	// Steps at zero land before the first scan.
	first := 0
	for first < len(cfg.Script) && cfg.Script[first].At <= 0 {
		applyStep(eng, cfg.Script[first], logger)
		first++
	}
	go runScript(ctx, eng, cfg.Script[first:], logger)

	if opts.Format != "json" {
		fmt.Fprintf(cmd.OutOrStdout(), "Running %s every %s. Press Ctrl-C to stop.\n", cfg.Program, cfg.Period)
	}
	runErr := eng.Run(ctx)

	summary := RunSummary{
		RunID:   eng.RunID(),
		Program: cfg.Program.String(),
		Period:  cfg.Period.String(),
		Ticks:   eng.Ticks(),
		Faults:  eng.Faults(),
		State:   eng.State(),
		Outputs: eng.Outputs(),
		TraceDB: cfg.TraceDB,
	}
	if rec != nil {
		if err := rec.Close(); err != nil {
			return WrapExitError(ExitFailure, "failed to write trace", err)
		}
		summary.Dropped = rec.Dropped()
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
		return WrapExitError(ExitFailure, "engine error", runErr)
	}
	logger.Info("engine stopped gracefully", "run_id", summary.RunID)

	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	return f.Success(summary, func(w io.Writer) { writeRunSummary(w, summary) })
}

// runScript applies each step once the run has been going for its At.
func runScript(ctx context.Context, eng *engine.Engine, steps []config.Step, logger *slog.Logger) {
	start := time.Now()
	for _, step := range steps {
		if wait := time.Until(start.Add(step.At)); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
		applyStep(eng, step, logger)
	}
}

func applyStep(eng *engine.Engine, step config.Step, logger *slog.Logger) {
	for _, name := range sortedNames(step.Set) {
		if err := eng.SetInput(name, step.Set[name]); err != nil {
			logger.Error("script input failed", "input", name, "error", err)
			continue
		}
		logger.Debug("script input set", "at", step.At, "input", name, "value", step.Set[name])
	}
}

func writeRunSummary(w io.Writer, s RunSummary) {
	fmt.Fprintf(w, "Run %s: %s, %d ticks, %d faults\n", s.RunID, s.Program, s.Ticks, s.Faults)
	fmt.Fprintf(w, "State: %s\n", s.State)
	for _, name := range sortedNames(s.Outputs) {
		fmt.Fprintf(w, "  %-18s %s\n", name, onOff(s.Outputs[name]))
	}
	if s.TraceDB != "" {
		fmt.Fprintf(w, "Trace: %s\n", s.TraceDB)
	}
	if s.Dropped > 0 {
		fmt.Fprintf(w, "Warning: %d scan records dropped\n", s.Dropped)
	}
}

func onOff(v bool) string {
	if v {
		return "ON"
	}
	return "off"
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
