package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/plcsim/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
	Kind     string // optional - filter to one entry kind
}

// TraceEntry is one recorded row, timed from the start of its run.
type TraceEntry struct {
	Tick   uint64        `json:"tick"`
	At     time.Duration `json:"at_ns"`
	State  string        `json:"state"`
	Kind   string        `json:"kind"`
	Name   string        `json:"name,omitempty"`
	Value  *bool         `json:"value,omitempty"`
	Detail string        `json:"detail,omitempty"`
}

// TraceResult holds one run and its entries.
type TraceResult struct {
	Run     store.Run    `json:"run"`
	Digest  string       `json:"digest"`
	Entries []TraceEntry `json:"entries"`
	Stats   TraceStats   `json:"stats"`
}

// TraceStats holds summary statistics for a run.
type TraceStats struct {
	TotalEntries  int    `json:"total_entries"`
	InputChanges  int    `json:"input_changes"`
	OutputChanges int    `json:"output_changes"`
	Notes         int    `json:"notes"`
	Faults        int    `json:"faults"`
	LastTick      uint64 `json:"last_tick"`
	IsComplete    bool   `json:"is_complete"`
}

var traceKinds = []string{store.KindInput, store.KindOutput, store.KindNote, store.KindFault}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show recorded runs",
		Long: `Read a trace database written by plcsim run --db.

Without --run, lists every recorded run. With --run, shows that run's
timeline: input changes, output changes, program notes and faults, in tick
order.

Examples:
  plcsim trace --db ./trace.db
  plcsim trace --db ./trace.db --run 01934f6e-...
  plcsim trace --db ./trace.db --run 01934f6e-... --kind output
  plcsim trace --db ./trace.db --run 01934f6e-... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite trace database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to show")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter to one kind (input|output|note|fault)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	if opts.Kind != "" && !slices.Contains(traceKinds, opts.Kind) {
		return NewExitError(ExitCommandError,
			fmt.Sprintf("invalid kind %q: must be one of %v", opts.Kind, traceKinds))
	}

	// store.Open would create an empty database.
	if _, err := os.Stat(opts.Database); err != nil {
		return WrapExitError(ExitCommandError, "database not found", err)
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if opts.RunID == "" {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		return f.Success(runs, func(w io.Writer) { writeRuns(w, runs) })
	}

	run, entries, err := st.ReadRun(ctx, opts.RunID)
	if errors.Is(err, store.ErrRunNotFound) {
		if opts.Format == "json" {
			if err := f.Error("E_RUN_NOT_FOUND", fmt.Sprintf("no run %s", opts.RunID), nil); err != nil {
				return err
			}
		}
		return WrapExitError(ExitCommandError, "run not found", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	result := buildTrace(run, entries, opts.Kind)
	if result.Digest, err = store.Digest(run, entries); err != nil {
		return WrapExitError(ExitCommandError, "failed to digest run", err)
	}
	if opts.Format == "json" {
		return outputTraceJSON(cmd, result)
	}
	return outputTraceText(cmd, result)
}

// buildTrace converts store entries to the timeline, keeping only kind when
// it is set. Stats always cover the whole run.
func buildTrace(run store.Run, entries []store.Entry, kind string) TraceResult {
	result := TraceResult{
		Run:     run,
		Entries: []TraceEntry{},
		Stats: TraceStats{
			TotalEntries: len(entries),
			IsComplete:   run.StoppedAt != nil,
		},
	}

	for _, e := range entries {
		switch e.Kind {
		case store.KindInput:
			result.Stats.InputChanges++
		case store.KindOutput:
			result.Stats.OutputChanges++
		case store.KindNote:
			result.Stats.Notes++
		case store.KindFault:
			result.Stats.Faults++
		}
		if e.Tick > result.Stats.LastTick {
			result.Stats.LastTick = e.Tick
		}

		if kind != "" && e.Kind != kind {
			continue
		}
		result.Entries = append(result.Entries, TraceEntry{
			Tick:   e.Tick,
			At:     e.At.Sub(run.StartedAt),
			State:  e.State,
			Kind:   e.Kind,
			Name:   e.Name,
			Value:  e.Value,
			Detail: e.Detail,
		})
	}
	return result
}

func writeRuns(w io.Writer, runs []store.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	for _, r := range runs {
		stopped := "running or interrupted"
		if r.StoppedAt != nil {
			stopped = r.StoppedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
		}
		fmt.Fprintf(w, "%s  %-24s every %-6s %s  (%s)\n",
			r.ID, r.Program, r.Period, r.StartedAt.Local().Format(time.DateTime), stopped)
	}
}

// outputTraceJSON outputs the trace result as JSON.
func outputTraceJSON(cmd *cobra.Command, result TraceResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
		RunID:  result.Run.ID,
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// outputTraceText outputs the trace result as human-readable text.
func outputTraceText(cmd *cobra.Command, result TraceResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Run: %s\n", result.Run.ID)
	fmt.Fprintf(w, "Program: %s every %s\n", result.Run.Program, result.Run.Period)
	fmt.Fprintf(w, "Status: %s\n", completeStatus(result.Stats.IsComplete))
	fmt.Fprintf(w, "Digest: %s\n", result.Digest)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Entries) == 0 {
		fmt.Fprintln(w, "  (no entries)")
	}
	for _, e := range result.Entries {
		formatTraceEntry(w, e)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Entries:  %d\n", result.Stats.TotalEntries)
	fmt.Fprintf(w, "  Input Changes:  %d\n", result.Stats.InputChanges)
	fmt.Fprintf(w, "  Output Changes: %d\n", result.Stats.OutputChanges)
	fmt.Fprintf(w, "  Notes:          %d\n", result.Stats.Notes)
	fmt.Fprintf(w, "  Faults:         %d\n", result.Stats.Faults)
	fmt.Fprintf(w, "  Last Tick:      %d\n", result.Stats.LastTick)

	return nil
}

// formatTraceEntry formats a single timeline entry for text output.
func formatTraceEntry(w io.Writer, e TraceEntry) {
	switch e.Kind {
	case store.KindInput, store.KindOutput:
		value := "?"
		if e.Value != nil {
			value = onOff(*e.Value)
		}
		fmt.Fprintf(w, "  [%d] %10s %-6s %s %s\n", e.Tick, e.At, e.Kind, e.Name, value)
	case store.KindFault:
		fmt.Fprintf(w, "  [%d] %10s FAULT  %s\n", e.Tick, e.At, e.Detail)
	default:
		fmt.Fprintf(w, "  [%d] %10s %-6s %s (%s)\n", e.Tick, e.At, e.Kind, e.Detail, e.State)
	}
}

// completeStatus returns a human-readable completion status.
func completeStatus(isComplete bool) string {
	if isComplete {
		return "Complete"
	}
	return "Incomplete (no stop recorded)"
}
