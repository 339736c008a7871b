package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/roach88/plcsim/internal/engine"
	"github.com/roach88/plcsim/internal/plc"
	"github.com/roach88/plcsim/internal/program"
)

// refreshInterval is how often the watch screen redraws.
const refreshInterval = 100 * time.Millisecond

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#87CEEB"))

	onStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#90EE90"))

	offStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1).
			MarginRight(1)
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Program string
	Period  time.Duration
	LogFile string

	// Clock allows overriding the engine clock (for testing).
	// If nil, defaults to the system clock.
	Clock plc.Clock
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Drive a program interactively",
		Long: `Run a program in a terminal UI.

The screen shows every input, output, timer and counter as the engine scans.
The engine starts stopped; press space to start it.

Keys:
  1-9       toggle input N
  up/down   select an input
  p         pulse the selected input
  space     start or stop the engine
  r         reset: stop, reload the program, clear every input
  n / N     switch to the next or previous program
  q         quit

Examples:
  plcsim watch --program conveyor-counter
  plcsim watch --program traffic-light-sequencer --period 50ms --log watch.log`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Program, "program", "p", "", "program kind (required)")
	_ = cmd.MarkFlagRequired("program")
	cmd.Flags().DurationVar(&opts.Period, "period", engine.DefaultPeriod, "scan period")
	cmd.Flags().StringVar(&opts.LogFile, "log", "", "write engine logs to this file")

	return cmd
}

func runWatch(opts *WatchOptions, cmd *cobra.Command) error {
	if opts.Format == "json" {
		return NewExitError(ExitCommandError, "watch is interactive and has no json output")
	}

	eng, kind, closeLog, err := newWatchEngine(opts)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	p := tea.NewProgram(newWatchModel(ctx, eng, kind),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	_, err = p.Run()
	eng.Stop()
	if err != nil && ctx.Err() == nil {
		return WrapExitError(ExitFailure, "terminal UI failed", err)
	}
	return nil
}

// newWatchEngine builds the engine for opts. Logs go to opts.LogFile or are
// discarded, since stderr belongs to the terminal UI.
func newWatchEngine(opts *WatchOptions) (*engine.Engine, program.Kind, func(), error) {
	kind, err := program.Parse(opts.Program)
	if err != nil {
		return nil, 0, nil, WrapExitError(ExitCommandError, "invalid program", err)
	}
	if opts.Period <= 0 {
		return nil, 0, nil, NewExitError(ExitCommandError, fmt.Sprintf("period must be positive, got %s", opts.Period))
	}

	var logOut io.Writer = io.Discard
	closeLog := func() {}
	if opts.LogFile != "" {
		f, err := os.OpenFile(opts.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, 0, nil, WrapExitError(ExitCommandError, "failed to open log file", err)
		}
		logOut = f
		closeLog = func() { _ = f.Close() }
	}

	clock := opts.Clock
	if clock == nil {
		clock = plc.SystemClock{}
	}
	prog, err := program.New(kind, clock)
	if err != nil {
		closeLog()
		return nil, 0, nil, WrapExitError(ExitCommandError, "failed to build program", err)
	}
	eng, err := engine.New(prog,
		engine.WithClock(clock),
		engine.WithPeriod(opts.Period),
		engine.WithLogger(newLogger(logOut, slog.LevelInfo, opts.Verbose)),
	)
	if err != nil {
		closeLog()
		return nil, 0, nil, WrapExitError(ExitCommandError, "failed to create engine", err)
	}
	return eng, kind, closeLog, nil
}

type watchKeys struct {
	Toggle    key.Binding
	Up        key.Binding
	Down      key.Binding
	Pulse     key.Binding
	StartStop key.Binding
	Reset     key.Binding
	Next      key.Binding
	Prev      key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func (k watchKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Pulse, k.StartStop, k.Reset, k.Next, k.Help, k.Quit}
}

func (k watchKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Toggle, k.Up, k.Down, k.Pulse},
		{k.StartStop, k.Reset, k.Next, k.Prev},
		{k.Help, k.Quit},
	}
}

func newWatchKeys() watchKeys {
	return watchKeys{
		Toggle: key.NewBinding(
			key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"),
			key.WithHelp("1-9", "toggle input"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "select up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "select down"),
		),
		Pulse: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "pulse selected"),
		),
		StartStop: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "start/stop"),
		),
		Reset: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reset"),
		),
		Next: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "next program"),
		),
		Prev: key.NewBinding(
			key.WithKeys("N"),
			key.WithHelp("N", "previous program"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more keys"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

type refreshMsg time.Time

// releaseMsg ends a pulse.
type releaseMsg struct{ name string }

type watchModel struct {
	ctx      context.Context
	eng      *engine.Engine
	kind     program.Kind
	inputs   []string
	selected int
	keys     watchKeys
	help     help.Model
	err      error
}

func newWatchModel(ctx context.Context, eng *engine.Engine, kind program.Kind) *watchModel {
	return &watchModel{
		ctx:    ctx,
		eng:    eng,
		kind:   kind,
		inputs: eng.InputNames(),
		keys:   newWatchKeys(),
		help:   help.New(),
	}
}

// load stops the engine and replaces its program with a fresh kind. The new
// IO table starts with every input off and the program's initial outputs.
func (m *watchModel) load(kind program.Kind) {
	m.eng.Stop()
	prog, err := program.New(kind, m.eng.Clock())
	if err != nil {
		m.err = err
		return
	}
	if err := m.eng.Load(prog); err != nil {
		m.err = err
		return
	}
	m.kind = kind
	m.inputs = m.eng.InputNames()
	m.selected = 0
	m.err = nil
}

// cycle loads the program delta places away in catalogue order.
func (m *watchModel) cycle(delta int) {
	kinds := program.Kinds()
	i := slices.Index(kinds, m.kind)
	n := len(kinds)
	m.load(kinds[((i+delta)%n+n)%n])
}

// pulseWidth holds a pulse long enough for several scans and one redraw.
func (m *watchModel) pulseWidth() time.Duration {
	return max(3*m.eng.Period(), refreshInterval)
}

func refresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

func (m *watchModel) Init() tea.Cmd {
	return refresh()
}

func (m *watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.eng.Stop()
			return m, tea.Quit

		case key.Matches(msg, m.keys.StartStop):
			if m.eng.IsRunning() {
				m.eng.Stop()
			} else {
				m.eng.Start(m.ctx)
			}

		case key.Matches(msg, m.keys.Reset):
			m.load(m.kind)

		case key.Matches(msg, m.keys.Next):
			m.cycle(1)

		case key.Matches(msg, m.keys.Prev):
			m.cycle(-1)

		case key.Matches(msg, m.keys.Up):
			if m.selected > 0 {
				m.selected--
			}

		case key.Matches(msg, m.keys.Down):
			if m.selected < len(m.inputs)-1 {
				m.selected++
			}

		case key.Matches(msg, m.keys.Toggle):
			idx := int(msg.String()[0] - '1')
			if idx < len(m.inputs) {
				m.selected = idx
				m.toggle(m.inputs[idx])
			}

		case key.Matches(msg, m.keys.Pulse):
			if len(m.inputs) == 0 {
				return m, nil
			}
			name := m.inputs[m.selected]
			m.err = m.eng.SetInput(name, true)
			return m, tea.Tick(m.pulseWidth(), func(time.Time) tea.Msg { return releaseMsg{name: name} })

		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}

	case releaseMsg:
		// A reload since the pulse has already cleared the input, or the
		// new program does not declare it.
		if err := m.eng.SetInput(msg.name, false); !plc.IsUnknownSignal(err) {
			m.err = err
		}

	case refreshMsg:
		return m, refresh()

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
	}

	return m, nil
}

func (m *watchModel) toggle(name string) {
	v, err := m.eng.GetInput(name)
	if err != nil {
		m.err = err
		return
	}
	m.err = m.eng.SetInput(name, !v)
}

func (m *watchModel) View() string {
	var b strings.Builder

	prog := m.eng.Program()
	status := offStyle.Render("STOPPED")
	if m.eng.IsRunning() {
		status = onStyle.Render("RUNNING")
	}
	b.WriteString(titleStyle.Render(fmt.Sprintf("plcsim · %s · every %s", prog.Name(), m.eng.Period())))
	fmt.Fprintf(&b, "  %s  tick %d\n\n", status, m.eng.Ticks())

	obs := m.eng.Observation()
	panels := []string{
		panelStyle.Render(m.renderInputs()),
		panelStyle.Render(renderSignals("Outputs", m.eng.OutputNames(), m.eng.Outputs())),
	}
	if len(obs.Timers) > 0 || len(obs.Counters) > 0 {
		panels = append(panels, panelStyle.Render(renderInternals(obs.Observation)))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, panels...))
	b.WriteString("\n")

	fmt.Fprintf(&b, "State: %s\n", headerStyle.Render(obs.State))
	if fault := m.eng.LastError(); fault != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Last fault (%d total): %v", m.eng.Faults(), fault)))
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *watchModel) renderInputs() string {
	values := m.eng.Inputs()
	var b strings.Builder
	b.WriteString(headerStyle.Render("Inputs"))
	for i, name := range m.inputs {
		line := fmt.Sprintf("%d %-16s %s", i+1, name, lamp(values[name]))
		if i == m.selected {
			line = selectedStyle.Render(line)
		}
		b.WriteString("\n" + line)
	}
	return b.String()
}

func renderSignals(title string, names []string, values map[string]bool) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(title))
	for _, name := range names {
		fmt.Fprintf(&b, "\n%-16s %s", name, lamp(values[name]))
	}
	return b.String()
}

func renderInternals(obs plc.Observation) string {
	var b strings.Builder
	if len(obs.Timers) > 0 {
		b.WriteString(headerStyle.Render("Timers"))
		for _, name := range sortedNames(obs.Timers) {
			t := obs.Timers[name]
			fmt.Fprintf(&b, "\n%-10s %6s / %-6s %s",
				name, t.Elapsed.Truncate(10*time.Millisecond), t.Preset, timerStatus(t))
		}
	}
	if len(obs.Counters) > 0 {
		if len(obs.Timers) > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(headerStyle.Render("Counters"))
		for _, name := range sortedNames(obs.Counters) {
			c := obs.Counters[name]
			status := ""
			if c.Done {
				status = onStyle.Render("done")
			}
			fmt.Fprintf(&b, "\n%-10s %3d / %-3d %s", name, c.Current, c.Preset, status)
		}
	}
	return b.String()
}

func timerStatus(t plc.TimerSnapshot) string {
	switch {
	case t.Done:
		return onStyle.Render("done")
	case t.Timing:
		return "timing"
	default:
		return offStyle.Render("idle")
	}
}

func lamp(on bool) string {
	if on {
		return onStyle.Render("● ON")
	}
	return offStyle.Render("○ off")
}
