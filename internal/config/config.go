package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/plcsim/internal/plc"
	"github.com/roach88/plcsim/internal/program"
)

//go:embed schema.cue
var schemaSource string

// Config is a validated run configuration.
type Config struct {
	Program  program.Kind
	Period   time.Duration
	Duration time.Duration // zero means run until interrupted
	TraceDB  string
	LogLevel slog.Level
	Script   []Step
}

// Step sets inputs once the run has been going for At.
type Step struct {
	At  time.Duration
	Set map[string]bool
}

// Default returns the configuration used when no file is given.
func Default(kind program.Kind) Config {
	return Config{
		Program:  kind,
		Period:   10 * time.Millisecond,
		LogLevel: slog.LevelInfo,
	}
}

// LoadError is a schema or decode failure with its CUE position.
type LoadError struct {
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// raw mirrors #Config before durations and names are checked.
type raw struct {
	Program  string    `json:"program"`
	Period   string    `json:"period"`
	Duration string    `json:"duration,omitempty"`
	TraceDB  string    `json:"trace_db,omitempty"`
	LogLevel string    `json:"log_level"`
	Script   []rawStep `json:"script"`
}

type rawStep struct {
	At  string          `json:"at"`
	Set map[string]bool `json:"set"`
}

// Load reads and validates the configuration file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(path, data)
}

// Parse validates src as a configuration file. filename is used in error
// positions only.
func Parse(filename string, src []byte) (Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource+programEnum(), cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compile schema: %w", err)
	}

	file := ctx.CompileBytes(src, cue.Filename(filename))
	if err := file.Err(); err != nil {
		return Config{}, formatCUEError(err)
	}

	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(file)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Config{}, formatCUEError(err)
	}

	var r raw
	if err := v.Decode(&r); err != nil {
		return Config{}, formatCUEError(err)
	}
	return r.resolve()
}

// programEnum renders the catalogue as a CUE disjunction.
func programEnum() string {
	names := program.KindNames()
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = strconv.Quote(n)
	}
	return "\n#Program: " + strings.Join(quoted, " | ") + "\n"
}

func (r raw) resolve() (Config, error) {
	kind, err := program.Parse(r.Program)
	if err != nil {
		return Config{}, plc.NewConfigurationError("%v", err)
	}

	cfg := Config{Program: kind, TraceDB: r.TraceDB}

	if cfg.Period, err = positiveDuration("period", r.Period); err != nil {
		return Config{}, err
	}
	if r.Duration != "" {
		if cfg.Duration, err = positiveDuration("duration", r.Duration); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(r.LogLevel)); err != nil {
		return Config{}, plc.NewConfigurationError("log_level: %v", err)
	}

	inputs := make(map[string]bool)
	for _, name := range kind.Inputs() {
		inputs[name] = true
	}
	for i, rs := range r.Script {
		at, err := time.ParseDuration(rs.At)
		if err != nil {
			return Config{}, plc.NewConfigurationError("script[%d].at: %v", i, err)
		}
		if at < 0 {
			return Config{}, plc.NewConfigurationError("script[%d].at must not be negative, got %s", i, at)
		}
		step := Step{At: at, Set: make(map[string]bool, len(rs.Set))}
		for name, value := range rs.Set {
			n := plc.NormalizeName(name)
			if !inputs[n] {
				return Config{}, fmt.Errorf("script[%d]: %w", i, plc.NewUnknownSignal(plc.DirectionInput, n))
			}
			step.Set[n] = value
		}
		cfg.Script = append(cfg.Script, step)
	}
	sort.SliceStable(cfg.Script, func(i, j int) bool { return cfg.Script[i].At < cfg.Script[j].At })

	return cfg, nil
}

func positiveDuration(field, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, plc.NewConfigurationError("%s: %v", field, err)
	}
	if d <= 0 {
		return 0, plc.NewConfigurationError("%s must be positive, got %s", field, d)
	}
	return d, nil
}

// formatCUEError keeps the first CUE error and its position, wrapped as a
// configuration error.
func formatCUEError(err error) error {
	le := &LoadError{Message: err.Error()}
	if errs := errors.Errors(err); len(errs) > 0 {
		le.Message = errs[0].Error()
		if pos := errors.Positions(errs[0]); len(pos) > 0 {
			le.Pos = pos[0]
		}
	}
	return &plc.Error{
		Code:    plc.ErrCodeConfiguration,
		Message: "invalid config",
		Err:     le,
	}
}
