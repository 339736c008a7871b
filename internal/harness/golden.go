package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/plcsim/internal/store"
)

// GoldenDir is where scenario golden files live, relative to this package.
const GoldenDir = "../../testdata/scenarios/golden"

// RenderTrace formats a result's trace as the text stored in golden files:
// a header line, then one tab-separated line per stored row.
//
//	# chase_light_walks: chase-light every 250ms
//	5	1.25s	output	LED1=true
//	5	1.25s	note	LED1 on
func RenderTrace(scenario *Scenario, result *Result) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s: %s every %s\n", scenario.Name, scenario.Program, scenario.period())
	for _, e := range result.Trace {
		fmt.Fprintf(&b, "%d\t%s\t%s\t%s\n", e.Tick, e.At, e.Kind, eventText(e))
	}
	return []byte(b.String())
}

func eventText(e TraceEvent) string {
	switch e.Kind {
	case store.KindInput, store.KindOutput:
		if e.Value != nil {
			return fmt.Sprintf("%s=%t", e.Name, *e.Value)
		}
		return e.Name
	default:
		return e.Detail
	}
}

// RunWithGolden executes a scenario and compares the rendered trace against
// GoldenDir/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can check expectations as well.
// Test failure (via goldie) occurs if the trace doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, GoldenDir, scenario, result)
	return result, nil
}

// AssertGolden compares an already computed result against the golden file
// in dir.
func AssertGolden(t *testing.T, dir string, scenario *Scenario, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir(dir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, RenderTrace(scenario, result))
}
