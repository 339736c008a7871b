package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/roach88/plcsim/internal/program"
)

// FindScenarioFiles returns the .yaml and .yml files under dir, sorted. A
// non-empty filter is a filepath.Match pattern applied to the file name
// without its extension.
func FindScenarioFiles(dir, filter string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})

	sort.Strings(files)
	return files, err
}

// CoverageReport maps each catalogue kind to the scenarios that exercise it.
type CoverageReport struct {
	Covered map[string][]string `json:"covered"`
	Missing []string            `json:"missing,omitempty"`
}

// MissingCoverageError is returned when catalogue kinds have no scenario.
type MissingCoverageError struct {
	Kinds []string
}

// Error implements the error interface.
func (e *MissingCoverageError) Error() string {
	return fmt.Sprintf("no scenario exercises %s", strings.Join(e.Kinds, ", "))
}

// Coverage reports which catalogue kinds the scenarios exercise. Missing
// lists uncovered kinds in menu order.
func Coverage(scenarios []*Scenario) CoverageReport {
	report := CoverageReport{Covered: make(map[string][]string)}
	for _, s := range scenarios {
		kind, err := program.Parse(s.Program)
		if err != nil {
			continue
		}
		report.Covered[kind.String()] = append(report.Covered[kind.String()], s.Name)
	}
	for _, name := range program.KindNames() {
		if len(report.Covered[name]) == 0 {
			report.Missing = append(report.Missing, name)
		}
	}
	return report
}

// Err returns a MissingCoverageError if any kind is uncovered.
func (r CoverageReport) Err() error {
	if len(r.Missing) == 0 {
		return nil
	}
	return &MissingCoverageError{Kinds: r.Missing}
}
