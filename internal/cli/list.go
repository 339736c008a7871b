package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/plcsim/internal/program"
)

// ProgramInfo describes one catalogue entry.
type ProgramInfo struct {
	Kind        string   `json:"kind"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Inputs      []string `json:"inputs"`
	Outputs     []string `json:"outputs"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the program catalogue",
		Long: `List every program kind with its declared inputs and outputs.

Examples:
  plcsim list
  plcsim list --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			infos := catalogue()
			return f.Success(infos, func(w io.Writer) {
				writeCatalogue(w, infos, rootOpts.Verbose)
			})
		},
	}
	return cmd
}

func catalogue() []ProgramInfo {
	kinds := program.Kinds()
	infos := make([]ProgramInfo, 0, len(kinds))
	for _, k := range kinds {
		infos = append(infos, ProgramInfo{
			Kind:        k.String(),
			Title:       k.Title(),
			Description: k.Description(),
			Inputs:      k.Inputs(),
			Outputs:     k.Outputs(),
		})
	}
	return infos
}

func writeCatalogue(w io.Writer, infos []ProgramInfo, verbose bool) {
	for i, info := range infos {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%d. %s (%s)\n", i+1, info.Title, info.Kind)
		if verbose {
			fmt.Fprintf(w, "   %s\n", info.Description)
		}
		fmt.Fprintf(w, "   inputs:  %s\n", strings.Join(info.Inputs, ", "))
		fmt.Fprintf(w, "   outputs: %s\n", strings.Join(info.Outputs, ", "))
	}
}
