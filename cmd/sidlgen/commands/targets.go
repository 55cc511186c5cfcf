package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/sidl-dev/sidlgen/target"
	"github.com/sidl-dev/sidlgen/version"
)

// TargetsCmd lists the available generation targets.
var TargetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "List available generation targets",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := target.NewBuiltinRegistry(version.Get().Version)
		if err != nil {
			return err
		}

		rows := pterm.TableData{{"TARGET", "OUTPUT", "DESCRIPTION"}}
		for _, t := range registry.List() {
			rows = append(rows, []string{t.Name, t.OutputMode.String(), t.Description})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
	},
}
