package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sidl-dev/sidlgen/cmd/sidlgen/commands"
	"github.com/sidl-dev/sidlgen/logger"
)

var rootCmd = &cobra.Command{
	Use:   "sidlgen -L TARGET [-r PREFIX:PATH ...] [-o DIR] FQNAME ...",
	Short: "sidlgen - SIDL interface compiler",
	Long: `sidlgen compiles trees of versioned SIDL packages into one of
several targets: native bindings, managed-runtime bindings, build
manifests, or the stability ledger.

Each argument names a whole package (com.acme.nfc@1.0) or a single
unit (com.acme.nfc@1.0::INfc). Package roots map dotted prefixes to
source directories.

Examples:
  sidlgen -L check -r com.acme:interfaces com.acme.nfc@1.0
  sidlgen -L native -r com.acme:interfaces -o out com.acme.nfc@1.0
  sidlgen -L managed -r com.acme:interfaces -o out com.acme.nfc@1.0::types.NfcEvent
  sidlgen -L ledger -r com.acme:interfaces com.acme.nfc@1.0 >> interfaces/frozen.txt
  sidlgen targets`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLogs, _ := cmd.Flags().GetBool("json")
		return logger.Initialize(jsonLogs, verbosity)
	},
	RunE: commands.RunGenerate,
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv)")
	rootCmd.PersistentFlags().Bool("json", false, "Machine-readable JSON log output")

	rootCmd.Flags().StringArrayP("root", "r", nil, "Package root mapping PREFIX:PATH (repeatable)")
	rootCmd.Flags().StringP("output", "o", "", "Output directory for generated artifacts")
	rootCmd.Flags().StringP("target", "L", "", "Generation target (see 'sidlgen targets')")
	rootCmd.Flags().String("enforce", "", "Stability enforcement: none, hash, no-hash")
	rootCmd.Flags().BoolP("test", "t", false, "Generate the manifest for a test package")

	rootCmd.AddCommand(commands.TargetsCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	defer logger.Cleanup()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
