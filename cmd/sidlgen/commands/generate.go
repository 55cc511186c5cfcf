package commands

import (
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/sidl-dev/sidlgen/config"
	"github.com/sidl-dev/sidlgen/errors"
	"github.com/sidl-dev/sidlgen/frontend"
	"github.com/sidl-dev/sidlgen/logger"
	"github.com/sidl-dev/sidlgen/resolver"
	"github.com/sidl-dev/sidlgen/stability"
	"github.com/sidl-dev/sidlgen/target"
	"github.com/sidl-dev/sidlgen/version"
)

// defaultRoots are the built-in package-root mappings, registered before
// explicit -r flags so flags can shadow them.
var defaultRoots = []config.RootMapping{
	{Prefix: "sidl", Path: "interfaces"},
}

// RunGenerate is the root command: compile every named package or unit
// with the selected target.
func RunGenerate(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return errors.New("no package or interface names given (see --help)")
	}

	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	enforcement, err := stability.ParseEnforcement(cfg.Enforce)
	if err != nil {
		return err
	}

	r := resolver.New(frontend.New())
	for _, root := range defaultRoots {
		r.AddDefaultRoot(root.Prefix, root.Path)
	}
	mappings, err := cfg.RootMappings()
	if err != nil {
		return err
	}
	for _, m := range mappings {
		if err := r.AddRoot(m.Prefix, m.Path); err != nil {
			return err
		}
	}

	registry, err := target.NewBuiltinRegistry(version.Get().Version)
	if err != nil {
		return err
	}
	tgt, err := registry.Lookup(cfg.Target)
	if err != nil {
		return err
	}

	logger.Debugw("starting run",
		"target", tgt.Name,
		"enforce", enforcement.String(),
		"output", cfg.OutputPath,
		"requests", len(args))

	rc := &target.RunContext{
		Resolver:    r,
		OutputPath:  cfg.OutputPath,
		Enforcement: enforcement,
		TestMode:    cfg.TestMode,
		Stdout:      cmd.OutOrStdout(),
	}
	results, runErr := target.Run(rc, tgt, args)

	// The ledger target owns stdout; keep the summary off it.
	if tgt.OutputMode != target.OutputStdout {
		reportResults(results)
	}
	return runErr
}

// buildConfig loads the configuration and overlays any flags the user
// set explicitly.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("root") {
		roots, _ := flags.GetStringArray("root")
		cfg.Roots = append(cfg.Roots, roots...)
	}
	if flags.Changed("output") {
		cfg.OutputPath, _ = flags.GetString("output")
	}
	if flags.Changed("target") {
		cfg.Target, _ = flags.GetString("target")
	}
	if flags.Changed("enforce") {
		cfg.Enforce, _ = flags.GetString("enforce")
	}
	if flags.Changed("test") {
		cfg.TestMode, _ = flags.GetBool("test")
	}
	return cfg, nil
}

func reportResults(results []target.Result) {
	for _, res := range results {
		if res.OK() {
			pterm.Success.Printfln("%s (%s, %s)", res.Request, res.Target, res.Duration.Round(time.Millisecond))
		} else {
			pterm.Error.Printfln("%s (%s): %v", res.Request, res.Target, res.Err)
		}
	}
}
