package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/syssam/orma/config"
)

// app holds the state shared by the commands of one invocation.
type app struct {
	cfgFile string
	cfg     *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "ormsql",
		Short: "Inspect the SQL generated by orma",
		Long: `ormsql - inspect the SQL generated by orma

ormsql compiles query descriptions written in YAML with the same grammars
orma uses at run time, for one dialect or all of them side by side.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help/completion/version commands
			switch cmd.Name() {
			case "help", "completion", "version":
				return nil
			}
			cfg, err := config.Load(a.cfgFile, cmd.Flags())
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}
			a.cfg = cfg
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (YAML)")
	config.Flags(root.PersistentFlags())

	root.AddCommand(a.compileCmd())
	root.AddCommand(a.dialectsCmd())
	root.AddCommand(a.runCmd())
	root.AddCommand(a.pingCmd())
	root.AddCommand(versionCmd())
	return root
}
