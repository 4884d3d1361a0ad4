// jdcore decompiles JVM class files into structured trees and layout
// blocks.
package main

import (
	"fmt"
	"os"

	"github.com/colorfulnotion/jdcore/common"
	"github.com/colorfulnotion/jdcore/config"
	"github.com/colorfulnotion/jdcore/log"
	"github.com/spf13/cobra"
)

type globalFlags struct {
	preset     string
	logLevel   string
	logModules string
	noColor    bool
}

func (g *globalFlags) options() (*config.Options, error) {
	opts, err := config.Load(g.preset)
	if err != nil {
		return nil, err
	}
	if g.logLevel != "" {
		opts.LogLevel = g.logLevel
	}
	if g.logModules != "" {
		opts.LogModules = g.logModules
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts.ApplyLogging()
	return opts, nil
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:           "jdcore",
		Short:         "JVM bytecode decompiler core",
		Long:          `jdcore rebuilds structured statements from JVM class files and lays them out as blocks that keep the original line numbers.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&g.preset, "config", "default", "options preset (default, raw, verbose) or a YAML/JSON file")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level override (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&g.logModules, "log-modules", "", "comma separated modules with trace/debug output")
	rootCmd.PersistentFlags().BoolVar(&g.noColor, "no-color", false, "disable ANSI colors")

	rootCmd.AddCommand(
		newDecompileCmd(g),
		newDisasmCmd(g),
		newConsoleCmd(g),
		newDiffCmd(g),
		newCacheCmd(g),
		newVersionCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version and commit",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "jdcore %s (%s)\n", common.Version, common.GetCommitHash())
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error(log.CLIMonitoring, "command failed", "err", err)
		fmt.Fprintln(os.Stderr, common.Colorize(true, common.ColorRed, "error: "+err.Error()))
		os.Exit(1)
	}
}
