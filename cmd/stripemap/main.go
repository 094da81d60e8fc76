package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

// globalOptions hold options shared by all subcommands.
type globalOptions struct {
	LogLevel string
}

var globalOpts globalOptions

// cmdRoot is the base command when no other command has been specified.
var cmdRoot = &cobra.Command{
	Use:   "stripemap",
	Short: "Exercise the striped concurrent hash table",
	Long: `
stripemap drives a striped concurrent hash table with configurable workloads
and reports its bucket and rehash statistics.
`,
	SilenceErrors:     true,
	SilenceUsage:      true,
	DisableAutoGenTag: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := log.ParseLevel(globalOpts.LogLevel)
		if err != nil {
			return errors.Wrap(err, "log level")
		}
		log.SetLevel(level)
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
		os.Exit(0)
	},
}

func init() {
	f := cmdRoot.PersistentFlags()
	f.StringVar(&globalOpts.LogLevel, "log-level", "info", "log level (debug, info, warn, error)")
}

func main() {
	if err := cmdRoot.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
