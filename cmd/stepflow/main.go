// Command stepflow runs and validates workflow definitions from the
// command line, and hosts queue workers for distributed execution.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/stepflow/stepflow/internal/log"
)

// Version information (injected via ldflags at build time)
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	logger := log.New(log.FromEnv())
	slog.SetDefault(logger)

	root := &cobra.Command{
		Use:   "stepflow",
		Short: "Run typed step workflows",
		Long: `stepflow executes workflow definitions: ordered plans of typed steps
with input and output validation, parallel groups, and checkpointed
resume. Definitions are YAML files; step functions are either built-in
tasks, jq transforms, or tasks registered by embedding the library.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newRunCommand(logger),
		newValidateCommand(),
		newWorkerCommand(logger),
		newVersionCommand(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("stepflow %s (%s)\n", version, commit)
		},
	}
}
