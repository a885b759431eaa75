package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stepflow/stepflow/pkg/workflow"
)

func newValidateCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a workflow definition without running it",
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := workflow.LoadDefinition(file)
			if err != nil {
				return err
			}
			if err := def.Validate(); err != nil {
				return err
			}

			steps := 0
			for _, s := range def.Steps {
				if len(s.Parallel) > 0 {
					steps += len(s.Parallel)
					continue
				}
				steps++
			}
			fmt.Printf("%s: ok (%d steps, %d stages)\n", def.Name, steps, len(def.Steps))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "workflow definition file (required)")
	cmd.MarkFlagRequired("file")
	return cmd
}
