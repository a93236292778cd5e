package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func (cli *commandLine) initStepsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "initsteps DEPARTMENT",
		Short: "Create the default onboarding steps of a department",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.initSteps(args[0])
		},
	}
}

func (cli *commandLine) initSteps(department string) error {
	steps, err := cli.steps.InitializeDefaults(context.Background(), department)
	if err != nil {
		return err
	}
	for _, s := range steps {
		fmt.Fprintf(cli.out, "%2d. %s (%s)\n", s.StepNumber, s.Title, s.Type)
	}
	return nil
}
