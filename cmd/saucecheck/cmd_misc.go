package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/surajb0710/cypress-testing-sauce-demo/internal/config"
	"github.com/surajb0710/cypress-testing-sauce-demo/internal/fixture"
	"github.com/surajb0710/cypress-testing-sauce-demo/internal/scenario"
)

func NewScenariosCommand(root *RootOptions) *cobra.Command {
	var suite string
	cmd := &cobra.Command{
		Use:   "scenarios",
		Short: "List the scenario catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SUITE\tSCENARIO")
			for _, sc := range scenario.Select(scenario.Catalog(), suite, "") {
				fmt.Fprintf(tw, "%s\t%s\n", sc.Suite, sc.Name)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&suite, "suite", "", "only list this suite")
	return cmd
}

func NewFixtureCommand(root *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fixture",
		Short: "Inspect fixture documents",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate <path>",
		Short: "Validate a fixture against the schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := fixture.Load(args[0])
			if err != nil {
				var ve *fixture.ValidationError
				if errors.As(err, &ve) {
					for _, p := range ve.Problems {
						fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", p)
					}
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d users, %d products)\n", args[0], len(f.Users), len(f.Products))
			return nil
		},
	})
	return cmd
}

func NewConfigCommand(root *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or initialize configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root.cfg.Show(cmd.OutOrStdout())
			if err := root.cfg.Validate(); err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "\nProblems:\n  %v\n", err)
			}
			return nil
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteDefault(root.cfg.ConfigPath, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config file created at %s\n", root.cfg.ConfigPath)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)
	return cmd
}
