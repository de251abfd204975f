package main

import (
	"fmt"
	"os"

	"github.com/phanxgames/glide"
	"github.com/phanxgames/glide/internal/observability"
	"github.com/spf13/cobra"
)

func newSimulateCmd() *cobra.Command {
	var statsOnly bool

	cmd := &cobra.Command{
		Use:   "simulate <script.json>",
		Short: "Run a scripted scenario on an in-memory page and print the frame trace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read scenario: %w", err)
			}
			sc, err := glide.LoadScenario(data)
			if err != nil {
				return err
			}

			tr, err := sc.Run(cfg.Engine,
				glide.WithLogger(observability.GetLogger()),
				glide.WithDebug(debugEnabled(cmd)))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if statsOnly {
				_, err = fmt.Fprintln(out, tr.Stats)
				return err
			}
			_, err = tr.WriteTo(out)
			return err
		},
	}
	cmd.Flags().BoolVar(&statsOnly, "stats", false, "print only the final counters")
	return cmd
}
