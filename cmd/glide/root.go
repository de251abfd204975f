package main

import (
	"context"
	"fmt"

	"github.com/phanxgames/glide/internal/config"
	"github.com/phanxgames/glide/internal/observability"
	"github.com/spf13/cobra"
)

type cfgKey struct{}

func newRootCmd() *cobra.Command {
	var cfgFile string
	var debug bool

	root := &cobra.Command{
		Use:           "glide",
		Short:         "Smooth-scroll engine driver",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if debug {
				cfg.Logger.Level = "debug"
			}
			observability.InitializeLogger(cfg.Logger)
			cmd.SetContext(context.WithValue(cmd.Context(), cfgKey{}, cfg))
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default ./glide.yaml)")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "log every frame")

	root.AddCommand(newSimulateCmd(), newDriveCmd())
	return root
}

func configFrom(cmd *cobra.Command) (*config.Config, error) {
	cfg, ok := cmd.Context().Value(cfgKey{}).(*config.Config)
	if !ok {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return cfg, nil
}

func debugEnabled(cmd *cobra.Command) bool {
	v, err := cmd.Flags().GetBool("debug")
	return err == nil && v
}
