// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/holomush/webauth/internal/config"
	"github.com/holomush/webauth/internal/xdg"
)

// NewRootCmd creates the root command for the webauth CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webauth",
		Short: "webauth - account API for web applications",
		Long: `webauth serves registration, login and password-reset endpoints
backed by PostgreSQL, with reset codes delivered by e-mail through Amazon SES.`,
		SilenceUsage: true,
	}

	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}

// loadConfig reads the dotenv file, the config file, the environment and
// the flags of cmd, in that order. Without --config the XDG config file is
// used when present.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()

	envFile, err := flags.GetString("env-file")
	if err != nil {
		return nil, err //nolint:wrapcheck // flag registered by RegisterFlags
	}
	if err := config.LoadEnvFile(envFile); err != nil {
		return nil, err
	}

	path, err := flags.GetString("config")
	if err != nil {
		return nil, err //nolint:wrapcheck // flag registered by RegisterFlags
	}
	if path == "" {
		if path, err = xdg.DefaultConfigFile(); err != nil {
			return nil, err
		}
	}
	return config.Load(path, flags)
}
