package main

/*
ulpfilter — fast filter for url:login:pass credential lists in Go
Copyright (C) 2025  Pepijn van der Stap <rxtls@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/x-stp/ulpfilter/internal/config"
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective filter rules as YAML",
		Args:  cobra.NoArgs,
		RunE:  runConfig,
	}
}

func runConfig(cmd *cobra.Command, _ []string) error {
	settings, err := config.LoadSettings(cmd.Flags())
	if err != nil {
		return err
	}
	cfg, err := config.Load(settings.ConfigPath)
	if err != nil {
		return err
	}
	data, err := cfg.YAML()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "# %s\n", settings.ConfigPath)
	if _, err := out.Write(data); err != nil {
		return err
	}
	for _, w := range cfg.Warnings {
		fmt.Fprintf(out, "# warning: %s\n", w)
	}
	if _, err := cfg.CustomFilterRegexp(); err != nil {
		fmt.Fprintf(out, "# warning: %v\n", err)
	}
	return nil
}
