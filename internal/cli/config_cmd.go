// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Config command implementation for chatwidget.
//
// Command: config [subcommand]
// Short:   View and modify configuration
//
// Subcommands:
//   show (default)      Display current configuration
//   get <key>           Print one value
//   set <key> <value>   Set a configuration value
//   keys                List every key
//   path                Show configuration file path
//   init                Write the defaults to the config file
//
// Examples:
//   chatwidget config show --json
//   chatwidget config set widget.title "Support chat"
//   chatwidget config set render.math false
//   chatwidget config get ui.theme

package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/chatwidget/internal/config"
)

func newConfigCommand(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and modify configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.showConfig(asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")

	show := &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.showConfig(asJSON)
		},
	}
	show.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")

	get := &cobra.Command{
		Use:   "get KEY",
		Short: "Print one configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := a.cfg.Get(args[0])
			if err != nil {
				return NewUsageError("key", args[0], err.Error())
			}
			fmt.Fprintln(a.stdout, v)
			return nil
		},
	}

	set := &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value and save it",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.setConfig(args[0], strings.Join(args[1:], " "))
		},
	}

	keys := &cobra.Command{
		Use:   "keys",
		Short: "List every configuration key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, k := range config.GetAllKeys() {
				fmt.Fprintln(a.stdout, k)
			}
			return nil
		},
	}

	path := &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.configFile()
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, p)
			return nil
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.configFile()
			if err != nil {
				return err
			}
			if _, err := os.Stat(p); err == nil && !force {
				return NewUsageError("config", p, "already exists (use --force to overwrite)")
			}
			if err := config.SaveTOML(config.Default(), p); err != nil {
				return NewCommandError("config", "init", err)
			}
			a.say("%s %s", SuccessStyle.Render("[OK]"), p)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	cmd.AddCommand(show, get, set, keys, path, initCmd)
	return cmd
}

// configFile is the --config path or the default TOML location.
func (a *app) configFile() (string, error) {
	if a.configPath != "" {
		return a.configPath, nil
	}
	return config.ConfigPathTOML()
}

func (a *app) setConfig(key, value string) error {
	cfg := a.cfg.Clone()
	if err := cfg.Set(key, value); err != nil {
		return NewUsageError("key", key, err.Error())
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	p, err := a.configFile()
	if err != nil {
		return err
	}
	if strings.HasSuffix(p, ".json") {
		err = config.SaveJSON(cfg, p)
	} else {
		err = config.SaveTOML(cfg, p)
	}
	if err != nil {
		return NewCommandError("config", "save", err)
	}
	a.cfg = cfg
	config.SetGlobal(cfg)
	a.say("%s %s = %s", SuccessStyle.Render("[OK]"), key, value)
	return nil
}

func (a *app) showConfig(asJSON bool) error {
	if asJSON {
		data, err := json.MarshalIndent(a.cfg, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(a.stdout, string(data))
		return nil
	}

	fmt.Fprintln(a.stdout, TitleStyle.Render("Configuration"))
	fmt.Fprintln(a.stdout, Separator(40))
	section := ""
	for _, key := range config.GetAllKeys() {
		name, _, _ := strings.Cut(key, ".")
		if name != section {
			section = name
			fmt.Fprintf(a.stdout, "\n%s\n", LabelStyle.Render("["+section+"]"))
		}
		v, err := a.cfg.Get(key)
		if err != nil {
			continue
		}
		fmt.Fprintf(a.stdout, "  %-28s %s\n", key, ValueStyle.Render(fmt.Sprint(v)))
	}
	fmt.Fprintln(a.stdout)
	return nil
}
