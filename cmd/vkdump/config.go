package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"vkdump/pkg/config"
	"vkdump/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

// configInitCmd represents the config init command
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with default settings",
	Long: `Write a configuration file with default settings to
~/.config/vkdump/config.yaml. Edit it to change dump mode, output
directories, rate limits and logging.`,
	Run: runConfigInit,
}

// configShowCmd represents the config show command
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Run:   runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	home, err := os.UserHomeDir()
	if err != nil {
		ui.PrintError("Failed to locate home directory", err.Error())
		os.Exit(1)
	}

	path := filepath.Join(home, ".config", "vkdump", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		ui.PrintWarning("Config file already exists", path)
		return
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		ui.PrintError("Failed to write config file", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Config file written: " + path)
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg := config.DefaultConfig()
	if err := cfg.LoadFromFile(configFile); err != nil {
		ui.PrintError("Failed to load config file", err.Error())
		os.Exit(1)
	}
	if err := cfg.LoadFromEnv(); err != nil {
		ui.PrintError("Failed to load environment", err.Error())
		os.Exit(1)
	}

	// Never print the token itself
	if cfg.VK.Token != "" {
		cfg.VK.Token = "(set)"
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		ui.PrintError("Failed to render config", err.Error())
		os.Exit(1)
	}
	fmt.Print(string(data))
}
