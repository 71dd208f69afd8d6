package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"vkdump/pkg/archiver"
	"vkdump/pkg/auth"
	"vkdump/pkg/config"
	"vkdump/pkg/logger"
	"vkdump/pkg/ui"
)

var (
	dumpMode       string
	dumpFormat     string
	dumpThreads    int
	dumpCommunity  string
	dumpPostsCount int
	dumpOutput     string
	dumpToken      string
	dumpAccount    string
)

// dumpCmd represents the dump command
var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Archive dialogs and/or community posts",
	Long: `Archive VK content to local files.

Modes:
  dialogs  export private message threads
  posts    export a community wall (requires --community)
  both     export dialogs and posts in one run

Formats: json, html, or both as "json,html". HTML pages cache the
referenced images next to the page so archives keep working after the
original links expire.`,
	Example: `  # Dump all dialogs as JSON
  vkdump dump --mode dialogs

  # Dump 500 posts of a community with HTML output
  vkdump dump --mode posts --community club_name --posts-count 500 --format json,html

  # Dump everything, eight dialogs at a time
  vkdump dump --mode both --community -123456 --threads 8`,
	Run: runDump,
}

func init() {
	rootCmd.AddCommand(dumpCmd)

	dumpCmd.Flags().StringVarP(&dumpMode, "mode", "m", "", "what to dump: dialogs, posts or both")
	dumpCmd.Flags().StringVarP(&dumpFormat, "format", "f", "", "export formats, comma separated (json,html)")
	dumpCmd.Flags().IntVarP(&dumpThreads, "threads", "t", 0, "number of concurrent dialog workers (1-20)")
	dumpCmd.Flags().StringVar(&dumpCommunity, "community", "", "community ID or domain name for posts mode")
	dumpCmd.Flags().IntVar(&dumpPostsCount, "posts-count", 0, "maximum number of posts to dump")
	dumpCmd.Flags().StringVarP(&dumpOutput, "output", "o", "", "output directory")
	dumpCmd.Flags().StringVar(&dumpToken, "token", "", "VK access token (overrides stored token)")
	dumpCmd.Flags().StringVar(&dumpAccount, "account", "", "stored token name to use")
}

func runDump(cmd *cobra.Command, args []string) {
	flags := map[string]interface{}{
		"mode":        dumpMode,
		"format":      dumpFormat,
		"threads":     dumpThreads,
		"community":   dumpCommunity,
		"posts-count": dumpPostsCount,
		"output":      dumpOutput,
		"token":       dumpToken,
		"log-level":   logLevel,
	}

	cfg, err := loadConfigWithToken(flags)
	if err != nil {
		ui.PrintError("Configuration error", err.Error())
		os.Exit(1)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		ui.PrintError("Failed to initialize logger", err.Error())
		os.Exit(1)
	}
	log := logger.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := archiver.New(cfg, log)

	if err := a.Probe(ctx); err != nil {
		ui.PrintError("Token check failed", err.Error())
		os.Exit(1)
	}

	ui.PrintInfo("Mode", cfg.Dump.Mode)
	ui.PrintInfo("Output", cfg.Output.BaseDirectory)

	summary, err := a.Run(ctx)
	if err != nil {
		ui.PrintError("Dump failed", err.Error())
		os.Exit(1)
	}

	if cfg.ShouldDumpDialogs() {
		ui.PrintSuccess(fmt.Sprintf("Dialogs: %d dumped, %d failed (of %d)",
			summary.DialogsDumped, summary.DialogsFailed, summary.DialogsTotal))
	}
	if cfg.ShouldDumpPosts() {
		ui.PrintSuccess("Posts: " + strconv.Itoa(summary.PostsDumped) + " dumped")
	}

	if !summary.OK() {
		os.Exit(1)
	}
}

// loadConfigWithToken loads configuration and falls back to the stored
// token when none was given via flag, environment or file
func loadConfigWithToken(flags map[string]interface{}) (*config.Config, error) {
	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}

	if cfg.VK.Token == "" {
		manager, err := auth.NewManager()
		if err != nil {
			return nil, fmt.Errorf("no token configured and token store is unavailable: %w", err)
		}
		token, err := manager.Retrieve(dumpAccount)
		if err != nil {
			return nil, fmt.Errorf("no access token: set VKDUMP_TOKEN or run 'vkdump auth login'")
		}
		cfg.VK.Token = token.AccessToken
	}

	return cfg, nil
}
