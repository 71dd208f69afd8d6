package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"vkdump/pkg/export"
	"vkdump/pkg/logger"
	"vkdump/pkg/normalize"
	"vkdump/pkg/ui"
)

var convertOutput string

var errEmptyArchive = errors.New("archive has no recognizable content")

// convertCmd represents the convert command
var convertCmd = &cobra.Command{
	Use:   "convert [archive.json ...]",
	Short: "Render existing JSON archives as HTML pages",
	Long: `Convert previously dumped JSON archives into standalone HTML pages.

Dialog archives and community post archives are detected automatically.
When no path is given, it is asked for interactively. Images stay on
their original remote URLs; run the dump with --format json,html to get
locally cached images instead.`,
	Example: `  # Convert a dialog archive
  vkdump convert output/dialogs/Ivan\ Petrov_101.json

  # Convert all post archives into a chosen directory
  vkdump convert output/posts/*.json --output pages/`,
	Args: cobra.ArbitraryArgs,
	Run:  runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringVarP(&convertOutput, "output", "o", "", "directory for generated pages (default: next to input)")
}

func runConvert(cmd *cobra.Command, args []string) {
	paths, err := resolveArchivePaths(args, os.Stdin)
	if err != nil {
		ui.PrintError("No archive to convert", err.Error())
		os.Exit(1)
	}

	renderer, err := export.NewRenderer(nil, logger.GetLogger())
	if err != nil {
		ui.PrintError("Failed to initialize renderer", err.Error())
		os.Exit(1)
	}

	failed := 0
	for _, input := range paths {
		if err := convertOne(renderer, input); err != nil {
			ui.PrintError("Failed to convert "+input, err.Error())
			failed++
			continue
		}
		ui.PrintSuccess("Converted " + input)
	}

	if failed > 0 {
		os.Exit(1)
	}
}

// resolveArchivePaths returns the archives to convert, prompting on the
// given reader when no argument was passed
func resolveArchivePaths(args []string, in io.Reader) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}

	fmt.Print("Path to JSON archive: ")
	reader := bufio.NewReader(in)
	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		return nil, fmt.Errorf("failed to read path: %w", err)
	}

	path := strings.TrimSpace(input)
	if path == "" {
		return nil, errors.New("no path given")
	}
	return []string{path}, nil
}

// convertOne renders a single JSON archive as HTML
func convertOne(renderer *export.Renderer, input string) error {
	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}

	// Peek at the envelope to decide which archive this is
	var probe struct {
		Type   string `json:"type"`
		PeerID int64  `json:"peer_id"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}

	var page []byte
	if probe.Type == normalize.ArchiveTypePosts {
		page, err = renderPostsArchive(renderer, data)
	} else {
		page, err = renderDialogArchive(renderer, data)
	}
	if err != nil {
		return err
	}

	outDir := convertOutput
	if outDir == "" {
		outDir = filepath.Dir(input)
	}

	persister, err := export.NewPersister(outDir, logger.GetLogger())
	if err != nil {
		return err
	}

	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	_, err = persister.SaveHTML(stem, page)
	return err
}

func renderPostsArchive(renderer *export.Renderer, data []byte) ([]byte, error) {
	// A posts archive must carry both top-level fields, even when empty
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	for _, required := range []string{"community", "posts"} {
		if _, ok := fields[required]; !ok {
			return nil, fmt.Errorf("posts archive is missing the %q field", required)
		}
	}

	var archive normalize.PostsArchive
	if err := json.Unmarshal(data, &archive); err != nil {
		return nil, err
	}
	return renderer.PostsHTML(&archive)
}

func renderDialogArchive(renderer *export.Renderer, data []byte) ([]byte, error) {
	var dialog normalize.Dialog
	if err := json.Unmarshal(data, &dialog); err != nil {
		return nil, err
	}
	if dialog.PeerID == 0 && len(dialog.Messages) == 0 {
		return nil, errEmptyArchive
	}
	return renderer.DialogHTML(&dialog)
}
