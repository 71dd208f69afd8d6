package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"vkdump/pkg/logger"
)

// Persister writes archive files into an output directory
type Persister struct {
	outputDir string
	logger    logger.Logger
}

// NewPersister creates a persister rooted at outputDir, creating the
// directory if needed
func NewPersister(outputDir string, log logger.Logger) (*Persister, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Persister{
		outputDir: outputDir,
		logger:    log,
	}, nil
}

// OutputDir returns the directory archives are written into
func (p *Persister) OutputDir() string {
	return p.outputDir
}

// SaveJSON writes v as indented JSON under the given file name stem.
// Returns the full path of the written file.
func (p *Persister) SaveJSON(stem string, v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal archive: %w", err)
	}

	path := filepath.Join(p.outputDir, SanitizeFilename(stem)+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write archive: %w", err)
	}

	p.logger.InfoWithFields("Saved JSON archive", map[string]interface{}{
		"path":  path,
		"bytes": len(data),
	})

	return path, nil
}

// SaveHTML writes a rendered HTML page under the given file name stem.
// Returns the full path of the written file.
func (p *Persister) SaveHTML(stem string, data []byte) (string, error) {
	path := filepath.Join(p.outputDir, SanitizeFilename(stem)+".html")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write page: %w", err)
	}

	p.logger.InfoWithFields("Saved HTML archive", map[string]interface{}{
		"path":  path,
		"bytes": len(data),
	})

	return path, nil
}

// MediaDir returns the image cache directory path paired with an HTML
// archive of the given stem, following the {stem}_files convention.
func (p *Persister) MediaDir(stem string) string {
	return filepath.Join(p.outputDir, SanitizeFilename(stem)+"_files")
}
