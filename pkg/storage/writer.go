// Package storage persists the processed image next to its source so the
// exact bytes that were submitted remain inspectable afterwards.
package storage

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"igposter/pkg/config"
	"igposter/pkg/imageproc"
	"igposter/pkg/logger"
)

// ErrOutputExists is returned when the output file already exists and
// overwriting is disabled.
var ErrOutputExists = errors.New("output file already exists")

// Writer saves processed images to disk
type Writer struct {
	suffix    string
	outputDir string
	overwrite bool
	log       logger.Logger
}

// NewWriter creates a writer from the image configuration
func NewWriter(cfg *config.ImageConfig, log logger.Logger) *Writer {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Writer{
		suffix:    cfg.OutputSuffix,
		outputDir: cfg.OutputDir,
		overwrite: cfg.OverwriteExisting,
		log:       log,
	}
}

// OutputPath derives the output filename from the source path. A
// configured output directory wins; otherwise local sources keep their
// directory and remote sources land in the working directory under the
// URL's base name.
func (w *Writer) OutputPath(source string) string {
	dir := filepath.Dir(source)
	base := filepath.Base(source)

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		dir = "."
		base = "image"
		if u, err := url.Parse(source); err == nil {
			if b := filepath.Base(u.Path); b != "" && b != "/" && b != "." {
				base = b
			}
		}
	}

	if w.outputDir != "" {
		dir = w.outputDir
	}

	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	return filepath.Join(dir, name+w.suffix+".jpg")
}

// Save writes the processed image atomically and returns the output path
func (w *Writer) Save(p *imageproc.Processed) (string, error) {
	path := w.OutputPath(p.SourcePath)

	if !w.overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("%w: %s", ErrOutputExists, path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	// Write to a temp file in the same directory, then rename into place
	tmp, err := os.CreateTemp(filepath.Dir(path), ".igposter-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(p.Data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("write processed image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("move into place: %w", err)
	}

	w.log.InfoWithFields("processed image saved", map[string]interface{}{
		"path":  path,
		"bytes": len(p.Data),
	})

	return path, nil
}
