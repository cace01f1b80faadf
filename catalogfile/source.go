// Package catalogfile loads the algorithm catalog from HCL or YAML files.
package catalogfile

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/meikuraledutech/pipeline"
)

//go:embed default.hcl
var defaultHCL []byte

// Default returns the built-in catalog.
func Default() []pipeline.Algorithm {
	algs, err := ParseHCL(defaultHCL, "default.hcl")
	if err != nil {
		panic(err)
	}
	return algs
}

// Source is a pipeline.CatalogSource backed by a file on disk. An empty path
// serves the built-in catalog.
type Source struct {
	path string
	log  *slog.Logger
}

// New returns a Source reading path on every ListAlgorithms call.
func New(path string, log *slog.Logger) *Source {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Source{path: path, log: log}
}

// ListAlgorithms implements pipeline.CatalogSource.
func (s *Source) ListAlgorithms(ctx context.Context) ([]pipeline.Algorithm, error) {
	if s.path == "" {
		s.log.DebugContext(ctx, "using built-in catalog")
		return Default(), nil
	}
	algs, err := Load(s.path)
	if err != nil {
		return nil, err
	}
	s.log.DebugContext(ctx, "catalog loaded", "path", s.path, "algorithms", len(algs))
	return algs, nil
}

// Load reads a catalog file, choosing the format by extension.
func Load(path string) ([]pipeline.Algorithm, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalogfile: %w", err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".hcl":
		return ParseHCL(src, path)
	case ".yaml", ".yml":
		return ParseYAML(src)
	default:
		return nil, fmt.Errorf("catalogfile: unsupported catalog format %q", ext)
	}
}
