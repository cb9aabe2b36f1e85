// Package resources implements a filesystem-backed ResourceCatalog and
// ResourceReader for workflow steps that embed supporting documents into
// a handoff trace (§4.1 ResourceNotFound, §9 "self-contained trace").
// Resource URIs are resolved relative to a single base directory the
// same way config.Storage resolves entity files relative to its root.
package resources

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileCatalog resolves file:// URIs against a base directory. It is
// read-only after construction and safe for concurrent use since it
// only ever performs filesystem reads.
type FileCatalog struct {
	baseDir string
}

// NewFileCatalog builds a FileCatalog rooted at baseDir.
func NewFileCatalog(baseDir string) *FileCatalog {
	return &FileCatalog{baseDir: baseDir}
}

// Resolvable implements workflow.ResourceCatalog.
func (c *FileCatalog) Resolvable(uri string) bool {
	path, err := c.pathFor(uri)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Read implements workflow.ResourceReader.
func (c *FileCatalog) Read(ctx context.Context, uri string) (string, error) {
	path, err := c.pathFor(uri)
	if err != nil {
		return "", err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading resource %q: %w", uri, err)
	}
	return string(content), nil
}

// pathFor strips the file:// scheme (if present) and joins the
// remainder onto baseDir, refusing any path that would escape it.
func (c *FileCatalog) pathFor(uri string) (string, error) {
	rel := strings.TrimPrefix(uri, "file://")
	rel = strings.TrimPrefix(rel, "/")
	clean := filepath.Clean(rel)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("resource uri %q escapes base directory", uri)
	}
	return filepath.Join(c.baseDir, clean), nil
}
