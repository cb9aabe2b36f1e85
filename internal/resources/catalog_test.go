package resources

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileCatalog_ResolvableAndRead(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "runbook.md"), []byte("steps here"), 0o644))

	c := NewFileCatalog(dir)

	assert.True(t, c.Resolvable("file:///runbook.md"))
	assert.False(t, c.Resolvable("file:///missing.md"))

	content, err := c.Read(context.Background(), "file:///runbook.md")
	require.NoError(t, err)
	assert.Equal(t, "steps here", content)
}

func TestFileCatalog_RejectsPathEscape(t *testing.T) {
	dir := t.TempDir()
	c := NewFileCatalog(dir)

	assert.False(t, c.Resolvable("file://../../etc/passwd"))

	_, err := c.Read(context.Background(), "file://../../etc/passwd")
	assert.Error(t, err)
}
