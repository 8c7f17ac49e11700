package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsImageFile(t *testing.T) {
	assert.True(t, IsImageFile("frame.PNG"))
	assert.True(t, IsImageFile("a/b/c.webp"))
	assert.False(t, IsImageFile("detections.json"))
	assert.False(t, IsImageFile("README"))
}

func TestGenerateOutputFilename(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "pre_frame001_annotated.png"),
		GenerateOutputFilename("in/frame001.jpg", "out", "pre_", "_annotated", "png"))
	assert.Equal(t, filepath.Join("out", "frame.jpg"),
		GenerateOutputFilename("frame.jpg", "out", "", "", ""))
	assert.Equal(t, filepath.Join("out", "frame.png"),
		GenerateOutputFilename("frame", "out", "", "", ""))
}

func TestListImageFilesSorted(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	for _, name := range []string{"b.png", "a.jpg", "notes.txt", "sub/c.webp"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	files, err := ListImageFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.jpg"),
		filepath.Join(dir, "b.png"),
		filepath.Join(dir, "sub", "c.webp"),
	}, files)

	_, err = ListImageFiles(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestFileAndDirExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	assert.True(t, FileExists(file))
	assert.False(t, FileExists(dir))
	assert.True(t, DirExists(dir))
	assert.False(t, DirExists(file))

	nested := filepath.Join(dir, "x", "y")
	require.NoError(t, EnsureDir(nested))
	assert.True(t, DirExists(nested))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "a_b_c", SanitizeFilename(" a:b?c. "))
}

func TestFormatFileSize(t *testing.T) {
	assert.Equal(t, "512 B", FormatFileSize(512))
	assert.Equal(t, "1.5 KB", FormatFileSize(1536))
	assert.Equal(t, "2.0 MB", FormatFileSize(2*1024*1024))
}
