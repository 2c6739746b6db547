package imageproc

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igposter/pkg/config"
	"igposter/pkg/logger"
)

func testProcessor(t *testing.T) *Processor {
	t.Helper()
	cfg := config.DefaultConfig()
	return NewProcessor(&cfg.Image, logger.NewTestLogger())
}

func writeTestImage(t *testing.T, width, height int) string {
	t.Helper()
	img := imaging.New(width, height, color.NRGBA{R: 120, G: 60, B: 200, A: 255})
	path := filepath.Join(t.TempDir(), "source.jpg")
	require.NoError(t, imaging.Save(img, path))
	return path
}

func TestProcessFileKeepsAllowedAspect(t *testing.T) {
	p := testProcessor(t)

	// 800x640 has ratio 1.25, inside [0.8, 1.91], and fits under 1080
	result, err := p.ProcessFile(writeTestImage(t, 800, 640))
	require.NoError(t, err)

	assert.Equal(t, 800, result.Width)
	assert.Equal(t, 640, result.Height)
	assert.Equal(t, "jpeg", result.Format)
	assert.NotEmpty(t, result.Data)
}

func TestProcessFileCropsWideImage(t *testing.T) {
	p := testProcessor(t)

	// 2000x400 has ratio 5.0, gets cropped square then stays under the cap
	result, err := p.ProcessFile(writeTestImage(t, 2000, 400))
	require.NoError(t, err)

	assert.Equal(t, 400, result.Width)
	assert.Equal(t, 400, result.Height)
}

func TestProcessFileCropsTallImage(t *testing.T) {
	p := testProcessor(t)

	// 400x2000 has ratio 0.2, below the 0.8 floor
	result, err := p.ProcessFile(writeTestImage(t, 400, 2000))
	require.NoError(t, err)

	assert.Equal(t, 400, result.Width)
	assert.Equal(t, 400, result.Height)
}

func TestProcessFileDownscalesLargeImage(t *testing.T) {
	p := testProcessor(t)

	result, err := p.ProcessFile(writeTestImage(t, 4000, 3000))
	require.NoError(t, err)

	assert.Equal(t, 1080, result.Width)
	assert.Equal(t, 810, result.Height)
}

func TestProcessFileNeverUpscales(t *testing.T) {
	p := testProcessor(t)

	result, err := p.ProcessFile(writeTestImage(t, 300, 300))
	require.NoError(t, err)

	assert.Equal(t, 300, result.Width)
	assert.Equal(t, 300, result.Height)
}

func TestProcessFileMissingFile(t *testing.T) {
	p := testProcessor(t)

	_, err := p.ProcessFile(filepath.Join(t.TempDir(), "nope.jpg"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot load image")
}

func TestProcessFileNotAnImage(t *testing.T) {
	p := testProcessor(t)

	path := filepath.Join(t.TempDir(), "bogus.jpg")
	require.NoError(t, os.WriteFile(path, []byte("not pixels"), 0o644))

	_, err := p.ProcessFile(path)
	require.Error(t, err)
}

func TestProcessBytes(t *testing.T) {
	p := testProcessor(t)

	path := writeTestImage(t, 640, 640)
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	result, err := p.ProcessBytes(data, "https://example.com/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, 640, result.Width)
	assert.Equal(t, "https://example.com/a.jpg", result.SourcePath)
}

func TestProcessBytesGarbage(t *testing.T) {
	p := testProcessor(t)

	_, err := p.ProcessBytes([]byte("garbage"), "https://example.com/a.jpg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot decode image")
}
