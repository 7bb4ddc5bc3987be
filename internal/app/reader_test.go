package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/earwighaven/masterflatmaker/fits"
)

func writeTestFlat(t *testing.T, path string, value float64, temperature float64) {
	t.Helper()
	img := fits.Image{Pixels: []float64{value, value, value, value}, Width: 2, Height: 2}
	err := fits.WriteMaster(path, img, fits.MasterHeader{
		Type:        fits.Flat,
		ImageType:   "Flat Frame",
		Exposure:    10,
		Temperature: temperature,
		FilterName:  "Lum",
		Binning:     1,
	})
	require.NoError(t, err)
}

func TestFileReaderKeepsInputOrder(t *testing.T) {
	dir := t.TempDir()
	paths := make([]string, 8)
	for i := range paths {
		paths[i] = filepath.Join(dir, "flat"+string(rune('a'+i))+".fit")
		writeTestFlat(t, paths[i], float64(100*(i+1)), float64(-i))
	}
	reader := NewFileReader(context.Background(), 4)
	defer reader.Shutdown()

	descriptors, err := reader.Describe(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, descriptors, len(paths))
	for i, d := range descriptors {
		assert.Equal(t, paths[i], d.Path)
		assert.Equal(t, float64(-i), d.Temperature)
	}

	images, err := reader.Read(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, images, len(paths))
	for i, img := range images {
		assert.Equal(t, float64(100*(i+1)), img.Pixels[0])
	}
}

func TestFileReaderReportsMissingFile(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "present.fit")
	writeTestFlat(t, present, 100, -10)
	reader := NewFileReader(context.Background(), 2)
	defer reader.Shutdown()

	_, err := reader.Describe(context.Background(), []string{present, filepath.Join(dir, "absent.fit")})
	assert.Error(t, err)

	_, err = reader.Read(context.Background(), []string{filepath.Join(dir, "absent.fit")})
	assert.Error(t, err)
}
