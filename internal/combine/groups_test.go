package combine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/earwighaven/masterflatmaker/fits"
)

func sized(path string, binning, x, y int) fits.FileDescriptor {
	return fits.FileDescriptor{Path: path, Binning: binning, XSize: x, YSize: y}
}

func filtered(path string, filterName string) fits.FileDescriptor {
	return fits.FileDescriptor{Path: path, FilterName: filterName}
}

func tempered(path string, temperature float64) fits.FileDescriptor {
	return fits.FileDescriptor{Path: path, Temperature: temperature}
}

func paths(group []fits.FileDescriptor) []string {
	out := make([]string, len(group))
	for i, d := range group {
		out[i] = d.Path
	}
	return out
}

func TestGroupBySize(t *testing.T) {
	descriptors := []fits.FileDescriptor{
		sized("a.fit", 1, 100, 50),
		sized("b.fit", 2, 50, 25),
		sized("c.fit", 1, 100, 50),
		sized("d.fit", 2, 50, 25),
	}

	t.Run("grouped", func(t *testing.T) {
		groups := GroupBySize(descriptors, true)
		require.Len(t, groups, 2)
		assert.Equal(t, []string{"a.fit", "c.fit"}, paths(groups[0]))
		assert.Equal(t, []string{"b.fit", "d.fit"}, paths(groups[1]))
	})

	t.Run("not grouped", func(t *testing.T) {
		groups := GroupBySize(descriptors, false)
		require.Len(t, groups, 1)
		assert.Equal(t, []string{"a.fit", "b.fit", "c.fit", "d.fit"}, paths(groups[0]))
	})
}

func TestGroupByFilter(t *testing.T) {
	descriptors := []fits.FileDescriptor{
		filtered("a.fit", "red"),
		filtered("b.fit", "GREEN"),
		filtered("c.fit", "Red"),
	}

	t.Run("case insensitive", func(t *testing.T) {
		groups := GroupByFilter(descriptors, true)
		require.Len(t, groups, 2)
		assert.Equal(t, []string{"b.fit"}, paths(groups[0]))
		assert.Equal(t, []string{"a.fit", "c.fit"}, paths(groups[1]))
	})

	t.Run("not grouped", func(t *testing.T) {
		groups := GroupByFilter(descriptors, false)
		require.Len(t, groups, 1)
		assert.Len(t, groups[0], 3)
	})
}

func TestGroupByTemperature(t *testing.T) {
	descriptors := []fits.FileDescriptor{
		tempered("warm.fit", 0),
		tempered("cold1.fit", -20.1),
		tempered("cold2.fit", -20),
		tempered("cold3.fit", -19.9),
		tempered("mid1.fit", -10),
		tempered("mid2.fit", -10.05),
	}

	t.Run("clusters and orders by temperature", func(t *testing.T) {
		groups := GroupByTemperature(descriptors, true, 1.0)
		require.Len(t, groups, 3)
		assert.Equal(t, []string{"cold1.fit", "cold2.fit", "cold3.fit"}, paths(groups[0]))
		assert.Equal(t, []string{"mid1.fit", "mid2.fit"}, paths(groups[1]))
		assert.Equal(t, []string{"warm.fit"}, paths(groups[2]))
	})

	t.Run("not grouped", func(t *testing.T) {
		groups := GroupByTemperature(descriptors, false, 1.0)
		require.Len(t, groups, 1)
		assert.Len(t, groups[0], 6)
	})
}

func TestMeanExposureAndTemperature(t *testing.T) {
	descriptors := []fits.FileDescriptor{
		{Exposure: 10, Temperature: -10},
		{Exposure: 20, Temperature: -20},
	}
	exposure, temperature := meanExposureAndTemperature(descriptors)
	assert.Equal(t, 15.0, exposure)
	assert.Equal(t, -15.0, temperature)
}
