package combine

import (
	"sort"
	"strings"

	"github.com/earwighaven/masterflatmaker/fits"
	"github.com/earwighaven/masterflatmaker/internal/cluster"
)

// GroupBySize splits the descriptors into groups sharing dimensions and
// binning, ordered by size key. Without grouping all files form one group.
func GroupBySize(descriptors []fits.FileDescriptor, grouped bool) [][]fits.FileDescriptor {
	if !grouped {
		return [][]fits.FileDescriptor{descriptors}
	}
	return groupByKey(descriptors, fits.FileDescriptor.SizeKey)
}

// GroupByFilter splits the descriptors into groups sharing a filter name,
// compared case-insensitively and ordered by name. Without grouping all
// files form one group.
func GroupByFilter(descriptors []fits.FileDescriptor, grouped bool) [][]fits.FileDescriptor {
	if !grouped {
		return [][]fits.FileDescriptor{descriptors}
	}
	return groupByKey(descriptors, func(d fits.FileDescriptor) string {
		return strings.ToLower(d.FilterName)
	})
}

// groupByKey sorts the descriptors by the key function, preserving input
// order within equal keys, and collects runs of equal keys into groups.
func groupByKey(descriptors []fits.FileDescriptor, key func(fits.FileDescriptor) string) [][]fits.FileDescriptor {
	sorted := append([]fits.FileDescriptor(nil), descriptors...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return key(sorted[i]) < key(sorted[j])
	})

	var groups [][]fits.FileDescriptor
	start := 0
	for i := 1; i <= len(sorted); i++ {
		if i == len(sorted) || key(sorted[i]) != key(sorted[start]) {
			groups = append(groups, sorted[start:i])
			start = i
		}
	}
	return groups
}

// GroupByTemperature clusters the descriptors into temperature groups using
// mean-shift clustering with the given bandwidth, since reported CCD
// temperatures wander a little between frames. Groups are ordered by the
// temperature of their first member. Without grouping all files form one
// group.
func GroupByTemperature(descriptors []fits.FileDescriptor, grouped bool, bandwidth float64) [][]fits.FileDescriptor {
	if !grouped {
		return [][]fits.FileDescriptor{descriptors}
	}

	temperatures := make([]float64, len(descriptors))
	for i, d := range descriptors {
		temperatures[i] = d.Temperature
	}
	labels := cluster.MeanShift(temperatures, bandwidth)

	labelCount := 0
	for _, label := range labels {
		if label+1 > labelCount {
			labelCount = label + 1
		}
	}
	groups := make([][]fits.FileDescriptor, labelCount)
	for i, label := range labels {
		groups[label] = append(groups[label], descriptors[i])
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i][0].Temperature < groups[j][0].Temperature
	})
	return groups
}

// meanExposureAndTemperature averages the exposure times and temperatures of
// the given files for description outputs. The list must be non-empty.
func meanExposureAndTemperature(descriptors []fits.FileDescriptor) (float64, float64) {
	totalExposure := 0.0
	totalTemperature := 0.0
	for _, d := range descriptors {
		totalExposure += d.Exposure
		totalTemperature += d.Temperature
	}
	n := float64(len(descriptors))
	return totalExposure / n, totalTemperature / n
}
