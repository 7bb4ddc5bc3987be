package combine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/earwighaven/masterflatmaker/fits"
	"github.com/earwighaven/masterflatmaker/internal/model"
)

// uniqueNameLimit bounds the search for a collision-free destination name.
const uniqueNameLimit = 5000

var folderNamePattern = regexp.MustCompile(`^[A-Z0-9_$()\-]*$`)

// SubstituteDateTime replaces %d tokens with the date as YYYY-MM-DD and %t
// tokens with the time as HH-MM-SS, both upper and lower case.
func SubstituteDateTime(s string, now time.Time) string {
	date := now.Format("2006-01-02")
	clock := now.Format("15-04-05")
	s = strings.ReplaceAll(s, "%d", date)
	s = strings.ReplaceAll(s, "%D", date)
	s = strings.ReplaceAll(s, "%t", clock)
	return strings.ReplaceAll(s, "%T", clock)
}

// ValidFolderName reports whether the proposed disposition folder name is a
// safe single-component name. The %d, %t and %f tokens are allowed anywhere
// and are ignored for validation.
func ValidFolderName(proposed string) bool {
	upper := strings.ToUpper(proposed)
	for _, token := range []string{"%D", "%T", "%F"} {
		upper = strings.ReplaceAll(upper, token, "")
	}
	if len(upper) < 1 || len(upper) > 31 {
		return false
	}
	return folderNamePattern.MatchString(upper)
}

// FileNamePortion builds the name of a master flat from the metadata of a
// sample input file, of the form
// FLAT-filter-binning-method-date-temperatureC.fit.
func FileNamePortion(method model.CombineMethod, sample fits.FileDescriptor, sigmaThreshold float64, minMaxClipped int, now time.Time) string {
	methodText := method.String()
	switch method {
	case model.CombineSigmaClip:
		methodText += FloatText(sigmaThreshold)
	case model.CombineMinMax:
		methodText += strconv.Itoa(minMaxClipped)
	}
	return fmt.Sprintf("FLAT-%s-%dx%d-%s-%s-%.1fC.fit",
		sample.FilterName, sample.Binning, sample.Binning, methodText,
		now.Format("20060102-150405"), sample.Temperature)
}

// DefaultOutputPath places a generated master file name in the directory of
// the sample input file.
func DefaultOutputPath(sample fits.FileDescriptor, method model.CombineMethod, sigmaThreshold float64, minMaxClipped int, now time.Time) string {
	name := FileNamePortion(method, sample, sigmaThreshold, minMaxClipped, now)
	return filepath.Join(filepath.Dir(sample.Path), name)
}

// GroupOutputDirectory suggests a directory name for the output files of
// grouped processing, next to the sample input file.
func GroupOutputDirectory(sample fits.FileDescriptor, method model.CombineMethod, now time.Time) string {
	name := fmt.Sprintf("FLAT-%s-Groups-%s", method, now.Format("20060102-1504"))
	return filepath.Join(filepath.Dir(sample.Path), name)
}

// UniqueDestination returns a path for fileName inside directory that does
// not collide with an existing file, prefixing a counter when needed.
func UniqueDestination(directory string, fileName string) (string, error) {
	destination := filepath.Join(directory, fileName)
	for counter := 1; ; counter++ {
		if _, err := os.Stat(destination); errors.Is(err, os.ErrNotExist) {
			return destination, nil
		}
		if counter > uniqueNameLimit {
			return "", fmt.Errorf("unable to find a unique name for %q in %q after %d tries",
				fileName, directory, uniqueNameLimit)
		}
		destination = filepath.Join(directory, strconv.Itoa(counter)+"-"+fileName)
	}
}
