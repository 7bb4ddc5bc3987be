// Package combine stacks sets of flat frames into master flats: validating
// and grouping the inputs, running the selected combination algorithm, and
// writing the result with its metadata.
package combine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/earwighaven/masterflatmaker/fits"
	"github.com/earwighaven/masterflatmaker/internal/calibrate"
	"github.com/earwighaven/masterflatmaker/internal/console"
	"github.com/earwighaven/masterflatmaker/internal/model"
)

// Reader loads FITS headers and pixel data for sets of files. The production
// implementation reads files concurrently; results are always in input
// order.
type Reader interface {
	// Describe inspects the headers of the given files.
	Describe(ctx context.Context, paths []string) ([]fits.FileDescriptor, error)
	// Read loads the pixel data of the given files.
	Read(ctx context.Context, paths []string) ([]fits.Image, error)
}

// Combiner runs one combination session against a fixed set of settings.
type Combiner struct {
	// FileMoved, when set, is called with the path of each input file that
	// was moved after a successful combine.
	FileMoved func(path string)
	// Now supplies the time used in name substitution and generated file
	// names. Tests replace it with a fixed clock.
	Now func() time.Time
	// Conflicts receives the warning line printed when a plain file blocks
	// the creation of a needed directory.
	Conflicts io.Writer

	settings   model.Settings
	reader     Reader
	calibrator *calibrate.Calibrator
	cons       *console.Console
}

// New creates a Combiner for the given settings, reading inputs through
// reader and narrating progress to cons.
func New(settings model.Settings, reader Reader, cons *console.Console) *Combiner {
	return &Combiner{
		Now:        time.Now,
		Conflicts:  os.Stdout,
		settings:   settings,
		reader:     reader,
		calibrator: calibrate.New(settings),
		cons:       cons,
	}
}

// ProcessSingle combines all the given files into a single master flat at
// outputPath. The files must all be flat frames, unless the file type check
// is disabled, and must share dimensions and binning.
func (c *Combiner) ProcessSingle(ctx context.Context, descriptors []fits.FileDescriptor, outputPath string) error {
	c.cons.PushLevel()
	defer c.cons.PopLevel()
	c.cons.Message("Using single-file processing", 1)

	if !fits.AllSameSize(descriptors) {
		return model.ErrIncompatibleSizes
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.settings.IgnoreFileType && !fits.AllOfType(descriptors, fits.Flat) {
		return model.ErrNotAllFlatFrames
	}

	filterName := fits.MostCommonFilter(descriptors)
	if err := c.combineFiles(ctx, descriptors, filterName, outputPath); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	folderName := SubstituteDateTime(c.settings.SubfolderName, c.Now())
	if err := c.disposeInputs(descriptors, folderName); err != nil {
		return err
	}
	c.cons.Message("Combining complete", 0)
	return nil
}

// ProcessGroups splits the given files into groups along the enabled
// grouping dimensions and combines each group into its own master flat
// inside outputDirectory.
func (c *Combiner) ProcessGroups(ctx context.Context, descriptors []fits.FileDescriptor, outputDirectory string) error {
	c.cons.PushLevel()
	defer c.cons.PopLevel()
	folderName := SubstituteDateTime(c.settings.SubfolderName, c.Now())
	c.cons.Message("Process groups into output directory: "+outputDirectory, 1)

	if err := ensureDirectory(outputDirectory, c.Conflicts); err != nil {
		if errors.Is(err, errDirectoryConflict) {
			return fmt.Errorf("%q: %w", outputDirectory, model.ErrNoGroupOutputDirectory)
		}
		return err
	}

	minimumSize := 0
	if c.settings.IgnoreSmallGroups {
		minimumSize = c.settings.MinimumGroupSize
	}

	for _, sizeGroup := range GroupBySize(descriptors, c.settings.GroupBySize) {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.cons.PushLevel()
		if len(sizeGroup) < minimumSize {
			if c.settings.GroupBySize {
				c.cons.Message(fmt.Sprintf("Ignoring one size group: %d files %s",
					len(sizeGroup), sizeGroup[0].SizeKey()), 1)
			}
		} else {
			if c.settings.GroupBySize {
				c.cons.Message(fmt.Sprintf("Processing one size group: %d files %s",
					len(sizeGroup), sizeGroup[0].SizeKey()), 1)
			}
			if err := c.processTemperatureGroups(ctx, sizeGroup, outputDirectory, folderName, minimumSize); err != nil {
				return err
			}
		}
		c.cons.PopLevel()
	}
	c.cons.Message("Group combining complete", 0)
	return nil
}

func (c *Combiner) processTemperatureGroups(ctx context.Context, sizeGroup []fits.FileDescriptor, outputDirectory string, folderName string, minimumSize int) error {
	groups := GroupByTemperature(sizeGroup, c.settings.GroupByTemperature, c.settings.TemperatureBandwidth)
	for _, temperatureGroup := range groups {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.cons.PushLevel()
		_, meanTemperature := meanExposureAndTemperature(temperatureGroup)
		if len(temperatureGroup) < minimumSize {
			if c.settings.GroupByTemperature {
				c.cons.Message(fmt.Sprintf("Ignoring one temperature group: %d files with mean temperature %.1f",
					len(temperatureGroup), meanTemperature), 1)
			}
		} else {
			if c.settings.GroupByTemperature {
				c.cons.Message(fmt.Sprintf("Processing one temperature group: %d files with mean temperature %.1f",
					len(temperatureGroup), meanTemperature), 1)
			}
			if err := c.processFilterGroups(ctx, temperatureGroup, outputDirectory, folderName, minimumSize); err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		c.cons.PopLevel()
	}
	return nil
}

func (c *Combiner) processFilterGroups(ctx context.Context, temperatureGroup []fits.FileDescriptor, outputDirectory string, folderName string, minimumSize int) error {
	for _, filterGroup := range GroupByFilter(temperatureGroup, c.settings.GroupByFilter) {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.cons.PushLevel()
		filterName := filterGroup[0].FilterName
		if len(filterGroup) < minimumSize {
			if c.settings.GroupByFilter {
				c.cons.Message(fmt.Sprintf("Ignoring one filter group: %d files with %s filter ",
					len(filterGroup), filterName), 1)
			}
		} else {
			if c.settings.GroupByFilter {
				c.cons.Message(fmt.Sprintf("Processing one filter group: %d files with %s filter ",
					len(filterGroup), filterName), 1)
			}
			if err := c.processOneGroup(ctx, filterGroup, outputDirectory, folderName); err != nil {
				return err
			}
		}
		c.cons.PopLevel()
	}
	return nil
}

// processOneGroup validates and combines one group of files into a master
// flat named from the group's metadata.
func (c *Combiner) processOneGroup(ctx context.Context, group []fits.FileDescriptor, outputDirectory string, folderName string) error {
	sample := group[0]
	c.cons.PushLevel()
	defer c.cons.PopLevel()
	c.describeGroup(group)

	fileName := FileNamePortion(c.settings.CombineMethod, sample,
		c.settings.SigmaThreshold, c.settings.MinMaxClipped, c.Now())
	outputFile := filepath.Join(outputDirectory, fileName)

	if !fits.AllSameSize(group) {
		return model.ErrIncompatibleSizes
	}
	if !c.settings.IgnoreFileType && !fits.AllOfType(group, fits.Flat) {
		return model.ErrNotAllFlatFrames
	}

	filterName := fits.MostCommonFilter(group)
	if err := c.combineFiles(ctx, group, filterName, outputFile); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.disposeInputs(group, folderName); err != nil {
		return err
	}
	return ctx.Err()
}

// describeGroup narrates the group being processed, mentioning only the
// dimensions along which grouping was requested.
func (c *Combiner) describeGroup(group []fits.FileDescriptor) {
	sample := group[0]
	var parts []string
	if c.settings.GroupBySize {
		parts = append(parts, fmt.Sprintf("binned %d x %d", sample.Binning, sample.Binning))
	}
	if c.settings.GroupByFilter {
		parts = append(parts, fmt.Sprintf("with %s filter", sample.FilterName))
	}
	if c.settings.GroupByTemperature {
		parts = append(parts, fmt.Sprintf("at %s degrees", FloatText(sample.Temperature)))
	}
	c.cons.Message(fmt.Sprintf("Processing %d files %s.", len(group), strings.Join(parts, ", ")), 1)
}

// combineFiles runs the configured combination algorithm over the group and
// writes the master flat, with date and time tokens in the output path
// substituted.
func (c *Combiner) combineFiles(ctx context.Context, group []fits.FileDescriptor, filterName string, outputPath string) error {
	c.cons.PushLevel()
	defer c.cons.PopLevel()
	substituted := SubstituteDateTime(outputPath, c.Now())

	paths := make([]string, len(group))
	for i, d := range group {
		paths[i] = d.Path
	}
	c.warnDuplicateInputs(paths)
	tag := c.calibrator.CommentTag()
	binning := group[0].Binning
	meanExposure, meanTemperature := meanExposureAndTemperature(group)

	var result fits.Image
	var comment string
	var err error
	switch c.settings.CombineMethod {
	case model.CombineMean:
		result, err = c.combineMean(ctx, paths)
		comment = "Master Flat MEAN combined " + tag
	case model.CombineMedian:
		result, err = c.combineMedian(ctx, paths)
		comment = "Master Flat MEDIAN combined " + tag
	case model.CombineMinMax:
		result, err = c.combineMinMax(ctx, paths, c.settings.MinMaxClipped)
		comment = fmt.Sprintf("Master Flat Min/Max Clipped (drop %d) Mean combined %s",
			c.settings.MinMaxClipped, tag)
	default:
		result, err = c.combineSigmaClip(ctx, paths, c.settings.SigmaThreshold)
		comment = fmt.Sprintf("Master Flat Sigma Clipped (threshold %s) Mean combined %s",
			FloatText(c.settings.SigmaThreshold), tag)
	}
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err = fits.WriteMaster(substituted, result, fits.MasterHeader{
		Type:        fits.Flat,
		ImageType:   "Flat Frame",
		Exposure:    meanExposure,
		Temperature: meanTemperature,
		FilterName:  filterName,
		Binning:     binning,
		Comment:     comment,
	})
	if err != nil {
		return err
	}
	if digest, err := fits.Digest(substituted); err == nil {
		slog.Debug("wrote master flat", "path", substituted, "blake3", digest)
	}
	return nil
}

// warnDuplicateInputs flags input files with byte-identical content before
// they are read. Duplicates are still combined, but they weight the
// statistics toward a single exposure, so the user should know.
func (c *Combiner) warnDuplicateInputs(paths []string) {
	seen := make(map[string]string, len(paths))
	for _, path := range paths {
		digest, err := fits.Digest(path)
		if err != nil {
			continue
		}
		if previous, ok := seen[digest]; ok {
			c.cons.TempMessage(fmt.Sprintf("Duplicate input: %s has the same content as %s",
				filepath.Base(path), filepath.Base(previous)), 1)
			continue
		}
		seen[digest] = path
	}
}

// disposeInputs moves the input files into the disposition folder when the
// settings ask for it.
func (c *Combiner) disposeInputs(descriptors []fits.FileDescriptor, folderName string) error {
	if c.settings.Disposition == model.DispositionNothing {
		return nil
	}
	c.cons.Message("Moving processed files to "+folderName, 0)
	for _, descriptor := range descriptors {
		moved, err := disposeToSubfolder(descriptor, folderName, c.Conflicts)
		if err != nil {
			return err
		}
		if moved && c.FileMoved != nil {
			c.FileMoved(descriptor.Path)
		}
	}
	return nil
}
