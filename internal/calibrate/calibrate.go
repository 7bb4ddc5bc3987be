// Package calibrate subtracts bias or dark signal from flat frames before
// they are stacked into a master flat.
package calibrate

import (
	"context"
	"fmt"
	"math"
	"path/filepath"

	"github.com/earwighaven/masterflatmaker/fits"
	"github.com/earwighaven/masterflatmaker/internal/console"
	"github.com/earwighaven/masterflatmaker/internal/model"
)

// autoExposureWeight biases best-match scoring toward exposure time when
// choosing a calibration file from the auto directory. Temperature deviation
// counts once, exposure deviation counts this many times.
const autoExposureWeight = 10

// Calibrator applies the precalibration step selected in the session settings.
type Calibrator struct {
	settings model.Settings
}

// New creates a Calibrator for the given session settings
func New(settings model.Settings) *Calibrator {
	return &Calibrator{settings: settings}
}

// Calibrate adjusts the pixels of the given images in place according to the
// configured calibration type. Descriptors must parallel the image list; they
// supply the exposure and temperature targets for auto-directory matching.
func (c *Calibrator) Calibrate(ctx context.Context, images []fits.Image, descriptors []fits.FileDescriptor, cons *console.Console) error {
	switch c.settings.Calibration {
	case model.CalibrationNone:
		return nil
	case model.CalibrationPedestal:
		return c.calibrateWithPedestal(ctx, images, c.settings.Pedestal, cons)
	case model.CalibrationFixedFile:
		return c.calibrateWithFile(ctx, images, c.settings.FixedPath, cons)
	default:
		return c.calibrateWithAutoDirectory(ctx, images, descriptors, cons)
	}
}

// calibrateWithPedestal subtracts a fixed amount from every pixel, clipping
// the result to the unsigned 16-bit range so no negative values are produced.
func (c *Calibrator) calibrateWithPedestal(ctx context.Context, images []fits.Image, pedestal int, cons *console.Console) error {
	cons.Message(fmt.Sprintf("Calibrate with pedestal = %d", pedestal), 0)
	amount := float64(pedestal)
	for _, image := range images {
		if err := ctx.Err(); err != nil {
			return err
		}
		for i, v := range image.Pixels {
			image.Pixels[i] = clipPixel(v - amount)
		}
	}
	return nil
}

// calibrateWithFile subtracts a single calibration image from every input.
// The calibration file must match the dimensions of each input image.
func (c *Calibrator) calibrateWithFile(ctx context.Context, images []fits.Image, path string, cons *console.Console) error {
	cons.Message("Calibrate with file: "+path, 0)
	calibration, err := fits.ReadImage(path)
	if err != nil {
		return err
	}
	for _, image := range images {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := subtractImage(image, calibration); err != nil {
			return fmt.Errorf("calibration file %q: %w", path, err)
		}
	}
	return nil
}

// calibrateWithAutoDirectory calibrates each input with the best-matching
// file from a directory of calibration frames. A separate file is chosen for
// each input, since the exposure times of collected flats often vary during
// the collection session to keep the ADU level constant as the light changes.
func (c *Calibrator) calibrateWithAutoDirectory(ctx context.Context, images []fits.Image, descriptors []fits.FileDescriptor, cons *console.Console) error {
	directory := c.settings.AutoDirectory
	available, err := descriptorsFromDirectory(directory, c.settings.AutoRecursive)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(available) == 0 {
		return fmt.Errorf("directory %q: %w", directory, model.ErrAutoCalibrationDirectoryEmpty)
	}

	cons.PushLevel()
	defer cons.PopLevel()
	cons.Message(fmt.Sprintf("Calibrating from directory containing %d files.", len(available)), 1)
	for i, descriptor := range descriptors {
		if err := ctx.Err(); err != nil {
			return err
		}
		match, err := c.bestCalibrationFile(available, descriptor, cons)
		if err != nil {
			return err
		}
		calibration, err := fits.ReadImage(match.Path)
		if err != nil {
			return err
		}
		if err := subtractImage(images[i], calibration); err != nil {
			return fmt.Errorf("calibration file %q: %w", match.Path, err)
		}
	}
	return nil
}

// bestCalibrationFile picks the calibration frame whose exposure and
// temperature most closely match the sample. Only frames of the same
// dimensions and binning qualify, and only bias and dark frames when the
// bias-only option is set.
func (c *Calibrator) bestCalibrationFile(available []fits.FileDescriptor, sample fits.FileDescriptor, cons *console.Console) (fits.FileDescriptor, error) {
	candidates := available
	if c.settings.AutoBiasOnly {
		candidates = nil
		for _, d := range available {
			if d.Type == fits.Bias || d.Type == fits.Dark {
				candidates = append(candidates, d)
			}
		}
		if len(candidates) == 0 {
			return fits.FileDescriptor{}, model.ErrAutoCalibrationNoBiasFiles
		}
	}

	var correctSize []fits.FileDescriptor
	for _, d := range candidates {
		if d.XSize == sample.XSize && d.YSize == sample.YSize && d.Binning == sample.Binning {
			correctSize = append(correctSize, d)
		}
	}
	if len(correctSize) == 0 {
		return fits.FileDescriptor{}, model.ErrNoSuitableAutoBias
	}

	return c.closestMatch(correctSize, sample.Exposure, sample.Temperature, cons), nil
}

// closestMatch scores each candidate by its deviation from the target
// exposure and temperature and returns the one with the smallest score.
// Ties go to the earliest candidate in the list.
func (c *Calibrator) closestMatch(candidates []fits.FileDescriptor, targetExposure float64, targetTemperature float64, cons *console.Console) fits.FileDescriptor {
	best := candidates[0]
	bestScore := math.Inf(1)
	for _, candidate := range candidates {
		score := math.Abs(candidate.Temperature-targetTemperature) +
			math.Abs(candidate.Exposure-targetExposure)*autoExposureWeight
		if score < bestScore {
			best = candidate
			bestScore = score
		}
	}

	if c.settings.DisplayAutoResults {
		cons.TempMessage(fmt.Sprintf("Target %.1fs at %.1f C, best match is %.1fs at %.1f C: %s",
			targetExposure, targetTemperature, best.Exposure, best.Temperature,
			filepath.Base(best.Path)), 1)
	}
	return best
}

// descriptorsFromDirectory inspects every FITS file in the directory,
// optionally descending into subdirectories.
func descriptorsFromDirectory(directory string, recursive bool) ([]fits.FileDescriptor, error) {
	paths, err := fits.FindFiles(directory, recursive)
	if err != nil {
		return nil, fmt.Errorf("directory %q: %w: %v", directory, model.ErrNoAutoCalibrationDirectory, err)
	}
	descriptors := make([]fits.FileDescriptor, 0, len(paths))
	for _, path := range paths {
		descriptor, err := fits.Inspect(path)
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, descriptor)
	}
	return descriptors, nil
}

// CommentTag describes the calibration mode for the master file's FITS comment
func (c *Calibrator) CommentTag() string {
	switch c.settings.Calibration {
	case model.CalibrationNone:
		return "(no calibration)"
	case model.CalibrationAutoDirectory:
		return "(auto-selected bias file calibration)"
	case model.CalibrationPedestal:
		return fmt.Sprintf("(pedestal %d calibration)", c.settings.Pedestal)
	default:
		return "(fixed bias file calibration)"
	}
}

// subtractImage subtracts the calibration image pixel by pixel, clipping each
// result to the unsigned 16-bit range. The image's pixel buffer is modified
// in place.
func subtractImage(image fits.Image, calibration fits.Image) error {
	if image.Width != calibration.Width || image.Height != calibration.Height {
		return model.ErrIncompatibleSizes
	}
	for i, v := range image.Pixels {
		image.Pixels[i] = clipPixel(v - calibration.Pixels[i])
	}
	return nil
}

func clipPixel(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 0xFFFF {
		return 0xFFFF
	}
	return v
}
