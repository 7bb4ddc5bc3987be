package model

import "errors"

// Session errors surfaced to the user as dialogs. They are wrapped with
// path context where raised; callers match with errors.Is.
var (
	// ErrNotAllFlatFrames means the inputs include frames that are not
	// flats and type checking was not suppressed.
	ErrNotAllFlatFrames = errors.New("files are not all flat frames")

	// ErrIncompatibleSizes means frames differ in dimensions or binning
	// and cannot be combined or calibrated against each other.
	ErrIncompatibleSizes = errors.New("files have incompatible dimensions or binning")

	// ErrNoGroupOutputDirectory means the grouped-output directory does
	// not exist and could not be created.
	ErrNoGroupOutputDirectory = errors.New("output directory does not exist and could not be created")

	// ErrNoAutoCalibrationDirectory means the auto-calibration directory
	// is missing or unreadable.
	ErrNoAutoCalibrationDirectory = errors.New("auto-calibration directory does not exist or could not be read")

	// ErrAutoCalibrationDirectoryEmpty means the auto-calibration
	// directory holds no calibration files at all.
	ErrAutoCalibrationDirectoryEmpty = errors.New("auto-calibration directory contains no calibration files")

	// ErrAutoCalibrationNoBiasFiles means bias-only matching was asked
	// for but the directory holds no bias files.
	ErrAutoCalibrationNoBiasFiles = errors.New("auto-calibration directory contains no bias files")

	// ErrNoSuitableAutoBias means no calibration file of matching size
	// and binning exists in the auto-calibration directory.
	ErrNoSuitableAutoBias = errors.New("no suitable bias or dark file in calibration directory")
)
