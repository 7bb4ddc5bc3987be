// Package model holds the settings and shared error values describing one
// combination session. Settings start from configuration defaults and are
// then adjusted by command line flags or the interactive session editor.
package model

// CombineMethod selects the statistical algorithm used to merge frames.
type CombineMethod int

const (
	// CombineMean merges by per-pixel arithmetic mean.
	CombineMean CombineMethod = iota
	// CombineMedian merges by per-pixel median.
	CombineMedian
	// CombineMinMax drops the n smallest and largest values per pixel,
	// then takes the mean of the remainder.
	CombineMinMax
	// CombineSigmaClip rejects outliers beyond a z-score threshold, then
	// takes the mean of the remainder.
	CombineSigmaClip
)

func (m CombineMethod) String() string {
	switch m {
	case CombineMean:
		return "Mean"
	case CombineMedian:
		return "Median"
	case CombineMinMax:
		return "MinMaxClip"
	case CombineSigmaClip:
		return "SigmaClip"
	default:
		return "Unknown"
	}
}

// DispositionType says what happens to input files after a successful
// combine.
type DispositionType int

const (
	// DispositionNothing leaves input files in place.
	DispositionNothing DispositionType = iota
	// DispositionSubFolder moves input files into a subfolder next to
	// them.
	DispositionSubFolder
)

func (d DispositionType) String() string {
	switch d {
	case DispositionSubFolder:
		return "SubFolder"
	default:
		return "Nothing"
	}
}

// CalibrationType selects the precalibration applied to each input frame
// before combining.
type CalibrationType int

const (
	// CalibrationNone applies no precalibration.
	CalibrationNone CalibrationType = iota
	// CalibrationPedestal subtracts a fixed pedestal value.
	CalibrationPedestal
	// CalibrationFixedFile subtracts a given bias or dark file.
	CalibrationFixedFile
	// CalibrationAutoDirectory picks the best matching calibration file
	// from a directory.
	CalibrationAutoDirectory
)

func (c CalibrationType) String() string {
	switch c {
	case CalibrationPedestal:
		return "Pedestal"
	case CalibrationFixedFile:
		return "Fixed File"
	case CalibrationAutoDirectory:
		return "Auto Directory"
	default:
		return "None"
	}
}

// DefaultPedestal is the pedestal subtracted when pedestal calibration is
// chosen without an explicit value.
const DefaultPedestal = 100

// Settings is the full description of one combination session.
type Settings struct {
	CombineMethod  CombineMethod
	MinMaxClipped  int
	SigmaThreshold float64

	Disposition   DispositionType
	SubfolderName string

	Calibration        CalibrationType
	Pedestal           int
	FixedPath          string
	AutoDirectory      string
	AutoRecursive      bool
	AutoBiasOnly       bool
	DisplayAutoResults bool

	GroupBySize          bool
	GroupByFilter        bool
	GroupByTemperature   bool
	TemperatureBandwidth float64
	IgnoreSmallGroups    bool
	MinimumGroupSize     int

	IgnoreFileType bool
}

// Grouped reports whether any grouping dimension is enabled.
func (s Settings) Grouped() bool {
	return s.GroupBySize || s.GroupByFilter || s.GroupByTemperature
}
