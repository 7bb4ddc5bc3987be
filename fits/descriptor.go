package fits

import "fmt"

// FrameType is the kind of exposure a FITS file contains. The numeric values
// follow the TheSkyX ccdsoftImageFrame convention, which is also what the
// PICTTYPE header keyword carries.
type FrameType int

const (
	// Unknown is a file whose kind could not be determined.
	Unknown FrameType = iota
	// Light is a regular image exposure.
	Light
	// Bias is a zero-length calibration exposure.
	Bias
	// Dark is a dark calibration exposure.
	Dark
	// Flat is a flat-field calibration exposure.
	Flat
)

// String returns the display name of the frame type.
func (t FrameType) String() string {
	switch t {
	case Light:
		return "Light"
	case Bias:
		return "Bias"
	case Dark:
		return "Dark"
	case Flat:
		return "Flat"
	default:
		return "Unknown"
	}
}

// FileDescriptor summarizes the metadata of one FITS file: where it lives,
// what kind of frame it is, and the acquisition attributes used for grouping
// and calibration matching.
type FileDescriptor struct {
	Path        string
	Type        FrameType
	Binning     int
	XSize       int
	YSize       int
	FilterName  string
	Exposure    float64
	Temperature float64
}

// SizeKey returns a string identifying the dimensions and binning of the
// file. Files with equal keys can be combined with each other.
func (d FileDescriptor) SizeKey() string {
	return fmt.Sprintf("binned %d x %d, dimensions %d x %d",
		d.Binning, d.Binning, d.XSize, d.YSize)
}

// SameSize reports whether the other descriptor has identical dimensions
// and binning.
func (d FileDescriptor) SameSize(other FileDescriptor) bool {
	return d.XSize == other.XSize &&
		d.YSize == other.YSize &&
		d.Binning == other.Binning
}

// MostCommonFilter returns the filter name occurring most often in the given
// descriptors. Ties resolve to the name that appeared first. The result may
// be the empty string when files carry no FILTER keyword.
func MostCommonFilter(descriptors []FileDescriptor) string {
	counts := make(map[string]int)
	var order []string
	for _, d := range descriptors {
		if _, seen := counts[d.FilterName]; !seen {
			order = append(order, d.FilterName)
		}
		counts[d.FilterName]++
	}
	best := ""
	bestCount := 0
	for _, name := range order {
		if counts[name] > bestCount {
			best = name
			bestCount = counts[name]
		}
	}
	return best
}

// AllSameSize reports whether every descriptor has the same dimensions and
// binning as the first one. An empty list is compatible by definition.
func AllSameSize(descriptors []FileDescriptor) bool {
	if len(descriptors) == 0 {
		return true
	}
	first := descriptors[0]
	for _, d := range descriptors[1:] {
		if !d.SameSize(first) {
			return false
		}
	}
	return true
}

// AllOfType reports whether every descriptor is of the given frame type.
func AllOfType(descriptors []FileDescriptor, t FrameType) bool {
	for _, d := range descriptors {
		if d.Type != t {
			return false
		}
	}
	return true
}
