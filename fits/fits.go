// Package fits reads and writes the FITS calibration frames this tool works
// with. It wraps the astrogo/fitsio codec with the header conventions of
// common acquisition software (TheSkyX, MaxIm DL): frame classification via
// PICTTYPE and IMAGETYP, binning and sensor temperature keywords, and
// transparent decompression of gzip, bzip2 and xz compressed files.
package fits

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/astrogo/fitsio"
)

// Errors raised while decoding input files. They are wrapped with the file
// path where raised; callers match with errors.Is.
var (
	// ErrNotFITS means the file could not be parsed as a FITS file.
	ErrNotFITS = errors.New("not a FITS file")

	// ErrNotTwoDimensional means the primary HDU is not a 2-axis image.
	ErrNotTwoDimensional = errors.New("not a two-dimensional image")

	// ErrNonSquareBinning means the XBINNING and YBINNING keywords disagree.
	ErrNonSquareBinning = errors.New("unequal x and y binning")
)

// lightKeywords are file name fragments that suggest a light frame when no
// header keyword identifies the frame type.
var lightKeywords = []string{"light", "lum", "red", "green", "blue", "ha"}

// Image holds the pixel data of one two-dimensional FITS image, scaled to
// physical values (BZERO and BSCALE applied). Pixels are stored row major,
// so the value at column x of row y is Pixels[y*Width+x].
type Image struct {
	Pixels []float64
	Width  int
	Height int
}

// IsFITSPath reports whether the file name looks like a FITS file,
// optionally with a trailing compression extension.
func IsFITSPath(name string) bool {
	base := strings.ToLower(name)
	if format := DetectCompressionFormat(base); format != CompressionNone {
		base = strings.TrimSuffix(base, format.Extension())
	}
	return strings.HasSuffix(base, ".fit") || strings.HasSuffix(base, ".fits")
}

// FindFiles returns the FITS files in the given directory, sorted by path.
// With recursive set, subdirectories are searched too.
func FindFiles(dir string, recursive bool) ([]string, error) {
	var found []string
	if recursive {
		err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !entry.IsDir() && IsFITSPath(path) {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return found, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if !entry.IsDir() && IsFITSPath(entry.Name()) {
			found = append(found, filepath.Join(dir, entry.Name()))
		}
	}
	return found, nil
}

// Inspect reads the primary header of the file and summarizes it as a
// FileDescriptor without loading pixel data.
func Inspect(path string) (FileDescriptor, error) {
	file, err := openDecoded(path)
	if err != nil {
		return FileDescriptor{}, err
	}
	defer file.close()

	hdr := file.fits.HDU(0).Header()
	desc := FileDescriptor{
		Path: path,
		Type: classifyFrame(hdr, path),
	}

	xBinning, _ := cardInt(hdr, "XBINNING")
	yBinning, _ := cardInt(hdr, "YBINNING")
	if xBinning != yBinning {
		return FileDescriptor{}, fmt.Errorf("%q: %w (%d x %d)", path, ErrNonSquareBinning, xBinning, yBinning)
	}
	desc.Binning = xBinning

	if filterName, ok := cardString(hdr, "FILTER"); ok {
		desc.FilterName = filterName
	}
	if naxis, ok := cardInt(hdr, "NAXIS"); ok {
		if naxis != 2 {
			return FileDescriptor{}, fmt.Errorf("%q: %w (%d axes)", path, ErrNotTwoDimensional, naxis)
		}
		desc.XSize, _ = cardInt(hdr, "NAXIS1")
		desc.YSize, _ = cardInt(hdr, "NAXIS2")
	}
	if exposure, ok := cardFloat(hdr, "EXPOSURE"); ok {
		desc.Exposure = exposure
	} else if exposure, ok := cardFloat(hdr, "EXPTIME"); ok {
		desc.Exposure = exposure
	}
	if temperature, ok := cardFloat(hdr, "CCD-TEMP"); ok {
		desc.Temperature = temperature
	}
	return desc, nil
}

// ReadImage loads the pixel data of the primary HDU, converting the stored
// integers to physical floating point values.
func ReadImage(path string) (Image, error) {
	file, err := openDecoded(path)
	if err != nil {
		return Image{}, err
	}
	defer file.close()

	img, ok := file.fits.HDU(0).(fitsio.Image)
	if !ok {
		return Image{}, fmt.Errorf("%q: primary HDU holds no image", path)
	}
	hdr := img.Header()
	axes := hdr.Axes()
	if len(axes) != 2 {
		return Image{}, fmt.Errorf("%q: %w (%d axes)", path, ErrNotTwoDimensional, len(axes))
	}
	width, height := axes[0], axes[1]
	count := width * height

	raw, err := readRaw(img, hdr.Bitpix(), count)
	if err != nil {
		return Image{}, fmt.Errorf("%q: %w", path, err)
	}

	// Stored values are scaled per the FITS convention:
	// physical = BZERO + BSCALE * stored.
	bzero := 0.0
	bscale := 1.0
	if v, ok := cardFloat(hdr, "BZERO"); ok {
		bzero = v
	}
	if v, ok := cardFloat(hdr, "BSCALE"); ok {
		bscale = v
	}
	for i := range raw {
		raw[i] = bzero + bscale*raw[i]
	}
	return Image{Pixels: raw, Width: width, Height: height}, nil
}

// readRaw reads the stored pixel values as float64 regardless of BITPIX.
func readRaw(img fitsio.Image, bitpix, count int) ([]float64, error) {
	out := make([]float64, count)
	switch bitpix {
	case 8:
		data := make([]int8, count)
		if err := img.Read(&data); err != nil {
			return nil, err
		}
		for i, v := range data {
			out[i] = float64(v)
		}
	case 16:
		data := make([]int16, count)
		if err := img.Read(&data); err != nil {
			return nil, err
		}
		for i, v := range data {
			out[i] = float64(v)
		}
	case 32:
		data := make([]int32, count)
		if err := img.Read(&data); err != nil {
			return nil, err
		}
		for i, v := range data {
			out[i] = float64(v)
		}
	case 64:
		data := make([]int64, count)
		if err := img.Read(&data); err != nil {
			return nil, err
		}
		for i, v := range data {
			out[i] = float64(v)
		}
	case -32:
		data := make([]float32, count)
		if err := img.Read(&data); err != nil {
			return nil, err
		}
		for i, v := range data {
			out[i] = float64(v)
		}
	case -64:
		if err := img.Read(&out); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported BITPIX %d", bitpix)
	}
	return out, nil
}

// classifyFrame determines the frame type. The PICTTYPE keyword codes the
// type directly. Failing that, IMAGETYP is matched on telltale words, and as
// a last resort the file path itself is searched for them.
func classifyFrame(hdr *fitsio.Header, path string) FrameType {
	if code, ok := cardInt(hdr, "PICTTYPE"); ok {
		return FrameType(code)
	}
	if imageType, ok := cardString(hdr, "IMAGETYP"); ok {
		upper := strings.ToUpper(imageType)
		switch {
		case strings.Contains(upper, "BIAS"):
			return Bias
		case strings.Contains(upper, "DARK"):
			return Dark
		case strings.Contains(upper, "FLAT"):
			return Flat
		case strings.Contains(upper, "LIGHT"):
			return Light
		default:
			return Unknown
		}
	}
	upper := strings.ToUpper(path)
	switch {
	case strings.Contains(upper, "BIAS"):
		return Bias
	case strings.Contains(upper, "DARK"):
		return Dark
	case strings.Contains(upper, "FLAT"):
		return Flat
	}
	for _, keyword := range lightKeywords {
		if strings.Contains(upper, strings.ToUpper(keyword)) {
			return Light
		}
	}
	return Unknown
}

// decodedFile pairs an open FITS stream with the underlying file handle.
type decodedFile struct {
	file *os.File
	fits *fitsio.File
}

func openDecoded(path string) (*decodedFile, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	reader, err := newDecompressor(DetectCompressionFormat(path), file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("%q: %w", path, err)
	}
	decoded, err := fitsio.Open(reader)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("%q: %w: %w", path, ErrNotFITS, err)
	}
	return &decodedFile{file: file, fits: decoded}, nil
}

func (d *decodedFile) close() {
	d.fits.Close()
	d.file.Close()
}

func cardInt(hdr *fitsio.Header, name string) (int, bool) {
	card := hdr.Get(name)
	if card == nil {
		return 0, false
	}
	switch v := card.Value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func cardFloat(hdr *fitsio.Header, name string) (float64, bool) {
	card := hdr.Get(name)
	if card == nil {
		return 0, false
	}
	switch v := card.Value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func cardString(hdr *fitsio.Header, name string) (string, bool) {
	card := hdr.Get(name)
	if card == nil {
		return "", false
	}
	if v, ok := card.Value.(string); ok {
		return v, true
	}
	return fmt.Sprint(card.Value), true
}

