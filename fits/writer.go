package fits

import (
	"fmt"
	"math"
	"os"

	"github.com/astrogo/fitsio"
)

// MasterHeader carries the metadata written into a combined master file.
type MasterHeader struct {
	Type        FrameType
	ImageType   string
	Exposure    float64
	Temperature float64
	FilterName  string
	Binning     int
	Comment     string
}

// WriteMaster writes img to path as a 16-bit FITS file, replacing any
// existing file. Pixel values are rounded half to even, clamped to the
// 16-bit ADU range, and stored with the unsigned-integer convention
// (BZERO 32768) so full-well values survive the round trip.
func WriteMaster(path string, img Image, meta MasterHeader) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	out, err := fitsio.Create(file)
	if err != nil {
		return fmt.Errorf("%q: %w", path, err)
	}

	hdu := fitsio.NewImage(16, []int{img.Width, img.Height})
	defer hdu.Close()

	err = hdu.Header().Append(
		fitsio.Card{Name: "BZERO", Value: 32768, Comment: "offset data range to that of unsigned short"},
		fitsio.Card{Name: "BSCALE", Value: 1, Comment: "default scaling factor"},
		fitsio.Card{Name: "FILTER", Value: meta.FilterName},
		fitsio.Card{Name: "COMMENT", Value: meta.Comment},
		fitsio.Card{Name: "EXPTIME", Value: meta.Exposure},
		fitsio.Card{Name: "CCD-TEMP", Value: meta.Temperature},
		fitsio.Card{Name: "SET-TEMP", Value: meta.Temperature},
		fitsio.Card{Name: "XBINNING", Value: meta.Binning},
		fitsio.Card{Name: "YBINNING", Value: meta.Binning},
		fitsio.Card{Name: "PICTTYPE", Value: int(meta.Type)},
		fitsio.Card{Name: "IMAGETYP", Value: meta.ImageType},
	)
	if err != nil {
		return fmt.Errorf("%q: %w", path, err)
	}

	data := make([]int16, len(img.Pixels))
	for i, pixel := range img.Pixels {
		v := math.RoundToEven(pixel)
		if v < 0 {
			v = 0
		} else if v > 0xFFFF {
			v = 0xFFFF
		}
		data[i] = int16(int32(v) - 32768)
	}
	if err := hdu.Write(&data); err != nil {
		return fmt.Errorf("%q: %w", path, err)
	}
	if err := out.Write(hdu); err != nil {
		return fmt.Errorf("%q: %w", path, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("%q: %w", path, err)
	}
	return file.Close()
}
