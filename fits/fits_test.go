package fits

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/astrogo/fitsio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsFITSPath(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"flat-001.fits", true},
		{"flat-001.fit", true},
		{"FLAT-001.FITS", true},
		{"flat-001.fits.gz", true},
		{"flat-001.fit.bz2", true},
		{"flat-001.fits.xz", true},
		{"flat-001.jpg", false},
		{"flat-001.fits.zip", false},
		{"notes.txt", false},
		{"archive.gz", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsFITSPath(tt.name))
		})
	}
}

func headerWithCards(t *testing.T, cards ...fitsio.Card) *fitsio.Header {
	t.Helper()
	hdu := fitsio.NewImage(16, []int{4, 4})
	if len(cards) > 0 {
		require.NoError(t, hdu.Header().Append(cards...))
	}
	return hdu.Header()
}

func TestClassifyFrame(t *testing.T) {
	tests := []struct {
		name  string
		cards []fitsio.Card
		path  string
		want  FrameType
	}{
		{
			name:  "picttype wins over imagetyp",
			cards: []fitsio.Card{{Name: "PICTTYPE", Value: 3}, {Name: "IMAGETYP", Value: "Flat Frame"}},
			path:  "/data/whatever.fit",
			want:  Dark,
		},
		{
			name:  "imagetyp flat",
			cards: []fitsio.Card{{Name: "IMAGETYP", Value: "Flat Frame"}},
			path:  "/data/whatever.fit",
			want:  Flat,
		},
		{
			name:  "imagetyp case insensitive",
			cards: []fitsio.Card{{Name: "IMAGETYP", Value: "bias frame"}},
			path:  "/data/whatever.fit",
			want:  Bias,
		},
		{
			name:  "unrecognized imagetyp does not fall back to path",
			cards: []fitsio.Card{{Name: "IMAGETYP", Value: "Tricolor"}},
			path:  "/data/flat-001.fit",
			want:  Unknown,
		},
		{
			name: "path keyword in directory counts",
			path: "/observations/flats/img-001.fit",
			want: Flat,
		},
		{
			name: "dark from file name",
			path: "/data/Dark-300s-001.fit",
			want: Dark,
		},
		{
			name: "light keyword in name",
			path: "/data/M31-Red-001.fit",
			want: Light,
		},
		{
			name: "nothing recognizable",
			path: "/data/img-001.fit",
			want: Unknown,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hdr := headerWithCards(t, tt.cards...)
			assert.Equal(t, tt.want, classifyFrame(hdr, tt.path))
		})
	}
}

func TestCardCoercion(t *testing.T) {
	hdr := headerWithCards(t,
		fitsio.Card{Name: "ASINT", Value: 7},
		fitsio.Card{Name: "ASFLOAT", Value: 2.5},
		fitsio.Card{Name: "ASSTR", Value: " 42 "},
	)

	v, ok := cardInt(hdr, "ASINT")
	assert.True(t, ok)
	assert.Equal(t, 7, v)

	v, ok = cardInt(hdr, "ASFLOAT")
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	v, ok = cardInt(hdr, "ASSTR")
	assert.True(t, ok)
	assert.Equal(t, 42, v)

	_, ok = cardInt(hdr, "MISSING")
	assert.False(t, ok)

	f, ok := cardFloat(hdr, "ASINT")
	assert.True(t, ok)
	assert.Equal(t, 7.0, f)

	f, ok = cardFloat(hdr, "ASFLOAT")
	assert.True(t, ok)
	assert.Equal(t, 2.5, f)
}

func writeTestMaster(t *testing.T, path string, pixels []float64) {
	t.Helper()
	img := Image{Pixels: pixels, Width: 4, Height: 4}
	meta := MasterHeader{
		Type:        Flat,
		ImageType:   "Flat Frame",
		Exposure:    10.5,
		Temperature: -15.25,
		FilterName:  "Ha",
		Binning:     2,
		Comment:     "Master Flat MEAN combined (no calibration)",
	}
	require.NoError(t, WriteMaster(path, img, meta))
}

func TestWriteMasterRoundTrip(t *testing.T) {
	pixels := make([]float64, 16)
	for i := range pixels {
		pixels[i] = 500
	}
	pixels[0] = 0
	pixels[1] = 100.4
	pixels[2] = 100.5
	pixels[3] = 101.5
	pixels[4] = 65535
	pixels[5] = -3
	pixels[6] = 70000

	path := filepath.Join(t.TempDir(), "master.fits")
	writeTestMaster(t, path, pixels)

	img, err := ReadImage(path)
	require.NoError(t, err)
	assert.Equal(t, 4, img.Width)
	assert.Equal(t, 4, img.Height)
	assert.Equal(t, 0.0, img.Pixels[0])
	assert.Equal(t, 100.0, img.Pixels[1], "rounds down")
	assert.Equal(t, 100.0, img.Pixels[2], "rounds half to even")
	assert.Equal(t, 102.0, img.Pixels[3], "rounds half to even")
	assert.Equal(t, 65535.0, img.Pixels[4])
	assert.Equal(t, 0.0, img.Pixels[5], "clamped below")
	assert.Equal(t, 65535.0, img.Pixels[6], "clamped above")
	assert.Equal(t, 500.0, img.Pixels[7])

	desc, err := Inspect(path)
	require.NoError(t, err)
	assert.Equal(t, Flat, desc.Type)
	assert.Equal(t, "Ha", desc.FilterName)
	assert.Equal(t, 2, desc.Binning)
	assert.Equal(t, 4, desc.XSize)
	assert.Equal(t, 4, desc.YSize)
	assert.Equal(t, 10.5, desc.Exposure)
	assert.Equal(t, -15.25, desc.Temperature)
}

func TestReadImageCompressed(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "master.fits")
	pixels := make([]float64, 16)
	for i := range pixels {
		pixels[i] = float64(i * 100)
	}
	writeTestMaster(t, plain, pixels)

	raw, err := os.ReadFile(plain)
	require.NoError(t, err)

	compressed := filepath.Join(dir, "master.fits.gz")
	out, err := os.Create(compressed)
	require.NoError(t, err)
	zw := gzip.NewWriter(out)
	_, err = zw.Write(raw)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, out.Close())

	img, err := ReadImage(compressed)
	require.NoError(t, err)
	assert.Equal(t, 4, img.Width)
	assert.Equal(t, 100.0, img.Pixels[1])

	desc, err := Inspect(compressed)
	require.NoError(t, err)
	assert.Equal(t, Flat, desc.Type)
}

// writeRawImage writes a FITS file straight through the codec, bypassing
// the conventions WriteMaster enforces.
func writeRawImage(t *testing.T, path string, axes []int, cards ...fitsio.Card) {
	t.Helper()
	file, err := os.Create(path)
	require.NoError(t, err)
	defer file.Close()
	out, err := fitsio.Create(file)
	require.NoError(t, err)
	hdu := fitsio.NewImage(16, axes)
	defer hdu.Close()
	if len(cards) > 0 {
		require.NoError(t, hdu.Header().Append(cards...))
	}
	count := 1
	for _, n := range axes {
		count *= n
	}
	data := make([]int16, count)
	require.NoError(t, hdu.Write(&data))
	require.NoError(t, out.Write(hdu))
	require.NoError(t, out.Close())
}

func TestInspectRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()

	t.Run("not a FITS file", func(t *testing.T) {
		path := filepath.Join(dir, "garbage.fit")
		require.NoError(t, os.WriteFile(path, []byte("plain text, not a header"), 0644))
		_, err := Inspect(path)
		assert.ErrorIs(t, err, ErrNotFITS)
		assert.ErrorContains(t, err, path)
	})

	t.Run("unequal binning", func(t *testing.T) {
		path := filepath.Join(dir, "oblong.fit")
		writeRawImage(t, path, []int{4, 4},
			fitsio.Card{Name: "XBINNING", Value: 2},
			fitsio.Card{Name: "YBINNING", Value: 1})
		_, err := Inspect(path)
		assert.ErrorIs(t, err, ErrNonSquareBinning)
	})

	t.Run("not two-dimensional", func(t *testing.T) {
		path := filepath.Join(dir, "cube.fit")
		writeRawImage(t, path, []int{4, 4, 2})
		_, err := Inspect(path)
		assert.ErrorIs(t, err, ErrNotTwoDimensional)
		_, err = ReadImage(path)
		assert.ErrorIs(t, err, ErrNotTwoDimensional)
	})
}

func TestFindFiles(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0755))
	for _, name := range []string{"a.fits", "b.FIT", "c.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(sub, "d.fits.gz"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "e.dat"), nil, 0644))

	flat, err := FindFiles(dir, false)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.fits"),
		filepath.Join(dir, "b.FIT"),
	}, flat)

	recursive, err := FindFiles(dir, true)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.fits"),
		filepath.Join(dir, "b.FIT"),
		filepath.Join(sub, "d.fits.gz"),
	}, recursive)
}

func TestDigest(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first")
	second := filepath.Join(dir, "second")
	third := filepath.Join(dir, "third")
	require.NoError(t, os.WriteFile(first, []byte("calibration data"), 0644))
	require.NoError(t, os.WriteFile(second, []byte("calibration data"), 0644))
	require.NoError(t, os.WriteFile(third, []byte("different data"), 0644))

	d1, err := Digest(first)
	require.NoError(t, err)
	d2, err := Digest(second)
	require.NoError(t, err)
	d3, err := Digest(third)
	require.NoError(t, err)

	assert.Len(t, d1, 64)
	assert.Equal(t, d1, d2)
	assert.NotEqual(t, d1, d3)

	_, err = Digest(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
