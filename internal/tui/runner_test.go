package tui

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/earwighaven/masterflatmaker/fits"
	"github.com/earwighaven/masterflatmaker/internal/app"
	"github.com/earwighaven/masterflatmaker/internal/config"
	"github.com/earwighaven/masterflatmaker/internal/model"
)

var editorClock = time.Date(2024, 3, 9, 9, 26, 53, 0, time.UTC)

// testApplication builds an application on default configuration, with the
// environment pointed away from any real config file.
func testApplication(t *testing.T) *app.Application {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Workers.Readers = 2

	application := app.New(context.Background(), cfg)
	t.Cleanup(application.Shutdown)
	return application
}

func writeFlatFrame(t *testing.T, path, filter string, value float64) {
	t.Helper()
	img := fits.Image{Pixels: []float64{value, value, value, value}, Width: 2, Height: 2}
	require.NoError(t, fits.WriteMaster(path, img, fits.MasterHeader{
		Type:        fits.Flat,
		ImageType:   "Flat Frame",
		Exposure:    10,
		Temperature: -10,
		FilterName:  filter,
		Binning:     1,
	}))
}

// collect drains the transcript and returns it with the session result.
func collect(t *testing.T, r *runner) ([]string, error) {
	t.Helper()
	var lines []string
	for line := range r.lines {
		lines = append(lines, line)
	}
	select {
	case err := <-r.done:
		return lines, err
	case <-time.After(10 * time.Second):
		t.Fatal("combination did not finish")
		return nil, nil
	}
}

func TestRunnerCombinesWithFullTranscript(t *testing.T) {
	application := testApplication(t)
	dir := t.TempDir()
	first := filepath.Join(dir, "flat1.fit")
	second := filepath.Join(dir, "flat2.fit")
	writeFlatFrame(t, first, "Lum", 100)
	writeFlatFrame(t, second, "Lum", 300)
	output := filepath.Join(dir, "master.fit")

	settings := editorSettings()
	settings.CombineMethod = model.CombineMean
	r := newRunner(application, runPlan{
		settings:   settings,
		fileNames:  []string{first, second},
		outputPath: output,
	})
	r.now = func() time.Time { return editorClock }
	r.start(context.Background())

	lines, err := collect(t, r)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"09:26:53 Starting session",
		"09:26:53 Using single-file processing",
		"09:26:53      Combining by simple mean",
		"09:26:53 Combining complete",
	}, lines)

	img, err := fits.ReadImage(output)
	require.NoError(t, err)
	assert.Equal(t, []float64{200, 200, 200, 200}, img.Pixels)
}

func TestRunnerBuildsDefaultOutputPath(t *testing.T) {
	application := testApplication(t)
	dir := t.TempDir()
	first := filepath.Join(dir, "flat1.fit")
	second := filepath.Join(dir, "flat2.fit")
	writeFlatFrame(t, first, "Lum", 100)
	writeFlatFrame(t, second, "Lum", 200)

	settings := editorSettings()
	settings.CombineMethod = model.CombineMean
	r := newRunner(application, runPlan{
		settings:  settings,
		fileNames: []string{first, second},
	})
	r.now = func() time.Time { return editorClock }
	r.start(context.Background())

	_, err := collect(t, r)
	require.NoError(t, err)

	expected := filepath.Join(dir, "FLAT-Lum-1x1-Mean-20240309-092653--10.0C.fit")
	img, err := fits.ReadImage(expected)
	require.NoError(t, err)
	assert.Equal(t, []float64{150, 150, 150, 150}, img.Pixels)
}

func TestRunnerGroupedDefaultsOutputDirectory(t *testing.T) {
	application := testApplication(t)
	dir := t.TempDir()
	writeFlatFrame(t, filepath.Join(dir, "r1.fit"), "Red", 100)
	writeFlatFrame(t, filepath.Join(dir, "r2.fit"), "Red", 300)
	writeFlatFrame(t, filepath.Join(dir, "g1.fit"), "Green", 50)
	writeFlatFrame(t, filepath.Join(dir, "g2.fit"), "Green", 150)

	settings := editorSettings()
	settings.CombineMethod = model.CombineMean
	settings.GroupByFilter = true
	r := newRunner(application, runPlan{
		settings: settings,
		fileNames: []string{
			filepath.Join(dir, "r1.fit"), filepath.Join(dir, "r2.fit"),
			filepath.Join(dir, "g1.fit"), filepath.Join(dir, "g2.fit"),
		},
	})
	r.now = func() time.Time { return editorClock }
	r.start(context.Background())

	lines, err := collect(t, r)
	require.NoError(t, err)
	transcript := strings.Join(lines, "\n")
	assert.Contains(t, transcript, "Processing one filter group: 2 files with Red filter ")
	assert.Contains(t, transcript, "Processing one filter group: 2 files with Green filter ")

	masters := filepath.Join(dir, "FLAT-Mean-Groups-20240309-0926")
	red, err := fits.ReadImage(filepath.Join(masters, "FLAT-Red-1x1-Mean-20240309-092653--10.0C.fit"))
	require.NoError(t, err)
	assert.Equal(t, float64(200), red.Pixels[0])
	green, err := fits.ReadImage(filepath.Join(masters, "FLAT-Green-1x1-Mean-20240309-092653--10.0C.fit"))
	require.NoError(t, err)
	assert.Equal(t, float64(100), green.Pixels[0])
}

func TestRunnerRejectsNonFlatFrames(t *testing.T) {
	application := testApplication(t)
	dir := t.TempDir()
	flat := filepath.Join(dir, "flat.fit")
	dark := filepath.Join(dir, "dark.fit")
	writeFlatFrame(t, flat, "Lum", 100)
	img := fits.Image{Pixels: []float64{5, 5, 5, 5}, Width: 2, Height: 2}
	require.NoError(t, fits.WriteMaster(dark, img, fits.MasterHeader{
		Type: fits.Dark, ImageType: "Dark Frame", Exposure: 10, Temperature: -10, Binning: 1,
	}))

	settings := editorSettings()
	r := newRunner(application, runPlan{
		settings:  settings,
		fileNames: []string{flat, dark},
	})
	r.now = func() time.Time { return editorClock }
	r.start(context.Background())

	lines, err := collect(t, r)
	require.ErrorIs(t, err, model.ErrNotAllFlatFrames)
	require.NotEmpty(t, lines)
	assert.Equal(t, "*** ERROR *** The selected files are not all Flat Frames: "+
		"If you know the files are flat frames, they may not have proper FITS data "+
		"internally. Check the \"Ignore FITS file type\" box to proceed anyway.",
		lines[len(lines)-1])
}

func TestRunnerCancelledBeforeStart(t *testing.T) {
	application := testApplication(t)
	dir := t.TempDir()
	flat := filepath.Join(dir, "flat.fit")
	writeFlatFrame(t, flat, "Lum", 100)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := newRunner(application, runPlan{
		settings:  editorSettings(),
		fileNames: []string{flat},
	})
	r.now = func() time.Time { return editorClock }
	r.start(ctx)

	lines, err := collect(t, r)
	require.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, lines, "*** Session cancelled ***")
}

func TestRunnerDialogText(t *testing.T) {
	r := newRunner(nil, runPlan{
		settings:        model.Settings{AutoDirectory: "/cal"},
		outputDirectory: "/missing/out",
	})

	cases := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "file not found carries the path",
			err:  &fs.PathError{Op: "open", Path: "/data/f1.fit", Err: fs.ErrNotExist},
			want: "*** ERROR *** File not found: File \"/data/f1.fit\" not found or not readable",
		},
		{
			name: "group directory uses the planned directory",
			err:  model.ErrNoGroupOutputDirectory,
			want: "*** ERROR *** Group Directory Missing: The specified output directory \"/missing/out\" does not exist and could not be created.",
		},
		{
			name: "auto directory uses the configured directory",
			err:  model.ErrNoAutoCalibrationDirectory,
			want: "*** ERROR *** Auto Calibration Directory Missing: The specified directory for auto-calibration files, \"/cal\", does not exist or could not be read.",
		},
		{
			name: "incompatible sizes",
			err:  model.ErrIncompatibleSizes,
			want: "*** ERROR *** The selected files can't be combined: To be combined into a master file, the files must have identical X and Y dimensions, and identical Binning values.",
		},
		{
			name: "unclassified errors pass through",
			err:  errors.New("surprise"),
			want: "*** ERROR *** Error: surprise",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			returned := r.report(tc.err)
			assert.Equal(t, tc.err, returned)
			assert.Equal(t, tc.want, <-r.lines)
		})
	}

	t.Run("cancellation is not an error dialog", func(t *testing.T) {
		r.report(context.Canceled)
		assert.Equal(t, "*** Session cancelled ***", <-r.lines)
	})
}

func TestChannelWriterDeliversTrimmedLines(t *testing.T) {
	lines := make(chan string, 1)
	w := channelWriter{lines}

	n, err := w.Write([]byte("a warning\n"))
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.Equal(t, "a warning", <-lines)
}
