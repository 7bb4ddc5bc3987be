package tui

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/earwighaven/masterflatmaker/fits"
	"github.com/earwighaven/masterflatmaker/internal/app"
	"github.com/earwighaven/masterflatmaker/internal/combine"
	"github.com/earwighaven/masterflatmaker/internal/console"
	"github.com/earwighaven/masterflatmaker/internal/model"
)

// transcriptMsg carries one finished line for the session transcript view.
type transcriptMsg string

// sessionDoneMsg reports that the combination goroutine has finished.
type sessionDoneMsg struct {
	err error
}

// runPlan is everything a combination session needs, captured from the
// editor at the moment the run starts.
type runPlan struct {
	settings        model.Settings
	fileNames       []string
	outputPath      string
	outputDirectory string
}

// runner executes one combination session on its own goroutine, feeding
// transcript lines back to the program through a channel. Errors become
// transcript dialogs, phrased like the session editor's popups.
type runner struct {
	application *app.Application
	now         func() time.Time
	plan        runPlan

	lines  chan string
	done   chan error
	cancel context.CancelFunc
}

func newRunner(application *app.Application, plan runPlan) *runner {
	return &runner{
		application: application,
		now:         time.Now,
		plan:        plan,
		lines:       make(chan string, 64),
		done:        make(chan error, 1),
	}
}

// start launches the combination goroutine. The transcript channel closes
// once the final line, dialogs included, has been delivered.
func (r *runner) start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	go func() {
		defer close(r.lines)
		r.done <- r.run(ctx)
	}()
}

// stop asks a running session to wind down at its next cancellation point.
func (r *runner) stop() {
	if r.cancel != nil {
		r.cancel()
	}
}

// wait returns a command delivering the next transcript line, or the
// session result once the transcript is drained.
func (r *runner) wait() tea.Cmd {
	return func() tea.Msg {
		line, ok := <-r.lines
		if !ok {
			return sessionDoneMsg{err: <-r.done}
		}
		return transcriptMsg(line)
	}
}

func (r *runner) run(ctx context.Context) error {
	cons := console.New(console.ChannelSink(r.lines))
	cons.Now = r.now
	cons.Message("Starting session", 0)

	descriptors, err := r.application.Reader.Describe(ctx, r.plan.fileNames)
	if err != nil {
		return r.report(err)
	}
	if !r.plan.settings.IgnoreFileType && !fits.AllOfType(descriptors, fits.Flat) {
		return r.report(model.ErrNotAllFlatFrames)
	}

	combiner := combine.New(r.plan.settings, r.application.Reader, cons)
	combiner.Now = r.now
	combiner.Conflicts = channelWriter{r.lines}
	combiner.FileMoved = func(path string) {
		slog.Debug("Moved input file", "path", path)
	}

	if r.plan.settings.Grouped() {
		if r.plan.outputDirectory == "" {
			r.plan.outputDirectory = combine.GroupOutputDirectory(descriptors[0],
				r.plan.settings.CombineMethod, r.now())
		}
		err = combiner.ProcessGroups(ctx, descriptors, r.plan.outputDirectory)
	} else {
		if r.plan.outputPath == "" {
			r.plan.outputPath = combine.DefaultOutputPath(descriptors[0], r.plan.settings.CombineMethod,
				r.plan.settings.SigmaThreshold, r.plan.settings.MinMaxClipped, r.now())
		}
		err = combiner.ProcessSingle(ctx, descriptors, r.plan.outputPath)
	}
	if err != nil {
		return r.report(err)
	}
	return nil
}

// report appends the transcript dialog for a session error and passes the
// error on unchanged.
func (r *runner) report(err error) error {
	var pathErr *fs.PathError
	path := ""
	if errors.As(err, &pathErr) {
		path = pathErr.Path
	}

	switch {
	case errors.Is(err, fs.ErrNotExist):
		r.dialog("File not found",
			fmt.Sprintf("File \"%s\" not found or not readable", path))
	case errors.Is(err, model.ErrNoGroupOutputDirectory):
		r.dialog("Group Directory Missing",
			fmt.Sprintf("The specified output directory \"%s\" does not exist and could not be created.", r.plan.outputDirectory))
	case errors.Is(err, model.ErrNotAllFlatFrames):
		r.dialog("The selected files are not all Flat Frames",
			"If you know the files are flat frames, they may not have proper FITS data "+
				"internally. Check the \"Ignore FITS file type\" box to proceed anyway.")
	case errors.Is(err, model.ErrIncompatibleSizes):
		r.dialog("The selected files can't be combined",
			"To be combined into a master file, the files must have identical X and Y "+
				"dimensions, and identical Binning values.")
	case errors.Is(err, model.ErrNoAutoCalibrationDirectory):
		r.dialog("Auto Calibration Directory Missing",
			fmt.Sprintf("The specified directory for auto-calibration files, \"%s\", does not exist or could not be read.",
				r.plan.settings.AutoDirectory))
	case errors.Is(err, model.ErrAutoCalibrationDirectoryEmpty):
		r.dialog("Auto Calibration Directory Empty",
			fmt.Sprintf("The specified directory for auto-calibration files, \"%s\", does not contain any calibration files (or cannot be read).",
				r.plan.settings.AutoDirectory))
	case errors.Is(err, model.ErrNoSuitableAutoBias):
		r.dialog("No matching calibration file",
			"No bias or dark file of appropriate size could be found in the provided "+
				"calibration file directory.")
	case errors.Is(err, fs.ErrPermission):
		r.dialog("Unable to write file",
			fmt.Sprintf("The specified output file, \"%s\", cannot be written or replaced: \"permission error\"", path))
	case errors.Is(err, model.ErrAutoCalibrationNoBiasFiles):
		r.dialog("No Bias Files",
			"The auto-directory does not contain any Bias files")
	case errors.Is(err, context.Canceled):
		r.lines <- "*** Session cancelled ***"
	default:
		r.dialog("Error", err.Error())
	}
	return err
}

// dialog appends an error as a single transcript line.
func (r *runner) dialog(short, long string) {
	r.lines <- "*** ERROR *** " + short + ": " + long
}

// channelWriter adapts the transcript channel to the io.Writer the combiner
// wants for rename conflict warnings.
type channelWriter struct {
	lines chan string
}

func (w channelWriter) Write(p []byte) (int, error) {
	w.lines <- strings.TrimRight(string(p), "\n")
	return len(p), nil
}
