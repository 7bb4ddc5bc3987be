package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/earwighaven/masterflatmaker/fits"
	"github.com/earwighaven/masterflatmaker/internal/app"
	"github.com/earwighaven/masterflatmaker/internal/combine"
	"github.com/earwighaven/masterflatmaker/internal/console"
	"github.com/earwighaven/masterflatmaker/internal/model"
	"github.com/urfave/cli/v2"
)

// options is the parsed command line, separated from flag plumbing so the
// validation logic can be exercised directly. The Set fields distinguish an
// option that was given from one left at its zero value.
type options struct {
	noPrecal      bool
	pedestalSet   bool
	pedestal      int
	biasSet       bool
	bias          string
	autoSet       bool
	autoDirectory string
	autoRecursive bool
	autoBiasOnly  bool
	autoResults   bool

	mean      bool
	median    bool
	minMaxSet bool
	minMax    int
	sigmaSet  bool
	sigma     float64

	ignoreType bool
	moveSet    bool
	moveFolder string
	outputSet  bool
	output     string

	groupSize        bool
	groupFilter      bool
	groupTempSet     bool
	groupTemperature float64
	minGroupSet      bool
	minGroup         int
	outputDirSet     bool
	outputDirectory  string

	fileNames []string
}

func optionsFromContext(c *cli.Context) options {
	return options{
		noPrecal:      c.Bool("noprecal"),
		pedestalSet:   c.IsSet("pedestal"),
		pedestal:      c.Int("pedestal"),
		biasSet:       c.IsSet("bias"),
		bias:          c.String("bias"),
		autoSet:       c.IsSet("auto"),
		autoDirectory: c.String("auto"),
		autoRecursive: c.Bool("autorecursive"),
		autoBiasOnly:  c.Bool("autobias"),
		autoResults:   c.Bool("autoresults"),

		mean:      c.Bool("mean"),
		median:    c.Bool("median"),
		minMaxSet: c.IsSet("minmax"),
		minMax:    c.Int("minmax"),
		sigmaSet:  c.IsSet("sigma"),
		sigma:     c.Float64("sigma"),

		ignoreType: c.Bool("ignoretype"),
		moveSet:    c.IsSet("moveinputs"),
		moveFolder: c.String("moveinputs"),
		outputSet:  c.IsSet("output"),
		output:     c.String("output"),

		groupSize:        c.Bool("groupsize"),
		groupFilter:      c.Bool("groupfilter"),
		groupTempSet:     c.IsSet("grouptemperature"),
		groupTemperature: c.Float64("grouptemperature"),
		minGroupSet:      c.IsSet("minimumgroup"),
		minGroup:         c.Int("minimumgroup"),
		outputDirSet:     c.IsSet("outputdirectory"),
		outputDirectory:  c.String("outputdirectory"),

		fileNames: c.Args().Slice(),
	}
}

// session is one command line combination run. Settings begin at the
// configured defaults and are adjusted by the validated options.
type session struct {
	application *app.Application
	out         io.Writer
	now         func() time.Time

	settings        model.Settings
	outputDirectory string
}

func newSession(application *app.Application, out io.Writer) *session {
	return &session{
		application: application,
		out:         out,
		now:         time.Now,
		settings:    application.Config.Settings(),
	}
}

// execute validates the options, runs the combination, and reports the
// outcome. The returned error carries the exit code only; every message
// has already been printed.
func (s *session) execute(ctx context.Context, opts options) error {
	valid, outputPath, fileNames := s.applyOptions(opts)
	if !valid {
		return cli.Exit("", 1)
	}
	if !s.processFiles(ctx, fileNames, outputPath) {
		return cli.Exit("", 1)
	}
	fmt.Fprintln(s.out, "Successful completion")
	return nil
}

// applyOptions checks every option, echoes what it is setting, and folds
// accepted values into the session settings. All problems are reported,
// not just the first, so the user can fix the whole command line in one
// round.
func (s *session) applyOptions(opts options) (bool, string, []string) {
	valid := true
	var fileNames []string
	outputPath := ""

	if len(opts.fileNames) > 0 {
		for _, name := range opts.fileNames {
			if !isFile(name) {
				fmt.Fprintf(s.out, "File does not exist: %s\n", name)
				valid = false
			}
		}
		fileNames = opts.fileNames
	} else {
		fmt.Fprintln(s.out, "No file names given")
		valid = false
	}

	// Precalibration method and related info
	if opts.noPrecal {
		fmt.Fprintln(s.out, "   Setting no precalibration")
		s.settings.Calibration = model.CalibrationNone
	} else if opts.pedestalSet {
		s.settings.Calibration = model.CalibrationPedestal
		if opts.pedestal > 0 {
			fmt.Fprintf(s.out, "   Setting pedestal = %d\n", opts.pedestal)
			s.settings.Pedestal = opts.pedestal
		} else {
			fmt.Fprintf(s.out, "Pedestal value must be greater than zero, not %d\n", opts.pedestal)
			valid = false
		}
	} else if opts.biasSet {
		s.settings.Calibration = model.CalibrationFixedFile
		if isFile(opts.bias) {
			fmt.Fprintf(s.out, "   Setting fixed bias file = %s\n", opts.bias)
			s.settings.FixedPath = opts.bias
		} else {
			fmt.Fprintf(s.out, "Calibration bias file does not exist: %s\n", opts.bias)
			valid = false
		}
	} else if opts.autoSet {
		if isDir(opts.autoDirectory) {
			fmt.Fprintf(s.out, "   Setting automatic bias directory = %s\n", opts.autoDirectory)
			s.settings.Calibration = model.CalibrationAutoDirectory
			s.settings.AutoDirectory = opts.autoDirectory
		} else {
			fmt.Fprintln(s.out, "Automatic bias directory not found or not a directory: "+opts.autoDirectory)
			valid = false
		}
	}

	if opts.autoRecursive {
		fmt.Fprintln(s.out, "   Setting auto-directory recursive")
		s.settings.AutoRecursive = true
	}
	if opts.autoBiasOnly {
		fmt.Fprintln(s.out, "   Setting auto bias is bias files only")
		s.settings.AutoBiasOnly = true
	}
	if opts.autoResults {
		fmt.Fprintln(s.out, "   Setting display of auto-selection results")
		s.settings.DisplayAutoResults = true
	}

	// Master frame combination algorithm and parameters
	if opts.mean {
		fmt.Fprintln(s.out, "   Setting MEAN combination")
		s.settings.CombineMethod = model.CombineMean
	} else if opts.median {
		fmt.Fprintln(s.out, "   Setting MEDIAN combination")
		s.settings.CombineMethod = model.CombineMedian
	} else if opts.minMaxSet {
		s.settings.CombineMethod = model.CombineMinMax
		if opts.minMax >= 1 {
			fmt.Fprintf(s.out, "   Setting MIN-MAX combination, clipping %d extremes\n", opts.minMax)
			s.settings.MinMaxClipped = opts.minMax
		} else {
			fmt.Fprintf(s.out, "Min-Max clipping argument must be > 0, not %d\n", opts.minMax)
			valid = false
		}
	} else if opts.sigmaSet {
		s.settings.CombineMethod = model.CombineSigmaClip
		if opts.sigma > 0 {
			fmt.Fprintf(s.out, "   Setting SIGMA combination, z-threshold = %s\n", combine.FloatText(opts.sigma))
			s.settings.SigmaThreshold = opts.sigma
		} else {
			fmt.Fprintf(s.out, "Sigma clipping threshold must be > 0, not %s\n", combine.FloatText(opts.sigma))
			valid = false
		}
	}

	// Insist on same file type in all files?
	if opts.ignoreType {
		fmt.Fprintln(s.out, "   Ignoring file types")
		s.settings.IgnoreFileType = true
	}

	// What to do with input files after a successful run
	if opts.moveSet {
		s.settings.Disposition = model.DispositionSubFolder
		s.settings.SubfolderName = opts.moveFolder
		fmt.Fprintf(s.out, "   After processing move files to %s\n", opts.moveFolder)
	}

	if opts.outputSet {
		fmt.Fprintf(s.out, "   Output path: %s\n", opts.output)
		outputPath = opts.output
	}

	if opts.groupSize {
		fmt.Fprintln(s.out, "   Group files by size")
		s.settings.GroupBySize = true
	}
	if opts.groupFilter {
		fmt.Fprintln(s.out, "   Group files by filter name")
		s.settings.GroupByFilter = true
	}
	if opts.groupTempSet {
		s.settings.GroupByTemperature = true
		if opts.groupTemperature >= 0.1 && opts.groupTemperature <= 50 {
			fmt.Fprintf(s.out, "   Group files by temperature with bandwidth %s\n", combine.FloatText(opts.groupTemperature))
			s.settings.TemperatureBandwidth = opts.groupTemperature
		} else {
			fmt.Fprintln(s.out, "-gt bandwidth must be between 0.1 and 50")
			valid = false
		}
	}
	if opts.minGroupSet {
		s.settings.IgnoreSmallGroups = true
		if opts.minGroup > 0 {
			fmt.Fprintf(s.out, "   Ignore groups smaller than %d\n", opts.minGroup)
			s.settings.MinimumGroupSize = opts.minGroup
		} else {
			fmt.Fprintf(s.out, "   Minimum group size must be > 0, not %d\n", opts.minGroup)
			valid = false
		}
	}

	s.outputDirectory = opts.outputDirectory

	// Grouping can also arrive from configured defaults, so the check is
	// against the folded settings, not the options alone.
	if s.settings.Grouped() && !opts.outputDirSet {
		fmt.Fprintln(s.out, "If any of the group-by options are used, then the output directory option is mandatory")
		valid = false
	}

	return valid, outputPath, fileNames
}

// processFiles reads descriptions of the inputs, confirms they are flat
// frames, and runs the combination. Failures are reported as dialogs and
// turn into a false return.
func (s *session) processFiles(ctx context.Context, fileNames []string, outputPath string) bool {
	descriptors, err := s.application.Reader.Describe(ctx, fileNames)
	if err != nil {
		s.reportError(err)
		return false
	}
	if !s.settings.IgnoreFileType && !fits.AllOfType(descriptors, fits.Flat) {
		fmt.Fprintln(s.out, "Files are not all Flat files.  (Use -t option to suppress this check.)")
		return false
	}
	if outputPath == "" {
		outputPath = combine.DefaultOutputPath(descriptors[0], s.settings.CombineMethod,
			s.settings.SigmaThreshold, s.settings.MinMaxClipped, s.now())
	}
	return s.runCombination(ctx, descriptors, outputPath)
}

func (s *session) runCombination(ctx context.Context, descriptors []fits.FileDescriptor, outputPath string) bool {
	sink := console.PrintSink{W: s.out}
	cons := console.New(sink)
	cons.Now = s.now
	cons.Message("Starting session", 0)

	combiner := combine.New(s.settings, s.application.Reader, cons)
	combiner.Now = s.now
	combiner.Conflicts = s.out
	combiner.FileMoved = func(path string) {
		slog.Debug("Moved input file", "path", path)
	}

	var err error
	if s.settings.Grouped() {
		err = combiner.ProcessGroups(ctx, descriptors, s.outputDirectory)
	} else {
		err = combiner.ProcessSingle(ctx, descriptors, outputPath)
	}
	if err != nil {
		s.reportError(err)
		return false
	}
	return true
}

// reportError turns a processing error into the dialog text the session
// editor would show for the same condition.
func (s *session) reportError(err error) {
	var pathErr *fs.PathError
	path := ""
	if errors.As(err, &pathErr) {
		path = pathErr.Path
	}

	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.errorDialog("File not found",
			fmt.Sprintf("File \"%s\" not found or not readable", path))
	case errors.Is(err, model.ErrNoGroupOutputDirectory):
		s.errorDialog("Group Directory Missing",
			fmt.Sprintf("The specified output directory \"%s\" does not exist and could not be created.", s.outputDirectory))
	case errors.Is(err, model.ErrNotAllFlatFrames):
		s.errorDialog("The selected files are not all Flat Frames",
			"If you know the files are flat frames, they may not have proper FITS data "+
				"internally. Check the \"Ignore FITS file type\" box to proceed anyway.")
	case errors.Is(err, model.ErrIncompatibleSizes):
		s.errorDialog("The selected files can't be combined",
			"To be combined into a master file, the files must have identical X and Y "+
				"dimensions, and identical Binning values.")
	case errors.Is(err, model.ErrNoAutoCalibrationDirectory):
		s.errorDialog("Auto Calibration Directory Missing",
			fmt.Sprintf("The specified directory for auto-calibration files, \"%s\", does not exist or could not be read.",
				s.settings.AutoDirectory))
	case errors.Is(err, model.ErrAutoCalibrationDirectoryEmpty):
		s.errorDialog("Auto Calibration Directory Empty",
			fmt.Sprintf("The specified directory for auto-calibration files, \"%s\", does not contain any calibration files (or cannot be read).",
				s.settings.AutoDirectory))
	case errors.Is(err, model.ErrNoSuitableAutoBias):
		s.errorDialog("No matching calibration file",
			"No bias or dark file of appropriate size could be found in the provided "+
				"calibration file directory.")
	case errors.Is(err, fs.ErrPermission):
		s.errorDialog("Unable to write file",
			fmt.Sprintf("The specified output file, \"%s\", cannot be written or replaced: \"permission error\"", path))
	case errors.Is(err, model.ErrAutoCalibrationNoBiasFiles):
		s.errorDialog("No Bias Files",
			"The auto-directory does not contain any Bias files")
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(s.out, "*** Session cancelled ***")
	default:
		s.errorDialog("Error", err.Error())
	}
}

// errorDialog prints an error as a short headline with an indented
// explanation below it.
func (s *session) errorDialog(short, long string) {
	fmt.Fprintln(s.out, "*** ERROR *** "+short+":\n   "+long)
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
