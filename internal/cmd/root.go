package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/earwighaven/masterflatmaker/internal/app"
	"github.com/earwighaven/masterflatmaker/internal/config"
	"github.com/earwighaven/masterflatmaker/internal/log"
	"github.com/earwighaven/masterflatmaker/internal/tui"
	"github.com/urfave/cli/v2"
)

// configEnv can name an explicit configuration file, overriding the usual
// search locations.
const configEnv = "MASTERFLATMAKER_CONFIG"

// NewApp builds the command line application carrying the full option
// surface of the combiner. Option names follow the companion tool, so the
// short forms are multi-character and use a single dash.
func NewApp() *cli.App {
	return &cli.App{
		Name:            "masterflatmaker",
		Usage:           "combine flat-frame FITS files into a master flat",
		ArgsUsage:       "[FITS files...]",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "gui", Aliases: []string{"g"},
				Usage: "open the interactive session editor, ignoring other options"},
			&cli.BoolFlag{Name: "noprecal", Aliases: []string{"np"},
				Usage: "skip precalibration of the input files"},
			&cli.IntFlag{Name: "pedestal", Aliases: []string{"p"},
				Usage: "precalibrate by subtracting pedestal `value`"},
			&cli.StringFlag{Name: "bias", Aliases: []string{"b"},
				Usage: "precalibrate by subtracting bias `file`"},
			&cli.StringFlag{Name: "auto", Aliases: []string{"a"},
				Usage: "precalibrate with the best matching file from `directory`"},
			&cli.BoolFlag{Name: "autorecursive", Aliases: []string{"ar"},
				Usage: "search the auto-calibration directory recursively"},
			&cli.BoolFlag{Name: "autobias", Aliases: []string{"ab"},
				Usage: "restrict auto-calibration candidates to bias files"},
			&cli.BoolFlag{Name: "autoresults", Aliases: []string{"ax"},
				Usage: "display which calibration file was auto-selected"},
			&cli.BoolFlag{Name: "mean", Aliases: []string{"m"},
				Usage: "combine by simple mean"},
			&cli.BoolFlag{Name: "median", Aliases: []string{"n"},
				Usage: "combine by simple median"},
			&cli.IntFlag{Name: "minmax", Aliases: []string{"mm"},
				Usage: "clip `n` extremes from each end, then mean"},
			&cli.Float64Flag{Name: "sigma", Aliases: []string{"s"},
				Usage: "drop values with z-score above `threshold`, then mean"},
			&cli.StringFlag{Name: "moveinputs", Aliases: []string{"v"},
				Usage: "move inputs to `folder` after successful processing"},
			&cli.BoolFlag{Name: "ignoretype", Aliases: []string{"t"},
				Usage: "ignore the frame type recorded in the files"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"},
				Usage: "output `path` (single combine only)"},
			&cli.BoolFlag{Name: "groupsize", Aliases: []string{"gs"},
				Usage: "group files by dimensions and binning"},
			&cli.BoolFlag{Name: "groupfilter", Aliases: []string{"gf"},
				Usage: "group files by filter name"},
			&cli.Float64Flag{Name: "grouptemperature", Aliases: []string{"gt"},
				Usage: "group files by temperature with `bandwidth` degrees"},
			&cli.IntFlag{Name: "minimumgroup", Aliases: []string{"mg"},
				Usage: "ignore groups smaller than `n` files"},
			&cli.StringFlag{Name: "outputdirectory", Aliases: []string{"od"},
				Usage: "`directory` receiving grouped outputs"},
		},
		Action: run,
	}
}

// ExecuteContext runs the command line application with context
func ExecuteContext(ctx context.Context) error {
	return NewApp().RunContext(ctx, os.Args)
}

func run(c *cli.Context) error {
	cfg, err := config.Load(os.Getenv(configEnv))
	if err != nil {
		return cli.Exit(fmt.Sprintf("configuration: %v", err), 1)
	}

	// Diagnostics go to standard error; standard output belongs to the
	// combination transcript.
	handler := log.NewHandler(os.Stderr, cfg.SlogLevel())
	slog.SetDefault(slog.New(handler))

	application := app.New(c.Context, cfg)
	defer application.Shutdown()

	// Invoked with no arguments at all, the interactive session editor
	// opens, the same as asking for it with -g.
	if c.Bool("gui") || (c.NArg() == 0 && c.NumFlags() == 0) {
		if err := tui.Run(c.Context, application); err != nil {
			return cli.Exit(fmt.Sprintf("session editor: %v", err), 1)
		}
		return nil
	}

	session := newSession(application, os.Stdout)
	return session.execute(c.Context, optionsFromContext(c))
}
