package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alexflint/go-arg"
	"go.uber.org/zap"

	"github.com/velyan/lanetrace/internal/app"
	"github.com/velyan/lanetrace/internal/binarize"
	"github.com/velyan/lanetrace/internal/calib"
	"github.com/velyan/lanetrace/internal/config"
	"github.com/velyan/lanetrace/internal/lane"
	"github.com/velyan/lanetrace/internal/logging"
	"github.com/velyan/lanetrace/internal/overlay"
	"github.com/velyan/lanetrace/internal/store"
	"github.com/velyan/lanetrace/internal/video"
	"github.com/velyan/lanetrace/internal/warp"
)

var version = "<not set>"

type Args struct {
	Input      string `arg:"positional,required" help:"input video file"`
	Output     string `arg:"-o,--output" help:"annotated output video (default: <input>.out.mp4)"`
	ConfigFile string `arg:"-c,--config" help:"path to configuration file"`
	Verbose    bool   `arg:"-v,--verbose" help:"make logging more verbose"`
}

func (Args) Version() string {
	return version
}

func procArgs() Args {
	var args Args
	arg.MustParse(&args)
	if args.Output == "" {
		args.Output = strings.TrimSuffix(args.Input, filepath.Ext(args.Input)) + ".out.mp4"
	}
	return args
}

func main() {
	args := procArgs()

	if err := logging.Init(args.Verbose); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer zap.S().Sync()

	if err := runMain(args); err != nil {
		zap.S().Fatalf("lanetrace failed: %v", err)
	}
}

func runMain(args Args) error {
	zap.S().Infof("running version: %s", version)

	cfg, err := config.Load(args.ConfigFile)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	// One-time camera calibration from the checkerboard images. Skipped
	// when no pattern is configured.
	var undistorter *calib.Undistorter
	if cfg.Calibration.Pattern != "" {
		undistorter, err = calib.Calibrate(cfg.Calibration)
		if err != nil {
			return fmt.Errorf("camera calibration: %w", err)
		}
		defer undistorter.Close()
	} else {
		zap.S().Warn("no calibration pattern configured, frames will not be undistorted")
	}

	perspective, err := warp.New(cfg.Perspective)
	if err != nil {
		return fmt.Errorf("perspective transform: %w", err)
	}
	defer perspective.Close()

	source, err := video.OpenFile(args.Input)
	if err != nil {
		return fmt.Errorf("open %s: %w", args.Input, err)
	}
	defer source.Close()

	width, height := source.Size()
	zap.S().Infof("processing %s (%dx%d @ %.1f fps) -> %s",
		args.Input, width, height, source.FPS(), args.Output)

	sink, err := video.CreateFile(args.Output, source.FPS(), width, height)
	if err != nil {
		return fmt.Errorf("create %s: %w", args.Output, err)
	}
	defer sink.Close()

	var st *store.Store
	if cfg.Telemetry.Path != "" {
		st, err = store.New(cfg.Telemetry.Path)
		if err != nil {
			return fmt.Errorf("open telemetry store: %w", err)
		}
		defer st.Close()
	}

	pipeline := app.NewPipeline(app.PipelineConfig{
		Undistorter: undistorter,
		Perspective: perspective,
		Binarizer:   binarize.New(cfg.Binarize),
		Searcher:    lane.NewSearcher(cfg.Search),
		Model:       lane.NewModel(cfg.Model),
		Renderer:    overlay.NewRenderer(cfg.Overlay),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := app.New(app.Config{
		Pipeline:   pipeline,
		Source:     source,
		Sink:       sink,
		Store:      st,
		SourceName: args.Input,
	})

	frames, err := a.Run(ctx)
	if err != nil {
		return fmt.Errorf("after %d frames: %w", frames, err)
	}
	return nil
}
