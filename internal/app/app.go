package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/velyan/lanetrace/internal/store"
	"github.com/velyan/lanetrace/internal/video"
)

// Progress log cadence, in frames.
const logInterval = 100

// Config holds the collaborators an App needs.
type Config struct {
	Pipeline *Pipeline
	Source   video.Source
	Sink     video.Sink
	// Store is optional; a nil store disables telemetry.
	Store *store.Store
	// SourceName labels the run in the telemetry store.
	SourceName string
}

// App drives the pipeline over a whole video: it reads frames in order,
// processes each one, writes the annotated frame to the sink, and
// records per-frame telemetry.
type App struct {
	cfg Config
}

// New creates an App with the given configuration.
func New(cfg Config) *App {
	return &App{cfg: cfg}
}

// Run processes the source until it is exhausted or ctx is cancelled,
// returning the number of frames written. Cancellation is honored only
// between frames: each frame's state change commits atomically, so
// stopping mid-video always leaves the last completed frame
// authoritative.
func (a *App) Run(ctx context.Context) (int, error) {
	var runID string
	if a.cfg.Store != nil {
		var err error
		runID, err = a.cfg.Store.Runs().Create(a.cfg.SourceName)
		if err != nil {
			return 0, fmt.Errorf("create telemetry run: %w", err)
		}
	}

	frames := 0
	tracked := 0
	for {
		select {
		case <-ctx.Done():
			return frames, ctx.Err()
		default:
		}

		frame, err := a.cfg.Source.ReadFrame()
		if errors.Is(err, video.ErrEndOfStream) {
			break
		}
		if err != nil {
			return frames, fmt.Errorf("read frame %d: %w", frames, err)
		}

		report, err := a.cfg.Pipeline.ProcessFrame(frame)
		if err != nil {
			frame.Close()
			return frames, fmt.Errorf("process frame %d: %w", frames, err)
		}

		if err := a.cfg.Sink.WriteFrame(frame); err != nil {
			frame.Close()
			return frames, fmt.Errorf("write frame %d: %w", frames, err)
		}
		frame.Close()

		if a.cfg.Store != nil {
			record := store.Frame{
				RunID:          runID,
				Index:          frames,
				Detected:       report.Detected,
				Tracked:        report.Tracked,
				LaneWidth:      report.LaneWidth,
				Offset:         report.Offset,
				LeftCurvature:  report.LeftCurvature,
				RightCurvature: report.RightCurvature,
			}
			if err := a.cfg.Store.Frames().Append(record); err != nil {
				return frames, fmt.Errorf("record frame %d: %w", frames, err)
			}
		}

		frames++
		if report.Tracked {
			tracked++
		}
		if frames%logInterval == 0 {
			zap.S().Infof("processed %d frames (%d tracked)", frames, tracked)
		}
	}

	if a.cfg.Store != nil {
		if err := a.cfg.Store.Runs().Finish(runID, frames); err != nil {
			return frames, fmt.Errorf("finish telemetry run: %w", err)
		}
	}

	zap.S().Infof("done: %d frames, %d tracked, %d estimated", frames, tracked, frames-tracked)
	return frames, nil
}
