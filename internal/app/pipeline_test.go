package app

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"gocv.io/x/gocv"

	"github.com/velyan/lanetrace/internal/binarize"
	"github.com/velyan/lanetrace/internal/lane"
	"github.com/velyan/lanetrace/internal/overlay"
	"github.com/velyan/lanetrace/internal/store"
	"github.com/velyan/lanetrace/internal/video"
	"github.com/velyan/lanetrace/internal/warp"
)

// identityWarp maps the frame onto itself so synthetic bands stay where
// they were drawn.
func identityWarp(t *testing.T) *warp.Transform {
	t.Helper()
	quad := []warp.Point{{200, 720}, {200, 0}, {980, 0}, {980, 720}}
	tr, err := warp.New(warp.Config{Src: quad, Dst: quad})
	if err != nil {
		t.Fatalf("identity transform failed: %v", err)
	}
	t.Cleanup(func() { tr.Close() })
	return tr
}

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	return NewPipeline(PipelineConfig{
		Perspective: identityWarp(t),
		Binarizer:   binarize.New(binarize.DefaultThresholds()),
		Searcher:    lane.NewSearcher(lane.DefaultSearchConfig()),
		Model:       lane.NewModel(lane.DefaultModelConfig()),
		Renderer:    overlay.NewRenderer(overlay.DefaultConfig()),
	})
}

// laneFrame draws saturated yellow lane bands centered on the given x
// positions; the color detector picks them up as solid candidates.
func laneFrame(t *testing.T, centers ...int) *gocv.Mat {
	t.Helper()
	frame := gocv.NewMatWithSize(720, 1280, gocv.MatTypeCV8UC3)
	for _, c := range centers {
		gocv.Rectangle(&frame, image.Rect(c-5, 0, c+6, 720), color.RGBA{R: 255, G: 255}, -1)
	}
	t.Cleanup(func() { frame.Close() })
	return &frame
}

func TestPipeline_TracksPlausibleLane(t *testing.T) {
	p := newTestPipeline(t)

	// Bands 800px apart measure ~3.8 m, inside the acceptance band
	for i := 0; i < 3; i++ {
		frame := laneFrame(t, 250, 1050)
		report, err := p.ProcessFrame(frame)
		if err != nil {
			t.Fatalf("frame %d failed: %v", i, err)
		}
		if !report.Detected {
			t.Fatalf("frame %d: expected detection", i)
		}
		if !report.Tracked {
			t.Errorf("frame %d: expected tracked", i)
		}
		if report.LaneWidth < 3.6 || report.LaneWidth > 4.0 {
			t.Errorf("frame %d: lane width %f outside the plausible band", i, report.LaneWidth)
		}
	}

	if !p.model.Tracking() {
		t.Error("model should be tracking after accepted frames")
	}
}

func TestPipeline_RejectsWidthOutlier(t *testing.T) {
	p := newTestPipeline(t)

	if _, err := p.ProcessFrame(laneFrame(t, 250, 1050)); err != nil {
		t.Fatalf("first frame failed: %v", err)
	}
	before, _ := p.model.Current()

	// Bands 880px apart measure ~4.2 m; the candidate is detected but
	// must be rejected and the state retained unchanged
	report, err := p.ProcessFrame(laneFrame(t, 210, 1090))
	if err != nil {
		t.Fatalf("outlier frame failed: %v", err)
	}

	if !report.Detected {
		t.Fatal("expected the outlier to be detected")
	}
	if report.Tracked {
		t.Error("expected the outlier to be rejected")
	}
	after, _ := p.model.Current()
	if after != before {
		t.Error("rejected frame must leave the model state untouched")
	}
}

func TestPipeline_EmptyFrameBeforeFirstFit(t *testing.T) {
	p := newTestPipeline(t)

	frame := gocv.NewMatWithSize(720, 1280, gocv.MatTypeCV8UC3)
	defer frame.Close()

	report, err := p.ProcessFrame(&frame)
	if err != nil {
		t.Fatalf("empty frame failed: %v", err)
	}

	if report.Detected || report.Tracked {
		t.Error("an empty frame must not report a detection")
	}
	if p.model.Tracking() {
		t.Error("model must stay untracked with nothing to fit")
	}
	// With no state there is nothing to draw: the frame stays black
	if v := frame.GetVecbAt(700, 640); v[0] != 0 || v[1] != 0 || v[2] != 0 {
		t.Error("expected no overlay before the first accepted fit")
	}
}

func TestPipeline_EmptyFrameFallsBackToRetainedState(t *testing.T) {
	p := newTestPipeline(t)

	if _, err := p.ProcessFrame(laneFrame(t, 250, 1050)); err != nil {
		t.Fatalf("first frame failed: %v", err)
	}
	before, _ := p.model.Current()

	frame := gocv.NewMatWithSize(720, 1280, gocv.MatTypeCV8UC3)
	defer frame.Close()
	report, err := p.ProcessFrame(&frame)
	if err != nil {
		t.Fatalf("empty frame failed: %v", err)
	}

	if report.Detected {
		t.Error("an empty frame must not report a detection")
	}
	after, _ := p.model.Current()
	if after != before {
		t.Error("an empty frame must leave the retained state untouched")
	}
	// The retained geometry is still drawn, marked as estimated (red)
	if v := frame.GetVecbAt(700, 650); v[2] == 0 {
		t.Error("expected an estimated (red) overlay on the fallback frame")
	}
}

func TestApp_RunProcessesAllFramesAndRecordsTelemetry(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "lanetrace-app-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	st, err := store.New(filepath.Join(tmpDir, "telemetry.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer st.Close()

	frames := make([]*gocv.Mat, 3)
	for i := range frames {
		m := gocv.NewMatWithSize(720, 1280, gocv.MatTypeCV8UC3)
		frames[i] = &m
	}
	defer func() {
		for _, f := range frames {
			f.Close()
		}
	}()

	sink := video.NewMockSink()
	a := New(Config{
		Pipeline:   newTestPipeline(t),
		Source:     video.NewMockSource(frames, 25),
		Sink:       sink,
		Store:      st,
		SourceName: "synthetic.mp4",
	})

	n, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 processed frames, got %d", n)
	}
	if sink.Frames() != 3 {
		t.Errorf("expected 3 written frames, got %d", sink.Frames())
	}

	// Telemetry: one completed run with three frame rows
	var runID string
	if err := st.DB().QueryRow(`SELECT id FROM runs WHERE source = ?`, "synthetic.mp4").Scan(&runID); err != nil {
		t.Fatalf("run row missing: %v", err)
	}
	run, err := st.Runs().Get(runID)
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}
	if !run.CompletedAt.Valid || run.Frames != 3 {
		t.Errorf("expected a completed 3-frame run, got %+v", run)
	}
	recorded, err := st.Frames().GetByRunID(runID)
	if err != nil {
		t.Fatalf("failed to get frames: %v", err)
	}
	if len(recorded) != 3 {
		t.Errorf("expected 3 frame rows, got %d", len(recorded))
	}
}

func TestApp_RunHonorsCancellationBetweenFrames(t *testing.T) {
	frames := make([]*gocv.Mat, 2)
	for i := range frames {
		m := gocv.NewMatWithSize(720, 1280, gocv.MatTypeCV8UC3)
		frames[i] = &m
	}
	defer func() {
		for _, f := range frames {
			f.Close()
		}
	}()

	a := New(Config{
		Pipeline: newTestPipeline(t),
		Source:   video.NewMockSource(frames, 25),
		Sink:     video.NewMockSink(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := a.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if n != 0 {
		t.Errorf("expected no frames processed after cancellation, got %d", n)
	}
}
