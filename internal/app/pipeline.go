// Package app wires the lane-finding stages into a per-frame pipeline
// and drives it over a whole video.
package app

import (
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/velyan/lanetrace/internal/binarize"
	"github.com/velyan/lanetrace/internal/calib"
	"github.com/velyan/lanetrace/internal/lane"
	"github.com/velyan/lanetrace/internal/overlay"
	"github.com/velyan/lanetrace/internal/warp"
)

// PipelineConfig assembles the pipeline stages. Undistorter may be nil
// when no calibration is configured, in which case the undistortion
// step is skipped.
type PipelineConfig struct {
	Undistorter *calib.Undistorter
	Perspective *warp.Transform
	Binarizer   *binarize.Binarizer
	Searcher    *lane.Searcher
	Model       *lane.Model
	Renderer    *overlay.Renderer
}

// FrameReport summarizes what happened to one frame. Detected is false
// when either side yielded no usable pixels; Tracked is false when the
// frame's candidate was rejected by the acceptance policy (or there was
// no candidate) and the drawn geometry is estimated from retained state.
type FrameReport struct {
	Detected       bool
	Tracked        bool
	LaneWidth      float64
	Offset         float64
	LeftCurvature  float64
	RightCurvature float64
}

// Pipeline processes frames one at a time, strictly in order. It owns
// the lane model state and the previous frame's search priors; it has a
// single caller and is not safe for concurrent use.
type Pipeline struct {
	undistorter *calib.Undistorter
	perspective *warp.Transform
	binarizer   *binarize.Binarizer
	searcher    *lane.Searcher
	model       *lane.Model
	renderer    *overlay.Renderer

	priors *lane.Priors

	// Last detected measurements, kept so HUD values persist through
	// estimated frames.
	lastWidth  float64
	lastOffset float64
}

// NewPipeline creates a Pipeline from assembled stages.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	return &Pipeline{
		undistorter: cfg.Undistorter,
		perspective: cfg.Perspective,
		binarizer:   cfg.Binarizer,
		searcher:    cfg.Searcher,
		model:       cfg.Model,
		renderer:    cfg.Renderer,
	}
}

// ProcessFrame runs the full per-frame flow and annotates the frame in
// place:
// 1. Undistort the raw frame.
// 2. Warp to bird's-eye view.
// 3. Extract the binary candidate-lane mask.
// 4. Sliding window pixel search, guided by the previous frame's fits.
// 5. Fit, measure curvature/offset, and update the lane model.
// 6. Draw the lane polygon and HUD from the smoothed state.
//
// Per-frame detection failures (an empty side, a degenerate fit) fall
// back to the model's retained state and are not errors.
func (p *Pipeline) ProcessFrame(frame *gocv.Mat) (FrameReport, error) {
	var report FrameReport

	// Step 1: undistort.
	working := gocv.NewMat()
	defer working.Close()
	if p.undistorter != nil {
		p.undistorter.Undistort(*frame, &working)
	} else {
		frame.CopyTo(&working)
	}

	// Step 2: warp to bird's-eye view.
	warped := gocv.NewMat()
	defer warped.Close()
	p.perspective.Warp(working, &warped)

	// Step 3: binary lane-pixel extraction.
	masks, err := p.binarizer.Combined(warped)
	if err != nil {
		return report, err
	}

	// Step 4: windowed pixel search with temporal priors.
	left, right := p.searcher.Search(masks.Final, p.priors)

	// Step 5: measure and update the model. The candidate is committed
	// or rejected atomically inside Update.
	if !left.Empty() && !right.Empty() {
		candidate, priors, err := p.measure(left, right)
		if err != nil {
			zap.S().Debugf("frame not fittable: %v", err)
			p.priors = nil
		} else {
			res := p.model.Update(candidate)
			report = FrameReport{
				Detected:       true,
				Tracked:        res.Tracked,
				LaneWidth:      res.LaneWidth,
				Offset:         res.Offset,
				LeftCurvature:  res.State.LeftCurvature,
				RightCurvature: res.State.RightCurvature,
			}
			p.lastWidth = res.LaneWidth
			p.lastOffset = res.Offset
			p.priors = &priors
		}
	} else {
		// An empty side is a valid outcome; reseed from the histogram
		// next frame.
		p.priors = nil
	}

	// Step 6: render from the smoothed state. Before the first accepted
	// fit there is nothing to draw.
	if state, ok := p.model.Current(); ok {
		p.renderer.DrawLane(frame, state.LeftFit, state.RightFit, report.Tracked)
		p.renderer.DrawHUD(frame, p.lastOffset, state.LeftCurvature, state.RightCurvature, p.lastWidth)
		if !report.Detected {
			report.LeftCurvature = state.LeftCurvature
			report.RightCurvature = state.RightCurvature
		}
	}

	return report, nil
}

// measure turns one frame's pixel sets into a model candidate plus the
// next frame's search priors. The curvature fit (meter space) and the
// drawing fit (original-frame space) are computed independently.
func (p *Pipeline) measure(left, right lane.PixelSet) (lane.Candidate, lane.Priors, error) {
	radiusLeft, radiusRight, xLeft, xRight, err := p.model.Curvature(left, right)
	if err != nil {
		return lane.Candidate{}, lane.Priors{}, err
	}

	// Bird's-eye pixel fits guide next frame's search.
	leftWarped, err := lane.Fit(left)
	if err != nil {
		return lane.Candidate{}, lane.Priors{}, err
	}
	rightWarped, err := lane.Fit(right)
	if err != nil {
		return lane.Candidate{}, lane.Priors{}, err
	}

	// Original-frame fits drive the overlay.
	leftX, leftY := p.perspective.UnwarpPoints(left.X, left.Y)
	leftRoad, err := lane.Fit(lane.PixelSet{X: leftX, Y: leftY})
	if err != nil {
		return lane.Candidate{}, lane.Priors{}, err
	}
	rightX, rightY := p.perspective.UnwarpPoints(right.X, right.Y)
	rightRoad, err := lane.Fit(lane.PixelSet{X: rightX, Y: rightY})
	if err != nil {
		return lane.Candidate{}, lane.Priors{}, err
	}

	candidate := lane.Candidate{
		LeftFit:        leftRoad,
		RightFit:       rightRoad,
		LeftCurvature:  radiusLeft,
		RightCurvature: radiusRight,
		XLeft:          xLeft,
		XRight:         xRight,
	}
	return candidate, lane.Priors{Left: leftWarped, Right: rightWarped}, nil
}
