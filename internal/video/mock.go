package video

import (
	"errors"
	"sync"

	"gocv.io/x/gocv"
)

// MockSource plays back pre-built frames for testing. Like a real
// source it is finite and non-restartable.
type MockSource struct {
	frames []*gocv.Mat
	fps    float64
	index  int
	mu     sync.Mutex
}

// NewMockSource creates a source that yields clones of the given frames
// in order.
func NewMockSource(frames []*gocv.Mat, fps float64) *MockSource {
	return &MockSource{frames: frames, fps: fps}
}

// ReadFrame returns a clone of the next frame, so callers may mutate or
// close it without touching the originals.
func (s *MockSource) ReadFrame() (*gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.frames) == 0 {
		return nil, errors.New("video: mock source has no frames")
	}
	if s.index >= len(s.frames) {
		return nil, ErrEndOfStream
	}

	frame := s.frames[s.index].Clone()
	s.index++
	return &frame, nil
}

func (s *MockSource) FPS() float64 {
	return s.fps
}

func (s *MockSource) Size() (width, height int) {
	if len(s.frames) == 0 {
		return 0, 0
	}
	return s.frames[0].Cols(), s.frames[0].Rows()
}

func (s *MockSource) Close() error {
	return nil
}

// MockSink collects written frame counts without encoding anything.
type MockSink struct {
	mu     sync.Mutex
	frames int
	closed bool
}

// NewMockSink creates an empty sink.
func NewMockSink() *MockSink {
	return &MockSink{}
}

func (s *MockSink) WriteFrame(frame *gocv.Mat) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New("video: sink is closed")
	}
	if frame == nil || frame.Empty() {
		return errors.New("video: refusing to write an empty frame")
	}
	s.frames++
	return nil
}

// Frames returns how many frames were written so far.
func (s *MockSink) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

func (s *MockSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
