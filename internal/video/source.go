// Package video provides the frame I/O seam around the processing core:
// a Source decodes an ordered, finite, non-restartable frame sequence
// and a Sink re-encodes frames in the order they are written.
package video

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// ErrEndOfStream is returned by ReadFrame once the source is exhausted.
var ErrEndOfStream = errors.New("video: end of stream")

// Source produces video frames in decode order. Sources are finite and
// cannot be rewound. The caller owns each returned Mat and must close it.
type Source interface {
	ReadFrame() (*gocv.Mat, error)
	FPS() float64
	Size() (width, height int)
	Close() error
}

// fileSource decodes frames from a video container file.
type fileSource struct {
	capture *gocv.VideoCapture
	fps     float64
	width   int
	height  int
	mu      sync.Mutex
	open    bool
}

// OpenFile opens a video container for sequential decoding.
func OpenFile(path string) (Source, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("video: open %s: %w", path, err)
	}

	return &fileSource{
		capture: capture,
		fps:     capture.Get(gocv.VideoCaptureFPS),
		width:   int(capture.Get(gocv.VideoCaptureFrameWidth)),
		height:  int(capture.Get(gocv.VideoCaptureFrameHeight)),
		open:    true,
	}, nil
}

// ReadFrame decodes the next frame. The caller is responsible for
// closing the returned Mat.
func (s *fileSource) ReadFrame() (*gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return nil, errors.New("video: source is closed")
	}

	mat := gocv.NewMat()
	if ok := s.capture.Read(&mat); !ok {
		mat.Close()
		return nil, ErrEndOfStream
	}
	if mat.Empty() {
		mat.Close()
		return nil, ErrEndOfStream
	}
	return &mat, nil
}

func (s *fileSource) FPS() float64 {
	return s.fps
}

func (s *fileSource) Size() (width, height int) {
	return s.width, s.height
}

func (s *fileSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return nil
	}
	s.open = false
	return s.capture.Close()
}
