package video

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Sink accepts frames in order and encodes them to an output container.
type Sink interface {
	WriteFrame(frame *gocv.Mat) error
	Close() error
}

// fileSink encodes frames to a video container file. No audio track is
// written.
type fileSink struct {
	writer *gocv.VideoWriter
	mu     sync.Mutex
	open   bool
}

// CreateFile creates an output container with the given frame rate and
// dimensions, using the mp4v codec.
func CreateFile(path string, fps float64, width, height int) (Sink, error) {
	writer, err := gocv.VideoWriterFile(path, "mp4v", fps, width, height, true)
	if err != nil {
		return nil, fmt.Errorf("video: create %s: %w", path, err)
	}
	if !writer.IsOpened() {
		writer.Close()
		return nil, fmt.Errorf("video: create %s: writer failed to open", path)
	}
	return &fileSink{writer: writer, open: true}, nil
}

// WriteFrame appends one frame to the output.
func (s *fileSink) WriteFrame(frame *gocv.Mat) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return errors.New("video: sink is closed")
	}
	return s.writer.Write(*frame)
}

func (s *fileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return nil
	}
	s.open = false
	return s.writer.Close()
}
