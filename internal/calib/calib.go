// Package calib calibrates the camera from checkerboard images and
// undistorts frames with the recovered parameters.
package calib

import (
	"fmt"
	"image"
	"path/filepath"

	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// Config describes where the checkerboard images live and the inner
// corner grid they contain.
type Config struct {
	// Pattern is a filename glob matching the calibration images. An
	// empty pattern disables undistortion.
	Pattern string `yaml:"pattern"`
	Cols    int    `yaml:"cols"`
	Rows    int    `yaml:"rows"`
}

// DefaultConfig returns the standard 9x6 checkerboard setup.
func DefaultConfig() Config {
	return Config{
		Pattern: "camera_cal/calibration*.jpg",
		Cols:    9,
		Rows:    6,
	}
}

// Undistorter removes lens distortion from frames using a camera matrix
// and distortion coefficients recovered by Calibrate.
type Undistorter struct {
	cameraMatrix gocv.Mat
	distCoeffs   gocv.Mat
}

// Calibrate locates checkerboard corners in every image matching the
// configured glob and solves for the camera parameters. Missing or
// unusable calibration inputs are a stream-level fault: the whole run
// cannot proceed without them.
func Calibrate(cfg Config) (*Undistorter, error) {
	paths, err := filepath.Glob(cfg.Pattern)
	if err != nil {
		return nil, fmt.Errorf("calib: bad pattern %q: %w", cfg.Pattern, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("calib: no calibration images match %q", cfg.Pattern)
	}

	grid := image.Pt(cfg.Cols, cfg.Rows)
	template := cornerTemplate(cfg.Cols, cfg.Rows)

	objectPoints := gocv.NewPoints3fVector()
	defer objectPoints.Close()
	imagePoints := gocv.NewPoints2fVector()
	defer imagePoints.Close()

	var size image.Point
	for _, path := range paths {
		img := gocv.IMRead(path, gocv.IMReadColor)
		if img.Empty() {
			img.Close()
			zap.S().Warnf("calib: skipping unreadable image %s", path)
			continue
		}

		gray := gocv.NewMat()
		gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
		img.Close()

		corners := gocv.NewMat()
		found := gocv.FindChessboardCorners(gray, grid, &corners,
			gocv.CalibCBAdaptiveThresh|gocv.CalibCBNormalizeImage)
		if found {
			cornerVec := gocv.NewPoint2fVectorFromMat(corners)
			imagePoints.Append(cornerVec)
			cornerVec.Close()

			templateVec := gocv.NewPoint3fVectorFromPoints(template)
			objectPoints.Append(templateVec)
			templateVec.Close()

			size = image.Pt(gray.Cols(), gray.Rows())
		} else {
			zap.S().Debugf("calib: no %dx%d corner grid in %s", cfg.Cols, cfg.Rows, path)
		}
		corners.Close()
		gray.Close()
	}

	if imagePoints.Size() == 0 {
		return nil, fmt.Errorf("calib: no usable corner grids in %d images matching %q",
			len(paths), cfg.Pattern)
	}

	cameraMatrix := gocv.NewMat()
	distCoeffs := gocv.NewMat()
	rvecs := gocv.NewMat()
	defer rvecs.Close()
	tvecs := gocv.NewMat()
	defer tvecs.Close()

	gocv.CalibrateCamera(objectPoints, imagePoints, size,
		&cameraMatrix, &distCoeffs, &rvecs, &tvecs, gocv.CalibFlag(0))

	zap.S().Infof("calib: calibrated from %d of %d images", imagePoints.Size(), len(paths))
	return &Undistorter{cameraMatrix: cameraMatrix, distCoeffs: distCoeffs}, nil
}

// Undistort removes lens distortion from one frame.
func (u *Undistorter) Undistort(src gocv.Mat, dst *gocv.Mat) {
	gocv.Undistort(src, dst, u.cameraMatrix, u.distCoeffs, u.cameraMatrix)
}

// Close releases the calibration matrices.
func (u *Undistorter) Close() error {
	if err := u.cameraMatrix.Close(); err != nil {
		return err
	}
	return u.distCoeffs.Close()
}

// cornerTemplate lays the checkerboard's inner corners out on the z=0
// plane in grid units.
func cornerTemplate(cols, rows int) []gocv.Point3f {
	pts := make([]gocv.Point3f, 0, cols*rows)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			pts = append(pts, gocv.Point3f{X: float32(x), Y: float32(y), Z: 0})
		}
	}
	return pts
}
