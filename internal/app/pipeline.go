package app

import (
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/drape/internal/capture"
	"github.com/ayusman/drape/internal/detector"
	"github.com/ayusman/drape/internal/logging"
)

// captureLoop reads frames at the camera rate, refreshes the preview and
// hands the newest frame to inference. Frames inference has not picked up
// yet are dropped, never queued.
func (a *App) captureLoop(stop <-chan struct{}, cam capture.Camera) {
	defer a.wg.Done()
	log := logging.For("capture")

	fps := cam.FPS()
	if fps <= 0 {
		fps = capture.DefaultFPS
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	var dropped, failures int
	for {
		select {
		case <-stop:
			if dropped > 0 {
				log.Debug("capture stopped", "dropped", dropped)
			}
			return
		case <-ticker.C:
		}

		frame, err := cam.ReadFrame()
		if err != nil {
			failures++
			if failures == 1 || failures%100 == 0 {
				log.Warn("reading frame", "err", err, "failures", failures)
			}
			continue
		}
		failures = 0

		a.updatePreview(frame)

		if !a.IsEnabled() {
			frame.Close()
			continue
		}
		if old, ok := a.frames.Put(frame); ok {
			old.Close()
			dropped++
		}
	}
}

// updatePreview encodes frame as the display would show it.
func (a *App) updatePreview(frame *gocv.Mat) {
	src := frame
	if a.config.Camera.Mirrored {
		flipped := frame.Clone()
		defer flipped.Close()
		capture.Mirror(&flipped)
		src = &flipped
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, *src, []int{int(gocv.IMWriteJpegQuality), a.config.PreviewQuality})
	if err != nil {
		return
	}
	defer buf.Close()

	data := append([]byte(nil), buf.GetBytes()...)
	a.preview.Store(&data)
}

// inferenceLoop runs pose detection on the newest frame and publishes the
// deformed mesh. A slow detector only lowers the result rate; it never
// builds a backlog.
func (a *App) inferenceLoop(stop <-chan struct{}, det detector.Detector) {
	defer a.wg.Done()
	log := logging.For("inference")

	for {
		frame, ok := a.frames.Take(stop)
		if !ok {
			return
		}

		raw, err := det.Detect(frame)
		frame.Close()
		if err != nil {
			log.Warn("detecting pose", "err", err)
			continue
		}

		a.Process(raw)
	}
}
