package detector

import (
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/drape/internal/body"
	"github.com/ayusman/drape/internal/geom"
	"github.com/ayusman/drape/internal/pose"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	pose  *pose.Raw
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetPose sets the pose that will be returned by Detect. nil means nobody
// is in frame.
func (m *MockDetector) SetPose(p *pose.Raw) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pose = p
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured pose or error.
func (m *MockDetector) Detect(frame *gocv.Mat) (*pose.Raw, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.pose, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// ArmsDownPose returns a person standing centered in the frame with arms
// relaxed at their sides, as seen by an unmirrored camera (the subject's
// left shoulder on the image right).
func ArmsDownPose() *pose.Raw {
	var s body.Skeleton
	s[body.LeftShoulder] = geom.V(0.62, 0.30)
	s[body.RightShoulder] = geom.V(0.38, 0.30)
	s[body.LeftElbow] = geom.V(0.66, 0.45)
	s[body.RightElbow] = geom.V(0.34, 0.45)
	s[body.LeftWrist] = geom.V(0.67, 0.60)
	s[body.RightWrist] = geom.V(0.33, 0.60)
	s[body.LeftHip] = geom.V(0.59, 0.62)
	s[body.RightHip] = geom.V(0.41, 0.62)
	return pose.FromSkeleton(s)
}

// TPose returns the same person with both arms stretched out horizontally.
func TPose() *pose.Raw {
	p := ArmsDownPose()
	p.Points[pose.MPLeftElbow] = pose.Keypoint{X: 0.76, Y: 0.30, Visibility: 1}
	p.Points[pose.MPRightElbow] = pose.Keypoint{X: 0.24, Y: 0.30, Visibility: 1}
	p.Points[pose.MPLeftWrist] = pose.Keypoint{X: 0.90, Y: 0.30, Visibility: 1}
	p.Points[pose.MPRightWrist] = pose.Keypoint{X: 0.10, Y: 0.30, Visibility: 1}
	return p
}
