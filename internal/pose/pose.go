// Package pose turns raw pose-estimator output into screen-space body
// landmarks for the deformer.
package pose

import "github.com/ayusman/drape/internal/body"

// Keypoint indices of the 33-point MediaPipe pose topology that the body
// skeleton is built from.
const (
	MPLeftShoulder  = 11
	MPRightShoulder = 12
	MPLeftElbow     = 13
	MPRightElbow    = 14
	MPLeftWrist     = 15
	MPRightWrist    = 16
	MPLeftHip       = 23
	MPRightHip      = 24
	NumKeypoints    = 33
)

// sourceIndex maps each body joint to its estimator keypoint.
var sourceIndex = [body.NumJoints]int{
	body.LeftShoulder:  MPLeftShoulder,
	body.RightShoulder: MPRightShoulder,
	body.LeftElbow:     MPLeftElbow,
	body.RightElbow:    MPRightElbow,
	body.LeftWrist:     MPLeftWrist,
	body.RightWrist:    MPRightWrist,
	body.LeftHip:       MPLeftHip,
	body.RightHip:      MPRightHip,
}

// SourceIndex returns the estimator keypoint index for j.
func SourceIndex(j body.Joint) int {
	return sourceIndex[j]
}

// Keypoint is one estimator landmark in normalized image coordinates
// (top-left origin, [0,1] on both axes while on-image).
type Keypoint struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// Raw is a single estimator result for one person. A nil *Raw means no
// person was detected.
type Raw struct {
	Points []Keypoint `json:"points"`
	Score  float64    `json:"score"`
}

// Keypoint returns the keypoint for joint j and whether the result carries it.
func (r *Raw) Keypoint(j body.Joint) (Keypoint, bool) {
	i := sourceIndex[j]
	if r == nil || i >= len(r.Points) {
		return Keypoint{}, false
	}
	return r.Points[i], true
}

// FromSkeleton builds a Raw result whose body keypoints are the normalized
// positions in s, all fully visible. Used by fixtures and replays.
func FromSkeleton(s body.Skeleton) *Raw {
	r := &Raw{Points: make([]Keypoint, NumKeypoints), Score: 1}
	for j := body.Joint(0); j < body.NumJoints; j++ {
		r.Points[sourceIndex[j]] = Keypoint{X: s[j].X, Y: s[j].Y, Visibility: 1}
	}
	return r
}
