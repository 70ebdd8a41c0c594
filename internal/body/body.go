// Package body defines the eight-joint upper-body skeleton shared by garment
// anchors and per-frame pose landmarks.
package body

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/ayusman/drape/internal/geom"
)

// Joint identifies one of the tracked upper-body joints.
type Joint int

// Joint indices. Left and right are the subject's anatomical sides.
const (
	LeftShoulder Joint = iota
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftHip
	RightHip
	NumJoints
)

var jointNames = [NumJoints]string{
	"leftShoulder",
	"rightShoulder",
	"leftElbow",
	"rightElbow",
	"leftWrist",
	"rightWrist",
	"leftHip",
	"rightHip",
}

// String returns the camelCase name used in garment metadata.
func (j Joint) String() string {
	if j < 0 || j >= NumJoints {
		return fmt.Sprintf("joint(%d)", int(j))
	}
	return jointNames[j]
}

// TorsoJoints are the joints a frame cannot be deformed without.
var TorsoJoints = [4]Joint{LeftShoulder, RightShoulder, LeftHip, RightHip}

// Side is the anatomical side of an arm chain.
type Side int

const (
	Left Side = iota
	Right
)

func (s Side) String() string {
	if s == Left {
		return "left"
	}
	return "right"
}

// ArmChain returns the shoulder, elbow and wrist joints for a side.
func ArmChain(s Side) (shoulder, elbow, wrist Joint) {
	if s == Left {
		return LeftShoulder, LeftElbow, LeftWrist
	}
	return RightShoulder, RightElbow, RightWrist
}

// Skeleton holds one position per joint. It is used both for static garment
// anchors (garment space) and for per-frame landmarks (screen pixels).
type Skeleton [NumJoints]geom.Vec2

// At returns the position of joint j.
func (s *Skeleton) At(j Joint) geom.Vec2 {
	return s[j]
}

// TorsoFinite reports whether the shoulders and hips are all finite.
func (s *Skeleton) TorsoFinite() bool {
	for _, j := range TorsoJoints {
		if !s[j].IsFinite() {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the skeleton as an object of named [x, y] pairs.
// Joints that are not finite encode as null.
func (s Skeleton) MarshalJSON() ([]byte, error) {
	out := make(map[string]*[2]float64, NumJoints)
	for j := Joint(0); j < NumJoints; j++ {
		if s[j].IsFinite() {
			out[j.String()] = &[2]float64{s[j].X, s[j].Y}
		} else {
			out[j.String()] = nil
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes an object of named [x, y] pairs. Every joint must be
// present; a null joint decodes as NaN.
func (s *Skeleton) UnmarshalJSON(data []byte) error {
	var in map[string]*[2]float64
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	for j := Joint(0); j < NumJoints; j++ {
		p, ok := in[j.String()]
		if !ok {
			return fmt.Errorf("missing joint %q", j.String())
		}
		if p == nil {
			s[j] = geom.Vec2{X: math.NaN(), Y: math.NaN()}
			continue
		}
		s[j] = geom.Vec2{X: p[0], Y: p[1]}
	}
	return nil
}
