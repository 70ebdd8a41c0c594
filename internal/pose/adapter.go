package pose

import (
	"fmt"
	"math"

	"github.com/ayusman/drape/internal/body"
	"github.com/ayusman/drape/internal/geom"
)

// Rotation is the clockwise rotation, in degrees, that brings the capture
// image upright relative to the display.
type Rotation int

const (
	Rotation0   Rotation = 0
	Rotation90  Rotation = 90
	Rotation180 Rotation = 180
	Rotation270 Rotation = 270
	// RotationAuto rotates by 90 degrees when the image and viewport
	// orientations differ.
	RotationAuto Rotation = -1
)

// ScaleMode controls how the image is mapped onto a viewport of a
// different aspect ratio.
type ScaleMode string

const (
	// ScaleFill covers the viewport and crops the overflow evenly, like
	// an aspect-fill camera preview.
	ScaleFill ScaleMode = "fill"
	// ScaleFit letterboxes the image inside the viewport.
	ScaleFit ScaleMode = "fit"
	// ScaleStretch maps the image corners onto the viewport corners.
	ScaleStretch ScaleMode = "stretch"
)

// Defaults for Options fields left zero.
const (
	DefaultMinVisibility = 0.5
	// DefaultMinKeypoints is the smallest result that still carries both hips.
	DefaultMinKeypoints = MPRightHip + 1
)

// Options describes the capture and display geometry.
type Options struct {
	ImageWidth  float64
	ImageHeight float64
	Viewport    geom.Viewport
	// Mirrored is set for front cameras whose estimator input is flipped
	// horizontally relative to what the user sees.
	Mirrored bool
	Rotation Rotation
	Scale    ScaleMode
	// MinVisibility is the estimator confidence under which a keypoint
	// counts as missing. Negative disables the check.
	MinVisibility float64
	MinKeypoints  int
}

// Validate reports options the adapter cannot work with.
func (o Options) Validate() error {
	img := geom.Viewport{Width: o.ImageWidth, Height: o.ImageHeight}
	if !img.Valid() {
		return fmt.Errorf("invalid image size %vx%v", o.ImageWidth, o.ImageHeight)
	}
	if !o.Viewport.Valid() {
		return fmt.Errorf("invalid viewport %vx%v", o.Viewport.Width, o.Viewport.Height)
	}
	switch o.Rotation {
	case Rotation0, Rotation90, Rotation180, Rotation270, RotationAuto:
	default:
		return fmt.Errorf("unsupported rotation %d", o.Rotation)
	}
	switch o.Scale {
	case "", ScaleFill, ScaleFit, ScaleStretch:
	default:
		return fmt.Errorf("unknown scale mode %q", o.Scale)
	}
	return nil
}

// Adapter converts raw estimator results into screen-space landmarks. It is
// immutable after construction and safe for concurrent use.
type Adapter struct {
	opts     Options
	rotation Rotation
	// effective source size after rotation
	srcW, srcH float64
	scaleX     float64
	scaleY     float64
	offX, offY float64
}

// NewAdapter validates opts and precomputes the image-to-viewport transform.
func NewAdapter(opts Options) (*Adapter, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.Scale == "" {
		opts.Scale = ScaleFill
	}
	if opts.MinVisibility == 0 {
		opts.MinVisibility = DefaultMinVisibility
	}
	if opts.MinKeypoints < DefaultMinKeypoints {
		opts.MinKeypoints = DefaultMinKeypoints
	}

	a := &Adapter{opts: opts, rotation: opts.Rotation}
	if a.rotation == RotationAuto {
		img := geom.Viewport{Width: opts.ImageWidth, Height: opts.ImageHeight}
		a.rotation = Rotation0
		if img.Portrait() != opts.Viewport.Portrait() && opts.ImageWidth != opts.ImageHeight {
			a.rotation = Rotation90
		}
	}

	a.srcW, a.srcH = opts.ImageWidth, opts.ImageHeight
	if a.rotation == Rotation90 || a.rotation == Rotation270 {
		a.srcW, a.srcH = a.srcH, a.srcW
	}

	vw, vh := opts.Viewport.Width, opts.Viewport.Height
	switch opts.Scale {
	case ScaleStretch:
		a.scaleX, a.scaleY = vw, vh
	default:
		s := vw / a.srcW
		if opts.Scale == ScaleFill {
			s = math.Max(s, vh/a.srcH)
		} else {
			s = math.Min(s, vh/a.srcH)
		}
		a.scaleX, a.scaleY = a.srcW*s, a.srcH*s
		a.offX = (vw - a.scaleX) / 2
		a.offY = (vh - a.scaleY) / 2
	}
	return a, nil
}

// Options returns the effective options.
func (a *Adapter) Options() Options {
	return a.opts
}

// Rotation returns the rotation actually applied, with RotationAuto resolved.
func (a *Adapter) Rotation() Rotation {
	return a.rotation
}

// Project maps a normalized image coordinate to viewport pixels.
func (a *Adapter) Project(x, y float64) geom.Vec2 {
	if a.opts.Mirrored {
		x = 1 - x
	}
	switch a.rotation {
	case Rotation90:
		x, y = 1-y, x
	case Rotation180:
		x, y = 1-x, 1-y
	case Rotation270:
		x, y = y, 1-x
	}
	return geom.Vec2{X: a.offX + x*a.scaleX, Y: a.offY + y*a.scaleY}
}

// Adapt converts one estimator result. It reports false, meaning "no
// landmarks this frame", when raw is nil, carries too few keypoints, or any
// torso joint is missing, non-finite or below the visibility threshold.
// Arm joints that fail the same checks are returned as NaN so the deformer
// can fall back for that arm alone.
func (a *Adapter) Adapt(raw *Raw) (body.Skeleton, bool) {
	var out body.Skeleton
	if raw == nil || len(raw.Points) < a.opts.MinKeypoints {
		return out, false
	}

	for j := body.Joint(0); j < body.NumJoints; j++ {
		kp, ok := raw.Keypoint(j)
		if ok && a.usable(kp) {
			out[j] = a.Project(kp.X, kp.Y)
			continue
		}
		out[j] = geom.Vec2{X: math.NaN(), Y: math.NaN()}
	}
	if !out.TorsoFinite() {
		return body.Skeleton{}, false
	}
	return out, true
}

func (a *Adapter) usable(kp Keypoint) bool {
	if !geom.IsFinite(kp.X) || !geom.IsFinite(kp.Y) {
		return false
	}
	return a.opts.MinVisibility < 0 || kp.Visibility >= a.opts.MinVisibility
}
