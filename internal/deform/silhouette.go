package deform

import (
	"github.com/ayusman/drape/internal/body"
	"github.com/ayusman/drape/internal/garment"
	"github.com/ayusman/drape/internal/geom"
)

// Silhouette control point indices. Left and right are the viewer's sides.
const (
	TopLeft = iota
	TopRight
	ChestLeft
	ChestRight
	HemLeft
	HemRight
	NumSilhouettePoints
)

// Silhouette is the fabric outline derived from the body joints for one
// frame. All positions are screen pixels. It is plain data so debug overlays
// can draw it without reaching into the deformer.
type Silhouette struct {
	ShoulderCenter geom.Vec2 `json:"shoulderCenter"`
	HipCenter      geom.Vec2 `json:"hipCenter"`
	// Down runs from shoulder center to hip center; Right is perpendicular
	// to it and points to the viewer's right.
	Down          geom.Vec2 `json:"down"`
	Right         geom.Vec2 `json:"right"`
	ShoulderWidth float64   `json:"shoulderWidth"`
	TorsoHeight   float64   `json:"torsoHeight"`

	Points [NumSilhouettePoints]geom.Vec2 `json:"points"`

	// Attach holds the sleeve root for each anatomical arm: the top seam
	// point on the viewer side that arm's shoulder is on.
	Attach [2]geom.Vec2 `json:"attach"`

	// corners are the raw joints ordered TopLeft, TopRight, HemLeft, HemRight
	// by viewer side.
	corners [4]geom.Vec2
	// leftOnViewerLeft is set when the anatomical left shoulder is on the
	// viewer's left, as on a mirrored display.
	leftOnViewerLeft bool
}

// ViewerArm returns the anatomical arm whose shoulder is on the given viewer
// side.
func (s *Silhouette) ViewerArm(viewerSide body.Side) body.Side {
	if (viewerSide == body.Left) == s.leftOnViewerLeft {
		return body.Left
	}
	return body.Right
}

// buildSilhouette derives the silhouette for validated landmarks. fit must
// already be clamped.
func buildSilhouette(lm *body.Skeleton, cfg SilhouetteConfig, fit garment.Fit) *Silhouette {
	ls, rs := lm[body.LeftShoulder], lm[body.RightShoulder]
	lh, rh := lm[body.LeftHip], lm[body.RightHip]

	s := &Silhouette{
		ShoulderCenter: geom.Midpoint(ls, rs),
		HipCenter:      geom.Midpoint(lh, rh),
		ShoulderWidth:  geom.Dist(ls, rs),
	}

	down, ok := s.HipCenter.Sub(s.ShoulderCenter).Normalize()
	if !ok {
		down = geom.V(0, 1)
	}
	s.Down = down
	s.Right = down.Perp()

	s.TorsoHeight = geom.Dist(s.ShoulderCenter, s.HipCenter)
	if s.TorsoHeight < 1e-6 {
		// Hips collapsed onto the shoulder line; keep the garment open.
		s.TorsoHeight = s.ShoulderWidth
	}

	// Order each joint pair by viewer side.
	leftArmOnViewerLeft := s.side(ls) <= s.side(rs)
	shL, shR := ls, rs
	if !leftArmOnViewerLeft {
		shL, shR = rs, ls
	}
	hipL, hipR := lh, rh
	if s.side(lh) > s.side(rh) {
		hipL, hipR = rh, lh
	}
	s.corners = [4]geom.Vec2{shL, shR, hipL, hipR}
	s.leftOnViewerLeft = leftArmOnViewerLeft

	sw, th := s.ShoulderWidth, s.TorsoHeight
	left, right := s.Right.Scale(-1), s.Right
	up := s.Down.Scale(-1)

	s.Points[TopLeft] = shL.Add(left.Scale(cfg.ShoulderOutward * sw)).Add(up.Scale(cfg.ShoulderLift * th))
	s.Points[TopRight] = shR.Add(right.Scale(cfg.ShoulderOutward * sw)).Add(up.Scale(cfg.ShoulderLift * th))
	s.Points[ChestLeft] = geom.LerpVec(shL, hipL, cfg.ChestDrop).Add(left.Scale(cfg.ChestOutward * sw))
	s.Points[ChestRight] = geom.LerpVec(shR, hipR, cfg.ChestDrop).Add(right.Scale(cfg.ChestOutward * sw))
	s.Points[HemLeft] = hipL.Add(left.Scale(cfg.HemOutward * sw)).Add(s.Down.Scale(cfg.HemDrop * th))
	s.Points[HemRight] = hipR.Add(right.Scale(cfg.HemOutward * sw)).Add(s.Down.Scale(cfg.HemDrop * th))

	if fit.WidthFactor != 1 || fit.HeightFactor != 1 {
		for i := range s.Points {
			s.Points[i] = s.fitPoint(s.Points[i], fit)
		}
	}

	if leftArmOnViewerLeft {
		s.Attach[body.Left], s.Attach[body.Right] = s.Points[TopLeft], s.Points[TopRight]
	} else {
		s.Attach[body.Left], s.Attach[body.Right] = s.Points[TopRight], s.Points[TopLeft]
	}
	return s
}

// side returns the signed offset of p along Right from the body axis.
func (s *Silhouette) side(p geom.Vec2) float64 {
	return p.Sub(s.ShoulderCenter).Dot(s.Right)
}

// fitPoint scales p about the shoulder center in the body frame.
func (s *Silhouette) fitPoint(p geom.Vec2, fit garment.Fit) geom.Vec2 {
	rel := p.Sub(s.ShoulderCenter)
	across := rel.Dot(s.Right) * fit.WidthFactor
	along := rel.Dot(s.Down) * fit.HeightFactor
	return s.ShoulderCenter.Add(s.Right.Scale(across)).Add(s.Down.Scale(along))
}
