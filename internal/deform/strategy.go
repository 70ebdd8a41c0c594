package deform

import (
	"math"

	"github.com/ayusman/drape/internal/body"
	"github.com/ayusman/drape/internal/garment"
	"github.com/ayusman/drape/internal/geom"
	"github.com/ayusman/drape/internal/mesh"
)

// frame is the per-call context shared by every strategy. It is built once
// per Deform call and discarded afterwards.
//
// Garment X always runs toward the viewer's right: garment minX lands on the
// viewer's left whichever way the camera is mirrored. Sleeves follow the arm
// on the viewer side their region occupies in garment space, and the skinned
// strategies read landmarks through rig, which relabels the body joints so
// that they agree with the garment anchors.
type frame struct {
	lm     *body.Skeleton
	rig    *body.Skeleton
	meta   *garment.Metadata
	sil    *Silhouette
	fit    garment.Fit
	cfg    *Config
	skin   skinTransform
	sleeve [2]sleeveFrame
	// arm is the anatomical arm driving each sleeve region, indexed by
	// Region.Side.
	arm [2]body.Side
}

// sleeveArms picks the arm for each sleeve region from where the region sits
// relative to the torso in garment space.
func sleeveArms(meta *garment.Metadata, sil *Silhouette) [2]body.Side {
	torso := meta.Regions.Get(garment.Torso)
	center := (torso.MinX() + torso.MaxX()) / 2

	var arms [2]body.Side
	for _, r := range []garment.Region{garment.LeftSleeve, garment.RightSleeve} {
		b := meta.Regions.Get(r)
		viewer := body.Left
		if (b.MinX()+b.MaxX())/2 > center {
			viewer = body.Right
		}
		arms[r.Side()] = sil.ViewerArm(viewer)
	}
	return arms
}

// rigFor returns lm with every left/right joint pair swapped when the body's
// handedness on screen disagrees with the garment anchors' handedness.
func rigFor(lm *body.Skeleton, meta *garment.Metadata, sil *Silhouette) *body.Skeleton {
	a := &meta.Anchors
	garmentLeftFirst := a[body.LeftShoulder].X <= a[body.RightShoulder].X
	if garmentLeftFirst == sil.leftOnViewerLeft {
		return lm
	}
	rig := *lm
	for _, pair := range [][2]body.Joint{
		{body.LeftShoulder, body.RightShoulder},
		{body.LeftElbow, body.RightElbow},
		{body.LeftWrist, body.RightWrist},
		{body.LeftHip, body.RightHip},
	} {
		rig[pair[0]], rig[pair[1]] = rig[pair[1]], rig[pair[0]]
	}
	return &rig
}

// regionUV maps a vertex to region-normalized coordinates with gy = 0 on the
// shoulder line (sleeve root) and gy = 1 at the hem (sleeve cuff).
func (f *frame) regionUV(r garment.Region, v mesh.Vertex) (gx, gy float64) {
	gx, gy = f.meta.Regions.Get(r).Normalize(v.GarmentX, v.GarmentY)
	if f.meta.Space.BottomOrigin() {
		gy = 1 - gy
	}
	return gx, gy
}

// RegionStrategy places one garment vertex in screen space.
type RegionStrategy interface {
	Name() string
	place(f *frame, r garment.Region, v mesh.Vertex) geom.Vec2
}

// silhouetteTorso interpolates the three silhouette edges, then blends
// top→chest or chest→hem depending on the row.
type silhouetteTorso struct{}

func (silhouetteTorso) Name() string { return TorsoSilhouette }

func (silhouetteTorso) place(f *frame, r garment.Region, v mesh.Vertex) geom.Vec2 {
	gx, gy := f.regionUV(r, v)
	p := &f.sil.Points
	top := geom.LerpVec(p[TopLeft], p[TopRight], gx)
	mid := geom.LerpVec(p[ChestLeft], p[ChestRight], gx)
	bot := geom.LerpVec(p[HemLeft], p[HemRight], gx)

	split := f.cfg.Silhouette.ChestLine
	if gy < split {
		return geom.LerpVec(top, mid, gy/split)
	}
	return geom.LerpVec(mid, bot, (gy-split)/(1-split))
}

// bilinearTorso stretches the texture over the quad of raw shoulder and hip
// joints, without seam offsets.
type bilinearTorso struct{}

func (bilinearTorso) Name() string { return TorsoBilinear }

func (bilinearTorso) place(f *frame, r garment.Region, v mesh.Vertex) geom.Vec2 {
	gx, gy := f.regionUV(r, v)
	c := &f.sil.corners
	top := geom.LerpVec(c[0], c[1], gx)
	bot := geom.LerpVec(c[2], c[3], gx)
	p := geom.LerpVec(top, bot, gy)
	return f.sil.fitPointIf(p, f.fit)
}

// sleeveFrame is the rotated sleeve quad of one arm.
type sleeveFrame struct {
	root   geom.Vec2
	angle  float64
	width  float64
	length float64
}

func newSleeveFrame(lm *body.Skeleton, sil *Silhouette, cfg *SleeveConfig, fit garment.Fit, side body.Side) sleeveFrame {
	_, elbow, wrist := body.ArmChain(side)
	root := sil.Attach[side]

	target, ok := lm[wrist], lm[wrist].IsFinite()
	if cfg.Reach == ReachElbow || !ok {
		target, ok = lm[elbow], lm[elbow].IsFinite()
	}

	var dir geom.Vec2
	var armLen float64
	if ok {
		armLen = geom.Dist(root, target)
		dir, ok = target.Sub(root).Normalize()
	}
	if !ok {
		dir = sil.Down
		armLen = sil.TorsoHeight * cfg.FallbackArmLength
	}

	width := math.Max(cfg.WidthFraction*armLen, cfg.MinWidthFraction*sil.ShoulderWidth)
	return sleeveFrame{
		root: root,
		// local +Y (down the sleeve) must land on dir
		angle:  geom.Angle(dir) - math.Pi/2,
		width:  width * fit.WidthFactor,
		length: cfg.LengthFraction * armLen * fit.HeightFactor,
	}
}

// rotationSleeve treats the sleeve as a rigid quad hinged at the shoulder
// seam and rotated to follow the arm.
type rotationSleeve struct{}

func (rotationSleeve) Name() string { return SleeveRotation }

func (rotationSleeve) place(f *frame, r garment.Region, v mesh.Vertex) geom.Vec2 {
	gx, gy := f.regionUV(r, v)
	sf := &f.sleeve[f.arm[r.Side()]]
	local := geom.V((gx-0.5)*sf.width, gy*sf.length)
	return sf.root.Add(geom.Rotate(local, sf.angle))
}

// skinTransform maps garment-space offsets into screen-space offsets for the
// bone-weight strategy.
type skinTransform struct {
	across geom.Vec2
	along  geom.Vec2
}

func newSkinTransform(meta *garment.Metadata, sil *Silhouette, fit garment.Fit) skinTransform {
	a := &meta.Anchors
	garmentWidth := geom.Dist(a[body.LeftShoulder], a[body.RightShoulder])
	scale := 1.0
	if garmentWidth > 1e-9 {
		scale = sil.ShoulderWidth / garmentWidth
	}

	ySign := 1.0
	if meta.Space.BottomOrigin() {
		ySign = -1
	}

	return skinTransform{
		across: sil.Right.Scale(scale * fit.WidthFactor),
		along:  sil.Down.Scale(scale * ySign * fit.HeightFactor),
	}
}

func (st skinTransform) apply(d geom.Vec2) geom.Vec2 {
	return st.across.Scale(d.X).Add(st.along.Scale(d.Y))
}

// skinned blends the vertex position relative to each weighted anchor,
// carried onto the matching landmark (linear blend skinning without
// rotation).
type skinned struct{ name string }

func (s skinned) Name() string { return s.name }

func (skinned) place(f *frame, r garment.Region, v mesh.Vertex) geom.Vec2 {
	gp := geom.V(v.GarmentX, v.GarmentY)
	var out geom.Vec2
	var total float64
	for j := body.Joint(0); j < body.NumJoints; j++ {
		w := v.Weights[j]
		if w == 0 || !f.rig[j].IsFinite() {
			continue
		}
		off := f.skin.apply(gp.Sub(f.meta.Anchors[j]))
		out = out.Add(f.rig[j].Add(off).Scale(w))
		total += w
	}
	if total <= 0 {
		return f.sil.ShoulderCenter
	}
	return out.Scale(1 / total)
}

// fitPointIf applies fit scaling unless both factors are exactly 1.
func (s *Silhouette) fitPointIf(p geom.Vec2, fit garment.Fit) geom.Vec2 {
	if fit.WidthFactor == 1 && fit.HeightFactor == 1 {
		return p
	}
	return s.fitPoint(p, fit)
}

func torsoStrategy(name string) (RegionStrategy, bool) {
	switch name {
	case TorsoSilhouette:
		return silhouetteTorso{}, true
	case TorsoBilinear:
		return bilinearTorso{}, true
	case TorsoSkinned:
		return skinned{name: TorsoSkinned}, true
	}
	return nil, false
}

func sleeveStrategy(name string) (RegionStrategy, bool) {
	switch name {
	case SleeveRotation:
		return rotationSleeve{}, true
	case SleeveSkinned:
		return skinned{name: SleeveSkinned}, true
	}
	return nil, false
}
