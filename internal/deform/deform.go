// Package deform moves a garment mesh onto the body every frame. It is a pure
// function of (mesh, landmarks, metadata, viewport): no state is kept between
// calls and the same inputs always give bit-identical output.
package deform

import (
	"github.com/ayusman/drape/internal/body"
	"github.com/ayusman/drape/internal/garment"
	"github.com/ayusman/drape/internal/geom"
	"github.com/ayusman/drape/internal/mesh"
)

// Vertex is a deformed vertex in normalized device coordinates plus its
// texture coordinates. It corresponds one-to-one, by list position, with the
// mesh.Vertex it was computed from.
type Vertex struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	U float64 `json:"u"`
	V float64 `json:"v"`
}

// NDC returns the vertex position.
func (v Vertex) NDC() geom.Vec2 {
	return geom.Vec2{X: v.X, Y: v.Y}
}

// Mesh is one frame's deformed geometry. A published Mesh is never mutated.
type Mesh struct {
	GarmentID   string   `json:"garmentId"`
	Torso       []Vertex `json:"torso"`
	LeftSleeve  []Vertex `json:"leftSleeve"`
	RightSleeve []Vertex `json:"rightSleeve"`
	// Silhouette is the outline the torso was fitted to, for overlays.
	// It is nil for an empty result.
	Silhouette *Silhouette `json:"silhouette,omitempty"`
}

// Empty reports whether the mesh has nothing to draw.
func (m Mesh) Empty() bool {
	return len(m.Torso) == 0 && len(m.LeftSleeve) == 0 && len(m.RightSleeve) == 0
}

// Region returns the vertex list for r.
func (m Mesh) Region(r garment.Region) []Vertex {
	switch r {
	case garment.LeftSleeve:
		return m.LeftSleeve
	case garment.RightSleeve:
		return m.RightSleeve
	}
	return m.Torso
}

// Deformer deforms meshes with a fixed strategy configuration. It holds no
// per-frame state and is safe for concurrent use.
type Deformer struct {
	cfg    Config
	torso  RegionStrategy
	sleeve RegionStrategy
}

// New returns a Deformer for cfg. Zero fields take their defaults.
func New(cfg Config) (*Deformer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	torso, _ := torsoStrategy(cfg.Torso)
	sleeve, _ := sleeveStrategy(cfg.Sleeve)
	return &Deformer{cfg: cfg, torso: torso, sleeve: sleeve}, nil
}

var defaultDeformer, _ = New(DefaultConfig())

// Default returns the Deformer used by Deform.
func Default() *Deformer {
	return defaultDeformer
}

// Deform deforms m with the default configuration.
func Deform(m *mesh.Mesh, lm *body.Skeleton, meta *garment.Metadata, viewportWidth, viewportHeight float64) Mesh {
	return defaultDeformer.Deform(m, lm, meta, viewportWidth, viewportHeight)
}

// Config returns the effective configuration.
func (d *Deformer) Config() Config {
	return d.cfg
}

// Strategy returns the strategy used for region r.
func (d *Deformer) Strategy(r garment.Region) RegionStrategy {
	if r == garment.Torso {
		return d.torso
	}
	return d.sleeve
}

// Valid reports whether lm can be deformed against: all four torso joints
// finite and the shoulders at least MinShoulderDistance pixels apart.
func (d *Deformer) Valid(lm *body.Skeleton) bool {
	if lm == nil || !lm.TorsoFinite() {
		return false
	}
	return geom.Dist(lm[body.LeftShoulder], lm[body.RightShoulder]) >= d.cfg.MinShoulderDistance
}

// Deform computes the NDC geometry of every region. Invalid landmarks, a
// missing mesh or an unusable viewport yield an empty Mesh, which the caller
// must treat as "draw nothing".
func (d *Deformer) Deform(m *mesh.Mesh, lm *body.Skeleton, meta *garment.Metadata, viewportWidth, viewportHeight float64) Mesh {
	vp := geom.Viewport{Width: viewportWidth, Height: viewportHeight}
	if m == nil || meta == nil || !vp.Valid() || !d.Valid(lm) {
		return Mesh{}
	}

	fit := meta.Fit.Clamped()
	sil := buildSilhouette(lm, d.cfg.Silhouette, fit)
	f := &frame{
		lm:   lm,
		meta: meta,
		sil:  sil,
		fit:  fit,
		cfg:  &d.cfg,
	}
	if d.sleeve.Name() == SleeveRotation {
		f.arm = sleeveArms(meta, sil)
		f.sleeve[body.Left] = newSleeveFrame(lm, sil, &d.cfg.Sleeves, fit, body.Left)
		f.sleeve[body.Right] = newSleeveFrame(lm, sil, &d.cfg.Sleeves, fit, body.Right)
	}
	if d.torso.Name() == TorsoSkinned || d.sleeve.Name() == SleeveSkinned {
		f.rig = rigFor(lm, meta, sil)
		f.skin = newSkinTransform(meta, sil, fit)
	}

	out := Mesh{GarmentID: meta.ID, Silhouette: sil}
	out.Torso = d.deformRegion(f, vp, garment.Torso, m.Torso)
	out.LeftSleeve = d.deformRegion(f, vp, garment.LeftSleeve, m.LeftSleeve)
	out.RightSleeve = d.deformRegion(f, vp, garment.RightSleeve, m.RightSleeve)
	return out
}

func (d *Deformer) deformRegion(f *frame, vp geom.Viewport, r garment.Region, verts []mesh.Vertex) []Vertex {
	strategy := d.Strategy(r)
	out := make([]Vertex, len(verts))
	for i, v := range verts {
		ndc := vp.ToNDC(strategy.place(f, r, v))
		out[i] = Vertex{X: ndc.X, Y: ndc.Y, U: v.U, V: v.V}
	}
	return out
}
