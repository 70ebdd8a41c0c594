// Package mesh builds the static, per-garment vertex grids that the deformer
// moves every frame.
package mesh

import (
	"github.com/ayusman/drape/internal/body"
	"github.com/ayusman/drape/internal/garment"
	"github.com/ayusman/drape/internal/geom"
)

// weightEpsilon keeps inverse-distance weights finite at an anchor.
const weightEpsilon = 0.001

// BoneWeights holds one normalized influence per joint. Joints outside a
// region's active set are exactly zero.
type BoneWeights [body.NumJoints]float64

// Sum returns the total weight.
func (w BoneWeights) Sum() float64 {
	var s float64
	for _, v := range w {
		s += v
	}
	return s
}

// Vertex is an immutable garment-space mesh vertex. U and V equal GarmentX
// and GarmentY: texture space coincides with garment space.
type Vertex struct {
	GarmentX float64     `json:"garmentX"`
	GarmentY float64     `json:"garmentY"`
	U        float64     `json:"u"`
	V        float64     `json:"v"`
	Weights  BoneWeights `json:"boneWeights"`
}

// Mesh is the generated topology for one garment. Vertex lists are row-major
// (index = row*cols + col) and must not be modified after generation.
type Mesh struct {
	Torso       []Vertex     `json:"torso"`
	LeftSleeve  []Vertex     `json:"leftSleeve"`
	RightSleeve []Vertex     `json:"rightSleeve"`
	TorsoGrid   garment.Grid `json:"torsoGrid"`
	SleeveGrid  garment.Grid `json:"sleeveGrid"`
}

// Region returns the vertex list for r.
func (m *Mesh) Region(r garment.Region) []Vertex {
	switch r {
	case garment.LeftSleeve:
		return m.LeftSleeve
	case garment.RightSleeve:
		return m.RightSleeve
	}
	return m.Torso
}

// Grid returns the grid resolution used by region r.
func (m *Mesh) Grid(r garment.Region) garment.Grid {
	if r == garment.Torso {
		return m.TorsoGrid
	}
	return m.SleeveGrid
}

// activeJoints returns the anchors that influence vertices of region r.
func activeJoints(r garment.Region) []body.Joint {
	switch r {
	case garment.LeftSleeve:
		return []body.Joint{body.LeftShoulder, body.LeftElbow, body.LeftWrist}
	case garment.RightSleeve:
		return []body.Joint{body.RightShoulder, body.RightElbow, body.RightWrist}
	}
	return []body.Joint{body.LeftShoulder, body.RightShoulder, body.LeftHip, body.RightHip}
}

// Generate builds the mesh for a garment. It is deterministic and never
// fails: malformed bounds collapse onto their minimum (or 0.5) and grids
// smaller than 2 on an axis produce a single line at the parametric midpoint.
func Generate(meta *garment.Metadata) *Mesh {
	m := &Mesh{
		TorsoGrid:  sanitizeGrid(meta.Mesh.TorsoGrid),
		SleeveGrid: sanitizeGrid(meta.Mesh.SleeveGrid),
	}
	m.Torso = generateRegion(meta, garment.Torso, m.TorsoGrid)
	m.LeftSleeve = generateRegion(meta, garment.LeftSleeve, m.SleeveGrid)
	m.RightSleeve = generateRegion(meta, garment.RightSleeve, m.SleeveGrid)
	return m
}

func sanitizeGrid(g garment.Grid) garment.Grid {
	if g.Cols < 1 {
		g.Cols = 1
	}
	if g.Rows < 1 {
		g.Rows = 1
	}
	return g
}

func generateRegion(meta *garment.Metadata, r garment.Region, grid garment.Grid) []Vertex {
	bounds := meta.Regions.Get(r)
	joints := activeJoints(r)
	verts := make([]Vertex, 0, grid.Count())

	for j := 0; j < grid.Rows; j++ {
		v := step(j, grid.Rows)
		for i := 0; i < grid.Cols; i++ {
			u := step(i, grid.Cols)
			x, y := bounds.Denormalize(u, v)
			verts = append(verts, Vertex{
				GarmentX: x,
				GarmentY: y,
				U:        x,
				V:        y,
				Weights:  boneWeights(geom.V(x, y), &meta.Anchors, joints),
			})
		}
	}
	return verts
}

// step returns the parametric position of index i on an n-point axis.
func step(i, n int) float64 {
	if n < 2 {
		return 0.5
	}
	return float64(i) / float64(n-1)
}

// boneWeights computes normalized inverse-distance weights of p over joints.
func boneWeights(p geom.Vec2, anchors *body.Skeleton, joints []body.Joint) BoneWeights {
	var w BoneWeights
	var total float64
	for _, j := range joints {
		d := geom.Dist(p, anchors[j])
		if !geom.IsFinite(d) {
			continue
		}
		w[j] = 1 / (d + weightEpsilon)
		total += w[j]
	}
	if total <= 0 || !geom.IsFinite(total) {
		// Unusable distances: split evenly.
		for _, j := range joints {
			w[j] = 1 / float64(len(joints))
		}
		return w
	}
	for _, j := range joints {
		w[j] /= total
	}
	return w
}
