// Package garment defines the static garment metadata a try-on session is
// built from: garment space, reference anchors, region bounds, grid
// resolution and fit factors.
package garment

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/ayusman/drape/internal/body"
	"github.com/ayusman/drape/internal/geom"
)

// ErrInvalidMetadata is returned when garment metadata fails validation.
var ErrInvalidMetadata = errors.New("invalid garment metadata")

// Fit factor limits: body-derived dimensions may be scaled by at most ±15%.
const (
	MinFitFactor = 0.85
	MaxFitFactor = 1.15
)

// upperBodyTypes are the garment types with torso + two sleeve topology.
var upperBodyTypes = map[string]bool{
	"shirt":  true,
	"tshirt": true,
	"top":    true,
	"jacket": true,
	"hoodie": true,
}

// Origin is the vertical origin garment-space Y values are authored against.
type Origin string

const (
	// OriginTop means Y grows downward from the shoulder line (the default).
	OriginTop Origin = "top"
	// OriginBottom means Y grows upward from the hem; the deformer flips it.
	OriginBottom Origin = "bottom"
)

// Space is the logical extent region coordinates are normalized against.
type Space struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	// Origin defaults to OriginTop, under which region Y is used as is.
	// Files authored with Y growing up from the hem (most image editors'
	// bottom-left convention) must set "origin": "bottom" to get the flip.
	Origin Origin `json:"origin,omitempty"`
}

// BottomOrigin reports whether region Y values must be flipped.
func (s Space) BottomOrigin() bool {
	return s.Origin == OriginBottom
}

// Bounds is an axis-aligned rectangle [minX, minY, maxX, maxY] in garment space.
type Bounds [4]float64

func (b Bounds) MinX() float64 { return b[0] }
func (b Bounds) MinY() float64 { return b[1] }
func (b Bounds) MaxX() float64 { return b[2] }
func (b Bounds) MaxY() float64 { return b[3] }

// Degenerate reports whether either axis has no positive extent.
func (b Bounds) Degenerate() bool {
	return !(b.MaxX() > b.MinX()) || !(b.MaxY() > b.MinY())
}

// Normalize maps a garment-space point to region-relative [0,1]² coordinates.
// An axis without positive extent maps to its midpoint 0.5.
func (b Bounds) Normalize(x, y float64) (float64, float64) {
	return normalizeAxis(x, b.MinX(), b.MaxX()), normalizeAxis(y, b.MinY(), b.MaxY())
}

// Denormalize maps region-relative coordinates back into garment space.
// An axis without positive extent collapses onto its minimum.
func (b Bounds) Denormalize(u, v float64) (float64, float64) {
	return denormalizeAxis(u, b.MinX(), b.MaxX()), denormalizeAxis(v, b.MinY(), b.MaxY())
}

func normalizeAxis(x, lo, hi float64) float64 {
	if !(hi > lo) || !geom.IsFinite(hi-lo) {
		return 0.5
	}
	return (x - lo) / (hi - lo)
}

func denormalizeAxis(t, lo, hi float64) float64 {
	if !(hi > lo) || !geom.IsFinite(hi-lo) {
		if geom.IsFinite(lo) {
			return lo
		}
		return 0.5
	}
	return geom.Lerp(lo, hi, t)
}

// Region identifies one of the mesh regions.
type Region int

const (
	Torso Region = iota
	LeftSleeve
	RightSleeve
)

// AllRegions lists regions in output order.
var AllRegions = [3]Region{Torso, LeftSleeve, RightSleeve}

func (r Region) String() string {
	switch r {
	case Torso:
		return "torso"
	case LeftSleeve:
		return "leftSleeve"
	case RightSleeve:
		return "rightSleeve"
	}
	return fmt.Sprintf("region(%d)", int(r))
}

// Side returns the arm side a sleeve region belongs to. It is only
// meaningful for sleeves.
func (r Region) Side() body.Side {
	if r == RightSleeve {
		return body.Right
	}
	return body.Left
}

// RegionSpec holds the bounds of a single region.
type RegionSpec struct {
	Bounds Bounds `json:"bounds"`
}

// Regions holds the three region specs.
type Regions struct {
	Torso       RegionSpec `json:"torso"`
	LeftSleeve  RegionSpec `json:"leftSleeve"`
	RightSleeve RegionSpec `json:"rightSleeve"`
}

// Get returns the bounds of region r.
func (rs Regions) Get(r Region) Bounds {
	switch r {
	case LeftSleeve:
		return rs.LeftSleeve.Bounds
	case RightSleeve:
		return rs.RightSleeve.Bounds
	}
	return rs.Torso.Bounds
}

// Grid is a vertex grid resolution, encoded as [cols, rows].
type Grid struct {
	Cols int
	Rows int
}

// Count returns the number of vertices in the grid.
func (g Grid) Count() int {
	if g.Cols <= 0 || g.Rows <= 0 {
		return 0
	}
	return g.Cols * g.Rows
}

func (g Grid) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{g.Cols, g.Rows})
}

func (g *Grid) UnmarshalJSON(data []byte) error {
	var v [2]int
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	g.Cols, g.Rows = v[0], v[1]
	return nil
}

// MeshConfig sets grid resolution per region. Both sleeves share SleeveGrid.
type MeshConfig struct {
	TorsoGrid  Grid `json:"torsoGrid"`
	SleeveGrid Grid `json:"sleeveGrid"`
}

// GridFor returns the grid used by region r.
func (m MeshConfig) GridFor(r Region) Grid {
	if r == Torso {
		return m.TorsoGrid
	}
	return m.SleeveGrid
}

// Fit holds width/height multipliers applied to body-derived dimensions.
type Fit struct {
	WidthFactor  float64 `json:"widthFactor"`
	HeightFactor float64 `json:"heightFactor"`
}

// Clamped returns the factors limited to [MinFitFactor, MaxFitFactor].
// Zero or non-finite factors mean "unscaled".
func (f Fit) Clamped() Fit {
	return Fit{
		WidthFactor:  clampFactor(f.WidthFactor),
		HeightFactor: clampFactor(f.HeightFactor),
	}
}

func clampFactor(x float64) float64 {
	if x == 0 || !geom.IsFinite(x) {
		return 1
	}
	return geom.Clamp(x, MinFitFactor, MaxFitFactor)
}

// Metadata is the complete static description of one garment.
type Metadata struct {
	ID      string        `json:"id"`
	Type    string        `json:"type"`
	Space   Space         `json:"garmentSpace"`
	Anchors body.Skeleton `json:"anchors"`
	Regions Regions       `json:"regions"`
	Mesh    MeshConfig    `json:"mesh"`
	Fit     Fit           `json:"fit"`
}

// Parse decodes and validates garment metadata JSON.
func Parse(data []byte) (*Metadata, error) {
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMetadata, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Load reads and parses a garment metadata file.
func Load(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read garment %s: %w", path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("garment %s: %w", path, err)
	}
	return m, nil
}

// Validate checks that the metadata describes a usable upper-body garment.
func (m *Metadata) Validate() error {
	if m.ID == "" {
		return invalid("id is required")
	}
	if !upperBodyTypes[m.Type] {
		return invalid("unsupported garment type %q", m.Type)
	}
	if !(m.Space.Width > 0) || !(m.Space.Height > 0) || !geom.IsFinite(m.Space.Width) || !geom.IsFinite(m.Space.Height) {
		return invalid("garmentSpace must have positive width and height")
	}
	switch m.Space.Origin {
	case "", OriginTop, OriginBottom:
	default:
		return invalid("unknown garmentSpace origin %q", m.Space.Origin)
	}
	for j := body.Joint(0); j < body.NumJoints; j++ {
		if !m.Anchors[j].IsFinite() {
			return invalid("anchor %s is not finite", j)
		}
	}
	for _, r := range AllRegions {
		b := m.Regions.Get(r)
		for _, v := range b {
			if !geom.IsFinite(v) {
				return invalid("region %s bounds are not finite", r)
			}
		}
		if b.Degenerate() {
			return invalid("region %s bounds %v have zero extent", r, b)
		}
	}
	if g := m.Mesh.TorsoGrid; g.Cols < 2 || g.Rows < 2 {
		return invalid("torsoGrid must be at least 2x2, got %dx%d", g.Cols, g.Rows)
	}
	if g := m.Mesh.SleeveGrid; g.Cols < 2 || g.Rows < 2 {
		return invalid("sleeveGrid must be at least 2x2, got %dx%d", g.Cols, g.Rows)
	}
	for _, f := range []float64{m.Fit.WidthFactor, m.Fit.HeightFactor} {
		if f < 0 || !geom.IsFinite(f) {
			return invalid("fit factors must be finite and non-negative")
		}
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidMetadata, fmt.Sprintf(format, args...))
}
