package deform

import (
	"errors"
	"fmt"
)

// ErrUnknownStrategy is returned when a config names a strategy that does not exist.
var ErrUnknownStrategy = errors.New("unknown deformation strategy")

// Torso strategy names.
const (
	TorsoSilhouette = "silhouette"
	TorsoBilinear   = "bilinear"
	TorsoSkinned    = "skinned"
)

// Sleeve strategy names.
const (
	SleeveRotation = "rotation"
	SleeveSkinned  = "skinned"
)

// Reach selects which arm joint a sleeve points at.
type Reach string

const (
	// ReachWrist aims the sleeve along shoulder-to-wrist, so it never bends at the elbow.
	ReachWrist Reach = "wrist"
	// ReachElbow aims the sleeve along shoulder-to-elbow.
	ReachElbow Reach = "elbow"
)

// DefaultMinShoulderDistance is the shoulder separation, in pixels, below
// which a pose is treated as a failed detection.
const DefaultMinShoulderDistance = 10

// SilhouetteConfig holds the fabric seam offsets. Outward offsets are
// fractions of shoulder width, vertical offsets fractions of torso height.
type SilhouetteConfig struct {
	ShoulderOutward float64 `toml:"shoulder_outward" json:"shoulderOutward"`
	ShoulderLift    float64 `toml:"shoulder_lift" json:"shoulderLift"`
	ChestOutward    float64 `toml:"chest_outward" json:"chestOutward"`
	// ChestDrop places the chest row along the shoulder-to-hip side line.
	ChestDrop  float64 `toml:"chest_drop" json:"chestDrop"`
	HemOutward float64 `toml:"hem_outward" json:"hemOutward"`
	HemDrop    float64 `toml:"hem_drop" json:"hemDrop"`
	// ChestLine is the region-normalized row where the top segment hands
	// over to the bottom segment.
	ChestLine float64 `toml:"chest_line" json:"chestLine"`
}

// SleeveConfig sizes the rotating sleeve quad.
type SleeveConfig struct {
	Reach Reach `toml:"reach" json:"reach"`
	// WidthFraction and LengthFraction are fractions of arm length.
	WidthFraction  float64 `toml:"width_fraction" json:"widthFraction"`
	LengthFraction float64 `toml:"length_fraction" json:"lengthFraction"`
	// MinWidthFraction floors sleeve width as a fraction of shoulder width
	// for arms pointing at the camera.
	MinWidthFraction float64 `toml:"min_width_fraction" json:"minWidthFraction"`
	// FallbackArmLength is used, as a fraction of torso height, when the
	// arm chain is missing or collapsed.
	FallbackArmLength float64 `toml:"fallback_arm_length" json:"fallbackArmLength"`
}

// Config selects the deformation strategies and their tunables.
type Config struct {
	Torso               string           `toml:"torso" json:"torso"`
	Sleeve              string           `toml:"sleeve" json:"sleeve"`
	MinShoulderDistance float64          `toml:"min_shoulder_distance" json:"minShoulderDistance"`
	Silhouette          SilhouetteConfig `toml:"silhouette" json:"silhouette"`
	Sleeves             SleeveConfig     `toml:"sleeves" json:"sleeves"`
}

// DefaultSilhouette returns the seam offsets tuned for t-shirts.
func DefaultSilhouette() SilhouetteConfig {
	return SilhouetteConfig{
		ShoulderOutward: 0.12,
		ShoulderLift:    0.05,
		ChestOutward:    0.08,
		ChestDrop:       0.35,
		HemOutward:      0.15,
		HemDrop:         0.08,
		ChestLine:       0.5,
	}
}

// DefaultSleeves returns the default sleeve sizing.
func DefaultSleeves() SleeveConfig {
	return SleeveConfig{
		Reach:             ReachWrist,
		WidthFraction:     0.3,
		LengthFraction:    0.55,
		MinWidthFraction:  0.25,
		FallbackArmLength: 0.8,
	}
}

// DefaultConfig returns the silhouette torso with rotating sleeves.
func DefaultConfig() Config {
	return Config{
		Torso:               TorsoSilhouette,
		Sleeve:              SleeveRotation,
		MinShoulderDistance: DefaultMinShoulderDistance,
		Silhouette:          DefaultSilhouette(),
		Sleeves:             DefaultSleeves(),
	}
}

// withDefaults fills zero-valued fields from DefaultConfig. Offsets that are
// legitimately zero must be given as a tiny non-zero value.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Torso == "" {
		c.Torso = d.Torso
	}
	if c.Sleeve == "" {
		c.Sleeve = d.Sleeve
	}
	if c.MinShoulderDistance <= 0 {
		c.MinShoulderDistance = d.MinShoulderDistance
	}

	s, ds := &c.Silhouette, d.Silhouette
	fill(&s.ShoulderOutward, ds.ShoulderOutward)
	fill(&s.ShoulderLift, ds.ShoulderLift)
	fill(&s.ChestOutward, ds.ChestOutward)
	fill(&s.ChestDrop, ds.ChestDrop)
	fill(&s.HemOutward, ds.HemOutward)
	fill(&s.HemDrop, ds.HemDrop)
	if !(s.ChestLine > 0 && s.ChestLine < 1) {
		s.ChestLine = ds.ChestLine
	}

	sl, dsl := &c.Sleeves, d.Sleeves
	if sl.Reach == "" {
		sl.Reach = dsl.Reach
	}
	fill(&sl.WidthFraction, dsl.WidthFraction)
	fill(&sl.LengthFraction, dsl.LengthFraction)
	fill(&sl.MinWidthFraction, dsl.MinWidthFraction)
	fill(&sl.FallbackArmLength, dsl.FallbackArmLength)
	return c
}

func fill(v *float64, def float64) {
	if *v == 0 {
		*v = def
	}
}

// Validate reports unknown strategy or reach names.
func (c Config) Validate() error {
	c = c.withDefaults()
	switch c.Torso {
	case TorsoSilhouette, TorsoBilinear, TorsoSkinned:
	default:
		return fmt.Errorf("%w: torso %q", ErrUnknownStrategy, c.Torso)
	}
	switch c.Sleeve {
	case SleeveRotation, SleeveSkinned:
	default:
		return fmt.Errorf("%w: sleeve %q", ErrUnknownStrategy, c.Sleeve)
	}
	switch c.Sleeves.Reach {
	case ReachWrist, ReachElbow:
	default:
		return fmt.Errorf("unknown sleeve reach %q", c.Sleeves.Reach)
	}
	return nil
}
