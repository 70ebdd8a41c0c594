package geom

// Viewport is the pixel size of the display surface the garment is drawn on.
// Screen space is top-left origin with Y down; NDC is [-1,1]² with Y up.
type Viewport struct {
	Width  float64 `json:"width" toml:"width"`
	Height float64 `json:"height" toml:"height"`
}

// Valid reports whether both dimensions are finite and positive.
func (vp Viewport) Valid() bool {
	return IsFinite(vp.Width) && IsFinite(vp.Height) && vp.Width > 0 && vp.Height > 0
}

// Portrait reports whether the viewport is taller than it is wide.
func (vp Viewport) Portrait() bool {
	return vp.Height > vp.Width
}

// ToNDC converts a screen-space pixel position to normalized device coordinates.
func (vp Viewport) ToNDC(p Vec2) Vec2 {
	return Vec2{
		X: 2*p.X/vp.Width - 1,
		Y: 1 - 2*p.Y/vp.Height,
	}
}

// FromNDC converts normalized device coordinates back to screen pixels.
func (vp Viewport) FromNDC(n Vec2) Vec2 {
	return Vec2{
		X: (n.X + 1) * 0.5 * vp.Width,
		Y: (1 - n.Y) * 0.5 * vp.Height,
	}
}
