// Package config loads the drape TOML configuration file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"

	"github.com/ayusman/drape/internal/app"
	"github.com/ayusman/drape/internal/capture"
	"github.com/ayusman/drape/internal/deform"
	"github.com/ayusman/drape/internal/detector"
	"github.com/ayusman/drape/internal/geom"
	"github.com/ayusman/drape/internal/logging"
	"github.com/ayusman/drape/internal/pose"
	"github.com/ayusman/drape/internal/store"
)

// DataDirName is the per-user directory under $HOME holding the database,
// the garment catalog and the web UI.
const DataDirName = ".drape"

// Duration is a time.Duration written in TOML as a string such as "250ms".
type Duration time.Duration

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// ServerConfig is the [server] section.
type ServerConfig struct {
	Addr      string `toml:"addr"`
	StaticDir string `toml:"static_dir"`
}

// StoreConfig is the [store] section.
type StoreConfig struct {
	Path string `toml:"path"`
}

// CatalogConfig is the [catalog] section.
type CatalogConfig struct {
	// Dir holds one garment metadata JSON file per garment.
	Dir string `toml:"dir"`
	// Watch reloads garments when files in Dir change.
	Watch bool `toml:"watch"`
	// Garment is activated at startup, overriding the last session's choice.
	Garment string `toml:"garment"`
}

// TrayConfig is the [tray] section.
type TrayConfig struct {
	Enabled bool `toml:"enabled"`
}

// DetectorConfig is the [detector] section.
type DetectorConfig struct {
	ModelComplexity int      `toml:"model_complexity"`
	MinConfidence   float64  `toml:"min_confidence"`
	MinTrackingConf float64  `toml:"min_tracking_confidence"`
	Script          string   `toml:"script"`
	Python          string   `toml:"python"`
	IdleTimeout     Duration `toml:"idle_timeout"`
}

// Config is the complete file configuration. Top-level keys tune the live
// session; every other concern has its own table.
type Config struct {
	// HoldLast keeps the last mesh on screen this long after tracking is lost.
	HoldLast       Duration `toml:"hold_last"`
	PreviewQuality int      `toml:"preview_quality"`

	Server   ServerConfig   `toml:"server"`
	Camera   capture.Config `toml:"camera"`
	Viewport geom.Viewport  `toml:"viewport"`
	Pose     app.PoseConfig `toml:"pose"`
	Deform   deform.Config  `toml:"deform"`
	Detector DetectorConfig `toml:"detector"`
	Store    StoreConfig    `toml:"store"`
	Catalog  CatalogConfig  `toml:"catalog"`
	Log      logging.Config `toml:"log"`
	Tray     TrayConfig     `toml:"tray"`
}

// DataDir returns ~/.drape, or .drape when the home directory is unknown.
func DataDir() string {
	home, err := homedir.Dir()
	if err != nil {
		return DataDirName
	}
	return filepath.Join(home, DataDirName)
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	dir := DataDir()
	det := detector.DefaultConfig()
	return &Config{
		HoldLast:       Duration(150 * time.Millisecond),
		PreviewQuality: 80,
		Server:         ServerConfig{Addr: ":8080"},
		Camera:         capture.DefaultConfig(),
		Viewport:       geom.Viewport{Width: 1080, Height: 1920},
		Pose: app.PoseConfig{
			Rotation:      pose.RotationAuto,
			Scale:         pose.ScaleFill,
			MinVisibility: pose.DefaultMinVisibility,
			MinKeypoints:  pose.DefaultMinKeypoints,
		},
		Deform: deform.DefaultConfig(),
		Detector: DetectorConfig{
			ModelComplexity: det.ModelComplexity,
			MinConfidence:   det.MinConfidence,
			MinTrackingConf: det.MinTrackingConf,
			IdleTimeout:     Duration(det.IdleTimeout),
		},
		Store:   StoreConfig{Path: filepath.Join(dir, "drape.db")},
		Catalog: CatalogConfig{Dir: filepath.Join(dir, "garments"), Watch: true},
		Log:     logging.DefaultConfig(),
		Tray:    TrayConfig{Enabled: true},
	}
}

// Load reads path over the defaults. Unknown keys are an error so typos do
// not silently fall back to defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Decode reads TOML from r over the defaults and validates the result.
func Decode(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := toml.NewDecoder(r).DisallowUnknownFields().Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, errors.New(strict.String())
		}
		return nil, err
	}
	cfg.expandPaths()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Encode writes cfg as TOML.
func (c *Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// Validate reports settings the application cannot start with.
func (c *Config) Validate() error {
	if !c.Viewport.Valid() {
		return fmt.Errorf("viewport: invalid size %vx%v", c.Viewport.Width, c.Viewport.Height)
	}
	if err := c.Deform.Validate(); err != nil {
		return fmt.Errorf("deform: %w", err)
	}
	opts := pose.Options{
		ImageWidth:  1,
		ImageHeight: 1,
		Viewport:    c.Viewport,
		Rotation:    c.Pose.Rotation,
		Scale:       c.Pose.Scale,
	}
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("pose: %w", err)
	}
	if c.PreviewQuality < 1 || c.PreviewQuality > 100 {
		return fmt.Errorf("preview_quality must be within 1-100, got %d", c.PreviewQuality)
	}
	if c.HoldLast < 0 {
		return errors.New("hold_last must not be negative")
	}
	if c.Camera.FPS < 0 || c.Camera.Width < 0 || c.Camera.Height < 0 {
		return errors.New("camera: size and fps must not be negative")
	}
	if c.Store.Path == "" {
		return errors.New("store: path is required")
	}
	return nil
}

// App returns the session configuration for st.
func (c *Config) App(st *store.Store) app.Config {
	return app.Config{
		Store:  st,
		Camera: c.Camera,
		Detector: detector.Config{
			ModelComplexity: c.Detector.ModelComplexity,
			MinConfidence:   c.Detector.MinConfidence,
			MinTrackingConf: c.Detector.MinTrackingConf,
			Script:          c.Detector.Script,
			Python:          c.Detector.Python,
			IdleTimeout:     time.Duration(c.Detector.IdleTimeout),
		},
		Viewport:       c.Viewport,
		Pose:           c.Pose,
		Deform:         c.Deform,
		HoldLast:       time.Duration(c.HoldLast),
		PreviewQuality: c.PreviewQuality,
	}
}

func (c *Config) expandPaths() {
	for _, p := range []*string{&c.Store.Path, &c.Catalog.Dir, &c.Server.StaticDir, &c.Detector.Script} {
		*p = expandHome(*p)
	}
}

// expandHome replaces a leading "~" with the user's home directory. Paths
// that cannot be expanded are returned unchanged.
func expandHome(p string) string {
	expanded, err := homedir.Expand(p)
	if err != nil {
		return p
	}
	return expanded
}
