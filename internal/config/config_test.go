package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/drape/internal/deform"
	"github.com/ayusman/drape/internal/pose"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Server.Addr = %q, want :8080", cfg.Server.Addr)
	}
	if cfg.Pose.Rotation != pose.RotationAuto {
		t.Errorf("Pose.Rotation = %d, want auto", cfg.Pose.Rotation)
	}
	if cfg.Deform.Torso != deform.TorsoSilhouette || cfg.Deform.Sleeve != deform.SleeveRotation {
		t.Errorf("Deform strategies = %s/%s", cfg.Deform.Torso, cfg.Deform.Sleeve)
	}
	if !strings.HasSuffix(cfg.Store.Path, filepath.Join(DataDirName, "drape.db")) {
		t.Errorf("Store.Path = %q", cfg.Store.Path)
	}
	if !cfg.Camera.Mirrored {
		t.Error("expected a mirrored front camera by default")
	}
}

func TestDecode(t *testing.T) {
	input := `
hold_last = "400ms"
preview_quality = 60

[server]
addr = "127.0.0.1:9000"

[viewport]
width = 720.0
height = 1280.0

[pose]
rotation = 90
scale = "fit"

[deform]
torso = "bilinear"

[deform.silhouette]
chest_line = 0.4

[deform.sleeves]
reach = "elbow"

[detector]
model_complexity = 2
idle_timeout = "1m"

[catalog]
dir = "~/garments"
watch = false

[log]
level = "debug"
format = "json"
`
	cfg, err := Decode(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if time.Duration(cfg.HoldLast) != 400*time.Millisecond {
		t.Errorf("HoldLast = %v, want 400ms", time.Duration(cfg.HoldLast))
	}
	if cfg.PreviewQuality != 60 {
		t.Errorf("PreviewQuality = %d, want 60", cfg.PreviewQuality)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("Server.Addr = %q", cfg.Server.Addr)
	}
	if cfg.Viewport.Width != 720 || cfg.Viewport.Height != 1280 {
		t.Errorf("Viewport = %+v", cfg.Viewport)
	}
	if cfg.Pose.Rotation != pose.Rotation90 || cfg.Pose.Scale != pose.ScaleFit {
		t.Errorf("Pose = %+v", cfg.Pose)
	}
	if cfg.Deform.Torso != deform.TorsoBilinear {
		t.Errorf("Deform.Torso = %q", cfg.Deform.Torso)
	}
	if cfg.Deform.Silhouette.ChestLine != 0.4 {
		t.Errorf("ChestLine = %v, want 0.4", cfg.Deform.Silhouette.ChestLine)
	}
	// untouched keys keep their defaults
	if cfg.Deform.Silhouette.ShoulderOutward != deform.DefaultSilhouette().ShoulderOutward {
		t.Errorf("ShoulderOutward = %v, want default", cfg.Deform.Silhouette.ShoulderOutward)
	}
	if cfg.Deform.Sleeves.Reach != deform.ReachElbow {
		t.Errorf("Reach = %q", cfg.Deform.Sleeves.Reach)
	}
	if cfg.Detector.ModelComplexity != 2 || time.Duration(cfg.Detector.IdleTimeout) != time.Minute {
		t.Errorf("Detector = %+v", cfg.Detector)
	}
	if strings.HasPrefix(cfg.Catalog.Dir, "~") || !strings.HasSuffix(cfg.Catalog.Dir, "garments") {
		t.Errorf("Catalog.Dir = %q, want home-expanded", cfg.Catalog.Dir)
	}
	if cfg.Catalog.Watch {
		t.Error("Catalog.Watch = true, want false")
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v", cfg.Log)
	}

	appCfg := cfg.App(nil)
	if appCfg.HoldLast != 400*time.Millisecond {
		t.Errorf("app HoldLast = %v", appCfg.HoldLast)
	}
	if appCfg.Detector.IdleTimeout != time.Minute {
		t.Errorf("app detector IdleTimeout = %v", appCfg.Detector.IdleTimeout)
	}
	if appCfg.Viewport != cfg.Viewport {
		t.Errorf("app Viewport = %+v", appCfg.Viewport)
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "syntax", input: "[server"},
		{name: "unknown key", input: "[server]\nport = 80\n"},
		{name: "bad duration", input: `hold_last = "soon"`},
		{name: "bad viewport", input: "[viewport]\nwidth = 0.0\n"},
		{name: "unknown strategy", input: "[deform]\ntorso = \"cloth\"\n"},
		{name: "bad rotation", input: "[pose]\nrotation = 45\n"},
		{name: "bad scale", input: "[pose]\nscale = \"zoom\"\n"},
		{name: "bad quality", input: "preview_quality = 0\n"},
		{name: "negative hold", input: `hold_last = "-1s"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(strings.NewReader(tt.input)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drape.toml")
	if err := os.WriteFile(path, []byte("[tray]\nenabled = false\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Tray.Enabled {
		t.Error("Tray.Enabled = true, want false")
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	cfg := Default()
	cfg.HoldLast = Duration(2 * time.Second)
	cfg.Deform.Sleeve = deform.SleeveSkinned

	var buf bytes.Buffer
	if err := cfg.Encode(&buf); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if !strings.Contains(buf.String(), `hold_last = '2s'`) && !strings.Contains(buf.String(), `hold_last = "2s"`) {
		t.Errorf("encoded config missing hold_last:\n%s", buf.String())
	}

	back, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if back.HoldLast != cfg.HoldLast || back.Deform.Sleeve != deform.SleeveSkinned {
		t.Errorf("round trip mismatch: %+v", back)
	}
}
