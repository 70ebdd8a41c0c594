package detector

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ayusman/drape/internal/body"
	"github.com/ayusman/drape/internal/geom"
	"github.com/ayusman/drape/internal/pose"
)

func TestMockDetector(t *testing.T) {
	t.Run("returns no pose by default", func(t *testing.T) {
		mock := NewMockDetector()

		p, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if p != nil {
			t.Errorf("expected nil pose, got %v", p)
		}
	})

	t.Run("returns configured pose", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetPose(TPose())

		p, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if p == nil || len(p.Points) != pose.NumKeypoints {
			t.Fatalf("expected %d keypoints, got %v", pose.NumKeypoints, p)
		}
		if mock.Calls() != 1 {
			t.Errorf("expected 1 call, got %d", mock.Calls())
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()

		expectedErr := errors.New("detection failed")
		mock.SetError(expectedErr)

		p, err := mock.Detect(nil)

		if err != expectedErr {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if p != nil {
			t.Errorf("expected nil pose when error is set, got %v", p)
		}
	})

	t.Run("Close returns nil", func(t *testing.T) {
		if err := NewMockDetector().Close(); err != nil {
			t.Errorf("expected Close to return nil, got %v", err)
		}
	})

	t.Run("implements Detector interface", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
		var _ Detector = (*MediaPipeDetector)(nil)
	})
}

func adapt(t *testing.T, raw *pose.Raw) body.Skeleton {
	t.Helper()
	a, err := pose.NewAdapter(pose.Options{
		ImageWidth: 640, ImageHeight: 480,
		Viewport: geom.Viewport{Width: 640, Height: 480},
	})
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}
	lm, ok := a.Adapt(raw)
	if !ok {
		t.Fatal("fixture pose rejected by adapter")
	}
	return lm
}

func TestArmsDownPose(t *testing.T) {
	lm := adapt(t, ArmsDownPose())

	t.Run("wrists below elbows below shoulders", func(t *testing.T) {
		for _, side := range []body.Side{body.Left, body.Right} {
			sh, el, wr := body.ArmChain(side)
			if !(lm[sh].Y < lm[el].Y && lm[el].Y < lm[wr].Y) {
				t.Errorf("%s arm not hanging: %v %v %v", side, lm[sh], lm[el], lm[wr])
			}
		}
	})

	t.Run("unmirrored camera view", func(t *testing.T) {
		if lm[body.LeftShoulder].X <= lm[body.RightShoulder].X {
			t.Error("left shoulder should be on the image right")
		}
	})
}

func TestTPose(t *testing.T) {
	lm := adapt(t, TPose())

	for _, side := range []body.Side{body.Left, body.Right} {
		sh, _, wr := body.ArmChain(side)
		if lm[wr].Y != lm[sh].Y {
			t.Errorf("%s wrist not level with shoulder: %v vs %v", side, lm[wr], lm[sh])
		}
		if geom.Dist(lm[wr], lm[sh]) < 100 {
			t.Errorf("%s arm not extended", side)
		}
	}
}

func TestParseResponse(t *testing.T) {
	t.Run("no poses", func(t *testing.T) {
		p, err := parseResponse([]byte(`{"poses":[]}` + "\n"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p != nil {
			t.Errorf("expected nil pose, got %v", p)
		}
	})

	t.Run("keeps highest score", func(t *testing.T) {
		line := `{"poses":[{"score":0.4,"points":[{"x":0.1}]},{"score":0.9,"points":[{"x":0.2,"y":0.3,"visibility":0.8}]}]}`
		p, err := parseResponse([]byte(line))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.Score != 0.9 || p.Points[0].X != 0.2 || p.Points[0].Visibility != 0.8 {
			t.Errorf("unexpected pose: %+v", p)
		}
	})

	t.Run("service error", func(t *testing.T) {
		if _, err := parseResponse([]byte(`{"error":"model load failed"}`)); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("malformed", func(t *testing.T) {
		if _, err := parseResponse([]byte("not json")); err == nil {
			t.Error("expected error")
		}
	})
}

func TestNewMediaPipeDetector(t *testing.T) {
	t.Run("explicit script", func(t *testing.T) {
		script := filepath.Join(t.TempDir(), serviceScript)
		if err := os.WriteFile(script, []byte("# stub\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		d, err := NewMediaPipeDetector(Config{Script: script})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d.config.IdleTimeout != DefaultConfig().IdleTimeout {
			t.Errorf("idle timeout not defaulted: %v", d.config.IdleTimeout)
		}
		if err := d.Close(); err != nil {
			t.Errorf("Close on unstarted detector: %v", err)
		}
	})

	t.Run("rejects empty frame", func(t *testing.T) {
		d := &MediaPipeDetector{}
		if _, err := d.Detect(nil); err == nil {
			t.Error("expected error for nil frame")
		}
	})
}
