// Package app runs a live try-on session: camera frames go to the pose
// detector, detected poses are deformed onto the active garment, and the
// latest result is published for the preview surfaces.
package app

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/drape/internal/body"
	"github.com/ayusman/drape/internal/capture"
	"github.com/ayusman/drape/internal/deform"
	"github.com/ayusman/drape/internal/detector"
	"github.com/ayusman/drape/internal/garment"
	"github.com/ayusman/drape/internal/geom"
	"github.com/ayusman/drape/internal/logging"
	"github.com/ayusman/drape/internal/mesh"
	"github.com/ayusman/drape/internal/pose"
	"github.com/ayusman/drape/internal/store"
)

// ErrNoGarment is returned when an operation needs an active garment.
var ErrNoGarment = errors.New("no active garment")

// PoseConfig holds the landmark adapter settings that do not come from the
// camera itself.
type PoseConfig struct {
	Rotation      pose.Rotation  `toml:"rotation"`
	Scale         pose.ScaleMode `toml:"scale"`
	MinVisibility float64        `toml:"min_visibility"`
	MinKeypoints  int            `toml:"min_keypoints"`
}

// Config holds configuration options for the application.
type Config struct {
	Store    *store.Store
	Camera   capture.Config
	Detector detector.Config
	Viewport geom.Viewport
	Pose     PoseConfig
	Deform   deform.Config
	// HoldLast keeps the last good mesh on screen this long after landmarks
	// drop out. Zero clears the overlay on the first missed frame.
	HoldLast time.Duration
	// PreviewQuality is the JPEG quality of the preview stream.
	PreviewQuality int
}

// Snapshot is one published pipeline result. Snapshots are immutable once
// published.
type Snapshot struct {
	Seq       uint64         `json:"seq"`
	At        time.Time      `json:"at"`
	Held      bool           `json:"held"`
	Landmarks *body.Skeleton `json:"landmarks,omitempty"`
	Mesh      deform.Mesh    `json:"mesh"`
}

// activeGarment pairs metadata with the mesh generated from it once.
type activeGarment struct {
	meta *garment.Metadata
	mesh *mesh.Mesh
}

// App is the main application that orchestrates capture, detection and
// deformation.
type App struct {
	config   Config
	camera   capture.Camera
	detector detector.Detector
	deformer *deform.Deformer

	garment atomic.Pointer[activeGarment]
	adapter atomic.Pointer[pose.Adapter]
	latest  atomic.Pointer[Snapshot]
	preview atomic.Pointer[[]byte]
	// pubMu orders sequence numbers with stores to latest.
	pubMu    sync.Mutex
	seq      uint64
	enabled  atomic.Bool
	lastGood atomic.Int64

	frames   *latestSlot[*gocv.Mat]
	recorder *Recorder

	mu     sync.Mutex
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a new App instance with the given configuration.
func New(config Config) (*App, error) {
	deformer, err := deform.New(config.Deform)
	if err != nil {
		return nil, fmt.Errorf("deform config: %w", err)
	}
	if !config.Viewport.Valid() {
		return nil, fmt.Errorf("invalid viewport %vx%v", config.Viewport.Width, config.Viewport.Height)
	}
	if config.PreviewQuality <= 0 || config.PreviewQuality > 100 {
		config.PreviewQuality = 80
	}

	a := &App{
		config:   config,
		camera:   capture.NewCamera(config.Camera),
		deformer: deformer,
		frames:   newLatestSlot[*gocv.Mat](),
	}
	a.recorder = newRecorder(a)

	log := logging.For("app")
	if mp, err := detector.NewMediaPipeDetector(config.Detector); err == nil {
		a.detector = mp
		log.Info("using MediaPipe pose detection")
	} else {
		log.Warn("MediaPipe not available, using mock detector", "err", err)
		a.detector = detector.NewMockDetector()
	}

	w, h := a.camera.Size()
	if err := a.configureAdapter(w, h, config.Camera.Mirrored); err != nil {
		return nil, err
	}

	a.publish(nil, deform.Mesh{}, false)
	return a, nil
}

// configureAdapter rebuilds the landmark adapter for a capture size.
func (a *App) configureAdapter(width, height int, mirrored bool) error {
	ad, err := pose.NewAdapter(a.poseOptions(float64(width), float64(height), mirrored))
	if err != nil {
		return fmt.Errorf("pose adapter: %w", err)
	}
	a.adapter.Store(ad)
	return nil
}

func (a *App) poseOptions(width, height float64, mirrored bool) pose.Options {
	return pose.Options{
		ImageWidth:    width,
		ImageHeight:   height,
		Viewport:      a.config.Viewport,
		Mirrored:      mirrored,
		Rotation:      a.config.Pose.Rotation,
		Scale:         a.config.Pose.Scale,
		MinVisibility: a.config.Pose.MinVisibility,
		MinKeypoints:  a.config.Pose.MinKeypoints,
	}
}

// SetEnabled enables or disables tracking. Disabling clears the overlay.
func (a *App) SetEnabled(enabled bool) {
	if a.enabled.Swap(enabled) && !enabled {
		a.publish(nil, deform.Mesh{}, false)
	}
}

// IsEnabled returns whether tracking is currently enabled.
func (a *App) IsEnabled() bool {
	return a.enabled.Load()
}

// SetDetector sets the pose detector implementation to use. It must be
// called before Start.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// SetCamera replaces the camera. It must be called before Start.
func (a *App) SetCamera(c capture.Camera) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.camera = c
	w, h := c.Size()
	return a.configureAdapter(w, h, a.config.Camera.Mirrored)
}

// SetGarment makes meta the active garment. The mesh is generated here,
// once, and reused for every frame.
func (a *App) SetGarment(meta *garment.Metadata) error {
	if err := meta.Validate(); err != nil {
		return err
	}
	a.garment.Store(&activeGarment{meta: meta, mesh: mesh.Generate(meta)})
	logging.For("app").Info("garment active", "id", meta.ID, "type", meta.Type)

	if a.config.Store != nil {
		if err := a.config.Store.Settings().Set(store.SettingActiveGarment, meta.ID); err != nil {
			logging.For("app").Warn("persist active garment", "err", err)
		}
	}
	return nil
}

// SelectGarment activates a garment from the catalog by id.
func (a *App) SelectGarment(id string) error {
	if a.config.Store == nil {
		return ErrNoGarment
	}
	g, err := a.config.Store.Garments().GetByID(id)
	if err != nil {
		return fmt.Errorf("garment %s: %w", id, err)
	}
	return a.SetGarment(g.Metadata)
}

// NextGarment cycles to the catalog garment after the active one and
// returns its id.
func (a *App) NextGarment() (string, error) {
	if a.config.Store == nil {
		return "", ErrNoGarment
	}
	all, err := a.config.Store.Garments().List()
	if err != nil {
		return "", err
	}
	if len(all) == 0 {
		return "", ErrNoGarment
	}

	next := 0
	if cur := a.ActiveGarment(); cur != nil {
		for i, g := range all {
			if g.ID == cur.ID {
				next = (i + 1) % len(all)
				break
			}
		}
	}
	if err := a.SetGarment(all[next].Metadata); err != nil {
		return "", err
	}
	return all[next].ID, nil
}

// RestoreGarment activates the garment persisted by a previous session, if
// it is still in the catalog.
func (a *App) RestoreGarment() error {
	if a.config.Store == nil {
		return nil
	}
	id, err := a.config.Store.Settings().Get(store.SettingActiveGarment)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return a.SelectGarment(id)
}

// ActiveGarment returns the active garment metadata, or nil.
func (a *App) ActiveGarment() *garment.Metadata {
	if g := a.garment.Load(); g != nil {
		return g.meta
	}
	return nil
}

// ActiveMesh returns the generated mesh of the active garment, or nil.
func (a *App) ActiveMesh() *mesh.Mesh {
	if g := a.garment.Load(); g != nil {
		return g.mesh
	}
	return nil
}

// Deformer returns the deformer used for every frame.
func (a *App) Deformer() *deform.Deformer {
	return a.deformer
}

// Viewport returns the display viewport.
func (a *App) Viewport() geom.Viewport {
	return a.config.Viewport
}

// Process runs one estimator result through adaptation and deformation and
// publishes the outcome. It is safe to call from any goroutine.
func (a *App) Process(raw *pose.Raw) *Snapshot {
	if !a.IsEnabled() {
		return a.Latest()
	}
	a.recorder.observe(raw)
	return a.processWith(a.adapter.Load(), raw)
}

func (a *App) processWith(ad *pose.Adapter, raw *pose.Raw) *Snapshot {
	g := a.garment.Load()
	if g == nil {
		return a.Latest()
	}

	lm, ok := ad.Adapt(raw)
	if ok {
		out := a.deformer.Deform(g.mesh, &lm, g.meta, a.config.Viewport.Width, a.config.Viewport.Height)
		if !out.Empty() {
			a.lastGood.Store(time.Now().UnixNano())
			return a.publish(&lm, out, false)
		}
	}

	if a.config.HoldLast > 0 {
		prev := a.Latest()
		since := time.Since(time.Unix(0, a.lastGood.Load()))
		if prev != nil && !prev.Mesh.Empty() && since <= a.config.HoldLast {
			if prev.Held {
				return prev
			}
			return a.publish(prev.Landmarks, prev.Mesh, true)
		}
	}
	return a.publish(nil, deform.Mesh{}, false)
}

// publish stores a new immutable snapshot.
func (a *App) publish(lm *body.Skeleton, m deform.Mesh, held bool) *Snapshot {
	a.pubMu.Lock()
	defer a.pubMu.Unlock()
	a.seq++
	s := &Snapshot{
		Seq:       a.seq,
		At:        time.Now(),
		Held:      held,
		Landmarks: lm,
		Mesh:      m,
	}
	a.latest.Store(s)
	return s
}

// Latest returns the most recently published snapshot. It never returns nil
// after New.
func (a *App) Latest() *Snapshot {
	return a.latest.Load()
}

// PreviewJPEG returns the latest encoded camera frame, or nil.
func (a *App) PreviewJPEG() []byte {
	if p := a.preview.Load(); p != nil {
		return *p
	}
	return nil
}

// Recorder returns the session recorder.
func (a *App) Recorder() *Recorder {
	return a.recorder
}

// Start opens the camera and begins the capture and inference loops.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return err
	}
	w, h := a.camera.Size()
	if err := a.configureAdapter(w, h, a.config.Camera.Mirrored); err != nil {
		a.camera.Close()
		return err
	}

	a.stopCh = make(chan struct{})
	a.wg.Add(2)
	go a.captureLoop(a.stopCh, a.camera)
	go a.inferenceLoop(a.stopCh, a.detector)

	logging.For("app").Info("pipeline started", "camera", fmt.Sprintf("%dx%d@%d", w, h, a.camera.FPS()))
	return nil
}

// Stop halts the pipeline and releases resources.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		close(a.stopCh)
		a.stopCh = nil
		a.wg.Wait()
	}

	if m, ok := a.frames.Drain(); ok {
		m.Close()
	}

	log := logging.For("app")
	if err := a.camera.Close(); err != nil {
		log.Error("closing camera", "err", err)
	}
	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			log.Error("closing detector", "err", err)
		}
	}

	log.Info("pipeline stopped")
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	return a.camera
}

// Detector returns the pose detector.
func (a *App) Detector() detector.Detector {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.detector
}
