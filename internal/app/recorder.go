package app

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/drape/internal/logging"
	"github.com/ayusman/drape/internal/pose"
	"github.com/ayusman/drape/internal/store"
)

// Recorder errors.
var (
	ErrRecording    = errors.New("already recording")
	ErrNotRecording = errors.New("not recording")
	ErrNoStore      = errors.New("no store configured")
)

// DefaultMaxRecordingFrames caps a recording at about two minutes of 30 FPS.
const DefaultMaxRecordingFrames = 3600

// Recorder captures the raw estimator results of the live session so they
// can be replayed against other garments or settings.
type Recorder struct {
	app       *App
	maxFrames int

	mu     sync.Mutex
	active bool
	name   string
	start  time.Time
	frames []store.Frame
}

func newRecorder(a *App) *Recorder {
	return &Recorder{app: a, maxFrames: DefaultMaxRecordingFrames}
}

// Start begins a new recording.
func (r *Recorder) Start(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active {
		return ErrRecording
	}
	if name == "" {
		name = time.Now().Format("2006-01-02 15:04:05")
	}
	r.active = true
	r.name = name
	r.start = time.Now()
	r.frames = r.frames[:0]

	logging.For("recorder").Info("recording started", "name", name)
	return nil
}

// Active reports whether a recording is in progress.
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// observe appends raw to the recording in progress. Frames past the cap
// are discarded.
func (r *Recorder) observe(raw *pose.Raw) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active || len(r.frames) >= r.maxFrames {
		return
	}
	r.frames = append(r.frames, store.Frame{
		TimestampMs: time.Since(r.start).Milliseconds(),
		Pose:        raw,
	})
}

// Stop ends the recording and saves it.
func (r *Recorder) Stop() (*store.Recording, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active {
		return nil, ErrNotRecording
	}
	r.active = false

	st := r.app.config.Store
	if st == nil {
		return nil, ErrNoStore
	}

	opts := r.app.adapter.Load().Options()
	rec := &store.Recording{
		ID:          uuid.New().String(),
		Name:        r.name,
		ImageWidth:  opts.ImageWidth,
		ImageHeight: opts.ImageHeight,
		Mirrored:    opts.Mirrored,
	}
	if err := st.Recordings().Create(rec, r.frames); err != nil {
		return nil, fmt.Errorf("save recording: %w", err)
	}
	r.frames = nil

	logging.For("recorder").Info("recording saved", "id", rec.ID, "frames", rec.Frames, "duration", time.Duration(rec.DurationMs)*time.Millisecond)
	return rec, nil
}
