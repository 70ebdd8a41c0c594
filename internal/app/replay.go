package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ayusman/drape/internal/deform"
	"github.com/ayusman/drape/internal/garment"
	"github.com/ayusman/drape/internal/mesh"
	"github.com/ayusman/drape/internal/pose"
)

// ReplayOptions controls Replay.
type ReplayOptions struct {
	// GarmentID selects a catalog garment; empty uses the active one.
	GarmentID string
	// Realtime paces frames by their recorded timestamps.
	Realtime bool
	// Publish makes each replayed frame the live snapshot.
	Publish bool
}

// ReplayFrame is the deformation result for one recorded frame.
type ReplayFrame struct {
	Sequence    int         `json:"sequence"`
	TimestampMs int64       `json:"timestampMs"`
	Detected    bool        `json:"detected"`
	Mesh        deform.Mesh `json:"mesh"`
}

// Replay deforms every frame of a stored recording and passes the results
// to fn in order. It stops early if fn returns an error or ctx is done.
func (a *App) Replay(ctx context.Context, recordingID string, opts ReplayOptions, fn func(ReplayFrame) error) error {
	st := a.config.Store
	if st == nil {
		return ErrNoStore
	}

	meta, m, err := a.replayGarment(opts.GarmentID)
	if err != nil {
		return err
	}

	rec, err := st.Recordings().GetByID(recordingID)
	if err != nil {
		return fmt.Errorf("recording %s: %w", recordingID, err)
	}
	frames, err := st.Recordings().Frames(recordingID)
	if err != nil {
		return fmt.Errorf("recording %s frames: %w", recordingID, err)
	}

	ad, err := pose.NewAdapter(a.poseOptions(rec.ImageWidth, rec.ImageHeight, rec.Mirrored))
	if err != nil {
		return fmt.Errorf("recording %s: %w", recordingID, err)
	}

	vp := a.config.Viewport
	start := time.Now()
	for _, f := range frames {
		if opts.Realtime {
			wait := time.Duration(f.TimestampMs)*time.Millisecond - time.Since(start)
			if wait > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(wait):
				}
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		out := ReplayFrame{Sequence: f.Sequence, TimestampMs: f.TimestampMs}
		if lm, ok := ad.Adapt(f.Pose); ok {
			out.Mesh = a.deformer.Deform(m, &lm, meta, vp.Width, vp.Height)
			out.Detected = !out.Mesh.Empty()
			if opts.Publish {
				a.publish(&lm, out.Mesh, false)
			}
		} else if opts.Publish {
			a.publish(nil, deform.Mesh{}, false)
		}

		if err := fn(out); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) replayGarment(id string) (*garment.Metadata, *mesh.Mesh, error) {
	if id == "" {
		g := a.garment.Load()
		if g == nil {
			return nil, nil, ErrNoGarment
		}
		return g.meta, g.mesh, nil
	}
	g, err := a.config.Store.Garments().GetByID(id)
	if err != nil {
		return nil, nil, fmt.Errorf("garment %s: %w", id, err)
	}
	return g.Metadata, mesh.Generate(g.Metadata), nil
}
