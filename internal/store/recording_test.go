package store

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/ayusman/drape/internal/body"
	"github.com/ayusman/drape/internal/geom"
	"github.com/ayusman/drape/internal/pose"
)

func samplePose(wristY float64) *pose.Raw {
	var s body.Skeleton
	s[body.LeftShoulder] = geom.V(0.6, 0.3)
	s[body.RightShoulder] = geom.V(0.4, 0.3)
	s[body.LeftElbow] = geom.V(0.7, 0.4)
	s[body.RightElbow] = geom.V(0.3, 0.4)
	s[body.LeftWrist] = geom.V(0.8, wristY)
	s[body.RightWrist] = geom.V(0.2, wristY)
	s[body.LeftHip] = geom.V(0.58, 0.65)
	s[body.RightHip] = geom.V(0.42, 0.65)
	return pose.FromSkeleton(s)
}

func sampleFrames() []Frame {
	return []Frame{
		{TimestampMs: 1000, Pose: samplePose(0.6)},
		{TimestampMs: 1033, Pose: nil},
		{TimestampMs: 1066, Pose: samplePose(0.3)},
	}
}

func TestRecordingRepository_Create(t *testing.T) {
	s := newTestStore(t)
	repo := s.Recordings()

	rec := &Recording{
		ID:          uuid.New().String(),
		Name:        "arms up",
		ImageWidth:  640,
		ImageHeight: 480,
		Mirrored:    true,
	}
	if err := repo.Create(rec, sampleFrames()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.Frames != 3 || rec.DurationMs != 66 {
		t.Errorf("derived fields: frames=%d duration=%d", rec.Frames, rec.DurationMs)
	}

	got, err := repo.GetByID(rec.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != rec.Name || !got.Mirrored || got.ImageWidth != 640 || got.Frames != 3 {
		t.Errorf("header mismatch: %+v", got)
	}

	frames, err := repo.Frames(rec.ID)
	if err != nil {
		t.Fatalf("Frames: %v", err)
	}
	if len(frames) != 3 {
		t.Fatalf("got %d frames, want 3", len(frames))
	}
	for i, f := range frames {
		if f.Sequence != i {
			t.Errorf("frame %d has sequence %d", i, f.Sequence)
		}
	}
	if frames[1].Pose != nil {
		t.Error("empty frame should decode as nil pose")
	}
	want := samplePose(0.3).Points[pose.MPLeftWrist]
	if got := frames[2].Pose.Points[pose.MPLeftWrist]; got != want {
		t.Errorf("keypoint 15 = %+v, want %+v", got, want)
	}
}

func TestRecordingRepository_DuplicateRollsBack(t *testing.T) {
	s := newTestStore(t)
	repo := s.Recordings()

	rec := &Recording{ID: "dup", Name: "a", ImageWidth: 1, ImageHeight: 1}
	if err := repo.Create(rec, sampleFrames()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Create(&Recording{ID: "dup", Name: "b", ImageWidth: 1, ImageHeight: 1}, sampleFrames()); err == nil {
		t.Fatal("expected error for duplicate id")
	}

	frames, err := repo.Frames("dup")
	if err != nil {
		t.Fatalf("Frames: %v", err)
	}
	if len(frames) != 3 {
		t.Errorf("failed insert leaked frames: got %d", len(frames))
	}
}

func TestRecordingRepository_DeleteCascades(t *testing.T) {
	s := newTestStore(t)
	repo := s.Recordings()

	rec := &Recording{ID: uuid.New().String(), Name: "x", ImageWidth: 640, ImageHeight: 480}
	if err := repo.Create(rec, sampleFrames()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := repo.Delete(rec.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetByID(rec.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	var n int
	if err := s.DB().QueryRow(`SELECT COUNT(*) FROM recording_frames WHERE recording_id = ?`, rec.ID).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("%d frames left after delete", n)
	}

	if err := repo.Delete(rec.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestRecordingRepository_List(t *testing.T) {
	s := newTestStore(t)
	repo := s.Recordings()

	recs, err := repo.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("expected empty list, got %d", len(recs))
	}

	for _, name := range []string{"first", "second"} {
		if err := repo.Create(&Recording{ID: uuid.New().String(), Name: name, ImageWidth: 1, ImageHeight: 1}, nil); err != nil {
			t.Fatal(err)
		}
	}
	recs, err = repo.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 2 {
		t.Errorf("got %d recordings, want 2", len(recs))
	}
}
