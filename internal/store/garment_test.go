package store

import (
	"errors"
	"testing"

	"github.com/ayusman/drape/internal/garment"
	"github.com/ayusman/drape/testdata"
)

func TestGarmentRepository_Upsert(t *testing.T) {
	s := newTestStore(t)
	repo := s.Garments()

	meta := testdata.MustGarment("basic_tshirt")

	g, err := repo.Upsert(meta, "catalog/basic_tshirt.json")
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if g.ID != meta.ID || g.Type != meta.Type {
		t.Errorf("got %s/%s, want %s/%s", g.ID, g.Type, meta.ID, meta.Type)
	}
	if g.CreatedAt.IsZero() || g.UpdatedAt.IsZero() {
		t.Error("timestamps should be set")
	}
	if g.Metadata.Mesh.TorsoGrid != meta.Mesh.TorsoGrid {
		t.Errorf("torso grid = %v, want %v", g.Metadata.Mesh.TorsoGrid, meta.Mesh.TorsoGrid)
	}
	if g.Metadata.Anchors != meta.Anchors {
		t.Error("anchors did not round-trip")
	}

	t.Run("replaces existing", func(t *testing.T) {
		changed := *meta
		changed.Fit = garment.Fit{WidthFactor: 1.1, HeightFactor: 0.9}

		g2, err := repo.Upsert(&changed, "api")
		if err != nil {
			t.Fatalf("Upsert: %v", err)
		}
		if g2.Source != "api" {
			t.Errorf("Source = %q, want api", g2.Source)
		}
		if g2.Metadata.Fit.WidthFactor != 1.1 {
			t.Errorf("fit not replaced: %+v", g2.Metadata.Fit)
		}
		if !g2.CreatedAt.Equal(g.CreatedAt) {
			t.Errorf("CreatedAt changed on replace: %v -> %v", g.CreatedAt, g2.CreatedAt)
		}

		all, err := repo.List()
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(all) != 1 {
			t.Errorf("expected 1 garment after replace, got %d", len(all))
		}
	})

	t.Run("rejects invalid metadata", func(t *testing.T) {
		bad := *meta
		bad.ID = ""
		if _, err := repo.Upsert(&bad, "api"); !errors.Is(err, garment.ErrInvalidMetadata) {
			t.Errorf("expected ErrInvalidMetadata, got %v", err)
		}
	})
}

func TestGarmentRepository_List(t *testing.T) {
	s := newTestStore(t)
	repo := s.Garments()

	for _, name := range testdata.GarmentNames() {
		if _, err := repo.Upsert(testdata.MustGarment(name), name); err != nil {
			t.Fatalf("Upsert %s: %v", name, err)
		}
	}

	all, err := repo.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != len(testdata.GarmentNames()) {
		t.Fatalf("got %d garments, want %d", len(all), len(testdata.GarmentNames()))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].ID > all[i].ID {
			t.Errorf("list not ordered by id: %s before %s", all[i-1].ID, all[i].ID)
		}
	}
}

func TestGarmentRepository_Delete(t *testing.T) {
	s := newTestStore(t)
	repo := s.Garments()

	meta := testdata.MustGarment("basic_tshirt")
	if _, err := repo.Upsert(meta, "a.json"); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if err := repo.Delete(meta.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetByID(meta.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.Delete(meta.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestGarmentRepository_DeleteBySource(t *testing.T) {
	s := newTestStore(t)
	repo := s.Garments()

	if _, err := repo.Upsert(testdata.MustGarment("basic_tshirt"), "dir/a.json"); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Upsert(testdata.MustGarment("denim_jacket"), "dir/b.json"); err != nil {
		t.Fatal(err)
	}

	n, err := repo.DeleteBySource("dir/a.json")
	if err != nil {
		t.Fatalf("DeleteBySource: %v", err)
	}
	if n != 1 {
		t.Errorf("removed %d, want 1", n)
	}
	all, _ := repo.List()
	if len(all) != 1 || all[0].Source != "dir/b.json" {
		t.Errorf("unexpected remaining garments: %v", all)
	}
}
