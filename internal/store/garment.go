package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/drape/internal/garment"
)

// Garment is a catalog entry: validated metadata plus where it came from.
type Garment struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	Source    string            `json:"source"`
	Metadata  *garment.Metadata `json:"metadata"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// GarmentRepository provides CRUD operations for the garment catalog.
type GarmentRepository struct {
	db *sql.DB
}

// Garments returns the garment repository for this store.
func (s *Store) Garments() *GarmentRepository {
	return &GarmentRepository{db: s.db}
}

// Upsert validates meta and inserts it, replacing any garment with the same
// id. CreatedAt is kept across replacements.
func (r *GarmentRepository) Upsert(meta *garment.Metadata, source string) (*Garment, error) {
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}

	now := time.Now()
	_, err = r.db.Exec(
		`INSERT INTO garments (id, type, source, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			source = excluded.source,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at`,
		meta.ID, meta.Type, source, string(data), now, now,
	)
	if err != nil {
		return nil, err
	}

	return r.GetByID(meta.ID)
}

// GetByID retrieves a garment by its ID.
func (r *GarmentRepository) GetByID(id string) (*Garment, error) {
	row := r.db.QueryRow(
		`SELECT id, type, source, metadata, created_at, updated_at
		 FROM garments WHERE id = ?`,
		id,
	)
	g, err := scanGarment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return g, nil
}

// List retrieves all garments ordered by id.
func (r *GarmentRepository) List() ([]*Garment, error) {
	rows, err := r.db.Query(
		`SELECT id, type, source, metadata, created_at, updated_at
		 FROM garments ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var garments []*Garment
	for rows.Next() {
		g, err := scanGarment(rows)
		if err != nil {
			return nil, err
		}
		garments = append(garments, g)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return garments, nil
}

// Delete removes a garment by its ID.
func (r *GarmentRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM garments WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affected(result)
}

// DeleteBySource removes every garment loaded from source and returns how
// many were removed.
func (r *GarmentRepository) DeleteBySource(source string) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM garments WHERE source = ?`, source)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGarment(s scanner) (*Garment, error) {
	g := &Garment{}
	var data string
	if err := s.Scan(&g.ID, &g.Type, &g.Source, &data, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}
	meta, err := garment.Parse([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("garment %s: %w", g.ID, err)
	}
	g.Metadata = meta
	return g, nil
}
