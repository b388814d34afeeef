package persistence

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNoRecord is returned by repositories when no live row matches.
	ErrNoRecord = errors.New("record not found")
	// ErrVersionConflict is returned when a conditional write lost to a concurrent one.
	ErrVersionConflict = errors.New("record version conflict")
)

// Record is the bookkeeping embedded in every persisted entity. Every mutating
// write bumps Version; rows with DeletedAt set are invisible to reads.
type Record struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
	Version   int
}

func NewRecord(now time.Time) Record {
	return Record{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
}

// Touch marks the record as written at now.
func (r *Record) Touch(now time.Time) {
	r.UpdatedAt = now
	r.Version++
}

func (r *Record) SoftDelete(now time.Time) {
	r.DeletedAt = &now
	r.Touch(now)
}

func (r Record) IsDeleted() bool {
	return r.DeletedAt != nil
}
