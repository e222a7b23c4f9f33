// Package store persists generated fiches and their derived artifacts.
//
// Writes are append-only: a fiche is never updated once saved, and each new
// sourcing query or outreach email is stored as a new artifact row.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a fiche does not exist.
var ErrNotFound = errors.New("not found")

// ArtifactKind names a document derived from a fiche.
type ArtifactKind string

const (
	KindSourcingQuery ArtifactKind = "sourcing_query"
	KindOutreachEmail ArtifactKind = "outreach_email"
)

// Fiche is a generated job description.
type Fiche struct {
	ID        uuid.UUID         `json:"id"`
	Title     string            `json:"title"`
	Content   string            `json:"content"`
	Fields    map[string]string `json:"fields"`
	Line      int               `json:"line"`
	Prompt    string            `json:"prompt,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

// Location returns the fiche's location field, if any.
func (f Fiche) Location() string {
	return f.Fields["Location"]
}

// Artifact is a sourcing query or outreach email attached to a fiche.
type Artifact struct {
	ID        uuid.UUID    `json:"id"`
	FicheID   uuid.UUID    `json:"ficheId"`
	Kind      ArtifactKind `json:"kind"`
	Content   string       `json:"content"`
	CreatedAt time.Time    `json:"createdAt"`
}

// Store is the persistence contract used by the service.
type Store interface {
	SaveFiche(ctx context.Context, f *Fiche) error
	// ListFiches returns fiches newest first.
	ListFiches(ctx context.Context) ([]Fiche, error)
	GetFiche(ctx context.Context, id uuid.UUID) (Fiche, error)
	SaveArtifact(ctx context.Context, a *Artifact) error
	// ListArtifacts returns a fiche's artifacts newest first.
	ListArtifacts(ctx context.Context, ficheID uuid.UUID) ([]Artifact, error)
}

// stamp fills the ID and timestamp of a record about to be saved.
func stamp(id *uuid.UUID, at *time.Time) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
	if at.IsZero() {
		*at = time.Now().UTC()
	}
}
