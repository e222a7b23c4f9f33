package store

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Memory keeps fiches for the lifetime of the process.
type Memory struct {
	mu        sync.RWMutex
	fiches    []Fiche
	byID      map[uuid.UUID]int
	artifacts map[uuid.UUID][]Artifact
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		byID:      make(map[uuid.UUID]int),
		artifacts: make(map[uuid.UUID][]Artifact),
	}
}

func (m *Memory) SaveFiche(ctx context.Context, f *Fiche) error {
	stamp(&f.ID, &f.CreatedAt)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byID[f.ID]; exists {
		return fmt.Errorf("fiche %s already exists", f.ID)
	}
	m.byID[f.ID] = len(m.fiches)
	m.fiches = append(m.fiches, cloneFiche(*f))
	return nil
}

func (m *Memory) ListFiches(ctx context.Context) ([]Fiche, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Fiche, 0, len(m.fiches))
	for i := len(m.fiches) - 1; i >= 0; i-- {
		out = append(out, cloneFiche(m.fiches[i]))
	}
	slices.SortStableFunc(out, func(a, b Fiche) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func (m *Memory) GetFiche(ctx context.Context, id uuid.UUID) (Fiche, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, ok := m.byID[id]
	if !ok {
		return Fiche{}, fmt.Errorf("fiche %s: %w", id, ErrNotFound)
	}
	return cloneFiche(m.fiches[i]), nil
}

func (m *Memory) SaveArtifact(ctx context.Context, a *Artifact) error {
	stamp(&a.ID, &a.CreatedAt)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byID[a.FicheID]; !ok {
		return fmt.Errorf("fiche %s: %w", a.FicheID, ErrNotFound)
	}
	m.artifacts[a.FicheID] = append(m.artifacts[a.FicheID], *a)
	return nil
}

func (m *Memory) ListArtifacts(ctx context.Context, ficheID uuid.UUID) ([]Artifact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := m.artifacts[ficheID]
	out := make([]Artifact, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		out = append(out, list[i])
	}
	slices.SortStableFunc(out, func(a, b Artifact) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func cloneFiche(f Fiche) Fiche {
	f.Fields = maps.Clone(f.Fields)
	return f
}
