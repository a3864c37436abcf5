// Package store keeps open review decisions in memory. Decisions are
// discarded once applied or rejected.
package store

import (
	"context"
	"slices"
	"sync"

	"github.com/vrwarp/locus/internal/review/models"
	id "github.com/vrwarp/locus/pkg/domain"
	"github.com/vrwarp/locus/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu        sync.RWMutex
	decisions map[id.DecisionID]*models.Decision
}

func New() *InMemoryStore {
	return &InMemoryStore{decisions: make(map[id.DecisionID]*models.Decision)}
}

// Save inserts or replaces a decision. The store keeps its own copy.
func (s *InMemoryStore) Save(_ context.Context, d *models.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *d
	s.decisions[d.ID] = &cp
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, decisionID id.DecisionID) (*models.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.decisions[decisionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

// FindOpen returns the unresolved decision for a person field, if any.
func (s *InMemoryStore) FindOpen(_ context.Context, personID, field string) (*models.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.decisions {
		if d.PersonID == personID && d.Field == field && d.State.Open() {
			cp := *d
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// List returns decisions oldest first.
func (s *InMemoryStore) List(_ context.Context) ([]*models.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Decision, 0, len(s.decisions))
	for _, d := range s.decisions {
		cp := *d
		out = append(out, &cp)
	}
	slices.SortFunc(out, func(a, b *models.Decision) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		switch {
		case a.ID.String() < b.ID.String():
			return -1
		case a.ID.String() > b.ID.String():
			return 1
		}
		return 0
	})
	return out, nil
}

func (s *InMemoryStore) Delete(_ context.Context, decisionID id.DecisionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.decisions[decisionID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.decisions, decisionID)
	return nil
}
