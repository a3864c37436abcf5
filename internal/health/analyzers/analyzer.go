// Package analyzers implements the data health checks run over a roster
// index. Analyzers are pure: they read the index and configuration and never
// perform I/O.
package analyzers

import (
	"fmt"
	"slices"
	"sync"

	"github.com/vrwarp/locus/internal/health/models"
	"github.com/vrwarp/locus/internal/roster"
)

// Analyzer consumes a roster index and produces one result.
type Analyzer interface {
	Tag() models.Tag
	Analyze(idx *roster.Index, cfg models.Config) (models.Result, error)
}

// Registry maps tags to analyzers.
type Registry struct {
	mu        sync.RWMutex
	analyzers map[models.Tag]Analyzer
}

func NewRegistry(analyzers ...Analyzer) (*Registry, error) {
	r := &Registry{analyzers: make(map[models.Tag]Analyzer, len(analyzers))}
	for _, a := range analyzers {
		if err := r.Register(a); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Default returns a registry holding every built-in analyzer.
func Default() *Registry {
	r, err := NewRegistry(
		FamilyOrder{},
		Ghost{},
		BusFactor{},
		Velocity{},
		VolunteerWeb{},
		Recruitment{},
		Contact{},
	)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) Register(a Analyzer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tag := a.Tag()
	if _, exists := r.analyzers[tag]; exists {
		return fmt.Errorf("analyzer %q already registered", tag)
	}
	r.analyzers[tag] = a
	return nil
}

func (r *Registry) Get(tag models.Tag) (Analyzer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.analyzers[tag]
	return a, ok
}

// Tags returns registered tags in sorted order.
func (r *Registry) Tags() []models.Tag {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]models.Tag, 0, len(r.analyzers))
	for t := range r.analyzers {
		tags = append(tags, t)
	}
	slices.Sort(tags)
	return tags
}
