// Package memory is the in-process visit store used in development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-trade-client/internal/domain"
)

type VisitStore struct {
	mu     sync.Mutex
	visits map[string]domain.Visit
	now    func() time.Time
}

func NewVisitStore() *VisitStore {
	return &VisitStore{visits: make(map[string]domain.Visit), now: time.Now}
}

func (s *VisitStore) Put(_ context.Context, v *domain.Visit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	s.visits[v.VisitID] = *v
	return nil
}

func (s *VisitStore) Get(_ context.Context, visitID string) (*domain.Visit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.lookup(visitID)
	if !ok {
		return nil, fmt.Errorf("visit not found: %w", domain.ErrNotFound)
	}
	return &v, nil
}

func (s *VisitStore) Update(_ context.Context, visitID string, u domain.VisitUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.lookup(visitID)
	if !ok {
		return fmt.Errorf("visit not found: %w", domain.ErrNotFound)
	}
	u.Apply(&v)
	s.visits[visitID] = v
	return nil
}

func (s *VisitStore) Delete(_ context.Context, visitID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.visits, visitID)
	return nil
}

// lookup returns a live visit, dropping it when expired. Caller holds mu.
func (s *VisitStore) lookup(visitID string) (domain.Visit, bool) {
	v, ok := s.visits[visitID]
	if !ok {
		return v, false
	}
	if v.Expired(s.now()) {
		delete(s.visits, visitID)
		return v, false
	}
	return v, true
}

// sweep drops expired visits. Caller holds mu.
func (s *VisitStore) sweep() {
	now := s.now()
	for id, v := range s.visits {
		if v.Expired(now) {
			delete(s.visits, id)
		}
	}
}
