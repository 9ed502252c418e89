// Package store adapts the database to the run-collection interfaces the
// sync core mutates through, and fans mutations out to registered
// consumers (UI bindings, rewards, statistics).
package store

import (
	"sync"

	"github.com/stridefit/stride/internal/db"
	"github.com/stridefit/stride/internal/models"
)

// Listener receives run-collection mutations. Callbacks run synchronously
// on the mutating goroutine; consumers needing real work should dispatch.
type Listener struct {
	OnRunAdded   func(run models.Run)
	OnRunUpdated func(run models.Run)
	OnRunRemoved func(id string)
}

// RunStore is the durable run collection. All mutations are serialized
// behind one mutex; reads return copies, so observers never share mutable
// state with the writer.
type RunStore struct {
	db *db.DB

	mu        sync.Mutex
	listeners []Listener
}

// New creates a run store over the database.
func New(database *db.DB) *RunStore {
	return &RunStore{db: database}
}

// Subscribe registers a mutation listener.
func (s *RunStore) Subscribe(l Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

// Add inserts a run and notifies consumers.
func (s *RunStore) Add(run *models.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.CreateRun(run); err != nil {
		return err
	}
	for _, l := range s.listeners {
		if l.OnRunAdded != nil {
			l.OnRunAdded(*run)
		}
	}
	return nil
}

// Update saves a run and notifies consumers.
func (s *RunStore) Update(run *models.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.UpdateRun(run); err != nil {
		return err
	}
	for _, l := range s.listeners {
		if l.OnRunUpdated != nil {
			l.OnRunUpdated(*run)
		}
	}
	return nil
}

// Remove deletes a run by local id and notifies consumers.
func (s *RunStore) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.DeleteRun(id); err != nil {
		return err
	}
	for _, l := range s.listeners {
		if l.OnRunRemoved != nil {
			l.OnRunRemoved(id)
		}
	}
	return nil
}

// FindByExternalID returns the run imported from the given platform
// workout, or nil.
func (s *RunStore) FindByExternalID(externalID string) (*models.Run, error) {
	return s.db.FindRunByExternalID(externalID)
}
