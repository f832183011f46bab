package store

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/google/uuid"

	"commune/internal/community/models"
	"commune/pkg/platform/sentinel"
)

// Error Contract:
// - Lookups return sentinel.ErrNotFound for unknown members or events.
// - CreateMember and AddAttendee return sentinel.ErrAlreadyUsed when the
//   member or attendance already exists.

// InMemoryStore keeps members and events in memory.
type InMemoryStore struct {
	mu      sync.RWMutex
	members map[uuid.UUID]*models.Member
	byEmail map[string]uuid.UUID
	events  map[uuid.UUID]*models.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		members: make(map[uuid.UUID]*models.Member),
		byEmail: make(map[string]uuid.UUID),
		events:  make(map[uuid.UUID]*models.Event),
	}
}

func (s *InMemoryStore) CreateMember(_ context.Context, member *models.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[member.Email]; ok {
		return fmt.Errorf("member %s: %w", member.Email, sentinel.ErrAlreadyUsed)
	}
	s.members[member.ID] = member
	s.byEmail[member.Email] = member.ID
	return nil
}

func (s *InMemoryStore) FindMemberByEmail(_ context.Context, email string) (*models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return nil, fmt.Errorf("member %s: %w", email, sentinel.ErrNotFound)
	}
	return cloneMember(s.members[id]), nil
}

func (s *InMemoryStore) FindMemberByID(_ context.Context, id uuid.UUID) (*models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[id]
	if !ok {
		return nil, fmt.Errorf("member %s: %w", id, sentinel.ErrNotFound)
	}
	return cloneMember(m), nil
}

func (s *InMemoryStore) UpdatePasswordHash(_ context.Context, id uuid.UUID, hash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[id]
	if !ok {
		return fmt.Errorf("member %s: %w", id, sentinel.ErrNotFound)
	}
	m.PasswordHash = slices.Clone(hash)
	return nil
}

func (s *InMemoryStore) CreateEvent(_ context.Context, event *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.ID] = event
	return nil
}

func (s *InMemoryStore) FindEvent(_ context.Context, id uuid.UUID) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	if !ok {
		return nil, fmt.Errorf("event %s: %w", id, sentinel.ErrNotFound)
	}
	return cloneEvent(e), nil
}

// ListEvents returns all events ordered by start time.
func (s *InMemoryStore) ListEvents(_ context.Context) ([]*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Event, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, cloneEvent(e))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartsAt.Before(out[j].StartsAt)
	})
	return out, nil
}

// AddAttendee registers email for the event. The check and the append happen
// under one lock so double confirmations cannot add an attendee twice.
func (s *InMemoryStore) AddAttendee(_ context.Context, eventID uuid.UUID, email string) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[eventID]
	if !ok {
		return nil, fmt.Errorf("event %s: %w", eventID, sentinel.ErrNotFound)
	}
	if e.Attends(email) {
		return cloneEvent(e), fmt.Errorf("attendee %s: %w", email, sentinel.ErrAlreadyUsed)
	}
	e.Attendees = append(e.Attendees, email)
	return cloneEvent(e), nil
}

func cloneMember(m *models.Member) *models.Member {
	c := *m
	c.PasswordHash = slices.Clone(m.PasswordHash)
	return &c
}

func cloneEvent(e *models.Event) *models.Event {
	c := *e
	c.Attendees = slices.Clone(e.Attendees)
	return &c
}
