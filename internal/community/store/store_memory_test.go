package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"commune/internal/community/models"
	"commune/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *InMemoryStore
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemoryStore()
}

func (s *InMemoryStoreSuite) TestMembers() {
	m := &models.Member{ID: uuid.New(), Email: "jane@example.org"}
	s.Require().NoError(s.store.CreateMember(s.ctx, m))

	err := s.store.CreateMember(s.ctx, &models.Member{ID: uuid.New(), Email: "jane@example.org"})
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)

	found, err := s.store.FindMemberByEmail(s.ctx, "jane@example.org")
	s.Require().NoError(err)
	s.Equal(m.ID, found.ID)

	s.Require().NoError(s.store.UpdatePasswordHash(s.ctx, m.ID, []byte("hash")))
	found, err = s.store.FindMemberByID(s.ctx, m.ID)
	s.Require().NoError(err)
	s.Equal([]byte("hash"), found.PasswordHash)

	_, err = s.store.FindMemberByID(s.ctx, uuid.New())
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.ErrorIs(s.store.UpdatePasswordHash(s.ctx, uuid.New(), nil), sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestEvents() {
	later := &models.Event{ID: uuid.New(), Title: "Picnic", StartsAt: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	sooner := &models.Event{ID: uuid.New(), Title: "Cleanup", StartsAt: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	s.Require().NoError(s.store.CreateEvent(s.ctx, later))
	s.Require().NoError(s.store.CreateEvent(s.ctx, sooner))

	events, err := s.store.ListEvents(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal("Cleanup", events[0].Title)

	e, err := s.store.AddAttendee(s.ctx, later.ID, "jane@example.org")
	s.Require().NoError(err)
	s.Equal([]string{"jane@example.org"}, e.Attendees)

	_, err = s.store.AddAttendee(s.ctx, later.ID, "jane@example.org")
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)

	_, err = s.store.AddAttendee(s.ctx, uuid.New(), "jane@example.org")
	s.ErrorIs(err, sentinel.ErrNotFound)

	// Returned events are copies.
	e.Attendees[0] = "mallory@example.org"
	stored, err := s.store.FindEvent(s.ctx, later.ID)
	s.Require().NoError(err)
	s.True(stored.Attends("jane@example.org"))
}
