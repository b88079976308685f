package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"careledger/internal/audit"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
}

func (s *InMemoryStoreSuite) appendAt(action string, occurredAt time.Time, actorID *uuid.UUID) audit.Event {
	event, err := audit.NewEvent(action, "test event")
	require.NoError(s.T(), err)
	event.OccurredAt = occurredAt
	event.ActorID = actorID
	require.NoError(s.T(), s.store.Append(context.Background(), event))
	return event
}

func (s *InMemoryStoreSuite) TestPagination() {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		s.appendAt("Paged", base.Add(time.Duration(i)*time.Minute), nil)
	}

	page1, total, err := s.store.List(context.Background(), audit.Filter{}, audit.Page{Number: 1, Size: 10})
	s.Require().NoError(err)
	s.Equal(25, total)
	s.Len(page1, 10)

	page2, _, err := s.store.List(context.Background(), audit.Filter{}, audit.Page{Number: 2, Size: 10})
	s.Require().NoError(err)
	s.Len(page2, 10)

	page3, _, err := s.store.List(context.Background(), audit.Filter{}, audit.Page{Number: 3, Size: 10})
	s.Require().NoError(err)
	s.Len(page3, 5)

	page4, total, err := s.store.List(context.Background(), audit.Filter{}, audit.Page{Number: 4, Size: 10})
	s.Require().NoError(err)
	s.Empty(page4)
	s.Equal(25, total)

	// Most recent first across the page boundary.
	s.True(page1[0].OccurredAt.After(page1[9].OccurredAt))
	s.True(page1[9].OccurredAt.After(page2[0].OccurredAt))
}

func (s *InMemoryStoreSuite) TestDateRangeBoundariesInclusive() {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	before := s.appendAt("Range", base.Add(-time.Hour), nil)
	atStart := s.appendAt("Range", base, nil)
	middle := s.appendAt("Range", base.Add(30*time.Minute), nil)
	atEnd := s.appendAt("Range", base.Add(time.Hour), nil)
	after := s.appendAt("Range", base.Add(2*time.Hour), nil)

	from := base
	to := base.Add(time.Hour)
	items, total, err := s.store.List(context.Background(),
		audit.Filter{From: &from, To: &to},
		audit.Page{Number: 1, Size: 10},
	)
	s.Require().NoError(err)
	s.Equal(3, total)

	ids := map[uuid.UUID]bool{}
	for _, e := range items {
		ids[e.ID] = true
	}
	s.True(ids[atStart.ID], "boundary timestamp equal to start must be included")
	s.True(ids[atEnd.ID], "boundary timestamp equal to end must be included")
	s.True(ids[middle.ID])
	s.False(ids[before.ID])
	s.False(ids[after.ID])
}

func (s *InMemoryStoreSuite) TestActorAndActionFilters() {
	now := time.Now().UTC()
	actor := uuid.New()
	other := uuid.New()
	match := s.appendAt("CreateUser", now, &actor)
	s.appendAt("CreateUser", now, &other)
	s.appendAt("DeleteUser", now, &actor)
	s.appendAt("CreateUser", now, nil)

	items, total, err := s.store.List(context.Background(),
		audit.Filter{ActorID: &actor, ActionName: "CreateUser"},
		audit.Page{Number: 1, Size: 10},
	)
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Require().Len(items, 1)
	s.Equal(match.ID, items[0].ID)
}

func (s *InMemoryStoreSuite) TestOrderedMostRecentFirst() {
	base := time.Now().UTC()
	s.appendAt("First", base, nil)
	s.appendAt("Second", base.Add(time.Minute), nil)
	s.appendAt("Third", base.Add(2*time.Minute), nil)

	items, _, err := s.store.List(context.Background(), audit.Filter{}, audit.Page{Number: 1, Size: 10})
	s.Require().NoError(err)
	s.Require().Len(items, 3)
	s.Equal("Third", items[0].ActionName)
	s.Equal("Second", items[1].ActionName)
	s.Equal("First", items[2].ActionName)
}
