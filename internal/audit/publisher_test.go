package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
)

// blockingStore holds Append until released, to fill the publisher queue.
type blockingStore struct {
	*InMemoryStore
	gate chan struct{}
}

func (s *blockingStore) Append(ctx context.Context, event Event) error {
	<-s.gate
	return s.InMemoryStore.Append(ctx, event)
}

type PublisherSuite struct {
	suite.Suite
	ctx context.Context
}

func TestPublisherSuite(t *testing.T) {
	suite.Run(t, new(PublisherSuite))
}

func (s *PublisherSuite) SetupTest() {
	s.ctx = context.Background()
}

func (s *PublisherSuite) TestEmitReachesSinkAfterClose() {
	sink := NewInMemoryStore()
	p := NewPublisher(sink)

	for i := 0; i < 5; i++ {
		s.Require().NoError(p.Emit(s.ctx, Event{
			PrincipalID: "p1",
			Action:      string(EventApplicationSubmitted),
		}))
	}
	p.Close()

	events, err := p.List(s.ctx, "p1")
	s.Require().NoError(err)
	s.Len(events, 5)
	for _, ev := range events {
		s.False(ev.Timestamp.IsZero())
	}
	s.Zero(p.Dropped())
}

func (s *PublisherSuite) TestFullQueueDropsInsteadOfBlocking() {
	sink := &blockingStore{
		InMemoryStore: NewInMemoryStore(),
		gate:          make(chan struct{}),
	}
	p := NewPublisher(sink, WithQueueSize(1))

	// One event may be in the drain goroutine's hands and one in the queue;
	// everything beyond that must drop without blocking.
	for i := 0; i < 10; i++ {
		s.Require().NoError(p.Emit(s.ctx, Event{PrincipalID: "p1", Action: "x"}))
	}
	s.GreaterOrEqual(p.Dropped(), int64(8))

	close(sink.gate)
	p.Close()
}

func (s *PublisherSuite) TestCloseIsIdempotent() {
	p := NewPublisher(NewInMemoryStore())
	p.Close()
	p.Close()
}
