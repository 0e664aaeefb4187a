package outbox

import (
	"context"
	"errors"
	"testing"
)

type fakeReplayStore struct {
	events   map[int64]*Event
	replayed []int64
}

func (s *fakeReplayStore) GetEventByID(ctx context.Context, eventID int64) (*Event, error) {
	e, ok := s.events[eventID]
	if !ok {
		return nil, ErrEventNotFound
	}
	copied := *e
	return &copied, nil
}

func (s *fakeReplayStore) GetFailedEvents(ctx context.Context, limit int) ([]*Event, error) {
	var out []*Event
	for _, e := range s.events {
		if e.Status == StatusFailed {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *fakeReplayStore) ReplayEvent(ctx context.Context, eventID int64) error {
	if _, ok := s.events[eventID]; !ok {
		return ErrEventNotFound
	}
	s.replayed = append(s.replayed, eventID)
	return nil
}

func TestReplayEvent(t *testing.T) {
	store := &fakeReplayStore{events: map[int64]*Event{
		4: {ID: 4, Status: StatusFailed, RetryCount: 5},
	}}
	svc := NewReplayService(store)

	event, err := svc.ReplayEvent(context.Background(), 4)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if event.Status != StatusPending || event.RetryCount != 0 {
		t.Fatalf("unexpected event after replay: %+v", event)
	}

	if _, err := svc.ReplayEvent(context.Background(), 99); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestReplayFailedEvents(t *testing.T) {
	store := &fakeReplayStore{events: map[int64]*Event{
		1: {ID: 1, Status: StatusFailed},
		2: {ID: 2, Status: StatusSent},
		3: {ID: 3, Status: StatusFailed},
	}}

	n, err := NewReplayService(store).ReplayFailedEvents(context.Background(), 10)
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if n != 2 || len(store.replayed) != 2 {
		t.Fatalf("expected 2 replayed, got %d (%v)", n, store.replayed)
	}
}
