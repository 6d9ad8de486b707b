package events

import (
	"context"
	"errors"
	"testing"
)

func TestPublishRunsAllHandlers(t *testing.T) {
	d := NewInMemoryDispatcher()
	var calls []string
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		calls = append(calls, "first")
		return errors.New("first failed")
	})
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(EventTicketDeleted, func(context.Context, Event) error {
		calls = append(calls, "unrelated")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventTicketCreated, TicketID: 7})
	if err == nil {
		t.Fatalf("expected joined handler error")
	}
	if len(calls) != 2 || calls[0] != "first" || calls[1] != "second" {
		t.Fatalf("calls = %v", calls)
	}
}

func TestPublishWithoutSubscribers(t *testing.T) {
	if err := NewInMemoryDispatcher().Publish(context.Background(), Event{Type: EventTicketEvaluated}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPublishSurvivesPanickingHandler(t *testing.T) {
	d := NewInMemoryDispatcher()
	var seen []EventType
	d.Subscribe(EventTicketDeleted, func(context.Context, Event) error { panic("boom") })
	d.SubscribeAll(func(_ context.Context, e Event) error {
		seen = append(seen, e.Type)
		return nil
	})

	if err := d.Publish(context.Background(), Event{Type: EventTicketDeleted}); err == nil {
		t.Fatalf("panic was not reported")
	}
	if err := d.Publish(context.Background(), Event{Type: EventTicketEvaluated}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(seen) != 2 || seen[0] != EventTicketDeleted || seen[1] != EventTicketEvaluated {
		t.Fatalf("seen = %v", seen)
	}
}
