package notify

import (
	"testing"
	"time"

	"github.com/sloked-go/sloked/internal/position"
	"github.com/sloked-go/sloked/internal/transaction"
)

func recv(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for an event")
		return Event{}
	}
}

func TestSubscribeReceivesBroadcast(t *testing.T) {
	h := NewHub(4)
	_, ch := h.Subscribe()

	h.TaggerUpdate(position.Position{Line: 0, Column: 0}, position.Position{Line: 0, Column: 5})

	e := recv(t, ch)
	if e.Source != SourceTagger {
		t.Fatalf("Source = %v, want %v", e.Source, SourceTagger)
	}
	if e.End != (position.Position{Line: 0, Column: 5}) {
		t.Fatalf("End = %+v, want {0 5}", e.End)
	}
}

func TestUnsubscribeClosesChannelAndStopsDelivery(t *testing.T) {
	h := NewHub(4)
	id, ch := h.Subscribe()
	h.Unsubscribe(id)

	h.TaggerUpdate(position.Position{}, position.Position{})

	_, ok := <-ch
	if ok {
		t.Fatalf("expected channel to be closed after Unsubscribe")
	}
}

func TestBroadcastFansOutToEverySubscriber(t *testing.T) {
	h := NewHub(4)
	_, a := h.Subscribe()
	_, b := h.Subscribe()

	h.TaggerUpdate(position.Position{}, position.Position{})

	recv(t, a)
	recv(t, b)
}

func TestBroadcastDropsForFullSubscriberBuffer(t *testing.T) {
	h := NewHub(1)
	_, ch := h.Subscribe()

	h.TaggerUpdate(position.Position{}, position.Position{Column: 1})
	h.TaggerUpdate(position.Position{}, position.Position{Column: 2}) // buffer full, dropped

	e := recv(t, ch)
	if e.End.Column != 1 {
		t.Fatalf("expected only the first event to have been buffered, got End.Column=%d", e.End.Column)
	}
	select {
	case <-ch:
		t.Fatalf("expected no second event to be queued")
	default:
	}
}

func TestContentListenerFiresOnCommitRollbackAndRevert(t *testing.T) {
	h := NewHub(8)
	_, ch := h.Subscribe()
	listener := h.ContentListener()

	tx := transaction.NewInsert(position.Position{}, "x")
	listener.OnCommit(tx)
	listener.OnRollback(tx)
	listener.OnRevert(tx)

	for i := 0; i < 3; i++ {
		e := recv(t, ch)
		if e.Source != SourceContent {
			t.Fatalf("event %d Source = %v, want %v", i, e.Source, SourceContent)
		}
	}
}
