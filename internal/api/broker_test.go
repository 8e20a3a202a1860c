package api

import (
	"testing"
	"time"
)

func TestBrokerPublishSubscribe(t *testing.T) {
	b := NewBroker()
	id := "ds1"
	ch := b.Subscribe(id)

	evt := SSEEvent{Type: "circuit.solved", Data: map[string]any{"circuitId": "c1"}}
	b.Publish(id, evt)

	select {
	case got := <-ch:
		if got.Type != evt.Type {
			t.Fatalf("got type %s, want %s", got.Type, evt.Type)
		}
		if got.Data["circuitId"].(string) != "c1" {
			t.Fatalf("bad payload: %+v", got.Data)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}

	b.Unsubscribe(id, ch)
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("channel should be closed after unsubscribe")
		}
	case <-time.After(50 * time.Millisecond):
		// acceptable if already drained and closed
	}
}

func TestBrokerIsolatesDatasets(t *testing.T) {
	b := NewBroker()
	ch1 := b.Subscribe("ds1")
	ch2 := b.Subscribe("ds2")
	defer b.Unsubscribe("ds1", ch1)
	defer b.Unsubscribe("ds2", ch2)

	b.Publish("ds1", SSEEvent{Type: "circuit.solved"})
	select {
	case <-ch2:
		t.Fatal("event leaked to another dataset's subscribers")
	default:
	}
	select {
	case <-ch1:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("subscriber missed its dataset's event")
	}
}
