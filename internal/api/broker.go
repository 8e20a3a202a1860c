package api

import (
	"sync"
)

// SSEEvent is one server-sent event on a dataset's circuit stream.
type SSEEvent struct {
	Type string
	Data map[string]any
}

// Broker is the in-memory event fan-out, keyed by dataset ID.
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan SSEEvent]struct{} // datasetId -> set of channels
}

func NewBroker() *Broker {
	return &Broker{subs: map[string]map[chan SSEEvent]struct{}{}}
}

func (b *Broker) Subscribe(datasetID string) chan SSEEvent {
	ch := make(chan SSEEvent, 8)
	b.mu.Lock()
	if b.subs[datasetID] == nil {
		b.subs[datasetID] = map[chan SSEEvent]struct{}{}
	}
	b.subs[datasetID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(datasetID string, ch chan SSEEvent) {
	b.mu.Lock()
	if m := b.subs[datasetID]; m != nil {
		delete(m, ch)
		if len(m) == 0 {
			delete(b.subs, datasetID)
		}
	}
	b.mu.Unlock()
	close(ch)
}

func (b *Broker) Publish(datasetID string, evt SSEEvent) {
	b.mu.Lock()
	m := b.subs[datasetID]
	for ch := range m {
		select {
		case ch <- evt:
		default:
		}
	}
	b.mu.Unlock()
}
