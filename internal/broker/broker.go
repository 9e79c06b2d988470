// Package broker is a minimal in-process topic broker used to fan applied
// telemetry out to interested consumers (the websocket relay, tests).
package broker

import "sync"

// Broker delivers messages of type T to per-topic buffered channels.
// Publishing never blocks: when a topic buffer is full the message is
// dropped, which is acceptable for live-view fan-out where a slow consumer
// must not stall the telemetry pump.
type Broker[T any] struct {
	mu          sync.RWMutex
	topics      map[string]chan T
	maxSizeChan uint
}

func New[T any](maxCountMsgInTopic uint) *Broker[T] {
	return &Broker[T]{
		topics:      make(map[string]chan T),
		maxSizeChan: maxCountMsgInTopic,
	}
}

// Publish sends msg to the topic, creating it on first use. Returns false
// if the message was dropped because the topic buffer is full.
func (b *Broker[T]) Publish(topic string, msg T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.topics[topic]
	if !ok {
		ch = make(chan T, b.maxSizeChan)
		b.topics[topic] = ch
	}

	// The send stays under the lock so a concurrent CloseTopic cannot close
	// the channel mid-publish. The send itself never blocks.
	select {
	case ch <- msg:
		return true
	default:
		return false
	}
}

// Subscribe returns the receive channel for a topic, creating it on first
// use. All subscribers of one topic share the channel.
func (b *Broker[T]) Subscribe(topic string) <-chan T {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.topics[topic]; !ok {
		b.topics[topic] = make(chan T, b.maxSizeChan)
	}
	return b.topics[topic]
}

// CloseTopic closes and forgets a topic. Pending messages remain readable
// until the channel drains.
func (b *Broker[T]) CloseTopic(topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.topics[topic]; ok {
		close(ch)
	}
	delete(b.topics, topic)
}
