// Package bus implements the in-process, typed publish-subscribe message bus.
//
// Each topic is single-threaded: publishers append to a per-topic queue and a
// single dispatcher goroutine drains it, invoking every subscriber's handler
// in subscription order before moving to the next message. That gives every
// subscriber of a topic the same delivery order the publisher used, on one
// thread, with no persistence and no cross-process transport.
package bus

import (
	"sync"

	"github.com/rs/zerolog"
)

// Topic names the event categories the bus carries.
type Topic string

const (
	TopicMarketData Topic = "market_data"
	TopicOrderbook  Topic = "orderbook"
	TopicTrade      Topic = "trade"
	TopicCandle     Topic = "candle"
	TopicOrder      Topic = "order"
	TopicOrderFill  Topic = "order_fill"
	TopicPosition   Topic = "position"
	TopicAccount    Topic = "account"
	TopicTick       Topic = "tick"
	TopicShutdown   Topic = "shutdown"
	TopicRunner     Topic = "runner" // strategy/backtest runner lifecycle transitions
)

// Message is one published event.
type Message struct {
	Topic   Topic
	Source  string
	Payload any
}

// Handler receives every Message published to a topic after it subscribed.
// It runs on the topic's dispatcher goroutine, not the publisher's: a slow or
// panicking handler stalls that topic, so handlers must not block for long.
type Handler func(Message)

// queueDepth bounds how far a topic's publishers can run ahead of its
// dispatcher before Publish blocks. The bus itself does not drop messages;
// callers that need a drop policy (the Data Engine's back-pressure rule)
// apply it before calling Publish.
const queueDepth = 1024

type topicDispatcher struct {
	queue chan Message

	mu          sync.RWMutex
	subscribers []*subscriber
	nextID      int
}

type subscriber struct {
	id      int
	handler Handler
}

func newTopicDispatcher() *topicDispatcher {
	d := &topicDispatcher{queue: make(chan Message, queueDepth)}
	go d.run()
	return d
}

func (d *topicDispatcher) run() {
	for msg := range d.queue {
		d.mu.RLock()
		subs := make([]*subscriber, len(d.subscribers))
		copy(subs, d.subscribers)
		d.mu.RUnlock()

		for _, sub := range subs {
			sub.handler(msg)
		}
	}
}

func (d *topicDispatcher) subscribe(handler Handler) (id int, unsubscribe func()) {
	d.mu.Lock()
	id = d.nextID
	d.nextID++
	d.subscribers = append(d.subscribers, &subscriber{id: id, handler: handler})
	d.mu.Unlock()

	return id, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		for i, sub := range d.subscribers {
			if sub.id == id {
				d.subscribers = append(d.subscribers[:i:i], d.subscribers[i+1:]...)
				return
			}
		}
	}
}

// Bus is the process-wide typed publish-subscribe hub. The zero value is not
// usable; construct with New.
type Bus struct {
	log zerolog.Logger

	mu          sync.Mutex
	dispatchers map[Topic]*topicDispatcher
}

// New constructs an empty Bus.
func New(log zerolog.Logger) *Bus {
	return &Bus{
		log:         log.With().Str("component", "message_bus").Logger(),
		dispatchers: make(map[Topic]*topicDispatcher),
	}
}

func (b *Bus) dispatcherFor(topic Topic) *topicDispatcher {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.dispatchers[topic]
	if !ok {
		d = newTopicDispatcher()
		b.dispatchers[topic] = d
	}
	return d
}

// Subscribe registers handler to receive every message published to topic
// after this call returns. It returns an Unsubscribe func; calling it does
// not interrupt a delivery already in progress.
func (b *Bus) Subscribe(topic Topic, handler Handler) (unsubscribe func()) {
	_, unsub := b.dispatcherFor(topic).subscribe(handler)
	return unsub
}

// Publish enqueues msg for delivery to every current subscriber of
// msg.Topic, in the order Publish is called for that topic. It blocks if the
// topic's dispatcher has not drained queueDepth prior messages yet.
func (b *Bus) Publish(msg Message) {
	b.dispatcherFor(msg.Topic).queue <- msg
}

// Emit is a convenience wrapper around Publish for call sites that think in
// terms of (topic, source, payload) rather than constructing a Message.
func (b *Bus) Emit(topic Topic, source string, payload any) {
	b.Publish(Message{Topic: topic, Source: source, Payload: payload})
}
