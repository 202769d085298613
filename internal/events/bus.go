/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package events

import "sync"

// EventType enumerates event categories.
type EventType string

const (
	EventAdBooked         EventType = "ad.booked"
	EventAdCancelled      EventType = "ad.cancelled"
	EventAdPlaying        EventType = "ad.playing"
	EventAdCompleted      EventType = "ad.completed"
	EventAdPlaybackFailed EventType = "ad.playback_failed"

	EventMusicRequested  EventType = "music.requested"
	EventMusicGenerating EventType = "music.generating"
	EventMusicCompleted  EventType = "music.completed"
	EventMusicFailed     EventType = "music.failed"

	// Show timer transitions
	EventShowStart   EventType = "show.start"
	EventShowEnd     EventType = "show.end"
	EventSlotTrigger EventType = "show.slot_trigger"

	EventLeaderChange EventType = "leader.change"
)

// StreamTypes lists the event types forwarded to websocket clients.
var StreamTypes = []EventType{
	EventAdBooked,
	EventAdCancelled,
	EventAdPlaying,
	EventAdCompleted,
	EventAdPlaybackFailed,
	EventMusicRequested,
	EventMusicGenerating,
	EventMusicCompleted,
	EventMusicFailed,
	EventShowStart,
	EventShowEnd,
	EventSlotTrigger,
}

// Payload generic event payload.
type Payload map[string]any

// Subscriber receives event payloads.
type Subscriber chan Payload

// Bus implements a simple in-process pubsub.
type Bus struct {
	mu   sync.RWMutex
	subs map[EventType][]Subscriber
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[EventType][]Subscriber)}
}

// Subscribe registers a subscriber for event type.
func (b *Bus) Subscribe(eventType EventType) Subscriber {
	ch := make(Subscriber, 8)
	b.mu.Lock()
	b.subs[eventType] = append(b.subs[eventType], ch)
	b.mu.Unlock()
	return ch
}

// Publish sends payload to subscribers without blocking; a subscriber whose
// buffer is full misses the event. The read lock is held across sends so a
// concurrent Unsubscribe cannot close a channel mid-send.
func (b *Bus) Publish(eventType EventType, payload Payload) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs[eventType] {
		select {
		case sub <- payload:
		default:
		}
	}
}

// Unsubscribe removes the subscriber.
func (b *Bus) Unsubscribe(eventType EventType, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[eventType]
	for i, candidate := range subs {
		if candidate == sub {
			subs = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	b.subs[eventType] = subs
	close(sub)
}
