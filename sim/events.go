// sim/events.go
// Copyright(c) 2025-2026 vtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/vtolsim/vtolsim/log"
)

// EventStream is a simple pub/sub queue between the tick loop and its
// consumers (telemetry, recording). Post never blocks; each subscriber
// pulls what it has not yet seen with Get. Events are values, so nothing
// a consumer does with them can reach back into the simulation.
type EventStream struct {
	mu            sync.Mutex
	events        []Event
	subscriptions map[*EventsSubscription]struct{}
	lastPost      time.Time
	warnedLong    bool
	done          chan struct{}
	lg            *log.Logger
}

type EventsSubscription struct {
	stream *EventStream
	// offset is the index in stream.events up to which this subscriber
	// has consumed events.
	offset      int
	source      string
	lastGet     time.Time
	warnedNoGet bool
}

func (e *EventsSubscription) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("offset", e.offset),
		slog.String("source", e.source),
		slog.Time("last_get", e.lastGet))
}

// MonitorInterval is how often the stream compacts itself and checks for
// subscribers that have stopped calling Get.
var MonitorInterval = 5 * time.Second

func NewEventStream(lg *log.Logger) *EventStream {
	es := &EventStream{
		subscriptions: make(map[*EventsSubscription]struct{}),
		lastPost:      time.Now(),
		done:          make(chan struct{}),
		lg:            lg,
	}
	go es.monitor()
	return es
}

// Subscribe registers a new subscriber; it will see events posted from
// now on.
func (e *EventStream) Subscribe() *EventsSubscription {
	// Remember who subscribed so a stalled consumer can be identified.
	_, fn, line, _ := runtime.Caller(1)

	e.mu.Lock()
	defer e.mu.Unlock()

	sub := &EventsSubscription{
		stream:  e,
		offset:  len(e.events),
		source:  fmt.Sprintf("%s:%d", fn, line),
		lastGet: time.Now(),
	}
	e.subscriptions[sub] = struct{}{}
	return sub
}

func (e *EventStream) monitor() {
	tick := time.NewTicker(MonitorInterval)
	defer tick.Stop()

	for {
		select {
		case <-e.done:
			return
		case <-tick.C:
		}

		e.mu.Lock()

		e.compact()

		if len(e.events) > 10000 && !e.warnedLong {
			e.lg.Warn("long event stream", slog.Int("length", len(e.events)))
			e.warnedLong = true
		}

		// Only complain about idle subscribers while events are flowing,
		// so a paused run stays quiet.
		if time.Since(e.lastPost) < MonitorInterval {
			for sub := range e.subscriptions {
				if d := time.Since(sub.lastGet); d > 2*MonitorInterval && !sub.warnedNoGet {
					e.lg.Warn("subscriber has not called Get recently",
						slog.Duration("duration", d), slog.Any("subscriber", sub))
					sub.warnedNoGet = true
				}
			}
		}

		e.mu.Unlock()
	}
}

func (e *EventsSubscription) Unsubscribe() {
	e.stream.mu.Lock()
	defer e.stream.mu.Unlock()

	if _, ok := e.stream.subscriptions[e]; !ok {
		e.stream.lg.Errorf("attempted to unsubscribe invalid subscription: %+v", e)
	}
	delete(e.stream.subscriptions, e)
}

// Post adds an event to the stream. It is dropped if no one is
// subscribed.
func (e *EventStream) Post(event Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.subscriptions) > 0 {
		e.lastPost = time.Now()
		e.events = append(e.events, event)
	}
}

// Get returns all events posted since the subscriber's previous Get.
func (e *EventsSubscription) Get() []Event {
	e.stream.mu.Lock()
	defer e.stream.mu.Unlock()

	if _, ok := e.stream.subscriptions[e]; !ok {
		e.stream.lg.Errorf("attempted to get with unregistered subscription: %+v", e)
		return nil
	}

	events := slices.Clone(e.stream.events[e.offset:])
	e.offset = len(e.stream.events)
	e.lastGet = time.Now()
	e.warnedNoGet = false

	return events
}

func (e *EventStream) Destroy() {
	e.mu.Lock()
	defer e.mu.Unlock()

	select {
	case <-e.done:
	default:
		close(e.done)
	}
	clear(e.subscriptions)
	e.events = nil
}

// compact drops events every subscriber has seen.
func (e *EventStream) compact() {
	minOffset := len(e.events)
	for sub := range e.subscriptions {
		minOffset = min(minOffset, sub.offset)
	}

	if minOffset > cap(e.events)/2 {
		n := copy(e.events, e.events[minOffset:])
		clear(e.events[n:])
		e.events = e.events[:n]

		for sub := range e.subscriptions {
			sub.offset -= minOffset
		}
		e.warnedLong = false
	}
}

func (e *EventStream) LogValue() slog.Value {
	e.mu.Lock()
	defer e.mu.Unlock()

	items := []slog.Attr{
		slog.Int("len", len(e.events)),
		slog.Int("cap", cap(e.events)),
		slog.Int("subscribers", len(e.subscriptions)),
	}
	if len(e.events) > 0 {
		items = append(items, slog.Any("last_event", e.events[len(e.events)-1]))
	}
	return slog.GroupValue(items...)
}

///////////////////////////////////////////////////////////////////////////

type EventType int

const (
	FrameEvent EventType = iota
	SubmodeChangedEvent
	WaypointAdvancedEvent
	StatusMessageEvent
	NumEventTypes
)

func (t EventType) String() string {
	if t < 0 || t >= NumEventTypes {
		return fmt.Sprintf("EventType(%d)", int(t))
	}
	return [...]string{"Frame", "SubmodeChanged", "WaypointAdvanced", "StatusMessage"}[t]
}

type Event struct {
	Type    EventType
	Tick    int64
	Frame   Frame  // for FrameEvent, and the frame at the change otherwise
	Message string // StatusMessageEvent
}

func (e Event) LogValue() slog.Value {
	attrs := []slog.Attr{slog.String("type", e.Type.String()), slog.Int64("tick", e.Tick)}
	switch e.Type {
	case SubmodeChangedEvent:
		attrs = append(attrs, slog.String("submode", e.Frame.Flags.Submode.String()))
	case WaypointAdvancedEvent:
		attrs = append(attrs, slog.Int("index", e.Frame.Track.Index))
	}
	if e.Message != "" {
		attrs = append(attrs, slog.String("message", e.Message))
	}
	return slog.GroupValue(attrs...)
}
