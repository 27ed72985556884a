package observability

import (
	"context"
	"maps"
)

// NoOpObserver discards every event.
type NoOpObserver struct{}

func (NoOpObserver) OnEvent(ctx context.Context, event Event) {}

// MultiObserver forwards each event to every observer it holds, in order.
// A workflow observer and a run observer are combined this way for the
// duration of a run.
type MultiObserver struct {
	observers []Observer
}

// NewMultiObserver skips nil observers. With nothing left it still returns a
// usable observer that drops events.
func NewMultiObserver(observers ...Observer) *MultiObserver {
	m := &MultiObserver{observers: make([]Observer, 0, len(observers))}
	for _, obs := range observers {
		if obs != nil {
			m.observers = append(m.observers, obs)
		}
	}
	return m
}

func (m *MultiObserver) OnEvent(ctx context.Context, event Event) {
	for _, obs := range m.observers {
		obs.OnEvent(ctx, event)
	}
}

// AttrObserver decorates an Observer, adding a fixed set of Data attributes
// to every event it forwards. Attributes already present on an event win.
type AttrObserver struct {
	next  Observer
	attrs map[string]any
}

// WithAttrs returns an observer that stamps attrs onto every event before
// forwarding it to next. A nil next yields a NoOpObserver.
func WithAttrs(next Observer, attrs map[string]any) Observer {
	if next == nil {
		return NoOpObserver{}
	}
	return &AttrObserver{next: next, attrs: maps.Clone(attrs)}
}

func (o *AttrObserver) OnEvent(ctx context.Context, event Event) {
	data := make(map[string]any, len(o.attrs)+len(event.Data))
	maps.Copy(data, o.attrs)
	maps.Copy(data, event.Data)
	event.Data = data
	o.next.OnEvent(ctx, event)
}
