package valve

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/calyxforge/valveclient/logparse"
)

// dispatcher fans a parsed Event out to per-type subscribers plus a set
// of catch-all subscribers, and routes any parse failure to an
// exception callback rather than ever panicking the caller.
type dispatcher struct {
	mu        sync.RWMutex
	typed     map[logparse.EventType][]func(logparse.Event)
	catchAll  []func(logparse.Event)
	exception func(error)
}

func newDispatcher() *dispatcher {
	return &dispatcher{
		typed:     map[logparse.EventType][]func(logparse.Event){},
		exception: func(error) {},
	}
}

func (d *dispatcher) subscribe(eventType logparse.EventType, fn func(logparse.Event)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.typed[eventType] = append(d.typed[eventType], fn)
	index := len(d.typed[eventType]) - 1

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()

		handlers := d.typed[eventType]
		if index < len(handlers) {
			handlers[index] = nil
		}
	}
}

func (d *dispatcher) subscribeAll(fn func(logparse.Event)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.catchAll = append(d.catchAll, fn)
	index := len(d.catchAll) - 1

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()

		if index < len(d.catchAll) {
			d.catchAll[index] = nil
		}
	}
}

func (d *dispatcher) onException(fn func(error)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if fn == nil {
		fn = func(error) {}
	}

	d.exception = fn
}

func (d *dispatcher) emit(event logparse.Event) {
	d.mu.RLock()
	handlers := append([]func(logparse.Event){}, d.typed[event.Type]...)
	handlers = append(handlers, d.catchAll...)
	d.mu.RUnlock()

	for _, handler := range handlers {
		if handler != nil {
			handler(event)
		}
	}
}

func (d *dispatcher) raise(err error) {
	d.mu.RLock()
	cb := d.exception
	d.mu.RUnlock()

	cb(err)
}

// Subscribe registers fn to run for every event of the given type. The
// returned function unregisters it; calling it more than once is safe.
func (s *Server) Subscribe(eventType logparse.EventType, fn func(logparse.Event)) func() {
	return s.dispatch.subscribe(eventType, fn)
}

// SubscribeAll registers fn to run for every event regardless of type.
func (s *Server) SubscribeAll(fn func(logparse.Event)) func() {
	return s.dispatch.subscribeAll(fn)
}

// OnException registers fn to receive any error escaping the log
// pipeline: an UnknownEventError from a line the parser couldn't
// classify, or a panic recovered from a subscriber.
func (s *Server) OnException(fn func(error)) {
	s.dispatch.onException(fn)
}

// ProcessLog implements logparse.Receiver. It parses payload as one log
// line and dispatches the resulting Event to subscribers, or routes a
// classification failure to the exception callback. It never panics
// outward: a panicking subscriber is recovered and reported the same
// way.
func (s *Server) ProcessLog(payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			s.dispatch.raise(errors.Errorf("valve: subscriber panic: %v", r))
		}
	}()

	event, ok, err := s.parser.Parse(string(payload))
	if err != nil {
		s.dispatch.raise(err)

		return
	}

	if !ok {
		return
	}

	s.dispatch.emit(event)
}
