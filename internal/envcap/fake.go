package envcap

import (
	"context"
	"sync"
	"time"
)

// Fake is a scriptable in-memory Capability. Tests drive it by calling
// SimulateFullscreenExit, SimulatePaste and friends; the headless binary uses
// it when no browser bridge is attached.
type Fake struct {
	mu          sync.Mutex
	fullscreen  bool
	nextID      int
	subscribers map[int]func(Event)

	RequestErr error // returned by RequestFullscreen when set
}

func NewFake() *Fake {
	return &Fake{subscribers: make(map[int]func(Event))}
}

func (f *Fake) RequestFullscreen(ctx context.Context) error {
	f.mu.Lock()
	if f.RequestErr != nil {
		err := f.RequestErr
		f.mu.Unlock()
		return err
	}
	f.fullscreen = true
	f.mu.Unlock()
	f.emit(Event{Type: EventFullscreenChange, Fullscreen: true, At: time.Now()})
	return nil
}

func (f *Fake) ExitFullscreen(ctx context.Context) error {
	f.mu.Lock()
	f.fullscreen = false
	f.mu.Unlock()
	f.emit(Event{Type: EventFullscreenChange, Fullscreen: false, At: time.Now()})
	return nil
}

func (f *Fake) FullscreenActive() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fullscreen
}

func (f *Fake) Subscribe(fn func(Event)) (cancel func()) {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subscribers[id] = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		delete(f.subscribers, id)
		f.mu.Unlock()
	}
}

// SimulateFullscreenExit reports the user leaving fullscreen (Esc, tab away).
func (f *Fake) SimulateFullscreenExit() {
	f.mu.Lock()
	f.fullscreen = false
	f.mu.Unlock()
	f.emit(Event{Type: EventFullscreenChange, Fullscreen: false, At: time.Now()})
}

func (f *Fake) SimulatePaste() {
	f.emit(Event{Type: EventPaste, At: time.Now()})
}

func (f *Fake) SimulateCopy() {
	f.emit(Event{Type: EventCopy, At: time.Now()})
}

func (f *Fake) SimulateContextMenu() {
	f.emit(Event{Type: EventContextMenu, At: time.Now()})
}

func (f *Fake) SimulateKeyCombo(combo string) {
	f.emit(Event{Type: EventKeyCombo, Combo: combo, At: time.Now()})
}

func (f *Fake) emit(ev Event) {
	f.mu.Lock()
	handlers := make([]func(Event), 0, len(f.subscribers))
	for _, fn := range f.subscribers {
		handlers = append(handlers, fn)
	}
	f.mu.Unlock()
	for _, fn := range handlers {
		fn(ev)
	}
}
