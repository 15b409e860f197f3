package handlers

import (
	"context"
	"sync"

	"github.com/pKa1/eg2/internal/envcap"
)

// BridgeCommand is an instruction pushed down to the connected browser.
type BridgeCommand struct {
	Command string `json:"command"`
}

const (
	commandRequestFullscreen = "request_fullscreen"
	commandExitFullscreen    = "exit_fullscreen"
)

// Bridge is the websocket-backed environment capability for one hosted
// session: fullscreen commands flow down to the browser, environment events
// (fullscreen changes, clipboard use, key combos) flow up from it. The
// fullscreen state is whatever the browser last reported; the bridge never
// assumes a command succeeded.
type Bridge struct {
	mu          sync.Mutex
	fullscreen  bool
	nextID      int
	subscribers map[int]func(envcap.Event)

	commands chan BridgeCommand
}

var _ envcap.Capability = (*Bridge)(nil)

func NewBridge() *Bridge {
	return &Bridge{
		subscribers: make(map[int]func(envcap.Event)),
		commands:    make(chan BridgeCommand, 8),
	}
}

func (b *Bridge) RequestFullscreen(ctx context.Context) error {
	return b.send(ctx, BridgeCommand{Command: commandRequestFullscreen})
}

func (b *Bridge) ExitFullscreen(ctx context.Context) error {
	return b.send(ctx, BridgeCommand{Command: commandExitFullscreen})
}

func (b *Bridge) send(ctx context.Context, cmd BridgeCommand) error {
	select {
	case b.commands <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bridge) FullscreenActive() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fullscreen
}

func (b *Bridge) Subscribe(fn func(envcap.Event)) (cancel func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subscribers[id] = fn
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		delete(b.subscribers, id)
		b.mu.Unlock()
	}
}

// Commands exposes the queue the websocket writer drains to the browser.
func (b *Bridge) Commands() <-chan BridgeCommand {
	return b.commands
}

// Deliver feeds one browser-reported environment event to subscribers,
// tracking the fullscreen state along the way.
func (b *Bridge) Deliver(ev envcap.Event) {
	b.mu.Lock()
	if ev.Type == envcap.EventFullscreenChange {
		b.fullscreen = ev.Fullscreen
	}
	handlers := make([]func(envcap.Event), 0, len(b.subscribers))
	for _, fn := range b.subscribers {
		handlers = append(handlers, fn)
	}
	b.mu.Unlock()

	for _, fn := range handlers {
		fn(ev)
	}
}
