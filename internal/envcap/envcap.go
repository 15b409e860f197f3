// Package envcap abstracts the host environment primitives the engine
// consumes: fullscreen control and the focus/clipboard event stream. The real
// implementation is a browser bridge; tests and headless runs use Fake.
package envcap

import (
	"context"
	"time"
)

type EventType string

const (
	EventFullscreenChange EventType = "fullscreen_change"
	EventCopy             EventType = "copy"
	EventCut              EventType = "cut"
	EventPaste            EventType = "paste"
	EventContextMenu      EventType = "context_menu"
	EventKeyCombo         EventType = "key_combo"
)

// Event is one observation from the environment. Fullscreen carries the new
// state for fullscreen_change events; Combo carries the pressed shortcut
// (e.g. "ctrl+c") for key_combo events.
type Event struct {
	Type       EventType `json:"type"`
	Fullscreen bool      `json:"fullscreen,omitempty"`
	Combo      string    `json:"combo,omitempty"`
	At         time.Time `json:"at"`
}

// Capability is the contract the engine depends on. Subscribe returns a
// cancel function; after cancel returns, the handler receives no more events.
type Capability interface {
	RequestFullscreen(ctx context.Context) error
	ExitFullscreen(ctx context.Context) error
	FullscreenActive() bool
	Subscribe(fn func(Event)) (cancel func())
}
