package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pKa1/eg2/internal/envcap"
	"github.com/pKa1/eg2/internal/events"
)

// DefaultBlockedCombos are the keyboard shortcuts suppressed during an
// attempt: copy, cut, paste and select-all on both modifier layouts.
var DefaultBlockedCombos = []string{
	"ctrl+c", "ctrl+x", "ctrl+v", "ctrl+a",
	"meta+c", "meta+x", "meta+v", "meta+a",
}

// Monitor observes environment events for the duration of the active phase
// and maintains the violation count and user-facing notices. It only
// observes and reports; it never requests fullscreen itself.
type Monitor struct {
	env       envcap.Capability
	publisher events.Publisher
	logger    *slog.Logger
	blocked   map[string]struct{}

	mu             sync.Mutex
	sessionID      string
	active         bool
	cancel         func()
	violations     int
	fullscreenLost bool
	notices        []Notice
}

func NewMonitor(env envcap.Capability, publisher events.Publisher, logger *slog.Logger, blockedCombos []string) *Monitor {
	blocked := make(map[string]struct{}, len(blockedCombos))
	for _, combo := range blockedCombos {
		blocked[combo] = struct{}{}
	}
	return &Monitor{
		env:       env,
		publisher: publisher,
		logger:    logger,
		blocked:   blocked,
	}
}

// Attach subscribes to the environment for the given session. Events arriving
// while detached are ignored.
func (m *Monitor) Attach(sessionID string) {
	m.mu.Lock()
	if m.active {
		m.mu.Unlock()
		return
	}
	m.sessionID = sessionID
	m.active = true
	m.mu.Unlock()

	cancel := m.env.Subscribe(m.handle)
	m.mu.Lock()
	m.cancel = cancel
	m.mu.Unlock()
}

// Detach tears down the subscription deterministically. The violation count
// survives so it can still be reported after the session leaves Active.
func (m *Monitor) Detach() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.active = false
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (m *Monitor) handle(ev envcap.Event) {
	m.mu.Lock()
	if !m.active {
		m.mu.Unlock()
		return
	}

	var notice *Notice
	switch ev.Type {
	case envcap.EventFullscreenChange:
		if ev.Fullscreen {
			// Fullscreen restored; the sticky warning resolves.
			m.fullscreenLost = false
			m.mu.Unlock()
			return
		}
		m.violations++
		m.fullscreenLost = true
		notice = &Notice{
			Kind:    NoticeFullscreen,
			Message: "Fullscreen mode was left. Return to fullscreen to continue the attempt.",
			Sticky:  true,
		}

	case envcap.EventCopy, envcap.EventCut, envcap.EventPaste, envcap.EventContextMenu:
		m.violations++
		notice = &Notice{
			Kind:    NoticeClipboard,
			Message: "Clipboard and context menu actions are disabled during the attempt.",
		}

	case envcap.EventKeyCombo:
		if _, suppressed := m.blocked[ev.Combo]; !suppressed {
			m.mu.Unlock()
			return
		}
		m.violations++
		notice = &Notice{
			Kind:    NoticeShortcut,
			Message: "Keyboard shortcut " + ev.Combo + " is disabled during the attempt.",
		}

	default:
		m.mu.Unlock()
		return
	}

	notice.ID = uuid.NewString()
	notice.At = time.Now()
	m.notices = append(m.notices, *notice)
	violations := m.violations
	sessionID := m.sessionID
	m.mu.Unlock()

	m.logger.Warn("integrity violation detected",
		"session_id", sessionID,
		"event_type", ev.Type,
		"combo", ev.Combo,
		"violations", violations)

	if m.publisher != nil {
		m.publisher.PublishSessionEvent(context.Background(), &events.SessionEvent{
			ID:        uuid.NewString(),
			SessionID: sessionID,
			Type:      events.EventViolation,
			Data: map[string]any{
				"event_type": string(ev.Type),
				"combo":      ev.Combo,
				"violations": violations,
			},
			Timestamp: time.Now(),
		})
		m.publisher.PublishSessionEvent(context.Background(), &events.SessionEvent{
			ID:        notice.ID,
			SessionID: sessionID,
			Type:      events.EventNotice,
			Data: map[string]any{
				"kind":    string(notice.Kind),
				"message": notice.Message,
				"sticky":  notice.Sticky,
			},
			Timestamp: time.Now(),
		})
	}
}

// Violations returns the accumulated count. Advisory only: it never blocks
// submission, enforcement is a policy decision made elsewhere.
func (m *Monitor) Violations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.violations
}

// FullscreenLost reports whether the sticky fullscreen warning is raised.
func (m *Monitor) FullscreenLost() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fullscreenLost
}

// DrainNotices returns pending notices and clears them; each notice is
// delivered once. The sticky fullscreen warning stays observable through
// FullscreenLost until the browser reports fullscreen again.
func (m *Monitor) DrainNotices() []Notice {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.notices
	m.notices = nil
	return out
}
