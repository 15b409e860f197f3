package engine

import (
	"time"

	"github.com/pKa1/eg2/internal/answers"
	"github.com/pKa1/eg2/internal/models"
	"github.com/pKa1/eg2/internal/shuffle"
)

// Phase is the session state machine's current state.
type Phase string

const (
	PhaseLoading        Phase = "loading"
	PhaseInstructions   Phase = "instructions"
	PhaseStarting       Phase = "starting"
	PhaseActive         Phase = "active"
	PhasePendingConfirm Phase = "pending_confirm"
	PhaseSubmitting     Phase = "submitting"
	PhaseCompleted      Phase = "completed"
	PhaseFailed         Phase = "failed"
)

// NoticeKind classifies user-facing notices.
type NoticeKind string

const (
	NoticeFullscreen NoticeKind = "fullscreen"
	NoticeClipboard  NoticeKind = "clipboard"
	NoticeShortcut   NoticeKind = "shortcut"
	NoticeValidation NoticeKind = "validation"
)

// Notice is a user-facing message. Sticky notices persist until resolved
// (e.g. fullscreen restored); transient ones are delivered once.
type Notice struct {
	ID      string     `json:"id"`
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
	Sticky  bool       `json:"sticky"`
	At      time.Time  `json:"at"`
}

// PendingSubmission is the fully normalized answer set awaiting the network
// call.
type PendingSubmission struct {
	TestID    int64
	StartedAt time.Time
	Answers   []answers.Answer
}

// session is the controller-owned mutable state of one attempt. All access
// is serialized by the controller's mutex.
type session struct {
	id        string
	testID    int64
	test      *models.TestDefinition
	startedAt time.Time
	phase     Phase
	index     int
	remaining *int // seconds; nil = untimed

	shuffles shuffle.Map
	raw      map[int64]answers.Raw
	pending  *PendingSubmission
	failure  *Failure
	result   *models.Result
}

// FailureInfo is the snapshot view of a session failure.
type FailureInfo struct {
	Kind        FailureKind `json:"kind"`
	Message     string      `json:"message"`
	Recoverable bool        `json:"recoverable"`
}

// Snapshot is the read-only surface exposed to the surrounding UI.
type Snapshot struct {
	SessionID        string         `json:"session_id"`
	TestID           int64          `json:"test_id"`
	TestTitle        string         `json:"test_title,omitempty"`
	Phase            Phase          `json:"phase"`
	QuestionIndex    int            `json:"question_index"`
	QuestionCount    int            `json:"question_count"`
	Untimed          bool           `json:"untimed"`
	RemainingSeconds *int           `json:"remaining_seconds,omitempty"`
	Violations       int            `json:"violations"`
	FullscreenActive bool           `json:"fullscreen_active"`
	FullscreenLost   bool           `json:"fullscreen_lost"`
	PendingConfirm   bool           `json:"pending_confirm"`
	Notices          []Notice       `json:"notices,omitempty"`
	Failure          *FailureInfo   `json:"failure,omitempty"`
	Result           *models.Result `json:"result,omitempty"`
}
