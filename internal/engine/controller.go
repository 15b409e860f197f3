package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pKa1/eg2/internal/answers"
	"github.com/pKa1/eg2/internal/envcap"
	"github.com/pKa1/eg2/internal/events"
	"github.com/pKa1/eg2/internal/models"
	"github.com/pKa1/eg2/internal/shuffle"
	"github.com/pKa1/eg2/internal/validator"
)

// Config carries the tunable knobs of a session controller.
type Config struct {
	// TickInterval is the wall-clock length of one countdown tick. One
	// second in production; tests shrink it.
	TickInterval time.Duration
	// MaxUploadBytes caps file-upload answers before content is accepted.
	MaxUploadBytes int64
	// ReconcileWindow is the trailing window of the secondary reconciliation
	// heuristic.
	ReconcileWindow time.Duration
	// ReconcileSkew is the tolerance when comparing completion timestamps
	// against the attempt start.
	ReconcileSkew time.Duration
	// BlockedCombos are the suppressed keyboard shortcuts.
	BlockedCombos []string
}

const DefaultMaxUploadBytes = 10 << 20 // 10 MB, the limit the UI advertises

func (c Config) withDefaults() Config {
	if c.TickInterval <= 0 {
		c.TickInterval = time.Second
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if c.ReconcileWindow <= 0 {
		c.ReconcileWindow = 5 * time.Minute
	}
	if c.ReconcileSkew <= 0 {
		c.ReconcileSkew = 2 * time.Second
	}
	if c.BlockedCombos == nil {
		c.BlockedCombos = DefaultBlockedCombos
	}
	return c
}

// Controller is the session state machine. It owns all session state and
// sequences the timer, integrity monitor, shuffle generator, normalizer and
// reconciler against user navigation. All mutation happens under one mutex,
// so events are applied in arrival order; network calls run outside the
// lock and their outcomes are re-validated against the current phase.
type Controller struct {
	cfg       Config
	svc       ExamService
	env       envcap.Capability
	gen       *shuffle.Generator
	publisher events.Publisher
	validate  *validator.Validator
	logger    *slog.Logger
	rec       *Reconciler
	monitor   *Monitor

	mu      sync.Mutex
	sess    *session
	timer   *Timer
	notices []Notice
}

func NewController(
	svc ExamService,
	env envcap.Capability,
	gen *shuffle.Generator,
	publisher events.Publisher,
	validate *validator.Validator,
	logger *slog.Logger,
	cfg Config,
) *Controller {
	cfg = cfg.withDefaults()
	return &Controller{
		cfg:       cfg,
		svc:       svc,
		env:       env,
		gen:       gen,
		publisher: publisher,
		validate:  validate,
		logger:    logger,
		rec:       NewReconciler(svc, logger, cfg.ReconcileWindow, cfg.ReconcileSkew),
		monitor:   NewMonitor(env, publisher, logger, cfg.BlockedCombos),
	}
}

// ===== LIFECYCLE =====

// Load fetches the definition and moves the session to the instructions
// screen, or to a terminal failure when the test cannot be taken.
func (c *Controller) Load(ctx context.Context, testID int64) error {
	c.mu.Lock()
	if c.sess != nil {
		c.mu.Unlock()
		return ErrSessionExists
	}
	c.sess = &session{
		id:     uuid.NewString(),
		testID: testID,
		phase:  PhaseLoading,
		raw:    make(map[int64]answers.Raw),
	}
	c.mu.Unlock()

	c.logger.Info("loading test definition", "test_id", testID)
	def, err := c.svc.GetTest(ctx, testID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		return c.failLocked(FailureLoad, err, false)
	}
	if err := c.validate.CheckTakeable(def); err != nil {
		return c.failLocked(FailureLoad, err, false)
	}

	c.sess.test = def
	c.setPhaseLocked(PhaseInstructions)
	return nil
}

// Start begins the attempt: start call, shuffle map, fullscreen request,
// integrity subscription and timer arming. Allowed from the instructions
// screen, and again after a recoverable start failure.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.sess == nil {
		c.mu.Unlock()
		return ErrNoSession
	}
	if !c.canStartLocked() {
		c.mu.Unlock()
		return nil
	}
	c.sess.failure = nil
	c.setPhaseLocked(PhaseStarting)
	testID := c.sess.test.ID
	c.mu.Unlock()

	startedAt, err := c.svc.StartAttempt(ctx, testID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil || c.sess.phase != PhaseStarting {
		return nil
	}
	if err != nil {
		return c.failLocked(FailureStart, err, true)
	}

	// startedAt is assigned exactly once, by the start call.
	if c.sess.startedAt.IsZero() {
		c.sess.startedAt = startedAt
	}

	// The shuffle map is computed exactly once per session; re-shuffling
	// mid-attempt would invalidate matching/ordering answers already given.
	if c.sess.shuffles == nil {
		c.sess.shuffles = c.gen.Build(c.sess.test.Questions)
	}

	if err := c.env.RequestFullscreen(ctx); err != nil {
		c.logger.Warn("fullscreen request failed", "session_id", c.sess.id, "error", err)
	}

	c.monitor.Attach(c.sess.id)
	c.setPhaseLocked(PhaseActive)

	if c.sess.test.Timed() {
		seconds := *c.sess.test.DurationMinutes * 60
		c.sess.remaining = &seconds
		c.timer = NewTimer(seconds, c.cfg.TickInterval, c.onTick, c.onExpire)
	}

	c.logger.Info("attempt started",
		"session_id", c.sess.id,
		"test_id", testID,
		"started_at", c.sess.startedAt,
		"timed", c.sess.test.Timed())
	return nil
}

func (c *Controller) canStartLocked() bool {
	if c.sess.phase == PhaseInstructions {
		return true
	}
	// Retry after a recoverable start failure returns through Instructions.
	return c.sess.phase == PhaseFailed &&
		c.sess.failure != nil &&
		c.sess.failure.Kind == FailureStart &&
		c.sess.failure.Recoverable
}

// Teardown releases the timer, integrity subscription and fullscreen mode.
// Phase is left as-is; the controller is finished either way.
func (c *Controller) Teardown() {
	c.mu.Lock()
	c.stopTimerLocked()
	c.mu.Unlock()

	c.monitor.Detach()
	if c.env.FullscreenActive() {
		c.env.ExitFullscreen(context.Background())
	}
}

// ===== NAVIGATION =====

// Next advances to the following question. No-op unless the session is
// active and not on the last question. Never mutates answers.
func (c *Controller) Next() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil || c.sess.phase != PhaseActive {
		return
	}
	if c.sess.index < len(c.sess.test.Questions)-1 {
		c.sess.index++
	}
}

// Previous moves back one question. No-op unless active and not on the
// first question.
func (c *Controller) Previous() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil || c.sess.phase != PhaseActive {
		return
	}
	if c.sess.index > 0 {
		c.sess.index--
	}
}

// ===== ANSWERS =====

// Answer records raw UI state for a question; the latest write wins.
// Normalization happens once, at submit time.
func (c *Controller) Answer(questionID int64, raw answers.Raw) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return ErrNoSession
	}
	if c.sess.phase != PhaseActive {
		return nil
	}

	q := c.sess.test.QuestionByID(questionID)
	if q == nil {
		return ErrUnknownQuestion
	}
	if q.Type == models.FileUpload && answers.FileSize(raw) > c.cfg.MaxUploadBytes {
		return ErrFileTooLarge
	}

	c.sess.raw[questionID] = raw
	return nil
}

// ===== SUBMISSION =====

// RequestSubmit moves to the confirmation step. No-op unless the session is
// active and positioned on the last question.
func (c *Controller) RequestSubmit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil || c.sess.phase != PhaseActive {
		return
	}
	if c.sess.index != len(c.sess.test.Questions)-1 {
		return
	}
	c.setPhaseLocked(PhasePendingConfirm)
}

// CancelSubmit returns from the confirmation step to review.
func (c *Controller) CancelSubmit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil || c.sess.phase != PhasePendingConfirm {
		return
	}
	c.setPhaseLocked(PhaseActive)
}

// ConfirmSubmit fires the submit call. Valid from the confirmation step, and
// again after a recoverable submission failure (retry).
func (c *Controller) ConfirmSubmit(ctx context.Context) error {
	return c.finalize(ctx, false)
}

// RequestFullscreen re-requests fullscreen on explicit user action, resolving
// the sticky warning through the resulting change event.
func (c *Controller) RequestFullscreen(ctx context.Context) error {
	return c.env.RequestFullscreen(ctx)
}

// finalize runs the submit path. forced marks a timer expiry: it bypasses
// the confirmation step, skips the file pre-flight and submits whatever
// answers exist. At most one submit call is ever in flight; a second
// finalize while submitting is a no-op.
func (c *Controller) finalize(ctx context.Context, forced bool) error {
	c.mu.Lock()
	if c.sess == nil {
		c.mu.Unlock()
		return ErrNoSession
	}
	if !c.canFinalizeLocked(forced) {
		c.mu.Unlock()
		return nil
	}

	if c.sess.pending == nil {
		c.sess.pending = c.buildPendingLocked()
	}
	pending := c.sess.pending
	def := c.sess.test

	c.stopTimerLocked()
	c.sess.failure = nil
	c.setPhaseLocked(PhaseSubmitting)
	c.mu.Unlock()

	c.monitor.Detach()

	result, err := c.rec.Submit(ctx, def, pending, !forced)

	c.mu.Lock()
	if c.sess == nil || c.sess.phase != PhaseSubmitting {
		c.mu.Unlock()
		return nil
	}

	if err != nil {
		defer c.mu.Unlock()
		if IsValidation(err) {
			return c.resumeAfterValidationLocked(err)
		}
		return c.failLocked(FailureSubmission, err, true)
	}

	c.sess.result = result
	c.sess.pending = nil
	sessionID := c.sess.id
	c.setPhaseLocked(PhaseCompleted)
	c.mu.Unlock()

	// Session teardown on success: fullscreen released, subscriptions gone.
	if c.env.FullscreenActive() {
		c.env.ExitFullscreen(context.Background())
	}
	c.publish(sessionID, events.EventCompleted, map[string]any{"result_id": result.ID})
	c.logger.Info("attempt completed", "session_id", sessionID, "result_id", result.ID)
	return nil
}

func (c *Controller) canFinalizeLocked(forced bool) bool {
	switch c.sess.phase {
	case PhaseActive:
		// Only the timer may submit without explicit confirmation.
		return forced
	case PhasePendingConfirm:
		return true
	case PhaseFailed:
		// Retry after a recoverable submission failure.
		return !forced &&
			c.sess.failure != nil &&
			c.sess.failure.Kind == FailureSubmission &&
			c.sess.failure.Recoverable
	default:
		return false
	}
}

// resumeAfterValidationLocked handles a local pre-flight failure: no network
// call was made, so the attempt returns to review with an inline notice.
func (c *Controller) resumeAfterValidationLocked(err error) error {
	c.sess.pending = nil
	notice := Notice{
		ID:      uuid.NewString(),
		Kind:    NoticeValidation,
		Message: err.Error(),
		At:      time.Now(),
	}
	c.notices = append(c.notices, notice)
	c.publish(c.sess.id, events.EventNotice, map[string]any{
		"kind":    string(notice.Kind),
		"message": notice.Message,
		"sticky":  false,
	})
	c.monitor.Attach(c.sess.id)
	c.setPhaseLocked(PhaseActive)
	if c.sess.remaining != nil && *c.sess.remaining > 0 {
		c.timer = NewTimer(*c.sess.remaining, c.cfg.TickInterval, c.onTick, c.onExpire)
	}
	return err
}

// buildPendingLocked normalizes every question's raw state into the
// canonical answer set, in question order.
func (c *Controller) buildPendingLocked() *PendingSubmission {
	sess := c.sess
	answerSet := make([]answers.Answer, 0, len(sess.test.Questions))
	for i := range sess.test.Questions {
		q := &sess.test.Questions[i]
		payload, err := answers.Normalize(q, sess.raw[q.ID])
		if err != nil {
			// Unreachable for validated definitions; keep the question with
			// an empty text payload rather than dropping it.
			c.logger.Error("normalization failed", "question_id", q.ID, "error", err)
			payload = answers.Text{}
		}
		answerSet = append(answerSet, answers.Answer{QuestionID: q.ID, Payload: payload})
	}
	return &PendingSubmission{
		TestID:    sess.test.ID,
		StartedAt: sess.startedAt,
		Answers:   answerSet,
	}
}

// ===== TIMER CALLBACKS =====

func (c *Controller) onTick(remaining int) {
	c.mu.Lock()
	if c.sess == nil || (c.sess.phase != PhaseActive && c.sess.phase != PhasePendingConfirm) {
		c.mu.Unlock()
		return
	}
	r := remaining
	c.sess.remaining = &r
	sessionID := c.sess.id
	c.mu.Unlock()

	c.publish(sessionID, events.EventTick, map[string]any{"remaining_seconds": remaining})
}

// onExpire treats expiry as an implicit "submit now with whatever answers
// exist", bypassing the confirmation step.
func (c *Controller) onExpire() {
	sessionID := c.sessionID()
	c.logger.Info("time expired, forcing submission", "session_id", sessionID)
	c.publish(sessionID, events.EventTimerExpired, nil)
	if err := c.finalize(context.Background(), true); err != nil {
		c.logger.Error("forced submission failed", "session_id", sessionID, "error", err)
	}
}

// ===== SNAPSHOT =====

// Presentation returns the display order of a question's options under the
// session's shuffle map.
func (c *Controller) Presentation(questionID int64) []shuffle.DisplayOption {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil || c.sess.test == nil {
		return nil
	}
	q := c.sess.test.QuestionByID(questionID)
	if q == nil {
		return nil
	}
	return shuffle.Apply(q, c.sess.shuffles)
}

// Snapshot assembles the read surface for the surrounding UI. Transient
// notices are drained by the call.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return Snapshot{Phase: PhaseLoading}
	}

	snap := Snapshot{
		SessionID:        c.sess.id,
		TestID:           c.sess.testID,
		Phase:            c.sess.phase,
		QuestionIndex:    c.sess.index,
		Untimed:          c.sess.remaining == nil,
		Violations:       c.monitor.Violations(),
		FullscreenActive: c.env.FullscreenActive(),
		FullscreenLost:   c.monitor.FullscreenLost(),
		PendingConfirm:   c.sess.phase == PhasePendingConfirm,
		Result:           c.sess.result,
	}
	if c.sess.test != nil {
		snap.TestTitle = c.sess.test.Title
		snap.QuestionCount = len(c.sess.test.Questions)
	}
	if c.sess.remaining != nil {
		r := *c.sess.remaining
		snap.RemainingSeconds = &r
	}
	if c.sess.failure != nil {
		snap.Failure = &FailureInfo{
			Kind:        c.sess.failure.Kind,
			Message:     c.sess.failure.Err.Error(),
			Recoverable: c.sess.failure.Recoverable,
		}
	}

	snap.Notices = append(c.monitor.DrainNotices(), c.notices...)
	c.notices = nil
	return snap
}

// SessionID returns the opaque session identifier, empty before Load.
func (c *Controller) SessionID() string {
	return c.sessionID()
}

func (c *Controller) sessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return ""
	}
	return c.sess.id
}

// ===== INTERNAL =====

func (c *Controller) setPhaseLocked(phase Phase) {
	if c.sess.phase == phase {
		return
	}
	from := c.sess.phase
	c.sess.phase = phase
	c.logger.Debug("phase transition", "session_id", c.sess.id, "from", from, "to", phase)
	c.publish(c.sess.id, events.EventPhaseChanged, map[string]any{
		"from": string(from),
		"to":   string(phase),
	})
}

// failLocked records the failure, transitions to PhaseFailed and releases
// Active-phase resources. No error is dropped without a state transition.
func (c *Controller) failLocked(kind FailureKind, err error, recoverable bool) error {
	failure := &Failure{Kind: kind, Err: err, Recoverable: recoverable}
	c.sess.failure = failure
	c.stopTimerLocked()
	c.setPhaseLocked(PhaseFailed)

	c.logger.Error("session failed",
		"session_id", c.sess.id,
		"kind", string(kind),
		"recoverable", recoverable,
		"error", err)
	c.publish(c.sess.id, events.EventFailed, map[string]any{
		"kind":        string(kind),
		"recoverable": recoverable,
		"message":     err.Error(),
	})
	return failure
}

func (c *Controller) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) publish(sessionID string, eventType events.Type, data map[string]any) {
	if c.publisher == nil {
		return
	}
	c.publisher.PublishSessionEvent(context.Background(), &events.SessionEvent{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now(),
	})
}
