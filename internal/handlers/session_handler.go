package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pKa1/eg2/internal/answers"
	"github.com/pKa1/eg2/internal/engine"
	"github.com/pKa1/eg2/internal/envcap"
)

// ===== COMMON RESPONSE STRUCTURES =====

// ErrorResponse represents an error response
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// ===== REQUEST STRUCTURES =====

// CreateSessionRequest opens a session for one test.
type CreateSessionRequest struct {
	TestID int64 `json:"test_id" binding:"required"`
}

// ===== SESSION HANDLER =====

// ControllerFactory builds a fresh controller bound to the given environment
// capability. Each hosted session gets its own controller and bridge.
type ControllerFactory func(env envcap.Capability) *engine.Controller

// SessionHandler hosts engine sessions behind the REST surface.
type SessionHandler struct {
	registry *Registry
	factory  ControllerFactory
	logger   *slog.Logger
}

func NewSessionHandler(registry *Registry, factory ControllerFactory, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		registry: registry,
		factory:  factory,
		logger:   logger,
	}
}

// CreateSession opens a session and loads the test definition. The session is
// registered even when loading fails, so the failure is observable through
// the snapshot.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid request body", Details: err.Error()})
		return
	}

	bridge := NewBridge()
	ctrl := h.factory(bridge)

	if err := ctrl.Load(c.Request.Context(), req.TestID); err != nil {
		h.logger.Warn("session load failed", "test_id", req.TestID, "error", err)
	}

	id := ctrl.SessionID()
	h.registry.Add(id, &HostedSession{Controller: ctrl, Bridge: bridge})
	h.logger.Info("session created", "session_id", id, "test_id", req.TestID)

	c.JSON(http.StatusCreated, ctrl.Snapshot())
}

// GetSession returns the current snapshot.
func (h *SessionHandler) GetSession(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.Controller.Snapshot())
}

// StartSession begins the attempt. A failed start is reflected in the
// snapshot's failure field, not in the HTTP status.
func (h *SessionHandler) StartSession(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if err := s.Controller.Start(c.Request.Context()); err != nil {
		h.logger.Warn("attempt start failed", "session_id", c.Param("id"), "error", err)
	}
	c.JSON(http.StatusOK, s.Controller.Snapshot())
}

func (h *SessionHandler) NextQuestion(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.Controller.Next()
	c.JSON(http.StatusOK, s.Controller.Snapshot())
}

func (h *SessionHandler) PreviousQuestion(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.Controller.Previous()
	c.JSON(http.StatusOK, s.Controller.Snapshot())
}

// SaveAnswer stores raw answer state for one question; the latest write wins.
func (h *SessionHandler) SaveAnswer(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	questionID, err := strconv.ParseInt(c.Param("question_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid question id"})
		return
	}

	var raw answers.Raw
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid answer body", Details: err.Error()})
		return
	}

	switch err := s.Controller.Answer(questionID, raw); {
	case errors.Is(err, engine.ErrUnknownQuestion):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Question not found in this test"})
	case errors.Is(err, engine.ErrFileTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Message: "File exceeds the upload size limit"})
	case err != nil:
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Answer rejected", Details: err.Error()})
	default:
		c.JSON(http.StatusOK, s.Controller.Snapshot())
	}
}

// RequestSubmit moves the session to the confirmation step.
func (h *SessionHandler) RequestSubmit(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.Controller.RequestSubmit()
	c.JSON(http.StatusOK, s.Controller.Snapshot())
}

// CancelSubmit returns from the confirmation step to review.
func (h *SessionHandler) CancelSubmit(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.Controller.CancelSubmit()
	c.JSON(http.StatusOK, s.Controller.Snapshot())
}

// ConfirmSubmit fires the submission. A local validation failure maps to 422;
// network failures are recorded in the session and reported through the
// snapshot, which is returned either way.
func (h *SessionHandler) ConfirmSubmit(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	if err := s.Controller.ConfirmSubmit(c.Request.Context()); err != nil {
		if engine.IsValidation(err) {
			c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Message: err.Error(), Code: "missing_file"})
			return
		}
		h.logger.Warn("submission failed", "session_id", c.Param("id"), "error", err)
	}
	c.JSON(http.StatusOK, s.Controller.Snapshot())
}

// RequestFullscreen re-requests fullscreen on explicit user action.
func (h *SessionHandler) RequestFullscreen(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if err := s.Controller.RequestFullscreen(c.Request.Context()); err != nil {
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Fullscreen request failed", Details: err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, s.Controller.Snapshot())
}

// GetQuestionOptions returns the presented option order for one question
// under the session's shuffle.
func (h *SessionHandler) GetQuestionOptions(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	questionID, err := strconv.ParseInt(c.Param("question_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid question id"})
		return
	}

	options := s.Controller.Presentation(questionID)
	if options == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Question not found in this test"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"options": options})
}

// DeleteSession tears the session down and unregisters it.
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	id := c.Param("id")
	s, ok := h.registry.Remove(id)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Session not found"})
		return
	}
	s.Controller.Teardown()
	h.logger.Info("session deleted", "session_id", id)
	c.Status(http.StatusNoContent)
}

func (h *SessionHandler) session(c *gin.Context) (*HostedSession, bool) {
	s, ok := h.registry.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Session not found"})
		return nil, false
	}
	return s, true
}
