package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pKa1/eg2/internal/answers"
	"github.com/pKa1/eg2/internal/engine"
	"github.com/pKa1/eg2/internal/envcap"
	"github.com/pKa1/eg2/internal/events"
	"github.com/pKa1/eg2/internal/models"
	"github.com/pKa1/eg2/internal/shuffle"
	"github.com/pKa1/eg2/internal/validator"
)

// stubService serves one fixed definition and accepts every attempt.
type stubService struct {
	def *models.TestDefinition
}

func (s *stubService) GetTest(context.Context, int64) (*models.TestDefinition, error) {
	return s.def, nil
}

func (s *stubService) StartAttempt(context.Context, int64) (time.Time, error) {
	return time.Now(), nil
}

func (s *stubService) SubmitAttempt(_ context.Context, testID int64, _ time.Time, _ []answers.Answer) (*models.Result, error) {
	return &models.Result{ID: 99, TestID: testID, CompletedAt: time.Now()}, nil
}

func (s *stubService) ListResults(context.Context, int64) ([]models.Result, error) {
	return nil, nil
}

func testDefinition() *models.TestDefinition {
	return &models.TestDefinition{
		ID:     7,
		Title:  "Midterm",
		Status: models.StatusPublished,
		Questions: []models.Question{
			{ID: 1, Text: "Pick one", Type: models.SingleChoice, Options: []models.QuestionOption{
				{ID: 11, Text: "A"}, {ID: 12, Text: "B"},
			}},
			{ID: 2, Text: "Explain", Type: models.Essay},
		},
	}
}

func newTestRouter(t *testing.T, def *models.TestDefinition) (*gin.Engine, *Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := &stubService{def: def}
	registry := NewRegistry()

	factory := func(env envcap.Capability) *engine.Controller {
		return engine.NewController(
			svc, env,
			shuffle.NewGenerator(rand.NewSource(1)),
			events.NewMockPublisher(),
			validator.New(),
			logger,
			engine.Config{TickInterval: time.Millisecond},
		)
	}

	sessionHandler := NewSessionHandler(registry, factory, logger)
	wsHandler := NewWSHandler(registry, events.NewBus(logger), logger, nil)

	router := gin.New()
	NewHandlerManager(sessionHandler, wsHandler).SetupRoutes(router)
	return router, registry
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeSnapshot(t *testing.T, w *httptest.ResponseRecorder) engine.Snapshot {
	t.Helper()
	var snap engine.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	return snap
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	router, _ := newTestRouter(t, testDefinition())

	w := doJSON(t, router, http.MethodPost, "/api/v1/sessions", gin.H{"test_id": 7})
	require.Equal(t, http.StatusCreated, w.Code)
	snap := decodeSnapshot(t, w)
	require.NotEmpty(t, snap.SessionID)
	assert.Equal(t, engine.PhaseInstructions, snap.Phase)
	assert.Equal(t, 2, snap.QuestionCount)

	base := "/api/v1/sessions/" + snap.SessionID

	w = doJSON(t, router, http.MethodPost, base+"/start", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, engine.PhaseActive, decodeSnapshot(t, w).Phase)

	w = doJSON(t, router, http.MethodPut, base+"/answers/1", gin.H{"selected_option_id": 12})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, base+"/next", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decodeSnapshot(t, w).QuestionIndex)

	w = doJSON(t, router, http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, engine.PhasePendingConfirm, decodeSnapshot(t, w).Phase)

	w = doJSON(t, router, http.MethodPost, base+"/submit/confirm", nil)
	require.Equal(t, http.StatusOK, w.Code)
	snap = decodeSnapshot(t, w)
	assert.Equal(t, engine.PhaseCompleted, snap.Phase)
	require.NotNil(t, snap.Result)
	assert.EqualValues(t, 99, snap.Result.ID)
}

func TestSessionNotFound(t *testing.T) {
	router, _ := newTestRouter(t, testDefinition())

	w := doJSON(t, router, http.MethodGet, "/api/v1/sessions/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/sessions/nope/start", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateSessionRejectsBadBody(t *testing.T) {
	router, _ := newTestRouter(t, testDefinition())

	w := doJSON(t, router, http.MethodPost, "/api/v1/sessions", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSaveAnswerErrorMapping(t *testing.T) {
	def := testDefinition()
	def.Questions = append(def.Questions, models.Question{ID: 3, Text: "Attach", Type: models.FileUpload})
	router, _ := newTestRouter(t, def)

	w := doJSON(t, router, http.MethodPost, "/api/v1/sessions", gin.H{"test_id": 7})
	snap := decodeSnapshot(t, w)
	base := "/api/v1/sessions/" + snap.SessionID
	doJSON(t, router, http.MethodPost, base+"/start", nil)

	w = doJSON(t, router, http.MethodPut, base+"/answers/999", gin.H{"text": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodPut, base+"/answers/3", gin.H{
		"file_name": "huge.zip",
		"file_size": 11 << 20,
	})
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = doJSON(t, router, http.MethodPut, base+"/answers/abc", gin.H{"text": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteSession(t *testing.T) {
	router, registry := newTestRouter(t, testDefinition())

	w := doJSON(t, router, http.MethodPost, "/api/v1/sessions", gin.H{"test_id": 7})
	snap := decodeSnapshot(t, w)

	w = doJSON(t, router, http.MethodDelete, "/api/v1/sessions/"+snap.SessionID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	_, ok := registry.Get(snap.SessionID)
	assert.False(t, ok)

	w = doJSON(t, router, http.MethodGet, "/api/v1/sessions/"+snap.SessionID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
