package engine

import (
	"context"
	"time"

	"github.com/pKa1/eg2/internal/answers"
	"github.com/pKa1/eg2/internal/models"
)

// ExamService is the backend boundary the engine consumes. The HTTP client
// implements it; tests use a scripted fake.
type ExamService interface {
	// GetTest fetches the full definition including its status.
	GetTest(ctx context.Context, testID int64) (*models.TestDefinition, error)

	// StartAttempt begins an attempt and returns the server-assigned start
	// timestamp. Fails with ErrTestNotAssigned when the test is unavailable.
	StartAttempt(ctx context.Context, testID int64) (time.Time, error)

	// SubmitAttempt records the normalized answer set. Fails with
	// ErrMalformedAnswers when the server rejects the payload.
	SubmitAttempt(ctx context.Context, testID int64, startedAt time.Time, answerSet []answers.Answer) (*models.Result, error)

	// ListResults returns recorded results, optionally filtered by test.
	// Used only for submission reconciliation, never for the primary flow.
	ListResults(ctx context.Context, testID int64) ([]models.Result, error)
}
