package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pKa1/eg2/internal/answers"
	"github.com/pKa1/eg2/internal/models"
)

// Reconciler wraps the submit call and owns the ambiguity-recovery branch:
// when submit fails with a network or server error, it checks the attempt
// history to decide whether the server recorded the attempt anyway.
type Reconciler struct {
	svc    ExamService
	logger *slog.Logger

	// window is the trailing interval of the secondary heuristic: any result
	// for this test completed within it counts as the missing submission.
	window time.Duration
	// skew is the tolerance applied when comparing a result's completion
	// time against the attempt's start time.
	skew time.Duration

	now func() time.Time
}

func NewReconciler(svc ExamService, logger *slog.Logger, window, skew time.Duration) *Reconciler {
	return &Reconciler{
		svc:    svc,
		logger: logger,
		window: window,
		skew:   skew,
		now:    time.Now,
	}
}

// Submit validates, submits and, on failure, reconciles one pending
// submission. enforceFiles controls the pre-flight file check; a timer-forced
// submission sends whatever exists and skips it.
func (r *Reconciler) Submit(ctx context.Context, def *models.TestDefinition, sub *PendingSubmission, enforceFiles bool) (*models.Result, error) {
	if enforceFiles {
		if err := checkRequiredFiles(def, sub.Answers); err != nil {
			return nil, err
		}
	}

	result, submitErr := r.svc.SubmitAttempt(ctx, sub.TestID, sub.StartedAt, sub.Answers)
	if submitErr == nil {
		return result, nil
	}

	r.logger.Warn("submit failed, checking attempt history",
		"test_id", sub.TestID,
		"error", submitErr)

	recorded, err := r.findRecorded(ctx, sub)
	if err != nil {
		r.logger.Error("attempt history unavailable during reconciliation",
			"test_id", sub.TestID,
			"error", err)
		return nil, fmt.Errorf("submit failed: %w", submitErr)
	}
	if recorded != nil {
		r.logger.Info("submission reconciled from attempt history",
			"test_id", sub.TestID,
			"result_id", recorded.ID,
			"completed_at", recorded.CompletedAt)
		return recorded, nil
	}

	return nil, fmt.Errorf("submit failed: %w", submitErr)
}

// findRecorded looks for server-side evidence that the attempt was recorded:
// first a result completed at or after the attempt start, then any result
// completed within the trailing window.
func (r *Reconciler) findRecorded(ctx context.Context, sub *PendingSubmission) (*models.Result, error) {
	results, err := r.svc.ListResults(ctx, sub.TestID)
	if err != nil {
		return nil, err
	}

	if match := latestCompletedAfter(results, sub.StartedAt.Add(-r.skew)); match != nil {
		return match, nil
	}
	return latestCompletedAfter(results, r.now().Add(-r.window)), nil
}

func latestCompletedAfter(results []models.Result, cutoff time.Time) *models.Result {
	var match *models.Result
	for i := range results {
		res := &results[i]
		if res.CompletedAt.Before(cutoff) {
			continue
		}
		if match == nil || res.CompletedAt.After(match.CompletedAt) {
			match = res
		}
	}
	return match
}

// checkRequiredFiles fails fast when a file-upload question has no file
// attached; for that type absence is a validation error, not a silent null.
func checkRequiredFiles(def *models.TestDefinition, answerSet []answers.Answer) error {
	byQuestion := make(map[int64]answers.Payload, len(answerSet))
	for _, a := range answerSet {
		byQuestion[a.QuestionID] = a.Payload
	}

	for i := range def.Questions {
		q := &def.Questions[i]
		if q.Type != models.FileUpload {
			continue
		}
		file, ok := byQuestion[q.ID].(answers.FileUpload)
		if !ok || file.Empty() {
			return &MissingFileError{QuestionID: q.ID, QuestionNumber: i + 1}
		}
	}
	return nil
}
