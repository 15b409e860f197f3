package models

import "time"

// ResultStatus mirrors the grading state the backend reports for a result.
type ResultStatus string

const (
	ResultAutoCompleted ResultStatus = "auto_completed"
	ResultPendingManual ResultStatus = "pending_manual"
	ResultCompleted     ResultStatus = "completed"
)

// Result is a recorded attempt as returned by the submit and listing
// operations. The engine never computes any of these fields itself.
type Result struct {
	ID            int64        `json:"id"`
	TestID        int64        `json:"test_id"`
	StudentID     int64        `json:"student_id,omitempty"`
	Score         float64      `json:"score"`
	PointsEarned  float64      `json:"points_earned,omitempty"`
	PointsTotal   float64      `json:"points_total,omitempty"`
	IsPassed      bool         `json:"is_passed"`
	Status        ResultStatus `json:"status,omitempty"`
	StartedAt     time.Time    `json:"started_at,omitzero"`
	CompletedAt   time.Time    `json:"completed_at"`
	AttemptNumber int          `json:"attempt_number,omitempty"`
}
