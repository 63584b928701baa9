package models

import "time"

// EnrollmentActivated is published when a student becomes active in a class for a term.
type EnrollmentActivated struct {
	EnrollmentID string    `json:"enrollment_id,omitempty"`
	StudentID    string    `json:"student_id"`
	ClassID      string    `json:"class_id"`
	TermID       string    `json:"term_id"`
	OccurredAt   time.Time `json:"occurred_at"`
}
