package dto

import "time"

// EnrollmentActivatedRequest is the inbound webhook payload from the enrollment service.
type EnrollmentActivatedRequest struct {
	EnrollmentID string     `json:"enrollment_id" validate:"max=64"`
	StudentID    string     `json:"student_id" validate:"required,max=64"`
	ClassID      string     `json:"class_id" validate:"required,max=64"`
	TermID       string     `json:"term_id" validate:"required,max=64"`
	OccurredAt   *time.Time `json:"occurred_at"`
}
