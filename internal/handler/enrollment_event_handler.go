package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/sma-fee-ledger/internal/dto"
	"github.com/noah-isme/sma-fee-ledger/internal/models"
	appErrors "github.com/noah-isme/sma-fee-ledger/pkg/errors"
	"github.com/noah-isme/sma-fee-ledger/pkg/response"
)

type enrollmentPublisher interface {
	PublishEnrollmentActivated(event models.EnrollmentActivated) error
}

// EnrollmentEventHandler accepts enrollment lifecycle events from the enrollment service.
type EnrollmentEventHandler struct {
	publisher enrollmentPublisher
	validator *validator.Validate
}

// NewEnrollmentEventHandler builds a new handler.
func NewEnrollmentEventHandler(publisher enrollmentPublisher, validate *validator.Validate) *EnrollmentEventHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &EnrollmentEventHandler{publisher: publisher, validator: validate}
}

// Activated godoc
// @Summary Queue fee provisioning for an activated enrollment
// @Tags Events
// @Accept json
// @Produce json
// @Param payload body dto.EnrollmentActivatedRequest true "Enrollment event"
// @Success 202 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /events/enrollment-activated [post]
func (h *EnrollmentEventHandler) Activated(c *gin.Context) {
	var req dto.EnrollmentActivatedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid enrollment event payload"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid enrollment event payload"))
		return
	}

	event := models.EnrollmentActivated{
		EnrollmentID: req.EnrollmentID,
		StudentID:    req.StudentID,
		ClassID:      req.ClassID,
		TermID:       req.TermID,
		OccurredAt:   time.Now().UTC(),
	}
	if req.OccurredAt != nil {
		event.OccurredAt = req.OccurredAt.UTC()
	}

	if err := h.publisher.PublishEnrollmentActivated(event); err != nil {
		response.Error(c, appErrors.Wrap(err, "EVENT_REJECTED", http.StatusServiceUnavailable, "enrollment event could not be queued"))
		return
	}
	response.Accepted(c, gin.H{"accepted": true, "student_id": event.StudentID})
}
