package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-fee-ledger/internal/dto"
	"github.com/noah-isme/sma-fee-ledger/internal/models"
	appErrors "github.com/noah-isme/sma-fee-ledger/pkg/errors"
	"github.com/noah-isme/sma-fee-ledger/pkg/response"
)

type waiverService interface {
	Grant(ctx context.Context, entryID string, req dto.GrantWaiverRequest, actor *models.JWTClaims) (*dto.WaiverResult, error)
	Revoke(ctx context.Context, waiverID string, reopen bool, actor *models.JWTClaims) (*dto.WaiverResult, error)
	List(ctx context.Context, entryID string) ([]models.FeeWaiver, error)
}

// WaiverHandler exposes discount and scholarship endpoints.
type WaiverHandler struct {
	service waiverService
}

// NewWaiverHandler builds a new handler.
func NewWaiverHandler(service waiverService) *WaiverHandler {
	return &WaiverHandler{service: service}
}

// Grant godoc
// @Summary Grant a waiver against a fee entry
// @Tags Waivers
// @Accept json
// @Produce json
// @Param id path string true "Ledger entry ID"
// @Param payload body dto.GrantWaiverRequest true "Waiver payload"
// @Success 201 {object} response.Envelope
// @Router /fees/{id}/waivers [post]
func (h *WaiverHandler) Grant(c *gin.Context) {
	var req dto.GrantWaiverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid waiver payload"))
		return
	}
	result, err := h.service.Grant(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// List godoc
// @Summary List waivers of a fee entry
// @Tags Waivers
// @Produce json
// @Param id path string true "Ledger entry ID"
// @Success 200 {object} response.Envelope
// @Router /fees/{id}/waivers [get]
func (h *WaiverHandler) List(c *gin.Context) {
	waivers, err := h.service.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, waivers, nil)
}

// Revoke godoc
// @Summary Revoke a waiver
// @Tags Waivers
// @Produce json
// @Param id path string true "Waiver ID"
// @Param reopen query bool false "Reopen the entry if it is no longer settled"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /waivers/{id} [delete]
func (h *WaiverHandler) Revoke(c *gin.Context) {
	reopen, err := boolQuery(c, "reopen")
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.Revoke(c.Request.Context(), c.Param("id"), reopen != nil && *reopen, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
