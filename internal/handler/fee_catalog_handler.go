package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-fee-ledger/internal/dto"
	"github.com/noah-isme/sma-fee-ledger/internal/models"
	appErrors "github.com/noah-isme/sma-fee-ledger/pkg/errors"
	"github.com/noah-isme/sma-fee-ledger/pkg/response"
)

type feeCatalogService interface {
	Create(ctx context.Context, req dto.CreateFeeCatalogRequest, actor *models.JWTClaims) (*models.FeeCatalogEntry, error)
	Get(ctx context.Context, id string) (*models.FeeCatalogEntry, error)
	List(ctx context.Context, filter models.FeeCatalogFilter) ([]models.FeeCatalogEntry, *models.Pagination, error)
	Update(ctx context.Context, id string, req dto.UpdateFeeCatalogRequest, actor *models.JWTClaims) (*models.FeeCatalogEntry, error)
	SetActive(ctx context.Context, id string, req dto.SetFeeCatalogActiveRequest, actor *models.JWTClaims) (*models.FeeCatalogEntry, error)
}

// FeeCatalogHandler exposes fee schedule management endpoints.
type FeeCatalogHandler struct {
	service feeCatalogService
}

// NewFeeCatalogHandler builds a new handler.
func NewFeeCatalogHandler(service feeCatalogService) *FeeCatalogHandler {
	return &FeeCatalogHandler{service: service}
}

// List godoc
// @Summary List fee schedules
// @Tags FeeCatalog
// @Produce json
// @Param classId query string false "Class ID filter"
// @Param termId query string false "Term ID filter"
// @Param frequency query string false "monthly, quarterly, semester or annual"
// @Param active query bool false "Only active or inactive schedules"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /fee-catalog [get]
func (h *FeeCatalogHandler) List(c *gin.Context) {
	filter := models.FeeCatalogFilter{
		ClassID:   c.Query("classId"),
		TermID:    c.Query("termId"),
		Frequency: models.FeeFrequency(c.Query("frequency")),
	}
	active, err := boolQuery(c, "active")
	if err != nil {
		response.Error(c, err)
		return
	}
	filter.Active = active
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("pageSize", "20")); err == nil {
		filter.PageSize = size
	}

	entries, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}

// Get godoc
// @Summary Get a fee schedule
// @Tags FeeCatalog
// @Produce json
// @Param id path string true "Fee catalog entry ID"
// @Success 200 {object} response.Envelope
// @Router /fee-catalog/{id} [get]
func (h *FeeCatalogHandler) Get(c *gin.Context) {
	entry, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Create godoc
// @Summary Create a fee schedule for a class and term
// @Tags FeeCatalog
// @Accept json
// @Produce json
// @Param payload body dto.CreateFeeCatalogRequest true "Fee schedule payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /fee-catalog [post]
func (h *FeeCatalogHandler) Create(c *gin.Context) {
	var req dto.CreateFeeCatalogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid fee catalog payload"))
		return
	}
	entry, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// Update godoc
// @Summary Correct the amounts or dates of a fee schedule
// @Tags FeeCatalog
// @Accept json
// @Produce json
// @Param id path string true "Fee catalog entry ID"
// @Param payload body dto.UpdateFeeCatalogRequest true "Fee schedule payload"
// @Success 200 {object} response.Envelope
// @Router /fee-catalog/{id} [put]
func (h *FeeCatalogHandler) Update(c *gin.Context) {
	var req dto.UpdateFeeCatalogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid fee catalog payload"))
		return
	}
	entry, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// SetActive godoc
// @Summary Activate or deactivate a fee schedule
// @Tags FeeCatalog
// @Accept json
// @Produce json
// @Param id path string true "Fee catalog entry ID"
// @Param payload body dto.SetFeeCatalogActiveRequest true "Active flag"
// @Success 200 {object} response.Envelope
// @Router /fee-catalog/{id}/active [patch]
func (h *FeeCatalogHandler) SetActive(c *gin.Context) {
	var req dto.SetFeeCatalogActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid active payload"))
		return
	}
	entry, err := h.service.SetActive(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}
