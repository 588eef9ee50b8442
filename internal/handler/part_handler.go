package handler

import (
	"net/http"

	"fixtrack/backend/internal/middleware"
	"fixtrack/backend/internal/model"
	"fixtrack/backend/internal/repository"
	"fixtrack/backend/pkg/pagination"
	"fixtrack/backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// PartHandler manages the spare-part inventory consumed by order expenses.
type PartHandler struct {
	partRepo repository.PartRepository
}

func NewPartHandler(partRepo repository.PartRepository) *PartHandler {
	return &PartHandler{partRepo: partRepo}
}

func (h *PartHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/parts")
	group.Use(middleware.RequireAuth())
	{
		group.GET("", h.ListParts)

		admin := group.Group("")
		admin.Use(middleware.RequireRole(model.RoleAdmin, model.RoleMonitor))
		{
			admin.POST("", h.CreatePart)
			admin.PUT("/:partId", h.UpdatePart)
		}
	}
}

// @Summary      List spare parts
// @Tags         parts
// @Security     BearerAuth
// @Produce      json
// @Param        page   query int    false "Page number (default 1)"
// @Param        limit  query int    false "Items per page (default 20)"
// @Param        search query string false "Name filter"
// @Success      200 {object} response.Response{data=object}
// @Router       /api/parts [get]
func (h *PartHandler) ListParts(c *gin.Context) {
	params := pagination.Parse(c)
	parts, total, err := h.partRepo.List(c.Request.Context(), params.Page, params.Limit, c.Query("search"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paged(http.StatusOK, parts, total, params.Page, params.Limit))
}

type partRequest struct {
	SKU      string          `json:"sku" binding:"required"`
	Name     string          `json:"name" binding:"required"`
	Stock    int             `json:"stock" binding:"min=0"`
	UnitCost decimal.Decimal `json:"unit_cost"`
}

// @Summary      Create a spare part
// @Tags         parts
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        part body partRequest true "New part"
// @Success      201 {object} response.Response{data=model.Part}
// @Router       /api/parts [post]
func (h *PartHandler) CreatePart(c *gin.Context) {
	var req partRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	part := &model.Part{
		SKU:      req.SKU,
		Name:     req.Name,
		Stock:    req.Stock,
		UnitCost: req.UnitCost,
	}
	if err := h.partRepo.Create(c.Request.Context(), part); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, part))
}

// @Summary      Update a spare part
// @Tags         parts
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        partId path string      true "Part ID"
// @Param        part   body partRequest true "Updated fields"
// @Success      200 {object} response.Response{data=model.Part}
// @Router       /api/parts/{partId} [put]
func (h *PartHandler) UpdatePart(c *gin.Context) {
	id, ok := pathUUID(c, "partId")
	if !ok {
		return
	}

	var req partRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	part, err := h.partRepo.FindByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}

	part.SKU = req.SKU
	part.Name = req.Name
	part.Stock = req.Stock
	part.UnitCost = req.UnitCost
	if err := h.partRepo.Update(c.Request.Context(), part); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, part))
}
