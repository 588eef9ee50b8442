package handler

import (
	"net/http"

	"fixtrack/backend/internal/middleware"
	"fixtrack/backend/internal/model"
	"fixtrack/backend/internal/repository"
	"fixtrack/backend/pkg/pagination"
	"fixtrack/backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// HistoryHandler exposes the shop-wide activity feed and per-order trails.
type HistoryHandler struct {
	historyRepo repository.HistoryRepository
}

func NewHistoryHandler(historyRepo repository.HistoryRepository) *HistoryHandler {
	return &HistoryHandler{historyRepo: historyRepo}
}

func (h *HistoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/history")
	{
		group.GET("", middleware.RequireRole(model.RoleAdmin, model.RoleMonitor), h.GetActivityFeed)
		group.GET("/orders/:id", middleware.RequireAuth(), h.GetOrderTrail)
	}
}

// @Summary      Get the activity feed
// @Description  All history entries across orders, newest first
// @Tags         history
// @Security     BearerAuth
// @Produce      json
// @Param        page  query int false "Page number (default 1)"
// @Param        limit query int false "Items per page (default 20)"
// @Success      200 {object} response.Response{data=object}
// @Router       /api/history [get]
func (h *HistoryHandler) GetActivityFeed(c *gin.Context) {
	params := pagination.Parse(c)
	logs, total, err := h.historyRepo.ListRecent(c.Request.Context(), params.Page, params.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paged(http.StatusOK, logs, total, params.Page, params.Limit))
}

// @Summary      Get one order's audit trail
// @Tags         history
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Order ID"
// @Success      200 {object} response.Response{data=[]model.HistoryLog}
// @Router       /api/history/orders/{id} [get]
func (h *HistoryHandler) GetOrderTrail(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	logs, err := h.historyRepo.ListByOrder(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, logs))
}
