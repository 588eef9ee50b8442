package handler

import (
	"net/http"
	"time"

	"fixtrack/backend/internal/middleware"
	"fixtrack/backend/internal/model"
	"fixtrack/backend/internal/service"
	"fixtrack/backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type StatisticsHandler struct {
	statisticsService service.StatisticsService
}

func NewStatisticsHandler(statisticsService service.StatisticsService) *StatisticsHandler {
	return &StatisticsHandler{statisticsService: statisticsService}
}

func (h *StatisticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/statistics")
	{
		group.GET("", middleware.RequireRole(model.RoleAdmin, model.RoleMonitor), h.GetReport)
	}
}

// @Summary      Get shop report
// @Description  Revenue, refunds, order counts, technician ranking and top device models for a period
// @Tags         statistics
// @Security     BearerAuth
// @Produce      json
// @Param        start_date query string false "Start date (RFC3339, defaults to first of month)"
// @Param        end_date   query string false "End date (RFC3339, defaults to now)"
// @Success      200 {object} response.Response{data=model.ShopReport}
// @Router       /api/statistics [get]
func (h *StatisticsHandler) GetReport(c *gin.Context) {
	now := time.Now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	end := now

	var err error
	if raw := c.Query("start_date"); raw != "" {
		if start, err = time.Parse(time.RFC3339, raw); err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid start_date format, expected RFC3339"))
			return
		}
	}
	if raw := c.Query("end_date"); raw != "" {
		if end, err = time.Parse(time.RFC3339, raw); err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid end_date format, expected RFC3339"))
			return
		}
	}

	report, err := h.statisticsService.ShopReport(c.Request.Context(), start, end)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
}
