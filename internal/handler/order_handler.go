package handler

import (
	"net/http"
	"time"

	"fixtrack/backend/internal/history"
	"fixtrack/backend/internal/middleware"
	"fixtrack/backend/internal/service"
	"fixtrack/backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	orderService service.OrderService
}

func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

func (h *OrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/orders")
	group.Use(middleware.RequireAuth())
	{
		group.GET("", h.GetBoard)
		group.GET("/closed", h.LoadMoreClosed)
		group.GET("/search", h.Search)
		group.GET("/:id", h.GetOrder)
		group.POST("", h.CreateOrder)
		group.PATCH("/:id", h.UpdateFields)
		group.PUT("/:id/status", h.UpdateStatus)
		group.POST("/:id/logs", h.RecordLog)
		group.DELETE("/:id", h.DeleteOrder)
	}
}

// @Summary      Get order board
// @Description  Returns all active orders plus the first page of closed ones
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Success      200 {object} response.Response{data=service.Board}
// @Router       /api/orders [get]
func (h *OrderHandler) GetBoard(c *gin.Context) {
	board, err := h.orderService.Board(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, board))
}

// @Summary      Load more closed orders
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Success      200 {object} response.Response{data=object}
// @Router       /api/orders/closed [get]
func (h *OrderHandler) LoadMoreClosed(c *gin.Context) {
	orders, hasMore, err := h.orderService.LoadMoreClosed(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"orders":   orders,
		"has_more": hasMore,
	}))
}

// @Summary      Search orders
// @Description  Numeric terms match the readable order number; text matches id, customer name, device model, and IMEI
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        q query string true "Search term, minimum 3 characters"
// @Success      200 {object} response.Response{data=[]model.Order}
// @Router       /api/orders/search [get]
func (h *OrderHandler) Search(c *gin.Context) {
	orders, err := h.orderService.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, orders))
}

// @Summary      Get one order
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Order ID"
// @Success      200 {object} response.Response{data=model.Order}
// @Router       /api/orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	order, err := h.orderService.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// @Summary      Create order
// @Description  The order is visible immediately; if the store write fails it stays queued and unsynced until retried
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        order body service.CreateOrderRequest true "New order"
// @Success      201 {object} response.Response{data=model.Order}
// @Router       /api/orders [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	order, err := h.orderService.Create(c.Request.Context(), actor, req)
	if err != nil {
		fail(c, err)
		return
	}

	status := http.StatusCreated
	if order.Unsynced {
		status = http.StatusAccepted
	}
	c.JSON(status, response.Success(status, order))
}

type updateFieldsRequest struct {
	IMEI           *string    `json:"imei"`
	DeviceModel    *string    `json:"device_model"`
	DevicePassword *string    `json:"device_password"`
	Accessories    *string    `json:"accessories"`
	Priority       *int       `json:"priority"`
	Deadline       *time.Time `json:"deadline"`
	Status         *string    `json:"status"`
	Reason         string     `json:"reason"`
}

// @Summary      Update order fields
// @Description  Partial update; each changed field is logged in the order's history
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id    path string              true "Order ID"
// @Param        patch body updateFieldsRequest true "Fields to change"
// @Success      200 {object} response.Response{data=model.Order}
// @Router       /api/orders/{id} [patch]
func (h *OrderHandler) UpdateFields(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req updateFieldsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	patch := history.FieldPatch{
		IMEI:           req.IMEI,
		DeviceModel:    req.DeviceModel,
		DevicePassword: req.DevicePassword,
		Accessories:    req.Accessories,
		Priority:       req.Priority,
		Deadline:       req.Deadline,
		Status:         req.Status,
		Reason:         req.Reason,
	}

	order, err := h.orderService.UpdateFields(c.Request.Context(), actor, id, patch)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note"`
}

// @Summary      Update order status
// @Description  Simple transitions only; workflow-owned transitions go through their own endpoints
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id   path string              true "Order ID"
// @Param        body body updateStatusRequest true "Target status"
// @Success      200 {object} response.Response{data=model.Order}
// @Router       /api/orders/{id}/status [put]
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	order, err := h.orderService.UpdateStatus(c.Request.Context(), actor, id, req.Status, req.Note)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

type recordLogRequest struct {
	Category string                 `json:"category"`
	Message  string                 `json:"message" binding:"required"`
	Meta     map[string]interface{} `json:"meta"`
}

// @Summary      Append a history note
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id   path string           true "Order ID"
// @Param        body body recordLogRequest true "Log entry"
// @Success      201 {object} response.Response
// @Router       /api/orders/{id}/logs [post]
func (h *OrderHandler) RecordLog(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req recordLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	if err := h.orderService.RecordLog(c.Request.Context(), actor, id, req.Category, req.Message, req.Meta); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, nil))
}

// @Summary      Delete order
// @Description  Permanent removal including history. Admin only.
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Order ID"
// @Success      200 {object} response.Response
// @Router       /api/orders/{id} [delete]
func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.orderService.Delete(c.Request.Context(), actor, id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, nil))
}
