package handler

import (
	"net/http"
	"time"

	"fixtrack/backend/internal/middleware"
	"fixtrack/backend/internal/model"
	"fixtrack/backend/internal/printing"
	"fixtrack/backend/internal/service"
	"fixtrack/backend/pkg/pagination"
	"fixtrack/backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type FinanceHandler struct {
	financeService service.FinanceService
	orderService   service.OrderService
}

func NewFinanceHandler(financeService service.FinanceService, orderService service.OrderService) *FinanceHandler {
	return &FinanceHandler{financeService: financeService, orderService: orderService}
}

func (h *FinanceHandler) RegisterRoutes(router *gin.RouterGroup) {
	orders := router.Group("/api/orders/:id")
	orders.Use(middleware.RequireAuth())
	{
		orders.GET("/balance", h.GetBalance)
		orders.GET("/receipt", h.GetReceipt)
		orders.POST("/payments", h.RegisterDeposit)
		orders.POST("/deliver", h.Deliver)
		orders.POST("/expenses", h.AddExpense)
	}

	expenses := router.Group("/api/expenses")
	expenses.Use(middleware.RequireAuth())
	{
		expenses.DELETE("/:expenseId", h.RemoveExpense)
	}

	closings := router.Group("/api/closings")
	closings.Use(middleware.RequireRole(model.RoleCashier, model.RoleAdmin, model.RoleMonitor))
	{
		closings.POST("", h.CloseCash)
		closings.GET("", h.ListClosings)
	}
}

// @Summary      Get order balance
// @Description  Derived from the payment ledger; for stock orders includes investment and margin
// @Tags         finance
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Order ID"
// @Success      200 {object} response.Response{data=service.OrderBalance}
// @Router       /api/orders/{id}/balance [get]
func (h *FinanceHandler) GetBalance(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	balance, err := h.financeService.Balance(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, balance))
}

// @Summary      Render the order receipt
// @Tags         finance
// @Security     BearerAuth
// @Produce      plain
// @Param        id path string true "Order ID"
// @Success      200 {string} string
// @Router       /api/orders/{id}/receipt [get]
func (h *FinanceHandler) GetReceipt(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	order, err := h.orderService.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	balance, err := h.financeService.Balance(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}

	c.String(http.StatusOK, printing.RenderReceipt(order, balance.Charge, balance.Paid, time.Now()))
}

// @Summary      Register a deposit or refund
// @Tags         finance
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id   path string              true "Order ID"
// @Param        body body service.PaymentLine true "Payment line"
// @Success      200 {object} response.Response{data=model.Order}
// @Router       /api/orders/{id}/payments [post]
func (h *FinanceHandler) RegisterDeposit(c *gin.Context) {
	actor, id, line, ok := bindWorkflow[service.PaymentLine](c)
	if !ok {
		return
	}
	order, err := h.financeService.RegisterDeposit(c.Request.Context(), actor, id, line)
	respond(c, order, err)
}

type deliverRequest struct {
	Lines []service.PaymentLine `json:"lines" binding:"required,min=1,dive"`
}

// @Summary      Deliver a repaired order
// @Description  Payment lines, history, and the RETURNED status commit atomically; lines must settle the remaining balance
// @Tags         finance
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id   path string         true "Order ID"
// @Param        body body deliverRequest true "Settling payment lines"
// @Success      200 {object} response.Response{data=model.Order}
// @Router       /api/orders/{id}/deliver [post]
func (h *FinanceHandler) Deliver(c *gin.Context) {
	actor, id, req, ok := bindWorkflow[deliverRequest](c)
	if !ok {
		return
	}
	order, err := h.financeService.Deliver(c.Request.Context(), actor, id, req.Lines)
	respond(c, order, err)
}

type closeCashRequest struct {
	CountedTotal decimal.Decimal `json:"counted_total" binding:"required"`
	Note         string          `json:"note"`
}

// @Summary      Close the cash drawer
// @Description  Reconciles the caller's unreconciled payments against the counted total
// @Tags         finance
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body body closeCashRequest true "Counted drawer"
// @Success      201 {object} response.Response{data=model.CashClosing}
// @Router       /api/closings [post]
func (h *FinanceHandler) CloseCash(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req closeCashRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	closing, err := h.financeService.CloseCash(c.Request.Context(), actor, req.CountedTotal, req.Note)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, map[string]interface{}{
		"closing": closing,
		"report":  printing.RenderClosingReport(closing, actor.Name),
	}))
}

// @Summary      List cash closings
// @Tags         finance
// @Security     BearerAuth
// @Produce      json
// @Param        page  query int false "Page number (default 1)"
// @Param        limit query int false "Items per page (default 20)"
// @Success      200 {object} response.Response{data=object}
// @Router       /api/closings [get]
func (h *FinanceHandler) ListClosings(c *gin.Context) {
	params := pagination.Parse(c)
	closings, total, err := h.financeService.ListClosings(c.Request.Context(), params.Page, params.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paged(http.StatusOK, closings, total, params.Page, params.Limit))
}

type expenseRequest struct {
	Description string          `json:"description" binding:"required"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	PartID      *uuid.UUID      `json:"part_id"`
}

// @Summary      Add an expense to an order
// @Description  Linking a part consumes one unit of stock in the same transaction
// @Tags         finance
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id   path string         true "Order ID"
// @Param        body body expenseRequest true "Expense"
// @Success      200 {object} response.Response{data=model.Order}
// @Router       /api/orders/{id}/expenses [post]
func (h *FinanceHandler) AddExpense(c *gin.Context) {
	actor, id, req, ok := bindWorkflow[expenseRequest](c)
	if !ok {
		return
	}
	order, err := h.financeService.AddExpense(c.Request.Context(), actor, id, req.Description, req.Amount, req.PartID)
	respond(c, order, err)
}

// @Summary      Remove an expense
// @Tags         finance
// @Security     BearerAuth
// @Produce      json
// @Param        expenseId path string true "Expense ID"
// @Success      200 {object} response.Response{data=model.Order}
// @Router       /api/expenses/{expenseId} [delete]
func (h *FinanceHandler) RemoveExpense(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "expenseId")
	if !ok {
		return
	}
	order, err := h.financeService.RemoveExpense(c.Request.Context(), actor, id)
	respond(c, order, err)
}
