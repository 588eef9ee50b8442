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

type CustomerHandler struct {
	customerRepo repository.CustomerRepository
}

func NewCustomerHandler(customerRepo repository.CustomerRepository) *CustomerHandler {
	return &CustomerHandler{customerRepo: customerRepo}
}

func (h *CustomerHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/customers")
	group.Use(middleware.RequireAuth())
	{
		group.GET("", h.ListCustomers)
		group.GET("/:customerId", h.GetCustomer)
		group.POST("", h.CreateCustomer)
		group.PUT("/:customerId", h.UpdateCustomer)
	}
}

// @Summary      List customers
// @Tags         customers
// @Security     BearerAuth
// @Produce      json
// @Param        page   query int    false "Page number (default 1)"
// @Param        limit  query int    false "Items per page (default 20)"
// @Param        search query string false "Name or phone filter"
// @Success      200 {object} response.Response{data=object}
// @Router       /api/customers [get]
func (h *CustomerHandler) ListCustomers(c *gin.Context) {
	params := pagination.Parse(c)
	customers, total, err := h.customerRepo.List(c.Request.Context(), params.Page, params.Limit, c.Query("search"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paged(http.StatusOK, customers, total, params.Page, params.Limit))
}

// @Summary      Get one customer
// @Tags         customers
// @Security     BearerAuth
// @Produce      json
// @Param        customerId path string true "Customer ID"
// @Success      200 {object} response.Response{data=model.Customer}
// @Router       /api/customers/{customerId} [get]
func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	id, ok := pathUUID(c, "customerId")
	if !ok {
		return
	}
	customer, err := h.customerRepo.FindByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, customer))
}

type customerRequest struct {
	Name     string `json:"name" binding:"required"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Document string `json:"document"`
	Note     string `json:"note"`
}

// @Summary      Create a customer
// @Tags         customers
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        customer body customerRequest true "New customer"
// @Success      201 {object} response.Response{data=model.Customer}
// @Router       /api/customers [post]
func (h *CustomerHandler) CreateCustomer(c *gin.Context) {
	var req customerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	customer := &model.Customer{
		Name:     req.Name,
		Phone:    req.Phone,
		Email:    req.Email,
		Document: req.Document,
		Note:     req.Note,
	}
	if err := h.customerRepo.Create(c.Request.Context(), customer); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, customer))
}

// @Summary      Update a customer
// @Tags         customers
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        customerId path string          true "Customer ID"
// @Param        customer   body customerRequest true "Updated fields"
// @Success      200 {object} response.Response{data=model.Customer}
// @Router       /api/customers/{customerId} [put]
func (h *CustomerHandler) UpdateCustomer(c *gin.Context) {
	id, ok := pathUUID(c, "customerId")
	if !ok {
		return
	}

	var req customerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	customer, err := h.customerRepo.FindByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}

	customer.Name = req.Name
	customer.Phone = req.Phone
	customer.Email = req.Email
	customer.Document = req.Document
	customer.Note = req.Note
	if err := h.customerRepo.Update(c.Request.Context(), customer); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, customer))
}
