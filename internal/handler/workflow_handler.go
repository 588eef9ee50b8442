package handler

import (
	"net/http"

	"fixtrack/backend/internal/middleware"
	"fixtrack/backend/internal/service"
	"fixtrack/backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WorkflowHandler exposes the transitions with side effects: points,
// proposals, returns, external repairs, assignment, transfers, reopening.
type WorkflowHandler struct {
	workflowService service.WorkflowService
}

func NewWorkflowHandler(workflowService service.WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{workflowService: workflowService}
}

func (h *WorkflowHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/orders/:id")
	group.Use(middleware.RequireAuth())
	{
		group.POST("/points", h.RequestPoints)
		group.POST("/proposal", h.SubmitProposal)
		group.POST("/proposal/decision", h.DecideProposal)
		group.POST("/proposal/ack", h.AcknowledgeApproval)
		group.POST("/return", h.RequestReturn)
		group.POST("/external", h.RequestExternal)
		group.POST("/claim", h.Claim)
		group.POST("/assign", h.Assign)
		group.POST("/assign/response", h.RespondAssignment)
		group.POST("/transfer", h.InitiateTransfer)
		group.POST("/transfer/resolve", h.ResolveTransfer)
		group.POST("/reopen", h.Reopen)
	}

	requests := router.Group("/api/requests")
	requests.Use(middleware.RequireAuth())
	{
		requests.GET("/points", h.PendingPointRequests)
		requests.POST("/points/:requestId/decision", h.DecidePoints)
		requests.POST("/returns/:requestId/decision", h.DecideReturn)
		requests.POST("/external/:requestId/decision", h.DecideExternal)
		requests.POST("/external/:requestId/receive", h.ReceiveExternal)
	}
}

type pointsRequest struct {
	Points     int        `json:"points" binding:"min=0"`
	SplitWith  *uuid.UUID `json:"split_with"`
	SplitShare int        `json:"split_share"`
}

// @Summary      Request repair points
// @Description  Requests up to one point auto-approve; larger requests need a supervisor decision
// @Tags         workflow
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id   path string        true "Order ID"
// @Param        body body pointsRequest true "Points"
// @Success      200 {object} response.Response{data=model.Order}
// @Router       /api/orders/{id}/points [post]
func (h *WorkflowHandler) RequestPoints(c *gin.Context) {
	actor, id, req, ok := bindWorkflow[pointsRequest](c)
	if !ok {
		return
	}
	order, err := h.workflowService.RequestPoints(c.Request.Context(), actor, id, req.Points, req.SplitWith, req.SplitShare)
	respond(c, order, err)
}

type decisionRequest struct {
	Approve bool   `json:"approve"`
	Reason  string `json:"reason"`
}

// @Summary      Decide a point request
// @Tags         workflow
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        requestId path string          true "Request ID"
// @Param        body      body decisionRequest true "Decision"
// @Success      200 {object} response.Response{data=model.Order}
// @Router       /api/requests/points/{requestId}/decision [post]
func (h *WorkflowHandler) DecidePoints(c *gin.Context) {
	actor, id, req, ok := bindRequestDecision(c)
	if !ok {
		return
	}
	order, err := h.workflowService.DecidePoints(c.Request.Context(), actor, id, req.Approve, req.Reason)
	respond(c, order, err)
}

// @Summary      List pending point requests
// @Tags         workflow
// @Security     BearerAuth
// @Produce      json
// @Success      200 {object} response.Response{data=[]model.PointRequest}
// @Router       /api/requests/points [get]
func (h *WorkflowHandler) PendingPointRequests(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	reqs, err := h.workflowService.PendingPointRequests(c.Request.Context(), actor)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, reqs))
}

type proposalRequest struct {
	Type     string          `json:"type" binding:"required,oneof=ESTIMATE AUTHORIZATION"`
	Note     string          `json:"note"`
	Estimate decimal.Decimal `json:"estimate"`
}

// @Summary      Submit a budget or authorization proposal
// @Tags         workflow
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id   path string          true "Order ID"
// @Param        body body proposalRequest true "Proposal"
// @Success      200 {object} response.Response{data=model.Order}
// @Router       /api/orders/{id}/proposal [post]
func (h *WorkflowHandler) SubmitProposal(c *gin.Context) {
	actor, id, req, ok := bindWorkflow[proposalRequest](c)
	if !ok {
		return
	}
	order, err := h.workflowService.SubmitProposal(c.Request.Context(), actor, id, req.Type, req.Note, req.Estimate)
	respond(c, order, err)
}

type proposalDecisionRequest struct {
	Approve       bool            `json:"approve"`
	FinalEstimate decimal.Decimal `json:"final_estimate"`
	Note          string          `json:"note"`
}

// @Summary      Decide a proposal
// @Tags         workflow
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id   path string                  true "Order ID"
// @Param        body body proposalDecisionRequest true "Decision"
// @Success      200 {object} response.Response{data=model.Order}
// @Router       /api/orders/{id}/proposal/decision [post]
func (h *WorkflowHandler) DecideProposal(c *gin.Context) {
	actor, id, req, ok := bindWorkflow[proposalDecisionRequest](c)
	if !ok {
		return
	}
	order, err := h.workflowService.DecideProposal(c.Request.Context(), actor, id, req.Approve, req.FinalEstimate, req.Note)
	respond(c, order, err)
}

// @Summary      Acknowledge a proposal decision
// @Tags         workflow
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Order ID"
// @Success      200 {object} response.Response{data=model.Order}
// @Router       /api/orders/{id}/proposal/ack [post]
func (h *WorkflowHandler) AcknowledgeApproval(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	order, err := h.workflowService.AcknowledgeApproval(c.Request.Context(), actor, id)
	respond(c, order, err)
}

type returnRequest struct {
	Reason        string          `json:"reason" binding:"required"`
	DiagnosticFee decimal.Decimal `json:"diagnostic_fee"`
}

// @Summary      Request return without repair
// @Tags         workflow
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id   path string        true "Order ID"
// @Param        body body returnRequest true "Return request"
// @Success      200 {object} response.Response{data=model.Order}
// @Router       /api/orders/{id}/return [post]
func (h *WorkflowHandler) RequestReturn(c *gin.Context) {
	actor, id, req, ok := bindWorkflow[returnRequest](c)
	if !ok {
		return
	}
	order, err := h.workflowService.RequestReturn(c.Request.Context(), actor, id, req.Reason, req.DiagnosticFee)
	respond(c, order, err)
}

// @Summary      Decide a return request
// @Tags         workflow
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        requestId path string          true "Request ID"
// @Param        body      body decisionRequest true "Decision"
// @Success      200 {object} response.Response{data=model.Order}
// @Router       /api/requests/returns/{requestId}/decision [post]
func (h *WorkflowHandler) DecideReturn(c *gin.Context) {
	actor, id, req, ok := bindRequestDecision(c)
	if !ok {
		return
	}
	order, err := h.workflowService.DecideReturn(c.Request.Context(), actor, id, req.Approve, req.Reason)
	respond(c, order, err)
}

type externalRequest struct {
	Workshop string `json:"workshop" binding:"required"`
	Reason   string `json:"reason" binding:"required"`
}

// @Summary      Request an external repair
// @Tags         workflow
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id   path string          true "Order ID"
// @Param        body body externalRequest true "External repair request"
// @Success      200 {object} response.Response{data=model.Order}
// @Router       /api/orders/{id}/external [post]
func (h *WorkflowHandler) RequestExternal(c *gin.Context) {
	actor, id, req, ok := bindWorkflow[externalRequest](c)
	if !ok {
		return
	}
	order, err := h.workflowService.RequestExternal(c.Request.Context(), actor, id, req.Workshop, req.Reason)
	respond(c, order, err)
}

// @Summary      Decide an external repair request
// @Tags         workflow
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        requestId path string          true "Request ID"
// @Param        body      body decisionRequest true "Decision"
// @Success      200 {object} response.Response{data=model.Order}
// @Router       /api/requests/external/{requestId}/decision [post]
func (h *WorkflowHandler) DecideExternal(c *gin.Context) {
	actor, id, req, ok := bindRequestDecision(c)
	if !ok {
		return
	}
	order, err := h.workflowService.DecideExternal(c.Request.Context(), actor, id, req.Approve)
	respond(c, order, err)
}

// @Summary      Receive a device back from the workshop
// @Tags         workflow
// @Security     BearerAuth
// @Produce      json
// @Param        requestId path string true "Request ID"
// @Success      200 {object} response.Response{data=model.Order}
// @Router       /api/requests/external/{requestId}/receive [post]
func (h *WorkflowHandler) ReceiveExternal(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "requestId")
	if !ok {
		return
	}
	order, err := h.workflowService.ReceiveExternal(c.Request.Context(), actor, id)
	respond(c, order, err)
}

// @Summary      Claim an unassigned order
// @Tags         workflow
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Order ID"
// @Success      200 {object} response.Response{data=model.Order}
// @Router       /api/orders/{id}/claim [post]
func (h *WorkflowHandler) Claim(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	order, err := h.workflowService.Claim(c.Request.Context(), actor, id)
	respond(c, order, err)
}

type assignRequest struct {
	TechnicianID uuid.UUID `json:"technician_id" binding:"required"`
}

// @Summary      Assign an order to a technician
// @Description  Admins, monitors, and receptionists assign directly; technicians start a handover the target must accept
// @Tags         workflow
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id   path string        true "Order ID"
// @Param        body body assignRequest true "Assignment"
// @Success      200 {object} response.Response{data=model.Order}
// @Router       /api/orders/{id}/assign [post]
func (h *WorkflowHandler) Assign(c *gin.Context) {
	actor, id, req, ok := bindWorkflow[assignRequest](c)
	if !ok {
		return
	}
	order, err := h.workflowService.Assign(c.Request.Context(), actor, id, req.TechnicianID)
	respond(c, order, err)
}

type acceptRequest struct {
	Accept bool `json:"accept"`
}

// @Summary      Accept or decline a handover
// @Tags         workflow
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id   path string        true "Order ID"
// @Param        body body acceptRequest true "Response"
// @Success      200 {object} response.Response{data=model.Order}
// @Router       /api/orders/{id}/assign/response [post]
func (h *WorkflowHandler) RespondAssignment(c *gin.Context) {
	actor, id, req, ok := bindWorkflow[acceptRequest](c)
	if !ok {
		return
	}
	order, err := h.workflowService.RespondAssignment(c.Request.Context(), actor, id, req.Accept)
	respond(c, order, err)
}

type transferRequest struct {
	TargetBranch string `json:"target_branch" binding:"required"`
}

// @Summary      Initiate a branch transfer
// @Tags         workflow
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id   path string          true "Order ID"
// @Param        body body transferRequest true "Transfer"
// @Success      200 {object} response.Response{data=model.Order}
// @Router       /api/orders/{id}/transfer [post]
func (h *WorkflowHandler) InitiateTransfer(c *gin.Context) {
	actor, id, req, ok := bindWorkflow[transferRequest](c)
	if !ok {
		return
	}
	order, err := h.workflowService.InitiateTransfer(c.Request.Context(), actor, id, req.TargetBranch)
	respond(c, order, err)
}

// @Summary      Complete or cancel a pending transfer
// @Tags         workflow
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id   path string        true "Order ID"
// @Param        body body acceptRequest true "Resolution"
// @Success      200 {object} response.Response{data=model.Order}
// @Router       /api/orders/{id}/transfer/resolve [post]
func (h *WorkflowHandler) ResolveTransfer(c *gin.Context) {
	actor, id, req, ok := bindWorkflow[acceptRequest](c)
	if !ok {
		return
	}
	order, err := h.workflowService.ResolveTransfer(c.Request.Context(), actor, id, req.Accept)
	respond(c, order, err)
}

type reopenRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// @Summary      Reopen a repaired order
// @Tags         workflow
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id   path string        true "Order ID"
// @Param        body body reopenRequest true "Reason"
// @Success      200 {object} response.Response{data=model.Order}
// @Router       /api/orders/{id}/reopen [post]
func (h *WorkflowHandler) Reopen(c *gin.Context) {
	actor, id, req, ok := bindWorkflow[reopenRequest](c)
	if !ok {
		return
	}
	order, err := h.workflowService.Reopen(c.Request.Context(), actor, id, req.Reason)
	respond(c, order, err)
}

// bindWorkflow extracts the actor, the order id, and the JSON body in one go.
func bindWorkflow[T any](c *gin.Context) (service.Actor, uuid.UUID, T, bool) {
	var req T
	actor, ok := currentActor(c)
	if !ok {
		return actor, uuid.Nil, req, false
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return actor, uuid.Nil, req, false
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return actor, uuid.Nil, req, false
	}
	return actor, id, req, true
}

func bindRequestDecision(c *gin.Context) (service.Actor, uuid.UUID, decisionRequest, bool) {
	var req decisionRequest
	actor, ok := currentActor(c)
	if !ok {
		return actor, uuid.Nil, req, false
	}
	id, ok := pathUUID(c, "requestId")
	if !ok {
		return actor, uuid.Nil, req, false
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return actor, uuid.Nil, req, false
	}
	return actor, id, req, true
}

func respond(c *gin.Context, data interface{}, err error) {
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, data))
}
