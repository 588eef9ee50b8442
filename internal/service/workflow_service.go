package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fixtrack/backend/internal/cache"
	"fixtrack/backend/internal/history"
	"fixtrack/backend/internal/model"
	"fixtrack/backend/internal/notification"
	"fixtrack/backend/internal/realtime"
	"fixtrack/backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// autoApprovePointsMax is the highest point request that skips the supervisor
// decision.
const autoApprovePointsMax = 1

// WorkflowService owns every status transition with side effects: points,
// budget proposals, unrepaired returns, external repairs, assignment, branch
// transfers, and reopening. Each committed action writes at least one history
// entry in the same transaction as the order change.
type WorkflowService interface {
	RequestPoints(ctx context.Context, actor Actor, orderID uuid.UUID, points int, splitWith *uuid.UUID, splitShare int) (*model.Order, error)
	DecidePoints(ctx context.Context, actor Actor, requestID uuid.UUID, approve bool, reason string) (*model.Order, error)
	PendingPointRequests(ctx context.Context, actor Actor) ([]model.PointRequest, error)

	SubmitProposal(ctx context.Context, actor Actor, orderID uuid.UUID, proposalType, note string, estimate decimal.Decimal) (*model.Order, error)
	DecideProposal(ctx context.Context, actor Actor, orderID uuid.UUID, approve bool, finalEstimate decimal.Decimal, note string) (*model.Order, error)
	AcknowledgeApproval(ctx context.Context, actor Actor, orderID uuid.UUID) (*model.Order, error)

	RequestReturn(ctx context.Context, actor Actor, orderID uuid.UUID, reason string, diagnosticFee decimal.Decimal) (*model.Order, error)
	DecideReturn(ctx context.Context, actor Actor, requestID uuid.UUID, approve bool, reason string) (*model.Order, error)

	RequestExternal(ctx context.Context, actor Actor, orderID uuid.UUID, workshop, reason string) (*model.Order, error)
	DecideExternal(ctx context.Context, actor Actor, repairID uuid.UUID, approve bool) (*model.Order, error)
	ReceiveExternal(ctx context.Context, actor Actor, repairID uuid.UUID) (*model.Order, error)

	Claim(ctx context.Context, actor Actor, orderID uuid.UUID) (*model.Order, error)
	Assign(ctx context.Context, actor Actor, orderID, technicianID uuid.UUID) (*model.Order, error)
	RespondAssignment(ctx context.Context, actor Actor, orderID uuid.UUID, accept bool) (*model.Order, error)

	InitiateTransfer(ctx context.Context, actor Actor, orderID uuid.UUID, targetBranch string) (*model.Order, error)
	ResolveTransfer(ctx context.Context, actor Actor, orderID uuid.UUID, accept bool) (*model.Order, error)

	Reopen(ctx context.Context, actor Actor, orderID uuid.UUID, reason string) (*model.Order, error)
}

type workflowService struct {
	broadcaster

	orderRepo    repository.OrderRepository
	historyRepo  repository.HistoryRepository
	workflowRepo repository.WorkflowRepository
	userRepo     repository.UserRepository
	txManager    repository.TransactionManager
}

func NewWorkflowService(
	orderRepo repository.OrderRepository,
	historyRepo repository.HistoryRepository,
	workflowRepo repository.WorkflowRepository,
	userRepo repository.UserRepository,
	txManager repository.TransactionManager,
	orderCache *cache.OrderCache,
	hub *realtime.Hub,
	notifier notification.Notifier,
) WorkflowService {
	return &workflowService{
		broadcaster:  broadcaster{cache: orderCache, hub: hub, notifier: notifier},
		orderRepo:    orderRepo,
		historyRepo:  historyRepo,
		workflowRepo: workflowRepo,
		userRepo:     userRepo,
		txManager:    txManager,
	}
}

// apply runs extra (optional) plus the column update and history entries in
// one transaction, then reloads and publishes the order.
func (s *workflowService) apply(
	ctx context.Context,
	orderID uuid.UUID,
	cols map[string]interface{},
	entries []model.HistoryLog,
	extra func(txCtx context.Context) error,
) (*model.Order, error) {
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if extra != nil {
			if err := extra(txCtx); err != nil {
				return err
			}
		}
		if len(cols) > 0 {
			if err := s.orderRepo.UpdateColumns(txCtx, orderID, cols); err != nil {
				return fmt.Errorf("failed to update order: %w", err)
			}
		}
		if err := s.historyRepo.AppendAll(txCtx, entries); err != nil {
			return fmt.Errorf("failed to append history: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload order: %w", err)
	}
	s.publishUpdated(order)
	return order, nil
}

// --- Points ---

// RequestPoints marks a repair as finished and claims the technician's
// points. Requests up to one point auto-approve and move the order to
// REPAIRED immediately; larger requests wait for a supervisor, leaving the
// status untouched until the decision. A split proposal hands part of the
// total to a second technician and is only realized on approval.
func (s *workflowService) RequestPoints(ctx context.Context, actor Actor, orderID uuid.UUID, points int, splitWith *uuid.UUID, splitShare int) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("order not found: %w", err)
	}
	if !actor.isAssignee(order) {
		return nil, ErrNotAssignee
	}
	if order.Status != model.StatusInRepair && order.Status != model.StatusDiagnosis {
		return nil, ErrIllegalTransition
	}
	if points < 0 {
		return nil, ErrInvalidAmount
	}
	if splitWith != nil && (splitShare <= 0 || splitShare >= points) {
		return nil, ErrSplitMismatch
	}
	if splitWith == nil && splitShare != 0 {
		return nil, ErrSplitMismatch
	}

	if points <= autoApprovePointsMax && splitWith == nil {
		now := time.Now()
		req := &model.PointRequest{
			OrderID:         orderID,
			RequestedBy:     actor.ID,
			RequestedPoints: points,
			Status:          model.RequestApproved,
			DecidedAt:       &now,
		}
		entry := history.NewEntry(orderID, model.StatusRepaired, model.CategoryPointsDecided,
			fmt.Sprintf("repair finished, %d point(s) awarded automatically", points),
			actor.historyActor(), map[string]interface{}{"points": points, "auto": true})
		updated, err := s.apply(ctx, orderID,
			map[string]interface{}{"points_awarded": points, "status": model.StatusRepaired},
			[]model.HistoryLog{entry},
			func(txCtx context.Context) error {
				return s.workflowRepo.CreatePointRequest(txCtx, req)
			})
		if err != nil {
			return nil, err
		}
		s.notifyStatus(updated, model.StatusRepaired)
		return updated, nil
	}

	req := &model.PointRequest{
		OrderID:         orderID,
		RequestedBy:     actor.ID,
		RequestedPoints: points,
		SplitWith:       splitWith,
		SplitShare:      splitShare,
		Status:          model.RequestPending,
	}
	meta := map[string]interface{}{"points": points}
	if splitWith != nil {
		meta["split_with"] = splitWith.String()
		meta["split_share"] = splitShare
	}
	entry := history.NewEntry(orderID, order.Status, model.CategoryPointsRequested,
		fmt.Sprintf("%d point(s) requested", points), actor.historyActor(), meta)

	return s.apply(ctx, orderID, nil, []model.HistoryLog{entry},
		func(txCtx context.Context) error {
			return s.workflowRepo.CreatePointRequest(txCtx, req)
		})
}

// DecidePoints settles a pending point request. On approval the requester's
// share lands on the order; a split share is recorded against the partner in
// the trail.
func (s *workflowService) DecidePoints(ctx context.Context, actor Actor, requestID uuid.UUID, approve bool, reason string) (*model.Order, error) {
	if !actor.isSupervisor() {
		return nil, ErrForbidden
	}

	req, err := s.workflowRepo.FindPointRequest(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("point request not found: %w", err)
	}
	if req.Status != model.RequestPending {
		return nil, ErrNotPending
	}
	if !approve && reason == "" {
		return nil, ErrMissingReason
	}

	order, err := s.orderRepo.FindByID(ctx, req.OrderID)
	if err != nil {
		return nil, fmt.Errorf("order not found: %w", err)
	}

	now := time.Now()
	actorID := actor.ID
	req.DecidedBy = &actorID
	req.DecidedAt = &now

	var cols map[string]interface{}
	var entry model.HistoryLog
	if approve {
		req.Status = model.RequestApproved
		awarded := req.RequestedPoints - req.SplitShare
		cols = map[string]interface{}{"points_awarded": awarded, "status": model.StatusRepaired}
		meta := map[string]interface{}{"points": awarded, "requested": req.RequestedPoints}
		if req.SplitWith != nil {
			meta["split_with"] = req.SplitWith.String()
			meta["split_share"] = req.SplitShare
		}
		entry = history.NewEntry(order.ID, model.StatusRepaired, model.CategoryPointsDecided,
			fmt.Sprintf("repair finished, point request approved: %d point(s)", awarded),
			actor.historyActor(), meta)
	} else {
		req.Status = model.RequestRejected
		req.RejectionReason = reason
		entry = history.NewEntry(order.ID, order.Status, model.CategoryPointsDecided,
			fmt.Sprintf("point request rejected: %s", reason),
			actor.historyActor(), map[string]interface{}{"requested": req.RequestedPoints, "reason": reason})
	}

	updated, err := s.apply(ctx, order.ID, cols, []model.HistoryLog{entry},
		func(txCtx context.Context) error {
			return s.workflowRepo.UpdatePointRequest(txCtx, req)
		})
	if err != nil {
		return nil, err
	}
	if approve {
		s.notifyStatus(updated, model.StatusRepaired)
	}
	return updated, nil
}

func (s *workflowService) PendingPointRequests(ctx context.Context, actor Actor) ([]model.PointRequest, error) {
	if !actor.isSupervisor() {
		return nil, ErrForbidden
	}
	return s.workflowRepo.ListPendingPointRequests(ctx)
}

// --- Proposals ---

// SubmitProposal parks an order in WAITING_APPROVAL until someone signs off
// on the budget or the go-ahead. Only the assigned technician submits, and
// only from DIAGNOSIS.
func (s *workflowService) SubmitProposal(ctx context.Context, actor Actor, orderID uuid.UUID, proposalType, note string, estimate decimal.Decimal) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("order not found: %w", err)
	}
	if !actor.canActOnOrder(order) {
		return nil, ErrForbidden
	}
	if order.Status != model.StatusDiagnosis {
		return nil, ErrIllegalTransition
	}
	if proposalType != model.ProposalEstimate && proposalType != model.ProposalAuthorization {
		return nil, fmt.Errorf("unknown proposal type %q", proposalType)
	}
	if proposalType == model.ProposalEstimate && !estimate.IsPositive() {
		return nil, ErrInvalidAmount
	}

	cols := map[string]interface{}{
		"status":        model.StatusWaitingApproval,
		"proposal_type": proposalType,
		"proposal_note": note,
	}
	meta := map[string]interface{}{"proposal_type": proposalType}
	if proposalType == model.ProposalEstimate {
		cols["estimated_cost"] = estimate
		meta["estimate"] = estimate.String()
	}

	entry := history.NewEntry(orderID, model.StatusWaitingApproval, model.CategoryProposal,
		proposalNote(proposalType, note, estimate), actor.historyActor(), meta)

	return s.apply(ctx, orderID, cols, []model.HistoryLog{entry}, nil)
}

func proposalNote(proposalType, note string, estimate decimal.Decimal) string {
	if proposalType == model.ProposalEstimate {
		return fmt.Sprintf("budget proposal submitted: %s", estimate.StringFixed(2))
	}
	if note != "" {
		return fmt.Sprintf("authorization requested: %s", note)
	}
	return "authorization requested"
}

// DecideProposal resolves a WAITING_APPROVAL order. Any non-technician role
// may decide. Approval moves it to IN_REPAIR, locks in the final estimate,
// and flags the assignee to acknowledge; rejection sends it back to
// DIAGNOSIS with the proposal cleared.
func (s *workflowService) DecideProposal(ctx context.Context, actor Actor, orderID uuid.UUID, approve bool, finalEstimate decimal.Decimal, note string) (*model.Order, error) {
	if !actor.canDecideProposal() {
		return nil, ErrForbidden
	}

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("order not found: %w", err)
	}
	if order.Status != model.StatusWaitingApproval {
		return nil, ErrIllegalTransition
	}
	if !approve && note == "" {
		return nil, ErrMissingReason
	}

	var cols map[string]interface{}
	var entry model.HistoryLog

	if approve {
		cols = map[string]interface{}{
			"status":               model.StatusInRepair,
			"approval_ack_pending": true,
			"proposal_type":        "",
			"proposal_note":        "",
		}
		if finalEstimate.IsPositive() {
			cols["estimated_cost"] = finalEstimate
		}
		if note != "" {
			cols["tech_notes"] = appendNote(order.TechNotes, note)
		}
		entry = history.NewEntry(orderID, model.StatusInRepair, model.CategoryProposalDecided,
			"proposal approved", actor.historyActor(),
			map[string]interface{}{"approved": true, "final_estimate": finalEstimate.String()})
	} else {
		cols = map[string]interface{}{
			"status":        model.StatusDiagnosis,
			"proposal_type": "",
			"proposal_note": "",
		}
		entry = history.NewEntry(orderID, model.StatusDiagnosis, model.CategoryProposalDecided,
			fmt.Sprintf("proposal rejected: %s", note), actor.historyActor(),
			map[string]interface{}{"approved": false, "reason": note})
	}

	updated, err := s.apply(ctx, orderID, cols, []model.HistoryLog{entry}, nil)
	if err == nil && approve {
		s.notifyStatus(updated, model.StatusInRepair)
	}
	return updated, err
}

func appendNote(existing, note string) string {
	note = strings.TrimSpace(note)
	if existing == "" {
		return note
	}
	return existing + "\n" + note
}

// AcknowledgeApproval clears the flag telling the assignee their proposal was
// decided while they were away.
func (s *workflowService) AcknowledgeApproval(ctx context.Context, actor Actor, orderID uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("order not found: %w", err)
	}
	if !actor.isAssignee(order) {
		return nil, ErrNotAssignee
	}
	if !order.ApprovalAckPending {
		return order, nil
	}

	entry := history.NewEntry(orderID, order.Status, model.CategoryApprovalAck,
		"proposal decision acknowledged", actor.historyActor(), nil)
	return s.apply(ctx, orderID,
		map[string]interface{}{"approval_ack_pending": false},
		[]model.HistoryLog{entry}, nil)
}

// --- Returns without repair ---

// RequestReturn asks to hand the device back unrepaired, charging at most a
// diagnostic fee. The order keeps its current status until a supervisor
// decides.
func (s *workflowService) RequestReturn(ctx context.Context, actor Actor, orderID uuid.UUID, reason string, diagnosticFee decimal.Decimal) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("order not found: %w", err)
	}
	if !actor.canActOnOrder(order) {
		return nil, ErrForbidden
	}
	if order.IsClosed() {
		return nil, ErrOrderClosed
	}
	if strings.TrimSpace(reason) == "" {
		return nil, ErrMissingReason
	}
	if diagnosticFee.IsNegative() {
		return nil, ErrInvalidAmount
	}

	req := &model.ReturnRequest{
		OrderID:       orderID,
		RequestedBy:   actor.ID,
		Reason:        reason,
		DiagnosticFee: diagnosticFee,
		Status:        model.RequestPending,
	}
	entry := history.NewEntry(orderID, order.Status, model.CategoryReturnRequested,
		fmt.Sprintf("return without repair requested: %s", reason),
		actor.historyActor(), map[string]interface{}{"diagnostic_fee": diagnosticFee.String()})

	return s.apply(ctx, orderID, nil, []model.HistoryLog{entry},
		func(txCtx context.Context) error {
			return s.workflowRepo.CreateReturnRequest(txCtx, req)
		})
}

// DecideReturn settles an unrepaired-return request. Approval marks the order
// REPAIRED so the normal delivery flow applies, zeroes the points, and makes
// the diagnostic fee the full amount due.
func (s *workflowService) DecideReturn(ctx context.Context, actor Actor, requestID uuid.UUID, approve bool, reason string) (*model.Order, error) {
	if !actor.isSupervisor() {
		return nil, ErrForbidden
	}

	req, err := s.workflowRepo.FindReturnRequest(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("return request not found: %w", err)
	}
	if req.Status != model.RequestPending {
		return nil, ErrNotPending
	}
	if !approve && reason == "" {
		return nil, ErrMissingReason
	}

	order, err := s.orderRepo.FindByID(ctx, req.OrderID)
	if err != nil {
		return nil, fmt.Errorf("order not found: %w", err)
	}

	now := time.Now()
	actorID := actor.ID
	req.DecidedBy = &actorID
	req.DecidedAt = &now

	var cols map[string]interface{}
	var entry model.HistoryLog
	if approve {
		req.Status = model.RequestApproved
		cols = map[string]interface{}{
			"status":         model.StatusRepaired,
			"points_awarded": 0,
			"estimated_cost": req.DiagnosticFee,
			"final_price":    req.DiagnosticFee,
		}
		entry = history.NewEntry(order.ID, model.StatusRepaired, model.CategoryReturnDecided,
			fmt.Sprintf("return approved, diagnostic fee %s", req.DiagnosticFee.StringFixed(2)),
			actor.historyActor(), map[string]interface{}{"approved": true, "diagnostic_fee": req.DiagnosticFee.String()})
	} else {
		req.Status = model.RequestRejected
		req.RejectionReason = reason
		entry = history.NewEntry(order.ID, order.Status, model.CategoryReturnDecided,
			fmt.Sprintf("return rejected: %s", reason),
			actor.historyActor(), map[string]interface{}{"approved": false, "reason": reason})
	}

	updated, err := s.apply(ctx, order.ID, cols, []model.HistoryLog{entry},
		func(txCtx context.Context) error {
			return s.workflowRepo.UpdateReturnRequest(txCtx, req)
		})
	if err == nil && approve {
		s.notifyStatus(updated, model.StatusRepaired)
	}
	return updated, err
}

// --- External repairs ---

func (s *workflowService) RequestExternal(ctx context.Context, actor Actor, orderID uuid.UUID, workshop, reason string) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("order not found: %w", err)
	}
	if !actor.canActOnOrder(order) {
		return nil, ErrForbidden
	}
	if order.IsClosed() {
		return nil, ErrOrderClosed
	}
	if strings.TrimSpace(workshop) == "" || strings.TrimSpace(reason) == "" {
		return nil, ErrMissingReason
	}

	rec := &model.ExternalRepair{
		OrderID:     orderID,
		RequestedBy: actor.ID,
		Workshop:    workshop,
		Reason:      reason,
		Status:      model.RequestPending,
	}
	entry := history.NewEntry(orderID, order.Status, model.CategoryExternalRepair,
		fmt.Sprintf("external repair requested at %s: %s", workshop, reason),
		actor.historyActor(), map[string]interface{}{"workshop": workshop})

	return s.apply(ctx, orderID, nil, []model.HistoryLog{entry},
		func(txCtx context.Context) error {
			return s.workflowRepo.CreateExternalRepair(txCtx, rec)
		})
}

// DecideExternal approves or rejects sending the device out. Approval moves
// the order to EXTERNAL and takes it out of the technician pool.
func (s *workflowService) DecideExternal(ctx context.Context, actor Actor, repairID uuid.UUID, approve bool) (*model.Order, error) {
	if !actor.isSupervisor() {
		return nil, ErrForbidden
	}

	rec, err := s.workflowRepo.FindExternalRepair(ctx, repairID)
	if err != nil {
		return nil, fmt.Errorf("external repair not found: %w", err)
	}
	if rec.Status != model.RequestPending {
		return nil, ErrNotPending
	}

	order, err := s.orderRepo.FindByID(ctx, rec.OrderID)
	if err != nil {
		return nil, fmt.Errorf("order not found: %w", err)
	}

	actorID := actor.ID
	rec.DecidedBy = &actorID

	var cols map[string]interface{}
	var entry model.HistoryLog
	if approve {
		now := time.Now()
		rec.Status = model.RequestApproved
		rec.SentAt = &now
		cols = map[string]interface{}{
			"status":                model.StatusExternal,
			"assigned_to":           nil,
			"pending_assignment_to": nil,
		}
		entry = history.NewEntry(order.ID, model.StatusExternal, model.CategoryExternalRepair,
			fmt.Sprintf("device sent to %s", rec.Workshop),
			actor.historyActor(), map[string]interface{}{"workshop": rec.Workshop, "approved": true})
	} else {
		rec.Status = model.RequestRejected
		entry = history.NewEntry(order.ID, order.Status, model.CategoryExternalRepair,
			fmt.Sprintf("external repair at %s rejected", rec.Workshop),
			actor.historyActor(), map[string]interface{}{"workshop": rec.Workshop, "approved": false})
	}

	updated, err := s.apply(ctx, order.ID, cols, []model.HistoryLog{entry},
		func(txCtx context.Context) error {
			return s.workflowRepo.UpdateExternalRepair(txCtx, rec)
		})
	if err == nil && approve {
		s.notifyStatus(updated, model.StatusExternal)
	}
	return updated, err
}

// ReceiveExternal records the device back from the workshop. The order
// returns to DIAGNOSIS at the main branch, unassigned, so any technician can
// pick up the verification.
func (s *workflowService) ReceiveExternal(ctx context.Context, actor Actor, repairID uuid.UUID) (*model.Order, error) {
	rec, err := s.workflowRepo.FindExternalRepair(ctx, repairID)
	if err != nil {
		return nil, fmt.Errorf("external repair not found: %w", err)
	}
	if rec.Status != model.RequestApproved {
		return nil, ErrNotPending
	}

	order, err := s.orderRepo.FindByID(ctx, rec.OrderID)
	if err != nil {
		return nil, fmt.Errorf("order not found: %w", err)
	}

	now := time.Now()
	rec.Status = model.RequestReceived
	rec.ReceivedAt = &now

	cols := map[string]interface{}{
		"status":                model.StatusDiagnosis,
		"assigned_to":           nil,
		"pending_assignment_to": nil,
		"current_branch":        model.DefaultBranch,
	}
	entry := history.NewEntry(order.ID, model.StatusDiagnosis, model.CategoryExternalRepair,
		fmt.Sprintf("device received back from %s", rec.Workshop),
		actor.historyActor(), map[string]interface{}{"workshop": rec.Workshop, "received": true})

	return s.apply(ctx, order.ID, cols, []model.HistoryLog{entry},
		func(txCtx context.Context) error {
			return s.workflowRepo.UpdateExternalRepair(txCtx, rec)
		})
}

// --- Assignment ---

// Claim lets a technician take an unassigned order. A claimed PENDING order
// advances straight to DIAGNOSIS.
func (s *workflowService) Claim(ctx context.Context, actor Actor, orderID uuid.UUID) (*model.Order, error) {
	if actor.Role != model.RoleTechnician {
		return nil, ErrForbidden
	}

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("order not found: %w", err)
	}
	if order.AssignedTo != nil {
		return nil, ErrAlreadyAssigned
	}
	if order.IsClosed() {
		return nil, ErrOrderClosed
	}

	cols := map[string]interface{}{"assigned_to": actor.ID}
	status := order.Status
	if order.Status == model.StatusPending {
		status = model.StatusDiagnosis
		cols["status"] = status
	}

	entry := history.NewEntry(orderID, status, model.CategoryAssigned,
		fmt.Sprintf("claimed by %s", actor.Name), actor.historyActor(), nil)
	return s.apply(ctx, orderID, cols, []model.HistoryLog{entry}, nil)
}

// Assign routes an order to a technician. Admins, monitors, and
// receptionists assign directly; a technician handing work to a colleague
// starts a handshake the target must accept.
func (s *workflowService) Assign(ctx context.Context, actor Actor, orderID, technicianID uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("order not found: %w", err)
	}
	if order.IsClosed() {
		return nil, ErrOrderClosed
	}

	target, err := s.userRepo.GetByID(ctx, technicianID.String())
	if err != nil {
		return nil, fmt.Errorf("technician not found: %w", err)
	}
	if target.Role != model.RoleTechnician {
		return nil, fmt.Errorf("user %s is not a technician", target.Username)
	}

	if actor.canForceAssign() {
		cols := map[string]interface{}{
			"assigned_to":           technicianID,
			"pending_assignment_to": nil,
		}
		status := order.Status
		if order.Status == model.StatusPending {
			status = model.StatusDiagnosis
			cols["status"] = status
		}
		entry := history.NewEntry(orderID, status, model.CategoryAssigned,
			fmt.Sprintf("assigned to %s", target.Username), actor.historyActor(),
			map[string]interface{}{"technician_id": technicianID.String()})
		return s.apply(ctx, orderID, cols, []model.HistoryLog{entry}, nil)
	}

	if actor.Role != model.RoleTechnician || !actor.isAssignee(order) {
		return nil, ErrForbidden
	}
	if technicianID == actor.ID {
		return order, nil
	}

	entry := history.NewEntry(orderID, order.Status, model.CategoryAssignRequested,
		fmt.Sprintf("handover to %s requested", target.Username), actor.historyActor(),
		map[string]interface{}{"technician_id": technicianID.String()})
	return s.apply(ctx, orderID,
		map[string]interface{}{"pending_assignment_to": technicianID},
		[]model.HistoryLog{entry}, nil)
}

// RespondAssignment lets the handshake target accept or decline a handover.
func (s *workflowService) RespondAssignment(ctx context.Context, actor Actor, orderID uuid.UUID, accept bool) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("order not found: %w", err)
	}
	if order.PendingAssignmentTo == nil || *order.PendingAssignmentTo != actor.ID {
		return nil, ErrNotAssignee
	}

	var cols map[string]interface{}
	var entry model.HistoryLog
	if accept {
		cols = map[string]interface{}{
			"assigned_to":           actor.ID,
			"pending_assignment_to": nil,
		}
		entry = history.NewEntry(orderID, order.Status, model.CategoryAssigned,
			fmt.Sprintf("handover accepted by %s", actor.Name), actor.historyActor(), nil)
	} else {
		cols = map[string]interface{}{"pending_assignment_to": nil}
		entry = history.NewEntry(orderID, order.Status, model.CategoryAssignRejected,
			fmt.Sprintf("handover declined by %s", actor.Name), actor.historyActor(), nil)
	}
	return s.apply(ctx, orderID, cols, []model.HistoryLog{entry}, nil)
}

// --- Branch transfers ---

func (s *workflowService) InitiateTransfer(ctx context.Context, actor Actor, orderID uuid.UUID, targetBranch string) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("order not found: %w", err)
	}
	if order.IsClosed() {
		return nil, ErrOrderClosed
	}
	if order.TransferStatus == model.TransferPending {
		return nil, fmt.Errorf("transfer already in progress")
	}
	targetBranch = strings.TrimSpace(targetBranch)
	if targetBranch == "" || targetBranch == order.CurrentBranch {
		return nil, fmt.Errorf("invalid target branch %q", targetBranch)
	}

	entry := history.NewEntry(orderID, order.Status, model.CategoryTransfer,
		fmt.Sprintf("transfer to %s initiated", targetBranch), actor.historyActor(),
		map[string]interface{}{"from": order.CurrentBranch, "to": targetBranch})
	// The order leaves this branch's technician pool the moment the move
	// starts; the receiving branch assigns its own people.
	return s.apply(ctx, orderID,
		map[string]interface{}{
			"transfer_status":       model.TransferPending,
			"transfer_target":       targetBranch,
			"assigned_to":           nil,
			"pending_assignment_to": nil,
		},
		[]model.HistoryLog{entry}, nil)
}

// ResolveTransfer completes or cancels a pending branch move. Completion
// makes the target the current branch.
func (s *workflowService) ResolveTransfer(ctx context.Context, actor Actor, orderID uuid.UUID, accept bool) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("order not found: %w", err)
	}
	if order.TransferStatus != model.TransferPending {
		return nil, ErrNotPending
	}

	var cols map[string]interface{}
	var entry model.HistoryLog
	if accept {
		cols = map[string]interface{}{
			"current_branch":  order.TransferTarget,
			"transfer_status": model.TransferCompleted,
			"transfer_target": "",
		}
		entry = history.NewEntry(orderID, order.Status, model.CategoryTransfer,
			fmt.Sprintf("transfer to %s completed", order.TransferTarget), actor.historyActor(),
			map[string]interface{}{"from": order.CurrentBranch, "to": order.TransferTarget})
	} else {
		cols = map[string]interface{}{
			"transfer_status": model.TransferNone,
			"transfer_target": "",
		}
		entry = history.NewEntry(orderID, order.Status, model.CategoryTransfer,
			fmt.Sprintf("transfer to %s canceled", order.TransferTarget), actor.historyActor(), nil)
	}
	return s.apply(ctx, orderID, cols, []model.HistoryLog{entry}, nil)
}

// --- Reopen ---

// Reopen puts a finished but undelivered order back into DIAGNOSIS, for
// example when testing at the counter reveals the fault again. Admin only,
// reason required, logged at WARNING severity.
func (s *workflowService) Reopen(ctx context.Context, actor Actor, orderID uuid.UUID, reason string) (*model.Order, error) {
	if actor.Role != model.RoleAdmin {
		return nil, ErrForbidden
	}

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("order not found: %w", err)
	}
	if order.Status != model.StatusRepaired {
		return nil, ErrIllegalTransition
	}
	if strings.TrimSpace(reason) == "" {
		return nil, ErrMissingReason
	}

	entry := history.NewEntry(orderID, model.StatusDiagnosis, model.CategoryReopened,
		fmt.Sprintf("order reopened: %s", reason), actor.historyActor(),
		map[string]interface{}{"reason": reason})
	entry.Severity = model.SeverityWarning

	return s.apply(ctx, orderID,
		map[string]interface{}{
			"status":                model.StatusDiagnosis,
			"assigned_to":           nil,
			"pending_assignment_to": nil,
		},
		[]model.HistoryLog{entry}, nil)
}
