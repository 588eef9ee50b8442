package service

import (
	"context"
	"testing"

	"fixtrack/backend/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestPointsAutoApprovesSinglePoint(t *testing.T) {
	e := newEnv(t)
	svc := e.workflowService()
	tech, actor := e.seedUser(t, model.RoleTechnician)
	order := e.seedOrder(t, 1, withStatus(model.StatusInRepair), withAssignee(tech.ID))

	updated, err := svc.RequestPoints(context.Background(), actor, order.ID, 1, nil, 0)
	require.NoError(t, err)

	assert.Equal(t, model.StatusRepaired, updated.Status, "a single point finishes the repair on the spot")
	assert.Equal(t, 1, updated.PointsAwarded)
	assert.Contains(t, e.historyCategories(t, order.ID), model.CategoryPointsDecided)

	require.Len(t, updated.PointRequests, 1)
	assert.Equal(t, model.RequestApproved, updated.PointRequests[0].Status)
}

func TestRequestPointsAboveOneWaitsForDecision(t *testing.T) {
	e := newEnv(t)
	svc := e.workflowService()
	tech, actor := e.seedUser(t, model.RoleTechnician)
	order := e.seedOrder(t, 2, withStatus(model.StatusInRepair), withAssignee(tech.ID))

	updated, err := svc.RequestPoints(context.Background(), actor, order.ID, 2, nil, 0)
	require.NoError(t, err)

	assert.Equal(t, model.StatusInRepair, updated.Status, "status must not move before approval")
	assert.Equal(t, 0, updated.PointsAwarded, "points must not land before approval")
	require.Len(t, updated.PointRequests, 1)
	assert.Equal(t, model.RequestPending, updated.PointRequests[0].Status)

	_, supervisor := e.seedUser(t, model.RoleMonitor)
	decided, err := svc.DecidePoints(context.Background(), supervisor, updated.PointRequests[0].ID, true, "")
	require.NoError(t, err)
	assert.Equal(t, model.StatusRepaired, decided.Status)
	assert.Equal(t, 2, decided.PointsAwarded)
}

func TestDecidePointsRequiresSupervisor(t *testing.T) {
	e := newEnv(t)
	svc := e.workflowService()
	tech, actor := e.seedUser(t, model.RoleTechnician)
	order := e.seedOrder(t, 3, withStatus(model.StatusInRepair), withAssignee(tech.ID))

	updated, err := svc.RequestPoints(context.Background(), actor, order.ID, 3, nil, 0)
	require.NoError(t, err)

	_, err = svc.DecidePoints(context.Background(), actor, updated.PointRequests[0].ID, true, "")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestRequestPointsRejectsBadSplit(t *testing.T) {
	e := newEnv(t)
	svc := e.workflowService()
	tech, actor := e.seedUser(t, model.RoleTechnician)
	partner, _ := e.seedUser(t, model.RoleTechnician)
	order := e.seedOrder(t, 4, withStatus(model.StatusInRepair), withAssignee(tech.ID))

	_, err := svc.RequestPoints(context.Background(), actor, order.ID, 2, &partner.ID, 2)
	assert.ErrorIs(t, err, ErrSplitMismatch)

	_, err = svc.RequestPoints(context.Background(), actor, order.ID, 2, &partner.ID, 0)
	assert.ErrorIs(t, err, ErrSplitMismatch)
}

func TestProposalRoundTrip(t *testing.T) {
	e := newEnv(t)
	svc := e.workflowService()
	tech, techActor := e.seedUser(t, model.RoleTechnician)
	_, reception := e.seedUser(t, model.RoleReceptionist)
	order := e.seedOrder(t, 5, withStatus(model.StatusDiagnosis), withAssignee(tech.ID))

	submitted, err := svc.SubmitProposal(context.Background(), techActor, order.ID,
		model.ProposalEstimate, "screen and battery", decimal.RequireFromString("120"))
	require.NoError(t, err)
	assert.Equal(t, model.StatusWaitingApproval, submitted.Status)
	assert.Equal(t, model.ProposalEstimate, submitted.ProposalType)
	assert.True(t, submitted.EstimatedCost.Equal(decimal.RequireFromString("120")))

	approved, err := svc.DecideProposal(context.Background(), reception, order.ID, true,
		decimal.RequireFromString("135"), "use the OEM screen")
	require.NoError(t, err)
	assert.Equal(t, model.StatusInRepair, approved.Status)
	assert.True(t, approved.EstimatedCost.Equal(decimal.RequireFromString("135")))
	assert.True(t, approved.ApprovalAckPending)
	assert.Empty(t, approved.ProposalType)
	assert.Contains(t, approved.TechNotes, "use the OEM screen")

	acked, err := svc.AcknowledgeApproval(context.Background(), techActor, order.ID)
	require.NoError(t, err)
	assert.False(t, acked.ApprovalAckPending)
}

func TestDecideProposalRejectsTechnician(t *testing.T) {
	e := newEnv(t)
	svc := e.workflowService()
	tech, techActor := e.seedUser(t, model.RoleTechnician)
	order := e.seedOrder(t, 6, withStatus(model.StatusDiagnosis), withAssignee(tech.ID))

	_, err := svc.SubmitProposal(context.Background(), techActor, order.ID,
		model.ProposalAuthorization, "needs opening the frame", decimal.Zero)
	require.NoError(t, err)

	_, err = svc.DecideProposal(context.Background(), techActor, order.ID, true, decimal.Zero, "")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestProposalRejectionReturnsToDiagnosis(t *testing.T) {
	e := newEnv(t)
	svc := e.workflowService()
	tech, techActor := e.seedUser(t, model.RoleTechnician)
	_, admin := e.seedUser(t, model.RoleAdmin)
	order := e.seedOrder(t, 7, withStatus(model.StatusDiagnosis), withAssignee(tech.ID))

	_, err := svc.SubmitProposal(context.Background(), techActor, order.ID,
		model.ProposalEstimate, "", decimal.RequireFromString("80"))
	require.NoError(t, err)

	rejected, err := svc.DecideProposal(context.Background(), admin, order.ID, false, decimal.Zero, "customer declined")
	require.NoError(t, err)
	assert.Equal(t, model.StatusDiagnosis, rejected.Status)
	assert.Empty(t, rejected.ProposalType)
	assert.False(t, rejected.ApprovalAckPending)
}

func TestReturnWithoutRepairSetsDiagnosticFee(t *testing.T) {
	e := newEnv(t)
	svc := e.workflowService()
	tech, techActor := e.seedUser(t, model.RoleTechnician)
	_, admin := e.seedUser(t, model.RoleAdmin)
	order := e.seedOrder(t, 8, withStatus(model.StatusDiagnosis), withAssignee(tech.ID),
		withEstimate("200"))

	withRequest, err := svc.RequestReturn(context.Background(), techActor, order.ID,
		"board damage beyond repair", decimal.RequireFromString("25"))
	require.NoError(t, err)
	require.Len(t, withRequest.ReturnRequests, 1)

	approved, err := svc.DecideReturn(context.Background(), admin, withRequest.ReturnRequests[0].ID, true, "")
	require.NoError(t, err)

	fee := decimal.RequireFromString("25")
	assert.Equal(t, model.StatusRepaired, approved.Status)
	assert.Equal(t, 0, approved.PointsAwarded)
	assert.True(t, approved.EstimatedCost.Equal(fee))
	assert.True(t, approved.FinalPrice.Equal(fee), "the fee becomes the full amount due")
}

func TestRequestReturnRequiresReason(t *testing.T) {
	e := newEnv(t)
	svc := e.workflowService()
	tech, techActor := e.seedUser(t, model.RoleTechnician)
	order := e.seedOrder(t, 9, withStatus(model.StatusDiagnosis), withAssignee(tech.ID))

	_, err := svc.RequestReturn(context.Background(), techActor, order.ID, "  ", decimal.Zero)
	assert.ErrorIs(t, err, ErrMissingReason)
}

func TestExternalRepairLifecycle(t *testing.T) {
	e := newEnv(t)
	svc := e.workflowService()
	tech, techActor := e.seedUser(t, model.RoleTechnician)
	_, admin := e.seedUser(t, model.RoleAdmin)
	order := e.seedOrder(t, 10, withStatus(model.StatusDiagnosis), withAssignee(tech.ID))

	withRequest, err := svc.RequestExternal(context.Background(), techActor, order.ID,
		"MicroSolder Lab", "needs board-level work")
	require.NoError(t, err)
	require.Len(t, withRequest.ExternalRepairs, 1)
	repairID := withRequest.ExternalRepairs[0].ID

	sent, err := svc.DecideExternal(context.Background(), admin, repairID, true)
	require.NoError(t, err)
	assert.Equal(t, model.StatusExternal, sent.Status)
	assert.Nil(t, sent.AssignedTo, "external orders leave the technician pool")

	received, err := svc.ReceiveExternal(context.Background(), admin, repairID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDiagnosis, received.Status)
	assert.Equal(t, model.DefaultBranch, received.CurrentBranch)
	assert.Nil(t, received.AssignedTo)
	require.Len(t, received.ExternalRepairs, 1)
	assert.Equal(t, model.RequestReceived, received.ExternalRepairs[0].Status)
	assert.NotNil(t, received.ExternalRepairs[0].ReceivedAt)
}

func TestClaimAdvancesPendingOrder(t *testing.T) {
	e := newEnv(t)
	svc := e.workflowService()
	_, techActor := e.seedUser(t, model.RoleTechnician)
	order := e.seedOrder(t, 11)

	claimed, err := svc.Claim(context.Background(), techActor, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDiagnosis, claimed.Status)
	require.NotNil(t, claimed.AssignedTo)
	assert.Equal(t, techActor.ID, *claimed.AssignedTo)
}

func TestClaimRejectsAssignedOrder(t *testing.T) {
	e := newEnv(t)
	svc := e.workflowService()
	other, _ := e.seedUser(t, model.RoleTechnician)
	_, techActor := e.seedUser(t, model.RoleTechnician)
	order := e.seedOrder(t, 12, withAssignee(other.ID))

	_, err := svc.Claim(context.Background(), techActor, order.ID)
	assert.ErrorIs(t, err, ErrAlreadyAssigned)
}

func TestAssignmentHandshake(t *testing.T) {
	e := newEnv(t)
	svc := e.workflowService()
	holder, holderActor := e.seedUser(t, model.RoleTechnician)
	target, targetActor := e.seedUser(t, model.RoleTechnician)
	order := e.seedOrder(t, 13, withStatus(model.StatusInRepair), withAssignee(holder.ID))

	requested, err := svc.Assign(context.Background(), holderActor, order.ID, target.ID)
	require.NoError(t, err)
	require.NotNil(t, requested.PendingAssignmentTo)
	assert.Equal(t, target.ID, *requested.PendingAssignmentTo)
	assert.Equal(t, holder.ID, *requested.AssignedTo, "holder keeps the order until acceptance")

	accepted, err := svc.RespondAssignment(context.Background(), targetActor, order.ID, true)
	require.NoError(t, err)
	assert.Equal(t, target.ID, *accepted.AssignedTo)
	assert.Nil(t, accepted.PendingAssignmentTo)
}

func TestAssignmentHandshakeDecline(t *testing.T) {
	e := newEnv(t)
	svc := e.workflowService()
	holder, holderActor := e.seedUser(t, model.RoleTechnician)
	target, targetActor := e.seedUser(t, model.RoleTechnician)
	order := e.seedOrder(t, 14, withStatus(model.StatusInRepair), withAssignee(holder.ID))

	_, err := svc.Assign(context.Background(), holderActor, order.ID, target.ID)
	require.NoError(t, err)

	declined, err := svc.RespondAssignment(context.Background(), targetActor, order.ID, false)
	require.NoError(t, err)
	assert.Nil(t, declined.PendingAssignmentTo)
	assert.Equal(t, holder.ID, *declined.AssignedTo)
	assert.Contains(t, e.historyCategories(t, order.ID), model.CategoryAssignRejected)
}

func TestForceAssignSkipsHandshake(t *testing.T) {
	e := newEnv(t)
	svc := e.workflowService()
	_, reception := e.seedUser(t, model.RoleReceptionist)
	target, _ := e.seedUser(t, model.RoleTechnician)
	order := e.seedOrder(t, 15)

	assigned, err := svc.Assign(context.Background(), reception, order.ID, target.ID)
	require.NoError(t, err)
	require.NotNil(t, assigned.AssignedTo)
	assert.Equal(t, target.ID, *assigned.AssignedTo)
	assert.Nil(t, assigned.PendingAssignmentTo)
	assert.Equal(t, model.StatusDiagnosis, assigned.Status)
}

func TestTransferRoundTrip(t *testing.T) {
	e := newEnv(t)
	svc := e.workflowService()
	tech, _ := e.seedUser(t, model.RoleTechnician)
	_, admin := e.seedUser(t, model.RoleAdmin)
	order := e.seedOrder(t, 16, withStatus(model.StatusOnHold), withAssignee(tech.ID))

	pending, err := svc.InitiateTransfer(context.Background(), admin, order.ID, "NORTH")
	require.NoError(t, err)
	assert.Equal(t, model.TransferPending, pending.TransferStatus)
	assert.Equal(t, "NORTH", pending.TransferTarget)
	assert.Nil(t, pending.AssignedTo, "the order leaves the technician pool when the move starts")
	assert.Nil(t, pending.PendingAssignmentTo)

	completed, err := svc.ResolveTransfer(context.Background(), admin, order.ID, true)
	require.NoError(t, err)
	assert.Equal(t, "NORTH", completed.CurrentBranch)
	assert.Equal(t, model.TransferCompleted, completed.TransferStatus)
	assert.Empty(t, completed.TransferTarget)
}

func TestReopenClearsAssignmentAndLogsWarning(t *testing.T) {
	e := newEnv(t)
	svc := e.workflowService()
	tech, _ := e.seedUser(t, model.RoleTechnician)
	_, admin := e.seedUser(t, model.RoleAdmin)
	order := e.seedOrder(t, 17, withStatus(model.StatusRepaired), withAssignee(tech.ID))

	reopened, err := svc.Reopen(context.Background(), admin, order.ID, "fault reproduced at the counter")
	require.NoError(t, err)
	assert.Equal(t, model.StatusDiagnosis, reopened.Status)
	assert.Nil(t, reopened.AssignedTo)

	logs, err := e.historyRepo.ListByOrder(context.Background(), order.ID)
	require.NoError(t, err)
	require.NotEmpty(t, logs)
	last := logs[len(logs)-1]
	assert.Equal(t, model.CategoryReopened, last.Category)
	assert.Equal(t, model.SeverityWarning, last.Severity)
}

func TestReopenRequiresAdmin(t *testing.T) {
	e := newEnv(t)
	svc := e.workflowService()
	_, monitor := e.seedUser(t, model.RoleMonitor)
	order := e.seedOrder(t, 18, withStatus(model.StatusRepaired))

	_, err := svc.Reopen(context.Background(), monitor, order.ID, "redo")
	assert.ErrorIs(t, err, ErrForbidden)
}
