package service

import (
	"fixtrack/backend/internal/history"
	"fixtrack/backend/internal/model"

	"github.com/google/uuid"
)

// Actor is the authenticated employee performing an operation. Role gating
// for every transition lives in the services, not in the transport layer.
type Actor struct {
	ID   uuid.UUID
	Name string
	Role string
}

func (a Actor) historyActor() history.Actor {
	id := a.ID
	return history.Actor{ID: &id, Name: a.Name}
}

// isSupervisor covers the decisions reserved for admins and monitors:
// points, returns, external repairs, reopens.
func (a Actor) isSupervisor() bool {
	return a.Role == model.RoleAdmin || a.Role == model.RoleMonitor
}

// canDecideProposal is wider than isSupervisor: any non-technician role may
// approve or reject a budget proposal.
func (a Actor) canDecideProposal() bool {
	return a.Role != "" && a.Role != model.RoleTechnician
}

// canForceAssign covers direct assignment without the request/accept
// handshake.
func (a Actor) canForceAssign() bool {
	return a.Role == model.RoleAdmin || a.Role == model.RoleMonitor || a.Role == model.RoleReceptionist
}

// isAssignee reports whether the actor is the technician currently assigned
// to the order.
func (a Actor) isAssignee(order *model.Order) bool {
	return order.AssignedTo != nil && *order.AssignedTo == a.ID
}

// canActOnOrder allows the assigned technician and supervisors to drive an
// order's workflow.
func (a Actor) canActOnOrder(order *model.Order) bool {
	return a.isSupervisor() || a.isAssignee(order)
}
