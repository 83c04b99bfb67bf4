package dispatch

import (
	"fmt"

	"github.com/kendall-kelly/quickfix-api/models"
)

// Action is an operation an actor attempts on a booking
type Action string

const (
	ActionView         Action = "view"
	ActionCreate       Action = "create"
	ActionUpdateFields Action = "update_fields"
	ActionUpdateStatus Action = "update_status"
	ActionAssign       Action = "assign"
	ActionAccept       Action = "accept"
	ActionCancel       Action = "cancel"
	ActionListAll      Action = "list_all"
)

var actionDescriptions = map[Action]string{
	ActionView:         "view this booking",
	ActionCreate:       "create bookings",
	ActionUpdateFields: "update this booking",
	ActionUpdateStatus: "update the status of this booking",
	ActionAssign:       "assign technicians",
	ActionAccept:       "accept this booking",
	ActionCancel:       "cancel this booking",
	ActionListAll:      "list all bookings",
}

// Actor is the authenticated identity performing an operation
type Actor struct {
	ID   uint
	Role string
}

// Relation is how an actor stands with respect to one booking
type Relation int

const (
	RelationNone Relation = iota
	RelationAdmin
	RelationOwner
	RelationOtherCustomer
	RelationAssigned
	RelationUnassigned
)

// policy is the single authorization table consulted by every operation.
// Anything absent is denied.
var policy = map[Action]map[Relation]bool{
	ActionCreate: {
		RelationOwner: true,
	},
	ActionView: {
		RelationAdmin:    true,
		RelationOwner:    true,
		RelationAssigned: true,
	},
	ActionUpdateFields: {
		RelationAdmin: true,
		RelationOwner: true,
	},
	ActionUpdateStatus: {
		RelationAdmin:    true,
		RelationAssigned: true,
	},
	ActionAssign: {
		RelationAdmin: true,
	},
	ActionAccept: {
		RelationAssigned: true,
	},
	ActionCancel: {
		RelationAdmin: true,
		RelationOwner: true,
	},
	ActionListAll: {
		RelationAdmin: true,
	},
}

// RelationOf derives the actor's relation to b. technicianID is the id of the
// technician profile bound to the actor, or zero when there is none. A nil
// booking stands for one not yet created, which a customer would own.
func RelationOf(actor Actor, b *models.Booking, technicianID uint) Relation {
	switch actor.Role {
	case models.RoleAdmin:
		return RelationAdmin
	case models.RoleCustomer:
		if b == nil || b.CustomerID == actor.ID {
			return RelationOwner
		}
		return RelationOtherCustomer
	case models.RoleTechnician:
		if b != nil && technicianID != 0 && b.AssignedTo(technicianID) {
			return RelationAssigned
		}
		return RelationUnassigned
	}
	return RelationNone
}

// Allowed reports whether an actor with the given relation may perform action
func Allowed(rel Relation, action Action) bool {
	return policy[action][rel]
}

// Authorize returns a Forbidden error naming the denied action
func Authorize(actor Actor, b *models.Booking, technicianID uint, action Action) error {
	if Allowed(RelationOf(actor, b, technicianID), action) {
		return nil
	}
	desc, ok := actionDescriptions[action]
	if !ok {
		desc = string(action)
	}
	return forbidden("FORBIDDEN", fmt.Sprintf("You do not have permission to %s", desc))
}
