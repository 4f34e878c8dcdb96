package services

import (
	"fmt"

	"github.com/TuanDao2002/rmit-what-to-eat/errs"
	"github.com/TuanDao2002/rmit-what-to-eat/models"
)

type orderTransition struct {
	from models.OrderStatus
	to   models.OrderStatus
	role models.Role
}

// orderTransitions is the authoritative order state machine. Both terminal
// states are only reachable from placed, so a repeated fulfill or remove
// fails instead of double-applying.
var orderTransitions = []orderTransition{
	{from: models.OrderPlaced, to: models.OrderFulfilled, role: models.RoleVendor},
	{from: models.OrderPlaced, to: models.OrderRemoved, role: models.RoleVendor},
}

// CanTransition reports whether role may move an order between two states.
func CanTransition(from, to models.OrderStatus, role models.Role) error {
	for _, t := range orderTransitions {
		if t.from == from && t.to == to && t.role == role {
			return nil
		}
	}
	return errs.BadRequest(fmt.Sprintf("cannot change order from %s to %s", from, to))
}
