package booking

import "marketlink/models"

type rule struct {
	from  models.BookingStatus
	to    models.BookingStatus
	roles map[models.Role]bool
}

// transitions is the single source of who may do what.
var transitions = map[models.Transition]rule{
	models.TransitionCancel: {
		from:  models.StatusUpcoming,
		to:    models.StatusCanceled,
		roles: map[models.Role]bool{models.RoleSeeker: true, models.RoleProvider: true},
	},
	models.TransitionComplete: {
		from:  models.StatusUpcoming,
		to:    models.StatusCompleted,
		roles: map[models.Role]bool{models.RoleProvider: true},
	},
}

// Apply returns the record that results from role performing t on b. It does no
// I/O and never modifies b. Terminal records always yield a StaleStateError.
func Apply(b models.Booking, t models.Transition, role models.Role) (models.Booking, error) {
	if b.Status.Terminal() {
		current := b
		return models.Booking{}, &StaleStateError{BookingID: b.ID, Status: b.Status, Current: &current}
	}
	r, ok := transitions[t]
	if !ok || r.from != b.Status {
		return models.Booking{}, &LifecycleError{Kind: KindTransition, Transition: t, Role: role, Status: b.Status}
	}
	if !r.roles[role] {
		return models.Booking{}, &LifecycleError{Kind: KindRole, Transition: t, Role: role, Status: b.Status}
	}

	next := b
	next.Status = r.to
	next.StatusChangedBy = role
	return next, nil
}

// Allowed lists the transitions role may perform on b right now.
func Allowed(b models.Booking, role models.Role) []models.Transition {
	var out []models.Transition
	for _, t := range []models.Transition{models.TransitionCancel, models.TransitionComplete} {
		if _, err := Apply(b, t, role); err == nil {
			out = append(out, t)
		}
	}
	return out
}
