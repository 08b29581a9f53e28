package booking

import (
	"testing"
	"time"

	"marketlink/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func upcoming() models.Booking {
	return models.Booking{
		ID:          "b1",
		SeekerID:    "s1",
		ProviderID:  "p1",
		ServiceName: "Math Tutoring",
		TotalPrice:  20.000,
		ScheduledAt: time.Date(2026, 6, 1, 15, 0, 0, 0, time.UTC),
		Status:      models.StatusUpcoming,
		Version:     1,
	}
}

func TestApplyCancelByEitherRole(t *testing.T) {
	for _, role := range []models.Role{models.RoleSeeker, models.RoleProvider} {
		t.Run(string(role), func(t *testing.T) {
			in := upcoming()
			out, err := Apply(in, models.TransitionCancel, role)
			require.NoError(t, err)
			assert.Equal(t, models.StatusCanceled, out.Status)
			assert.Equal(t, role, out.StatusChangedBy)
			assert.Equal(t, models.StatusUpcoming, in.Status, "input must not change")
			assert.Equal(t, in.Version, out.Version)
		})
	}
}

func TestApplyComplete(t *testing.T) {
	_, err := Apply(upcoming(), models.TransitionComplete, models.RoleSeeker)
	var lerr *LifecycleError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, KindRole, lerr.Kind)

	out, err := Apply(upcoming(), models.TransitionComplete, models.RoleProvider)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, out.Status)
}

func TestApplyOnTerminalIsStale(t *testing.T) {
	for _, status := range []models.BookingStatus{models.StatusCompleted, models.StatusCanceled} {
		for _, tr := range []models.Transition{models.TransitionCancel, models.TransitionComplete, "reopen"} {
			for _, role := range []models.Role{models.RoleSeeker, models.RoleProvider, "admin"} {
				b := upcoming()
				b.Status = status
				_, err := Apply(b, tr, role)
				var stale *StaleStateError
				require.ErrorAs(t, err, &stale, "%s %s by %s", status, tr, role)
				assert.Equal(t, status, stale.Status)
				require.NotNil(t, stale.Current)
				assert.Equal(t, b.ID, stale.Current.ID)
			}
		}
	}
}

func TestApplyUnknownInputs(t *testing.T) {
	_, err := Apply(upcoming(), "reopen", models.RoleProvider)
	var lerr *LifecycleError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, KindTransition, lerr.Kind)

	_, err = Apply(upcoming(), models.TransitionCancel, "admin")
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, KindRole, lerr.Kind)
}

func TestAllowed(t *testing.T) {
	assert.Equal(t, []models.Transition{models.TransitionCancel}, Allowed(upcoming(), models.RoleSeeker))
	assert.Equal(t, []models.Transition{models.TransitionCancel, models.TransitionComplete}, Allowed(upcoming(), models.RoleProvider))

	done := upcoming()
	done.Status = models.StatusCompleted
	assert.Empty(t, Allowed(done, models.RoleProvider))
}
