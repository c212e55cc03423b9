package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bufia/equipment-booking-backend/internal/booking"
)

func TestRenderLifecycleEvents(t *testing.T) {
	event := booking.Event{
		Type:          booking.EventApproved,
		ReservationID: "res-1",
		UserID:        "alice",
		OldStatus:     booking.StatusPending,
		NewStatus:     booking.StatusApproved,
	}

	n, ok := render(event)
	require.True(t, ok)
	assert.Equal(t, "alice", n.UserID)
	assert.Equal(t, "approved", n.Kind)
	require.NotNil(t, n.ReservationID)
	assert.Equal(t, "res-1", *n.ReservationID)
	assert.Contains(t, n.Message, "pending -> approved")
}

func TestRenderSkipsOperationalEvents(t *testing.T) {
	_, ok := render(booking.Event{Type: booking.EventConflictDetected, UserID: "alice"})
	assert.False(t, ok, "conflict signals are not member messages")
}

func TestRenderCoversEveryMemberEvent(t *testing.T) {
	memberEvents := []booking.EventType{
		booking.EventSubmitted,
		booking.EventPaymentVerified,
		booking.EventApproved,
		booking.EventRejected,
		booking.EventCancelled,
		booking.EventCompleted,
		booking.EventResubmitted,
	}

	for _, et := range memberEvents {
		n, ok := render(booking.Event{Type: et, UserID: "alice"})
		require.True(t, ok, "event %s", et)
		assert.NotEmpty(t, n.Title, "event %s", et)
		assert.NotEmpty(t, n.Message, "event %s", et)
	}
}
