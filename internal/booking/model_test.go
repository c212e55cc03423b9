package booking

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bufia/equipment-booking-backend/internal/pkg/apperror"
)

func TestSentinelStatusCodes(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ErrNotFound, http.StatusNotFound},
		{ErrNotOwner, http.StatusForbidden},
		{ErrInvalidDateOrder, http.StatusBadRequest},
		{ErrStartInPast, http.StatusBadRequest},
		{ErrRangeTooLong, http.StatusBadRequest},
		{ErrSlotTaken, http.StatusConflict},
		{ErrWindowHeld, http.StatusConflict},
		{ErrPaymentNotVerified, http.StatusUnprocessableEntity},
		{ErrNotPending, http.StatusUnprocessableEntity},
		{ErrNotCancellable, http.StatusUnprocessableEntity},
		{ErrWindowStarted, http.StatusUnprocessableEntity},
	}

	for _, tc := range cases {
		appErr, ok := tc.err.(*apperror.AppError)
		require.True(t, ok, "%v must carry an HTTP status", tc.err)
		assert.Equal(t, tc.want, appErr.Code, "%v", tc.err)
	}
}
