package payment

import (
	"net/http"
	"time"

	"github.com/bufia/equipment-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound           = apperror.New(http.StatusNotFound, "payment not found")
	ErrInvalidAmount      = apperror.New(http.StatusBadRequest, "amount must be positive")
	ErrInvalidMethod      = apperror.New(http.StatusBadRequest, "invalid payment method")
	ErrAlreadyPaid        = apperror.New(http.StatusConflict, "reservation already has a payment")
	ErrReservationUnknown = apperror.New(http.StatusNotFound, "payment references an unknown reservation")
)

// Method is how the member paid. GCash confirmations arrive through the
// gateway webhook; cash and bank transfers are entered by an admin.
type Method string

const (
	MethodCash         Method = "cash"
	MethodGCash        Method = "gcash"
	MethodBankTransfer Method = "bank_transfer"
)

func (m Method) IsValid() bool {
	switch m {
	case MethodCash, MethodGCash, MethodBankTransfer:
		return true
	}
	return false
}

// Payment is one confirmed payment against one reservation. Amounts are
// stored in centavos. TransactionID is a display and audit identifier;
// conflict logic never reads it.
type Payment struct {
	ID            string
	ReservationID string
	Amount        int64
	Method        Method
	TransactionID string
	RecordedBy    *string // admin user id, nil for gateway confirmations
	CreatedAt     time.Time
}

// Filter defines parameters for listing payments.
type Filter struct {
	ReservationID string
	Method        string
	Page          int
	PageSize      int
}
