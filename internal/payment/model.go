package payment

import (
	"time"

	"github.com/SafalBhandari12/sojournBackend-sub001/internal/pkg/money"
)

type Status string

const (
	StatusPending Status = "PENDING"
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// Payment is the single payment record of an aggregate booking.
type Payment struct {
	ID             string
	BookingID      string
	Status         Status
	IntentRef      string
	TransactionRef string // set once the gateway reports success
	Amount         money.Money
	Attempts       int
	FailureReason  string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Intent is what the gateway hands back for the customer to pay against.
type Intent struct {
	Ref    string
	Amount money.Money
}

// Proof is the customer-side evidence that an intent was paid.
type Proof struct {
	TransactionRef string
	Signature      string
}

// RefundRequest asks the gateway to return money for a settled transaction.
// Requests with the same IdempotencyKey are executed at most once.
type RefundRequest struct {
	TransactionRef string
	Amount         money.Money
	IdempotencyKey string
}
