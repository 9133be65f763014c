package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/SafalBhandari12/sojournBackend-sub001/internal/pkg/money"
)

var (
	ErrInvalidAmount  = errors.New("payment: amount must be positive")
	ErrMissingRef     = errors.New("payment: transaction reference is required")
	ErrRefundDeclined = errors.New("payment: refund declined by gateway")
	ErrMissingIdemKey = errors.New("payment: idempotency key is required")
)

// Gateway is the boundary to the external payment provider. The engine never
// sees the provider's wire format, only intents, verdicts and refund refs.
type Gateway interface {
	CreateIntent(ctx context.Context, amount money.Money, metadata map[string]string) (Intent, error)
	Verify(ctx context.Context, intentRef string, proof Proof) (bool, error)
	Refund(ctx context.Context, req RefundRequest) (string, error)
}

// SandboxGateway is an in-process Gateway for development and tests.
// A proof is valid when its signature is HMAC-SHA256(secret, intentRef|transactionRef).
type SandboxGateway struct {
	secret []byte

	mu             sync.Mutex
	refunds        map[string]string
	failRefunds    int
	refundRequests []RefundRequest
}

func NewSandboxGateway(secret string) *SandboxGateway {
	return &SandboxGateway{
		secret:  []byte(secret),
		refunds: make(map[string]string),
	}
}

func (g *SandboxGateway) CreateIntent(_ context.Context, amount money.Money, _ map[string]string) (Intent, error) {
	if !amount.IsPositive() {
		return Intent{}, ErrInvalidAmount
	}
	return Intent{Ref: "pi_" + uuid.NewString(), Amount: amount}, nil
}

func (g *SandboxGateway) Verify(_ context.Context, intentRef string, proof Proof) (bool, error) {
	if proof.TransactionRef == "" {
		return false, ErrMissingRef
	}
	want, err := hex.DecodeString(g.Sign(intentRef, proof.TransactionRef))
	if err != nil {
		return false, fmt.Errorf("decode expected signature: %w", err)
	}
	got, err := hex.DecodeString(proof.Signature)
	if err != nil {
		return false, nil
	}
	return hmac.Equal(want, got), nil
}

// Sign produces the signature the sandbox expects for a paid intent.
func (g *SandboxGateway) Sign(intentRef, transactionRef string) string {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(intentRef + "|" + transactionRef))
	return hex.EncodeToString(mac.Sum(nil))
}

func (g *SandboxGateway) Refund(_ context.Context, req RefundRequest) (string, error) {
	if req.TransactionRef == "" {
		return "", ErrMissingRef
	}
	if !req.Amount.IsPositive() {
		return "", ErrInvalidAmount
	}
	if req.IdempotencyKey == "" {
		return "", ErrMissingIdemKey
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.refundRequests = append(g.refundRequests, req)

	if ref, ok := g.refunds[req.IdempotencyKey]; ok {
		return ref, nil
	}
	if g.failRefunds > 0 {
		g.failRefunds--
		return "", ErrRefundDeclined
	}

	ref := "re_" + uuid.NewString()
	g.refunds[req.IdempotencyKey] = ref
	return ref, nil
}

// FailNextRefunds makes the next n refunds fail.
func (g *SandboxGateway) FailNextRefunds(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failRefunds = n
}

// RefundRequests returns every refund call received, including retries.
func (g *SandboxGateway) RefundRequests() []RefundRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]RefundRequest, len(g.refundRequests))
	copy(out, g.refundRequests)
	return out
}
