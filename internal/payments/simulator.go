package payments

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DeclineCardDeclined     = "Card declined"
	DeclineInsufficientFund = "Insufficient funds"
	DeclineCardExpired      = "Card expired"
	DeclineInvalidCVV       = "Invalid CVV"
)

const transactionIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var declineBySuffix = map[string]string{
	"0000": DeclineCardDeclined,
	"1111": DeclineInsufficientFund,
	"2222": DeclineCardExpired,
	"3333": DeclineInvalidCVV,
}

// AuthorizeRequest is a charge attempt handed to the gateway.
type AuthorizeRequest struct {
	CardNumber string
	Amount     decimal.Decimal
	Currency   string
}

// Authorization is the gateway verdict.
type Authorization struct {
	Approved         bool
	Reason           string
	TransactionID    string
	GatewayReference string
}

// Gateway authorizes charges.
type Gateway interface {
	Authorize(ctx context.Context, req AuthorizeRequest) (Authorization, error)
}

// IntSource is the subset of math/rand used to build gateway identifiers.
type IntSource interface {
	Intn(n int) int
}

// Simulator is a deterministic stand-in for a card gateway. Declines are
// keyed off the last four digits of the card number.
type Simulator struct {
	mu  sync.Mutex
	rnd IntSource
}

// NewSimulator returns a simulator seeded from the wall clock.
func NewSimulator() *Simulator {
	return NewSimulatorWithSource(rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewSimulatorWithSource lets tests pin the identifiers the simulator returns.
func NewSimulatorWithSource(src IntSource) *Simulator {
	if src == nil {
		src = rand.New(rand.NewSource(1))
	}
	return &Simulator{rnd: src}
}

// Authorize approves the charge unless the card number ends in a decline suffix.
func (s *Simulator) Authorize(ctx context.Context, req AuthorizeRequest) (Authorization, error) {
	if err := ctx.Err(); err != nil {
		return Authorization{}, err
	}

	digits := NormalizeCardNumber(req.CardNumber)
	if len(digits) >= 4 {
		if reason, ok := declineBySuffix[digits[len(digits)-4:]]; ok {
			return Authorization{Approved: false, Reason: reason}, nil
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var id strings.Builder
	id.Grow(10)
	for i := 0; i < 10; i++ {
		id.WriteByte(transactionIDAlphabet[s.rnd.Intn(len(transactionIDAlphabet))])
	}

	return Authorization{
		Approved:         true,
		TransactionID:    id.String(),
		GatewayReference: fmt.Sprintf("GW_%d", 100000+s.rnd.Intn(900000)),
	}, nil
}
