package payments

import (
	"context"
	"regexp"
	"testing"

	"github.com/shopspring/decimal"
)

type fixedSource struct {
	values []int
	calls  int
}

func (f *fixedSource) Intn(n int) int {
	v := f.values[f.calls%len(f.values)] % n
	f.calls++
	return v
}

func TestSimulatorDeclineSuffixes(t *testing.T) {
	sim := NewSimulatorWithSource(&fixedSource{values: []int{0}})
	cases := map[string]string{
		"4000 0000 0000 0000": DeclineCardDeclined,
		"4111111111111111":    DeclineInsufficientFund,
		"4222222222222222":    DeclineCardExpired,
		"4333-3333-3333-3333": DeclineInvalidCVV,
	}
	for card, reason := range cases {
		got, err := sim.Authorize(context.Background(), AuthorizeRequest{CardNumber: card, Amount: decimal.NewFromInt(299)})
		if err != nil {
			t.Fatalf("authorize %s: %v", card, err)
		}
		if got.Approved {
			t.Fatalf("expected %s to be declined", card)
		}
		if got.Reason != reason {
			t.Fatalf("expected reason %q for %s got %q", reason, card, got.Reason)
		}
	}
}

func TestSimulatorApprovesOtherCards(t *testing.T) {
	src := &fixedSource{values: []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 35, 42}}
	sim := NewSimulatorWithSource(src)

	got, err := sim.Authorize(context.Background(), AuthorizeRequest{CardNumber: "4242424242424242", Amount: decimal.NewFromInt(599)})
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if !got.Approved {
		t.Fatalf("expected approval, got reason %q", got.Reason)
	}
	if got.TransactionID != "ABCDEFGHI9" {
		t.Fatalf("unexpected transaction id %q", got.TransactionID)
	}
	if got.GatewayReference != "GW_100042" {
		t.Fatalf("unexpected gateway reference %q", got.GatewayReference)
	}
}

func TestSimulatorIdentifierFormat(t *testing.T) {
	sim := NewSimulator()
	idPattern := regexp.MustCompile(`^[A-Z0-9]{10}$`)
	refPattern := regexp.MustCompile(`^GW_[1-9]\d{5}$`)
	for i := 0; i < 50; i++ {
		got, err := sim.Authorize(context.Background(), AuthorizeRequest{CardNumber: "5555555555554444"})
		if err != nil {
			t.Fatalf("authorize: %v", err)
		}
		if !idPattern.MatchString(got.TransactionID) {
			t.Fatalf("bad transaction id %q", got.TransactionID)
		}
		if !refPattern.MatchString(got.GatewayReference) {
			t.Fatalf("bad gateway reference %q", got.GatewayReference)
		}
	}
}

func TestSimulatorHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewSimulator().Authorize(ctx, AuthorizeRequest{CardNumber: "4242424242424242"}); err == nil {
		t.Fatal("expected context error")
	}
}

func TestMethods(t *testing.T) {
	got := Methods()
	if len(got) != 5 {
		t.Fatalf("expected 5 methods got %d", len(got))
	}
	requiresCard := map[string]bool{}
	for _, m := range got {
		if !m.Enabled {
			t.Fatalf("method %s should be enabled", m.ID)
		}
		requiresCard[string(m.ID)] = m.RequiresCard
	}
	if !requiresCard["credit_card"] || !requiresCard["debit_card"] {
		t.Fatal("card methods should require card details")
	}
	if requiresCard["upi"] || requiresCard["wallet"] || requiresCard["net_banking"] {
		t.Fatal("non-card methods should not require card details")
	}
	if got[4].Name != "Digital Wallet" || got[3].Icon != "bank" {
		t.Fatalf("unexpected method metadata %+v", got)
	}
}
