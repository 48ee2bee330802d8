package dashboard

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/subhub/telecom-subscriptions/internal/ledger"
	"github.com/subhub/telecom-subscriptions/internal/subscriptions"
	pkgerrors "github.com/subhub/telecom-subscriptions/pkg/errors"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	DefaultActivityLimit = 20
	MaxActivityLimit     = 100
)

// ParseActivityType accepts an empty filter, transaction or plan.
func ParseActivityType(raw string) (ActivityType, error) {
	switch t := ActivityType(strings.ToLower(strings.TrimSpace(raw))); t {
	case "", ActivityTransaction, ActivityPlan:
		return t, nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid activity type").
			WithDetails(map[string]any{"field": "type", "allowed": []ActivityType{ActivityTransaction, ActivityPlan}})
	}
}

// Activity merges payments and plan changes into one feed, newest first.
func (s *service) Activity(ctx context.Context, userID uuid.UUID, query ActivityQuery) (*ActivityFeed, error) {
	if _, err := s.loadUser(ctx, userID); err != nil {
		return nil, err
	}
	limit := query.Limit
	if limit <= 0 || limit > MaxActivityLimit {
		limit = DefaultActivityLimit
	}

	out := make([]ActivityEntry, 0, limit)
	if query.Type == "" || query.Type == ActivityTransaction {
		history, err := s.subs.PaymentHistory(ctx, userID, ledger.HistoryQuery{Limit: limit})
		if err != nil {
			return nil, err
		}
		for _, txn := range history.Transactions {
			out = append(out, transactionActivity(txn))
		}
	}
	if query.Type == "" || query.Type == ActivityPlan {
		userPlans, err := s.subs.ListUserPlans(ctx, userID)
		if err != nil {
			return nil, err
		}
		for _, up := range userPlans {
			out = append(out, planActivity(up))
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if len(out) > limit {
		out = out[:limit]
	}
	return &ActivityFeed{Activities: out, Count: len(out)}, nil
}

func transactionActivity(txn ledger.TransactionDTO) ActivityEntry {
	name := txn.PlanName
	if name == "" {
		name = "plan"
	}
	return ActivityEntry{
		ID:          "transaction_" + txn.ID.String(),
		Type:        ActivityTransaction,
		Title:       "Payment " + humanize(string(txn.Status)),
		Description: fmt.Sprintf("₹%s for %s", txn.Amount.StringFixed(2), name),
		Status:      string(txn.Status),
		Timestamp:   txn.CreatedAt,
		Details:     txn,
	}
}

func planActivity(up subscriptions.UserPlanDTO) ActivityEntry {
	description := planName(up)
	if up.Plan != nil {
		description += " - " + string(up.Plan.Category)
	}
	return ActivityEntry{
		ID:          "plan_" + up.ID.String(),
		Type:        ActivityPlan,
		Title:       "Plan " + humanize(string(up.Status)),
		Description: description,
		Status:      string(up.Status),
		Timestamp:   up.CreatedAt,
		Details:     up,
	}
}

// humanize turns a status into a title. Casers are stateful, so each call
// gets its own.
func humanize(status string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(status, "_", " "))
}
