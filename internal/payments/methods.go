package payments

import "github.com/subhub/telecom-subscriptions/pkg/enums"

// Method describes a payment option offered at checkout.
type Method struct {
	ID           enums.PaymentMethod `json:"id"`
	Name         string              `json:"name"`
	Description  string              `json:"description"`
	Icon         string              `json:"icon"`
	Enabled      bool                `json:"enabled"`
	RequiresCard bool                `json:"requires_card"`
}

var methods = []Method{
	{ID: enums.PaymentMethodCreditCard, Name: "Credit Card", Description: "Visa, MasterCard, American Express", Icon: "credit-card", Enabled: true},
	{ID: enums.PaymentMethodDebitCard, Name: "Debit Card", Description: "Bank debit cards", Icon: "debit-card", Enabled: true},
	{ID: enums.PaymentMethodUPI, Name: "UPI", Description: "Google Pay, PhonePe, Paytm", Icon: "upi", Enabled: true},
	{ID: enums.PaymentMethodNetBanking, Name: "Net Banking", Description: "All major banks", Icon: "bank", Enabled: true},
	{ID: enums.PaymentMethodWallet, Name: "Digital Wallet", Description: "Paytm, Amazon Pay, etc.", Icon: "wallet", Enabled: true},
}

// Methods returns the supported payment methods in display order.
func Methods() []Method {
	out := make([]Method, len(methods))
	for i, m := range methods {
		m.RequiresCard = m.ID.RequiresCard()
		out[i] = m
	}
	return out
}
