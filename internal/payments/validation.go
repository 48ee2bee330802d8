package payments

import (
	"regexp"
	"strings"
	"time"

	"github.com/subhub/telecom-subscriptions/pkg/enums"
)

const (
	ErrCardDetailsRequired = "All card details are required"
	ErrInvalidCardNumber   = "Invalid credit card number"
	ErrInvalidCVV          = "Invalid CVV"
	ErrInvalidExpiry       = "Invalid or expired card"
)

var cvvPattern = regexp.MustCompile(`^\d{3,4}$`)

// CardDetails is the raw card payload submitted with a payment.
type CardDetails struct {
	Number      string `json:"card_number"`
	HolderName  string `json:"card_holder_name,omitempty"`
	ExpiryMonth int    `json:"expiry_month"`
	ExpiryYear  int    `json:"expiry_year"`
	CVV         string `json:"cvv"`
}

// IsEmpty reports whether no card field was supplied.
func (c CardDetails) IsEmpty() bool {
	return strings.TrimSpace(c.Number) == "" &&
		strings.TrimSpace(c.CVV) == "" &&
		c.ExpiryMonth == 0 &&
		c.ExpiryYear == 0
}

// CardValidation collects every problem found with a card.
type CardValidation struct {
	Valid    bool           `json:"valid"`
	Errors   []string       `json:"errors"`
	CardType enums.CardType `json:"card_type"`
}

// Reason returns the first validation error, used as the failure reason.
func (v CardValidation) Reason() string {
	if len(v.Errors) == 0 {
		return ""
	}
	return v.Errors[0]
}

// ValidateCard checks number, expiry and CVV against now and reports all failures.
func ValidateCard(card CardDetails, now time.Time) CardValidation {
	digits := NormalizeCardNumber(card.Number)
	result := CardValidation{
		Valid:    true,
		Errors:   []string{},
		CardType: enums.DetectCardType(digits),
	}

	if !ValidCardNumber(digits) {
		result.Valid = false
		result.Errors = append(result.Errors, ErrInvalidCardNumber)
	}
	if !ValidExpiry(card.ExpiryMonth, card.ExpiryYear, now) {
		result.Valid = false
		result.Errors = append(result.Errors, ErrInvalidExpiry)
	}
	if !ValidCVV(card.CVV) {
		result.Valid = false
		result.Errors = append(result.Errors, ErrInvalidCVV)
	}
	return result
}

// ValidateForPayment applies the checks a charge needs. Missing fields
// short-circuit with a single error.
func ValidateForPayment(card CardDetails, now time.Time) CardValidation {
	if strings.TrimSpace(card.Number) == "" ||
		strings.TrimSpace(card.CVV) == "" ||
		card.ExpiryMonth == 0 ||
		card.ExpiryYear == 0 {
		return CardValidation{
			Valid:    false,
			Errors:   []string{ErrCardDetailsRequired},
			CardType: enums.CardTypeUnknown,
		}
	}

	digits := NormalizeCardNumber(card.Number)
	result := CardValidation{Valid: true, Errors: []string{}, CardType: enums.DetectCardType(digits)}
	switch {
	case !ValidCardNumber(digits):
		result.Errors = append(result.Errors, ErrInvalidCardNumber)
	case !ValidCVV(card.CVV):
		result.Errors = append(result.Errors, ErrInvalidCVV)
	case !ValidExpiry(card.ExpiryMonth, card.ExpiryYear, now):
		result.Errors = append(result.Errors, ErrInvalidExpiry)
	}
	result.Valid = len(result.Errors) == 0
	return result
}

// NormalizeCardNumber strips every non-digit character.
func NormalizeCardNumber(number string) string {
	var b strings.Builder
	b.Grow(len(number))
	for _, r := range number {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidCardNumber checks length and the Luhn checksum of a digits-only number.
func ValidCardNumber(digits string) bool {
	if len(digits) < 13 || len(digits) > 19 {
		return false
	}

	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if d < 0 || d > 9 {
			return false
		}
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// ValidCVV accepts three or four digits.
func ValidCVV(cvv string) bool {
	return cvvPattern.MatchString(strings.TrimSpace(cvv))
}

// ValidExpiry rejects bad months and cards that expired before the current month.
func ValidExpiry(month, year int, now time.Time) bool {
	if month < 1 || month > 12 {
		return false
	}
	currentYear, currentMonth := now.Year(), int(now.Month())
	if year < currentYear {
		return false
	}
	if year == currentYear && month < currentMonth {
		return false
	}
	return true
}
