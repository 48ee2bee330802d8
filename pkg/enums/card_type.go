package enums

// CardType is the card network inferred from the leading digit.
type CardType string

const (
	CardTypeVisa       CardType = "visa"
	CardTypeMastercard CardType = "mastercard"
	CardTypeAmex       CardType = "amex"
	CardTypeUnknown    CardType = "unknown"
)

// String implements fmt.Stringer.
func (c CardType) String() string {
	return string(c)
}

// DetectCardType maps a digits-only card number onto its network.
func DetectCardType(digits string) CardType {
	if digits == "" {
		return CardTypeUnknown
	}
	switch digits[0] {
	case '4':
		return CardTypeVisa
	case '5', '2':
		return CardTypeMastercard
	case '3':
		return CardTypeAmex
	default:
		return CardTypeUnknown
	}
}
