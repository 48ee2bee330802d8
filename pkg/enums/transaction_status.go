package enums

// TransactionStatus tracks a payment attempt through the ledger.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusRefunded  TransactionStatus = "refunded"
)

var transactionStatuses = members[TransactionStatus]{
	TransactionStatusPending,
	TransactionStatusCompleted,
	TransactionStatusFailed,
	TransactionStatusRefunded,
}

// pending settles once; only a completed charge can be refunded.
var transactionTransitions = map[TransactionStatus]members[TransactionStatus]{
	TransactionStatusPending:   {TransactionStatusCompleted, TransactionStatusFailed},
	TransactionStatusCompleted: {TransactionStatusRefunded},
}

func (s TransactionStatus) String() string { return string(s) }

func (s TransactionStatus) IsValid() bool { return transactionStatuses.has(s) }

func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	return transactionTransitions[s].has(next)
}

func ParseTransactionStatus(value string) (TransactionStatus, error) {
	return transactionStatuses.parse("transaction status", value)
}
