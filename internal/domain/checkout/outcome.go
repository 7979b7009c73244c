package checkout

// Outcome is the single terminal result delivered to the caller for one
// checkout attempt. Exactly one Outcome is ever delivered per attempt.
type Outcome struct {
	CheckoutID    string
	Success       bool
	FailureReason string
	UserCancelled bool
}

// SuccessOutcome builds a successful outcome carrying the authoritative
// checkout id for subsequent status checks.
func SuccessOutcome(checkoutID string) Outcome {
	return Outcome{CheckoutID: checkoutID, Success: true}
}

// FailureOutcome builds a failed outcome. userCancelled distinguishes an
// early sheet dismissal from a hard failure so callers can stay silent.
func FailureOutcome(checkoutID, reason string, userCancelled bool) Outcome {
	return Outcome{
		CheckoutID:    checkoutID,
		FailureReason: reason,
		UserCancelled: userCancelled,
	}
}

// StatusResult is the reconciled result of one status poll. It is not cached;
// the caller decides whether to poll again.
type StatusResult struct {
	// BackendStatus is the backend's own declared success flag.
	BackendStatus bool
	// GatewayCode is the gateway result code from the backend's cached record
	// of the transaction, empty if absent.
	GatewayCode string
	// CombinedSuccess is BackendStatus OR-ed with the classified GatewayCode.
	// Neither source alone is reliable under all timing conditions.
	CombinedSuccess bool
	// FailureReason is set when CombinedSuccess is false: the nested result
	// description, else the top-level message, else a generic fallback.
	FailureReason string
}
