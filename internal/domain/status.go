package domain

// State is a step of the order processing state machine.
type State int

const (
	StateReceived State = iota
	StateSenderVerified
	StateExtracted
	StateLedgerChecked
	StateSkipped
	StateRendered
	StateBundled
	StateRecipientsResolved
	StateDispatched
	StateRecorded
	StateAlerted
)

var stateLabels = map[State]string{
	StateReceived:           "received",
	StateSenderVerified:     "sender_verified",
	StateExtracted:          "extracted",
	StateLedgerChecked:      "ledger_checked",
	StateSkipped:            "skipped",
	StateRendered:           "rendered",
	StateBundled:            "bundled",
	StateRecipientsResolved: "recipients_resolved",
	StateDispatched:         "dispatched",
	StateRecorded:           "recorded",
	StateAlerted:            "alerted",
}

// String returns the label for a state.
func (s State) String() string {
	if label, ok := stateLabels[s]; ok {
		return label
	}

	return "unknown"
}

// Terminal reports whether no further transition follows s.
func (s State) Terminal() bool {
	switch s {
	case StateSkipped, StateRecorded, StateAlerted:
		return true
	default:
		return false
	}
}

// MarshalText renders the state label in JSON payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
