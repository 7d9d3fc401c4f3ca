package models

// SendingState tracks the notification email for a comment.
type SendingState string

const (
	SendingStatePending SendingState = "PENDING"
	SendingStateSending SendingState = "SENDING"
	SendingStateSent    SendingState = "SENT"
)

// IsValid reports whether s is a known sending state.
func (s SendingState) IsValid() bool {
	switch s {
	case SendingStatePending, SendingStateSending, SendingStateSent:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether the notification pipeline may move a comment from s to next.
// PENDING -> SENDING -> SENT, and SENDING may fall back to PENDING when a dispatch is abandoned.
func (s SendingState) CanTransitionTo(next SendingState) bool {
	switch s {
	case SendingStatePending:
		return next == SendingStateSending
	case SendingStateSending:
		return next == SendingStateSent || next == SendingStatePending
	default:
		return false
	}
}

// String returns the stored form of s.
func (s SendingState) String() string { return string(s) }
