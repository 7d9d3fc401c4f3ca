package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSendingState_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to SendingState
		want     bool
	}{
		{SendingStatePending, SendingStateSending, true},
		{SendingStatePending, SendingStateSent, false},
		{SendingStateSending, SendingStateSent, true},
		{SendingStateSending, SendingStatePending, true},
		{SendingStateSent, SendingStatePending, false},
		{SendingStateSent, SendingStateSending, false},
		{SendingState("BOGUS"), SendingStateSent, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestParticipantType_IsValid(t *testing.T) {
	assert.True(t, ParticipantOwnTeamMembersIncludingSelf.IsValid())
	assert.True(t, ParticipantNone.IsValid())
	assert.False(t, ParticipantType("EVERYONE").IsValid())
	assert.False(t, ParticipantType("").IsValid())
}
