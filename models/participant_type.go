package models

// ParticipantType is a role used to gate who may see a comment or its giver.
type ParticipantType string

const (
	ParticipantSelf                        ParticipantType = "SELF"
	ParticipantStudents                    ParticipantType = "STUDENTS"
	ParticipantInstructors                 ParticipantType = "INSTRUCTORS"
	ParticipantTeams                       ParticipantType = "TEAMS"
	ParticipantOwnTeam                     ParticipantType = "OWN_TEAM"
	ParticipantOwnTeamMembers              ParticipantType = "OWN_TEAM_MEMBERS"
	ParticipantOwnTeamMembersIncludingSelf ParticipantType = "OWN_TEAM_MEMBERS_INCLUDING_SELF"
	ParticipantReceiver                    ParticipantType = "RECEIVER"
	ParticipantReceiverTeamMembers         ParticipantType = "RECEIVER_TEAM_MEMBERS"
	ParticipantGiver                       ParticipantType = "GIVER"
	ParticipantNone                        ParticipantType = "NONE"
)

// IsValid reports whether p is one of the known participant types.
func (p ParticipantType) IsValid() bool {
	switch p {
	case ParticipantSelf, ParticipantStudents, ParticipantInstructors, ParticipantTeams,
		ParticipantOwnTeam, ParticipantOwnTeamMembers, ParticipantOwnTeamMembersIncludingSelf,
		ParticipantReceiver, ParticipantReceiverTeamMembers, ParticipantGiver, ParticipantNone:
		return true
	default:
		return false
	}
}

// String returns the stored form of p.
func (p ParticipantType) String() string { return string(p) }
