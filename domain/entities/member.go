package entities

import "github.com/disgoorg/snowflake/v2"

// Member is the subset of a guild member the registration flow works with
type Member struct {
	GuildID  snowflake.ID
	UserID   snowflake.ID
	Username string
	Roles    []snowflake.ID
}

// WithRole returns the member's roles plus roleID, without duplicates
func (m *Member) WithRole(roleID snowflake.ID) []snowflake.ID {
	roles := make([]snowflake.ID, 0, len(m.Roles)+1)
	roles = append(roles, m.Roles...)
	for _, r := range m.Roles {
		if r == roleID {
			return roles
		}
	}
	return append(roles, roleID)
}

// ProvisionalNickname is applied when a member is registered without a display name
func ProvisionalNickname(username string) string {
	return "<" + username + ">"
}

// RegisteredNickname combines the chosen display name with the account name
func RegisteredNickname(displayName, username string) string {
	return displayName + " <" + username + ">"
}

// WelcomeOutcome says which path greeting a new member took
type WelcomeOutcome int

const (
	// WelcomeDirectMessage: the member was asked for a display name by DM
	WelcomeDirectMessage WelcomeOutcome = iota
	// WelcomeRoleGranted: the DM failed and the member role was applied directly
	WelcomeRoleGranted
	// WelcomePending: the DM failed and no role is configured, so a pending record was kept
	WelcomePending
)

func (o WelcomeOutcome) String() string {
	switch o {
	case WelcomeRoleGranted:
		return "role_granted"
	case WelcomePending:
		return "pending"
	default:
		return "direct_message"
	}
}
