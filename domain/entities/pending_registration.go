package entities

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// PendingRegistration links a member that has not yet given a display name to a guild
type PendingRegistration struct {
	UserID    snowflake.ID `db:"user_id"`
	GuildID   snowflake.ID `db:"guild_id"`
	CreatedAt time.Time    `db:"created_at"`
}
