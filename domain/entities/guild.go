package entities

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// Guild is a registered Discord guild. It owns exactly one Settings row.
type Guild struct {
	DiscordID    snowflake.ID `db:"discord_id"`
	SettingsID   int64        `db:"settings_id"`
	RegisteredAt time.Time    `db:"registered_at"`
}
