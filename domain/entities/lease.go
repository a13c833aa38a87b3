package entities

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// Lease marks a voice destination as claimed by a worker
type Lease struct {
	ChannelID    snowflake.ID `db:"channel_id"`
	GuildID      snowflake.ID `db:"guild_id"`
	WorkerPrefix WorkerPrefix `db:"worker_prefix"`
	LeasedAt     time.Time    `db:"leased_at"`
}
