package entities

import "github.com/disgoorg/snowflake/v2"

// WorkerPrefix is the static routing token that addresses one worker process
type WorkerPrefix string

func (p WorkerPrefix) String() string {
	return string(p)
}

// Worker is a pool member's state within one guild
type Worker struct {
	GuildID   snowflake.ID  `db:"guild_id"`
	Prefix    WorkerPrefix  `db:"prefix"`
	Position  int           `db:"position"`   // Pool order, lower is picked first
	ChannelID *snowflake.ID `db:"channel_id"` // Nullable - current voice destination
}

// IsBound reports whether the worker currently holds a destination
func (w *Worker) IsBound() bool {
	return w.ChannelID != nil
}
