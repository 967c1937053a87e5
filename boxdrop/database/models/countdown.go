package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Countdown is one live-updating countdown message. All fields are
// immutable after creation; only the rendered message content changes.
// EndAt is Unix epoch milliseconds.
type Countdown struct {
	bun.BaseModel `bun:"table:countdowns,alias:cd"`

	MessageID        string `bun:"message_id,pk"`
	ChannelID        string `bun:"channel_id,notnull"`
	GuildID          string `bun:"guild_id,notnull"`
	Title            string `bun:"title,notnull"`
	EndAt            int64  `bun:"end_at,notnull"`
	UpdateIntervalMs int64  `bun:"update_interval_ms,notnull"`
}

func (c *Countdown) End() time.Time {
	return time.UnixMilli(c.EndAt)
}

func (c *Countdown) UpdateInterval() time.Duration {
	return time.Duration(c.UpdateIntervalMs) * time.Millisecond
}
