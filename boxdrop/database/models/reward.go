package models

import "github.com/uptrace/bun"

// BoxReward is one entry of a guild's reward catalog. The catalog is
// replaced wholesale by setup; claims copy the description at issuance so
// later catalog edits never touch issued claims.
type BoxReward struct {
	bun.BaseModel `bun:"table:box_rewards,alias:br"`

	ID          int64  `bun:"id,pk,autoincrement"`
	GuildID     string `bun:"guild_id,notnull"`
	Description string `bun:"description,notnull"`
}
