package models

import (
	"time"

	"github.com/uptrace/bun"
)

// BoxClaim is one row of the reward ledger. Rows are append-only: nothing
// is ever updated after issuance except the one-time IsUsed flip, and rows
// are only deleted by a full feature reset.
type BoxClaim struct {
	bun.BaseModel `bun:"table:box_claims,alias:bc"`

	ID                int64     `bun:"id,pk,autoincrement"`
	GuildID           string    `bun:"guild_id,notnull"`
	UserID            string    `bun:"user_id,notnull"`
	ClaimID           string    `bun:"claim_id,notnull,unique"`
	RewardDescription string    `bun:"reward_description,notnull"`
	IsUsed            bool      `bun:"is_used,notnull,default:false"`
	ClaimedAt         time.Time `bun:"claimed_at,notnull"`
}
