package repositories

import (
	"context"
	"fmt"

	"github.com/boxdropbot/boxdrop/boxdrop/database/models"
	"github.com/uptrace/bun"
)

type RewardRepository interface {
	GetByGuild(ctx context.Context, guildID string) ([]*models.BoxReward, error)
	Add(ctx context.Context, guildID string, description string) (*models.BoxReward, error)
	Replace(ctx context.Context, guildID string, descriptions []string) error
	DeleteByGuild(ctx context.Context, guildID string) error
}

type rewardRepository struct {
	db *bun.DB
}

func NewRewardRepository(db *bun.DB) RewardRepository {
	return &rewardRepository{db: db}
}

func (r *rewardRepository) GetByGuild(ctx context.Context, guildID string) ([]*models.BoxReward, error) {
	var rewards []*models.BoxReward
	err := r.db.NewSelect().
		Model(&rewards).
		Where("guild_id = ?", guildID).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load rewards: %w", err)
	}
	return rewards, nil
}

func (r *rewardRepository) Add(ctx context.Context, guildID string, description string) (*models.BoxReward, error) {
	reward := &models.BoxReward{
		GuildID:     guildID,
		Description: description,
	}
	if _, err := r.db.NewInsert().Model(reward).Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to add reward: %w", err)
	}
	return reward, nil
}

// Replace clears a guild's catalog and inserts the new entries in one
// transaction, so a failed setup never leaves a half-written catalog.
func (r *rewardRepository) Replace(ctx context.Context, guildID string, descriptions []string) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*models.BoxReward)(nil)).
			Where("guild_id = ?", guildID).
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to clear previous rewards: %w", err)
		}

		rewards := make([]*models.BoxReward, 0, len(descriptions))
		for _, description := range descriptions {
			rewards = append(rewards, &models.BoxReward{
				GuildID:     guildID,
				Description: description,
			})
		}
		if len(rewards) == 0 {
			return nil
		}

		if _, err := tx.NewInsert().Model(&rewards).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert rewards: %w", err)
		}
		return nil
	})
}

func (r *rewardRepository) DeleteByGuild(ctx context.Context, guildID string) error {
	_, err := r.db.NewDelete().
		Model((*models.BoxReward)(nil)).
		Where("guild_id = ?", guildID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete rewards: %w", err)
	}
	return nil
}
