package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/boxdropbot/boxdrop/boxdrop/database/models"
	"github.com/uptrace/bun"
)

var ErrCountdownNotFound = errors.New("countdown not found")

type CountdownRepository interface {
	GetAll(ctx context.Context) ([]*models.Countdown, error)
	GetByChannel(ctx context.Context, channelID string) (*models.Countdown, error)
	Create(ctx context.Context, countdown *models.Countdown) error
	Delete(ctx context.Context, messageID string) error
}

type countdownRepository struct {
	db *bun.DB
}

func NewCountdownRepository(db *bun.DB) CountdownRepository {
	return &countdownRepository{db: db}
}

func (r *countdownRepository) GetAll(ctx context.Context) ([]*models.Countdown, error) {
	var countdowns []*models.Countdown
	if err := r.db.NewSelect().Model(&countdowns).Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to load countdowns: %w", err)
	}
	return countdowns, nil
}

func (r *countdownRepository) GetByChannel(ctx context.Context, channelID string) (*models.Countdown, error) {
	countdown := new(models.Countdown)
	err := r.db.NewSelect().
		Model(countdown).
		Where("channel_id = ?", channelID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCountdownNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load countdown: %w", err)
	}
	return countdown, nil
}

func (r *countdownRepository) Create(ctx context.Context, countdown *models.Countdown) error {
	if _, err := r.db.NewInsert().Model(countdown).Exec(ctx); err != nil {
		return fmt.Errorf("failed to create countdown: %w", err)
	}
	return nil
}

func (r *countdownRepository) Delete(ctx context.Context, messageID string) error {
	_, err := r.db.NewDelete().
		Model((*models.Countdown)(nil)).
		Where("message_id = ?", messageID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete countdown: %w", err)
	}
	return nil
}
