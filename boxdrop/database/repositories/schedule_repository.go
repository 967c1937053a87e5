package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/boxdropbot/boxdrop/boxdrop/database/models"
	"github.com/uptrace/bun"
)

var ErrScheduleNotFound = errors.New("schedule not found")

type ScheduleRepository interface {
	Get(ctx context.Context, guildID string) (*models.BoxSchedule, error)
	GetAll(ctx context.Context) ([]*models.BoxSchedule, error)
	Upsert(ctx context.Context, schedule *models.BoxSchedule) error
	SetNextDrop(ctx context.Context, guildID string, nextDropAt *int64) error
	Delete(ctx context.Context, guildID string) error
}

type scheduleRepository struct {
	db *bun.DB
}

func NewScheduleRepository(db *bun.DB) ScheduleRepository {
	return &scheduleRepository{db: db}
}

func (r *scheduleRepository) Get(ctx context.Context, guildID string) (*models.BoxSchedule, error) {
	schedule := new(models.BoxSchedule)
	err := r.db.NewSelect().
		Model(schedule).
		Where("guild_id = ?", guildID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrScheduleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load schedule: %w", err)
	}
	return schedule, nil
}

func (r *scheduleRepository) GetAll(ctx context.Context) ([]*models.BoxSchedule, error) {
	var schedules []*models.BoxSchedule
	if err := r.db.NewSelect().Model(&schedules).Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to load schedules: %w", err)
	}
	return schedules, nil
}

func (r *scheduleRepository) Upsert(ctx context.Context, schedule *models.BoxSchedule) error {
	_, err := r.db.NewInsert().
		Model(schedule).
		On("CONFLICT (guild_id) DO UPDATE").
		Set("channel_id = EXCLUDED.channel_id").
		Set("interval_ms = EXCLUDED.interval_ms").
		Set("next_drop_at = EXCLUDED.next_drop_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert schedule: %w", err)
	}
	return nil
}

func (r *scheduleRepository) SetNextDrop(ctx context.Context, guildID string, nextDropAt *int64) error {
	result, err := r.db.NewUpdate().
		Model((*models.BoxSchedule)(nil)).
		Set("next_drop_at = ?", nextDropAt).
		Where("guild_id = ?", guildID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to persist next drop time: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

func (r *scheduleRepository) Delete(ctx context.Context, guildID string) error {
	_, err := r.db.NewDelete().
		Model((*models.BoxSchedule)(nil)).
		Where("guild_id = ?", guildID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}
	return nil
}
