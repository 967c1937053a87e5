package repositories

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/boxdropbot/boxdrop/boxdrop/database/models"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

var (
	ErrClaimNotFound    = errors.New("claim not found")
	ErrClaimAlreadyUsed = errors.New("claim already marked as used")
)

const (
	claimTokenLength  = 10
	claimTokenRetries = 5

	// pgUniqueViolation is the SQLSTATE raised when an insert hits the
	// claim_id unique constraint.
	pgUniqueViolation = "23505"
)

const tokenAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// ClaimRepository is the reward ledger: an append-only record of issued
// claims, queried for audit and mutated exactly once more to flip the
// used flag.
type ClaimRepository interface {
	Issue(ctx context.Context, guildID, userID, rewardDescription string) (*models.BoxClaim, error)
	GetUserClaims(ctx context.Context, guildID, userID string) ([]*models.BoxClaim, error)
	MarkUsed(ctx context.Context, guildID, userID, claimID string) (*models.BoxClaim, error)
	DeleteByGuild(ctx context.Context, guildID string) error
}

type claimRepository struct {
	db *bun.DB
}

func NewClaimRepository(db *bun.DB) ClaimRepository {
	return &claimRepository{db: db}
}

// Issue writes a new ledger row with a freshly generated claim token. Token
// uniqueness is enforced by the database constraint; a collision triggers a
// bounded retry with a new token, and exhausting the retries is treated as
// an error rather than being retried forever.
func (r *claimRepository) Issue(ctx context.Context, guildID, userID, rewardDescription string) (*models.BoxClaim, error) {
	for attempt := 0; attempt < claimTokenRetries; attempt++ {
		token, err := newClaimToken(claimTokenLength)
		if err != nil {
			return nil, fmt.Errorf("failed to generate claim token: %w", err)
		}

		claim := &models.BoxClaim{
			GuildID:           guildID,
			UserID:            userID,
			ClaimID:           token,
			RewardDescription: rewardDescription,
			ClaimedAt:         time.Now(),
		}

		_, err = r.db.NewInsert().Model(claim).Exec(ctx)
		if err == nil {
			return claim, nil
		}
		if !isUniqueViolation(err) {
			return nil, fmt.Errorf("failed to write claim: %w", err)
		}

		slog.Warn("Claim token collision, regenerating",
			slog.String("type", "db"),
			slog.String("guild_id", guildID),
			slog.Int("attempt", attempt+1))
	}

	return nil, fmt.Errorf("failed to generate a unique claim token after %d attempts", claimTokenRetries)
}

func (r *claimRepository) GetUserClaims(ctx context.Context, guildID, userID string) ([]*models.BoxClaim, error) {
	var claims []*models.BoxClaim
	err := r.db.NewSelect().
		Model(&claims).
		Where("guild_id = ?", guildID).
		Where("user_id = ?", userID).
		Order("claimed_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load claims: %w", err)
	}
	return claims, nil
}

// MarkUsed flips the used flag on a claim exactly once. A second attempt
// fails with ErrClaimAlreadyUsed, including when two redemptions race: the
// conditional update only succeeds for the first one.
func (r *claimRepository) MarkUsed(ctx context.Context, guildID, userID, claimID string) (*models.BoxClaim, error) {
	claim := new(models.BoxClaim)
	err := r.db.NewSelect().
		Model(claim).
		Where("guild_id = ?", guildID).
		Where("user_id = ?", userID).
		Where("claim_id = ?", claimID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrClaimNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up claim: %w", err)
	}
	if claim.IsUsed {
		return nil, ErrClaimAlreadyUsed
	}

	result, err := r.db.NewUpdate().
		Model((*models.BoxClaim)(nil)).
		Set("is_used = TRUE").
		Where("id = ?", claim.ID).
		Where("is_used = FALSE").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to mark claim as used: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rowsAffected == 0 {
		return nil, ErrClaimAlreadyUsed
	}

	claim.IsUsed = true
	return claim, nil
}

func (r *claimRepository) DeleteByGuild(ctx context.Context, guildID string) error {
	_, err := r.db.NewDelete().
		Model((*models.BoxClaim)(nil)).
		Where("guild_id = ?", guildID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete claims: %w", err)
	}
	return nil
}

func newClaimToken(length int) (string, error) {
	token := make([]byte, length)
	max := big.NewInt(int64(len(tokenAlphabet)))
	for i := range token {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		token[i] = tokenAlphabet[n.Int64()]
	}
	return string(token), nil
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == pgUniqueViolation
}
