package drops

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/jonboulle/clockwork"

	"github.com/boxdropbot/boxdrop/boxdrop/database/models"
	"github.com/boxdropbot/boxdrop/boxdrop/database/repositories"
	"github.com/boxdropbot/boxdrop/boxdrop/messenger"
)

// ErrAlreadyClaimed reports a claim attempt that lost the race. Callers
// show it as a harmless "too slow" notice, never as a failure.
var ErrAlreadyClaimed = errors.New("box already claimed")

type Outcome int

const (
	OutcomeClaimed Outcome = iota
	OutcomeExpired
	OutcomeError
)

// ClaimWindow races concurrent claim attempts against a fixed deadline.
// The won flag is the single-winner guard: it is compare-and-swapped
// synchronously in TryClaim before any I/O, so two near-simultaneous
// presses can never both pass. The timeout path swaps the same flag, which
// also makes the terminal transition exclusive.
type ClaimWindow struct {
	guildID   string
	channelID snowflake.ID
	messageID snowflake.ID
	rewards   []string

	claims repositories.ClaimRepository
	msgr   messenger.Messenger
	clock  clockwork.Clock

	duration   time.Duration
	ticketHint string

	won      atomic.Bool
	attempts chan claimAttempt
}

type claimAttempt struct {
	userID string
	reply  chan claimResult
}

// claimResult is what a winning attempt gets back once the ledger write
// and notifications have run.
type claimResult struct {
	claim    *models.BoxClaim
	dmFailed bool
	err      error
}

func newClaimWindow(guildID string, channelID, messageID snowflake.ID, rewards []string, claims repositories.ClaimRepository, msgr messenger.Messenger, clock clockwork.Clock, duration time.Duration, ticketHint string) *ClaimWindow {
	return &ClaimWindow{
		guildID:    guildID,
		channelID:  channelID,
		messageID:  messageID,
		rewards:    rewards,
		claims:     claims,
		msgr:       msgr,
		clock:      clock,
		duration:   duration,
		ticketHint: ticketHint,
		attempts:   make(chan claimAttempt, 1),
	}
}

// TryClaim submits a claim attempt. The first caller to flip the winner
// flag blocks until the window processes the claim; every later caller
// gets ErrAlreadyClaimed immediately.
func (w *ClaimWindow) TryClaim(ctx context.Context, userID string) (*models.BoxClaim, bool, error) {
	if !w.won.CompareAndSwap(false, true) {
		return nil, false, ErrAlreadyClaimed
	}

	attempt := claimAttempt{
		userID: userID,
		reply:  make(chan claimResult, 1),
	}
	w.attempts <- attempt

	select {
	case result := <-attempt.reply:
		return result.claim, result.dmFailed, result.err
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// Run drives the window to its terminal state and returns the outcome. It
// blocks for at most the window duration.
func (w *ClaimWindow) Run(ctx context.Context) Outcome {
	timer := w.clock.NewTimer(w.duration)
	defer timer.Stop()

	select {
	case attempt := <-w.attempts:
		return w.accept(ctx, attempt)
	case <-timer.Chan():
		if !w.won.CompareAndSwap(false, true) {
			// A claim flipped the flag just before the deadline; its
			// attempt is in flight and still gets honored.
			return w.accept(ctx, <-w.attempts)
		}
		return w.expire(ctx)
	}
}

func (w *ClaimWindow) accept(ctx context.Context, attempt claimAttempt) Outcome {
	reward := w.rewards[rand.IntN(len(w.rewards))]

	claim, err := w.claims.Issue(ctx, w.guildID, attempt.userID, reward)
	if err != nil {
		slog.Error("Failed to write claim for drop winner",
			slog.String("type", "drop"),
			slog.String("guild_id", w.guildID),
			slog.String("user_id", attempt.userID),
			slog.String("error", err.Error()))
		if _, editErr := w.msgr.EditMessage(ctx, w.channelID, w.messageID, dropFailedUpdate()); editErr != nil {
			slog.Error("Failed to update drop prompt after claim failure",
				slog.String("type", "drop"),
				slog.String("guild_id", w.guildID),
				slog.String("error", editErr.Error()))
		}
		attempt.reply <- claimResult{err: err}
		return OutcomeError
	}

	// The claim row is durable from here on. Notification failures only
	// degrade delivery, they never undo or duplicate the claim.
	dmFailed := false
	winnerID, parseErr := snowflake.Parse(attempt.userID)
	if parseErr != nil {
		dmFailed = true
	} else if err := w.msgr.SendDirectMessage(ctx, winnerID, winnerDMMessage(claim.RewardDescription, claim.ClaimID, w.ticketHint)); err != nil {
		dmFailed = true
		slog.Warn("Failed to DM drop winner, falling back to channel notice",
			slog.String("type", "drop"),
			slog.String("guild_id", w.guildID),
			slog.String("user_id", attempt.userID),
			slog.String("error", err.Error()))
	}
	if dmFailed {
		if _, err := w.msgr.SendMessage(ctx, w.channelID, dmFallbackMessage(attempt.userID)); err != nil {
			slog.Error("Failed to post DM fallback notice",
				slog.String("type", "drop"),
				slog.String("guild_id", w.guildID),
				slog.String("error", err.Error()))
		}
	}

	if _, err := w.msgr.EditMessage(ctx, w.channelID, w.messageID, dropClaimedUpdate(attempt.userID)); err != nil {
		slog.Warn("Failed to update claimed drop prompt",
			slog.String("type", "drop"),
			slog.String("guild_id", w.guildID),
			slog.String("error", err.Error()))
	}

	attempt.reply <- claimResult{claim: claim, dmFailed: dmFailed}
	return OutcomeClaimed
}

func (w *ClaimWindow) expire(ctx context.Context) Outcome {
	if _, err := w.msgr.EditMessage(ctx, w.channelID, w.messageID, dropExpiredUpdate()); err != nil {
		slog.Warn("Failed to update expired drop prompt",
			slog.String("type", "drop"),
			slog.String("guild_id", w.guildID),
			slog.String("error", err.Error()))
	}
	return OutcomeExpired
}
