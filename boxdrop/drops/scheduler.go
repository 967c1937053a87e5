package drops

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/jonboulle/clockwork"

	"github.com/boxdropbot/boxdrop/boxdrop/config"
	"github.com/boxdropbot/boxdrop/boxdrop/database/models"
	"github.com/boxdropbot/boxdrop/boxdrop/database/repositories"
	"github.com/boxdropbot/boxdrop/boxdrop/messenger"
)

var (
	// ErrNotConfigured reports an operation that needs a prior setup call.
	ErrNotConfigured = errors.New("mystery box is not set up for this server")

	// ErrNoRewards reports a start attempt with an empty reward catalog.
	ErrNoRewards = errors.New("reward catalog is empty")

	// ErrNotStarted reports a schedule that is configured but has never
	// been started.
	ErrNotStarted = errors.New("mystery box schedule has not been started")

	// ErrNoActiveDrop reports a claim attempt with no open window, which
	// happens when the window already reached a terminal state.
	ErrNoActiveDrop = errors.New("no mystery box is currently claimable")
)

// Scheduler owns one recurring drop per guild. Each armed schedule has
// exactly one live timer; the timer handle is a process-local cache and the
// persisted next_drop_at column is the source of truth, which is what makes
// restart recovery possible.
type Scheduler struct {
	schedules repositories.ScheduleRepository
	rewards   repositories.RewardRepository
	claims    repositories.ClaimRepository
	msgr      messenger.Messenger
	clock     clockwork.Clock

	windowDuration time.Duration
	ticketHint     string

	timers   sync.Map // guildID -> *dropTimer
	windows  sync.Map // guildID -> *ClaimWindow
	shutdown chan struct{}
}

type dropTimer struct {
	timer  clockwork.Timer
	cancel chan struct{}
}

func NewScheduler(schedules repositories.ScheduleRepository, rewards repositories.RewardRepository, claims repositories.ClaimRepository, msgr messenger.Messenger, clock clockwork.Clock, ticketHint string) *Scheduler {
	return &Scheduler{
		schedules:      schedules,
		rewards:        rewards,
		claims:         claims,
		msgr:           msgr,
		clock:          clock,
		windowDuration: config.ClaimWindowDuration,
		ticketHint:     ticketHint,
		shutdown:       make(chan struct{}),
	}
}

// Configure writes a fresh schedule for the guild and clears the previous
// reward catalog, since every setup session starts a new one. It never arms
// a timer; that is Start's job.
func (s *Scheduler) Configure(ctx context.Context, guildID string, channelID snowflake.ID, interval time.Duration) error {
	s.disarm(guildID)

	schedule := &models.BoxSchedule{
		GuildID:    guildID,
		ChannelID:  channelID.String(),
		IntervalMs: interval.Milliseconds(),
		NextDropAt: nil,
	}
	if err := s.schedules.Upsert(ctx, schedule); err != nil {
		return err
	}
	if err := s.rewards.DeleteByGuild(ctx, guildID); err != nil {
		return err
	}

	slog.Info("Mystery box configured",
		slog.String("type", "drop"),
		slog.String("guild_id", guildID),
		slog.String("channel_id", channelID.String()),
		slog.String("interval", interval.String()))
	return nil
}

// AddReward appends one catalog entry. Setup must have run first.
func (s *Scheduler) AddReward(ctx context.Context, guildID, description string) error {
	if _, err := s.schedules.Get(ctx, guildID); err != nil {
		if errors.Is(err, repositories.ErrScheduleNotFound) {
			return ErrNotConfigured
		}
		return err
	}
	_, err := s.rewards.Add(ctx, guildID, description)
	return err
}

// Rewards returns the guild's current catalog.
func (s *Scheduler) Rewards(ctx context.Context, guildID string) ([]*models.BoxReward, error) {
	return s.rewards.GetByGuild(ctx, guildID)
}

// Start computes the first drop time, persists it, and arms the timer. It
// requires a configured schedule and a non-empty catalog.
func (s *Scheduler) Start(ctx context.Context, guildID string) (time.Time, error) {
	schedule, err := s.schedules.Get(ctx, guildID)
	if err != nil {
		if errors.Is(err, repositories.ErrScheduleNotFound) {
			return time.Time{}, ErrNotConfigured
		}
		return time.Time{}, err
	}

	rewards, err := s.rewards.GetByGuild(ctx, guildID)
	if err != nil {
		return time.Time{}, err
	}
	if len(rewards) == 0 {
		return time.Time{}, ErrNoRewards
	}

	interval := schedule.Interval()
	next := s.clock.Now().Add(interval)
	nextMs := next.UnixMilli()
	if err := s.schedules.SetNextDrop(ctx, guildID, &nextMs); err != nil {
		return time.Time{}, err
	}

	s.disarm(guildID)
	s.arm(guildID, interval, interval)

	slog.Info("Mystery box schedule started",
		slog.String("type", "drop"),
		slog.String("guild_id", guildID),
		slog.Time("next_drop", next))
	return next, nil
}

// TimeUntilNext reports how long until the guild's next drop fires.
func (s *Scheduler) TimeUntilNext(ctx context.Context, guildID string) (time.Duration, error) {
	schedule, err := s.schedules.Get(ctx, guildID)
	if err != nil {
		if errors.Is(err, repositories.ErrScheduleNotFound) {
			return 0, ErrNotConfigured
		}
		return 0, err
	}

	next, ok := schedule.NextDrop()
	if !ok {
		return 0, ErrNotStarted
	}
	remaining := next.Sub(s.clock.Now())
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// IsArmed reports whether the guild currently has a live timer.
func (s *Scheduler) IsArmed(guildID string) bool {
	_, ok := s.timers.Load(guildID)
	return ok
}

// Reset cancels the guild's timer and deletes its schedule, catalog, and
// entire claim ledger. This is the only path that removes claim rows.
func (s *Scheduler) Reset(ctx context.Context, guildID string) error {
	s.disarm(guildID)

	if err := s.schedules.Delete(ctx, guildID); err != nil {
		return err
	}
	if err := s.rewards.DeleteByGuild(ctx, guildID); err != nil {
		return err
	}
	if err := s.claims.DeleteByGuild(ctx, guildID); err != nil {
		return err
	}

	slog.Info("Mystery box reset",
		slog.String("type", "drop"),
		slog.String("guild_id", guildID))
	return nil
}

// ClaimDrop routes a button press to the guild's open claim window.
func (s *Scheduler) ClaimDrop(ctx context.Context, guildID, userID string) (*models.BoxClaim, bool, error) {
	value, ok := s.windows.Load(guildID)
	if !ok {
		return nil, false, ErrNoActiveDrop
	}
	return value.(*ClaimWindow).TryClaim(ctx, userID)
}

// Resume re-arms every persisted schedule after a restart. Schedules with a
// null next_drop_at stay configured but unarmed; overdue deadlines are
// clamped to a small floor so they fire almost immediately instead of
// replaying missed drops.
func (s *Scheduler) Resume(ctx context.Context) error {
	schedules, err := s.schedules.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load schedules for resume: %w", err)
	}

	armed := 0
	for _, schedule := range schedules {
		next, ok := schedule.NextDrop()
		if !ok {
			continue
		}

		delay := next.Sub(s.clock.Now())
		if delay < config.ResumeFloor {
			delay = config.ResumeFloor
		}
		s.arm(schedule.GuildID, delay, schedule.Interval())
		armed++

		slog.Info("Mystery box schedule resumed",
			slog.String("type", "drop"),
			slog.String("guild_id", schedule.GuildID),
			slog.String("fires_in", delay.Round(time.Second).String()))
	}

	slog.Info("Mystery box resume complete",
		slog.String("type", "drop"),
		slog.Int("schedules", len(schedules)),
		slog.Int("armed", armed))
	return nil
}

// Shutdown stops every timer goroutine. Persisted state is untouched, so
// the next start resumes where this one left off.
func (s *Scheduler) Shutdown() {
	close(s.shutdown)
	s.timers.Range(func(key, value any) bool {
		value.(*dropTimer).timer.Stop()
		return true
	})
	slog.Info("Drop scheduler shutdown completed",
		slog.String("type", "drop"))
}

// arm sets the single live timer for a guild. The interval is carried into
// the timer goroutine so a fire can re-arm even when the schedule row
// cannot be re-read at that moment.
func (s *Scheduler) arm(guildID string, delay, interval time.Duration) {
	dt := &dropTimer{
		timer:  s.clock.NewTimer(delay),
		cancel: make(chan struct{}),
	}
	s.timers.Store(guildID, dt)

	go func() {
		defer dt.timer.Stop()

		select {
		case <-dt.timer.Chan():
			s.handleFire(guildID, interval)
		case <-dt.cancel:
		case <-s.shutdown:
		}
	}()
}

// disarm cancels the guild's live timer, if any.
func (s *Scheduler) disarm(guildID string) {
	if value, ok := s.timers.LoadAndDelete(guildID); ok {
		dt := value.(*dropTimer)
		dt.timer.Stop()
		close(dt.cancel)
	}
}

// handleFire runs one drop end to end. The timer handle is cleared before
// any fire handling so a re-entrant arm can never leave two timers live,
// and exactly one re-arm happens afterwards when fire asks for one.
func (s *Scheduler) handleFire(guildID string, interval time.Duration) {
	s.timers.Delete(guildID)

	ctx, cancel := context.WithTimeout(context.Background(), s.windowDuration+config.DefaultQueryTimeout)
	defer cancel()

	if !s.fire(ctx, guildID) {
		return
	}

	next := s.clock.Now().Add(interval)
	nextMs := next.UnixMilli()
	if err := s.schedules.SetNextDrop(ctx, guildID, &nextMs); err != nil {
		if errors.Is(err, repositories.ErrScheduleNotFound) {
			// Reset raced the fire; the schedule is gone, stay disarmed.
			return
		}
		slog.Error("Failed to persist next drop time, re-arming anyway",
			slog.String("type", "drop"),
			slog.String("guild_id", guildID),
			slog.String("error", err.Error()))
	}
	s.arm(guildID, interval, interval)
}

// fire executes one drop and reports whether the schedule should re-arm.
// Only a vanished channel or a mid-flight reset stops the recurrence; every
// other failure is logged and retried on the next natural fire.
func (s *Scheduler) fire(ctx context.Context, guildID string) bool {
	schedule, err := s.schedules.Get(ctx, guildID)
	if err != nil {
		if errors.Is(err, repositories.ErrScheduleNotFound) {
			return false
		}
		slog.Error("Failed to load schedule at fire time",
			slog.String("type", "drop"),
			slog.String("guild_id", guildID),
			slog.String("error", err.Error()))
		return true
	}

	channelID, err := snowflake.Parse(schedule.ChannelID)
	if err != nil {
		slog.Error("Schedule has an unparseable channel id, dropping it",
			slog.String("type", "drop"),
			slog.String("guild_id", guildID),
			slog.String("channel_id", schedule.ChannelID))
		s.dropSchedule(ctx, guildID)
		return false
	}

	rewards, err := s.rewards.GetByGuild(ctx, guildID)
	if err != nil {
		slog.Error("Failed to load reward catalog at fire time",
			slog.String("type", "drop"),
			slog.String("guild_id", guildID),
			slog.String("error", err.Error()))
		return true
	}

	if len(rewards) == 0 {
		if _, err := s.msgr.SendMessage(ctx, channelID, emptyCatalogMessage()); err != nil {
			if errors.Is(err, messenger.ErrChannelUnavailable) {
				s.dropSchedule(ctx, guildID)
				return false
			}
			slog.Error("Failed to post empty catalog notice",
				slog.String("type", "drop"),
				slog.String("guild_id", guildID),
				slog.String("error", err.Error()))
		}
		return true
	}

	prompt, err := s.msgr.SendMessage(ctx, channelID, dropPromptMessage(guildID, s.windowDuration))
	if err != nil {
		if errors.Is(err, messenger.ErrChannelUnavailable) {
			slog.Warn("Drop channel is gone, clearing schedule",
				slog.String("type", "drop"),
				slog.String("guild_id", guildID),
				slog.String("channel_id", schedule.ChannelID))
			s.dropSchedule(ctx, guildID)
			return false
		}
		slog.Error("Failed to post drop prompt",
			slog.String("type", "drop"),
			slog.String("guild_id", guildID),
			slog.String("error", err.Error()))
		return true
	}

	snapshot := make([]string, len(rewards))
	for i, reward := range rewards {
		snapshot[i] = reward.Description
	}

	window := newClaimWindow(guildID, channelID, prompt.ID, snapshot, s.claims, s.msgr, s.clock, s.windowDuration, s.ticketHint)
	s.windows.Store(guildID, window)
	outcome := window.Run(ctx)
	s.windows.Delete(guildID)

	slog.Info("Mystery box drop finished",
		slog.String("type", "drop"),
		slog.String("guild_id", guildID),
		slog.String("outcome", outcomeString(outcome)))
	return true
}

// dropSchedule removes only the schedule row. The catalog and ledger stay
// so a later setup call picks up where the old channel left off.
func (s *Scheduler) dropSchedule(ctx context.Context, guildID string) {
	if err := s.schedules.Delete(ctx, guildID); err != nil {
		slog.Error("Failed to delete schedule for unavailable channel",
			slog.String("type", "drop"),
			slog.String("guild_id", guildID),
			slog.String("error", err.Error()))
	}
}

func outcomeString(outcome Outcome) string {
	switch outcome {
	case OutcomeClaimed:
		return "claimed"
	case OutcomeExpired:
		return "expired"
	default:
		return "error"
	}
}
