package countdown

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/boxdropbot/boxdrop/boxdrop/config"
	"github.com/boxdropbot/boxdrop/boxdrop/database/models"
	"github.com/boxdropbot/boxdrop/boxdrop/database/repositories"
	"github.com/boxdropbot/boxdrop/boxdrop/messenger"
)

// ErrCountdownActive reports a create attempt in a channel that already
// has a live countdown.
var ErrCountdownActive = errors.New("a countdown is already running in that channel")

// Manager owns every live countdown. Each one is a one-shot self-re-arming
// timer bound to a single message; the persisted row is the source of truth
// and the timer handle is only a cache used for cancellation.
type Manager struct {
	countdowns repositories.CountdownRepository
	msgr       messenger.Messenger
	clock      clockwork.Clock

	timers   sync.Map // messageID -> *updaterTimer
	shutdown chan struct{}
}

type updaterTimer struct {
	timer  clockwork.Timer
	cancel chan struct{}
}

func NewManager(countdowns repositories.CountdownRepository, msgr messenger.Messenger, clock clockwork.Clock) *Manager {
	return &Manager{
		countdowns: countdowns,
		msgr:       msgr,
		clock:      clock,
		shutdown:   make(chan struct{}),
	}
}

// Create posts the countdown message, persists the entry, and starts the
// updater. Only one countdown may be live per channel. If the persist step
// fails the posted message is taken back down so no orphaned message keeps
// ticking visually while the store knows nothing about it.
func (m *Manager) Create(ctx context.Context, guildID string, channelID snowflake.ID, title string, duration time.Duration) (*models.Countdown, error) {
	_, err := m.countdowns.GetByChannel(ctx, channelID.String())
	if err == nil {
		return nil, ErrCountdownActive
	}
	if !errors.Is(err, repositories.ErrCountdownNotFound) {
		return nil, err
	}

	end := m.clock.Now().Add(duration)
	message, err := m.msgr.SendMessage(ctx, channelID, runningMessage(title, duration))
	if err != nil {
		return nil, fmt.Errorf("failed to post countdown message: %w", err)
	}

	countdown := &models.Countdown{
		MessageID:        message.ID.String(),
		ChannelID:        channelID.String(),
		GuildID:          guildID,
		Title:            title,
		EndAt:            end.UnixMilli(),
		UpdateIntervalMs: config.CountdownUpdateInterval.Milliseconds(),
	}
	if err := m.countdowns.Create(ctx, countdown); err != nil {
		if deleteErr := m.msgr.DeleteMessage(ctx, channelID, message.ID); deleteErr != nil {
			slog.Warn("Failed to remove countdown message after persist failure",
				slog.String("type", "sys"),
				slog.String("channel_id", channelID.String()),
				slog.String("error", deleteErr.Error()))
		}
		return nil, fmt.Errorf("failed to persist countdown: %w", err)
	}

	m.startUpdater(countdown)

	slog.Info("Countdown created",
		slog.String("type", "sys"),
		slog.String("guild_id", guildID),
		slog.String("channel_id", channelID.String()),
		slog.String("title", title),
		slog.Time("ends_at", end))
	return countdown, nil
}

// Resume restores updaters for every persisted countdown after a restart.
// Entries already past their deadline are deleted without rendering a stale
// "just ended" notice.
func (m *Manager) Resume(ctx context.Context) error {
	countdowns, err := m.countdowns.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load countdowns for resume: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, countdown := range countdowns {
		g.Go(func() error {
			if !countdown.End().After(m.clock.Now()) {
				if err := m.countdowns.Delete(ctx, countdown.MessageID); err != nil {
					return fmt.Errorf("failed to drop stale countdown %s: %w", countdown.MessageID, err)
				}
				return nil
			}
			m.startUpdater(countdown)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("Countdown resume complete",
		slog.String("type", "sys"),
		slog.Int("countdowns", len(countdowns)))
	return nil
}

// IsActive reports whether the manager holds a live timer for a message.
func (m *Manager) IsActive(messageID string) bool {
	_, ok := m.timers.Load(messageID)
	return ok
}

// Shutdown stops every updater goroutine without touching persisted rows.
func (m *Manager) Shutdown() {
	close(m.shutdown)
	m.timers.Range(func(key, value any) bool {
		value.(*updaterTimer).timer.Stop()
		return true
	})
	slog.Info("Countdown manager shutdown completed",
		slog.String("type", "sys"))
}

// startUpdater arms the single timer for a countdown. At most one live
// timer per message id exists at any time.
func (m *Manager) startUpdater(countdown *models.Countdown) {
	remaining := countdown.End().Sub(m.clock.Now())
	ut := &updaterTimer{
		timer:  m.clock.NewTimer(m.tickDelay(countdown, remaining)),
		cancel: make(chan struct{}),
	}
	m.timers.Store(countdown.MessageID, ut)

	go func() {
		defer ut.timer.Stop()

		select {
		case <-ut.timer.Chan():
			m.tick(countdown)
		case <-ut.cancel:
		case <-m.shutdown:
		}
	}()
}

// tick re-renders the countdown once, then either re-arms or reaches a
// terminal state. The timer handle is cleared first so a re-entrant
// startUpdater can never leave two timers on one message.
func (m *Manager) tick(countdown *models.Countdown) {
	m.timers.Delete(countdown.MessageID)

	ctx, cancel := context.WithTimeout(context.Background(), config.DefaultQueryTimeout)
	defer cancel()

	channelID, err := snowflake.Parse(countdown.ChannelID)
	messageID, err2 := snowflake.Parse(countdown.MessageID)
	if err != nil || err2 != nil {
		m.remove(ctx, countdown, "unparseable ids")
		return
	}

	remaining := countdown.End().Sub(m.clock.Now())
	if remaining <= 0 {
		if _, err := m.msgr.EditMessage(ctx, channelID, messageID, finishedUpdate(countdown.Title)); err != nil {
			slog.Warn("Failed to render finished countdown",
				slog.String("type", "sys"),
				slog.String("message_id", countdown.MessageID),
				slog.String("error", err.Error()))
		}
		m.remove(ctx, countdown, "completed")
		return
	}

	if _, err := m.msgr.EditMessage(ctx, channelID, messageID, runningUpdate(countdown.Title, remaining)); err != nil {
		// The message or channel is gone, or the edit keeps failing.
		// Either way this countdown is broken; stop instead of retrying.
		m.remove(ctx, countdown, "render failed")
		return
	}

	m.startUpdater(countdown)
}

// remove deletes the persisted row; the timer handle is already gone.
func (m *Manager) remove(ctx context.Context, countdown *models.Countdown, reason string) {
	if err := m.countdowns.Delete(ctx, countdown.MessageID); err != nil {
		slog.Error("Failed to delete countdown entry",
			slog.String("type", "db"),
			slog.String("message_id", countdown.MessageID),
			slog.String("error", err.Error()))
		return
	}
	slog.Info("Countdown stopped",
		slog.String("type", "sys"),
		slog.String("message_id", countdown.MessageID),
		slog.String("reason", reason))
}

// tickDelay picks the next render cadence: the configured interval far
// out, one-second granularity inside the final window, and never past the
// deadline itself.
func (m *Manager) tickDelay(countdown *models.Countdown, remaining time.Duration) time.Duration {
	delay := countdown.UpdateInterval()
	if delay <= 0 {
		delay = config.CountdownUpdateInterval
	}
	if remaining <= config.CountdownFinalWindow {
		delay = config.CountdownFinalInterval
	}
	if remaining < delay {
		delay = remaining
	}
	if delay < 0 {
		delay = 0
	}
	return delay
}
