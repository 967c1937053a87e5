package drops

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boxdropbot/boxdrop/boxdrop/config"
	"github.com/boxdropbot/boxdrop/boxdrop/database/models"
	"github.com/boxdropbot/boxdrop/boxdrop/database/repositories"
	"github.com/boxdropbot/boxdrop/boxdrop/messenger"
)

type schedulerFixture struct {
	scheduler *Scheduler
	schedules *memScheduleRepo
	rewards   *memRewardRepo
	claims    *memClaimRepo
	msgr      *fakeMessenger
	clock     *clockwork.FakeClock
}

func newSchedulerFixture() *schedulerFixture {
	f := &schedulerFixture{
		schedules: newMemScheduleRepo(),
		rewards:   newMemRewardRepo(),
		claims:    newMemClaimRepo(),
		msgr:      newFakeMessenger(),
		clock:     clockwork.NewFakeClock(),
	}
	f.scheduler = NewScheduler(f.schedules, f.rewards, f.claims, f.msgr, f.clock, "")
	return f
}

func (f *schedulerFixture) setup(t *testing.T, guildID string, interval time.Duration, rewards ...string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.scheduler.Configure(ctx, guildID, snowflake.ID(42), interval))
	for _, reward := range rewards {
		require.NoError(t, f.scheduler.AddReward(ctx, guildID, reward))
	}
}

func TestSchedulerStartValidation(t *testing.T) {
	f := newSchedulerFixture()
	ctx := context.Background()

	_, err := f.scheduler.Start(ctx, "g1")
	assert.ErrorIs(t, err, ErrNotConfigured)

	require.NoError(t, f.scheduler.Configure(ctx, "g1", snowflake.ID(42), time.Hour))
	_, err = f.scheduler.Start(ctx, "g1")
	assert.ErrorIs(t, err, ErrNoRewards)
	assert.False(t, f.scheduler.IsArmed("g1"))
}

func TestSchedulerTimeUntilNext(t *testing.T) {
	f := newSchedulerFixture()
	ctx := context.Background()

	_, err := f.scheduler.TimeUntilNext(ctx, "g1")
	assert.ErrorIs(t, err, ErrNotConfigured)

	f.setup(t, "g1", time.Hour, "sticker pack")
	_, err = f.scheduler.TimeUntilNext(ctx, "g1")
	assert.ErrorIs(t, err, ErrNotStarted)

	_, err = f.scheduler.Start(ctx, "g1")
	require.NoError(t, err)

	remaining, err := f.scheduler.TimeUntilNext(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, time.Hour, remaining)
}

func TestSchedulerFiresAndRearmsOnExpiry(t *testing.T) {
	f := newSchedulerFixture()
	ctx := context.Background()
	f.setup(t, "g1", time.Hour, "sticker pack")

	start := f.clock.Now()
	_, err := f.scheduler.Start(ctx, "g1")
	require.NoError(t, err)
	assert.True(t, f.scheduler.IsArmed("g1"))

	f.clock.BlockUntil(1)
	f.clock.Advance(time.Hour)

	// The drop prompt goes out, then the claim window arms its own timer.
	prompt := <-f.msgr.sends
	assert.Equal(t, snowflake.ID(42), prompt.channelID)

	f.clock.BlockUntil(1)
	f.clock.Advance(config.ClaimWindowDuration)

	// Nobody claimed: the prompt is rewritten and no ledger row exists.
	<-f.msgr.edited
	assert.Equal(t, 0, f.claims.count())

	// Exactly one re-arm, with the next deadline persisted first.
	f.clock.BlockUntil(1)
	assert.True(t, f.scheduler.IsArmed("g1"))

	schedule, err := f.schedules.Get(ctx, "g1")
	require.NoError(t, err)
	require.NotNil(t, schedule.NextDropAt)
	expected := start.Add(time.Hour + config.ClaimWindowDuration + time.Hour)
	assert.Equal(t, expected.UnixMilli(), *schedule.NextDropAt)
}

func TestSchedulerClaimRace(t *testing.T) {
	f := newSchedulerFixture()
	ctx := context.Background()
	f.setup(t, "g1", time.Minute, "sticker pack")

	_, err := f.scheduler.Start(ctx, "g1")
	require.NoError(t, err)

	f.clock.BlockUntil(1)
	f.clock.Advance(time.Minute)
	<-f.msgr.sends

	require.Eventually(t, func() bool {
		_, ok := f.scheduler.windows.Load("g1")
		return ok
	}, time.Second, time.Millisecond)

	var (
		wg        sync.WaitGroup
		wins      int
		tooSlow   int
		resultsMu sync.Mutex
	)
	for _, userID := range []string{"111", "222"} {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			_, _, err := f.scheduler.ClaimDrop(ctx, "g1", userID)
			resultsMu.Lock()
			defer resultsMu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrAlreadyClaimed):
				tooSlow++
			default:
				t.Errorf("unexpected claim error: %v", err)
			}
		}(userID)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, tooSlow)
	assert.Equal(t, 1, f.claims.count())
	assert.Equal(t, 1, f.msgr.dmCount())

	// The schedule re-arms after the claimed outcome too.
	require.Eventually(t, func() bool {
		return f.scheduler.IsArmed("g1")
	}, time.Second, time.Millisecond)

	// Once the window is gone, pressing the stale button is harmless.
	require.Eventually(t, func() bool {
		_, ok := f.scheduler.windows.Load("g1")
		return !ok
	}, time.Second, time.Millisecond)
	_, _, err = f.scheduler.ClaimDrop(ctx, "g1", "333")
	assert.ErrorIs(t, err, ErrNoActiveDrop)
}

func TestSchedulerEmptyCatalogStillRearms(t *testing.T) {
	f := newSchedulerFixture()
	ctx := context.Background()
	f.setup(t, "g1", time.Hour, "sticker pack")

	_, err := f.scheduler.Start(ctx, "g1")
	require.NoError(t, err)

	// The catalog empties between start and fire.
	require.NoError(t, f.rewards.DeleteByGuild(ctx, "g1"))

	f.clock.BlockUntil(1)
	f.clock.Advance(time.Hour)

	// A skip notice goes out instead of a claimable prompt, and the
	// schedule keeps running.
	<-f.msgr.sends
	f.clock.BlockUntil(1)
	assert.True(t, f.scheduler.IsArmed("g1"))
	assert.Equal(t, 0, f.claims.count())
}

func TestSchedulerChannelGoneClearsSchedule(t *testing.T) {
	f := newSchedulerFixture()
	ctx := context.Background()
	f.setup(t, "g1", time.Hour, "sticker pack")

	_, err := f.scheduler.Start(ctx, "g1")
	require.NoError(t, err)

	f.msgr.sendErr = messenger.ErrChannelUnavailable

	f.clock.BlockUntil(1)
	f.clock.Advance(time.Hour)

	require.Eventually(t, func() bool {
		_, err := f.schedules.Get(ctx, "g1")
		return errors.Is(err, repositories.ErrScheduleNotFound)
	}, time.Second, time.Millisecond)
	assert.False(t, f.scheduler.IsArmed("g1"))

	// The catalog and ledger survive for the next setup.
	rewards, err := f.rewards.GetByGuild(ctx, "g1")
	require.NoError(t, err)
	assert.Len(t, rewards, 1)
}

func TestSchedulerResume(t *testing.T) {
	f := newSchedulerFixture()
	ctx := context.Background()

	overdue := f.clock.Now().Add(-time.Hour).UnixMilli()
	future := f.clock.Now().Add(30 * time.Minute).UnixMilli()
	require.NoError(t, f.schedules.Upsert(ctx, &models.BoxSchedule{
		GuildID: "overdue", ChannelID: "42", IntervalMs: time.Hour.Milliseconds(), NextDropAt: &overdue,
	}))
	require.NoError(t, f.schedules.Upsert(ctx, &models.BoxSchedule{
		GuildID: "future", ChannelID: "43", IntervalMs: time.Hour.Milliseconds(), NextDropAt: &future,
	}))
	require.NoError(t, f.schedules.Upsert(ctx, &models.BoxSchedule{
		GuildID: "unstarted", ChannelID: "44", IntervalMs: time.Hour.Milliseconds(),
	}))
	require.NoError(t, f.rewards.Replace(ctx, "overdue", []string{"sticker pack"}))

	require.NoError(t, f.scheduler.Resume(ctx))

	// Started schedules come back armed, unstarted ones stay dormant.
	assert.True(t, f.scheduler.IsArmed("overdue"))
	assert.True(t, f.scheduler.IsArmed("future"))
	assert.False(t, f.scheduler.IsArmed("unstarted"))

	// The overdue schedule fires once after the safety floor, never a
	// backlog of missed drops.
	f.clock.Advance(config.ResumeFloor)
	prompt := <-f.msgr.sends
	assert.Equal(t, snowflake.ID(42), prompt.channelID)
	select {
	case extra := <-f.msgr.sends:
		t.Fatalf("unexpected extra drop: %+v", extra)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSchedulerReset(t *testing.T) {
	f := newSchedulerFixture()
	ctx := context.Background()
	f.setup(t, "g1", time.Hour, "sticker pack")

	_, err := f.scheduler.Start(ctx, "g1")
	require.NoError(t, err)

	_, err = f.claims.Issue(ctx, "g1", "111", "sticker pack")
	require.NoError(t, err)

	require.NoError(t, f.scheduler.Reset(ctx, "g1"))

	assert.False(t, f.scheduler.IsArmed("g1"))
	_, err = f.schedules.Get(ctx, "g1")
	assert.ErrorIs(t, err, repositories.ErrScheduleNotFound)
	rewards, err := f.rewards.GetByGuild(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, rewards)
	assert.Equal(t, 0, f.claims.count())
}
