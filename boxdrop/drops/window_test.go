package drops

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimWindowSingleWinner(t *testing.T) {
	claims := newMemClaimRepo()
	msgr := newFakeMessenger()
	fc := clockwork.NewFakeClock()
	window := newClaimWindow("guild1", 100, 200, []string{"a plushie"}, claims, msgr, fc, time.Minute, "")

	outcomeCh := make(chan Outcome, 1)
	go func() { outcomeCh <- window.Run(context.Background()) }()

	const racers = 8
	var wins, losses atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			userID := fmt.Sprintf("%d", 1000+i)
			claim, _, err := window.TryClaim(context.Background(), userID)
			switch {
			case err == nil:
				assert.Equal(t, userID, claim.UserID)
				wins.Add(1)
			case errors.Is(err, ErrAlreadyClaimed):
				losses.Add(1)
			default:
				t.Errorf("unexpected claim error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, OutcomeClaimed, <-outcomeCh)
	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(racers-1), losses.Load())
	assert.Equal(t, 1, claims.count())
	assert.Equal(t, 1, msgr.dmCount())
}

func TestClaimWindowExpires(t *testing.T) {
	claims := newMemClaimRepo()
	msgr := newFakeMessenger()
	fc := clockwork.NewFakeClock()
	window := newClaimWindow("guild1", 100, 200, []string{"a plushie"}, claims, msgr, fc, time.Minute, "")

	outcomeCh := make(chan Outcome, 1)
	go func() { outcomeCh <- window.Run(context.Background()) }()

	fc.BlockUntil(1)
	fc.Advance(time.Minute)

	assert.Equal(t, OutcomeExpired, <-outcomeCh)
	assert.Equal(t, 0, claims.count())

	// The prompt was rewritten into its expired form.
	edit := <-msgr.edited
	assert.Equal(t, window.messageID, edit.messageID)

	// A late press is a harmless no-op, not an error.
	_, _, err := window.TryClaim(context.Background(), "1234")
	assert.ErrorIs(t, err, ErrAlreadyClaimed)
	assert.Equal(t, 0, claims.count())
}

func TestClaimWindowDMFailureFallsBack(t *testing.T) {
	claims := newMemClaimRepo()
	msgr := newFakeMessenger()
	msgr.dmErr = errors.New("dms closed")
	fc := clockwork.NewFakeClock()
	window := newClaimWindow("guild1", 100, 200, []string{"a plushie"}, claims, msgr, fc, time.Minute, "")

	outcomeCh := make(chan Outcome, 1)
	go func() { outcomeCh <- window.Run(context.Background()) }()

	claim, dmFailed, err := window.TryClaim(context.Background(), "1234")
	require.NoError(t, err)
	assert.True(t, dmFailed)
	require.NotNil(t, claim)

	assert.Equal(t, OutcomeClaimed, <-outcomeCh)

	// The claim row is durable despite the failed DM, and a channel
	// notice went out instead.
	assert.Equal(t, 1, claims.count())
	assert.Equal(t, 1, msgr.sentCount())
}

func TestClaimWindowLedgerFailure(t *testing.T) {
	claims := newMemClaimRepo()
	claims.issueErr = errors.New("store unreachable")
	msgr := newFakeMessenger()
	fc := clockwork.NewFakeClock()
	window := newClaimWindow("guild1", 100, 200, []string{"a plushie"}, claims, msgr, fc, time.Minute, "")

	outcomeCh := make(chan Outcome, 1)
	go func() { outcomeCh <- window.Run(context.Background()) }()

	_, _, err := window.TryClaim(context.Background(), "1234")
	assert.Error(t, err)

	assert.Equal(t, OutcomeError, <-outcomeCh)
	assert.Equal(t, 0, claims.count())
	assert.Equal(t, 0, msgr.dmCount())
}
