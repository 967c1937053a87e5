package drops

import (
	"context"
	"sync"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"

	"github.com/boxdropbot/boxdrop/boxdrop/database/models"
	"github.com/boxdropbot/boxdrop/boxdrop/database/repositories"
)

type memScheduleRepo struct {
	mu        sync.Mutex
	schedules map[string]*models.BoxSchedule
}

func newMemScheduleRepo() *memScheduleRepo {
	return &memScheduleRepo{schedules: make(map[string]*models.BoxSchedule)}
}

func (r *memScheduleRepo) Get(_ context.Context, guildID string) (*models.BoxSchedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	schedule, ok := r.schedules[guildID]
	if !ok {
		return nil, repositories.ErrScheduleNotFound
	}
	copied := *schedule
	return &copied, nil
}

func (r *memScheduleRepo) GetAll(_ context.Context) ([]*models.BoxSchedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*models.BoxSchedule
	for _, schedule := range r.schedules {
		copied := *schedule
		all = append(all, &copied)
	}
	return all, nil
}

func (r *memScheduleRepo) Upsert(_ context.Context, schedule *models.BoxSchedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *schedule
	r.schedules[schedule.GuildID] = &copied
	return nil
}

func (r *memScheduleRepo) SetNextDrop(_ context.Context, guildID string, nextDropAt *int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	schedule, ok := r.schedules[guildID]
	if !ok {
		return repositories.ErrScheduleNotFound
	}
	schedule.NextDropAt = nextDropAt
	return nil
}

func (r *memScheduleRepo) Delete(_ context.Context, guildID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.schedules, guildID)
	return nil
}

type memRewardRepo struct {
	mu      sync.Mutex
	rewards map[string][]*models.BoxReward
	nextID  int64
	getErr  error
}

func newMemRewardRepo() *memRewardRepo {
	return &memRewardRepo{rewards: make(map[string][]*models.BoxReward)}
}

func (r *memRewardRepo) GetByGuild(_ context.Context, guildID string) ([]*models.BoxReward, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	return append([]*models.BoxReward(nil), r.rewards[guildID]...), nil
}

func (r *memRewardRepo) Add(_ context.Context, guildID string, description string) (*models.BoxReward, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	reward := &models.BoxReward{ID: r.nextID, GuildID: guildID, Description: description}
	r.rewards[guildID] = append(r.rewards[guildID], reward)
	return reward, nil
}

func (r *memRewardRepo) Replace(_ context.Context, guildID string, descriptions []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rewards[guildID] = nil
	for _, description := range descriptions {
		r.nextID++
		r.rewards[guildID] = append(r.rewards[guildID], &models.BoxReward{ID: r.nextID, GuildID: guildID, Description: description})
	}
	return nil
}

func (r *memRewardRepo) DeleteByGuild(_ context.Context, guildID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rewards, guildID)
	return nil
}

type memClaimRepo struct {
	mu       sync.Mutex
	claims   []*models.BoxClaim
	nextID   int64
	issueErr error
}

func newMemClaimRepo() *memClaimRepo {
	return &memClaimRepo{}
}

func (r *memClaimRepo) Issue(_ context.Context, guildID, userID, rewardDescription string) (*models.BoxClaim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.issueErr != nil {
		return nil, r.issueErr
	}
	r.nextID++
	claim := &models.BoxClaim{
		ID:                r.nextID,
		GuildID:           guildID,
		UserID:            userID,
		ClaimID:           "TOKEN" + snowflake.ID(r.nextID).String(),
		RewardDescription: rewardDescription,
		ClaimedAt:         time.Now(),
	}
	r.claims = append(r.claims, claim)
	return claim, nil
}

func (r *memClaimRepo) GetUserClaims(_ context.Context, guildID, userID string) ([]*models.BoxClaim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.BoxClaim
	for _, claim := range r.claims {
		if claim.GuildID == guildID && claim.UserID == userID {
			out = append(out, claim)
		}
	}
	return out, nil
}

func (r *memClaimRepo) MarkUsed(_ context.Context, guildID, userID, claimID string) (*models.BoxClaim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, claim := range r.claims {
		if claim.GuildID == guildID && claim.UserID == userID && claim.ClaimID == claimID {
			if claim.IsUsed {
				return nil, repositories.ErrClaimAlreadyUsed
			}
			claim.IsUsed = true
			return claim, nil
		}
	}
	return nil, repositories.ErrClaimNotFound
}

func (r *memClaimRepo) DeleteByGuild(_ context.Context, guildID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []*models.BoxClaim
	for _, claim := range r.claims {
		if claim.GuildID != guildID {
			kept = append(kept, claim)
		}
	}
	r.claims = kept
	return nil
}

func (r *memClaimRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.claims)
}

type sentMessage struct {
	channelID snowflake.ID
	messageID snowflake.ID
	message   discord.MessageCreate
}

type editedMessage struct {
	channelID snowflake.ID
	messageID snowflake.ID
	update    discord.MessageUpdate
}

// fakeMessenger records every outbound call and signals sends on a channel
// so tests can wait for a drop prompt without sleeping.
type fakeMessenger struct {
	mu            sync.Mutex
	sent          []sentMessage
	edits         []editedMessage
	dms           []snowflake.ID
	nextMessageID snowflake.ID

	sendErr error
	dmErr   error
	editErr error

	sends  chan sentMessage
	edited chan editedMessage
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{
		sends:  make(chan sentMessage, 16),
		edited: make(chan editedMessage, 16),
	}
}

func (m *fakeMessenger) SendMessage(_ context.Context, channelID snowflake.ID, message discord.MessageCreate) (*discord.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	m.nextMessageID++
	record := sentMessage{channelID: channelID, messageID: m.nextMessageID, message: message}
	m.sent = append(m.sent, record)
	m.sends <- record
	return &discord.Message{ID: m.nextMessageID, ChannelID: channelID}, nil
}

func (m *fakeMessenger) EditMessage(_ context.Context, channelID, messageID snowflake.ID, update discord.MessageUpdate) (*discord.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.editErr != nil {
		return nil, m.editErr
	}
	record := editedMessage{channelID: channelID, messageID: messageID, update: update}
	m.edits = append(m.edits, record)
	m.edited <- record
	return &discord.Message{ID: messageID, ChannelID: channelID}, nil
}

func (m *fakeMessenger) DeleteMessage(_ context.Context, _, _ snowflake.ID) error {
	return nil
}

func (m *fakeMessenger) SendDirectMessage(_ context.Context, userID snowflake.ID, _ discord.MessageCreate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dmErr != nil {
		return m.dmErr
	}
	m.dms = append(m.dms, userID)
	return nil
}

func (m *fakeMessenger) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *fakeMessenger) dmCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.dms)
}
