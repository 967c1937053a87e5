package models

import (
	"time"

	"github.com/uptrace/bun"
)

// BoxSchedule is the persisted drop schedule for one guild. NextDropAt is
// null while the schedule is configured but not started; when set it is the
// absolute next-fire time in Unix epoch milliseconds and is the single
// source of truth across restarts.
type BoxSchedule struct {
	bun.BaseModel `bun:"table:box_schedules,alias:bs"`

	GuildID    string `bun:"guild_id,pk"`
	ChannelID  string `bun:"channel_id,notnull"`
	IntervalMs int64  `bun:"interval_ms,notnull"`
	NextDropAt *int64 `bun:"next_drop_at"`
}

func (s *BoxSchedule) Interval() time.Duration {
	return time.Duration(s.IntervalMs) * time.Millisecond
}

// NextDrop returns the persisted next-fire time, or false if the schedule
// has not been started yet.
func (s *BoxSchedule) NextDrop() (time.Time, bool) {
	if s.NextDropAt == nil {
		return time.Time{}, false
	}
	return time.UnixMilli(*s.NextDropAt), true
}
