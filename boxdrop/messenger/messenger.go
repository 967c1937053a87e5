package messenger

import (
	"context"
	"errors"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
)

// ErrChannelUnavailable reports that a channel was deleted or is otherwise
// gone. Callers use it to decide whether persisted state pointing at the
// channel should be dropped.
var ErrChannelUnavailable = errors.New("channel unavailable")

// Messenger is the outbound message surface the drop and countdown engines
// talk to. It exists so engine tests can run without a gateway connection.
type Messenger interface {
	SendMessage(ctx context.Context, channelID snowflake.ID, message discord.MessageCreate) (*discord.Message, error)
	EditMessage(ctx context.Context, channelID, messageID snowflake.ID, update discord.MessageUpdate) (*discord.Message, error)
	DeleteMessage(ctx context.Context, channelID, messageID snowflake.ID) error
	SendDirectMessage(ctx context.Context, userID snowflake.ID, message discord.MessageCreate) error
}
